// Package secret issues and checks the bearer token guarding the admin API.
package secret

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidByteLength   = errors.New("secret: token length below minimum")
	ErrMissingRandomSource = errors.New("secret: no entropy source")
	ErrRandomSourceFailure = errors.New("secret: entropy read failed")
)

const (
	MinByteLength     = 32
	defaultByteLength = 48
)

// ByteLength is a token size in random bytes, never below MinByteLength.
type ByteLength struct {
	value int
}

func NewByteLength(value int) (ByteLength, error) {
	if value < MinByteLength {
		return ByteLength{}, fmt.Errorf("%w: %d < %d", ErrInvalidByteLength, value, MinByteLength)
	}
	return ByteLength{value: value}, nil
}

func DefaultByteLength() ByteLength {
	return ByteLength{value: defaultByteLength}
}

func (length ByteLength) Value() int {
	return length.value
}

// Generator draws token bytes from an entropy source.
type Generator struct {
	entropy io.Reader
}

func NewGenerator(entropy io.Reader) (*Generator, error) {
	if entropy == nil {
		return nil, ErrMissingRandomSource
	}
	return &Generator{entropy: entropy}, nil
}

func NewCryptoGenerator() (*Generator, error) {
	return NewGenerator(rand.Reader)
}

// GenerateSecret returns length random bytes encoded as unpadded URL-safe base64.
func (generator *Generator) GenerateSecret(ctx context.Context, length ByteLength) (string, error) {
	if generator == nil || generator.entropy == nil {
		return "", ErrMissingRandomSource
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	if length.value == 0 {
		length = DefaultByteLength()
	}

	raw := make([]byte, length.value)
	if _, err := io.ReadFull(generator.entropy, raw); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRandomSourceFailure, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Matches compares a presented token with the expected one in constant time.
func Matches(presented string, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// Strong reports whether token is at least as long as a minimum-length generated token.
func Strong(token string) bool {
	return len(token) >= base64.RawURLEncoding.EncodedLen(MinByteLength)
}
