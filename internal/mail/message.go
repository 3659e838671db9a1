package mail

import (
	"errors"
	netmail "net/mail"
	"strings"
)

var (
	ErrNoRecipient = errors.New("mail: no recipient")
	ErrNoSender    = errors.New("mail: no sender")
	ErrNoContent   = errors.New("mail: no content")
)

// Address is an email address with an optional display name.
type Address struct {
	Email string
	Name  string
}

// String renders the address in RFC 5322 form.
func (address Address) String() string {
	if strings.TrimSpace(address.Name) == "" {
		return address.Email
	}
	formatted := netmail.Address{Name: sanitizeHeaderValue(address.Name), Address: address.Email}
	return formatted.String()
}

// Attachment is a decoded file delivered with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message holds the mail parameters for a single delivery.
type Message struct {
	To          Address
	From        Address
	ReplyTo     string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Validate checks the fields every provider needs.
func (message Message) Validate() error {
	if strings.TrimSpace(message.To.Email) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(message.From.Email) == "" {
		return ErrNoSender
	}
	if message.HTMLBody == "" && message.TextBody == "" {
		return ErrNoContent
	}
	return nil
}

// sanitizeHeaderValue strips control characters so values cannot inject headers.
func sanitizeHeaderValue(value string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
}

func sanitizeFilename(filename string) string {
	cleaned := strings.ReplaceAll(sanitizeHeaderValue(filename), "\"", "'")
	if strings.TrimSpace(cleaned) == "" {
		return "attachment"
	}
	return cleaned
}
