// Package journal keeps an optional metadata-only record of delivery outcomes. Submission content
// is never stored.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tyemirov/cyberhelp/pkg/db"
	"gorm.io/gorm"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

const defaultListLimit = 100

var ErrInvalidStatus = errors.New("journal: invalid status filter")

// Delivery is one recorded submission outcome.
type Delivery struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	ReferenceID string    `json:"reference_id" gorm:"uniqueIndex"`
	Kind        string    `json:"kind" gorm:"index"`
	Status      Status    `json:"status" gorm:"index"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Provider    string    `json:"provider"`
	Attachments int       `json:"attachments"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store struct {
	database *gorm.DB
}

// Open initializes the SQLite journal at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	database, err := db.InitDB(path, logger, &Delivery{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return NewStore(database), nil
}

func NewStore(database *gorm.DB) *Store {
	return &Store{database: database}
}

// Record stores delivery, stamping CreatedAt when unset.
func (store *Store) Record(ctx context.Context, delivery Delivery) error {
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}
	if err := store.database.WithContext(ctx).Create(&delivery).Error; err != nil {
		return fmt.Errorf("record delivery %s: %w", delivery.ReferenceID, err)
	}
	return nil
}

// List returns the newest deliveries first, optionally filtered by status.
func (store *Store) List(ctx context.Context, status Status, limit int) ([]Delivery, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	query := store.database.WithContext(ctx).Order("created_at desc").Order("id desc").Limit(limit)
	switch status {
	case "":
	case StatusSent, StatusFailed:
		query = query.Where("status = ?", status)
	default:
		return nil, ErrInvalidStatus
	}
	var deliveries []Delivery
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return deliveries, nil
}

// Close releases the underlying connection pool.
func (store *Store) Close() error {
	sqlDatabase, err := store.database.DB()
	if err != nil {
		return err
	}
	return sqlDatabase.Close()
}
