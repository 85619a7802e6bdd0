// Package email sends transactional email and keeps per-notification
// delivery records, updated by provider webhooks.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// Message is one outbound transactional email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	Text     string
	Template string
	// UserID links the notification record to an account, when known.
	UserID string
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg *Message) (providerID string, err error)
}

// LogSender is a Sender that only logs, for development and tests.
type LogSender struct{}

// Send logs the message and fabricates a provider id.
func (LogSender) Send(_ context.Context, msg *Message) (string, error) {
	slog.Info("email (log sender)", "to", msg.To, "subject", msg.Subject, "template", msg.Template)
	return "log-" + uuid.NewString(), nil
}

// Stats summarises a user's notification records by status.
type Stats struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Bounced   int `json:"bounced"`
	Failed    int `json:"failed"`
}

// NotificationStore is the durable backend for notification records and
// email preferences.
type NotificationStore interface {
	// InsertBatch writes notification records.
	InsertBatch(ctx context.Context, records []*core.EmailNotification) error

	// ListByUser returns a user's notification records, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]core.EmailNotification, error)

	// Stats returns per-status counts for a user.
	Stats(ctx context.Context, userID string) (Stats, error)

	// UpdateStatusByProviderID sets the status of the record with the given
	// provider message id. Returns false when no record matches.
	UpdateStatusByProviderID(ctx context.Context, providerID, status string) (bool, error)

	// GetPreferences returns a user's opt-in flags, defaulting to all-on
	// for users who never saved preferences.
	GetPreferences(ctx context.Context, userID string) (*core.EmailPreferences, error)

	// UpsertPreferences saves a user's opt-in flags.
	UpsertPreferences(ctx context.Context, prefs *core.EmailPreferences) error
}

// NewStore creates the NotificationStore matching the storage backend.
func NewStore(store storage.Storage) (NotificationStore, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB())
	case storage.TypePostgreSQL:
		pool, ok := store.PostgreSQLPool().(*pgxpool.Pool)
		if !ok {
			return nil, fmt.Errorf("invalid PostgreSQL pool type: %T", store.PostgreSQLPool())
		}
		return NewPostgreSQLStore(pool)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}
