// Package alerts manages per-user price alerts and matches new listings
// against them.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/email"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// Store is the durable backend for price alerts.
type Store interface {
	CreateAlert(ctx context.Context, alert *core.PriceAlert) error
	ListAlertsByUser(ctx context.Context, userID string) ([]core.PriceAlert, error)
	GetAlert(ctx context.Context, id string) (*core.PriceAlert, error)
	UpdateAlert(ctx context.Context, alert *core.PriceAlert) error
	DeleteAlert(ctx context.Context, id string) error

	// ListActiveMatching returns active alerts whose bounds match the
	// property's city, type, and price.
	ListActiveMatching(ctx context.Context, property *core.Property) ([]core.PriceAlert, error)
}

// ErrNotFound is returned for unknown alert ids.
var ErrNotFound = fmt.Errorf("alerts: not found")

// NewStore creates the Store matching the storage backend.
func NewStore(store storage.Storage) (Store, error) {
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

// UserGetter resolves alert owners for notification delivery.
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (*core.User, error)
}

// Service validates alert changes and notifies owners about matching
// listings.
type Service struct {
	store Store
	mail  *email.Service
	users UserGetter
}

// NewService wires the store with the email service. mail and users may
// be nil when notifications are disabled.
func NewService(store Store, mail *email.Service, users UserGetter) *Service {
	return &Service{store: store, mail: mail, users: users}
}

// Create validates and stores a new alert for the user.
func (s *Service) Create(ctx context.Context, userID string, alert *core.PriceAlert) error {
	alert.City = strings.TrimSpace(alert.City)
	alert.PropertyType = strings.TrimSpace(alert.PropertyType)

	if alert.MinPriceCents < 0 || alert.MaxPriceCents < 0 {
		return core.NewValidationError("price bounds must not be negative", nil)
	}
	if alert.MaxPriceCents > 0 && alert.MinPriceCents > alert.MaxPriceCents {
		return core.NewValidationError("minPriceCents exceeds maxPriceCents", nil)
	}
	if alert.City == "" && alert.PropertyType == "" && alert.MaxPriceCents == 0 {
		return core.NewValidationError("alert needs at least one of city, propertyType, or maxPriceCents", nil)
	}

	alert.ID = uuid.NewString()
	alert.UserID = userID
	alert.Active = true
	alert.CreatedAt = time.Now().UTC()

	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return core.NewInternalError(fmt.Errorf("failed to store alert: %w", err))
	}
	return nil
}

// List returns the user's alerts.
func (s *Service) List(ctx context.Context, userID string) ([]core.PriceAlert, error) {
	alerts, err := s.store.ListAlertsByUser(ctx, userID)
	if err != nil {
		return nil, core.NewInternalError(fmt.Errorf("failed to list alerts: %w", err))
	}
	return alerts, nil
}

// Update applies bound and active-flag changes to an alert the user owns.
func (s *Service) Update(ctx context.Context, userID string, alert *core.PriceAlert) error {
	existing, err := s.store.GetAlert(ctx, alert.ID)
	if err != nil {
		if err == ErrNotFound {
			return core.NewNotFoundError("alert not found")
		}
		return core.NewInternalError(fmt.Errorf("failed to load alert: %w", err))
	}
	if existing.UserID != userID {
		return core.NewForbiddenError("alert belongs to another user")
	}
	if alert.MaxPriceCents > 0 && alert.MinPriceCents > alert.MaxPriceCents {
		return core.NewValidationError("minPriceCents exceeds maxPriceCents", nil)
	}

	alert.UserID = existing.UserID
	alert.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateAlert(ctx, alert); err != nil {
		return core.NewInternalError(fmt.Errorf("failed to update alert: %w", err))
	}
	return nil
}

// Delete removes an alert the user owns.
func (s *Service) Delete(ctx context.Context, userID, alertID string) error {
	existing, err := s.store.GetAlert(ctx, alertID)
	if err != nil {
		if err == ErrNotFound {
			return core.NewNotFoundError("alert not found")
		}
		return core.NewInternalError(fmt.Errorf("failed to load alert: %w", err))
	}
	if existing.UserID != userID {
		return core.NewForbiddenError("alert belongs to another user")
	}
	if err := s.store.DeleteAlert(ctx, alertID); err != nil {
		return core.NewInternalError(fmt.Errorf("failed to delete alert: %w", err))
	}
	return nil
}

// NotifyMatches emails every user whose active alert matches the new
// listing. Failures are logged; listing creation never depends on
// notification delivery.
func (s *Service) NotifyMatches(ctx context.Context, property *core.Property) int {
	matches, err := s.store.ListActiveMatching(ctx, property)
	if err != nil {
		slog.Warn("failed to match price alerts", "property_id", property.ID, "error", err)
		return 0
	}
	if s.mail == nil || s.users == nil {
		return len(matches)
	}

	notified := 0
	seen := make(map[string]struct{}, len(matches))
	for _, alert := range matches {
		// One email per user even when several of their alerts match.
		if _, dup := seen[alert.UserID]; dup {
			continue
		}
		seen[alert.UserID] = struct{}{}

		user, err := s.users.GetUserByID(ctx, alert.UserID)
		if err != nil {
			slog.Warn("failed to resolve alert owner", "user_id", alert.UserID, "error", err)
			continue
		}

		prefs, err := s.mail.Store().GetPreferences(ctx, user.ID)
		if err == nil && !prefs.PriceAlerts {
			continue
		}

		s.mail.SendPriceAlert(ctx, user, property)
		notified++
	}
	return notified
}
