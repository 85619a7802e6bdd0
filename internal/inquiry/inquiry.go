// Package inquiry handles contact-form submissions and tour requests.
package inquiry

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/email"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// Store is the durable backend for inquiries and tour requests.
type Store interface {
	CreateInquiry(ctx context.Context, inq *core.Inquiry) error
	ListInquiries(ctx context.Context, limit int) ([]core.Inquiry, error)
	CreateTourRequest(ctx context.Context, req *core.TourRequest) error
	ListTourRequests(ctx context.Context, limit int) ([]core.TourRequest, error)
}

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

// PropertyGetter resolves a property for tour confirmations.
type PropertyGetter interface {
	GetProperty(ctx context.Context, id string) (*core.Property, error)
}

// Service validates and stores submissions, then queues receipt emails.
type Service struct {
	store      Store
	mail       *email.Service
	properties PropertyGetter
}

// NewService wires the store with the email service. mail and properties
// may be nil in contexts that only read.
func NewService(store Store, mail *email.Service, properties PropertyGetter) *Service {
	return &Service{store: store, mail: mail, properties: properties}
}

// SubmitInquiry validates and persists a contact-form submission.
func (s *Service) SubmitInquiry(ctx context.Context, inq *core.Inquiry) error {
	inq.Name = strings.TrimSpace(inq.Name)
	inq.Email = strings.TrimSpace(inq.Email)
	inq.Message = strings.TrimSpace(inq.Message)

	if inq.Name == "" {
		return core.NewValidationError("name is required", nil)
	}
	if err := validateEmail(inq.Email); err != nil {
		return err
	}
	if inq.Message == "" {
		return core.NewValidationError("message is required", nil)
	}

	inq.ID = uuid.NewString()
	inq.CreatedAt = time.Now().UTC()

	if err := s.store.CreateInquiry(ctx, inq); err != nil {
		return core.NewInternalError(fmt.Errorf("failed to store inquiry: %w", err))
	}

	if s.mail != nil {
		s.mail.SendInquiryReceipt(ctx, inq)
	}
	return nil
}

// SubmitTourRequest validates and persists a tour request for a listing.
func (s *Service) SubmitTourRequest(ctx context.Context, req *core.TourRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	req.PreferredDate = strings.TrimSpace(req.PreferredDate)

	if req.PropertyID == "" {
		return core.NewValidationError("propertyId is required", nil)
	}
	if req.Name == "" {
		return core.NewValidationError("name is required", nil)
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if req.PreferredDate == "" {
		return core.NewValidationError("preferredDate is required", nil)
	}

	// The listing must exist before a tour can be requested against it.
	var property *core.Property
	if s.properties != nil {
		p, err := s.properties.GetProperty(ctx, req.PropertyID)
		if err != nil {
			return core.NewNotFoundError("property not found")
		}
		property = p
	}

	req.ID = uuid.NewString()
	req.CreatedAt = time.Now().UTC()

	if err := s.store.CreateTourRequest(ctx, req); err != nil {
		return core.NewInternalError(fmt.Errorf("failed to store tour request: %w", err))
	}

	if s.mail != nil {
		s.mail.SendTourConfirmation(ctx, req, property)
	}
	return nil
}

// ListInquiries returns recent submissions, newest first.
func (s *Service) ListInquiries(ctx context.Context, limit int) ([]core.Inquiry, error) {
	return s.store.ListInquiries(ctx, limit)
}

// ListTourRequests returns recent tour requests, newest first.
func (s *Service) ListTourRequests(ctx context.Context, limit int) ([]core.TourRequest, error) {
	return s.store.ListTourRequests(ctx, limit)
}

func validateEmail(addr string) error {
	if addr == "" {
		return core.NewValidationError("email is required", nil)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return core.NewValidationError("email is invalid", err)
	}
	return nil
}
