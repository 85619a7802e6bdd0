package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// Template names recorded with each notification.
const (
	TemplateWelcome          = "welcome"
	TemplateInquiryReceipt   = "inquiry_receipt"
	TemplateTourConfirmation = "tour_confirmation"
	TemplatePriceAlert       = "price_alert"
)

// Service composes transactional messages, delivers them through a
// Sender, and records the outcome through the async Recorder. Delivery
// failures are recorded and logged but never fail the triggering request.
type Service struct {
	sender   Sender
	recorder *Recorder
	store    NotificationStore
	siteName string
}

// NewService wires a sender and store together.
func NewService(sender Sender, store NotificationStore, recorder *Recorder, siteName string) *Service {
	if siteName == "" {
		siteName = "2020 Realtors"
	}
	return &Service{
		sender:   sender,
		recorder: recorder,
		store:    store,
		siteName: siteName,
	}
}

// Store exposes the notification store for read endpoints and webhooks.
func (s *Service) Store() NotificationStore {
	return s.store
}

// SendWelcome greets a newly registered user.
func (s *Service) SendWelcome(ctx context.Context, user *core.User) {
	msg := &Message{
		To:       user.Email,
		ToName:   user.FirstName + " " + user.LastName,
		Subject:  fmt.Sprintf("Welcome to %s", s.siteName),
		Template: TemplateWelcome,
		UserID:   user.ID,
		Text: fmt.Sprintf(
			"Hi %s,\n\nWelcome to %s. Your account is ready.\n"+
				"Save favorite listings, set price alerts, and request tours any time.\n\n"+
				"The %s team\n",
			user.FirstName, s.siteName, s.siteName),
	}
	s.dispatch(ctx, msg)
}

// SendInquiryReceipt confirms a contact-form submission.
func (s *Service) SendInquiryReceipt(ctx context.Context, inq *core.Inquiry) {
	msg := &Message{
		To:       inq.Email,
		ToName:   inq.Name,
		Subject:  "We received your inquiry",
		Template: TemplateInquiryReceipt,
		Text: fmt.Sprintf(
			"Hi %s,\n\nThanks for reaching out. An agent will follow up within one business day.\n\n"+
				"Your message:\n%s\n\nThe %s team\n",
			inq.Name, inq.Message, s.siteName),
	}
	s.dispatch(ctx, msg)
}

// SendTourConfirmation confirms a tour request.
func (s *Service) SendTourConfirmation(ctx context.Context, req *core.TourRequest, property *core.Property) {
	address := req.PropertyID
	if property != nil {
		address = fmt.Sprintf("%s, %s", property.Address, property.City)
	}
	msg := &Message{
		To:       req.Email,
		ToName:   req.Name,
		Subject:  "Your tour request is in",
		Template: TemplateTourConfirmation,
		Text: fmt.Sprintf(
			"Hi %s,\n\nWe received your tour request for %s on %s.\n"+
				"An agent will confirm the exact time shortly.\n\nThe %s team\n",
			req.Name, address, req.PreferredDate, s.siteName),
	}
	s.dispatch(ctx, msg)
}

// SendPriceAlert notifies a user about a listing matching one of their alerts.
func (s *Service) SendPriceAlert(ctx context.Context, user *core.User, property *core.Property) {
	msg := &Message{
		To:       user.Email,
		ToName:   user.FirstName + " " + user.LastName,
		Subject:  fmt.Sprintf("New listing match: %s", property.Title),
		Template: TemplatePriceAlert,
		UserID:   user.ID,
		Text: fmt.Sprintf(
			"Hi %s,\n\nA new listing matches your price alert:\n\n"+
				"%s\n%s, %s\n$%.2f\n\nThe %s team\n",
			user.FirstName, property.Title, property.Address, property.City,
			float64(property.PriceCents)/100, s.siteName),
	}
	s.dispatch(ctx, msg)
}

// dispatch sends the message and queues a notification record with the
// resulting status. The provider id ties the record to later webhook
// status updates.
func (s *Service) dispatch(ctx context.Context, msg *Message) {
	record := &core.EmailNotification{
		ID:        uuid.NewString(),
		UserID:    msg.UserID,
		Recipient: msg.To,
		Template:  msg.Template,
		Subject:   msg.Subject,
		Status:    core.EmailStatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	providerID, err := s.sender.Send(ctx, msg)
	if err != nil {
		record.Status = core.EmailStatusFailed
		slog.Warn("email send failed",
			"template", msg.Template,
			"to", msg.To,
			"error", err,
		)
	} else {
		record.Status = core.EmailStatusSent
		record.ProviderID = providerID
	}
	record.UpdatedAt = time.Now().UTC()

	if s.recorder != nil {
		s.recorder.Record(record)
	}
}
