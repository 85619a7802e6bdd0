package core

import "time"

// User roles
const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// Property listing statuses
const (
	StatusActive  = "active"
	StatusPending = "pending"
	StatusSold    = "sold"
)

// User is the public view of an account. Password hashes never leave
// the auth store.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Property is a single listing. Price is stored and compared in cents.
type Property struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zipCode"`
	PriceCents   int64     `json:"priceCents"`
	PropertyType string    `json:"propertyType"`
	Status       string    `json:"status"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	SquareFeet   int       `json:"squareFeet"`
	YearBuilt    int       `json:"yearBuilt"`
	Featured     bool      `json:"featured"`
	AgentID      string    `json:"agentId"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Agent is a listing agent profile.
type Agent struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Title     string    `json:"title"`
	Bio       string    `json:"bio,omitempty"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Inquiry is a contact-form submission about a property or the agency.
type Inquiry struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"propertyId,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TourRequest is a request to tour a specific property.
type TourRequest struct {
	ID            string    `json:"id"`
	PropertyID    string    `json:"propertyId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	PreferredDate string    `json:"preferredDate"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PriceAlert notifies a user when listings matching its bounds appear.
type PriceAlert struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	City          string    `json:"city,omitempty"`
	PropertyType  string    `json:"propertyType,omitempty"`
	MinPriceCents int64     `json:"minPriceCents"`
	MaxPriceCents int64     `json:"maxPriceCents"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Email notification delivery statuses. Queued and sent are set by the
// sender; delivered, bounced, and failed come from provider webhooks.
const (
	EmailStatusQueued    = "queued"
	EmailStatusSent      = "sent"
	EmailStatusDelivered = "delivered"
	EmailStatusBounced   = "bounced"
	EmailStatusFailed    = "failed"
)

// EmailNotification is the stored record of one transactional email.
type EmailNotification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId,omitempty"`
	Recipient  string    `json:"recipient"`
	Template   string    `json:"template"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	ProviderID string    `json:"providerId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EmailPreferences holds a user's opt-in flags.
type EmailPreferences struct {
	UserID           string `json:"userId"`
	Marketing        bool   `json:"marketing"`
	PriceAlerts      bool   `json:"priceAlerts"`
	TourConfirmation bool   `json:"tourConfirmation"`
}
