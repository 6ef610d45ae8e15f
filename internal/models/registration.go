package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RegistrationConfirmed = "confirmed"
	RegistrationCancelled = "cancelled"
)

// Registration is the ledger row linking an attendee to the fee they
// committed to. The sold count of a fee is always derived from these
// rows, never kept as a separate counter.
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	RegistrationID      string    `bun:"registration_id,pk" json:"registration_id"`
	ConferenceID        string    `bun:"conference_id,notnull" json:"conference_id"`
	FeeID               string    `bun:"fee_id,notnull" json:"fee_id"`
	AttendeeName        string    `bun:"attendee_name,notnull" json:"attendee_name"`
	AttendeeEmail       string    `bun:"attendee_email,notnull" json:"attendee_email"`
	Status              string    `bun:"status,notnull" json:"status"`
	PriceAtRegistration float64   `bun:"price_at_registration,notnull" json:"price_at_registration"`
	Currency            string    `bun:"currency,notnull" json:"currency"`
	ConfirmationQR      []byte    `bun:"confirmation_qr" json:"-"`
	CreatedAt           time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// RegistrationRequest is the public payload for registering to a conference.
type RegistrationRequest struct {
	FeeID         string `json:"fee_id"`
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
}

// ConfirmationCheck is the outcome of verifying a confirmation payload
// at the door. Valid means the payload matched a confirmed ledger row.
type ConfirmationCheck struct {
	RegistrationID string `json:"registration_id"`
	AttendeeName   string `json:"attendee_name"`
	Status         string `json:"status"`
	Valid          bool   `json:"valid"`
}

// RegistrationResponse is returned once a registration is confirmed.
type RegistrationResponse struct {
	RegistrationID string        `json:"registration_id"`
	ConferenceID   string        `json:"conference_id"`
	Price          PriceSnapshot `json:"price"`
}
