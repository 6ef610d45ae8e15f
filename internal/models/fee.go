package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Fee is a purchasable registration price tier for one conference.
// ValidFrom and ValidTo are inclusive calendar-day bounds. A nil
// Capacity means unlimited.
type Fee struct {
	bun.BaseModel `bun:"table:fees"`

	FeeID        string            `bun:"fee_id,pk" json:"fee_id"`
	ConferenceID string            `bun:"conference_id,notnull" json:"conference_id"`
	Name         string            `bun:"name,notnull" json:"name"`
	ValidFrom    time.Time         `bun:"valid_from,notnull" json:"valid_from"`
	ValidTo      time.Time         `bun:"valid_to,notnull" json:"valid_to"`
	IsActive     bool              `bun:"is_active,notnull" json:"is_active"`
	PriceNet     float64           `bun:"price_net,notnull" json:"price_net"`
	PriceGross   float64           `bun:"price_gross,notnull" json:"price_gross"`
	Currency     string            `bun:"currency,notnull" json:"currency"`
	Capacity     *int              `bun:"capacity" json:"capacity,omitempty"`
	DisplayOrder int               `bun:"display_order,notnull" json:"display_order"`
	Extra        map[string]string `bun:"extra,type:jsonb" json:"extra,omitempty"`
	CreatedAt    time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

// FeeInput carries the admin-supplied fields for creating a fee.
// DisplayOrder is optional; when nil the fee goes to the end of the list.
type FeeInput struct {
	Name         string            `json:"name"`
	ValidFrom    time.Time         `json:"valid_from"`
	ValidTo      time.Time         `json:"valid_to"`
	IsActive     bool              `json:"is_active"`
	PriceNet     float64           `json:"price_net"`
	PriceGross   float64           `json:"price_gross"`
	Currency     string            `json:"currency"`
	Capacity     *int              `json:"capacity,omitempty"`
	DisplayOrder *int              `json:"display_order,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// FeePatch carries optional admin edits. Nil fields are left untouched.
// The owning conference is never patchable.
type FeePatch struct {
	Name       *string           `json:"name,omitempty"`
	ValidFrom  *time.Time        `json:"valid_from,omitempty"`
	ValidTo    *time.Time        `json:"valid_to,omitempty"`
	IsActive   *bool             `json:"is_active,omitempty"`
	PriceNet   *float64          `json:"price_net,omitempty"`
	PriceGross *float64          `json:"price_gross,omitempty"`
	Currency   *string           `json:"currency,omitempty"`
	Capacity   *int              `json:"capacity,omitempty"`
	ClearCap   bool              `json:"clear_capacity,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// PriceSnapshot is the price captured inside the allocation gate at the
// moment a registration commits to a fee.
type PriceSnapshot struct {
	FeeID      string    `json:"fee_id"`
	PriceGross float64   `json:"price_gross"`
	Currency   string    `json:"currency"`
	CapturedAt time.Time `json:"captured_at"`
}
