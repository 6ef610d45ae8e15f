package models

// FeeOption is the public projection of a fee shown on the registration
// form. It is read-only; the allocation gate never trusts it.
type FeeOption struct {
	FeeID          string  `json:"fee_id"`
	Name           string  `json:"name"`
	PriceGross     float64 `json:"price_gross"`
	Currency       string  `json:"currency"`
	IsAvailable    bool    `json:"is_available"`
	DisabledReason string  `json:"disabled_reason,omitempty"`
	Capacity       *int    `json:"capacity,omitempty"`
	SoldCount      *int    `json:"sold_count,omitempty"`
}

// FeeOptionList is the response for the public fee listing. Currency is
// always populated so the form can render a label even with zero fees.
type FeeOptionList struct {
	Fees     []FeeOption `json:"fees"`
	Currency string      `json:"currency"`
}

// FeeAdminView is the admin projection: the full fee definition plus
// derived sales state.
type FeeAdminView struct {
	Fee
	SoldCount int  `json:"sold_count"`
	IsSoldOut bool `json:"is_sold_out"`
}
