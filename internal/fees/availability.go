package fees

import (
	"time"

	"conf-registration/internal/models"
)

// Reason tags why a fee is not purchasable. The zero value means available.
type Reason string

const (
	ReasonInactive        Reason = "inactive"
	ReasonNotAvailableYet Reason = "not_available_yet"
	ReasonExpired         Reason = "expired"
	ReasonSoldOut         Reason = "sold_out"
)

// Verdict is the outcome of an availability evaluation.
type Verdict struct {
	Available bool
	Reason    Reason
}

// Evaluate decides whether a fee is purchasable at the given instant with
// the given sold count. It is pure: same inputs, same verdict.
//
// Reasons are checked in fixed priority order and the first match wins,
// so an inactive fee reports "inactive" even when it is also sold out.
// The validity window is inclusive on both calendar-day bounds.
func Evaluate(fee models.Fee, now time.Time, soldCount int) Verdict {
	switch {
	case !fee.IsActive:
		return Verdict{Reason: ReasonInactive}
	case dayOf(now).Before(dayOf(fee.ValidFrom)):
		return Verdict{Reason: ReasonNotAvailableYet}
	case dayOf(now).After(dayOf(fee.ValidTo)):
		return Verdict{Reason: ReasonExpired}
	case fee.Capacity != nil && soldCount >= *fee.Capacity:
		return Verdict{Reason: ReasonSoldOut}
	default:
		return Verdict{Available: true}
	}
}

// dayOf truncates a timestamp to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
