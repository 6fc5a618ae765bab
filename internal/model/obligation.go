package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObligationStatus is the fulfilment state of a filing period. Values match
// the HMRC wire codes.
type ObligationStatus string

const (
	ObligationOpen      ObligationStatus = "O"
	ObligationFulfilled ObligationStatus = "F"
)

// Obligation is an HMRC-defined filing period. The due date is the stable
// handle used to identify an obligation across lookup, computation and
// submission; the period key is an opaque wire detail.
type Obligation struct {
	PeriodKey string
	Status    ObligationStatus
	Start     time.Time
	End       time.Time
	Due       time.Time
	Received  time.Time // zero when the return has not been received
}

// InRange reports whether the obligation's period end falls inside the
// inclusive window.
func (o Obligation) InRange(start, end time.Time) bool {
	return !o.End.Before(start) && !o.End.After(end)
}

// Liability is an amount HMRC records as owed for a tax period.
type Liability struct {
	Start       time.Time
	End         time.Time
	Type        string
	Original    decimal.Decimal
	Outstanding decimal.Decimal
	Due         time.Time // zero when HMRC reports no due date
}

// InRange reports whether the liability's period overlaps the inclusive
// window.
func (l Liability) InRange(start, end time.Time) bool {
	if !l.Start.Before(start) && !l.Start.After(end) {
		return true
	}
	if !l.End.Before(start) && !l.End.After(end) {
		return true
	}
	return l.Start.Before(start) && l.End.After(end)
}

// Payment is an amount HMRC records as received.
type Payment struct {
	Amount   decimal.Decimal
	Received time.Time
}

// InRange reports whether the payment was received inside the inclusive
// window.
func (p Payment) InRange(start, end time.Time) bool {
	return !p.Received.Before(start) && !p.Received.After(end)
}
