package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Split is one posted amount against an account, extracted from its owning
// transaction. Read-only.
type Split struct {
	Date        time.Time
	Amount      decimal.Decimal // signed, minor-unit precision
	Currency    string
	Description string // owning transaction description
	Memo        string
	AccountPath string // path of the account the split was posted to
}
