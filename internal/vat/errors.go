package vat

import (
	"fmt"
	"time"

	"github.com/vatbridge-dev/vatbridge/internal/model"
)

// ConfigError reports a box-to-account mapping that cannot be used: the
// mapping is missing or names an account the ledger does not have. Fatal,
// never retried.
type ConfigError struct {
	Box         model.Box
	AccountPath string
	Reason      string
}

func (e *ConfigError) Error() string {
	if e.AccountPath == "" {
		return fmt.Sprintf("box %d (%s): %s", int(e.Box), e.Box.FieldName(), e.Reason)
	}
	return fmt.Sprintf("box %d (%s) account %q: %s",
		int(e.Box), e.Box.FieldName(), e.AccountPath, e.Reason)
}

// CurrencyMismatchError reports an aggregation whose contributing splits
// span more than one currency. Fatal for that computation.
type CurrencyMismatchError struct {
	AccountPath string
	Date        time.Time
	Currencies  [2]string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("account %q split dated %s is in %s, expected %s",
		e.AccountPath, e.Date.Format("2006-01-02"), e.Currencies[1], e.Currencies[0])
}
