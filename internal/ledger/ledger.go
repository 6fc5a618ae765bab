package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/vatbridge-dev/vatbridge/internal/model"
)

// Ledger exposes a read-only view of an accounting book: the account tree
// and the splits posted to a single account within a date window. Subtree
// recursion is the caller's concern.
type Ledger interface {
	// AccountTree returns the root of the account hierarchy. The root itself
	// is synthetic (empty path) and carries no splits.
	AccountTree(ctx context.Context) (*model.Account, error)

	// Splits returns the splits posted directly to account with a posting
	// date in [start, end], both ends inclusive.
	Splits(ctx context.Context, account *model.Account, start, end time.Time) ([]model.Split, error)
}

// FindAccount resolves a colon-delimited locator against the root.
func FindAccount(root *model.Account, locator string) (*model.Account, error) {
	acct, ok := root.Find(locator)
	if !ok {
		return nil, fmt.Errorf("can't locate account %q", locator)
	}
	return acct, nil
}

// inRange reports whether d falls in the inclusive window.
func inRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

// Open opens a ledger backend by kind: "csv" expects a directory holding
// accounts.csv and transactions.csv, "gnucash" a GnuCash SQLite book.
func Open(kind, path string) (Ledger, error) {
	switch kind {
	case "csv":
		return OpenCSV(path)
	case "gnucash":
		return OpenGnuCash(path)
	}
	return nil, fmt.Errorf("unknown ledger kind %q", kind)
}
