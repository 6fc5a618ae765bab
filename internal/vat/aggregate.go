package vat

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vatbridge-dev/vatbridge/internal/ledger"
	"github.com/vatbridge-dev/vatbridge/internal/model"
)

// SubtreeSum aggregates account and every descendant over the inclusive
// window [start, end]. It returns the signed total and the full list of
// contributing splits, each tagged with its owning account path, sorted by
// date, account path, then memo so repeated runs over the same book compare
// equal.
//
// Relationships between boxes ("box 3 = box 1 + box 2") are encoded by how
// the operator nests accounts; this function knows nothing about boxes, it
// only sums a subtree.
func SubtreeSum(ctx context.Context, l ledger.Ledger, account *model.Account, start, end time.Time) (decimal.Decimal, []model.Split, error) {
	total := decimal.Zero
	var contributing []model.Split
	currency := ""

	var walk func(a *model.Account) error
	walk = func(a *model.Account) error {
		splits, err := l.Splits(ctx, a, start, end)
		if err != nil {
			return err
		}
		for _, s := range splits {
			if s.Currency != "" {
				if currency == "" {
					currency = s.Currency
				} else if s.Currency != currency {
					return &CurrencyMismatchError{
						AccountPath: a.Path,
						Date:        s.Date,
						Currencies:  [2]string{currency, s.Currency},
					}
				}
			}
			if s.AccountPath == "" {
				s.AccountPath = a.Path
			}
			total = total.Add(s.Amount)
			contributing = append(contributing, s)
		}
		for _, ch := range a.Children {
			if err := walk(ch); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(account); err != nil {
		return decimal.Zero, nil, err
	}

	sort.Slice(contributing, func(i, j int) bool {
		a, b := contributing[i], contributing[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.AccountPath != b.AccountPath {
			return a.AccountPath < b.AccountPath
		}
		return a.Memo < b.Memo
	})

	return total, contributing, nil
}
