package vat

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vatbridge-dev/vatbridge/internal/ledger"
	"github.com/vatbridge-dev/vatbridge/internal/model"
)

// BoxMapping associates one return box with a ledger account subtree.
// Negate flips the sign of every contributing split, the way GnuCash books
// carry income and liability balances as credits.
type BoxMapping struct {
	Box     model.Box
	Account string
	Negate  bool
}

// BoxResult is one computed box: its rounded total and, in detail mode, the
// contributing splits.
type BoxResult struct {
	Total  decimal.Decimal
	Splits []model.Split
}

// Computation is the nine computed boxes for one period, keyed back to the
// obligation's due date. Produced fresh on every call, never cached.
type Computation struct {
	Start   time.Time
	End     time.Time
	DueDate time.Time
	Boxes   map[model.Box]BoxResult
}

// Mapper derives the nine return figures from a ledger via per-box subtree
// sums.
type Mapper struct {
	ledger   ledger.Ledger
	mappings map[model.Box]BoxMapping
}

// NewMapper validates that every one of the nine boxes is mapped and
// returns a Mapper. A missing box is a configuration fault.
func NewMapper(l ledger.Ledger, mappings []BoxMapping) (*Mapper, error) {
	byBox := make(map[model.Box]BoxMapping, len(mappings))
	for _, m := range mappings {
		byBox[m.Box] = m
	}
	for _, b := range model.Boxes {
		m, ok := byBox[b]
		if !ok || m.Account == "" {
			return nil, &ConfigError{Box: b, Reason: "no account mapped"}
		}
	}
	return &Mapper{ledger: l, mappings: byBox}, nil
}

// ComputeReturn computes all nine boxes for the inclusive window
// [start, end]. With detail false only totals are populated; with detail
// true each box also carries its contributing splits.
//
// Rounding follows the HMRC filing rules: boxes 1-5 to two decimal places,
// boxes 6-9 to whole pounds, and box 5 reported as an absolute value (the
// refund/payment direction is carried by boxes 3 and 4).
func (m *Mapper) ComputeReturn(ctx context.Context, start, end, dueDate time.Time, detail bool) (*Computation, error) {
	root, err := m.ledger.AccountTree(ctx)
	if err != nil {
		return nil, err
	}

	comp := &Computation{
		Start:   start,
		End:     end,
		DueDate: dueDate,
		Boxes:   make(map[model.Box]BoxResult, len(model.Boxes)),
	}

	for _, b := range model.Boxes {
		mapping := m.mappings[b]
		acct, ok := root.Find(mapping.Account)
		if !ok {
			return nil, &ConfigError{Box: b, AccountPath: mapping.Account, Reason: "account not found in ledger"}
		}

		total, splits, err := SubtreeSum(ctx, m.ledger, acct, start, end)
		if err != nil {
			return nil, err
		}

		if mapping.Negate {
			total = total.Neg()
			for i := range splits {
				splits[i].Amount = splits[i].Amount.Neg()
			}
		}

		if b.WholePounds() {
			total = total.Round(0)
		} else {
			total = total.Round(2)
		}
		if b == model.Box5 {
			total = total.Abs()
		}

		res := BoxResult{Total: total}
		if detail {
			res.Splits = splits
		}
		comp.Boxes[b] = res
	}

	return comp, nil
}

// Total returns the computed total for a box, or zero if absent.
func (c *Computation) Total(b model.Box) decimal.Decimal {
	if r, ok := c.Boxes[b]; ok {
		return r.Total
	}
	return decimal.Zero
}

// Return assembles a finalised wire return for the given period key.
func (c *Computation) Return(periodKey string) model.Return {
	values := make(map[model.Box]decimal.Decimal, len(c.Boxes))
	for b, r := range c.Boxes {
		values[b] = r.Total
	}
	return model.Return{
		PeriodKey: periodKey,
		DueDate:   c.DueDate,
		Values:    values,
		Finalised: true,
	}
}
