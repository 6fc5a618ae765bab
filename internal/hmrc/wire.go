package hmrc

// Wire shapes for the HMRC VAT resources: dates travel as YYYY-MM-DD
// strings and amounts as JSON numbers, converted here to the model's
// time.Time and decimal types.

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vatbridge-dev/vatbridge/internal/model"
)

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return t, nil
}

func parseOptionalDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseDate(field, s)
}

type obligationJSON struct {
	PeriodKey string `json:"periodKey"`
	Status    string `json:"status"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Due       string `json:"due"`
	Received  string `json:"received"`
}

func (o obligationJSON) toModel() (model.Obligation, error) {
	start, err := parseDate("obligation start", o.Start)
	if err != nil {
		return model.Obligation{}, err
	}
	end, err := parseDate("obligation end", o.End)
	if err != nil {
		return model.Obligation{}, err
	}
	due, err := parseOptionalDate("obligation due", o.Due)
	if err != nil {
		return model.Obligation{}, err
	}
	received, err := parseOptionalDate("obligation received", o.Received)
	if err != nil {
		return model.Obligation{}, err
	}
	return model.Obligation{
		PeriodKey: o.PeriodKey,
		Status:    model.ObligationStatus(o.Status),
		Start:     start,
		End:       end,
		Due:       due,
		Received:  received,
	}, nil
}

type liabilityJSON struct {
	TaxPeriod struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"taxPeriod"`
	Type        string      `json:"type"`
	Original    json.Number `json:"originalAmount"`
	Outstanding json.Number `json:"outstandingAmount"`
	Due         string      `json:"due"`
}

func (l liabilityJSON) toModel() (model.Liability, error) {
	start, err := parseDate("liability period from", l.TaxPeriod.From)
	if err != nil {
		return model.Liability{}, err
	}
	end, err := parseDate("liability period to", l.TaxPeriod.To)
	if err != nil {
		return model.Liability{}, err
	}
	due, err := parseOptionalDate("liability due", l.Due)
	if err != nil {
		return model.Liability{}, err
	}
	original, err := parseAmount("originalAmount", l.Original)
	if err != nil {
		return model.Liability{}, err
	}
	outstanding, err := parseAmount("outstandingAmount", l.Outstanding)
	if err != nil {
		return model.Liability{}, err
	}
	return model.Liability{
		Start:       start,
		End:         end,
		Type:        l.Type,
		Original:    original,
		Outstanding: outstanding,
		Due:         due,
	}, nil
}

type paymentJSON struct {
	Amount   json.Number `json:"amount"`
	Received string      `json:"received"`
}

func (p paymentJSON) toModel() (model.Payment, error) {
	amount, err := parseAmount("payment amount", p.Amount)
	if err != nil {
		return model.Payment{}, err
	}
	received, err := parseDate("payment received", p.Received)
	if err != nil {
		return model.Payment{}, err
	}
	return model.Payment{Amount: amount, Received: received}, nil
}

func parseAmount(field string, n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s %q: %w", field, n, err)
	}
	return d, nil
}

type ackJSON struct {
	ProcessingDate   string `json:"processingDate"`
	PaymentIndicator string `json:"paymentIndicator"`
	FormBundleNumber string `json:"formBundleNumber"`
	ChargeRefNumber  string `json:"chargeRefNumber"`
}

func (a ackJSON) toModel() model.SubmissionAck {
	ack := model.SubmissionAck{
		PaymentIndicator: a.PaymentIndicator,
		FormBundleNumber: a.FormBundleNumber,
		ChargeRefNumber:  a.ChargeRefNumber,
	}
	// HMRC stamps processing time as RFC3339 with fractional seconds.
	if t, err := time.Parse(time.RFC3339, a.ProcessingDate); err == nil {
		ack.ProcessingDate = t
	}
	return ack
}
