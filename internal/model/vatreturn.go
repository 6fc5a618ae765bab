package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Box identifies one of the nine figures on a UK VAT return.
type Box int

const (
	Box1 Box = iota + 1 // VAT due on sales
	Box2                // VAT due on acquisitions
	Box3                // total VAT due
	Box4                // VAT reclaimed
	Box5                // net VAT due
	Box6                // sales ex VAT
	Box7                // purchases ex VAT
	Box8                // goods supplied ex VAT
	Box9                // acquisitions ex VAT
)

// Boxes lists all nine boxes in filing order.
var Boxes = []Box{Box1, Box2, Box3, Box4, Box5, Box6, Box7, Box8, Box9}

// FieldName returns the HMRC API field name for the box.
func (b Box) FieldName() string {
	switch b {
	case Box1:
		return "vatDueSales"
	case Box2:
		return "vatDueAcquisitions"
	case Box3:
		return "totalVatDue"
	case Box4:
		return "vatReclaimedCurrPeriod"
	case Box5:
		return "netVatDue"
	case Box6:
		return "totalValueSalesExVAT"
	case Box7:
		return "totalValuePurchasesExVAT"
	case Box8:
		return "totalValueGoodsSuppliedExVAT"
	case Box9:
		return "totalAcquisitionsExVAT"
	}
	return fmt.Sprintf("box%d", int(b))
}

// Description returns the human-readable label for the box.
func (b Box) Description() string {
	switch b {
	case Box1:
		return "VAT due on sales"
	case Box2:
		return "VAT due on acquisitions"
	case Box3:
		return "Total VAT due"
	case Box4:
		return "VAT reclaimed"
	case Box5:
		return "VAT due"
	case Box6:
		return "Sales before VAT"
	case Box7:
		return "Purchases ex. VAT"
	case Box8:
		return "Goods supplied ex. VAT"
	case Box9:
		return "Total acquisitions ex. VAT"
	}
	return fmt.Sprintf("Box %d", int(b))
}

// WholePounds reports whether HMRC requires the box value rounded to whole
// pounds (boxes 6-9); the remaining boxes carry pence.
func (b Box) WholePounds() bool {
	return b >= Box6
}

// Return is a finalised nine-box VAT return for one obligation period.
// Immutable once computed.
type Return struct {
	PeriodKey string
	DueDate   time.Time
	Values    map[Box]decimal.Decimal
	Finalised bool
}

// Value returns the box value, or zero if absent.
func (r Return) Value(b Box) decimal.Decimal {
	if v, ok := r.Values[b]; ok {
		return v
	}
	return decimal.Zero
}

// MarshalJSON emits the HMRC wire shape: box values as bare JSON numbers,
// pence boxes with two decimal places and pounds-only boxes with none.
func (r Return) MarshalJSON() ([]byte, error) {
	body := make(map[string]json.RawMessage, 11)
	key, err := json.Marshal(r.PeriodKey)
	if err != nil {
		return nil, err
	}
	body["periodKey"] = key
	for _, b := range Boxes {
		places := int32(2)
		if b.WholePounds() {
			places = 0
		}
		body[b.FieldName()] = json.RawMessage(r.Value(b).StringFixed(places))
	}
	if r.Finalised {
		body["finalised"] = json.RawMessage("true")
	}
	return json.Marshal(body)
}

// UnmarshalJSON parses the HMRC wire shape back into box values.
func (r *Return) UnmarshalJSON(data []byte) error {
	var raw struct {
		PeriodKey string `json:"periodKey"`
		Finalised bool   `json:"finalised"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var fields map[string]json.Number
	// Second pass for the numeric fields only; periodKey/finalised fail the
	// json.Number decode and are skipped below.
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	fields = make(map[string]json.Number, len(all))
	for k, v := range all {
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			fields[k] = n
		}
	}

	r.PeriodKey = raw.PeriodKey
	r.Finalised = raw.Finalised
	r.Values = make(map[Box]decimal.Decimal, len(Boxes))
	for _, b := range Boxes {
		n, ok := fields[b.FieldName()]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", b.FieldName(), n, err)
		}
		r.Values[b] = d
	}
	return nil
}

// SubmissionAck is the processing acknowledgement returned when HMRC accepts
// a return. The reference identifiers are opaque.
type SubmissionAck struct {
	ProcessingDate   time.Time
	PaymentIndicator string
	FormBundleNumber string
	ChargeRefNumber  string
}
