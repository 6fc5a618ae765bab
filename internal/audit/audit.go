// Package audit keeps an append-only record of accepted VAT filings. A row
// is written only after HMRC acknowledges a submission, so the log's
// presence or absence distinguishes a filed return from a failed attempt.
package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one accepted filing.
type Entry struct {
	Timestamp        time.Time
	VRN              string
	DueDate          time.Time
	PeriodKey        string
	NetVATDue        decimal.Decimal
	FormBundleNumber string
	ChargeRefNumber  string
}

// Header is the CSV header for submissions.csv.
const Header = "timestamp,vrn,due_date,period_key,net_vat_due,form_bundle,charge_ref"

const (
	numFields     = 7
	logFile       = "submissions.csv"
	colTimestamp  = 0
	colVRN        = 1
	colDueDate    = 2
	colPeriodKey  = 3
	colNetVATDue  = 4
	colFormBundle = 5
	colChargeRef  = 6
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colVRN] = e.VRN
	row[colDueDate] = e.DueDate.Format("2006-01-02")
	row[colPeriodKey] = e.PeriodKey
	row[colNetVATDue] = e.NetVATDue.StringFixed(2)
	row[colFormBundle] = e.FormBundleNumber
	row[colChargeRef] = e.ChargeRefNumber
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	due, err := time.Parse("2006-01-02", record[colDueDate])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing due date %q: %w", record[colDueDate], err)
	}
	net, err := decimal.NewFromString(record[colNetVATDue])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing net VAT due %q: %w", record[colNetVATDue], err)
	}

	return Entry{
		Timestamp:        ts,
		VRN:              record[colVRN],
		DueDate:          due,
		PeriodKey:        record[colPeriodKey],
		NetVATDue:        net,
		FormBundleNumber: record[colFormBundle],
		ChargeRefNumber:  record[colChargeRef],
	}, nil
}

// Append writes entries to <dir>/submissions.csv, creating the file and
// header if needed.
func Append(dir string, entries []Entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating audit dir: %w", err)
	}

	path := filepath.Join(dir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening submission log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	return cw.Error()
}

// Read returns all entries from <dir>/submissions.csv, or nil if the file
// does not exist.
func Read(dir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dir, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening submission log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading submission log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
