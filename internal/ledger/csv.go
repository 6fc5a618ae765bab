package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vatbridge-dev/vatbridge/internal/model"
)

// CSVLedger reads a book kept as two CSV files: accounts.csv (one row per
// account) and transactions.csv (one row per split). It is the fixture
// backend for tests and small books.
type CSVLedger struct {
	root   *model.Account
	splits map[string][]model.Split // keyed by account path
}

const (
	acctNumFields = 4
	acctColPath   = 0
	acctColType   = 1
	acctColCcy    = 2
	acctColDesc   = 3

	splitNumFields = 6
	splitColDate   = 0
	splitColPath   = 1
	splitColAmount = 2
	splitColCcy    = 3
	splitColDesc   = 4
	splitColMemo   = 5

	dateFormat = "2006-01-02"
)

// AccountsHeader is the CSV header for accounts.csv.
const AccountsHeader = "path,type,currency,description"

// SplitsHeader is the CSV header for transactions.csv.
const SplitsHeader = "date,account_path,amount,currency,description,memo"

// OpenCSV loads accounts.csv and transactions.csv from dir.
func OpenCSV(dir string) (*CSVLedger, error) {
	af, err := os.Open(filepath.Join(dir, "accounts.csv"))
	if err != nil {
		return nil, fmt.Errorf("opening accounts: %w", err)
	}
	defer af.Close()

	rows, err := ReadAccountRows(af)
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}

	tf, err := os.Open(filepath.Join(dir, "transactions.csv"))
	if err != nil {
		return nil, fmt.Errorf("opening transactions: %w", err)
	}
	defer tf.Close()

	splits, err := ReadSplitRows(tf)
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}

	return NewCSVLedger(rows, splits)
}

// AccountRow is one row in accounts.csv.
type AccountRow struct {
	Path        string
	Type        model.AccountType
	Currency    string
	Description string
}

// NewCSVLedger builds an in-memory ledger from parsed rows. Parent accounts
// missing from the account list are synthesised so that any mentioned path
// resolves.
func NewCSVLedger(rows []AccountRow, splits []model.Split) (*CSVLedger, error) {
	root := &model.Account{}
	nodes := map[string]*model.Account{"": root}

	ensure := func(path string) *model.Account {
		if a, ok := nodes[path]; ok {
			return a
		}
		parts := strings.Split(path, model.PathSeparator)
		cur := root
		prefix := ""
		for _, part := range parts {
			if prefix == "" {
				prefix = part
			} else {
				prefix = prefix + model.PathSeparator + part
			}
			next, ok := nodes[prefix]
			if !ok {
				next = &model.Account{Name: part, Path: prefix}
				cur.Children = append(cur.Children, next)
				nodes[prefix] = next
			}
			cur = next
		}
		return cur
	}

	for _, row := range rows {
		a := ensure(row.Path)
		a.Type = row.Type
		a.Currency = row.Currency
	}

	byPath := make(map[string][]model.Split)
	for _, s := range splits {
		if _, ok := nodes[s.AccountPath]; !ok {
			return nil, fmt.Errorf("split dated %s references unknown account %q",
				s.Date.Format(dateFormat), s.AccountPath)
		}
		byPath[s.AccountPath] = append(byPath[s.AccountPath], s)
	}
	for _, list := range byPath {
		sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	}

	return &CSVLedger{root: root, splits: byPath}, nil
}

// AccountTree implements Ledger.
func (l *CSVLedger) AccountTree(_ context.Context) (*model.Account, error) {
	return l.root, nil
}

// Splits implements Ledger.
func (l *CSVLedger) Splits(_ context.Context, account *model.Account, start, end time.Time) ([]model.Split, error) {
	var out []model.Split
	for _, s := range l.splits[account.Path] {
		if inRange(s.Date, start, end) {
			out = append(out, s)
		}
	}
	return out, nil
}

// ReadAccountRows reads accounts.csv.
func ReadAccountRows(r io.Reader) ([]AccountRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = acctNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var rows []AccountRow
	for i, rec := range records[1:] {
		row, err := UnmarshalAccountRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UnmarshalAccountRow converts a CSV record to an AccountRow.
func UnmarshalAccountRow(record []string) (AccountRow, error) {
	if len(record) != acctNumFields {
		return AccountRow{}, fmt.Errorf("expected %d fields, got %d", acctNumFields, len(record))
	}
	if record[acctColPath] == "" {
		return AccountRow{}, fmt.Errorf("empty account path")
	}
	return AccountRow{
		Path:        record[acctColPath],
		Type:        model.AccountType(record[acctColType]),
		Currency:    record[acctColCcy],
		Description: record[acctColDesc],
	}, nil
}

// ReadSplitRows reads transactions.csv.
func ReadSplitRows(r io.Reader) ([]model.Split, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = splitNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var splits []model.Split
	for i, rec := range records[1:] {
		s, err := UnmarshalSplitRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		splits = append(splits, s)
	}
	return splits, nil
}

// UnmarshalSplitRow converts a CSV record to a Split.
func UnmarshalSplitRow(record []string) (model.Split, error) {
	if len(record) != splitNumFields {
		return model.Split{}, fmt.Errorf("expected %d fields, got %d", splitNumFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[splitColDate])
	if err != nil {
		return model.Split{}, fmt.Errorf("parsing date %q: %w", record[splitColDate], err)
	}

	amount, err := decimal.NewFromString(record[splitColAmount])
	if err != nil {
		return model.Split{}, fmt.Errorf("parsing amount %q: %w", record[splitColAmount], err)
	}

	return model.Split{
		Date:        date,
		AccountPath: record[splitColPath],
		Amount:      amount,
		Currency:    record[splitColCcy],
		Description: record[splitColDesc],
		Memo:        record[splitColMemo],
	}, nil
}

// WriteAccountRows writes accounts.csv. Used by test fixtures and the init
// scaffolding.
func WriteAccountRows(w io.Writer, rows []AccountRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(AccountsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		rec := make([]string, acctNumFields)
		rec[acctColPath] = row.Path
		rec[acctColType] = string(row.Type)
		rec[acctColCcy] = row.Currency
		rec[acctColDesc] = row.Description
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// WriteSplitRows writes transactions.csv.
func WriteSplitRows(w io.Writer, splits []model.Split) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(SplitsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, s := range splits {
		rec := make([]string, splitNumFields)
		rec[splitColDate] = s.Date.Format(dateFormat)
		rec[splitColPath] = s.AccountPath
		rec[splitColAmount] = s.Amount.String()
		rec[splitColCcy] = s.Currency
		rec[splitColDesc] = s.Description
		rec[splitColMemo] = s.Memo
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}
