package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/vatbridge-dev/vatbridge/internal/model"
)

// GnuCashLedger reads a GnuCash book stored as a SQLite database. The book
// is opened read-only; this tool never writes to it.
type GnuCashLedger struct {
	db         *sql.DB
	root       *model.Account
	guidByPath map[string]string
}

// OpenGnuCash opens a GnuCash SQLite book and loads its account tree.
func OpenGnuCash(path string) (*GnuCashLedger, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open gnucash book: %w", err)
	}

	l := &GnuCashLedger{db: db, guidByPath: make(map[string]string)}
	if err := l.loadAccounts(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading accounts from %s: %w", path, err)
	}
	return l, nil
}

// Close releases the underlying database handle.
func (l *GnuCashLedger) Close() error {
	return l.db.Close()
}

type gncAccount struct {
	guid       string
	name       string
	acctType   string
	parentGUID string
	currency   string
}

func (l *GnuCashLedger) loadAccounts() error {
	rows, err := l.db.Query(`
		SELECT a.guid, a.name, a.account_type, COALESCE(a.parent_guid, ''),
		       COALESCE(c.mnemonic, '')
		FROM accounts a
		LEFT JOIN commodities c ON c.guid = a.commodity_guid`)
	if err != nil {
		return fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	byGUID := make(map[string]gncAccount)
	children := make(map[string][]string)
	var rootGUID string
	for rows.Next() {
		var a gncAccount
		if err := rows.Scan(&a.guid, &a.name, &a.acctType, &a.parentGUID, &a.currency); err != nil {
			return fmt.Errorf("scanning account: %w", err)
		}
		// The template root holds scheduled-transaction templates, not books
		// data.
		if a.acctType == "ROOT" {
			if !strings.Contains(strings.ToLower(a.name), "template") {
				rootGUID = a.guid
			}
			continue
		}
		byGUID[a.guid] = a
		children[a.parentGUID] = append(children[a.parentGUID], a.guid)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if rootGUID == "" {
		return fmt.Errorf("book has no root account")
	}

	var build func(parentGUID, parentPath string) []*model.Account
	build = func(parentGUID, parentPath string) []*model.Account {
		var out []*model.Account
		for _, guid := range children[parentGUID] {
			a := byGUID[guid]
			path := a.name
			if parentPath != "" {
				path = parentPath + model.PathSeparator + a.name
			}
			node := &model.Account{
				Name:     a.name,
				Path:     path,
				Type:     gncAccountType(a.acctType),
				Currency: a.currency,
			}
			l.guidByPath[path] = guid
			node.Children = build(guid, path)
			out = append(out, node)
		}
		return out
	}

	l.root = &model.Account{Children: build(rootGUID, "")}
	return nil
}

// AccountTree implements Ledger.
func (l *GnuCashLedger) AccountTree(_ context.Context) (*model.Account, error) {
	return l.root, nil
}

// Splits implements Ledger. Amounts come from the split value fraction
// (value_num / value_denom) in the transaction currency.
func (l *GnuCashLedger) Splits(ctx context.Context, account *model.Account, start, end time.Time) ([]model.Split, error) {
	guid, ok := l.guidByPath[account.Path]
	if !ok {
		return nil, fmt.Errorf("account %q is not in this book", account.Path)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT t.post_date, t.description, COALESCE(s.memo, ''),
		       s.value_num, s.value_denom, COALESCE(c.mnemonic, '')
		FROM splits s
		JOIN transactions t ON t.guid = s.tx_guid
		LEFT JOIN commodities c ON c.guid = t.currency_guid
		WHERE s.account_guid = ?`, guid)
	if err != nil {
		return nil, fmt.Errorf("querying splits for %s: %w", account.Path, err)
	}
	defer rows.Close()

	var out []model.Split
	for rows.Next() {
		var (
			postDate, desc, memo, currency string
			num, denom                     int64
		)
		if err := rows.Scan(&postDate, &desc, &memo, &num, &denom, &currency); err != nil {
			return nil, fmt.Errorf("scanning split: %w", err)
		}
		date, err := parseGncDate(postDate)
		if err != nil {
			return nil, fmt.Errorf("split on %s: %w", account.Path, err)
		}
		if !inRange(date, start, end) {
			continue
		}
		if denom == 0 {
			return nil, fmt.Errorf("split on %s dated %s has zero denominator",
				account.Path, date.Format(dateFormat))
		}
		out = append(out, model.Split{
			Date:        date,
			Amount:      decimal.New(num, 0).Div(decimal.New(denom, 0)),
			Currency:    currency,
			Description: desc,
			Memo:        memo,
			AccountPath: account.Path,
		})
	}
	return out, rows.Err()
}

// gncDateFormats covers the post_date encodings GnuCash has used across
// schema versions.
var gncDateFormats = []string{
	"2006-01-02 15:04:05",
	"20060102150405",
	"2006-01-02",
}

func parseGncDate(s string) (time.Time, error) {
	for _, f := range gncDateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised post date %q", s)
}

func gncAccountType(t string) model.AccountType {
	switch t {
	case "BANK", "CASH":
		return model.AccountTypeBank
	case "ASSET", "RECEIVABLE", "STOCK", "MUTUAL":
		return model.AccountTypeAsset
	case "LIABILITY", "PAYABLE", "CREDIT":
		return model.AccountTypeLiability
	case "INCOME":
		return model.AccountTypeIncome
	case "EXPENSE":
		return model.AccountTypeExpense
	case "EQUITY":
		return model.AccountTypeEquity
	}
	return model.AccountType(strings.ToLower(t))
}
