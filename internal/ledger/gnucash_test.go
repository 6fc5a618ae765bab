package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatbridge-dev/vatbridge/internal/model"
)

// writeBook creates a minimal GnuCash SQLite book with a root, a template
// root, and a small VAT account hierarchy.
func writeBook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.gnucash")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE commodities (guid TEXT PRIMARY KEY, mnemonic TEXT)`,
		`CREATE TABLE accounts (
			guid TEXT PRIMARY KEY, name TEXT, account_type TEXT,
			parent_guid TEXT, commodity_guid TEXT)`,
		`CREATE TABLE transactions (
			guid TEXT PRIMARY KEY, currency_guid TEXT,
			post_date TEXT, description TEXT)`,
		`CREATE TABLE splits (
			guid TEXT PRIMARY KEY, tx_guid TEXT, account_guid TEXT,
			memo TEXT, value_num INTEGER, value_denom INTEGER)`,

		`INSERT INTO commodities VALUES ('gbp', 'GBP')`,

		`INSERT INTO accounts VALUES ('root', 'Root Account', 'ROOT', NULL, NULL)`,
		`INSERT INTO accounts VALUES ('troot', 'Template Root', 'ROOT', NULL, NULL)`,
		`INSERT INTO accounts VALUES ('vat', 'VAT', 'LIABILITY', 'root', 'gbp')`,
		`INSERT INTO accounts VALUES ('out', 'Output', 'LIABILITY', 'vat', 'gbp')`,
		`INSERT INTO accounts VALUES ('sales', 'Sales', 'LIABILITY', 'out', 'gbp')`,
		`INSERT INTO accounts VALUES ('inc', 'Income', 'INCOME', 'root', 'gbp')`,

		`INSERT INTO transactions VALUES ('t1', 'gbp', '2025-02-03 10:59:00', 'Invoice 41')`,
		`INSERT INTO transactions VALUES ('t2', 'gbp', '20250314105900', 'Invoice 42')`,
		`INSERT INTO transactions VALUES ('t3', 'gbp', '2025-06-01 00:00:00', 'Next quarter')`,

		`INSERT INTO splits VALUES ('s1', 't1', 'sales', '', 100060, 100)`,
		`INSERT INTO splits VALUES ('s2', 't2', 'sales', 'adj', 91400, 100)`,
		`INSERT INTO splits VALUES ('s3', 't3', 'sales', '', 500, 100)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
	return path
}

func TestOpenGnuCash_AccountTree(t *testing.T) {
	l, err := OpenGnuCash(writeBook(t))
	require.NoError(t, err)
	defer l.Close()

	root, err := l.AccountTree(context.Background())
	require.NoError(t, err)

	sales, ok := root.Find("VAT:Output:Sales")
	require.True(t, ok)
	assert.Equal(t, model.AccountTypeLiability, sales.Type)
	assert.Equal(t, "GBP", sales.Currency)
	assert.Equal(t, "VAT:Output:Sales", sales.Path)

	// The template root and anything under it must not appear in the tree.
	_, ok = root.Find("Template Root")
	assert.False(t, ok)
}

func TestGnuCashLedger_Splits(t *testing.T) {
	l, err := OpenGnuCash(writeBook(t))
	require.NoError(t, err)
	defer l.Close()

	root, err := l.AccountTree(context.Background())
	require.NoError(t, err)
	sales, ok := root.Find("VAT:Output:Sales")
	require.True(t, ok)

	splits, err := l.Splits(context.Background(), sales,
		date(2025, time.January, 1), date(2025, time.March, 31))
	require.NoError(t, err)
	require.Len(t, splits, 2)

	total := splits[0].Amount.Add(splits[1].Amount)
	assert.True(t, total.Equal(dec("1914.60")), "total = %s", total)
	for _, s := range splits {
		assert.Equal(t, "GBP", s.Currency)
		assert.Equal(t, "VAT:Output:Sales", s.AccountPath)
	}
}

func TestGnuCashLedger_SplitsOutsideRange(t *testing.T) {
	l, err := OpenGnuCash(writeBook(t))
	require.NoError(t, err)
	defer l.Close()

	root, err := l.AccountTree(context.Background())
	require.NoError(t, err)
	sales, ok := root.Find("VAT:Output:Sales")
	require.True(t, ok)

	splits, err := l.Splits(context.Background(), sales,
		date(2025, time.April, 1), date(2025, time.May, 31))
	require.NoError(t, err)
	assert.Empty(t, splits)
}

func TestGnuCashLedger_UnknownAccount(t *testing.T) {
	l, err := OpenGnuCash(writeBook(t))
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Splits(context.Background(),
		&model.Account{Path: "Not:A:Real:Account"},
		date(2025, time.January, 1), date(2025, time.March, 31))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not:A:Real:Account")
}

func TestParseGncDate(t *testing.T) {
	for _, in := range []string{"2025-02-03 10:59:00", "20250203105900", "2025-02-03"} {
		got, err := parseGncDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, date(2025, time.February, 3), got, in)
	}

	_, err := parseGncDate("03/02/2025")
	require.Error(t, err)
}
