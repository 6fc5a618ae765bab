package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatbridge-dev/vatbridge/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const accountsCSV = `path,type,currency,description
VAT:Output:Sales,liability,GBP,Output VAT on sales
VAT:Output:EU,liability,GBP,Output VAT on EU acquisitions
Income:Sales,income,GBP,
`

const transactionsCSV = `date,account_path,amount,currency,description,memo
2025-02-03,VAT:Output:Sales,1000.60,GBP,Invoice 41,
2025-03-14,VAT:Output:Sales,914.00,GBP,Invoice 42,
2025-02-20,VAT:Output:EU,40.00,GBP,EU acquisition,reverse charge
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts.csv"), []byte(accountsCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactions.csv"), []byte(transactionsCSV), 0o644))
	return dir
}

func TestOpenCSV(t *testing.T) {
	l, err := OpenCSV(writeFixture(t))
	require.NoError(t, err)

	root, err := l.AccountTree(context.Background())
	require.NoError(t, err)

	// Intermediate accounts are synthesised from paths.
	output, ok := root.Find("VAT:Output")
	require.True(t, ok)
	assert.Len(t, output.Children, 2)

	sales, ok := root.Find("VAT:Output:Sales")
	require.True(t, ok)
	assert.Equal(t, model.AccountTypeLiability, sales.Type)
	assert.Equal(t, "GBP", sales.Currency)
}

func TestCSVLedger_SplitsFilterByDate(t *testing.T) {
	l, err := OpenCSV(writeFixture(t))
	require.NoError(t, err)

	root, err := l.AccountTree(context.Background())
	require.NoError(t, err)
	sales, ok := root.Find("VAT:Output:Sales")
	require.True(t, ok)

	splits, err := l.Splits(context.Background(), sales,
		date(2025, time.February, 1), date(2025, time.February, 28))
	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.True(t, splits[0].Amount.Equal(dec("1000.60")))
	assert.Equal(t, "Invoice 41", splits[0].Description)
}

func TestCSVLedger_SplitsAreDirectOnly(t *testing.T) {
	l, err := OpenCSV(writeFixture(t))
	require.NoError(t, err)

	root, err := l.AccountTree(context.Background())
	require.NoError(t, err)
	output, ok := root.Find("VAT:Output")
	require.True(t, ok)

	// The parent account has no direct postings; subtree recursion is the
	// aggregator's job.
	splits, err := l.Splits(context.Background(), output,
		date(2025, time.January, 1), date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Empty(t, splits)
}

func TestNewCSVLedger_UnknownAccountSplit(t *testing.T) {
	rows := []AccountRow{{Path: "Income:Sales", Type: model.AccountTypeIncome, Currency: "GBP"}}
	splits := []model.Split{{
		Date:        date(2025, time.January, 1),
		AccountPath: "Expenses:Missing",
		Amount:      dec("5.00"),
	}}
	_, err := NewCSVLedger(rows, splits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expenses:Missing")
}

func TestSplitRowRoundTrip(t *testing.T) {
	in := []model.Split{
		{
			Date:        date(2025, time.February, 3),
			AccountPath: "VAT:Output:Sales",
			Amount:      dec("1000.60"),
			Currency:    "GBP",
			Description: "Invoice 41",
			Memo:        "q1",
		},
	}

	var sb strings.Builder
	require.NoError(t, WriteSplitRows(&sb, in))

	got, err := ReadSplitRows(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(in[0].Amount))
	assert.Equal(t, in[0].AccountPath, got[0].AccountPath)
	assert.Equal(t, in[0].Memo, got[0].Memo)
}

func TestUnmarshalSplitRow_BadAmount(t *testing.T) {
	_, err := UnmarshalSplitRow([]string{"2025-01-01", "A", "not-a-number", "GBP", "", ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}
