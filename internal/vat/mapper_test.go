package vat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatbridge-dev/vatbridge/internal/ledger"
	"github.com/vatbridge-dev/vatbridge/internal/model"
)

func quarterLedger(t *testing.T) *ledger.CSVLedger {
	t.Helper()
	rows := []ledger.AccountRow{
		{Path: "VAT:Output:Sales", Type: model.AccountTypeLiability, Currency: "GBP"},
		{Path: "VAT:Output:EU", Type: model.AccountTypeLiability, Currency: "GBP"},
		{Path: "VAT:Input", Type: model.AccountTypeAsset, Currency: "GBP"},
		{Path: "Income:Sales", Type: model.AccountTypeIncome, Currency: "GBP"},
		{Path: "Expenses:Purchases", Type: model.AccountTypeExpense, Currency: "GBP"},
		{Path: "Income:Sales:EU:Goods", Type: model.AccountTypeIncome, Currency: "GBP"},
		{Path: "Expenses:Purchases:EU", Type: model.AccountTypeExpense, Currency: "GBP"},
	}
	splits := []model.Split{
		split(2025, time.February, 3, "VAT:Output:Sales", "1000.60"),
		split(2025, time.March, 14, "VAT:Output:Sales", "914.00"),
		split(2025, time.February, 20, "VAT:Output:EU", "40.00"),
		split(2025, time.January, 9, "VAT:Input", "-250.25"),
		split(2025, time.February, 3, "Income:Sales", "-5003.00"),
		split(2025, time.March, 14, "Income:Sales", "-4570.40"),
		split(2025, time.January, 9, "Expenses:Purchases", "1251.25"),
		split(2025, time.February, 20, "Expenses:Purchases:EU", "200.10"),
	}
	l, err := ledger.NewCSVLedger(rows, splits)
	require.NoError(t, err)
	return l
}

func quarterMappings() []BoxMapping {
	return []BoxMapping{
		{Box: model.Box1, Account: "VAT:Output:Sales"},
		{Box: model.Box2, Account: "VAT:Output:EU"},
		{Box: model.Box3, Account: "VAT:Output"},
		{Box: model.Box4, Account: "VAT:Input", Negate: true},
		{Box: model.Box5, Account: "VAT"},
		{Box: model.Box6, Account: "Income:Sales", Negate: true},
		{Box: model.Box7, Account: "Expenses:Purchases"},
		{Box: model.Box8, Account: "Income:Sales:EU:Goods", Negate: true},
		{Box: model.Box9, Account: "Expenses:Purchases:EU"},
	}
}

func quarter() (time.Time, time.Time) {
	return date(2025, time.January, 1), date(2025, time.March, 31)
}

func TestComputeReturn_ParentSumsChildren(t *testing.T) {
	mapper, err := NewMapper(quarterLedger(t), quarterMappings())
	require.NoError(t, err)

	start, end := quarter()
	comp, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), false)
	require.NoError(t, err)

	// Box 3 is the subtree sum of the parent, not an arithmetic formula.
	assert.True(t, comp.Total(model.Box1).Equal(dec("1914.60")), "box1 = %s", comp.Total(model.Box1))
	assert.True(t, comp.Total(model.Box2).Equal(dec("40.00")), "box2 = %s", comp.Total(model.Box2))
	assert.True(t, comp.Total(model.Box3).Equal(dec("1954.60")), "box3 = %s", comp.Total(model.Box3))
}

func TestComputeReturn_DetailCarriesSplits(t *testing.T) {
	mapper, err := NewMapper(quarterLedger(t), quarterMappings())
	require.NoError(t, err)

	start, end := quarter()
	comp, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), true)
	require.NoError(t, err)

	require.Len(t, comp.Boxes[model.Box1].Splits, 2)
	require.Len(t, comp.Boxes[model.Box2].Splits, 1)
	require.Len(t, comp.Boxes[model.Box3].Splits, 3)

	summary, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), false)
	require.NoError(t, err)
	assert.Empty(t, summary.Boxes[model.Box1].Splits)
}

func TestComputeReturn_NegateFlipsSign(t *testing.T) {
	mapper, err := NewMapper(quarterLedger(t), quarterMappings())
	require.NoError(t, err)

	start, end := quarter()
	comp, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), true)
	require.NoError(t, err)

	// Income postings are credits; negate reports them positive, rounded to
	// whole pounds for box 6.
	assert.True(t, comp.Total(model.Box6).Equal(dec("9573")), "box6 = %s", comp.Total(model.Box6))
	for _, s := range comp.Boxes[model.Box6].Splits {
		assert.True(t, s.Amount.IsPositive())
	}
	// Box 4 negates the VAT:Input debit balance.
	assert.True(t, comp.Total(model.Box4).Equal(dec("250.25")), "box4 = %s", comp.Total(model.Box4))
}

func TestComputeReturn_WholePoundBoxes(t *testing.T) {
	mapper, err := NewMapper(quarterLedger(t), quarterMappings())
	require.NoError(t, err)

	start, end := quarter()
	comp, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), false)
	require.NoError(t, err)

	assert.True(t, comp.Total(model.Box7).Equal(dec("1451")), "box7 = %s", comp.Total(model.Box7))
	assert.True(t, comp.Total(model.Box9).Equal(dec("200")), "box9 = %s", comp.Total(model.Box9))
}

func TestComputeReturn_Box5Absolute(t *testing.T) {
	mapper, err := NewMapper(quarterLedger(t), quarterMappings())
	require.NoError(t, err)

	start, end := quarter()
	comp, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), false)
	require.NoError(t, err)

	// The VAT subtree nets output minus input; box 5 is reported absolute.
	assert.True(t, comp.Total(model.Box5).Equal(dec("1704.35")), "box5 = %s", comp.Total(model.Box5))
	assert.False(t, comp.Total(model.Box5).IsNegative())
}

func TestComputeReturn_Idempotent(t *testing.T) {
	mapper, err := NewMapper(quarterLedger(t), quarterMappings())
	require.NoError(t, err)

	start, end := quarter()
	first, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), true)
	require.NoError(t, err)
	second, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewMapper_MissingBox(t *testing.T) {
	mappings := quarterMappings()[:8] // box 9 missing

	_, err := NewMapper(quarterLedger(t), mappings)
	require.Error(t, err)

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, model.Box9, cerr.Box)
}

func TestComputeReturn_UnknownAccount(t *testing.T) {
	mappings := quarterMappings()
	mappings[0].Account = "VAT:Output:Nonexistent"

	mapper, err := NewMapper(quarterLedger(t), mappings)
	require.NoError(t, err)

	start, end := quarter()
	_, err = mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), false)
	require.Error(t, err)

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, model.Box1, cerr.Box)
	assert.Equal(t, "VAT:Output:Nonexistent", cerr.AccountPath)
}

func TestComputationReturn_Finalised(t *testing.T) {
	mapper, err := NewMapper(quarterLedger(t), quarterMappings())
	require.NoError(t, err)

	start, end := quarter()
	comp, err := mapper.ComputeReturn(context.Background(), start, end,
		date(2025, time.May, 7), false)
	require.NoError(t, err)

	rtn := comp.Return("18A2")
	assert.Equal(t, "18A2", rtn.PeriodKey)
	assert.True(t, rtn.Finalised)
	assert.Equal(t, date(2025, time.May, 7), rtn.DueDate)
	assert.True(t, rtn.Value(model.Box3).Equal(dec("1954.60")))
}
