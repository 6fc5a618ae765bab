package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(due string, bundle string) Entry {
	d, err := time.Parse("2006-01-02", due)
	if err != nil {
		panic(err)
	}
	return Entry{
		Timestamp:        time.Date(2025, time.July, 1, 9, 30, 47, 0, time.UTC),
		VRN:              "999999999",
		DueDate:          d,
		PeriodKey:        "18A2",
		NetVATDue:        decimal.RequireFromString("1704.35"),
		FormBundleNumber: bundle,
		ChargeRefNumber:  "XM002610011594",
	}
}

func TestAppendRead(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Append(dir, []Entry{entry("2025-08-07", "b1")}))
	require.NoError(t, Append(dir, []Entry{entry("2025-11-07", "b2")}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b1", entries[0].FormBundleNumber)
	assert.Equal(t, "b2", entries[1].FormBundleNumber)
	assert.True(t, entries[0].NetVATDue.Equal(decimal.RequireFromString("1704.35")))
	assert.Equal(t, "2025-08-07", entries[0].DueDate.Format("2006-01-02"))

	// A single header, written once.
	data, err := os.ReadFile(filepath.Join(dir, "submissions.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header))
}

func TestRead_NoLogYet(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestEntryRoundTrip(t *testing.T) {
	in := entry("2025-08-07", "256660290587")
	out, err := UnmarshalEntry(MarshalEntry(in))
	require.NoError(t, err)
	assert.Equal(t, in.VRN, out.VRN)
	assert.Equal(t, in.PeriodKey, out.PeriodKey)
	assert.True(t, in.NetVATDue.Equal(out.NetVATDue))
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.True(t, in.DueDate.Equal(out.DueDate))
}

func TestUnmarshalEntry_BadRow(t *testing.T) {
	_, err := UnmarshalEntry([]string{"not-a-time", "vrn", "2025-08-07", "18A2", "1.00", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp")
}
