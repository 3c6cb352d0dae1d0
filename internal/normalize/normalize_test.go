package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNormalizer() *Normalizer {
	n := New(DirectionPurchase, 18)
	n.Now = func() time.Time {
		return time.Date(2026, time.September, 1, 10, 30, 0, 0, time.UTC)
	}
	return n
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input string
		want  Direction
	}{
		{"sales", DirectionSale},
		{"Sale", DirectionSale},
		{"  S ", DirectionSale},
		{"purchase", DirectionPurchase},
		{"anything else", DirectionPurchase},
		{"", DirectionPurchase},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDirection(tt.input), "input %q", tt.input)
	}
}

func TestRowDiscardsUnusableRows(t *testing.T) {
	n := testNormalizer()

	_, reason := n.Row(RawRow{FieldPartyName: "Acme Traders"})
	assert.Equal(t, ReasonMissingInvoiceNo, reason)

	_, reason = n.Row(RawRow{FieldInvoiceNo: "INV-1", FieldPartyName: "   "})
	assert.Equal(t, ReasonMissingPartyName, reason)

	rows, discards := n.Rows([]RawRow{
		{FieldInvoiceNo: "INV-1", FieldPartyName: "Acme Traders"},
		{FieldPartyName: "No Invoice Ltd"},
		{FieldInvoiceNo: "INV-2", FieldPartyName: "Beta Supplies"},
	})
	require.Len(t, rows, 2)
	require.Len(t, discards, 1)
	assert.Equal(t, 1, discards[0].RowIndex)
	assert.Equal(t, ReasonMissingInvoiceNo, discards[0].Reason)
}

func TestRowDefaultsAndClamps(t *testing.T) {
	n := testNormalizer()

	// No tax rate cell at all: the configured default applies.
	row, reason := n.Row(RawRow{
		FieldInvoiceNo: "INV-1",
		FieldPartyName: "Acme Traders",
		FieldTaxable:   "8337.00",
	})
	require.Empty(t, reason)
	assert.Equal(t, 18.0, row.TaxRatePercent)
	assert.Equal(t, 8337.0, row.TaxableAmount)
	assert.Equal(t, 1.0, row.Quantity)

	// An explicit rate cell, even zero, wins over the default.
	row, _ = n.Row(RawRow{
		FieldInvoiceNo: "INV-2",
		FieldPartyName: "Acme Traders",
		FieldTaxRate:   "0",
	})
	assert.Equal(t, 0.0, row.TaxRatePercent)

	// Negative taxable amounts are clamped to zero.
	row, _ = n.Row(RawRow{
		FieldInvoiceNo: "INV-3",
		FieldPartyName: "Acme Traders",
		FieldTaxable:   -100.0,
	})
	assert.Equal(t, 0.0, row.TaxableAmount)

	// Out-of-range rates are clamped into [0,100].
	row, _ = n.Row(RawRow{
		FieldInvoiceNo: "INV-4",
		FieldPartyName: "Acme Traders",
		FieldTaxRate:   250.0,
	})
	assert.Equal(t, 100.0, row.TaxRatePercent)
}

func TestCleanGSTIN(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "27abcde1234f1z5", "27ABCDE1234F1Z5"},
		{"valid with spaces", "  29AABCU9603R1ZM ", "29AABCU9603R1ZM"},
		{"too short", "27ABC", ""},
		{"too long", "27ABCDE1234F1Z5X", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanGSTIN(tt.input))
		})
	}
}

func TestParseAmountTolerance(t *testing.T) {
	n := testNormalizer()
	tests := []struct {
		input any
		want  float64
	}{
		{"1,23,456.78", 123456.78},
		{"₹ 500.25", 500.25},
		{"$99", 99},
		{1500, 1500},
		{1500.5, 1500.5},
		{"garbage", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		row, reason := n.Row(RawRow{
			FieldInvoiceNo: "INV-1",
			FieldPartyName: "Acme Traders",
			FieldTaxable:   tt.input,
		})
		require.Empty(t, reason)
		assert.Equal(t, tt.want, row.TaxableAmount, "input %v", tt.input)
	}
}

func TestParseDateForms(t *testing.T) {
	n := testNormalizer()
	today := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"serial number", 45000.0, time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"serial int", 45000, time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"serial string", "45000", time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"dmy dashes", "15-03-2023", time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"dmy slashes", "15/03/2023", time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"dmy dots", "15.03.2023", time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"iso", "2023-03-15", time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"single digit day", "5-3-2023", time.Date(2023, time.March, 5, 0, 0, 0, 0, time.UTC)},
		{"unparseable", "next tuesday", today},
		{"invalid month", "15-13-2023", today},
		{"empty", "", today},
		{"missing cell", nil, today},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, reason := n.Row(RawRow{
				FieldInvoiceNo: "INV-1",
				FieldPartyName: "Acme Traders",
				FieldDate:      tt.input,
			})
			require.Empty(t, reason)
			assert.Equal(t, tt.want, row.Date)
		})
	}
}

func TestVoucherType(t *testing.T) {
	assert.Equal(t, "Purchase", DirectionPurchase.VoucherType())
	assert.Equal(t, "Sales", DirectionSale.VoucherType())
}
