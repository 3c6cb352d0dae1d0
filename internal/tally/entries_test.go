package tally

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotally/tallybridge/internal/normalize"
	"github.com/autotally/tallybridge/internal/tax"
	"github.com/autotally/tallybridge/internal/voucher"
)

func entriesVoucher(dir normalize.Direction, gstin string, items ...voucher.LineItem) voucher.Voucher {
	return voucher.Voucher{
		InvoiceNo: "INV-1",
		PartyName: "Acme Traders",
		Date:      time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC),
		GSTIN:     gstin,
		Direction: dir,
		Items:     items,
	}
}

func entrySum(entries []Entry) float64 {
	var s float64
	for _, e := range entries {
		s += e.Amount
	}
	return tax.Round2(s)
}

func TestBuildEntriesPurchaseIntraState(t *testing.T) {
	engine := tax.NewEngine("27")
	v := entriesVoucher(normalize.DirectionPurchase, "27ABCDE1234F1Z5",
		voucher.LineItem{TaxableAmount: 8337.00, TaxRatePercent: 12})

	entries := BuildEntries(v, engine)
	require.Len(t, entries, 4)

	party := entries[0]
	assert.Equal(t, "Acme Traders", party.LedgerName)
	assert.Equal(t, EntryParty, party.Kind)
	assert.True(t, party.IsParty)
	assert.False(t, party.Debit)
	assert.Equal(t, 9337.44, party.Amount)

	item := entries[1]
	assert.Equal(t, "Purchase @12%", item.LedgerName)
	assert.Equal(t, EntryItem, item.Kind)
	assert.True(t, item.Debit)
	assert.Equal(t, -8337.00, item.Amount)

	cgst, sgst := entries[2], entries[3]
	assert.Equal(t, "Input CGST@6%", cgst.LedgerName)
	assert.Equal(t, -500.22, cgst.Amount)
	assert.Equal(t, 6.0, cgst.TaxRatePercent)
	assert.Equal(t, "Input SGST@6%", sgst.LedgerName)
	assert.Equal(t, -500.22, sgst.Amount)

	assert.Equal(t, 0.0, entrySum(entries))
}

func TestBuildEntriesSaleMirrorsSigns(t *testing.T) {
	engine := tax.NewEngine("27")
	v := entriesVoucher(normalize.DirectionSale, "27ABCDE1234F1Z5",
		voucher.LineItem{TaxableAmount: 1000, TaxRatePercent: 18})

	entries := BuildEntries(v, engine)
	require.Len(t, entries, 4)

	party := entries[0]
	assert.True(t, party.Debit)
	assert.Equal(t, -1180.0, party.Amount)

	item := entries[1]
	assert.Equal(t, "Sales @18%", item.LedgerName)
	assert.False(t, item.Debit)
	assert.Equal(t, 1000.0, item.Amount)

	assert.Equal(t, "Output CGST@9%", entries[2].LedgerName)
	assert.Equal(t, 90.0, entries[2].Amount)

	assert.Equal(t, 0.0, entrySum(entries))
}

func TestBuildEntriesInterStateMixedRates(t *testing.T) {
	engine := tax.NewEngine("27")
	v := entriesVoucher(normalize.DirectionPurchase, "29AABCU9603R1ZM",
		voucher.LineItem{TaxableAmount: 8337.00, TaxRatePercent: 12},
		voucher.LineItem{TaxableAmount: 4820.32, TaxRatePercent: 18},
		voucher.LineItem{TaxableAmount: 1000.00, TaxRatePercent: 12})

	entries := BuildEntries(v, engine)
	// party + two rate items + two IGST ledgers: same-rate lines merge.
	require.Len(t, entries, 5)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.LedgerName
	}
	assert.Equal(t, []string{
		"Acme Traders",
		"Purchase @12%",
		"Purchase @18%",
		"Input IGST 12%",
		"Input IGST 18%",
	}, names)

	assert.Equal(t, -9337.00, entries[1].Amount)
	assert.Equal(t, -4820.32, entries[2].Amount)
	assert.Equal(t, -1120.44, entries[3].Amount)
	assert.Equal(t, 12.0, entries[3].TaxRatePercent)
	assert.Equal(t, -867.66, entries[4].Amount)
	assert.Equal(t, 18.0, entries[4].TaxRatePercent)

	assert.Equal(t, 0.0, entrySum(entries))
}

func TestBuildEntriesSkipsZeroTax(t *testing.T) {
	engine := tax.NewEngine("27")
	v := entriesVoucher(normalize.DirectionPurchase, "",
		voucher.LineItem{TaxableAmount: 500, TaxRatePercent: 0})

	entries := BuildEntries(v, engine)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryParty, entries[0].Kind)
	assert.Equal(t, 500.0, entries[0].Amount)
	assert.Equal(t, "Purchase @0%", entries[1].LedgerName)
	assert.Equal(t, -500.0, entries[1].Amount)
}
