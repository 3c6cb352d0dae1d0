package tally

import (
	"github.com/autotally/tallybridge/internal/ledger"
	"github.com/autotally/tallybridge/internal/normalize"
	"github.com/autotally/tallybridge/internal/tax"
	"github.com/autotally/tallybridge/internal/voucher"
)

// EntryKind distinguishes the three entry roles inside a voucher.
type EntryKind int

const (
	EntryParty EntryKind = iota
	EntryItem
	EntryTax
)

// Entry is one signed ledger posting inside a voucher record.
type Entry struct {
	LedgerName string
	Kind       EntryKind
	// Amount carries the accounting sign: entries within one voucher sum
	// to exactly zero.
	Amount float64
	// Debit mirrors the wire's ISDEEMEDPOSITIVE flag.
	Debit bool
	// IsParty marks the bill-reference entry.
	IsParty bool
	// TaxRatePercent is the originating rate, set on tax entries only.
	TaxRatePercent float64
}

// signs returns (party, item/tax) amount signs for a direction.
//
// Purchase credits the party (positive amount, ISDEEMEDPOSITIVE=No) and
// debits items and taxes (negative, Yes). Sales is the mirror image.
func signs(d normalize.Direction) (partySign, itemSign float64) {
	if d == normalize.DirectionSale {
		return -1, 1
	}
	return 1, -1
}

// BuildEntries assigns polarity and ordering to a voucher's ledger postings:
// the party entry first, then one direction-by-rate entry per distinct rate,
// then the accumulated tax entries.
//
// The party magnitude is the post-rounding sum of all item and tax
// magnitudes, never computed independently, which keeps the double-entry
// balance exact under per-line rounding.
func BuildEntries(v voucher.Voucher, engine tax.Engine) []Entry {
	partySign, itemSign := signs(v.Direction)
	jurisdiction := engine.Jurisdiction(v.GSTIN)

	itemTotals := tax.NewLedgerTotals()
	taxTotals := tax.NewLedgerTotals()
	rateByName := make(map[string]float64)

	for _, item := range v.Items {
		if item.TaxableAmount <= 0 {
			continue
		}
		amount := tax.Round2(item.TaxableAmount)
		itemTotals.Add(tax.ItemLedgerName(v.Direction, item.TaxRatePercent), amount)
		engine.AccumulateLine(taxTotals, v.Direction, jurisdiction, item.TaxableAmount, item.TaxRatePercent)
	}
	for _, item := range v.Items {
		if jurisdiction == tax.InterState {
			rateByName[tax.IGSTLedgerName(v.Direction, item.TaxRatePercent)] = item.TaxRatePercent
			continue
		}
		half := item.TaxRatePercent / 2
		rateByName[tax.CGSTLedgerName(v.Direction, half)] = half
		rateByName[tax.SGSTLedgerName(v.Direction, half)] = half
	}

	entries := make([]Entry, 0, 1+len(itemTotals.Names())+len(taxTotals.Names()))

	var magnitude float64
	for _, name := range itemTotals.Names() {
		magnitude += tax.Round2(itemTotals.Amount(name))
	}
	for _, name := range taxTotals.Names() {
		magnitude += tax.Round2(taxTotals.Amount(name))
	}
	magnitude = tax.Round2(magnitude)

	entries = append(entries, Entry{
		LedgerName: ledger.CleanName(v.PartyName),
		Kind:       EntryParty,
		Amount:     magnitude * partySign,
		Debit:      partySign < 0,
		IsParty:    true,
	})
	for _, name := range itemTotals.Names() {
		amount := tax.Round2(itemTotals.Amount(name))
		entries = append(entries, Entry{
			LedgerName: name,
			Kind:       EntryItem,
			Amount:     amount * itemSign,
			Debit:      itemSign < 0,
		})
	}
	for _, name := range taxTotals.Names() {
		amount := tax.Round2(taxTotals.Amount(name))
		if amount <= 0 {
			continue
		}
		entries = append(entries, Entry{
			LedgerName:     name,
			Kind:           EntryTax,
			Amount:         amount * itemSign,
			Debit:          itemSign < 0,
			TaxRatePercent: rateByName[name],
		})
	}
	return entries
}
