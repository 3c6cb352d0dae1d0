// Package voucher groups normalized invoice rows into voucher aggregates,
// one per (invoice number, party, date) key.
package voucher

import (
	"strings"
	"time"

	"github.com/autotally/tallybridge/internal/normalize"
	"github.com/autotally/tallybridge/internal/tax"
)

// LineItem is one taxable line inside a voucher.
type LineItem struct {
	TaxableAmount  float64
	TaxRatePercent float64
}

// Voucher is an aggregate of rows sharing (invoice number, party, date).
// It is mutated only while aggregation consumes rows; afterwards it is
// treated as immutable and never merged with the output of another run.
type Voucher struct {
	InvoiceNo   string
	PartyName   string
	Date        time.Time
	GSTIN       string
	Direction   normalize.Direction
	Items       []LineItem
	TotalAmount float64
}

// Key identifies a voucher aggregate. Grouping is case-insensitive on
// trimmed invoice number and party name.
type Key string

// KeyFor builds the grouping key for a row.
func KeyFor(invoiceNo, partyName string, date time.Time) Key {
	return Key(strings.ToLower(strings.TrimSpace(invoiceNo)) + "\x1f" +
		strings.ToLower(strings.TrimSpace(partyName)) + "\x1f" +
		date.Format("2006-01-02"))
}

// Stats reports aggregation side observations.
type Stats struct {
	// DuplicateRows counts rows that merged into an existing voucher.
	DuplicateRows int
	// DroppedVouchers counts aggregates discarded because every line had a
	// zero taxable amount.
	DroppedVouchers int
}

// Aggregate folds rows into vouchers, preserving first-appearance order.
// Rows with a zero taxable amount contribute nothing; vouchers whose item
// list ends up empty are dropped from the output.
func Aggregate(rows []normalize.Row) ([]Voucher, Stats) {
	var stats Stats
	index := make(map[Key]int)
	vouchers := make([]Voucher, 0, len(rows))

	for _, row := range rows {
		key := KeyFor(row.InvoiceNo, row.PartyName, row.Date)
		i, seen := index[key]
		if !seen {
			i = len(vouchers)
			index[key] = i
			vouchers = append(vouchers, Voucher{
				InvoiceNo: row.InvoiceNo,
				PartyName: row.PartyName,
				Date:      row.Date,
				GSTIN:     row.GSTIN,
				Direction: row.Direction,
			})
		} else {
			stats.DuplicateRows++
		}

		v := &vouchers[i]
		if v.GSTIN == "" {
			v.GSTIN = row.GSTIN
		}
		if row.TaxableAmount <= 0 {
			continue
		}
		taxable := tax.Round2(row.TaxableAmount)
		v.Items = append(v.Items, LineItem{
			TaxableAmount:  taxable,
			TaxRatePercent: row.TaxRatePercent,
		})
		v.TotalAmount += taxable + tax.LineTax(row.TaxableAmount, row.TaxRatePercent)
	}

	out := vouchers[:0]
	for _, v := range vouchers {
		if len(v.Items) == 0 {
			stats.DroppedVouchers++
			continue
		}
		v.TotalAmount = tax.Round2(v.TotalAmount)
		out = append(out, v)
	}
	return out, stats
}
