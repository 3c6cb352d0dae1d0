// Package tax decides tax jurisdiction for a voucher and splits tax amounts
// into the correct duty-head ledgers. Ledger name generation lives here as
// pure functions so the master registry and the envelope encoder can never
// disagree about a name.
package tax

import (
	"math"
	"strconv"

	"github.com/autotally/tallybridge/internal/normalize"
)

// DefaultHomeStateCode is Maharashtra, the default home jurisdiction.
const DefaultHomeStateCode = "27"

// Jurisdiction classifies a voucher for GST purposes.
type Jurisdiction int

const (
	// IntraState splits tax into equal CGST and SGST halves.
	IntraState Jurisdiction = iota
	// InterState applies the full rate as IGST.
	InterState
)

func (j Jurisdiction) String() string {
	if j == InterState {
		return "inter-state"
	}
	return "intra-state"
}

// Engine resolves jurisdiction against a fixed home-state code.
type Engine struct {
	HomeStateCode string
}

// NewEngine returns an Engine for the given home-state code, defaulting to
// Maharashtra when empty.
func NewEngine(homeStateCode string) Engine {
	if homeStateCode == "" {
		homeStateCode = DefaultHomeStateCode
	}
	return Engine{HomeStateCode: homeStateCode}
}

// Jurisdiction decides intra- vs inter-state from a GSTIN. A missing or
// malformed GSTIN (not exactly 15 characters) is treated as the home
// jurisdiction: weak data never forces inter-state tax.
func (e Engine) Jurisdiction(gstin string) Jurisdiction {
	if len(gstin) != normalize.GSTINLength {
		return IntraState
	}
	if gstin[:2] != e.HomeStateCode {
		return InterState
	}
	return IntraState
}

// Round2 rounds to 2 decimal places, half away from zero, with a tiny
// epsilon bias countering binary floating-point representation error in
// currency values.
func Round2(x float64) float64 {
	return math.Round((x+1e-9)*100) / 100
}

// LineTax is the rounded tax amount for one taxable line.
func LineTax(taxable, ratePercent float64) float64 {
	return Round2(taxable * ratePercent / 100)
}

// SplitIntra divides a tax amount into CGST and SGST. SGST absorbs the
// rounding remainder, so cgst+sgst equals the input exactly at 2 decimals.
func SplitIntra(taxAmount float64) (cgst, sgst float64) {
	cgst = Round2(taxAmount / 2)
	sgst = Round2(taxAmount - cgst)
	return cgst, sgst
}

// FormatRate renders a tax rate with minimal decimals: 6 not 6.0, 2.5 not 2.50.
func FormatRate(rate float64) string {
	if rate == math.Trunc(rate) {
		return strconv.Itoa(int(rate))
	}
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// taxPrefix is "Input" for purchases and "Output" for sales.
func taxPrefix(d normalize.Direction) string {
	if d == normalize.DirectionSale {
		return "Output"
	}
	return "Input"
}

// ItemLedgerName is the direction-by-rate ledger a taxable line posts to,
// e.g. "Purchase @12%" or "Sales @18%".
func ItemLedgerName(d normalize.Direction, ratePercent float64) string {
	return string(d) + " @" + FormatRate(ratePercent) + "%"
}

// CGSTLedgerName names the central-tax ledger for a half rate,
// e.g. "Input CGST@6%".
func CGSTLedgerName(d normalize.Direction, halfRate float64) string {
	return taxPrefix(d) + " CGST@" + FormatRate(halfRate) + "%"
}

// SGSTLedgerName names the state-tax ledger for a half rate,
// e.g. "Input SGST@6%".
func SGSTLedgerName(d normalize.Direction, halfRate float64) string {
	return taxPrefix(d) + " SGST@" + FormatRate(halfRate) + "%"
}

// IGSTLedgerName names the integrated-tax ledger for a full rate,
// e.g. "Input IGST 18%".
func IGSTLedgerName(d normalize.Direction, ratePercent float64) string {
	return taxPrefix(d) + " IGST " + FormatRate(ratePercent) + "%"
}

// LedgerTotals accumulates per-ledger tax contributions across a voucher's
// line items, preserving first-appearance order so encoding is deterministic.
type LedgerTotals struct {
	names   []string
	amounts map[string]float64
}

// NewLedgerTotals returns an empty accumulator.
func NewLedgerTotals() *LedgerTotals {
	return &LedgerTotals{amounts: make(map[string]float64)}
}

// Add accumulates amount under name.
func (t *LedgerTotals) Add(name string, amount float64) {
	if _, ok := t.amounts[name]; !ok {
		t.names = append(t.names, name)
	}
	t.amounts[name] += amount
}

// Names returns ledger names in first-appearance order.
func (t *LedgerTotals) Names() []string { return t.names }

// Amount returns the accumulated amount for name.
func (t *LedgerTotals) Amount(name string) float64 { return t.amounts[name] }

// Sum returns the total across all ledgers.
func (t *LedgerTotals) Sum() float64 {
	var s float64
	for _, n := range t.names {
		s += t.amounts[n]
	}
	return s
}

// AccumulateLine resolves one taxable line's tax into totals. Intra-state
// lines contribute a CGST and an SGST ledger at half rate; inter-state lines
// contribute a single IGST ledger at full rate. Zero-rate lines contribute
// nothing.
func (e Engine) AccumulateLine(totals *LedgerTotals, d normalize.Direction, j Jurisdiction, taxable, ratePercent float64) {
	if ratePercent <= 0 {
		return
	}
	taxAmount := LineTax(taxable, ratePercent)
	if j == InterState {
		totals.Add(IGSTLedgerName(d, ratePercent), taxAmount)
		return
	}
	half := ratePercent / 2
	cgst, sgst := SplitIntra(taxAmount)
	totals.Add(CGSTLedgerName(d, half), cgst)
	totals.Add(SGSTLedgerName(d, half), sgst)
}
