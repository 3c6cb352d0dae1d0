// Package normalize turns heterogeneous raw invoice rows (spreadsheet cells,
// OCR/LLM output, manual entry) into canonical NormalizedRow values with
// defaulted and validated fields. Malformed data never produces an error:
// bad numerics fall back to safe defaults and structurally unusable rows
// become explicit discard decisions with a reason code.
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Direction identifies which side of the books a row belongs to.
type Direction string

const (
	DirectionPurchase Direction = "Purchase"
	DirectionSale     Direction = "Sales"
)

// VoucherType returns the voucher type name used on the wire.
func (d Direction) VoucherType() string {
	if d == DirectionSale {
		return "Sales"
	}
	return "Purchase"
}

// ParseDirection maps free-form direction labels to a Direction.
// Unrecognised values default to Purchase, the conservative choice for
// invoice ingestion.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sale", "sales", "s":
		return DirectionSale
	default:
		return DirectionPurchase
	}
}

// Canonical cell keys produced by the importer and consumed here.
const (
	FieldDate      = "date"
	FieldInvoiceNo = "invoice_no"
	FieldPartyName = "party_name"
	FieldGSTIN     = "gstin"
	FieldTaxable   = "taxable_amount"
	FieldTaxRate   = "tax_rate"
	FieldQuantity  = "quantity"
	FieldUnitRate  = "unit_rate"
)

// RawRow is one unvalidated input row: canonical field name to cell value.
// Values may be strings, numbers, or spreadsheet date serials.
type RawRow map[string]any

// Row is one taxable invoice line after normalization.
type Row struct {
	Date           time.Time
	InvoiceNo      string
	PartyName      string
	GSTIN          string // 15 characters or empty
	TaxableAmount  float64
	TaxRatePercent float64
	Direction      Direction
	Quantity       float64
	UnitRate       float64
}

// DiscardReason explains why a raw row was rejected before aggregation.
type DiscardReason string

const (
	ReasonMissingInvoiceNo DiscardReason = "missing invoice number"
	ReasonMissingPartyName DiscardReason = "missing party name"
)

// Discard records one rejected row.
type Discard struct {
	RowIndex int // zero-based index into the input slice
	Reason   DiscardReason
}

// GSTINLength is the fixed identifier length the target protocol expects.
// Anything else is treated as "no GSTIN supplied".
const GSTINLength = 15

// Normalizer converts raw rows into Rows.
type Normalizer struct {
	// Direction applied to every row that carries no direction cell.
	Direction Direction

	// DefaultTaxRate is used when a row has no parseable tax rate.
	DefaultTaxRate float64

	// Now supplies "today" for unparseable dates. Injectable for tests.
	Now func() time.Time
}

// New returns a Normalizer with the given direction and default tax rate.
func New(dir Direction, defaultTaxRate float64) *Normalizer {
	return &Normalizer{Direction: dir, DefaultTaxRate: defaultTaxRate, Now: time.Now}
}

// Rows normalizes every raw row, returning the surviving rows in input
// order together with the discard decisions for rejected ones.
func (n *Normalizer) Rows(raw []RawRow) ([]Row, []Discard) {
	rows := make([]Row, 0, len(raw))
	var discards []Discard
	for i, rr := range raw {
		row, reason := n.Row(rr)
		if reason != "" {
			discards = append(discards, Discard{RowIndex: i, Reason: reason})
			continue
		}
		rows = append(rows, row)
	}
	return rows, discards
}

// Row normalizes a single raw row. A non-empty DiscardReason means the row
// must not reach aggregation.
func (n *Normalizer) Row(raw RawRow) (Row, DiscardReason) {
	invoiceNo := strings.TrimSpace(cellString(raw[FieldInvoiceNo]))
	if invoiceNo == "" {
		return Row{}, ReasonMissingInvoiceNo
	}
	partyName := strings.TrimSpace(cellString(raw[FieldPartyName]))
	if partyName == "" {
		return Row{}, ReasonMissingPartyName
	}

	row := Row{
		InvoiceNo:      invoiceNo,
		PartyName:      partyName,
		GSTIN:          CleanGSTIN(cellString(raw[FieldGSTIN])),
		Date:           n.parseDate(raw[FieldDate]),
		TaxableAmount:  parseAmount(raw[FieldTaxable]),
		TaxRatePercent: clampRate(parseAmount(raw[FieldTaxRate])),
		Direction:      n.Direction,
		Quantity:       parseAmount(raw[FieldQuantity]),
		UnitRate:       parseAmount(raw[FieldUnitRate]),
	}
	if row.TaxableAmount < 0 {
		row.TaxableAmount = 0
	}
	if _, ok := raw[FieldTaxRate]; !ok {
		row.TaxRatePercent = clampRate(n.DefaultTaxRate)
	}
	if row.Quantity <= 0 {
		row.Quantity = 1
	}
	return row, ""
}

// CleanGSTIN upper-cases and trims a GSTIN. Values that are not exactly 15
// characters are treated as not present: a mangled identifier is never
// allowed to claim a specific out-of-home jurisdiction.
func CleanGSTIN(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != GSTINLength {
		return ""
	}
	return s
}

func clampRate(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

// cellString renders any cell value as a trimmed string.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// parseAmount extracts a float from a cell, tolerating currency prefixes,
// thousands separators and surrounding whitespace. Malformed values become 0.
func parseAmount(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		s := strings.TrimSpace(t)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimLeft(s, "₹$£ ")
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
