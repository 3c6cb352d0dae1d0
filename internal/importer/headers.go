// Package importer reads bulk spreadsheet and CSV exports into raw rows for
// the normalizer. Column headers vary wildly between source systems, so a
// synonym table maps whatever header a sheet carries onto the canonical
// field names.
package importer

import (
	"strings"

	"github.com/autotally/tallybridge/internal/normalize"
)

// headerSynonyms maps squashed header text to canonical field names.
// Squashing lowercases and strips spaces, underscores, dots and hyphens, so
// "Invoice No.", "invoice_number" and "InvoiceNo" all land on the same key.
var headerSynonyms = map[string]string{
	"date":        normalize.FieldDate,
	"invoicedate": normalize.FieldDate,
	"billdate":    normalize.FieldDate,
	"voucherdate": normalize.FieldDate,
	"txndate":     normalize.FieldDate,

	"invoiceno":     normalize.FieldInvoiceNo,
	"invoicenumber": normalize.FieldInvoiceNo,
	"invno":         normalize.FieldInvoiceNo,
	"billno":        normalize.FieldInvoiceNo,
	"billnumber":    normalize.FieldInvoiceNo,
	"voucherno":     normalize.FieldInvoiceNo,
	"vouchernumber": normalize.FieldInvoiceNo,

	"party":        normalize.FieldPartyName,
	"partyname":    normalize.FieldPartyName,
	"supplier":     normalize.FieldPartyName,
	"suppliername": normalize.FieldPartyName,
	"vendor":       normalize.FieldPartyName,
	"vendorname":   normalize.FieldPartyName,
	"buyer":        normalize.FieldPartyName,
	"buyername":    normalize.FieldPartyName,
	"customer":     normalize.FieldPartyName,
	"customername": normalize.FieldPartyName,

	"gstin":         normalize.FieldGSTIN,
	"gstno":         normalize.FieldGSTIN,
	"gstinno":       normalize.FieldGSTIN,
	"partygstin":    normalize.FieldGSTIN,
	"suppliergstin": normalize.FieldGSTIN,
	"buyergstin":    normalize.FieldGSTIN,

	"taxable":       normalize.FieldTaxable,
	"taxableamount": normalize.FieldTaxable,
	"taxablevalue":  normalize.FieldTaxable,
	"amount":        normalize.FieldTaxable,
	"basicamount":   normalize.FieldTaxable,
	"netamount":     normalize.FieldTaxable,

	"gstrate":    normalize.FieldTaxRate,
	"taxrate":    normalize.FieldTaxRate,
	"gst":        normalize.FieldTaxRate,
	"rateoftax":  normalize.FieldTaxRate,
	"gstpercent": normalize.FieldTaxRate,
	"taxpercent": normalize.FieldTaxRate,

	"qty":      normalize.FieldQuantity,
	"quantity": normalize.FieldQuantity,

	"rate":      normalize.FieldUnitRate,
	"unitrate":  normalize.FieldUnitRate,
	"unitprice": normalize.FieldUnitRate,
	"price":     normalize.FieldUnitRate,
}

var headerSquasher = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

// canonicalField maps a raw header to a canonical field name, or "" when the
// column is not one the pipeline consumes.
func canonicalField(header string) string {
	squashed := headerSquasher.Replace(strings.ToLower(strings.TrimSpace(header)))
	return headerSynonyms[squashed]
}

// mapHeaders resolves a header row into a column-index → field-name mapping.
// The first column claiming a field wins; later duplicates are ignored.
func mapHeaders(headers []string) map[int]string {
	fields := make(map[int]string)
	claimed := make(map[string]bool)
	for i, h := range headers {
		field := canonicalField(h)
		if field == "" || claimed[field] {
			continue
		}
		fields[i] = field
		claimed[field] = true
	}
	return fields
}

// rowFromCells assembles a RawRow from one data row using the header map.
// Empty cells are omitted so the normalizer can tell "absent" from "blank".
func rowFromCells(cells []string, fields map[int]string) normalize.RawRow {
	row := make(normalize.RawRow, len(fields))
	for i, field := range fields {
		if i >= len(cells) {
			continue
		}
		value := strings.TrimSpace(cells[i])
		if value == "" {
			continue
		}
		row[field] = value
	}
	return row
}
