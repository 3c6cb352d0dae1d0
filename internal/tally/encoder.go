// Package tally serializes voucher batches into the Tally Prime import
// envelope and talks to the Tally HTTP endpoint. The importer silently
// misreads documents whose entry order, sign or field presence is wrong, so
// the encoder is strict about all three.
package tally

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autotally/tallybridge/internal/ledger"
	"github.com/autotally/tallybridge/internal/tax"
	"github.com/autotally/tallybridge/internal/voucher"
)

// CurrentCompany is the sentinel meaning "whichever company is active in
// Tally right now".
const CurrentCompany = "##SVCurrentCompany"

// escaper handles the five XML metacharacters. The apostrophe becomes a
// space rather than an entity: Tally's importer mishandles the escaped form.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", " ",
)

// Escape renders free text safe for the import envelope.
func Escape(s string) string {
	return escaper.Replace(s)
}

// FormatAmount renders an amount with exactly two decimal digits.
func FormatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', 2, 64)
}

// FormatDate renders a calendar date as the 8-digit form Tally expects.
func FormatDate(t time.Time) string {
	return t.Format("20060102")
}

// Encoder builds import envelopes for one target company.
type Encoder struct {
	// Company scopes both envelope sections. Empty means CurrentCompany.
	Company string
	Engine  tax.Engine

	// NewID generates voucher GUIDs and remote IDs. Injectable for tests.
	NewID func() string
}

// NewEncoder returns an Encoder for the given company context.
func NewEncoder(company string, engine tax.Engine) *Encoder {
	if company == "" {
		company = CurrentCompany
	}
	return &Encoder{Company: company, Engine: engine, NewID: uuid.NewString}
}

// Encode serializes the missing masters followed by one voucher record per
// aggregate into a single import document. Vouchers with no line items are
// excluded entirely rather than encoded as empty records.
func (e *Encoder) Encode(vouchers []voucher.Voucher, missing []ledger.Requirement) string {
	var b strings.Builder
	b.WriteString("<ENVELOPE>\n")
	b.WriteString(" <HEADER>\n  <TALLYREQUEST>Import Data</TALLYREQUEST>\n </HEADER>\n")
	b.WriteString(" <BODY>\n")

	e.writeImportData(&b, "All Masters", func(b *strings.Builder) {
		for _, req := range missing {
			e.writeMaster(b, req)
		}
	})
	e.writeImportData(&b, "Vouchers", func(b *strings.Builder) {
		for _, v := range vouchers {
			if len(v.Items) == 0 {
				continue
			}
			e.writeVoucher(b, v)
		}
	})

	b.WriteString(" </BODY>\n")
	b.WriteString("</ENVELOPE>\n")
	return b.String()
}

func (e *Encoder) writeImportData(b *strings.Builder, report string, body func(*strings.Builder)) {
	b.WriteString("  <IMPORTDATA>\n")
	b.WriteString("   <REQUESTDESC>\n")
	fmt.Fprintf(b, "    <REPORTNAME>%s</REPORTNAME>\n", report)
	b.WriteString("    <STATICVARIABLES>\n")
	fmt.Fprintf(b, "     <SVCURRENTCOMPANY>%s</SVCURRENTCOMPANY>\n", Escape(e.Company))
	b.WriteString("    </STATICVARIABLES>\n")
	b.WriteString("   </REQUESTDESC>\n")
	b.WriteString("   <REQUESTDATA>\n")
	body(b)
	b.WriteString("   </REQUESTDATA>\n")
	b.WriteString("  </IMPORTDATA>\n")
}

func (e *Encoder) writeMaster(b *strings.Builder, req ledger.Requirement) {
	name := Escape(req.Name)
	b.WriteString("    <TALLYMESSAGE xmlns:UDF=\"TallyUDF\">\n")
	fmt.Fprintf(b, "     <LEDGER NAME=\"%s\" ACTION=\"Create\">\n", name)
	fmt.Fprintf(b, "      <NAME.LIST><NAME>%s</NAME></NAME.LIST>\n", name)
	fmt.Fprintf(b, "      <PARENT>%s</PARENT>\n", Escape(req.Parent))

	switch req.Kind {
	case ledger.KindParty:
		b.WriteString("      <ISBILLWISEON>Yes</ISBILLWISEON>\n")
		b.WriteString("      <ISGSTAPPLICABLE>Yes</ISGSTAPPLICABLE>\n")
		if req.GSTIN != "" {
			fmt.Fprintf(b, "      <PARTYGSTIN>%s</PARTYGSTIN>\n", Escape(req.GSTIN))
		}
		if req.StateName != "" {
			fmt.Fprintf(b, "      <STATENAME>%s</STATENAME>\n", Escape(req.StateName))
		}
	case ledger.KindItem:
		b.WriteString("      <ISGSTAPPLICABLE>Yes</ISGSTAPPLICABLE>\n")
		fmt.Fprintf(b, "      <GSTRATE>%s</GSTRATE>\n", tax.FormatRate(req.GSTRate))
	case ledger.KindTax:
		b.WriteString("      <TAXTYPE>GST</TAXTYPE>\n")
		fmt.Fprintf(b, "      <GSTDUTYHEAD>%s</GSTDUTYHEAD>\n", req.DutyHead)
		fmt.Fprintf(b, "      <GSTRATE>%s</GSTRATE>\n", tax.FormatRate(req.GSTRate))
	}

	b.WriteString("     </LEDGER>\n")
	b.WriteString("    </TALLYMESSAGE>\n")
}

func (e *Encoder) writeVoucher(b *strings.Builder, v voucher.Voucher) {
	entries := BuildEntries(v, e.Engine)
	date := FormatDate(v.Date)
	vchType := v.Direction.VoucherType()
	partyState := e.Engine.PartyState(v.GSTIN)
	guid := e.NewID()
	remoteID := e.NewID()
	vchKey := e.NewID() + ":00000008"

	b.WriteString("    <TALLYMESSAGE xmlns:UDF=\"TallyUDF\">\n")
	fmt.Fprintf(b, "     <VOUCHER REMOTEID=\"%s\" VCHKEY=\"%s\" VCHTYPE=\"%s\" ACTION=\"Create\" OBJVIEW=\"Invoice Voucher View\">\n",
		remoteID, vchKey, vchType)
	b.WriteString("      <OLDAUDITENTRYIDS.LIST TYPE=\"Number\">\n")
	b.WriteString("       <OLDAUDITENTRYIDS>-1</OLDAUDITENTRYIDS>\n")
	b.WriteString("      </OLDAUDITENTRYIDS.LIST>\n")
	fmt.Fprintf(b, "      <DATE>%s</DATE>\n", date)
	fmt.Fprintf(b, "      <EFFECTIVEDATE>%s</EFFECTIVEDATE>\n", date)
	fmt.Fprintf(b, "      <REFERENCEDATE>%s</REFERENCEDATE>\n", date)
	fmt.Fprintf(b, "      <VCHSTATUSDATE>%s</VCHSTATUSDATE>\n", date)
	fmt.Fprintf(b, "      <GUID>%s</GUID>\n", guid)
	fmt.Fprintf(b, "      <STATENAME>%s</STATENAME>\n", Escape(partyState))
	b.WriteString("      <COUNTRYOFRESIDENCE>India</COUNTRYOFRESIDENCE>\n")
	if v.GSTIN != "" {
		fmt.Fprintf(b, "      <PARTYGSTIN>%s</PARTYGSTIN>\n", Escape(v.GSTIN))
	}
	fmt.Fprintf(b, "      <PLACEOFSUPPLY>%s</PLACEOFSUPPLY>\n", Escape(partyState))
	fmt.Fprintf(b, "      <VOUCHERTYPENAME>%s</VOUCHERTYPENAME>\n", vchType)
	fmt.Fprintf(b, "      <PARTYLEDGERNAME>%s</PARTYLEDGERNAME>\n", Escape(ledger.CleanName(v.PartyName)))
	fmt.Fprintf(b, "      <VOUCHERNUMBER>%s</VOUCHERNUMBER>\n", Escape(v.InvoiceNo))
	fmt.Fprintf(b, "      <REFERENCE>%s</REFERENCE>\n", Escape(v.InvoiceNo))
	b.WriteString("      <ISINVOICE>Yes</ISINVOICE>\n")
	fmt.Fprintf(b, "      <NARRATION>Invoice: %s</NARRATION>\n", Escape(v.InvoiceNo))

	for _, entry := range entries {
		e.writeEntry(b, entry, v.InvoiceNo)
	}

	b.WriteString("     </VOUCHER>\n")
	b.WriteString("    </TALLYMESSAGE>\n")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func (e *Encoder) writeEntry(b *strings.Builder, entry Entry, invoiceNo string) {
	b.WriteString("      <LEDGERENTRIES.LIST>\n")
	if entry.Kind == EntryTax {
		b.WriteString("       <RATEOFINVOICETAX.LIST TYPE=\"Number\">\n")
		fmt.Fprintf(b, "        <RATEOFINVOICETAX>%s</RATEOFINVOICETAX>\n", tax.FormatRate(entry.TaxRatePercent))
		b.WriteString("       </RATEOFINVOICETAX.LIST>\n")
	}
	fmt.Fprintf(b, "       <LEDGERNAME>%s</LEDGERNAME>\n", Escape(entry.LedgerName))
	fmt.Fprintf(b, "       <ISDEEMEDPOSITIVE>%s</ISDEEMEDPOSITIVE>\n", yesNo(entry.Debit))
	if entry.IsParty {
		b.WriteString("       <ISPARTYLEDGER>Yes</ISPARTYLEDGER>\n")
	} else {
		b.WriteString("       <ISPARTYLEDGER>No</ISPARTYLEDGER>\n")
	}
	fmt.Fprintf(b, "       <AMOUNT>%s</AMOUNT>\n", FormatAmount(entry.Amount))
	if entry.IsParty {
		// Bill reference required for outstanding-bills tracking.
		b.WriteString("       <BILLALLOCATIONS.LIST>\n")
		fmt.Fprintf(b, "        <NAME>%s</NAME>\n", Escape(invoiceNo))
		b.WriteString("        <BILLTYPE>New Ref</BILLTYPE>\n")
		fmt.Fprintf(b, "        <AMOUNT>%s</AMOUNT>\n", FormatAmount(entry.Amount))
		b.WriteString("       </BILLALLOCATIONS.LIST>\n")
	}
	b.WriteString("      </LEDGERENTRIES.LIST>\n")
}
