package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotally/tallybridge/internal/config"
	"github.com/autotally/tallybridge/internal/ledger"
	"github.com/autotally/tallybridge/internal/normalize"
)

func testPipeline() *Pipeline {
	return New(&config.Config{
		TallyURL:           "http://localhost:9000",
		HomeStateCode:      "27",
		DefaultTaxRate:     18,
		PushTimeoutSeconds: 5,
	}, nil)
}

func testRows() []normalize.RawRow {
	return []normalize.RawRow{
		{
			normalize.FieldInvoiceNo: "INV-1",
			normalize.FieldPartyName: "Acme Traders",
			normalize.FieldGSTIN:     "27ABCDE1234F1Z5",
			normalize.FieldDate:      "15-03-2023",
			normalize.FieldTaxable:   "8337.00",
			normalize.FieldTaxRate:   "12",
		},
		{
			normalize.FieldPartyName: "No Invoice Ltd",
		},
	}
}

func TestConvert(t *testing.T) {
	p := testPipeline()

	batch := p.Convert(testRows(), normalize.DirectionPurchase)

	require.Len(t, batch.Vouchers, 1)
	assert.Equal(t, "INV-1", batch.Vouchers[0].InvoiceNo)
	require.Len(t, batch.Discards, 1)
	assert.Equal(t, normalize.ReasonMissingInvoiceNo, batch.Discards[0].Reason)
	assert.Equal(t, []string{
		"Acme Traders",
		"Purchase @12%",
		"Input CGST@6%",
		"Input SGST@6%",
	}, ledger.Names(batch.Requirements))
}

func TestBatchRecomputesRequirements(t *testing.T) {
	p := testPipeline()
	converted := p.Convert(testRows(), normalize.DirectionPurchase)

	batch := p.Batch(converted.Vouchers)
	assert.Equal(t, ledger.Names(converted.Requirements), ledger.Names(batch.Requirements))
}

func TestEncodeFiltersThroughSnapshot(t *testing.T) {
	p := testPipeline()
	batch := p.Convert(testRows(), normalize.DirectionPurchase)

	snap := ledger.NewSnapshot([]string{"Acme Traders", "Purchase @12%"})
	doc, missing := p.Encode(batch, snap, EncodeOptions{})

	assert.Equal(t, []string{"Input CGST@6%", "Input SGST@6%"}, ledger.Names(missing))
	assert.Contains(t, doc, `<LEDGER NAME="Input CGST@6%" ACTION="Create">`)
	assert.NotContains(t, doc, `<LEDGER NAME="Acme Traders"`)
	// The voucher still references the existing party ledger.
	assert.Contains(t, doc, "<PARTYLEDGERNAME>Acme Traders</PARTYLEDGERNAME>")

	_, all := p.Encode(batch, snap, EncodeOptions{ForceAllMasters: true})
	assert.Len(t, all, 4)
}

func TestEncodeCompanyOverride(t *testing.T) {
	p := testPipeline()
	batch := p.Convert(testRows(), normalize.DirectionPurchase)

	doc, _ := p.Encode(batch, nil, EncodeOptions{})
	assert.Contains(t, doc, "<SVCURRENTCOMPANY>##SVCurrentCompany</SVCURRENTCOMPANY>")

	doc, _ = p.Encode(batch, nil, EncodeOptions{Company: "Demo Co"})
	assert.Contains(t, doc, "<SVCURRENTCOMPANY>Demo Co</SVCURRENTCOMPANY>")
}
