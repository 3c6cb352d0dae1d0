package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autotally/tallybridge/internal/config"
)

// fakeTally answers both the ledger export and the import push on one URL,
// the way Tally's single HTTP port does.
func fakeTally(t *testing.T, ledgerXML, pushXML string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "<TALLYREQUEST>Export</TALLYREQUEST>") {
			w.Write([]byte(ledgerXML))
			return
		}
		w.Write([]byte(pushXML))
	}))
}

func testServer(t *testing.T, tallyURL string) *Server {
	t.Helper()
	cfg := &config.Config{
		TallyURL:           tallyURL,
		HomeStateCode:      "27",
		DefaultTaxRate:     18,
		PushTimeoutSeconds: 5,
		ListenAddr:         ":0",
		LogLevel:           "info",
	}
	return NewServer(cfg, zap.NewNop().Sugar())
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, "http://localhost:9000")

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandleImportPreview(t *testing.T) {
	s := testServer(t, "http://localhost:9000")

	csv := "Invoice No,Party Name,GSTIN,Date,Taxable Amount,GST Rate\n" +
		"INV-1,Acme Traders,27ABCDE1234F1Z5,15-03-2023,8337.00,12\n" +
		"INV-1,Acme Traders,,15-03-2023,1000,18\n" +
		",Missing Invoice,,15-03-2023,100,18\n"
	body, contentType := multipartCSV(t, "invoices.csv", csv)

	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var preview importResponse
	decodeJSON(t, resp, &preview)

	require.Len(t, preview.Vouchers, 1)
	v := preview.Vouchers[0]
	assert.Equal(t, "INV-1", v.InvoiceNo)
	assert.Equal(t, "Acme Traders", v.PartyName)
	assert.Equal(t, "2023-03-15", v.Date)
	assert.Equal(t, "Purchase", v.Direction)
	assert.Len(t, v.Items, 2)
	assert.Equal(t, 10517.44, v.TotalAmount)

	require.Len(t, preview.Discards, 1)
	assert.Equal(t, 2, preview.Discards[0].RowIndex)
	assert.Equal(t, 1, preview.DuplicateRows)
	assert.Greater(t, preview.MissingCount, 0)
}

func TestHandleImportSalesDirection(t *testing.T) {
	s := testServer(t, "http://localhost:9000")

	csv := "Invoice No,Customer Name,Taxable Amount,GST Rate\nINV-9,Retail Buyer,500,18\n"
	body, contentType := multipartCSV(t, "sales.csv", csv)

	req := httptest.NewRequest(http.MethodPost, "/import?direction=sales", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var preview importResponse
	decodeJSON(t, resp, &preview)
	require.Len(t, preview.Vouchers, 1)
	assert.Equal(t, "Sales", preview.Vouchers[0].Direction)
}

func TestHandleImportRequiresFile(t *testing.T) {
	s := testServer(t, "http://localhost:9000")

	resp, err := s.App().Test(httptest.NewRequest(http.MethodPost, "/import", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlePushValidation(t *testing.T) {
	s := testServer(t, "http://localhost:9000")

	req := httptest.NewRequest(http.MethodPost, "/tally/push", strings.NewReader(`{"vouchers":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/tally/push", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlePushRoundTrip(t *testing.T) {
	tally := fakeTally(t,
		`<ENVELOPE><LEDGER NAME="Acme Traders"><NAME>Acme Traders</NAME></LEDGER></ENVELOPE>`,
		"<RESPONSE><CREATED>1</CREATED></RESPONSE>")
	defer tally.Close()

	s := testServer(t, tally.URL)

	reqBody := `{"vouchers":[{
		"invoiceNo":"INV-1","partyName":"Acme Traders","date":"2023-03-15",
		"gstin":"27ABCDE1234F1Z5","direction":"purchase",
		"items":[{"taxableAmount":8337.00,"taxRatePercent":12}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/tally/push", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pr pushResponse
	decodeJSON(t, resp, &pr)
	assert.Equal(t, "success", pr.Outcome)
	assert.Equal(t, 1, pr.Created)
	// The party ledger already exists, so only rate and tax masters travel.
	assert.NotContains(t, pr.Masters, "Acme Traders")
	assert.Contains(t, pr.Masters, "Purchase @12%")
	assert.Contains(t, pr.Masters, "Input CGST@6%")
}

func TestHandlePushUnreachableTally(t *testing.T) {
	tally := fakeTally(t, "", "")
	tally.Close()

	s := testServer(t, tally.URL)

	reqBody := `{"vouchers":[{
		"invoiceNo":"INV-1","partyName":"Acme Traders","date":"2023-03-15",
		"direction":"purchase",
		"items":[{"taxableAmount":100,"taxRatePercent":18}]}],
		"forceAllMasters":true}`
	req := httptest.NewRequest(http.MethodPost, "/tally/push", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var pr pushResponse
	decodeJSON(t, resp, &pr)
	assert.Equal(t, "unreachable", pr.Outcome)
}

func TestHandleStatus(t *testing.T) {
	tally := fakeTally(t, "", "<RESPONSE/>")
	defer tally.Close()

	s := testServer(t, tally.URL)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/tally/status", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Online bool   `json:"online"`
		Info   string `json:"info"`
	}
	decodeJSON(t, resp, &body)
	assert.True(t, body.Online)
}

func TestHandleLedgers(t *testing.T) {
	tally := fakeTally(t,
		`<ENVELOPE><LEDGER><NAME>Cash</NAME></LEDGER><LEDGER><NAME>Sales @18%</NAME></LEDGER></ENVELOPE>`,
		"")
	defer tally.Close()

	s := testServer(t, tally.URL)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/tally/ledgers", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Ledgers []string `json:"ledgers"`
		Count   int      `json:"count"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, 2, body.Count)
	assert.ElementsMatch(t, []string{"Cash", "Sales @18%"}, body.Ledgers)
}
