package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/autotally/tallybridge/internal/importer"
	"github.com/autotally/tallybridge/internal/normalize"
	"github.com/autotally/tallybridge/internal/pipeline"
	"github.com/autotally/tallybridge/internal/voucher"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// voucherJSON is the review-friendly voucher shape shared by the import
// preview response and the push request.
type voucherJSON struct {
	InvoiceNo   string         `json:"invoiceNo"`
	PartyName   string         `json:"partyName"`
	Date        string         `json:"date"` // YYYY-MM-DD
	GSTIN       string         `json:"gstin,omitempty"`
	Direction   string         `json:"direction"`
	Items       []lineItemJSON `json:"items"`
	TotalAmount float64        `json:"totalAmount"`
}

type lineItemJSON struct {
	TaxableAmount  float64 `json:"taxableAmount"`
	TaxRatePercent float64 `json:"taxRatePercent"`
}

type discardJSON struct {
	RowIndex int    `json:"rowIndex"`
	Reason   string `json:"reason"`
}

type importResponse struct {
	Vouchers      []voucherJSON `json:"vouchers"`
	Discards      []discardJSON `json:"discards"`
	DuplicateRows int           `json:"duplicateRows"`
	MissingCount  int           `json:"requiredMasters"`
}

// handleImport accepts a multipart spreadsheet upload and returns the
// normalized voucher preview without touching Tally.
func (s *Server) handleImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "cannot open upload: "+err.Error())
	}
	defer f.Close()

	raw, err := importer.Read(fh.Filename, f)
	if err != nil {
		return badRequest(c, err.Error())
	}

	dir := normalize.ParseDirection(c.Query("direction", "purchase"))
	batch := s.pl.Convert(raw, dir)

	resp := importResponse{
		Vouchers:      make([]voucherJSON, 0, len(batch.Vouchers)),
		Discards:      make([]discardJSON, 0, len(batch.Discards)),
		DuplicateRows: batch.Stats.DuplicateRows,
		MissingCount:  len(batch.Requirements),
	}
	for _, v := range batch.Vouchers {
		resp.Vouchers = append(resp.Vouchers, voucherToJSON(v))
	}
	for _, d := range batch.Discards {
		resp.Discards = append(resp.Discards, discardJSON{RowIndex: d.RowIndex, Reason: string(d.Reason)})
	}
	return c.JSON(resp)
}

type pushRequest struct {
	Vouchers        []voucherJSON `json:"vouchers"`
	Company         string        `json:"company,omitempty"`
	ForceAllMasters bool          `json:"forceAllMasters,omitempty"`
}

type pushResponse struct {
	Outcome    string   `json:"outcome"`
	Created    int      `json:"created"`
	Altered    int      `json:"altered"`
	Skipped    int      `json:"skipped"`
	ErrorCount int      `json:"errorCount"`
	LineErrors []string `json:"lineErrors,omitempty"`
	Message    string   `json:"message"`
	Masters    []string `json:"mastersCreated,omitempty"`
}

// handlePush converts a reviewed voucher batch, fetches the live ledger
// snapshot (unless forceAllMasters skips it), encodes the envelope and
// pushes it.
func (s *Server) handlePush(c *fiber.Ctx) error {
	var req pushRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body: "+err.Error())
	}
	if len(req.Vouchers) == 0 {
		return badRequest(c, "vouchers must not be empty")
	}

	vouchers, err := vouchersFromJSON(req.Vouchers)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Context()
	batch := s.pl.Batch(vouchers)

	snap, err := s.pl.Snapshot(ctx)
	forceAll := req.ForceAllMasters
	if err != nil {
		s.log.Warnw("ledger snapshot unavailable, forcing all masters", "error", err)
		forceAll = true
	}

	document, missing := s.pl.Encode(batch, snap, pipeline.EncodeOptions{
		Company:         req.Company,
		ForceAllMasters: forceAll,
	})
	result := s.pl.Push(ctx, document)

	resp := pushResponse{
		Outcome:    result.Outcome.String(),
		Created:    result.Created,
		Altered:    result.Altered,
		Skipped:    result.Skipped,
		ErrorCount: result.ErrorCount,
		LineErrors: result.LineErrors,
		Message:    result.Message,
	}
	for _, m := range missing {
		resp.Masters = append(resp.Masters, m.Name)
	}
	status := fiber.StatusOK
	if result.Outcome.String() == "unreachable" {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(resp)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	online, info := s.pl.Client().CheckConnection(c.Context())
	return c.JSON(fiber.Map{"online": online, "info": info})
}

func (s *Server) handleLedgers(c *fiber.Ctx) error {
	snap, err := s.pl.Snapshot(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: err.Error()})
	}
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	return c.JSON(fiber.Map{"ledgers": names, "count": len(names)})
}

func voucherToJSON(v voucher.Voucher) voucherJSON {
	items := make([]lineItemJSON, len(v.Items))
	for i, it := range v.Items {
		items[i] = lineItemJSON{TaxableAmount: it.TaxableAmount, TaxRatePercent: it.TaxRatePercent}
	}
	return voucherJSON{
		InvoiceNo:   v.InvoiceNo,
		PartyName:   v.PartyName,
		Date:        v.Date.Format("2006-01-02"),
		GSTIN:       v.GSTIN,
		Direction:   string(v.Direction),
		Items:       items,
		TotalAmount: v.TotalAmount,
	}
}

func vouchersFromJSON(in []voucherJSON) ([]voucher.Voucher, error) {
	out := make([]voucher.Voucher, 0, len(in))
	for _, vj := range in {
		date, err := time.Parse("2006-01-02", vj.Date)
		if err != nil {
			return nil, err
		}
		v := voucher.Voucher{
			InvoiceNo:   vj.InvoiceNo,
			PartyName:   vj.PartyName,
			Date:        date,
			GSTIN:       normalize.CleanGSTIN(vj.GSTIN),
			Direction:   normalize.ParseDirection(vj.Direction),
			TotalAmount: vj.TotalAmount,
		}
		for _, it := range vj.Items {
			v.Items = append(v.Items, voucher.LineItem{
				TaxableAmount:  it.TaxableAmount,
				TaxRatePercent: it.TaxRatePercent,
			})
		}
		out = append(out, v)
	}
	return out, nil
}
