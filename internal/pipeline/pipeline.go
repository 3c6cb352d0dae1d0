// Package pipeline wires the conversion stages together: normalize rows,
// aggregate vouchers, compute missing masters, encode the envelope and push
// it to Tally. Each batch is processed synchronously; the only blocking
// operation is the push round trip.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/autotally/tallybridge/internal/config"
	"github.com/autotally/tallybridge/internal/ledger"
	"github.com/autotally/tallybridge/internal/normalize"
	"github.com/autotally/tallybridge/internal/tally"
	"github.com/autotally/tallybridge/internal/tax"
	"github.com/autotally/tallybridge/internal/voucher"
)

// Pipeline runs conversion batches against one configuration.
type Pipeline struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	engine tax.Engine
	client *tally.Client
}

// New builds a Pipeline from the configuration.
func New(cfg *config.Config, log *zap.SugaredLogger) *Pipeline {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pipeline{
		cfg:    cfg,
		log:    log,
		engine: tax.NewEngine(cfg.HomeStateCode),
		client: tally.NewClient(cfg.TallyURL, cfg.PushTimeout(), log),
	}
}

// Engine exposes the tax engine for callers that resolve jurisdictions.
func (p *Pipeline) Engine() tax.Engine { return p.engine }

// Client exposes the Tally client for status and snapshot queries.
func (p *Pipeline) Client() *tally.Client { return p.client }

// BatchResult is the outcome of converting one raw-row batch.
type BatchResult struct {
	Vouchers     []voucher.Voucher
	Discards     []normalize.Discard
	Stats        voucher.Stats
	Requirements []ledger.Requirement
}

// Convert normalizes and aggregates raw rows for one direction and computes
// the batch's full master requirement set.
func (p *Pipeline) Convert(raw []normalize.RawRow, dir normalize.Direction) BatchResult {
	n := normalize.New(dir, p.cfg.DefaultTaxRate)
	rows, discards := n.Rows(raw)
	vouchers, stats := voucher.Aggregate(rows)

	p.log.Infow("batch converted",
		"rows", len(raw),
		"discarded", len(discards),
		"duplicates", stats.DuplicateRows,
		"vouchers", len(vouchers),
	)
	return BatchResult{
		Vouchers:     vouchers,
		Discards:     discards,
		Stats:        stats,
		Requirements: ledger.Requirements(vouchers, p.engine),
	}
}

// Batch wraps already-aggregated vouchers (e.g. a reviewed batch submitted
// over the API) with their master requirement set.
func (p *Pipeline) Batch(vouchers []voucher.Voucher) BatchResult {
	return BatchResult{
		Vouchers:     vouchers,
		Requirements: ledger.Requirements(vouchers, p.engine),
	}
}

// EncodeOptions control envelope generation for one batch.
type EncodeOptions struct {
	// Company overrides the configured company context.
	Company string
	// ForceAllMasters ignores the snapshot and emits every required
	// master. Used when the snapshot is known to be unreliable; risks
	// duplicate-master creation.
	ForceAllMasters bool
}

// Encode serializes a batch into an import document, filtering masters
// through the snapshot unless ForceAllMasters is set. It returns the
// document together with the masters it will create.
func (p *Pipeline) Encode(batch BatchResult, snap ledger.Snapshot, opts EncodeOptions) (string, []ledger.Requirement) {
	missing := ledger.Missing(batch.Requirements, snap, opts.ForceAllMasters)
	company := opts.Company
	if company == "" {
		company = p.cfg.CompanyName
	}
	enc := tally.NewEncoder(company, p.engine)
	return enc.Encode(batch.Vouchers, missing), missing
}

// Snapshot fetches the target system's current ledger names. The value is
// point-in-time only; callers deciding between Snapshot and ForceAllMasters
// own the staleness trade-off.
func (p *Pipeline) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	snap, err := p.client.FetchLedgers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching ledger snapshot: %w", err)
	}
	return snap, nil
}

// Push submits an encoded document and interprets the response.
func (p *Pipeline) Push(ctx context.Context, document string) tally.PushResult {
	result := p.client.Push(ctx, document)
	p.log.Infow("push finished",
		"outcome", result.Outcome.String(),
		"created", result.Created,
		"altered", result.Altered,
		"skipped", result.Skipped,
		"errors", result.ErrorCount,
	)
	return result
}
