// Package ledger computes the set of master records a voucher batch will
// reference and diffs it against a snapshot of ledgers the target system
// already knows about.
package ledger

import (
	"regexp"
	"sort"
	"strings"

	"github.com/autotally/tallybridge/internal/normalize"
	"github.com/autotally/tallybridge/internal/tax"
	"github.com/autotally/tallybridge/internal/voucher"
)

// MaxNameLength is the target system's ledger name limit.
const MaxNameLength = 50

var (
	reDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\s\-\.\(\)%]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// CleanName sanitizes a ledger name to the target system's allowed character
// set and length. Truncation happens here, before any name equality check,
// so two long names that truncate identically collide visibly rather than
// silently diverging between the registry and the encoder.
func CleanName(name string) string {
	cleaned := reDisallowed.ReplaceAllString(name, "")
	cleaned = reWhitespace.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > MaxNameLength {
		cleaned = strings.TrimSpace(cleaned[:MaxNameLength])
	}
	if cleaned == "" {
		return "Unnamed"
	}
	return cleaned
}

// Kind classifies a master record.
type Kind int

const (
	KindParty Kind = iota
	KindItem
	KindTax
)

// Requirement is one master record a batch needs, with enough metadata for
// the encoder to emit its creation record.
type Requirement struct {
	Name   string
	Kind   Kind
	Parent string

	// GSTRate applies to item and tax ledgers (half rate for CGST/SGST).
	GSTRate float64
	// DutyHead applies to tax ledgers: Central, State or Integrated Tax.
	DutyHead string

	// Party metadata, set for KindParty only.
	GSTIN     string
	StateName string
}

// Snapshot is an externally supplied set of ledger names already present in
// the target system. It is a point-in-time value; concurrent pushes can make
// it stale (the target's create action not duplicating same-name ledgers is
// the only safety net).
type Snapshot map[string]struct{}

// NewSnapshot builds a Snapshot from raw ledger names.
func NewSnapshot(names []string) Snapshot {
	s := make(Snapshot, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is already known to the target system.
func (s Snapshot) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func partyGroup(d normalize.Direction) string {
	if d == normalize.DirectionSale {
		return "Sundry Debtors"
	}
	return "Sundry Creditors"
}

func itemGroup(d normalize.Direction) string {
	if d == normalize.DirectionSale {
		return "Sales Accounts"
	}
	return "Purchase Accounts"
}

// Requirements computes every master record a batch references: the party
// ledger, one direction-by-rate ledger per distinct rate, and the tax
// ledgers the jurisdiction demands. Deduplicated by name, first-appearance
// order, independent of any snapshot.
func Requirements(vouchers []voucher.Voucher, engine tax.Engine) []Requirement {
	var reqs []Requirement
	seen := make(map[string]struct{})
	add := func(r Requirement) {
		if _, ok := seen[r.Name]; ok {
			return
		}
		seen[r.Name] = struct{}{}
		reqs = append(reqs, r)
	}

	for _, v := range vouchers {
		add(Requirement{
			Name:      CleanName(v.PartyName),
			Kind:      KindParty,
			Parent:    partyGroup(v.Direction),
			GSTIN:     v.GSTIN,
			StateName: engine.PartyState(v.GSTIN),
		})

		jurisdiction := engine.Jurisdiction(v.GSTIN)
		for _, item := range v.Items {
			rate := item.TaxRatePercent
			add(Requirement{
				Name:    tax.ItemLedgerName(v.Direction, rate),
				Kind:    KindItem,
				Parent:  itemGroup(v.Direction),
				GSTRate: rate,
			})
			if rate <= 0 {
				continue
			}
			if jurisdiction == tax.InterState {
				add(Requirement{
					Name:     tax.IGSTLedgerName(v.Direction, rate),
					Kind:     KindTax,
					Parent:   "Duties & Taxes",
					GSTRate:  rate,
					DutyHead: "Integrated Tax",
				})
				continue
			}
			half := rate / 2
			add(Requirement{
				Name:     tax.CGSTLedgerName(v.Direction, half),
				Kind:     KindTax,
				Parent:   "Duties & Taxes",
				GSTRate:  half,
				DutyHead: "Central Tax",
			})
			add(Requirement{
				Name:     tax.SGSTLedgerName(v.Direction, half),
				Kind:     KindTax,
				Parent:   "Duties & Taxes",
				GSTRate:  half,
				DutyHead: "State Tax",
			})
		}
	}
	return reqs
}

// Missing filters requirements down to the masters the target system does
// not yet have, sorted by name for deterministic diffing. With forceAll set
// the snapshot is ignored and every requirement is returned; callers must
// warn that this risks duplicate-master creation on systems where create is
// not idempotent.
func Missing(reqs []Requirement, snap Snapshot, forceAll bool) []Requirement {
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		if !forceAll && snap.Has(r.Name) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names projects requirements onto their ledger names, preserving order.
func Names(reqs []Requirement) []string {
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Name
	}
	return names
}
