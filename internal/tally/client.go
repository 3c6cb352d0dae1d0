package tally

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/autotally/tallybridge/internal/ledger"
)

// DefaultURL is where a locally running Tally instance listens.
const DefaultURL = "http://localhost:9000"

// Outcome classifies a push attempt.
type Outcome int

const (
	// OutcomeUnreachable means the target never answered: connection
	// refused, timeout, DNS failure. Retryable by the caller.
	OutcomeUnreachable Outcome = iota
	// OutcomeRejected means the target answered but created nothing and
	// reported one or more line-level errors.
	OutcomeRejected
	// OutcomeSuccess means every record was accepted.
	OutcomeSuccess
	// OutcomePartial means some records were accepted and some skipped or
	// errored.
	OutcomePartial
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSuccess:
		return "success"
	default:
		return "partial"
	}
}

// PushResult is the interpreted response to one import push.
type PushResult struct {
	Outcome    Outcome
	Created    int
	Altered    int
	Skipped    int
	ErrorCount int
	LineErrors []string
	Message    string
}

// OK reports whether the push created or altered anything without rejection.
func (r PushResult) OK() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomePartial
}

// Tally's success and error payloads vary across versions and are not always
// well-formed XML, so markers are extracted by tolerant text search instead
// of a strict parse.
var (
	reCreated     = regexp.MustCompile(`<CREATED>(\d+)</CREATED>`)
	reAltered     = regexp.MustCompile(`<ALTERED>(\d+)</ALTERED>`)
	reIgnored     = regexp.MustCompile(`<IGNORED>(\d+)</IGNORED>`)
	reErrors      = regexp.MustCompile(`<ERRORS>(\d+)</ERRORS>`)
	reLineError   = regexp.MustCompile(`<LINEERROR>([^<]*)</LINEERROR>`)
	reErrorTag    = regexp.MustCompile(`<ERROR[^>]*>([^<]+)</ERROR>`)
	reImportError = regexp.MustCompile(`<IMPORTERROR>([^<]*)</IMPORTERROR>`)
	reLedgerName  = regexp.MustCompile(`(?s)<LEDGER[^>]*>.*?<NAME[^>]*>([^<]+)</NAME>`)
)

// Client talks to a single Tally import endpoint.
type Client struct {
	url  string
	http *http.Client
	log  *zap.SugaredLogger
}

// NewClient returns a Client for the given endpoint. timeout bounds the
// push round trip; the zero value falls back to 30 seconds.
func NewClient(url string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Push submits an import document and interprets the response. All failure
// modes are reported through the PushResult, never by panic; concurrent
// batches are not serialized here — Tally's own create action not
// duplicating a same-name ledger is the safety net against snapshot races.
func (c *Client) Push(ctx context.Context, document string) PushResult {
	c.log.Debugw("pushing import document", "bytes", len(document))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(document))
	if err != nil {
		return PushResult{Outcome: OutcomeUnreachable, Message: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("tally unreachable", "url", c.url, "error", err)
		return PushResult{Outcome: OutcomeUnreachable, Message: fmt.Sprintf("tally unreachable at %s: %v", c.url, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PushResult{Outcome: OutcomeUnreachable, Message: fmt.Sprintf("reading response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return PushResult{
			Outcome: OutcomeRejected,
			Message: fmt.Sprintf("tally returned HTTP %d", resp.StatusCode),
		}
	}
	return Interpret(string(body))
}

// Interpret reads result markers out of a raw response body.
func Interpret(body string) PushResult {
	result := PushResult{
		Created:    scrapeInt(reCreated, body),
		Altered:    scrapeInt(reAltered, body),
		Skipped:    scrapeInt(reIgnored, body),
		ErrorCount: scrapeInt(reErrors, body),
	}
	for _, re := range []*regexp.Regexp{reLineError, reErrorTag, reImportError} {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			if text := strings.TrimSpace(m[1]); text != "" {
				result.LineErrors = append(result.LineErrors, text)
			}
		}
	}
	if result.ErrorCount < len(result.LineErrors) {
		result.ErrorCount = len(result.LineErrors)
	}

	accepted := result.Created + result.Altered
	switch {
	case accepted == 0 && result.ErrorCount > 0:
		result.Outcome = OutcomeRejected
		result.Message = fmt.Sprintf("tally rejected the import: %s", joinErrors(result.LineErrors))
	case accepted == 0:
		result.Outcome = OutcomeRejected
		result.Message = "tally ignored the request"
	case result.ErrorCount > 0 || result.Skipped > 0:
		result.Outcome = OutcomePartial
		result.Message = fmt.Sprintf("partial import: created %d, altered %d, skipped %d, errors %d",
			result.Created, result.Altered, result.Skipped, result.ErrorCount)
	default:
		result.Outcome = OutcomeSuccess
		result.Message = fmt.Sprintf("created %d, altered %d", result.Created, result.Altered)
	}
	return result
}

func joinErrors(errs []string) string {
	if len(errs) == 0 {
		return "no error detail reported"
	}
	// Cap the detail at the first five lines.
	if len(errs) > 5 {
		errs = errs[:5]
	}
	return strings.Join(errs, "; ")
}

func scrapeInt(re *regexp.Regexp, body string) int {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

const exportLedgersRequest = `<ENVELOPE>
 <HEADER>
  <TALLYREQUEST>Export</TALLYREQUEST>
 </HEADER>
 <BODY>
  <EXPORTDATA>
   <REQUESTDESC>
    <REPORTNAME>List of Accounts</REPORTNAME>
   </REQUESTDESC>
  </EXPORTDATA>
 </BODY>
</ENVELOPE>`

// FetchLedgers asks Tally for its account list and returns the ledger-name
// snapshot. The snapshot is a point-in-time value; a concurrent batch can
// create a ledger between this call and a subsequent push.
func (c *Client) FetchLedgers(ctx context.Context) (ledger.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(exportLedgersRequest))
	if err != nil {
		return nil, fmt.Errorf("building ledger export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching ledgers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching ledgers: tally returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading ledger export: %w", err)
	}

	snap := make(ledger.Snapshot)
	for _, m := range reLedgerName.FindAllStringSubmatch(string(body), -1) {
		name := strings.TrimSpace(m[1])
		if name != "" {
			snap[name] = struct{}{}
		}
	}
	c.log.Debugw("fetched existing ledgers", "count", len(snap))
	return snap, nil
}

// CheckConnection reports whether the Tally endpoint answers at all.
func (c *Client) CheckConnection(ctx context.Context) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, err.Error()
	}
	shortClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := shortClient.Do(req)
	if err != nil {
		return false, fmt.Sprintf("offline: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return true, fmt.Sprintf("tally answered with HTTP %d", resp.StatusCode)
}
