// Package mpic implements Multi-Perspective Issuance Corroboration: one
// lookup is issued from a primary network perspective and zero or more
// secondary perspectives, and the answers are reconciled into a single
// corroborated result.
//
// A perspective is modelled by the Agent interface. The Engine asks the
// primary first; only if the primary produces a substantive answer does
// it fan out to the secondaries concurrently, compare each answer against
// the primary's, and decide whether enough perspectives agree. The
// decision plus per-agent provenance is captured in an immutable Details
// record intended for audit evidence.
package mpic

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/fetch"
)

// Status classifies the outcome of a corroborated lookup.
type Status string

const (
	// StatusCorroborated indicates the primary found the value and enough
	// secondaries agreed (or corroboration is not enforced).
	StatusCorroborated Status = "corroborated"

	// StatusNonCorroborated indicates the primary found the value but
	// fewer secondaries than the quorum agreed, with enforcement on.
	StatusNonCorroborated Status = "non_corroborated"

	// StatusValueNotFound indicates the primary answered definitively but
	// returned nothing to corroborate.
	StatusValueNotFound Status = "value_not_found"

	// StatusPrimaryFailure indicates the primary perspective failed at the
	// transport level; no secondary fan-out occurred.
	StatusPrimaryFailure Status = "primary_agent_failure"

	// StatusDNSSECFailure indicates DNSSEC validation was required and the
	// primary answer was not authenticated.
	StatusDNSSECFailure Status = "dnssec_failure"

	// StatusError indicates an unclassified failure.
	StatusError Status = "error"
)

// Agent is one network perspective able to perform the engine's lookups.
type Agent interface {
	// ID identifies the perspective in evidence records.
	ID() string

	// LookupDNS queries a single FQDN for records of the given type.
	LookupDNS(ctx context.Context, fqdn string, rtype dns.Type) (*dns.Response, error)

	// FetchFile retrieves a URL.
	FetchFile(ctx context.Context, url string) (*fetch.Result, error)
}

// LocalAgent is the default Agent: a perspective backed by a DNS resolver
// and an HTTP fetcher running in this process.
type LocalAgent struct {
	id       string
	resolver dns.Resolver
	fetcher  fetch.Fetcher
}

var _ Agent = (*LocalAgent)(nil)

// NewLocalAgent builds an agent from the given collaborators.
func NewLocalAgent(id string, resolver dns.Resolver, fetcher fetch.Fetcher) *LocalAgent {
	return &LocalAgent{id: id, resolver: resolver, fetcher: fetcher}
}

// ID returns the agent identifier.
func (a *LocalAgent) ID() string { return a.id }

// LookupDNS queries the agent's resolver.
func (a *LocalAgent) LookupDNS(ctx context.Context, fqdn string, rtype dns.Type) (*dns.Response, error) {
	return a.resolver.Query(ctx, []string{fqdn}, rtype)
}

// FetchFile retrieves a URL through the agent's fetcher.
func (a *LocalAgent) FetchFile(ctx context.Context, url string) (*fetch.Result, error) {
	return a.fetcher.Fetch(ctx, url)
}

// Details is the corroboration evidence attached to a validation. It is
// built once per lookup and never mutated afterwards.
type Details struct {
	// TraceID is a unique identifier for this lookup.
	TraceID string

	// Corroborated reports the final decision.
	Corroborated bool

	// PrimaryAgent is the ID of the primary perspective.
	PrimaryAgent string

	// SecondariesChecked is the number of secondary perspectives asked.
	SecondariesChecked int

	// SecondariesCorroborated is the number that agreed with the primary.
	SecondariesCorroborated int

	// AgentCorroboration records the per-agent decision.
	AgentCorroboration map[string]bool

	// DNSSEC is "secure" or "insecure" for DNS lookups, empty otherwise.
	DNSSEC string

	// CNAMEChain lists CNAME targets traversed by the primary answer.
	CNAMEChain []string
}

// Options adjusts a single lookup.
type Options struct {
	// PrimaryOnly skips the secondary fan-out. Used by callers that only
	// need lookup locations for display, not corroborated evidence.
	PrimaryOnly bool

	// MatchValue switches corroboration from record-set equality to value
	// agreement: a secondary corroborates if its answer contains exactly
	// this value. Used for request-token searches, where record sets may
	// differ but the validated token must be identical everywhere.
	MatchValue string
}

// Engine reconciles lookups across perspectives.
type Engine struct {
	// Primary is the perspective whose answer is authoritative. Required.
	Primary Agent

	// Secondaries are the corroborating perspectives.
	Secondaries []Agent

	// Quorum is the number of secondaries that must agree with the
	// primary. When 0 it defaults to len(Secondaries)-1 (at most one
	// dissenting perspective) if there are at least two secondaries,
	// otherwise to len(Secondaries).
	Quorum int

	// Enforce turns a missed quorum into StatusNonCorroborated. When
	// false the decision is still recorded in Details but does not fail
	// the lookup.
	Enforce bool

	// RequireDNSSEC fails DNS lookups whose primary answer lacks the AD
	// flag.
	RequireDNSSEC bool

	// AgentTimeout bounds each perspective's lookup. Default 10 seconds.
	AgentTimeout time.Duration

	// Logger receives corroboration decisions. Defaults to slog.Default().
	Logger *slog.Logger
}

func (e *Engine) timeout() time.Duration {
	if e.AgentTimeout == 0 {
		return 10 * time.Second
	}
	return e.AgentTimeout
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// quorum returns the effective corroboration quorum.
func (e *Engine) quorum() int {
	if e.Quorum > 0 {
		return e.Quorum
	}
	n := len(e.Secondaries)
	if n >= 2 {
		return n - 1
	}
	return n
}

func (e *Engine) newDetails() *Details {
	return &Details{
		TraceID:            ulid.Make().String(),
		PrimaryAgent:       e.Primary.ID(),
		AgentCorroboration: map[string]bool{},
	}
}

// decide counts the per-agent votes and fixes the final status.
func (e *Engine) decide(details *Details) Status {
	for _, ok := range details.AgentCorroboration {
		if ok {
			details.SecondariesCorroborated++
		}
	}

	quorum := e.quorum()
	met := details.SecondariesCorroborated >= quorum

	// The audit record always reflects the real outcome; Enforce only
	// decides whether a miss fails the lookup.
	details.Corroborated = met

	if !met {
		e.logger().Debug("corroboration quorum missed",
			slog.String("trace_id", details.TraceID),
			slog.Int("quorum", quorum),
			slog.Int("corroborated", details.SecondariesCorroborated),
			slog.Int("checked", details.SecondariesChecked))
		if e.Enforce {
			return StatusNonCorroborated
		}
	}
	return StatusCorroborated
}
