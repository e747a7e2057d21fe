package mpic

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/synqronlabs/dcv/dns"
)

// DNSResult is the outcome of a corroborated DNS lookup.
type DNSResult struct {
	Status Status

	// Primary is the primary perspective's answer, nil on primary failure.
	Primary *dns.Response

	// PrimaryErr is the primary perspective's failure, if any.
	PrimaryErr error

	// Secondaries maps agent IDs to their answers. Failed agents are
	// absent.
	Secondaries map[string]*dns.Response

	// Details is the corroboration evidence.
	Details *Details
}

// LookupDNS asks the primary perspective for records at fqdn and, unless
// opts.PrimaryOnly is set, corroborates the answer across the secondary
// perspectives. The primary's transport failure short-circuits the
// fan-out entirely.
func (e *Engine) LookupDNS(ctx context.Context, fqdn string, rtype dns.Type, opts Options) *DNSResult {
	details := e.newDetails()
	result := &DNSResult{Details: details, Secondaries: map[string]*dns.Response{}}

	pctx, cancel := context.WithTimeout(ctx, e.timeout())
	resp, err := e.Primary.LookupDNS(pctx, fqdn, rtype)
	cancel()

	if err != nil {
		result.PrimaryErr = err
		result.Status = classifyPrimaryDNSFailure(err)
		e.logger().Debug("primary dns lookup failed",
			slog.String("trace_id", details.TraceID),
			slog.String("fqdn", fqdn),
			slog.String("type", string(rtype)),
			slog.String("status", string(result.Status)),
			slog.Any("error", err))
		return result
	}

	result.Primary = resp
	details.CNAMEChain = resp.CNAMEChain
	if resp.Authentic {
		details.DNSSEC = "secure"
	} else {
		details.DNSSEC = "insecure"
	}

	if e.RequireDNSSEC && !resp.Authentic {
		result.Status = StatusDNSSECFailure
		return result
	}

	if len(resp.Records) == 0 {
		result.Status = StatusValueNotFound
		return result
	}

	if opts.PrimaryOnly {
		details.Corroborated = true
		result.Status = StatusCorroborated
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, agent := range e.Secondaries {
		agent := agent
		details.SecondariesChecked++
		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, e.timeout())
			defer cancel()

			sresp, serr := agent.LookupDNS(actx, fqdn, rtype)

			mu.Lock()
			defer mu.Unlock()
			if serr != nil {
				details.AgentCorroboration[agent.ID()] = false
				return nil
			}
			result.Secondaries[agent.ID()] = sresp
			details.AgentCorroboration[agent.ID()] = dnsAgrees(resp, sresp, opts.MatchValue)
			return nil
		})
	}
	_ = g.Wait()

	result.Status = e.decide(details)
	e.logger().Debug("dns lookup corroborated",
		slog.String("trace_id", details.TraceID),
		slog.String("fqdn", fqdn),
		slog.String("type", string(rtype)),
		slog.String("status", string(result.Status)),
		slog.Int("secondaries", details.SecondariesChecked))
	return result
}

// dnsAgrees decides whether a secondary answer corroborates the primary:
// the same record set order-insensitively, or, when matchValue is set,
// any record carrying exactly that value.
func dnsAgrees(primary, secondary *dns.Response, matchValue string) bool {
	if matchValue != "" {
		return slices.Contains(secondary.Values(), matchValue)
	}
	return dns.EqualRecordSets(primary.Records, secondary.Records)
}

// classifyPrimaryDNSFailure distinguishes a definitive empty answer from
// a perspective that could not look at all.
func classifyPrimaryDNSFailure(err error) Status {
	switch {
	case dns.IsNotFound(err):
		return StatusValueNotFound
	case dns.IsTransport(err):
		return StatusPrimaryFailure
	default:
		return StatusError
	}
}
