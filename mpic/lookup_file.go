package mpic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/synqronlabs/dcv/fetch"
)

// FileResult is the outcome of a corroborated file lookup.
type FileResult struct {
	Status Status

	// Primary is the primary perspective's successful fetch, nil when no
	// candidate URL produced one.
	Primary *fetch.Result

	// URL is the candidate URL the primary answer came from.
	URL string

	// PrimaryErrs collects the primary perspective's per-URL failures.
	PrimaryErrs []error

	// Secondaries maps agent IDs to their fetches of URL. Failed agents
	// are absent.
	Secondaries map[string]*fetch.Result

	// Details is the corroboration evidence.
	Details *Details
}

// LookupFile tries the candidate URLs in order on the primary perspective
// and corroborates the first successful fetch across the secondaries.
// A fetch is successful when it returns a 2xx status and, when
// opts.MatchValue is set, a body carrying that value; other statuses,
// value misses and transport failures are collected per URL.
func (e *Engine) LookupFile(ctx context.Context, urls []string, opts Options) *FileResult {
	details := e.newDetails()
	result := &FileResult{Details: details, Secondaries: map[string]*fetch.Result{}}

	var sawResponse bool
	for _, url := range urls {
		pctx, cancel := context.WithTimeout(ctx, e.timeout())
		fres, err := e.Primary.FetchFile(pctx, url)
		cancel()

		if err != nil {
			result.PrimaryErrs = append(result.PrimaryErrs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		sawResponse = true
		if fres.StatusCode < 200 || fres.StatusCode > 299 {
			result.PrimaryErrs = append(result.PrimaryErrs, fmt.Errorf("%s: %w", url, statusError(fres.StatusCode)))
			continue
		}
		if opts.MatchValue != "" && !strings.Contains(fres.Body, opts.MatchValue) {
			result.PrimaryErrs = append(result.PrimaryErrs, fmt.Errorf("%s: %w", url, ErrFileValueMissing))
			continue
		}
		result.Primary = fres
		result.URL = url
		break
	}

	if result.Primary == nil {
		if sawResponse {
			result.Status = StatusValueNotFound
		} else {
			result.Status = StatusPrimaryFailure
		}
		e.logger().Debug("primary file lookup failed",
			slog.String("trace_id", details.TraceID),
			slog.String("status", string(result.Status)),
			slog.Int("urls", len(urls)))
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

			sres, serr := agent.FetchFile(actx, result.URL)

			mu.Lock()
			defer mu.Unlock()
			if serr != nil {
				details.AgentCorroboration[agent.ID()] = false
				return nil
			}
			result.Secondaries[agent.ID()] = sres
			details.AgentCorroboration[agent.ID()] = fileAgrees(result.Primary, sres, opts.MatchValue)
			return nil
		})
	}
	_ = g.Wait()

	result.Status = e.decide(details)
	e.logger().Debug("file lookup corroborated",
		slog.String("trace_id", details.TraceID),
		slog.String("url", result.URL),
		slog.String("status", string(result.Status)),
		slog.Int("secondaries", details.SecondariesChecked))
	return result
}

// fileAgrees decides whether a secondary fetch corroborates the primary:
// the same status code class, and the same located challenge value when
// one is being matched, otherwise an identical body.
func fileAgrees(primary, secondary *fetch.Result, matchValue string) bool {
	if primary.StatusCode/100 != secondary.StatusCode/100 {
		return false
	}
	if matchValue != "" {
		return strings.Contains(secondary.Body, matchValue)
	}
	return primary.Body == secondary.Body
}

// statusError describes a non-2xx fetch status.
func statusError(code int) error {
	switch {
	case code == 404:
		return fmt.Errorf("%w (%d)", ErrFileNotFound, code)
	case code >= 500:
		return fmt.Errorf("%w (%d)", ErrFileServerStatus, code)
	default:
		return fmt.Errorf("%w (%d)", ErrFileClientStatus, code)
	}
}
