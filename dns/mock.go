package dns

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// MockResolver is a Resolver used for testing.
// Set DNS records in the fields, which map FQDNs (with trailing dot) to
// values.
type MockResolver struct {
	// TXT maps FQDNs to TXT record values.
	TXT map[string][]string

	// CNAME maps FQDNs to CNAME targets.
	CNAME map[string][]string

	// CAA maps FQDNs to CAA records.
	CAA map[string][]Record

	// Fail contains queries that will return a transport error.
	// Format: "type name", e.g. "txt example.com." where type is lowercase.
	Fail []string

	// NXDomain contains FQDNs that return NXDOMAIN for every type.
	NXDomain []string

	// AllAuthentic sets the Authentic flag on every response.
	AllAuthentic bool

	// Server is reported as the responding server. Defaults to "mock:53".
	Server string
}

var _ Resolver = (*MockResolver)(nil)

func (r *MockResolver) server() string {
	if r.Server == "" {
		return "mock:53"
	}
	return r.Server
}

// Query tries the candidate names in order against the configured maps.
func (r *MockResolver) Query(ctx context.Context, names []string, rtype Type) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var errs []error
	var lastErr error

	for _, name := range names {
		fqdn := FQDN(name)
		resp, err := r.queryName(fqdn, rtype)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			lastErr = err
			continue
		}
		resp.Errs = errs
		return resp, nil
	}

	return &Response{Errs: errs}, lastErr
}

func (r *MockResolver) queryName(fqdn string, rtype Type) (*Response, error) {
	key := strings.ToLower(string(rtype)) + " " + fqdn
	if slices.Contains(r.Fail, key) {
		return nil, ErrServFail
	}
	if slices.Contains(r.NXDomain, fqdn) {
		return nil, ErrNXDomain
	}

	resp := &Response{
		Server:    r.server(),
		Name:      strings.TrimSuffix(fqdn, "."),
		Authentic: r.AllAuthentic,
	}

	switch rtype {
	case TypeTXT:
		for _, v := range r.TXT[fqdn] {
			resp.Records = append(resp.Records, Record{Type: TypeTXT, Name: resp.Name, Value: v, TTL: 300})
		}
	case TypeCNAME:
		for _, v := range r.CNAME[fqdn] {
			resp.Records = append(resp.Records, Record{Type: TypeCNAME, Name: resp.Name, Value: v, TTL: 300})
			resp.CNAMEChain = append(resp.CNAMEChain, v)
		}
	case TypeCAA:
		for _, rec := range r.CAA[fqdn] {
			rec.Type = TypeCAA
			if rec.Name == "" {
				rec.Name = resp.Name
			}
			resp.Records = append(resp.Records, rec)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported record type %q", ErrMalformed, rtype)
	}

	if len(resp.Records) == 0 {
		return nil, ErrNotFound
	}
	return resp, nil
}
