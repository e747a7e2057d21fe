// Package dns provides the raw DNS client boundary for domain control
// validation.
//
// The package defines a narrow Resolver interface that the validation
// engine consumes: given an ordered list of candidate names and a record
// type, return the records found at the first name that yields a
// substantive answer. Failures are classified into a small set of
// sentinel errors so callers can map them deterministically into their
// own error taxonomy.
//
// Client is the production implementation built on github.com/miekg/dns.
// MockResolver provides an in-memory implementation for tests.
package dns

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Type identifies a DNS record type relevant to domain control validation.
type Type string

const (
	// TypeCNAME is a canonical-name record.
	TypeCNAME Type = "CNAME"

	// TypeTXT is a text record.
	TypeTXT Type = "TXT"

	// TypeCAA is a certification-authority-authorization record (RFC 8659).
	TypeCAA Type = "CAA"
)

// Sentinel errors classifying DNS lookup failures.
var (
	// ErrNotFound indicates the name exists but carries no records of the
	// requested type.
	ErrNotFound = errors.New("dns: no records found")

	// ErrNXDomain indicates the name does not exist (NXDOMAIN).
	ErrNXDomain = errors.New("dns: domain not found")

	// ErrTimeout indicates the query timed out against every configured server.
	ErrTimeout = errors.New("dns: query timed out")

	// ErrIO indicates a network I/O failure talking to a server.
	ErrIO = errors.New("dns: i/o error")

	// ErrMalformed indicates the server returned a response that could not
	// be parsed.
	ErrMalformed = errors.New("dns: malformed response")

	// ErrUnknownHost indicates a configured server could not be resolved
	// or reached at all.
	ErrUnknownHost = errors.New("dns: unknown host")

	// ErrServFail indicates the server answered SERVFAIL.
	ErrServFail = errors.New("dns: server failure")
)

// IsNotFound reports whether err indicates an empty or non-existent answer
// rather than a transport failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNXDomain)
}

// IsTimeout reports whether err indicates a query timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsTransport reports whether err indicates a transport-level failure that
// justifies failing over to the next configured server.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrIO) ||
		errors.Is(err, ErrUnknownHost)
}

// Record is a single DNS record as consumed by the validation engine.
// Flag and Tag are populated only for CAA records.
type Record struct {
	Type  Type
	Name  string
	Value string
	TTL   uint32

	// CAA fields (RFC 8659).
	Flag uint8
	Tag  string
}

// Response is the outcome of a successful query: the records found at the
// first candidate name with a substantive answer.
type Response struct {
	// Server is the nameserver that produced the answer.
	Server string

	// Name is the candidate name the records were found at.
	Name string

	// Records holds the answer records of the requested type.
	Records []Record

	// CNAMEChain lists any CNAME targets traversed in the answer section,
	// in order.
	CNAMEChain []string

	// Authentic reports whether the response carried the AD flag
	// (DNSSEC-validated by the upstream resolver).
	Authentic bool

	// Errs collects non-fatal errors from candidate names that were tried
	// before the answering one.
	Errs []error
}

// Values returns the record values in answer order.
func (r *Response) Values() []string {
	vals := make([]string, 0, len(r.Records))
	for _, rec := range r.Records {
		vals = append(vals, rec.Value)
	}
	return vals
}

// Resolver answers queries for candidate names, most preferred first.
//
// Implementations must try the names in order and return the records at the
// first name that yields a substantive answer. Transport failures against a
// configured server must fail over to the next server; a definitive answer
// (including NXDOMAIN or an empty record set) from any server is
// authoritative and stops the failover.
type Resolver interface {
	Query(ctx context.Context, names []string, rtype Type) (*Response, error)
}

// FQDN ensures the name ends with a dot.
func FQDN(name string) string {
	if !strings.HasSuffix(name, ".") {
		return name + "."
	}
	return name
}

// EqualRecordSets reports whether two record slices contain the same
// records, ignoring order and TTLs. Used by corroboration checks, where
// TTL skew between vantage points is expected.
func EqualRecordSets(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	ka := recordKeys(a)
	kb := recordKeys(b)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func recordKeys(recs []Record) []string {
	keys := make([]string, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, string(r.Type)+"\x00"+strings.ToLower(r.Name)+"\x00"+r.Value+"\x00"+r.Tag)
	}
	sort.Strings(keys)
	return keys
}
