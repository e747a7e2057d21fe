// Package challenge implements the two challenge mechanisms used for
// domain control validation: opaque random values and timestamp-salted
// request tokens.
//
// A random value is generated at prepare time, published by the domain
// holder (in a DNS record, a well-known file, or an email reply), and
// checked by simple containment. A request token is recomputed from
// shared secret material and recognized inside fetched content without
// any prepare-time state.
//
// Validators return a Result rather than a single error: independent
// checks over several record values may each fail for a different
// reason, and the caller reports the union. Merge implements the
// reduction: any success wins, otherwise failure sets accumulate.
package challenge

import "errors"

// Validation errors.
var (
	ErrEmptyBody         = errors.New("challenge: empty body")
	ErrNotFound          = errors.New("challenge: value not found")
	ErrInvalidToken      = errors.New("challenge: malformed request token candidate")
	ErrTokenExpired      = errors.New("challenge: request token older than 30 days")
	ErrTokenFutureDated  = errors.New("challenge: request token timestamp is in the future")
	ErrCannotGenerateHash = errors.New("challenge: cannot generate token hash")
	ErrInsufficientEntropy = errors.New("challenge: generator configuration below 112-bit entropy floor")
)

// Result is the outcome of one challenge check over one body of text.
// Value is the matched challenge value; when empty, Errs explains why no
// match was found.
type Result struct {
	Value string
	Errs  []error
}

// Found reports whether the check located a valid challenge value.
func (r Result) Found() bool {
	return r.Value != ""
}

// Merge reduces results from independent checks (e.g. one per DNS record
// value). The first successful result wins and failure errors from the
// others are discarded; otherwise the failure sets are concatenated.
func Merge(results ...Result) Result {
	var merged Result
	for _, r := range results {
		if r.Found() {
			return r
		}
		merged.Errs = append(merged.Errs, r.Errs...)
	}
	return merged
}

// RandomValidator checks whether a previously issued random value appears
// in a fetched body.
type RandomValidator interface {
	Validate(value, body string) Result
}

// TokenValidator scans a fetched body for a valid request token derived
// from the given secret material.
type TokenValidator interface {
	Validate(key []byte, value, body string) Result
}

// Generator produces random values for the prepare step.
type Generator interface {
	Generate() (string, error)
}
