package dcv

import (
	"sort"
	"strings"
)

// ErrorCode is one reason a validation attempt failed. The taxonomy is
// closed: every failure path in the engine maps to exactly one code.
//
// A validation attempt accumulates a set of codes, not a single value,
// because independent checks (domain syntax, challenge presence, state
// freshness) run largely independently and every applicable failure
// should be visible to the caller in one round trip.
type ErrorCode string

const (
	// Domain syntax.
	CodeDomainRequired                ErrorCode = "domain_required"
	CodeDomainInvalidTooLong          ErrorCode = "domain_invalid_too_long"
	CodeDomainInvalidNamePattern      ErrorCode = "domain_invalid_incorrect_name_pattern"
	CodeDomainInvalidBadLDHLabel      ErrorCode = "domain_invalid_bad_ldh_label"
	CodeDomainNotUnderPublicSuffix    ErrorCode = "domain_invalid_not_under_public_suffix"
	CodeDomainWildcardNotAllowed      ErrorCode = "domain_invalid_wildcard_not_allowed"

	// Request shape.
	CodeRandomValueRequired           ErrorCode = "random_value_required"
	CodeTokenMaterialRequired         ErrorCode = "request_token_material_required"
	CodeChallengeInputConflict        ErrorCode = "challenge_input_conflict"
	CodeInvalidDNSRecordType          ErrorCode = "invalid_dns_record_type"
	CodeInvalidEmailSource            ErrorCode = "invalid_email_source"

	// Validation state.
	CodeStateRequired                 ErrorCode = "validation_state_required"
	CodeStateExpired                  ErrorCode = "validation_state_expired"
	CodeStateMethodMismatch           ErrorCode = "validation_state_method_mismatch"
	CodeStateDomainMismatch           ErrorCode = "validation_state_domain_mismatch"

	// DNS lookups.
	CodeDNSLookupRecordNotFound       ErrorCode = "dns_lookup_record_not_found"
	CodeDNSLookupDomainNotFound       ErrorCode = "dns_lookup_domain_not_found"
	CodeDNSLookupTimeout              ErrorCode = "dns_lookup_timeout"
	CodeDNSLookupIOError              ErrorCode = "dns_lookup_io_error"
	CodeDNSLookupBadResponse          ErrorCode = "dns_lookup_bad_response"
	CodeDNSLookupUnknownHost          ErrorCode = "dns_lookup_unknown_host"
	CodeDNSLookupServerFailure        ErrorCode = "dns_lookup_server_failure"
	CodeDNSSECFailure                 ErrorCode = "dnssec_failure"

	// File fetches.
	CodeFileFetchNotFound             ErrorCode = "file_fetch_not_found"
	CodeFileFetchClientError          ErrorCode = "file_fetch_client_error"
	CodeFileFetchServerError          ErrorCode = "file_fetch_server_error"
	CodeFileFetchTimeout              ErrorCode = "file_fetch_timeout"
	CodeFileFetchConnectionError      ErrorCode = "file_fetch_connection_error"
	CodeFileFetchRedirectError        ErrorCode = "file_fetch_redirect_error"
	CodeFileFetchBadURL               ErrorCode = "file_fetch_bad_url"

	// Challenge semantics.
	CodeChallengeEmptyBody             ErrorCode = "challenge_empty_body"
	CodeRandomValueNotFound            ErrorCode = "random_value_not_found"
	CodeRandomValueExpired             ErrorCode = "random_value_expired"
	CodeRandomValueInsufficientEntropy ErrorCode = "random_value_insufficient_entropy"
	CodeTokenNotFound                  ErrorCode = "request_token_not_found"
	CodeTokenInvalid                   ErrorCode = "request_token_invalid"
	CodeTokenExpired                   ErrorCode = "request_token_date_expired"
	CodeTokenFutureDated               ErrorCode = "request_token_future_date"
	CodeTokenCannotGenerateHash        ErrorCode = "request_token_cannot_generate_hash"

	// Email discovery.
	CodeEmailContactsNotFound         ErrorCode = "email_contacts_not_found"

	// Corroboration.
	CodeMPICCorroborationError        ErrorCode = "mpic_corroboration_error"
	CodeMPICPrimaryFailure            ErrorCode = "mpic_primary_agent_failure"
)

// ErrorSet is a set of failure codes. It implements error; a nil or empty
// set means success.
type ErrorSet map[ErrorCode]struct{}

// NewErrorSet builds a set from the given codes.
func NewErrorSet(codes ...ErrorCode) ErrorSet {
	s := ErrorSet{}
	s.Add(codes...)
	return s
}

// Add inserts codes into the set.
func (s ErrorSet) Add(codes ...ErrorCode) {
	for _, c := range codes {
		s[c] = struct{}{}
	}
}

// Merge inserts every code from other.
func (s ErrorSet) Merge(other ErrorSet) {
	for c := range other {
		s[c] = struct{}{}
	}
}

// Has reports whether the set contains code.
func (s ErrorSet) Has(code ErrorCode) bool {
	_, ok := s[code]
	return ok
}

// Empty reports whether the set holds no codes.
func (s ErrorSet) Empty() bool {
	return len(s) == 0
}

// Codes returns the codes in sorted order.
func (s ErrorSet) Codes() []ErrorCode {
	out := make([]ErrorCode, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Error implements the error interface.
func (s ErrorSet) Error() string {
	codes := s.Codes()
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return "dcv: " + strings.Join(parts, ", ")
}
