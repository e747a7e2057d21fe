// Package dcv is a Domain Control Validation engine: given a domain name
// and a chosen validation method, it determines whether the requester
// controls the domain and produces durable evidence suitable for
// certificate-issuance audits, per the CA/Browser Forum Baseline
// Requirements.
//
// # Methods
//
// Three validation methods are supported, each with a prepare/validate
// pair exposed through a validator façade:
//
//   - DNS: the domain holder publishes a challenge in a CNAME, TXT or
//     CAA record at an authorization label under the domain (default
//     "_dnsauth.<domain>") or at the domain itself.
//   - File: the challenge is served from
//     http(s)://<domain>/.well-known/pki-validation/<filename>.
//   - Email: candidate contact addresses are discovered (constructed
//     locals, CAA contactemail records, an authorization TXT name, or
//     WHOIS) and the challenge is later checked in the mail reply body
//     supplied by the caller. The engine does not send email.
//
// # Usage
//
// Build an engine with the fluent builder and validate:
//
//	engine, err := dcv.New().
//	    DNSServers("8.8.8.8:53").
//	    SecondaryAgents(agents...).
//	    EnforceCorroboration(true).
//	    Build()
//
//	prep, errs := engine.DNS().Prepare(ctx, dcv.DNSPreparationRequest{
//	    Domain:        "example.com",
//	    RecordType:    dns.TypeTXT,
//	    ChallengeType: dcv.ChallengeRandomValue,
//	})
//	// ... caller stores prep.State, instructs the domain holder ...
//	evidence, errs := engine.DNS().Validate(ctx, dcv.DNSValidationRequest{
//	    Domain:        "example.com",
//	    RecordType:    dns.TypeTXT,
//	    ChallengeType: dcv.ChallengeRandomValue,
//	    RandomValue:   prep.RandomValue,
//	    State:         prep.State,
//	})
//
// Every lookup runs through Multi-Perspective Issuance Corroboration:
// the primary perspective's answer is checked against configured
// secondary perspectives before evidence is produced. See the mpic
// package.
//
// The engine is stateless: ValidationState is round-tripped through the
// caller between prepare and validate, and nothing is persisted.
// Validation failures are reported as an ErrorSet, never a single code,
// so every applicable failure is visible in one round trip.
package dcv

// BaselineRequirementsVersion is the BR version the validation
// procedures follow, recorded on every evidence record.
const BaselineRequirementsVersion = "2.1.2"

// ValidationMethod identifies how domain control is demonstrated.
type ValidationMethod string

const (
	// MethodDNS validates via a DNS record challenge.
	MethodDNS ValidationMethod = "dns"

	// MethodEmail validates via a challenge mailed to a domain contact.
	MethodEmail ValidationMethod = "email"

	// MethodFile validates via a well-known file on the domain's web server.
	MethodFile ValidationMethod = "file"

	// MethodUnknown is the placeholder an ACME-style flow may carry at
	// prepare time, before the client has chosen a method.
	MethodUnknown ValidationMethod = "unknown"
)

// ChallengeType selects the challenge mechanism. Exactly one mechanism
// is used per validation attempt; the corresponding inputs are mutually
// exclusive on every request.
type ChallengeType string

const (
	// ChallengeRandomValue proves control with an engine-issued random value.
	ChallengeRandomValue ChallengeType = "random_value"

	// ChallengeRequestToken proves control with a timestamp-salted keyed
	// hash recomputed from shared secret material.
	ChallengeRequestToken ChallengeType = "request_token"
)
