package dcv

import (
	"time"

	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/mpic"
)

// Evidence is the terminal output of a successful validation, intended
// for audit persistence by the caller. Constructed once per validation;
// immutable.
type Evidence struct {
	// Domain is the canonicalized domain the validation applies to,
	// including any wildcard prefix from the request.
	Domain string `json:"domain"`

	// Method is the validation method that succeeded.
	Method ValidationMethod `json:"method"`

	// BRVersion is the Baseline Requirements version the procedure
	// followed.
	BRVersion string `json:"br_version"`

	// ValidatedAt is when the validation completed.
	ValidatedAt time.Time `json:"validated_at"`

	// MPIC is the corroboration evidence for the decisive lookup.
	// Nil only for lookup-free evidence (constructed email contacts).
	MPIC *mpic.Details `json:"mpic,omitempty"`

	// DNS method fields.
	DNSType       dns.Type `json:"dns_type,omitempty"`
	DNSServer     string   `json:"dns_server,omitempty"`
	DNSRecordName string   `json:"dns_record_name,omitempty"`

	// File method field.
	FileURL string `json:"file_url,omitempty"`

	// Email method field.
	EmailAddress string `json:"email_address,omitempty"`

	// Exactly one of RandomValue and RequestToken is set, matching the
	// challenge mechanism used.
	RandomValue  string `json:"random_value,omitempty"`
	RequestToken string `json:"request_token,omitempty"`
}

// newEvidence stamps the method-independent fields.
func newEvidence(domainName string, method ValidationMethod, details *mpic.Details) *Evidence {
	return &Evidence{
		Domain:      domainName,
		Method:      method,
		BRVersion:   BaselineRequirementsVersion,
		ValidatedAt: timeNow().UTC(),
		MPIC:        details,
	}
}
