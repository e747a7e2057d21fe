package dcv

import (
	"context"
	"log/slog"

	"github.com/synqronlabs/dcv/challenge"
	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/domain"
	"github.com/synqronlabs/dcv/mpic"
)

// DNSValidator validates domain control through a challenge published in
// a DNS record, either at the authorization label under the domain or at
// the domain itself.
type DNSValidator struct {
	e *Engine
}

// DNSPreparationRequest describes a DNS prepare call.
type DNSPreparationRequest struct {
	// Domain is the domain to validate. A leading "*." wildcard is
	// allowed for this method.
	Domain string

	// RecordType is the record type the challenge will be published in:
	// CNAME, TXT or CAA.
	RecordType dns.Type

	// ChallengeType selects the challenge mechanism.
	ChallengeType ChallengeType
}

// DNSPreparation is the outcome of a DNS prepare call.
type DNSPreparation struct {
	// Domain is the canonicalized domain.
	Domain string

	// RecordType echoes the requested record type.
	RecordType dns.Type

	// RecordNames lists the names that will be probed at validate time,
	// most specific first.
	RecordNames []string

	// RandomValue is the generated challenge value. Empty for request
	// token challenges, which derive the value from secret material at
	// validate time instead.
	RandomValue string

	// State must be round-tripped unchanged into the validate call.
	State ValidationState
}

// DNSValidationRequest describes a DNS validate call.
type DNSValidationRequest struct {
	Domain        string
	RecordType    dns.Type
	ChallengeType ChallengeType

	// RandomValue is the prepared value; set only for random value
	// challenges.
	RandomValue string

	// TokenKey and TokenValue are the secret material for request token
	// challenges; set only for those.
	TokenKey   []byte
	TokenValue string

	// State is the preparation state returned by Prepare.
	State ValidationState
}

// Prepare validates the request shape, generates the challenge material,
// and returns the record names the domain holder must publish it at.
func (v *DNSValidator) Prepare(ctx context.Context, req DNSPreparationRequest) (*DNSPreparation, ErrorSet) {
	errs := NewErrorSet()
	v.e.validateDomain(req.Domain, true, errs)
	if !allowedDNSRecordType(req.RecordType) {
		errs.Add(CodeInvalidDNSRecordType)
	}
	checkChallengeType(req.ChallengeType, errs)
	if !errs.Empty() {
		return nil, errs
	}

	name := domain.Canonicalize(req.Domain)
	prep := &DNSPreparation{
		Domain:      name,
		RecordType:  req.RecordType,
		RecordNames: v.recordNames(name),
		State: ValidationState{
			Domain:      name,
			Method:      MethodDNS,
			PrepareTime: timeNow().UTC(),
		},
	}

	if req.ChallengeType == ChallengeRandomValue {
		value, err := v.e.config.RandomGenerator.Generate()
		if err != nil {
			errs.Add(codeForChallengeError(err, ChallengeRandomValue))
			return nil, errs
		}
		prep.RandomValue = value
	}

	v.e.logger.Debug("dns validation prepared",
		slog.String("domain", name),
		slog.String("record_type", string(req.RecordType)),
		slog.String("challenge_type", string(req.ChallengeType)))
	return prep, nil
}

// Validate runs the DNS validation state machine: the authorization
// label name first, then the bare domain, succeeding on the first name
// whose corroborated records carry a valid challenge. On failure the
// returned set is the union of errors from every name probed.
func (v *DNSValidator) Validate(ctx context.Context, req DNSValidationRequest) (*Evidence, ErrorSet) {
	errs := NewErrorSet()
	v.e.validateDomain(req.Domain, true, errs)
	if !allowedDNSRecordType(req.RecordType) {
		errs.Add(CodeInvalidDNSRecordType)
	}
	checkChallengeInputs(req.ChallengeType, req.RandomValue, req.TokenKey, req.TokenValue, errs)
	if !errs.Empty() {
		return nil, errs
	}

	name := domain.Canonicalize(req.Domain)
	errs.Merge(verifyState(req.State, MethodDNS, req.ChallengeType, v.e.config.RandomValueValidityDays))
	if req.State.Domain != "" && req.State.Domain != name {
		errs.Add(CodeStateDomainMismatch)
	}
	if !errs.Empty() {
		return nil, errs
	}

	for _, recordName := range v.recordNames(name) {
		ev, attemptErrs := v.attempt(ctx, name, recordName, req)
		if ev != nil {
			v.e.logger.Info("dns validation succeeded",
				slog.String("domain", name),
				slog.String("record_name", recordName),
				slog.String("record_type", string(req.RecordType)))
			return ev, nil
		}
		errs.Merge(attemptErrs)
	}

	v.e.logger.Info("dns validation failed",
		slog.String("domain", name),
		slog.Any("errors", errs.Codes()))
	return nil, errs
}

// recordNames returns the probe order for a domain: the authorization
// label name, then the bare domain. Wildcard prefixes are stripped; a
// wildcard proves control through its parent's records.
func (v *DNSValidator) recordNames(name string) []string {
	bare := domain.StripWildcard(name)
	return []string{v.e.config.DNSDomainLabel + "." + bare, bare}
}

// attempt runs the challenge search against one record name.
func (v *DNSValidator) attempt(ctx context.Context, name, recordName string, req DNSValidationRequest) (*Evidence, ErrorSet) {
	if req.ChallengeType == ChallengeRequestToken {
		return v.attemptToken(ctx, name, recordName, req)
	}

	errs := NewErrorSet()
	res := v.e.consensus.LookupDNS(ctx, dns.FQDN(recordName), req.RecordType, mpic.Options{})
	if res.Status != mpic.StatusCorroborated {
		errs.addDNSOutcome(res)
		return nil, errs
	}

	found := foldChallenge(res.Primary.Values(), func(body string) challenge.Result {
		return v.e.config.RandomValidator.Validate(req.RandomValue, body)
	})
	if !found.Found() {
		errs.addChallengeErrors(found, req.ChallengeType)
		return nil, errs
	}

	ev := newEvidence(name, MethodDNS, res.Details)
	ev.DNSType = req.RecordType
	ev.DNSServer = res.Primary.Server
	ev.DNSRecordName = recordName
	ev.RandomValue = found.Value
	return ev, nil
}

// attemptToken runs the two-phase request token search against one
// record name: a primary-only lookup locates a plausible token among the
// raw record values, and only then is a corroborated lookup issued keyed
// on that exact token. Corroboration cost is never paid for names with
// no candidate at all.
func (v *DNSValidator) attemptToken(ctx context.Context, name, recordName string, req DNSValidationRequest) (*Evidence, ErrorSet) {
	errs := NewErrorSet()
	fqdn := dns.FQDN(recordName)

	probe := v.e.consensus.LookupDNS(ctx, fqdn, req.RecordType, mpic.Options{PrimaryOnly: true})
	if probe.Status != mpic.StatusCorroborated {
		errs.addDNSOutcome(probe)
		return nil, errs
	}

	found := foldChallenge(probe.Primary.Values(), func(body string) challenge.Result {
		return v.e.config.TokenValidator.Validate(req.TokenKey, req.TokenValue, body)
	})
	if !found.Found() {
		errs.addChallengeErrors(found, req.ChallengeType)
		return nil, errs
	}

	confirmed := v.e.consensus.LookupDNS(ctx, fqdn, req.RecordType, mpic.Options{MatchValue: found.Value})
	if confirmed.Status != mpic.StatusCorroborated {
		errs.addDNSOutcome(confirmed)
		return nil, errs
	}

	ev := newEvidence(name, MethodDNS, confirmed.Details)
	ev.DNSType = req.RecordType
	ev.DNSServer = confirmed.Primary.Server
	ev.DNSRecordName = recordName
	ev.RequestToken = found.Value
	return ev, nil
}

// allowedDNSRecordType reports whether the record type may carry a DNS
// method challenge.
func allowedDNSRecordType(rtype dns.Type) bool {
	switch rtype {
	case dns.TypeCNAME, dns.TypeTXT, dns.TypeCAA:
		return true
	default:
		return false
	}
}

// checkChallengeType rejects an unset or unrecognized challenge type on
// prepare calls, where no challenge inputs exist to check yet.
func checkChallengeType(challengeType ChallengeType, errs ErrorSet) {
	switch challengeType {
	case ChallengeRandomValue, ChallengeRequestToken:
	default:
		errs.Add(CodeRandomValueRequired, CodeTokenMaterialRequired)
	}
}

// foldChallenge reduces a challenge check over record values: the first
// success wins and stops the fold, otherwise the failure sets accumulate.
func foldChallenge(values []string, check func(body string) challenge.Result) challenge.Result {
	var merged challenge.Result
	for _, value := range values {
		r := check(value)
		if r.Found() {
			return r
		}
		merged = challenge.Merge(merged, r)
	}
	return merged
}
