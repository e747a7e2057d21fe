package dcv

import (
	"context"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/domain"
	"github.com/synqronlabs/dcv/mpic"
)

// EmailSource selects the contact-discovery strategy for the email
// method.
type EmailSource string

const (
	// EmailSourceConstructed emits the five BR-listed local parts at the
	// domain, with no network call.
	EmailSourceConstructed EmailSource = "constructed"

	// EmailSourceCAA extracts addresses from CAA records carrying the
	// reserved contactemail tag.
	EmailSourceCAA EmailSource = "dns_caa"

	// EmailSourceTXT extracts addresses from TXT records at the
	// contact authorization name under the domain.
	EmailSourceTXT EmailSource = "dns_txt"

	// EmailSourceWHOIS extracts addresses from the domain's WHOIS
	// record, following at most one referral.
	EmailSourceWHOIS EmailSource = "whois"
)

// caaContactTag is the RFC 8659-reserved property tag carrying a contact
// address.
const caaContactTag = "contactemail"

// txtContactLabel is the authorization name queried for TXT contact
// records.
const txtContactLabel = "_validation-contactemail"

// constructedLocals are the mailbox local parts the BRs permit for
// constructed contact addresses.
var constructedLocals = []string{"admin", "administrator", "webmaster", "hostmaster", "postmaster"}

// EmailValidator validates domain control through a challenge mailed to
// a discovered domain contact. The engine discovers candidate addresses
// and later checks the challenge in a reply body supplied by the caller;
// it does not send or receive mail itself.
type EmailValidator struct {
	e *Engine
}

// EmailPreparationRequest describes an email prepare call.
type EmailPreparationRequest struct {
	// Domain is the domain to validate. A leading "*." wildcard is
	// allowed; discovery runs against the bare domain.
	Domain string

	// Source selects the contact-discovery strategy.
	Source EmailSource
}

// EmailPreparation is the outcome of an email prepare call.
type EmailPreparation struct {
	// Domain is the canonicalized domain.
	Domain string

	// Source echoes the discovery strategy used.
	Source EmailSource

	// Addresses are the candidate contact addresses, deduplicated, in
	// discovery order.
	Addresses []string

	// MPIC is the corroboration evidence for network-backed discovery.
	// Nil for the constructed and WHOIS sources.
	MPIC *mpic.Details

	// RandomValue is the generated challenge value to mail out.
	RandomValue string

	// State must be round-tripped unchanged into the validate call.
	State ValidationState
}

// EmailValidationRequest describes an email validate call. The email
// method supports only the random value challenge: the caller mails the
// prepared value and submits the reply body here.
type EmailValidationRequest struct {
	Domain string

	// EmailAddress is the contact address the challenge was sent to,
	// recorded as evidence.
	EmailAddress string

	// RandomValue is the prepared value.
	RandomValue string

	// Body is the reply body to search.
	Body string

	// State is the preparation state returned by Prepare.
	State ValidationState
}

// Prepare discovers candidate contact addresses for the domain using the
// requested source and generates the challenge value to mail to one of
// them.
func (v *EmailValidator) Prepare(ctx context.Context, req EmailPreparationRequest) (*EmailPreparation, ErrorSet) {
	errs := NewErrorSet()
	v.e.validateDomain(req.Domain, true, errs)
	switch req.Source {
	case EmailSourceConstructed, EmailSourceCAA, EmailSourceTXT, EmailSourceWHOIS:
	default:
		errs.Add(CodeInvalidEmailSource)
	}
	if !errs.Empty() {
		return nil, errs
	}

	name := domain.Canonicalize(req.Domain)
	bare := domain.StripWildcard(name)

	prep := &EmailPreparation{
		Domain: name,
		Source: req.Source,
		State: ValidationState{
			Domain:      name,
			Method:      MethodEmail,
			PrepareTime: timeNow().UTC(),
		},
	}

	switch req.Source {
	case EmailSourceConstructed:
		for _, local := range constructedLocals {
			prep.Addresses = append(prep.Addresses, local+"@"+bare)
		}
	case EmailSourceCAA:
		v.discoverCAA(ctx, bare, prep, errs)
	case EmailSourceTXT:
		v.discoverTXT(ctx, bare, prep, errs)
	case EmailSourceWHOIS:
		prep.Addresses = v.discoverWHOIS(ctx, bare)
		if len(prep.Addresses) == 0 {
			errs.Add(CodeEmailContactsNotFound)
		}
	}
	if !errs.Empty() {
		return nil, errs
	}

	value, err := v.e.config.RandomGenerator.Generate()
	if err != nil {
		errs.Add(codeForChallengeError(err, ChallengeRandomValue))
		return nil, errs
	}
	prep.RandomValue = value

	v.e.logger.Debug("email validation prepared",
		slog.String("domain", name),
		slog.String("source", string(req.Source)),
		slog.Int("addresses", len(prep.Addresses)))
	return prep, nil
}

// Validate checks the prepared challenge value in the mail reply body.
func (v *EmailValidator) Validate(ctx context.Context, req EmailValidationRequest) (*Evidence, ErrorSet) {
	errs := NewErrorSet()
	v.e.validateDomain(req.Domain, true, errs)
	if req.RandomValue == "" {
		errs.Add(CodeRandomValueRequired)
	}
	if !errs.Empty() {
		return nil, errs
	}

	name := domain.Canonicalize(req.Domain)
	errs.Merge(verifyState(req.State, MethodEmail, ChallengeRandomValue, v.e.config.RandomValueValidityDays))
	if req.State.Domain != "" && req.State.Domain != name {
		errs.Add(CodeStateDomainMismatch)
	}
	if !errs.Empty() {
		return nil, errs
	}

	found := v.e.config.RandomValidator.Validate(req.RandomValue, req.Body)
	if !found.Found() {
		errs.addChallengeErrors(found, ChallengeRandomValue)
		return nil, errs
	}

	ev := newEvidence(name, MethodEmail, nil)
	ev.EmailAddress = req.EmailAddress
	ev.RandomValue = found.Value
	v.e.logger.Info("email validation succeeded",
		slog.String("domain", name),
		slog.String("address", req.EmailAddress))
	return ev, nil
}

// discoverCAA queries the domain's CAA records and keeps the values of
// those tagged contactemail.
func (v *EmailValidator) discoverCAA(ctx context.Context, bare string, prep *EmailPreparation, errs ErrorSet) {
	res := v.e.consensus.LookupDNS(ctx, dns.FQDN(bare), dns.TypeCAA, mpic.Options{})
	prep.MPIC = res.Details
	if res.Status != mpic.StatusCorroborated {
		errs.addDNSOutcome(res)
		return
	}
	for _, rec := range res.Primary.Records {
		if strings.EqualFold(rec.Tag, caaContactTag) {
			prep.Addresses = appendAddress(prep.Addresses, rec.Value)
		}
	}
	if len(prep.Addresses) == 0 {
		errs.Add(CodeEmailContactsNotFound)
	}
}

// discoverTXT queries TXT records at the contact authorization name and
// treats each record value as a candidate address.
func (v *EmailValidator) discoverTXT(ctx context.Context, bare string, prep *EmailPreparation, errs ErrorSet) {
	fqdn := dns.FQDN(txtContactLabel + "." + bare)
	res := v.e.consensus.LookupDNS(ctx, fqdn, dns.TypeTXT, mpic.Options{})
	prep.MPIC = res.Details
	if res.Status != mpic.StatusCorroborated {
		errs.addDNSOutcome(res)
		return
	}
	for _, value := range res.Primary.Values() {
		prep.Addresses = appendAddress(prep.Addresses, value)
	}
	if len(prep.Addresses) == 0 {
		errs.Add(CodeEmailContactsNotFound)
	}
}

// whoisAddressPattern matches mailbox-shaped substrings in WHOIS text.
var whoisAddressPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// discoverWHOIS extracts addresses from the domain's WHOIS record,
// following at most one referral. An unreachable or failed lookup yields
// no candidates rather than an error.
func (v *EmailValidator) discoverWHOIS(ctx context.Context, bare string) []string {
	reply, err := v.e.config.Whois.Lookup(ctx, v.e.config.WhoisServer, bare)
	if err != nil {
		v.e.logger.Debug("whois lookup failed",
			slog.String("domain", bare),
			slog.String("server", v.e.config.WhoisServer),
			slog.Any("error", err))
		return nil
	}
	if ref := reply.Referral; ref != "" && ref != v.e.config.WhoisServer {
		referred, err := v.e.config.Whois.Lookup(ctx, ref, bare)
		if err == nil {
			reply = referred
		}
	}

	var addresses []string
	for _, match := range whoisAddressPattern.FindAllString(reply.Body, -1) {
		addresses = appendAddress(addresses, match)
	}
	return addresses
}

// appendAddress adds a candidate if it parses as a mailbox address and is
// not already present.
func appendAddress(addresses []string, candidate string) []string {
	candidate = strings.TrimSpace(candidate)
	if _, err := mail.ParseAddress(candidate); err != nil {
		return addresses
	}
	for _, a := range addresses {
		if strings.EqualFold(a, candidate) {
			return addresses
		}
	}
	return append(addresses, candidate)
}
