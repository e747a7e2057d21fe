package dcv

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/synqronlabs/dcv/domain"
	"github.com/synqronlabs/dcv/mpic"
)

// wellKnownPath is the BR-reserved path the challenge file is served
// under.
const wellKnownPath = "/.well-known/pki-validation/"

// FileValidator validates domain control through a challenge served from
// a well-known URL on the domain's web server.
type FileValidator struct {
	e *Engine
}

// FilePreparationRequest describes a file prepare call.
type FilePreparationRequest struct {
	// Domain is the domain to validate. Wildcards are rejected for this
	// method.
	Domain string

	// Filename overrides the configured default challenge filename.
	Filename string

	// ChallengeType selects the challenge mechanism.
	ChallengeType ChallengeType
}

// FilePreparation is the outcome of a file prepare call.
type FilePreparation struct {
	// Domain is the canonicalized domain.
	Domain string

	// URLs lists the candidate locations probed at validate time, in
	// order.
	URLs []string

	// RandomValue is the generated challenge value. Empty for request
	// token challenges.
	RandomValue string

	// State must be round-tripped unchanged into the validate call.
	State ValidationState
}

// FileValidationRequest describes a file validate call.
type FileValidationRequest struct {
	Domain        string
	Filename      string
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
// and returns the URLs the domain holder must serve it from.
func (v *FileValidator) Prepare(ctx context.Context, req FilePreparationRequest) (*FilePreparation, ErrorSet) {
	errs := NewErrorSet()
	v.e.validateDomain(req.Domain, false, errs)
	checkChallengeType(req.ChallengeType, errs)
	if !errs.Empty() {
		return nil, errs
	}

	name := domain.Canonicalize(req.Domain)
	prep := &FilePreparation{
		Domain: name,
		URLs:   v.candidateURLs(name, req.Filename),
		State: ValidationState{
			Domain:      name,
			Method:      MethodFile,
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

	v.e.logger.Debug("file validation prepared",
		slog.String("domain", name),
		slog.Any("urls", prep.URLs))
	return prep, nil
}

// Validate fetches the candidate URLs through the corroborated file
// lookup and checks the first successful body for the challenge.
func (v *FileValidator) Validate(ctx context.Context, req FileValidationRequest) (*Evidence, ErrorSet) {
	errs := NewErrorSet()
	v.e.validateDomain(req.Domain, false, errs)
	checkChallengeInputs(req.ChallengeType, req.RandomValue, req.TokenKey, req.TokenValue, errs)
	if !errs.Empty() {
		return nil, errs
	}

	name := domain.Canonicalize(req.Domain)
	errs.Merge(verifyState(req.State, MethodFile, req.ChallengeType, v.e.config.RandomValueValidityDays))
	if req.State.Domain != "" && req.State.Domain != name {
		errs.Add(CodeStateDomainMismatch)
	}
	if !errs.Empty() {
		return nil, errs
	}

	urls := v.candidateURLs(name, req.Filename)
	if req.ChallengeType == ChallengeRequestToken {
		return v.validateToken(ctx, name, urls, req, errs)
	}

	res := v.e.consensus.LookupFile(ctx, urls, mpic.Options{MatchValue: req.RandomValue})
	if res.Status != mpic.StatusCorroborated {
		errs.addFileOutcome(res, req.ChallengeType)
		return nil, errs
	}

	found := v.e.config.RandomValidator.Validate(req.RandomValue, res.Primary.Body)
	if !found.Found() {
		errs.addChallengeErrors(found, req.ChallengeType)
		return nil, errs
	}

	ev := newEvidence(name, MethodFile, res.Details)
	ev.FileURL = res.URL
	ev.RandomValue = found.Value
	v.e.logger.Info("file validation succeeded",
		slog.String("domain", name),
		slog.String("url", res.URL))
	return ev, nil
}

// validateToken runs the two-phase request token search per candidate
// URL: a primary-only fetch locates the token in that URL's body, then a
// corroborated fetch keyed on the exact token confirms it. A body with no
// valid token is a miss for that URL only; the remaining candidates are
// still tried.
func (v *FileValidator) validateToken(ctx context.Context, name string, urls []string, req FileValidationRequest, errs ErrorSet) (*Evidence, ErrorSet) {
	for _, url := range urls {
		probe := v.e.consensus.LookupFile(ctx, []string{url}, mpic.Options{PrimaryOnly: true})
		if probe.Status != mpic.StatusCorroborated {
			errs.addFileOutcome(probe, req.ChallengeType)
			continue
		}

		found := v.e.config.TokenValidator.Validate(req.TokenKey, req.TokenValue, probe.Primary.Body)
		if !found.Found() {
			errs.addChallengeErrors(found, req.ChallengeType)
			continue
		}

		confirmed := v.e.consensus.LookupFile(ctx, []string{url}, mpic.Options{MatchValue: found.Value})
		if confirmed.Status != mpic.StatusCorroborated {
			errs.addFileOutcome(confirmed, req.ChallengeType)
			continue
		}

		ev := newEvidence(name, MethodFile, confirmed.Details)
		ev.FileURL = confirmed.URL
		ev.RequestToken = found.Value
		v.e.logger.Info("file validation succeeded",
			slog.String("domain", name),
			slog.String("url", confirmed.URL))
		return ev, nil
	}
	return nil, errs
}

// candidateURLs builds the lookup locations for a domain: the http
// scheme always, the https scheme when enabled.
func (v *FileValidator) candidateURLs(name, filename string) []string {
	if filename == "" {
		filename = v.e.config.FileDefaultFilename
	}
	urls := []string{fmt.Sprintf("http://%s%s%s", name, wellKnownPath, filename)}
	if v.e.config.FileCheckHTTPS {
		urls = append(urls, fmt.Sprintf("https://%s%s%s", name, wellKnownPath, filename))
	}
	return urls
}
