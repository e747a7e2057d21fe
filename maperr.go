package dcv

import (
	"errors"

	"github.com/synqronlabs/dcv/challenge"
	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/domain"
	"github.com/synqronlabs/dcv/fetch"
	"github.com/synqronlabs/dcv/mpic"
)

// The functions in this file translate collaborator failures into the
// closed ErrorCode taxonomy. Every mapping is total: any error a
// collaborator can produce lands on exactly one code.

// codeForDomainError maps domain package errors.
func codeForDomainError(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrRequired):
		return CodeDomainRequired
	case errors.Is(err, domain.ErrTooLong):
		return CodeDomainInvalidTooLong
	case errors.Is(err, domain.ErrBadLDHLabel):
		return CodeDomainInvalidBadLDHLabel
	case errors.Is(err, domain.ErrNotUnderPublicSuffix):
		return CodeDomainNotUnderPublicSuffix
	default:
		return CodeDomainInvalidNamePattern
	}
}

// codeForDNSError maps dns package errors.
func codeForDNSError(err error) ErrorCode {
	switch {
	case errors.Is(err, dns.ErrNXDomain):
		return CodeDNSLookupDomainNotFound
	case errors.Is(err, dns.ErrNotFound):
		return CodeDNSLookupRecordNotFound
	case errors.Is(err, dns.ErrTimeout):
		return CodeDNSLookupTimeout
	case errors.Is(err, dns.ErrUnknownHost):
		return CodeDNSLookupUnknownHost
	case errors.Is(err, dns.ErrMalformed):
		return CodeDNSLookupBadResponse
	case errors.Is(err, dns.ErrServFail):
		return CodeDNSLookupServerFailure
	default:
		return CodeDNSLookupIOError
	}
}

// codeForFetchError maps fetch and mpic file-status errors.
func codeForFetchError(err error) ErrorCode {
	switch {
	case errors.Is(err, fetch.ErrTimeout):
		return CodeFileFetchTimeout
	case errors.Is(err, fetch.ErrTooManyRedirects),
		errors.Is(err, fetch.ErrCircularRedirect),
		errors.Is(err, fetch.ErrBadRedirect):
		return CodeFileFetchRedirectError
	case errors.Is(err, fetch.ErrBadURL):
		return CodeFileFetchBadURL
	case errors.Is(err, mpic.ErrFileNotFound):
		return CodeFileFetchNotFound
	case errors.Is(err, mpic.ErrFileServerStatus):
		return CodeFileFetchServerError
	case errors.Is(err, mpic.ErrFileClientStatus):
		return CodeFileFetchClientError
	default:
		return CodeFileFetchConnectionError
	}
}

// codeForChallengeError maps challenge package errors. The not-found code
// depends on which challenge mechanism was being checked.
func codeForChallengeError(err error, challengeType ChallengeType) ErrorCode {
	switch {
	case errors.Is(err, challenge.ErrEmptyBody):
		return CodeChallengeEmptyBody
	case errors.Is(err, challenge.ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, challenge.ErrTokenFutureDated):
		return CodeTokenFutureDated
	case errors.Is(err, challenge.ErrInvalidToken):
		return CodeTokenInvalid
	case errors.Is(err, challenge.ErrCannotGenerateHash):
		return CodeTokenCannotGenerateHash
	case errors.Is(err, challenge.ErrInsufficientEntropy):
		return CodeRandomValueInsufficientEntropy
	case errors.Is(err, challenge.ErrNotFound):
		if challengeType == ChallengeRequestToken {
			return CodeTokenNotFound
		}
		return CodeRandomValueNotFound
	default:
		if challengeType == ChallengeRequestToken {
			return CodeTokenInvalid
		}
		return CodeRandomValueNotFound
	}
}

// addChallengeErrors folds a challenge result's failures into the set.
func (s ErrorSet) addChallengeErrors(result challenge.Result, challengeType ChallengeType) {
	for _, err := range result.Errs {
		s.Add(codeForChallengeError(err, challengeType))
	}
}

// addDNSOutcome folds an unsuccessful corroborated DNS lookup into the set.
func (s ErrorSet) addDNSOutcome(res *mpic.DNSResult) {
	switch res.Status {
	case mpic.StatusValueNotFound:
		if res.PrimaryErr != nil {
			s.Add(codeForDNSError(res.PrimaryErr))
		} else {
			s.Add(CodeDNSLookupRecordNotFound)
		}
	case mpic.StatusPrimaryFailure:
		s.Add(CodeMPICPrimaryFailure)
		if res.PrimaryErr != nil {
			s.Add(codeForDNSError(res.PrimaryErr))
		}
	case mpic.StatusNonCorroborated:
		s.Add(CodeMPICCorroborationError)
	case mpic.StatusDNSSECFailure:
		s.Add(CodeDNSSECFailure)
	case mpic.StatusError:
		if res.PrimaryErr != nil {
			s.Add(codeForDNSError(res.PrimaryErr))
		} else {
			s.Add(CodeDNSLookupIOError)
		}
	}
}

// addFileOutcome folds an unsuccessful corroborated file lookup into the
// set. A URL skipped because its body lacked the match value is a
// challenge miss, not a fetch failure, so that error follows the
// challenge mechanism.
func (s ErrorSet) addFileOutcome(res *mpic.FileResult, challengeType ChallengeType) {
	switch res.Status {
	case mpic.StatusValueNotFound, mpic.StatusPrimaryFailure, mpic.StatusError:
		if res.Status == mpic.StatusPrimaryFailure {
			s.Add(CodeMPICPrimaryFailure)
		}
		if len(res.PrimaryErrs) == 0 {
			s.Add(CodeFileFetchNotFound)
		}
		for _, err := range res.PrimaryErrs {
			if errors.Is(err, mpic.ErrFileValueMissing) {
				s.Add(codeForChallengeError(challenge.ErrNotFound, challengeType))
				continue
			}
			s.Add(codeForFetchError(err))
		}
	case mpic.StatusNonCorroborated:
		s.Add(CodeMPICCorroborationError)
	}
}
