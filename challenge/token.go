package challenge

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Request token layout: a 14-digit UTC timestamp followed by a 50-character
// base-36 HMAC-SHA256 digest, zero-padded on the left.
const (
	tokenTimestampLayout = "20060102150405"
	tokenTimestampLen    = 14
	tokenDigestLen       = 50
	tokenLen             = tokenTimestampLen + tokenDigestLen

	// tokenMaxAge is the BR validity window for request tokens.
	tokenMaxAge = 30 * 24 * time.Hour
)

// timeNow is swapped by tests.
var timeNow = time.Now

// GenerateToken computes the request token for the given secret material
// at the given instant. It is a pure function of its inputs: the token is
// the timestamp concatenated with the base-36 HMAC-SHA256 of
// timestamp||value keyed by key.
func GenerateToken(key []byte, value string, at time.Time) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrCannotGenerateHash)
	}
	ts := at.UTC().Format(tokenTimestampLayout)
	return ts + tokenDigest(key, value, ts), nil
}

// tokenDigest computes the 50-character base-36 digest portion.
func tokenDigest(key []byte, value, timestamp string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + value))
	digest := new(big.Int).SetBytes(mac.Sum(nil)).Text(36)
	if pad := tokenDigestLen - len(digest); pad > 0 {
		digest = strings.Repeat("0", pad) + digest
	}
	return digest
}

// HMACTokenValidator is the default TokenValidator. It scans a body for
// request tokens derived from the shared secret material.
type HMACTokenValidator struct{}

var _ TokenValidator = HMACTokenValidator{}

// Validate scans body for a valid request token. Tokens start with a
// 14-digit timestamp, so every occurrence of the current or previous
// calendar year is a candidate offset. For each candidate the validator
// parses the timestamp, rejects future or expired ones, recomputes the
// expected token, and compares byte-for-byte. The first exact match wins;
// candidates that fail merely contribute errors to the result unless no
// candidate matches at all.
func (HMACTokenValidator) Validate(key []byte, value, body string) Result {
	if body == "" {
		return Result{Errs: []error{ErrEmptyBody}}
	}
	if len(key) == 0 {
		return Result{Errs: []error{fmt.Errorf("%w: empty key", ErrCannotGenerateHash)}}
	}

	now := timeNow().UTC()
	years := []string{
		strconv.Itoa(now.Year()),
		strconv.Itoa(now.Year() - 1),
	}

	var errs []error
	seen := false

	for _, year := range years {
		for idx := strings.Index(body, year); idx >= 0; {
			seen = true
			if err := checkCandidate(key, value, body[idx:], now); err != nil {
				errs = append(errs, err)
			} else {
				return Result{Value: body[idx : idx+tokenLen]}
			}

			next := strings.Index(body[idx+1:], year)
			if next < 0 {
				break
			}
			idx += 1 + next
		}
	}

	if !seen {
		errs = append(errs, fmt.Errorf("%w: request token", ErrNotFound))
	}
	return Result{Errs: errs}
}

// checkCandidate verifies one candidate offset. rest starts at the
// candidate year digits.
func checkCandidate(key []byte, value, rest string, now time.Time) error {
	if len(rest) < tokenLen {
		return fmt.Errorf("%w: truncated candidate", ErrInvalidToken)
	}

	ts := rest[:tokenTimestampLen]
	stamp, err := time.ParseInLocation(tokenTimestampLayout, ts, time.UTC)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", ErrInvalidToken, ts)
	}
	if stamp.After(now) {
		return fmt.Errorf("%w: %s", ErrTokenFutureDated, ts)
	}
	if now.Sub(stamp) > tokenMaxAge {
		return fmt.Errorf("%w: %s", ErrTokenExpired, ts)
	}

	expected := ts + tokenDigest(key, value, ts)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(rest[:tokenLen])) != 1 {
		return fmt.Errorf("%w: digest mismatch at %s", ErrInvalidToken, ts)
	}
	return nil
}
