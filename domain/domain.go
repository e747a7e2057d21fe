// Package domain canonicalizes and validates domain names and resolves
// their base (registrable) domain against the Public Suffix List.
//
// The base domain is the label sequence directly under the matched public
// suffix. For example:
//   - example.com -> example.com
//   - sub.example.com -> example.com
//   - sub.example.co.uk -> example.co.uk
//
// Operators can special-case suffixes the public list treats as
// non-registrable (e.g. government sub-suffixes) by supplying an
// OverrideSupplier, which is consulted before the list.
package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Validation errors.
var (
	ErrRequired             = errors.New("domain: domain is required")
	ErrTooLong              = errors.New("domain: domain exceeds 256 characters")
	ErrBadPattern           = errors.New("domain: incorrect name pattern")
	ErrBadLDHLabel          = errors.New("domain: bad letter-digit-hyphen label")
	ErrNotUnderPublicSuffix = errors.New("domain: not under a public suffix")
)

const maxDomainLength = 256

// labelPattern is the letter-digit-hyphen pattern each label must match:
// starts and ends with an alphanumeric, hyphens only in between.
var labelPattern = regexp.MustCompile(`^[a-zA-Z0-9](-*[a-zA-Z0-9])*$`)

// OverrideSupplier maps a domain to a suffix that should be treated as
// public even though the Public Suffix List does not list it. It returns
// the suffix and true when an override applies to the given domain.
type OverrideSupplier func(domain string) (suffix string, ok bool)

// Resolver validates domain names and computes base domains. The zero
// value is usable and consults only the Public Suffix List.
type Resolver struct {
	// Overrides is consulted before the Public Suffix List. Optional.
	Overrides OverrideSupplier
}

// Canonicalize lowercases the name and strips surrounding whitespace and
// any trailing dot.
func Canonicalize(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// IsWildcard reports whether the name starts with a "*." wildcard label.
func IsWildcard(name string) bool {
	return strings.HasPrefix(Canonicalize(name), "*.")
}

// StripWildcard removes a single leading "*." label, if present.
func StripWildcard(name string) string {
	return strings.TrimPrefix(Canonicalize(name), "*.")
}

// Validate checks the syntax of a domain name. A leading "*." wildcard is
// stripped before the remaining checks. The name must be non-empty, at
// most 256 characters, each label must match the LDH pattern and be at
// most 63 characters, any label with hyphens at positions 3 and 4 must be
// a valid "xn--" punycode label, and the name must sit under a public
// suffix.
func (r *Resolver) Validate(name string) error {
	name = Canonicalize(name)
	if name == "" {
		return ErrRequired
	}

	name = StripWildcard(name)
	if name == "" || strings.Contains(name, "*") {
		return ErrBadPattern
	}
	if len(name) > maxDomainLength {
		return ErrTooLong
	}

	for _, label := range strings.Split(name, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("%w: label %q", ErrBadPattern, label)
		}
		if !labelPattern.MatchString(label) {
			return fmt.Errorf("%w: label %q", ErrBadPattern, label)
		}
		if len(label) >= 4 && label[2] == '-' && label[3] == '-' {
			if err := validatePunycodeLabel(label); err != nil {
				return err
			}
		}
	}

	if _, err := r.Base(name); err != nil {
		return err
	}
	return nil
}

// validatePunycodeLabel rejects labels reserving the "??--" pattern unless
// they are well-formed IDNA A-labels.
func validatePunycodeLabel(label string) error {
	if !strings.HasPrefix(label, "xn--") {
		return fmt.Errorf("%w: label %q", ErrBadLDHLabel, label)
	}
	decoded, err := idna.Lookup.ToUnicode(label)
	if err != nil || decoded == label {
		return fmt.Errorf("%w: label %q is not valid punycode", ErrBadLDHLabel, label)
	}
	return nil
}

// Base returns the base (registrable) domain: the shortest label sequence
// sitting directly under the matched public suffix. The override supplier
// is consulted first; a domain that is itself a public suffix has no base
// domain and is rejected.
func (r *Resolver) Base(name string) (string, error) {
	name = StripWildcard(name)
	if name == "" {
		return "", ErrRequired
	}

	if r.Overrides != nil {
		if suffix, ok := r.Overrides(name); ok {
			suffix = Canonicalize(suffix)
			if name == suffix {
				return "", fmt.Errorf("%w: %q is a public suffix", ErrNotUnderPublicSuffix, name)
			}
			rest := strings.TrimSuffix(name, "."+suffix)
			if rest == name {
				return "", fmt.Errorf("%w: %q is not under override suffix %q", ErrNotUnderPublicSuffix, name, suffix)
			}
			labels := strings.Split(rest, ".")
			return labels[len(labels)-1] + "." + suffix, nil
		}
	}

	suffix, icann := publicsuffix.PublicSuffix(name)
	if name == suffix {
		return "", fmt.Errorf("%w: %q is a public suffix", ErrNotUnderPublicSuffix, name)
	}
	if !icann && !strings.Contains(suffix, ".") {
		// Unlisted TLD matched only by the implicit "*" rule.
		return "", fmt.Errorf("%w: no rule matches %q", ErrNotUnderPublicSuffix, name)
	}

	base, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotUnderPublicSuffix, err)
	}
	return base, nil
}

// AndParents returns the domain followed by each parent produced by
// dropping the leading label, down to and including the base domain.
// DNS validation uses this to search candidate FQDNs most-specific first.
func (r *Resolver) AndParents(name string) ([]string, error) {
	name = StripWildcard(name)
	base, err := r.Base(name)
	if err != nil {
		return nil, err
	}

	var out []string
	for current := name; ; {
		out = append(out, current)
		if current == base {
			break
		}
		idx := strings.Index(current, ".")
		if idx < 0 {
			break
		}
		current = current[idx+1:]
	}
	return out, nil
}
