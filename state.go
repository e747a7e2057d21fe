package dcv

import "time"

// ValidationState binds a prepare step to a later validate step without
// server-side session storage. It is created by a method's prepare
// operation, opaque-serialized by the caller (the JSON tags are provided
// for that), and passed back unchanged on validate. Immutable.
type ValidationState struct {
	Domain      string           `json:"domain"`
	Method      ValidationMethod `json:"method"`
	PrepareTime time.Time        `json:"prepare_time"`
}

const (
	// defaultValidityDays is how long a prepared challenge stays usable.
	defaultValidityDays = 29

	// maxValidityDays is the BR hard cap on random value reuse.
	maxValidityDays = 30
)

// timeNow is swapped by tests.
var timeNow = time.Now

// verifyState checks state freshness and method binding. The expiry code
// depends on the challenge mechanism: a stale random value is reported as
// expired random value, anything else as expired state.
func verifyState(state ValidationState, method ValidationMethod, challengeType ChallengeType, validityDays int) ErrorSet {
	errs := NewErrorSet()

	if state.Domain == "" || state.PrepareTime.IsZero() {
		errs.Add(CodeStateRequired)
		return errs
	}

	// An ACME-style prepare may not know the method yet.
	if state.Method != method && state.Method != MethodUnknown {
		errs.Add(CodeStateMethodMismatch)
	}

	if validityDays <= 0 || validityDays > maxValidityDays {
		validityDays = defaultValidityDays
	}
	elapsed := timeNow().Sub(state.PrepareTime)
	if elapsed >= time.Duration(validityDays)*24*time.Hour {
		if challengeType == ChallengeRandomValue {
			errs.Add(CodeRandomValueExpired)
		} else {
			errs.Add(CodeStateExpired)
		}
	}

	return errs
}
