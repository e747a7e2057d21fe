package dcv

import (
	"encoding/json"
	"testing"
	"time"
)

func TestVerifyState(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	fresh := ValidationState{
		Domain:      "example.com",
		Method:      MethodDNS,
		PrepareTime: now.Add(-time.Hour),
	}

	testCases := []struct {
		name          string
		state         ValidationState
		method        ValidationMethod
		challengeType ChallengeType
		validityDays  int
		want          []ErrorCode
	}{
		{
			name:          "fresh state passes",
			state:         fresh,
			method:        MethodDNS,
			challengeType: ChallengeRandomValue,
		},
		{
			name:          "zero state",
			state:         ValidationState{},
			method:        MethodDNS,
			challengeType: ChallengeRandomValue,
			want:          []ErrorCode{CodeStateRequired},
		},
		{
			name: "method mismatch",
			state: ValidationState{
				Domain:      "example.com",
				Method:      MethodFile,
				PrepareTime: now.Add(-time.Hour),
			},
			method:        MethodDNS,
			challengeType: ChallengeRandomValue,
			want:          []ErrorCode{CodeStateMethodMismatch},
		},
		{
			name: "unknown method placeholder passes",
			state: ValidationState{
				Domain:      "example.com",
				Method:      MethodUnknown,
				PrepareTime: now.Add(-time.Hour),
			},
			method:        MethodDNS,
			challengeType: ChallengeRandomValue,
		},
		{
			name: "one second inside default validity passes",
			state: ValidationState{
				Domain:      "example.com",
				Method:      MethodDNS,
				PrepareTime: now.Add(-29*24*time.Hour + time.Second),
			},
			method:        MethodDNS,
			challengeType: ChallengeRandomValue,
		},
		{
			name: "exactly at default validity expires",
			state: ValidationState{
				Domain:      "example.com",
				Method:      MethodDNS,
				PrepareTime: now.Add(-29 * 24 * time.Hour),
			},
			method:        MethodDNS,
			challengeType: ChallengeRandomValue,
			want:          []ErrorCode{CodeRandomValueExpired},
		},
		{
			name: "token expiry reported as state expiry",
			state: ValidationState{
				Domain:      "example.com",
				Method:      MethodDNS,
				PrepareTime: now.Add(-29 * 24 * time.Hour),
			},
			method:        MethodDNS,
			challengeType: ChallengeRequestToken,
			want:          []ErrorCode{CodeStateExpired},
		},
		{
			name: "custom validity period",
			state: ValidationState{
				Domain:      "example.com",
				Method:      MethodDNS,
				PrepareTime: now.Add(-2 * 24 * time.Hour),
			},
			method:        MethodDNS,
			challengeType: ChallengeRandomValue,
			validityDays:  1,
			want:          []ErrorCode{CodeRandomValueExpired},
		},
		{
			name: "validity above hard cap falls back to default",
			state: ValidationState{
				Domain:      "example.com",
				Method:      MethodDNS,
				PrepareTime: now.Add(-29 * 24 * time.Hour),
			},
			method:        MethodDNS,
			challengeType: ChallengeRandomValue,
			validityDays:  90,
			want:          []ErrorCode{CodeRandomValueExpired},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := verifyState(tc.state, tc.method, tc.challengeType, tc.validityDays)
			assertCodes(t, errs, tc.want...)
		})
	}
}

func TestValidationState_JSONRoundTrip(t *testing.T) {
	orig := ValidationState{
		Domain:      "*.example.com",
		Method:      MethodFile,
		PrepareTime: time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC),
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got ValidationState
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != orig {
		t.Errorf("round trip changed state: got %+v, want %+v", got, orig)
	}
}

// assertCodes fails unless errs contains exactly the wanted codes.
func assertCodes(t *testing.T, errs ErrorSet, want ...ErrorCode) {
	t.Helper()
	if len(want) == 0 {
		if !errs.Empty() {
			t.Fatalf("expected no errors, got %v", errs.Codes())
		}
		return
	}
	if len(errs) != len(want) {
		t.Fatalf("expected codes %v, got %v", want, errs.Codes())
	}
	for _, code := range want {
		if !errs.Has(code) {
			t.Errorf("expected code %s in %v", code, errs.Codes())
		}
	}
}
