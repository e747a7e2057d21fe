package dcv

import (
	"testing"
	"time"

	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/fetch"
)

func TestConfigValidate_RejectsNegatives(t *testing.T) {
	testCases := []struct {
		name   string
		config Config
	}{
		{"dns timeout", Config{DNSTimeout: -time.Second}},
		{"dns retries", Config{DNSRetries: -1}},
		{"validity days", Config{RandomValueValidityDays: -1}},
		{"connect timeout", Config{FileConnectTimeout: -time.Second}},
		{"read timeout", Config{FileReadTimeout: -time.Second}},
		{"max body length", Config{FileMaxBodyLength: -1}},
		{"max redirects", Config{FileMaxRedirects: -1}},
		{"quorum", Config{CorroborationQuorum: -1}},
		{"agent timeout", Config{AgentTimeout: -time.Second}},
		{"validity days above cap", Config{RandomValueValidityDays: 31}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEngine(tc.config); err == nil {
				t.Error("expected construction error")
			}
		})
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	e, err := NewEngine(Config{
		Resolver: &dns.MockResolver{},
		Fetcher:  &fetch.MockFetcher{},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if e.config.DNSDomainLabel != "_dnsauth" {
		t.Errorf("label = %q", e.config.DNSDomainLabel)
	}
	if e.config.RandomValueValidityDays != defaultValidityDays {
		t.Errorf("validity days = %d", e.config.RandomValueValidityDays)
	}
	if e.config.FileDefaultFilename != "fileauth.txt" {
		t.Errorf("filename = %q", e.config.FileDefaultFilename)
	}
	if e.config.WhoisServer != "whois.iana.org" {
		t.Errorf("whois server = %q", e.config.WhoisServer)
	}
	if e.config.RandomValidator == nil || e.config.TokenValidator == nil || e.config.RandomGenerator == nil {
		t.Error("challenge strategies not defaulted")
	}
	if e.consensus == nil || e.domains == nil {
		t.Error("collaborators not built")
	}
}

func TestNewEngine_NormalizesLabel(t *testing.T) {
	e, err := NewEngine(Config{
		DNSDomainLabel: "_custom.",
		Resolver:       &dns.MockResolver{},
		Fetcher:        &fetch.MockFetcher{},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if e.config.DNSDomainLabel != "_custom" {
		t.Errorf("label = %q, want trailing dot trimmed", e.config.DNSDomainLabel)
	}
}

func TestBuilder(t *testing.T) {
	e, err := New().
		DNSServers("8.8.8.8:53", "1.1.1.1:53").
		DNSDomainLabel("_acme-validation").
		RandomValueValidityDays(7).
		EnforceCorroboration(true).
		CorroborationQuorum(2).
		UserAgent("test-bot/0.1").
		Resolver(&dns.MockResolver{}).
		Fetcher(&fetch.MockFetcher{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if e.config.DNSDomainLabel != "_acme-validation" {
		t.Errorf("label = %q", e.config.DNSDomainLabel)
	}
	if e.config.RandomValueValidityDays != 7 {
		t.Errorf("validity days = %d", e.config.RandomValueValidityDays)
	}
	if !e.config.EnforceCorroboration || e.config.CorroborationQuorum != 2 {
		t.Error("corroboration options not carried")
	}
	if e.config.UserAgent != "test-bot/0.1" {
		t.Errorf("user agent = %q", e.config.UserAgent)
	}
	if !e.config.FileCheckHTTPS {
		t.Error("builder default should enable https fallback")
	}
}

func TestCheckChallengeInputs(t *testing.T) {
	testCases := []struct {
		name          string
		challengeType ChallengeType
		randomValue   string
		tokenKey      []byte
		tokenValue    string
		want          []ErrorCode
	}{
		{
			name:          "random value present",
			challengeType: ChallengeRandomValue,
			randomValue:   "v",
		},
		{
			name:          "random value missing",
			challengeType: ChallengeRandomValue,
			want:          []ErrorCode{CodeRandomValueRequired},
		},
		{
			name:          "random with token material",
			challengeType: ChallengeRandomValue,
			randomValue:   "v",
			tokenKey:      []byte("k"),
			want:          []ErrorCode{CodeChallengeInputConflict},
		},
		{
			name:          "token material present",
			challengeType: ChallengeRequestToken,
			tokenKey:      []byte("k"),
			tokenValue:    "v",
		},
		{
			name:          "token key missing",
			challengeType: ChallengeRequestToken,
			tokenValue:    "v",
			want:          []ErrorCode{CodeTokenMaterialRequired},
		},
		{
			name:          "token with random value",
			challengeType: ChallengeRequestToken,
			tokenKey:      []byte("k"),
			tokenValue:    "v",
			randomValue:   "r",
			want:          []ErrorCode{CodeChallengeInputConflict},
		},
		{
			name: "unset challenge type",
			want: []ErrorCode{CodeRandomValueRequired, CodeTokenMaterialRequired},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := NewErrorSet()
			checkChallengeInputs(tc.challengeType, tc.randomValue, tc.tokenKey, tc.tokenValue, errs)
			assertCodes(t, errs, tc.want...)
		})
	}
}
