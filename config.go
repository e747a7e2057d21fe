package dcv

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/synqronlabs/dcv/challenge"
	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/domain"
	"github.com/synqronlabs/dcv/fetch"
	"github.com/synqronlabs/dcv/mpic"
	"github.com/synqronlabs/dcv/whois"
)

// Config contains configuration options for the validation engine.
//
// For a more developer-friendly API, consider using the builder pattern:
//
//	engine, err := dcv.New().
//	    DNSServers("8.8.8.8:53", "1.1.1.1:53").
//	    EnforceCorroboration(true).
//	    Build()
//
// Every numeric timeout, retry and length option rejects negative values
// at engine construction.
type Config struct {
	// ---- DNS lookups ----

	// DNSTimeout bounds each DNS query. Default: 5s.
	DNSTimeout time.Duration

	// DNSRetries is the number of extra passes over the server list
	// after transport failures. Default: 2.
	DNSRetries int

	// DNSServers lists the nameservers tried in order (host:port).
	// Empty means the system resolvers.
	DNSServers []string

	// DNSDomainLabel is the authorization label probed before the bare
	// domain, with or without trailing dot. Default: "_dnsauth".
	DNSDomainLabel string

	// RequireDNSSEC fails DNS lookups whose answers lack the AD flag.
	RequireDNSSEC bool

	// ---- Challenge lifetime ----

	// RandomValueValidityDays is how many days a prepared random value
	// stays valid. Default 29; the BR hard cap of 30 is enforced.
	RandomValueValidityDays int

	// ---- File fetches ----

	// FileConnectTimeout bounds connection establishment. Default: 2s.
	FileConnectTimeout time.Duration

	// FileReadTimeout bounds a whole fetch. Default: 5s.
	FileReadTimeout time.Duration

	// FileMaxBodyLength caps fetched body bytes. Default: 100 KB.
	FileMaxBodyLength int64

	// FileMaxRedirects caps the redirect chain. Default: 5.
	FileMaxRedirects int

	// FileCheckHTTPS also attempts the https scheme for file validation.
	// Default: true (set via the builder; the zero Config disables it).
	FileCheckHTTPS bool

	// FileDefaultFilename is used when a request supplies no filename.
	// Default: "fileauth.txt".
	FileDefaultFilename string

	// UserAgent identifies the engine on file fetches.
	// Default: "dcv-bot/1.0".
	UserAgent string

	// ---- Corroboration ----

	// SecondaryAgents are the extra network perspectives consulted on
	// every corroborated lookup.
	SecondaryAgents []mpic.Agent

	// CorroborationQuorum is how many secondaries must agree with the
	// primary. 0 selects the engine default (all but one).
	CorroborationQuorum int

	// EnforceCorroboration turns a missed quorum into a validation
	// failure instead of a recorded observation.
	EnforceCorroboration bool

	// AgentTimeout bounds each perspective's lookup. Default: 10s.
	AgentTimeout time.Duration

	// ---- Pluggable strategies ----

	// RandomValidator checks random values against fetched bodies.
	// Default: case-sensitive containment.
	RandomValidator challenge.RandomValidator

	// TokenValidator recognizes request tokens in fetched bodies.
	// Default: timestamp-prefixed HMAC-SHA256 tokens.
	TokenValidator challenge.TokenValidator

	// RandomGenerator produces random values at prepare time.
	// Default: 32 alphanumeric characters (190 bits of entropy).
	RandomGenerator challenge.Generator

	// PSLOverrides is consulted before the Public Suffix List when
	// computing base domains. Optional.
	PSLOverrides domain.OverrideSupplier

	// ---- Collaborators ----

	// Resolver is the primary perspective's DNS client. Default: a
	// miekg/dns client built from the DNS options above.
	Resolver dns.Resolver

	// Fetcher is the primary perspective's HTTP client. Default: a
	// net/http client built from the file options above.
	Fetcher fetch.Fetcher

	// Whois is the WHOIS client used for email-contact discovery.
	// Default: the port-43 TCP client.
	Whois whois.Client

	// WhoisServer is the first WHOIS server asked. Default: "whois.iana.org".
	WhoisServer string

	// Logger receives structured lookup and decision logs.
	// Default: slog.Default().
	Logger *slog.Logger
}

// validate rejects configurations the engine must not run with.
func (c *Config) validate() error {
	checks := []struct {
		name  string
		value int64
	}{
		{"DNSTimeout", int64(c.DNSTimeout)},
		{"DNSRetries", int64(c.DNSRetries)},
		{"RandomValueValidityDays", int64(c.RandomValueValidityDays)},
		{"FileConnectTimeout", int64(c.FileConnectTimeout)},
		{"FileReadTimeout", int64(c.FileReadTimeout)},
		{"FileMaxBodyLength", c.FileMaxBodyLength},
		{"FileMaxRedirects", int64(c.FileMaxRedirects)},
		{"CorroborationQuorum", int64(c.CorroborationQuorum)},
		{"AgentTimeout", int64(c.AgentTimeout)},
	}
	for _, chk := range checks {
		if chk.value < 0 {
			return fmt.Errorf("dcv: %s must not be negative", chk.name)
		}
	}

	if c.RandomValueValidityDays > maxValidityDays {
		return fmt.Errorf("dcv: RandomValueValidityDays %d exceeds the BR cap of %d",
			c.RandomValueValidityDays, maxValidityDays)
	}
	return nil
}
