package dcv

import (
	"log/slog"
	"time"

	"github.com/synqronlabs/dcv/challenge"
	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/domain"
	"github.com/synqronlabs/dcv/fetch"
	"github.com/synqronlabs/dcv/mpic"
	"github.com/synqronlabs/dcv/whois"
)

// Builder provides a fluent API for configuring a validation engine.
type Builder struct {
	config Config
}

// New creates a Builder with the recommended defaults: HTTPS fallback
// enabled for file validation, and everything else at the Config
// defaults.
func New() *Builder {
	return &Builder{
		config: Config{
			FileCheckHTTPS: true,
		},
	}
}

// DNSServers sets the nameservers tried in order.
func (b *Builder) DNSServers(servers ...string) *Builder {
	b.config.DNSServers = servers
	return b
}

// DNSTimeout bounds each DNS query.
func (b *Builder) DNSTimeout(d time.Duration) *Builder {
	b.config.DNSTimeout = d
	return b
}

// DNSRetries sets the number of extra passes over the server list.
func (b *Builder) DNSRetries(n int) *Builder {
	b.config.DNSRetries = n
	return b
}

// DNSDomainLabel sets the authorization label probed before the bare
// domain.
func (b *Builder) DNSDomainLabel(label string) *Builder {
	b.config.DNSDomainLabel = label
	return b
}

// RequireDNSSEC fails DNS lookups whose answers are not DNSSEC-validated.
func (b *Builder) RequireDNSSEC() *Builder {
	b.config.RequireDNSSEC = true
	return b
}

// RandomValueValidityDays sets how long prepared random values stay valid.
func (b *Builder) RandomValueValidityDays(days int) *Builder {
	b.config.RandomValueValidityDays = days
	return b
}

// FileTimeouts sets the connect and read timeouts for file fetches.
func (b *Builder) FileTimeouts(connect, read time.Duration) *Builder {
	b.config.FileConnectTimeout = connect
	b.config.FileReadTimeout = read
	return b
}

// FileMaxBodyLength caps fetched body bytes.
func (b *Builder) FileMaxBodyLength(n int64) *Builder {
	b.config.FileMaxBodyLength = n
	return b
}

// FileMaxRedirects caps the redirect chain on file fetches.
func (b *Builder) FileMaxRedirects(n int) *Builder {
	b.config.FileMaxRedirects = n
	return b
}

// FileCheckHTTPS controls whether the https scheme is also attempted for
// file validation.
func (b *Builder) FileCheckHTTPS(enabled bool) *Builder {
	b.config.FileCheckHTTPS = enabled
	return b
}

// FileDefaultFilename sets the filename used when a request supplies none.
func (b *Builder) FileDefaultFilename(name string) *Builder {
	b.config.FileDefaultFilename = name
	return b
}

// UserAgent identifies the engine on file fetches.
func (b *Builder) UserAgent(ua string) *Builder {
	b.config.UserAgent = ua
	return b
}

// SecondaryAgents sets the corroborating network perspectives.
func (b *Builder) SecondaryAgents(agents ...mpic.Agent) *Builder {
	b.config.SecondaryAgents = agents
	return b
}

// CorroborationQuorum sets how many secondaries must agree.
func (b *Builder) CorroborationQuorum(n int) *Builder {
	b.config.CorroborationQuorum = n
	return b
}

// EnforceCorroboration turns a missed quorum into a validation failure.
func (b *Builder) EnforceCorroboration(enabled bool) *Builder {
	b.config.EnforceCorroboration = enabled
	return b
}

// AgentTimeout bounds each perspective's lookup.
func (b *Builder) AgentTimeout(d time.Duration) *Builder {
	b.config.AgentTimeout = d
	return b
}

// RandomValidator swaps the random-value validator strategy.
func (b *Builder) RandomValidator(v challenge.RandomValidator) *Builder {
	b.config.RandomValidator = v
	return b
}

// TokenValidator swaps the request-token validator strategy.
func (b *Builder) TokenValidator(v challenge.TokenValidator) *Builder {
	b.config.TokenValidator = v
	return b
}

// RandomGenerator swaps the random-value generator strategy.
func (b *Builder) RandomGenerator(g challenge.Generator) *Builder {
	b.config.RandomGenerator = g
	return b
}

// PSLOverrides installs a supplier of suffixes to treat as public ahead
// of the Public Suffix List.
func (b *Builder) PSLOverrides(s domain.OverrideSupplier) *Builder {
	b.config.PSLOverrides = s
	return b
}

// Resolver swaps the primary perspective's DNS client.
func (b *Builder) Resolver(r dns.Resolver) *Builder {
	b.config.Resolver = r
	return b
}

// Fetcher swaps the primary perspective's HTTP client.
func (b *Builder) Fetcher(f fetch.Fetcher) *Builder {
	b.config.Fetcher = f
	return b
}

// Whois swaps the WHOIS client used for email-contact discovery.
func (b *Builder) Whois(c whois.Client) *Builder {
	b.config.Whois = c
	return b
}

// WhoisServer sets the first WHOIS server asked.
func (b *Builder) WhoisServer(server string) *Builder {
	b.config.WhoisServer = server
	return b
}

// Logger sets the structured logger.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.config.Logger = logger
	return b
}

// Build creates the engine from the builder configuration.
func (b *Builder) Build() (*Engine, error) {
	return NewEngine(b.config)
}
