package dcv

import (
	"log/slog"
	"strings"

	"github.com/synqronlabs/dcv/challenge"
	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/domain"
	"github.com/synqronlabs/dcv/fetch"
	"github.com/synqronlabs/dcv/mpic"
	"github.com/synqronlabs/dcv/whois"
)

// primaryAgentID identifies the in-process perspective in evidence.
const primaryAgentID = "primary"

// Engine is the validation engine: configuration plus the shared
// collaborators behind the per-method validators. Construct one with
// NewEngine or the builder, then use DNS, Email and File.
//
// An Engine is safe for concurrent use; every validation request builds
// its own evidence and shares only read-only structures.
type Engine struct {
	config    Config
	domains   *domain.Resolver
	consensus *mpic.Engine
	logger    *slog.Logger
}

// NewEngine validates the configuration, fills defaults, and builds an
// engine.
func NewEngine(config Config) (*Engine, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	if config.DNSDomainLabel == "" {
		config.DNSDomainLabel = "_dnsauth"
	}
	config.DNSDomainLabel = strings.Trim(config.DNSDomainLabel, ".")
	if config.RandomValueValidityDays == 0 {
		config.RandomValueValidityDays = defaultValidityDays
	}
	if config.FileDefaultFilename == "" {
		config.FileDefaultFilename = "fileauth.txt"
	}
	if config.UserAgent == "" {
		config.UserAgent = "dcv-bot/1.0"
	}
	if config.WhoisServer == "" {
		config.WhoisServer = "whois.iana.org"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.Resolver == nil {
		config.Resolver = dns.NewClient(dns.ClientConfig{
			Servers: config.DNSServers,
			Timeout: config.DNSTimeout,
			Retries: config.DNSRetries,
			DNSSEC:  config.RequireDNSSEC,
		})
	}
	if config.Fetcher == nil {
		config.Fetcher = fetch.NewClient(fetch.Config{
			ConnectTimeout: config.FileConnectTimeout,
			ReadTimeout:    config.FileReadTimeout,
			MaxBodyLength:  config.FileMaxBodyLength,
			MaxRedirects:   config.FileMaxRedirects,
			UserAgent:      config.UserAgent,
		})
	}
	if config.Whois == nil {
		config.Whois = &whois.TCPClient{}
	}
	if config.RandomValidator == nil {
		config.RandomValidator = challenge.ContainsValidator{}
	}
	if config.TokenValidator == nil {
		config.TokenValidator = challenge.HMACTokenValidator{}
	}
	if config.RandomGenerator == nil {
		config.RandomGenerator = challenge.NewDefaultGenerator()
	}

	e := &Engine{
		config:  config,
		domains: &domain.Resolver{Overrides: config.PSLOverrides},
		logger:  config.Logger,
	}
	e.consensus = &mpic.Engine{
		Primary:       mpic.NewLocalAgent(primaryAgentID, config.Resolver, config.Fetcher),
		Secondaries:   config.SecondaryAgents,
		Quorum:        config.CorroborationQuorum,
		Enforce:       config.EnforceCorroboration,
		RequireDNSSEC: config.RequireDNSSEC,
		AgentTimeout:  config.AgentTimeout,
		Logger:        config.Logger,
	}
	return e, nil
}

// DNS returns the DNS method validator.
func (e *Engine) DNS() *DNSValidator { return &DNSValidator{e: e} }

// Email returns the email method validator.
func (e *Engine) Email() *EmailValidator { return &EmailValidator{e: e} }

// File returns the file method validator.
func (e *Engine) File() *FileValidator { return &FileValidator{e: e} }

// Domains returns the engine's domain name resolver, usable on its own
// for syntax checks and base-domain computation.
func (e *Engine) Domains() *domain.Resolver { return e.domains }

// validateDomain runs syntax validation and maps failures into codes.
func (e *Engine) validateDomain(name string, allowWildcard bool, errs ErrorSet) {
	if err := e.domains.Validate(name); err != nil {
		errs.Add(codeForDomainError(err))
		return
	}
	if !allowWildcard && domain.IsWildcard(name) {
		errs.Add(CodeDomainWildcardNotAllowed)
	}
}

// checkChallengeInputs enforces that exactly the inputs for the chosen
// mechanism are present. The two mechanisms are mutually exclusive on
// every request.
func checkChallengeInputs(challengeType ChallengeType, randomValue string, tokenKey []byte, tokenValue string, errs ErrorSet) {
	switch challengeType {
	case ChallengeRandomValue:
		if randomValue == "" {
			errs.Add(CodeRandomValueRequired)
		}
		if len(tokenKey) > 0 || tokenValue != "" {
			errs.Add(CodeChallengeInputConflict)
		}
	case ChallengeRequestToken:
		if len(tokenKey) == 0 || tokenValue == "" {
			errs.Add(CodeTokenMaterialRequired)
		}
		if randomValue != "" {
			errs.Add(CodeChallengeInputConflict)
		}
	default:
		// Unset challenge type: neither input can be satisfied.
		errs.Add(CodeRandomValueRequired, CodeTokenMaterialRequired)
	}
}
