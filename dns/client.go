package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// ClientConfig contains configuration for the DNS client.
type ClientConfig struct {
	// Servers is a list of DNS servers to query (e.g., "8.8.8.8:53").
	// If empty, system resolvers from /etc/resolv.conf are used,
	// falling back to public DNS (8.8.8.8, 1.1.1.1).
	Servers []string

	// DNSSEC sets the EDNS0 DO bit on queries. Requires DNSSEC-validating
	// upstream resolvers; the Authentic field of Response reports the AD flag.
	DNSSEC bool

	// Timeout is the timeout for individual DNS queries. Default is 5 seconds.
	Timeout time.Duration

	// Retries is the number of extra passes over the server list after a
	// transport failure. Default is 2.
	Retries int
}

// Client implements the Resolver interface using github.com/miekg/dns.
// Servers are tried in order; the first to return a definitive answer
// (including NXDOMAIN or an empty record set) is authoritative, and the
// remaining servers are only consulted on timeout or connection failure.
type Client struct {
	config ClientConfig
	client *mdns.Client
}

var _ Resolver = (*Client)(nil)

// NewClient creates a DNS client with the given configuration.
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Retries == 0 {
		config.Retries = 2
	}
	if len(config.Servers) == 0 {
		config.Servers = getSystemNameservers()
	}

	return &Client{
		config: config,
		client: &mdns.Client{
			Timeout: config.Timeout,
		},
	}
}

// getSystemNameservers tries to get system DNS servers from resolv.conf.
func getSystemNameservers() []string {
	config, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		// Fallback to common public DNS servers
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}

	servers := make([]string, 0, len(config.Servers))
	for _, s := range config.Servers {
		if !strings.Contains(s, ":") {
			s = s + ":53"
		}
		servers = append(servers, s)
	}
	return servers
}

// Query tries each candidate name in order and returns the records at the
// first name with a substantive answer of the requested type. Errors from
// earlier names are carried in Response.Errs of a successful response; if
// no name yields an answer, the classified error of the last name is
// returned.
func (c *Client) Query(ctx context.Context, names []string, rtype Type) (*Response, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no names to query", ErrNotFound)
	}

	qtype, err := wireType(rtype)
	if err != nil {
		return nil, err
	}

	var errs []error
	var lastErr error

	for _, name := range names {
		resp, qerr := c.queryName(ctx, FQDN(name), qtype, rtype)
		if qerr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, qerr))
			lastErr = qerr
			continue
		}
		resp.Errs = errs
		return resp, nil
	}

	return &Response{Errs: errs}, lastErr
}

// queryName resolves one name against the configured servers with failover
// and retries.
func (c *Client) queryName(ctx context.Context, fqdn string, qtype uint16, rtype Type) (*Response, error) {
	m := new(mdns.Msg)
	m.SetQuestion(fqdn, qtype)
	m.RecursionDesired = true

	if c.config.DNSSEC {
		m.SetEdns0(4096, true)
	}

	var lastErr error

	for i := 0; i <= c.config.Retries; i++ {
		for _, server := range c.config.Servers {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			default:
			}

			resp, _, err := c.client.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = classifyExchangeError(err)
				continue
			}
			if resp.Truncated {
				lastErr = fmt.Errorf("%w: truncated response", ErrMalformed)
				continue
			}

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return buildResponse(server, fqdn, resp, rtype)
			case mdns.RcodeNameError: // NXDOMAIN is definitive, no failover
				return nil, ErrNXDomain
			case mdns.RcodeServerFailure:
				lastErr = ErrServFail
				continue
			default:
				lastErr = fmt.Errorf("%w: unexpected rcode %s", ErrMalformed, mdns.RcodeToString[resp.Rcode])
				continue
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrServFail
}

// classifyExchangeError maps transport errors to the package sentinels.
func classifyExchangeError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var dnserr *net.DNSError
	if errors.As(err, &dnserr) && dnserr.IsNotFound {
		return fmt.Errorf("%w: %v", ErrUnknownHost, err)
	}
	if strings.Contains(err.Error(), "unpacking") || strings.Contains(err.Error(), "overflow") {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fmt.Errorf("%w: %v", ErrIO, err)
}

// buildResponse extracts records of the requested type plus any CNAME chain
// from the answer section.
func buildResponse(server, fqdn string, msg *mdns.Msg, rtype Type) (*Response, error) {
	resp := &Response{
		Server:    server,
		Name:      strings.TrimSuffix(fqdn, "."),
		Authentic: msg.AuthenticatedData,
	}

	for _, rr := range msg.Answer {
		hdr := rr.Header()
		name := strings.TrimSuffix(hdr.Name, ".")
		switch v := rr.(type) {
		case *mdns.CNAME:
			resp.CNAMEChain = append(resp.CNAMEChain, strings.TrimSuffix(v.Target, "."))
			if rtype == TypeCNAME {
				resp.Records = append(resp.Records, Record{
					Type:  TypeCNAME,
					Name:  name,
					Value: strings.TrimSuffix(v.Target, "."),
					TTL:   hdr.Ttl,
				})
			}
		case *mdns.TXT:
			if rtype == TypeTXT {
				// TXT records may be split into multiple character
				// strings; join them.
				resp.Records = append(resp.Records, Record{
					Type:  TypeTXT,
					Name:  name,
					Value: strings.Join(v.Txt, ""),
					TTL:   hdr.Ttl,
				})
			}
		case *mdns.CAA:
			if rtype == TypeCAA {
				resp.Records = append(resp.Records, Record{
					Type:  TypeCAA,
					Name:  name,
					Value: v.Value,
					TTL:   hdr.Ttl,
					Flag:  v.Flag,
					Tag:   v.Tag,
				})
			}
		}
	}

	if len(resp.Records) == 0 {
		return nil, ErrNotFound
	}
	return resp, nil
}

func wireType(rtype Type) (uint16, error) {
	switch rtype {
	case TypeCNAME:
		return mdns.TypeCNAME, nil
	case TypeTXT:
		return mdns.TypeTXT, nil
	case TypeCAA:
		return mdns.TypeCAA, nil
	default:
		return 0, fmt.Errorf("%w: unsupported record type %q", ErrMalformed, rtype)
	}
}
