// Package whois provides the WHOIS client boundary used by email-contact
// discovery. The engine only consumes the raw reply text plus any
// referral host the registry points at; referral following and address
// extraction are the caller's concern.
package whois

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// ErrUnavailable indicates the WHOIS server could not be reached or did
// not answer.
var ErrUnavailable = errors.New("whois: server unavailable")

// Reply is one raw WHOIS response.
type Reply struct {
	// Body is the raw response text.
	Body string

	// Referral is the WHOIS server the response defers to, if any.
	Referral string
}

// Client performs a WHOIS lookup for a domain against a single server.
type Client interface {
	Lookup(ctx context.Context, server, domain string) (*Reply, error)
}

// TCPClient is the default Client, speaking the port-43 protocol.
type TCPClient struct {
	// Timeout bounds dial and read. Default 5 seconds.
	Timeout time.Duration

	// MaxReplyLength caps the bytes read from the server. Default 64 KB.
	MaxReplyLength int64
}

var _ Client = (*TCPClient)(nil)

func (c *TCPClient) timeout() time.Duration {
	if c.Timeout == 0 {
		return 5 * time.Second
	}
	return c.Timeout
}

func (c *TCPClient) maxReply() int64 {
	if c.MaxReplyLength == 0 {
		return 64 * 1024
	}
	return c.MaxReplyLength
}

// Lookup queries the given WHOIS server for the domain. The server may be
// a bare host; port 43 is assumed.
func (c *TCPClient) Lookup(ctx context.Context, server, domain string) (*Reply, error) {
	if !strings.Contains(server, ":") {
		server += ":43"
	}

	dialer := &net.Dialer{Timeout: c.timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout()))

	if _, err := fmt.Fprintf(conn, "%s\r\n", domain); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	body, err := io.ReadAll(io.LimitReader(conn, c.maxReply()))
	if err != nil && len(body) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	reply := &Reply{Body: string(body)}
	reply.Referral = ParseReferral(reply.Body)
	return reply, nil
}

// referralKeys are the field names registries use to defer to another
// WHOIS server.
var referralKeys = []string{
	"registrar whois server",
	"whois server",
	"refer",
	"referralserver",
}

// ParseReferral extracts the referral WHOIS host from a reply body, or
// returns "" when the reply is authoritative.
func ParseReferral(body string) string {
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		val := strings.TrimSpace(line[idx+1:])
		if val == "" {
			continue
		}
		for _, rk := range referralKeys {
			if key == rk {
				val = strings.TrimPrefix(val, "whois://")
				val = strings.TrimPrefix(val, "rwhois://")
				return val
			}
		}
	}
	return ""
}

// MockClient is a Client used for testing. Replies maps "server domain"
// keys to replies; Fail maps the same keys to errors.
type MockClient struct {
	Replies map[string]*Reply
	Fail    map[string]error
}

var _ Client = (*MockClient)(nil)

// Lookup returns the configured reply for the server/domain pair.
func (m *MockClient) Lookup(ctx context.Context, server, domain string) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	key := server + " " + domain
	if err, ok := m.Fail[key]; ok {
		return nil, err
	}
	if r, ok := m.Replies[key]; ok {
		if r.Referral == "" {
			r.Referral = ParseReferral(r.Body)
		}
		return r, nil
	}
	return nil, ErrUnavailable
}
