// Package whois provides a minimal WHOIS lookup used to estimate a
// company's founding year from its domain registration date.
package whois

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client answers domain registration queries.
type Client interface {
	// CreationDate returns the registration date of a domain, or nil if the
	// registry did not report one.
	CreationDate(ctx context.Context, domain string) (*time.Time, error)
}

// Option configures the WHOIS client.
type Option func(*tcpClient)

// WithServer overrides the referral server (host:port), bypassing the IANA
// referral hop. Used by tests.
func WithServer(addr string) Option {
	return func(c *tcpClient) {
		c.server = addr
	}
}

// WithTimeout sets the per-query dial/read timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *tcpClient) {
		c.timeout = d
	}
}

type tcpClient struct {
	server  string
	timeout time.Duration
	dialer  net.Dialer
}

// NewClient creates a WHOIS client that resolves the responsible registry
// via whois.iana.org unless a fixed server is configured.
func NewClient(opts ...Option) Client {
	c := &tcpClient{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const ianaServer = "whois.iana.org:43"

// Creation-date labels seen across registries.
var creationLabels = []string{
	"creation date:",
	"created:",
	"registered on:",
	"domain registration date:",
}

var creationFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func (c *tcpClient) CreationDate(ctx context.Context, domain string) (*time.Time, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, eris.New("whois: empty domain")
	}

	server := c.server
	if server == "" {
		referred, err := c.refer(ctx, domain)
		if err != nil {
			return nil, err
		}
		if referred == "" {
			return nil, nil
		}
		server = referred + ":43"
	}

	body, err := c.query(ctx, server, domain)
	if err != nil {
		return nil, err
	}
	return parseCreationDate(body), nil
}

// refer asks IANA which registry serves the domain's TLD.
func (c *tcpClient) refer(ctx context.Context, domain string) (string, error) {
	body, err := c.query(ctx, ianaServer, domain)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(body, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(strings.ToLower(line)), "refer:"); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}

func (c *tcpClient) query(ctx context.Context, server, q string) (string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(dialCtx, "tcp", server)
	if err != nil {
		return "", eris.Wrapf(err, "whois: dial %s", server)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write([]byte(q + "\r\n")); err != nil {
		return "", eris.Wrap(err, "whois: write query")
	}

	body, err := io.ReadAll(bufio.NewReader(conn))
	if err != nil {
		return "", eris.Wrap(err, "whois: read response")
	}
	return string(body), nil
}

func parseCreationDate(body string) *time.Time {
	for _, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, label := range creationLabels {
			v, ok := strings.CutPrefix(lower, label)
			if !ok {
				continue
			}
			v = strings.TrimSpace(v)
			for _, format := range creationFormats {
				if t, err := time.Parse(format, v); err == nil {
					return &t
				}
			}
		}
	}
	return nil
}
