// Package web implements the web_fetch tool contract: HTTPS-only (plain
// http is upgraded, never refused outright), an SSRF guard
// against loopback/link-local/private address ranges, a bounded timeout with
// one retry on transient failure, and output truncation.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hearth/internal/logging"
	"hearth/internal/tools"
)

// FetchTimeout bounds a single HTTP attempt.
const FetchTimeout = 15 * time.Second

// MaxBodyChars truncates the returned body before it reaches the model.
const MaxBodyChars = 10000

// Client performs the guarded fetch. It is a small interface so tests can
// substitute a fake transport without a live network.
type Client struct {
	HTTP *http.Client
}

// New builds a Client with FetchTimeout as its per-request deadline and a
// RoundTripper that refuses to dial a disallowed address, so the guard holds
// even across redirects.
func New() *Client {
	return &Client{
		HTTP: &http.Client{
			Timeout: FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("web_fetch: too many redirects")
				}
				return guardURL(req.URL)
			},
			Transport: &http.Transport{
				DialContext: guardedDialer,
			},
		},
	}
}

// guardedDialer rejects connections to loopback, link-local and private
// address ranges regardless of what CheckRedirect already filtered, closing
// the DNS-rebinding gap a URL-string check alone would leave open.
func guardedDialer(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if isDisallowedIP(ip) {
			return nil, fmt.Errorf("web_fetch: refusing to connect to disallowed address %s", ip)
		}
	}
	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}

func isDisallowedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	// IPv4-mapped private/loopback ranges already covered by IsPrivate/
	// IsLoopback above once To4() normalizes them; nothing further needed.
	return false
}

func guardURL(u *url.URL) error {
	if u.Scheme != "https" {
		return fmt.Errorf("web_fetch: only https URLs are allowed, got %q", u.Scheme)
	}
	host := u.Hostname()
	if ip := net.ParseIP(host); ip != nil && isDisallowedIP(ip) {
		return fmt.Errorf("web_fetch: refusing to fetch disallowed address %s", host)
	}
	return nil
}

// upgrade rewrites a plain http:// URL to https://
// ("http is upgraded to https, never fetched directly").
func upgrade(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("web_fetch: invalid URL: %w", err)
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

// Definition returns the registry Definition for web_fetch.
func (c *Client) Definition() tools.Definition {
	return tools.Definition{
		Name:        "web_fetch",
		Description: "Fetches a URL over HTTPS and returns its body, truncated to 10,000 characters.",
		InputSchema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.Property{
				"url": {Type: "string", Description: "The URL to fetch. http:// is upgraded to https://."},
			},
			Required: []string{"url"},
		},
		Timeout: FetchTimeout + 5*time.Second,
		Handler: c.Execute,
	}
}

// Execute fetches input["url"], retrying once on a 5xx response or a
// timeout.
func (c *Client) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	raw, _ := input["url"].(string)
	if raw == "" {
		return "", fmt.Errorf("web_fetch: url is required")
	}

	target, err := upgrade(raw)
	if err != nil {
		return "", err
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("web_fetch: invalid URL: %w", err)
	}
	if err := guardURL(parsed); err != nil {
		return "", &tools.SafetyViolationError{Tool: "web_fetch", Message: err.Error()}
	}

	log := logging.Get(logging.CategoryTools)

	body, status, err := c.attempt(ctx, target)
	if err != nil || status >= 500 {
		log.Warn("web_fetch: first attempt failed (status=%d err=%v), retrying once: %s", status, err, target)
		body, status, err = c.attempt(ctx, target)
	}
	if err != nil {
		return "", fmt.Errorf("web_fetch: %w", err)
	}

	truncated := len(body) > MaxBodyChars
	if truncated {
		body = body[:MaxBodyChars] + "\n...[truncated]"
	}

	log.Info("web_fetch: status=%d bytes=%d truncated=%v url=%s", status, len(body), truncated, target)
	return fmt.Sprintf("status: %d\ntruncated: %v\nbody:\n%s", status, truncated, body), nil
}

func (c *Client) attempt(ctx context.Context, target string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", "hearth-agent/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyChars*4))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return strings.TrimSpace(string(data)), resp.StatusCode, nil
}
