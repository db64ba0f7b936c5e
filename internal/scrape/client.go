// Package scrape fetches public LinkedIn profile pages through a scraping
// API.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// ErrUnsupportedURL is returned for anything other than a LinkedIn profile URL.
var ErrUnsupportedURL = errors.New("only linkedin.com/in/ profile URLs are supported")

var profilePathRe = regexp.MustCompile(`^/in/[A-Za-z0-9\-_%]+/?$`)

// Client calls a scraping API of the form GET {base}?url=<target>.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *sturdyc.Client[[]byte]
}

// NewClient returns a scraping client. With a positive cacheTTL, fetched
// pages are cached per canonical profile URL and concurrent requests for
// the same profile share one upstream call.
func NewClient(baseURL, apiKey string, cacheTTL time.Duration) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	if cacheTTL > 0 {
		c.cache = sturdyc.New[[]byte](500, 10, cacheTTL, 10)
	}
	return c
}

// NormalizeProfileURL validates a profile URL and returns its canonical
// https://www.linkedin.com/in/<slug> form.
func NormalizeProfileURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrUnsupportedURL
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", ErrUnsupportedURL
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && host != "www.linkedin.com" {
		return "", ErrUnsupportedURL
	}
	if !profilePathRe.MatchString(u.EscapedPath()) {
		return "", ErrUnsupportedURL
	}
	return "https://www.linkedin.com" + strings.TrimSuffix(u.EscapedPath(), "/"), nil
}

// FetchProfile returns the HTML of a profile page.
func (c *Client) FetchProfile(ctx context.Context, profileURL string) ([]byte, error) {
	target, err := NormalizeProfileURL(profileURL)
	if err != nil {
		return nil, err
	}
	if c.cache == nil {
		return c.fetch(ctx, target)
	}
	return c.cache.GetOrFetch(ctx, target, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, target)
	})
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse scrape base url: %w", err)
	}
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("read scrape response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return nil, fmt.Errorf("scrape status %d: %s", resp.StatusCode, msg)
	}
	return body, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
