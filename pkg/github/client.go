// Package github provides a minimal client for the GitHub REST v3 API,
// covering the repository metadata endpoints used for lead enrichment.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the GitHub operations used by the enrichment pipeline.
type Client interface {
	// GetRepository fetches repository metadata for owner/name.
	GetRepository(ctx context.Context, owner, name string) (*Repository, error)
	// GetLanguages fetches the per-language byte histogram.
	GetLanguages(ctx context.Context, owner, name string) (map[string]int64, error)
	// GetContributors fetches up to perPage top contributors by contribution count.
	GetContributors(ctx context.Context, owner, name string, perPage int) ([]Contributor, error)
	// GetOrganization fetches an organization profile.
	GetOrganization(ctx context.Context, org string) (*Organization, error)
}

// Repository is the subset of the repos API response the pipeline consumes.
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Homepage    string    `json:"homepage"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	Watchers    int       `json:"watchers_count"`
	OpenIssues  int       `json:"open_issues_count"`
	Language    string    `json:"language"`
	Topics      []string  `json:"topics"`
	Size        int       `json:"size"`
	HasIssues   bool      `json:"has_issues"`
	HasWiki     bool      `json:"has_wiki"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Owner       Owner     `json:"owner"`
	License     *License  `json:"license"`
}

// Owner identifies the account that owns a repository.
type Owner struct {
	Login     string `json:"login"`
	Type      string `json:"type"` // "User" or "Organization"
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// License is the repository license descriptor.
type License struct {
	Name string `json:"name"`
}

// Contributor is one entry of the contributors listing.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
	AvatarURL     string `json:"avatar_url"`
	HTMLURL       string `json:"html_url"`
}

// Organization is the orgs API response subset.
type Organization struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Blog        string    `json:"blog"`
	Location    string    `json:"location"`
	Email       string    `json:"email"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	CreatedAt   time.Time `json:"created_at"`
	AvatarURL   string    `json:"avatar_url"`
}

// APIError reports a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s returned %d", e.Endpoint, e.StatusCode)
}

// Option configures the GitHub client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a GitHub API client. An empty token makes
// unauthenticated requests, subject to the lower anonymous rate limit.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: "https://api.github.com",
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "github: build request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "github: GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return eris.Wrapf(err, "github: read %s", path)
	}

	// The search/core quota exhaustion surfaces as 403 with a zero
	// remaining header; report it as 429 so callers classify it as
	// rate-limited rather than an auth failure.
	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return &APIError{StatusCode: http.StatusTooManyRequests, Endpoint: path}
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Endpoint: path}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "github: decode %s", path)
	}
	return nil
}

func (c *httpClient) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	var repo Repository
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s", owner, name), &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (c *httpClient) GetLanguages(ctx context.Context, owner, name string) (map[string]int64, error) {
	langs := make(map[string]int64)
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/languages", owner, name), &langs); err != nil {
		return nil, err
	}
	return langs, nil
}

func (c *httpClient) GetContributors(ctx context.Context, owner, name string, perPage int) ([]Contributor, error) {
	if perPage <= 0 {
		perPage = 10
	}
	var contributors []Contributor
	path := fmt.Sprintf("/repos/%s/%s/contributors?per_page=%d", owner, name, perPage)
	if err := c.get(ctx, path, &contributors); err != nil {
		return nil, err
	}
	return contributors, nil
}

func (c *httpClient) GetOrganization(ctx context.Context, org string) (*Organization, error) {
	var o Organization
	if err := c.get(ctx, fmt.Sprintf("/orgs/%s", org), &o); err != nil {
		return nil, err
	}
	return &o, nil
}
