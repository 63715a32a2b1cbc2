package enrich

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sells-group/leadscout/internal/fetcher"
	"github.com/sells-group/leadscout/pkg/github"
	"github.com/sells-group/leadscout/pkg/whois"
)

// noSleep disables retry backoff so transient-path tests run instantly.
func noSleep(ctx context.Context, d time.Duration) error { return nil }

type mockGitHubClient struct {
	mu sync.Mutex

	repo    *github.Repository
	repoErr error

	languages    map[string]int64
	languagesErr error

	contributors    []github.Contributor
	contributorsErr error

	org    *github.Organization
	orgErr error

	repoCalls int
	orgCalls  int
}

func (m *mockGitHubClient) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	m.mu.Lock()
	m.repoCalls++
	m.mu.Unlock()
	return m.repo, m.repoErr
}

func (m *mockGitHubClient) GetLanguages(ctx context.Context, owner, name string) (map[string]int64, error) {
	return m.languages, m.languagesErr
}

func (m *mockGitHubClient) GetContributors(ctx context.Context, owner, name string, perPage int) ([]github.Contributor, error) {
	return m.contributors, m.contributorsErr
}

func (m *mockGitHubClient) GetOrganization(ctx context.Context, org string) (*github.Organization, error) {
	m.mu.Lock()
	m.orgCalls++
	m.mu.Unlock()
	return m.org, m.orgErr
}

// stubFetcher serves canned pages keyed by the exact URL argument.
type stubFetcher struct {
	mu       sync.Mutex
	pages    map[string]*fetcher.Page
	err      error
	requests []string
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*fetcher.Page, error) {
	s.mu.Lock()
	s.requests = append(s.requests, url)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	page, ok := s.pages[url]
	if !ok {
		return nil, &fetcherMiss{url: url}
	}
	return page, nil
}

type fetcherMiss struct{ url string }

func (e *fetcherMiss) Error() string { return "no stub page for " + e.url }

func htmlPage(url, body string, header http.Header) *fetcher.Page {
	if header == nil {
		header = http.Header{}
	}
	return &fetcher.Page{URL: url, StatusCode: 200, Body: []byte(body), Header: header}
}

type stubWhois struct {
	created *time.Time
	err     error
	queried []string
}

var _ whois.Client = (*stubWhois)(nil)

func (s *stubWhois) CreationDate(ctx context.Context, domain string) (*time.Time, error) {
	s.queried = append(s.queried, domain)
	return s.created, s.err
}
