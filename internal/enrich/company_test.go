package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/fetcher"
	"github.com/sells-group/leadscout/pkg/whois"
)

const companyTestPage = `<html><head>
	<title>Acme | Build faster</title>
	<meta property="og:site_name" content="Acme">
	<meta name="description" content="Acme is a SaaS platform for shipping software. Founded in 2015. Enterprise plans available.">
	<meta name="keywords" content="saas, developer tools">
	<meta name="geo.region" content="US-CA">
</head><body>
	<p>Trusted by 10,000+ customers worldwide.</p>
	<div class="feature-card">Automated deployment pipelines for every team</div>
	<div class="testimonial">It just works</div>
	<div class="testimonial">Saved us weeks</div>
</body></html>`

func newTestProfiler(f *stubFetcher, w whois.Client, c *cache.Cache) *CompanyProfiler {
	p := NewCompanyProfiler(f, w, c)
	p.now = func() time.Time { return repoTestNow }
	return p
}

func TestCompanyFetch(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetcher.Page{
		"acme.dev": htmlPage("https://acme.dev", companyTestPage, nil),
	}}

	created := repoTestNow.AddDate(-9, 0, 0)
	hints := CompanyHints{
		Email:        "hello@acme.dev",
		Website:      "https://acme.dev",
		PublicRepos:  30,
		Followers:    500,
		CreatedAt:    &created,
		HasRepoStats: true,
	}

	p := newTestProfiler(f, nil, nil)

	profile, err := p.Fetch(context.Background(), "https://www.acme.dev", hints)
	require.NoError(t, err)

	assert.Equal(t, "Acme", profile.Name, "og:site_name wins over title")
	assert.Equal(t, "acme.dev", profile.Domain)
	assert.Equal(t, "SaaS", profile.Industry)
	assert.Equal(t, "US-CA", profile.Location)
	assert.Equal(t, 2015, profile.FoundedYear)
	assert.Equal(t, "Medium (20-50 employees)", profile.Size)
	assert.Equal(t, "hello@acme.dev", profile.Email)
	assert.Equal(t, 30, profile.PublicRepos)
	assert.Equal(t, 500, profile.Followers)
	require.NotNil(t, profile.CreatedAt)
	assert.Contains(t, profile.BusinessModel, "Subscription")
	assert.Contains(t, profile.BusinessModel, "Enterprise")
	assert.NotEmpty(t, profile.Features)

	assert.Equal(t, "10000", profile.SocialProof.Customers)
	assert.Equal(t, 2, profile.SocialProof.Testimonials)

	// title, description, industry, repo stats, social proof all fired.
	assert.InDelta(t, 0.84, profile.Confidence, 0.001)
}

func TestCompanyFetchWhoisFallback(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetcher.Page{
		"acme.dev": htmlPage("https://acme.dev", "<html><head><title>Acme</title></head><body></body></html>", nil),
	}}
	registered := time.Date(2012, 4, 1, 0, 0, 0, 0, time.UTC)
	w := &stubWhois{created: &registered}

	p := newTestProfiler(f, w, nil)

	profile, err := p.Fetch(context.Background(), "acme.dev", CompanyHints{})
	require.NoError(t, err)

	assert.Equal(t, 2012, profile.FoundedYear, "no founded text on page, WHOIS year used")
	assert.Equal(t, []string{"acme.dev"}, w.queried)
}

func TestCompanyFetchDegradesOnFetchFailure(t *testing.T) {
	f := &stubFetcher{err: &fetcherMiss{url: "down.example"}}

	p := newTestProfiler(f, nil, nil)

	profile, err := p.Fetch(context.Background(), "down.example", CompanyHints{})
	require.NoError(t, err, "page-fetch failure degrades, never fails")
	assert.Equal(t, "Down", profile.Name, "name derived from domain")
	assert.Equal(t, "General", profile.Industry)
	assert.Equal(t, "Unknown", profile.Size)
	assert.Equal(t, []string{"Unknown"}, profile.BusinessModel)
	assert.InDelta(t, 0.5, profile.Confidence, 0.001)
}

func TestCompanyFetchHintNamePreferred(t *testing.T) {
	f := &stubFetcher{err: &fetcherMiss{url: "acme.dev"}}

	p := newTestProfiler(f, nil, nil)

	profile, err := p.Fetch(context.Background(), "acme.dev", CompanyHints{Name: "Acme Incorporated"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Incorporated", profile.Name)
}

func TestCompanyFetchUsesCache(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetcher.Page{
		"acme.dev": htmlPage("https://acme.dev", companyTestPage, nil),
	}}
	c := cache.New()

	p := newTestProfiler(f, nil, c)

	first, err := p.Fetch(context.Background(), "acme.dev", CompanyHints{})
	require.NoError(t, err)
	second, err := p.Fetch(context.Background(), "https://www.acme.dev/pricing", CompanyHints{})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, f.requests, 1)
}

func TestDetectIndustryOrder(t *testing.T) {
	t.Parallel()

	// "platform" (SaaS) appears before any later industry can match.
	assert.Equal(t, "SaaS", detectIndustry("a platform for online store checkout", nil))
	assert.Equal(t, "E-commerce", detectIndustry("your online store and cart", nil))
	assert.Equal(t, "Fintech", detectIndustry("", []string{"payment", "api"}))
	assert.Equal(t, "General", detectIndustry("nothing relevant here", nil))
}

func TestNameFromDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Acme", nameFromDomain("acme.dev"))
	assert.Equal(t, "Widget-Co", nameFromDomain("widget-co.io"))
}

func TestCompanySize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		hints CompanyHints
		want  string
	}{
		{"large by repos", CompanyHints{HasRepoStats: true, PublicRepos: 51}, "Large (50+ employees)"},
		{"medium by repos", CompanyHints{HasRepoStats: true, PublicRepos: 21}, "Medium (20-50 employees)"},
		{"small by repos", CompanyHints{HasRepoStats: true, PublicRepos: 6}, "Small (5-20 employees)"},
		{"startup by repos", CompanyHints{HasRepoStats: true, PublicRepos: 2}, "Startup (1-5 employees)"},
		{"medium by contributors", CompanyHints{Contributors: 15}, "Medium (20-50 employees)"},
		{"startup by contributors", CompanyHints{Contributors: 2}, "Startup (1-5 employees)"},
		{"no hints", CompanyHints{}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, companySize(tt.hints))
		})
	}
}

func TestFoundedYearBounds(t *testing.T) {
	t.Parallel()

	now := repoTestNow

	future := pageSignals{description: "founded in 2199"}
	assert.Zero(t, foundedYear(future, nil, now))

	ancient := pageSignals{description: "est. 1850"}
	assert.Zero(t, foundedYear(ancient, nil, now))

	valid := pageSignals{description: "Since 1998 we have served"}
	assert.Equal(t, 1998, foundedYear(valid, nil, now))
}
