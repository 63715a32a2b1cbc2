package enrich

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/fetcher"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

func newTestDetector(f *stubFetcher, c *cache.Cache) *TechnologyDetector {
	d := NewTechnologyDetector(f, c)
	d.retry.Sleep = noSleep
	d.now = func() time.Time { return repoTestNow }
	return d
}

func detectionNames(list []model.Detection) []string {
	names := make([]string, len(list))
	for i, d := range list {
		names[i] = d.Name
	}
	return names
}

func TestTechnologyFetchDetectsStack(t *testing.T) {
	header := http.Header{}
	header.Set("Server", "nginx/1.25")
	header.Set("X-Powered-By", "Express")
	header.Set("Cf-Ray", "abc123")
	header.Set("Strict-Transport-Security", "max-age=63072000")

	body := `<html><head>
		<script id="__NEXT_DATA__" type="application/json">{}</script>
		<script src="https://www.googletagmanager.com/gtag/js"></script>
		<script src="https://js.stripe.com/v3/"></script>
		<script src="https://js.hubspot.com/analytics.js"></script>
	</head><body><div id="__next"></div></body></html>`

	f := &stubFetcher{pages: map[string]*fetcher.Page{
		"acme.dev": htmlPage("https://acme.dev", body, header),
	}}

	d := newTestDetector(f, nil)

	profile, err := d.Fetch(context.Background(), "acme.dev")
	require.NoError(t, err)

	assert.Contains(t, detectionNames(profile.Category(model.CategoryFrontend)), "Next.js")
	assert.Contains(t, detectionNames(profile.Category(model.CategoryBackend)), "Nginx")
	assert.Contains(t, detectionNames(profile.Category(model.CategoryBackend)), "Express.js")
	assert.Contains(t, detectionNames(profile.Category(model.CategoryAnalytics)), "Google Tag Manager")
	assert.Contains(t, detectionNames(profile.Category(model.CategoryHosting)), "Cloudflare")
	assert.Contains(t, detectionNames(profile.Category(model.CategoryEcommerce)), "Stripe")
	assert.Contains(t, detectionNames(profile.Category(model.CategoryMarketing)), "HubSpot")
	assert.Contains(t, detectionNames(profile.Category(model.CategorySecurity)), "HSTS")

	assert.Greater(t, profile.Confidence, 0.0)
	assert.LessOrEqual(t, profile.Confidence, 1.0)
	assert.Equal(t, repoTestNow, profile.Timestamp)
}

func TestTechnologyFetchEmptyPage(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetcher.Page{
		"plain.example": htmlPage("https://plain.example", "<html><body><p>A page about nothing.</p></body></html>", nil),
	}}

	d := newTestDetector(f, nil)

	profile, err := d.Fetch(context.Background(), "plain.example")
	require.NoError(t, err)
	assert.Zero(t, profile.Confidence)
	assert.Empty(t, profile.Summary)
	for _, category := range model.TechnologyCategories {
		assert.Empty(t, profile.Category(category), category)
	}
}

func TestTechnologyFetchPropagatesFetchError(t *testing.T) {
	f := &stubFetcher{err: resilience.NewStageError(resilience.KindNotFound, "fetch", nil)}

	d := newTestDetector(f, nil)

	_, err := d.Fetch(context.Background(), "gone.example")
	require.Error(t, err)
	assert.True(t, resilience.IsNotFound(err))
}

func TestTechnologyFetchUsesCache(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetcher.Page{
		"acme.dev": htmlPage("https://acme.dev", "<html></html>", nil),
	}}
	c := cache.New()

	d := newTestDetector(f, c)

	_, err := d.Fetch(context.Background(), "acme.dev")
	require.NoError(t, err)
	_, err = d.Fetch(context.Background(), "https://www.acme.dev/")
	require.NoError(t, err, "cache key is the normalized domain")

	assert.Len(t, f.requests, 1)
}

func TestSummarizeOrder(t *testing.T) {
	t.Parallel()

	detections := map[string][]model.Detection{
		model.CategorySecurity: {{Name: "HSTS"}},
		model.CategoryFrontend: {{Name: "React"}, {Name: "Tailwind CSS"}},
		model.CategoryBackend:  {{Name: "Nginx"}},
	}

	assert.Equal(t, []string{
		"frontend: React, Tailwind CSS",
		"backend: Nginx",
		"security: HSTS",
	}, summarize(detections))
}

func TestMeanConfidence(t *testing.T) {
	t.Parallel()

	assert.Zero(t, meanConfidence(map[string][]model.Detection{}))
	got := meanConfidence(map[string][]model.Detection{
		"a": {{Confidence: 0.8}, {Confidence: 1.0}},
		"b": {{Confidence: 0.6}},
	})
	assert.InDelta(t, 0.8, got, 0.001)
}
