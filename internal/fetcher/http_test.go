package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/resilience"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/about", "https://example.com/about"},
		{"  example.com ", "https://example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestFetchReturnsBodyAndHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("X-Powered-By", "Express")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{})

	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, string(page.Body), "hello")
	assert.Equal(t, "Express", page.Header.Get("X-Powered-By"))
}

func TestFetchClassifiesStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   resilience.FailureKind
	}{
		{http.StatusNotFound, resilience.KindNotFound},
		{http.StatusForbidden, resilience.KindUnauthorized},
		{http.StatusTooManyRequests, resilience.KindRateLimited},
		{http.StatusBadGateway, resilience.KindTransient},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		f := NewHTTPFetcher(HTTPOptions{})
		_, err := f.Fetch(context.Background(), srv.URL)
		srv.Close()

		require.Error(t, err, "status %d", tt.status)
		kind, ok := resilience.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, tt.want, kind, "status %d", tt.status)
	}
}

func TestFetchConnectionFailureIsTransient(t *testing.T) {
	t.Parallel()

	f := NewHTTPFetcher(HTTPOptions{})

	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1")
	require.Error(t, err)
	kind, ok := resilience.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, resilience.KindTransient, kind)
}

func TestFetchTruncatesLargeBodies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxBodyBytes: 100})

	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, page.Body, 100)
}

func TestFetchSchemeDefaulted(t *testing.T) {
	t.Parallel()

	f := NewHTTPFetcher(HTTPOptions{})

	// A bare host gets an https scheme before the request is built; the
	// dial then fails, but the error must mention the normalized target.
	_, err := f.Fetch(context.Background(), "definitely-not-a-real-host.invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://definitely-not-a-real-host.invalid")
}

func TestLimiterSharedPerHost(t *testing.T) {
	t.Parallel()

	f := NewHTTPFetcher(HTTPOptions{PerHostRate: 1, PerHostBurst: 1})

	a := f.limiterFor("example.com")
	b := f.limiterFor("example.com")
	c := f.limiterFor("other.com")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	unlimited := NewHTTPFetcher(HTTPOptions{})
	assert.Nil(t, unlimited.limiterFor("example.com"))
}
