package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/resilience"
)

// HTTPOptions configures the HTTP page fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// PerHostRate is the sustained request rate allowed per host. Zero
	// disables rate limiting.
	PerHostRate rate.Limit
	PerHostBurst int
	// MaxBodyBytes caps how much of a page body is read. Default 4 MiB.
	MaxBodyBytes int64
}

// HTTPFetcher implements Fetcher using net/http with a fixed timeout and a
// lazily-created per-host rate limiter.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a page fetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	if opts.PerHostBurst == 0 {
		opts.PerHostBurst = 2
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	if f.opts.PerHostRate == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(f.opts.PerHostRate, f.opts.PerHostBurst)
		f.limiters[host] = lim
	}
	return lim
}

// Fetch retrieves rawURL (scheme defaulted to https) and returns the body
// and headers. Network failures and 5xx responses come back as transient
// stage errors; 401/403/404/429 map to their terminal kinds.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	target := NormalizeURL(rawURL)

	u, err := url.Parse(target)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}

	if lim := f.limiterFor(u.Host); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: build request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, resilience.NewStageError(resilience.KindTransient, "fetch",
			eris.Wrapf(err, "GET %s", target))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, resilience.NewStageError(resilience.KindTransient, "fetch",
			eris.Wrapf(err, "read %s", target))
	}

	if resp.StatusCode >= 400 {
		kind := resilience.ClassifyHTTPStatus(resp.StatusCode)
		zap.L().Debug("fetcher: non-2xx response",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &resilience.StageError{
			Kind:       kind,
			Stage:      "fetch",
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("GET %s: status %d", target, resp.StatusCode),
		}
	}

	return &Page{
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}
