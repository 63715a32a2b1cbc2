package enrich

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/fetcher"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

const techCacheTTL = time.Hour

// TechnologyDetector is the Technology Fingerprinter adapter. It fetches a
// site's landing page once and classifies signals from the HTML content,
// DOM attributes, and response headers into the eight fixed categories.
// Each signal carries a fixed confidence constant.
type TechnologyDetector struct {
	fetch fetcher.Fetcher
	cache *cache.Cache
	retry resilience.RetryConfig
	now   func() time.Time
}

// NewTechnologyDetector creates the adapter.
func NewTechnologyDetector(f fetcher.Fetcher, c *cache.Cache) *TechnologyDetector {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("technology")
	return &TechnologyDetector{fetch: f, cache: c, retry: cfg, now: time.Now}
}

// Fetch fingerprints the website. Network failures surface as stage errors;
// non-fatal parse issues produce an empty profile with confidence 0.
func (d *TechnologyDetector) Fetch(ctx context.Context, website string) (*model.TechnologyProfile, error) {
	key := cache.Key(model.NormalizeDomain(website), cache.StageTech)
	if d.cache != nil {
		if v, ok := d.cache.Get(key); ok {
			if profile, ok := v.(*model.TechnologyProfile); ok {
				return profile, nil
			}
		}
	}

	page, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) (*fetcher.Page, error) {
		return d.fetch.Fetch(ctx, website)
	})
	if err != nil {
		return nil, err
	}

	profile := d.detect(page)

	if d.cache != nil {
		d.cache.Set(key, profile, techCacheTTL)
	}
	zap.L().Info("technology: detection complete",
		zap.String("url", profile.URL),
		zap.Float64("confidence", profile.Confidence),
	)
	return profile, nil
}

func (d *TechnologyDetector) detect(page *fetcher.Page) *model.TechnologyProfile {
	profile := &model.TechnologyProfile{
		URL:        page.URL,
		Detections: make(map[string][]model.Detection),
		Timestamp:  d.now().UTC(),
	}

	html := string(page.Body)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		// Unparseable markup is non-fatal: report an empty profile.
		zap.L().Warn("technology: parse failed", zap.String("url", page.URL), zap.Error(err))
		profile.Confidence = 0
		return profile
	}

	profile.Detections[model.CategoryFrontend] = detectFrontend(doc, html)
	profile.Detections[model.CategoryBackend] = detectBackend(page.Header, html)
	profile.Detections[model.CategoryAnalytics] = detectAnalytics(html)
	profile.Detections[model.CategoryHosting] = detectHosting(page.Header)
	profile.Detections[model.CategoryCMS] = detectCMS(page.Header, html)
	profile.Detections[model.CategoryEcommerce] = detectEcommerce(html)
	profile.Detections[model.CategoryMarketing] = detectMarketing(html)
	profile.Detections[model.CategorySecurity] = detectSecurity(page.Header)

	profile.Confidence = meanConfidence(profile.Detections)
	profile.Summary = summarize(profile.Detections)
	return profile
}

func detectFrontend(doc *goquery.Document, html string) []model.Detection {
	var out []model.Detection

	if strings.Contains(html, "react") || strings.Contains(html, "__REACT") || doc.Find("[data-reactroot]").Length() > 0 {
		out = append(out, model.Detection{Name: "React", Confidence: 0.9})
	}
	if strings.Contains(html, "vue") || strings.Contains(html, "data-v-") {
		out = append(out, model.Detection{Name: "Vue.js", Confidence: 0.9})
	}
	if strings.Contains(html, "ng-version") || doc.Find("[ng-version]").Length() > 0 {
		out = append(out, model.Detection{Name: "Angular", Confidence: 0.95})
	}
	if strings.Contains(html, "__NEXT_DATA__") || doc.Find("#__next").Length() > 0 {
		out = append(out, model.Detection{Name: "Next.js", Confidence: 0.95})
	}
	if strings.Contains(html, "jquery") {
		out = append(out, model.Detection{Name: "jQuery", Confidence: 0.8})
	}
	if strings.Contains(html, "tailwind") || doc.Find(`[class*="tw-"]`).Length() > 0 {
		out = append(out, model.Detection{Name: "Tailwind CSS", Confidence: 0.85})
	}
	if strings.Contains(html, "bootstrap") || doc.Find(`[class*="col-"]`).Length() > 10 {
		out = append(out, model.Detection{Name: "Bootstrap", Confidence: 0.8})
	}

	return out
}

func detectBackend(header http.Header, html string) []model.Detection {
	var out []model.Detection

	server := header.Get("Server")
	if strings.Contains(server, "nginx") {
		out = append(out, model.Detection{Name: "Nginx", Confidence: 1.0})
	}
	if strings.Contains(server, "Apache") {
		out = append(out, model.Detection{Name: "Apache", Confidence: 1.0})
	}

	powered := strings.ToLower(header.Get("X-Powered-By"))
	if strings.Contains(powered, "express") {
		out = append(out, model.Detection{Name: "Express.js", Confidence: 1.0})
	}
	if strings.Contains(powered, "php") {
		out = append(out, model.Detection{Name: "PHP", Confidence: 1.0})
	}
	if strings.Contains(powered, "asp.net") {
		out = append(out, model.Detection{Name: "ASP.NET", Confidence: 1.0})
	}

	if strings.Contains(html, "wp-content") || strings.Contains(html, "wordpress") {
		out = append(out, model.Detection{Name: "WordPress", Confidence: 0.95})
	}

	return out
}

func detectAnalytics(html string) []model.Detection {
	var out []model.Detection

	if strings.Contains(html, "google-analytics.com") || strings.Contains(html, "gtag") || strings.Contains(html, "UA-") {
		out = append(out, model.Detection{Name: "Google Analytics", Confidence: 0.95})
	}
	if strings.Contains(html, "googletagmanager.com") || strings.Contains(html, "GTM-") {
		out = append(out, model.Detection{Name: "Google Tag Manager", Confidence: 0.95})
	}
	if strings.Contains(html, "mixpanel") {
		out = append(out, model.Detection{Name: "Mixpanel", Confidence: 0.9})
	}
	if strings.Contains(html, "segment.com") || strings.Contains(html, "analytics.js") {
		out = append(out, model.Detection{Name: "Segment", Confidence: 0.9})
	}
	if strings.Contains(html, "hotjar") {
		out = append(out, model.Detection{Name: "Hotjar", Confidence: 0.9})
	}

	return out
}

func detectHosting(header http.Header) []model.Detection {
	var out []model.Detection
	server := strings.ToLower(header.Get("Server"))

	if header.Get("Cf-Ray") != "" || strings.Contains(server, "cloudflare") {
		out = append(out, model.Detection{Name: "Cloudflare", Confidence: 1.0})
	}
	if header.Get("X-Vercel-Id") != "" || strings.Contains(server, "vercel") {
		out = append(out, model.Detection{Name: "Vercel", Confidence: 1.0})
	}
	if header.Get("X-Nf-Request-Id") != "" || strings.Contains(server, "netlify") {
		out = append(out, model.Detection{Name: "Netlify", Confidence: 1.0})
	}
	if header.Get("X-Amz-Cf-Id") != "" || header.Get("X-Amz-Request-Id") != "" {
		out = append(out, model.Detection{Name: "AWS", Confidence: 1.0})
	}

	return out
}

func detectCMS(header http.Header, html string) []model.Detection {
	var out []model.Detection

	if strings.Contains(html, "wp-content") || strings.Contains(html, "wp-includes") {
		out = append(out, model.Detection{Name: "WordPress", Confidence: 0.95})
	}
	if strings.Contains(html, "cdn.shopify.com") || strings.Contains(html, "Shopify") {
		out = append(out, model.Detection{Name: "Shopify", Confidence: 0.95})
	}
	if strings.Contains(html, "wix.com") || header.Get("X-Wix-Request-Id") != "" {
		out = append(out, model.Detection{Name: "Wix", Confidence: 0.95})
	}
	if strings.Contains(html, "squarespace") {
		out = append(out, model.Detection{Name: "Squarespace", Confidence: 0.9})
	}

	return out
}

func detectEcommerce(html string) []model.Detection {
	var out []model.Detection
	lower := strings.ToLower(html)

	if strings.Contains(lower, "shopify") {
		out = append(out, model.Detection{Name: "Shopify", Confidence: 0.95})
	}
	if strings.Contains(lower, "woocommerce") {
		out = append(out, model.Detection{Name: "WooCommerce", Confidence: 0.95})
	}
	if strings.Contains(lower, "magento") {
		out = append(out, model.Detection{Name: "Magento", Confidence: 0.9})
	}
	if strings.Contains(lower, "stripe") {
		out = append(out, model.Detection{Name: "Stripe", Confidence: 0.85})
	}

	return out
}

func detectMarketing(html string) []model.Detection {
	var out []model.Detection
	lower := strings.ToLower(html)

	if strings.Contains(lower, "hubspot") {
		out = append(out, model.Detection{Name: "HubSpot", Confidence: 0.9})
	}
	if strings.Contains(lower, "mailchimp") {
		out = append(out, model.Detection{Name: "Mailchimp", Confidence: 0.9})
	}
	if strings.Contains(lower, "intercom") {
		out = append(out, model.Detection{Name: "Intercom", Confidence: 0.9})
	}

	return out
}

func detectSecurity(header http.Header) []model.Detection {
	var out []model.Detection

	if header.Get("Strict-Transport-Security") != "" {
		out = append(out, model.Detection{Name: "HSTS", Confidence: 1.0})
	}
	if header.Get("Content-Security-Policy") != "" {
		out = append(out, model.Detection{Name: "CSP", Confidence: 1.0})
	}
	if header.Get("X-Frame-Options") != "" {
		out = append(out, model.Detection{Name: "X-Frame-Options", Confidence: 1.0})
	}

	return out
}

// meanConfidence is the arithmetic mean over every detection across all
// categories, 0 when there are none.
func meanConfidence(detections map[string][]model.Detection) float64 {
	total := 0.0
	count := 0
	for _, list := range detections {
		for _, d := range list {
			total += d.Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// summarize flattens non-empty categories into "category: A, B" lines in
// the fixed category order.
func summarize(detections map[string][]model.Detection) []string {
	var summary []string
	for _, category := range model.TechnologyCategories {
		list := detections[category]
		if len(list) == 0 {
			continue
		}
		names := make([]string, len(list))
		for i, d := range list {
			names[i] = d.Name
		}
		summary = append(summary, fmt.Sprintf("%s: %s", category, strings.Join(names, ", ")))
	}
	return summary
}
