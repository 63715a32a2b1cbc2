package enrich

import (
	"bytes"
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/fetcher"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/whois"
)

const companyCacheTTL = time.Hour

// industryTaxonomy maps industries to their trigger keywords. Order matters:
// the first industry with a matching term wins.
var industryTaxonomy = []struct {
	name  string
	terms []string
}{
	{"SaaS", []string{"saas", "software as a service", "cloud software", "platform"}},
	{"E-commerce", []string{"shop", "store", "buy", "cart", "checkout", "products"}},
	{"Fintech", []string{"finance", "payment", "banking", "financial", "crypto"}},
	{"Healthcare", []string{"health", "medical", "healthcare", "patient", "clinic"}},
	{"Education", []string{"education", "learning", "course", "training", "school"}},
	{"Marketing", []string{"marketing", "advertising", "analytics", "seo", "social media"}},
	{"Development", []string{"developer", "api", "code", "programming", "development"}},
	{"Design", []string{"design", "creative", "graphics", "ui", "ux"}},
	{"Consulting", []string{"consulting", "advisory", "services"}},
}

const defaultIndustry = "General"

var (
	foundedPattern   = regexp.MustCompile(`(?i)(?:founded|since|est\.?).{0,20}?(\d{4})`)
	customersPattern = regexp.MustCompile(`(?i)(\d[\d,]*)\+?\s*(customers?|users?|clients?)`)
	titleCaser       = cases.Title(language.English)
)

// CompanyHints carries data already known from other stages (typically the
// owning GitHub organization) used to seed and size the company profile.
type CompanyHints struct {
	Name         string
	Location     string
	Email        string
	Website      string
	PublicRepos  int
	Followers    int
	CreatedAt    *time.Time
	Contributors int
	HasRepoStats bool
}

// CompanyProfiler is the Company Profiler adapter. It derives a structured
// company profile from a website's markup, WHOIS registration data, and
// repository-derived hints. Page-fetch failure degrades to a domain-derived
// profile rather than an error.
type CompanyProfiler struct {
	fetch fetcher.Fetcher
	whois whois.Client
	cache *cache.Cache
	now   func() time.Time
}

// NewCompanyProfiler creates the adapter. The WHOIS client may be nil to
// skip registration-date lookups.
func NewCompanyProfiler(f fetcher.Fetcher, w whois.Client, c *cache.Cache) *CompanyProfiler {
	return &CompanyProfiler{fetch: f, whois: w, cache: c, now: time.Now}
}

// pageSignals is what the profiler could read off the site itself.
type pageSignals struct {
	title       string
	description string
	keywords    []string
	name        string
	industry    string
	location    string
	features    []string
	proof       model.SocialProof
}

// Fetch researches the company behind the website.
func (p *CompanyProfiler) Fetch(ctx context.Context, website string, hints CompanyHints) (*model.CompanyProfile, error) {
	domain := model.NormalizeDomain(website)
	key := cache.Key(domain, cache.StageCompany)
	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if profile, ok := v.(*model.CompanyProfile); ok {
				return profile, nil
			}
		}
	}

	signals := p.analyzeWebsite(ctx, website)

	var whoisCreated *time.Time
	if p.whois != nil {
		created, err := p.whois.CreationDate(ctx, domain)
		if err != nil {
			zap.L().Debug("company: whois lookup failed", zap.String("domain", domain), zap.Error(err))
		} else {
			whoisCreated = created
		}
	}

	name := signals.name
	if name == "" {
		name = hints.Name
	}
	if name == "" {
		name = nameFromDomain(domain)
	}

	location := hints.Location
	if location == "" {
		location = signals.location
	}

	profile := &model.CompanyProfile{
		Name:          name,
		Domain:        domain,
		Description:   signals.description,
		Industry:      signals.industry,
		Location:      location,
		FoundedYear:   foundedYear(signals, whoisCreated, p.now()),
		Size:          companySize(hints),
		Email:         hints.Email,
		Website:       hints.Website,
		PublicRepos:   hints.PublicRepos,
		Followers:     hints.Followers,
		CreatedAt:     hints.CreatedAt,
		BusinessModel: businessModels(signals),
		Features:      signals.features,
		SocialProof:   signals.proof,
		Confidence:    researchConfidence(signals, hints),
	}

	if p.cache != nil {
		p.cache.Set(key, profile, companyCacheTTL)
	}
	zap.L().Info("company: research complete",
		zap.String("domain", domain),
		zap.String("industry", profile.Industry),
		zap.Float64("confidence", profile.Confidence),
	)
	return profile, nil
}

func (p *CompanyProfiler) analyzeWebsite(ctx context.Context, website string) pageSignals {
	signals := pageSignals{industry: defaultIndustry}

	page, err := p.fetch.Fetch(ctx, website)
	if err != nil {
		zap.L().Warn("company: page fetch failed", zap.String("website", website), zap.Error(err))
		return signals
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		zap.L().Warn("company: parse failed", zap.String("website", website), zap.Error(err))
		return signals
	}

	signals.title = strings.TrimSpace(doc.Find("title").First().Text())
	signals.description, _ = doc.Find(`meta[name="description"]`).Attr("content")

	if kw, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				signals.keywords = append(signals.keywords, k)
			}
		}
	}

	signals.name = companyNameFromPage(doc)
	signals.industry = detectIndustry(string(page.Body), signals.keywords)
	signals.location = extractLocation(doc)
	signals.features = extractFeatures(doc)
	signals.proof = extractSocialProof(doc)
	return signals
}

// companyNameFromPage tries the fixed source order: og:site_name,
// application-name meta, logo alt text, brand header text, first title
// segment.
func companyNameFromPage(doc *goquery.Document) string {
	candidates := []string{}
	if v, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok {
		candidates = append(candidates, v)
	}
	if v, ok := doc.Find(`meta[name="application-name"]`).Attr("content"); ok {
		candidates = append(candidates, v)
	}
	if v, ok := doc.Find(".logo").First().Attr("alt"); ok {
		candidates = append(candidates, v)
	}
	candidates = append(candidates, doc.Find("header .brand").First().Text())

	title := doc.Find("title").First().Text()
	title, _, _ = strings.Cut(title, "|")
	title, _, _ = strings.Cut(title, "-")
	candidates = append(candidates, title)

	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// nameFromDomain derives a fallback name from the first domain label.
func nameFromDomain(domain string) string {
	label, _, _ := strings.Cut(domain, ".")
	return titleCaser.String(label)
}

func detectIndustry(html string, keywords []string) string {
	content := strings.ToLower(html)
	kw := strings.ToLower(strings.Join(keywords, ","))

	for _, industry := range industryTaxonomy {
		for _, term := range industry.terms {
			if strings.Contains(content, term) || strings.Contains(kw, term) {
				return industry.name
			}
		}
	}
	return defaultIndustry
}

func extractLocation(doc *goquery.Document) string {
	candidates := []string{}
	if v, ok := doc.Find(`meta[name="geo.region"]`).Attr("content"); ok {
		candidates = append(candidates, v)
	}
	candidates = append(candidates,
		doc.Find("address").First().Text(),
		doc.Find(`[itemprop="address"]`).First().Text(),
		doc.Find(".location").First().Text(),
		doc.Find(".address").First().Text(),
	)
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// extractFeatures gathers up to 10 plausible feature strings: elements
// classed feature/benefit/service first, then generic list items.
func extractFeatures(doc *goquery.Document) []string {
	var features []string

	doc.Find(`[class*="feature"], [class*="benefit"], [class*="service"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 10 {
			return false
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) > 10 && len(text) < 200 {
			features = append(features, text)
		}
		return true
	})

	doc.Find("ul li, ol li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(features) >= 10 {
			return false
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) > 10 && len(text) < 150 {
			features = append(features, text)
		}
		return true
	})

	if len(features) > 10 {
		features = features[:10]
	}
	return features
}

func extractSocialProof(doc *goquery.Document) model.SocialProof {
	proof := model.SocialProof{}

	if m := customersPattern.FindStringSubmatch(doc.Find("body").Text()); m != nil {
		proof.Customers = strings.ReplaceAll(m[1], ",", "")
	}
	proof.Testimonials = doc.Find(`[class*="testimonial"], [class*="review"]`).Length()
	proof.Awards = doc.Find(`[class*="award"], [class*="certification"], [class*="badge"]`).Length()
	proof.PressMentions = doc.Find(`[class*="press"], [class*="featured"], [class*="media"]`).Length()

	return proof
}

// textBlob concatenates the extracted page text used by the founded-year
// and business-model keyword scans.
func (s pageSignals) textBlob() string {
	parts := append([]string{s.title, s.description, s.name, s.location}, s.keywords...)
	parts = append(parts, s.features...)
	return strings.ToLower(strings.Join(parts, " "))
}

// foundedYear scans the page text for a founding year in [1900, now],
// falling back to the WHOIS registration year.
func foundedYear(signals pageSignals, whoisCreated *time.Time, now time.Time) int {
	if m := foundedPattern.FindStringSubmatch(signals.textBlob()); m != nil {
		year, err := strconv.Atoi(m[1])
		if err == nil && year >= 1900 && year <= now.Year() {
			return year
		}
	}
	if whoisCreated != nil {
		return whoisCreated.Year()
	}
	return 0
}

// companySize buckets the company from repository-count heuristics, then
// contributor count, defaulting to Unknown without hints.
func companySize(hints CompanyHints) string {
	if hints.HasRepoStats {
		switch {
		case hints.PublicRepos > 50:
			return "Large (50+ employees)"
		case hints.PublicRepos > 20:
			return "Medium (20-50 employees)"
		case hints.PublicRepos > 5:
			return "Small (5-20 employees)"
		default:
			return "Startup (1-5 employees)"
		}
	}
	if hints.Contributors > 0 {
		switch {
		case hints.Contributors > 20:
			return "Large (50+ employees)"
		case hints.Contributors > 10:
			return "Medium (20-50 employees)"
		case hints.Contributors > 3:
			return "Small (5-20 employees)"
		default:
			return "Startup (1-5 employees)"
		}
	}
	return "Unknown"
}

func businessModels(signals pageSignals) []string {
	content := signals.textBlob()
	var models []string

	if strings.Contains(content, "pricing") || strings.Contains(content, "subscribe") || strings.Contains(content, "plan") {
		models = append(models, "Subscription")
	}
	if strings.Contains(content, "free trial") || strings.Contains(content, "freemium") {
		models = append(models, "Freemium")
	}
	if strings.Contains(content, "enterprise") || strings.Contains(content, "custom pricing") {
		models = append(models, "Enterprise")
	}
	if strings.Contains(content, "marketplace") || strings.Contains(content, "sellers") {
		models = append(models, "Marketplace")
	}
	if strings.Contains(content, "advertising") || strings.Contains(content, "ad-free") {
		models = append(models, "Ad-supported")
	}

	if len(models) == 0 {
		return []string{"Unknown"}
	}
	return models
}

// researchConfidence averages the fixed weights of the signals that fired,
// defaulting to 0.5 when none did.
func researchConfidence(signals pageSignals, hints CompanyHints) float64 {
	confidence := 0.0
	factors := 0

	if signals.title != "" {
		confidence += 0.9
		factors++
	}
	if signals.description != "" {
		confidence += 0.8
		factors++
	}
	if signals.industry != defaultIndustry {
		confidence += 0.7
		factors++
	}
	if hints.HasRepoStats || hints.Contributors > 0 {
		confidence += 0.95
		factors++
	}
	if !signals.proof.Empty() {
		confidence += 0.85
		factors++
	}

	if factors == 0 {
		return 0.5
	}
	return math.Round(confidence/float64(factors)*100) / 100
}
