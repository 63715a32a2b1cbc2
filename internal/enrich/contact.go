package enrich

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/fetcher"
	"github.com/sells-group/leadscout/internal/model"
)

const contactCacheTTL = time.Hour

var (
	emailPattern = regexp.MustCompile(`(?i)[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9._-]+`)
	phonePattern = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	nonDigits    = regexp.MustCompile(`\D`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// emailBlacklist filters known placeholder/test domains and non-email link
// targets before an address is accepted.
var emailBlacklist = []string{
	"example.com",
	"test.com",
	"localhost",
	".png",
	".jpg",
	".gif",
	"wix.com",
	"wordpress.com",
}

// socialPlatforms maps the fixed platform keys to their link domains.
var socialPlatforms = []struct {
	key     string
	domains []string
}{
	{"twitter", []string{"twitter.com", "x.com"}},
	{"linkedin", []string{"linkedin.com"}},
	{"facebook", []string{"facebook.com"}},
	{"instagram", []string{"instagram.com"}},
	{"github", []string{"github.com"}},
	{"youtube", []string{"youtube.com"}},
}

// freemailDomains incur a small confidence penalty on classified addresses.
var freemailDomains = []string{"gmail.com", "yahoo.com", "hotmail.com"}

// ContactSideChannel carries contact data already known from other stages,
// such as an organization email surfaced by repository intelligence.
type ContactSideChannel struct {
	OrgEmail  string
	GitHubURL string
}

// ContactExtractor is the Contact Extractor adapter. It scans a site (and
// at most one same-site contact/about page) for emails, phone numbers, and
// social links. Page-fetch failure is never fatal: the adapter returns an
// empty profile with confidence 0 instead.
type ContactExtractor struct {
	fetch fetcher.Fetcher
	cache *cache.Cache
}

// NewContactExtractor creates the adapter.
func NewContactExtractor(f fetcher.Fetcher, c *cache.Cache) *ContactExtractor {
	return &ContactExtractor{fetch: f, cache: c}
}

type rawContacts struct {
	emails []string
	phones []string
	social map[string]string
}

// Fetch extracts contact information for the website, merging in any
// side-channel data, then deduplicates and classifies the results.
func (e *ContactExtractor) Fetch(ctx context.Context, website string, side ContactSideChannel) (*model.ContactProfile, error) {
	key := cache.Key(model.NormalizeDomain(website), cache.StageContact)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			if profile, ok := v.(*model.ContactProfile); ok {
				return profile, nil
			}
		}
	}

	web := e.extractFromWebsite(ctx, website)

	if side.OrgEmail != "" {
		web.emails = append(web.emails, side.OrgEmail)
	}
	if side.GitHubURL != "" {
		if _, exists := web.social["github"]; !exists {
			web.social["github"] = side.GitHubURL
		}
	}

	emails := dedupeEmails(web.emails)
	phones := dedupePhones(web.phones)

	profile := &model.ContactProfile{
		Emails:     classifyEmails(emails),
		Phones:     phones,
		Social:     web.social,
		Confidence: contactConfidence(len(emails), len(phones), len(web.social)),
	}

	if e.cache != nil {
		e.cache.Set(key, profile, contactCacheTTL)
	}
	zap.L().Info("contact: extraction complete",
		zap.String("website", website),
		zap.Int("emails", len(emails)),
		zap.Int("phones", len(phones)),
		zap.Int("social", len(web.social)),
	)
	return profile, nil
}

func (e *ContactExtractor) extractFromWebsite(ctx context.Context, website string) rawContacts {
	out := rawContacts{social: make(map[string]string)}

	page, err := e.fetch.Fetch(ctx, website)
	if err != nil {
		zap.L().Warn("contact: page fetch failed", zap.String("website", website), zap.Error(err))
		return out
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		zap.L().Warn("contact: parse failed", zap.String("website", website), zap.Error(err))
		return out
	}

	html := string(page.Body)
	out.emails = findEmails(html, doc)
	out.phones = findPhones(html, doc)
	out.social = findSocialLinks(doc)

	// One same-site contact/about page gets an additional scan.
	if contactURL := findContactPage(doc, page.URL); contactURL != "" {
		if sub, err := e.fetch.Fetch(ctx, contactURL); err == nil {
			if subDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(sub.Body)); err == nil {
				subHTML := string(sub.Body)
				out.emails = append(out.emails, findEmails(subHTML, subDoc)...)
				out.phones = append(out.phones, findPhones(subHTML, subDoc)...)
				for k, v := range findSocialLinks(subDoc) {
					out.social[k] = v
				}
			}
		}
	}

	return out
}

func findEmails(html string, doc *goquery.Document) []string {
	var emails []string

	for _, match := range emailPattern.FindAllString(html, -1) {
		if acceptEmail(match) {
			emails = append(emails, strings.ToLower(match))
		}
	}

	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if acceptEmail(addr) {
			emails = append(emails, strings.ToLower(addr))
		}
	})

	return emails
}

func findPhones(html string, doc *goquery.Document) []string {
	var phones []string

	doc.Find(`a[href^="tel:"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		phone := strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
		if phone != "" {
			phones = append(phones, phone)
		}
	})

	for _, match := range phonePattern.FindAllString(html, -1) {
		cleaned := strings.TrimSpace(spaceRuns.ReplaceAllString(match, " "))
		if len(cleaned) >= 10 {
			phones = append(phones, cleaned)
		}
	}

	return phones
}

func findSocialLinks(doc *goquery.Document) map[string]string {
	social := make(map[string]string)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" {
			return
		}
		for _, platform := range socialPlatforms {
			for _, domain := range platform.domains {
				if strings.Contains(href, domain) {
					social[platform.key] = href
					return
				}
			}
		}
	})

	return social
}

// findContactPage returns the absolute URL of the first contact/about link
// that stays on the same site, or "" when none qualifies.
func findContactPage(doc *goquery.Document, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	var found string
	doc.Find(`a[href*="contact"], a[href*="about"], a[href*="team"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if href == "" || (!strings.Contains(href, "contact") && !strings.Contains(href, "about")) {
			return true
		}
		resolved, err := base.Parse(href)
		if err != nil || resolved.Host != base.Host {
			return true
		}
		found = resolved.String()
		return false
	})
	return found
}

func acceptEmail(addr string) bool {
	lower := strings.ToLower(strings.TrimSpace(addr))
	for _, blocked := range emailBlacklist {
		if strings.Contains(lower, blocked) {
			return false
		}
	}
	if !emailPattern.MatchString(lower) || strings.Count(lower, "@") != 1 {
		return false
	}
	local, domain, _ := strings.Cut(lower, "@")
	return local != "" && strings.Contains(domain, ".")
}

// dedupeEmails removes duplicates case-insensitively on the full address,
// preserving first-seen order.
func dedupeEmails(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	var out []string
	for _, e := range emails {
		norm := strings.ToLower(strings.TrimSpace(e))
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out
}

// dedupePhones removes duplicates ignoring all non-digit characters,
// preserving first-seen order.
func dedupePhones(phones []string) []string {
	seen := make(map[string]bool, len(phones))
	var out []string
	for _, p := range phones {
		norm := nonDigits.ReplaceAllString(p, "")
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, p)
	}
	return out
}

func classifyEmails(emails []string) []model.Email {
	out := make([]model.Email, 0, len(emails))
	for _, addr := range emails {
		t := emailType(addr)
		out = append(out, model.Email{
			Address:    addr,
			Type:       t,
			Confidence: emailConfidence(addr, t),
		})
	}
	return out
}

// emailType classifies an address by local-part keyword matching.
func emailType(addr string) string {
	lower := strings.ToLower(addr)

	switch {
	case strings.Contains(lower, "info@") || strings.Contains(lower, "contact@"):
		return model.EmailTypeGeneral
	case strings.Contains(lower, "sales@") || strings.Contains(lower, "business@"):
		return model.EmailTypeSales
	case strings.Contains(lower, "support@") || strings.Contains(lower, "help@"):
		return model.EmailTypeSupport
	case strings.Contains(lower, "admin@") || strings.Contains(lower, "webmaster@"):
		return model.EmailTypeAdmin
	}

	local, _, _ := strings.Cut(lower, "@")
	if len(local) > 2 && !strings.Contains(local, "info") && !strings.Contains(local, "contact") {
		return model.EmailTypePersonal
	}
	return model.EmailTypeUnknown
}

// emailConfidence assigns the per-type confidence constant with a small
// penalty for free-mail domains, clamped to [0,1].
func emailConfidence(addr, emailType string) float64 {
	confidence := 0.7
	switch emailType {
	case model.EmailTypeSales:
		confidence = 0.9
	case model.EmailTypeGeneral:
		confidence = 0.85
	case model.EmailTypePersonal:
		confidence = 0.95
	}

	for _, domain := range freemailDomains {
		if strings.Contains(addr, domain) {
			confidence -= 0.1
			break
		}
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// contactConfidence derives the profile confidence from result counts.
func contactConfidence(emails, phones, social int) float64 {
	score := 0.0
	if emails > 0 {
		score += 0.4
	}
	if emails > 2 {
		score += 0.1
	}
	if phones > 0 {
		score += 0.2
	}
	if social > 0 {
		score += 0.2
	}
	if social > 2 {
		score += 0.1
	}
	if score > 1 {
		return 1
	}
	return score
}
