package model

import "time"

// Contributor is a repository contributor ranked by contribution count.
type Contributor struct {
	Username      string `json:"username"`
	Contributions int    `json:"contributions"`
	Avatar        string `json:"avatar,omitempty"`
	Profile       string `json:"profile,omitempty"`
}

// Organization is the owning organization of a repository, when the owner
// is an org rather than a user.
type Organization struct {
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Website     string    `json:"website,omitempty"`
	Location    string    `json:"location,omitempty"`
	Email       string    `json:"email,omitempty"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
}

// RepositoryProfile is the Repository Intelligence stage output.
// ActivityScore and PopularityScore are clamped to [0,1].
type RepositoryProfile struct {
	Name         string           `json:"name"`
	FullName     string           `json:"full_name"`
	OwnerType    string           `json:"owner_type,omitempty"`
	Description  string           `json:"description,omitempty"`
	URL          string           `json:"url,omitempty"`
	Homepage     string           `json:"homepage,omitempty"`
	Stars        int              `json:"stars"`
	Forks        int              `json:"forks"`
	Watchers     int              `json:"watchers"`
	OpenIssues   int              `json:"open_issues"`
	Language     string           `json:"language,omitempty"`
	Topics       []string         `json:"topics,omitempty"`
	License      string           `json:"license,omitempty"`
	Languages    map[string]int64 `json:"languages,omitempty"`
	Contributors []Contributor    `json:"contributors,omitempty"`
	Organization *Organization    `json:"organization,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	PushedAt     time.Time        `json:"pushed_at"`

	ActivityScore   float64  `json:"activity_score"`
	PopularityScore float64  `json:"popularity_score"`
	Insights        []string `json:"insights,omitempty"`
}

// Technology category keys, in the fixed evaluation order used for summaries.
const (
	CategoryFrontend  = "frontend"
	CategoryBackend   = "backend"
	CategoryAnalytics = "analytics"
	CategoryHosting   = "hosting"
	CategoryCMS       = "cms"
	CategoryEcommerce = "ecommerce"
	CategoryMarketing = "marketing"
	CategorySecurity  = "security"
)

// TechnologyCategories lists the eight fixed detection categories in order.
var TechnologyCategories = []string{
	CategoryFrontend, CategoryBackend, CategoryAnalytics, CategoryHosting,
	CategoryCMS, CategoryEcommerce, CategoryMarketing, CategorySecurity,
}

// Detection is a single technology signal with its fixed confidence constant.
type Detection struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// TechnologyProfile is the Technology Fingerprinter stage output.
// Confidence is the arithmetic mean over all detections, 0 if none.
type TechnologyProfile struct {
	URL        string                 `json:"url"`
	Detections map[string][]Detection `json:"technologies"`
	Confidence float64                `json:"confidence"`
	Summary    []string               `json:"summary,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Category returns the detections for a category key, nil if none.
func (t *TechnologyProfile) Category(key string) []Detection {
	if t == nil || t.Detections == nil {
		return nil
	}
	return t.Detections[key]
}

// Email classification types assigned by local-part keyword matching.
const (
	EmailTypeGeneral  = "general"
	EmailTypeSales    = "sales"
	EmailTypeSupport  = "support"
	EmailTypePersonal = "personal"
	EmailTypeAdmin    = "admin"
	EmailTypeUnknown  = "unknown"
)

// Email is an accepted, classified address.
type Email struct {
	Address    string  `json:"email"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// ContactProfile is the Contact Extractor stage output. Emails are deduped
// case-insensitively on the full address; phones on digits only.
type ContactProfile struct {
	Emails     []Email           `json:"emails"`
	Phones     []string          `json:"phones"`
	Social     map[string]string `json:"social"`
	Confidence float64           `json:"confidence"`
}

// SocialProof holds element-count heuristics scraped from a company site.
type SocialProof struct {
	Customers     string `json:"customers,omitempty"`
	Testimonials  int    `json:"testimonials,omitempty"`
	Awards        int    `json:"awards,omitempty"`
	PressMentions int    `json:"press_mentions,omitempty"`
}

// Empty reports whether no social-proof signal fired.
func (p SocialProof) Empty() bool {
	return p.Customers == "" && p.Testimonials == 0 && p.Awards == 0 && p.PressMentions == 0
}

// CompanyProfile is the Company Profiler stage output.
type CompanyProfile struct {
	Name          string      `json:"name,omitempty"`
	Domain        string      `json:"domain,omitempty"`
	Description   string      `json:"description,omitempty"`
	Industry      string      `json:"industry,omitempty"`
	Location      string      `json:"location,omitempty"`
	FoundedYear   int         `json:"founded_year,omitempty"`
	Size          string      `json:"size,omitempty"`
	Email         string      `json:"email,omitempty"`
	Website       string      `json:"website,omitempty"`
	PublicRepos   int         `json:"public_repos,omitempty"`
	Followers     int         `json:"followers,omitempty"`
	CreatedAt     *time.Time  `json:"created_at,omitempty"`
	BusinessModel []string    `json:"business_model,omitempty"`
	Features      []string    `json:"features,omitempty"`
	SocialProof   SocialProof `json:"social_proof"`
	Confidence    float64     `json:"confidence"`
}

// Engagement carries recency and social-activity signals for re-scoring.
// The pipeline does not populate it; callers of the synchronous score API may.
type Engagement struct {
	LastUpdate     *time.Time `json:"last_update,omitempty"`
	SocialActivity float64    `json:"social_activity,omitempty"`
}

// Source types recorded in lead metadata.
const (
	SourceGitHub  = "github"
	SourceWebsite = "website"
)

// LeadMetadata describes when and from what the lead was analyzed.
type LeadMetadata struct {
	AnalyzedAt time.Time `json:"analyzed_at"`
	Source     string    `json:"source"`
	URL        string    `json:"url,omitempty"`
}

// LeadProfile is the merged enrichment result. Each sub-profile is optional:
// a degraded stage leaves its pointer nil, and consumers must treat absent
// fields as unknown.
type LeadProfile struct {
	Repository *RepositoryProfile `json:"github,omitempty"`
	Technology *TechnologyProfile `json:"technology,omitempty"`
	Company    *CompanyProfile    `json:"company,omitempty"`
	Contact    *ContactProfile    `json:"contact,omitempty"`
	Engagement *Engagement        `json:"engagement,omitempty"`
	Metadata   LeadMetadata       `json:"metadata"`
	Scoring    *Scoring           `json:"scoring,omitempty"`
}

// DisplayName picks the best available name for a merged profile: company
// name, then repository name, then a fixed placeholder.
func (p *LeadProfile) DisplayName() string {
	if p.Company != nil && p.Company.Name != "" {
		return p.Company.Name
	}
	if p.Repository != nil && p.Repository.Name != "" {
		return p.Repository.Name
	}
	return "Unknown Lead"
}

// DomainKey returns the normalized domain this profile is keyed under, or ""
// when the lead has no website at all.
func (p *LeadProfile) DomainKey() string {
	if p.Company != nil && p.Company.Domain != "" {
		return p.Company.Domain
	}
	if p.Metadata.URL != "" {
		return NormalizeDomain(p.Metadata.URL)
	}
	return ""
}

// Lead is the persisted record of a scored lead: the denormalized scoring
// columns used for listing and filtering plus the full merged profile.
type Lead struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Domain         string       `json:"domain,omitempty"`
	Score          float64      `json:"score"`
	Grade          string       `json:"grade"`
	Priority       string       `json:"priority"`
	Confidence     float64      `json:"confidence"`
	Source         string       `json:"source"`
	Profile        *LeadProfile `json:"profile,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	LastAnalyzedAt time.Time    `json:"last_analyzed_at"`
}

// Priority tiers derived from the total score and sub-score outliers.
const (
	PriorityHigh    = "high"
	PriorityMedium  = "medium"
	PriorityLow     = "low"
	PriorityVeryLow = "very-low"
)

// ScoreBreakdown holds the five named sub-scores, each in [0,100].
type ScoreBreakdown struct {
	GitHub     float64 `json:"github"`
	Technology float64 `json:"technology"`
	Company    float64 `json:"company"`
	Contact    float64 `json:"contact"`
	Engagement float64 `json:"engagement"`
}

// Scoring is the derived quality score. Recomputing it from the same
// LeadProfile is deterministic; it is never mutated after creation.
type Scoring struct {
	TotalScore float64        `json:"total_score"`
	Grade      string         `json:"grade"`
	Priority   string         `json:"priority"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	Reasoning  []string       `json:"reasoning"`
	Confidence float64        `json:"confidence"`
}
