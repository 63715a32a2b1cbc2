// Package scorer implements the deterministic lead scoring engine: five
// weighted sub-scores rolled up into a total score, letter grade, priority
// tier, reasoning strings, and a confidence estimate. Scoring a profile
// never mutates it, and the same profile always yields the same result.
package scorer

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

// Sub-score weights. They sum to 1.0 so the total stays in [0,100].
const (
	weightGitHub     = 0.25
	weightTechnology = 0.20
	weightCompany    = 0.25
	weightContact    = 0.15
	weightEngagement = 0.15
)

// modernFrameworks is the allowlist that earns the modern-stack bonus when
// any frontend or backend detection matches by name.
var modernFrameworks = []string{"React", "Vue.js", "Angular", "Next.js", "Node.js"}

// Engine computes lead scores. The clock is injectable so recency windows
// are testable; NewEngine wires time.Now.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a scoring engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineAt creates a scoring engine with a fixed clock.
func NewEngineAt(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Score computes the full scoring result for a lead profile.
func (e *Engine) Score(lead *model.LeadProfile) model.Scoring {
	zap.L().Debug("scorer: calculating lead score")

	breakdown := model.ScoreBreakdown{
		GitHub:     e.scoreGitHub(lead.Repository),
		Technology: e.scoreTechnology(lead.Technology),
		Company:    e.scoreCompany(lead.Company),
		Contact:    e.scoreContact(lead.Contact),
		Engagement: e.scoreEngagement(lead.Engagement),
	}

	total := breakdown.GitHub*weightGitHub +
		breakdown.Technology*weightTechnology +
		breakdown.Company*weightCompany +
		breakdown.Contact*weightContact +
		breakdown.Engagement*weightEngagement

	return model.Scoring{
		TotalScore: round2(total),
		Grade:      grade(total),
		Priority:   priority(total, breakdown),
		Breakdown:  breakdown,
		Reasoning:  reasoning(breakdown, lead),
		Confidence: confidence(lead),
	}
}

// scoreGitHub rewards repository activity, popularity, star count,
// contributor depth, and a recent push, clamped to 100.
func (e *Engine) scoreGitHub(repo *model.RepositoryProfile) float64 {
	if repo == nil {
		return 0
	}

	score := repo.ActivityScore*30 + repo.PopularityScore*30

	if repo.Stars > 0 {
		score += math.Min(20, float64(repo.Stars)/100*20)
	}
	if n := len(repo.Contributors); n > 0 {
		score += math.Min(10, float64(n)*2)
	}
	if !repo.PushedAt.IsZero() {
		if e.now().Sub(repo.PushedAt).Hours()/24 < 30 {
			score += 10
		}
	}

	return math.Min(100, score)
}

// scoreTechnology rewards a modern frontend/backend framework plus the
// presence of analytics, e-commerce, marketing, and security tooling.
func (e *Engine) scoreTechnology(tech *model.TechnologyProfile) float64 {
	if tech == nil || tech.Detections == nil {
		return 0
	}

	score := 0.0

	if hasModernFramework(tech) {
		score += 30
	}
	if len(tech.Category(model.CategoryAnalytics)) > 0 {
		score += 20
	}
	if len(tech.Category(model.CategoryEcommerce)) > 0 {
		score += 25
	}
	if len(tech.Category(model.CategoryMarketing)) > 0 {
		score += 15
	}
	if len(tech.Category(model.CategorySecurity)) > 0 {
		score += 10
	}

	return math.Min(100, score)
}

func hasModernFramework(tech *model.TechnologyProfile) bool {
	stack := append([]model.Detection{}, tech.Category(model.CategoryFrontend)...)
	stack = append(stack, tech.Category(model.CategoryBackend)...)
	for _, d := range stack {
		for _, name := range modernFrameworks {
			if d.Name == name {
				return true
			}
		}
	}
	return false
}

// scoreCompany rewards organizational footprint (repos, followers), contact
// surface (email, website, location), and company age over two years.
func (e *Engine) scoreCompany(company *model.CompanyProfile) float64 {
	if company == nil {
		return 0
	}

	score := 0.0

	if company.PublicRepos > 10 {
		score += 20
	}
	if company.Followers > 100 {
		score += 20
	}
	if company.Email != "" {
		score += 15
	}
	if company.Website != "" {
		score += 15
	}
	if company.Location != "" {
		score += 10
	}
	if company.CreatedAt != nil {
		years := e.now().Sub(*company.CreatedAt).Hours() / 24 / 365
		if years > 2 {
			score += 20
		}
	}

	return math.Min(100, score)
}

// scoreContact rewards email reach, social platform spread, and a LinkedIn
// presence.
func (e *Engine) scoreContact(contact *model.ContactProfile) float64 {
	if contact == nil {
		return 0
	}

	score := 0.0

	if len(contact.Emails) > 0 {
		score += 40
		if len(contact.Emails) > 2 {
			score += 10
		}
	}

	score += math.Min(30, float64(len(contact.Social))*10)

	if _, ok := contact.Social["linkedin"]; ok {
		score += 20
	}

	return math.Min(100, score)
}

// scoreEngagement starts from a neutral 50 baseline, adding for update
// recency and social activity. An absent engagement record scores 50.
func (e *Engine) scoreEngagement(engagement *model.Engagement) float64 {
	score := 50.0
	if engagement == nil {
		return score
	}

	if engagement.LastUpdate != nil {
		days := e.now().Sub(*engagement.LastUpdate).Hours() / 24
		switch {
		case days < 7:
			score += 30
		case days < 30:
			score += 20
		case days < 90:
			score += 10
		}
	}

	if engagement.SocialActivity > 0 {
		score += math.Min(20, engagement.SocialActivity*5)
	}

	return math.Min(100, score)
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B+"
	case score >= 60:
		return "B"
	case score >= 50:
		return "C+"
	case score >= 40:
		return "C"
	default:
		return "D"
	}
}

// priority is high at 70+, or at 50+ when any single area is strong (80+).
func priority(total float64, breakdown model.ScoreBreakdown) string {
	if total >= 70 {
		return model.PriorityHigh
	}

	subs := [5]float64{breakdown.GitHub, breakdown.Technology, breakdown.Company, breakdown.Contact, breakdown.Engagement}
	for _, s := range subs {
		if s >= 80 && total >= 50 {
			return model.PriorityHigh
		}
	}

	switch {
	case total >= 50:
		return model.PriorityMedium
	case total >= 30:
		return model.PriorityLow
	default:
		return model.PriorityVeryLow
	}
}

// reasoning produces the human-readable explanation lines in a fixed order.
func reasoning(breakdown model.ScoreBreakdown, lead *model.LeadProfile) []string {
	var reasons []string

	if breakdown.GitHub >= 70 {
		reasons = append(reasons, "Strong GitHub presence with active development")
	} else if breakdown.GitHub < 30 {
		reasons = append(reasons, "Limited GitHub activity or visibility")
	}

	if breakdown.Technology >= 70 {
		reasons = append(reasons, "Modern technology stack indicates technical sophistication")
	}
	if lead.Technology != nil && len(lead.Technology.Category(model.CategoryEcommerce)) > 0 {
		reasons = append(reasons, "E-commerce platform suggests revenue potential")
	}

	if breakdown.Company >= 70 {
		reasons = append(reasons, "Well-established company with strong online presence")
	}
	if lead.Company != nil && lead.Company.Email != "" {
		reasons = append(reasons, "Direct contact information available")
	}

	if breakdown.Contact >= 60 {
		reasons = append(reasons, "Multiple contact channels available")
	} else if breakdown.Contact < 30 {
		reasons = append(reasons, "Limited contact information found")
	}

	if breakdown.Engagement >= 70 {
		reasons = append(reasons, "Recent activity indicates active business")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Moderate potential - requires further research")
	}

	return reasons
}

// confidence averages fixed per-source confidences over the sources that
// are present, defaulting to 0.5 when none are.
func confidence(lead *model.LeadProfile) float64 {
	total := 0.0
	factors := 0

	if lead.Repository != nil {
		total += 0.9
		factors++
	}
	if lead.Technology != nil && lead.Technology.Confidence > 0 {
		total += lead.Technology.Confidence
		factors++
	}
	if lead.Company != nil {
		total += 0.85
		factors++
	}
	if lead.Contact != nil && len(lead.Contact.Emails) > 0 {
		total += 0.95
		factors++
	}

	if factors == 0 {
		return 0.5
	}
	return round2(total / float64(factors))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
