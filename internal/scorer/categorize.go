package scorer

import (
	"sort"

	"github.com/sells-group/leadscout/internal/model"
)

// Categories buckets a scored batch into temperature tiers.
type Categories struct {
	Hot  []*model.LeadProfile `json:"hot"`
	Warm []*model.LeadProfile `json:"warm"`
	Cold []*model.LeadProfile `json:"cold"`
}

// Prioritize scores every lead in place and returns them ordered by total
// score, highest first. The sort is stable so equal scores keep input order.
func (e *Engine) Prioritize(leads []*model.LeadProfile) []*model.LeadProfile {
	for _, lead := range leads {
		s := e.Score(lead)
		lead.Scoring = &s
	}
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].Scoring.TotalScore > leads[j].Scoring.TotalScore
	})
	return leads
}

// FilterByScore returns the leads whose total score meets minScore,
// preserving input order. Leads are scored in place.
func (e *Engine) FilterByScore(leads []*model.LeadProfile, minScore float64) []*model.LeadProfile {
	var out []*model.LeadProfile
	for _, lead := range leads {
		s := e.Score(lead)
		lead.Scoring = &s
		if s.TotalScore >= minScore {
			out = append(out, lead)
		}
	}
	return out
}

// Categorize scores every lead in place and buckets them: hot at 70+,
// warm in [50,70), cold below 50.
func (e *Engine) Categorize(leads []*model.LeadProfile) Categories {
	var cats Categories
	for _, lead := range leads {
		s := e.Score(lead)
		lead.Scoring = &s
		switch {
		case s.TotalScore >= 70:
			cats.Hot = append(cats.Hot, lead)
		case s.TotalScore >= 50:
			cats.Warm = append(cats.Warm, lead)
		default:
			cats.Cold = append(cats.Cold, lead)
		}
	}
	return cats
}
