// Package pipeline orchestrates an enrichment run: stage sequencing with
// progress checkpoints, homepage fallback, organization seeding, per-stage
// degradation, merge, and final scoring.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/enrich"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/scorer"
)

const leadCacheTTL = time.Hour

// ProgressFunc receives checkpoint updates during a run. Implementations
// must tolerate being called from the worker goroutine running the job.
type ProgressFunc func(progress int, message string)

// RepositorySource is the Repository Intelligence stage.
type RepositorySource interface {
	Fetch(ctx context.Context, fullName string) (*model.RepositoryProfile, error)
}

// TechnologySource is the Technology Fingerprinter stage.
type TechnologySource interface {
	Fetch(ctx context.Context, website string) (*model.TechnologyProfile, error)
}

// ContactSource is the Contact Extractor stage.
type ContactSource interface {
	Fetch(ctx context.Context, website string, side enrich.ContactSideChannel) (*model.ContactProfile, error)
}

// CompanySource is the Company Profiler stage.
type CompanySource interface {
	Fetch(ctx context.Context, website string, hints enrich.CompanyHints) (*model.CompanyProfile, error)
}

// Orchestrator runs the four adapters in sequence for one subject and merges
// their partial results into a scored LeadProfile. Adapter failure degrades
// to a nil sub-profile; the run fails only when no stage produced anything.
type Orchestrator struct {
	repos     RepositorySource
	tech      TechnologySource
	contacts  ContactSource
	companies CompanySource
	engine    *scorer.Engine
	cache     *cache.Cache
	now       func() time.Time
}

// New creates an orchestrator. The cache may be nil to disable whole-profile
// caching.
func New(repos RepositorySource, tech TechnologySource, contacts ContactSource, companies CompanySource, engine *scorer.Engine, c *cache.Cache) *Orchestrator {
	if engine == nil {
		engine = scorer.NewEngine()
	}
	return &Orchestrator{
		repos:     repos,
		tech:      tech,
		contacts:  contacts,
		companies: companies,
		engine:    engine,
		cache:     c,
		now:       time.Now,
	}
}

// Run enriches and scores the subject, reporting checkpoints 0..95 through
// progress. The caller owns the 98 (persist) and 100 (complete) checkpoints.
func (o *Orchestrator) Run(ctx context.Context, subject model.Subject, progress ProgressFunc) (*model.LeadProfile, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	report := monotone(progress)

	key := cache.Key(subject.CacheIdentity(), cache.StageLead)
	if o.cache != nil {
		if v, ok := o.cache.Get(key); ok {
			if lead, ok := v.(*model.LeadProfile); ok {
				zap.L().Debug("pipeline: lead cache hit", zap.String("identity", subject.CacheIdentity()))
				report(95, "Calculating lead score")
				return lead, nil
			}
		}
	}

	website := subject.Website
	source := model.SourceWebsite
	if subject.GitHub != "" {
		source = model.SourceGitHub
	}

	lead := &model.LeadProfile{}
	var (
		succeeded int
		firstErr  error
	)
	fail := func(stage string, err error) {
		zap.L().Error("pipeline: stage failed", zap.String("stage", stage), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	report(0, "Starting analysis")

	var org *model.Organization
	if subject.GitHub != "" {
		report(10, "Analyzing GitHub repository")
		repo, err := o.repos.Fetch(ctx, subject.GitHub)
		if err != nil {
			fail("repository", err)
		} else {
			lead.Repository = repo
			org = repo.Organization
			succeeded++
			// Homepage fallback: only when no explicit website was given,
			// decided once, immediately after the repository fetch.
			if website == "" && repo.Homepage != "" {
				website = repo.Homepage
				zap.L().Info("pipeline: using repository homepage",
					zap.String("repo", subject.GitHub),
					zap.String("website", website),
				)
			}
		}
		report(25, "GitHub analysis complete")
	}

	if website != "" {
		report(30, "Detecting website technology")
		tech, err := o.tech.Fetch(ctx, website)
		if err != nil {
			fail("technology", err)
		} else {
			lead.Technology = tech
			succeeded++
		}
		report(50, "Technology detection complete")

		report(55, "Extracting contact information")
		side := enrich.ContactSideChannel{}
		if org != nil {
			side.OrgEmail = org.Email
		}
		contact, err := o.contacts.Fetch(ctx, website, side)
		if err != nil {
			fail("contact", err)
		} else {
			lead.Contact = contact
			succeeded++
		}
		report(70, "Contact extraction complete")

		report(75, "Researching company profile")
		company, err := o.companies.Fetch(ctx, website, companyHints(lead.Repository, org))
		if err != nil {
			fail("company", err)
		} else {
			lead.Company = company
			succeeded++
		}
		report(90, "Company research complete")
	} else if org != nil {
		// No site to research: the organization record alone seeds the
		// company profile.
		lead.Company = seedCompany(org)
	}

	if succeeded == 0 {
		if firstErr == nil {
			firstErr = eris.Errorf("no enrichment source available for subject")
		}
		return nil, firstErr
	}

	report(95, "Calculating lead score")
	lead.Metadata = model.LeadMetadata{
		AnalyzedAt: o.now().UTC(),
		Source:     source,
		URL:        website,
	}
	s := o.engine.Score(lead)
	lead.Scoring = &s

	if o.cache != nil {
		o.cache.Set(key, lead, leadCacheTTL)
	}
	zap.L().Info("pipeline: analysis complete",
		zap.String("identity", subject.CacheIdentity()),
		zap.Float64("score", s.TotalScore),
		zap.String("grade", s.Grade),
	)
	return lead, nil
}

// companyHints seeds the Company Profiler from what earlier stages learned.
func companyHints(repo *model.RepositoryProfile, org *model.Organization) enrich.CompanyHints {
	hints := enrich.CompanyHints{}
	if repo != nil {
		hints.Contributors = len(repo.Contributors)
	}
	if org != nil {
		hints.Name = org.Name
		hints.Location = org.Location
		hints.Email = org.Email
		hints.Website = org.Website
		hints.PublicRepos = org.PublicRepos
		hints.Followers = org.Followers
		hints.HasRepoStats = true
		if !org.CreatedAt.IsZero() {
			t := org.CreatedAt
			hints.CreatedAt = &t
		}
	}
	return hints
}

// seedCompany builds a minimal company profile from the owning organization
// when there is no website to research.
func seedCompany(org *model.Organization) *model.CompanyProfile {
	profile := &model.CompanyProfile{
		Name:        org.Name,
		Description: org.Description,
		Location:    org.Location,
		Email:       org.Email,
		Website:     org.Website,
		PublicRepos: org.PublicRepos,
		Followers:   org.Followers,
		Confidence:  0.5,
	}
	if !org.CreatedAt.IsZero() {
		t := org.CreatedAt
		profile.CreatedAt = &t
	}
	return profile
}

// monotone wraps a progress callback so reported progress never decreases
// and a nil callback is safe to call.
func monotone(fn ProgressFunc) ProgressFunc {
	last := -1
	return func(progress int, message string) {
		if progress < last {
			return
		}
		last = progress
		if fn != nil {
			fn(progress, message)
		}
	}
}
