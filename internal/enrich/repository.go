// Package enrich contains the four source adapters that turn a subject
// fragment into a typed partial profile: repository intelligence, technology
// fingerprinting, contact extraction, and company profiling.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/pkg/github"
)

const (
	repoCacheTTL    = time.Hour
	topContributors = 10
)

// RepositoryScanner is the Repository Intelligence adapter. It fetches
// repository metadata, the language histogram, the top contributors, and
// the owning organization, and derives activity/popularity scores.
type RepositoryScanner struct {
	client github.Client
	cache  *cache.Cache
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewRepositoryScanner creates the adapter. The cache may be nil to disable
// result caching.
func NewRepositoryScanner(client github.Client, c *cache.Cache) *RepositoryScanner {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("repository")
	return &RepositoryScanner{
		client: client,
		cache:  c,
		retry:  cfg,
		now:    time.Now,
	}
}

// classifyGitHubErr maps GitHub API errors onto the failure taxonomy so the
// retry wrapper short-circuits on not-found/auth/quota responses.
func classifyGitHubErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		return &resilience.StageError{
			Kind:       resilience.ClassifyHTTPStatus(apiErr.StatusCode),
			Stage:      "repository",
			StatusCode: apiErr.StatusCode,
			Err:        err,
		}
	}
	return err
}

// Fetch analyzes the repository identified by "owner/name". Metadata is
// required; language, contributor, and organization sub-fetches are
// independent reads that run concurrently and degrade to empty on failure.
func (s *RepositoryScanner) Fetch(ctx context.Context, fullName string) (*model.RepositoryProfile, error) {
	key := cache.Key(fullName, cache.StageRepo)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if profile, ok := v.(*model.RepositoryProfile); ok {
				zap.L().Debug("repository: cache hit", zap.String("repo", fullName))
				return profile, nil
			}
		}
	}

	owner, name, err := model.Subject{GitHub: fullName}.RepoParts()
	if err != nil {
		return nil, resilience.NewStageError(resilience.KindNotFound, "repository", err)
	}

	repo, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*github.Repository, error) {
		r, err := s.client.GetRepository(ctx, owner, name)
		return r, classifyGitHubErr(err)
	})
	if err != nil {
		return nil, err
	}

	var (
		languages    map[string]int64
		contributors []github.Contributor
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		langs, langErr := resilience.DoVal(gCtx, s.retry, func(ctx context.Context) (map[string]int64, error) {
			l, err := s.client.GetLanguages(ctx, owner, name)
			return l, classifyGitHubErr(err)
		})
		if langErr != nil {
			zap.L().Warn("repository: languages fetch failed",
				zap.String("repo", fullName), zap.Error(langErr))
			return nil
		}
		languages = langs
		return nil
	})
	g.Go(func() error {
		cs, contribErr := resilience.DoVal(gCtx, s.retry, func(ctx context.Context) ([]github.Contributor, error) {
			c, err := s.client.GetContributors(ctx, owner, name, topContributors)
			return c, classifyGitHubErr(err)
		})
		if contribErr != nil {
			zap.L().Warn("repository: contributors fetch failed",
				zap.String("repo", fullName), zap.Error(contribErr))
			return nil
		}
		contributors = cs
		return nil
	})
	_ = g.Wait()

	var org *model.Organization
	if repo.Owner.Type == "Organization" {
		o, orgErr := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*github.Organization, error) {
			o, err := s.client.GetOrganization(ctx, owner)
			return o, classifyGitHubErr(err)
		})
		if orgErr != nil {
			zap.L().Warn("repository: org fetch failed",
				zap.String("org", owner), zap.Error(orgErr))
		} else {
			org = &model.Organization{
				Name:        o.Name,
				Description: o.Description,
				Website:     o.Blog,
				Location:    o.Location,
				Email:       o.Email,
				PublicRepos: o.PublicRepos,
				Followers:   o.Followers,
				CreatedAt:   o.CreatedAt,
				Avatar:      o.AvatarURL,
			}
		}
	}

	profile := s.buildProfile(repo, languages, contributors, org)

	if s.cache != nil {
		s.cache.Set(key, profile, repoCacheTTL)
	}
	zap.L().Info("repository: analysis complete",
		zap.String("repo", fullName),
		zap.Float64("activity", profile.ActivityScore),
		zap.Float64("popularity", profile.PopularityScore),
	)
	return profile, nil
}

func (s *RepositoryScanner) buildProfile(repo *github.Repository, languages map[string]int64, contributors []github.Contributor, org *model.Organization) *model.RepositoryProfile {
	p := &model.RepositoryProfile{
		Name:         repo.Name,
		FullName:     repo.FullName,
		OwnerType:    repo.Owner.Type,
		Description:  repo.Description,
		URL:          repo.HTMLURL,
		Homepage:     repo.Homepage,
		Stars:        repo.Stars,
		Forks:        repo.Forks,
		Watchers:     repo.Watchers,
		OpenIssues:   repo.OpenIssues,
		Language:     repo.Language,
		Topics:       repo.Topics,
		Languages:    languages,
		Organization: org,
		CreatedAt:    repo.CreatedAt,
		UpdatedAt:    repo.UpdatedAt,
		PushedAt:     repo.PushedAt,
	}
	if repo.License != nil {
		p.License = repo.License.Name
	}
	for _, c := range contributors {
		p.Contributors = append(p.Contributors, model.Contributor{
			Username:      c.Login,
			Contributions: c.Contributions,
			Avatar:        c.AvatarURL,
			Profile:       c.HTMLURL,
		})
	}

	p.ActivityScore = activityScore(repo.PushedAt, s.now())
	p.PopularityScore = popularityScore(repo.Stars, repo.Forks, repo.Watchers)
	p.Insights = repoInsights(p)
	return p
}

// activityScore is a step function of days since the last push.
func activityScore(pushedAt, now time.Time) float64 {
	days := now.Sub(pushedAt).Hours() / 24
	switch {
	case days < 7:
		return 1.0
	case days < 30:
		return 0.8
	case days < 90:
		return 0.6
	case days < 180:
		return 0.4
	default:
		return 0.2
	}
}

// popularityScore blends stars, forks, and watchers, clamped to [0,1].
func popularityScore(stars, forks, watchers int) float64 {
	score := float64(stars)/1000*0.5 + float64(forks)/100*0.3 + float64(watchers)/500*0.2
	if score > 1 {
		return 1
	}
	return score
}

// repoInsights generates the fixed-rule natural-language observations.
func repoInsights(p *model.RepositoryProfile) []string {
	var insights []string

	if p.ActivityScore > 0.8 {
		insights = append(insights, "Very active development - recently updated")
	} else if p.ActivityScore < 0.3 {
		insights = append(insights, "Low activity - may be archived or completed")
	}

	if p.PopularityScore > 0.7 {
		insights = append(insights, "High popularity - strong community interest")
	}

	if p.OpenIssues > 50 {
		insights = append(insights, "Many open issues - active user engagement")
	}

	if p.Homepage != "" {
		insights = append(insights, "Has production website - commercially viable")
	}

	if p.License != "" {
		insights = append(insights, fmt.Sprintf("Licensed under %s", p.License))
	}

	return insights
}
