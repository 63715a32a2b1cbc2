package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/enrich"
	"github.com/sells-group/leadscout/internal/fetcher"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/pipeline"
	"github.com/sells-group/leadscout/internal/queue"
	"github.com/sells-group/leadscout/internal/scorer"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/pkg/github"
	"github.com/sells-group/leadscout/pkg/whois"
)

// appEnv holds the initialized store, queue, and pipeline shared by the
// serve/worker/analyze commands.
type appEnv struct {
	Store     store.Store
	Queue     *queue.Queue
	Pipeline  *pipeline.Orchestrator
	Engine    *scorer.Engine
	Collector *monitoring.Collector
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv sets up the store, API clients, adapters, and orchestrator.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var ghOpts []github.Option
	if cfg.GitHub.BaseURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}
	gh := github.NewClient(cfg.GitHub.Token, ghOpts...)

	pages := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		PerHostRate:  rate.Limit(cfg.Fetch.PerHostRate),
		PerHostBurst: cfg.Fetch.PerHostBurst,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})

	var who whois.Client
	if cfg.Whois.Enabled {
		who = whois.NewClient(whois.WithTimeout(time.Duration(cfg.Whois.TimeoutSecs) * time.Second))
	}

	c := cache.New()
	engine := scorer.NewEngine()
	orch := pipeline.New(
		enrich.NewRepositoryScanner(gh, c),
		enrich.NewTechnologyDetector(pages, c),
		enrich.NewContactExtractor(pages, c),
		enrich.NewCompanyProfiler(pages, who, c),
		engine,
		c,
	)

	return &appEnv{
		Store:     st,
		Queue:     queue.New(st),
		Pipeline:  orch,
		Engine:    engine,
		Collector: monitoring.NewCollector(st),
	}, nil
}
