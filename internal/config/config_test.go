package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leadscout.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.True(t, cfg.Whois.Enabled)
	assert.Equal(t, 10, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 2, cfg.Worker.Size)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LEADS_STORE_DRIVER", "postgres")
	t.Setenv("LEADS_STORE_DATABASE_URL", "postgres://localhost/leads")
	t.Setenv("LEADS_GITHUB_TOKEN", "gh-token")
	t.Setenv("LEADS_WORKER_SIZE", "8")
	t.Setenv("LEADS_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
	assert.Equal(t, "gh-token", cfg.GitHub.Token)
	assert.Equal(t, 8, cfg.Worker.Size)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestWorkerPollInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5*time.Second, WorkerConfig{PollIntervalSecs: 5}.PollInterval())
	assert.Zero(t, WorkerConfig{}.PollInterval())
}
