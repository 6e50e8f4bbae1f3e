package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "both"
	cfg.Redis.Addr = ""
	cfg.Worker.ClaimBatch = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown mode "both"`)
	require.Contains(t, err.Error(), "redis: addr must not be empty")
	require.Contains(t, err.Error(), "worker: claim_batch must be >= 1")
}

func TestValidateBotsOnlyInBotsModes(t *testing.T) {
	cfg := Defaults()
	cfg.Bots.BiddersPerAuction = 0

	// Worker mode never runs bots, so their settings are not checked.
	cfg.Mode = "worker"
	require.NoError(t, cfg.Validate())

	cfg.Mode = "full"
	require.Error(t, cfg.Validate())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auctiond.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "full"

[postgres]
host = "db.internal"

[auction]
anti_sniping_threshold = "45s"
`), 0o644))

	t.Setenv("AUCTIOND_POSTGRES_PASSWORD", "s3cret")
	t.Setenv("AUCTIOND_WORKER_CLAIM_BATCH", "32")
	t.Setenv("AUCTIOND_AUCTION_ANTI_SNIPING_EXTENSION", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)

	// File values land on top of defaults.
	require.Equal(t, "full", cfg.Mode)
	require.Equal(t, "db.internal", cfg.Postgres.Host)
	require.Equal(t, 45*time.Second, cfg.Auction.AntiSnipingThreshold.Duration)

	// Env overrides land on top of the file.
	require.Equal(t, "s3cret", cfg.Postgres.Password)
	require.Equal(t, 32, cfg.Worker.ClaimBatch)
	require.Equal(t, time.Minute, cfg.Auction.AntiSnipingExtension.Duration)

	// Untouched fields keep their defaults.
	require.Equal(t, 5432, cfg.Postgres.Port)
	require.Equal(t, "XTR", cfg.Auction.DefaultCurrency)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://user:pw@host/db"
	cfg.Postgres.Password = "pw"
	cfg.Redis.Password = "rpw"

	red := RedactedConfig(&cfg)
	require.Equal(t, "***", red.Postgres.DSN)
	require.Equal(t, "***", red.Postgres.Password)
	require.Equal(t, "***", red.Redis.Password)

	// The source config is left intact.
	require.Equal(t, "pw", cfg.Postgres.Password)
}
