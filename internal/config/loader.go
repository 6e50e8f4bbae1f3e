package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies AUCTIOND_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known AUCTIOND_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "AUCTIOND_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "AUCTIOND_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "AUCTIOND_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "AUCTIOND_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "AUCTIOND_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "AUCTIOND_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "AUCTIOND_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "AUCTIOND_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "AUCTIOND_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "AUCTIOND_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "AUCTIOND_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AUCTIOND_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AUCTIOND_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "AUCTIOND_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "AUCTIOND_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "AUCTIOND_REDIS_TLS_ENABLED")

	// ── Auction ──
	setDuration(&cfg.Auction.AntiSnipingThreshold, "AUCTIOND_AUCTION_ANTI_SNIPING_THRESHOLD")
	setDuration(&cfg.Auction.AntiSnipingExtension, "AUCTIOND_AUCTION_ANTI_SNIPING_EXTENSION")
	setStr(&cfg.Auction.DefaultCurrency, "AUCTIOND_AUCTION_DEFAULT_CURRENCY")
	setInt(&cfg.Auction.LeaderboardSize, "AUCTIOND_AUCTION_LEADERBOARD_SIZE")

	// ── Worker ──
	setDuration(&cfg.Worker.PollInterval, "AUCTIOND_WORKER_POLL_INTERVAL")
	setInt(&cfg.Worker.ClaimBatch, "AUCTIOND_WORKER_CLAIM_BATCH")
	setInt(&cfg.Worker.ChargeConcurrency, "AUCTIOND_WORKER_CHARGE_CONCURRENCY")
	setInt(&cfg.Worker.RefundChunkSize, "AUCTIOND_WORKER_REFUND_CHUNK_SIZE")

	// ── Bots ──
	setInt(&cfg.Bots.BiddersPerAuction, "AUCTIOND_BOTS_BIDDERS_PER_AUCTION")
	setInt(&cfg.Bots.SnipersPerAuction, "AUCTIOND_BOTS_SNIPERS_PER_AUCTION")
	setStr(&cfg.Bots.DepositAmount, "AUCTIOND_BOTS_DEPOSIT_AMOUNT")
	setDuration(&cfg.Bots.MinBidInterval, "AUCTIOND_BOTS_MIN_BID_INTERVAL")
	setDuration(&cfg.Bots.MaxBidInterval, "AUCTIOND_BOTS_MAX_BID_INTERVAL")
	setDuration(&cfg.Bots.SnipeWindow, "AUCTIOND_BOTS_SNIPE_WINDOW")
	setInt(&cfg.Bots.MaxSnipes, "AUCTIOND_BOTS_MAX_SNIPES")
	setInt(&cfg.Bots.RequestsPerSecond, "AUCTIOND_BOTS_REQUESTS_PER_SECOND")

	// ── Top-level ──
	setStr(&cfg.Mode, "AUCTIOND_MODE")
	setStr(&cfg.LogLevel, "AUCTIOND_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
