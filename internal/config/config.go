// Package config defines the top-level configuration for the auction service
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by AUCTIOND_* environment variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Auction  AuctionConfig  `toml:"auction"`
	Worker   WorkerConfig   `toml:"worker"`
	Bots     BotsConfig     `toml:"bots"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// AuctionConfig holds bidding and round-timing parameters.
type AuctionConfig struct {
	// AntiSnipingThreshold is how close to the round deadline a qualifying
	// bid must land to push it out.
	AntiSnipingThreshold duration `toml:"anti_sniping_threshold"`
	// AntiSnipingExtension is the minimum time left after an extension.
	AntiSnipingExtension duration `toml:"anti_sniping_extension"`
	// DefaultCurrency is used when a caller omits the currency.
	DefaultCurrency string `toml:"default_currency"`
	// LeaderboardSize is how many top entries leaderboard queries return.
	LeaderboardSize int `toml:"leaderboard_size"`
}

// WorkerConfig holds settlement-worker parameters.
type WorkerConfig struct {
	PollInterval      duration `toml:"poll_interval"`
	ClaimBatch        int      `toml:"claim_batch"`
	ChargeConcurrency int      `toml:"charge_concurrency"`
	RefundChunkSize   int      `toml:"refund_chunk_size"`
}

// BotsConfig holds synthetic-traffic parameters.
type BotsConfig struct {
	BiddersPerAuction int      `toml:"bidders_per_auction"`
	SnipersPerAuction int      `toml:"snipers_per_auction"`
	DepositAmount     string   `toml:"deposit_amount"`
	MinBidInterval    duration `toml:"min_bid_interval"`
	MaxBidInterval    duration `toml:"max_bid_interval"`
	SnipeWindow       duration `toml:"snipe_window"`
	MaxSnipes         int      `toml:"max_snipes"`
	RequestsPerSecond int      `toml:"requests_per_second"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "30s" or "5m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "auctions",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Auction: AuctionConfig{
			AntiSnipingThreshold: duration{30 * time.Second},
			AntiSnipingExtension: duration{30 * time.Second},
			DefaultCurrency:      "XTR",
			LeaderboardSize:      3,
		},
		Worker: WorkerConfig{
			PollInterval:      duration{time.Second},
			ClaimBatch:        16,
			ChargeConcurrency: 8,
			RefundChunkSize:   500,
		},
		Bots: BotsConfig{
			BiddersPerAuction: 8,
			SnipersPerAuction: 2,
			DepositAmount:     "10000",
			MinBidInterval:    duration{2 * time.Second},
			MaxBidInterval:    duration{8 * time.Second},
			SnipeWindow:       duration{10 * time.Second},
			MaxSnipes:         3,
			RequestsPerSecond: 50,
		},
		Mode:     "worker",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"worker": true,
	"bots":   true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: worker, bots, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.DB < 0 {
		errs = append(errs, "redis: db must be >= 0")
	}

	// Auction
	if c.Auction.AntiSnipingThreshold.Duration <= 0 {
		errs = append(errs, "auction: anti_sniping_threshold must be positive")
	}
	if c.Auction.AntiSnipingExtension.Duration <= 0 {
		errs = append(errs, "auction: anti_sniping_extension must be positive")
	}
	if c.Auction.DefaultCurrency == "" {
		errs = append(errs, "auction: default_currency must not be empty")
	}
	if c.Auction.LeaderboardSize < 1 {
		errs = append(errs, "auction: leaderboard_size must be >= 1")
	}

	// Worker
	if c.Worker.PollInterval.Duration <= 0 {
		errs = append(errs, "worker: poll_interval must be positive")
	}
	if c.Worker.ClaimBatch < 1 {
		errs = append(errs, "worker: claim_batch must be >= 1")
	}
	if c.Worker.ChargeConcurrency < 1 {
		errs = append(errs, "worker: charge_concurrency must be >= 1")
	}
	if c.Worker.RefundChunkSize < 1 {
		errs = append(errs, "worker: refund_chunk_size must be >= 1")
	}

	// Bots
	if c.Mode == "bots" || c.Mode == "full" {
		if c.Bots.BiddersPerAuction < 1 {
			errs = append(errs, "bots: bidders_per_auction must be >= 1")
		}
		if c.Bots.MinBidInterval.Duration <= 0 {
			errs = append(errs, "bots: min_bid_interval must be positive")
		}
		if c.Bots.MaxBidInterval.Duration < c.Bots.MinBidInterval.Duration {
			errs = append(errs, "bots: max_bid_interval must be >= min_bid_interval")
		}
		if c.Bots.DepositAmount == "" {
			errs = append(errs, "bots: deposit_amount must not be empty")
		}
		if c.Bots.RequestsPerSecond < 1 {
			errs = append(errs, "bots: requests_per_second must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
