// Package config loads server settings from defaults, an optional TOML file,
// an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/mcoot/fourinarow/internal/model"
)

// Storage backends
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// PathEnv names the variable consulted when no config path is given
const PathEnv = "FOURINAROW_CONFIG"

// DefaultEnvFile is read if present
const DefaultEnvFile = ".env"

type Config struct {
	HTTPAddr string `toml:"http_addr"` // HTTP_ADDR (default ":8080")
	LogLevel string `toml:"log_level"` // LOG_LEVEL (default "info")

	StorageType string `toml:"storage_type"` // STORAGE_TYPE (memory|redis|postgres)
	RedisURL    string `toml:"redis_url"`    // REDIS_URL (required for redis)
	DatabaseURL string `toml:"database_url"` // DATABASE_URL (required for postgres)
	NATSURL     string `toml:"nats_url"`     // NATS_URL (optional, empty = no events)

	MatchmakingTimeout     time.Duration `toml:"matchmaking_timeout"`      // MATCHMAKING_TIMEOUT (default 10s)
	BotMoveDelay           time.Duration `toml:"bot_move_delay"`           // BOT_MOVE_DELAY (default 1s)
	ReconnectGrace         time.Duration `toml:"reconnect_grace"`          // RECONNECT_GRACE (default 30s)
	TicketTTL              time.Duration `toml:"ticket_ttl"`               // TICKET_TTL (default 1h)
	RequireReconnectTicket bool          `toml:"require_reconnect_ticket"` // REQUIRE_RECONNECT_TICKET (default true)
	BotStrategy            string        `toml:"bot_strategy"`             // BOT_STRATEGY (default "heuristic")

	PublicURL      string   `toml:"public_url"`      // PUBLIC_URL (web client serving /play, default none)
	AllowedOrigins []string `toml:"allowed_origins"` // ALLOWED_ORIGINS (comma separated, empty = any)
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		HTTPAddr:               ":8080",
		LogLevel:               "info",
		StorageType:            StorageTypeMemory,
		MatchmakingTimeout:     10 * time.Second,
		BotMoveDelay:           time.Second,
		ReconnectGrace:         30 * time.Second,
		TicketTTL:              time.Hour,
		RequireReconnectTicket: true,
		BotStrategy:            model.BotStrategyHeuristic,
	}
}

// Load builds the configuration. path names a TOML file; if empty,
// FOURINAROW_CONFIG is consulted and a missing setting means no file.
func Load(path string) (Config, error) {
	return load(path, DefaultEnvFile)
}

func load(path, envFile string) (Config, error) {
	c := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &c); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
	}
	env := lookup{dotenv: dotenv}

	c.HTTPAddr = env.orDefault("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = env.orDefault("LOG_LEVEL", c.LogLevel)
	c.StorageType = env.orDefault("STORAGE_TYPE", c.StorageType)
	c.RedisURL = env.orDefault("REDIS_URL", c.RedisURL)
	c.DatabaseURL = env.orDefault("DATABASE_URL", c.DatabaseURL)
	c.NATSURL = env.orDefault("NATS_URL", c.NATSURL)
	c.BotStrategy = env.orDefault("BOT_STRATEGY", c.BotStrategy)
	c.PublicURL = env.orDefault("PUBLIC_URL", c.PublicURL)
	if v := env.get("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	var errs []error
	c.MatchmakingTimeout = env.duration("MATCHMAKING_TIMEOUT", c.MatchmakingTimeout, &errs)
	c.BotMoveDelay = env.duration("BOT_MOVE_DELAY", c.BotMoveDelay, &errs)
	c.ReconnectGrace = env.duration("RECONNECT_GRACE", c.ReconnectGrace, &errs)
	c.TicketTTL = env.duration("TICKET_TTL", c.TicketTTL, &errs)
	c.RequireReconnectTicket = env.bool("REQUIRE_RECONNECT_TICKET", c.RequireReconnectTicket, &errs)
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks that the settings are usable
func (c Config) Validate() error {
	var errs []error

	switch c.StorageType {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when STORAGE_TYPE=redis"))
		}
	case StorageTypePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_TYPE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_TYPE: unknown storage type %q", c.StorageType))
	}

	for name, d := range map[string]time.Duration{
		"MATCHMAKING_TIMEOUT": c.MatchmakingTimeout,
		"BOT_MOVE_DELAY":      c.BotMoveDelay,
		"RECONNECT_GRACE":     c.ReconnectGrace,
		"TICKET_TTL":          c.TicketTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %s", name, d))
		}
	}

	if !slices.Contains(model.ValidBotStrategies(), c.BotStrategy) {
		errs = append(errs, fmt.Errorf("BOT_STRATEGY: unknown strategy %q", c.BotStrategy))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel returns the configured log level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLogLevel maps debug, info, warn and error to slog levels
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// lookup prefers the process environment over values read from .env
type lookup struct {
	dotenv map[string]string
}

func (l lookup) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return l.dotenv[key]
}

func (l lookup) orDefault(key, fallback string) string {
	if v := l.get(key); v != "" {
		return v
	}
	return fallback
}

func (l lookup) duration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := l.get(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (l lookup) bool(key string, fallback bool, errs *[]error) bool {
	v := l.get(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
