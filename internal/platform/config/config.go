package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server       Server
	Store        StoreConfig
	Redis        RedisConfig
	Postgres     PostgresConfig
	Auth         AuthConfig
	Verification VerificationConfig
	Exam         ExamConfig
	Assistant    AssistantConfig
	Discord      DiscordConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	Log          LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend string
}

// RedisConfig configures the Redis store backend.
type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the SQL store backend.
type PostgresConfig struct {
	URL          string
	Table        string
	MaxOpenConns int
}

// AuthConfig holds token signing and the bootstrap super admin identity.
type AuthConfig struct {
	JWTSigningKey   string
	AdminTokenTTL   time.Duration
	SessionTokenTTL time.Duration
	SuperAdminName  string
	SuperAdminEmail string
	SuperAdminCode  string
	CodeIndexKey    string
}

// VerificationConfig tunes the registry checks.
type VerificationConfig struct {
	MockLatency bool
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// ExamConfig holds the timed exam session parameters.
type ExamConfig struct {
	Duration      time.Duration
	MaxViolations int
}

// AssistantConfig configures the recruitment chat assistant.
type AssistantConfig struct {
	GeminiAPIKey string
	Model        string
}

// DiscordConfig enables status change notifications to a channel.
type DiscordConfig struct {
	BotToken  string
	ChannelID string
}

// KafkaConfig enables publishing audit entries to a topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig sets per-client budgets for the unauthenticated endpoints.
type RateLimitConfig struct {
	Enabled         bool
	AuthPerMinute   int
	PublicPerMinute int
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	p := &parser{}
	cfg := Config{
		Server: Server{
			Addr:            envOr("RNP_ADDR", ":8080"),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(envOr("RNP_STORE_BACKEND", BackendMemory)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			KeyPrefix:    envOr("REDIS_KEY_PREFIX", "rnp:"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Table:        envOr("RNP_KV_TABLE", "rnp_records"),
			MaxOpenConns: p.int("DATABASE_MAX_OPEN_CONNS", 10),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			AdminTokenTTL:   p.duration("ADMIN_TOKEN_TTL", 8*time.Hour),
			SessionTokenTTL: p.duration("SESSION_TOKEN_TTL", time.Hour),
			SuperAdminName:  envOr("SUPER_ADMIN_NAME", "Commissioner"),
			SuperAdminEmail: envOr("SUPER_ADMIN_EMAIL", "superadmin@police.gov.rw"),
			SuperAdminCode:  os.Getenv("SUPER_ADMIN_CODE"),
			CodeIndexKey:    envOr("ACCESS_CODE_INDEX_KEY", "dev-code-index-key-change-in-production"),
		},
		Verification: VerificationConfig{
			MockLatency: p.bool("VERIFICATION_MOCK_LATENCY", true),
			Timeout:     p.duration("VERIFICATION_TIMEOUT", 10*time.Second),
			MaxRetries:  p.int("VERIFICATION_MAX_RETRIES", 2),
			RetryDelay:  p.duration("VERIFICATION_RETRY_DELAY", 200*time.Millisecond),
		},
		Exam: ExamConfig{
			Duration:      p.duration("EXAM_DURATION", 30*time.Minute),
			MaxViolations: p.int("EXAM_MAX_VIOLATIONS", 3),
		},
		Assistant: AssistantConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			Model:        envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Discord: DiscordConfig{
			BotToken:  os.Getenv("DISCORD_BOT_TOKEN"),
			ChannelID: os.Getenv("DISCORD_CHANNEL_ID"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "rnp.audit"),
		},
		RateLimit: RateLimitConfig{
			Enabled:         p.bool("RATE_LIMIT_ENABLED", true),
			AuthPerMinute:   p.int("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			PublicPerMinute: p.int("RATE_LIMIT_PUBLIC_PER_MINUTE", 60),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("REDIS_URL is required for the redis store backend")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres store backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Exam.MaxViolations < 0 {
		return errors.New("EXAM_MAX_VIOLATIONS must not be negative")
	}
	if c.Verification.MaxRetries < 0 {
		return errors.New("VERIFICATION_MAX_RETRIES must not be negative")
	}
	if (c.Discord.BotToken == "") != (c.Discord.ChannelID == "") {
		return errors.New("DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser records the first malformed variable.
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return b
}
