package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tifo/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	AI            AIConfig
	Platforms     PlatformConfig
	RateLimit     RateLimitConfig
	Scheduler     SchedulerConfig
	Moderation    ModerationConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"tifo"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"tifo"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers          []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID          string   `envconfig:"KAFKA_GROUP_ID" default:"tifo"`
	MatchStatusTopic string   `envconfig:"KAFKA_MATCH_STATUS_TOPIC" default:"matches.status"`
}

type TelegramConfig struct {
	BotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminIDs []int64 `envconfig:"TELEGRAM_ADMIN_IDS"`
}

type AIConfig struct {
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GeminiKey       string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"openai"`
	BatchSize       int           `envconfig:"AI_BATCH_SIZE" default:"50"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"45s"`
}

type PlatformConfig struct {
	// Twitterlike: bearer-token search API
	TwitterlikeBearerToken string `envconfig:"TWITTERLIKE_BEARER_TOKEN"`
	TwitterlikeBaseURL     string `envconfig:"TWITTERLIKE_BASE_URL" default:"https://api.twitterlike.example/2"`
	TwitterlikePerMinute   int    `envconfig:"TWITTERLIKE_CALLS_PER_MINUTE" default:"10"`

	// Fan forum: OAuth client-credentials handshake
	ForumClientID     string `envconfig:"FORUM_CLIENT_ID"`
	ForumClientSecret string `envconfig:"FORUM_CLIENT_SECRET"`
	ForumBaseURL      string `envconfig:"FORUM_BASE_URL" default:"https://oauth.fanforum.example"`
	ForumPerMinute    int    `envconfig:"FORUM_CALLS_PER_MINUTE" default:"6"`

	FetchTimeout time.Duration `envconfig:"PLATFORM_FETCH_TIMEOUT" default:"30s"`
	PageSize     int           `envconfig:"PLATFORM_PAGE_SIZE" default:"100"`
}

// RateLimitConfig bounds external calls per (identity, operation class).
// State is process-local unless Distributed is set, in which case the
// sliding window lives in Redis and is shared across instances.
type RateLimitConfig struct {
	IngestQuota   int           `envconfig:"RATE_LIMIT_INGEST_QUOTA" default:"10"`
	ClassifyQuota int           `envconfig:"RATE_LIMIT_CLASSIFY_QUOTA" default:"5"`
	Window        time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	Distributed   bool          `envconfig:"RATE_LIMIT_DISTRIBUTED" default:"false"`
}

type SchedulerConfig struct {
	NormalInterval   time.Duration `envconfig:"SCHEDULER_NORMAL_INTERVAL" default:"60s"`
	BoostedInterval  time.Duration `envconfig:"SCHEDULER_BOOSTED_INTERVAL" default:"20s"`
	BoostThreshold   float64       `envconfig:"SCHEDULER_BOOST_MENTIONS_PER_MINUTE" default:"30"`
	HysteresisCount  int           `envconfig:"SCHEDULER_HYSTERESIS_SAMPLES" default:"3"`
	TickTimeout      time.Duration `envconfig:"SCHEDULER_TICK_TIMEOUT" default:"2m"`
	StallThreshold   int           `envconfig:"SCHEDULER_STALL_FAILED_TICKS" default:"5"`
	ShutdownTimeout  time.Duration `envconfig:"SCHEDULER_SHUTDOWN_TIMEOUT" default:"2m"`
	GlobalFeedActive bool          `envconfig:"SCHEDULER_GLOBAL_FEED_ACTIVE" default:"true"`

	// Background rollup precompute cadence and lookback
	AggregateInterval time.Duration `envconfig:"SCHEDULER_AGGREGATE_INTERVAL" default:"60s"`
	AggregateWindow   time.Duration `envconfig:"SCHEDULER_AGGREGATE_WINDOW" default:"1h"`
}

type ModerationConfig struct {
	// Extra denylist entries merged with the built-in list
	ExtraDenylist []string `envconfig:"MODERATION_EXTRA_DENYLIST"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
