package bootstrap

import (
	"context"
	"strings"

	"tifo/internal/adapters/ai"
	chclient "tifo/internal/adapters/clickhouse"
	"tifo/internal/adapters/config"
	errnoop "tifo/internal/adapters/errors/noop"
	"tifo/internal/adapters/errors/sentry"
	"tifo/internal/adapters/kafka"
	"tifo/internal/adapters/platforms"
	pgclient "tifo/internal/adapters/postgres"
	redisclient "tifo/internal/adapters/redis"
	"tifo/internal/adapters/telegram"
	"tifo/internal/api"
	"tifo/internal/api/health"
	"tifo/internal/domain/club"
	"tifo/internal/metrics"
	"tifo/internal/moderation"
	"tifo/internal/ratelimit"
	chrepo "tifo/internal/repository/clickhouse"
	pgrepo "tifo/internal/repository/postgres"
	redisrepo "tifo/internal/repository/redis"
	"tifo/internal/seeds"
	"tifo/internal/services/aggregation"
	"tifo/internal/services/ingestion"
	"tifo/internal/workers"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

const appVersion = "0.1.0"

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure initializes data stores (Postgres, ClickHouse, Redis)
func (c *Container) MustInitInfrastructure() {
	var err error

	c.Log.Info("Connecting to PostgreSQL...")
	c.PG, err = pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		c.Log.Fatalf("failed to connect postgres: %v", err)
	}

	c.Log.Info("Connecting to ClickHouse...")
	c.CH, err = chclient.NewClient(c.Config.ClickHouse)
	if err != nil {
		c.Log.Fatalf("failed to connect clickhouse: %v", err)
	}

	c.Log.Info("Connecting to Redis...")
	c.Redis, err = redisclient.NewClient(c.Config.Redis)
	if err != nil {
		c.Log.Fatalf("failed to connect redis: %v", err)
	}

	c.Log.Info("Databases connected")
}

// ========================================
// Phase 3: Repositories
// ========================================

// MustInitRepositories wires the data stores behind domain interfaces
func (c *Container) MustInitRepositories() {
	c.Repos.Posts = pgrepo.NewPostRepository(c.PG.DB())
	c.Repos.Results = chrepo.NewResultRepository(c.CH.Conn())
	c.Repos.Dedup = redisrepo.NewDeduplicator(c.Redis.Raw(), 0)
	c.Repos.AggregateCache = redisrepo.NewAggregateCache(c.Redis.Raw(), 0)
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters initializes Kafka, platform connectors, the AI
// classification gateway and the operator notifier
func (c *Container) MustInitAdapters() {
	cfg := c.Config

	// Kafka
	c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	c.Adapters.MatchStatusConsumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   cfg.Kafka.MatchStatusTopic,
	})

	// Club reference data
	clubs, err := club.NewRegistry(seeds.PremierLeagueClubs())
	if err != nil {
		c.Log.Fatalf("invalid club dataset: %v", err)
	}
	c.Adapters.Clubs = clubs

	// Rate limiting across external calls
	quotas := ratelimit.Quotas{
		ratelimit.OpIngest:   cfg.RateLimit.IngestQuota,
		ratelimit.OpClassify: cfg.RateLimit.ClassifyQuota,
	}
	if cfg.RateLimit.Distributed {
		c.Adapters.Limiter = ratelimit.NewRedisLimiter(c.Redis.Raw(), quotas, cfg.RateLimit.Window)
	} else {
		c.Adapters.Limiter = ratelimit.NewWindowLimiter(quotas, cfg.RateLimit.Window)
	}

	// Platform connectors
	c.Adapters.Platforms = providePlatforms(cfg.Platforms, c.Log)

	// AI classification gateway
	provider := c.mustProvideAIProvider()
	c.Adapters.Classifier = ai.NewGateway(provider, c.Adapters.Limiter, clubs, cfg.AI.BatchSize)

	// Operator alerts
	if cfg.Telegram.BotToken != "" {
		notifier, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminIDs)
		if err != nil {
			c.Log.Warnf("Failed to initialize Telegram notifier: %v", err)
		} else {
			c.Adapters.Notifier = notifier
		}
	}

	c.Log.Infow("Adapters initialized",
		"platforms", len(c.Adapters.Platforms),
		"ai_provider", provider.Name(),
		"distributed_rate_limit", cfg.RateLimit.Distributed,
	)
}

func providePlatforms(cfg config.PlatformConfig, log *logger.Logger) []platforms.Adapter {
	var list []platforms.Adapter

	if cfg.TwitterlikeBearerToken != "" {
		list = append(list, platforms.NewTwitterlikeAdapter(
			cfg.TwitterlikeBearerToken,
			cfg.TwitterlikeBaseURL,
			cfg.PageSize,
			cfg.TwitterlikePerMinute,
			cfg.FetchTimeout,
		))
	}
	if cfg.ForumClientID != "" && cfg.ForumClientSecret != "" {
		list = append(list, platforms.NewForumAdapter(
			cfg.ForumClientID,
			cfg.ForumClientSecret,
			cfg.ForumBaseURL,
			cfg.PageSize,
			cfg.ForumPerMinute,
			cfg.FetchTimeout,
		))
	}

	if len(list) == 0 {
		log.Warn("No platform credentials configured, ingestion will fetch nothing")
	}
	return list
}

func (c *Container) mustProvideAIProvider() ai.Provider {
	cfg := c.Config.AI

	switch strings.ToLower(cfg.DefaultProvider) {
	case "gemini":
		provider, err := ai.NewGeminiProvider(c.Context, cfg.GeminiKey, cfg.GeminiModel, cfg.RequestTimeout)
		if err != nil {
			c.Log.Fatalf("failed to initialize Gemini provider: %v", err)
		}
		return provider
	default:
		provider, err := ai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.RequestTimeout)
		if err != nil {
			c.Log.Fatalf("failed to initialize OpenAI provider: %v", err)
		}
		return provider
	}
}

// ========================================
// Phase 5: Services
// ========================================

// MustInitServices wires the ingestion pipeline and aggregation service
func (c *Container) MustInitServices() {
	filter := moderation.NewFilter(c.Config.Moderation.ExtraDenylist...)

	// A nil notifier must stay a nil interface, not a typed nil
	var notifier ingestion.AlertNotifier
	if c.Adapters.Notifier != nil {
		notifier = c.Adapters.Notifier
	}

	c.Services.Pipeline = ingestion.NewPipeline(
		c.Adapters.Platforms,
		filter,
		c.Repos.Dedup,
		c.Repos.Posts,
		c.Adapters.Classifier,
		c.Repos.Results,
		c.Adapters.Limiter,
		c.Adapters.KafkaProducer,
		notifier,
	)

	c.Services.Aggregates = aggregation.NewService(
		c.Repos.Results,
		c.Repos.AggregateCache,
		c.Adapters.KafkaProducer,
	)
}

// ========================================
// Phase 6: Background Processing
// ========================================

// MustInitBackground wires the adaptive refresh manager and the match
// status listener
func (c *Container) MustInitBackground() {
	cfg := c.Config.Scheduler

	manager := workers.NewRefreshManager(workers.RefreshConfig{
		NormalInterval:  cfg.NormalInterval,
		BoostedInterval: cfg.BoostedInterval,
		BoostThreshold:  cfg.BoostThreshold,
		HysteresisCount: cfg.HysteresisCount,
		TickTimeout:     cfg.TickTimeout,
		StallThreshold:  cfg.StallThreshold,
	}, c.refreshTick)
	if c.Adapters.Notifier != nil {
		manager.SetStallNotifier(c.Adapters.Notifier)
	}

	c.Background.RefreshManager = manager
	c.Background.MatchListener = workers.NewMatchStatusListener(c.Adapters.MatchStatusConsumer, manager)

	// Rollup precompute keeps the aggregate cache warm
	scheduler := workers.NewScheduler()
	scheduler.SetShutdownTimeout(cfg.ShutdownTimeout)
	scheduler.RegisterWorker(workers.NewAggregateRefreshWorker(
		c.Services.Aggregates,
		manager,
		cfg.AggregateWindow,
		cfg.AggregateInterval,
	))
	c.Background.Scheduler = scheduler
}

// refreshTick runs one ingestion pass for a refresh context and reports
// how many posts the platforms returned, which drives cadence.
func (c *Container) refreshTick(ctx context.Context, contextID string) (int, error) {
	report, err := c.Services.Pipeline.RunOnce(ctx, c.queryForContext(contextID))
	if err != nil {
		return 0, err
	}
	return report.PostsFetched, nil
}

// queryForContext derives the platform search query from a refresh
// context id.
func (c *Container) queryForContext(contextID string) string {
	switch {
	case strings.HasPrefix(contextID, "club:"):
		id := strings.TrimPrefix(contextID, "club:")
		if profile, ok := c.Adapters.Clubs.ByID(id); ok {
			return profile.Name
		}
		return id
	case strings.HasPrefix(contextID, "match:"):
		return strings.TrimPrefix(contextID, "match:")
	default:
		return "premier league"
	}
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication wires the HTTP server
func (c *Container) MustInitApplication() {
	metrics.Register()

	c.Application.HealthHandler = health.New(
		c.Log,
		c.PG.DB(),
		c.CH.Conn(),
		c.Redis.Raw(),
		c.Config.App.Name,
		appVersion,
	)

	c.Application.AppHandler = api.NewAppHandler(
		c.Services.Aggregates,
		c.Services.Pipeline,
		c.Background.RefreshManager,
	)

	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        c.Config.HTTP.Port,
		ServiceName: c.Config.App.Name,
		Version:     appVersion,
	}, c.Application.HealthHandler, c.Application.AppHandler, c.Log)
}
