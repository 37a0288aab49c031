package bootstrap

import (
	"context"
	"sync"

	chclient "tifo/internal/adapters/clickhouse"
	"tifo/internal/adapters/config"
	"tifo/internal/adapters/kafka"
	"tifo/internal/adapters/platforms"
	pgclient "tifo/internal/adapters/postgres"
	redisclient "tifo/internal/adapters/redis"
	"tifo/internal/adapters/telegram"
	"tifo/internal/api"
	"tifo/internal/api/health"
	"tifo/internal/domain/club"
	"tifo/internal/domain/post"
	"tifo/internal/domain/sentiment"
	"tifo/internal/ratelimit"
	redisrepo "tifo/internal/repository/redis"
	"tifo/internal/services/aggregation"
	"tifo/internal/services/ingestion"
	"tifo/internal/workers"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores)
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	// Domain Layer - Repositories
	Repos *Repositories

	// External Adapters
	Adapters *Adapters

	// Domain Layer - Services
	Services *Services

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories
type Repositories struct {
	Posts          post.Store
	Results        sentiment.Repository
	Dedup          *redisrepo.Deduplicator
	AggregateCache *redisrepo.AggregateCache
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer       *kafka.Producer
	MatchStatusConsumer *kafka.Consumer
	Platforms           []platforms.Adapter
	Notifier            *telegram.Notifier // nil when no bot token is configured
	Limiter             ratelimit.Limiter
	Classifier          ingestion.Classifier
	Clubs               *club.Registry
}

// Services groups all domain services
type Services struct {
	Pipeline   *ingestion.Pipeline
	Aggregates *aggregation.Service
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
	AppHandler    *api.AppHandler
}

// Background groups all background processing components
type Background struct {
	RefreshManager *workers.RefreshManager
	MatchListener  *workers.MatchStatusListener
	Scheduler      *workers.Scheduler
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Adapters:    &Adapters{},
		Services:    &Services{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitBackground()
	c.MustInitApplication()
}

// Start starts the HTTP server, the match status listener and the
// refresh contexts that should be active from boot.
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Match status listener (Kafka)
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Background.MatchListener.Run(c.Context); err != nil && c.Context.Err() == nil {
			c.Log.Errorw("Match status listener failed", "error", err)
		}
	}()

	// Rollup precompute scheduler
	if err := c.Background.Scheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start worker scheduler")
	}

	// League-wide feed context
	if c.Config.Scheduler.GlobalFeedActive {
		if err := c.Background.RefreshManager.Activate(workers.GlobalContextID); err != nil {
			return errors.Wrap(err, "failed to activate global feed context")
		}
		c.Log.Info("Global feed context active")
	}

	// HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel()
		}
	}()

	c.Log.Info("All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	// Cancel application context to signal all components to stop
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.Scheduler,
		c.Background.RefreshManager,
		c.Adapters.MatchStatusConsumer,
		c.Adapters.KafkaProducer,
		c.PG,
		c.CH,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
