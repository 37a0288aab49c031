package bootstrap

import (
	"context"
	"sync"
	"time"

	chclient "tifo/internal/adapters/clickhouse"
	"tifo/internal/adapters/kafka"
	pgclient "tifo/internal/adapters/postgres"
	redisclient "tifo/internal/adapters/redis"
	"tifo/internal/api"
	"tifo/internal/workers"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 150 * time.Second,
	}
}

// Shutdown performs coordinated cleanup in order:
// 1. No new requests accepted (HTTP server stops)
// 2. Refresh contexts stop, in-flight ticks finish
// 3. Kafka consumer closes to unblock ReadMessage
// 4. Background goroutines drain
// 5. Producer closes after everything that publishes has stopped
// 6. Error tracker flushed, database connections last
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	scheduler *workers.Scheduler,
	refreshManager *workers.RefreshManager,
	matchStatusConsumer *kafka.Consumer,
	kafkaProducer *kafka.Producer,
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// Step 1: HTTP server
	log.Info("[1/6] Stopping HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
	if err := httpServer.Shutdown(httpCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	httpCancel()

	// Step 2: Background workers and refresh contexts
	log.Info("[2/6] Stopping workers and refresh contexts...")
	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			log.Errorw("Worker scheduler shutdown failed", "error", err)
		}
	}
	refreshManager.Stop()

	// Step 3: Kafka consumer, unblocks the listener goroutine
	log.Info("[3/6] Closing Kafka consumer...")
	if matchStatusConsumer != nil {
		if err := matchStatusConsumer.Close(); err != nil {
			log.Errorw("Kafka consumer close failed", "error", err)
		}
	}

	// Step 4: Background goroutines
	log.Info("[4/6] Waiting for background goroutines...")
	if !waitWithTimeout(wg, 30*time.Second) {
		log.Warn("Background goroutines did not finish in time")
	}

	// Step 5: Kafka producer
	log.Info("[5/6] Closing Kafka producer...")
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		}
	}

	// Step 6: Error tracker and data stores
	log.Info("[6/6] Flushing error tracker and closing databases...")
	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}
	if pgClient != nil {
		if err := pgClient.Close(); err != nil {
			log.Errorw("PostgreSQL close failed", "error", err)
		}
	}
	if chClient != nil {
		if err := chClient.Close(); err != nil {
			log.Errorw("ClickHouse close failed", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Errorw("Redis close failed", "error", err)
		}
	}

	log.Info("Shutdown complete")
}

// waitWithTimeout waits on the group but gives up after the timeout.
func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
