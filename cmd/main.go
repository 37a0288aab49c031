package main

import (
	"os"
	"os/signal"
	"syscall"

	"tifo/internal/bootstrap"
	"tifo/pkg/logger"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()
	defer logger.Sync()

	if err := container.Start(); err != nil {
		container.Log.Fatalf("Failed to start: %v", err)
	}

	waitForShutdown(container)
}

// waitForShutdown blocks until a signal arrives or a fatal component
// error cancels the application context, then shuts everything down.
func waitForShutdown(container *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		container.Log.Infof("Received signal %s, shutting down", sig)
	case <-container.Context.Done():
		container.Log.Info("Application context cancelled, shutting down")
	}

	container.Shutdown()
}
