package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifo/internal/domain/aggregate"
	"tifo/pkg/errors"
)

type fakeRefresher struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
	lastErr error
}

func (f *fakeRefresher) Refresh(_ context.Context, scope aggregate.Scope, scopeID string, _ aggregate.Window) (aggregate.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := string(scope) + ":" + scopeID
	f.calls = append(f.calls, key)
	if key == f.failOn {
		f.lastErr = errors.ErrUnavailable
		return aggregate.Stats{}, f.lastErr
	}
	return aggregate.Stats{Scope: scope, ScopeID: scopeID}, nil
}

func idleManager(t *testing.T) *RefreshManager {
	t.Helper()
	manager := NewRefreshManager(RefreshConfig{
		NormalInterval:  time.Hour,
		BoostedInterval: time.Minute,
	}, func(ctx context.Context, contextID string) (int, error) {
		return 0, nil
	})
	t.Cleanup(manager.Stop)
	return manager
}

func TestAggregateWorkerCoversActiveContexts(t *testing.T) {
	manager := idleManager(t)
	require.NoError(t, manager.Activate("club:arsenal"))
	require.NoError(t, manager.Activate("match:m42"))

	refresher := &fakeRefresher{}
	worker := NewAggregateRefreshWorker(refresher, manager, time.Hour, time.Minute)

	require.NoError(t, worker.Run(context.Background()))

	assert.ElementsMatch(t, []string{
		"platform:twitterlike",
		"platform:forum",
		"club:arsenal",
		"match:m42",
	}, refresher.calls)
}

func TestAggregateWorkerContinuesPastFailures(t *testing.T) {
	manager := idleManager(t)
	require.NoError(t, manager.Activate("club:arsenal"))

	refresher := &fakeRefresher{failOn: "platform:twitterlike"}
	worker := NewAggregateRefreshWorker(refresher, manager, time.Hour, time.Minute)

	err := worker.Run(context.Background())
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
	assert.Len(t, refresher.calls, 3)
}

func TestAggregateWorkerStopsOnCancelledContext(t *testing.T) {
	manager := idleManager(t)
	refresher := &fakeRefresher{}
	worker := NewAggregateRefreshWorker(refresher, manager, time.Hour, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := worker.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, refresher.calls)
}
