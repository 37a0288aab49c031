package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifo/internal/metrics"
	"tifo/pkg/errors"
)

func fastRefreshConfig() RefreshConfig {
	return RefreshConfig{
		NormalInterval:  30 * time.Millisecond,
		BoostedInterval: 10 * time.Millisecond,
		BoostThreshold:  1000, // mentions/min; one mention per fast tick clears it
		HysteresisCount: 3,
		TickTimeout:     time.Second,
	}
}

func waitForMode(t *testing.T, m *RefreshManager, contextID string, mode Mode) RefreshState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, ok := m.State(contextID); ok && state.Mode == mode {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	state, _ := m.State(contextID)
	t.Fatalf("context %s never reached mode %s, stuck at %s", contextID, mode, state.Mode)
	return RefreshState{}
}

func TestRefreshManager_ActivateRunsImmediately(t *testing.T) {
	var ticks int32
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		atomic.AddInt32(&ticks, 1)
		return 0, nil
	})
	defer m.Stop()

	require.NoError(t, m.Activate("club:arsenal"))

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&ticks) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Greater(t, atomic.LoadInt32(&ticks), int32(0))

	state, ok := m.State("club:arsenal")
	require.True(t, ok)
	assert.Equal(t, ModeNormal, state.Mode)
}

func TestRefreshManager_ActivateTwiceFails(t *testing.T) {
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		return 0, nil
	})
	defer m.Stop()

	require.NoError(t, m.Activate("club:arsenal"))
	assert.Error(t, m.Activate("club:arsenal"))
}

func TestRefreshManager_BoostsOnMentionSpike(t *testing.T) {
	var mentions int32
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		return int(atomic.LoadInt32(&mentions)), nil
	})
	defer m.Stop()

	require.NoError(t, m.Activate("club:arsenal"))
	state := waitForMode(t, m, "club:arsenal", ModeNormal)
	assert.False(t, state.Live)

	atomic.StoreInt32(&mentions, 50)
	state = waitForMode(t, m, "club:arsenal", ModeBoosted)
	assert.NotEmpty(t, state.Reason)
}

func TestRefreshManager_HysteresisBeforeSettling(t *testing.T) {
	var mentions int32 = 50
	var ticksSinceQuiet int32 = -1
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		if n := atomic.LoadInt32(&ticksSinceQuiet); n >= 0 {
			atomic.AddInt32(&ticksSinceQuiet, 1)
		}
		return int(atomic.LoadInt32(&mentions)), nil
	})
	defer m.Stop()

	require.NoError(t, m.Activate("club:arsenal"))
	waitForMode(t, m, "club:arsenal", ModeBoosted)

	// Quiet down and count the ticks it takes to settle.
	atomic.StoreInt32(&ticksSinceQuiet, 0)
	atomic.StoreInt32(&mentions, 0)

	waitForMode(t, m, "club:arsenal", ModeNormal)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&ticksSinceQuiet), int32(3),
		"must observe at least hysteresis-count quiet ticks before settling")
}

func TestRefreshManager_LiveMatchHoldsBoost(t *testing.T) {
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		return 0, nil // always quiet
	})
	defer m.Stop()

	require.NoError(t, m.Activate("match:ars-tot"))
	require.NoError(t, m.MarkLive("match:ars-tot", true))

	state := waitForMode(t, m, "match:ars-tot", ModeBoosted)
	assert.True(t, state.Live)

	// Stays boosted through many quiet ticks while live.
	time.Sleep(100 * time.Millisecond)
	state, ok := m.State("match:ars-tot")
	require.True(t, ok)
	assert.Equal(t, ModeBoosted, state.Mode)

	// Full time: hysteresis takes over and settles it.
	require.NoError(t, m.MarkLive("match:ars-tot", false))
	waitForMode(t, m, "match:ars-tot", ModeNormal)
}

func TestRefreshManager_DeactivateLetsInflightTickFinish(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var completed int32

	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		atomic.AddInt32(&completed, 1)
		return 0, nil
	})
	defer m.Stop()

	require.NoError(t, m.Activate("club:arsenal"))
	<-started

	require.NoError(t, m.Deactivate("club:arsenal"))
	_, ok := m.State("club:arsenal")
	assert.False(t, ok)

	close(release)

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&completed) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&completed), "in-flight tick ran to completion")

	// No further ticks start after deactivation.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&completed))
}

type stallRecorder struct {
	mu    sync.Mutex
	calls []stallCall
}

type stallCall struct {
	contextID string
	failures  int
}

func (r *stallRecorder) NotifyPipelineStall(_ context.Context, contextID string, consecutiveFailures int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, stallCall{contextID: contextID, failures: consecutiveFailures})
}

func (r *stallRecorder) snapshot() []stallCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stallCall(nil), r.calls...)
}

func TestRefreshManager_StallAlertAfterRepeatedFailures(t *testing.T) {
	cfg := fastRefreshConfig()
	cfg.StallThreshold = 3

	var ticks int32
	m := NewRefreshManager(cfg, func(ctx context.Context, contextID string) (int, error) {
		atomic.AddInt32(&ticks, 1)
		return 0, errors.Wrap(errors.ErrUnavailable, "feed down")
	})
	recorder := &stallRecorder{}
	m.SetStallNotifier(recorder)
	defer m.Stop()

	require.NoError(t, m.Activate("club:arsenal"))

	deadline := time.Now().Add(2 * time.Second)
	for len(recorder.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	calls := recorder.snapshot()
	require.NotEmpty(t, calls, "stall alert never fired")
	assert.Equal(t, "club:arsenal", calls[0].contextID)
	assert.Equal(t, 3, calls[0].failures)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&ticks), int32(3))
}

func TestRefreshManager_SuccessResetsStallCount(t *testing.T) {
	cfg := fastRefreshConfig()
	cfg.StallThreshold = 3

	// Fails twice, succeeds, repeats. The failure run never reaches
	// the threshold.
	var ticks int32
	m := NewRefreshManager(cfg, func(ctx context.Context, contextID string) (int, error) {
		n := atomic.AddInt32(&ticks, 1)
		if n%3 == 0 {
			return 0, nil
		}
		return 0, errors.Wrap(errors.ErrUnavailable, "feed down")
	})
	recorder := &stallRecorder{}
	m.SetStallNotifier(recorder)
	defer m.Stop()

	require.NoError(t, m.Activate("club:arsenal"))

	deadline := time.Now().Add(500 * time.Millisecond)
	for atomic.LoadInt32(&ticks) < 9 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	assert.Empty(t, recorder.snapshot(), "interleaved successes must keep resetting the failure run")
}

func TestRefreshManager_ReasonRecordsCauseAndBoostAge(t *testing.T) {
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		return 0, nil
	})
	defer m.Stop()

	require.NoError(t, m.Activate("match:ars-tot"))
	require.NoError(t, m.MarkLive("match:ars-tot", true))

	state := waitForMode(t, m, "match:ars-tot", ModeBoosted)
	assert.Equal(t, "boosted: live match", state.Reason)

	require.NoError(t, m.MarkLive("match:ars-tot", false))
	state = waitForMode(t, m, "match:ars-tot", ModeNormal)
	assert.Regexp(t, `^settled after \d+ quiet intervals, boosted `, state.Reason)
}

func TestRefreshManager_DeactivateReleasesBoostGauge(t *testing.T) {
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		return 0, nil
	})
	defer m.Stop()

	base := testutil.ToFloat64(metrics.ContextsBoosted)

	require.NoError(t, m.Activate("match:ars-tot"))
	require.NoError(t, m.MarkLive("match:ars-tot", true))
	assert.Equal(t, base+1, testutil.ToFloat64(metrics.ContextsBoosted))

	require.NoError(t, m.Deactivate("match:ars-tot"))
	assert.Equal(t, base, testutil.ToFloat64(metrics.ContextsBoosted),
		"deactivating a boosted context must release the gauge")
}

func TestRefreshManager_StopReleasesBoostGauge(t *testing.T) {
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		return 0, nil
	})

	base := testutil.ToFloat64(metrics.ContextsBoosted)

	require.NoError(t, m.Activate("match:liv-eve"))
	require.NoError(t, m.MarkLive("match:liv-eve", true))
	require.NoError(t, m.Activate("club:everton"))
	assert.Equal(t, base+1, testutil.ToFloat64(metrics.ContextsBoosted))

	m.Stop()
	assert.Equal(t, base, testutil.ToFloat64(metrics.ContextsBoosted))
}

func TestRefreshManager_DeactivateUnknownContext(t *testing.T) {
	m := NewRefreshManager(fastRefreshConfig(), func(ctx context.Context, contextID string) (int, error) {
		return 0, nil
	})
	defer m.Stop()

	assert.Error(t, m.Deactivate("club:unknown"))
	assert.Error(t, m.MarkLive("club:unknown", true))
}
