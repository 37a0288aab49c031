package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"tifo/internal/metrics"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// Mode is the refresh cadence a context currently runs at.
type Mode string

const (
	// ModeIdle means the context has no loop running.
	ModeIdle Mode = "idle"
	// ModeNormal is the baseline cadence.
	ModeNormal Mode = "normal"
	// ModeBoosted is the accelerated cadence during activity spikes
	// and live matches.
	ModeBoosted Mode = "boosted"
)

// TickFunc runs one pipeline pass for a context and reports how many new
// mentions were admitted.
type TickFunc func(ctx context.Context, contextID string) (mentions int, err error)

// StallNotifier is told when a context keeps failing its scheduled
// ticks.
type StallNotifier interface {
	NotifyPipelineStall(ctx context.Context, contextID string, consecutiveFailures int, cause error)
}

// RefreshState is the externally visible state of one context loop.
type RefreshState struct {
	ContextID       string    `json:"context_id"`
	Mode            Mode      `json:"mode"`
	IntervalSeconds int       `json:"interval_seconds"`
	LastRunAt       time.Time `json:"last_run_at"`
	LastMentionRate float64   `json:"last_mention_rate"`
	Live            bool      `json:"live"`
	Reason          string    `json:"reason"`
}

// RefreshConfig tunes the adaptive cadence.
type RefreshConfig struct {
	NormalInterval  time.Duration
	BoostedInterval time.Duration
	// BoostThreshold is mentions per minute above which a context
	// escalates to boosted.
	BoostThreshold float64
	// HysteresisCount is how many consecutive sub-threshold ticks are
	// required before a boosted context drops back to normal.
	HysteresisCount int
	TickTimeout     time.Duration
	// StallThreshold is how many consecutive failed ticks raise a
	// stall alert for the context.
	StallThreshold int
}

func (c *RefreshConfig) applyDefaults() {
	if c.NormalInterval <= 0 {
		c.NormalInterval = 60 * time.Second
	}
	if c.BoostedInterval <= 0 {
		c.BoostedInterval = 20 * time.Second
	}
	if c.BoostThreshold <= 0 {
		c.BoostThreshold = 30
	}
	if c.HysteresisCount <= 0 {
		c.HysteresisCount = 3
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = 2 * time.Minute
	}
	if c.StallThreshold <= 0 {
		c.StallThreshold = 5
	}
}

// contextLoop is the per-context bookkeeping behind the manager's mutex.
type contextLoop struct {
	state     RefreshState
	live      bool
	belowRun  int // consecutive sub-threshold ticks while boosted
	failRun   int // consecutive failed ticks
	boostedAt time.Time
	stop      chan struct{}
	kick      chan struct{} // wakes the loop when cadence changes
}

// RefreshManager runs one adaptive loop per activated context. A context
// is a club, a match, or the global feed; the tick function decides what
// the context identifier means.
type RefreshManager struct {
	cfg      RefreshConfig
	tick     TickFunc
	notifier StallNotifier // may be nil

	mu    sync.Mutex
	loops map[string]*contextLoop

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	now func() time.Time
	log *logger.Logger
}

// NewRefreshManager creates the manager. Loops start on Activate.
func NewRefreshManager(cfg RefreshConfig, tick TickFunc) *RefreshManager {
	cfg.applyDefaults()
	rootCtx, rootCancel := context.WithCancel(context.Background())

	return &RefreshManager{
		cfg:        cfg,
		tick:       tick,
		loops:      make(map[string]*contextLoop),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		now:        time.Now,
		log:        logger.Get().With("component", "refresh_manager"),
	}
}

// SetStallNotifier registers the alert sink for repeated tick failures.
// Call before the first Activate.
func (m *RefreshManager) SetStallNotifier(n StallNotifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// Activate starts the refresh loop for a context at normal cadence.
// Activating an already active context is an error.
func (m *RefreshManager) Activate(contextID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.loops[contextID]; ok {
		return errors.Wrapf(errors.ErrAlreadyExists, "context %s already active", contextID)
	}

	loop := &contextLoop{
		state: RefreshState{
			ContextID:       contextID,
			Mode:            ModeNormal,
			IntervalSeconds: int(m.cfg.NormalInterval.Seconds()),
			Reason:          "activated",
		},
		stop: make(chan struct{}),
		kick: make(chan struct{}, 1),
	}
	m.loops[contextID] = loop
	metrics.RefreshInterval.WithLabelValues(contextID).Set(m.cfg.NormalInterval.Seconds())

	m.wg.Add(1)
	go m.run(contextID, loop)

	m.log.Infow("Context activated", "context", contextID, "interval", m.cfg.NormalInterval)
	return nil
}

// Deactivate stops the context's loop. An in-flight tick is allowed to
// finish; no new tick starts afterwards.
func (m *RefreshManager) Deactivate(contextID string) error {
	m.mu.Lock()
	loop, ok := m.loops[contextID]
	if !ok {
		m.mu.Unlock()
		return errors.Wrapf(errors.ErrNotFound, "context %s not active", contextID)
	}
	delete(m.loops, contextID)
	if loop.state.Mode == ModeBoosted {
		metrics.ContextsBoosted.Dec()
	}
	metrics.RefreshInterval.DeleteLabelValues(contextID)
	m.mu.Unlock()

	close(loop.stop)
	m.log.Infow("Context deactivated", "context", contextID)
	return nil
}

// MarkLive forces or releases the live-match boost for a context.
// Entering live escalates immediately; leaving live hands control back
// to the mention-rate hysteresis.
func (m *RefreshManager) MarkLive(contextID string, live bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	loop, ok := m.loops[contextID]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "context %s not active", contextID)
	}

	loop.live = live
	loop.state.Live = live
	if live {
		m.escalateLocked(contextID, loop, "live match")
	}

	return nil
}

// State returns the refresh state for one context.
func (m *RefreshManager) State(contextID string) (RefreshState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loop, ok := m.loops[contextID]
	if !ok {
		return RefreshState{ContextID: contextID, Mode: ModeIdle}, false
	}
	return loop.state, true
}

// States returns the refresh state of every active context.
func (m *RefreshManager) States() []RefreshState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RefreshState, 0, len(m.loops))
	for _, loop := range m.loops {
		out = append(out, loop.state)
	}
	return out
}

// Stop deactivates every context and waits for in-flight ticks.
func (m *RefreshManager) Stop() {
	m.mu.Lock()
	for id, loop := range m.loops {
		close(loop.stop)
		delete(m.loops, id)
		if loop.state.Mode == ModeBoosted {
			metrics.ContextsBoosted.Dec()
		}
		metrics.RefreshInterval.DeleteLabelValues(id)
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.rootCancel()
	m.log.Info("Refresh manager stopped")
}

// run is the per-context loop. The first tick fires immediately.
func (m *RefreshManager) run(contextID string, loop *contextLoop) {
	defer m.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-loop.stop:
			return
		case <-loop.kick:
			// Cadence changed; re-arm without waiting out the old
			// interval.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(0)
		case <-timer.C:
			m.executeTick(contextID, loop)

			select {
			case <-loop.stop:
				return
			default:
			}
			timer.Reset(m.currentInterval(loop))
		}
	}
}

// executeTick runs one pass and feeds the outcome into the cadence state
// machine. The tick context derives from the manager root, not the stop
// channel, so deactivation never cancels work already in flight.
func (m *RefreshManager) executeTick(contextID string, loop *contextLoop) {
	interval := m.currentInterval(loop)

	ctx, cancel := context.WithTimeout(m.rootCtx, m.cfg.TickTimeout)
	defer cancel()

	start := m.now()
	mentions, err := m.tick(ctx, contextID)
	if err != nil {
		metrics.PipelineTicks.WithLabelValues(contextID, "error").Inc()
		m.log.Errorw("Tick failed", "context", contextID, "error", err)
	} else {
		metrics.PipelineTicks.WithLabelValues(contextID, "success").Inc()
	}

	rate := float64(mentions) / interval.Minutes()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Deactivated while the tick was running.
	if current, ok := m.loops[contextID]; !ok || current != loop {
		return
	}

	loop.state.LastRunAt = start
	loop.state.LastMentionRate = rate

	if err != nil {
		loop.failRun++
		if loop.failRun == m.cfg.StallThreshold && m.notifier != nil {
			failures := loop.failRun
			// Alert delivery happens off the manager lock and is not
			// cancelled by deactivation.
			go m.notifier.NotifyPipelineStall(m.rootCtx, contextID, failures, err)
		}
		return
	}
	loop.failRun = 0

	switch {
	case loop.live:
		// Held boosted until the match ends.
	case rate > m.cfg.BoostThreshold:
		loop.belowRun = 0
		if loop.state.Mode != ModeBoosted {
			m.escalateLocked(contextID, loop,
				fmt.Sprintf("%d mentions in the last interval", mentions))
		}
	case loop.state.Mode == ModeBoosted:
		loop.belowRun++
		if loop.belowRun >= m.cfg.HysteresisCount {
			m.deescalateLocked(contextID, loop)
		}
	}
}

func (m *RefreshManager) currentInterval(loop *contextLoop) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if loop.state.Mode == ModeBoosted {
		return m.cfg.BoostedInterval
	}
	return m.cfg.NormalInterval
}

// escalateLocked switches the context to boosted cadence. Caller holds
// m.mu.
func (m *RefreshManager) escalateLocked(contextID string, loop *contextLoop, cause string) {
	if loop.state.Mode == ModeBoosted {
		return
	}

	loop.state.Mode = ModeBoosted
	loop.state.IntervalSeconds = int(m.cfg.BoostedInterval.Seconds())
	loop.state.Reason = "boosted: " + cause
	loop.boostedAt = m.now()
	loop.belowRun = 0

	metrics.RefreshInterval.WithLabelValues(contextID).Set(m.cfg.BoostedInterval.Seconds())
	metrics.ContextsBoosted.Inc()

	select {
	case loop.kick <- struct{}{}:
	default:
	}

	m.log.Infow("Context boosted", "context", contextID, "cause", cause)
}

// deescalateLocked returns the context to normal cadence. Caller holds
// m.mu.
func (m *RefreshManager) deescalateLocked(contextID string, loop *contextLoop) {
	loop.state.Mode = ModeNormal
	loop.state.IntervalSeconds = int(m.cfg.NormalInterval.Seconds())
	loop.state.Reason = fmt.Sprintf("settled after %d quiet intervals, boosted %s",
		loop.belowRun, humanize.Time(loop.boostedAt))
	loop.belowRun = 0

	metrics.RefreshInterval.WithLabelValues(contextID).Set(m.cfg.NormalInterval.Seconds())
	metrics.ContextsBoosted.Dec()

	m.log.Infow("Context settled back to normal cadence", "context", contextID)
}
