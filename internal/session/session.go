// Package session implements an explicit Session value and a
// single-writer coordinator around the current CleanFrame,
// ForecastBundle, and scenario history, replacing the source's one
// process-wide mutable object.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/features"
	"github.com/demandforge/invforecast/internal/forecast"
	"github.com/demandforge/invforecast/internal/scenario"
)

// Session is an immutable snapshot of one user's working state. Mutating
// operations return a new *Session rather than mutating in place:
// callers replace their reference, they never share one.
type Session struct {
	Frame    domain.CleanFrame
	Original domain.CleanFrame // retained for Reset
	Bundle   domain.ForecastBundle
	Encoders *features.Manager
	History  []scenario.HistoryEntry
	cancel   *int32
}

// New starts a session from a freshly ingested CleanFrame.
func New(frame domain.CleanFrame) *Session {
	var flag int32
	return &Session{Frame: frame, Original: frame, cancel: &flag}
}

// Reset restores the original CleanFrame and clears scenario history and
// the current bundle.
func (s *Session) Reset() *Session {
	var flag int32
	return &Session{Frame: s.Original, Original: s.Original, cancel: &flag}
}

// ApplyScenario returns a new Session with the rewrite applied and
// recorded in history. The caller supplies the rewritten frame (produced
// by the scenario package) and the entry to record.
func (s *Session) ApplyScenario(frame domain.CleanFrame, entry scenario.HistoryEntry) *Session {
	next := *s
	next.Frame = frame
	next.History = append(append([]scenario.HistoryEntry(nil), s.History...), entry)
	var flag int32
	next.cancel = &flag
	return &next
}

// Cancel sets the shared atomic cancellation flag a forecast run polls.
// It is safe to call concurrently with a run in progress.
func (s *Session) Cancel() {
	atomic.StoreInt32(s.cancel, 1)
}

// Coordinator enforces a single-writer guard: ingest and scenario-apply
// requests must not run concurrently with a forecast run.
type Coordinator struct {
	mu      sync.Mutex
	writing sync.Mutex
	current *Session
}

// NewCoordinator wraps an initial Session.
func NewCoordinator(s *Session) *Coordinator {
	return &Coordinator{current: s}
}

// Current returns the coordinator's current Session.
func (c *Coordinator) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// replace installs a new Session as current, holding the short-lived
// bookkeeping lock (distinct from the run-duration writing lock).
func (c *Coordinator) replace(next *Session) {
	c.mu.Lock()
	c.current = next
	c.mu.Unlock()
}

// Ingest installs a newly loaded CleanFrame as the current Session. It
// blocks if a forecast run currently holds the is_forecasting guard.
func (c *Coordinator) Ingest(frame domain.CleanFrame) *Session {
	c.writing.Lock()
	defer c.writing.Unlock()
	next := New(frame)
	c.replace(next)
	return next
}

// ApplyScenario rewrites the current frame under the writing guard, the
// way new ingests are serialized against in-flight runs.
func (c *Coordinator) ApplyScenario(frame domain.CleanFrame, entry scenario.HistoryEntry) *Session {
	c.writing.Lock()
	defer c.writing.Unlock()
	next := c.Current().ApplyScenario(frame, entry)
	c.replace(next)
	return next
}

// Reset restores the original CleanFrame and clears scenario history
// under the writing guard, installing the result as the current Session.
func (c *Coordinator) Reset() *Session {
	c.writing.Lock()
	defer c.writing.Unlock()
	next := c.Current().Reset()
	c.replace(next)
	return next
}

// RunForecast holds the writing guard for the duration of one dispatcher
// run, publishing the resulting bundle atomically at completion.
func (c *Coordinator) RunForecast(ctx context.Context, req forecast.Request) (domain.ForecastBundle, error) {
	c.writing.Lock()
	defer c.writing.Unlock()

	s := c.Current()
	req.Cancel = s.cancel
	req.Encoders = s.Encoders

	bundle, err := forecast.Dispatch(ctx, req)
	if err != nil {
		return bundle, err
	}

	c.mu.Lock()
	next := *s
	next.Bundle = bundle
	c.current = &next
	c.mu.Unlock()
	return bundle, nil
}

// FitEncoders installs an EncoderManager the caller has fitted over the
// current frame, replacing any manager installed before.
func (c *Coordinator) FitEncoders(mgr *features.Manager) {
	c.mu.Lock()
	next := *c.current
	next.Encoders = mgr
	c.current = &next
	c.mu.Unlock()
}

// Now is a replaceable clock. Nothing in this package reads it: history
// entries arrive already stamped by their callers.
var Now = time.Now
