// Package status tracks whether the backend's trading API is available and
// pushes changes to open pages.
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Checker reports upstream API availability.
type Checker interface {
	CheckAPI(ctx context.Context) (bool, error)
}

// Snapshot is the latest availability result.
type Snapshot struct {
	// Checked is false until the first check completes.
	Checked      bool      `json:"checked"`
	APIAvailable bool      `json:"api_available"`
	CheckedAt    time.Time `json:"checked_at"`
	Error        string    `json:"error,omitempty"`
}

// Monitor polls a Checker on a fixed interval. A check that fails or exceeds
// the timeout counts as unavailable.
type Monitor struct {
	checker  Checker
	interval time.Duration
	timeout  time.Duration
	hub      *Hub
	now      func() time.Time

	// recordMu orders recording a result with publishing it, so the hub's
	// last snapshot always agrees with Current.
	recordMu sync.Mutex
	mu       sync.RWMutex
	current  Snapshot
}

// NewMonitor creates a monitor. hub may be nil.
func NewMonitor(checker Checker, interval, timeout time.Duration, hub *Hub) *Monitor {
	return &Monitor{
		checker:  checker,
		interval: interval,
		timeout:  timeout,
		hub:      hub,
		now:      time.Now,
	}
}

// Start checks once immediately and then every interval until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		slog.Info("API status monitor started", "interval", m.interval, "timeout", m.timeout)

		m.Check(ctx)
		for {
			select {
			case <-ticker.C:
				m.Check(ctx)
			case <-ctx.Done():
				slog.Info("API status monitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Check runs a single availability check and records the result. Concurrent
// checks may overlap on the network but are recorded and published one at a
// time.
func (m *Monitor) Check(ctx context.Context) Snapshot {
	checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	available, err := m.checker.CheckAPI(checkCtx)
	snap := Snapshot{
		Checked:      true,
		APIAvailable: err == nil && available,
		CheckedAt:    m.now().UTC(),
	}
	if err != nil {
		snap.Error = err.Error()
		slog.Debug("API availability check failed", "error", err)
	}

	m.recordMu.Lock()
	defer m.recordMu.Unlock()

	m.mu.Lock()
	prev := m.current
	m.current = snap
	m.mu.Unlock()

	if !prev.Checked || prev.APIAvailable != snap.APIAvailable {
		slog.Info("API availability changed", "available", snap.APIAvailable)
		if m.hub != nil {
			m.hub.Publish(snap)
		}
	}
	return snap
}

// Current returns the latest snapshot.
func (m *Monitor) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Available returns the latest result, or nil before the first check.
func (m *Monitor) Available() *bool {
	snap := m.Current()
	if !snap.Checked {
		return nil
	}
	available := snap.APIAvailable
	return &available
}
