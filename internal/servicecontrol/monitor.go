package servicecontrol

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pinger is the health check a Monitor runs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// OnError registers the callback invoked for every failed check.
func OnError(fn func(err error, kind ErrorKind)) MonitorOption {
	return func(m *Monitor) { m.onError = fn }
}

// OnRecover registers the callback invoked when a check succeeds after a
// failure.
func OnRecover(fn func()) MonitorOption {
	return func(m *Monitor) { m.onRecover = fn }
}

// Monitor pings the service periodically and reports failures.
//
// Thread-safety: Start, Stop and Status are safe from any goroutine.
// Callbacks run on the monitor goroutine.
type Monitor struct {
	pinger    Pinger
	interval  time.Duration
	onError   func(error, ErrorKind)
	onRecover func()

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	lastErr  error
	checks   int
	failures int
}

// DefaultMonitorInterval is used when NewMonitor gets a non-positive
// interval.
const DefaultMonitorInterval = 30 * time.Second

// NewMonitor creates a stopped monitor.
func NewMonitor(p Pinger, interval time.Duration, opts ...MonitorOption) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	m := &Monitor{pinger: p, interval: interval}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs a check immediately and then every interval until ctx is
// done or Stop is called. Starting a running monitor restarts it.
func (m *Monitor) Start(ctx context.Context) {
	m.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go m.run(ctx, done)
}

// Stop halts the monitor and waits for the current check to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// MonitorStatus is a point-in-time view of the monitor.
type MonitorStatus struct {
	Running   bool
	Healthy   bool
	LastError error
	Checks    int
	Failures  int
}

// Status reports the outcome of the checks so far.
func (m *Monitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MonitorStatus{
		Running:   m.cancel != nil,
		Healthy:   m.checks > 0 && m.lastErr == nil,
		LastError: m.lastErr,
		Checks:    m.checks,
		Failures:  m.failures,
	}
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	err := m.pinger.Ping(ctx)
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	wasFailing := m.lastErr != nil
	m.checks++
	m.lastErr = err
	if err != nil {
		m.failures++
	}
	m.mu.Unlock()

	if err != nil {
		kind := Classify(err)
		slog.Warn("service health check failed", "kind", kind, "error", err)
		if m.onError != nil {
			m.onError(err, kind)
		}
		return
	}
	if wasFailing {
		slog.Info("service health check recovered")
		if m.onRecover != nil {
			m.onRecover()
		}
	}
}
