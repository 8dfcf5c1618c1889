package servicecontrol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPinger struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (p *scriptedPinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i < len(p.results) {
		return p.results[i]
	}
	return nil
}

func (p *scriptedPinger) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestMonitor_ReportsErrorsAndRecovery(t *testing.T) {
	pinger := &scriptedPinger{results: []error{
		&StatusError{StatusCode: 503},
		errors.New("boom"),
	}}

	var (
		mu        sync.Mutex
		kinds     []ErrorKind
		recovered int
	)
	m := NewMonitor(pinger, 5*time.Millisecond,
		OnError(func(_ error, kind ErrorKind) {
			mu.Lock()
			defer mu.Unlock()
			kinds = append(kinds, kind)
		}),
		OnRecover(func() {
			mu.Lock()
			defer mu.Unlock()
			recovered++
		}),
	)

	m.Start(context.Background())
	require.Eventually(t, func() bool {
		return m.Status().Healthy
	}, 2*time.Second, 5*time.Millisecond)
	m.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ErrorKind{"HTTP_ERROR_503", KindNetwork}, kinds)
	assert.Equal(t, 1, recovered)

	status := m.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 2, status.Failures)
	assert.GreaterOrEqual(t, status.Checks, 3)
}

func TestMonitor_StopIdempotentAndRestart(t *testing.T) {
	pinger := &scriptedPinger{}
	m := NewMonitor(pinger, time.Hour)

	m.Stop()
	m.Start(context.Background())
	require.Eventually(t, func() bool { return pinger.Calls() == 1 }, time.Second, time.Millisecond)

	m.Start(context.Background())
	require.Eventually(t, func() bool { return pinger.Calls() == 2 }, time.Second, time.Millisecond)
	assert.True(t, m.Status().Running)

	m.Stop()
	m.Stop()
	assert.False(t, m.Status().Running)
}

func TestMonitor_StopsWithContext(t *testing.T) {
	pinger := &scriptedPinger{}
	m := NewMonitor(pinger, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	require.Eventually(t, func() bool { return pinger.Calls() > 2 }, time.Second, time.Millisecond)
	cancel()
	m.Stop()

	calls := pinger.Calls()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, calls, pinger.Calls())
}

func TestNewMonitor_DefaultInterval(t *testing.T) {
	m := NewMonitor(&scriptedPinger{}, 0)
	assert.Equal(t, DefaultMonitorInterval, m.interval)
}
