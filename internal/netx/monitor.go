// Package netx contains network helpers: the connectivity monitor used by
// the offline core and an uploader for presigned object-storage URLs.
package netx

import (
	"context"
	"net"
	"sync"
	"time"
)

// ProbeFunc checks that the backend is reachable. A nil error means reachable.
type ProbeFunc func(ctx context.Context) error

// Monitor answers "are we online?" by combining two signals: at least one
// non-loopback interface is up, and the reachability probe succeeds.
// It keeps no state besides the last value reported by Watch.
type Monitor struct {
	probe        ProbeFunc
	probeTimeout time.Duration
	interfaces   func() ([]net.Interface, error)

	mu   sync.Mutex
	last *bool
}

// NewMonitor returns a Monitor using probe for reachability. A zero
// probeTimeout defaults to three seconds.
func NewMonitor(probe ProbeFunc, probeTimeout time.Duration) *Monitor {
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	return &Monitor{probe: probe, probeTimeout: probeTimeout, interfaces: net.Interfaces}
}

// TCPProbe returns a ProbeFunc that dials addr over TCP.
func TCPProbe(addr string) ProbeFunc {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// IsOnline reports current connectivity. The answer may be stale by the
// time a request runs; callers re-derive truth from request outcomes.
func (m *Monitor) IsOnline(ctx context.Context) bool {
	if !m.hasInterface() {
		return false
	}
	if m.probe == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	return m.probe(ctx) == nil
}

func (m *Monitor) hasInterface() bool {
	ifaces, err := m.interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true
		}
	}
	return false
}

// Watch polls IsOnline every interval and calls onChange with the first
// observed state and on every transition afterwards. It blocks until ctx
// is cancelled.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration, onChange func(online bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.check(ctx, onChange)

	for {
		select {
		case <-ticker.C:
			m.check(ctx, onChange)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) check(ctx context.Context, onChange func(online bool)) {
	online := m.IsOnline(ctx)

	m.mu.Lock()
	changed := m.last == nil || *m.last != online
	m.last = &online
	m.mu.Unlock()

	if changed && ctx.Err() == nil {
		onChange(online)
	}
}
