package syncmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/client"
	"github.com/dmitrijs2005/clipsync/internal/client/interactions"
	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/clipsync/internal/client/uploads"
	"github.com/dmitrijs2005/clipsync/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Network is the connectivity source. netx.Monitor satisfies it.
type Network interface {
	IsOnline(ctx context.Context) bool
	Watch(ctx context.Context, interval time.Duration, onChange func(online bool))
}

type Config struct {
	// Interval between periodic drains while foregrounded.
	Interval time.Duration
	// Concurrency is the number of entries processed at once.
	Concurrency int
	// OnlineCheckInterval is the polling period of the connectivity watcher.
	OnlineCheckInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.OnlineCheckInterval <= 0 {
		c.OnlineCheckInterval = 3 * time.Second
	}
	return c
}

// Report summarises one drain cycle.
type Report struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Skipped    bool          `json:"skipped,omitempty"`
	Offline    bool          `json:"offline,omitempty"`
	Synced     int           `json:"synced"`
	Requeued   int           `json:"requeued"`
	Failed     int           `json:"failed"`
	Collapsed  int           `json:"collapsed"`
	Remaining  int           `json:"remaining"`
	Recovered  int           `json:"recovered"`
	LocalError string        `json:"local_error,omitempty"`
}

func (r *Report) add(out models.Outcome) {
	switch {
	case out.Skipped:
		r.Collapsed++
	case out.Status == models.StatusDone:
		r.Synced++
	case out.Status == models.StatusFailed:
		r.Failed++
	default:
		r.Requeued++
	}
}

// task is one unit of drain work: processing a single queue entry.
type task struct {
	entity models.Entity
	id     string
}

// Manager owns the drain state machine. At most one drain runs at a time;
// triggers that arrive while draining are dropped.
type Manager struct {
	cfg          Config
	api          client.API
	net          Network
	store        queue.Store
	meta         metadata.Repository
	uploads      *uploads.Queue
	interactions *interactions.Queue
	log          logging.Logger

	draining   atomic.Bool
	background atomic.Bool

	trigger chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewManager(
	cfg Config,
	api client.API,
	net Network,
	store queue.Store,
	meta metadata.Repository,
	up *uploads.Queue,
	in *interactions.Queue,
	log logging.Logger,
) *Manager {
	return &Manager{
		cfg:          cfg.withDefaults(),
		api:          api,
		net:          net,
		store:        store,
		meta:         meta,
		uploads:      up,
		interactions: in,
		log:          log.With("module", "syncmgr"),
		trigger:      make(chan struct{}, 1),
	}
}

// Draining reports whether a drain cycle is running.
func (m *Manager) Draining() bool { return m.draining.Load() }

// ForceSync runs one drain cycle and waits for it. When a drain is already
// running it returns immediately with Report.Skipped set.
func (m *Manager) ForceSync(ctx context.Context) (Report, error) {
	if !m.draining.CompareAndSwap(false, true) {
		m.log.Debug(ctx, "drain already running")
		return Report{Skipped: true}, nil
	}
	defer m.draining.Store(false)

	began := time.Now()
	rep := Report{StartedAt: models.Now()}
	err := m.drain(ctx, &rep)
	rep.Duration = time.Since(began)
	if err != nil {
		rep.LocalError = err.Error()
	}

	if serr := m.saveReport(ctx, rep); serr != nil {
		m.log.Error(ctx, "failed to save sync report", "error", serr)
	}

	m.log.Info(ctx, "drain finished",
		"synced", rep.Synced, "requeued", rep.Requeued, "failed", rep.Failed,
		"remaining", rep.Remaining, "offline", rep.Offline)
	return rep, err
}

func (m *Manager) drain(ctx context.Context, rep *Report) error {
	if !m.net.IsOnline(ctx) {
		rep.Offline = true
		return nil
	}

	// nothing is in flight now, so Uploading entries are leftovers
	n, err := m.store.RecoverStale(ctx)
	if err != nil {
		return fmt.Errorf("recover stale entries: %w", err)
	}
	rep.Recovered = n

	work, err := m.snapshot(ctx, models.Now())
	if err != nil {
		return err
	}
	if len(work) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		next    int
		stopped bool
	)
	pop := func() (task, bool) {
		mu.Lock()
		defer mu.Unlock()
		if stopped || next >= len(work) {
			return task{}, false
		}
		t := work[next]
		next++
		return t, true
	}
	record := func(out models.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		rep.add(out)
	}
	stop := func(offline bool) {
		mu.Lock()
		stopped = true
		rep.Offline = rep.Offline || offline
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for range min(m.cfg.Concurrency, len(work)) {
		g.Go(func() error {
			for {
				if m.background.Load() || gctx.Err() != nil {
					return nil
				}
				t, ok := pop()
				if !ok {
					return nil
				}
				// in-flight work is not cancelled by a stop, only new dispatch
				out, err := m.process(context.WithoutCancel(gctx), t)
				if err != nil {
					stop(false)
					return fmt.Errorf("process %s %s: %w", t.entity, t.id, err)
				}
				record(out)
				if out.Transient && !m.net.IsOnline(gctx) {
					m.log.Info(gctx, "connectivity lost, pausing drain")
					stop(true)
					return nil
				}
			}
		})
	}
	err = g.Wait()

	mu.Lock()
	rep.Remaining = len(work) - next
	mu.Unlock()
	return err
}

// snapshot lists the eligible entries of both queues. Order within each
// queue is preserved; the queues are interleaved so neither starves.
func (m *Manager) snapshot(ctx context.Context, now time.Time) ([]task, error) {
	up, err := m.uploads.Eligible(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	in, err := m.interactions.Eligible(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}

	work := make([]task, 0, len(up)+len(in))
	for i := 0; i < len(up) || i < len(in); i++ {
		if i < len(up) {
			work = append(work, task{entity: models.EntityUpload, id: up[i]})
		}
		if i < len(in) {
			work = append(work, task{entity: models.EntityInteraction, id: in[i]})
		}
	}
	return work, nil
}

func (m *Manager) process(ctx context.Context, t task) (models.Outcome, error) {
	switch t.entity {
	case models.EntityUpload:
		return m.uploads.Process(ctx, m.api, t.id)
	case models.EntityInteraction:
		return m.interactions.Process(ctx, m.api, t.id)
	default:
		return models.Outcome{}, fmt.Errorf("unknown entity %q", t.entity)
	}
}

func (m *Manager) saveReport(ctx context.Context, rep Report) error {
	if m.meta == nil {
		return nil
	}
	info, err := metadata.EncodeJSON(metadata.KeyLastSyncInfo, rep)
	if err != nil {
		return err
	}
	return m.meta.SetMany(context.WithoutCancel(ctx), map[string][]byte{
		metadata.KeyLastSyncInfo: info,
		metadata.KeyLastSyncAt:   []byte(rep.StartedAt.UTC().Format(time.RFC3339Nano)),
	})
}

// LastReport returns the report of the last finished drain, if any.
func (m *Manager) LastReport(ctx context.Context) (Report, bool, error) {
	var rep Report
	ok, err := metadata.GetJSON(ctx, m.meta, metadata.KeyLastSyncInfo, &rep)
	return rep, ok, err
}

// Start launches the trigger loops: the periodic timer, the connectivity
// watcher and the foreground/force trigger channel. It returns at once.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(3)
	go func() {
		defer m.wg.Done()
		m.net.Watch(ctx, m.cfg.OnlineCheckInterval, func(online bool) {
			m.log.Debug(ctx, "connectivity changed", "online", online)
			if online {
				m.Trigger()
			}
		})
	}()
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !m.background.Load() {
					m.Trigger()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.trigger:
				if _, err := m.ForceSync(ctx); err != nil && !errors.Is(err, context.Canceled) {
					m.log.Error(ctx, "drain failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Trigger requests a drain without waiting for it. Requests made while one
// is already queued are merged.
func (m *Manager) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Foreground resumes dispatching and requests a drain.
func (m *Manager) Foreground() {
	m.background.Store(false)
	m.Trigger()
}

// Background stops dispatching new work. Entries already being processed
// finish normally.
func (m *Manager) Background() {
	m.background.Store(true)
}

// Stop ends the trigger loops and waits for them, including a drain in
// progress.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
