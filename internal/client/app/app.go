// Package app wires the clipsync client: the local queue database, the
// remote API, the queues, the content façade and the sync manager.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/clipsync/internal/client/client"
	"github.com/dmitrijs2005/clipsync/internal/client/config"
	"github.com/dmitrijs2005/clipsync/internal/client/interactions"
	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/client/notify"
	"github.com/dmitrijs2005/clipsync/internal/client/pending"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/clipsync/internal/client/services"
	"github.com/dmitrijs2005/clipsync/internal/client/syncmgr"
	"github.com/dmitrijs2005/clipsync/internal/client/uploads"
	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/logging"
	"github.com/dmitrijs2005/clipsync/internal/netx"
)

type App struct {
	Config *config.Config
	Log    logging.Logger

	Repos        *repositories.Repositories
	API          client.API
	Network      syncmgr.Network
	Session      services.SessionService
	Content      services.OfflineContentService
	Uploads      *uploads.Queue
	Interactions *interactions.Queue
	Resolver     *pending.Resolver
	Sync         *syncmgr.Manager

	closeAPI func() error
}

// New builds the client against the gRPC backend at cfg.BackendAddr.
// Connectivity is the interface check plus a gRPC health ping.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	api, err := client.NewGRPCClient(cfg.BackendAddr)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	monitor := netx.NewMonitor(api.Ping, cfg.DirectCallTimeout)

	a, err := Assemble(ctx, cfg, api, api, monitor, log)
	if err != nil {
		_ = api.Close()
		return nil, err
	}
	a.closeAPI = api.Close
	return a, nil
}

// Assemble builds the client around an existing remote API and
// connectivity source. sink receives the session token; it may be nil.
func Assemble(
	ctx context.Context,
	cfg *config.Config,
	api client.API,
	sink services.TokenSink,
	net syncmgr.Network,
	log logging.Logger,
) (*App, error) {
	repos, err := repositories.OpenDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a := &App{Config: cfg, Log: log, Repos: repos, API: api, Network: net}

	a.Session = services.NewSessionService(repos.Metadata, sink)
	if cfg.AccessToken != "" {
		if _, err := a.Session.SetToken(ctx, cfg.AccessToken); err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("configured access token: %w", err)
		}
	} else if _, err := a.Session.Restore(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	notifier := notify.Log{Logger: log.With("module", "notify")}
	policy := cfg.RetryPolicy()

	a.Uploads = uploads.NewQueue(repos.Queue, notifier, policy, log)
	a.Interactions, err = interactions.NewQueue(ctx, repos.Queue, notifier, policy, log)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("load interaction queue: %w", err)
	}
	a.Resolver = pending.NewResolver(a.Interactions)
	a.Content = services.NewOfflineContentService(api, net, a.Session, a.Uploads, a.Interactions, cfg.DirectCallTimeout, log)
	a.Sync = syncmgr.NewManager(syncmgr.Config{
		Interval:            cfg.SyncInterval,
		Concurrency:         cfg.DrainConcurrency,
		OnlineCheckInterval: cfg.OnlineCheckInterval,
	}, api, net, repos.Queue, repos.Metadata, a.Uploads, a.Interactions, log)

	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.closeAPI != nil {
		errs = append(errs, a.closeAPI())
	}
	errs = append(errs, a.Repos.Close())
	return errors.Join(errs...)
}

// Status is a snapshot of the client state for display.
type Status struct {
	Online    bool
	LoggedIn  bool
	Owner     string
	Draining  bool
	Queue     queue.Stats
	LastSync  syncmgr.Report
	HasSynced bool
}

func (a *App) Status(ctx context.Context) (Status, error) {
	var st Status
	var err error

	st.Online = a.Network.IsOnline(ctx)
	st.Draining = a.Sync.Draining()

	st.Owner, err = a.Session.Owner(ctx)
	switch {
	case err == nil:
		st.LoggedIn = true
	case !errors.Is(err, common.ErrUnauthorized):
		return st, err
	}

	if st.Queue, err = a.Repos.Queue.Stats(ctx); err != nil {
		return st, err
	}
	if st.LastSync, st.HasSynced, err = a.Sync.LastReport(ctx); err != nil {
		return st, err
	}
	return st, nil
}

// Retry moves a Failed entry of either queue back to Pending.
func (a *App) Retry(ctx context.Context, id string) error {
	entity, err := a.entityOf(ctx, id)
	if err != nil {
		return err
	}
	if entity == models.EntityUpload {
		return a.Uploads.Retry(ctx, id)
	}
	return a.Interactions.Retry(ctx, id)
}

// Discard drops an entry of either queue.
func (a *App) Discard(ctx context.Context, id string) error {
	entity, err := a.entityOf(ctx, id)
	if err != nil {
		return err
	}
	if entity == models.EntityUpload {
		return a.Uploads.Discard(ctx, id)
	}
	return a.Interactions.Discard(ctx, id)
}

func (a *App) entityOf(ctx context.Context, id string) (models.Entity, error) {
	rec, err := a.Repos.Queue.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("no queued entry %s: %w", id, err)
		}
		return "", err
	}
	return rec.Entity, nil
}

// EffectiveState answers what the UI should show for a toggle given the
// server's value.
func (a *App) EffectiveState(ctx context.Context, targetID string, kind models.TargetKind, serverState bool) (bool, error) {
	owner, err := a.Session.Owner(ctx)
	if err != nil {
		return false, err
	}
	return a.Resolver.EffectiveState(owner, targetID, kind, serverState), nil
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// RunDaemon keeps the sync manager running until ctx is cancelled or the
// process receives a termination signal.
func (a *App) RunDaemon(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	a.initSignalHandler(cancelFunc)

	a.Log.Info(ctx, "starting sync daemon", "backend", a.Config.BackendAddr)
	a.Sync.Start(ctx)

	<-ctx.Done()
	a.Sync.Stop()
	a.Log.Info(context.Background(), "sync daemon stopped")
}
