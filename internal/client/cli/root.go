package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/clipsync/internal/client/app"
	"github.com/dmitrijs2005/clipsync/internal/client/config"
	"github.com/dmitrijs2005/clipsync/internal/logging"
	"github.com/spf13/cobra"
)

// Opener builds the client application for a command run.
type Opener func(ctx context.Context, cfg *config.Config, log logging.Logger) (*app.App, error)

type runner struct {
	cfg  *config.Config
	open Opener
	app  *app.App
}

// NewRootCommand returns the clipsync command tree. cfg holds defaults,
// file and environment settings; flags are bound to it here.
func NewRootCommand(cfg *config.Config, open Opener) *cobra.Command {
	r := &runner{cfg: cfg, open: open}

	root := &cobra.Command{
		Use:           "clipsync",
		Short:         "Offline-first client for voice clips, videos, stories, likes and follows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			a, err := open(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			r.app = a
			return nil
		},
	}
	cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		r.loginCmd(),
		r.logoutCmd(),
		r.toggleCmd("like", true),
		r.toggleCmd("unlike", false),
		r.followCmd("follow", true),
		r.followCmd("unfollow", false),
		r.voiceCmd(),
		r.videoCmd(),
		r.storyCmd(),
		r.stateCmd(),
		r.syncCmd(),
		r.statusCmd(),
		r.pendingCmd(),
		r.retryCmd(),
		r.discardCmd(),
		r.daemonCmd(),
	)
	return root
}

// run wraps a command body so the application is closed after it, also
// when the body fails.
func (r *runner) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := r.close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (r *runner) close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}

// Execute runs the command tree and reports a failure on stderr.
func Execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}
