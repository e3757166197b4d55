package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/client/syncmgr"
	"github.com/spf13/cobra"
)

func (r *runner) stateCmd() *cobra.Command {
	var (
		kind   string
		server bool
	)
	cmd := &cobra.Command{
		Use:   "state <target-id>",
		Short: "Show the like/follow state to display, given the server's value",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			tk, err := models.ParseTargetKind(kind)
			if err != nil {
				return err
			}
			on, err := r.app.EffectiveState(cmd.Context(), args[0], tk, server)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), on)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(models.TargetVoiceClip), "target kind")
	cmd.Flags().BoolVar(&server, "server", false, "state reported by the server")
	return cmd
}

func printReport(cmd *cobra.Command, rep syncmgr.Report) {
	out := cmd.OutOrStdout()
	switch {
	case rep.Skipped:
		fmt.Fprintln(out, "a sync is already running")
	case rep.Offline && rep.Synced+rep.Requeued+rep.Failed == 0:
		fmt.Fprintln(out, "offline, nothing sent")
	default:
		fmt.Fprintf(out, "synced %d, retrying %d, failed %d, remaining %d\n",
			rep.Synced, rep.Requeued, rep.Failed, rep.Remaining)
	}
}

func (r *runner) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push queued changes now",
		Args:  cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			rep, err := r.app.Sync.ForceSync(cmd.Context())
			if err != nil {
				return err
			}
			printReport(cmd, rep)
			return nil
		}),
	}
}

func (r *runner) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, session and queue counts",
		Args:  cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			st, err := r.app.Status(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			mode := "offline"
			if st.Online {
				mode = "online"
			}
			fmt.Fprintf(w, "mode\t%s\n", mode)
			if st.LoggedIn {
				fmt.Fprintf(w, "user\t%s\n", st.Owner)
			} else {
				fmt.Fprintf(w, "user\t(not logged in)\n")
			}
			for _, e := range []models.Entity{models.EntityUpload, models.EntityInteraction} {
				fmt.Fprintf(w, "%ss\tpending %d\tin flight %d\tfailed %d\n", e,
					st.Queue.Count(e, models.StatusPending),
					st.Queue.Count(e, models.StatusUploading),
					st.Queue.Count(e, models.StatusFailed))
			}
			if st.HasSynced {
				fmt.Fprintf(w, "last sync\t%s\tsynced %d\tfailed %d\n",
					st.LastSync.StartedAt.Local().Format(time.RFC3339), st.LastSync.Synced, st.LastSync.Failed)
			}
			return w.Flush()
		}),
	}
}

func (r *runner) pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List queued uploads and interactions",
		Args:  cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ups, err := r.app.Uploads.List(ctx)
			if err != nil {
				return err
			}
			ins, err := r.app.Interactions.List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHAT\tSTATUS\tATTEMPTS\tLAST ERROR")
			for _, u := range ups {
				fmt.Fprintf(w, "%s\t%s %s\t%s\t%d\t%s\n", u.ID, u.Kind, u.LocalBlobPath, u.Status, u.Attempts, u.LastError)
			}
			for _, qi := range ins {
				fmt.Fprintf(w, "%s\t%s %s %s/%s\t%s\t%d\t%s\n", qi.ID, qi.Kind, qi.Action, qi.TargetKind, qi.TargetID, qi.Status, qi.Attempts, qi.LastError)
			}
			return w.Flush()
		}),
	}
}

func (r *runner) retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Move a failed entry back to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			if err := r.app.Retry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s queued for retry\n", args[0])
			return nil
		}),
	}
}

func (r *runner) discardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <id>",
		Short: "Drop a queued entry without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			if err := r.app.Discard(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s discarded\n", args[0])
			return nil
		}),
	}
}

func (r *runner) daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Keep syncing in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			r.app.RunDaemon(cmd.Context())
			return nil
		}),
	}
}
