package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/client/services"
	"github.com/spf13/cobra"
)

func printResult(w io.Writer, what string, res services.Result) {
	switch {
	case !res.IsOffline:
		fmt.Fprintf(w, "%s: applied\n", what)
	case res.QueuedID == "":
		fmt.Fprintf(w, "%s: cancelled a pending change\n", what)
	default:
		fmt.Fprintf(w, "%s: queued as %s\n", what, res.QueuedID)
	}
}

func (r *runner) toggleCmd(name string, active bool) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   name + " <target-id>",
		Short: fmt.Sprintf("%s a clip, story, comment or user", name),
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			tk, err := models.ParseTargetKind(kind)
			if err != nil {
				return err
			}
			res, err := r.app.Content.ToggleLike(cmd.Context(), args[0], tk, active)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), name, res)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(models.TargetVoiceClip),
		"target kind: voice_clip, video_clip, story, comment or user")
	return cmd
}

func (r *runner) followCmd(name string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <user-id>",
		Short: fmt.Sprintf("%s a user", name),
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			res, err := r.app.Content.ToggleFollow(cmd.Context(), args[0], active)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), name, res)
			return nil
		}),
	}
}

func (r *runner) voiceCmd() *cobra.Command {
	var md models.VoiceClipMetadata
	cmd := &cobra.Command{
		Use:   "voice <audio-file>",
		Short: "Save a recorded voice clip",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			res, err := r.app.Content.SaveVoiceClip(cmd.Context(), args[0], md)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "voice clip", res)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&md.Phrase, "phrase", "", "recorded phrase")
	f.StringVar(&md.Translation, "translation", "", "translation of the phrase")
	f.StringVar(&md.Language, "language", "", "language code")
	f.Float64Var(&md.DurationSeconds, "duration", 0, "duration in seconds")
	return cmd
}

func (r *runner) videoCmd() *cobra.Command {
	var (
		md        models.VideoClipMetadata
		thumbnail string
	)
	cmd := &cobra.Command{
		Use:   "video <video-file>",
		Short: "Save a recorded video clip",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			res, err := r.app.Content.SaveVideoClip(cmd.Context(), args[0], thumbnail, md)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "video clip", res)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&thumbnail, "thumbnail", "", "thumbnail image")
	f.StringVar(&md.Phrase, "phrase", "", "recorded phrase")
	f.StringVar(&md.Language, "language", "", "language code")
	return cmd
}

func (r *runner) storyCmd() *cobra.Command {
	var (
		caption   string
		thumbnail string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "story <media-file>",
		Short: "Post a story that expires after --ttl",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			md := models.StoryMetadata{Caption: caption, ExpiresAt: time.Now().Add(ttl)}
			if ttl <= 0 {
				md.ExpiresAt = time.Time{}
			}
			res, err := r.app.Content.SaveStory(cmd.Context(), args[0], thumbnail, md)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "story", res)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&caption, "caption", "", "story caption")
	f.StringVar(&thumbnail, "thumbnail", "", "thumbnail image")
	f.DurationVar(&ttl, "ttl", 24*time.Hour, "time until the story expires")
	return cmd
}
