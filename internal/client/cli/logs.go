package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/sanposhin/internal/models"
)

func newMissionCommand(r *runner) *cobra.Command {
	var mc models.MissionContext
	cmd := &cobra.Command{
		Use:     "mission",
		Short:   "Get a mission for the current moment",
		GroupID: "logs",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			m, err := e.app.remote.Mission(ctx, mc.WithDefaults())
			if err != nil {
				return err
			}
			e.printf("%s\n\n  id:         %s\n  category:   %s\n  difficulty: %d\n", m.Text, m.ID, m.Category, m.Difficulty)
			if m.Reason != "" {
				e.printf("  why:        %s\n", m.Reason)
			}
			e.printf("\nWhen done: sanposhin save --mission-id %s --mission %q\n", m.ID, m.Text)
			return nil
		}),
	}
	cmd.Flags().StringVar(&mc.TimeOfDay, "time-of-day", "", "morning, day, evening or night")
	cmd.Flags().StringVar(&mc.Weather, "weather", "", "current weather, e.g. clear or rain")
	return cmd
}

// imageDataURL reads an image file into a base64 data URL.
func imageDataURL(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", ct, base64.StdEncoding.EncodeToString(raw)), nil
}

func newSaveCommand(r *runner) *cobra.Command {
	var (
		entry     models.LogEntry
		location  string
		imagePath string
		cancelled bool
	)
	cmd := &cobra.Command{
		Use:     "save",
		Short:   "Record a completed mission",
		GroupID: "logs",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			entry.UserID = sess.UserID
			entry.Status = models.StatusCompleted
			if cancelled {
				entry.Status = models.StatusCancelled
			}
			if location != "" {
				entry.Location = &models.Location{Name: location}
			}
			if imagePath != "" {
				if entry.ImageData, err = imageDataURL(imagePath); err != nil {
					return err
				}
			}

			res, err := e.app.logs.Save(ctx, entry)
			if err != nil {
				return err
			}
			if res.Queued {
				e.printf("Saved on this device (%s). It will be sent when the server is reachable.\n", res.Entry.ClientID)
				return nil
			}
			e.printf("Saved %s.\n", res.Entry.ID)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&entry.MissionID, "mission-id", "", "id of the mission")
	f.StringVar(&entry.MissionText, "mission", "", "mission text")
	f.StringVar(&entry.Memo, "memo", "", "free-form note")
	f.StringVar(&location, "location", "", "where it happened")
	f.StringVar(&imagePath, "image", "", "photo to attach")
	f.BoolVar(&entry.IsPublic, "public", false, "share the entry")
	f.BoolVar(&cancelled, "cancelled", false, "record the mission as cancelled")
	_ = cmd.MarkFlagRequired("mission-id")
	_ = cmd.MarkFlagRequired("mission")
	return cmd
}

func newLogsCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "logs",
		Aliases: []string{"ls"},
		Short:   "List your log entries, newest first",
		GroupID: "logs",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			res, err := e.app.logs.List(ctx, sess.UserID)
			if err != nil {
				return err
			}
			if res.Cached {
				e.printf("(offline: showing entries stored on this device)\n")
			}
			if len(res.Logs) == 0 {
				e.printf("No entries yet.\n")
				return nil
			}

			tw := tabwriter.NewWriter(e.cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tSYNC\tMISSION")
			for _, l := range res.Logs {
				id, sync := l.ID, "synced"
				if id == "" {
					id, sync = l.ClientID, "pending"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id, l.CreatedAt, l.Status, sync, l.MissionText)
			}
			return tw.Flush()
		}),
	}
}

func newDeleteCommand(r *runner) *cobra.Command {
	var all, yes bool
	cmd := &cobra.Command{
		Use:     "delete [log-id]",
		Short:   "Delete one log entry, or all of them with --all",
		GroupID: "logs",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: r.wrap(func(ctx context.Context, e *env, args []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			if !all {
				if err := e.app.logs.Delete(ctx, sess.UserID, args[0]); err != nil {
					return err
				}
				e.printf("Deleted %s.\n", args[0])
				return nil
			}

			if !yes {
				ok, err := Confirm(e.in, "Delete all of your log entries?", e.cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				if !ok {
					e.printf("Cancelled.\n")
					return nil
				}
			}
			n, err := e.app.logs.DeleteAll(ctx, sess.UserID)
			if err != nil {
				return err
			}
			e.printf("Deleted %d entries.\n", n)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every entry")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newDeleteImagesCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "delete-images",
		Short:   "Remove every uploaded photo",
		GroupID: "logs",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			deleted, failed, err := e.app.logs.DeleteImages(ctx, sess.UserID)
			if err != nil {
				return err
			}
			e.printf("Deleted %d images", deleted)
			if failed > 0 {
				e.printf(", %d failed", failed)
			}
			e.printf(".\n")
			return nil
		}),
	}
}
