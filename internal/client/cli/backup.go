package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newBackupCommand(r *runner) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:     "backup",
		Short:   "Export all of your logs as a snapshot",
		GroupID: "backup",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) (err error) {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}

			w := e.cmd.OutOrStdout()
			if out != "" {
				f, ferr := os.Create(out)
				if ferr != nil {
					return ferr
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}

			snap, err := e.app.backups.Export(ctx, sess.UserID, w)
			if err != nil {
				return err
			}
			if out != "" {
				e.printf("Wrote %d entries to %s.\n", len(snap.Logs), out)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func newRestoreCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "restore <file>",
		Short:   "Merge a snapshot back into your logs",
		Long: "Merge a snapshot back into your logs. You are asked for your user id\n" +
			"and password first; three wrong answers lock restore for an hour.",
		GroupID: "backup",
		Args:    cobra.ExactArgs(1),
		RunE: r.wrap(func(ctx context.Context, e *env, args []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			userID, err := GetSimpleText(e.in, "Confirm your user id", e.cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			password, err := GetPassword(e.in, e.cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			res, err := e.app.backups.Restore(ctx, sess.UserID, userID, password, f)
			if err != nil {
				if res.Applied > 0 {
					fmt.Fprintf(e.cmd.ErrOrStderr(), "%d entries were restored before the failure.\n", res.Applied)
				}
				return err
			}
			e.printf("Restored %d entries, %d already present.\n", res.Applied, res.Skipped)
			return nil
		}),
	}
}
