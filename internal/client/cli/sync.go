package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		Short:   "Send entries saved offline",
		GroupID: "sync",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			res, err := e.app.engine.SyncNow(ctx, sess.UserID)
			if err != nil {
				return err
			}
			if res.Skipped {
				st, err := e.app.engine.Status(ctx, sess.UserID)
				if err != nil {
					return err
				}
				e.printf("Offline, %d entries waiting.\n", st.Pending)
				return nil
			}
			e.printf("Sent %d, failed %d.\n", res.Success, res.Failed)
			if res.Parked > 0 {
				e.printf("%d entries were refused by the server and will not be retried.\n", res.Parked)
			}
			return nil
		}),
	}
}

func newStatusCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show the session, connectivity and pending entries",
		GroupID: "sync",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			st, err := e.app.engine.Status(ctx, sess.UserID)
			if err != nil {
				return err
			}

			mode := "offline"
			if st.Online {
				mode = "online"
			}
			e.printf("User:    %s\nMode:    %s\nPending: %d\n", sess.UserID, mode, st.Pending)
			if st.Oldest != nil {
				e.printf("Oldest:  %s\n", st.Oldest.Local().Format(time.DateTime))
			}
			if st.Parked > 0 {
				e.printf("Refused: %d (not retried; delete them to clear)\n", st.Parked)
			}
			return nil
		}),
	}
}

func newWatchCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Stay running and sync whenever the server comes back",
		GroupID: "sync",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}

			cancel := e.app.engine.SetupAutoSync(ctx, sess.UserID)
			defer func() {
				cancel()
				e.app.engine.Wait()
			}()

			// Already online from the first check: no transition will fire.
			if e.app.monitor.Online() {
				res, err := e.app.engine.SyncNow(ctx, sess.UserID)
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				if res.Success+res.Failed > 0 {
					e.printf("Sent %d, failed %d.\n", res.Success, res.Failed)
				}
			}

			e.printf("Watching connectivity as %s. Press Ctrl+C to stop.\n", sess.UserID)
			e.app.monitor.Run(ctx)
			return nil
		}),
	}
}
