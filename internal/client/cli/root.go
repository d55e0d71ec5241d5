package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/sanposhin/internal/client/config"
	"github.com/dmitrijs2005/sanposhin/internal/client/errmsg"
	"github.com/dmitrijs2005/sanposhin/internal/client/services"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
)

// env is what a command body receives.
type env struct {
	cmd *cobra.Command
	app *App
	in  *bufio.Reader
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.cmd.OutOrStdout(), format, args...)
}

// session returns the signed-in user or common.ErrorUnauthorized.
func (e *env) session(ctx context.Context) (*services.Session, error) {
	return e.app.auth.Current(ctx)
}

type runner struct {
	open Opener
}

// wrap turns body into a RunE: config, App and a first connectivity check
// are set up around it, and a failure is reported as a user message.
func (r *runner) wrap(body func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		logger := logging.New(cmd.ErrOrStderr(), "text", cfg.LogLevel)

		app, err := r.open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); cerr != nil {
				logger.Warn(ctx, "close failed", "error", cerr)
			}
		}()

		app.monitor.Check(ctx)

		e := &env{cmd: cmd, app: app, in: bufio.NewReader(cmd.InOrStdin())}
		if err := body(ctx, e, args); err != nil {
			// reported here in user terms; keep cobra from printing it again
			cmd.SilenceErrors = true
			fmt.Fprintln(cmd.ErrOrStderr(), errmsg.Message(err, app.monitor.Online()))
			return err
		}
		return nil
	}
}

// NewRootCommand builds the sanposhin command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(OpenApp)
}

func newRootCommand(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "sanposhin",
		Short: "Walk missions and a durable photo log, online or offline",
		Long: `sanposhin keeps a log of completed walking missions.

Entries are stored on this device first. When the server cannot be reached
they wait in a local queue and are delivered by "sync" or "watch".`,
		SilenceUsage: true,
	}
	config.BindFlags(root)

	root.AddGroup(
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "logs", Title: "Logs:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "backup", Title: "Backup:"},
	)

	r := &runner{open: open}
	root.AddCommand(
		newSignupCommand(r),
		newLoginCommand(r),
		newLogoutCommand(r),
		newResetPasswordCommand(r),
		newDeleteAccountCommand(r),

		newMissionCommand(r),
		newSaveCommand(r),
		newLogsCommand(r),
		newDeleteCommand(r),
		newDeleteImagesCommand(r),

		newSyncCommand(r),
		newStatusCommand(r),
		newWatchCommand(r),

		newBackupCommand(r),
		newRestoreCommand(r),
	)
	return root
}
