package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSignupCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "signup <user-id>",
		Short:   "Create an account",
		GroupID: "account",
		Args:    cobra.ExactArgs(1),
		RunE: r.wrap(func(ctx context.Context, e *env, args []string) error {
			password, err := GetPassword(e.in, e.cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := e.app.auth.Signup(ctx, args[0], password); err != nil {
				return err
			}
			e.printf("Account %s created. Sign in with: sanposhin login %s\n", args[0], args[0])
			return nil
		}),
	}
}

func newLoginCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "login <user-id>",
		Short:   "Sign in; works offline once signed in on this device",
		GroupID: "account",
		Args:    cobra.ExactArgs(1),
		RunE: r.wrap(func(ctx context.Context, e *env, args []string) error {
			password, err := GetPassword(e.in, e.cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			sess, err := e.app.auth.Login(ctx, args[0], password)
			if err != nil {
				return err
			}
			if sess.Offline {
				e.printf("Signed in as %s (offline). New entries will be queued.\n", sess.UserID)
				return nil
			}
			e.printf("Signed in as %s.\n", sess.UserID)
			return nil
		}),
	}
}

func newLogoutCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Forget the session on this device",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			if err := e.app.auth.Logout(ctx); err != nil {
				return err
			}
			e.printf("Signed out.\n")
			return nil
		}),
	}
}

func newResetPasswordCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:     "reset-password",
		Short:   "Issue a new password for the signed-in user",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			password, err := e.app.auth.ResetPassword(ctx)
			if err != nil {
				return err
			}
			e.printf("New password: %s\nKeep it somewhere safe; it is shown only once.\n", password)
			return nil
		}),
	}
}

func newDeleteAccountCommand(r *runner) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete-account",
		Short:   "Delete the account with all its logs and images",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: r.wrap(func(ctx context.Context, e *env, _ []string) error {
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			if !yes {
				ok, err := Confirm(e.in, fmt.Sprintf("Delete account %s and everything in it?", sess.UserID), e.cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				if !ok {
					e.printf("Cancelled.\n")
					return nil
				}
			}
			res, err := e.app.auth.DeleteAccount(ctx)
			if err != nil {
				return err
			}
			e.printf("Account %s deleted (%d logs, %d images).\n", sess.UserID, res.DeletedLogs, res.DeletedImages)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
