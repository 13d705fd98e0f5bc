package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewForgotCmd creates the forgot-password command
func NewForgotCmd(opts ...Option) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Request a password reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runForgot(cmd.Context(), rt, email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runForgot(ctx context.Context, rt *Runtime, email string) error {
	return runGuarded(ctx, rt, "/forgot", func() error {
		if err := rt.Client.ForgotPassword(ctx, email); err != nil {
			return fmt.Errorf("failed to request reset: %w", err)
		}
		fmt.Fprintf(rt.Out, "✓ If an account exists for %s, a reset code has been sent.\n", email)
		fmt.Fprintf(rt.Out, "Reset with: nuagevault reset --email %s --token <code>\n", email)
		return nil
	})
}

// NewResetCmd creates the reset-password command
func NewResetCmd(opts ...Option) *cobra.Command {
	var email, token string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runReset(cmd.Context(), rt, email, token)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&token, "token", "", "Reset code from the email")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("token")

	return cmd
}

func runReset(ctx context.Context, rt *Runtime, email, token string) error {
	return runGuarded(ctx, rt, "/reset", func() error {
		password, err := readNewPassword(rt, "New password")
		if err != nil {
			return err
		}
		if err := rt.Client.ResetPassword(ctx, email, token, password); err != nil {
			return fmt.Errorf("password reset failed: %w", err)
		}
		fmt.Fprintln(rt.Out, "✓ Password updated. Log in with: nuagevault login --email", email)
		return nil
	})
}
