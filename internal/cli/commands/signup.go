package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewSignupCmd creates the signup command
func NewSignupCmd(opts ...Option) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a NuageVault account",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runSignup(cmd.Context(), rt, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set NUAGEVAULT_PASSWORD, will prompt if not provided)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runSignup(ctx context.Context, rt *Runtime, email, password string) error {
	return runGuarded(ctx, rt, "/signup", func() error {
		if password == "" {
			password = os.Getenv("NUAGEVAULT_PASSWORD")
		}
		if password == "" {
			var err error
			password, err = readNewPassword(rt, "Password")
			if err != nil {
				return err
			}
		}

		resp, err := rt.Client.Register(ctx, email, password)
		if err != nil {
			return fmt.Errorf("signup failed: %w", err)
		}

		if !resp.NeedVerify {
			fmt.Fprintln(rt.Out, "✓ Account created")
			if _, ok := rt.Session.Token(); ok {
				return runWelcome(ctx, rt)
			}
			fmt.Fprintln(rt.Out, "Log in with: nuagevault login --email", email)
			return nil
		}

		fmt.Fprintln(rt.Out, "✓ Account created")
		if resp.EmailSent {
			fmt.Fprintf(rt.Out, "A verification code was sent to %s.\n", email)
		}
		fmt.Fprintf(rt.Out, "Verify with: nuagevault verify --email %s --token <code>\n", email)
		return nil
	})
}

// NewVerifyCmd creates the verify command
func NewVerifyCmd(opts ...Option) *cobra.Command {
	var email, token string
	var resend bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify your email address",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runVerify(cmd.Context(), rt, email, token, resend)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&token, "token", "", "Verification code from the email")
	cmd.Flags().BoolVar(&resend, "resend", false, "Send a new verification code")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runVerify(ctx context.Context, rt *Runtime, email, token string, resend bool) error {
	return runGuarded(ctx, rt, "/verify", func() error {
		if resend {
			if err := rt.Client.ResendVerification(ctx, email); err != nil {
				return fmt.Errorf("failed to resend verification: %w", err)
			}
			fmt.Fprintf(rt.Out, "✓ If %s is awaiting verification, a new code is on its way.\n", email)
			return nil
		}

		if token == "" {
			return fmt.Errorf("--token is required (or use --resend)")
		}
		if err := rt.Client.VerifyEmail(ctx, email, token); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		fmt.Fprintln(rt.Out, "✓ Email verified. Log in with: nuagevault login --email", email)
		return nil
	})
}
