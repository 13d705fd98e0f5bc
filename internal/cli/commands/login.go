package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts ...Option) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with NuageVault",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), rt, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set NUAGEVAULT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set NUAGEVAULT_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, rt *Runtime, email, password string) error {
	return runGuarded(ctx, rt, "/login", func() error {
		// Environment variables are useful for CI/CD
		if email == "" {
			email = os.Getenv("NUAGEVAULT_EMAIL")
		}
		if password == "" {
			password = os.Getenv("NUAGEVAULT_PASSWORD")
		}

		if email == "" {
			return fmt.Errorf("email is required (use --email flag or NUAGEVAULT_EMAIL env var)")
		}

		if password == "" {
			var err error
			password, err = rt.readPassword("Password")
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(rt.Out, "Logging in to %s...\n", rt.BaseURL)

		if err := rt.Client.Login(ctx, email, password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Fprintln(rt.Out, "✓ Login successful!")
		return runWelcome(ctx, rt)
	})
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runLogout(rt)
		},
	}
}

func runLogout(rt *Runtime) error {
	if _, ok := rt.Session.Token(); !ok {
		fmt.Fprintln(rt.Out, "Not logged in.")
		return nil
	}
	if err := rt.Client.Logout(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	fmt.Fprintln(rt.Out, "✓ Logged out")
	return nil
}
