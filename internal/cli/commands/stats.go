package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command (the dashboard view)
func NewStatsCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:     "stats",
		Aliases: []string{"dashboard"},
		Short:   "Show storage usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runStats(cmd.Context(), rt)
		},
	}
}

func runStats(ctx context.Context, rt *Runtime) error {
	return runGuarded(ctx, rt, "/dashboard", func() error {
		stats, err := rt.Client.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(rt.Out, "Albums:  %d\n", stats.Albums)
		fmt.Fprintf(rt.Out, "Photos:  %d\n", stats.Photos)
		fmt.Fprintf(rt.Out, "Storage: %.2f MB\n", stats.StorageMB)
		return nil
	})
}

// NewWelcomeCmd creates the whoami command (the welcome view)
func NewWelcomeCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Aliases: []string{"welcome"},
		Short:   "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runGuarded(cmd.Context(), rt, "/welcome", func() error {
				return runWelcome(cmd.Context(), rt)
			})
		},
	}
}

func runWelcome(ctx context.Context, rt *Runtime) error {
	user, err := rt.Client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Welcome, %s!\n", valueOr(user.DisplayName, user.Email))
	return nil
}
