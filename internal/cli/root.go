package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nuagevault/nuagevault/internal/cli/commands"
	"github.com/nuagevault/nuagevault/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree. opts are passed to every command.
func NewRootCmd(opts ...commands.Option) *cobra.Command {
	var (
		apiURL  string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "nuagevault",
		Short: "NuageVault - your photos, in your cloud",
		Long: `NuageVault CLI - Manage your albums and photos from the terminal.

Photos are uploaded straight to object storage through short-lived
presigned URLs; your session is kept in the OS keyring.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.InitWithWriter(level, "console", os.Stderr)
			commands.SetAPIURL(apiURL)
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API address (or set NUAGEVAULT_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log API requests to stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nuagevault version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewSignupCmd(opts...))
	rootCmd.AddCommand(commands.NewVerifyCmd(opts...))
	rootCmd.AddCommand(commands.NewLoginCmd(opts...))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts...))
	rootCmd.AddCommand(commands.NewForgotCmd(opts...))
	rootCmd.AddCommand(commands.NewResetCmd(opts...))
	rootCmd.AddCommand(commands.NewWelcomeCmd(opts...))
	rootCmd.AddCommand(commands.NewAlbumsCmd(opts...))
	rootCmd.AddCommand(commands.NewPhotosCmd(opts...))
	rootCmd.AddCommand(commands.NewProfileCmd(opts...))
	rootCmd.AddCommand(commands.NewStatsCmd(opts...))
	rootCmd.AddCommand(commands.NewOpenCmd(opts...))
	rootCmd.AddCommand(commands.NewStatusCmd(opts...))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
