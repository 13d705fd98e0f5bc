package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
)

// UIURLEnv overrides the web UI address opened by the open command
const UIURLEnv = "NUAGEVAULT_UI_URL"

// NewOpenCmd creates the open command
func NewOpenCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open the NuageVault web app in browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runOpen(rt)
		},
	}
}

func runOpen(rt *Runtime) error {
	uiURL := os.Getenv(UIURLEnv)
	if uiURL == "" {
		uiURL = rt.BaseURL
	}

	fmt.Fprintf(rt.Out, "Opening %s...\n", uiURL)

	if err := rt.openBrowser(uiURL); err != nil {
		return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, uiURL)
	}

	return nil
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// NewStatusCmd creates the status command
func NewStatusCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the API and show the session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), rt)
		},
	}
}

func runStatus(ctx context.Context, rt *Runtime) error {
	fmt.Fprintf(rt.Out, "API:     %s\n", rt.BaseURL)

	health, err := rt.Client.Health(ctx)
	if err != nil {
		fmt.Fprintf(rt.Out, "Server:  unreachable (%v)\n", err)
	} else {
		fmt.Fprintf(rt.Out, "Server:  %s\n", health.Status)
	}

	if _, ok := rt.Session.Token(); ok {
		fmt.Fprintln(rt.Out, "Session: logged in")
	} else {
		fmt.Fprintln(rt.Out, "Session: not logged in")
	}
	return nil
}
