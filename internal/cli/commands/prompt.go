package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// promptPassword reads a password from the terminal without echo
func promptPassword(label string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or NUAGEVAULT_PASSWORD env var)")
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// promptConfirm asks a yes/no question; anything but yes is a no
func promptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	answer, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirmation cancelled: %w", err)
	}
	return strings.EqualFold(answer, "y"), nil
}

// readNewPassword prompts twice and checks both entries match
func readNewPassword(rt *Runtime, label string) (string, error) {
	first, err := rt.readPassword(label)
	if err != nil {
		return "", err
	}
	second, err := rt.readPassword("Repeat " + strings.ToLower(label))
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	return first, nil
}
