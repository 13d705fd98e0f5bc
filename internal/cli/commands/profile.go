package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/upload"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runProfileShow(cmd.Context(), rt)
		},
	}

	var displayName, bio string
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Change display name or bio",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			var update api.ProfileUpdate
			if cmd.Flags().Changed("name") {
				update.DisplayName = &displayName
			}
			if cmd.Flags().Changed("bio") {
				update.Bio = &bio
			}
			return runProfileUpdate(cmd.Context(), rt, update)
		},
	}
	updateCmd.Flags().StringVar(&displayName, "name", "", "Display name")
	updateCmd.Flags().StringVar(&bio, "bio", "", "Short bio")
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "avatar <image>",
		Short: "Upload a new avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runProfileAvatar(cmd.Context(), rt, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runChangePassword(cmd.Context(), rt)
		},
	})

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete your account and every album and photo in it",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runDeleteAccount(cmd.Context(), rt, yes)
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.AddCommand(deleteCmd)

	return cmd
}

func runProfileShow(ctx context.Context, rt *Runtime) error {
	return runGuarded(ctx, rt, "/profile", func() error {
		user, err := rt.Client.Me(ctx)
		if err != nil {
			return err
		}
		printUser(rt, user)
		return nil
	})
}

func printUser(rt *Runtime, user *api.User) {
	fmt.Fprintf(rt.Out, "Email:        %s\n", user.Email)
	fmt.Fprintf(rt.Out, "Display name: %s\n", valueOr(user.DisplayName, "-"))
	fmt.Fprintf(rt.Out, "Bio:          %s\n", valueOr(user.Bio, "-"))
	fmt.Fprintf(rt.Out, "Avatar:       %s\n", valueOr(user.AvatarURL, "-"))
	if user.IsVerified {
		fmt.Fprintln(rt.Out, "Verified:     yes")
	} else {
		fmt.Fprintln(rt.Out, "Verified:     no")
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func runProfileUpdate(ctx context.Context, rt *Runtime, update api.ProfileUpdate) error {
	return runGuarded(ctx, rt, "/profile", func() error {
		if update.DisplayName == nil && update.Bio == nil {
			return fmt.Errorf("nothing to update (use --name and/or --bio)")
		}
		user, err := rt.Client.UpdateProfile(ctx, update)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		fmt.Fprintln(rt.Out, "✓ Profile updated")
		printUser(rt, user)
		return nil
	})
}

func runProfileAvatar(ctx context.Context, rt *Runtime, path string) error {
	return runGuarded(ctx, rt, "/profile", func() error {
		file, closer, err := upload.OpenFile(path)
		if err != nil {
			return err
		}
		defer closer.Close()

		avatarURL, err := rt.Client.UploadAvatar(ctx, file.Name, file.ContentType, file.Body)
		if err != nil {
			return fmt.Errorf("failed to upload avatar: %w", err)
		}
		fmt.Fprintf(rt.Out, "✓ Avatar updated: %s\n", avatarURL)
		return nil
	})
}

func runChangePassword(ctx context.Context, rt *Runtime) error {
	return runGuarded(ctx, rt, "/profile", func() error {
		current, err := rt.readPassword("Current password")
		if err != nil {
			return err
		}
		next, err := readNewPassword(rt, "New password")
		if err != nil {
			return err
		}
		if err := rt.Client.ChangePassword(ctx, current, next); err != nil {
			return fmt.Errorf("failed to change password: %w", err)
		}
		fmt.Fprintln(rt.Out, "✓ Password changed")
		return nil
	})
}

func runDeleteAccount(ctx context.Context, rt *Runtime, yes bool) error {
	return runGuarded(ctx, rt, "/profile", func() error {
		if !yes {
			ok, err := rt.confirm("Permanently delete your account, albums and photos")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(rt.Out, "Aborted.")
				return nil
			}
		}
		if err := rt.Client.DeleteAccount(ctx); err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		fmt.Fprintln(rt.Out, "✓ Account deleted")
		return nil
	})
}
