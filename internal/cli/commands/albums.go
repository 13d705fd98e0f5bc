package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nuagevault/nuagevault/internal/cli/albumselect"
)

// NewAlbumsCmd creates the albums command group
func NewAlbumsCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "albums",
		Aliases: []string{"album"},
		Short:   "Manage albums",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runGuarded(cmd.Context(), rt, "/albums", func() error {
				return runAlbumList(cmd.Context(), rt)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List albums",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runGuarded(cmd.Context(), rt, "/albums", func() error {
				return runAlbumList(cmd.Context(), rt)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <title>",
		Short: "Create an album",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runAlbumCreate(cmd.Context(), rt, strings.Join(args, " "))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <album> <title>",
		Short: "Rename an album",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runAlbumRename(cmd.Context(), rt, args[0], strings.Join(args[1:], " "))
		},
	})

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <album>",
		Short: "Delete an album and all of its photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runAlbumDelete(cmd.Context(), rt, args[0], yes)
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.AddCommand(deleteCmd)

	return cmd
}

// runAlbumList is the authenticated landing view
func runAlbumList(ctx context.Context, rt *Runtime) error {
	albums, err := rt.Client.ListAlbums(ctx)
	if err != nil {
		return err
	}

	if len(albums) == 0 {
		fmt.Fprintln(rt.Out, "No albums found.")
		fmt.Fprintln(rt.Out, "\nCreate an album with: nuagevault albums create <title>")
		return nil
	}

	w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCREATED AT")
	fmt.Fprintln(w, "──\t─────\t──────────")
	for _, album := range albums {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			album.AlbumID,
			album.Title,
			album.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

func runAlbumCreate(ctx context.Context, rt *Runtime, title string) error {
	return runGuarded(ctx, rt, "/albums", func() error {
		album, err := rt.Client.CreateAlbum(ctx, title)
		if err != nil {
			return fmt.Errorf("failed to create album: %w", err)
		}
		fmt.Fprintf(rt.Out, "✓ Created album '%s' (%s)\n", album.Title, album.AlbumID)
		return nil
	})
}

func runAlbumRename(ctx context.Context, rt *Runtime, ref, title string) error {
	return runGuarded(ctx, rt, "/albums", func() error {
		albums, err := rt.Client.ListAlbums(ctx)
		if err != nil {
			return err
		}
		album, err := albumselect.FindAlbum(albums, ref)
		if err != nil {
			return err
		}

		renamed, err := rt.Client.RenameAlbum(ctx, album.AlbumID, title)
		if err != nil {
			return fmt.Errorf("failed to rename album: %w", err)
		}
		fmt.Fprintf(rt.Out, "✓ Renamed '%s' to '%s'\n", album.Title, renamed.Title)
		return nil
	})
}

func runAlbumDelete(ctx context.Context, rt *Runtime, ref string, yes bool) error {
	return runGuarded(ctx, rt, "/albums", func() error {
		albums, err := rt.Client.ListAlbums(ctx)
		if err != nil {
			return err
		}
		album, err := albumselect.FindAlbum(albums, ref)
		if err != nil {
			return err
		}

		if !yes {
			ok, err := rt.confirm(fmt.Sprintf("Delete album '%s' and all of its photos", album.Title))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(rt.Out, "Aborted.")
				return nil
			}
		}

		if err := rt.Client.DeleteAlbum(ctx, album.AlbumID); err != nil {
			return fmt.Errorf("failed to delete album: %w", err)
		}
		fmt.Fprintf(rt.Out, "✓ Deleted album '%s'\n", album.Title)
		return nil
	})
}
