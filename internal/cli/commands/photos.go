package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/upload"
)

// NewPhotosCmd creates the photos command group
func NewPhotosCmd(opts ...Option) *cobra.Command {
	var albumRef string

	cmd := &cobra.Command{
		Use:     "photos",
		Aliases: []string{"photo"},
		Short:   "Manage the photos of an album",
	}
	cmd.PersistentFlags().StringVarP(&albumRef, "album", "a", "", "Album ID or title (defaults to the last used album)")

	var limit int
	var lastKey string
	listCmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runPhotoList(cmd.Context(), rt, albumRef, api.ListPhotosOptions{Limit: limit, LastKey: lastKey})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 0, "Page size (0 lists every photo)")
	listCmd.Flags().StringVar(&lastKey, "after", "", "Continue after this photo ID")
	cmd.AddCommand(listCmd)

	var parallel int
	uploadCmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload photos straight to storage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runPhotoUpload(cmd.Context(), rt, albumRef, args, parallel)
		},
	}
	uploadCmd.Flags().IntVarP(&parallel, "parallel", "p", 3, "Number of concurrent uploads")
	cmd.AddCommand(uploadCmd)

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <photo-id>",
		Short: "Delete a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runPhotoDelete(cmd.Context(), rt, albumRef, args[0], yes)
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.AddCommand(deleteCmd)

	var output string
	getCmd := &cobra.Command{
		Use:   "get <photo-id>",
		Short: "Download a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts...)
			if err != nil {
				return err
			}
			return runPhotoGet(cmd.Context(), rt, albumRef, args[0], output)
		},
	}
	getCmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (defaults to the photo's filename, '-' for stdout)")
	cmd.AddCommand(getCmd)

	return cmd
}

func albumPath(ref string) string {
	if ref == "" {
		return "/albums/last"
	}
	return "/albums/" + ref
}

func runPhotoList(ctx context.Context, rt *Runtime, albumRef string, opts api.ListPhotosOptions) error {
	return runGuarded(ctx, rt, albumPath(albumRef), func() error {
		album, err := rt.Albums.Resolve(ctx, albumRef)
		if err != nil {
			return err
		}

		var (
			photos  []api.Photo
			nextKey string
		)
		if opts.Limit > 0 || opts.LastKey != "" {
			page, err := rt.Client.ListPhotos(ctx, album.AlbumID, opts)
			if err != nil {
				return err
			}
			photos, nextKey = page.Items, page.NextKey
		} else {
			photos, err = rt.Client.ListAllPhotos(ctx, album.AlbumID)
			if err != nil {
				return err
			}
		}

		if len(photos) == 0 {
			fmt.Fprintf(rt.Out, "No photos in '%s'.\n", album.Title)
			fmt.Fprintln(rt.Out, "\nUpload with: nuagevault photos upload <file>")
			return nil
		}

		fmt.Fprintf(rt.Out, "Photos in %s (%s):\n\n", album.Title, album.AlbumID)
		printPhotos(rt.Out, photos)

		if nextKey != "" {
			fmt.Fprintf(rt.Out, "\nMore photos: nuagevault photos ls --limit %d --after %s\n", opts.Limit, nextKey)
		}
		return nil
	})
}

func printPhotos(out io.Writer, photos []api.Photo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tTYPE\tSIZE\tUPLOADED AT")
	fmt.Fprintln(w, "──\t────────\t────\t────\t───────────")
	for _, photo := range photos {
		uploaded := "-"
		if photo.UploadedAt != nil {
			uploaded = photo.UploadedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			photo.PhotoID,
			photo.Filename,
			photo.ContentType,
			formatBytes(photo.Size),
			uploaded,
		)
	}
	w.Flush()
}

func runPhotoUpload(ctx context.Context, rt *Runtime, albumRef string, paths []string, parallel int) error {
	return runGuarded(ctx, rt, albumPath(albumRef), func() error {
		album, err := rt.Albums.Resolve(ctx, albumRef)
		if err != nil {
			return err
		}

		progress := newProgressPrinter(rt.Out)
		items := make([]upload.Item, 0, len(paths))
		for _, path := range paths {
			file, closer, err := upload.OpenFile(path)
			if err != nil {
				return err
			}
			defer closer.Close()
			items = append(items, upload.Item{File: file, Progress: progress.For(file.Name)})
		}

		fmt.Fprintf(rt.Out, "Uploading %d file(s) to '%s'...\n", len(items), album.Title)

		results := rt.Uploader.UploadAll(ctx, album.AlbumID, items, parallel)

		var (
			failed int
			last   *upload.Result
		)
		for i, res := range results {
			name := items[i].File.Name
			if res.Result != nil && res.Result.Finalize.Err != nil {
				fmt.Fprintf(rt.Out, "! %s: uploaded, confirmation failed (%v); it will appear once the server catches up\n", name, res.Result.Finalize.Err)
			}

			var stepErr *upload.StepError
			switch {
			case res.Err == nil:
				fmt.Fprintf(rt.Out, "✓ %s (%s)\n", name, formatBytes(res.Result.Size))
				last = res.Result
			case errors.As(res.Err, &stepErr) && stepErr.Step == upload.StepRefresh:
				fmt.Fprintf(rt.Out, "✓ %s (%s), listing not refreshed: %v\n", name, formatBytes(res.Result.Size), res.Err)
			default:
				if errors.Is(res.Err, api.ErrUnauthorized) {
					return res.Err
				}
				failed++
				fmt.Fprintf(rt.Out, "✗ %s: %v\n", name, res.Err)
			}
		}

		if last != nil {
			fmt.Fprintf(rt.Out, "\n'%s' now has %d photo(s).\n", album.Title, len(last.Photos))
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d upload(s) failed", failed, len(items))
		}
		return nil
	})
}

func runPhotoDelete(ctx context.Context, rt *Runtime, albumRef, photoID string, yes bool) error {
	return runGuarded(ctx, rt, albumPath(albumRef), func() error {
		if !yes {
			ok, err := rt.confirm(fmt.Sprintf("Delete photo %s", photoID))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(rt.Out, "Aborted.")
				return nil
			}
		}

		if err := rt.Client.DeletePhoto(ctx, photoID); err != nil {
			return fmt.Errorf("failed to delete photo: %w", err)
		}
		fmt.Fprintf(rt.Out, "✓ Deleted photo %s\n", photoID)
		return nil
	})
}

func runPhotoGet(ctx context.Context, rt *Runtime, albumRef, photoID, output string) error {
	return runGuarded(ctx, rt, albumPath(albumRef), func() error {
		album, err := rt.Albums.Resolve(ctx, albumRef)
		if err != nil {
			return err
		}

		photos, err := rt.Client.ListAllPhotos(ctx, album.AlbumID)
		if err != nil {
			return err
		}

		var photo *api.Photo
		for i := range photos {
			if photos[i].PhotoID == photoID {
				photo = &photos[i]
				break
			}
		}
		if photo == nil {
			return fmt.Errorf("photo '%s' not found in album '%s'", photoID, album.Title)
		}
		if photo.URL == "" {
			return fmt.Errorf("photo '%s' has no download URL", photoID)
		}

		if output == "-" {
			_, err := rt.Uploader.Download(ctx, photo.URL, rt.Out)
			return err
		}

		if output == "" {
			output = filepath.Base(photo.Filename)
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}

		n, err := rt.Uploader.Download(ctx, photo.URL, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(output)
			return err
		}

		fmt.Fprintf(rt.Out, "✓ Saved %s (%s)\n", output, formatBytes(n))
		return nil
	})
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
