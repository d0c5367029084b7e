// Package backup provides the backup commands for JobApply
package backup

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobapply/jobapply/internal/app"
	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/drive"
	"github.com/jobapply/jobapply/internal/errors"
)

// openApp is replaced in tests.
var openApp = func(settings *conf.Settings) (*app.App, error) {
	return app.Open(settings)
}

// now is replaced in tests.
var now = time.Now

const commandTimeout = 10 * time.Minute

// Command creates and returns the backup command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage Google Drive backups",
		Long:  `Backup commands upload job applications to Google Drive, list existing backups and control automatic backups per user.`,
	}

	cmd.AddCommand(
		runCommand(settings),
		uploadCommand(settings),
		listCommand(settings),
		statusCommand(settings),
		toggleCommand(settings, "enable", "Enable automatic backups for a user", true),
		toggleCommand(settings, "disable", "Disable automatic backups for a user", false),
	)
	return cmd
}

func userFlag(cmd *cobra.Command, userID *uint) {
	cmd.Flags().UintVarP(userID, "user", "u", 0, "User id")
	_ = cmd.MarkFlagRequired("user")
}

// withApp opens the application, runs fn with a bounded context and closes it.
func withApp(cmd *cobra.Command, settings *conf.Settings, fn func(ctx context.Context, a *app.App) error) error {
	a, err := openApp(settings)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	return fn(ctx, a)
}

func runCommand(settings *conf.Settings) *cobra.Command {
	var userID uint
	var format string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Rotate and upload a backup now, as the worker would",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, settings, func(ctx context.Context, a *app.App) error {
				f, err := a.Format(format)
				if err != nil {
					return err
				}
				payload, err := a.Export(ctx, userID, f)
				if err != nil {
					return err
				}
				file, err := a.Drive.RotateAndUpload(ctx, userID, a.RotateRequest(payload))
				if err != nil {
					return fmt.Errorf("backup failed: %w", err)
				}
				// Users who never opened their backup settings have no row to update.
				if err := a.BackupSettings.MarkRun(ctx, userID, now()); err != nil && !errors.IsNotFound(err) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d bytes)\n", file.Name, len(payload.Content))
				return nil
			})
		},
	}
	userFlag(cmd, &userID)
	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format: csv or xlsx (default from worker.format)")
	return cmd
}

func uploadCommand(settings *conf.Settings) *cobra.Command {
	var userID uint
	var format string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a timestamped export without rotating",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, settings, func(ctx context.Context, a *app.App) error {
				f, err := a.Format(format)
				if err != nil {
					return err
				}
				payload, err := a.Export(ctx, userID, f)
				if err != nil {
					return err
				}
				file, err := a.Drive.Upload(ctx, userID, drive.UploadRequest{
					Name:       TimestampedName(now(), payload.Extension),
					Content:    payload.Content,
					MimeType:   payload.MimeType,
					RootFolder: settings.Drive.RootFolder,
					Subfolder:  settings.Drive.Subfolder,
				})
				if err != nil {
					return fmt.Errorf("drive export failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (id %s)\n", file.Name, file.ID)
				return nil
			})
		},
	}
	userFlag(cmd, &userID)
	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format: csv or xlsx (default from worker.format)")
	return cmd
}

// TimestampedName returns the name of a manual export uploaded at t.
func TimestampedName(t time.Time, ext string) string {
	return fmt.Sprintf("jobapply-%s.%s", t.UTC().Format("20060102-150405"), ext)
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var userID uint
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files in the backup folder, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = settings.Drive.ListLimit
			}
			return withApp(cmd, settings, func(ctx context.Context, a *app.App) error {
				files, err := a.Drive.List(ctx, userID, limit, settings.Drive.RootFolder, settings.Drive.Subfolder)
				if err != nil {
					return err
				}
				return printFiles(cmd.OutOrStdout(), files)
			})
		},
	}
	userFlag(cmd, &userID)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of files (default from drive.listlimit)")
	return cmd
}

func printFiles(out io.Writer, files []drive.RemoteFile) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(out, "No backups found")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tCREATED")
	for _, f := range files {
		created := ""
		if !f.CreatedTime.IsZero() {
			created = f.CreatedTime.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.ID, f.Name, f.Size, created)
	}
	return w.Flush()
}

func statusCommand(settings *conf.Settings) *cobra.Command {
	var userID uint

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the Drive connection and automatic backup state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, settings, func(ctx context.Context, a *app.App) error {
				status := a.Drive.Status(ctx, userID)
				s, err := a.BackupSettings.GetOrCreate(ctx, userID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User:               %d\n", userID)
				fmt.Fprintf(out, "Connected:          %s\n", yesNo(status.Connected))
				fmt.Fprintf(out, "Refresh token:      %s\n", yesNo(status.HasRefreshToken))
				if status.Err != nil {
					fmt.Fprintf(out, "Status error:       %v\n", status.Err)
				}
				fmt.Fprintf(out, "Automatic backups:  %s\n", enabledDisabled(s.Enabled))
				if s.LastRunAt != nil {
					fmt.Fprintf(out, "Last run:           %s\n", s.LastRunAt.UTC().Format(time.RFC3339))
				} else {
					fmt.Fprintln(out, "Last run:           never")
				}

				if !status.Ready() {
					return nil
				}
				folderID, err := a.Drive.EnsureFolder(ctx, userID, settings.Drive.RootFolder, settings.Drive.Subfolder)
				if err != nil {
					fmt.Fprintf(out, "Folder error:       %v\n", err)
					return nil
				}
				fmt.Fprintf(out, "Folder:             %s\n", drive.FolderURL(folderID))
				return nil
			})
		},
	}
	userFlag(cmd, &userID)
	return cmd
}

func toggleCommand(settings *conf.Settings, name, short string, enabled bool) *cobra.Command {
	var userID uint

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, settings, func(ctx context.Context, a *app.App) error {
				if _, err := a.BackupSettings.GetOrCreate(ctx, userID); err != nil {
					return err
				}
				if err := a.BackupSettings.SetEnabled(ctx, userID, enabled); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Automatic backups %s for user %d\n", enabledDisabled(enabled), userID)
				if enabled && !a.Drive.Status(ctx, userID).Ready() {
					fmt.Fprintln(out, "Warning: Google Drive is not connected; the worker will disable backups again on its next run")
				}
				return nil
			})
		},
	}
	userFlag(cmd, &userID)
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func enabledDisabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
