// Package restore provides the restore command for JobApply
package restore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobapply/jobapply/internal/app"
	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/export"
)

// openApp is replaced in tests.
var openApp = func(settings *conf.Settings) (*app.App, error) {
	return app.Open(settings)
}

// zipMagic starts every XLSX file.
var zipMagic = []byte("PK\x03\x04")

// Command creates and returns the restore command
func Command(settings *conf.Settings) *cobra.Command {
	var userID uint
	var fileID string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Import applications from a CSV backup stored on Google Drive",
		Long: `Restore downloads a CSV backup from Google Drive and imports it for the user.
Rows whose id belongs to the user update that application; all other rows are created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, settings, userID, fileID)
		},
	}

	cmd.Flags().UintVarP(&userID, "user", "u", 0, "User id")
	cmd.Flags().StringVar(&fileID, "file", "", "Drive file id of the backup (see backup list)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runRestore(cmd *cobra.Command, settings *conf.Settings, userID uint, fileID string) error {
	a, err := openApp(settings)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	raw, err := a.Drive.Download(ctx, userID, fileID)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	if bytes.HasPrefix(raw, zipMagic) {
		return fmt.Errorf("restore failed: file %s is a spreadsheet, only CSV backups can be restored", fileID)
	}

	result, err := export.ImportCSV(ctx, a.Applications, userID, raw)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restore completed: %d created, %d updated\n", result.Created, result.Updated)
	return nil
}
