// Package worker provides the worker command for JobApply
package worker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobapply/jobapply/internal/app"
	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/logger"
	"github.com/jobapply/jobapply/internal/observability"
)

// Command creates and returns the worker command
func Command(settings *conf.Settings) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run automatic Google Drive backups until interrupted",
		Long: `Worker polls users with automatic backups enabled and uploads a rotating
backup (latest plus two older generations) when one is due. It waits for the
database schema before starting and stops on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), settings, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create or update the database schema before starting")
	return cmd
}

func runWorker(parent context.Context, settings *conf.Settings, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := serve(ctx, settings, migrate)
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Global().Module("main").Info("shutdown requested")
		return nil
	}
	return err
}

func serve(ctx context.Context, settings *conf.Settings, migrate bool) error {
	a, err := app.Open(settings)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate {
		if err := a.Store.Migrate(ctx); err != nil {
			return err
		}
	}

	w, err := a.Worker()
	if err != nil {
		return err
	}
	if err := w.WaitForSchema(ctx, a.Store, settings.Worker.SchemaWait); err != nil {
		return err
	}

	if a.Metrics != nil {
		endpoint, err := observability.NewEndpoint(&settings.Metrics, a.Metrics)
		if err != nil {
			return err
		}
		var wg sync.WaitGroup
		quit := make(chan struct{})
		if err := endpoint.Start(&wg, quit); err != nil {
			return err
		}
		defer func() {
			close(quit)
			wg.Wait()
		}()
	}

	return w.Run(ctx)
}
