// Package telemetry provides privacy-compliant error tracking
package telemetry

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/errors"
	"github.com/jobapply/jobapply/internal/logger"
)

var (
	initMu      sync.Mutex
	initialized bool
)

// allowedExtra lists the event extras that survive privacy filtering.
var allowedExtra = map[string]bool{
	"component":  true,
	"category":   true,
	"error_type": true,
	"operation":  true,
	"code":       true,
	"status":     true,
}

// InitSentry initializes the Sentry SDK and routes enhanced errors to it.
// It is a no-op when no DSN is configured.
func InitSentry(settings *conf.Settings, release string) error {
	log := logger.Global().Module("telemetry")
	if settings.Sentry.DSN == "" {
		log.Debug("sentry telemetry disabled, no DSN configured")
		return nil
	}

	initMu.Lock()
	defer initMu.Unlock()
	if initialized {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		Debug:            settings.Sentry.Debug,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "", // keep the hostname out of events
		Release:          "jobapply@" + release,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized = true

	log.Info("sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("release", release))
	return nil
}

// Flush waits up to timeout for queued events to be sent.
func Flush(timeout time.Duration) bool {
	initMu.Lock()
	defer initMu.Unlock()
	if !initialized {
		return true
	}
	return sentry.Flush(timeout)
}

// applyPrivacyFilters strips user and host data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if !allowedExtra[k] {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
		delete(event.Tags, "user_id")
	}

	return event
}
