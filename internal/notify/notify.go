package notify

import (
	"context"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/errors"
	"github.com/jobapply/jobapply/internal/logger"
)

// Message is a single notification.
type Message struct {
	Title string
	Body  string
}

// Sender delivers a Message to every configured service.
type Sender interface {
	Send(body string, params *stypes.Params) []error
}

// Notifier sends messages to the configured services.
type Notifier struct {
	sender   Sender
	services int
}

// New builds a Notifier from settings. It returns (nil, nil) when no URL is
// configured; a nil *Notifier discards every message.
func New(settings *conf.NotifySettings) (*Notifier, error) {
	if settings == nil || len(settings.URLs) == 0 {
		return nil, nil
	}

	sender, err := shoutrrr.CreateSender(slices.Clone(settings.URLs)...)
	if err != nil {
		return nil, errors.Newf("invalid notification URL: %s", errors.ScrubMessage(err.Error())).
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}
	configureRouter(sender, settings.Timeout)

	return &Notifier{sender: sender, services: len(settings.URLs)}, nil
}

// NewWithSender wraps an existing Sender.
func NewWithSender(sender Sender) *Notifier {
	return &Notifier{sender: sender, services: 1}
}

func configureRouter(r *router.ServiceRouter, timeout time.Duration) {
	if timeout > 0 {
		r.Timeout = timeout
	}
	r.SetLogger(log.New(io.Discard, "", 0))
}

// Notify sends msg to every service and returns the first delivery error.
// The router enforces its own timeout; ctx only stops a send that has not started.
func (n *Notifier) Notify(ctx context.Context, msg Message) error {
	if n == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if msg.Title != "" {
		params.SetTitle(msg.Title)
	}

	start := time.Now()
	errs := n.sender.Send(msg.Body, &params)
	for _, err := range errs {
		if err == nil {
			continue
		}
		return errors.Newf("notification delivery failed: %s", errors.ScrubMessage(err.Error())).
			Component("notify").
			Category(errors.CategoryIntegration).
			Timing("send", time.Since(start)).
			Build()
	}

	GetLogger().Debug("notification sent",
		logger.String("title", msg.Title),
		logger.Int("services", n.services),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}
