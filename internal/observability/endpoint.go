package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/logger"
	metricspkg "github.com/jobapply/jobapply/internal/observability/metrics"
)

// Endpoint serves the Prometheus metrics over HTTP.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	listener      net.Listener
}

// NewEndpoint creates an Endpoint. It returns an error if metrics are disabled.
func NewEndpoint(settings *conf.MetricsSettings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Enabled {
		return nil, fmt.Errorf("metrics not enabled in settings")
	}

	return &Endpoint{
		listenAddress: settings.Listen,
		metrics:       metrics,
	}, nil
}

// Start listens on the configured address and serves until quitChan is closed.
// The listener is bound before Start returns.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	e.listener = ln

	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: metricspkg.ShutdownTimeout,
	}

	wg.Go(func() {
		log.Info("Metrics endpoint starting", logger.String("address", ln.Addr().String()))
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics HTTP server error", logger.Error(err))
		}
	})

	wg.Go(func() { e.gracefulShutdown(quitChan) })
	return nil
}

// Addr returns the bound address. Valid after Start succeeds.
func (e *Endpoint) Addr() net.Addr {
	return e.listener.Addr()
}

// gracefulShutdown waits for the quit signal and shuts down the server gracefully.
func (e *Endpoint) gracefulShutdown(quitChan <-chan struct{}) {
	<-quitChan
	log.Info("Stopping metrics server")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		log.Error("Metrics server shutdown error", logger.Error(err))
	}
}
