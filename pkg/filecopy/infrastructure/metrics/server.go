package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// MetricsServer exposes a PrometheusRecorder registry on /metrics.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a server for the given address. It does not listen until Start.
func NewMetricsServer(addr string, recorder *PrometheusRecorder) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listen address and serves in the background.
// Bind errors are returned synchronously.
func (s *MetricsServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	logger.Infof("Metrics endpoint listening on http://%s/metrics", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics endpoint stopped: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *MetricsServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
