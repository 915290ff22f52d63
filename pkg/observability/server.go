package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Server exposes /metrics and /health over HTTP.
type Server struct {
	httpServer *http.Server
	port       int
}

// NewServer creates an observability server on the given port.
func NewServer(port int) *Server {
	return &Server{port: port}
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", MetricsHandler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
