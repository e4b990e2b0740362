// Package api serves the read-only operator endpoints: the loop status
// snapshot, a node reachability probe, and Prometheus metrics. Nothing
// here mutates the oracle.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/oraclesuite/go-oraclepool/oracle"
)

// StatusSource yields the last published loop snapshot.
type StatusSource interface {
	Status() oracle.Status
}

// HealthChecker probes the ledger node.
type HealthChecker interface {
	Height(ctx context.Context) (idx.Block, error)
}

const healthTimeout = 5 * time.Second

type handler struct {
	status StatusSource
	health HealthChecker
	log    *logrus.Logger
}

// NewRouter builds the endpoint routes. The metrics gatherer may be nil
// to disable /metrics.
func NewRouter(status StatusSource, health HealthChecker, metrics prometheus.Gatherer, log *logrus.Logger) *mux.Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &handler{status: status, health: health, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/status", h.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/health", h.getHealth).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.status.Status())
}

func (h *handler) getHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	height, err := h.health.Height(ctx)
	if err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "node unreachable",
			"error":  err.Error(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"height": height,
	})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("status response write failed")
	}
}

// Server wraps the HTTP listener with context-driven shutdown.
type Server struct {
	http *http.Server
	log  *logrus.Logger
}

func NewServer(addr string, router http.Handler, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run serves until the context is canceled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.http.ListenAndServe()
	}()
	s.log.WithField("addr", s.http.Addr).Info("status api listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
