// Package admin serves a local read-only HTTP endpoint with health,
// Prometheus metrics and a JSON view of the engine state.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/feeder/internal/health"
	"github.com/five82/feeder/internal/metrics"
	"github.com/five82/feeder/internal/model"
	"github.com/five82/feeder/internal/reservation"
)

const shutdownTimeout = 5 * time.Second

// Source exposes the engine state rendered by the admin endpoints.
type Source interface {
	Points() []model.FeedingPoint
	Point(pointID string) (model.FeedingPoint, bool)
	Reservation() reservation.State
	RemainingTime() time.Duration
	Health() health.Snapshot
}

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	Points      int    `json:"points"`
	Reservation string `json:"reservation"`
	PointID     string `json:"pointId,omitempty"`
	BookingID   string `json:"bookingId,omitempty"`
	RemainingS  int64  `json:"remainingSeconds"`

	Offline      bool   `json:"offline"`
	FeedFailures int    `json:"feedFailures"`
	Cursor       uint64 `json:"cursor"`
}

type handler struct {
	src Source
}

// NewRouter returns the admin routes.
func NewRouter(src Source, gatherer prometheus.Gatherer) http.Handler {
	h := &handler{src: src}
	r := chi.NewRouter()

	r.Get("/healthz", h.health)
	r.Handle("/metrics", metrics.Handler(gatherer))
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Get("/points", h.points)
		r.Get("/points/{id}", h.point)
	})
	return r
}

// health answers 503 once the change feed has failed enough polls in a row
// to count as offline.
func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	snap := h.src.Health()
	if snap.IsOffline() {
		body := map[string]string{"status": "offline"}
		if snap.LastError != nil {
			body["error"] = snap.LastError.Error()
		}
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) state(w http.ResponseWriter, _ *http.Request) {
	st := h.src.Reservation()
	feed := h.src.Health()
	writeJSON(w, http.StatusOK, StateResponse{
		Points:       len(h.src.Points()),
		Reservation:  st.Kind.String(),
		PointID:      st.PointID,
		BookingID:    st.BookingID,
		RemainingS:   int64(h.src.RemainingTime() / time.Second),
		Offline:      feed.IsOffline(),
		FeedFailures: feed.ConsecutiveFailures,
		Cursor:       feed.Cursor,
	})
}

func (h *handler) points(w http.ResponseWriter, _ *http.Request) {
	points := h.src.Points()
	if points == nil {
		points = []model.FeedingPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": points})
}

func (h *handler) point(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.src.Point(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": fmt.Sprintf("point %q not cached", id)})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("admin server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown admin server: %w", err)
	}
	return nil
}
