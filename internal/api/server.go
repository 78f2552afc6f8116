// Package api exposes the engine over HTTP: availability reads,
// request submission, confirmation and the admin export.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"slotlink/internal/availability"
	"slotlink/internal/booking"
	"slotlink/internal/config"
	"slotlink/internal/db"
)

// HTTPServer wires the engine components to HTTP routes.
type HTTPServer struct {
	cfg      *config.Config
	avail    *availability.Service
	workflow *booking.Workflow
	database *db.DB
	limiter  *rate.Limiter
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, avail *availability.Service, workflow *booking.Workflow, database *db.DB, logger *zerolog.Logger) *HTTPServer {
	perMinute := cfg.Submit.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := cfg.Submit.Burst
	if burst <= 0 {
		burst = 10
	}
	return &HTTPServer{
		cfg:      cfg,
		avail:    avail,
		workflow: workflow,
		database: database,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		logger:   logger,
	}
}

// Handler returns the route table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pages/", s.handlePageAvailability)
	mux.HandleFunc("/api/preview", s.handleSlotPreview)
	mux.HandleFunc("/api/requests", s.handleSubmitRequest)
	mux.HandleFunc("/confirm", s.handleConfirm)
	mux.HandleFunc("/admin/bookings.xlsx", s.handleExportBookings)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
