package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"slotlink/internal/booking"
	"slotlink/internal/export"
)

// SubmitRequest is the request body for POST /api/requests.
type SubmitRequest struct {
	PageRef string    `json:"page_ref"`
	Name    string    `json:"name"`
	Contact string    `json:"contact"`
	Reason  string    `json:"reason"`
	Notes   string    `json:"notes,omitempty"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// SubmitResponse is returned after a request is accepted; the booking
// only materializes once the confirmation link is used.
type SubmitResponse struct {
	Token string `json:"token"`
}

// handleSubmitRequest serves POST /api/requests.
func (s *HTTPServer) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
		return
	}

	var req SubmitRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if s.cfg.PageByRef(req.PageRef) == nil {
		writeError(w, http.StatusNotFound, "unknown page")
		return
	}

	token, err := s.workflow.Submit(r.Context(), booking.SubmitInput{
		PageRef: req.PageRef,
		Name:    req.Name,
		Contact: req.Contact,
		Reason:  req.Reason,
		Notes:   req.Notes,
		Start:   req.Start,
		End:     req.End,
	})
	if err != nil {
		if errors.Is(err, booking.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("request submission failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{Token: token})
}

// handleConfirm serves GET /confirm?token=...
func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	b, err := s.workflow.Confirm(r.Context(), token)
	if err != nil {
		if errors.Is(err, booking.ErrTokenNotFound) {
			// One response for used, expired and never-existed.
			writeError(w, http.StatusGone, booking.ErrTokenNotFound.Error())
			return
		}
		s.logger.Error().Err(err).Msg("confirmation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "confirmed",
		"booking": b,
	})
}

// handleExportBookings serves GET /admin/bookings.xlsx.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	if s.cfg.Admin.APIKey == "" || r.Header.Get("X-API-Key") != s.cfg.Admin.APIKey {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	bookings, err := s.database.ListBookings(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("bookings export query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := export.WriteBookings(w, bookings); err != nil {
		s.logger.Error().Err(err).Msg("bookings export write failed")
	}
}
