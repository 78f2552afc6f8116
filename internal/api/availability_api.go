package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"slotlink/internal/availability"
	"slotlink/internal/model"
)

// handlePageAvailability serves the authoritative availability view.
// GET /api/pages/{ref}/availability
func (s *HTTPServer) handlePageAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/pages/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "availability" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	page := s.cfg.PageByRef(parts[0])
	if page == nil {
		writeError(w, http.StatusNotFound, "unknown page")
		return
	}

	result, err := s.avail.GetAvailability(r.Context(), page, time.Now())
	if err != nil {
		if errors.Is(err, availability.ErrAllFeedsFailed) {
			writeError(w, http.StatusBadGateway, "calendar feeds are unavailable, try again later")
			return
		}
		s.logger.Error().Err(err).Str("page", page.Ref).Msg("availability computation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// PreviewRequest lets the owner preview the slot grid while editing
// settings. It runs the same generator as the authoritative view, so
// the two cannot drift.
type PreviewRequest struct {
	Settings  model.AvailabilitySettings `json:"settings"`
	FeedTexts []string                   `json:"feed_texts,omitempty"`
}

// handleSlotPreview serves POST /api/preview.
func (s *HTTPServer) handleSlotPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req PreviewRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	slots, warnings, err := s.avail.Compute(req.Settings, req.FeedTexts, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, availability.Availability{Slots: slots, Warnings: warnings})
}
