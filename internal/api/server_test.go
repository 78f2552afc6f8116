package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"slotlink/internal/availability"
	"slotlink/internal/booking"
	"slotlink/internal/config"
	"slotlink/internal/db"
	"slotlink/internal/ics"
	"slotlink/internal/model"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.BaseURL = "https://book.example.com"
	cfg.Admin.APIKey = "test-key"
	cfg.Pages = []model.Page{{
		Ref:   "dr-ivanova",
		Title: "Dr. Ivanova",
		Settings: model.AvailabilitySettings{
			SlotDurationMinutes: 30,
			MinNoticeHours:      0,
			IncludeWeekends:     true,
			DateRangeDays:       2,
			WorkdayStartHour:    9,
			WorkdayEndHour:      17,
		},
	}}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*HTTPServer, *db.DB) {
	t.Helper()

	logger := zerolog.Nop()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "api.db"))
	database, err := db.NewDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	fetcher := ics.NewFetcher(time.Second, nil, &logger)
	avail := availability.NewService(fetcher, &logger)
	workflow := booking.NewWorkflow(database, &noopNotifier{}, time.Hour, 5*time.Minute, cfg.Server.BaseURL, &logger)

	return NewHTTPServer(cfg, avail, workflow, database, &logger), database
}

type noopNotifier struct{}

func (noopNotifier) SendConfirmationLink(_ context.Context, _ string, _ string, _ *model.PendingRequest) error {
	return nil
}
func (noopNotifier) NotifyOwner(_ context.Context, _ *model.Booking) error { return nil }

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPageAvailabilityEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/pages/dr-ivanova/availability", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got availability.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Slots, "a page without feeds offers the full grid")
	assert.Empty(t, got.Warnings)
}

func TestPageAvailabilityUnknownPage(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/pages/nobody/availability", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageAvailabilityBadPath(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, "/api/pages/dr-ivanova", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doJSON(t, h, http.MethodPost, "/api/pages/dr-ivanova/availability", nil).Code)
}

func TestSlotPreviewEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/preview", PreviewRequest{
		Settings: testConfig().Pages[0].Settings,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got availability.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Slots)
}

func TestSlotPreviewRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/preview", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Valid JSON, invalid settings.
	rec = doJSON(t, h, http.MethodPost, "/api/preview", PreviewRequest{
		Settings: model.AvailabilitySettings{SlotDurationMinutes: -1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func submitBody() SubmitRequest {
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	return SubmitRequest{
		PageRef: "dr-ivanova",
		Name:    "Anna Petrova",
		Contact: "anna@example.com",
		Reason:  "follow-up consultation",
		Start:   start,
		End:     start.Add(30 * time.Minute),
	}
}

func TestSubmitAndConfirmFlow(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/requests", submitBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	rec = doJSON(t, h, http.MethodGet, "/confirm?token="+resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var confirm struct {
		Status  string        `json:"status"`
		Booking model.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirm))
	assert.Equal(t, "confirmed", confirm.Status)
	assert.Equal(t, "Anna Petrova", confirm.Booking.Name)

	// The link is single-use.
	rec = doJSON(t, h, http.MethodGet, "/confirm?token="+resp.Token, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestSubmitRejections(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	unknown := submitBody()
	unknown.PageRef = "nobody"
	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodPost, "/api/requests", unknown).Code)

	invalid := submitBody()
	invalid.Reason = "no"
	assert.Equal(t, http.StatusBadRequest, doJSON(t, h, http.MethodPost, "/api/requests", invalid).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(`{"page_ref": "dr-ivanova", "bogus": 1}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestSubmitRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Submit.RatePerMinute = 1
	cfg.Submit.Burst = 1
	srv, _ := newTestServer(t, cfg)
	h := srv.Handler()

	first := doJSON(t, h, http.MethodPost, "/api/requests", submitBody())
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, h, http.MethodPost, "/api/requests", submitBody())
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestConfirmMissingToken(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	assert.Equal(t, http.StatusBadRequest, doJSON(t, h, http.MethodGet, "/confirm", nil).Code)
	assert.Equal(t, http.StatusGone, doJSON(t, h, http.MethodGet, "/confirm?token=never-issued", nil).Code)
}

func TestExportBookings(t *testing.T) {
	srv, database := newTestServer(t, testConfig())
	h := srv.Handler()

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, database.CreateBooking(context.Background(), &model.Booking{
		ID: "b-1", PageRef: "dr-ivanova", Name: "Anna Petrova",
		Contact: "anna@example.com", Reason: "follow-up consultation",
		Start: start, End: start.Add(30 * time.Minute), CreatedAt: start,
	}))

	// Without the key the export is off limits.
	rec := doJSON(t, h, http.MethodGet, "/admin/bookings.xlsx", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/bookings.xlsx", nil)
	req.Header.Set("X-API-Key", "test-key")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bookings.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b-1", rows[1][0])
}
