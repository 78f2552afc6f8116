package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotlink/internal/model"
)

func sampleBooking(id string, start time.Time) *model.Booking {
	return &model.Booking{
		ID:        id,
		PageRef:   "dr-ivanova",
		Name:      "Anna Petrova",
		Contact:   "anna@example.com",
		Reason:    "follow-up consultation",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	b := sampleBooking("b-1", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	b.Notes = "first visit"
	require.NoError(t, database.CreateBooking(ctx, b))

	got, err := database.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, b.Name, got.Name)
	assert.Equal(t, b.Notes, got.Notes)
	assert.True(t, b.Start.Equal(got.Start))

	_, err = database.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListBookingsOrderedByStart(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, database.CreateBooking(ctx, sampleBooking("late", day.Add(15*time.Hour))))
	require.NoError(t, database.CreateBooking(ctx, sampleBooking("early", day.Add(9*time.Hour))))
	require.NoError(t, database.CreateBooking(ctx, sampleBooking("mid", day.Add(12*time.Hour))))

	got, err := database.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "late", got[2].ID)
}

func TestDeleteOldBookings(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, database.CreateBooking(ctx, sampleBooking("ancient", now.AddDate(0, -6, 0))))
	require.NoError(t, database.CreateBooking(ctx, sampleBooking("recent", now.AddDate(0, 0, -1))))
	require.NoError(t, database.CreateBooking(ctx, sampleBooking("upcoming", now.AddDate(0, 0, 7))))

	removed, err := database.DeleteOldBookings(ctx, now.AddDate(0, -3, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err := database.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
