package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"slotlink/internal/model"
)

// CreateBooking inserts a confirmed booking. Bookings are append-only;
// there is no update path.
func (db *DB) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b == nil {
		return fmt.Errorf("booking is nil")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO bookings (
			id, page_ref, name, contact, reason, notes,
			start_time, end_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.PageRef, b.Name, b.Contact, b.Reason, b.Notes,
		b.Start, b.End, b.CreatedAt,
	)
	return err
}

// GetBooking returns a booking by id.
func (db *DB) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, page_ref, name, contact, reason, notes,
		       start_time, end_time, created_at
		FROM bookings WHERE id = ?`, id,
	)
	return scanBooking(row)
}

// ListBookings returns all bookings ordered by start time.
func (db *DB) ListBookings(ctx context.Context) ([]model.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, page_ref, name, contact, reason, notes,
		       start_time, end_time, created_at
		FROM bookings ORDER BY start_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// DeleteOldBookings removes bookings that ended before cutoff. Used by
// the optional retention cleanup.
func (db *DB) DeleteOldBookings(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM bookings WHERE end_time < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var notes sql.NullString
	err := row.Scan(
		&b.ID, &b.PageRef, &b.Name, &b.Contact, &b.Reason, &notes,
		&b.Start, &b.End, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		b.Notes = notes.String
	}
	return &b, nil
}
