package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"slotlink/internal/model"
)

// CreatePendingRequest stores a new pending request keyed by token.
func (db *DB) CreatePendingRequest(ctx context.Context, r *model.PendingRequest) error {
	if r == nil {
		return fmt.Errorf("pending request is nil")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO pending_requests (
			token, page_ref, name, contact, reason, notes,
			start_time, end_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Token, r.PageRef, r.Name, r.Contact, r.Reason, r.Notes,
		r.Start, r.End, r.CreatedAt,
	)
	return err
}

// TakePendingRequest atomically fetches and removes the pending request
// for token. The select and delete run in one transaction, so of two
// concurrent confirm attempts exactly one receives the row; the other
// gets sql.ErrNoRows, same as a token that never existed.
func (db *DB) TakePendingRequest(ctx context.Context, token string) (*model.PendingRequest, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin take: %w", err)
	}
	defer tx.Rollback()

	var r model.PendingRequest
	var notes sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT token, page_ref, name, contact, reason, notes,
		       start_time, end_time, created_at
		FROM pending_requests WHERE token = ?`,
		token,
	).Scan(
		&r.Token, &r.PageRef, &r.Name, &r.Contact, &r.Reason, &notes,
		&r.Start, &r.End, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		r.Notes = notes.String
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM pending_requests WHERE token = ?", token)
	if err != nil {
		return nil, fmt.Errorf("delete pending: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit take: %w", err)
	}
	return &r, nil
}

// PurgeExpiredPending removes pending requests created before cutoff.
func (db *DB) PurgeExpiredPending(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		"DELETE FROM pending_requests WHERE created_at < ?", cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountPending returns the number of pending requests.
func (db *DB) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_requests").Scan(&n)
	return n, err
}
