package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/partyline/partyline/internal/database/models"
)

// recordingRepo implements RecordingRepository.
type recordingRepo struct {
	db *DB
}

// NewRecordingRepository creates a new RecordingRepository.
func NewRecordingRepository(db *DB) RecordingRepository {
	return &recordingRepo{db: db}
}

// Create inserts a new recording.
func (r *recordingRepo) Create(ctx context.Context, rec *models.Recording) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recordings (id, call_sid, url, is_published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, datetime('now'), datetime('now'))`,
		rec.ID, rec.CallSID, rec.URL, rec.IsPublished,
	)
	if err != nil {
		return fmt.Errorf("inserting recording: %w", err)
	}
	return nil
}

// GetByID returns a recording by ID, or nil if it does not exist.
func (r *recordingRepo) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, call_sid, url, is_published, created_at, updated_at
		 FROM recordings WHERE id = ?`, id,
	))
}

// Update replaces a recording's publish state.
func (r *recordingRepo) Update(ctx context.Context, rec *models.Recording) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recordings SET is_published = ?, updated_at = datetime('now') WHERE id = ?`,
		rec.IsPublished, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating recording: %w", err)
	}
	return nil
}

// Delete removes a recording by ID.
func (r *recordingRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting recording: %w", err)
	}
	return nil
}

// ListPublishedSince returns published recordings created at or after the
// given time, newest first.
func (r *recordingRepo) ListPublishedSince(ctx context.Context, since time.Time) ([]models.Recording, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, call_sid, url, is_published, created_at, updated_at
		 FROM recordings
		 WHERE is_published = 1 AND created_at >= ?
		 ORDER BY created_at DESC`,
		since.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent recordings: %w", err)
	}
	defer rows.Close()

	var recs []models.Recording
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(&rec.ID, &rec.CallSID, &rec.URL, &rec.IsPublished,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning recording row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteUnpublishedBefore removes unpublished recordings older than the cutoff.
func (r *recordingRepo) DeleteUnpublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM recordings WHERE is_published = 0 AND created_at < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting stale recordings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted recordings: %w", err)
	}
	return n, nil
}

// Count returns the total recording count.
func (r *recordingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recordings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting recordings: %w", err)
	}
	return n, nil
}

// CountPublished returns the published recording count.
func (r *recordingRepo) CountPublished(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recordings WHERE is_published = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting published recordings: %w", err)
	}
	return n, nil
}

func (r *recordingRepo) scanOne(row *sql.Row) (*models.Recording, error) {
	var rec models.Recording
	err := row.Scan(&rec.ID, &rec.CallSID, &rec.URL, &rec.IsPublished,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning recording: %w", err)
	}
	return &rec, nil
}
