package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/partyline/partyline/internal/database/models"
)

// callSessionRepo implements CallSessionRepository.
type callSessionRepo struct {
	db *DB
}

// NewCallSessionRepository creates a new CallSessionRepository.
func NewCallSessionRepository(db *DB) CallSessionRepository {
	return &callSessionRepo{db: db}
}

// Create inserts a new call session.
func (r *callSessionRepo) Create(ctx context.Context, s *models.CallSession) error {
	candidates, err := marshalCandidates(s.SongCandidates)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO call_sessions (id, call_sid, persona, song_candidates, created_at, updated_at)
		 VALUES (?, ?, ?, ?, datetime('now'), datetime('now'))`,
		s.ID, s.CallSID, s.Persona, candidates,
	)
	if err != nil {
		return fmt.Errorf("inserting call session: %w", err)
	}
	return nil
}

// GetByCallSID returns the session for a call SID, or nil if none exists.
func (r *callSessionRepo) GetByCallSID(ctx context.Context, callSID string) (*models.CallSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, call_sid, persona, song_candidates, created_at, updated_at
		 FROM call_sessions WHERE call_sid = ?`, callSID,
	)

	var s models.CallSession
	var candidates sql.NullString
	err := row.Scan(&s.ID, &s.CallSID, &s.Persona, &candidates, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning call session: %w", err)
	}
	if candidates.Valid {
		if err := json.Unmarshal([]byte(candidates.String), &s.SongCandidates); err != nil {
			return nil, fmt.Errorf("decoding song candidates: %w", err)
		}
	}
	return &s, nil
}

// Update replaces the session's mutable fields (the song candidate cache).
func (r *callSessionRepo) Update(ctx context.Context, s *models.CallSession) error {
	candidates, err := marshalCandidates(s.SongCandidates)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE call_sessions SET song_candidates = ?, updated_at = datetime('now') WHERE id = ?`,
		candidates, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating call session: %w", err)
	}
	return nil
}

// Count returns the total number of sessions ever created.
func (r *callSessionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting call sessions: %w", err)
	}
	return n, nil
}

// marshalCandidates encodes the candidate list for storage. A nil list maps
// to SQL NULL so that "never searched" survives the round trip; an empty
// non-nil list is stored as "[]".
func marshalCandidates(tracks []models.Track) (sql.NullString, error) {
	if tracks == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(tracks)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding song candidates: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}
