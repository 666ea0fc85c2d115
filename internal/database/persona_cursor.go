package database

import (
	"context"
	"fmt"
)

// personaCursorRepo implements PersonaCursorRepository over the single-row
// persona_cursor table seeded by the initial migration.
type personaCursorRepo struct {
	db *DB
}

// NewPersonaCursorRepository creates a new PersonaCursorRepository.
func NewPersonaCursorRepository(db *DB) PersonaCursorRepository {
	return &personaCursorRepo{db: db}
}

// NextIndex advances the cursor and returns the new value. The whole
// read-increment-write happens in one UPDATE statement, so two concurrent
// new calls can never draw the same index.
func (r *personaCursorRepo) NextIndex(ctx context.Context, modulo int) (int, error) {
	if modulo <= 0 {
		return 0, fmt.Errorf("persona cursor modulo must be positive, got %d", modulo)
	}

	var idx int
	err := r.db.QueryRowContext(ctx,
		`UPDATE persona_cursor
		 SET last_index = (last_index + 1) % ?, updated_at = datetime('now')
		 WHERE id = 1
		 RETURNING last_index`, modulo,
	).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("advancing persona cursor: %w", err)
	}
	return idx, nil
}
