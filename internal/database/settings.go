package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/partyline/partyline/internal/database/models"
)

// globalSettingsRepo implements GlobalSettingsRepository.
type globalSettingsRepo struct {
	db *DB
}

// NewGlobalSettingsRepository creates a new GlobalSettingsRepository.
func NewGlobalSettingsRepository(db *DB) GlobalSettingsRepository {
	return &globalSettingsRepo{db: db}
}

// Get returns the settings record for the given ID, or nil if absent.
func (r *globalSettingsRepo) Get(ctx context.Context, id string) (*models.GlobalSettings, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, allowed_callers, surprise_numbers, sort_by_popularity, created_at, updated_at
		 FROM global_settings WHERE id = ?`, id,
	))
}

// InsertIfAbsent seeds the settings row using INSERT OR IGNORE, then reads
// back whichever row won. Two concurrent first-accesses cannot both insert.
func (r *globalSettingsRepo) InsertIfAbsent(ctx context.Context, settings *models.GlobalSettings) (*models.GlobalSettings, error) {
	allowed, err := json.Marshal(settings.AllowedCallers)
	if err != nil {
		return nil, fmt.Errorf("encoding allowed callers: %w", err)
	}
	surprise, err := json.Marshal(settings.SurpriseNumbers)
	if err != nil {
		return nil, fmt.Errorf("encoding surprise numbers: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO global_settings
		 (id, allowed_callers, surprise_numbers, sort_by_popularity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, datetime('now'), datetime('now'))`,
		settings.ID, string(allowed), string(surprise), settings.SortByPopularity,
	)
	if err != nil {
		return nil, fmt.Errorf("seeding global settings: %w", err)
	}

	stored, err := r.Get(ctx, settings.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("global settings %s missing after seed", settings.ID)
	}
	return stored, nil
}

func (r *globalSettingsRepo) scanOne(row *sql.Row) (*models.GlobalSettings, error) {
	var g models.GlobalSettings
	var allowed, surprise string
	err := row.Scan(&g.ID, &allowed, &surprise, &g.SortByPopularity, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning global settings: %w", err)
	}
	if err := json.Unmarshal([]byte(allowed), &g.AllowedCallers); err != nil {
		return nil, fmt.Errorf("decoding allowed callers: %w", err)
	}
	if err := json.Unmarshal([]byte(surprise), &g.SurpriseNumbers); err != nil {
		return nil, fmt.Errorf("decoding surprise numbers: %w", err)
	}
	return &g, nil
}
