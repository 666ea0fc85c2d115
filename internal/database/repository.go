package database

import (
	"context"
	"time"

	"github.com/partyline/partyline/internal/database/models"
)

// CallSessionRepository persists per-call session state keyed by call SID.
type CallSessionRepository interface {
	Create(ctx context.Context, s *models.CallSession) error
	GetByCallSID(ctx context.Context, callSID string) (*models.CallSession, error)
	Update(ctx context.Context, s *models.CallSession) error
	Count(ctx context.Context) (int64, error)
}

// PersonaCursorRepository manages the round-robin persona cursor.
type PersonaCursorRepository interface {
	// NextIndex atomically advances the cursor modulo the persona count and
	// returns the new index. Concurrent callers never observe the same index
	// (single read-modify-write statement at the store layer).
	NextIndex(ctx context.Context, modulo int) (int, error)
}

// GlobalSettingsRepository manages the singleton settings record.
type GlobalSettingsRepository interface {
	Get(ctx context.Context, id string) (*models.GlobalSettings, error)
	// InsertIfAbsent seeds the settings row if no row with the given ID
	// exists, then returns the stored record. Safe under concurrent
	// first-access: exactly one insert wins, all callers see the same row.
	InsertIfAbsent(ctx context.Context, settings *models.GlobalSettings) (*models.GlobalSettings, error)
}

// RecordingRepository manages caller voice messages.
type RecordingRepository interface {
	Create(ctx context.Context, rec *models.Recording) error
	GetByID(ctx context.Context, id string) (*models.Recording, error)
	Update(ctx context.Context, rec *models.Recording) error
	Delete(ctx context.Context, id string) error
	// ListPublishedSince returns published recordings created at or after
	// the given time, newest first.
	ListPublishedSince(ctx context.Context, since time.Time) ([]models.Recording, error)
	// DeleteUnpublishedBefore removes unpublished recordings created before
	// the cutoff and reports how many were deleted.
	DeleteUnpublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountPublished(ctx context.Context) (int64, error)
}
