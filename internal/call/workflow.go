package call

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/partyline/partyline/internal/database"
	"github.com/partyline/partyline/internal/database/models"
)

// ErrRecordingNotFound is returned when a recording referenced by a webhook
// callback no longer exists (e.g. a stale retry after deletion).
var ErrRecordingNotFound = errors.New("recording not found")

// recordingWorkflow encapsulates the recording operations the state machine
// uses: create, publish, delete, and the recent-published random sample.
type recordingWorkflow struct {
	store database.RecordingRepository
}

func newRecordingWorkflow(store database.RecordingRepository) *recordingWorkflow {
	return &recordingWorkflow{store: store}
}

// Create persists a new, unpublished recording for a call.
func (w *recordingWorkflow) Create(ctx context.Context, callSID, url string) (*models.Recording, error) {
	rec := &models.Recording{
		ID:      uuid.NewString(),
		CallSID: callSID,
		URL:     url,
	}
	if err := w.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving recording for call %s: %w", callSID, err)
	}
	return rec, nil
}

// Publish marks a recording as published. Publishing an already-published
// recording is a no-op, so retried callbacks are harmless.
func (w *recordingWorkflow) Publish(ctx context.Context, id string) error {
	rec, err := w.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("publishing recording %s: %w", id, ErrRecordingNotFound)
	}
	if rec.IsPublished {
		return nil
	}
	rec.IsPublished = true
	return w.store.Update(ctx, rec)
}

// Delete removes a recording. Deleting a missing recording is a no-op.
func (w *recordingWorkflow) Delete(ctx context.Context, id string) error {
	return w.store.Delete(ctx, id)
}

// RecentPublishedRandom returns a uniformly random published recording from
// the last 24 hours, or nil when none qualifies.
func (w *recordingWorkflow) RecentPublishedRandom(ctx context.Context) (*models.Recording, error) {
	recent, err := w.store.ListPublishedSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, nil
	}
	rec := recent[rand.IntN(len(recent))]
	return &rec, nil
}
