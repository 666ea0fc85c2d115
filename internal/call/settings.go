package call

import (
	"context"
	"fmt"

	"github.com/partyline/partyline/internal/database"
	"github.com/partyline/partyline/internal/database/models"
)

// settingsProvider lazily materializes the global settings singleton. On
// first access it seeds the record from static defaults: any caller allowed,
// surprise numbers taken from configuration, popularity sort off.
type settingsProvider struct {
	store           database.GlobalSettingsRepository
	id              string
	surpriseNumbers []string
}

// GetOrInit returns the stored settings, seeding them if absent. The seed
// goes through the store's atomic insert-if-absent, so concurrent first
// accesses agree on one record.
func (s *settingsProvider) GetOrInit(ctx context.Context) (*models.GlobalSettings, error) {
	existing, err := s.store.Get(ctx, s.id)
	if err != nil {
		return nil, fmt.Errorf("loading global settings: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	seeded, err := s.store.InsertIfAbsent(ctx, &models.GlobalSettings{
		ID:               s.id,
		AllowedCallers:   []string{"*"},
		SurpriseNumbers:  s.surpriseNumbers,
		SortByPopularity: false,
	})
	if err != nil {
		return nil, fmt.Errorf("seeding global settings: %w", err)
	}
	return seeded, nil
}
