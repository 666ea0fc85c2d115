package call

import (
	"context"
	"fmt"

	"github.com/partyline/partyline/internal/database"
)

// personaRotator assigns personas to new sessions in round-robin order,
// backed by the persisted cursor so rotation survives restarts and is
// consistent across concurrent new calls.
type personaRotator struct {
	cursor   database.PersonaCursorRepository
	personas []string
}

// Next advances the cursor and returns the corresponding persona name.
func (p *personaRotator) Next(ctx context.Context) (string, error) {
	if len(p.personas) == 0 {
		return "", fmt.Errorf("no personas configured")
	}
	idx, err := p.cursor.NextIndex(ctx, len(p.personas))
	if err != nil {
		return "", fmt.Errorf("rotating persona: %w", err)
	}
	return p.personas[idx], nil
}
