package save

import (
	"context"

	"github.com/levelkit/textquest/pkg/state"
)

// Store persists encoded game states under named slots.
type Store interface {
	// Save writes the state to the slot, replacing any previous save.
	Save(ctx context.Context, slot string, gs *state.GameState) error
	// Load returns the state stored in the slot, or (nil, nil) when the
	// slot is empty. A corrupt blob returns a *CorruptSaveError.
	Load(ctx context.Context, slot string) (*state.GameState, error)
	// Delete removes the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, slot string) error
	Close() error
}
