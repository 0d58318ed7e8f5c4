// Package save serializes game state to a stable external representation
// and back. Encode/Decode obey the round-trip law: decoding an encoded
// state yields a deep-equal state. Corrupt or schema-mismatched blobs fail
// with CorruptSaveError and never partially populate anything; callers are
// expected to fall back to a fresh session.
package save

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/levelkit/textquest/pkg/state"
)

// SchemaVersion is bumped on any incompatible save format change.
const SchemaVersion = 1

// CorruptSaveError reports an unusable save blob.
type CorruptSaveError struct {
	Reason string
	Err    error
}

func (e *CorruptSaveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt save: %s: %v", e.Reason, e.Err)
	}
	return "corrupt save: " + e.Reason
}

func (e *CorruptSaveError) Unwrap() error { return e.Err }

// envelope wraps the state with versioning metadata. SavedAt is advisory
// and not part of the round-trip contract.
type envelope struct {
	Version int              `json:"version"`
	SavedAt time.Time        `json:"saved_at"`
	State   *state.GameState `json:"state"`
}

// Encode serializes a full game state snapshot.
func Encode(gs *state.GameState) ([]byte, error) {
	if gs == nil {
		return nil, fmt.Errorf("cannot encode nil game state")
	}
	return json.MarshalIndent(envelope{
		Version: SchemaVersion,
		SavedAt: time.Now().UTC(),
		State:   gs,
	}, "", "  ")
}

// Decode is the exact inverse of Encode. Any malformed, unknown-version or
// invariant-violating blob yields a CorruptSaveError.
func Decode(data []byte) (*state.GameState, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var env envelope
	if err := decoder.Decode(&env); err != nil {
		return nil, &CorruptSaveError{Reason: "malformed save data", Err: err}
	}
	if env.Version != SchemaVersion {
		return nil, &CorruptSaveError{
			Reason: fmt.Sprintf("unsupported schema version %d (want %d)", env.Version, SchemaVersion),
		}
	}
	if env.State == nil {
		return nil, &CorruptSaveError{Reason: "missing state"}
	}
	if err := checkInvariants(env.State); err != nil {
		return nil, &CorruptSaveError{Reason: err.Error()}
	}
	env.State.Normalize()
	return env.State, nil
}

func checkInvariants(gs *state.GameState) error {
	st := gs.Stats
	switch {
	case gs.RoomID == "":
		return fmt.Errorf("empty room id")
	case st.MaxHealth <= 0:
		return fmt.Errorf("max health must be positive, got %d", st.MaxHealth)
	case st.Health < 0 || st.Health > st.MaxHealth:
		return fmt.Errorf("health %d outside [0, %d]", st.Health, st.MaxHealth)
	case st.Mana < 0 || st.Mana > st.MaxMana:
		return fmt.Errorf("mana %d outside [0, %d]", st.Mana, st.MaxMana)
	case st.Level < 1:
		return fmt.Errorf("level must be at least 1, got %d", st.Level)
	case st.XP < 0:
		return fmt.Errorf("negative xp %d", st.XP)
	case gs.RoomsVisited < 0:
		return fmt.Errorf("negative rooms visited %d", gs.RoomsVisited)
	}
	for id, n := range gs.Inventory {
		if n <= 0 {
			return fmt.Errorf("non-positive quantity %d for item %q", n, id)
		}
	}
	return nil
}
