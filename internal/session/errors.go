package session

import (
	"errors"
	"fmt"
)

// InvalidStateError indicates the session was asked to start in an
// unregistered room or from an unusable restored snapshot.
type InvalidStateError struct {
	RoomID string
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.RoomID != "" {
		return fmt.Sprintf("invalid session state: room %q: %s", e.RoomID, e.Reason)
	}
	return "invalid session state: " + e.Reason
}

// OptionOutOfRangeError indicates a caller bug: the chosen option index is
// beyond the current room's option list.
type OptionOutOfRangeError struct {
	Index int
	Count int
}

func (e *OptionOutOfRangeError) Error() string {
	return fmt.Sprintf("option index %d out of range (room has %d options)", e.Index, e.Count)
}

// ItemNotOwnedError indicates an attempt to use an item the player does
// not hold.
type ItemNotOwnedError struct {
	ItemID string
}

func (e *ItemNotOwnedError) Error() string {
	return fmt.Sprintf("item %q is not in the inventory", e.ItemID)
}

var (
	// ErrBattleInProgress is returned when a room-level call arrives while
	// a battle is unresolved.
	ErrBattleInProgress = errors.New("a battle is in progress")
	// ErrNoBattle is returned when a battle-level call arrives outside a battle.
	ErrNoBattle = errors.New("no battle in progress")
	// ErrNotStarted is the panic value when the session is used before
	// Start; calling in that order is a caller bug, not a runtime condition.
	ErrNotStarted = errors.New("session not started")
)
