// Package state holds the mutable runtime state of one play session.
// GameState is owned exclusively by the session controller; no other
// component mutates it.
package state

import "github.com/google/uuid"

// PlayerStats is the player's stat block. The yaml tags let the tuning file
// author starting stats directly.
type PlayerStats struct {
	Health    int `json:"health" yaml:"health"`
	MaxHealth int `json:"max_health" yaml:"max_health"`
	Mana      int `json:"mana" yaml:"mana"`
	MaxMana   int `json:"max_mana" yaml:"max_mana"`
	Attack    int `json:"attack" yaml:"attack"`
	Defense   int `json:"defense" yaml:"defense"`
	Level     int `json:"level" yaml:"level"`
	XP        int `json:"xp" yaml:"xp"`
}

// GameState is the full mutable state of a session. It is created fresh or
// restored from a save at session start and discarded at exit unless saved.
type GameState struct {
	ID               uuid.UUID       `json:"id"` // unique per session
	RoomID           string          `json:"room_id"`
	Stats            PlayerStats     `json:"stats"`
	Inventory        map[string]int  `json:"inventory"` // item id → quantity
	Flags            map[string]bool `json:"flags"`
	EquippedWeaponID string          `json:"equipped_weapon_id,omitempty"`
	RoomsVisited     int             `json:"rooms_visited"` // drives fractional mana regen
}

// New creates a fresh GameState with the given starting stats.
func New(stats PlayerStats) *GameState {
	return &GameState{
		ID:        uuid.New(),
		Stats:     stats,
		Inventory: make(map[string]int),
		Flags:     make(map[string]bool),
	}
}

// Normalize ensures maps are never nil, e.g. after deserialization.
func (gs *GameState) Normalize() {
	if gs.Inventory == nil {
		gs.Inventory = make(map[string]int)
	}
	if gs.Flags == nil {
		gs.Flags = make(map[string]bool)
	}
}

// TakeDamage reduces health by n. Health cannot go below 0.
func (gs *GameState) TakeDamage(n int) {
	if n <= 0 {
		return
	}
	gs.Stats.Health -= n
	if gs.Stats.Health < 0 {
		gs.Stats.Health = 0
	}
}

// Heal increases health by n. Health cannot exceed MaxHealth.
func (gs *GameState) Heal(n int) {
	if n <= 0 {
		return
	}
	gs.Stats.Health += n
	if gs.Stats.Health > gs.Stats.MaxHealth {
		gs.Stats.Health = gs.Stats.MaxHealth
	}
}

// RestoreMana increases mana by n, clamped to MaxMana.
func (gs *GameState) RestoreMana(n int) {
	if n <= 0 {
		return
	}
	gs.Stats.Mana += n
	if gs.Stats.Mana > gs.Stats.MaxMana {
		gs.Stats.Mana = gs.Stats.MaxMana
	}
}

// AddItem adds n of an item to the inventory.
func (gs *GameState) AddItem(id string, n int) {
	if n <= 0 {
		return
	}
	gs.Inventory[id] += n
}

// RemoveItem removes n of an item, deleting the entry when it reaches zero.
// Returns false if the player does not hold n of the item.
func (gs *GameState) RemoveItem(id string, n int) bool {
	if gs.Inventory[id] < n {
		return false
	}
	gs.Inventory[id] -= n
	if gs.Inventory[id] <= 0 {
		delete(gs.Inventory, id)
	}
	return true
}

// HasItem reports whether the player holds at least one of the item.
func (gs *GameState) HasItem(id string) bool {
	return gs.Inventory[id] > 0
}

func (gs *GameState) SetFlag(name string)      { gs.Flags[name] = true }
func (gs *GameState) ClearFlag(name string)    { delete(gs.Flags, name) }
func (gs *GameState) HasFlag(name string) bool { return gs.Flags[name] }

// Clone returns a deep copy. Used to hand snapshots to callers without
// exposing the session's writable state.
func (gs *GameState) Clone() *GameState {
	cp := *gs
	cp.Inventory = make(map[string]int, len(gs.Inventory))
	for k, v := range gs.Inventory {
		cp.Inventory[k] = v
	}
	cp.Flags = make(map[string]bool, len(gs.Flags))
	for k, v := range gs.Flags {
		cp.Flags[k] = v
	}
	return &cp
}
