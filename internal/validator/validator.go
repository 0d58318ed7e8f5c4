// Package validator statically checks a populated content registry: every
// cross-reference must resolve before a session is allowed to start. It
// never mutates state and reports content problems as a list of issues
// rather than failing on the first one.
package validator

import (
	"fmt"
	"sort"

	"github.com/levelkit/textquest/internal/config"
	"github.com/levelkit/textquest/pkg/content"
)

// Severity splits issues into session-blocking errors and advisories.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Kind classifies a validation issue.
type Kind string

const (
	KindDuplicateID      Kind = "duplicate_id"
	KindMalformedUnit    Kind = "malformed_unit"
	KindMissingStartRoom Kind = "missing_start_room"
	KindDanglingRoom     Kind = "dangling_room"
	KindDanglingBattle   Kind = "dangling_battle"
	KindDanglingItem     Kind = "dangling_item"
	KindMissingAsset     Kind = "missing_asset"
	KindDeadEndBattle    Kind = "dead_end_battle" // battle option with no route to any room
	KindNoActions        Kind = "no_actions"
	KindUnreachableRoom  Kind = "unreachable_room"
)

// Issue is one structured validation finding.
type Issue struct {
	Kind     Kind
	Severity Severity
	OwnerID  string // id of the unit carrying the bad reference
	Ref      string // the id or key that failed to resolve
	Detail   string
}

func (i Issue) String() string {
	s := fmt.Sprintf("%s: %s", i.Severity, i.Kind)
	if i.OwnerID != "" {
		s += fmt.Sprintf(" in %q", i.OwnerID)
	}
	if i.Ref != "" {
		s += fmt.Sprintf(" (ref %q)", i.Ref)
	}
	if i.Detail != "" {
		s += ": " + i.Detail
	}
	return s
}

// HasErrors reports whether any issue is session-blocking.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks all cross-references in the registry against the tuning
// record. An empty result means the content is safe to play: the session
// controller may assume lookups never fail at runtime.
func Validate(reg *content.Registry, tuning *config.Tuning) []Issue {
	v := &checker{reg: reg, tuning: tuning}
	v.checkStart()
	for _, id := range sortedKeys(reg.Rooms()) {
		v.checkRoom(reg.Rooms()[id])
	}
	for _, id := range sortedKeys(reg.Battles()) {
		v.checkBattle(reg.Battles()[id])
	}
	v.checkReachability()
	return v.issues
}

type checker struct {
	reg    *content.Registry
	tuning *config.Tuning
	issues []Issue
}

func (v *checker) add(i Issue) {
	v.issues = append(v.issues, i)
}

func (v *checker) checkStart() {
	if !v.reg.HasRoom(v.tuning.StartRoomID) {
		v.add(Issue{
			Kind:     KindMissingStartRoom,
			OwnerID:  "tuning",
			Ref:      v.tuning.StartRoomID,
			Detail:   "configured start room is not registered",
			Severity: SeverityError,
		})
	}
	if v.tuning.DefeatRoomID != "" && !v.reg.HasRoom(v.tuning.DefeatRoomID) {
		v.add(Issue{
			Kind:     KindDanglingRoom,
			OwnerID:  "tuning",
			Ref:      v.tuning.DefeatRoomID,
			Detail:   "configured default defeat room is not registered",
			Severity: SeverityError,
		})
	}
}

func (v *checker) checkRoom(room *content.RoomSpec) {
	if room.BackgroundKey != "" && !v.reg.HasImage(room.BackgroundKey) {
		v.add(Issue{Kind: KindMissingAsset, OwnerID: room.ID, Ref: room.BackgroundKey,
			Detail: "background key missing from image registry"})
	}
	if room.MusicKey != "" && !v.reg.HasSound(room.MusicKey) {
		v.add(Issue{Kind: KindMissingAsset, OwnerID: room.ID, Ref: room.MusicKey,
			Detail: "music key missing from sound registry"})
	}

	for i, opt := range room.Options {
		where := fmt.Sprintf("option %d (%s)", i, opt.Label)
		if opt.To != "" && !v.reg.HasRoom(opt.To) {
			v.add(Issue{Kind: KindDanglingRoom, OwnerID: room.ID, Ref: opt.To,
				Detail: where + " leads to an unregistered room"})
		}
		if opt.BattleID != "" {
			battle, err := v.reg.Battle(opt.BattleID)
			if err != nil {
				v.add(Issue{Kind: KindDanglingBattle, OwnerID: room.ID, Ref: opt.BattleID,
					Detail: where + " references an unregistered battle"})
			} else if battle.VictoryRoomID == "" && opt.To == "" {
				v.add(Issue{Kind: KindDeadEndBattle, OwnerID: room.ID, Ref: opt.BattleID,
					Detail: where + " has no victory route: battle has no victory room and option has no destination"})
			}
		}
		if opt.Requires != nil && opt.Requires.Item != "" && !v.reg.HasItem(opt.Requires.Item) {
			v.add(Issue{Kind: KindDanglingItem, OwnerID: room.ID, Ref: opt.Requires.Item,
				Detail: where + " requires an unregistered item"})
		}
		for _, itemID := range opt.GainItems {
			if !v.reg.HasItem(itemID) {
				v.add(Issue{Kind: KindDanglingItem, OwnerID: room.ID, Ref: itemID,
					Detail: where + " grants an unregistered item"})
			}
		}
		if opt.EquipItem != "" {
			item, err := v.reg.Item(opt.EquipItem)
			if err != nil {
				v.add(Issue{Kind: KindDanglingItem, OwnerID: room.ID, Ref: opt.EquipItem,
					Detail: where + " equips an unregistered item"})
			} else if item.Kind != content.ItemWeapon {
				v.add(Issue{Kind: KindMalformedUnit, OwnerID: room.ID, Ref: opt.EquipItem,
					Detail: where + " equips an item that is not a weapon"})
			}
		}
	}
}

func (v *checker) checkBattle(battle *content.BattleSpec) {
	if battle.VictoryRoomID != "" && !v.reg.HasRoom(battle.VictoryRoomID) {
		v.add(Issue{Kind: KindDanglingRoom, OwnerID: battle.ID, Ref: battle.VictoryRoomID,
			Detail: "victory room is not registered"})
	}
	if battle.DefeatRoomID != "" && !v.reg.HasRoom(battle.DefeatRoomID) {
		v.add(Issue{Kind: KindDanglingRoom, OwnerID: battle.ID, Ref: battle.DefeatRoomID,
			Detail: "defeat room is not registered"})
	} else if battle.DefeatRoomID == "" && v.tuning.DefeatRoomID == "" {
		v.add(Issue{Kind: KindDanglingRoom, OwnerID: battle.ID,
			Detail: "battle has no defeat room and no global default is configured"})
	}
	if len(battle.Actions) == 0 {
		v.add(Issue{Kind: KindNoActions, OwnerID: battle.ID,
			Detail: "battle defines no player actions"})
	}
	for i, action := range battle.Actions {
		where := fmt.Sprintf("action %d (%s)", i, action.Label)
		if action.AmmoItem != "" && !v.reg.HasItem(action.AmmoItem) {
			v.add(Issue{Kind: KindDanglingItem, OwnerID: battle.ID, Ref: action.AmmoItem,
				Detail: where + " consumes an unregistered ammo item"})
		}
		switch action.RequiresWeaponType {
		case "", "melee", "ranged":
		default:
			v.add(Issue{Kind: KindMalformedUnit, OwnerID: battle.ID, Ref: action.RequiresWeaponType,
				Detail: where + " requires an unknown weapon type"})
		}
	}
	if battle.Enemy.Health <= 0 {
		v.add(Issue{Kind: KindMalformedUnit, OwnerID: battle.ID,
			Detail: "enemy health must be positive"})
	}
	for _, itemID := range battle.Enemy.Loot {
		if !v.reg.HasItem(itemID) {
			v.add(Issue{Kind: KindDanglingItem, OwnerID: battle.ID, Ref: itemID,
				Detail: "enemy loot references an unregistered item"})
		}
	}
}

// checkReachability walks the room graph from the start room following
// option destinations and battle routes. Unreachable rooms are authoring
// smells, not errors.
func (v *checker) checkReachability() {
	rooms := v.reg.Rooms()
	if !v.reg.HasRoom(v.tuning.StartRoomID) {
		return // already reported
	}

	adjacency := make(map[string][]string, len(rooms))
	for id, room := range rooms {
		for _, opt := range room.Options {
			if opt.To != "" {
				adjacency[id] = append(adjacency[id], opt.To)
			}
			if opt.BattleID == "" {
				continue
			}
			battle, err := v.reg.Battle(opt.BattleID)
			if err != nil {
				continue
			}
			if battle.VictoryRoomID != "" {
				adjacency[id] = append(adjacency[id], battle.VictoryRoomID)
			}
			defeatTo := battle.DefeatRoomID
			if defeatTo == "" {
				defeatTo = v.tuning.DefeatRoomID
			}
			if defeatTo != "" {
				adjacency[id] = append(adjacency[id], defeatTo)
			}
		}
	}

	visited := map[string]bool{}
	stack := []string{v.tuning.StartRoomID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		stack = append(stack, adjacency[current]...)
	}

	for _, id := range sortedKeys(rooms) {
		if !visited[id] {
			v.add(Issue{Kind: KindUnreachableRoom, OwnerID: id, Severity: SeverityWarning,
				Detail: "room cannot be reached from the start room"})
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
