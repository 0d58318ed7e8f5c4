// Package session orchestrates a play-through: room transitions, battles,
// inventory use, leveling. The Session is the sole writer of GameState;
// calls must not be interleaved. Content is assumed validated, so registry
// lookups reached through normal play never fail; a failed lookup here is
// a bug in the calling layer or a skipped validation, and panics.
package session

import (
	"fmt"
	"log/slog"

	"github.com/levelkit/textquest/internal/battle"
	"github.com/levelkit/textquest/internal/config"
	"github.com/levelkit/textquest/pkg/content"
	"github.com/levelkit/textquest/pkg/state"
)

// ResultKind classifies what a core call did.
type ResultKind string

const (
	ResultMoved         ResultKind = "moved"          // transitioned to another room
	ResultStayed        ResultKind = "stayed"         // option resolved without a transition
	ResultBlocked       ResultKind = "blocked"        // requirement unmet; nothing changed
	ResultBattleStarted ResultKind = "battle_started" //
	ResultBattleTurn    ResultKind = "battle_turn"    // battle continues
	ResultVictory       ResultKind = "victory"
	ResultDefeat        ResultKind = "defeat"
	ResultFled          ResultKind = "fled"
	ResultItemUsed      ResultKind = "item_used"
)

// Result reports the effect of one core call back to the presentation layer.
type Result struct {
	Kind         ResultKind
	RoomID       string // current room after the call
	Text         string
	Hint         string // set for blocked options
	Battle       *BattleView
	Outcome      *battle.Outcome // set on victory/defeat/fled
	LevelsGained int
}

// BattleView is a read-only snapshot of the running battle for display.
type BattleView struct {
	Title       string
	EnemyName   string
	EnemyHealth int
	EnemyMax    int
	State       battle.State
	Actions     []ActionView
	AllowFlee   bool
	Log         []battle.TurnEntry
}

// ActionView is a display row for one battle action.
type ActionView struct {
	Label     string
	ManaCost  int
	Available bool
	Reason    string // set when unavailable
}

// OptionView is a display row for one room option.
type OptionView struct {
	Label     string
	Hint      string
	Available bool // requirement satisfied
}

// Session owns the game state for one continuous play-through.
type Session struct {
	reg    *content.Registry
	tuning *config.Tuning
	logger *slog.Logger
	rng    battle.Rand

	gs             *state.GameState
	engine         *battle.Engine
	battleOptionTo string // option destination fallback while a battle runs
}

// New creates an unstarted session. rng feeds the battle engine; pass a
// seeded source for reproducible runs.
func New(reg *content.Registry, tuning *config.Tuning, logger *slog.Logger, rng battle.Rand) *Session {
	return &Session{reg: reg, tuning: tuning, logger: logger, rng: rng}
}

// Start begins the session fresh or from a restored snapshot. The restored
// snapshot's room takes precedence over startRoomID when present.
func (s *Session) Start(startRoomID string, restored *state.GameState) error {
	roomID := startRoomID
	if restored != nil && restored.RoomID != "" {
		roomID = restored.RoomID
	}
	if !s.reg.HasRoom(roomID) {
		return &InvalidStateError{RoomID: roomID, Reason: "room is not registered"}
	}

	if restored != nil {
		restored.Normalize()
		s.gs = restored
	} else {
		stats := s.tuning.StartingStats
		if stats.Level == 0 {
			stats.Level = 1
		}
		s.gs = state.New(stats)
	}
	s.gs.RoomID = roomID
	s.engine = nil
	s.battleOptionTo = ""

	s.logger.Info("session started", "session_id", s.gs.ID, "room", roomID, "restored", restored != nil)
	return nil
}

// Room returns the current room spec.
func (s *Session) Room() *content.RoomSpec {
	s.mustStarted()
	return s.mustRoom(s.gs.RoomID)
}

// Options returns the current room's options with availability resolved
// against inventory and flags.
func (s *Session) Options() []OptionView {
	room := s.Room()
	views := make([]OptionView, len(room.Options))
	for i, opt := range room.Options {
		views[i] = OptionView{
			Label:     opt.Label,
			Hint:      opt.Hint,
			Available: s.requirementMet(opt.Requires),
		}
	}
	return views
}

// InBattle reports whether a battle is unresolved.
func (s *Session) InBattle() bool { return s.engine != nil }

// Battle returns a view of the running battle, or nil outside battle.
func (s *Session) Battle() *BattleView {
	if s.engine == nil {
		return nil
	}
	return s.battleView()
}

// Snapshot returns a deep copy of the game state for saving or display.
func (s *Session) Snapshot() *state.GameState {
	s.mustStarted()
	return s.gs.Clone()
}

// Choose activates an option in the current room. Options whose requirement
// is unmet yield a blocked result, not a transition.
func (s *Session) Choose(index int) (*Result, error) {
	s.mustStarted()
	if s.engine != nil {
		return nil, ErrBattleInProgress
	}

	room := s.mustRoom(s.gs.RoomID)
	if index < 0 || index >= len(room.Options) {
		return nil, &OptionOutOfRangeError{Index: index, Count: len(room.Options)}
	}
	opt := room.Options[index]

	if !s.requirementMet(opt.Requires) {
		return &Result{Kind: ResultBlocked, RoomID: s.gs.RoomID, Hint: opt.Hint}, nil
	}

	s.applyOptionEffects(opt)

	if opt.BattleID != "" {
		spec := s.mustBattle(opt.BattleID)
		s.engine = battle.New(spec, s.playerSnapshot(), s.tuning, s.rng)
		s.battleOptionTo = opt.To
		s.logger.Debug("battle started", "battle", spec.ID, "enemy", spec.Enemy.Name)
		return &Result{
			Kind:   ResultBattleStarted,
			RoomID: s.gs.RoomID,
			Text:   fmt.Sprintf("%s prepares to strike!", spec.Enemy.Name),
			Battle: s.battleView(),
		}, nil
	}

	if opt.To != "" {
		s.enterRoom(opt.To)
		return &Result{Kind: ResultMoved, RoomID: s.gs.RoomID}, nil
	}

	return &Result{Kind: ResultStayed, RoomID: s.gs.RoomID}, nil
}

// BattleAct resolves one player battle action (and the enemy's response).
// On a terminal state the outcome is applied to the game state and the
// session routes to the appropriate room.
func (s *Session) BattleAct(index int) (*Result, error) {
	s.mustStarted()
	if s.engine == nil {
		return nil, ErrNoBattle
	}
	st, err := s.engine.PlayerAct(index)
	if err != nil {
		return nil, err
	}
	if !st.Terminal() {
		return &Result{Kind: ResultBattleTurn, RoomID: s.gs.RoomID, Battle: s.battleView()}, nil
	}
	return s.finishBattle()
}

// Flee attempts to escape the running battle.
func (s *Session) Flee() (*Result, error) {
	s.mustStarted()
	if s.engine == nil {
		return nil, ErrNoBattle
	}
	st, err := s.engine.Flee()
	if err != nil {
		return nil, err
	}
	if !st.Terminal() {
		return &Result{Kind: ResultBattleTurn, RoomID: s.gs.RoomID, Battle: s.battleView()}, nil
	}
	return s.finishBattle()
}

// ApplyItem uses or equips an inventory item. Consumables are removed
// after a single use.
func (s *Session) ApplyItem(itemID string) (*Result, error) {
	s.mustStarted()
	if s.engine != nil {
		return nil, ErrBattleInProgress
	}
	if !s.gs.HasItem(itemID) {
		return nil, &ItemNotOwnedError{ItemID: itemID}
	}
	item, err := s.reg.Item(itemID)
	if err != nil {
		// Held item missing from the registry: stale save against changed content.
		return nil, &ItemNotOwnedError{ItemID: itemID}
	}

	switch item.Kind {
	case content.ItemWeapon, content.ItemArmour:
		s.gs.EquippedWeaponID = item.ID
		return &Result{
			Kind:   ResultItemUsed,
			RoomID: s.gs.RoomID,
			Text:   fmt.Sprintf("You equip the %s.", item.Name),
		}, nil
	case content.ItemQuest:
		return &Result{
			Kind:   ResultItemUsed,
			RoomID: s.gs.RoomID,
			Text:   fmt.Sprintf("The %s reveals nothing new.", item.Name),
		}, nil
	default:
		s.gs.Heal(item.HealAmount)
		s.gs.RestoreMana(item.ManaAmount)
		if item.Consumable {
			s.gs.RemoveItem(item.ID, 1)
		}
		return &Result{
			Kind:   ResultItemUsed,
			RoomID: s.gs.RoomID,
			Text:   fmt.Sprintf("You use the %s.", item.Name),
		}, nil
	}
}

func (s *Session) finishBattle() (*Result, error) {
	out, err := s.engine.Outcome()
	if err != nil {
		return nil, err
	}
	spec := s.engine.Spec()
	optionTo := s.battleOptionTo

	// Battle runtime state is discarded the instant the battle resolves.
	s.engine = nil
	s.battleOptionTo = ""

	s.gs.Stats.Health = out.PlayerHealth
	s.gs.Stats.Mana = out.PlayerMana
	for itemID, n := range out.AmmoUsed {
		s.gs.RemoveItem(itemID, n)
	}

	switch {
	case out.Victory:
		s.gs.Stats.XP += out.XPGain
		for _, itemID := range out.Loot {
			s.gs.AddItem(itemID, 1)
		}
		levels := s.applyLeveling()
		next := spec.VictoryRoomID
		if next == "" {
			next = optionTo
		}
		if next != "" {
			s.enterRoom(next)
		}
		s.logger.Info("battle won", "battle", spec.ID, "xp", out.XPGain, "levels", levels)
		return &Result{
			Kind: ResultVictory, RoomID: s.gs.RoomID,
			Text: out.NextText, Outcome: out, LevelsGained: levels,
		}, nil

	case out.Fled:
		s.logger.Debug("battle fled", "battle", spec.ID)
		return &Result{Kind: ResultFled, RoomID: s.gs.RoomID, Outcome: out}, nil

	default:
		// A defeated player is routed onward with health restored, never
		// stranded at zero.
		s.gs.Stats.Health = s.gs.Stats.MaxHealth
		next := spec.DefeatRoomID
		if next == "" {
			next = s.tuning.DefeatRoomID
		}
		s.enterRoom(next)
		s.logger.Info("battle lost", "battle", spec.ID, "defeat_room", next)
		return &Result{Kind: ResultDefeat, RoomID: s.gs.RoomID, Text: out.NextText, Outcome: out}, nil
	}
}

func (s *Session) applyOptionEffects(opt content.OptionSpec) {
	for _, itemID := range opt.GainItems {
		s.gs.AddItem(itemID, 1)
	}
	if opt.SetFlag != "" {
		s.gs.SetFlag(opt.SetFlag)
	}
	if opt.ClearFlag != "" {
		s.gs.ClearFlag(opt.ClearFlag)
	}
	if opt.EquipItem != "" {
		s.gs.EquippedWeaponID = opt.EquipItem
	}
}

func (s *Session) requirementMet(req *content.Requirement) bool {
	if req == nil || req.IsZero() {
		return true
	}
	if req.Item != "" && !s.gs.HasItem(req.Item) {
		return false
	}
	if req.Flag != "" && !s.gs.HasFlag(req.Flag) {
		return false
	}
	if req.NotFlag != "" && s.gs.HasFlag(req.NotFlag) {
		return false
	}
	return true
}

// enterRoom transitions and applies per-room mana regen. Fractional regen
// rates accumulate deterministically through the rooms-visited counter.
func (s *Session) enterRoom(roomID string) {
	s.mustRoom(roomID) // invariant: validated content
	s.gs.RoomID = roomID
	s.gs.RoomsVisited++
	if rate := s.tuning.ManaPerRoom; rate > 0 {
		n := s.gs.RoomsVisited
		gain := int(rate*float64(n)) - int(rate*float64(n-1))
		s.gs.RestoreMana(gain)
	}
}

// playerSnapshot folds equipped weapon bonuses into the effective stats
// handed to the battle engine, along with the weapon type and a copy of
// the inventory counts for ammo-consuming actions.
func (s *Session) playerSnapshot() battle.PlayerSnapshot {
	snap := battle.PlayerSnapshot{
		Health:    s.gs.Stats.Health,
		MaxHealth: s.gs.Stats.MaxHealth,
		Mana:      s.gs.Stats.Mana,
		MaxMana:   s.gs.Stats.MaxMana,
		Attack:    s.gs.Stats.Attack,
		Defense:   s.gs.Stats.Defense,
		Level:     s.gs.Stats.Level,
		Ammo:      make(map[string]int, len(s.gs.Inventory)),
	}
	for id, n := range s.gs.Inventory {
		snap.Ammo[id] = n
	}
	if s.gs.EquippedWeaponID == "" {
		return snap
	}
	item, err := s.reg.Item(s.gs.EquippedWeaponID)
	if err != nil {
		s.logger.Warn("equipped weapon missing from registry", "item", s.gs.EquippedWeaponID)
		return snap
	}
	snap.Attack += item.AttackBonus
	snap.Defense += item.DefenseBonus
	snap.WeaponType = item.WeaponType
	return snap
}

func (s *Session) battleView() *BattleView {
	spec := s.engine.Spec()
	actions := make([]ActionView, len(spec.Actions))
	for i, action := range spec.Actions {
		ok, reason := s.engine.ActionAvailable(action)
		actions[i] = ActionView{
			Label:     action.Label,
			ManaCost:  action.ManaCost,
			Available: ok,
			Reason:    reason,
		}
	}
	return &BattleView{
		Title:       spec.Title,
		EnemyName:   spec.Enemy.Name,
		EnemyHealth: s.engine.EnemyHealth(),
		EnemyMax:    spec.Enemy.Health,
		State:       s.engine.State(),
		Actions:     actions,
		AllowFlee:   spec.AllowFlee,
		Log:         s.engine.Log(),
	}
}

func (s *Session) mustStarted() {
	if s.gs == nil {
		panic(ErrNotStarted)
	}
}

func (s *Session) mustRoom(id string) *content.RoomSpec {
	room, err := s.reg.Room(id)
	if err != nil {
		panic(fmt.Sprintf("unvalidated content reached the session: %v", err))
	}
	return room
}

func (s *Session) mustBattle(id string) *content.BattleSpec {
	spec, err := s.reg.Battle(id)
	if err != nil {
		panic(fmt.Sprintf("unvalidated content reached the session: %v", err))
	}
	return spec
}
