// Package battle resolves turn-based encounters. The engine owns only the
// ephemeral battle runtime state: it receives a read-only snapshot of the
// player's stats, works on copies, and reports an outcome for the session
// controller to apply. Randomness is injected so resolution is fully
// deterministic under test.
package battle

import (
	"errors"
	"fmt"
	"math"

	"github.com/levelkit/textquest/internal/config"
	"github.com/levelkit/textquest/pkg/content"
)

// State is the battle state machine position.
type State int

const (
	StatePlayerTurn State = iota
	StateEnemyTurn
	StateVictory
	StateDefeat
	StateFled
)

func (s State) String() string {
	switch s {
	case StatePlayerTurn:
		return "player_turn"
	case StateEnemyTurn:
		return "enemy_turn"
	case StateVictory:
		return "victory"
	case StateDefeat:
		return "defeat"
	case StateFled:
		return "fled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the battle has resolved.
func (s State) Terminal() bool {
	return s == StateVictory || s == StateDefeat || s == StateFled
}

// Rand is the injected randomness provider. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// PlayerSnapshot carries the effective player numbers at battle start,
// with any equipped weapon bonuses already folded in. WeaponType is the
// equipped weapon's type; Ammo is a working copy of the inventory counts
// that ammo-consuming actions draw down.
type PlayerSnapshot struct {
	Health     int
	MaxHealth  int
	Mana       int
	MaxMana    int
	Attack     int
	Defense    int
	Level      int
	WeaponType string
	Ammo       map[string]int
}

// Actor identifies who resolved a turn log entry.
const (
	ActorPlayer = "player"
	ActorEnemy  = "enemy"
)

// TurnEntry is one resolved action in the battle log.
type TurnEntry struct {
	Turn         int    `json:"turn"`
	Actor        string `json:"actor"`
	Action       string `json:"action"`
	Damage       int    `json:"damage,omitempty"`
	Heal         int    `json:"heal,omitempty"`
	Crit         bool   `json:"crit,omitempty"`
	Text         string `json:"text"`
	PlayerHealth int    `json:"player_health"`
	EnemyHealth  int    `json:"enemy_health"`
}

// Outcome reports a resolved battle. The engine performs no stat mutation
// itself; the session controller applies these deltas.
type Outcome struct {
	Victory      bool
	Fled         bool
	XPGain       int
	Loot         []string
	DamageDealt  int
	DamageTaken  int
	PlayerHealth int // player health at battle end
	PlayerMana   int
	AmmoUsed     map[string]int // item id → count consumed by ammo actions
	NextText     string         // victory or defeat text from the spec
	Log          []TurnEntry
}

var (
	// ErrBattleOver is returned when acting on a resolved battle.
	ErrBattleOver = errors.New("battle already resolved")
	// ErrNotResolved is returned when requesting the outcome of a live battle.
	ErrNotResolved = errors.New("battle not yet resolved")
	// ErrFleeNotAllowed is returned when the battle spec forbids fleeing.
	ErrFleeNotAllowed = errors.New("fleeing is not permitted in this battle")
)

// ActionOutOfRangeError indicates a caller bug: the chosen action index is
// beyond the battle's action list.
type ActionOutOfRangeError struct {
	Index int
	Count int
}

func (e *ActionOutOfRangeError) Error() string {
	return fmt.Sprintf("action index %d out of range (battle has %d actions)", e.Index, e.Count)
}

// Engine runs one battle to a terminal state. It exists only for the
// duration of the encounter.
type Engine struct {
	spec   *content.BattleSpec
	tuning *config.Tuning
	rng    Rand

	state       State
	turn        int
	enemyHealth int
	player      PlayerSnapshot // working copy
	log         []TurnEntry
	dealt       int
	taken       int
	ammoUsed    map[string]int
}

// New starts a battle in PLAYER_TURN with the enemy at full health.
func New(spec *content.BattleSpec, snapshot PlayerSnapshot, tuning *config.Tuning, rng Rand) *Engine {
	return &Engine{
		spec:        spec,
		tuning:      tuning,
		rng:         rng,
		state:       StatePlayerTurn,
		enemyHealth: spec.Enemy.Health,
		player:      snapshot,
	}
}

func (e *Engine) State() State                    { return e.state }
func (e *Engine) Spec() *content.BattleSpec       { return e.spec }
func (e *Engine) EnemyHealth() int                { return e.enemyHealth }
func (e *Engine) PlayerHealth() int               { return e.player.Health }
func (e *Engine) PlayerMana() int                 { return e.player.Mana }
func (e *Engine) Turn() int                       { return e.turn }
func (e *Engine) Log() []TurnEntry                { return e.log }
func (e *Engine) Actions() []content.BattleAction { return e.spec.Actions }

// ActionAvailable reports whether the player can use the action right now,
// with a display reason when not. Mana shortfalls are not part of this:
// a low-mana cast stays selectable and is refused at act time instead.
func (e *Engine) ActionAvailable(action content.BattleAction) (bool, string) {
	if t := action.RequiresWeaponType; t != "" && e.player.WeaponType != t {
		return false, fmt.Sprintf("Requires a %s weapon", t)
	}
	if action.AmmoItem != "" && e.player.Ammo[action.AmmoItem] < ammoCost(action) {
		return false, "Out of ammo"
	}
	return true, ""
}

func ammoCost(action content.BattleAction) int {
	if action.AmmoCost > 0 {
		return action.AmmoCost
	}
	return 1
}

// PlayerAct resolves the chosen player action and, if the battle continues,
// the enemy's response. It returns the resulting state. A cast without
// enough mana, or an action whose weapon or ammo requirement is unmet,
// logs the refusal and does not consume the turn; the refusal entry is
// numbered as the turn it would have opened.
func (e *Engine) PlayerAct(index int) (State, error) {
	if e.state != StatePlayerTurn {
		return e.state, ErrBattleOver
	}
	if index < 0 || index >= len(e.spec.Actions) {
		return e.state, &ActionOutOfRangeError{Index: index, Count: len(e.spec.Actions)}
	}

	action := e.spec.Actions[index]
	if ok, reason := e.ActionAvailable(action); !ok {
		e.append(TurnEntry{
			Turn:   e.turn + 1,
			Actor:  ActorPlayer,
			Action: action.Label,
			Text:   reason + ".",
		})
		return e.state, nil
	}
	if action.Kind == content.ActionCast && e.player.Mana < action.ManaCost {
		e.append(TurnEntry{
			Turn:   e.turn + 1,
			Actor:  ActorPlayer,
			Action: action.Label,
			Text:   fmt.Sprintf("Not enough mana for %s.", action.Label),
		})
		return e.state, nil
	}

	e.turn++
	e.spendAmmo(action)
	e.resolvePlayerAction(action)
	if e.enemyHealth <= 0 {
		e.state = StateVictory
		return e.state, nil
	}

	e.state = StateEnemyTurn
	e.resolveEnemyAttack()
	if e.player.Health <= 0 {
		e.state = StateDefeat
		return e.state, nil
	}

	e.state = StatePlayerTurn
	return e.state, nil
}

// Flee attempts to escape. On failure the enemy gets a free attack.
func (e *Engine) Flee() (State, error) {
	if e.state != StatePlayerTurn {
		return e.state, ErrBattleOver
	}
	if !e.spec.AllowFlee {
		return e.state, ErrFleeNotAllowed
	}

	e.turn++
	if e.rng.Float64() < e.tuning.FleeChance {
		e.append(TurnEntry{
			Turn:  e.turn,
			Actor: ActorPlayer,
			Text:  "You turn and run, slipping out of the fight.",
		})
		e.state = StateFled
		return e.state, nil
	}

	e.append(TurnEntry{
		Turn:  e.turn,
		Actor: ActorPlayer,
		Text:  "You try to run but can't break away!",
	})
	e.state = StateEnemyTurn
	e.resolveEnemyAttack()
	if e.player.Health <= 0 {
		e.state = StateDefeat
		return e.state, nil
	}
	e.state = StatePlayerTurn
	return e.state, nil
}

// Outcome reports the terminal result. XP and loot are granted on victory
// only; applying them is the session controller's job.
func (e *Engine) Outcome() (*Outcome, error) {
	if !e.state.Terminal() {
		return nil, ErrNotResolved
	}
	out := &Outcome{
		Victory:      e.state == StateVictory,
		Fled:         e.state == StateFled,
		DamageDealt:  e.dealt,
		DamageTaken:  e.taken,
		PlayerHealth: e.player.Health,
		PlayerMana:   e.player.Mana,
		AmmoUsed:     e.ammoUsed,
		Log:          e.log,
	}
	switch e.state {
	case StateVictory:
		out.XPGain = e.spec.XPReward
		if out.XPGain == 0 {
			out.XPGain = e.tuning.XPPerVictory
		}
		out.Loot = e.spec.Enemy.Loot
		out.NextText = e.spec.VictoryText
	case StateDefeat:
		out.NextText = e.spec.DefeatText
	}
	return out, nil
}

// spendAmmo draws the action's ammo from the working copy. Availability
// was already checked, so the counts cannot go negative.
func (e *Engine) spendAmmo(action content.BattleAction) {
	if action.AmmoItem == "" {
		return
	}
	cost := ammoCost(action)
	e.player.Ammo[action.AmmoItem] -= cost
	if e.ammoUsed == nil {
		e.ammoUsed = make(map[string]int)
	}
	e.ammoUsed[action.AmmoItem] += cost
}

func (e *Engine) resolvePlayerAction(action content.BattleAction) {
	switch action.Kind {
	case content.ActionSkillCheck:
		e.resolveSkillCheck(action)
	case content.ActionCast:
		e.player.Mana -= action.ManaCost
		damage, crit := e.damageRoll(e.player.Attack+action.Bonus, e.spec.Enemy.Defense)
		e.hitEnemy(damage)
		e.append(TurnEntry{
			Turn: e.turn, Actor: ActorPlayer, Action: action.Label,
			Damage: damage, Crit: crit,
			Text: fmt.Sprintf("You channel energy into %s for %d damage.", action.Label, damage),
		})
	default: // attack
		damage, crit := e.damageRoll(e.player.Attack+action.Bonus, e.spec.Enemy.Defense)
		e.hitEnemy(damage)
		text := fmt.Sprintf("You use %s for %d damage.", action.Label, damage)
		if crit {
			text = fmt.Sprintf("Critical hit! You use %s for %d damage.", action.Label, damage)
		}
		e.append(TurnEntry{
			Turn: e.turn, Actor: ActorPlayer, Action: action.Label,
			Damage: damage, Crit: crit, Text: text,
		})
	}
}

// resolveSkillCheck compares a player stat against a threshold and applies
// the authored fixed damage or healing. No variance or crit applies.
func (e *Engine) resolveSkillCheck(action content.BattleAction) {
	if e.statValue(action.Stat) >= action.GTE {
		e.hitEnemy(action.SuccessDamage)
		e.healPlayer(action.SuccessHeal)
		e.append(TurnEntry{
			Turn: e.turn, Actor: ActorPlayer, Action: action.Label,
			Damage: action.SuccessDamage, Heal: action.SuccessHeal,
			Text: fmt.Sprintf("Success! %s lands.", action.Label),
		})
		return
	}
	e.hitPlayer(action.FailDamage)
	e.healPlayer(action.FailHeal)
	e.append(TurnEntry{
		Turn: e.turn, Actor: ActorPlayer, Action: action.Label,
		Damage: action.FailDamage, Heal: action.FailHeal,
		Text: fmt.Sprintf("Failed check. %s falters.", action.Label),
	})
}

func (e *Engine) resolveEnemyAttack() {
	damage, crit := e.damageRoll(e.spec.Enemy.Attack, e.player.Defense)
	e.hitPlayer(damage)

	text := fmt.Sprintf("%s strikes for %d damage!", e.spec.Enemy.Name, damage)
	if damage == 0 {
		text = fmt.Sprintf("%s's attack glances off your armour.", e.spec.Enemy.Name)
	}
	e.append(TurnEntry{
		Turn: e.turn, Actor: ActorEnemy, Action: "attack",
		Damage: damage, Crit: crit, Text: text,
	})
}

// damageRoll applies the variance multiplier and an independent crit check,
// then subtracts the defender's defense, floored at zero.
func (e *Engine) damageRoll(base, defense int) (damage int, crit bool) {
	roll := float64(base)
	if v := e.tuning.DamageVariance; v > 0 {
		roll *= 1 - v + 2*v*e.rng.Float64()
	}
	if c := e.tuning.CritChance; c > 0 && e.rng.Float64() < c {
		roll *= e.tuning.CritMultiplier
		crit = true
	}
	damage = int(math.Round(roll)) - defense
	if damage < 0 {
		damage = 0
	}
	return damage, crit
}

func (e *Engine) hitEnemy(damage int) {
	if damage <= 0 {
		return
	}
	before := e.enemyHealth
	e.enemyHealth -= damage
	if e.enemyHealth < 0 {
		e.enemyHealth = 0
	}
	e.dealt += before - e.enemyHealth
}

func (e *Engine) hitPlayer(damage int) {
	if damage <= 0 {
		return
	}
	before := e.player.Health
	e.player.Health -= damage
	if e.player.Health < 0 {
		e.player.Health = 0
	}
	e.taken += before - e.player.Health
}

func (e *Engine) healPlayer(amount int) {
	if amount <= 0 {
		return
	}
	e.player.Health += amount
	if e.player.Health > e.player.MaxHealth {
		e.player.Health = e.player.MaxHealth
	}
}

func (e *Engine) statValue(name string) int {
	switch name {
	case "attack":
		return e.player.Attack
	case "defense":
		return e.player.Defense
	case "mana":
		return e.player.Mana
	case "health":
		return e.player.Health
	case "level":
		return e.player.Level
	default:
		return 0
	}
}

func (e *Engine) append(entry TurnEntry) {
	entry.PlayerHealth = e.player.Health
	entry.EnemyHealth = e.enemyHealth
	e.log = append(e.log, entry)
}
