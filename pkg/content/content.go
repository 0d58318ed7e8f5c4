// Package content holds the immutable declarative content model: rooms,
// options, battles, items and asset registries. Units are authored as JSON
// files and never mutated after registration.
package content

// Requirement gates an option on the player's inventory or flags.
// A zero Requirement gates nothing.
type Requirement struct {
	Item    string `json:"item,omitempty"`     // player must hold this item
	Flag    string `json:"flag,omitempty"`     // flag must be set
	NotFlag string `json:"not_flag,omitempty"` // flag must not be set
}

// IsZero reports whether the requirement gates nothing.
func (r Requirement) IsZero() bool {
	return r.Item == "" && r.Flag == "" && r.NotFlag == ""
}

// OptionSpec is a single player-selectable choice within a room.
type OptionSpec struct {
	Label     string       `json:"label"`
	To        string       `json:"to,omitempty"`        // destination room id
	BattleID  string       `json:"battle_id,omitempty"` // battle triggered by this option
	Hint      string       `json:"hint,omitempty"`
	Requires  *Requirement `json:"requires,omitempty"`
	GainItems []string     `json:"gain_items,omitempty"` // item ids granted when chosen
	SetFlag   string       `json:"set_flag,omitempty"`
	ClearFlag string       `json:"clear_flag,omitempty"`
	EquipItem string       `json:"equip_item,omitempty"` // weapon id equipped when chosen
}

// RoomSpec is a narrative node in the content graph.
type RoomSpec struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Body          string       `json:"body"`
	BackgroundKey string       `json:"background_key,omitempty"` // image registry key
	MusicKey      string       `json:"music_key,omitempty"`      // sound registry key
	Options       []OptionSpec `json:"options"`
}

// Enemy is the opposing combatant of a battle.
type Enemy struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Health  int      `json:"health"`
	Attack  int      `json:"attack"`
	Defense int      `json:"defense"`
	Loot    []string `json:"loot,omitempty"` // item ids granted on victory
}

// ActionKind selects the resolution rule for a battle action.
type ActionKind string

const (
	ActionAttack     ActionKind = "attack"      // attack stat + bonus through variance/crit
	ActionSkillCheck ActionKind = "skill_check" // stat vs threshold, fixed damage/heal
	ActionCast       ActionKind = "cast"        // spends mana, then resolves like attack
)

// BattleAction is one player-available move in a battle.
type BattleAction struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
	Bonus int        `json:"bonus,omitempty"` // added to attack for attack/cast kinds

	// skill_check fields
	Stat          string `json:"stat,omitempty"` // player stat to test
	GTE           int    `json:"gte,omitempty"`  // success threshold
	SuccessDamage int    `json:"success_damage,omitempty"`
	FailDamage    int    `json:"fail_damage,omitempty"`
	SuccessHeal   int    `json:"success_heal,omitempty"`
	FailHeal      int    `json:"fail_heal,omitempty"`

	ManaCost int `json:"mana_cost,omitempty"` // cast kind only

	// Availability gating. An action with a weapon-type requirement is
	// locked until a weapon of that type is equipped; an action with an
	// ammo item consumes it from the inventory on each use.
	RequiresWeaponType string `json:"requires_weapon_type,omitempty"` // "melee" or "ranged"
	AmmoItem           string `json:"ammo_item,omitempty"`
	AmmoCost           int    `json:"ammo_cost,omitempty"` // per use; defaults to 1 when ammo_item is set
}

// BattleSpec is a turn-based encounter. DefeatRoomID falls back to the
// configured global defeat room when empty.
type BattleSpec struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Enemy         Enemy          `json:"enemy"`
	Actions       []BattleAction `json:"actions"`
	VictoryRoomID string         `json:"victory_room_id,omitempty"`
	DefeatRoomID  string         `json:"defeat_room_id,omitempty"`
	VictoryText   string         `json:"victory_text,omitempty"`
	DefeatText    string         `json:"defeat_text,omitempty"`
	XPReward      int            `json:"xp_reward,omitempty"` // overrides the tuning default when set
	AllowFlee     bool           `json:"allow_flee,omitempty"`
}

// ItemKind categorizes items. Weapons are equippable; their attack and
// defense bonuses apply while equipped.
type ItemKind string

const (
	ItemConsumable ItemKind = "consumable"
	ItemWeapon     ItemKind = "weapon"
	ItemArmour     ItemKind = "armour"
	ItemQuest      ItemKind = "quest"
)

// ItemSpec describes an inventory item or weapon.
type ItemSpec struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Kind         ItemKind `json:"kind"`
	AttackBonus  int      `json:"attack_bonus,omitempty"`
	DefenseBonus int      `json:"defense_bonus,omitempty"`
	HealAmount   int      `json:"heal_amount,omitempty"`
	ManaAmount   int      `json:"mana_amount,omitempty"`
	Consumable   bool     `json:"consumable,omitempty"`
	WeaponType   string   `json:"weapon_type,omitempty"` // "melee" or "ranged"
}
