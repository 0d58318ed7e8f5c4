package session

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelkit/textquest/internal/battle"
	"github.com/levelkit/textquest/internal/config"
	"github.com/levelkit/textquest/pkg/content"
	"github.com/levelkit/textquest/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTuning() *config.Tuning {
	// Variance and crits off so battles resolve to fixed numbers.
	return &config.Tuning{
		StartRoomID:    "start",
		DefeatRoomID:   "infirmary",
		CritMultiplier: 2.0,
		FleeChance:     0.5,
		XPPerVictory:   25,
		ManaPerRoom:    0.25,
		StartingStats: state.PlayerStats{
			Health: 20, MaxHealth: 20,
			Mana: 10, MaxMana: 10,
			Attack: 5, Defense: 2, Level: 1,
		},
		LevelUp: config.LevelUp{
			HealthBonus: 5, AttackBonus: 1, DefenseBonus: 1, RestoreOnLevel: true,
		},
		XPCurve: config.XPCurve{
			Requirements: []int{50, 90, 140},
			GrowthFactor: 1.25,
		},
	}
}

func testRegistry(t *testing.T) *content.Registry {
	t.Helper()
	reg := content.NewRegistry()

	rooms := []*content.RoomSpec{
		{
			ID: "start", Title: "Start", Body: "The yard.",
			Options: []content.OptionSpec{
				{Label: "To the hall", To: "hall"},
				{
					Label: "Locked door", To: "vault",
					Hint:     "The door needs a key.",
					Requires: &content.Requirement{Item: "brass_key"},
				},
				{Label: "Pick up the key", GainItems: []string{"brass_key"}},
				{Label: "Fight the goblin", BattleID: "goblin_trial", To: "hall"},
			},
		},
		{
			ID: "hall", Title: "Hall", Body: "A long hall.",
			Options: []content.OptionSpec{
				{Label: "Back", To: "start"},
			},
		},
		{
			ID: "vault", Title: "Vault", Body: "Dusty riches.",
			Options: []content.OptionSpec{
				{Label: "Back", To: "start"},
			},
		},
		{
			ID: "trophy_room", Title: "Trophy Room", Body: "Spoils on the wall.",
			Options: []content.OptionSpec{
				{Label: "Back", To: "start"},
			},
		},
		{
			ID: "infirmary", Title: "Infirmary", Body: "Cots and bandages.",
			Options: []content.OptionSpec{
				{Label: "Back", To: "start"},
			},
		},
	}
	for _, room := range rooms {
		require.NoError(t, reg.AddRoom(room))
	}

	require.NoError(t, reg.AddBattle(&content.BattleSpec{
		ID: "goblin_trial", Title: "Goblin Ambush",
		Enemy: content.Enemy{
			ID: "goblin", Name: "Goblin",
			Health: 15, Attack: 3, Defense: 1,
			Loot: []string{"potion_small"},
		},
		Actions: []content.BattleAction{
			{Kind: content.ActionAttack, Label: "Strike"},
			{
				Kind: content.ActionAttack, Label: "Loose an arrow", Bonus: 2,
				RequiresWeaponType: "ranged", AmmoItem: "arrow",
			},
		},
		VictoryRoomID: "trophy_room",
		XPReward:      50,
		AllowFlee:     true,
	}))

	items := []*content.ItemSpec{
		{ID: "brass_key", Name: "Brass Key", Kind: content.ItemQuest},
		{
			ID: "potion_small", Name: "Small Potion", Kind: content.ItemConsumable,
			HealAmount: 8, Consumable: true,
		},
		{
			ID: "training_sword", Name: "Training Sword", Kind: content.ItemWeapon,
			AttackBonus: 2, WeaponType: "melee",
		},
		{
			ID: "wooden_bow", Name: "Wooden Bow", Kind: content.ItemWeapon,
			AttackBonus: 1, WeaponType: "ranged",
		},
		{ID: "arrow", Name: "Arrow", Kind: content.ItemConsumable},
	}
	for _, item := range items {
		require.NoError(t, reg.AddItem(item))
	}
	return reg
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := New(testRegistry(t), testTuning(), testLogger(), rand.New(rand.NewSource(1)))
	require.NoError(t, s.Start("start", nil))
	return s
}

func TestStartFresh(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, "start", s.Room().ID)
	gs := s.Snapshot()
	assert.Equal(t, 20, gs.Stats.Health)
	assert.Equal(t, 1, gs.Stats.Level)
	assert.Empty(t, gs.Inventory)
	assert.False(t, s.InBattle())
}

func TestStartRestoredSnapshotWins(t *testing.T) {
	s := New(testRegistry(t), testTuning(), testLogger(), rand.New(rand.NewSource(1)))

	restored := state.New(testTuning().StartingStats)
	restored.RoomID = "hall"
	restored.Stats.Health = 7
	require.NoError(t, s.Start("start", restored))

	assert.Equal(t, "hall", s.Room().ID)
	assert.Equal(t, 7, s.Snapshot().Stats.Health)
}

func TestStartUnknownRoom(t *testing.T) {
	s := New(testRegistry(t), testTuning(), testLogger(), rand.New(rand.NewSource(1)))

	err := s.Start("nowhere", nil)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "nowhere", stateErr.RoomID)
}

func TestChooseMove(t *testing.T) {
	s := newTestSession(t)

	res, err := s.Choose(0)
	require.NoError(t, err)
	assert.Equal(t, ResultMoved, res.Kind)
	assert.Equal(t, "hall", res.RoomID)
	assert.Equal(t, "hall", s.Room().ID)
}

func TestChooseBlockedLeavesStateUntouched(t *testing.T) {
	s := newTestSession(t)
	before := s.Snapshot()

	res, err := s.Choose(1)
	require.NoError(t, err)
	assert.Equal(t, ResultBlocked, res.Kind)
	assert.Equal(t, "The door needs a key.", res.Hint)
	assert.Equal(t, "start", s.Room().ID)
	assert.Equal(t, before, s.Snapshot())
}

func TestChooseRequirementUnlocks(t *testing.T) {
	s := newTestSession(t)

	options := s.Options()
	require.Len(t, options, 4)
	assert.False(t, options[1].Available)

	res, err := s.Choose(2) // pick up the key
	require.NoError(t, err)
	assert.Equal(t, ResultStayed, res.Kind)
	assert.True(t, s.Snapshot().HasItem("brass_key"))
	assert.True(t, s.Options()[1].Available)

	res, err = s.Choose(1)
	require.NoError(t, err)
	assert.Equal(t, ResultMoved, res.Kind)
	assert.Equal(t, "vault", res.RoomID)
}

func TestChooseOutOfRange(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Choose(9)
	var rangeErr *OptionOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 9, rangeErr.Index)
	assert.Equal(t, 4, rangeErr.Count)
}

func TestBattleVictoryFlow(t *testing.T) {
	s := newTestSession(t)

	res, err := s.Choose(3)
	require.NoError(t, err)
	assert.Equal(t, ResultBattleStarted, res.Kind)
	assert.True(t, s.InBattle())
	require.NotNil(t, res.Battle)
	assert.Equal(t, "Goblin", res.Battle.EnemyName)
	assert.Equal(t, 15, res.Battle.EnemyHealth)

	// Room-level calls are rejected mid-battle.
	_, err = s.Choose(0)
	assert.ErrorIs(t, err, ErrBattleInProgress)
	_, err = s.ApplyItem("potion_small")
	assert.ErrorIs(t, err, ErrBattleInProgress)

	// Three exchanges, then the killing blow.
	for i := 0; i < 3; i++ {
		res, err = s.BattleAct(0)
		require.NoError(t, err)
		assert.Equal(t, ResultBattleTurn, res.Kind)
	}
	res, err = s.BattleAct(0)
	require.NoError(t, err)

	assert.Equal(t, ResultVictory, res.Kind)
	assert.False(t, s.InBattle())
	// The battle's own victory room wins over the option destination.
	assert.Equal(t, "trophy_room", res.RoomID)

	gs := s.Snapshot()
	assert.Equal(t, 50, gs.Stats.XP)
	assert.True(t, gs.HasItem("potion_small"))

	// 50 XP crosses the first threshold: level 2, restored on level.
	assert.Equal(t, 1, res.LevelsGained)
	assert.Equal(t, 2, gs.Stats.Level)
	assert.Equal(t, 25, gs.Stats.MaxHealth)
	assert.Equal(t, 25, gs.Stats.Health)
	assert.Equal(t, 6, gs.Stats.Attack)
	assert.Equal(t, 3, gs.Stats.Defense)
}

func TestBattleDefeatRestoresHealthAndRoutes(t *testing.T) {
	reg := testRegistry(t)
	spec, err := reg.Battle("goblin_trial")
	require.NoError(t, err)
	spec.Enemy.Attack = 30
	spec.Enemy.Defense = 50

	s := New(reg, testTuning(), testLogger(), rand.New(rand.NewSource(1)))
	require.NoError(t, s.Start("start", nil))

	_, err = s.Choose(3)
	require.NoError(t, err)

	res, err := s.BattleAct(0)
	require.NoError(t, err)
	assert.Equal(t, ResultDefeat, res.Kind)
	assert.False(t, s.InBattle())
	// No defeat room on the battle, so the tuning default is used.
	assert.Equal(t, "infirmary", res.RoomID)

	gs := s.Snapshot()
	assert.Equal(t, gs.Stats.MaxHealth, gs.Stats.Health)
	assert.Equal(t, 0, gs.Stats.XP)
	assert.False(t, gs.HasItem("potion_small"))
}

func TestBattleVictoryFallsBackToOptionDestination(t *testing.T) {
	reg := testRegistry(t)
	spec, err := reg.Battle("goblin_trial")
	require.NoError(t, err)
	spec.VictoryRoomID = ""
	spec.Enemy.Health = 1

	s := New(reg, testTuning(), testLogger(), rand.New(rand.NewSource(1)))
	require.NoError(t, s.Start("start", nil))

	_, err = s.Choose(3)
	require.NoError(t, err)
	res, err := s.BattleAct(0)
	require.NoError(t, err)

	assert.Equal(t, ResultVictory, res.Kind)
	assert.Equal(t, "hall", res.RoomID)
}

func TestFleeKeepsCurrentRoom(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Choose(3)
	require.NoError(t, err)

	// FleeChance is 0.5; keep trying until the escape lands.
	for {
		res, err := s.Flee()
		require.NoError(t, err)
		if res.Kind == ResultFled {
			assert.Equal(t, "start", res.RoomID)
			assert.False(t, s.InBattle())
			return
		}
		require.Equal(t, ResultBattleTurn, res.Kind)
		require.False(t, res.Battle.State.Terminal())
	}
}

func TestBattleCallsOutsideBattle(t *testing.T) {
	s := newTestSession(t)

	_, err := s.BattleAct(0)
	assert.ErrorIs(t, err, ErrNoBattle)
	_, err = s.Flee()
	assert.ErrorIs(t, err, ErrNoBattle)
}

func TestEquippedWeaponBoostsBattleDamage(t *testing.T) {
	s := newTestSession(t)
	s.gs.AddItem("training_sword", 1)

	res, err := s.ApplyItem("training_sword")
	require.NoError(t, err)
	assert.Equal(t, ResultItemUsed, res.Kind)
	assert.Equal(t, "training_sword", s.Snapshot().EquippedWeaponID)

	_, err = s.Choose(3)
	require.NoError(t, err)
	res, err = s.BattleAct(0)
	require.NoError(t, err)

	// Attack 5 + sword 2 - defense 1 = 6 per strike.
	assert.Equal(t, 15-6, res.Battle.EnemyHealth)
}

func TestApplyItemConsumable(t *testing.T) {
	s := newTestSession(t)
	s.gs.AddItem("potion_small", 1)
	s.gs.Stats.Health = 10

	res, err := s.ApplyItem("potion_small")
	require.NoError(t, err)
	assert.Equal(t, ResultItemUsed, res.Kind)

	gs := s.Snapshot()
	assert.Equal(t, 18, gs.Stats.Health)
	assert.False(t, gs.HasItem("potion_small"))
}

func TestApplyItemNotOwned(t *testing.T) {
	s := newTestSession(t)

	_, err := s.ApplyItem("potion_small")
	var notOwned *ItemNotOwnedError
	require.ErrorAs(t, err, &notOwned)
	assert.Equal(t, "potion_small", notOwned.ItemID)
}

func TestManaRegenAccumulatesAcrossRooms(t *testing.T) {
	s := newTestSession(t)
	s.gs.Stats.Mana = 0

	// 0.25 mana per room: one whole point every fourth transition.
	for i := 0; i < 3; i++ {
		moveRoundTrip(t, s)
	}
	assert.Equal(t, 1, s.Snapshot().Stats.Mana) // 6 rooms visited
	moveRoundTrip(t, s)
	assert.Equal(t, 2, s.Snapshot().Stats.Mana) // 8 rooms visited
}

// moveRoundTrip hops start -> hall -> start.
func moveRoundTrip(t *testing.T, s *Session) {
	t.Helper()
	res, err := s.Choose(0)
	require.NoError(t, err)
	require.Equal(t, ResultMoved, res.Kind)
	res, err = s.Choose(0)
	require.NoError(t, err)
	require.Equal(t, ResultMoved, res.Kind)
}

func TestDeterministicPlaythroughUnderSeed(t *testing.T) {
	tuning := testTuning()
	tuning.DamageVariance = 0.25
	tuning.CritChance = 0.1

	run := func(seed int64) []battle.TurnEntry {
		s := New(testRegistry(t), tuning, testLogger(), rand.New(rand.NewSource(seed)))
		require.NoError(t, s.Start("start", nil))
		_, err := s.Choose(3)
		require.NoError(t, err)
		for s.InBattle() {
			res, err := s.BattleAct(0)
			require.NoError(t, err)
			if res.Outcome != nil {
				return res.Outcome.Log
			}
		}
		t.Fatal("battle never resolved")
		return nil
	}

	assert.Equal(t, run(7), run(7))
}

func TestRangedActionNeedsBowAndAmmo(t *testing.T) {
	restored := state.New(testTuning().StartingStats)
	restored.RoomID = "start"
	restored.AddItem("wooden_bow", 1)
	restored.AddItem("arrow", 2)
	restored.EquippedWeaponID = "wooden_bow"

	s := New(testRegistry(t), testTuning(), testLogger(), rand.New(rand.NewSource(1)))
	require.NoError(t, s.Start("start", restored))

	res, err := s.Choose(3)
	require.NoError(t, err)
	require.NotNil(t, res.Battle)
	assert.True(t, res.Battle.Actions[1].Available)

	// Each shot lands 5+1+2-1 = 7: enemy 15 -> 8 -> 1.
	for i := 0; i < 2; i++ {
		res, err = s.BattleAct(1)
		require.NoError(t, err)
		require.Equal(t, ResultBattleTurn, res.Kind)
	}
	assert.Equal(t, 1, res.Battle.EnemyHealth)

	// Quiver is empty: the action locks and a further attempt burns no turn.
	res, err = s.BattleAct(1)
	require.NoError(t, err)
	require.Equal(t, ResultBattleTurn, res.Kind)
	assert.False(t, res.Battle.Actions[1].Available)
	assert.Equal(t, "Out of ammo", res.Battle.Actions[1].Reason)
	assert.Equal(t, 1, res.Battle.EnemyHealth)

	// Finish with the plain strike; the spent arrows leave the inventory.
	res, err = s.BattleAct(0)
	require.NoError(t, err)
	assert.Equal(t, ResultVictory, res.Kind)

	gs := s.Snapshot()
	assert.False(t, gs.HasItem("arrow"))
	assert.True(t, gs.HasItem("wooden_bow"))
}

func TestRangedActionLockedWithoutBow(t *testing.T) {
	s := newTestSession(t)

	res, err := s.Choose(3)
	require.NoError(t, err)
	require.NotNil(t, res.Battle)
	assert.True(t, res.Battle.Actions[0].Available)
	assert.False(t, res.Battle.Actions[1].Available)
	assert.Equal(t, "Requires a ranged weapon", res.Battle.Actions[1].Reason)
}

func TestUseBeforeStartPanics(t *testing.T) {
	s := New(testRegistry(t), testTuning(), testLogger(), rand.New(rand.NewSource(1)))
	assert.PanicsWithValue(t, ErrNotStarted, func() { s.Room() })
	assert.PanicsWithValue(t, ErrNotStarted, func() { s.Snapshot() })
}
