package save

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelkit/textquest/pkg/state"
)

func sampleState() *state.GameState {
	gs := state.New(state.PlayerStats{
		Health: 17, MaxHealth: 20,
		Mana: 6, MaxMana: 10,
		Attack: 5, Defense: 2,
		Level: 2, XP: 60,
	})
	gs.RoomID = "goblin_hall"
	gs.RoomsVisited = 9
	gs.EquippedWeaponID = "training_sword"
	gs.AddItem("potion_small", 2)
	gs.SetFlag("took_sword")
	return gs
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleState()

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestRoundTripPreservesEmptyCollections(t *testing.T) {
	gs := state.New(state.PlayerStats{Health: 20, MaxHealth: 20, Level: 1})
	gs.RoomID = "start"

	data, err := Encode(gs)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Inventory)
	require.NotNil(t, decoded.Flags)
	assert.Equal(t, gs, decoded)
}

func TestEncodeNil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestDecodeRejectsCorruptBlobs(t *testing.T) {
	tests := []struct {
		name string
		blob string
		want string
	}{
		{
			name: "not json",
			blob: "definitely not json",
			want: "malformed save data",
		},
		{
			name: "unknown field",
			blob: `{"version":1,"saved_at":"2026-01-01T00:00:00Z","state":{"id":"00000000-0000-0000-0000-000000000001","room_id":"start","stats":{"health":5,"max_health":10,"mana":0,"max_mana":0,"attack":1,"defense":0,"level":1,"xp":0},"inventory":{},"flags":{},"rooms_visited":0,"bogus":true}}`,
			want: "malformed save data",
		},
		{
			name: "unsupported version",
			blob: `{"version":99,"state":{"room_id":"start","stats":{"health":5,"max_health":10,"level":1}}}`,
			want: "unsupported schema version 99",
		},
		{
			name: "missing state",
			blob: `{"version":1}`,
			want: "missing state",
		},
		{
			name: "empty room id",
			blob: `{"version":1,"state":{"room_id":"","stats":{"health":5,"max_health":10,"level":1},"inventory":{},"flags":{},"rooms_visited":0,"id":"00000000-0000-0000-0000-000000000001"}}`,
			want: "empty room id",
		},
		{
			name: "health above max",
			blob: `{"version":1,"state":{"room_id":"start","stats":{"health":50,"max_health":10,"mana":0,"max_mana":0,"attack":1,"defense":0,"level":1,"xp":0},"inventory":{},"flags":{},"rooms_visited":0,"id":"00000000-0000-0000-0000-000000000001"}}`,
			want: "outside",
		},
		{
			name: "level below one",
			blob: `{"version":1,"state":{"room_id":"start","stats":{"health":5,"max_health":10,"mana":0,"max_mana":0,"attack":1,"defense":0,"level":0,"xp":0},"inventory":{},"flags":{},"rooms_visited":0,"id":"00000000-0000-0000-0000-000000000001"}}`,
			want: "level",
		},
		{
			name: "non-positive inventory quantity",
			blob: `{"version":1,"state":{"room_id":"start","stats":{"health":5,"max_health":10,"mana":0,"max_mana":0,"attack":1,"defense":0,"level":1,"xp":0},"inventory":{"potion_small":0},"flags":{},"rooms_visited":0,"id":"00000000-0000-0000-0000-000000000001"}}`,
			want: "quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs, err := Decode([]byte(tt.blob))
			assert.Nil(t, gs)
			var corrupt *CorruptSaveError
			require.ErrorAs(t, err, &corrupt)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeNormalizesNilMaps(t *testing.T) {
	blob := `{"version":1,"state":{"room_id":"start","stats":{"health":5,"max_health":10,"mana":0,"max_mana":0,"attack":1,"defense":0,"level":1,"xp":0},"rooms_visited":0,"id":"00000000-0000-0000-0000-000000000001"}}`

	gs, err := Decode([]byte(blob))
	require.NoError(t, err)
	require.NotNil(t, gs.Inventory)
	require.NotNil(t, gs.Flags)
}
