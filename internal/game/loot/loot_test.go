package loot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlesim/internal/game/dice"
	"github.com/cory-johannsen/idlesim/internal/game/loot"
)

func chance(p float64) *float64 { return &p }

type lowSource struct{}

func (lowSource) Intn(n int) int { return 0 }

type highSource struct{}

func (highSource) Intn(n int) int { return n - 1 }

func validTable() loot.Table {
	return loot.Table{
		Drops: []loot.Drop{
			{ItemID: "meadow_flower", Chance: chance(0.7)},
			{ItemID: "slime_gel", Quantity: "1d3"},
		},
		BonusArmor: []string{"leaf_cloak"},
	}
}

func TestTable_Validate_AcceptsValid(t *testing.T) {
	lt := validTable()
	assert.NoError(t, lt.Validate())
}

func TestTable_Validate_Empty(t *testing.T) {
	lt := loot.Table{}
	assert.NoError(t, lt.Validate())
}

func TestTable_Validate_Rejects(t *testing.T) {
	cases := map[string]loot.Table{
		"missing id":    {Drops: []loot.Drop{{Chance: chance(0.5)}}},
		"chance > 1":    {Drops: []loot.Drop{{ItemID: "x", Chance: chance(1.5)}}},
		"bad quantity":  {Drops: []loot.Drop{{ItemID: "x", Quantity: "lots"}}},
		"zero quantity": {Drops: []loot.Drop{{ItemID: "x", Quantity: "1d2-3"}}},
		"bonus chance":  {BonusChance: chance(-0.1)},
		"empty armor":   {BonusArmor: []string{""}},
	}
	for name, lt := range cases {
		assert.Error(t, lt.Validate(), name)
	}
}

func TestGenerate_AllDropsWhenChanceFires(t *testing.T) {
	items := loot.Generate(validTable(), true, lowSource{})
	require.Len(t, items, 3)
	assert.Equal(t, "meadow_flower", items[0].ItemID)
	assert.Equal(t, "slime_gel", items[1].ItemID)
	assert.Equal(t, 1, items[1].Quantity, "lowest die face")
	assert.True(t, items[2].Bonus)
	assert.Equal(t, "leaf_cloak", items[2].ItemID)
	assert.NotEqual(t, items[0].InstanceID, items[1].InstanceID)
}

func TestGenerate_NothingWhenChanceFails(t *testing.T) {
	assert.Empty(t, loot.Generate(validTable(), true, highSource{}))
}

func TestGenerate_NoBonusWithoutBoss(t *testing.T) {
	for _, it := range loot.Generate(validTable(), false, lowSource{}) {
		assert.False(t, it.Bonus)
	}
}

func TestGenerate_ExplicitZeroChanceNeverDrops(t *testing.T) {
	lt := loot.Table{
		Drops:       []loot.Drop{{ItemID: "relic", Chance: chance(0)}},
		BonusArmor:  []string{"leaf_cloak"},
		BonusChance: chance(0),
	}
	require.NoError(t, lt.Validate())
	assert.Empty(t, loot.Generate(lt, true, lowSource{}))
}

func TestGenerate_DefaultChanceFrequency(t *testing.T) {
	lt := loot.Table{Drops: []loot.Drop{{ItemID: "gem"}}}
	src := dice.NewSeededSource(11)
	hits := 0
	for i := 0; i < 5000; i++ {
		hits += len(loot.Generate(lt, false, src))
	}
	assert.InDelta(t, 3500, hits, 250)
}

func TestProperty_Generate_QuantityInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lt := loot.Table{Drops: []loot.Drop{{ItemID: "ore", Chance: chance(1), Quantity: "2d4"}}}
		items := loot.Generate(lt, false, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))
		require.Len(rt, items, 1)
		assert.GreaterOrEqual(rt, items[0].Quantity, 2)
		assert.LessOrEqual(rt, items[0].Quantity, 8)
	})
}
