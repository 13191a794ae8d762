package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/dice"
)

// lowSource always returns 0, so every chance roll fires.
type lowSource struct{}

func (lowSource) Intn(n int) int { return 0 }

// highSource always returns n-1, so no chance roll fires.
type highSource struct{}

func (highSource) Intn(n int) int { return n - 1 }

func TestMultiplier_Table(t *testing.T) {
	for _, w := range combat.AllWeaponTypes() {
		adv, ok := combat.Advantage(w)
		require.True(t, ok)
		res, ok := combat.Resistance(w)
		require.True(t, ok)
		assert.NotEqual(t, adv, res, "weapon %s", w)
		for _, e := range combat.AllEnemyTypes() {
			m := combat.Multiplier(w, e)
			switch e {
			case adv:
				assert.Equal(t, 1.5, m)
			case res:
				assert.Equal(t, 0.5, m)
			default:
				assert.Equal(t, 1.0, m)
			}
		}
	}
}

func TestMultiplier_SlimeIsNeutral(t *testing.T) {
	for _, w := range combat.AllWeaponTypes() {
		assert.Equal(t, 1.0, combat.Multiplier(w, combat.EnemySlime))
	}
}

func TestAdvantage_IsBijection(t *testing.T) {
	seenAdv := map[combat.EnemyType]bool{}
	seenRes := map[combat.EnemyType]bool{}
	for _, w := range combat.AllWeaponTypes() {
		adv, _ := combat.Advantage(w)
		res, _ := combat.Resistance(w)
		assert.False(t, seenAdv[adv], "advantage target %s repeated", adv)
		assert.False(t, seenRes[res], "resistance target %s repeated", res)
		seenAdv[adv] = true
		seenRes[res] = true
	}
	assert.Len(t, seenAdv, 5)
	assert.False(t, seenAdv[combat.EnemySlime])
	assert.False(t, seenRes[combat.EnemySlime])
}

func TestCounterWeapon(t *testing.T) {
	w, ok := combat.CounterWeapon(combat.EnemyBeetle)
	require.True(t, ok)
	assert.Equal(t, combat.WeaponSpear, w)
	_, ok = combat.CounterWeapon(combat.EnemySlime)
	assert.False(t, ok)
}

func TestMitigation_Saturates(t *testing.T) {
	assert.Equal(t, 0.0, combat.Mitigation(-5))
	assert.Equal(t, 0.0, combat.Mitigation(0))
	assert.InDelta(t, 0.5, combat.Mitigation(50), 1e-9)
	assert.Equal(t, 0.8, combat.Mitigation(80))
	assert.Equal(t, 0.8, combat.Mitigation(100))
	assert.Equal(t, 0.8, combat.Mitigation(250))
}

func TestMitigation_Monotone_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(-50, 300).Draw(rt, "a")
		b := rapid.Float64Range(a, 400).Draw(rt, "b")
		assert.LessOrEqual(rt, combat.Mitigation(a), combat.Mitigation(b))
		assert.LessOrEqual(rt, combat.Mitigation(b), combat.MaxMitigation)
	})
}

// Scenario A: spear against armored insects applies exactly 1.5.
func TestResolveExchange_SpearVsBeetle(t *testing.T) {
	spear := combat.Weapon{Type: combat.WeaponSpear, Damage: 10, AttackSpeed: 1.2}
	beetle := combat.Enemy{Type: combat.EnemyBeetle, HP: 60, Damage: 4, AttackSpeed: 0.8}

	x, err := combat.ResolveExchange(spear, beetle, combat.Armor{}, combat.ExchangeContext{MaxHP: 100, Src: highSource{}})
	require.NoError(t, err)
	assert.Equal(t, 1.5, x.Multiplier)
	assert.InDelta(t, 10*1.2*1.5, x.EffectiveDPS, 1e-9)
	assert.InDelta(t, 60/(10*1.2*1.5), x.TimeToKill, 1e-9)
	assert.InDelta(t, 4*0.8*x.TimeToKill, x.HPLost, 1e-9)
}

// Scenario B: spear against living plants applies exactly 0.5.
func TestResolveExchange_SpearVsPlant(t *testing.T) {
	spear := combat.Weapon{Type: combat.WeaponSpear, Damage: 10, AttackSpeed: 1}
	plant := combat.Enemy{Type: combat.EnemyPlant, HP: 70, Damage: 4, AttackSpeed: 0.6}

	x, err := combat.ResolveExchange(spear, plant, combat.Armor{}, combat.ExchangeContext{MaxHP: 100, Src: highSource{}})
	require.NoError(t, err)
	assert.Equal(t, 0.5, x.Multiplier)
	assert.InDelta(t, 5.0, x.EffectiveDPS, 1e-9)
	assert.InDelta(t, 14.0, x.TimeToKill, 1e-9)
}

func TestResolveExchange_ArmorMitigation(t *testing.T) {
	sword := combat.Weapon{Type: combat.WeaponSword, Damage: 5, AttackSpeed: 1}
	slime := combat.Enemy{Type: combat.EnemySlime, HP: 50, Damage: 2, AttackSpeed: 1}

	bare, err := combat.ResolveExchange(sword, slime, combat.Armor{}, combat.ExchangeContext{MaxHP: 100, Src: highSource{}})
	require.NoError(t, err)
	plated, err := combat.ResolveExchange(sword, slime, combat.Armor{Defense: 150}, combat.ExchangeContext{MaxHP: 100, Src: highSource{}})
	require.NoError(t, err)

	assert.InDelta(t, 20.0, bare.HPLost, 1e-9)
	assert.InDelta(t, 4.0, plated.HPLost, 1e-9, "reduction caps at 80 percent")
}

func TestResolveExchange_MalformedInputs(t *testing.T) {
	ctx := combat.ExchangeContext{MaxHP: 100, Src: highSource{}}
	_, err := combat.ResolveExchange(combat.Weapon{Type: combat.WeaponBow}, combat.Enemy{Type: combat.EnemyHawk, HP: 10}, combat.Armor{}, ctx)
	assert.ErrorIs(t, err, combat.ErrNoDamage)

	_, err = combat.ResolveExchange(combat.Weapon{Type: combat.WeaponBow, Damage: 1, AttackSpeed: 1}, combat.Enemy{Type: combat.EnemyHawk}, combat.Armor{}, ctx)
	assert.ErrorIs(t, err, combat.ErrInvalidEnemy)
}

func TestResolveExchange_HPLostBounded_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := combat.Weapon{
			Type:        rapid.SampledFrom(combat.AllWeaponTypes()).Draw(rt, "weapon"),
			Damage:      rapid.Float64Range(0.5, 50).Draw(rt, "damage"),
			AttackSpeed: rapid.Float64Range(0.2, 3).Draw(rt, "speed"),
		}
		e := combat.Enemy{
			Type:        rapid.SampledFrom(combat.AllEnemyTypes()).Draw(rt, "enemy"),
			HP:          rapid.Float64Range(1, 500).Draw(rt, "hp"),
			Damage:      rapid.Float64Range(0, 30).Draw(rt, "edmg"),
			AttackSpeed: rapid.Float64Range(0.1, 3).Draw(rt, "espeed"),
		}
		armor := combat.Armor{
			Defense: rapid.Float64Range(0, 120).Draw(rt, "defense"),
			Effect:  rapid.SampledFrom([]combat.Effect{combat.EffectNone, combat.EffectReflection, combat.EffectEvasion, combat.EffectCriticalShield}).Draw(rt, "effect"),
		}
		x, err := combat.ResolveExchange(w, e, armor, combat.ExchangeContext{MaxHP: 200, Src: dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed"))})
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, x.HPLost, 0.0)
		assert.LessOrEqual(rt, x.HPLost, x.RawDamage+1e-9)
	})
}

func TestSelectWeapon(t *testing.T) {
	spear := combat.Weapon{Type: combat.WeaponSpear, Damage: 1, AttackSpeed: 1}
	sword := combat.Weapon{Type: combat.WeaponSword, Damage: 1, AttackSpeed: 1}
	axe := combat.Weapon{Type: combat.WeaponAxe, Damage: 1, AttackSpeed: 1}

	_, ok := combat.SelectWeapon(nil, combat.EnemyWolf)
	assert.False(t, ok)

	w, ok := combat.SelectWeapon([]combat.Weapon{spear, sword, axe}, combat.EnemyWolf)
	require.True(t, ok)
	assert.Equal(t, combat.WeaponAxe, w.Type, "advantage wins")

	w, _ = combat.SelectWeapon([]combat.Weapon{sword, spear}, combat.EnemyWolf)
	assert.Equal(t, combat.WeaponSpear, w.Type, "sword is resisted by wolves")

	w, _ = combat.SelectWeapon([]combat.Weapon{spear}, combat.EnemyPlant)
	assert.Equal(t, combat.WeaponSpear, w.Type, "falls back to first weapon")
}

func TestSortWeapons_Canonical(t *testing.T) {
	in := []combat.Weapon{{Type: combat.WeaponHammer}, {Type: combat.WeaponSpear}, {Type: combat.WeaponBow}}
	out := combat.SortWeapons(in)
	assert.Equal(t, []combat.WeaponType{combat.WeaponSpear, combat.WeaponBow, combat.WeaponHammer},
		[]combat.WeaponType{out[0].Type, out[1].Type, out[2].Type})
	assert.Equal(t, combat.WeaponHammer, in[0].Type, "input untouched")
}

func TestApplyExchangeEffect(t *testing.T) {
	in := combat.ExchangeInput{Enemy: combat.EnemyWolf, Damage: 40, TimeToKill: 10, MaxHP: 100}

	r := combat.ApplyExchangeEffect(combat.Armor{Effect: combat.EffectReflection}, in, lowSource{})
	assert.True(t, r.Triggered)
	assert.InDelta(t, 28.0, r.Damage, 1e-9)

	r = combat.ApplyExchangeEffect(combat.Armor{Effect: combat.EffectReflection}, in, highSource{})
	assert.False(t, r.Triggered)
	assert.Equal(t, 40.0, r.Damage)

	r = combat.ApplyExchangeEffect(combat.Armor{Effect: combat.EffectEvasion}, in, lowSource{})
	assert.Equal(t, 0.0, r.Damage)

	r = combat.ApplyExchangeEffect(combat.Armor{Effect: combat.EffectTypeResist, ResistType: combat.EnemyWolf}, in, highSource{})
	assert.InDelta(t, 24.0, r.Damage, 1e-9)
	r = combat.ApplyExchangeEffect(combat.Armor{Effect: combat.EffectTypeResist, ResistType: combat.EnemyHawk}, in, highSource{})
	assert.Equal(t, 40.0, r.Damage)

	r = combat.ApplyExchangeEffect(combat.Armor{Effect: combat.EffectSpeedBoost}, in, highSource{})
	assert.InDelta(t, 40/1.15, r.Damage, 1e-9)
	assert.InDelta(t, 10/1.15, r.TimeToKill, 1e-9)

	r = combat.ApplyExchangeEffect(combat.Armor{Effect: combat.EffectCriticalShield}, in, highSource{})
	assert.Equal(t, 25.0, r.Damage)

	r = combat.ApplyExchangeEffect(combat.Armor{Effect: combat.EffectGoldMagnet}, in, lowSource{})
	assert.Equal(t, 40.0, r.Damage, "completion effects do not touch exchanges")
}

func TestRunLevelEffects(t *testing.T) {
	heal, msg := combat.WaveBoundaryHeal(combat.Armor{Effect: combat.EffectRegeneration})
	assert.Equal(t, combat.RegenerationHeal, heal)
	assert.NotEmpty(t, msg)
	heal, _ = combat.WaveBoundaryHeal(combat.Armor{Effect: combat.EffectVampiric})
	assert.Zero(t, heal)

	heal, _ = combat.KillHeal(combat.Armor{Effect: combat.EffectVampiric})
	assert.Equal(t, combat.VampiricHeal, heal)

	gold, _ := combat.CompletionGold(combat.Armor{Effect: combat.EffectGoldMagnet}, 100)
	assert.Equal(t, 125, gold)
	gold, _ = combat.CompletionGold(combat.Armor{}, 100)
	assert.Equal(t, 100, gold)

	assert.Equal(t, 100.0, combat.Heal(95, 10, 100))
	assert.Equal(t, 50.0, combat.Heal(40, 10, 100))
}

func TestEffect_Timing(t *testing.T) {
	assert.Equal(t, combat.TimingExchange, combat.EffectEvasion.Timing())
	assert.Equal(t, combat.TimingWaveBoundary, combat.EffectRegeneration.Timing())
	assert.Equal(t, combat.TimingKill, combat.EffectVampiric.Timing())
	assert.Equal(t, combat.TimingCompletion, combat.EffectGoldMagnet.Timing())
	assert.True(t, combat.EffectNone.Valid())
	assert.False(t, combat.Effect("thorns").Valid())
}
