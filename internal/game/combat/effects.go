package combat

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/idlesim/internal/game/dice"
)

// Effect names an armor special effect. At most one is equipped at a time.
type Effect string

const (
	EffectNone           Effect = ""
	EffectReflection     Effect = "reflection"
	EffectEvasion        Effect = "evasion"
	EffectTypeResist     Effect = "type_resist"
	EffectSpeedBoost     Effect = "speed_boost"
	EffectCriticalShield Effect = "critical_shield"
	EffectRegeneration   Effect = "regeneration"
	EffectVampiric       Effect = "vampiric"
	EffectGoldMagnet     Effect = "gold_magnet"
)

// Timing is the point in the combat timeline where an effect applies.
type Timing int

const (
	TimingNone Timing = iota
	TimingExchange
	TimingWaveBoundary
	TimingKill
	TimingCompletion
)

// Effect tuning.
const (
	ReflectionChance    = 0.15
	ReflectionTaken     = 0.70
	EvasionChance       = 0.10
	TypeResistReduction = 0.40
	SpeedBoostFactor    = 1.15
	CriticalShieldCap   = 0.25 // fraction of max HP
	RegenerationHeal    = 10.0
	VampiricHeal        = 3.0
	GoldMagnetBonus     = 0.25
)

var effectTimings = map[Effect]Timing{
	EffectReflection:     TimingExchange,
	EffectEvasion:        TimingExchange,
	EffectTypeResist:     TimingExchange,
	EffectSpeedBoost:     TimingExchange,
	EffectCriticalShield: TimingExchange,
	EffectRegeneration:   TimingWaveBoundary,
	EffectVampiric:       TimingKill,
	EffectGoldMagnet:     TimingCompletion,
}

// Timing returns when e applies; TimingNone for EffectNone or unknown names.
func (e Effect) Timing() Timing {
	return effectTimings[e]
}

// Valid reports whether e is EffectNone or a known effect.
func (e Effect) Valid() bool {
	if e == EffectNone {
		return true
	}
	_, ok := effectTimings[e]
	return ok
}

// ExchangeInput is the state an exchange-timed effect may modify.
type ExchangeInput struct {
	Enemy      EnemyType
	Damage     float64
	TimeToKill float64
	MaxHP      float64
}

// EffectResult is the outcome of applying an exchange-timed effect.
type EffectResult struct {
	Damage     float64
	TimeToKill float64
	Triggered  bool
	Message    string
}

// ApplyExchangeEffect applies armor's exchange-timed effect to one damage
// exchange. Effects with another timing leave the input unchanged.
//
// Precondition: src must be non-nil; in.Damage >= 0.
// Postcondition: 0 <= result.Damage <= in.Damage.
func ApplyExchangeEffect(armor Armor, in ExchangeInput, src dice.Source) EffectResult {
	out := EffectResult{Damage: in.Damage, TimeToKill: in.TimeToKill}
	switch armor.Effect {
	case EffectReflection:
		if dice.Chance(src, ReflectionChance) {
			reflected := in.Damage * (1 - ReflectionTaken)
			out.Damage = in.Damage * ReflectionTaken
			out.Triggered = true
			out.Message = fmt.Sprintf("Reflection! %.1f damage turned back on the %s", reflected, in.Enemy)
		}
	case EffectEvasion:
		if dice.Chance(src, EvasionChance) {
			out.Damage = 0
			out.Triggered = true
			out.Message = fmt.Sprintf("Evaded the %s completely", in.Enemy)
		}
	case EffectTypeResist:
		if armor.ResistType != "" && armor.ResistType == in.Enemy {
			out.Damage = in.Damage * (1 - TypeResistReduction)
			out.Triggered = true
			out.Message = fmt.Sprintf("Armor resists %s (-%.0f%%)", in.Enemy.Label(), TypeResistReduction*100)
		}
	case EffectSpeedBoost:
		out.Damage = in.Damage / SpeedBoostFactor
		out.TimeToKill = in.TimeToKill / SpeedBoostFactor
		out.Triggered = true
	case EffectCriticalShield:
		limit := in.MaxHP * CriticalShieldCap
		if in.MaxHP > 0 && in.Damage > limit {
			out.Damage = limit
			out.Triggered = true
			out.Message = fmt.Sprintf("Critical shield absorbs %.1f damage", in.Damage-limit)
		}
	}
	return out
}

// WaveBoundaryHeal returns the healing granted between waves.
//
// Postcondition: Returns (0, "") unless armor carries EffectRegeneration.
func WaveBoundaryHeal(armor Armor) (float64, string) {
	if armor.Effect != EffectRegeneration {
		return 0, ""
	}
	return RegenerationHeal, fmt.Sprintf("Regeneration restores %.0f HP", RegenerationHeal)
}

// KillHeal returns the healing granted after each kill.
//
// Postcondition: Returns (0, "") unless armor carries EffectVampiric.
func KillHeal(armor Armor) (float64, string) {
	if armor.Effect != EffectVampiric {
		return 0, ""
	}
	return VampiricHeal, fmt.Sprintf("Vampiric armor drains %.0f HP", VampiricHeal)
}

// CompletionGold returns the total gold after completion-timed effects.
//
// Postcondition: result >= gold for gold >= 0.
func CompletionGold(armor Armor, gold int) (int, string) {
	if armor.Effect != EffectGoldMagnet || gold <= 0 {
		return gold, ""
	}
	bonus := int(math.Round(float64(gold) * GoldMagnetBonus))
	return gold + bonus, fmt.Sprintf("Gold magnet attracts %d extra gold", bonus)
}

// Heal adds amount to hp without exceeding maxHP.
//
// Postcondition: result <= max(hp, maxHP).
func Heal(hp, amount, maxHP float64) float64 {
	if amount <= 0 || hp >= maxHP {
		return hp
	}
	return math.Min(maxHP, hp+amount)
}
