package combat

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/idlesim/internal/game/dice"
)

// MaxMitigation is the cap on armor damage reduction.
const MaxMitigation = 0.8

var (
	// ErrNoDamage is returned when a weapon's effective DPS is not positive.
	ErrNoDamage = errors.New("combat: weapon deals no damage")
	// ErrInvalidEnemy is returned for enemies without positive hit points.
	ErrInvalidEnemy = errors.New("combat: enemy has no hit points")
)

// Mitigation returns the fraction of incoming damage removed by defense.
//
// Postcondition: 0 <= result <= MaxMitigation; non-decreasing in defense.
func Mitigation(defense float64) float64 {
	if math.IsNaN(defense) || defense <= 0 {
		return 0
	}
	return math.Min(MaxMitigation, defense/100)
}

// Mitigate applies armor mitigation to raw damage.
func Mitigate(raw float64, armor Armor) float64 {
	return raw * (1 - Mitigation(armor.Defense))
}

// EffectiveDPS returns w's damage per second against enemy type e.
//
// Postcondition: Returns w.Damage * w.AttackSpeed * Multiplier(w.Type, e).
func EffectiveDPS(w Weapon, e EnemyType) float64 {
	return w.Damage * w.AttackSpeed * Multiplier(w.Type, e)
}

// Exchange is the closed-form result of the hero fighting one enemy.
type Exchange struct {
	Weapon          WeaponType
	Enemy           EnemyType
	Multiplier      float64
	EffectiveDPS    float64
	TimeToKill      float64
	RawDamage       float64
	Mitigated       float64
	HPLost          float64
	EffectTriggered bool
	EffectMessage   string
}

// ExchangeContext carries run-level inputs an exchange needs.
type ExchangeContext struct {
	MaxHP float64
	Src   dice.Source
}

// ResolveExchange computes time-to-kill and damage taken for weapon w against
// enemy e using the continuous-time model, then applies armor mitigation and
// the armor's exchange-timed effect.
//
// Precondition: ctx.Src must be non-nil.
// Postcondition: Returns ErrNoDamage or ErrInvalidEnemy for malformed inputs;
// otherwise 0 <= HPLost <= RawDamage.
func ResolveExchange(w Weapon, e Enemy, armor Armor, ctx ExchangeContext) (Exchange, error) {
	if e.HP <= 0 || math.IsNaN(e.HP) {
		return Exchange{}, fmt.Errorf("%w: %s hp=%.2f", ErrInvalidEnemy, e.Type, e.HP)
	}
	mult := Multiplier(w.Type, e.Type)
	dps := EffectiveDPS(w, e.Type)
	if dps <= 0 || math.IsNaN(dps) {
		return Exchange{}, fmt.Errorf("%w: %s dps=%.2f", ErrNoDamage, w.Type, dps)
	}

	ttk := e.HP / dps
	raw := math.Max(0, e.DPS()*ttk)
	mitigated := Mitigate(raw, armor)

	fx := ApplyExchangeEffect(armor, ExchangeInput{
		Enemy:      e.Type,
		Damage:     mitigated,
		TimeToKill: ttk,
		MaxHP:      ctx.MaxHP,
	}, ctx.Src)

	return Exchange{
		Weapon:          w.Type,
		Enemy:           e.Type,
		Multiplier:      mult,
		EffectiveDPS:    dps,
		TimeToKill:      fx.TimeToKill,
		RawDamage:       raw,
		Mitigated:       mitigated,
		HPLost:          fx.Damage,
		EffectTriggered: fx.Triggered,
		EffectMessage:   fx.Message,
	}, nil
}

// String renders the exchange for the combat log.
func (x Exchange) String() string {
	tag := ""
	switch x.Multiplier {
	case AdvantageMultiplier:
		tag = " (advantage)"
	case ResistanceMultiplier:
		tag = " (resisted)"
	}
	return fmt.Sprintf("%s vs %s%s: killed in %.1fs, took %.1f damage", x.Weapon, x.Enemy, tag, x.TimeToKill, x.HPLost)
}

// SelectWeapon picks the weapon to use against enemy type e: an advantaged
// weapon first, then one the enemy does not resist, then the first available.
//
// Postcondition: ok is false iff available is empty.
func SelectWeapon(available []Weapon, e EnemyType) (Weapon, bool) {
	if len(available) == 0 {
		return Weapon{}, false
	}
	for _, w := range available {
		if Multiplier(w.Type, e) == AdvantageMultiplier {
			return w, true
		}
	}
	for _, w := range available {
		if Multiplier(w.Type, e) != ResistanceMultiplier {
			return w, true
		}
	}
	return available[0], true
}
