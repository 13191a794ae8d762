package boss

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
)

// CounterMet reports whether the loadout satisfies c. A nil counter is
// always met.
func CounterMet(c *content.Counter, weapons []combat.Weapon, armor combat.Armor) bool {
	if c == nil {
		return true
	}
	if c.Weapon != "" && !combat.HasWeapon(weapons, c.Weapon) {
		return false
	}
	if c.ArmorEffect != "" && armor.Effect != c.ArmorEffect {
		return false
	}
	return true
}

// Describe names what c asks for, e.g. "axe" or "evasion armor".
func Describe(c *content.Counter) string {
	if c == nil {
		return ""
	}
	var parts []string
	if c.Weapon != "" {
		parts = append(parts, string(c.Weapon))
	}
	if c.ArmorEffect != "" {
		parts = append(parts, string(c.ArmorEffect)+" armor")
	}
	return strings.Join(parts, " and ")
}

// applyPenalty extends the fight and adds the counter's extra damage.
func applyPenalty(c *content.Counter, out *Outcome) {
	if m := c.DurationMultiplier; m > 1 {
		out.Duration *= m
		out.Damage *= m
		out.HeroDPS /= m
	}
	out.Guaranteed += c.BonusDamage
	out.True += c.UnavoidableDamage

	msg := fmt.Sprintf("No counter equipped (needs %s)", Describe(c))
	if c.Advice != "" {
		msg += ": " + c.Advice
	}
	out.Messages = append(out.Messages, msg)
}
