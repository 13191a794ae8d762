package adventure

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
)

// ErrBadLoadout is returned for hero definitions the catalog cannot resolve.
var ErrBadLoadout = errors.New("adventure: bad loadout")

// Hero is the virtual adventurer a run simulates.
type Hero struct {
	Level   int
	Weapons []combat.Weapon
	Armor   combat.Armor
}

// MaxHP returns the hero's starting and maximum hit points.
func (h Hero) MaxHP() float64 { return MaxHP(h.Level) }

// MaxHP returns 100 + 20 * level.
func MaxHP(level int) float64 {
	return 100 + 20*float64(level)
}

// NewHero builds a hero from catalog stats. weapons maps each equipped weapon
// type to its level; armorID may be empty for no armor.
//
// Postcondition: Weapons are in canonical order; returns ErrBadLoadout for
// unknown weapon types, weapon levels < 1, or unknown armor.
func NewHero(cat *content.Catalog, level int, weapons map[combat.WeaponType]int, armorID string) (Hero, error) {
	h := Hero{Level: level}
	for t, lvl := range weapons {
		if lvl < 1 {
			return Hero{}, fmt.Errorf("%w: %s level %d", ErrBadLoadout, t, lvl)
		}
		w, ok := cat.WeaponStats(t, lvl)
		if !ok {
			return Hero{}, fmt.Errorf("%w: unknown weapon %q", ErrBadLoadout, t)
		}
		h.Weapons = append(h.Weapons, w)
	}
	h.Weapons = combat.SortWeapons(h.Weapons)
	if armorID != "" {
		a, ok := cat.Armor(armorID)
		if !ok {
			return Hero{}, fmt.Errorf("%w: unknown armor %q", ErrBadLoadout, armorID)
		}
		h.Armor = a
	}
	return h, nil
}

// ParseWeapons parses a loadout such as "spear:3,axe:1" or "sword" (level 1).
//
// Postcondition: Returns ErrBadLoadout for unknown types or malformed levels.
func ParseWeapons(s string) (map[combat.WeaponType]int, error) {
	out := make(map[combat.WeaponType]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, lvlStr, hasLevel := strings.Cut(part, ":")
		t := combat.WeaponType(strings.ToLower(strings.TrimSpace(name)))
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown weapon %q", ErrBadLoadout, name)
		}
		lvl := 1
		if hasLevel {
			n, err := strconv.Atoi(strings.TrimSpace(lvlStr))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: weapon level %q", ErrBadLoadout, lvlStr)
			}
			lvl = n
		}
		out[t] = lvl
	}
	return out, nil
}

// FormatWeapons renders weapons in the ParseWeapons syntax, canonical order.
func FormatWeapons(weapons map[combat.WeaponType]int) string {
	types := make([]string, 0, len(weapons))
	for t := range weapons {
		types = append(types, string(t))
	}
	sort.Slice(types, func(i, j int) bool {
		return weaponRank(types[i]) < weaponRank(types[j])
	})
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s:%d", t, weapons[combat.WeaponType(t)])
	}
	return strings.Join(parts, ",")
}

func weaponRank(t string) int {
	for i, w := range combat.AllWeaponTypes() {
		if string(w) == t {
			return i
		}
	}
	return len(combat.AllWeaponTypes())
}
