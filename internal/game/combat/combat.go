// Package combat implements the continuous-time combat resolver used by the
// adventure simulator: type advantage, weapon selection, damage exchange and
// armor special effects.
package combat

import "sort"

// EnemyType is one of the six enemy categories.
type EnemyType string

const (
	EnemySlime  EnemyType = "slime"
	EnemyBeetle EnemyType = "beetle"
	EnemyWolf   EnemyType = "wolf"
	EnemyHawk   EnemyType = "hawk"
	EnemySpider EnemyType = "spider"
	EnemyPlant  EnemyType = "plant"
)

var enemyTypes = []EnemyType{EnemySlime, EnemyBeetle, EnemyWolf, EnemyHawk, EnemySpider, EnemyPlant}

var enemyLabels = map[EnemyType]string{
	EnemySlime:  "slimes",
	EnemyBeetle: "armored insects",
	EnemyWolf:   "predatory beasts",
	EnemyHawk:   "flying predators",
	EnemySpider: "venomous crawlers",
	EnemyPlant:  "living plants",
}

// AllEnemyTypes returns every enemy type in catalog order.
//
// Postcondition: len(result) == 6; the caller owns the returned slice.
func AllEnemyTypes() []EnemyType {
	out := make([]EnemyType, len(enemyTypes))
	copy(out, enemyTypes)
	return out
}

// Valid reports whether e is one of the six known enemy types.
func (e EnemyType) Valid() bool {
	_, ok := enemyLabels[e]
	return ok
}

// Label returns the category description, e.g. "armored insects".
func (e EnemyType) Label() string {
	if l, ok := enemyLabels[e]; ok {
		return l
	}
	return string(e)
}

// WeaponType is one of the five weapon categories.
type WeaponType string

const (
	WeaponSpear  WeaponType = "spear"
	WeaponSword  WeaponType = "sword"
	WeaponBow    WeaponType = "bow"
	WeaponAxe    WeaponType = "axe"
	WeaponHammer WeaponType = "hammer"
)

var weaponTypes = []WeaponType{WeaponSpear, WeaponSword, WeaponBow, WeaponAxe, WeaponHammer}

// AllWeaponTypes returns every weapon type in canonical order.
//
// Postcondition: len(result) == 5; the caller owns the returned slice.
func AllWeaponTypes() []WeaponType {
	out := make([]WeaponType, len(weaponTypes))
	copy(out, weaponTypes)
	return out
}

// Valid reports whether w is one of the five known weapon types.
func (w WeaponType) Valid() bool {
	return w.order() >= 0
}

func (w WeaponType) order() int {
	for i, t := range weaponTypes {
		if t == w {
			return i
		}
	}
	return -1
}

// Enemy is a concrete opponent instantiated for a single wave.
// Enemies are values; split and summon mechanics create new ones.
type Enemy struct {
	Type        EnemyType
	Name        string
	HP          float64
	Damage      float64
	AttackSpeed float64
	Gold        int
	XP          int
}

// DPS returns the enemy's damage per second.
func (e Enemy) DPS() float64 { return e.Damage * e.AttackSpeed }

// Weapon is a read-only snapshot of an equipped weapon.
type Weapon struct {
	Type        WeaponType
	Damage      float64
	AttackSpeed float64
	Level       int
}

// DPS returns the unmodified damage per second of w.
func (w Weapon) DPS() float64 { return w.Damage * w.AttackSpeed }

// Armor is a read-only snapshot of the single equipped armor piece.
type Armor struct {
	Name string
	// Defense is in [0, 100]; mitigation is Defense/100 capped at MaxMitigation.
	Defense float64
	Effect  Effect
	// ResistType is the enemy type reduced by EffectTypeResist.
	ResistType EnemyType
}

// SortWeapons returns a copy of weapons ordered canonically
// (spear, sword, bow, axe, hammer). Unknown types sort last.
//
// Postcondition: len(result) == len(weapons); the input is not modified.
func SortWeapons(weapons []Weapon) []Weapon {
	out := make([]Weapon, len(weapons))
	copy(out, weapons)
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Type.order(), out[j].Type.order()
		if oi < 0 {
			oi = len(weaponTypes)
		}
		if oj < 0 {
			oj = len(weaponTypes)
		}
		return oi < oj
	})
	return out
}

// HasWeapon reports whether weapons contains a weapon of type t.
func HasWeapon(weapons []Weapon, t WeaponType) bool {
	_, ok := FindWeapon(weapons, t)
	return ok
}

// FindWeapon returns the first weapon of type t.
//
// Postcondition: ok is true iff a weapon of type t is present.
func FindWeapon(weapons []Weapon, t WeaponType) (Weapon, bool) {
	for _, w := range weapons {
		if w.Type == t {
			return w, true
		}
	}
	return Weapon{}, false
}
