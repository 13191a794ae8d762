// Package content holds the read-only route and combatant catalog: enemy base
// stats, weapon scaling, armor pieces, bosses and routes, loaded from YAML.
package content

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/loot"
)

var (
	// ErrBadTarget is returned for route targets that cannot be parsed.
	ErrBadTarget = errors.New("content: unparseable route target")
	// ErrUnknownRoute is returned for route ids missing from the catalog.
	ErrUnknownRoute = errors.New("content: unknown route")
)

// Length is the route length tier; it doubles as the difficulty key.
type Length string

const (
	Short  Length = "short"
	Medium Length = "medium"
	Long   Length = "long"
)

// Lengths returns the three tiers in ascending order.
func Lengths() []Length { return []Length{Short, Medium, Long} }

// Multiplier returns the composition scale for l: 1.0, 1.5 or 2.0.
// Unknown tiers scale like Short.
func (l Length) Multiplier() float64 {
	switch l {
	case Medium:
		return 1.5
	case Long:
		return 2.0
	default:
		return 1.0
	}
}

// Valid reports whether l is one of the three tiers.
func (l Length) Valid() bool {
	return l == Short || l == Medium || l == Long
}

// ParseLength parses a tier name case-insensitively.
func ParseLength(s string) (Length, error) {
	l := Length(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: length %q", ErrBadTarget, s)
	}
	return l, nil
}

// EnemyDef holds the base stats for one enemy type.
type EnemyDef struct {
	Type        combat.EnemyType `yaml:"type"`
	Name        string           `yaml:"name"`
	HP          float64          `yaml:"hp"`
	Damage      float64          `yaml:"damage"`
	AttackSpeed float64          `yaml:"attack_speed"`
	Gold        int              `yaml:"gold"`
	XP          int              `yaml:"xp"`
}

// Spawn instantiates a fresh enemy from the base stats.
func (d EnemyDef) Spawn() combat.Enemy {
	return combat.Enemy{
		Type:        d.Type,
		Name:        d.Name,
		HP:          d.HP,
		Damage:      d.Damage,
		AttackSpeed: d.AttackSpeed,
		Gold:        d.Gold,
		XP:          d.XP,
	}
}

// WeaponDef holds base stats and per-level scaling for one weapon type.
type WeaponDef struct {
	Type           combat.WeaponType `yaml:"type"`
	Name           string            `yaml:"name"`
	Damage         float64           `yaml:"damage"`
	AttackSpeed    float64           `yaml:"attack_speed"`
	DamagePerLevel float64           `yaml:"damage_per_level"`
}

// ArmorDef is a named armor piece.
type ArmorDef struct {
	ID         string           `yaml:"id"`
	Name       string           `yaml:"name"`
	Defense    float64          `yaml:"defense"`
	Effect     combat.Effect    `yaml:"effect"`
	ResistType combat.EnemyType `yaml:"resist_type"`
}

// Armor converts the definition into the combat snapshot.
func (d ArmorDef) Armor() combat.Armor {
	return combat.Armor{Name: d.Name, Defense: d.Defense, Effect: d.Effect, ResistType: d.ResistType}
}

// Counter is a boss's designated counter and the penalty for lacking it.
type Counter struct {
	Weapon             combat.WeaponType `yaml:"weapon"`
	ArmorEffect        combat.Effect     `yaml:"armor_effect"`
	BonusDamage        float64           `yaml:"bonus_damage"`
	DurationMultiplier float64           `yaml:"duration_multiplier"`
	UnavoidableDamage  float64           `yaml:"unavoidable_damage"`
	Advice             string            `yaml:"advice"`
}

// BossDef describes one boss and the mechanic layered on its fight.
type BossDef struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Family      combat.EnemyType   `yaml:"family"`
	HP          float64            `yaml:"hp"`
	Damage      float64            `yaml:"damage"`
	AttackSpeed float64            `yaml:"attack_speed"`
	Weakness    combat.WeaponType  `yaml:"weakness"`
	Mechanic    string             `yaml:"mechanic"`
	Quirk       string             `yaml:"quirk"`
	Script      string             `yaml:"script"`
	Params      map[string]float64 `yaml:"params"`
	Counter     *Counter           `yaml:"counter"`
	Gold        int                `yaml:"gold"`
	XP          int                `yaml:"xp"`
}

// DPS returns the boss's damage per second.
func (b BossDef) DPS() float64 { return b.Damage * b.AttackSpeed }

// Param returns the named tuning value, or def when unset.
func (b BossDef) Param(name string, def float64) float64 {
	if v, ok := b.Params[name]; ok {
		return v
	}
	return def
}

// CompositionEntry is one enemy type's count range in a route's roster.
type CompositionEntry struct {
	Enemy combat.EnemyType `yaml:"enemy"`
	Min   int              `yaml:"min"`
	Max   int              `yaml:"max"`
	// Weight in [0, 1] biases counts toward Max.
	Weight float64 `yaml:"weight"`
}

// RouteDef is a route as stored in the catalog.
type RouteDef struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Boss        string             `yaml:"boss"`
	BaseWaves   int                `yaml:"base_waves"`
	Waves       map[Length]int     `yaml:"waves"`
	GoldGain    int                `yaml:"gold_gain"`
	XPGain      int                `yaml:"xp_gain"`
	Composition []CompositionEntry `yaml:"composition"`
	Loot        loot.Table         `yaml:"loot"`
}

// RouteConfig is a route resolved for one length tier.
type RouteConfig struct {
	ID        string
	Length    Length
	WaveCount int
	Boss      string
	GoldGain  int
	XPGain    int
}

// Target returns the composite target string, e.g. "meadow_path_short".
func (r RouteConfig) Target() string {
	return r.ID + "_" + string(r.Length)
}

// Catalog indexes every content definition.
type Catalog struct {
	Enemies map[combat.EnemyType]EnemyDef
	Weapons map[combat.WeaponType]WeaponDef
	Armors  map[string]ArmorDef
	Bosses  map[string]BossDef
	Routes  map[string]RouteDef
}

// ParseTarget resolves a composite target such as "meadow_path_short".
//
// Postcondition: Returns ErrBadTarget when the suffix is not a length tier and
// ErrUnknownRoute when the route id is not in the catalog.
func (c *Catalog) ParseTarget(target string) (RouteConfig, error) {
	target = strings.TrimSpace(target)
	idx := strings.LastIndex(target, "_")
	if idx <= 0 || idx == len(target)-1 {
		return RouteConfig{}, fmt.Errorf("%w: %q", ErrBadTarget, target)
	}
	length, err := ParseLength(target[idx+1:])
	if err != nil {
		return RouteConfig{}, fmt.Errorf("%w: %q", ErrBadTarget, target)
	}
	id := target[:idx]
	def, ok := c.Routes[id]
	if !ok {
		return RouteConfig{}, fmt.Errorf("%w: %q", ErrUnknownRoute, id)
	}
	mult := length.Multiplier()
	return RouteConfig{
		ID:        id,
		Length:    length,
		WaveCount: int(math.Round(float64(def.BaseWaves) * mult)),
		Boss:      def.Boss,
		GoldGain:  int(math.Round(float64(def.GoldGain) * mult)),
		XPGain:    int(math.Round(float64(def.XPGain) * mult)),
	}, nil
}

// WaveCount returns the tabled wave count for route id at length l.
//
// Postcondition: ok is false when the route has no entry for l.
func (c *Catalog) WaveCount(id string, l Length) (int, bool) {
	def, ok := c.Routes[id]
	if !ok {
		return 0, false
	}
	n, ok := def.Waves[l]
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// Composition returns the roster table for route id.
//
// Postcondition: ok is false for unknown routes or empty rosters.
func (c *Catalog) Composition(id string) ([]CompositionEntry, bool) {
	def, ok := c.Routes[id]
	if !ok || len(def.Composition) == 0 {
		return nil, false
	}
	return def.Composition, true
}

// Enemy returns the base stats for t.
func (c *Catalog) Enemy(t combat.EnemyType) (EnemyDef, bool) {
	d, ok := c.Enemies[t]
	return d, ok
}

// Boss returns the boss definition for id.
func (c *Catalog) Boss(id string) (BossDef, bool) {
	d, ok := c.Bosses[id]
	return d, ok
}

// BossFor returns the boss guarding route id.
//
// Postcondition: ok is false for unknown routes or dangling boss ids.
func (c *Catalog) BossFor(routeID string) (BossDef, bool) {
	r, ok := c.Routes[routeID]
	if !ok {
		return BossDef{}, false
	}
	return c.Boss(r.Boss)
}

// Armor returns the armor snapshot for id.
func (c *Catalog) Armor(id string) (combat.Armor, bool) {
	d, ok := c.Armors[id]
	if !ok {
		return combat.Armor{}, false
	}
	return d.Armor(), true
}

// WeaponStats returns the level-scaled weapon snapshot for t.
//
// Precondition: level >= 1; lower levels are treated as 1.
// Postcondition: ok is false for weapon types missing from the catalog.
func (c *Catalog) WeaponStats(t combat.WeaponType, level int) (combat.Weapon, bool) {
	d, ok := c.Weapons[t]
	if !ok {
		return combat.Weapon{}, false
	}
	if level < 1 {
		level = 1
	}
	return combat.Weapon{
		Type:        t,
		Damage:      d.Damage + d.DamagePerLevel*float64(level-1),
		AttackSpeed: d.AttackSpeed,
		Level:       level,
	}, true
}

// RouteIDs returns every route id in sorted order.
func (c *Catalog) RouteIDs() []string {
	ids := make([]string, 0, len(c.Routes))
	for id := range c.Routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks cross-references between definitions.
//
// Postcondition: Returns nil iff every definition is well-formed and every
// route references a known boss and known enemy types.
func (c *Catalog) Validate() error {
	var errs []error
	for _, t := range combat.AllEnemyTypes() {
		d, ok := c.Enemies[t]
		if !ok {
			errs = append(errs, fmt.Errorf("enemy %q missing", t))
			continue
		}
		if d.HP <= 0 || d.Damage < 0 || d.AttackSpeed <= 0 {
			errs = append(errs, fmt.Errorf("enemy %q: hp and attack_speed must be > 0, damage >= 0", t))
		}
	}
	for t, d := range c.Weapons {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("weapon %q is not a known type", t))
		}
		if d.Damage <= 0 || d.AttackSpeed <= 0 {
			errs = append(errs, fmt.Errorf("weapon %q: damage and attack_speed must be > 0", t))
		}
	}
	for id, a := range c.Armors {
		if !a.Effect.Valid() {
			errs = append(errs, fmt.Errorf("armor %q: unknown effect %q", id, a.Effect))
		}
		if a.Defense < 0 || a.Defense > 100 {
			errs = append(errs, fmt.Errorf("armor %q: defense must be in [0, 100]", id))
		}
	}
	for id, b := range c.Bosses {
		if b.HP <= 0 || b.AttackSpeed <= 0 {
			errs = append(errs, fmt.Errorf("boss %q: hp and attack_speed must be > 0", id))
		}
		if b.Mechanic == "" {
			errs = append(errs, fmt.Errorf("boss %q: mechanic must not be empty", id))
		}
		if b.Mechanic == "script" && b.Script == "" {
			errs = append(errs, fmt.Errorf("boss %q: scripted mechanic needs a script function", id))
		}
		if b.Weakness != "" && !b.Weakness.Valid() {
			errs = append(errs, fmt.Errorf("boss %q: unknown weakness %q", id, b.Weakness))
		}
	}
	for id, r := range c.Routes {
		if _, ok := c.Bosses[r.Boss]; !ok {
			errs = append(errs, fmt.Errorf("route %q: unknown boss %q", id, r.Boss))
		}
		if r.BaseWaves < 1 {
			errs = append(errs, fmt.Errorf("route %q: base_waves must be >= 1", id))
		}
		for i, e := range r.Composition {
			if !e.Enemy.Valid() {
				errs = append(errs, fmt.Errorf("route %q: composition[%d] unknown enemy %q", id, i, e.Enemy))
			}
			if e.Min < 0 || e.Max < e.Min {
				errs = append(errs, fmt.Errorf("route %q: composition[%d] needs 0 <= min <= max", id, i))
			}
			if e.Weight < 0 || e.Weight > 1 {
				errs = append(errs, fmt.Errorf("route %q: composition[%d] weight must be in [0, 1]", id, i))
			}
		}
		if err := r.Loot.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("route %q: %w", id, err))
		}
		for _, a := range r.Loot.BonusArmor {
			if _, ok := c.Armors[a]; !ok {
				errs = append(errs, fmt.Errorf("route %q: unknown bonus armor %q", id, a))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("content validation failed: %w", errors.Join(errs...))
	}
	return nil
}
