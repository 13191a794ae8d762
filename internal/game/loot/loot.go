// Package loot rolls cosmetic and material rewards from per-route tables.
package loot

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/idlesim/internal/game/dice"
)

const (
	// DefaultDropChance is used for drops that leave chance unset.
	DefaultDropChance = 0.7
	// DefaultBonusChance is the bonus armor chance after a boss defeat.
	DefaultBonusChance = 0.3
)

// Drop defines a single entry in a route loot table.
type Drop struct {
	ItemID string `yaml:"item"`
	// Chance nil means DefaultDropChance; an explicit 0 never drops.
	Chance *float64 `yaml:"chance"`
	// Quantity is a dice expression such as "1d3"; empty means exactly one.
	Quantity string `yaml:"quantity"`
}

// Table defines the possible drops for one route.
type Table struct {
	Drops      []Drop   `yaml:"drops"`
	BonusArmor []string `yaml:"bonus_armor"`
	// BonusChance nil means DefaultBonusChance.
	BonusChance *float64 `yaml:"bonus_chance"`
}

// Validate checks that the loot table satisfies its invariants.
//
// Postcondition: Returns nil iff every drop has an item id, a chance in
// [0, 1] and a parseable quantity that can roll above zero; an empty table
// is valid.
func (t *Table) Validate() error {
	for i, d := range t.Drops {
		if d.ItemID == "" {
			return fmt.Errorf("loot table: drop[%d] must have a non-empty item id", i)
		}
		if d.Chance != nil && (*d.Chance < 0 || *d.Chance > 1) {
			return fmt.Errorf("loot table: drop[%d] chance must be in [0, 1], got %f", i, *d.Chance)
		}
		if d.Quantity != "" {
			e, err := dice.Parse(d.Quantity)
			if err != nil {
				return fmt.Errorf("loot table: drop[%d] quantity: %w", i, err)
			}
			if e.Max() < 1 {
				return fmt.Errorf("loot table: drop[%d] quantity %q can never be positive", i, d.Quantity)
			}
		}
	}
	if c := t.BonusChance; c != nil && (*c < 0 || *c > 1) {
		return fmt.Errorf("loot table: bonus_chance must be in [0, 1], got %f", *c)
	}
	for i, id := range t.BonusArmor {
		if id == "" {
			return fmt.Errorf("loot table: bonus_armor[%d] must not be empty", i)
		}
	}
	return nil
}

// Item is a single rolled drop.
type Item struct {
	ItemID     string
	InstanceID string
	Quantity   int
	Bonus      bool
}

// String renders the item for the combat log.
func (i Item) String() string {
	if i.Bonus {
		return fmt.Sprintf("%s x%d (bonus)", i.ItemID, i.Quantity)
	}
	return fmt.Sprintf("%s x%d", i.ItemID, i.Quantity)
}

// Generate rolls every drop in t independently and, when bossDefeated, the
// bonus armor piece.
//
// Precondition: t must have passed Validate(); src must be non-nil.
// Postcondition: Every returned item has Quantity >= 1 and a unique InstanceID.
func Generate(t Table, bossDefeated bool, src dice.Source) []Item {
	var out []Item
	for _, d := range t.Drops {
		if !dice.Chance(src, orDefault(d.Chance, DefaultDropChance)) {
			continue
		}
		out = append(out, Item{
			ItemID:     d.ItemID,
			InstanceID: uuid.New().String(),
			Quantity:   quantity(d.Quantity, src),
		})
	}

	if bossDefeated && len(t.BonusArmor) > 0 {
		if dice.Chance(src, orDefault(t.BonusChance, DefaultBonusChance)) {
			out = append(out, Item{
				ItemID:     t.BonusArmor[src.Intn(len(t.BonusArmor))],
				InstanceID: uuid.New().String(),
				Quantity:   1,
				Bonus:      true,
			})
		}
	}
	return out
}

func quantity(expr string, src dice.Source) int {
	if expr == "" {
		return 1
	}
	res, err := dice.RollExpr(expr, src)
	if err != nil || res.Total() < 1 {
		return 1
	}
	return res.Total()
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
