// Package wave turns a cached enemy roll into the ordered waves of a run.
package wave

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
	"github.com/cory-johannsen/idlesim/internal/game/dice"
	"github.com/cory-johannsen/idlesim/internal/game/roll"
)

const (
	// BaseSize is the enemy count of the first wave.
	BaseSize = 2
	// MaxSize caps the enemy count of any wave.
	MaxSize = 5
)

// ErrEmptyRoster is returned when a roll has no non-boss enemies to draw.
var ErrEmptyRoster = errors.New("wave: roll has no enemies")

// Size returns the enemy count of wave i (0-based): min(MaxSize, BaseSize+i).
func Size(i int) int {
	if i < 0 {
		i = 0
	}
	return min(MaxSize, BaseSize+i)
}

// Wave is one group of enemies fought back to back.
type Wave struct {
	// Number is 1-based.
	Number  int
	Enemies []combat.Enemy
}

// String lists the wave's enemy types, e.g. "wave 2: slime, wolf, slime".
func (w Wave) String() string {
	names := make([]string, len(w.Enemies))
	for i, e := range w.Enemies {
		names[i] = string(e.Type)
	}
	return fmt.Sprintf("wave %d: %s", w.Number, strings.Join(names, ", "))
}

// Stats is the catalog view the generator needs.
type Stats interface {
	WaveCount(routeID string, l content.Length) (int, bool)
	Enemy(t combat.EnemyType) (content.EnemyDef, bool)
}

// Generator builds waves from rolls.
type Generator struct {
	stats  Stats
	src    dice.Source
	logger *zap.Logger
}

// NewGenerator creates a Generator.
//
// Precondition: stats and src must be non-nil.
func NewGenerator(stats Stats, src dice.Source, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{stats: stats, src: src, logger: logger}
}

// Count returns the number of waves for route: the catalog's route and
// length table when present, otherwise route.WaveCount (at least 1).
func (g *Generator) Count(route content.RouteConfig) int {
	if n, ok := g.stats.WaveCount(route.ID, route.Length); ok {
		return n
	}
	return max(1, route.WaveCount)
}

// Generate draws every wave for route from the roll's non-boss entries,
// weighted by their counts. Enemy stats are copied from the catalog.
//
// Postcondition: len(result) == Count(route); wave i holds Size(i) enemies.
// Returns ErrEmptyRoster when the roll has nothing to draw from.
func (g *Generator) Generate(route content.RouteConfig, r roll.EnemyRoll) ([]Wave, error) {
	roster := r.Roster()
	total := 0
	for _, e := range roster {
		total += e.Count
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRoster, r.Key)
	}

	n := g.Count(route)
	waves := make([]Wave, 0, n)
	for i := 0; i < n; i++ {
		size := Size(i)
		w := Wave{Number: i + 1, Enemies: make([]combat.Enemy, 0, size)}
		for j := 0; j < size; j++ {
			t := pick(roster, total, g.src)
			def, ok := g.stats.Enemy(t)
			if !ok {
				return nil, fmt.Errorf("wave: no base stats for enemy type %q", t)
			}
			w.Enemies = append(w.Enemies, def.Spawn())
		}
		waves = append(waves, w)
	}
	g.logger.Debug("waves generated",
		zap.String("target", route.Target()),
		zap.Int("waves", n),
	)
	return waves, nil
}

func pick(roster []roll.Entry, total int, src dice.Source) combat.EnemyType {
	x := src.Intn(total)
	for _, e := range roster {
		if x < e.Count {
			return e.Enemy
		}
		x -= e.Count
	}
	return roster[len(roster)-1].Enemy
}
