// Package roll caches enemy compositions per route and difficulty so that
// repeated requests see the same roster until the adventure ends.
package roll

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
	"github.com/cory-johannsen/idlesim/internal/game/dice"
)

// DefaultTTL is how long an untouched roll survives CleanupStale.
const DefaultTTL = 24 * time.Hour

// genericCounts is the roster size for routes missing from the catalog.
var genericCounts = map[content.Length]int{
	content.Short:  3,
	content.Medium: 5,
	content.Long:   8,
}

// Outcome records why a roll was cleared.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
)

// Key identifies one cached roll.
type Key struct {
	RouteID    string
	Difficulty content.Length
}

// String renders the key as a composite target, e.g. "meadow_path_short".
func (k Key) String() string {
	return k.RouteID + "_" + string(k.Difficulty)
}

// Entry is one enemy type's share of a roll.
type Entry struct {
	Enemy combat.EnemyType
	Count int
	// Percentage of the non-boss roster, 0 for the boss entry.
	Percentage float64
	Boss       bool
	BossID     string
}

// EnemyRoll is a cached enemy composition.
//
// Invariant: TotalEnemies is the sum of Count over non-boss entries.
type EnemyRoll struct {
	Key          Key
	Timestamp    time.Time
	LastAccess   time.Time
	Entries      []Entry
	TotalEnemies int
	RollSeed     int64
}

// Roster returns the non-boss entries.
func (r EnemyRoll) Roster() []Entry {
	out := make([]Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if !e.Boss {
			out = append(out, e)
		}
	}
	return out
}

// BossEntry returns the boss-tagged entry if present.
func (r EnemyRoll) BossEntry() (Entry, bool) {
	for _, e := range r.Entries {
		if e.Boss {
			return e, true
		}
	}
	return Entry{}, false
}

// Roster is the catalog view the registry draws compositions from.
type Roster interface {
	Composition(routeID string) ([]content.CompositionEntry, bool)
	BossFor(routeID string) (content.BossDef, bool)
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry stores enemy rolls keyed by route and difficulty.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	rolls  map[Key]EnemyRoll
	roster Roster
	src    dice.Source
	now    func() time.Time
	ttl    time.Duration
	logger *zap.Logger
}

// NewRegistry creates an empty Registry.
//
// Precondition: roster and src must be non-nil.
// Postcondition: Returns a Registry with DefaultTTL and time.Now unless
// overridden by opts.
func NewRegistry(roster Roster, src dice.Source, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		rolls:  make(map[Key]EnemyRoll),
		roster: roster,
		src:    src,
		now:    time.Now,
		ttl:    DefaultTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the cached roll for the key, generating and storing one first
// if none exists.
//
// Postcondition: Repeated calls return identical entries until Clear or
// CleanupStale removes the roll; LastAccess is refreshed on every call.
func (r *Registry) Get(routeID string, difficulty content.Length) EnemyRoll {
	key := Key{RouteID: routeID, Difficulty: difficulty}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if cached, ok := r.rolls[key]; ok {
		cached.LastAccess = now
		r.rolls[key] = cached
		return cached.clone()
	}
	fresh := r.generate(key, now)
	r.rolls[key] = fresh
	r.logger.Debug("enemy roll generated",
		zap.String("key", key.String()),
		zap.Int("total", fresh.TotalEnemies),
		zap.Int64("seed", fresh.RollSeed),
	)
	return fresh.clone()
}

// Preview returns the cached roll without refreshing it, or a freshly
// generated roll that is not stored.
func (r *Registry) Preview(routeID string, difficulty content.Length) EnemyRoll {
	key := Key{RouteID: routeID, Difficulty: difficulty}
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.rolls[key]; ok {
		return cached.clone()
	}
	return r.generate(key, r.now())
}

// Clear removes the roll for the key.
//
// Postcondition: Returns true iff a roll was stored. The next Get generates
// a new composition.
func (r *Registry) Clear(routeID string, difficulty content.Length, outcome Outcome) bool {
	key := Key{RouteID: routeID, Difficulty: difficulty}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rolls[key]
	if ok {
		delete(r.rolls, key)
	}
	r.logger.Debug("enemy roll cleared",
		zap.String("key", key.String()),
		zap.String("outcome", string(outcome)),
		zap.Bool("existed", ok),
	)
	return ok
}

// CleanupStale removes rolls whose last access is older than the TTL.
//
// Postcondition: Returns the number of rolls removed.
func (r *Registry) CleanupStale() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for k, v := range r.rolls {
		if v.LastAccess.Before(cutoff) {
			delete(r.rolls, k)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("stale enemy rolls removed", zap.Int("count", removed))
	}
	return removed
}

// Active returns every stored roll sorted by key.
func (r *Registry) Active() []EnemyRoll {
	r.mu.Lock()
	out := make([]EnemyRoll, 0, len(r.rolls))
	for _, v := range r.rolls {
		out = append(out, v.clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Len returns the number of stored rolls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rolls)
}

// generate draws a new roll. Callers must hold r.mu.
func (r *Registry) generate(key Key, now time.Time) EnemyRoll {
	roll := EnemyRoll{
		Key:        key,
		Timestamp:  now,
		LastAccess: now,
		RollSeed:   int64(r.src.Intn(math.MaxInt32)),
	}

	table, ok := r.roster.Composition(key.RouteID)
	if !ok {
		roll.Entries = r.genericEntries(key.Difficulty)
	} else {
		roll.Entries = r.scaledEntries(table, key.Difficulty)
		if key.Difficulty == content.Long {
			if b, ok := r.roster.BossFor(key.RouteID); ok {
				roll.Entries = append(roll.Entries, Entry{Enemy: b.Family, Count: 1, Boss: true, BossID: b.ID})
			}
		}
	}

	for _, e := range roll.Entries {
		if !e.Boss {
			roll.TotalEnemies += e.Count
		}
	}
	for i := range roll.Entries {
		if !roll.Entries[i].Boss && roll.TotalEnemies > 0 {
			roll.Entries[i].Percentage = float64(roll.Entries[i].Count) / float64(roll.TotalEnemies) * 100
		}
	}
	return roll
}

func (r *Registry) scaledEntries(table []content.CompositionEntry, difficulty content.Length) []Entry {
	mult := difficulty.Multiplier()
	var out []Entry
	for _, c := range table {
		lo := int(math.Round(float64(c.Min) * mult))
		hi := int(math.Round(float64(c.Max) * mult))
		n := dice.Between(r.src, lo, hi)
		if dice.Chance(r.src, c.Weight) {
			if second := dice.Between(r.src, lo, hi); second > n {
				n = second
			}
		}
		if n > 0 {
			out = append(out, Entry{Enemy: c.Enemy, Count: n})
		}
	}
	if len(out) == 0 && len(table) > 0 {
		out = append(out, Entry{Enemy: table[0].Enemy, Count: 1})
	}
	return out
}

func (r *Registry) genericEntries(difficulty content.Length) []Entry {
	n, ok := genericCounts[difficulty]
	if !ok {
		n = genericCounts[content.Short]
	}
	types := combat.AllEnemyTypes()
	counts := make(map[combat.EnemyType]int, len(types))
	for i := 0; i < n; i++ {
		counts[types[r.src.Intn(len(types))]]++
	}
	var out []Entry
	for _, t := range types {
		if counts[t] > 0 {
			out = append(out, Entry{Enemy: t, Count: counts[t]})
		}
	}
	return out
}

func (r EnemyRoll) clone() EnemyRoll {
	r.Entries = append([]Entry(nil), r.Entries...)
	return r
}

// String renders a one-line summary such as "meadow_path_short: 3 slime, 2 plant".
func (r EnemyRoll) String() string {
	s := r.Key.String() + ":"
	for i, e := range r.Entries {
		if i > 0 {
			s += ","
		}
		if e.Boss {
			s += fmt.Sprintf(" boss %s", e.BossID)
			continue
		}
		s += fmt.Sprintf(" %d %s", e.Count, e.Enemy)
	}
	return s
}
