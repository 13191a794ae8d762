// Package boss resolves boss encounters. Each boss names a mechanic; the
// Table maps mechanic names to handlers that shape the fight timeline, then
// applies armor, counters and the final HP check shared by every boss.
package boss

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
	"github.com/cory-johannsen/idlesim/internal/game/dice"
	"github.com/cory-johannsen/idlesim/internal/scripting"
)

var (
	// ErrUnknownMechanic is returned when no handler is registered for a boss.
	ErrUnknownMechanic = errors.New("boss: unknown mechanic")
	// ErrNoWeapons is returned when the hero enters a boss fight unarmed.
	ErrNoWeapons = errors.New("boss: hero has no weapons")
)

// MaxFightSeconds bounds simulated fights; longer fights are lost.
const MaxFightSeconds = 3600.0

// Encounter is the state a mechanic handler reads.
type Encounter struct {
	Boss    content.BossDef
	Weapons []combat.Weapon
	Armor   combat.Armor
	HeroHP  float64
	MaxHP   float64
	Src     dice.Source

	// Weapon and HeroDPS are chosen by the Table before the handler runs.
	Weapon  combat.Weapon
	HeroDPS float64
}

// BaseDuration is the fight length at the chosen weapon's full DPS.
func (e *Encounter) BaseDuration() float64 {
	return e.Boss.HP / e.HeroDPS
}

// Base returns the outcome of a fight with no mechanic at all.
func (e *Encounter) Base() Outcome {
	d := e.BaseDuration()
	return Outcome{
		HeroDPS:  e.HeroDPS,
		Duration: d,
		Damage:   e.Boss.DPS() * d,
	}
}

// Outcome is a handler's account of the fight timeline before armor.
type Outcome struct {
	// HeroDPS is the hero's average damage per second against the boss.
	HeroDPS  float64
	Duration float64
	// Damage is reduced by armor and the exchange-timed effect.
	Damage float64
	// Guaranteed is reduced by armor only.
	Guaranteed float64
	// True ignores armor entirely.
	True     float64
	Messages []string
	// Failed marks a fight the hero cannot finish regardless of HP.
	Failed bool
}

func (o *Outcome) logf(format string, args ...any) {
	o.Messages = append(o.Messages, fmt.Sprintf(format, args...))
}

// Mechanic shapes one boss's fight timeline.
type Mechanic interface {
	Apply(e *Encounter) Outcome
}

// MechanicFunc adapts a plain function to Mechanic.
type MechanicFunc func(e *Encounter) Outcome

// Apply calls f(e).
func (f MechanicFunc) Apply(e *Encounter) Outcome { return f(e) }

// ScriptRunner evaluates scripted mechanics.
type ScriptRunner interface {
	CallMechanic(fn string, st scripting.MechanicState, src dice.Source) scripting.MechanicEffect
}

// Result is the resolved boss fight.
type Result struct {
	BossID      string
	BossName    string
	Mechanic    string
	Victory     bool
	Weapon      combat.WeaponType
	HeroDPS     float64
	Duration    float64
	DamageTaken float64
	FinalHP     float64
	CounterMet  bool
	Log         []string
}

// Table maps mechanic names to handlers.
type Table struct {
	handlers map[string]Mechanic
	logger   *zap.Logger
}

// NewTable returns a Table with every built-in mechanic registered. scripts
// may be nil, in which case scripted bosses fight without their script.
func NewTable(scripts ScriptRunner, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Table{handlers: make(map[string]Mechanic), logger: logger}
	t.Register(MechanicSplit, MechanicFunc(split))
	t.Register(MechanicWeakness, MechanicFunc(weakness))
	t.Register(MechanicSummon, MechanicFunc(summon))
	t.Register(MechanicPhase, MechanicFunc(phase))
	t.Register(MechanicDisable, MechanicFunc(disable))
	t.Register(MechanicFortify, MechanicFunc(fortify))
	t.Register(MechanicBurn, MechanicFunc(burn))
	t.Register(MechanicScript, scripted{runner: scripts, logger: logger})
	return t
}

// Register binds name to m, replacing any previous handler.
//
// Precondition: Not called concurrently with Fight.
func (t *Table) Register(name string, m Mechanic) {
	t.handlers[name] = m
}

// Has reports whether a handler is registered for name.
func (t *Table) Has(name string) bool {
	_, ok := t.handlers[name]
	return ok
}

// Mechanics returns the registered mechanic names in sorted order.
func (t *Table) Mechanics() []string {
	names := make([]string, 0, len(t.handlers))
	for n := range t.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ChooseWeapon returns the weapon the hero uses against def: the boss's
// weakness if equipped, otherwise the highest raw DPS (earliest in canonical
// order on ties). Boss fights ignore the type advantage table.
//
// Postcondition: ok is false iff weapons is empty.
func ChooseWeapon(weapons []combat.Weapon, def content.BossDef) (combat.Weapon, bool) {
	if len(weapons) == 0 {
		return combat.Weapon{}, false
	}
	if def.Weakness != "" {
		if w, ok := combat.FindWeapon(weapons, def.Weakness); ok {
			return w, true
		}
	}
	sorted := combat.SortWeapons(weapons)
	best := sorted[0]
	for _, w := range sorted[1:] {
		if w.DPS() > best.DPS() {
			best = w
		}
	}
	return best, true
}

// Fight resolves the encounter.
//
// Precondition: enc.Boss, enc.Weapons, enc.Armor, enc.HeroHP, enc.MaxHP and
// enc.Src are set.
// Postcondition: Returns ErrNoWeapons, ErrUnknownMechanic or combat.ErrNoDamage
// for unusable inputs; otherwise 0 <= FinalHP <= HeroHP and Victory implies
// FinalHP > 0.
func (t *Table) Fight(enc Encounter) (Result, error) {
	def := enc.Boss
	h, ok := t.handlers[def.Mechanic]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q for boss %q", ErrUnknownMechanic, def.Mechanic, def.ID)
	}
	w, ok := ChooseWeapon(enc.Weapons, def)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoWeapons, def.Name)
	}
	if w.DPS() <= 0 || def.HP <= 0 {
		return Result{}, fmt.Errorf("%w: %s vs %s", combat.ErrNoDamage, w.Type, def.Name)
	}
	enc.Weapon = w
	enc.HeroDPS = w.DPS()

	res := Result{
		BossID:   def.ID,
		BossName: def.Name,
		Mechanic: def.Mechanic,
		Weapon:   w.Type,
	}
	res.Log = append(res.Log, fmt.Sprintf("Boss: %s appears! %s", def.Name, def.Quirk))

	out := h.Apply(&enc)

	res.CounterMet = CounterMet(def.Counter, enc.Weapons, enc.Armor)
	if !res.CounterMet {
		applyPenalty(def.Counter, &out)
	}
	if out.Duration > MaxFightSeconds && !out.Failed {
		out.Failed = true
		out.logf("The fight drags past %.0fs and the hero retreats", MaxFightSeconds)
	}

	mitigated := combat.Mitigate(out.Damage, enc.Armor)
	fx := combat.ApplyExchangeEffect(enc.Armor, combat.ExchangeInput{
		Enemy:      def.Family,
		Damage:     mitigated,
		TimeToKill: out.Duration,
		MaxHP:      enc.MaxHP,
	}, enc.Src)
	guaranteed := combat.Mitigate(out.Guaranteed, enc.Armor)
	total := math.Max(0, fx.Damage+guaranteed+out.True)

	res.HeroDPS = out.HeroDPS
	res.Duration = fx.TimeToKill
	res.DamageTaken = total
	res.FinalHP = math.Max(0, enc.HeroHP-total)
	res.Victory = !out.Failed && enc.HeroHP-total > 0
	res.Log = append(res.Log, out.Messages...)
	if fx.Message != "" {
		res.Log = append(res.Log, fx.Message)
	}
	if res.Victory {
		res.Log = append(res.Log, fmt.Sprintf("Defeated %s with %s in %.1fs, took %.1f damage", def.Name, w.Type, res.Duration, total))
	} else {
		res.Log = append(res.Log, fmt.Sprintf("Fell to %s after %.1fs (%.1f damage)", def.Name, res.Duration, total))
	}

	t.logger.Debug("boss fight resolved",
		zap.String("boss", def.ID),
		zap.String("mechanic", def.Mechanic),
		zap.Bool("victory", res.Victory),
		zap.Float64("duration", res.Duration),
		zap.Float64("damage", total),
	)
	return res, nil
}
