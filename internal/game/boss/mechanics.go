package boss

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/scripting"
)

// Mechanic names.
const (
	MechanicSplit    = "split"
	MechanicWeakness = "weakness"
	MechanicSummon   = "summon"
	MechanicPhase    = "phase"
	MechanicDisable  = "disable"
	MechanicFortify  = "fortify"
	MechanicBurn     = "burn"
	MechanicScript   = "script"
)

// Default tuning, overridable per boss through BossDef.Params.
const (
	DefaultSplitThreshold    = 0.5
	DefaultSplitDamage       = 0.4
	DefaultWeaknessPenalty   = 0.5
	DefaultMinionDamage      = 3.0
	DefaultMinionAttackSpeed = 1.0
	DefaultPhaseInterval     = 8.0
	DefaultPhaseLength       = 4.0
	DefaultDisableInterval   = 10.0
	DefaultDisableWindow     = 2.5
	DefaultFortifyThreshold  = 0.5
	DefaultFortifyReduction  = 0.4
	DefaultBurnPerSecond     = 3.0
)

// summonThresholds are the boss HP fractions at which minions appear.
var summonThresholds = []float64{0.75, 0.25}

// split: at the threshold the boss becomes two lesser copies, each dealing a
// fraction of its damage, that attack until the hero finishes them.
func split(e *Encounter) Outcome {
	thr := e.Boss.Param("split_threshold", DefaultSplitThreshold)
	frac := e.Boss.Param("split_damage", DefaultSplitDamage)
	out := e.Base()
	before := out.Duration * (1 - thr)
	after := out.Duration * thr
	out.Damage = e.Boss.DPS()*before + 2*frac*e.Boss.DPS()*after
	out.logf("%s splits into two lesser slimes at %.0f%% health!", e.Boss.Name, thr*100)
	return out
}

// weakness: without the weakness weapon the hero's DPS is cut.
func weakness(e *Encounter) Outcome {
	if e.Boss.Weakness != "" && e.Weapon.Type == e.Boss.Weakness {
		out := e.Base()
		out.logf("Your %s strikes the %s's weak point", e.Weapon.Type, e.Boss.Name)
		return out
	}
	penalty := e.Boss.Param("penalty", DefaultWeaknessPenalty)
	e.HeroDPS *= penalty
	out := e.Base()
	out.logf("%s shrugs off your %s: damage reduced to %.0f%%", e.Boss.Name, e.Weapon.Type, penalty*100)
	return out
}

// summon: minions join at fixed HP thresholds and each attacks for half of
// the fight time remaining when it arrives.
func summon(e *Encounter) Outcome {
	minionDPS := e.Boss.Param("minion_damage", DefaultMinionDamage) *
		e.Boss.Param("minion_attack_speed", DefaultMinionAttackSpeed)
	out := e.Base()
	for _, thr := range summonThresholds {
		remaining := out.Duration * thr
		out.Damage += minionDPS * remaining / 2
		out.logf("%s summons a minion at %.0f%% health", e.Boss.Name, thr*100)
	}
	return out
}

// phase: every interval seconds the boss enters a phase of the given length
// where only one weapon type, cycling in canonical order, can damage it.
// Without that weapon the hero deals nothing and takes unmitigated damage.
func phase(e *Encounter) Outcome {
	interval := e.Boss.Param("phase_interval", DefaultPhaseInterval)
	length := e.Boss.Param("phase_length", DefaultPhaseLength)
	if interval <= 0 {
		interval = DefaultPhaseInterval
	}
	if length <= 0 || length >= interval {
		length = interval / 2
	}
	order := combat.AllWeaponTypes()
	bossDPS := e.Boss.DPS()

	var out Outcome
	hp := e.Boss.HP
	t := 0.0
	phases, missed := 0, 0
	for k := 1; hp > 0; k++ {
		seg := interval*float64(k) - t
		if kill := hp / e.HeroDPS; kill <= seg {
			t += kill
			out.Damage += bossDPS * kill
			break
		}
		hp -= e.HeroDPS * seg
		out.Damage += bossDPS * seg
		t += seg

		phases++
		want := order[(k-1)%len(order)]
		if w, ok := combat.FindWeapon(e.Weapons, want); ok && w.DPS() > 0 {
			span := math.Min(length, hp/w.DPS())
			hp -= w.DPS() * span
			out.Damage += bossDPS * span
			t += span
		} else {
			missed++
			out.True += bossDPS * length
			t += length
		}
		if t > MaxFightSeconds {
			out.Failed = true
			break
		}
	}
	out.Duration = t
	out.HeroDPS = (e.Boss.HP - math.Max(0, hp)) / t
	out.logf("%s shifted phase %d times; %d phases without the matching weapon", e.Boss.Name, phases, missed)
	return out
}

// disable: every interval seconds all weapons are disabled for a window.
// The boss keeps attacking and effects cannot stop that damage.
func disable(e *Encounter) Outcome {
	interval := e.Boss.Param("disable_interval", DefaultDisableInterval)
	window := e.Boss.Param("disable_window", DefaultDisableWindow)
	if interval <= 0 {
		interval = DefaultDisableInterval
	}
	if window < 0 {
		window = 0
	}
	need := e.BaseDuration()
	active, disabled, t := 0.0, 0.0, 0.0
	stuns := 0
	for k := 1; ; k++ {
		seg := interval*float64(k) - t
		if active+seg >= need {
			t += need - active
			break
		}
		active += seg
		t += seg + window
		disabled += window
		stuns++
		if t > MaxFightSeconds {
			break
		}
	}
	out := Outcome{
		HeroDPS:    e.Boss.HP / t,
		Duration:   t,
		Damage:     e.Boss.DPS() * need,
		Guaranteed: e.Boss.DPS() * disabled,
	}
	out.logf("%s disabled your weapons %d times (%.1fs)", e.Boss.Name, stuns, disabled)
	return out
}

// fortify: below the threshold the hero's damage is reduced.
func fortify(e *Encounter) Outcome {
	thr := e.Boss.Param("fortify_threshold", DefaultFortifyThreshold)
	red := e.Boss.Param("fortify_reduction", DefaultFortifyReduction)
	base := e.BaseDuration()
	if red >= 1 {
		out := e.Base()
		out.Failed = true
		out.logf("%s becomes invulnerable", e.Boss.Name)
		return out
	}
	d := base*(1-thr) + base*thr/(1-red)
	out := Outcome{
		HeroDPS:  e.Boss.HP / d,
		Duration: d,
		Damage:   e.Boss.DPS() * d,
	}
	out.logf("%s fortifies below %.0f%% health: your damage is reduced by %.0f%%", e.Boss.Name, thr*100, red*100)
	return out
}

// burn: a damage-over-time aura that ignores armor for the whole fight.
func burn(e *Encounter) Outcome {
	rate := e.Boss.Param("burn_per_second", DefaultBurnPerSecond)
	out := e.Base()
	out.True = rate * out.Duration
	out.logf("%s's flames burn for %.1f damage", e.Boss.Name, out.True)
	return out
}

// scripted delegates to a Lua function named by BossDef.Script.
type scripted struct {
	runner ScriptRunner
	logger *zap.Logger
}

func (s scripted) Apply(e *Encounter) Outcome {
	out := e.Base()
	if s.runner == nil || e.Boss.Script == "" {
		s.logger.Warn("boss: scripted mechanic without a script", zap.String("boss", e.Boss.ID))
		return out
	}
	eff := s.runner.CallMechanic(e.Boss.Script, scripting.MechanicState{
		BossHP:   e.Boss.HP,
		BossDPS:  e.Boss.DPS(),
		HeroDPS:  e.HeroDPS,
		Duration: out.Duration,
		Incoming: out.Damage,
		HeroHP:   e.HeroHP,
		MaxHP:    e.MaxHP,
		Weapon:   string(e.Weapon.Type),
	}, e.Src)
	if m := eff.DurationMultiplier; m > 0 && m != 1 {
		out.Duration *= m
		out.Damage *= m
		out.HeroDPS /= m
	}
	out.True += eff.ExtraDamage
	if eff.Message != "" {
		out.Messages = append(out.Messages, eff.Message)
	}
	return out
}
