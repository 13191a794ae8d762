// Package adventure runs complete adventures: waves of enemies resolved one
// exchange at a time, a boss encounter, and the rewards that follow.
package adventure

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/game/boss"
	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
	"github.com/cory-johannsen/idlesim/internal/game/dice"
	"github.com/cory-johannsen/idlesim/internal/game/loot"
	"github.com/cory-johannsen/idlesim/internal/game/roll"
	"github.com/cory-johannsen/idlesim/internal/game/wave"
)

// Phase is a state of the adventure state machine.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseWave     Phase = "wave"
	PhaseBoss     Phase = "boss"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// RewardPolicy decides what a defeated hero keeps.
type RewardPolicy string

const (
	// RewardAllOrNothing discards every reward on defeat.
	RewardAllOrNothing RewardPolicy = "all_or_nothing"
	// RewardPartial keeps gold and XP from fully cleared waves; never loot.
	RewardPartial RewardPolicy = "partial"
)

// ParseRewardPolicy parses a policy name; empty selects RewardAllOrNothing.
func ParseRewardPolicy(s string) (RewardPolicy, error) {
	switch p := RewardPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RewardAllOrNothing, nil
	case RewardAllOrNothing, RewardPartial:
		return p, nil
	default:
		return "", fmt.Errorf("adventure: unknown reward policy %q", s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithRewardPolicy sets the defeat reward policy.
func WithRewardPolicy(p RewardPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// Engine runs adventures against one composition registry.
type Engine struct {
	cat    *content.Catalog
	reg    *roll.Registry
	waves  *wave.Generator
	bosses *boss.Table
	src    dice.Source
	policy RewardPolicy
	logger *zap.Logger
}

// NewEngine wires an Engine.
//
// Precondition: cat, reg, bosses and src must be non-nil.
// Postcondition: Returns an error if any catalog boss names a mechanic the
// table does not handle.
func NewEngine(cat *content.Catalog, reg *roll.Registry, bosses *boss.Table, src dice.Source, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for id, b := range cat.Bosses {
		if !bosses.Has(b.Mechanic) {
			return nil, fmt.Errorf("adventure: boss %q: %w %q", id, boss.ErrUnknownMechanic, b.Mechanic)
		}
	}
	e := &Engine{
		cat:    cat,
		reg:    reg,
		waves:  wave.NewGenerator(cat, src, logger),
		bosses: bosses,
		src:    src,
		policy: RewardAllOrNothing,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Registry returns the composition registry the engine draws from.
func (e *Engine) Registry() *roll.Registry { return e.reg }

// Run simulates the adventure at target and clears its cached roll with the
// outcome. It never returns an error; failures are reported in the Result.
func (e *Engine) Run(hero Hero, target string) Result {
	return e.run(hero, target, true)
}

// Evaluate simulates like Run but leaves the cached roll in place.
func (e *Engine) Evaluate(hero Hero, target string) Result {
	return e.run(hero, target, false)
}

// Abandon clears the cached roll for target.
//
// Postcondition: Returns true iff a roll was cached; errors only for
// unparseable or unknown targets.
func (e *Engine) Abandon(target string) (bool, error) {
	route, err := e.cat.ParseTarget(target)
	if err != nil {
		return false, err
	}
	return e.reg.Clear(route.ID, route.Length, roll.OutcomeAbandoned), nil
}

// Preview shows the composition the next run at target would face without
// committing to it.
func (e *Engine) Preview(target string) (roll.EnemyRoll, error) {
	route, err := e.cat.ParseTarget(target)
	if err != nil {
		return roll.EnemyRoll{}, err
	}
	return e.reg.Preview(route.ID, route.Length), nil
}

func (e *Engine) run(hero Hero, target string, commit bool) (res Result) {
	res = Result{Target: target, Phase: PhaseIdle, MaxHP: hero.MaxHP()}
	res.FinalHP = res.MaxHP

	var rolled *content.RouteConfig
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("adventure: run panicked",
				zap.String("target", target),
				zap.Any("panic", r),
			)
			at := res.Phase
			if at == PhaseFailed {
				at = res.FailedAt
			}
			res.fail(at, fmt.Sprintf("Simulation error: %v", r))
			res.clearRewards()
			if commit && rolled != nil {
				e.reg.Clear(rolled.ID, rolled.Length, roll.OutcomeFailed)
			}
		}
	}()

	route, err := e.cat.ParseTarget(target)
	if err != nil {
		res.fail(PhaseIdle, fmt.Sprintf("Invalid target: %v", err))
		return res
	}
	if hero.Level < 0 {
		res.fail(PhaseIdle, fmt.Sprintf("Invalid hero level %d", hero.Level))
		return res
	}
	if len(hero.Weapons) == 0 {
		res.fail(PhaseIdle, "No weapons equipped")
		return res
	}

	r := e.reg.Get(route.ID, route.Length)
	rolled = &route
	res.RollKey = r.Key.String()
	e.play(&res, hero, route, r)

	if commit {
		outcome := roll.OutcomeCompleted
		if !res.Success {
			outcome = roll.OutcomeFailed
		}
		e.reg.Clear(route.ID, route.Length, outcome)
	}

	e.logger.Info("adventure finished",
		zap.String("target", target),
		zap.Bool("success", res.Success),
		zap.String("phase", string(res.Phase)),
		zap.Float64("final_hp", res.FinalHP),
		zap.Int("gold", res.TotalGold),
		zap.Int("xp", res.TotalXP),
		zap.Bool("committed", commit),
	)
	return res
}

// play runs the state machine Wave(1..N) -> Boss -> Complete | Failed.
func (e *Engine) play(res *Result, hero Hero, route content.RouteConfig, r roll.EnemyRoll) {
	weapons := combat.SortWeapons(hero.Weapons)
	maxHP := res.MaxHP
	hp := maxHP

	waves, err := e.waves.Generate(route, r)
	if err != nil {
		res.fail(PhaseIdle, fmt.Sprintf("Wave generation failed: %v", err))
		return
	}
	res.logf(EventStart, PhaseIdle, 0, hp, "Adventure %s: %d waves, HP %.0f", route.Target(), len(waves), hp)

	var gold, xp int
	for i, wv := range waves {
		res.Phase = PhaseWave
		res.logf(EventWaveStart, PhaseWave, wv.Number, hp, "Wave %d/%d: %d enemies", wv.Number, len(waves), len(wv.Enemies))
		for _, enemy := range wv.Enemies {
			w, _ := combat.SelectWeapon(weapons, enemy.Type)
			x, err := combat.ResolveExchange(w, enemy, hero.Armor, combat.ExchangeContext{MaxHP: maxHP, Src: e.src})
			if err != nil {
				res.FailedWave = wv.Number
				res.fail(PhaseWave, fmt.Sprintf("Combat error in wave %d: %v", wv.Number, err))
				e.settleDefeat(res)
				return
			}
			hp -= x.HPLost
			res.logf(EventExchange, PhaseWave, wv.Number, hp, "%s", x)
			if x.EffectMessage != "" {
				res.logf(EventEffect, PhaseWave, wv.Number, hp, "%s", x.EffectMessage)
			}
			if hp <= 0 {
				res.FinalHP = 0
				res.FailedWave = wv.Number
				res.fail(PhaseWave, fmt.Sprintf("Defeated by %s in wave %d", enemy.Name, wv.Number))
				e.settleDefeat(res)
				return
			}
			res.Kills++
			gold += enemy.Gold
			xp += enemy.XP
			if heal, msg := combat.KillHeal(hero.Armor); heal > 0 {
				hp = combat.Heal(hp, heal, maxHP)
				res.logf(EventEffect, PhaseWave, wv.Number, hp, "%s", msg)
			}
		}
		res.WavesCleared = i + 1
		res.partialGold, res.partialXP = gold, xp
		res.logf(EventWaveClear, PhaseWave, wv.Number, hp, "Wave %d cleared (HP %.1f/%.0f)", wv.Number, hp, maxHP)
		if heal, msg := combat.WaveBoundaryHeal(hero.Armor); heal > 0 {
			hp = combat.Heal(hp, heal, maxHP)
			res.logf(EventEffect, PhaseWave, wv.Number, hp, "%s", msg)
		}
	}

	bossID := route.Boss
	if be, ok := r.BossEntry(); ok && be.BossID != "" {
		bossID = be.BossID
	}
	def, ok := e.cat.Boss(bossID)
	if !ok {
		res.fail(PhaseBoss, fmt.Sprintf("Unknown boss %q", bossID))
		e.settleDefeat(res)
		return
	}
	res.Phase = PhaseBoss
	br, err := e.bosses.Fight(boss.Encounter{
		Boss:    def,
		Weapons: weapons,
		Armor:   hero.Armor,
		HeroHP:  hp,
		MaxHP:   maxHP,
		Src:     e.src,
	})
	if err != nil {
		res.fail(PhaseBoss, fmt.Sprintf("Boss error: %v", err))
		e.settleDefeat(res)
		return
	}
	res.Boss = &br
	for _, line := range br.Log {
		res.logf(EventBoss, PhaseBoss, 0, br.FinalHP, "%s", line)
	}
	hp = br.FinalHP
	if !br.Victory {
		res.FinalHP = 0
		res.fail(PhaseBoss, fmt.Sprintf("Defeated by %s", def.Name))
		e.settleDefeat(res)
		return
	}

	gold += def.Gold + route.GoldGain
	xp += def.XP + route.XPGain
	total, msg := combat.CompletionGold(hero.Armor, gold)
	if msg != "" {
		res.logf(EventEffect, PhaseComplete, 0, hp, "%s", msg)
	}
	res.TotalGold = total
	res.TotalXP = xp
	if rd, ok := e.cat.Routes[route.ID]; ok {
		res.Loot = loot.Generate(rd.Loot, true, e.src)
	}
	for _, it := range res.Loot {
		res.logf(EventLoot, PhaseComplete, 0, hp, "Loot: %s", it)
	}
	res.Success = true
	res.Phase = PhaseComplete
	res.FinalHP = hp
	res.logf(EventComplete, PhaseComplete, 0, hp, "Adventure complete: %d gold, %d XP, HP %.1f/%.0f", res.TotalGold, res.TotalXP, hp, maxHP)
}

// settleDefeat applies the reward policy to a failed run.
func (e *Engine) settleDefeat(res *Result) {
	res.Loot = nil
	if e.policy == RewardPartial {
		res.TotalGold, res.TotalXP = res.partialGold, res.partialXP
		if res.TotalGold > 0 || res.TotalXP > 0 {
			res.logf(EventReward, PhaseFailed, 0, res.FinalHP, "Kept %d gold and %d XP from cleared waves", res.TotalGold, res.TotalXP)
		}
		return
	}
	res.clearRewards()
}
