// Package sim runs batches of independent adventures and aggregates them into
// balance reports.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/idlesim/internal/game/adventure"
	"github.com/cory-johannsen/idlesim/internal/game/boss"
	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
	"github.com/cory-johannsen/idlesim/internal/game/dice"
	"github.com/cory-johannsen/idlesim/internal/game/roll"
)

// ErrBadBatch is returned for batches that cannot be run.
var ErrBadBatch = errors.New("sim: bad batch")

// Batch describes a set of trials of one hero against one target.
type Batch struct {
	Target  string
	Level   int
	Weapons map[combat.WeaponType]int
	ArmorID string
	Trials  int
	// Seed seeds trial i with Seed+i.
	Seed uint64
	// Workers bounds concurrent trials; <= 0 uses GOMAXPROCS.
	Workers int
	Policy  adventure.RewardPolicy
}

// Runner executes batches.
type Runner struct {
	cat    *content.Catalog
	bosses *boss.Table
	store  Store
	logger *zap.Logger
	trial  *zap.Logger
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStore persists every finished report to s.
func WithStore(s Store) RunnerOption {
	return func(r *Runner) { r.store = s }
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner returns a Runner over cat and bosses.
//
// Precondition: cat and bosses must be non-nil; bosses must not be mutated
// while batches run.
func NewRunner(cat *content.Catalog, bosses *boss.Table, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cat:    cat,
		bosses: bosses,
		logger: logger,
		trial:  logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type trialResult struct {
	success bool
	failed  adventure.Phase
	hp      float64
	gold    int
	xp      int
	waves   int
	loot    map[string]bool
}

// Run executes b.Trials adventures concurrently. Each trial owns a fresh
// composition registry and a source seeded with b.Seed plus its index, so a
// batch is reproducible regardless of worker count.
//
// Postcondition: Returns ErrBadBatch for invalid input, ctx.Err() if
// cancelled, or a store error; otherwise a complete Report.
func (r *Runner) Run(ctx context.Context, b Batch) (Report, error) {
	if b.Trials < 1 {
		return Report{}, fmt.Errorf("%w: trials must be >= 1, got %d", ErrBadBatch, b.Trials)
	}
	if b.Level < 0 {
		return Report{}, fmt.Errorf("%w: hero level must be >= 0, got %d", ErrBadBatch, b.Level)
	}
	if _, err := r.cat.ParseTarget(b.Target); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrBadBatch, err)
	}
	hero, err := adventure.NewHero(r.cat, b.Level, b.Weapons, b.ArmorID)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrBadBatch, err)
	}
	policy := b.Policy
	if policy == "" {
		policy = adventure.RewardAllOrNothing
	}
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	started := r.now()
	r.logger.Info("batch starting",
		zap.String("target", b.Target),
		zap.Int("level", b.Level),
		zap.Int("trials", b.Trials),
		zap.Int("workers", workers),
		zap.Uint64("seed", b.Seed),
	)

	results := make([]trialResult, b.Trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range b.Trials {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.runTrial(hero, b.Target, b.Seed+uint64(i), policy)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	rep := aggregate(results)
	rep.ID = uuid.New()
	rep.Target = b.Target
	rep.HeroLevel = b.Level
	rep.Weapons = adventure.FormatWeapons(b.Weapons)
	rep.Armor = b.ArmorID
	rep.Policy = string(policy)
	rep.Seed = b.Seed
	rep.StartedAt = started
	rep.FinishedAt = r.now()

	r.logger.Info("batch finished",
		zap.String("report", rep.ID.String()),
		zap.String("target", rep.Target),
		zap.Int("successes", rep.Successes),
		zap.Float64("success_rate", rep.SuccessRate),
		zap.Duration("elapsed", rep.Elapsed()),
	)

	if r.store != nil {
		if err := r.store.Save(ctx, rep); err != nil {
			return rep, fmt.Errorf("saving report %s: %w", rep.ID, err)
		}
	}
	return rep, nil
}

// Sweep runs b once per hero level in [from, to].
//
// Precondition: 0 <= from <= to.
// Postcondition: Returns one report per level in ascending order, or the
// first error encountered along with the reports completed before it.
func (r *Runner) Sweep(ctx context.Context, b Batch, from, to int) ([]Report, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("%w: level range %d..%d", ErrBadBatch, from, to)
	}
	reports := make([]Report, 0, to-from+1)
	for level := from; level <= to; level++ {
		lb := b
		lb.Level = level
		rep, err := r.Run(ctx, lb)
		if err != nil {
			return reports, fmt.Errorf("level %d: %w", level, err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (r *Runner) runTrial(hero adventure.Hero, target string, seed uint64, policy adventure.RewardPolicy) (trialResult, error) {
	src := dice.NewSeededSource(seed)
	reg := roll.NewRegistry(r.cat, src, r.trial)
	eng, err := adventure.NewEngine(r.cat, reg, r.bosses, src, r.trial, adventure.WithRewardPolicy(policy))
	if err != nil {
		return trialResult{}, err
	}
	res := eng.Run(hero, target)
	tr := trialResult{
		success: res.Success,
		failed:  res.FailedAt,
		hp:      res.FinalHP,
		gold:    res.TotalGold,
		xp:      res.TotalXP,
		waves:   res.WavesCleared,
		loot:    make(map[string]bool, len(res.Loot)),
	}
	for _, it := range res.Loot {
		tr.loot[it.ItemID] = true
	}
	return tr, nil
}

func aggregate(results []trialResult) Report {
	rep := Report{
		Trials:        len(results),
		LootFrequency: make(map[string]int),
		FailurePhases: make(map[string]int),
		MinFinalHP:    math.Inf(1),
		MaxFinalHP:    math.Inf(-1),
	}
	var hp, gold, xp, waves float64
	for _, tr := range results {
		if tr.success {
			rep.Successes++
		} else {
			rep.FailurePhases[string(tr.failed)]++
		}
		hp += tr.hp
		gold += float64(tr.gold)
		xp += float64(tr.xp)
		waves += float64(tr.waves)
		rep.MinFinalHP = math.Min(rep.MinFinalHP, tr.hp)
		rep.MaxFinalHP = math.Max(rep.MaxFinalHP, tr.hp)
		for id := range tr.loot {
			rep.LootFrequency[id]++
		}
	}
	n := float64(len(results))
	rep.SuccessRate = float64(rep.Successes) / n
	rep.MeanFinalHP = hp / n
	rep.MeanGold = gold / n
	rep.MeanXP = xp / n
	rep.MeanWavesCleared = waves / n
	return rep
}
