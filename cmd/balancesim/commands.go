package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/game/adventure"
	"github.com/cory-johannsen/idlesim/internal/game/dice"
	"github.com/cory-johannsen/idlesim/internal/game/roll"
	"github.com/cory-johannsen/idlesim/internal/server"
	"github.com/cory-johannsen/idlesim/internal/sim"
)

func (a *app) batch(opts options) (sim.Batch, error) {
	weapons, err := adventure.ParseWeapons(opts.weapons)
	if err != nil {
		return sim.Batch{}, err
	}
	return sim.Batch{
		Target:  opts.target,
		Level:   opts.level,
		Weapons: weapons,
		ArmorID: opts.armor,
		Trials:  a.cfg.Simulation.Trials,
		Seed:    a.cfg.Simulation.Seed,
		Workers: a.cfg.Simulation.Workers,
		Policy:  a.policy,
	}, nil
}

func (a *app) runner() *sim.Runner {
	var ropts []sim.RunnerOption
	if a.store != nil {
		ropts = append(ropts, sim.WithStore(a.store))
	}
	return sim.NewRunner(a.cat, a.bosses, a.logger, ropts...)
}

// supervise runs fn under a Lifecycle so SIGINT or SIGTERM cancels it.
func (a *app) supervise(name string, fn func(ctx context.Context) error) error {
	lc := server.NewLifecycle(a.logger)
	var runErr error
	lc.Add(name, server.NewContextService(func(ctx context.Context) error {
		runErr = fn(ctx)
		return runErr
	}))
	if err := lc.Run(context.Background()); err != nil {
		return err
	}
	if errors.Is(runErr, context.Canceled) {
		return errors.New("interrupted")
	}
	return runErr
}

func (a *app) runBatch(opts options) error {
	b, err := a.batch(opts)
	if err != nil {
		return err
	}
	return a.supervise("batch", func(ctx context.Context) error {
		rep, err := a.runner().Run(ctx, b)
		if err != nil {
			return err
		}
		fmt.Println(rep.Summary())
		return nil
	})
}

func (a *app) sweep(opts options) error {
	b, err := a.batch(opts)
	if err != nil {
		return err
	}
	return a.supervise("sweep", func(ctx context.Context) error {
		reports, err := a.runner().Sweep(ctx, b, opts.from, opts.to)
		for _, rep := range reports {
			fmt.Printf("level %3d  success %6.1f%%  hp %7.1f  gold %7.1f  xp %7.1f  waves %5.2f\n",
				rep.HeroLevel, rep.SuccessRate*100, rep.MeanFinalHP, rep.MeanGold, rep.MeanXP, rep.MeanWavesCleared)
		}
		return err
	})
}

func (a *app) engine(src dice.Source) (*adventure.Engine, error) {
	reg := roll.NewRegistry(a.cat, src, a.logger, roll.WithTTL(a.cfg.Simulation.RollTTL))
	return adventure.NewEngine(a.cat, reg, a.bosses, src, a.logger, adventure.WithRewardPolicy(a.policy))
}

func (a *app) play(opts options) error {
	weapons, err := adventure.ParseWeapons(opts.weapons)
	if err != nil {
		return err
	}
	hero, err := adventure.NewHero(a.cat, opts.level, weapons, opts.armor)
	if err != nil {
		return err
	}
	eng, err := a.engine(dice.NewSeededSource(a.cfg.Simulation.Seed))
	if err != nil {
		return err
	}
	res := eng.Run(hero, opts.target)
	for _, line := range res.CombatLog {
		fmt.Println(line)
	}
	fmt.Printf("\nresult: success=%v phase=%s hp=%.1f/%.0f gold=%d xp=%d kills=%d\n",
		res.Success, res.Phase, res.FinalHP, res.MaxHP, res.TotalGold, res.TotalXP, res.Kills)
	return nil
}

func (a *app) preview(opts options) error {
	eng, err := a.engine(dice.NewCryptoSource())
	if err != nil {
		return err
	}
	r, err := eng.Preview(opts.target)
	if err != nil {
		return err
	}
	fmt.Println(r.String())
	for _, e := range r.Entries {
		if e.Boss {
			fmt.Printf("  boss   %s\n", e.BossID)
			continue
		}
		fmt.Printf("  %-6s x%d (%.0f%%)\n", e.Enemy, e.Count, e.Percentage)
	}
	return nil
}

func (a *app) reports(opts options) error {
	if a.store == nil {
		return errors.New("no report store configured; use -store sqlite or -store postgres")
	}
	reports, err := a.store.ListByTarget(context.Background(), opts.target, opts.limit)
	if err != nil {
		return err
	}
	a.logger.Debug("reports listed", zap.String("target", opts.target), zap.Int("count", len(reports)))
	if len(reports) == 0 {
		fmt.Printf("no reports for %s\n", opts.target)
	}
	for _, rep := range reports {
		fmt.Println(rep.Summary())
		fmt.Println()
	}
	return nil
}
