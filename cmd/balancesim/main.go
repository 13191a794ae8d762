// Package main provides the balance simulator CLI: batch runs, level sweeps,
// single adventures with their combat log, and composition previews.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/config"
	"github.com/cory-johannsen/idlesim/internal/game/adventure"
	"github.com/cory-johannsen/idlesim/internal/game/boss"
	"github.com/cory-johannsen/idlesim/internal/game/content"
	"github.com/cory-johannsen/idlesim/internal/observability"
	"github.com/cory-johannsen/idlesim/internal/scripting"
	"github.com/cory-johannsen/idlesim/internal/sim"
	"github.com/cory-johannsen/idlesim/internal/storage/postgres"
	"github.com/cory-johannsen/idlesim/internal/storage/sqlite"
)

const usage = `usage: balancesim <command> [flags]

commands:
  run       simulate a batch of adventures and print a report
  sweep     run one batch per hero level in -from..-to
  play      simulate a single adventure and print its combat log
  preview   show the enemy composition for a target
  reports   list stored reports for a target

run "balancesim <command> -h" for command flags`

// options carries every flag; each command reads the ones it needs.
type options struct {
	configPath string
	contentDir string
	scriptsDir string
	target     string
	level      int
	weapons    string
	armor      string
	trials     int
	seed       uint64
	workers    int
	store      string
	policy     string
	from, to   int
	limit      int
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	var opts options
	flags := flag.NewFlagSet(cmd, flag.ExitOnError)
	flags.StringVar(&opts.configPath, "config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	flags.StringVar(&opts.contentDir, "content", "", "content YAML directory; overrides simulation.content_dir")
	flags.StringVar(&opts.scriptsDir, "scripts", "", "Lua mechanic directory; overrides simulation.scripts_dir")
	flags.StringVar(&opts.target, "target", "meadow_path_short", "adventure target <route>_<short|medium|long>")
	flags.IntVar(&opts.level, "level", 1, "hero level")
	flags.StringVar(&opts.weapons, "weapons", "spear,sword,bow,axe,hammer", "equipped weapons, e.g. spear:3,axe:2")
	flags.StringVar(&opts.armor, "armor", "", "armor id; empty = none")
	flags.IntVar(&opts.trials, "trials", 0, "trials per batch; 0 = simulation.trials")
	flags.Uint64Var(&opts.seed, "seed", 0, "batch seed; 0 = simulation.seed")
	flags.IntVar(&opts.workers, "workers", -1, "concurrent trials; -1 = simulation.workers, 0 = GOMAXPROCS")
	flags.StringVar(&opts.store, "store", "", "report store none|sqlite|postgres; overrides report.store")
	flags.StringVar(&opts.policy, "policy", "", "defeat reward policy all_or_nothing|partial; overrides simulation.policy")
	flags.IntVar(&opts.from, "from", 1, "sweep: first hero level")
	flags.IntVar(&opts.to, "to", 10, "sweep: last hero level")
	flags.IntVar(&opts.limit, "limit", 20, "reports: maximum rows")
	if err := flags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("initializing simulator", zap.Error(err))
	}
	defer app.close()

	switch cmd {
	case "run":
		err = app.runBatch(opts)
	case "sweep":
		err = app.sweep(opts)
	case "play":
		err = app.play(opts)
	case "preview":
		err = app.preview(opts)
	case "reports":
		err = app.reports(opts)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts options) (config.Config, error) {
	path := opts.configPath
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if opts.contentDir != "" {
		cfg.Simulation.ContentDir = opts.contentDir
	}
	if opts.scriptsDir != "" {
		cfg.Simulation.ScriptsDir = opts.scriptsDir
	}
	if opts.trials > 0 {
		cfg.Simulation.Trials = opts.trials
	}
	if opts.seed != 0 {
		cfg.Simulation.Seed = opts.seed
	}
	if opts.workers >= 0 {
		cfg.Simulation.Workers = opts.workers
	}
	if opts.store != "" {
		cfg.Report.Store = opts.store
	}
	if opts.policy != "" {
		cfg.Simulation.Policy = opts.policy
	}
	return cfg, cfg.Validate()
}

// app holds the wired simulator.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	cat     *content.Catalog
	scripts *scripting.Manager
	bosses  *boss.Table
	policy  adventure.RewardPolicy
	store   sim.Store
	closers []func()
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	start := time.Now()
	if dir := cfg.Simulation.ContentDir; dir != "" {
		cat, err := content.LoadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("loading content: %w", err)
		}
		a.cat = cat
	} else {
		a.cat = content.Default()
	}
	logger.Info("content loaded",
		zap.Int("routes", len(a.cat.Routes)),
		zap.Int("bosses", len(a.cat.Bosses)),
		zap.Int("armors", len(a.cat.Armors)),
		zap.Duration("elapsed", time.Since(start)),
	)

	a.scripts = scripting.NewManager(cfg.Simulation.ScriptInstrLimit, logger)
	a.closers = append(a.closers, a.scripts.Close)
	if dir := cfg.Simulation.ScriptsDir; dir != "" {
		if _, err := os.Stat(dir); err != nil {
			logger.Warn("scripts directory unavailable; scripted mechanics fall back to base fights",
				zap.String("dir", dir),
				zap.Error(err),
			)
		} else if err := a.scripts.LoadDir(dir); err != nil {
			return nil, fmt.Errorf("loading scripts: %w", err)
		}
	}
	a.bosses = boss.NewTable(a.scripts, logger)

	policy, err := adventure.ParseRewardPolicy(cfg.Simulation.Policy)
	if err != nil {
		return nil, err
	}
	a.policy = policy

	store, closeStore, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openStore returns the configured report store, or nil for "none".
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (sim.Store, func(), error) {
	switch cfg.Report.Store {
	case config.StoreSQLite:
		repo, err := sqlite.Open(cfg.Report.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("report store ready", zap.String("store", "sqlite"), zap.String("path", cfg.Report.SQLitePath))
		return repo, func() { _ = repo.Close() }, nil
	case config.StorePostgres:
		store, err := postgres.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("report store ready", zap.String("store", "postgres"))
		return store.Reports(), store.Close, nil
	default:
		return nil, nil, nil
	}
}
