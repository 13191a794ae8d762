// Package main applies the report schema migrations to PostgreSQL.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cory-johannsen/idlesim/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "configuration file holding the database section")
	direction := flag.String("direction", "up", "up or down")
	steps := flag.Int("steps", 0, "steps to apply; 0 applies all")
	dir := flag.String("migrations", "migrations", "directory of migration SQL files")
	status := flag.Bool("status", false, "print the schema version and exit")
	flag.Parse()

	dbCfg, err := databaseConfig(*configPath)
	if err != nil {
		log.Fatalf("loading database config: %v", err)
	}

	m, err := migrate.New("file://"+*dir, dbCfg.DSN())
	if err != nil {
		log.Fatalf("opening migrations: %v", err)
	}
	defer m.Close()

	if *status {
		printVersion(m, "current", 0)
		return
	}

	start := time.Now()
	if err := apply(m, *direction, *steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			printVersion(m, "unchanged", time.Since(start))
			return
		}
		log.Fatalf("migrating %s: %v", *direction, err)
	}
	printVersion(m, "migrated "+*direction, time.Since(start))
}

// databaseConfig reads only the database section so the migrator does not
// depend on simulation settings being valid.
func databaseConfig(path string) (config.DatabaseConfig, error) {
	v := config.NewViper()
	v.SetEnvPrefix("IDLESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config.DatabaseConfig{}, err
		}
	}
	var cfg config.DatabaseConfig
	if err := v.UnmarshalKey("database", &cfg); err != nil {
		return config.DatabaseConfig{}, err
	}
	return cfg, nil
}

func apply(m *migrate.Migrate, direction string, steps int) error {
	switch {
	case direction == "up" && steps > 0:
		return m.Steps(steps)
	case direction == "up":
		return m.Up()
	case direction == "down" && steps > 0:
		return m.Steps(-steps)
	case direction == "down":
		return m.Down()
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
}

func printVersion(m *migrate.Migrate, label string, elapsed time.Duration) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Printf("%s: no migrations applied [%s]\n", label, elapsed)
	case err != nil:
		log.Fatalf("reading schema version: %v", err)
	default:
		fmt.Printf("%s: version=%d dirty=%v [%s]\n", label, version, dirty, elapsed)
	}
}
