// Package sqlite persists simulation reports in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/idlesim/internal/sim"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrReportExists is returned when a report ID is saved twice.
var ErrReportExists = errors.New("report already exists")

var initStatements = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id                 TEXT    PRIMARY KEY,
		target             TEXT    NOT NULL,
		hero_level         INTEGER NOT NULL,
		weapons            TEXT    NOT NULL,
		armor              TEXT    NOT NULL DEFAULT '',
		policy             TEXT    NOT NULL,
		seed               INTEGER NOT NULL,
		trials             INTEGER NOT NULL,
		successes          INTEGER NOT NULL,
		success_rate       REAL    NOT NULL,
		mean_final_hp      REAL    NOT NULL,
		min_final_hp       REAL    NOT NULL,
		max_final_hp       REAL    NOT NULL,
		mean_gold          REAL    NOT NULL,
		mean_xp            REAL    NOT NULL,
		mean_waves_cleared REAL    NOT NULL,
		loot_frequency     TEXT    NOT NULL DEFAULT '{}',
		failure_phases     TEXT    NOT NULL DEFAULT '{}',
		started_at         INTEGER NOT NULL,
		finished_at        INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_target_started ON reports (target, started_at DESC)`,
}

const reportColumns = `id, target, hero_level, weapons, armor, policy, seed,
	trials, successes, success_rate,
	mean_final_hp, min_final_hp, max_final_hp, mean_gold, mean_xp, mean_waves_cleared,
	loot_frequency, failure_phases, started_at, finished_at`

// ReportRepository persists sim.Report rows in SQLite.
type ReportRepository struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
//
// Precondition: path is a file path or MemoryPath.
// Postcondition: Returns a ready repository or a non-nil error.
func Open(path string) (*ReportRepository, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps an in-memory database shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range append(initStatements, schema...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing database: %w", err)
		}
	}
	return &ReportRepository{db: db}, nil
}

// Close closes the database.
func (r *ReportRepository) Close() error {
	return r.db.Close()
}

// Save inserts rep.
//
// Precondition: rep.ID must be non-nil.
// Postcondition: Returns ErrReportExists if rep.ID is already stored.
func (r *ReportRepository) Save(ctx context.Context, rep sim.Report) error {
	if rep.ID == uuid.Nil {
		return errors.New("saving report: nil id")
	}
	loot, err := encodeCounts(rep.LootFrequency)
	if err != nil {
		return err
	}
	phases, err := encodeCounts(rep.FailurePhases)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID.String(), rep.Target, rep.HeroLevel, rep.Weapons, rep.Armor, rep.Policy, int64(rep.Seed),
		rep.Trials, rep.Successes, rep.SuccessRate,
		rep.MeanFinalHP, rep.MinFinalHP, rep.MaxFinalHP, rep.MeanGold, rep.MeanXP, rep.MeanWavesCleared,
		loot, phases, rep.StartedAt.UnixNano(), rep.FinishedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrReportExists
		}
		return fmt.Errorf("inserting report: %w", err)
	}
	return nil
}

// Get returns the report with id.
//
// Postcondition: Returns sim.ErrReportNotFound if no row matches.
func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (sim.Report, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id.String())
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sim.Report{}, sim.ErrReportNotFound
		}
		return sim.Report{}, fmt.Errorf("querying report %s: %w", id, err)
	}
	return rep, nil
}

// ListByTarget returns up to limit reports for target, newest first.
//
// Precondition: limit must be > 0.
func (r *ReportRepository) ListByTarget(ctx context.Context, target string, limit int) ([]sim.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports
		 WHERE target = ?
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		target, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []sim.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (sim.Report, error) {
	var (
		rep               sim.Report
		id, loot, phases  string
		seed              int64
		started, finished int64
	)
	err := s.Scan(
		&id, &rep.Target, &rep.HeroLevel, &rep.Weapons, &rep.Armor, &rep.Policy, &seed,
		&rep.Trials, &rep.Successes, &rep.SuccessRate,
		&rep.MeanFinalHP, &rep.MinFinalHP, &rep.MaxFinalHP, &rep.MeanGold, &rep.MeanXP, &rep.MeanWavesCleared,
		&loot, &phases, &started, &finished,
	)
	if err != nil {
		return sim.Report{}, err
	}
	if rep.ID, err = uuid.Parse(id); err != nil {
		return sim.Report{}, fmt.Errorf("parsing report id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(loot), &rep.LootFrequency); err != nil {
		return sim.Report{}, fmt.Errorf("decoding loot frequency: %w", err)
	}
	if err := json.Unmarshal([]byte(phases), &rep.FailurePhases); err != nil {
		return sim.Report{}, fmt.Errorf("decoding failure phases: %w", err)
	}
	rep.Seed = uint64(seed)
	rep.StartedAt = time.Unix(0, started).UTC()
	rep.FinishedAt = time.Unix(0, finished).UTC()
	return rep, nil
}

func encodeCounts(m map[string]int) (string, error) {
	if m == nil {
		m = map[string]int{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding counts: %w", err)
	}
	return string(b), nil
}
