package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/idlesim/internal/sim"
)

// ErrReportExists is returned when a report ID is saved twice.
var ErrReportExists = errors.New("report already exists")

const reportColumns = `id, target, hero_level, weapons, armor, policy, seed,
	trials, successes, success_rate,
	mean_final_hp, min_final_hp, max_final_hp, mean_gold, mean_xp, mean_waves_cleared,
	loot_frequency, failure_phases, started_at, finished_at`

// ReportRepository persists sim.Report rows.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a ReportRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save inserts r.
//
// Precondition: r.ID must be non-nil.
// Postcondition: Returns ErrReportExists if r.ID is already stored.
func (r *ReportRepository) Save(ctx context.Context, rep sim.Report) error {
	if rep.ID == uuid.Nil {
		return errors.New("saving report: nil id")
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		         $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		rep.ID.String(), rep.Target, rep.HeroLevel, rep.Weapons, rep.Armor, rep.Policy, int64(rep.Seed),
		rep.Trials, rep.Successes, rep.SuccessRate,
		rep.MeanFinalHP, rep.MinFinalHP, rep.MaxFinalHP, rep.MeanGold, rep.MeanXP, rep.MeanWavesCleared,
		nonNil(rep.LootFrequency), nonNil(rep.FailurePhases), rep.StartedAt, rep.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
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
	row := r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id.String())
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sim.Report{}, sim.ErrReportNotFound
		}
		return sim.Report{}, fmt.Errorf("querying report %s: %w", id, err)
	}
	return rep, nil
}

// ListByTarget returns up to limit reports for target, newest first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *ReportRepository) ListByTarget(ctx context.Context, target string, limit int) ([]sim.Report, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reportColumns+` FROM reports
		 WHERE target = $1
		 ORDER BY started_at DESC, created_at DESC
		 LIMIT $2`,
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

func scanReport(row pgx.Row) (sim.Report, error) {
	var (
		rep  sim.Report
		id   string
		seed int64
	)
	err := row.Scan(
		&id, &rep.Target, &rep.HeroLevel, &rep.Weapons, &rep.Armor, &rep.Policy, &seed,
		&rep.Trials, &rep.Successes, &rep.SuccessRate,
		&rep.MeanFinalHP, &rep.MinFinalHP, &rep.MaxFinalHP, &rep.MeanGold, &rep.MeanXP, &rep.MeanWavesCleared,
		&rep.LootFrequency, &rep.FailurePhases, &rep.StartedAt, &rep.FinishedAt,
	)
	if err != nil {
		return sim.Report{}, err
	}
	rep.ID, err = uuid.Parse(id)
	if err != nil {
		return sim.Report{}, fmt.Errorf("parsing report id %q: %w", id, err)
	}
	rep.Seed = uint64(seed)
	return rep, nil
}

func nonNil(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
