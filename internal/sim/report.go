package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrReportNotFound is returned by a Store when no report has the given ID.
var ErrReportNotFound = errors.New("sim: report not found")

// Report aggregates the outcome of one batch.
type Report struct {
	ID        uuid.UUID
	Target    string
	HeroLevel int
	Weapons   string
	Armor     string
	Policy    string
	Seed      uint64

	Trials      int
	Successes   int
	SuccessRate float64

	MeanFinalHP      float64
	MinFinalHP       float64
	MaxFinalHP       float64
	MeanGold         float64
	MeanXP           float64
	MeanWavesCleared float64

	// LootFrequency counts, per item id, the trials that dropped it.
	LootFrequency map[string]int
	// FailurePhases counts failed trials by the phase they failed in.
	FailurePhases map[string]int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the wall time the batch took.
func (r Report) Elapsed() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Summary renders the report for terminal output.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "report %s\n", r.ID)
	fmt.Fprintf(&b, "  target:   %s (policy %s, seed %d)\n", r.Target, r.Policy, r.Seed)
	armor := r.Armor
	if armor == "" {
		armor = "none"
	}
	fmt.Fprintf(&b, "  hero:     level %d, weapons %s, armor %s\n", r.HeroLevel, r.Weapons, armor)
	fmt.Fprintf(&b, "  success:  %d/%d (%.1f%%)\n", r.Successes, r.Trials, r.SuccessRate*100)
	fmt.Fprintf(&b, "  final hp: mean %.1f, min %.1f, max %.1f\n", r.MeanFinalHP, r.MinFinalHP, r.MaxFinalHP)
	fmt.Fprintf(&b, "  rewards:  mean %.1f gold, %.1f xp, %.2f waves cleared\n", r.MeanGold, r.MeanXP, r.MeanWavesCleared)
	if len(r.FailurePhases) > 0 {
		fmt.Fprintf(&b, "  failures: %s\n", formatCounts(r.FailurePhases))
	}
	if len(r.LootFrequency) > 0 {
		fmt.Fprintf(&b, "  loot:     %s\n", formatCounts(r.LootFrequency))
	}
	fmt.Fprintf(&b, "  elapsed:  %s", r.Elapsed().Round(time.Millisecond))
	return b.String()
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}

// Store persists batch reports.
type Store interface {
	// Save inserts r.
	//
	// Precondition: r.ID must be set and unique.
	Save(ctx context.Context, r Report) error
	// Get returns the report with id or ErrReportNotFound.
	Get(ctx context.Context, id uuid.UUID) (Report, error)
	// ListByTarget returns up to limit reports for target, newest first.
	ListByTarget(ctx context.Context, target string, limit int) ([]Report, error)
}
