package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlesim/internal/game/boss"
	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
	"github.com/cory-johannsen/idlesim/internal/sim"
	"github.com/cory-johannsen/idlesim/internal/storage/sqlite"
)

func open(t *testing.T) *sqlite.ReportRepository {
	t.Helper()
	repo, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleReport(target string, started time.Time) sim.Report {
	return sim.Report{
		ID:               uuid.New(),
		Target:           target,
		HeroLevel:        4,
		Weapons:          "sword:2",
		Policy:           "partial",
		Seed:             42,
		Trials:           10,
		Successes:        3,
		SuccessRate:      0.3,
		MeanFinalHP:      12.5,
		MaxFinalHP:       80,
		MeanGold:         20.1,
		MeanXP:           18,
		MeanWavesCleared: 2.2,
		LootFrequency:    map[string]int{"beetle_shell": 3},
		FailurePhases:    map[string]int{"wave": 7},
		StartedAt:        started.UTC(),
		FinishedAt:       started.Add(time.Second).UTC(),
	}
}

func TestSaveGet(t *testing.T) {
	repo := open(t)
	ctx := context.Background()
	want := sampleReport("beetle_burrow_short", time.Now())

	require.NoError(t, repo.Save(ctx, want))
	got, err := repo.Get(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.ErrorIs(t, repo.Save(ctx, want), sqlite.ErrReportExists)
}

func TestGetMissing(t *testing.T) {
	_, err := open(t).Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sim.ErrReportNotFound)
}

func TestSave_NilID(t *testing.T) {
	rep := sampleReport("beetle_burrow_short", time.Now())
	rep.ID = uuid.Nil
	assert.Error(t, open(t).Save(context.Background(), rep))
}

func TestSave_NilMaps(t *testing.T) {
	repo := open(t)
	rep := sampleReport("beetle_burrow_short", time.Now())
	rep.LootFrequency, rep.FailurePhases = nil, nil
	require.NoError(t, repo.Save(context.Background(), rep))
	got, err := repo.Get(context.Background(), rep.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LootFrequency)
	assert.Empty(t, got.FailurePhases)
}

func TestListByTarget(t *testing.T) {
	repo := open(t)
	ctx := context.Background()
	base := time.Now()
	var ids []uuid.UUID
	for i := range 4 {
		rep := sampleReport("spider_hollow_medium", base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, rep.ID)
		require.NoError(t, repo.Save(ctx, rep))
	}
	require.NoError(t, repo.Save(ctx, sampleReport("ember_peaks_long", base)))

	got, err := repo.ListByTarget(ctx, "spider_hollow_medium", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[3], got[0].ID)
	assert.Equal(t, ids[2], got[1].ID)
	assert.Equal(t, ids[1], got[2].ID)

	none, err := repo.ListByTarget(ctx, "crystal_caves_short", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reports.db")
	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	rep := sampleReport("meadow_path_long", time.Now())
	require.NoError(t, repo.Save(context.Background(), rep))
	require.NoError(t, repo.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.Target, got.Target)
}

func TestRunnerPersistsToSQLite(t *testing.T) {
	repo := open(t)
	runner := sim.NewRunner(content.Default(), boss.NewTable(nil, zap.NewNop()), zap.NewNop(), sim.WithStore(repo))
	rep, err := runner.Run(context.Background(), sim.Batch{
		Target:  "meadow_path_short",
		Level:   10,
		Weapons: map[combat.WeaponType]int{combat.WeaponAxe: 30, combat.WeaponBow: 30},
		Trials:  5,
		Seed:    3,
	})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.Successes, got.Successes)
	assert.Equal(t, rep.Weapons, got.Weapons)
}

func TestRoundTrip_Property(t *testing.T) {
	repo := open(t)
	rapid.Check(t, func(rt *rapid.T) {
		rep := sampleReport(rapid.StringMatching(`[a-z]{3,12}_(short|medium|long)`).Draw(rt, "target"), time.Now())
		rep.Seed = rapid.Uint64().Draw(rt, "seed")
		rep.Trials = rapid.IntRange(1, 10000).Draw(rt, "trials")
		rep.LootFrequency = rapid.MapOf(rapid.StringMatching(`[a-z_]{1,16}`), rapid.IntRange(0, 100)).Draw(rt, "loot")
		require.NoError(rt, repo.Save(context.Background(), rep))
		got, err := repo.Get(context.Background(), rep.ID)
		require.NoError(rt, err)
		assert.Equal(rt, rep.Seed, got.Seed)
		assert.Equal(rt, rep.Trials, got.Trials)
		assert.Equal(rt, len(rep.LootFrequency), len(got.LootFrequency))
	})
}
