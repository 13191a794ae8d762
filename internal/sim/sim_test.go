package sim_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlesim/internal/game/adventure"
	"github.com/cory-johannsen/idlesim/internal/game/boss"
	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
	"github.com/cory-johannsen/idlesim/internal/sim"
)

type memStore struct {
	mu      sync.Mutex
	reports []sim.Report
	err     error
}

func (m *memStore) Save(_ context.Context, r sim.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (sim.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return sim.Report{}, sim.ErrReportNotFound
}

func (m *memStore) ListByTarget(_ context.Context, target string, limit int) ([]sim.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sim.Report
	for i := len(m.reports) - 1; i >= 0 && len(out) < limit; i-- {
		if m.reports[i].Target == target {
			out = append(out, m.reports[i])
		}
	}
	return out, nil
}

func allWeapons(level int) map[combat.WeaponType]int {
	out := map[combat.WeaponType]int{}
	for _, w := range combat.AllWeaponTypes() {
		out[w] = level
	}
	return out
}

func newRunner(opts ...sim.RunnerOption) *sim.Runner {
	return sim.NewRunner(content.Default(), boss.NewTable(nil, zap.NewNop()), zap.NewNop(), opts...)
}

func strongBatch() sim.Batch {
	return sim.Batch{
		Target:  "meadow_path_short",
		Level:   10,
		Weapons: allWeapons(30),
		Trials:  20,
		Seed:    1,
		Workers: 4,
	}
}

// doomedBatch clears every ember_peaks_short wave and always falls to the boss.
func doomedBatch() sim.Batch {
	return sim.Batch{
		Target:  "ember_peaks_short",
		Level:   20,
		Weapons: allWeapons(3),
		Trials:  12,
		Seed:    7,
		Workers: 3,
	}
}

func TestRun_StrongHero(t *testing.T) {
	rep, err := newRunner().Run(context.Background(), strongBatch())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rep.ID)
	assert.Equal(t, "meadow_path_short", rep.Target)
	assert.Equal(t, 20, rep.Trials)
	assert.Equal(t, 20, rep.Successes)
	assert.Equal(t, 1.0, rep.SuccessRate)
	assert.Empty(t, rep.FailurePhases)
	assert.GreaterOrEqual(t, rep.MeanGold, 70.0)
	assert.Equal(t, 3.0, rep.MeanWavesCleared)
	assert.LessOrEqual(t, rep.MinFinalHP, rep.MeanFinalHP)
	assert.LessOrEqual(t, rep.MeanFinalHP, rep.MaxFinalHP)
	assert.Equal(t, string(adventure.RewardAllOrNothing), rep.Policy)
	for id, n := range rep.LootFrequency {
		assert.LessOrEqual(t, n, rep.Trials, id)
	}
}

func TestRun_DoomedHero(t *testing.T) {
	rep, err := newRunner().Run(context.Background(), doomedBatch())
	require.NoError(t, err)
	assert.Zero(t, rep.Successes)
	assert.Equal(t, map[string]int{string(adventure.PhaseBoss): 12}, rep.FailurePhases)
	assert.Zero(t, rep.MeanGold)
	assert.Zero(t, rep.MaxFinalHP)
	assert.Empty(t, rep.LootFrequency)
}

func TestRun_PartialPolicy(t *testing.T) {
	b := doomedBatch()
	b.Policy = adventure.RewardPartial
	rep, err := newRunner().Run(context.Background(), b)
	require.NoError(t, err)
	assert.Positive(t, rep.MeanGold)
	assert.Equal(t, "partial", rep.Policy)
}

func TestRun_ReproducibleAcrossWorkerCounts(t *testing.T) {
	b := sim.Batch{Target: "beetle_burrow_medium", Level: 6, Weapons: allWeapons(8), ArmorID: "mirror_mail", Trials: 16, Seed: 99}
	b.Workers = 1
	serial, err := newRunner().Run(context.Background(), b)
	require.NoError(t, err)
	b.Workers = 8
	parallel, err := newRunner().Run(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, serial.Successes, parallel.Successes)
	assert.Equal(t, serial.MeanFinalHP, parallel.MeanFinalHP)
	assert.Equal(t, serial.MeanGold, parallel.MeanGold)
	assert.Equal(t, serial.FailurePhases, parallel.FailurePhases)
	assert.Equal(t, serial.LootFrequency, parallel.LootFrequency)
	assert.NotEqual(t, serial.ID, parallel.ID)
}

func TestRun_BadBatch(t *testing.T) {
	cases := map[string]func(*sim.Batch){
		"trials":  func(b *sim.Batch) { b.Trials = 0 },
		"level":   func(b *sim.Batch) { b.Level = -1 },
		"target":  func(b *sim.Batch) { b.Target = "nowhere_short" },
		"length":  func(b *sim.Batch) { b.Target = "meadow_path_epic" },
		"weapons": func(b *sim.Batch) { b.Weapons = map[combat.WeaponType]int{"club": 1} },
		"armor":   func(b *sim.Batch) { b.ArmorID = "paper_hat" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := strongBatch()
			mutate(&b)
			_, err := newRunner().Run(context.Background(), b)
			assert.ErrorIs(t, err, sim.ErrBadBatch)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRunner().Run(ctx, strongBatch())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SavesToStore(t *testing.T) {
	store := &memStore{}
	rep, err := newRunner(sim.WithStore(store)).Run(context.Background(), strongBatch())
	require.NoError(t, err)

	got, err := store.Get(context.Background(), rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.Successes, got.Successes)
}

func TestRun_StoreError(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	rep, err := newRunner(sim.WithStore(store)).Run(context.Background(), strongBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 20, rep.Trials, "the report is still returned")
}

func TestRun_Clock(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	rep, err := newRunner(sim.WithClock(clock)).Run(context.Background(), strongBatch())
	require.NoError(t, err)
	assert.Equal(t, time.Second, rep.Elapsed())
	assert.True(t, strings.Contains(rep.Summary(), "meadow_path_short"))
	assert.True(t, strings.Contains(rep.Summary(), "20/20"))
}

func TestSweep(t *testing.T) {
	b := strongBatch()
	b.Trials = 4
	reports, err := newRunner().Sweep(context.Background(), b, 1, 3)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for i, rep := range reports {
		assert.Equal(t, i+1, rep.HeroLevel)
	}

	_, err = newRunner().Sweep(context.Background(), b, 3, 1)
	assert.ErrorIs(t, err, sim.ErrBadBatch)
	_, err = newRunner().Sweep(context.Background(), b, -1, 2)
	assert.ErrorIs(t, err, sim.ErrBadBatch)
}

func TestRun_CountsAddUp_Property(t *testing.T) {
	cat := content.Default()
	runner := sim.NewRunner(cat, boss.NewTable(nil, zap.NewNop()), zap.NewNop())
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.SampledFrom(cat.RouteIDs()).Draw(rt, "route")
		l := rapid.SampledFrom(content.Lengths()).Draw(rt, "length")
		b := sim.Batch{
			Target:  id + "_" + string(l),
			Level:   rapid.IntRange(1, 30).Draw(rt, "level"),
			Weapons: allWeapons(rapid.IntRange(1, 30).Draw(rt, "weapon_level")),
			Trials:  rapid.IntRange(1, 6).Draw(rt, "trials"),
			Seed:    rapid.Uint64().Draw(rt, "seed"),
			Workers: rapid.IntRange(1, 4).Draw(rt, "workers"),
		}
		rep, err := runner.Run(context.Background(), b)
		require.NoError(rt, err)
		failed := 0
		for _, n := range rep.FailurePhases {
			failed += n
		}
		assert.Equal(rt, rep.Trials, rep.Successes+failed)
		assert.InDelta(rt, float64(rep.Successes)/float64(rep.Trials), rep.SuccessRate, 1e-9)
		assert.GreaterOrEqual(rt, rep.MinFinalHP, 0.0)
	})
}
