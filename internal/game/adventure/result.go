package adventure

import (
	"fmt"

	"github.com/cory-johannsen/idlesim/internal/game/boss"
	"github.com/cory-johannsen/idlesim/internal/game/loot"
)

// EventKind classifies combat log entries.
type EventKind string

const (
	EventStart     EventKind = "start"
	EventWaveStart EventKind = "wave_start"
	EventExchange  EventKind = "exchange"
	EventEffect    EventKind = "effect"
	EventWaveClear EventKind = "wave_clear"
	EventBoss      EventKind = "boss"
	EventLoot      EventKind = "loot"
	EventReward    EventKind = "reward"
	EventComplete  EventKind = "complete"
	EventFailure   EventKind = "failure"
)

// Event is one structured combat log entry.
type Event struct {
	Kind    EventKind
	Phase   Phase
	Wave    int
	HP      float64
	Message string
}

// Result is the outcome of one adventure.
type Result struct {
	Target  string
	Success bool
	// Phase is PhaseComplete or PhaseFailed once the run ends.
	Phase Phase
	// FailedAt is the phase the run was in when it failed.
	FailedAt     Phase
	FailedWave   int
	WavesCleared int
	Kills        int
	FinalHP      float64
	MaxHP        float64
	TotalGold    int
	TotalXP      int
	Events       []Event
	Loot         []loot.Item
	CombatLog    []string
	RollKey      string
	Boss         *boss.Result
	Error        string

	partialGold int
	partialXP   int
}

func (r *Result) logf(kind EventKind, phase Phase, waveNum int, hp float64, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Events = append(r.Events, Event{Kind: kind, Phase: phase, Wave: waveNum, HP: hp, Message: msg})
	r.CombatLog = append(r.CombatLog, msg)
}

func (r *Result) fail(at Phase, msg string) {
	r.Success = false
	r.Phase = PhaseFailed
	r.FailedAt = at
	r.Error = msg
	if at != PhaseIdle {
		r.FinalHP = 0
	}
	r.logf(EventFailure, PhaseFailed, r.FailedWave, r.FinalHP, "%s", msg)
}

func (r *Result) clearRewards() {
	r.TotalGold = 0
	r.TotalXP = 0
	r.Loot = nil
}
