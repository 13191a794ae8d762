package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/game/dice"
)

// MechanicState is the boss fight snapshot passed to a mechanic script as a
// table with snake_case keys.
type MechanicState struct {
	BossHP   float64
	BossDPS  float64
	HeroDPS  float64
	Duration float64
	Incoming float64
	HeroHP   float64
	MaxHP    float64
	Weapon   string
}

// MechanicEffect is what a mechanic script returns.
//
// Invariant: the zero value means "no effect"; a DurationMultiplier of 0 is
// read as 1.
type MechanicEffect struct {
	ExtraDamage        float64
	DurationMultiplier float64
	Message            string
}

// Manager owns one sandboxed LState holding every loaded mechanic script.
//
// Manager is safe for concurrent use; calls into the VM are serialized.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	logger    *zap.Logger

	// src backs engine.roll for the duration of one CallMechanic.
	src dice.Source
}

// NewManager creates a Manager with an empty VM.
//
// Precondition: logger must be non-nil (panics otherwise); instLimit <= 0 uses
// DefaultInstructionLimit.
// Postcondition: Returns a non-nil Manager; the engine module is registered.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	m := &Manager{
		L:         NewSandboxedState(instLimit),
		instLimit: instLimit,
		logger:    logger,
	}
	m.RegisterModules(m.L)
	return m
}

// LoadDir executes every *.lua file in dir in lexicographic order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns an error on the first Lua load failure; functions
// defined by earlier files stay loaded.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range luaFiles {
		cancel := ResetBudget(m.L, m.instLimit)
		err := m.L.DoFile(path)
		cancel()
		if err != nil {
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
		m.logger.Debug("scripting: loaded", zap.String("path", path))
	}
	return nil
}

// LoadString executes src under name.
//
// Postcondition: Returns an error on Lua syntax or runtime failure.
func (m *Manager) LoadString(name, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancel := ResetBudget(m.L, m.instLimit)
	defer cancel()
	if err := m.L.DoString(src); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	return nil
}

// HasFunction reports whether fn is a global Lua function.
func (m *Manager) HasFunction(fn string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.L.GetGlobal(fn).Type() == lua.LTFunction
}

// CallMechanic calls the Lua global fn with st as a table and converts the
// returned table into a MechanicEffect. src backs engine.roll for the call.
// Missing functions and Lua runtime errors are logged at Warn level and
// yield the zero effect.
//
// Precondition: src must be non-nil.
// Postcondition: ExtraDamage >= 0 and DurationMultiplier >= 0.
func (m *Manager) CallMechanic(fn string, st MechanicState, src dice.Source) MechanicEffect {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.L.GetGlobal(fn)
	if f.Type() != lua.LTFunction {
		m.logger.Warn("scripting: mechanic not defined", zap.String("fn", fn))
		return MechanicEffect{}
	}

	m.src = src
	defer func() { m.src = nil }()
	cancel := ResetBudget(m.L, m.instLimit)
	defer cancel()

	if err := m.L.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, stateTable(m.L, st)); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("fn", fn),
			zap.Error(err),
		)
		return MechanicEffect{}
	}

	ret := m.L.Get(-1)
	m.L.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return MechanicEffect{}
	}
	eff := MechanicEffect{
		ExtraDamage:        number(tbl.RawGetString("extra_damage")),
		DurationMultiplier: number(tbl.RawGetString("duration_multiplier")),
		Message:            lua.LVAsString(tbl.RawGetString("message")),
	}
	if eff.ExtraDamage < 0 {
		eff.ExtraDamage = 0
	}
	if eff.DurationMultiplier < 0 {
		eff.DurationMultiplier = 0
	}
	return eff
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.L.Close()
}

func stateTable(L *lua.LState, st MechanicState) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("boss_hp", lua.LNumber(st.BossHP))
	t.RawSetString("boss_dps", lua.LNumber(st.BossDPS))
	t.RawSetString("hero_dps", lua.LNumber(st.HeroDPS))
	t.RawSetString("duration", lua.LNumber(st.Duration))
	t.RawSetString("incoming", lua.LNumber(st.Incoming))
	t.RawSetString("hero_hp", lua.LNumber(st.HeroHP))
	t.RawSetString("max_hp", lua.LNumber(st.MaxHP))
	t.RawSetString("weapon", lua.LString(st.Weapon))
	return t
}

func number(v lua.LValue) float64 {
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}
