// Package scripting provides a sandboxed GopherLua execution environment
// for scripted boss mechanics. Scripts see plain tables only; the boss
// engine converts its state to and from MechanicState and MechanicEffect.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one mechanic call when no
// override is configured.
const DefaultInstructionLimit = 100_000

// strippedGlobals are removed after the safe libraries load. math.random is
// replaced by engine.roll so scripted fights replay from the batch seed.
var strippedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

var strippedMath = []string{"random", "randomseed"}

// budget is a context that cancels itself once Done has been polled limit
// times. GopherLua polls Done once per opcode.
type budget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *budget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

func newBudget(limit int) *budget {
	ctx, cancel := context.WithCancel(context.Background())
	b := &budget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	return b
}

// NewSandboxedState returns an LState with only the base, table, string and
// math libraries, no file or module loading, no math.random, and an opcode
// budget of instLimit.
//
// Precondition: instLimit <= 0 selects DefaultInstructionLimit.
// Postcondition: The caller owns the LState and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if math, ok := L.GetGlobal("math").(*lua.LTable); ok {
		for _, name := range strippedMath {
			math.RawSetString(name, lua.LNil)
		}
	}

	ResetBudget(L, instLimit)
	return L
}

// ResetBudget gives L a fresh budget of limit opcodes, shared by every call
// until the next reset.
//
// Precondition: L must be non-nil; limit <= 0 selects DefaultInstructionLimit.
// Postcondition: The returned cancel ends the budget early.
func ResetBudget(L *lua.LState, limit int) context.CancelFunc {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	b := newBudget(limit)
	L.SetContext(b)
	return b.cancel
}
