package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlesim/internal/scripting"
)

func sandbox(t *testing.T, limit int) *lua.LState {
	t.Helper()
	L := scripting.NewSandboxedState(limit)
	require.NotNil(t, L)
	t.Cleanup(L.Close)
	return L
}

func TestSandbox_RemovedGlobals(t *testing.T) {
	L := sandbox(t, 0)
	for _, name := range []string{"os", "io", "debug", "package", "dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), name)
	}
}

func TestSandbox_NoMathRandom(t *testing.T) {
	L := sandbox(t, 0)
	require.NoError(t, L.DoString(`has_random = math.random ~= nil; has_seed = math.randomseed ~= nil`))
	assert.Equal(t, lua.LFalse, L.GetGlobal("has_random"))
	assert.Equal(t, lua.LFalse, L.GetGlobal("has_seed"))
}

func TestSandbox_SafeLibraries(t *testing.T) {
	L := sandbox(t, 0)
	err := L.DoString(`
		assert(math.floor(2.7) == 2)
		assert(string.format("%d", 7) == "7")
		local t = {3, 1, 2}
		table.sort(t)
		assert(t[1] == 1)
	`)
	assert.NoError(t, err)
}

func TestSandbox_BudgetStopsLoops(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 200).Draw(rt, "limit")
		L := scripting.NewSandboxedState(limit)
		defer L.Close()
		if err := L.DoString(`while true do end`); err == nil {
			rt.Fatalf("limit %d did not stop an infinite loop", limit)
		}
	})
}

func TestSandbox_DefaultBudgetRunsScripts(t *testing.T) {
	L := sandbox(t, 0)
	assert.NoError(t, L.DoString(`local s = 0; for i = 1, 1000 do s = s + i end`))
}

func TestResetBudget_RestoresExecution(t *testing.T) {
	L := sandbox(t, 50)
	require.Error(t, L.DoString(`while true do end`))

	cancel := scripting.ResetBudget(L, 50)
	defer cancel()
	assert.NoError(t, L.DoString(`local x = 1 + 1`))
}

func TestResetBudget_CancelEndsEarly(t *testing.T) {
	L := sandbox(t, 0)
	cancel := scripting.ResetBudget(L, 1_000_000)
	cancel()
	assert.Error(t, L.DoString(`local x = 1 + 1`))
}
