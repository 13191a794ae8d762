package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/game/dice"
)

// RegisterModules registers the engine table into L:
//
//	engine.roll(expr)  -> total of a dice expression such as "2d6+1"
//	engine.chance(p)   -> true with probability p
//	engine.log(msg)    -> writes msg to the debug log
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "roll", L.NewFunction(m.luaRoll))
	L.SetField(engine, "chance", L.NewFunction(m.luaChance))
	L.SetField(engine, "log", L.NewFunction(m.luaLog))
	L.SetGlobal("engine", engine)
}

func (m *Manager) source() dice.Source {
	if m.src != nil {
		return m.src
	}
	return dice.NewCryptoSource()
}

func (m *Manager) luaRoll(L *lua.LState) int {
	expr := L.CheckString(1)
	res, err := dice.NewLoggedRoller(m.source(), m.logger).RollExpr(expr)
	if err != nil {
		L.RaiseError("engine.roll: %v", err)
		return 0
	}
	L.Push(lua.LNumber(res.Total()))
	return 1
}

func (m *Manager) luaChance(L *lua.LState) int {
	p := float64(L.CheckNumber(1))
	L.Push(lua.LBool(dice.Chance(m.source(), p)))
	return 1
}

func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Debug("scripting: lua", zap.String("msg", L.CheckString(1)))
	return 0
}
