package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// bindCall points the world.* functions at the invoking room and fixture
// for the duration of one hook call.
func (m *Manager) bindCall(roomID, featureID string) {
	m.callRoom = roomID
	m.callFeature = featureID
}

// registerModules installs the world and log tables into L.
//
// world.send_room(text)              — message every player in the invoking room
// world.unlock_door([feature_id])    — unlock a door fixture, defaulting to
// the invoking fixture
// world.open_door([feature_id])      — open a door fixture, same default
// world.spawn_mob(template [,room])  — spawn a mob, defaulting to the
// invoking room
//
// Each returns true on success, false when the callback is absent or
// fails. log.debug/info/warn/error write through the engine logger.
func (m *Manager) registerModules(L *lua.LState) {
	world := L.NewTable()
	L.SetGlobal("world", world)

	L.SetField(world, "send_room", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		if m.SendRoom == nil || m.callRoom == "" {
			L.Push(lua.LFalse)
			return 1
		}
		m.SendRoom(m.callRoom, text)
		L.Push(lua.LTrue)
		return 1
	}))

	L.SetField(world, "unlock_door", L.NewFunction(func(L *lua.LState) int {
		featureID := L.OptString(1, m.callFeature)
		L.Push(lua.LBool(m.runFeatureCallback(m.UnlockDoor, featureID, "unlock_door")))
		return 1
	}))

	L.SetField(world, "open_door", L.NewFunction(func(L *lua.LState) int {
		featureID := L.OptString(1, m.callFeature)
		L.Push(lua.LBool(m.runFeatureCallback(m.OpenDoor, featureID, "open_door")))
		return 1
	}))

	L.SetField(world, "spawn_mob", L.NewFunction(func(L *lua.LState) int {
		template := L.CheckString(1)
		roomID := L.OptString(2, m.callRoom)
		if m.SpawnMob == nil || roomID == "" {
			L.Push(lua.LFalse)
			return 1
		}
		if err := m.SpawnMob(template, roomID); err != nil {
			m.logger.Warn("scripting: spawn_mob failed",
				zap.String("template", template),
				zap.String("room", roomID),
				zap.Error(err))
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LTrue)
		return 1
	}))

	logTable := L.NewTable()
	L.SetGlobal("log", logTable)
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logFn := range levels {
		fn := logFn
		L.SetField(logTable, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
}

func (m *Manager) runFeatureCallback(cb func(string) error, featureID, name string) bool {
	if cb == nil {
		return false
	}
	if err := cb(featureID); err != nil {
		m.logger.Warn("scripting: "+name+" failed",
			zap.String("feature", featureID),
			zap.Error(err))
		return false
	}
	return true
}
