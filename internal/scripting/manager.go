package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Manager owns one sandboxed LState per zone and dispatches named hooks
// into them. Lever pulls and dialogue script actions both land here.
//
// The engine goroutine is the only caller of RunRoomHook, so hook
// execution itself is never concurrent; the mutex only guards the state
// map against loads racing shutdown.
type Manager struct {
	mu      sync.Mutex
	states  map[string]*lua.LState
	limits  map[string]int
	cancels map[string]func()
	logger  *zap.Logger

	// callRoom and callFeature identify the invoking room and fixture
	// during one RunRoomHook call. Only the engine goroutine runs hooks.
	callRoom    string
	callFeature string

	// Injected by the engine after construction. nil callbacks make the
	// corresponding world.* function a no-op returning false.
	SendRoom   func(roomID, text string)
	UnlockDoor func(featureID string) error
	OpenDoor   func(featureID string) error
	SpawnMob   func(template, roomID string) error
}

// NewManager creates a Manager with no zones loaded.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		states:  make(map[string]*lua.LState),
		limits:  make(map[string]int),
		cancels: make(map[string]func()),
		logger:  logger,
	}
}

// LoadZoneFile creates a sandboxed VM for zoneID and executes the zone's
// script file in it. instLimit <= 0 selects DefaultInstructionLimit; the
// budget applies per execution, including this load.
//
// Postcondition: The zone VM is registered, replacing any prior VM for the
// same zone; returns an error on Lua load failure.
func (m *Manager) LoadZoneFile(zoneID, path string, instLimit int) error {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}

	L := NewSandboxedState()
	m.registerModules(L)

	cancel := m.armBudget(L, instLimit)
	if err := L.DoFile(path); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: loading %q for zone %q: %w", path, zoneID, err)
	}

	m.mu.Lock()
	if old, ok := m.states[zoneID]; ok {
		if oldCancel := m.cancels[zoneID]; oldCancel != nil {
			oldCancel()
		}
		old.Close()
	}
	m.states[zoneID] = L
	m.limits[zoneID] = instLimit
	m.cancels[zoneID] = cancel
	m.mu.Unlock()
	return nil
}

// HasZone reports whether a VM is loaded for the zone.
func (m *Manager) HasZone(zoneID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[zoneID]
	return ok
}

// RunRoomHook calls the named global function in the zone's VM, with the
// invoking room bound as the world.* context. featureID may be empty for
// hooks not tied to a fixture. Returns true only when the hook exists and
// completes; missing VMs, missing hooks, and Lua runtime errors all log
// and return false.
func (m *Manager) RunRoomHook(zoneID, hook, roomID, featureID string) bool {
	m.mu.Lock()
	L, ok := m.states[zoneID]
	limit := m.limits[zoneID]
	m.mu.Unlock()

	if !ok {
		m.logger.Debug("scripting: no VM for zone",
			zap.String("zone", zoneID), zap.String("hook", hook))
		return false
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		m.logger.Warn("scripting: hook not defined",
			zap.String("zone", zoneID), zap.String("hook", hook))
		return false
	}

	m.bindCall(roomID, featureID)

	// Fresh budget per invocation; a prior runaway hook must not starve
	// later ones.
	cancel := m.armBudget(L, limit)
	m.mu.Lock()
	if oldCancel := m.cancels[zoneID]; oldCancel != nil {
		oldCancel()
	}
	m.cancels[zoneID] = cancel
	m.mu.Unlock()

	err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LString(roomID), lua.LString(featureID))
	if err != nil {
		m.logger.Warn("scripting: hook failed",
			zap.String("zone", zoneID),
			zap.String("hook", hook),
			zap.Error(err))
		return false
	}
	return true
}

// Close shuts down every zone VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for zoneID, L := range m.states {
		if cancel := m.cancels[zoneID]; cancel != nil {
			cancel()
		}
		L.Close()
	}
	m.states = make(map[string]*lua.LState)
	m.limits = make(map[string]int)
	m.cancels = make(map[string]func())
}

// armBudget installs a fresh instruction-counting context on the state.
func (m *Manager) armBudget(L *lua.LState, limit int) func() {
	ctx, cancel := newCountingContext(limit)
	L.SetContext(ctx)
	return cancel
}
