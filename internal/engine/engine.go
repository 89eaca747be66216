// Package engine hosts the single-threaded game loop. One Engine goroutine
// owns every registry (players, items, mobs, fixtures, combat, groups); the
// telnet frontend, the bus client, and repository calls run on their own
// goroutines and talk to the loop through channels. Nothing inside the loop
// blocks: slow work is offloaded and its result posted back as a closure.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/bus"
	"github.com/driftwood-mud/engine/internal/game/clock"
	"github.com/driftwood-mud/engine/internal/game/combat"
	"github.com/driftwood-mud/engine/internal/game/command"
	"github.com/driftwood-mud/engine/internal/game/dice"
	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/group"
	"github.com/driftwood-mud/engine/internal/game/guild"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/mob"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
	"github.com/driftwood-mud/engine/internal/game/sched"
	"github.com/driftwood-mud/engine/internal/game/shop"
	"github.com/driftwood-mud/engine/internal/game/world"
	"github.com/driftwood-mud/engine/internal/scripting"
)

// inputBuffer is the depth of the engine's inbound channel. Frontends block
// when it fills, which is the intended backpressure on flooding clients.
const inputBuffer = 1024

// Instance describes one engine process for the phase command.
type Instance struct {
	// EngineID is the peer's bus identity.
	EngineID string
	// Address is the telnet address players use to reach it.
	Address string
	// Zone is the zone the peer serves.
	Zone string
}

// Config tunes one engine instance.
type Config struct {
	// EngineID identifies this engine on the inter-engine bus.
	EngineID string
	// Combat tunes the player damage model.
	Combat combat.Config
	// MobSwingIntervalMs spaces mob counterattacks.
	MobSwingIntervalMs int64
	// Economy sets shop price multipliers.
	Economy shop.Economy
	// TickIntervalMs spaces scheduler runs.
	TickIntervalMs int64
	// MaxActionsPerTick caps scheduler work per tick.
	MaxActionsPerTick int
	// RecallCooldownMs is the minimum spacing between recalls per player.
	RecallCooldownMs int64
	// FlushIntervalMs spaces periodic persistence flushes. Zero disables
	// the periodic flush; logout and shutdown still persist.
	FlushIntervalMs int64
	// StartGold is the purse of a freshly created player.
	StartGold int
	// HashCost is the bcrypt cost for new password hashes. Zero selects
	// the bcrypt default.
	HashCost int
	// OutboundBuffer is the per-session outbound queue depth. Zero
	// selects outbound.DefaultBufferSize.
	OutboundBuffer int
	// Instances lists every engine of the cluster for the phase command.
	Instances []Instance
}

// DefaultConfig returns the tuning used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		EngineID:           "e1",
		Combat:             combat.DefaultConfig(),
		MobSwingIntervalMs: 2500,
		Economy:            shop.DefaultEconomy(),
		TickIntervalMs:     100,
		MaxActionsPerTick:  64,
		RecallCooldownMs:   300000,
		FlushIntervalMs:    30000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.EngineID == "" {
		c.EngineID = def.EngineID
	}
	if c.Combat.SwingIntervalMs == 0 && c.Combat.MaxDamage == 0 {
		c.Combat = def.Combat
	}
	if c.MobSwingIntervalMs == 0 {
		c.MobSwingIntervalMs = def.MobSwingIntervalMs
	}
	if c.Economy.BuyRate == 0 && c.Economy.SellRate == 0 {
		c.Economy = def.Economy
	}
	if c.TickIntervalMs == 0 {
		c.TickIntervalMs = def.TickIntervalMs
	}
	if c.MaxActionsPerTick == 0 {
		c.MaxActionsPerTick = def.MaxActionsPerTick
	}
	if c.RecallCooldownMs == 0 {
		c.RecallCooldownMs = def.RecallCooldownMs
	}
	return c
}

// Deps collects everything an Engine needs. Logger, World, Clock, Dice,
// Players, and Guilds are required; the rest are optional collaborators.
type Deps struct {
	Logger  *zap.Logger
	World   *world.World
	Clock   clock.Clock
	Dice    dice.Source
	Players player.Repository
	Guilds  guild.Repository

	// Persister receives snapshots of dirty state. Nil disables
	// persistence entirely (useful in tests).
	Persister *Persister
	// Bus connects this engine to its peers. Nil runs the engine alone.
	Bus bus.Bus
	// Locations routes tells to the engine hosting a player. Nil falls
	// back to broadcast.
	Locations bus.PlayerLocationIndex
	// Scripts runs zone Lua hooks. Nil disables scripted fixtures.
	Scripts *scripting.Manager
	// FeatureStates overlays persisted fixture positions at boot.
	FeatureStates map[ids.FeatureID]string
	// RemoteWho supplies extra roster lines for the who command.
	RemoteWho func() []string
	// OnShutdown is invoked by the staff shutdown command.
	OnShutdown func()

	Config Config
}

// Engine is the game loop. All fields below inputs are owned by the Run
// goroutine and must never be touched from outside it.
type Engine struct {
	log       *zap.Logger
	cfg       Config
	world     *world.World
	clk       clock.Clock
	dice      dice.Source
	repo      player.Repository
	guildRepo guild.Repository

	persister  *Persister
	busConn    bus.Bus
	locations  bus.PlayerLocationIndex
	scripts    *scripting.Manager
	remoteWho  func() []string
	onShutdown func()

	inputs chan input
	done   chan struct{}
	out    *outbound.Bus

	parser *command.Parser
	specs  *command.Registry

	players  *player.Registry
	items    *item.Registry
	mobs     *mob.Registry
	features *feature.Registry
	fights   *combat.Registry
	groups   *group.Registry
	invites  *guild.Invites
	shops    *shop.Registry
	sched    *sched.Scheduler

	sessions    map[ids.SessionID]*session
	effects     map[ids.SessionID][]*activeEffect
	effectSeq   uint64
	swingSeq    map[ids.SessionID]uint64
	mobChains   map[ids.MobID]uint64
	chainSeq    uint64
	zoneEngines map[string]string
}

type sessionPhase uint8

const (
	phaseNaming sessionPhase = iota
	phasePassword
	phasePlaying
	phaseGone
)

// session tracks per-connection state the player registry does not carry:
// the auth conversation and presentation preferences.
type session struct {
	sid        ids.SessionID
	phase      sessionPhase
	name       string
	rec        *player.Record
	recReady   bool
	recErr     error
	queuedPass string
	passQueued bool
	fetchSeq   uint64
	failures   int
	promptFmt  string
	goneNotice string
}

type inputKind uint8

const (
	inputConnect inputKind = iota
	inputLine
	inputDisconnect
	inputFunc
)

// input is one unit of work for the engine goroutine.
type input struct {
	kind inputKind
	sid  ids.SessionID
	line string
	fn   func()
}

// New assembles an Engine around the given world and collaborators. The
// world is seeded immediately: fixtures installed, floor items minted, mobs
// spawned, shops registered, persisted fixture positions applied.
//
// Precondition: deps.Logger, World, Clock, Dice, Players, and Guilds are
// non-nil.
// Postcondition: Returns an Engine ready for Run, or an error if the world
// references content it does not define.
func New(deps Deps) (*Engine, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("engine: logger is required")
	case deps.World == nil:
		return nil, fmt.Errorf("engine: world is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("engine: clock is required")
	case deps.Dice == nil:
		return nil, fmt.Errorf("engine: dice source is required")
	case deps.Players == nil:
		return nil, fmt.Errorf("engine: player repository is required")
	case deps.Guilds == nil:
		return nil, fmt.Errorf("engine: guild repository is required")
	}

	cfg := deps.Config.withDefaults()
	bufSize := cfg.OutboundBuffer
	if bufSize <= 0 {
		bufSize = outbound.DefaultBufferSize
	}

	e := &Engine{
		log:        deps.Logger.Named("engine"),
		cfg:        cfg,
		world:      deps.World,
		clk:        deps.Clock,
		dice:       deps.Dice,
		repo:       deps.Players,
		guildRepo:  deps.Guilds,
		persister:  deps.Persister,
		busConn:    deps.Bus,
		locations:  deps.Locations,
		scripts:    deps.Scripts,
		remoteWho:  deps.RemoteWho,
		onShutdown: deps.OnShutdown,

		inputs: make(chan input, inputBuffer),
		done:   make(chan struct{}),
		out:    outbound.NewBus(bufSize),

		specs: command.DefaultRegistry(),

		players: player.NewRegistry(player.Defaults{
			StartRoom: deps.World.StartRoom,
			StartGold: cfg.StartGold,
			HashCost:  cfg.HashCost,
		}),
		items:    item.NewRegistry(),
		mobs:     mob.NewRegistry(),
		features: feature.NewRegistry(),
		fights:   combat.NewRegistry(),
		groups:   group.NewRegistry(),
		invites:  guild.NewInvites(),
		shops:    shop.NewRegistry(),

		sessions:    make(map[ids.SessionID]*session),
		effects:     make(map[ids.SessionID][]*activeEffect),
		swingSeq:    make(map[ids.SessionID]uint64),
		mobChains:   make(map[ids.MobID]uint64),
		zoneEngines: make(map[string]string),
	}
	e.parser = command.NewParser(e.specs)
	e.sched = sched.New(e.clk)

	for _, inst := range cfg.Instances {
		if inst.Zone != "" && inst.EngineID != cfg.EngineID {
			e.zoneEngines[inst.Zone] = inst.EngineID
		}
	}

	if err := e.seedWorld(); err != nil {
		return nil, err
	}
	if len(deps.FeatureStates) > 0 {
		if err := e.features.ApplyPersisted(deps.FeatureStates); err != nil {
			return nil, fmt.Errorf("engine: applying persisted fixture states: %w", err)
		}
		e.features.ClearDirty()
	}
	e.bindScripts()

	if e.persister != nil && cfg.FlushIntervalMs > 0 {
		e.sched.ScheduleIn(cfg.FlushIntervalMs, e.flushTick)
	}
	return e, nil
}

// seedWorld installs fixtures, mints authored items, registers shops, and
// spawns the initial mob population.
func (e *Engine) seedWorld() error {
	for _, z := range e.world.Zones() {
		for _, id := range z.RoomIDs() {
			room, _ := e.world.Room(id)
			for _, def := range room.Features {
				st, err := e.features.Install(room.ID, def)
				if err != nil {
					return fmt.Errorf("engine: installing fixture %q in %s: %w", def.Local, room.ID, err)
				}
				for _, kw := range def.Contents {
					tmpl, ok := e.world.ItemTemplate(kw)
					if !ok {
						return fmt.Errorf("engine: room %s fixture %q holds unknown item %q", room.ID, def.Local, kw)
					}
					e.items.MintToContainer(tmpl, st.ID)
				}
			}
			for _, kw := range room.Items {
				tmpl, ok := e.world.ItemTemplate(kw)
				if !ok {
					return fmt.Errorf("engine: room %s lists unknown item %q", room.ID, kw)
				}
				e.items.MintToRoom(tmpl, room.ID)
			}
			for _, sp := range room.Spawns {
				tmpl, ok := e.world.MobTemplate(sp.Template)
				if !ok {
					return fmt.Errorf("engine: room %s spawns unknown mob %q", room.ID, sp.Template)
				}
				for i := 0; i < sp.Count; i++ {
					e.spawnMob(tmpl, room.ID)
				}
			}
		}
	}
	for _, def := range e.world.Shops() {
		if err := e.shops.Install(def); err != nil {
			return fmt.Errorf("engine: installing shop: %w", err)
		}
	}
	return nil
}

// Name implements server.Service.
func (e *Engine) Name() string { return "engine" }

// Run executes the game loop until ctx is canceled. On exit every online
// player and dirty fixture is handed to the persister.
//
// Postcondition: Returns nil after a final flush; the loop never returns an
// error on its own.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	ticker := time.NewTicker(time.Duration(e.cfg.TickIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	var busCh <-chan bus.Message
	if e.busConn != nil {
		busCh = e.busConn.Incoming()
	}

	e.log.Info("engine running",
		zap.String("engine_id", e.cfg.EngineID),
		zap.Int("zones", len(e.world.Zones())),
		zap.Int("mobs", e.mobs.Count()),
		zap.Int("items", e.items.Count()),
	)

	for {
		select {
		case <-ctx.Done():
			e.finalFlush()
			e.log.Info("engine stopped", zap.Int("players_online", e.players.Count()))
			return nil
		case in := <-e.inputs:
			e.dispatch(in)
		case msg, ok := <-busCh:
			if !ok {
				busCh = nil
				continue
			}
			e.applyBusMessage(msg)
		case <-ticker.C:
			e.runTick()
		}
	}
}

// Shutdown implements server.Service by waiting for the loop to drain.
func (e *Engine) Shutdown(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runTick advances the scheduler one slice.
func (e *Engine) runTick() {
	ran, deferred := e.sched.RunDue(e.cfg.MaxActionsPerTick)
	if deferred > 0 {
		e.log.Warn("tick overloaded",
			zap.Int("ran", ran),
			zap.Int("deferred", deferred),
			zap.Int("queued", e.sched.Len()),
		)
		return
	}
	if ran > 0 {
		e.log.Debug("tick", zap.Int("ran", ran), zap.Int("queued", e.sched.Len()))
	}
}

// Connect registers a new session and returns its outbound event queue.
// Safe to call from any goroutine.
//
// Precondition: sid has not been connected before.
// Postcondition: The returned channel receives the login banner; the caller
// must drain it until KindClose or Disconnect.
func (e *Engine) Connect(sid ids.SessionID) (<-chan outbound.Event, error) {
	ch, err := e.out.Open(sid)
	if err != nil {
		return nil, err
	}
	e.submit(input{kind: inputConnect, sid: sid})
	return ch, nil
}

// Line submits one input line from a session. Safe to call from any
// goroutine; blocks when the engine is saturated.
func (e *Engine) Line(sid ids.SessionID, line string) {
	e.submit(input{kind: inputLine, sid: sid, line: line})
}

// Disconnect reports that a session's socket is gone. Safe to call from any
// goroutine. Idempotent.
func (e *Engine) Disconnect(sid ids.SessionID) {
	e.submit(input{kind: inputDisconnect, sid: sid})
}

// post schedules fn on the engine goroutine. Only for use by worker
// goroutines; calling it from the loop itself can deadlock.
func (e *Engine) post(fn func()) {
	e.submit(input{kind: inputFunc, fn: fn})
}

// submit hands an input to the loop, giving up once the engine has stopped
// so late callers do not hang on a dead channel.
func (e *Engine) submit(in input) {
	select {
	case e.inputs <- in:
	case <-e.done:
	}
}

func (e *Engine) dispatch(in input) {
	switch in.kind {
	case inputConnect:
		e.handleConnect(in.sid)
	case inputLine:
		e.handleLine(in.sid, in.line)
	case inputDisconnect:
		e.handleDisconnect(in.sid)
	case inputFunc:
		in.fn()
	}
}

// offload runs work off the loop and posts apply back with its result.
// apply always runs on the engine goroutine and must re-check any state it
// touches: the player may have disconnected in the meantime.
func (e *Engine) offload(work func(ctx context.Context) error, apply func(err error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := work(ctx)
		e.post(func() { apply(err) })
	}()
}

// now returns the engine clock reading.
func (e *Engine) now() int64 { return e.clk.NowMs() }

// push enqueues a direct response. Full queues are logged and dropped; the
// outbound bus guarantees per-session ordering for everything that fits.
func (e *Engine) push(ev outbound.Event) {
	if err := e.out.Push(ev); err != nil {
		e.log.Debug("outbound push failed",
			zap.Stringer("session", ev.Session),
			zap.Stringer("kind", ev.Kind),
			zap.Error(err),
		)
	}
}

// deliver enqueues a fan-out event, dropping non-essential text for
// sessions whose queue is under pressure.
func (e *Engine) deliver(ev outbound.Event) {
	if !ev.Kind.Essential() && e.out.Pressured(ev.Session) {
		e.log.Debug("degrading broadcast under backpressure", zap.Stringer("session", ev.Session))
		return
	}
	e.push(ev)
}

// prompt renders and enqueues the session's input prompt.
func (e *Engine) prompt(sid ids.SessionID) {
	e.push(outbound.Prompt(sid, e.renderPrompt(sid)))
}

// notify delivers a targeted event and re-prompts the recipient so their
// terminal is left ready for input.
func (e *Engine) notify(sid ids.SessionID, ev outbound.Event) {
	e.deliver(ev)
	e.prompt(sid)
}

// broadcastRoom sends text to every player in a room except the listed
// sessions.
func (e *Engine) broadcastRoom(room ids.RoomID, text string, except ...ids.SessionID) {
	for _, st := range e.players.PlayersInRoom(room) {
		if containsSession(except, st.Session) {
			continue
		}
		e.deliver(outbound.Text(st.Session, text))
	}
}

// broadcastZone sends text to every player in a zone except the listed
// sessions.
func (e *Engine) broadcastZone(zone, text string, except ...ids.SessionID) {
	for _, st := range e.players.All() {
		if st.RoomID.Zone() != zone || containsSession(except, st.Session) {
			continue
		}
		e.deliver(outbound.Text(st.Session, text))
	}
}

// broadcastAll sends text to every online player except the listed sessions.
func (e *Engine) broadcastAll(text string, except ...ids.SessionID) {
	for _, st := range e.players.All() {
		if containsSession(except, st.Session) {
			continue
		}
		e.deliver(outbound.Text(st.Session, text))
	}
}

func containsSession(list []ids.SessionID, sid ids.SessionID) bool {
	for _, s := range list {
		if s == sid {
			return true
		}
	}
	return false
}

// snapshotHoldings captures a player's items without disturbing them.
func (e *Engine) snapshotHoldings(sid ids.SessionID) (inventory, equipment []item.Snapshot) {
	for _, inst := range e.items.Inventory(sid) {
		inventory = append(inventory, item.SnapshotOf(inst))
	}
	for _, slot := range ids.Slots {
		if inst, ok := e.items.EquippedAt(sid, slot); ok {
			snap := item.SnapshotOf(inst)
			snap.Slot = slot
			equipment = append(equipment, snap)
		}
	}
	return inventory, equipment
}

// defense is the damage reduction a player presents: equipped armor plus
// active effect bonuses.
func (e *Engine) defense(sid ids.SessionID) int {
	return e.items.ArmorSum(sid) + e.effectArmor(sid)
}

// attackBonus is the damage a player adds on top of the base roll: wielded
// weapon plus active effect bonuses.
func (e *Engine) attackBonus(sid ids.SessionID) int {
	return e.items.WeaponDamage(sid) + e.effectDamage(sid)
}

// engineForZone reports which peer serves a zone, if the cluster config
// names one.
func (e *Engine) engineForZone(zone string) (string, bool) {
	id, ok := e.zoneEngines[zone]
	return id, ok
}

// bindScripts points the Lua manager's world callbacks at this engine's
// registries. Hooks only ever run inside the loop, so the callbacks may
// touch engine state directly.
func (e *Engine) bindScripts() {
	if e.scripts == nil {
		return
	}
	e.scripts.SendRoom = func(roomID, text string) {
		id, err := ids.ParseRoomID(roomID)
		if err != nil {
			e.log.Warn("script send_room with bad room id", zap.String("room", roomID), zap.Error(err))
			return
		}
		for _, st := range e.players.PlayersInRoom(id) {
			e.deliver(outbound.Info(st.Session, text))
		}
	}
	e.scripts.UnlockDoor = func(featureID string) error {
		return e.features.UnlockDoor(ids.FeatureID(featureID))
	}
	e.scripts.OpenDoor = func(featureID string) error {
		return e.features.OpenDoor(ids.FeatureID(featureID))
	}
	e.scripts.SpawnMob = func(template, roomID string) error {
		tmpl, ok := e.world.MobTemplate(template)
		if !ok {
			return fmt.Errorf("unknown mob template %q", template)
		}
		id, err := ids.ParseRoomID(roomID)
		if err != nil {
			return err
		}
		if _, ok := e.world.Room(id); !ok {
			return fmt.Errorf("unknown room %q", roomID)
		}
		st := e.spawnMob(tmpl, id)
		e.broadcastRoom(id, fmt.Sprintf("A %s appears!", st.Name()))
		return nil
	}
}
