package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/driftwood-mud/engine/internal/bus"
	"github.com/driftwood-mud/engine/internal/game/clock"
	"github.com/driftwood-mud/engine/internal/game/combat"
	"github.com/driftwood-mud/engine/internal/game/dice"
	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/guild"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
	"github.com/driftwood-mud/engine/internal/game/world"
)

// eventTimeout bounds every wait on the outbound stream. Generous because
// CI machines stall; tests stay fast because events normally arrive in
// microseconds.
const eventTimeout = 2 * time.Second

// harborYAML is the zone every engine test runs in: a start room, a rat to
// kill, an aggressive thug, a talking NPC with a shop next door, and a
// warehouse full of fixtures guarding a locked side room. The south exit
// leads to a zone this instance does not serve. The loft is reachable only
// by a mob dropped into it; its shut hatch pens wanderers in.
const harborYAML = `
zone:
  id: harbor
  name: "Driftwood Harbor"
  description: "A fog-bound trading port."
  start_room: docks
  rooms:
    - id: docks
      title: "The Docks"
      description: "Salt-bleached planks stretch over gray water."
      exits:
        north: market
        east: warehouse
        west: den
        south: "isle:shore"
      items: [pearl, cap]
    - id: den
      title: "A Rat Den"
      description: "Chewed rope and droppings."
      exits:
        east: docks
      spawns:
        - template: rat
    - id: market
      title: "Harbor Market"
      description: "Stalls crowd the waterfront."
      exits:
        south: docks
        east: alley
      spawns:
        - template: bosun
    - id: alley
      title: "A Narrow Alley"
      description: "Fish bones and shadow."
      exits:
        west: market
      spawns:
        - template: thug
    - id: warehouse
      title: "The Warehouse"
      description: "Crates tower in the gloom."
      exits:
        west: docks
        north: office
      features:
        - local: door
          kind: door
          name: iron door
          direction: north
          state: LOCKED
          key: brasskey
        - local: crate
          kind: container
          name: battered crate
          state: CLOSED
          contents: [brasskey]
        - local: lever
          kind: lever
          name: rusted lever
          script: on_lever
        - local: chart
          kind: sign
          name: tide chart
          text: "High tide at dusk."
    - id: office
      title: "Harbormaster's Office"
      description: "Ledgers and lamplight."
      exits:
        south: warehouse
    - id: loft
      title: "The Warehouse Loft"
      description: "Dust, feathers, and a shut hatch."
      exits:
        down: warehouse
      features:
        - local: hatch
          kind: door
          name: oak hatch
          direction: down
          state: CLOSED
  items:
    cutlass:
      name: rusty cutlass
      slot: weapon
      damage: 3
      price: 30
    jerkin:
      name: leather jerkin
      slot: chest
      armor: 2
      price: 24
    tonic:
      name: harbor tonic
      consumable: true
      charges: 1
      price: 10
      heal: 10
    brasskey:
      name: brass key
    pearl:
      name: gray pearl
      price: 40
    cap:
      name: woolen cap
      slot: head
      armor: 1
      price: 8
    sword:
      name: shortsword
      slot: weapon
      damage: 2
      price: 50
  mobs:
    rat:
      name: wharf rat
      level: 1
      max_hp: 6
      damage: 1
      xp: 10
      gold: 2
      respawn_ms: 60000
    thug:
      name: dockside thug
      level: 3
      max_hp: 40
      damage: 2
      xp: 50
      gold: 10
      aggressive: true
    bosun:
      name: old bosun
      level: 5
      max_hp: 30
      damage: 2
      dialogue: bosun_talk
  shops:
    - room: market
      name: "Sel the Chandler"
      stock: [cutlass, jerkin, tonic, sword]
  dialogues:
    bosun_talk:
      start: greet
      nodes:
        greet:
          prompt: "Looking for work, sailor?"
          choices:
            - text: "Always."
              next: reward
              actions:
                - kind: give_item
                  item: tonic
                - kind: grant_xp
                  xp: 25
            - text: "Just passing through."
              next: ""
            - text: "Mark the market for me."
              next: marked
              actions:
                - kind: set_recall
                  room: "harbor:market"
        reward:
          prompt: "Take this for the road."
          choices:
            - text: "Thanks."
              next: ""
        marked:
          prompt: "Done. The market will call you back."
          choices:
            - text: "Thanks."
              next: ""
`

func testWorld(t *testing.T) *world.World {
	t.Helper()
	zone, err := world.LoadZoneFromBytes([]byte(harborYAML))
	require.NoError(t, err)
	w, err := world.Assemble([]*world.Zone{zone}, "")
	require.NoError(t, err)
	return w
}

// memPlayerRepo is an in-memory player.Repository keyed case-insensitively.
type memPlayerRepo struct {
	mu      sync.Mutex
	recs    map[string]*player.Record
	saveErr error
	saves   int
}

func newMemPlayerRepo() *memPlayerRepo {
	return &memPlayerRepo{recs: make(map[string]*player.Record)}
}

func (r *memPlayerRepo) FindByName(_ context.Context, name string) (*player.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[strings.ToLower(name)]
	if !ok {
		return nil, player.ErrNotFound
	}
	return rec, nil
}

func (r *memPlayerRepo) Save(_ context.Context, rec *player.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.recs[strings.ToLower(rec.Name)] = rec
	return nil
}

func (r *memPlayerRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.recs, strings.ToLower(name))
	return nil
}

func (r *memPlayerRepo) put(rec *player.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs[strings.ToLower(rec.Name)] = rec
}

func (r *memPlayerRepo) get(name string) (*player.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[strings.ToLower(name)]
	return rec, ok
}

func (r *memPlayerRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *memPlayerRepo) failSaves(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

// memGuildRepo is an in-memory guild.Repository. Rosters are derived from
// the player repo the way the SQL implementation derives them from the
// players table.
type memGuildRepo struct {
	mu      sync.Mutex
	guilds  map[string]*guild.Guild
	players *memPlayerRepo
}

func newMemGuildRepo(players *memPlayerRepo) *memGuildRepo {
	return &memGuildRepo{guilds: make(map[string]*guild.Guild), players: players}
}

func (r *memGuildRepo) Create(_ context.Context, g *guild.Guild) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.guilds[g.Slug]; dup {
		return guild.ErrDuplicate
	}
	cp := *g
	r.guilds[g.Slug] = &cp
	return nil
}

func (r *memGuildRepo) Save(_ context.Context, g *guild.Guild) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.guilds[g.Slug]; !ok {
		return guild.ErrNotFound
	}
	cp := *g
	r.guilds[g.Slug] = &cp
	return nil
}

func (r *memGuildRepo) FindBySlug(_ context.Context, slug string) (*guild.Guild, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guilds[slug]
	if !ok {
		return nil, guild.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *memGuildRepo) Delete(_ context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.guilds, slug)
	return nil
}

func (r *memGuildRepo) Roster(_ context.Context, slug string) ([]guild.Member, error) {
	r.players.mu.Lock()
	defer r.players.mu.Unlock()
	var members []guild.Member
	for _, rec := range r.players.recs {
		if rec.GuildID == slug {
			members = append(members, guild.Member{Name: rec.Name, Rank: rec.GuildRank})
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if (members[i].Rank == ids.RankLeader) != (members[j].Rank == ids.RankLeader) {
			return members[i].Rank == ids.RankLeader
		}
		return members[i].Name < members[j].Name
	})
	return members, nil
}

// sentMessage is one message captured by memBus; target is empty for
// broadcasts.
type sentMessage struct {
	target string
	msg    bus.Message
}

// memBus records outgoing messages and lets tests inject incoming ones.
type memBus struct {
	mu       sync.Mutex
	sent     []sentMessage
	sendErr  error
	incoming chan bus.Message
}

func newMemBus() *memBus {
	return &memBus{incoming: make(chan bus.Message, 16)}
}

func (b *memBus) SendTo(target string, msg bus.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, sentMessage{target: target, msg: msg})
	return nil
}

func (b *memBus) Broadcast(msg bus.Message) error {
	return b.SendTo("", msg)
}

func (b *memBus) Incoming() <-chan bus.Message { return b.incoming }

func (b *memBus) Close() error { return nil }

// deliver injects a message as if a peer engine had sent it.
func (b *memBus) deliver(msg bus.Message) { b.incoming <- msg }

func (b *memBus) published() []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]sentMessage, len(b.sent))
	copy(out, b.sent)
	return out
}

// waitFor polls until a published message satisfies pred.
func (b *memBus) waitFor(t *testing.T, pred func(sentMessage) bool) sentMessage {
	t.Helper()
	deadline := time.Now().Add(eventTimeout)
	for time.Now().Before(deadline) {
		for _, sm := range b.published() {
			if pred(sm) {
				return sm
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no matching bus message published; got %d messages", len(b.published()))
	return sentMessage{}
}

// memFeatureStore records fixture state batches.
type memFeatureStore struct {
	mu    sync.Mutex
	saved []feature.Persisted
	err   error
}

func (s *memFeatureStore) SaveStates(_ context.Context, states []feature.Persisted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, states...)
	return nil
}

func (s *memFeatureStore) all() []feature.Persisted {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]feature.Persisted, len(s.saved))
	copy(out, s.saved)
	return out
}

// harness runs one engine against the harbor zone with a frozen clock and
// scripted dice. Time moves only through advance.
type harness struct {
	t      *testing.T
	eng    *Engine
	clk    *clock.Mutable
	repo   *memPlayerRepo
	guilds *memGuildRepo

	cancel  context.CancelFunc
	runDone chan struct{}
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, nil)
}

// newHarnessWith builds the default deps, lets mod adjust them, then starts
// the engine loop. The dice source always rolls its maximum face so damage
// is Between(1,4)=4 plus bonuses.
func newHarnessWith(t *testing.T, mod func(*Deps)) *harness {
	t.Helper()

	repo := newMemPlayerRepo()
	h := &harness{
		t:       t,
		clk:     clock.NewMutable(1_000_000),
		repo:    repo,
		guilds:  newMemGuildRepo(repo),
		runDone: make(chan struct{}),
	}

	deps := Deps{
		Logger:  zaptest.NewLogger(t),
		World:   testWorld(t),
		Clock:   h.clk,
		Dice:    dice.NewFixedSource(3),
		Players: h.repo,
		Guilds:  h.guilds,
		Config: Config{
			EngineID: "e1",
			Combat: combat.Config{
				MinDamage:       1,
				MaxDamage:       4,
				SwingIntervalMs: 1000,
				FleeChance:      0.5,
			},
			MobSwingIntervalMs: 1500,
			TickIntervalMs:     5,
			MaxActionsPerTick:  64,
			RecallCooldownMs:   60_000,
			StartGold:          50,
			HashCost:           bcrypt.MinCost,
			OutboundBuffer:     256,
		},
	}
	if mod != nil {
		mod(&deps)
	}

	eng, err := New(deps)
	require.NoError(t, err)
	h.eng = eng

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.runDone)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.runDone:
		case <-time.After(eventTimeout):
			t.Error("engine loop did not stop")
		}
	})
	return h
}

// stop shuts the loop down and waits for it, for tests that assert
// shutdown behavior. Pending inputs drain before the cancel lands.
func (h *harness) stop() {
	h.t.Helper()
	h.sync()
	h.cancel()
	select {
	case <-h.runDone:
	case <-time.After(eventTimeout):
		h.t.Fatal("engine loop did not stop")
	}
}

// sync blocks until every input submitted so far has been handled.
func (h *harness) sync() {
	h.t.Helper()
	done := make(chan struct{})
	h.eng.post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(eventTimeout):
		h.t.Fatal("engine loop did not drain")
	}
}

// advance moves the clock forward and runs every action that came due.
func (h *harness) advance(ms int64) {
	h.t.Helper()
	h.clk.Advance(ms)
	done := make(chan struct{})
	h.eng.post(func() {
		h.eng.runTick()
		close(done)
	})
	select {
	case <-done:
	case <-time.After(eventTimeout):
		h.t.Fatal("engine loop did not run the tick")
	}
}

// inLoop runs fn on the engine goroutine and waits for it, so tests can
// inspect loop-owned registries without races.
func (h *harness) inLoop(fn func(e *Engine)) {
	h.t.Helper()
	done := make(chan struct{})
	h.eng.post(func() {
		fn(h.eng)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(eventTimeout):
		h.t.Fatal("engine loop did not run the probe")
	}
}

// seed stores a player record with the given password, ready to log in.
func (h *harness) seed(name, pass string, mod func(*player.Record)) {
	h.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	require.NoError(h.t, err)
	rec := &player.Record{
		Name:         player.NormalizeName(name),
		PasswordHash: string(hash),
		RoomID:       h.eng.world.StartRoom,
		Hp:           10,
		BaseMaxHp:    10,
		Level:        1,
		Gold:         50,
	}
	if mod != nil {
		mod(rec)
	}
	h.repo.put(rec)
}

var testSessionIDs int64 = 7000

// client drives one session through the engine's public surface, reading
// the same event stream a telnet writer would.
type client struct {
	t   *testing.T
	h   *harness
	sid ids.SessionID
	ch  <-chan outbound.Event
}

func (h *harness) connect() *client {
	h.t.Helper()
	sid := ids.SessionID(atomic.AddInt64(&testSessionIDs, 1))
	ch, err := h.eng.Connect(sid)
	require.NoError(h.t, err)
	return &client{t: h.t, h: h, sid: sid, ch: ch}
}

// login connects a fresh session and authenticates it, creating the player
// when no record exists. It drains output through the first prompt.
func (h *harness) login(name string) *client {
	return h.loginWith(name, "sesame")
}

func (h *harness) loginWith(name, pass string) *client {
	h.t.Helper()
	c := h.connect()
	c.expectKind(outbound.KindPrompt)
	c.send(name)
	c.expect(outbound.KindPrompt, "Password")
	c.send(pass)
	c.expect(outbound.KindInfo, "Welcome")
	c.drainToPrompt()
	return c
}

func (c *client) send(line string) {
	c.h.eng.Line(c.sid, line)
}

func (c *client) disconnect() {
	c.h.eng.Disconnect(c.sid)
}

// next returns the next event or fails after the timeout.
func (c *client) next() outbound.Event {
	c.t.Helper()
	select {
	case ev, ok := <-c.ch:
		if !ok {
			c.t.Fatalf("session %s: outbound stream closed", c.sid)
		}
		return ev
	case <-time.After(eventTimeout):
		c.t.Fatalf("session %s: no event within %s", c.sid, eventTimeout)
	}
	return outbound.Event{}
}

// expect drains events until one has the kind and contains substr.
func (c *client) expect(kind outbound.Kind, substr string) outbound.Event {
	c.t.Helper()
	var seen []string
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev, ok := <-c.ch:
			if !ok {
				c.t.Fatalf("session %s: stream closed waiting for %s %q; saw %v", c.sid, kind, substr, seen)
			}
			if ev.Kind == kind && strings.Contains(ev.Text, substr) {
				return ev
			}
			seen = append(seen, ev.Kind.String()+":"+ev.Text)
		case <-deadline:
			c.t.Fatalf("session %s: never saw %s %q; saw %v", c.sid, kind, substr, seen)
		}
	}
}

// expectKind drains events until one has the kind, regardless of text.
func (c *client) expectKind(kind outbound.Kind) outbound.Event {
	c.t.Helper()
	var seen []string
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev, ok := <-c.ch:
			if !ok {
				c.t.Fatalf("session %s: stream closed waiting for %s; saw %v", c.sid, kind, seen)
			}
			if ev.Kind == kind {
				return ev
			}
			seen = append(seen, ev.Kind.String()+":"+ev.Text)
		case <-deadline:
			c.t.Fatalf("session %s: never saw kind %s; saw %v", c.sid, kind, seen)
		}
	}
}

func (c *client) expectText(substr string) outbound.Event {
	c.t.Helper()
	return c.expect(outbound.KindText, substr)
}

func (c *client) expectInfo(substr string) outbound.Event {
	c.t.Helper()
	return c.expect(outbound.KindInfo, substr)
}

func (c *client) expectError(substr string) outbound.Event {
	c.t.Helper()
	return c.expect(outbound.KindError, substr)
}

// drainToPrompt consumes events through the next prompt and returns them,
// prompt excluded.
func (c *client) drainToPrompt() []outbound.Event {
	c.t.Helper()
	var evs []outbound.Event
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev, ok := <-c.ch:
			if !ok {
				c.t.Fatalf("session %s: stream closed before prompt", c.sid)
			}
			if ev.Kind == outbound.KindPrompt {
				return evs
			}
			evs = append(evs, ev)
		case <-deadline:
			c.t.Fatalf("session %s: no prompt within %s", c.sid, eventTimeout)
		}
	}
}

// textOf flattens event texts for order-insensitive assertions.
func textOf(evs []outbound.Event) string {
	var b strings.Builder
	for _, ev := range evs {
		b.WriteString(ev.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
