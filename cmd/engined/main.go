// Package main is the engined binary: one game engine process serving its
// zones over Telnet, persisting to PostgreSQL, and optionally joined to the
// rest of the cluster through the relay bus.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/bus"
	"github.com/driftwood-mud/engine/internal/config"
	"github.com/driftwood-mud/engine/internal/engine"
	"github.com/driftwood-mud/engine/internal/frontend/telnet"
	"github.com/driftwood-mud/engine/internal/game/clock"
	"github.com/driftwood-mud/engine/internal/game/combat"
	"github.com/driftwood-mud/engine/internal/game/dice"
	"github.com/driftwood-mud/engine/internal/game/shop"
	"github.com/driftwood-mud/engine/internal/game/world"
	"github.com/driftwood-mud/engine/internal/observability"
	"github.com/driftwood-mud/engine/internal/scripting"
	"github.com/driftwood-mud/engine/internal/server"
	"github.com/driftwood-mud/engine/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting engine",
		zap.String("engine_id", cfg.Engine.EngineID),
		zap.String("telnet_addr", cfg.Server.Addr()),
	)

	// Load world content
	worldStart := time.Now()
	zones, err := world.LoadZonesFromDir(cfg.World.Dir)
	if err != nil {
		logger.Fatal("loading zones", zap.Error(err))
	}
	w, err := world.Assemble(zones, cfg.World.StartRoom)
	if err != nil {
		logger.Fatal("assembling world", zap.Error(err))
	}
	roomCount := 0
	for _, z := range w.Zones() {
		roomCount += len(z.RoomIDs())
	}
	logger.Info("world loaded",
		zap.Int("zones", len(w.Zones())),
		zap.Int("rooms", roomCount),
		zap.Stringer("start_room", w.StartRoom),
		zap.Duration("elapsed", time.Since(worldStart)),
	)

	// Zone Lua scripts
	scripts := scripting.NewManager(logger)
	defer scripts.Close()
	for _, z := range w.Zones() {
		if z.ScriptFile == "" {
			continue
		}
		if err := scripts.LoadZoneFile(z.ID, z.ScriptFile, z.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading zone script",
				zap.String("zone", z.ID),
				zap.String("file", z.ScriptFile),
				zap.Error(err),
			)
		}
		logger.Info("zone script loaded",
			zap.String("zone", z.ID),
			zap.String("file", z.ScriptFile),
		)
	}

	// Connect to PostgreSQL
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	players := postgres.NewPlayerRepository(pool.DB())
	guilds := postgres.NewGuildRepository(pool.DB())
	featureStore := postgres.NewFeatureStateStore(pool.DB())

	featureStates, err := featureStore.LoadStates(ctx)
	if err != nil {
		logger.Fatal("loading fixture states", zap.Error(err))
	}
	if len(featureStates) > 0 {
		logger.Info("fixture states restored", zap.Int("count", len(featureStates)))
	}

	persister := engine.NewPersister(logger, players, featureStore)

	// Inter-engine bus
	var (
		engineBus bus.Bus
		locations bus.PlayerLocationIndex
		busClient *bus.Client
	)
	if cfg.Bus.Enabled {
		busClient = bus.NewClient(bus.ClientConfig{
			EngineID: cfg.Engine.EngineID,
			RelayURL: cfg.Bus.RelayURL,
			Buffer:   cfg.Bus.Buffer,
		}, logger)
		engineBus = busClient
		if len(cfg.Bus.Locations) > 0 {
			locations = bus.NewStaticIndex(cfg.Bus.Locations)
		}
		logger.Info("bus enabled", zap.String("relay_url", cfg.Bus.RelayURL))
	}

	instances := make([]engine.Instance, 0, len(cfg.Bus.Instances))
	for _, inst := range cfg.Bus.Instances {
		instances = append(instances, engine.Instance{
			EngineID: inst.EngineID,
			Address:  inst.Address,
			Zone:     inst.Zone,
		})
	}

	// The staff shutdown command stops the whole process.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	eng, err := engine.New(engine.Deps{
		Logger:        logger,
		World:         w,
		Clock:         clock.NewSystem(),
		Dice:          dice.NewCryptoSource(),
		Players:       players,
		Guilds:        guilds,
		Persister:     persister,
		Bus:           engineBus,
		Locations:     locations,
		Scripts:       scripts,
		FeatureStates: featureStates,
		OnShutdown:    stop,
		Config: engine.Config{
			EngineID: cfg.Engine.EngineID,
			Combat: combat.Config{
				MinDamage:       cfg.Combat.MinDamage,
				MaxDamage:       cfg.Combat.MaxDamage,
				SwingIntervalMs: cfg.Combat.SwingIntervalMs,
				FleeChance:      cfg.Combat.FleeChance,
			},
			MobSwingIntervalMs: cfg.Combat.MobSwingIntervalMs,
			Economy: shop.Economy{
				BuyRate:  cfg.Economy.BuyMultiplier,
				SellRate: cfg.Economy.SellMultiplier,
			},
			TickIntervalMs:    cfg.Scheduler.TickIntervalMs,
			MaxActionsPerTick: cfg.Scheduler.MaxActionsPerTick,
			RecallCooldownMs:  cfg.Engine.RecallCooldownMs,
			FlushIntervalMs:   cfg.Engine.FlushIntervalMs,
			Instances:         instances,
		},
	})
	if err != nil {
		logger.Fatal("assembling engine", zap.Error(err))
	}

	acceptor := telnet.NewAcceptor(cfg.Server, eng, logger)

	// Shutdown runs in reverse order: the acceptor drops sessions first,
	// the engine flushes, the persister drains, the pool closes last.
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add(&server.FuncService{
		ServiceName: "postgres",
		RunFn: func(ctx context.Context) error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			}
		},
		ShutdownFn: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	lifecycle.Add(persister)
	lifecycle.Add(eng)
	if busClient != nil {
		lifecycle.Add(&server.FuncService{
			ServiceName: "bus",
			RunFn: func(ctx context.Context) error {
				busClient.Run(ctx)
				return nil
			},
			ShutdownFn: func(context.Context) error {
				return busClient.Close()
			},
		})
	}
	lifecycle.Add(acceptor)

	logger.Info("engine initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("shops", len(w.Shops())),
	)

	if err := lifecycle.Run(runCtx); err != nil {
		logger.Fatal("engine error", zap.Error(err))
	}
}
