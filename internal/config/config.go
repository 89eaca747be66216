// Package config provides Viper-based configuration loading for the engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the Telnet listener settings.
type ServerConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxLineLen caps the length of one inbound line in bytes.
	MaxLineLen int `mapstructure:"max_line_len"`
	// Ansi enables color on outbound info and error text.
	Ansi bool `mapstructure:"ansi"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineConfig holds the identity and pacing of one engine process.
type EngineConfig struct {
	// EngineID identifies this engine on the inter-engine bus.
	EngineID string `mapstructure:"engine_id"`
	// RecallCooldownMs is the minimum spacing between recalls per player.
	RecallCooldownMs int64 `mapstructure:"recall_cooldown_ms"`
	// FlushIntervalMs is how often dirty players and features are
	// handed to the persistence worker.
	FlushIntervalMs int64 `mapstructure:"flush_interval_ms"`
}

// WorldConfig locates the static world content.
type WorldConfig struct {
	// Dir is the directory of zone YAML files.
	Dir string `mapstructure:"dir"`
	// StartRoom overrides where new players appear, as "zone:local".
	// Empty selects the first loaded zone's start room.
	StartRoom string `mapstructure:"start_room"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// InstanceConfig describes one peer engine for the phase listing.
type InstanceConfig struct {
	// EngineID is the peer's bus identity.
	EngineID string `mapstructure:"engine_id"`
	// Address is where clients reach the peer.
	Address string `mapstructure:"address"`
	// Zone is the zone the peer serves.
	Zone string `mapstructure:"zone"`
}

// BusConfig holds inter-engine bus settings.
type BusConfig struct {
	// Enabled turns on the relay connection. Off, the engine runs alone
	// and cross-engine commands fall back to local-only behavior.
	Enabled bool `mapstructure:"enabled"`
	// RelayURL is the relay websocket endpoint.
	RelayURL string `mapstructure:"relay_url"`
	// Buffer is the queue depth in each direction; 0 selects the default.
	Buffer int `mapstructure:"buffer"`
	// Locations statically maps lowercase player names to engine IDs for
	// the location index. Unlisted names fall back to broadcast.
	Locations map[string]string `mapstructure:"locations"`
	// Instances lists the peer engines shown by the phase command.
	Instances []InstanceConfig `mapstructure:"instances"`
}

// CombatConfig tunes the damage model.
type CombatConfig struct {
	MinDamage          int     `mapstructure:"min_damage"`
	MaxDamage          int     `mapstructure:"max_damage"`
	SwingIntervalMs    int64   `mapstructure:"swing_interval_ms"`
	MobSwingIntervalMs int64   `mapstructure:"mob_swing_interval_ms"`
	FleeChance         float64 `mapstructure:"flee_chance"`
}

// EconomyConfig tunes shop pricing.
type EconomyConfig struct {
	BuyMultiplier  float64 `mapstructure:"buy_multiplier"`
	SellMultiplier float64 `mapstructure:"sell_multiplier"`
}

// SchedulerConfig paces the engine tick.
type SchedulerConfig struct {
	// TickIntervalMs separates scheduler runs.
	TickIntervalMs int64 `mapstructure:"tick_interval_ms"`
	// MaxActionsPerTick caps work per RunDue call.
	MaxActionsPerTick int `mapstructure:"max_actions_per_tick"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	World     WorldConfig     `mapstructure:"world"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bus       BusConfig       `mapstructure:"bus"`
	Combat    CombatConfig    `mapstructure:"combat"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateServer(c.Server),
		validateEngine(c.Engine),
		validateWorld(c.World),
		validateDatabase(c.Database),
		validateBus(c.Bus),
		validateCombat(c.Combat),
		validateEconomy(c.Economy),
		validateScheduler(c.Scheduler),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.MaxLineLen < 1 {
		errs = append(errs, fmt.Sprintf("server.max_line_len must be >= 1, got %d", s.MaxLineLen))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.EngineID == "" {
		errs = append(errs, "engine.engine_id must not be empty")
	}
	if e.RecallCooldownMs < 0 {
		errs = append(errs, fmt.Sprintf("engine.recall_cooldown_ms must be >= 0, got %d", e.RecallCooldownMs))
	}
	if e.FlushIntervalMs < 1 {
		errs = append(errs, fmt.Sprintf("engine.flush_interval_ms must be >= 1, got %d", e.FlushIntervalMs))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	if w.Dir == "" {
		return errors.New("world.dir must not be empty")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBus(b BusConfig) error {
	if b.Enabled && b.RelayURL == "" {
		return errors.New("bus.relay_url must not be empty when bus.enabled")
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.MinDamage < 0 {
		errs = append(errs, fmt.Sprintf("combat.min_damage must be >= 0, got %d", c.MinDamage))
	}
	if c.MaxDamage < c.MinDamage {
		errs = append(errs, "combat.max_damage must not be below combat.min_damage")
	}
	if c.SwingIntervalMs < 1 {
		errs = append(errs, fmt.Sprintf("combat.swing_interval_ms must be >= 1, got %d", c.SwingIntervalMs))
	}
	if c.MobSwingIntervalMs < 1 {
		errs = append(errs, fmt.Sprintf("combat.mob_swing_interval_ms must be >= 1, got %d", c.MobSwingIntervalMs))
	}
	if c.FleeChance < 0 || c.FleeChance > 1 {
		errs = append(errs, fmt.Sprintf("combat.flee_chance must be in [0, 1], got %g", c.FleeChance))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEconomy(e EconomyConfig) error {
	var errs []string
	if e.BuyMultiplier < 0 {
		errs = append(errs, fmt.Sprintf("economy.buy_multiplier must be >= 0, got %g", e.BuyMultiplier))
	}
	if e.SellMultiplier < 0 {
		errs = append(errs, fmt.Sprintf("economy.sell_multiplier must be >= 0, got %g", e.SellMultiplier))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScheduler(s SchedulerConfig) error {
	var errs []string
	if s.TickIntervalMs < 1 {
		errs = append(errs, fmt.Sprintf("scheduler.tick_interval_ms must be >= 1, got %d", s.TickIntervalMs))
	}
	if s.MaxActionsPerTick < 1 {
		errs = append(errs, fmt.Sprintf("scheduler.max_actions_per_tick must be >= 1, got %d", s.MaxActionsPerTick))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. A missing file is tolerated: defaults and
// DRIFTWOOD_* environment variables alone can form a complete configuration.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with DRIFTWOOD_ prefix
	v.SetEnvPrefix("DRIFTWOOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.read_timeout", "5m")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.max_line_len", 512)
	v.SetDefault("server.ansi", true)

	v.SetDefault("engine.engine_id", "e1")
	v.SetDefault("engine.recall_cooldown_ms", 300000)
	v.SetDefault("engine.flush_interval_ms", 30000)

	v.SetDefault("world.dir", "world")
	v.SetDefault("world.start_room", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "driftwood")
	v.SetDefault("database.password", "driftwood")
	v.SetDefault("database.name", "driftwood")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("bus.enabled", false)
	v.SetDefault("bus.relay_url", "ws://127.0.0.1:9190/bus")
	v.SetDefault("bus.buffer", 0)

	v.SetDefault("combat.min_damage", 1)
	v.SetDefault("combat.max_damage", 4)
	v.SetDefault("combat.swing_interval_ms", 2000)
	v.SetDefault("combat.mob_swing_interval_ms", 2500)
	v.SetDefault("combat.flee_chance", 0.5)

	v.SetDefault("economy.buy_multiplier", 1.0)
	v.SetDefault("economy.sell_multiplier", 0.5)

	v.SetDefault("scheduler.tick_interval_ms", 100)
	v.SetDefault("scheduler.max_actions_per_tick", 64)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
