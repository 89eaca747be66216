// Package testutil provides test helpers including container management
// and test client utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/driftwood-mud/engine/internal/config"
	"github.com/driftwood-mud/engine/internal/storage/postgres"
)

// schemaSQL mirrors migrations/ so tests can build the schema without the
// migrate tool. Keep the two in step.
const schemaSQL = `
	CREATE TABLE IF NOT EXISTS players (
		id             BIGSERIAL    PRIMARY KEY,
		name           VARCHAR(16)  NOT NULL,
		password_hash  TEXT         NOT NULL,
		room_id        TEXT         NOT NULL,
		hp             INTEGER      NOT NULL,
		base_max_hp    INTEGER      NOT NULL,
		level          INTEGER      NOT NULL,
		xp_total       INTEGER      NOT NULL,
		gold           INTEGER      NOT NULL,
		is_staff       BOOLEAN      NOT NULL DEFAULT FALSE,
		recall_room_id TEXT         NOT NULL DEFAULT '',
		guild_id       TEXT         NOT NULL DEFAULT '',
		guild_rank     TEXT         NOT NULL DEFAULT '',
		inventory      JSONB        NOT NULL DEFAULT '[]',
		equipment      JSONB        NOT NULL DEFAULT '[]',
		inbox          JSONB        NOT NULL DEFAULT '[]',
		created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_players_name_lower ON players (lower(name));
	CREATE INDEX IF NOT EXISTS idx_players_guild ON players (guild_id) WHERE guild_id <> '';

	CREATE TABLE IF NOT EXISTS guilds (
		slug       TEXT         PRIMARY KEY,
		name       VARCHAR(32)  NOT NULL,
		tag        VARCHAR(4)   NOT NULL,
		motd       TEXT         NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS world_features (
		feature_id TEXT         PRIMARY KEY,
		state      TEXT         NOT NULL,
		updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

var (
	sharedMu   sync.Mutex
	sharedPool *pgxpool.Pool
	sharedErr  error
)

// NewPool returns a connection pool to a migrated test database. The first
// call starts one container shared for the rest of the test binary; the
// testcontainers reaper tears it down when the process exits. Skipped under
// -short.
//
// Precondition: Docker must be available.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres-backed test in short mode")
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedErr != nil {
		t.Fatalf("starting shared postgres: %v", sharedErr)
	}
	if sharedPool != nil {
		return sharedPool
	}

	pc, err := startContainer(context.Background())
	if err != nil {
		sharedErr = err
		t.Fatalf("starting shared postgres: %v", err)
	}
	if _, err := pc.RawPool.Exec(context.Background(), schemaSQL); err != nil {
		sharedErr = err
		t.Fatalf("applying migrations: %v", err)
	}
	sharedPool = pc.RawPool
	return sharedPool
}

// NewPostgresContainer starts a PostgreSQL test container and returns
// a connected Pool, terminated when the test finishes. Skipped under -short.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres-backed test in short mode")
	}
	start := time.Now()

	pc, err := startContainer(context.Background())
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}

	t.Logf("postgres container started [%s]", time.Since(start))

	t.Cleanup(func() {
		pc.Pool.Close()
		_ = pc.container.Terminate(context.Background())
	})

	return pc
}

func startContainer(ctx context.Context) (*PostgresContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("getting mapped port: %w", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "test",
		Password:        "test",
		Name:            "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to test postgres: %w", err)
	}

	return &PostgresContainer{
		container: container,
		Pool:      pool,
		RawPool:   pool.DB(),
		Config:    dbCfg,
	}, nil
}

// ApplyMigrations runs the schema creation SQL directly for tests.
// This avoids requiring the migrate tool in the test environment.
//
// Precondition: Pool must be connected.
// Postcondition: The players, guilds, and world_features tables exist in
// the test database.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	start := time.Now()

	if _, err := pc.RawPool.Exec(context.Background(), schemaSQL); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("migrations applied [%s]", time.Since(start))
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.Config.User, pc.Config.Password,
		pc.Config.Host, pc.Config.Port,
		pc.Config.Name, pc.Config.SSLMode,
	)
}
