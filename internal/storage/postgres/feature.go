package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/ids"
)

// FeatureStateStore persists mutable world-feature states (doors, levers,
// containers) keyed by feature ID. Rows exist only for features that have
// moved off their YAML-defined initial state.
type FeatureStateStore struct {
	db *pgxpool.Pool
}

// NewFeatureStateStore creates a FeatureStateStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewFeatureStateStore(db *pgxpool.Pool) *FeatureStateStore {
	return &FeatureStateStore{db: db}
}

// SaveStates upserts the given feature states in one batch.
//
// Postcondition: Every state is written, or a non-nil error is returned and
// the caller may retry the whole batch.
func (s *FeatureStateStore) SaveStates(ctx context.Context, states []feature.Persisted) error {
	if len(states) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range states {
		batch.Queue(`
			INSERT INTO world_features (feature_id, state)
			VALUES ($1, $2)
			ON CONFLICT (feature_id) DO UPDATE SET
				state = EXCLUDED.state,
				updated_at = NOW()`,
			st.ID, st.State,
		)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for range states {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("saving feature state: %w", err)
		}
	}
	return nil
}

// LoadStates returns every persisted feature state, keyed by feature ID.
// States for features no longer present in the world YAML are returned too;
// the loader drops them.
//
// Postcondition: Returns a map (may be empty) or a non-nil error.
func (s *FeatureStateStore) LoadStates(ctx context.Context) (map[ids.FeatureID]string, error) {
	rows, err := s.db.Query(ctx, `SELECT feature_id, state FROM world_features`)
	if err != nil {
		return nil, fmt.Errorf("loading feature states: %w", err)
	}
	defer rows.Close()

	states := make(map[ids.FeatureID]string)
	for rows.Next() {
		var (
			id    ids.FeatureID
			state string
		)
		if err := rows.Scan(&id, &state); err != nil {
			return nil, fmt.Errorf("scanning feature state row: %w", err)
		}
		states[id] = state
	}
	return states, rows.Err()
}
