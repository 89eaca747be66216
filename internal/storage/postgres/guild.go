package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftwood-mud/engine/internal/game/guild"
)

// GuildRepository provides guild persistence. Membership is not stored
// here: each player record carries its guild slug and rank, so the roster
// is a query over the players table.
type GuildRepository struct {
	db *pgxpool.Pool
}

// NewGuildRepository creates a GuildRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewGuildRepository(db *pgxpool.Pool) *GuildRepository {
	return &GuildRepository{db: db}
}

var _ guild.Repository = (*GuildRepository)(nil)

// Create stores a new guild.
//
// Postcondition: Returns guild.ErrDuplicate when the slug is taken.
func (r *GuildRepository) Create(ctx context.Context, g *guild.Guild) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO guilds (slug, name, tag, motd, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		g.Slug, g.Name, g.Tag, g.Motd, time.UnixMilli(g.CreatedAtMs),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return guild.ErrDuplicate
		}
		return fmt.Errorf("inserting guild: %w", err)
	}
	return nil
}

// Save updates an existing guild's mutable fields.
//
// Postcondition: Returns guild.ErrNotFound if no row was updated.
func (r *GuildRepository) Save(ctx context.Context, g *guild.Guild) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE guilds SET tag = $2, motd = $3 WHERE slug = $1`,
		g.Slug, g.Tag, g.Motd,
	)
	if err != nil {
		return fmt.Errorf("updating guild: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return guild.ErrNotFound
	}
	return nil
}

// FindBySlug loads a guild.
//
// Postcondition: Returns guild.ErrNotFound when no guild matches.
func (r *GuildRepository) FindBySlug(ctx context.Context, slug string) (*guild.Guild, error) {
	var (
		g         guild.Guild
		createdAt time.Time
	)
	err := r.db.QueryRow(ctx,
		`SELECT slug, name, tag, motd, created_at FROM guilds WHERE slug = $1`,
		slug,
	).Scan(&g.Slug, &g.Name, &g.Tag, &g.Motd, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, guild.ErrNotFound
		}
		return nil, fmt.Errorf("querying guild: %w", err)
	}
	g.CreatedAtMs = createdAt.UnixMilli()
	return &g, nil
}

// Delete removes a guild. Member player records keep their stale slug until
// the engine clears them; lookups against the deleted slug simply miss.
func (r *GuildRepository) Delete(ctx context.Context, slug string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM guilds WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("deleting guild: %w", err)
	}
	return nil
}

// Roster lists every member with their rank, leader first then by name.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *GuildRepository) Roster(ctx context.Context, slug string) ([]guild.Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name, guild_rank FROM players
		WHERE guild_id = $1
		ORDER BY (guild_rank = 'leader') DESC, lower(name) ASC`,
		slug,
	)
	if err != nil {
		return nil, fmt.Errorf("listing guild roster: %w", err)
	}
	defer rows.Close()

	members := make([]guild.Member, 0)
	for rows.Next() {
		var m guild.Member
		if err := rows.Scan(&m.Name, &m.Rank); err != nil {
			return nil, fmt.Errorf("scanning roster row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
