package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/mail"
	"github.com/driftwood-mud/engine/internal/game/player"
)

// PlayerRepository provides player record persistence. Names are unique
// case-insensitively; the stored name keeps the casing from creation.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

var _ player.Repository = (*PlayerRepository)(nil)

// FindByName loads a record by case-insensitive name.
//
// Postcondition: Returns player.ErrNotFound when no record matches.
func (r *PlayerRepository) FindByName(ctx context.Context, name string) (*player.Record, error) {
	var (
		rec       player.Record
		inventory []byte
		equipment []byte
		inbox     []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT name, password_hash, room_id, hp, base_max_hp, level, xp_total, gold,
		       is_staff, recall_room_id, guild_id, guild_rank, inventory, equipment, inbox
		FROM players WHERE lower(name) = lower($1)`,
		name,
	).Scan(
		&rec.Name, &rec.PasswordHash, &rec.RoomID, &rec.Hp, &rec.BaseMaxHp,
		&rec.Level, &rec.XpTotal, &rec.Gold,
		&rec.IsStaff, &rec.RecallRoomID, &rec.GuildID, &rec.GuildRank,
		&inventory, &equipment, &inbox,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, player.ErrNotFound
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}

	if err := json.Unmarshal(inventory, &rec.Inventory); err != nil {
		return nil, fmt.Errorf("decoding inventory for %q: %w", rec.Name, err)
	}
	if err := json.Unmarshal(equipment, &rec.Equipment); err != nil {
		return nil, fmt.Errorf("decoding equipment for %q: %w", rec.Name, err)
	}
	if err := json.Unmarshal(inbox, &rec.Inbox); err != nil {
		return nil, fmt.Errorf("decoding inbox for %q: %w", rec.Name, err)
	}
	return &rec, nil
}

// Save upserts a record keyed by case-insensitive name. The display casing
// set at creation is never rewritten.
//
// Postcondition: Returns player.ErrDuplicateName only when a concurrent
// create races on the same name with different casing.
func (r *PlayerRepository) Save(ctx context.Context, rec *player.Record) error {
	inventory, err := marshalList(rec.Inventory)
	if err != nil {
		return fmt.Errorf("encoding inventory for %q: %w", rec.Name, err)
	}
	equipment, err := marshalList(rec.Equipment)
	if err != nil {
		return fmt.Errorf("encoding equipment for %q: %w", rec.Name, err)
	}
	inbox, err := marshalInbox(rec.Inbox)
	if err != nil {
		return fmt.Errorf("encoding inbox for %q: %w", rec.Name, err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO players
			(name, password_hash, room_id, hp, base_max_hp, level, xp_total, gold,
			 is_staff, recall_room_id, guild_id, guild_rank, inventory, equipment, inbox)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (lower(name)) DO UPDATE SET
			password_hash  = EXCLUDED.password_hash,
			room_id        = EXCLUDED.room_id,
			hp             = EXCLUDED.hp,
			base_max_hp    = EXCLUDED.base_max_hp,
			level          = EXCLUDED.level,
			xp_total       = EXCLUDED.xp_total,
			gold           = EXCLUDED.gold,
			is_staff       = EXCLUDED.is_staff,
			recall_room_id = EXCLUDED.recall_room_id,
			guild_id       = EXCLUDED.guild_id,
			guild_rank     = EXCLUDED.guild_rank,
			inventory      = EXCLUDED.inventory,
			equipment      = EXCLUDED.equipment,
			inbox          = EXCLUDED.inbox,
			updated_at     = NOW()`,
		rec.Name, rec.PasswordHash, rec.RoomID, rec.Hp, rec.BaseMaxHp,
		rec.Level, rec.XpTotal, rec.Gold,
		rec.IsStaff, rec.RecallRoomID, rec.GuildID, rec.GuildRank,
		inventory, equipment, inbox,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return player.ErrDuplicateName
		}
		return fmt.Errorf("saving player: %w", err)
	}
	return nil
}

// Delete removes a record by case-insensitive name.
//
// Postcondition: Returns player.ErrNotFound if no row was deleted.
func (r *PlayerRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM players WHERE lower(name) = lower($1)`,
		name,
	)
	if err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// SetStaff flips the staff flag for the named player. Used by the setstaff
// tool rather than the engine, which edits staff state through live records.
//
// Postcondition: Returns player.ErrNotFound if no row was updated.
func (r *PlayerRepository) SetStaff(ctx context.Context, name string, staff bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE players SET is_staff = $2, updated_at = NOW() WHERE lower(name) = lower($1)`,
		name, staff,
	)
	if err != nil {
		return fmt.Errorf("updating staff flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// marshalList encodes item snapshots for a jsonb column, keeping empty
// holdings as an empty array rather than SQL-visible null.
func marshalList(items []item.Snapshot) ([]byte, error) {
	if len(items) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

// marshalInbox encodes mail for a jsonb column, empty inbox as empty array.
func marshalInbox(msgs []mail.Message) ([]byte, error) {
	if len(msgs) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(msgs)
}
