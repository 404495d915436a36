package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

const directoryTimeout = 2 * time.Second

// Directory answers the registry's player lookups from the database.
// A failed query is logged and treated as "no such relation".
type Directory struct {
	s   *SQLiteStore
	log zerolog.Logger
}

var _ chat.Directory = (*Directory)(nil)

// NewDirectory wraps the store as a chat.Directory.
func NewDirectory(s *SQLiteStore, logger zerolog.Logger) *Directory {
	return &Directory{s: s, log: logger}
}

func (d *Directory) queryRow(query string, id chat.PlayerID, dest ...any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
	defer cancel()

	err := d.s.db.QueryRowContext(ctx, query, int64(id)).Scan(dest...)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			d.log.Warn().Err(err).Uint32("player_id", uint32(id)).Msg("directory lookup failed")
		}
		return false
	}
	return true
}

// Guild returns the guild the player belongs to.
func (d *Directory) Guild(id chat.PlayerID) (chat.Guild, bool) {
	query := `
		SELECT g.id, g.name, g.motd
		FROM players p
		JOIN guilds g ON g.id = p.guild_id
		WHERE p.id = ?
	`
	var (
		gid  int64
		name string
		motd string
	)
	if !d.queryRow(query, id, &gid, &name, &motd) {
		return chat.Guild{}, false
	}
	return chat.Guild{ID: chat.GuildID(gid), Name: name, MOTD: motd}, true
}

// Party returns the party the player belongs to.
func (d *Directory) Party(id chat.PlayerID) (chat.PartyID, bool) {
	var pid sql.NullInt64
	if !d.queryRow(`SELECT party_id FROM players WHERE id = ?`, id, &pid) || !pid.Valid {
		return 0, false
	}
	return chat.PartyID(pid.Int64), true
}

// Premium reports whether the player has a premium account.
func (d *Directory) Premium(id chat.PlayerID) bool {
	var premium bool
	return d.queryRow(`SELECT premium FROM players WHERE id = ?`, id, &premium) && premium
}

// GuildRank returns the level of the player's guild rank.
func (d *Directory) GuildRank(id chat.PlayerID) (int, bool) {
	var rank int
	if !d.queryRow(`SELECT guild_rank FROM players WHERE id = ? AND guild_id IS NOT NULL`, id, &rank) {
		return 0, false
	}
	return rank, true
}
