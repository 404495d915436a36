package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirechat-channels/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to seed data on top of the schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== PlayerStore implementation ====

const playerColumns = `id, name, password_hash, premium, guild_id, guild_rank, party_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*store.Player, error) {
	var p store.Player
	var guildID, partyID sql.NullInt64
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.PasswordHash,
		&p.Premium,
		&guildID,
		&p.GuildRank,
		&partyID,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if guildID.Valid {
		p.GuildID = &guildID.Int64
	}
	if partyID.Valid {
		p.PartyID = &partyID.Int64
	}
	return &p, nil
}

// CreatePlayer creates a new player with hashed password.
func (s *SQLiteStore) CreatePlayer(ctx context.Context, name, passwordHash string) (*store.Player, error) {
	query := `
		INSERT INTO players (name, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetPlayerByID(ctx, id)
}

// GetPlayerByID retrieves a player by ID.
func (s *SQLiteStore) GetPlayerByID(ctx context.Context, id int64) (*store.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ?`
	p, err := scanPlayer(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("player %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query player: %w", err)
	}
	return p, nil
}

// GetPlayerByName retrieves a player by name.
func (s *SQLiteStore) GetPlayerByName(ctx context.Context, name string) (*store.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE name = ?`
	p, err := scanPlayer(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("player %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query player: %w", err)
	}
	return p, nil
}

// SetPremium grants or revokes premium status.
func (s *SQLiteStore) SetPremium(ctx context.Context, id int64, premium bool) error {
	return s.execOne(ctx, `UPDATE players SET premium = ? WHERE id = ?`, premium, id)
}

// ListPlayers lists all players ordered by name.
func (s *SQLiteStore) ListPlayers(ctx context.Context) ([]*store.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []*store.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// ==== GuildStore implementation ====

// CreateGuild creates a guild led by leaderID and enrolls the leader.
func (s *SQLiteStore) CreateGuild(ctx context.Context, name string, leaderID int64) (*store.Guild, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `INSERT INTO guilds (name, leader_id) VALUES (?, ?)`, name, leaderID)
	if err != nil {
		return nil, fmt.Errorf("insert guild: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET guild_id = ?, guild_rank = ? WHERE id = ?`,
		id, store.RankLeader, leaderID,
	); err != nil {
		return nil, fmt.Errorf("enroll leader: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetGuild(ctx, id)
}

// GetGuild retrieves a guild by ID.
func (s *SQLiteStore) GetGuild(ctx context.Context, id int64) (*store.Guild, error) {
	query := `
		SELECT id, name, motd, leader_id, created_at
		FROM guilds
		WHERE id = ?
	`
	var g store.Guild
	err := s.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.MOTD, &g.LeaderID, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("guild %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query guild: %w", err)
	}
	return &g, nil
}

// SetGuildMOTD replaces the guild's message of the day.
func (s *SQLiteStore) SetGuildMOTD(ctx context.Context, id int64, motd string) error {
	return s.execOne(ctx, `UPDATE guilds SET motd = ? WHERE id = ?`, motd, id)
}

// JoinGuild enrolls a player with the given rank level.
func (s *SQLiteStore) JoinGuild(ctx context.Context, playerID, guildID int64, rank int) error {
	if _, err := s.GetGuild(ctx, guildID); err != nil {
		return err
	}
	return s.execOne(ctx,
		`UPDATE players SET guild_id = ?, guild_rank = ? WHERE id = ?`,
		guildID, rank, playerID,
	)
}

// LeaveGuild removes a player from whatever guild they belong to.
func (s *SQLiteStore) LeaveGuild(ctx context.Context, playerID int64) error {
	return s.execOne(ctx, `UPDATE players SET guild_id = NULL, guild_rank = 0 WHERE id = ?`, playerID)
}

// DeleteGuild disbands a guild and clears its members' guild.
func (s *SQLiteStore) DeleteGuild(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, `UPDATE players SET guild_id = NULL, guild_rank = 0 WHERE guild_id = ?`, id); err != nil {
		return fmt.Errorf("clear guild members: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM guilds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete guild: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("guild %d: %w", id, store.ErrNotFound)
	}

	return tx.Commit()
}

// ListGuildMembers lists the player IDs enrolled in a guild.
func (s *SQLiteStore) ListGuildMembers(ctx context.Context, id int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM players WHERE guild_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query guild members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan guild member: %w", err)
		}
		ids = append(ids, pid)
	}
	return ids, rows.Err()
}

// ==== PartyStore implementation ====

// CreateParty creates a party led by leaderID and enrolls the leader.
func (s *SQLiteStore) CreateParty(ctx context.Context, leaderID int64) (*store.Party, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `INSERT INTO parties (leader_id) VALUES (?)`, leaderID)
	if err != nil {
		return nil, fmt.Errorf("insert party: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE players SET party_id = ? WHERE id = ?`, id, leaderID); err != nil {
		return nil, fmt.Errorf("enroll leader: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetParty(ctx, id)
}

// GetParty retrieves a party by ID.
func (s *SQLiteStore) GetParty(ctx context.Context, id int64) (*store.Party, error) {
	var p store.Party
	err := s.db.QueryRowContext(ctx,
		`SELECT id, leader_id, created_at FROM parties WHERE id = ?`, id,
	).Scan(&p.ID, &p.LeaderID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("party %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query party: %w", err)
	}
	return &p, nil
}

// JoinParty enrolls a player in a party.
func (s *SQLiteStore) JoinParty(ctx context.Context, playerID, partyID int64) error {
	if _, err := s.GetParty(ctx, partyID); err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE players SET party_id = ? WHERE id = ?`, partyID, playerID)
}

// LeaveParty removes a player from whatever party they belong to.
func (s *SQLiteStore) LeaveParty(ctx context.Context, playerID int64) error {
	return s.execOne(ctx, `UPDATE players SET party_id = NULL WHERE id = ?`, playerID)
}

// DeleteParty disbands a party and clears its members' party.
func (s *SQLiteStore) DeleteParty(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, `UPDATE players SET party_id = NULL WHERE party_id = ?`, id); err != nil {
		return fmt.Errorf("clear party members: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM parties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete party: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("party %d: %w", id, store.ErrNotFound)
	}

	return tx.Commit()
}

// execOne runs an update that must touch exactly one row.
func (s *SQLiteStore) execOne(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
