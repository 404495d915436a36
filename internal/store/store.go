package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// Guild rank levels. Ranks above RankMember speak as officers in the guild
// channel.
const (
	RankMember = 1
	RankVice   = 2
	RankLeader = 3
)

// Player represents a registered player.
type Player struct {
	ID           int64
	Name         string
	PasswordHash string
	Premium      bool
	GuildID      *int64
	GuildRank    int
	PartyID      *int64
	CreatedAt    time.Time
}

// Guild represents a guild and its message of the day.
type Guild struct {
	ID        int64
	Name      string
	MOTD      string
	LeaderID  int64
	CreatedAt time.Time
}

// Party represents an adventuring party.
type Party struct {
	ID        int64
	LeaderID  int64
	CreatedAt time.Time
}

// PlayerStore handles player persistence.
type PlayerStore interface {
	// CreatePlayer creates a new player with hashed password.
	CreatePlayer(ctx context.Context, name, passwordHash string) (*Player, error)

	// GetPlayerByID retrieves a player by ID.
	GetPlayerByID(ctx context.Context, id int64) (*Player, error)

	// GetPlayerByName retrieves a player by name.
	GetPlayerByName(ctx context.Context, name string) (*Player, error)

	// SetPremium grants or revokes premium status.
	SetPremium(ctx context.Context, id int64, premium bool) error

	// ListPlayers lists all players ordered by name.
	ListPlayers(ctx context.Context) ([]*Player, error)
}

// GuildStore handles guild persistence and membership.
type GuildStore interface {
	// CreateGuild creates a guild led by leaderID and enrolls the leader.
	CreateGuild(ctx context.Context, name string, leaderID int64) (*Guild, error)

	// GetGuild retrieves a guild by ID.
	GetGuild(ctx context.Context, id int64) (*Guild, error)

	// SetGuildMOTD replaces the guild's message of the day.
	SetGuildMOTD(ctx context.Context, id int64, motd string) error

	// JoinGuild enrolls a player with the given rank level.
	JoinGuild(ctx context.Context, playerID, guildID int64, rank int) error

	// LeaveGuild removes a player from whatever guild they belong to.
	LeaveGuild(ctx context.Context, playerID int64) error

	// DeleteGuild disbands a guild and clears its members' guild.
	DeleteGuild(ctx context.Context, id int64) error

	// ListGuildMembers lists the player IDs enrolled in a guild.
	ListGuildMembers(ctx context.Context, id int64) ([]int64, error)
}

// PartyStore handles party persistence and membership.
type PartyStore interface {
	// CreateParty creates a party led by leaderID and enrolls the leader.
	CreateParty(ctx context.Context, leaderID int64) (*Party, error)

	// GetParty retrieves a party by ID.
	GetParty(ctx context.Context, id int64) (*Party, error)

	// JoinParty enrolls a player in a party.
	JoinParty(ctx context.Context, playerID, partyID int64) error

	// LeaveParty removes a player from whatever party they belong to.
	LeaveParty(ctx context.Context, playerID int64) error

	// DeleteParty disbands a party and clears its members' party.
	DeleteParty(ctx context.Context, id int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	PlayerStore
	GuildStore
	PartyStore

	// Close closes the underlying database connection.
	Close() error
}
