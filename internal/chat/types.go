// Package chat implements the channel registry: static, guild, party and
// private channels with membership, invites and script hooks.
//
// Nothing in this package locks. Every call is expected to run on the hub
// loop (see internal/core), including hook callbacks and deferred tasks.
package chat

import "time"

// ChannelID identifies a channel. Its meaning depends on the category: the
// reserved ids below select guild and party resolution, everything else is a
// static or private channel id.
type ChannelID uint16

// PlayerID is the persistent identity of a player.
type PlayerID uint32

// GuildID is the persistent identity of a guild.
type GuildID uint32

// PartyID is the identity of a live party.
type PartyID uint32

const (
	ChannelGuild   ChannelID = 0x00
	ChannelParty   ChannelID = 0x01
	ChannelPrivate ChannelID = 0xFFFF

	// PrivateIDMin and PrivateIDMax bound the half-open range private channel
	// ids are allocated from.
	PrivateIDMin ChannelID = 100
	PrivateIDMax ChannelID = 10000
)

// IsReserved reports whether id selects a category rather than a channel.
func (id ChannelID) IsReserved() bool {
	return id == ChannelGuild || id == ChannelParty || id == ChannelPrivate
}

// SpeakClass is the render class a client uses to draw a channel message.
type SpeakClass int

const (
	SpeakChannelYellow SpeakClass = 7
	SpeakChannelOrange SpeakClass = 8
	SpeakChannelRed    SpeakClass = 14

	SpeakGuild   = SpeakChannelYellow
	SpeakParty   = SpeakChannelYellow
	SpeakOfficer = SpeakChannelOrange
)

// MessageKind classifies a system message sent to a single player.
type MessageKind int

const (
	MessageStatus MessageKind = iota
	MessagePartyManagement
)

// EventKind is a membership event broadcast to channel members.
type EventKind int

const (
	EventJoin EventKind = iota
	EventLeave
	EventInvite
	EventExclude
)

func (k EventKind) String() string {
	switch k {
	case EventJoin:
		return "join"
	case EventLeave:
		return "leave"
	case EventInvite:
		return "invite"
	case EventExclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// Sink delivers notifications to one participant.
type Sink interface {
	DeliverSystemMessage(kind MessageKind, text string)
	DeliverChannelEvent(id ChannelID, name string, kind EventKind)
	DeliverChannelMessage(id ChannelID, speaker, text string, class SpeakClass, recipient PlayerID)
	DeliverChannelClosed(id ChannelID)
}

// Player is a participant as seen by the registry.
type Player struct {
	ID   PlayerID
	Name string
	Sink Sink
}

// Guild is the directory view of a guild.
type Guild struct {
	ID   GuildID
	Name string
	MOTD string
}

// Directory answers the lookups the registry needs about a player.
type Directory interface {
	Guild(id PlayerID) (Guild, bool)
	Party(id PlayerID) (PartyID, bool)
	Premium(id PlayerID) bool
	// GuildRank returns the level of the player's guild rank.
	GuildRank(id PlayerID) (int, bool)
}

// Scheduler runs fn once, after delay, on the same loop that drives the
// registry.
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func())
}

// StaticDefinition is an already-parsed static channel definition.
type StaticDefinition struct {
	ID     ChannelID
	Name   string
	Public bool
	// Script names the hook bundle to bind. Empty means no hooks.
	Script string
	MOTD   string
}
