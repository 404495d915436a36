package core

import "github.com/vovakirdan/wirechat-channels/internal/chat"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandOpenChannel joins a channel, creating the guild or party channel on demand.
	CommandOpenChannel CommandKind = iota
	// CommandCloseChannel leaves a channel.
	CommandCloseChannel
	// CommandCreatePrivate allocates a private channel and joins its owner.
	CommandCreatePrivate
	// CommandInvite invites Target to the sender's private channel.
	CommandInvite
	// CommandExclude revokes Target's invitation.
	CommandExclude
	// CommandTalk speaks Text in a channel.
	CommandTalk
	// CommandListChannels asks for the channels the sender may open.
	CommandListChannels
)

func (k CommandKind) String() string {
	switch k {
	case CommandOpenChannel:
		return "open_channel"
	case CommandCloseChannel:
		return "close_channel"
	case CommandCreatePrivate:
		return "create_private"
	case CommandInvite:
		return "invite"
	case CommandExclude:
		return "exclude"
	case CommandTalk:
		return "talk"
	case CommandListChannels:
		return "list_channels"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	Channel chat.ChannelID
	Target  string
	Text    string
	Class   chat.SpeakClass
}
