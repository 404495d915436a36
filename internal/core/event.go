package core

import "github.com/vovakirdan/wirechat-channels/internal/chat"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventChannelMessage carries an utterance in a channel.
	EventChannelMessage EventKind = iota
	// EventChannelEvent reports a membership change (join, leave, invite, exclude).
	EventChannelEvent
	// EventChannelClosed tells the client a channel it was in is gone.
	EventChannelClosed
	// EventSystemMessage is a status line addressed to one player.
	EventSystemMessage
	// EventChannelOpened confirms an open_channel command.
	EventChannelOpened
	// EventPrivateCreated confirms a create_private command.
	EventPrivateCreated
	// EventChannelList answers list_channels.
	EventChannelList
	// EventError notifies clients about a domain error.
	EventError
)

// ChannelInfo describes a channel in listings and open confirmations.
type ChannelInfo struct {
	ID      chat.ChannelID
	Name    string
	Kind    string
	Members []string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind        EventKind
	Channel     chat.ChannelID
	User        string
	Membership  chat.EventKind
	Text        string
	Class       chat.SpeakClass
	MessageKind chat.MessageKind
	Info        *ChannelInfo
	Channels    []ChannelInfo
	Error       *CoreError
}
