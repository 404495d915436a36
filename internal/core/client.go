package core

import (
	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

const (
	commandBuffer = 16
	eventBuffer   = 64
)

// Client is a connected player as seen by the core layer. It receives
// registry notifications through the chat.Sink methods.
type Client struct {
	ID       string
	PlayerID chat.PlayerID
	Name     string
	Commands chan *Command
	Events   chan *Event

	player *chat.Player
	done   chan struct{}
}

var _ chat.Sink = (*Client)(nil)

// NewClient constructs a client with initialized channels. id identifies the
// session, playerID and name the player behind it.
func NewClient(id string, playerID chat.PlayerID, name string) *Client {
	if name == "" {
		name = id
	}
	c := &Client{
		ID:       id,
		PlayerID: playerID,
		Name:     name,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, eventBuffer),
		done:     make(chan struct{}),
	}
	c.player = &chat.Player{ID: playerID, Name: name, Sink: c}
	return c
}

// Player returns the registry view of the client.
func (c *Client) Player() *chat.Player { return c.player }

// Done is closed once the hub has unregistered the client.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) push(ev *Event) {
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
	}
}

// DeliverSystemMessage implements chat.Sink.
func (c *Client) DeliverSystemMessage(kind chat.MessageKind, text string) {
	c.push(&Event{Kind: EventSystemMessage, MessageKind: kind, Text: text})
}

// DeliverChannelEvent implements chat.Sink.
func (c *Client) DeliverChannelEvent(id chat.ChannelID, name string, kind chat.EventKind) {
	c.push(&Event{Kind: EventChannelEvent, Channel: id, User: name, Membership: kind})
}

// DeliverChannelMessage implements chat.Sink.
func (c *Client) DeliverChannelMessage(id chat.ChannelID, speaker, text string, class chat.SpeakClass, _ chat.PlayerID) {
	c.push(&Event{Kind: EventChannelMessage, Channel: id, User: speaker, Text: text, Class: class})
}

// DeliverChannelClosed implements chat.Sink.
func (c *Client) DeliverChannelClosed(id chat.ChannelID) {
	c.push(&Event{Kind: EventChannelClosed, Channel: id})
}

func (c *Client) sendError(err error) {
	c.push(&Event{Kind: EventError, Error: errorFrom(err)})
}
