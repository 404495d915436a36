package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello         = "hello"
	InboundTypeOpen          = "open"
	InboundTypeClose         = "close"
	InboundTypeCreatePrivate = "create_private"
	InboundTypeInvite        = "invite"
	InboundTypeExclude       = "exclude"
	InboundTypeTalk          = "talk"
	InboundTypeList          = "list"

	OutboundTypeHello = "hello"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessage        = "message"
	EventMembership     = "membership"
	EventChannelClosed  = "channel_closed"
	EventSystem         = "system"
	EventChannelOpened  = "channel_opened"
	EventPrivateCreated = "private_created"
	EventChannelList    = "channel_list"
)

// HelloRequest authenticates a fresh connection. It must be the first frame.
type HelloRequest struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// ChannelData addresses a channel by id.
type ChannelData struct {
	Channel uint16 `json:"channel"`
}

// TargetData names another player.
type TargetData struct {
	Name string `json:"name"`
}

// TalkData is an utterance in a channel. Class is the requested render class.
type TalkData struct {
	Channel uint16 `json:"channel"`
	Class   int    `json:"class,omitempty"`
	Text    string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// HelloData greets a freshly connected session.
type HelloData struct {
	Session  string `json:"session"`
	Player   string `json:"player"`
	Protocol int    `json:"protocol"`
}

// EventChannelMessage is an utterance delivered to a channel member.
type EventChannelMessage struct {
	Channel uint16 `json:"channel"`
	User    string `json:"user,omitempty"`
	Text    string `json:"text"`
	Class   int    `json:"class"`
	TS      int64  `json:"ts"`
}

// EventMembershipData reports a join, leave, invite or exclude.
type EventMembershipData struct {
	Channel uint16 `json:"channel"`
	User    string `json:"user"`
	Action  string `json:"action"`
}

// EventChannelClosedData tells the client to close a channel tab.
type EventChannelClosedData struct {
	Channel uint16 `json:"channel"`
}

// EventSystemData is a status line for one player.
type EventSystemData struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Channel describes a channel in listings and open confirmations.
type Channel struct {
	ID      uint16   `json:"id"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Members []string `json:"members,omitempty"`
}

// EventChannelListData answers a list request.
type EventChannelListData struct {
	Channels []Channel `json:"channels"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
