package chat

import (
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Kind is the category a channel belongs to.
type Kind int

const (
	KindStatic Kind = iota
	KindGuild
	KindParty
	KindPrivate
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindGuild:
		return "guild"
	case KindParty:
		return "party"
	case KindPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// Channel is the behaviour shared by every channel category.
type Channel interface {
	ID() ChannelID
	Name() string
	Kind() Kind
	Public() bool
	Members() []PlayerID
	HasMember(id PlayerID) bool
	AddUser(p *Player) error
	RemoveUser(p *Player) error
	Talk(from *Player, class SpeakClass, text string) error
	SendToAll(text string, class SpeakClass)
}

// env carries the collaborators every channel of a registry shares.
type env struct {
	hooks     HookEvaluator
	sched     Scheduler
	dir       Directory
	log       zerolog.Logger
	motdDelay time.Duration
}

// channel is the membership ledger embedded by every variant.
type channel struct {
	id     ChannelID
	name   string
	public bool
	hooks  HookSet
	users  map[PlayerID]*Player
	env    *env
}

func newChannel(e *env, id ChannelID, name string) channel {
	return channel{
		id:    id,
		name:  name,
		users: make(map[PlayerID]*Player),
		env:   e,
	}
}

func (c *channel) ID() ChannelID  { return c.id }
func (c *channel) Name() string   { return c.name }
func (c *channel) Public() bool   { return c.public }
func (c *channel) Hooks() HookSet { return c.hooks }

// Members returns member ids in ascending order.
func (c *channel) Members() []PlayerID {
	ids := lo.Keys(c.users)
	slices.Sort(ids)
	return ids
}

func (c *channel) HasMember(id PlayerID) bool {
	_, ok := c.users[id]
	return ok
}

// members returns a snapshot of the ledger ordered by player id. Callers
// iterate the snapshot so sinks and hooks may re-enter freely.
func (c *channel) members() []*Player {
	out := make([]*Player, 0, len(c.users))
	for _, id := range c.Members() {
		out = append(out, c.users[id])
	}
	return out
}

func (c *channel) evaluate(h Hook, p *Player, args ...any) HookResult {
	if !h.Bound() || c.env.hooks == nil {
		return HookResult{Verdict: Allow}
	}
	return c.env.hooks.Evaluate(h.Ref(), p, args...)
}

// CanJoin runs the canJoin hook.
func (c *channel) CanJoin(p *Player) bool {
	return c.evaluate(c.hooks.CanJoin, p).Allowed()
}

func (c *channel) join(p *Player) error {
	if c.HasMember(p.ID) {
		return ErrAlreadyMember
	}
	if !c.evaluate(c.hooks.OnJoin, p).Allowed() {
		return ErrHookDenied
	}
	// The hook may have re-entered and joined the player already.
	if c.HasMember(p.ID) {
		return ErrAlreadyMember
	}

	if !c.public {
		for _, u := range c.members() {
			u.Sink.DeliverChannelEvent(c.id, p.Name, EventJoin)
		}
	}
	c.users[p.ID] = p
	return nil
}

// RemoveUser drops p from the ledger, tells the remaining members unless
// the channel is public, then runs onLeave. The onLeave result is ignored.
func (c *channel) RemoveUser(p *Player) error {
	if !c.HasMember(p.ID) {
		return ErrNotMember
	}
	delete(c.users, p.ID)

	if !c.public {
		for _, u := range c.members() {
			u.Sink.DeliverChannelEvent(c.id, p.Name, EventLeave)
		}
	}
	c.evaluate(c.hooks.OnLeave, p)
	return nil
}

// Talk delivers text from a member to every member, sender included.
func (c *channel) Talk(from *Player, class SpeakClass, text string) error {
	if !c.HasMember(from.ID) {
		return ErrNotMember
	}
	for _, u := range c.members() {
		u.Sink.DeliverChannelMessage(c.id, from.Name, text, class, u.ID)
	}
	return nil
}

// SendToAll delivers an anonymous message to every member.
func (c *channel) SendToAll(text string, class SpeakClass) {
	for _, u := range c.members() {
		u.Sink.DeliverChannelMessage(c.id, "", text, class, u.ID)
	}
}

// closeChannel tells every member the channel is gone.
func (c *channel) closeChannel() {
	for _, u := range c.members() {
		u.Sink.DeliverChannelClosed(c.id)
	}
}

// release empties the ledger once the channel has left the registry, so
// pending deferred notices find nobody to deliver to.
func (c *channel) release() {
	clear(c.users)
}

// scheduleMOTD queues a one-shot message-of-the-day for p. It is dropped if
// p is no longer a member when it fires.
func (c *channel) scheduleMOTD(p *Player, motd string) {
	if motd == "" || c.env.sched == nil {
		return
	}
	id := c.id
	c.env.sched.ScheduleOnce(c.env.motdDelay, func() {
		if !c.HasMember(p.ID) {
			return
		}
		p.Sink.DeliverChannelMessage(id, "Message of the Day", motd, SpeakChannelRed, p.ID)
	})
}
