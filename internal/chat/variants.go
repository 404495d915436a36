package chat

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// StaticChannel is defined by configuration and lives for the whole process.
type StaticChannel struct {
	channel
	motd string
}

func (c *StaticChannel) Kind() Kind { return KindStatic }

// AddUser joins p and queues the channel's message-of-the-day, if any.
func (c *StaticChannel) AddUser(p *Player) error {
	if err := c.join(p); err != nil {
		return err
	}
	c.scheduleMOTD(p, c.motd)
	return nil
}

// MOTD returns the configured message-of-the-day.
func (c *StaticChannel) MOTD() string { return c.motd }

// GuildChannel is the shared channel of one guild.
type GuildChannel struct {
	channel
	guild GuildID
}

func (c *GuildChannel) Kind() Kind { return KindGuild }

// GuildID returns the guild the channel belongs to.
func (c *GuildChannel) GuildID() GuildID { return c.guild }

// AddUser joins p and queues the guild message-of-the-day when it is set.
func (c *GuildChannel) AddUser(p *Player) error {
	if err := c.join(p); err != nil {
		return err
	}
	if c.env.dir != nil {
		if g, ok := c.env.dir.Guild(p.ID); ok {
			c.scheduleMOTD(p, g.MOTD)
		}
	}
	return nil
}

// PartyChannel is the shared channel of one party.
type PartyChannel struct {
	channel
	party PartyID
}

func (c *PartyChannel) Kind() Kind { return KindParty }

// PartyID returns the party the channel belongs to.
func (c *PartyChannel) PartyID() PartyID { return c.party }

func (c *PartyChannel) AddUser(p *Player) error { return c.join(p) }

// PrivateChannel is owned by one player and gated by invitation.
type PrivateChannel struct {
	channel
	owner   PlayerID
	invites map[PlayerID]struct{}
}

func newPrivateChannel(e *env, id ChannelID, owner *Player) *PrivateChannel {
	return &PrivateChannel{
		channel: newChannel(e, id, owner.Name+"'s Channel"),
		owner:   owner.ID,
		invites: make(map[PlayerID]struct{}),
	}
}

func (c *PrivateChannel) Kind() Kind { return KindPrivate }

// Owner returns the player that created the channel.
func (c *PrivateChannel) Owner() PlayerID { return c.owner }

func (c *PrivateChannel) AddUser(p *Player) error { return c.join(p) }

// IsInvited reports whether id may see the channel. The owner always may.
func (c *PrivateChannel) IsInvited(id PlayerID) bool {
	if id == c.owner {
		return true
	}
	_, ok := c.invites[id]
	return ok
}

// Invites returns the explicit invitations.
func (c *PrivateChannel) Invites() []PlayerID {
	ids := lo.Keys(c.invites)
	slices.Sort(ids)
	return ids
}

func (c *PrivateChannel) removeInvite(id PlayerID) bool {
	if _, ok := c.invites[id]; !ok {
		return false
	}
	delete(c.invites, id)
	return true
}

// InvitePlayer grants invitee access. It returns false, and notifies nobody,
// when invitee already had access.
func (c *PrivateChannel) InvitePlayer(inviter, invitee *Player) bool {
	if c.IsInvited(invitee.ID) {
		return false
	}
	c.invites[invitee.ID] = struct{}{}

	invitee.Sink.DeliverSystemMessage(MessagePartyManagement,
		fmt.Sprintf("%s invites you to %s.", inviter.Name, c.name))
	inviter.Sink.DeliverSystemMessage(MessagePartyManagement,
		fmt.Sprintf("%s has been invited.", invitee.Name))

	for _, u := range c.members() {
		u.Sink.DeliverChannelEvent(c.id, invitee.Name, EventInvite)
	}
	return true
}

// ExcludePlayer revokes excludee's invitation and removes it from the
// channel. It returns false, and notifies nobody, when excludee was never
// invited.
func (c *PrivateChannel) ExcludePlayer(inviter, excludee *Player) bool {
	if !c.removeInvite(excludee.ID) {
		return false
	}
	_ = c.RemoveUser(excludee)

	inviter.Sink.DeliverSystemMessage(MessagePartyManagement,
		fmt.Sprintf("%s has been excluded.", excludee.Name))
	excludee.Sink.DeliverChannelClosed(c.id)

	for _, u := range c.members() {
		u.Sink.DeliverChannelEvent(c.id, excludee.Name, EventExclude)
	}
	return true
}

// CloseChannel notifies every member that the channel is closing.
func (c *PrivateChannel) CloseChannel() { c.closeChannel() }
