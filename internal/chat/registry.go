package chat

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// DefaultMOTDDelay is how long after a join the message-of-the-day is sent.
const DefaultMOTDDelay = 150 * time.Millisecond

// Options configures a Registry. Only Directory is required.
type Options struct {
	Directory Directory
	Hooks     HookEvaluator
	Loader    HookLoader
	Scheduler Scheduler
	Logger    zerolog.Logger
	MOTDDelay time.Duration
}

// Registry owns every live channel, one collection per category.
type Registry struct {
	env    *env
	loader HookLoader

	static  map[ChannelID]*StaticChannel
	guilds  map[GuildID]*GuildChannel
	parties map[PartyID]*PartyChannel
	private map[ChannelID]*PrivateChannel
	owners  map[PlayerID]*PrivateChannel

	placeholder *PrivateChannel
}

// NewRegistry builds an empty registry. Call Load to install the static
// channels.
func NewRegistry(opts Options) *Registry {
	if opts.MOTDDelay <= 0 {
		opts.MOTDDelay = DefaultMOTDDelay
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = allowAll{}
	}
	e := &env{
		hooks:     hooks,
		sched:     opts.Scheduler,
		dir:       opts.Directory,
		log:       opts.Logger,
		motdDelay: opts.MOTDDelay,
	}
	return &Registry{
		env:     e,
		loader:  opts.Loader,
		static:  make(map[ChannelID]*StaticChannel),
		guilds:  make(map[GuildID]*GuildChannel),
		parties: make(map[PartyID]*PartyChannel),
		private: make(map[ChannelID]*PrivateChannel),
		owners:  make(map[PlayerID]*PrivateChannel),
		placeholder: &PrivateChannel{
			channel: newChannel(e, ChannelPrivate, "Private Chat Channel"),
			invites: make(map[PlayerID]struct{}),
		},
	}
}

// Load installs static channel definitions. Channels already present are
// reconfigured in place: name, public flag and hooks are replaced and every
// member goes through the join path again. Nothing is applied when a
// definition is invalid.
func (r *Registry) Load(defs []StaticDefinition) error {
	seen := make(map[ChannelID]struct{}, len(defs))
	for _, def := range defs {
		if def.ID.IsReserved() {
			return fmt.Errorf("%w: id %d is reserved", ErrInvalidDefinition, def.ID)
		}
		if def.ID >= PrivateIDMin && def.ID < PrivateIDMax {
			return fmt.Errorf("%w: id %d is in the private range", ErrInvalidDefinition, def.ID)
		}
		if def.Name == "" {
			return fmt.Errorf("%w: id %d has no name", ErrInvalidDefinition, def.ID)
		}
		if _, dup := seen[def.ID]; dup {
			return fmt.Errorf("%w: id %d defined twice", ErrInvalidDefinition, def.ID)
		}
		seen[def.ID] = struct{}{}
	}

	for _, def := range defs {
		c, exists := r.static[def.ID]
		if !exists {
			c = &StaticChannel{channel: newChannel(r.env, def.ID, def.Name)}
			r.static[def.ID] = c
		}
		hooks := r.bindHooks(def, c.hooks)
		if !exists {
			c.public = def.Public
			c.hooks = hooks
			c.motd = def.MOTD
			r.env.log.Debug().Uint16("channel_id", uint16(def.ID)).Str("name", def.Name).Msg("static channel created")
			continue
		}
		r.reconfigure(c, def, hooks)
	}
	return nil
}

func (r *Registry) bindHooks(def StaticDefinition, previous HookSet) HookSet {
	if def.Script == "" {
		return HookSet{}
	}
	if r.loader == nil {
		r.env.log.Warn().Str("script", def.Script).Msg("no hook loader configured, channel runs without hooks")
		return HookSet{}
	}
	hooks, err := r.loader.LoadBundle(def.Script)
	if err != nil {
		r.env.log.Warn().Err(err).Str("script", def.Script).Uint16("channel_id", uint16(def.ID)).Msg("can not load channel script")
		return previous
	}
	return hooks
}

func (r *Registry) reconfigure(c *StaticChannel, def StaticDefinition, hooks HookSet) {
	c.name = def.Name
	c.public = def.Public
	c.hooks = hooks
	c.motd = def.MOTD

	previous := c.members()
	clear(c.users)
	for _, p := range previous {
		if err := c.AddUser(p); err != nil {
			r.env.log.Debug().Err(err).Uint32("player_id", uint32(p.ID)).Uint16("channel_id", uint16(c.id)).Msg("member dropped on reload")
			p.Sink.DeliverChannelClosed(c.id)
		}
	}
	r.env.log.Debug().Uint16("channel_id", uint16(def.ID)).Int("members", len(c.users)).Msg("static channel reconfigured")
}

// Resolve finds the channel p addresses with id. Static channels are only
// returned when their canJoin hook allows, private channels only when p is
// invited.
func (r *Registry) Resolve(p *Player, id ChannelID) (Channel, bool) {
	switch id {
	case ChannelGuild:
		g, ok := r.env.dir.Guild(p.ID)
		if !ok {
			return nil, false
		}
		if c, ok := r.guilds[g.ID]; ok {
			return c, true
		}
	case ChannelParty:
		party, ok := r.env.dir.Party(p.ID)
		if !ok {
			return nil, false
		}
		if c, ok := r.parties[party]; ok {
			return c, true
		}
	default:
		if c, ok := r.static[id]; ok {
			if !c.CanJoin(p) {
				return nil, false
			}
			return c, true
		}
		if c, ok := r.private[id]; ok && c.IsInvited(p.ID) {
			return c, true
		}
	}
	return nil, false
}

// Create makes the guild, party or private channel p asks for. Static ids
// cannot be created.
func (r *Registry) Create(p *Player, id ChannelID) (Channel, error) {
	if _, ok := r.Resolve(p, id); ok {
		return nil, ErrChannelExists
	}

	switch id {
	case ChannelGuild:
		g, ok := r.env.dir.Guild(p.ID)
		if !ok {
			return nil, ErrNoGuild
		}
		c := &GuildChannel{channel: newChannel(r.env, ChannelGuild, g.Name), guild: g.ID}
		r.guilds[g.ID] = c
		r.env.log.Debug().Uint32("guild_id", uint32(g.ID)).Msg("guild channel created")
		return c, nil
	case ChannelParty:
		party, ok := r.env.dir.Party(p.ID)
		if !ok {
			return nil, ErrNoParty
		}
		c := &PartyChannel{channel: newChannel(r.env, ChannelParty, "Party"), party: party}
		r.parties[party] = c
		r.env.log.Debug().Uint32("party_id", uint32(party)).Msg("party channel created")
		return c, nil
	case ChannelPrivate:
		return r.createPrivate(p)
	default:
		return nil, ErrChannelNotFound
	}
}

func (r *Registry) createPrivate(p *Player) (*PrivateChannel, error) {
	if !r.env.dir.Premium(p.ID) {
		return nil, ErrNotPremium
	}
	if _, owns := r.owners[p.ID]; owns {
		return nil, ErrAlreadyOwner
	}
	for id := PrivateIDMin; id < PrivateIDMax; id++ {
		if _, used := r.private[id]; used {
			continue
		}
		c := newPrivateChannel(r.env, id, p)
		r.private[id] = c
		r.owners[p.ID] = c
		r.env.log.Debug().Uint16("channel_id", uint16(id)).Uint32("owner", uint32(p.ID)).Msg("private channel created")
		return c, nil
	}
	r.env.log.Warn().Uint32("player_id", uint32(p.ID)).Msg("private channel ids exhausted")
	return nil, ErrCapacityExhausted
}

// Delete removes a channel. Guild and party ids address the player's own
// guild or party channel; any other id is a private channel that only its
// owner may delete.
func (r *Registry) Delete(p *Player, id ChannelID) error {
	switch id {
	case ChannelGuild:
		g, ok := r.env.dir.Guild(p.ID)
		if !ok {
			return ErrNoGuild
		}
		if !r.DeleteGuildChannel(g.ID) {
			return ErrChannelNotFound
		}
		return nil
	case ChannelParty:
		party, ok := r.env.dir.Party(p.ID)
		if !ok {
			return ErrNoParty
		}
		if !r.DeletePartyChannel(party) {
			return ErrChannelNotFound
		}
		return nil
	default:
		c, ok := r.private[id]
		if !ok {
			return ErrChannelNotFound
		}
		if c.owner != p.ID {
			return ErrPermissionDenied
		}
		r.deletePrivate(c)
		return nil
	}
}

// DeleteGuildChannel closes and erases the channel of a guild, e.g. when the
// guild is disbanded.
func (r *Registry) DeleteGuildChannel(id GuildID) bool {
	c, ok := r.guilds[id]
	if !ok {
		return false
	}
	c.closeChannel()
	delete(r.guilds, id)
	c.release()
	r.env.log.Debug().Uint32("guild_id", uint32(id)).Msg("guild channel deleted")
	return true
}

// DeletePartyChannel closes and erases the channel of a party.
func (r *Registry) DeletePartyChannel(id PartyID) bool {
	c, ok := r.parties[id]
	if !ok {
		return false
	}
	c.closeChannel()
	delete(r.parties, id)
	c.release()
	r.env.log.Debug().Uint32("party_id", uint32(id)).Msg("party channel deleted")
	return true
}

// deletePrivate closes c and erases exactly that channel.
func (r *Registry) deletePrivate(c *PrivateChannel) {
	if r.private[c.id] != c {
		return
	}
	c.closeChannel()
	delete(r.private, c.id)
	if r.owners[c.owner] == c {
		delete(r.owners, c.owner)
	}
	c.release()
	r.env.log.Debug().Uint16("channel_id", uint16(c.id)).Uint32("owner", uint32(c.owner)).Msg("private channel deleted")
}

// AddUser resolves id for p and joins it.
func (r *Registry) AddUser(p *Player, id ChannelID) (Channel, error) {
	c, ok := r.Resolve(p, id)
	if !ok {
		return nil, ErrChannelNotFound
	}
	if err := c.AddUser(p); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveUser resolves id for p and leaves it. An owner leaving its private
// channel deletes that channel.
func (r *Registry) RemoveUser(p *Player, id ChannelID) error {
	c, ok := r.Resolve(p, id)
	if !ok {
		return ErrChannelNotFound
	}
	if err := c.RemoveUser(p); err != nil {
		return err
	}
	if pc, ok := c.(*PrivateChannel); ok && pc.owner == p.ID {
		r.deletePrivate(pc)
	}
	return nil
}

// RemoveFromAll takes p out of every channel and revokes its invitations.
// The private channel p owns, and only that one, is closed and deleted.
func (r *Registry) RemoveFromAll(p *Player) {
	for _, id := range sortedKeys(r.static) {
		if c, ok := r.static[id]; ok {
			_ = c.RemoveUser(p)
		}
	}
	for _, id := range sortedKeys(r.parties) {
		if c, ok := r.parties[id]; ok {
			_ = c.RemoveUser(p)
		}
	}
	for _, id := range sortedKeys(r.guilds) {
		if c, ok := r.guilds[id]; ok {
			_ = c.RemoveUser(p)
		}
	}
	for _, id := range sortedKeys(r.private) {
		c, ok := r.private[id]
		if !ok {
			continue
		}
		c.removeInvite(p.ID)
		_ = c.RemoveUser(p)
		if c.owner == p.ID {
			r.deletePrivate(c)
		}
	}
}

// List returns the channels p can open, in display order: guild, party,
// static channels that let p join, private channels p is invited to. A
// premium player without a private channel gets the create placeholder
// first.
func (r *Registry) List(p *Player) []Channel {
	var list []Channel

	for _, id := range []ChannelID{ChannelGuild, ChannelParty} {
		if c, ok := r.Resolve(p, id); ok {
			list = append(list, c)
			continue
		}
		if c, err := r.Create(p, id); err == nil {
			list = append(list, c)
		}
	}

	for _, id := range sortedKeys(r.static) {
		if c, ok := r.Resolve(p, id); ok {
			list = append(list, c)
		}
	}

	hasPrivate := false
	for _, id := range sortedKeys(r.private) {
		c := r.private[id]
		if c == nil {
			continue
		}
		if c.IsInvited(p.ID) {
			list = append(list, c)
		}
		if c.owner == p.ID {
			hasPrivate = true
		}
	}

	if !hasPrivate && r.env.dir.Premium(p.ID) {
		list = append([]Channel{r.placeholder}, list...)
	}
	return list
}

// Talk routes an utterance from p to channel id. The render class is
// coerced for the channel category, then the onSpeak hook may drop the
// message or replace the class.
func (r *Registry) Talk(p *Player, class SpeakClass, text string, id ChannelID) error {
	c, ok := r.Resolve(p, id)
	if !ok {
		return ErrChannelNotFound
	}
	if !c.HasMember(p.ID) {
		return ErrNotMember
	}

	rank, _ := r.env.dir.GuildRank(p.ID)
	class = SpeakClassFor(c.Kind(), class, rank)

	if s, ok := c.(speaker); ok {
		res := s.speak(p, class, text)
		switch res.Verdict {
		case Deny:
			return ErrHookDenied
		case AllowWithValue:
			class = SpeakClass(res.Value)
		}
	}
	return c.Talk(p, class, text)
}

// SpeakClassFor coerces a requested render class for a channel category.
// Guild officers (rank level above 1) speak in the officer class.
func SpeakClassFor(kind Kind, requested SpeakClass, rankLevel int) SpeakClass {
	switch kind {
	case KindGuild:
		if rankLevel > 1 {
			return SpeakOfficer
		}
		return SpeakGuild
	case KindParty, KindPrivate:
		return SpeakParty
	default:
		return requested
	}
}

type speaker interface {
	speak(p *Player, class SpeakClass, text string) HookResult
}

func (c *channel) speak(p *Player, class SpeakClass, text string) HookResult {
	return c.evaluate(c.hooks.OnSpeak, p, int(class), text)
}

// Invite grants invitee access to the private channel owner owns.
func (r *Registry) Invite(owner, invitee *Player) error {
	c, ok := r.owners[owner.ID]
	if !ok {
		return ErrChannelNotFound
	}
	c.InvitePlayer(owner, invitee)
	return nil
}

// Exclude revokes excludee's access to the private channel owner owns.
func (r *Registry) Exclude(owner, excludee *Player) error {
	c, ok := r.owners[owner.ID]
	if !ok {
		return ErrChannelNotFound
	}
	c.ExcludePlayer(owner, excludee)
	return nil
}

// PrivateChannelOf returns the private channel p owns.
func (r *Registry) PrivateChannelOf(p *Player) (*PrivateChannel, bool) {
	c, ok := r.owners[p.ID]
	return c, ok
}

// StaticChannel looks up a static channel without running canJoin.
func (r *Registry) StaticChannel(id ChannelID) (*StaticChannel, bool) {
	c, ok := r.static[id]
	return c, ok
}

// GuildChannelByID looks up the channel of a guild.
func (r *Registry) GuildChannelByID(id GuildID) (*GuildChannel, bool) {
	c, ok := r.guilds[id]
	return c, ok
}

// PartyChannelByID looks up the channel of a party.
func (r *Registry) PartyChannelByID(id PartyID) (*PartyChannel, bool) {
	c, ok := r.parties[id]
	return c, ok
}

// PrivateChannel looks up a private channel by id without checking invites.
func (r *Registry) PrivateChannel(id ChannelID) (*PrivateChannel, bool) {
	c, ok := r.private[id]
	return c, ok
}

// PrivateChannels returns the live private channels ordered by id.
func (r *Registry) PrivateChannels() []*PrivateChannel {
	out := make([]*PrivateChannel, 0, len(r.private))
	for _, id := range sortedKeys(r.private) {
		out = append(out, r.private[id])
	}
	return out
}

// Close tears the registry down: members of every channel are told their
// channels closed and all collections are emptied.
func (r *Registry) Close() {
	for _, id := range sortedKeys(r.guilds) {
		r.DeleteGuildChannel(id)
	}
	for _, id := range sortedKeys(r.parties) {
		r.DeletePartyChannel(id)
	}
	for _, c := range r.PrivateChannels() {
		r.deletePrivate(c)
	}
	for _, id := range sortedKeys(r.static) {
		c := r.static[id]
		c.closeChannel()
		c.release()
	}
	clear(r.static)
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
