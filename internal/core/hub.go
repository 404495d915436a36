package core

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

// Options configures a Hub. Every field is optional.
type Options struct {
	Directory chat.Directory
	Hooks     chat.HookEvaluator
	Loader    chat.HookLoader
	Clock     clock.Clock
	Logger    zerolog.Logger
	MOTDDelay time.Duration
}

type registration struct {
	client *Client
	reply  chan error
}

type envelope struct {
	client *Client
	cmd    *Command
}

// Hub owns the channel registry and is the only goroutine that touches it.
// Client commands, deferred notices and Do closures are all serialized
// through Run.
type Hub struct {
	registry *chat.Registry
	dir      chat.Directory
	clock    clock.Clock
	log      zerolog.Logger

	register   chan registration
	unregister chan *Client
	inbox      chan envelope
	tasks      chan func()
	done       chan struct{}

	clients map[*Client]struct{}
	online  map[chat.PlayerID]*Client
	byName  map[string]*Client
}

// NewHub creates a new chat hub instance.
func NewHub(opts Options) *Hub {
	if opts.Directory == nil {
		opts.Directory = nopDirectory{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	h := &Hub{
		dir:        opts.Directory,
		clock:      opts.Clock,
		log:        opts.Logger,
		register:   make(chan registration),
		unregister: make(chan *Client),
		inbox:      make(chan envelope, 64),
		tasks:      make(chan func(), 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		online:     make(map[chat.PlayerID]*Client),
		byName:     make(map[string]*Client),
	}
	h.registry = chat.NewRegistry(chat.Options{
		Directory: opts.Directory,
		Hooks:     opts.Hooks,
		Loader:    opts.Loader,
		Scheduler: h,
		Logger:    opts.Logger,
		MOTDDelay: opts.MOTDDelay,
	})
	return h
}

// Load installs the static channels. It must be called before Run; use
// Reload afterwards.
func (h *Hub) Load(defs []chat.StaticDefinition) error {
	return h.registry.Load(defs)
}

// Run processes hub events until ctx is canceled. On exit every channel is
// closed and every client released.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case reg := <-h.register:
			reg.reply <- h.handleRegister(reg.client)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case env := <-h.inbox:
			h.handleCommand(env.client, env.cmd)
		case fn := <-h.tasks:
			fn()
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// RegisterClient attaches c to the hub. A player may only hold one session.
func (h *Hub) RegisterClient(c *Client) error {
	reply := make(chan error, 1)
	select {
	case h.register <- registration{client: c, reply: reply}:
	case <-h.done:
		return ErrHubClosed
	}
	return <-reply
}

// UnregisterClient detaches c, taking its player out of every channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ScheduleOnce runs fn on the hub loop after delay. It implements
// chat.Scheduler.
func (h *Hub) ScheduleOnce(delay time.Duration, fn func()) {
	h.clock.AfterFunc(delay, func() {
		select {
		case h.tasks <- fn:
		case <-h.done:
		}
	})
}

// Do runs fn on the hub loop and waits for it to finish. It must not be
// called from the loop itself.
func (h *Hub) Do(ctx context.Context, fn func(*chat.Registry)) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn(h.registry)
	}

	select {
	case h.tasks <- task:
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload replaces the static channel definitions on the running hub.
func (h *Hub) Reload(ctx context.Context, defs []chat.StaticDefinition) error {
	var loadErr error
	if err := h.Do(ctx, func(r *chat.Registry) { loadErr = r.Load(defs) }); err != nil {
		return err
	}
	return loadErr
}

// DisbandGuild deletes the channel of a dissolved guild.
func (h *Hub) DisbandGuild(ctx context.Context, id chat.GuildID) error {
	return h.Do(ctx, func(r *chat.Registry) { r.DeleteGuildChannel(id) })
}

// DisbandParty deletes the channel of a dissolved party.
func (h *Hub) DisbandParty(ctx context.Context, id chat.PartyID) error {
	return h.Do(ctx, func(r *chat.Registry) { r.DeletePartyChannel(id) })
}

// LeaveGuild takes player out of the guild channel it just left.
func (h *Hub) LeaveGuild(ctx context.Context, player chat.PlayerID, id chat.GuildID) error {
	return h.Do(ctx, func(r *chat.Registry) {
		if c, ok := r.GuildChannelByID(id); ok {
			h.dropMember(c, player)
		}
	})
}

// LeaveParty takes player out of the party channel it just left.
func (h *Hub) LeaveParty(ctx context.Context, player chat.PlayerID, id chat.PartyID) error {
	return h.Do(ctx, func(r *chat.Registry) {
		if c, ok := r.PartyChannelByID(id); ok {
			h.dropMember(c, player)
		}
	})
}

func (h *Hub) dropMember(c chat.Channel, player chat.PlayerID) {
	cl, ok := h.online[player]
	if !ok || !c.HasMember(player) {
		return
	}
	if err := c.RemoveUser(cl.player); err == nil {
		cl.DeliverChannelClosed(c.ID())
	}
}

func (h *Hub) handleRegister(c *Client) error {
	if _, ok := h.online[c.PlayerID]; ok {
		return ErrAlreadyOnline
	}
	h.clients[c] = struct{}{}
	h.online[c.PlayerID] = c
	h.byName[c.Name] = c
	go h.pump(c)

	h.log.Debug().Str("client_id", c.ID).Str("player", c.Name).Msg("client registered")
	return nil
}

func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	// Off the online index first so leave hooks can not pull the player
	// back into a channel.
	h.forget(c)
	h.registry.RemoveFromAll(c.player)
	close(c.done)
	h.log.Debug().Str("client_id", c.ID).Str("player", c.Name).Msg("client unregistered")
}

func (h *Hub) release(c *Client) {
	h.forget(c)
	close(c.done)
}

func (h *Hub) forget(c *Client) {
	delete(h.clients, c)
	delete(h.online, c.PlayerID)
	if h.byName[c.Name] == c {
		delete(h.byName, c.Name)
	}
}

func (h *Hub) shutdown() {
	h.registry.Close()
	for c := range h.clients {
		h.release(c)
	}
	h.log.Info().Msg("hub stopped")
}

// pump forwards a client's commands onto the hub loop.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-h.done:
				return
			}
		case <-c.done:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	var err error
	switch cmd.Kind {
	case CommandOpenChannel:
		err = h.openChannel(c, cmd.Channel)
	case CommandCloseChannel:
		err = h.registry.RemoveUser(c.player, cmd.Channel)
	case CommandCreatePrivate:
		err = h.createPrivate(c)
	case CommandInvite:
		err = h.withTarget(cmd.Target, func(target *Client) error {
			return h.registry.Invite(c.player, target.player)
		})
	case CommandExclude:
		err = h.withTarget(cmd.Target, func(target *Client) error {
			return h.registry.Exclude(c.player, target.player)
		})
	case CommandTalk:
		if cmd.Text == "" {
			err = ErrBadRequest
			break
		}
		err = h.registry.Talk(c.player, cmd.Class, cmd.Text, cmd.Channel)
	case CommandListChannels:
		h.listChannels(c)
	default:
		err = ErrBadRequest
	}

	if err != nil {
		h.log.Debug().Err(err).Str("player", c.Name).Stringer("command", cmd.Kind).
			Uint16("channel_id", uint16(cmd.Channel)).Msg("command failed")
		c.sendError(err)
	}
}

func (h *Hub) openChannel(c *Client, id chat.ChannelID) error {
	ch, err := h.registry.AddUser(c.player, id)
	if errors.Is(err, chat.ErrChannelNotFound) && (id == chat.ChannelGuild || id == chat.ChannelParty) {
		if _, createErr := h.registry.Create(c.player, id); createErr == nil {
			ch, err = h.registry.AddUser(c.player, id)
		}
	}
	if err != nil {
		return err
	}
	c.push(&Event{Kind: EventChannelOpened, Channel: ch.ID(), Info: h.info(ch, true)})
	return nil
}

func (h *Hub) createPrivate(c *Client) error {
	ch, err := h.registry.Create(c.player, chat.ChannelPrivate)
	if err != nil {
		return err
	}
	if _, err := h.registry.AddUser(c.player, ch.ID()); err != nil {
		return err
	}
	c.push(&Event{Kind: EventPrivateCreated, Channel: ch.ID(), Info: h.info(ch, true)})
	return nil
}

func (h *Hub) withTarget(name string, fn func(*Client) error) error {
	if name == "" {
		return ErrBadRequest
	}
	target, ok := h.byName[name]
	if !ok {
		return ErrPlayerNotOnline
	}
	return fn(target)
}

func (h *Hub) listChannels(c *Client) {
	channels := lo.Map(h.registry.List(c.player), func(ch chat.Channel, _ int) ChannelInfo {
		return *h.info(ch, false)
	})
	c.push(&Event{Kind: EventChannelList, Channels: channels})
}

func (h *Hub) info(ch chat.Channel, withMembers bool) *ChannelInfo {
	info := &ChannelInfo{ID: ch.ID(), Name: ch.Name(), Kind: ch.Kind().String()}
	if withMembers {
		info.Members = lo.FilterMap(ch.Members(), func(id chat.PlayerID, _ int) (string, bool) {
			cl, ok := h.online[id]
			if !ok {
				return "", false
			}
			return cl.Name, true
		})
	}
	return info
}

// nopDirectory knows no guilds, parties or premium players.
type nopDirectory struct{}

func (nopDirectory) Guild(chat.PlayerID) (chat.Guild, bool)   { return chat.Guild{}, false }
func (nopDirectory) Party(chat.PlayerID) (chat.PartyID, bool) { return 0, false }
func (nopDirectory) Premium(chat.PlayerID) bool               { return false }
func (nopDirectory) GuildRank(chat.PlayerID) (int, bool)      { return 0, false }
