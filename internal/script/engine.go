// Package script evaluates channel hooks written in Lua.
package script

import (
	"fmt"
	"path/filepath"

	"github.com/Shopify/go-lua"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

// DefaultMaxDepth bounds how deeply hook calls may nest through host
// callbacks.
const DefaultMaxDepth = 16

const hooksTable = "__channel_hooks"

var hookNames = [...]string{"canJoin", "onJoin", "onLeave", "onSpeak"}

// Host is the game API exposed to scripts. Every method runs on the caller's
// goroutine, so a host may call back into the registry.
type Host interface {
	SendTextMessage(player chat.PlayerID, text string) bool
	BroadcastChannel(channel chat.ChannelID, text string) bool
	JoinChannel(player chat.PlayerID, channel chat.ChannelID) bool
	IsPremium(player chat.PlayerID) bool
}

// Engine owns a single Lua state. It is not safe for concurrent use.
type Engine struct {
	l        *lua.State
	dir      string
	maxDepth int
	depth    int
	next     int
	host     Host
	log      zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for script errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

// New creates an engine that loads bundles relative to dir.
func New(dir string, opts ...Option) *Engine {
	e := &Engine{
		l:        lua.NewState(),
		dir:      dir,
		maxDepth: DefaultMaxDepth,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	lua.OpenLibraries(e.l)
	e.l.NewTable()
	e.l.SetGlobal(hooksTable)
	e.registerHost()
	return e
}

// SetHost installs the game API. Until then host functions return false.
func (e *Engine) SetHost(h Host) { e.host = h }

// LoadBundle runs the script file name and binds the canJoin, onJoin,
// onLeave and onSpeak functions it defines.
func (e *Engine) LoadBundle(name string) (chat.HookSet, error) {
	l := e.l
	top := l.Top()
	defer l.SetTop(top)

	// A bundle must not inherit callbacks from the previous one.
	for _, n := range hookNames {
		l.PushNil()
		l.SetGlobal(n)
	}

	path := filepath.Join(e.dir, filepath.Clean("/"+name))
	if err := lua.LoadFile(l, path, ""); err != nil {
		return chat.HookSet{}, fmt.Errorf("load script %s: %w", name, err)
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return chat.HookSet{}, fmt.Errorf("run script %s: %w", name, err)
	}

	set := chat.HookSet{
		CanJoin: e.capture("canJoin"),
		OnJoin:  e.capture("onJoin"),
		OnLeave: e.capture("onLeave"),
		OnSpeak: e.capture("onSpeak"),
	}
	e.log.Debug().Str("script", name).Msg("channel script loaded")
	return set, nil
}

// capture moves global name into the hooks table and returns its reference.
func (e *Engine) capture(name string) chat.Hook {
	l := e.l
	l.Global(name)
	if !l.IsFunction(-1) {
		l.Pop(1)
		return chat.NoHook
	}
	e.next++
	l.Global(hooksTable)
	l.Insert(-2)
	l.RawSetInt(-2, e.next)
	l.Pop(1)
	return chat.BoundHook(chat.HookRef(e.next))
}

// Evaluate calls the hook ref with the player table followed by args. A
// boolean result allows or denies, a number allows and carries the value.
// Anything else, a runtime error, or exceeding the nesting depth denies.
func (e *Engine) Evaluate(ref chat.HookRef, p *chat.Player, args ...any) chat.HookResult {
	deny := chat.HookResult{Verdict: chat.Deny}
	if e.depth >= e.maxDepth {
		e.log.Error().Int("ref", int(ref)).Str("player", p.Name).Int("depth", e.depth).
			Msg("call stack overflow, too many nested hook calls")
		return deny
	}
	e.depth++
	defer func() { e.depth-- }()

	l := e.l
	top := l.Top()
	defer l.SetTop(top)

	l.Global(hooksTable)
	l.RawGetInt(-1, int(ref))
	l.Remove(-2)
	if !l.IsFunction(-1) {
		e.log.Warn().Int("ref", int(ref)).Msg("unknown hook reference")
		return deny
	}

	pushPlayer(l, p)
	for _, a := range args {
		pushValue(l, a)
	}
	if err := l.ProtectedCall(1+len(args), 1, 0); err != nil {
		e.log.Warn().Err(err).Int("ref", int(ref)).Str("player", p.Name).Msg("hook failed")
		return deny
	}

	switch l.TypeOf(-1) {
	case lua.TypeBoolean:
		if l.ToBoolean(-1) {
			return chat.HookResult{Verdict: chat.Allow}
		}
		return deny
	case lua.TypeNumber:
		v, _ := l.ToInteger(-1)
		return chat.HookResult{Verdict: chat.AllowWithValue, Value: v}
	default:
		return deny
	}
}

func pushPlayer(l *lua.State, p *chat.Player) {
	l.NewTable()
	l.PushInteger(int(p.ID))
	l.SetField(-2, "id")
	l.PushString(p.Name)
	l.SetField(-2, "name")
}

func pushValue(l *lua.State, v any) {
	switch x := v.(type) {
	case int:
		l.PushInteger(x)
	case string:
		l.PushString(x)
	case bool:
		l.PushBoolean(x)
	case chat.SpeakClass:
		l.PushInteger(int(x))
	case chat.ChannelID:
		l.PushInteger(int(x))
	case chat.PlayerID:
		l.PushInteger(int(x))
	default:
		l.PushNil()
	}
}

func (e *Engine) registerHost() {
	fns := map[string]lua.Function{
		"sendTextMessage": func(l *lua.State) int {
			id := lua.CheckInteger(l, 1)
			text := lua.CheckString(l, 2)
			l.PushBoolean(e.host != nil && e.host.SendTextMessage(chat.PlayerID(id), text))
			return 1
		},
		"broadcastChannel": func(l *lua.State) int {
			id := lua.CheckInteger(l, 1)
			text := lua.CheckString(l, 2)
			l.PushBoolean(e.host != nil && e.host.BroadcastChannel(chat.ChannelID(id), text))
			return 1
		},
		"joinChannel": func(l *lua.State) int {
			player := lua.CheckInteger(l, 1)
			channel := lua.CheckInteger(l, 2)
			l.PushBoolean(e.host != nil && e.host.JoinChannel(chat.PlayerID(player), chat.ChannelID(channel)))
			return 1
		},
		"isPremium": func(l *lua.State) int {
			id := lua.CheckInteger(l, 1)
			l.PushBoolean(e.host != nil && e.host.IsPremium(chat.PlayerID(id)))
			return 1
		},
	}
	for name, fn := range fns {
		e.l.PushGoFunction(fn)
		e.l.SetGlobal(name)
	}
}
