package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type systemMessage struct {
	Kind MessageKind
	Text string
}

type channelEvent struct {
	Channel ChannelID
	Name    string
	Kind    EventKind
}

type channelMessage struct {
	Channel   ChannelID
	Speaker   string
	Text      string
	Class     SpeakClass
	Recipient PlayerID
}

type recordingSink struct {
	system   []systemMessage
	events   []channelEvent
	messages []channelMessage
	closed   []ChannelID
}

func (s *recordingSink) DeliverSystemMessage(kind MessageKind, text string) {
	s.system = append(s.system, systemMessage{Kind: kind, Text: text})
}

func (s *recordingSink) DeliverChannelEvent(id ChannelID, name string, kind EventKind) {
	s.events = append(s.events, channelEvent{Channel: id, Name: name, Kind: kind})
}

func (s *recordingSink) DeliverChannelMessage(id ChannelID, speaker, text string, class SpeakClass, recipient PlayerID) {
	s.messages = append(s.messages, channelMessage{Channel: id, Speaker: speaker, Text: text, Class: class, Recipient: recipient})
}

func (s *recordingSink) DeliverChannelClosed(id ChannelID) {
	s.closed = append(s.closed, id)
}

func (s *recordingSink) total() int {
	return len(s.system) + len(s.events) + len(s.messages) + len(s.closed)
}

func (s *recordingSink) reset() {
	*s = recordingSink{}
}

type fakeDirectory struct {
	guilds  map[PlayerID]Guild
	parties map[PlayerID]PartyID
	premium map[PlayerID]bool
	ranks   map[PlayerID]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		guilds:  make(map[PlayerID]Guild),
		parties: make(map[PlayerID]PartyID),
		premium: make(map[PlayerID]bool),
		ranks:   make(map[PlayerID]int),
	}
}

func (d *fakeDirectory) Guild(id PlayerID) (Guild, bool) {
	g, ok := d.guilds[id]
	return g, ok
}

func (d *fakeDirectory) Party(id PlayerID) (PartyID, bool) {
	p, ok := d.parties[id]
	return p, ok
}

func (d *fakeDirectory) Premium(id PlayerID) bool { return d.premium[id] }

func (d *fakeDirectory) GuildRank(id PlayerID) (int, bool) {
	r, ok := d.ranks[id]
	return r, ok
}

type hookFunc func(p *Player, args ...any) HookResult

// fakeHooks binds bundles to Go functions. Bundle names map to a HookSet
// whose refs index into fns.
type fakeHooks struct {
	fns     []hookFunc
	bundles map[string]HookSet
	calls   map[HookRef]int
}

func newFakeHooks() *fakeHooks {
	return &fakeHooks{bundles: make(map[string]HookSet), calls: make(map[HookRef]int)}
}

func (h *fakeHooks) bind(fn hookFunc) Hook {
	h.fns = append(h.fns, fn)
	return BoundHook(HookRef(len(h.fns) - 1))
}

func (h *fakeHooks) Evaluate(ref HookRef, p *Player, args ...any) HookResult {
	h.calls[ref]++
	return h.fns[ref](p, args...)
}

func (h *fakeHooks) LoadBundle(name string) (HookSet, error) {
	set, ok := h.bundles[name]
	if !ok {
		return HookSet{}, errors.New("bundle not found")
	}
	return set, nil
}

func allow(*Player, ...any) HookResult { return HookResult{Verdict: Allow} }
func deny(*Player, ...any) HookResult  { return HookResult{Verdict: Deny} }

type pendingTask struct {
	delay time.Duration
	fn    func()
}

type manualScheduler struct {
	tasks []pendingTask
}

func (s *manualScheduler) ScheduleOnce(delay time.Duration, fn func()) {
	s.tasks = append(s.tasks, pendingTask{delay: delay, fn: fn})
}

func (s *manualScheduler) runAll() {
	tasks := s.tasks
	s.tasks = nil
	for _, t := range tasks {
		t.fn()
	}
}

type fixture struct {
	dir   *fakeDirectory
	hooks *fakeHooks
	sched *manualScheduler
	reg   *Registry
	sinks map[PlayerID]*recordingSink
}

func newFixture() *fixture {
	f := &fixture{
		dir:   newFakeDirectory(),
		hooks: newFakeHooks(),
		sched: &manualScheduler{},
		sinks: make(map[PlayerID]*recordingSink),
	}
	f.reg = NewRegistry(Options{
		Directory: f.dir,
		Hooks:     f.hooks,
		Loader:    f.hooks,
		Scheduler: f.sched,
		Logger:    zerolog.Nop(),
	})
	return f
}

func (f *fixture) player(id PlayerID, name string) *Player {
	sink := &recordingSink{}
	f.sinks[id] = sink
	return &Player{ID: id, Name: name, Sink: sink}
}

func (f *fixture) premium(id PlayerID, name string) *Player {
	f.dir.premium[id] = true
	return f.player(id, name)
}

func (f *fixture) resetSinks() {
	for _, s := range f.sinks {
		s.reset()
	}
}

func (f *fixture) mustLoad(t *testing.T, defs ...StaticDefinition) {
	t.Helper()
	if err := f.reg.Load(defs); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func (f *fixture) mustAdd(t *testing.T, p *Player, id ChannelID) Channel {
	t.Helper()
	c, err := f.reg.AddUser(p, id)
	if err != nil {
		t.Fatalf("%s joins %d: %v", p.Name, id, err)
	}
	return c
}

func (f *fixture) mustCreate(t *testing.T, p *Player, id ChannelID) Channel {
	t.Helper()
	c, err := f.reg.Create(p, id)
	if err != nil {
		t.Fatalf("%s creates %d: %v", p.Name, id, err)
	}
	return c
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func noErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
