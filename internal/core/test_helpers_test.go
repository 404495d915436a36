package core

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// testDirectory is a fixed chat.Directory.
type testDirectory struct {
	guilds  map[chat.PlayerID]chat.Guild
	parties map[chat.PlayerID]chat.PartyID
	premium map[chat.PlayerID]bool
}

func newTestDirectory() *testDirectory {
	return &testDirectory{
		guilds:  make(map[chat.PlayerID]chat.Guild),
		parties: make(map[chat.PlayerID]chat.PartyID),
		premium: make(map[chat.PlayerID]bool),
	}
}

func (d *testDirectory) Guild(id chat.PlayerID) (chat.Guild, bool) {
	g, ok := d.guilds[id]
	return g, ok
}

func (d *testDirectory) Party(id chat.PlayerID) (chat.PartyID, bool) {
	p, ok := d.parties[id]
	return p, ok
}

func (d *testDirectory) Premium(id chat.PlayerID) bool { return d.premium[id] }

func (d *testDirectory) GuildRank(id chat.PlayerID) (int, bool) {
	if _, ok := d.guilds[id]; !ok {
		return 0, false
	}
	return 1, true
}

// startHub runs a hub with the given static channels until the test ends.
func startHub(t *testing.T, dir chat.Directory, mock *clock.Mock, defs ...chat.StaticDefinition) *Hub {
	t.Helper()

	hub := NewHub(Options{Directory: dir, Clock: mock, Logger: zerolog.Nop()})
	if err := hub.Load(defs); err != nil {
		t.Fatalf("load channels: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func connect(t *testing.T, hub *Hub, id chat.PlayerID, name string) *Client {
	t.Helper()

	c := NewClient(name+"-session", id, name)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return c
}
