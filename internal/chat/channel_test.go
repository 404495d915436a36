package chat

import (
	"reflect"
	"testing"
)

func TestAddUserTwiceFails(t *testing.T) {
	f := newFixture()
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade"})
	alice := f.player(1, "alice")

	f.mustAdd(t, alice, 5)
	_, err := f.reg.AddUser(alice, 5)
	wantErr(t, err, ErrAlreadyMember)

	c, _ := f.reg.StaticChannel(5)
	if got := c.Members(); !reflect.DeepEqual(got, []PlayerID{1}) {
		t.Fatalf("unexpected members: %v", got)
	}
}

func TestJoinAndLeaveBroadcast(t *testing.T) {
	f := newFixture()
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade"})
	alice := f.player(1, "alice")
	bob := f.player(2, "bob")

	f.mustAdd(t, alice, 5)
	f.mustAdd(t, bob, 5)

	// Existing members hear about the join, the joiner does not.
	if got, want := f.sinks[1].events, []channelEvent{{Channel: 5, Name: "bob", Kind: EventJoin}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("alice events: got %+v, want %+v", got, want)
	}
	if len(f.sinks[2].events) != 0 {
		t.Fatalf("joiner got events: %+v", f.sinks[2].events)
	}

	noErr(t, f.reg.RemoveUser(alice, 5))
	if got, want := f.sinks[2].events, []channelEvent{{Channel: 5, Name: "alice", Kind: EventLeave}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("bob events: got %+v, want %+v", got, want)
	}
	wantErr(t, f.reg.RemoveUser(alice, 5), ErrNotMember)
}

func TestPublicChannelSuppressesMembershipEvents(t *testing.T) {
	f := newFixture()
	f.mustLoad(t, StaticDefinition{ID: 7, Name: "Help", Public: true})
	alice := f.player(1, "alice")
	bob := f.player(2, "bob")

	f.mustAdd(t, alice, 7)
	f.mustAdd(t, bob, 7)
	noErr(t, f.reg.RemoveUser(bob, 7))

	if len(f.sinks[1].events) != 0 {
		t.Fatalf("public channel broadcast membership: %+v", f.sinks[1].events)
	}
}

func TestOnJoinDenyLeavesNoTrace(t *testing.T) {
	f := newFixture()
	f.hooks.bundles["closed.lua"] = HookSet{OnJoin: f.hooks.bind(deny)}
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade", Script: "closed.lua"})
	alice := f.player(1, "alice")

	_, err := f.reg.AddUser(alice, 5)
	wantErr(t, err, ErrHookDenied)

	c, _ := f.reg.StaticChannel(5)
	if len(c.Members()) != 0 || f.sinks[1].total() != 0 {
		t.Fatalf("denied join left members=%v notifications=%d", c.Members(), f.sinks[1].total())
	}
}

func TestCanJoinDenyHidesChannel(t *testing.T) {
	f := newFixture()
	f.hooks.bundles["staff.lua"] = HookSet{CanJoin: f.hooks.bind(func(p *Player, _ ...any) HookResult {
		if p.Name == "gm" {
			return HookResult{Verdict: Allow}
		}
		return HookResult{Verdict: Deny}
	})}
	f.mustLoad(t, StaticDefinition{ID: 9, Name: "Staff", Script: "staff.lua"})

	if _, ok := f.reg.Resolve(f.player(1, "alice"), 9); ok {
		t.Fatalf("staff channel resolved for alice")
	}
	_, err := f.reg.AddUser(f.player(1, "alice"), 9)
	wantErr(t, err, ErrChannelNotFound)

	c, ok := f.reg.Resolve(f.player(2, "gm"), 9)
	if !ok || c.ID() != 9 {
		t.Fatalf("expected gm to resolve channel 9, got %v %v", c, ok)
	}
}

func TestOnLeaveResultIgnored(t *testing.T) {
	f := newFixture()
	onLeave := f.hooks.bind(deny)
	f.hooks.bundles["sticky.lua"] = HookSet{OnLeave: onLeave}
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade", Script: "sticky.lua"})
	alice := f.player(1, "alice")

	f.mustAdd(t, alice, 5)
	noErr(t, f.reg.RemoveUser(alice, 5))

	c, _ := f.reg.StaticChannel(5)
	if c.HasMember(1) {
		t.Fatalf("alice still a member after leaving")
	}
	if n := f.hooks.calls[onLeave.Ref()]; n != 1 {
		t.Fatalf("onLeave ran %d times", n)
	}
}

func TestTalkByNonMemberFails(t *testing.T) {
	f := newFixture()
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade"})
	alice := f.player(1, "alice")
	bob := f.player(2, "bob")
	f.mustAdd(t, alice, 5)

	c, _ := f.reg.StaticChannel(5)
	wantErr(t, c.Talk(bob, SpeakChannelYellow, "hi"), ErrNotMember)
	wantErr(t, f.reg.Talk(bob, SpeakChannelYellow, "hi", 5), ErrNotMember)

	if f.sinks[1].total() != 0 || f.sinks[2].total() != 0 {
		t.Fatalf("rejected talk produced notifications")
	}
}

func TestTalkDeliversToEveryMember(t *testing.T) {
	f := newFixture()
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade"})
	alice := f.player(1, "alice")
	bob := f.player(2, "bob")
	for _, p := range []*Player{alice, bob} {
		f.mustAdd(t, p, 5)
	}
	f.resetSinks()

	noErr(t, f.reg.Talk(alice, SpeakChannelYellow, "selling sword", 5))

	for _, id := range []PlayerID{1, 2} {
		want := []channelMessage{{Channel: 5, Speaker: "alice", Text: "selling sword", Class: SpeakChannelYellow, Recipient: id}}
		if got := f.sinks[id].messages; !reflect.DeepEqual(got, want) {
			t.Fatalf("player %d: got %+v, want %+v", id, got, want)
		}
	}
}

func TestOnSpeakDenyDropsMessage(t *testing.T) {
	f := newFixture()
	f.hooks.bundles["mute.lua"] = HookSet{OnSpeak: f.hooks.bind(deny)}
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade", Script: "mute.lua"})
	alice := f.player(1, "alice")
	bob := f.player(2, "bob")
	for _, p := range []*Player{alice, bob} {
		f.mustAdd(t, p, 5)
	}

	wantErr(t, f.reg.Talk(alice, SpeakChannelYellow, "hi", 5), ErrHookDenied)
	if len(f.sinks[1].messages)+len(f.sinks[2].messages) != 0 {
		t.Fatalf("muted message was delivered")
	}
}

func TestOnSpeakOverridesClass(t *testing.T) {
	f := newFixture()
	var gotArgs []any
	f.hooks.bundles["red.lua"] = HookSet{OnSpeak: f.hooks.bind(func(_ *Player, args ...any) HookResult {
		gotArgs = args
		return HookResult{Verdict: AllowWithValue, Value: int(SpeakChannelRed)}
	})}
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade", Script: "red.lua"})
	alice := f.player(1, "alice")
	f.mustAdd(t, alice, 5)

	noErr(t, f.reg.Talk(alice, SpeakChannelYellow, "loud", 5))
	if want := []any{int(SpeakChannelYellow), "loud"}; !reflect.DeepEqual(gotArgs, want) {
		t.Fatalf("onSpeak args: got %v, want %v", gotArgs, want)
	}
	msgs := f.sinks[1].messages
	if len(msgs) != 1 || msgs[0].Class != SpeakChannelRed {
		t.Fatalf("expected one red message, got %+v", msgs)
	}
}

func TestSendToAllIsAnonymous(t *testing.T) {
	f := newFixture()
	f.mustLoad(t, StaticDefinition{ID: 5, Name: "Trade"})
	alice := f.player(1, "alice")
	f.mustAdd(t, alice, 5)

	c, _ := f.reg.StaticChannel(5)
	c.SendToAll("server restart in 5 minutes", SpeakChannelRed)

	want := []channelMessage{{Channel: 5, Text: "server restart in 5 minutes", Class: SpeakChannelRed, Recipient: 1}}
	if got := f.sinks[1].messages; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSpeakClassFor(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		requested SpeakClass
		rank      int
		want      SpeakClass
	}{
		{name: "guild officer", kind: KindGuild, requested: SpeakChannelRed, rank: 2, want: SpeakOfficer},
		{name: "guild member", kind: KindGuild, requested: SpeakChannelRed, rank: 1, want: SpeakGuild},
		{name: "guild no rank", kind: KindGuild, requested: SpeakOfficer, rank: 0, want: SpeakGuild},
		{name: "party forced", kind: KindParty, requested: SpeakChannelRed, want: SpeakParty},
		{name: "private forced", kind: KindPrivate, requested: SpeakChannelOrange, want: SpeakParty},
		{name: "static untouched", kind: KindStatic, requested: SpeakChannelRed, want: SpeakChannelRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpeakClassFor(tt.kind, tt.requested, tt.rank); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGuildTalkUsesRank(t *testing.T) {
	f := newFixture()
	guild := Guild{ID: 10, Name: "Knights"}
	leader := f.player(1, "leader")
	member := f.player(2, "member")
	f.dir.guilds[1] = guild
	f.dir.guilds[2] = guild
	f.dir.ranks[1] = 3

	f.mustCreate(t, leader, ChannelGuild)
	for _, p := range []*Player{leader, member} {
		f.mustAdd(t, p, ChannelGuild)
	}
	f.resetSinks()

	noErr(t, f.reg.Talk(leader, SpeakChannelYellow, "orders", ChannelGuild))
	noErr(t, f.reg.Talk(member, SpeakChannelOrange, "yes", ChannelGuild))

	msgs := f.sinks[2].messages
	if len(msgs) != 2 || msgs[0].Class != SpeakOfficer || msgs[1].Class != SpeakGuild {
		t.Fatalf("unexpected guild classes: %+v", msgs)
	}
}

func TestGuildMOTDIsDeferred(t *testing.T) {
	f := newFixture()
	guild := Guild{ID: 10, Name: "Knights", MOTD: "raid at nine"}
	alice := f.player(1, "alice")
	bob := f.player(2, "bob")
	f.dir.guilds[1] = guild
	f.dir.guilds[2] = guild

	f.mustCreate(t, alice, ChannelGuild)
	f.mustAdd(t, alice, ChannelGuild)
	f.mustAdd(t, bob, ChannelGuild)

	if len(f.sinks[1].messages) != 0 {
		t.Fatalf("motd delivered before the delay")
	}
	if len(f.sched.tasks) != 2 || f.sched.tasks[0].delay != DefaultMOTDDelay {
		t.Fatalf("expected two notices after %v, got %+v", DefaultMOTDDelay, f.sched.tasks)
	}

	// bob leaves before his notice fires.
	noErr(t, f.reg.RemoveUser(bob, ChannelGuild))
	f.sched.runAll()

	want := []channelMessage{{Channel: ChannelGuild, Speaker: "Message of the Day", Text: "raid at nine", Class: SpeakChannelRed, Recipient: 1}}
	if got := f.sinks[1].messages; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(f.sinks[2].messages) != 0 {
		t.Fatalf("bob got the motd after leaving")
	}
}
