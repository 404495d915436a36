package http

import (
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t)

	status, body := env.request(t, stdhttp.MethodGet, "/health", "", nil)
	if status != stdhttp.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response: %d %q", status, body)
	}
}

func TestWebSocketHandshakeErrors(t *testing.T) {
	env := startTestServer(t)
	token := env.register(t, "alice")

	tests := []struct {
		name  string
		typ   string
		hello proto.HelloRequest
		code  string
	}{
		{
			name:  "invalid token",
			typ:   proto.InboundTypeHello,
			hello: proto.HelloRequest{Token: "invalid"},
			code:  errCodeUnauthorized,
		},
		{
			name:  "future protocol",
			typ:   proto.InboundTypeHello,
			hello: proto.HelloRequest{Token: token, Protocol: proto.ProtocolVersion + 1},
			code:  errCodeUnsupportedVersion,
		},
		{
			name: "command before hello",
			typ:  proto.InboundTypeList,
			code: core.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := env.rawDial(t)
			send(t, conn, tt.typ, tt.hello)

			out := read(t, conn)
			if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != tt.code {
				t.Fatalf("expected %s error, got %+v", tt.code, out)
			}
		})
	}
}

func TestWebSocketSecondSessionRejected(t *testing.T) {
	env := startTestServer(t)
	token := env.register(t, "alice")

	env.dial(t, token)

	conn := env.rawDial(t)
	send(t, conn, proto.InboundTypeHello, proto.HelloRequest{Token: token})
	readError(t, conn, core.ErrCodeAlreadyOnline)
}

func TestWebSocketTalkInStaticChannel(t *testing.T) {
	env := startTestServer(t)
	alice := env.dial(t, env.register(t, "alice"))
	bob := env.dial(t, env.register(t, "bob"))

	send(t, alice, proto.InboundTypeOpen, proto.ChannelData{Channel: 3})
	var opened proto.Channel
	readEvent(t, alice, proto.EventChannelOpened, &opened)
	if opened.ID != 3 || opened.Name != "World Chat" || opened.Kind != "static" {
		t.Fatalf("unexpected opened channel: %+v", opened)
	}

	send(t, bob, proto.InboundTypeOpen, proto.ChannelData{Channel: 3})
	readEvent(t, bob, proto.EventChannelOpened, &opened)
	if len(opened.Members) != 2 {
		t.Fatalf("expected two members, got %v", opened.Members)
	}

	send(t, alice, proto.InboundTypeTalk, proto.TalkData{Channel: 3, Class: int(chat.SpeakChannelYellow), Text: "hi there"})

	var msg proto.EventChannelMessage
	readEvent(t, bob, proto.EventMessage, &msg)
	if msg.Channel != 3 || msg.User != "alice" || msg.Text != "hi there" || msg.Class != int(chat.SpeakChannelYellow) {
		t.Fatalf("unexpected message: %+v", msg)
	}

	send(t, bob, proto.InboundTypeTalk, proto.TalkData{Channel: 42, Text: "anyone?"})
	readError(t, bob, core.ErrCodeChannelNotFound)

	send(t, bob, proto.InboundTypeTalk, proto.TalkData{Channel: 3})
	readError(t, bob, core.ErrCodeBadRequest)
}

func TestWebSocketTalkRateLimited(t *testing.T) {
	env := startTestServer(t, func(cfg *config.Config) {
		cfg.TalkRatePerSec = 0.01
		cfg.TalkBurst = 1
	})
	alice := env.dial(t, env.register(t, "alice"))

	send(t, alice, proto.InboundTypeOpen, proto.ChannelData{Channel: 3})
	readEvent(t, alice, proto.EventChannelOpened, nil)

	send(t, alice, proto.InboundTypeTalk, proto.TalkData{Channel: 3, Text: "one"})
	readEvent(t, alice, proto.EventMessage, nil)

	send(t, alice, proto.InboundTypeTalk, proto.TalkData{Channel: 3, Text: "two"})
	readError(t, alice, core.ErrCodeRateLimited)
}

func TestWebSocketPrivateChannelInvite(t *testing.T) {
	env := startTestServer(t)
	alice := env.dial(t, env.register(t, "alice"))
	bob := env.dial(t, env.register(t, "bob"))

	send(t, bob, proto.InboundTypeCreatePrivate, nil)
	readError(t, bob, core.ErrCodePermissionDenied)

	env.setPremium(t, "alice")
	send(t, alice, proto.InboundTypeCreatePrivate, nil)
	var private proto.Channel
	readEvent(t, alice, proto.EventPrivateCreated, &private)
	if private.ID < 100 || private.Kind != "private" || private.Name != "alice's Channel" {
		t.Fatalf("unexpected private channel: %+v", private)
	}

	send(t, bob, proto.InboundTypeOpen, proto.ChannelData{Channel: private.ID})
	readError(t, bob, core.ErrCodeChannelNotFound)

	send(t, alice, proto.InboundTypeInvite, proto.TargetData{Name: "bob"})
	var notice proto.EventSystemData
	readEvent(t, bob, proto.EventSystem, &notice)
	if notice.Kind != "party_management" || !strings.Contains(notice.Text, "alice invites you to alice's Channel") {
		t.Fatalf("unexpected invite notice: %+v", notice)
	}

	send(t, bob, proto.InboundTypeOpen, proto.ChannelData{Channel: private.ID})
	readEvent(t, bob, proto.EventChannelOpened, nil)

	send(t, alice, proto.InboundTypeExclude, proto.TargetData{Name: "bob"})
	var closed proto.EventChannelClosedData
	readEvent(t, bob, proto.EventChannelClosed, &closed)
	if closed.Channel != private.ID {
		t.Fatalf("expected channel %d closed, got %+v", private.ID, closed)
	}

	send(t, alice, proto.InboundTypeInvite, proto.TargetData{Name: "nobody"})
	readError(t, alice, core.ErrCodePlayerNotOnline)
}

func TestWebSocketListChannels(t *testing.T) {
	env := startTestServer(t)
	alice := env.dial(t, env.register(t, "alice"))
	env.setPremium(t, "alice")

	send(t, alice, proto.InboundTypeList, nil)
	var list proto.EventChannelListData
	readEvent(t, alice, proto.EventChannelList, &list)

	names := make([]string, 0, len(list.Channels))
	for _, ch := range list.Channels {
		names = append(names, ch.Name)
	}
	if strings.Join(names, ",") != "Private Chat Channel,World Chat" {
		t.Fatalf("unexpected channel list: %v", names)
	}
}
