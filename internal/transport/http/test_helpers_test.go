package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/proto"
	"github.com/vovakirdan/wirechat-channels/internal/store/sqlite"
)

type testEnv struct {
	ts    *httptest.Server
	store *sqlite.SQLiteStore
	hub   *core.Hub
}

// wireOutbound mirrors proto.Outbound with the payload left undecoded.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func startTestServer(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.MOTDDelay = 10 * time.Millisecond
	cfg.Channels = []config.Channel{{ID: 3, Name: "World Chat"}}
	for _, fn := range mutate {
		fn(&cfg)
	}

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	hub := core.NewHub(core.Options{
		Directory: sqlite.NewDirectory(st, logger),
		Logger:    logger,
		MOTDDelay: cfg.MOTDDelay,
	})
	if err := hub.Load(cfg.StaticDefinitions()); err != nil {
		t.Fatalf("load channels: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	server := NewServer(hub, authService, st, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, hub: hub}
}

// request sends a JSON request and returns the status and raw body.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := stdhttp.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

// register creates a player and returns its token.
func (e *testEnv) register(t *testing.T, name string) string {
	t.Helper()

	status, raw := e.request(t, stdhttp.MethodPost, "/api/register", "", RegisterRequest{Name: name, Password: "secret123"})
	if status != stdhttp.StatusCreated {
		t.Fatalf("register %s: status %d body %s", name, status, raw)
	}
	var resp AuthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return resp.Token
}

func (e *testEnv) setPremium(t *testing.T, name string) {
	t.Helper()

	ctx := context.Background()
	player, err := e.store.GetPlayerByName(ctx, name)
	if err != nil {
		t.Fatalf("get player %s: %v", name, err)
	}
	if err := e.store.SetPremium(ctx, player.ID, true); err != nil {
		t.Fatalf("set premium: %v", err)
	}
}

func (e *testEnv) rawDial(t *testing.T) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// dial connects and completes the hello handshake.
func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	conn := e.rawDial(t)
	send(t, conn, proto.InboundTypeHello, proto.HelloRequest{Token: token, Protocol: proto.ProtocolVersion})

	out := read(t, conn)
	if out.Type != proto.OutboundTypeHello {
		t.Fatalf("expected hello, got %+v", out)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

func read(t *testing.T, conn *websocket.Conn) wireOutbound {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var out wireOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// readEvent skips frames until the named event arrives and decodes its data.
func readEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	for {
		out := read(t, conn)
		if out.Type != proto.OutboundTypeEvent || out.Event != event {
			continue
		}
		if data != nil {
			if err := json.Unmarshal(out.Data, data); err != nil {
				t.Fatalf("decode %s: %v", event, err)
			}
		}
		return
	}
}

// readError skips frames until an error arrives and checks its code.
func readError(t *testing.T, conn *websocket.Conn, code string) {
	t.Helper()

	for {
		out := read(t, conn)
		if out.Type != proto.OutboundTypeError {
			continue
		}
		if out.Error == nil || out.Error.Code != code {
			t.Fatalf("expected %s error, got %+v", code, out.Error)
		}
		return
	}
}
