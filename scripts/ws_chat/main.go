package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-channels/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	api := flag.String("api", "http://localhost:8080", "HTTP base address")
	name := flag.String("name", "", "player name")
	password := flag.String("password", "", "player password")
	channel := flag.Uint("channel", 3, "channel to open on connect")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	token, err := login(ctx, *api, *name, *password)
	if err != nil {
		return err
	}

	wsURL := strings.Replace(*api, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeHello, proto.HelloRequest{Token: token, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	current := uint16(*channel)
	if err := send(ctx, conn, proto.InboundTypeOpen, proto.ChannelData{Channel: current}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s\n", wsURL, *name)
	fmt.Println("Type to talk. Commands: /open N, /close N, /private, /invite NAME, /exclude NAME, /list. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, current)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func login(ctx context.Context, api, name, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"name": name, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login: %w", err)
	}
	return out.Token, nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Error != nil {
			fmt.Printf("! %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventMessage:
			var evt proto.EventChannelMessage
			if json.Unmarshal(outbound.Data, &evt) == nil {
				fmt.Printf("[%d] %s: %s\n", evt.Channel, evt.User, evt.Text)
			}
		case proto.EventMembership:
			var evt proto.EventMembershipData
			if json.Unmarshal(outbound.Data, &evt) == nil {
				fmt.Printf("[%d] %s %s\n", evt.Channel, evt.User, evt.Action)
			}
		case proto.EventSystem:
			var evt proto.EventSystemData
			if json.Unmarshal(outbound.Data, &evt) == nil {
				fmt.Printf("* %s\n", evt.Text)
			}
		case proto.EventChannelOpened, proto.EventPrivateCreated:
			var ch proto.Channel
			if json.Unmarshal(outbound.Data, &ch) == nil {
				fmt.Printf("opened %d %q (%s) members=%v\n", ch.ID, ch.Name, ch.Kind, ch.Members)
			}
		case proto.EventChannelClosed:
			var evt proto.EventChannelClosedData
			if json.Unmarshal(outbound.Data, &evt) == nil {
				fmt.Printf("closed %d\n", evt.Channel)
			}
		case proto.EventChannelList:
			var evt proto.EventChannelListData
			if json.Unmarshal(outbound.Data, &evt) == nil {
				for _, ch := range evt.Channels {
					fmt.Printf("  %5d  %s (%s)\n", ch.ID, ch.Name, ch.Kind)
				}
			}
		default:
			fmt.Printf("%s %s %s\n", outbound.Type, outbound.Event, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, current uint16) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			cmd, arg, _ := strings.Cut(text, " ")
			switch cmd {
			case "/open", "/close":
				id, parseErr := strconv.ParseUint(arg, 10, 16)
				if parseErr != nil {
					fmt.Println("usage: /open N")
					continue
				}
				typ := proto.InboundTypeOpen
				if cmd == "/close" {
					typ = proto.InboundTypeClose
				} else {
					current = uint16(id)
				}
				err = send(ctx, conn, typ, proto.ChannelData{Channel: uint16(id)})
			case "/private":
				err = send(ctx, conn, proto.InboundTypeCreatePrivate, nil)
			case "/invite":
				err = send(ctx, conn, proto.InboundTypeInvite, proto.TargetData{Name: arg})
			case "/exclude":
				err = send(ctx, conn, proto.InboundTypeExclude, proto.TargetData{Name: arg})
			case "/list":
				err = send(ctx, conn, proto.InboundTypeList, nil)
			default:
				err = send(ctx, conn, proto.InboundTypeTalk, proto.TalkData{Channel: current, Text: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
