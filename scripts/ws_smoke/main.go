// Command ws_smoke exercises a running server end to end: register (or reuse)
// an account, log in, open the websocket, and optionally send one direct
// message. Intended for manual checks against a local instance.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/dkurbatov/huddle/internal/proto"
)

func main() {
	base := flag.String("addr", "http://localhost:8080", "server base URL")
	user := flag.String("user", "smoke", "username to register/login with")
	password := flag.String("password", "smoke-pass", "password for the account")
	to := flag.Int64("to", 0, "recipient user id for a direct message (0 = listen only)")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Registration may fail with 409 on reruns; login is what matters.
	postJSON(ctx, *base+"/api/users/register", map[string]string{
		"username": *user, "password": *password,
	}, nil)

	var login struct {
		Token string `json:"token"`
	}
	if err := postJSON(ctx, *base+"/api/users/login", map[string]string{
		"username": *user, "password": *password,
	}, &login); err != nil {
		log.Fatalf("login: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(*base, "http") + "/ws/chat?token=" + login.Token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if *to != 0 {
		payload, _ := json.Marshal(proto.UserMessageData{Content: *text, UserID: *to})
		if err := wsjson.Write(ctx, conn, proto.Inbound{
			Event: proto.InboundUserMessage,
			Data:  payload,
		}); err != nil {
			log.Fatalf("send: %v", err)
		}
	}

	for {
		var outbound struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			log.Fatalf("read: %v", err)
		}
		fmt.Printf("<- %s %s\n", outbound.Event, outbound.Data)
	}
}

func postJSON(ctx context.Context, url string, body map[string]string, out any) error {
	raw, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
