package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"bulls-cows/internal/db"

	"github.com/gorilla/websocket"
)

func wsURL(ts string, code string, query url.Values) string {
	u := "ws" + strings.TrimPrefix(ts, "http") + "/ws/rooms/" + code
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func TestWebsocketRequiresCredentials(t *testing.T) {
	srv, ts, _ := newTestEnv(t)
	code, _ := createRoom(t, ts, tokenFor(t, srv, "host-user"), "Ada")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, code, nil), nil)
	if err == nil {
		t.Fatalf("expected handshake to fail without credentials")
	}
	if resp == nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(ts.URL, code, url.Values{"key": {"WRONGKEY"}}), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a wrong spectator key, got %v (%v)", resp, err)
	}

	outsider := tokenFor(t, srv, "outsider")
	_, resp, err = websocket.DefaultDialer.Dial(wsURL(ts.URL, code, url.Values{"access_token": {outsider}}), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-member, got %v (%v)", resp, err)
	}
}

func TestWebsocketDeliversRoomEvents(t *testing.T) {
	srv, ts, _ := newTestEnv(t)
	host := tokenFor(t, srv, "host-user")
	code, roomID := createRoom(t, ts, host, "Ada")

	playerConn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, code, url.Values{"access_token": {host}}), nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer playerConn.Close()
	connected := readWSMessage(t, playerConn, 5*time.Second)
	if connected["type"] != "connected" || connected["role"] != "player" || connected["roomCode"] != code {
		t.Fatalf("unexpected connected message %v", connected)
	}

	var room db.Room
	if err := srv.db.Where("id = ?", roomID).Take(&room).Error; err != nil {
		t.Fatalf("load room: %v", err)
	}
	spectatorConn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, code, url.Values{"key": {strings.ToLower(room.SpectatorCode)}}), nil)
	if err != nil {
		t.Fatalf("spectator dial: %v", err)
	}
	defer spectatorConn.Close()
	if msg := readWSMessage(t, spectatorConn, 5*time.Second); msg["role"] != "spectator" {
		t.Fatalf("unexpected spectator hello %v", msg)
	}
	waitForWatchers(t, srv, code, 2)

	expectStatus(t, doRequest(t, ts, http.MethodPost, "/api/rooms/"+code+"/chat", host, map[string]string{"message": "hi"}), http.StatusOK)

	for _, conn := range []*websocket.Conn{playerConn, spectatorConn} {
		event := readWSMessage(t, conn, 5*time.Second)
		if event["type"] != "chat_message" || event["roomCode"] != code {
			t.Fatalf("unexpected event %v", event)
		}
		payload, _ := event["payload"].(map[string]any)
		if payload["author"] != "Ada" || payload["id"] == nil {
			t.Fatalf("unexpected chat payload %v", payload)
		}
		expectNoWSMessage(t, conn, 200*time.Millisecond)
	}
}

func TestWebsocketDisconnectLeavesHub(t *testing.T) {
	srv, ts, _ := newTestEnv(t)
	host := tokenFor(t, srv, "host-user")
	code, _ := createRoom(t, ts, host, "Ada")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, code, url.Values{"access_token": {host}}), nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	readWSMessage(t, conn, 5*time.Second)
	waitForWatchers(t, srv, code, 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	waitForWatchers(t, srv, code, 0)
}

func readWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode websocket message %q: %v", payload, err)
	}
	return decoded
}

func expectNoWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no websocket message within %s", timeout)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected websocket timeout, got %v", err)
	}
}

// waitForWatchers polls the hub because registration happens after the
// handshake response is written.
func waitForWatchers(t *testing.T, srv *Server, code string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for srv.ws.Count(code) != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d watchers for %s, have %d", want, code, srv.ws.Count(code))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
