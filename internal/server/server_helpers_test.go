package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bulls-cows/internal/db"
)

func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func expectStatus(t *testing.T, resp *http.Response, status int) map[string]any {
	t.Helper()
	body := decodeBody(t, resp)
	if resp.StatusCode != status {
		t.Fatalf("expected status %d, got %d (%v)", status, resp.StatusCode, body)
	}
	return body
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	body := expectStatus(t, resp, status)
	if body["code"] != code {
		t.Fatalf("expected code %s, got %v", code, body["code"])
	}
}

func createRoom(t *testing.T, ts *httptest.Server, token, name string) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/create", token, map[string]string{
		"displayName": name,
	})
	body := expectStatus(t, resp, http.StatusCreated)
	return body["roomCode"].(string), body["roomId"].(string)
}

func joinRoom(t *testing.T, ts *httptest.Server, token, name, code string) int {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/join", token, map[string]string{
		"displayName": name,
		"roomCode":    code,
	})
	body := expectStatus(t, resp, http.StatusOK)
	return int(body["seat"].(float64))
}

func fetchState(t *testing.T, ts *httptest.Server, token, code string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+code+"/state", token, nil)
	return expectStatus(t, resp, http.StatusOK)
}

func stateGame(t *testing.T, state map[string]any) map[string]any {
	t.Helper()
	game, ok := state["game"].(map[string]any)
	if !ok {
		t.Fatalf("expected game in state, got %#v", state["game"])
	}
	return game
}

func submitSecret(t *testing.T, ts *httptest.Server, token, gameID, secret string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/secret", token, map[string]string{
		"secret": secret,
	})
	return expectStatus(t, resp, http.StatusOK)
}

func submitGuess(t *testing.T, ts *httptest.Server, token, gameID string, payload map[string]any) *http.Response {
	t.Helper()
	return doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/guess", token, payload)
}

type startedRoom struct {
	code   string
	gameID string
	host   string
	guest  string
}

// startRoom seats two players and locks in secrets. Seat 1 holds 9150,
// seat 2 holds 4271, and seat 1 moves first.
func startRoom(t *testing.T, srv *Server, ts *httptest.Server, turnSeconds int) startedRoom {
	t.Helper()
	room := startedRoom{
		host:  tokenFor(t, srv, "host-user"),
		guest: tokenFor(t, srv, "guest-user"),
	}
	room.code, _ = createRoom(t, ts, room.host, "Ada")
	joinRoom(t, ts, room.guest, "Ben", room.code)
	if turnSeconds > 0 {
		resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+room.code+"/settings", room.host, map[string]int{
			"turnSeconds": turnSeconds,
		})
		expectStatus(t, resp, http.StatusOK)
	}
	room.gameID = stateGame(t, fetchState(t, ts, room.host, room.code))["id"].(string)
	submitSecret(t, ts, room.host, room.gameID, "9150")
	submitSecret(t, ts, room.guest, room.gameID, "4271")
	return room
}

func countRows(t *testing.T, srv *Server, model any, query string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := srv.db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func loadTestGame(t *testing.T, srv *Server, gameID string) *db.Game {
	t.Helper()
	game, err := srv.loadGame(context.Background(), gameID)
	if err != nil {
		t.Fatalf("load game: %v", err)
	}
	return game
}
