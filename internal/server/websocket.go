package server

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"bulls-cows/internal/db"
	"bulls-cows/internal/rules"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteWait = 10 * time.Second

type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// wsHub groups live websocket clients by room code. Clients only receive
// notifications; they re-fetch state over HTTP.
type wsHub struct {
	mu    sync.Mutex
	rooms map[string]map[*wsClient]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		rooms: make(map[string]map[*wsClient]struct{}),
	}
}

func (h *wsHub) Add(roomCode string, conn *websocket.Conn) *wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomCode]
	if group == nil {
		group = make(map[*wsClient]struct{})
		h.rooms[roomCode] = group
	}
	client := &wsClient{conn: conn}
	group[client] = struct{}{}
	return client
}

func (h *wsHub) Remove(roomCode string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomCode]
	if group == nil {
		return
	}
	delete(group, client)
	_ = client.conn.Close()
	if len(group) == 0 {
		delete(h.rooms, roomCode)
	}
}

func (h *wsHub) Send(client *wsClient, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = client.write(data)
}

func (h *wsHub) Broadcast(roomCode string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastRaw(roomCode, data)
}

func (h *wsHub) BroadcastRaw(roomCode string, data []byte) {
	h.mu.Lock()
	group := h.rooms[roomCode]
	clients := make([]*wsClient, 0, len(group))
	for client := range group {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.Remove(roomCode, client)
		}
	}
}

func (s *Server) handleRoomWebsocket(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri, roomURIMessages, rules.ErrInvalidRoomCode) {
		return
	}
	ctx := c.Request.Context()
	room, err := s.loadLiveRoom(ctx, uri.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	role, err := s.authorizeWatcher(ctx, room, currentUserID(c), c.Query("key"))
	if err != nil {
		respondError(c, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(s.cfg.CORSOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	log.Info().Str("room", room.Code).Str("role", role).Str("remote", c.Request.RemoteAddr).Msg("ws connected")
	client := s.ws.Add(room.Code, conn)
	s.ws.Send(client, gin.H{"type": "connected", "roomCode": room.Code, "role": role})
	go s.readWS(room.Code, client)
}

// authorizeWatcher admits room members and holders of the spectator key.
func (s *Server) authorizeWatcher(ctx context.Context, room *db.Room, userID, key string) (string, error) {
	if userID != "" {
		member, err := s.findMember(ctx, room.ID, userID)
		if err != nil {
			return "", err
		}
		if member != nil {
			return rules.RolePlayer, nil
		}
	}
	if key != "" {
		if !spectatorKeyMatches(room, key) {
			return "", rules.ErrInvalidSpectatorKey
		}
		return rules.RoleSpectator, nil
	}
	if userID == "" {
		return "", rules.ErrUnauthorized
	}
	return "", rules.ErrForbidden
}

func (s *Server) readWS(roomCode string, client *wsClient) {
	defer s.ws.Remove(roomCode, client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			log.Debug().Str("room", roomCode).Err(err).Msg("ws disconnected")
			return
		}
	}
}
