package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type wsConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func defaultWSConfig() wsConfig {
	return wsConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     32,
	}
}

// wsClient is one live subscription. The viewer identity is re-resolved on
// every broadcast, so a join or an admin login takes effect immediately.
type wsClient struct {
	id         string
	room       string
	browser    string
	adminToken string
	conn       *websocket.Conn
	send       chan []byte
	hub        *wsHub

	mu     sync.Mutex
	closed bool
}

// enqueue reports false when the send buffer is full.
func (c *wsClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type wsHub struct {
	mu       sync.RWMutex
	config   wsConfig
	upgrader websocket.Upgrader
	rooms    map[string]map[*wsClient]struct{}
}

func newWSHub(config wsConfig) *wsHub {
	return &wsHub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		rooms: make(map[string]map[*wsClient]struct{}),
	}
}

func (h *wsHub) add(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[client.room]
	if group == nil {
		group = make(map[*wsClient]struct{})
		h.rooms[client.room] = group
	}
	group[client] = struct{}{}
}

func (h *wsHub) remove(client *wsClient) {
	h.mu.Lock()
	group := h.rooms[client.room]
	if group != nil {
		delete(group, client)
		if len(group) == 0 {
			delete(h.rooms, client.room)
		}
	}
	h.mu.Unlock()
	client.close()
}

func (h *wsHub) clients(room string) []*wsClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	group := h.rooms[room]
	out := make([]*wsClient, 0, len(group))
	for client := range group {
		out = append(out, client)
	}
	return out
}

func (h *wsHub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast sends every client of room its own payload.
func (h *wsHub) Broadcast(room string, render func(client *wsClient) any) {
	for _, client := range h.clients(room) {
		h.Send(client, render(client))
	}
}

func (h *wsHub) Send(client *wsClient, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("session_id", client.room).Msg("failed to marshal websocket payload")
		return
	}
	if client.enqueue(data) {
		return
	}
	log.Warn().
		Str("connection_id", client.id).
		Str("session_id", client.room).
		Msg("websocket send buffer full, closing connection")
	h.remove(client)
	_ = client.conn.Close()
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.id).Msg("unexpected websocket close")
			}
			log.Info().Str("connection_id", c.id).Str("session_id", c.room).Msg("ws disconnected")
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}

func (s *Server) handleWebsocket(c *gin.Context) {
	var uri sessionURI
	if !bindURI(c, &uri) {
		return
	}
	session, ok := s.lookupSession(uri.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errSessionNotFound.Error()})
		return
	}
	conn, err := s.ws.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("websocket upgrade failed")
		return
	}
	client := &wsClient{
		id:         uuid.NewString(),
		room:       session.ID,
		browser:    s.sessions.SessionID(c.Request),
		adminToken: adminTokenFromRequest(c),
		conn:       conn,
		send:       make(chan []byte, s.ws.config.SendBuffer),
		hub:        s.ws,
	}
	s.ws.add(client)
	// Broadcasts reach the client from here on; re-read so the first snapshot
	// is not older than one it may already have missed.
	if latest, ok := s.store.GetSession(session.ID); ok {
		session = latest
	}
	log.Info().
		Str("connection_id", client.id).
		Str("session_id", session.ID).
		Str("remote", c.Request.RemoteAddr).
		Msg("ws connected")
	s.ws.Send(client, s.snapshotForClient(session, client))
	go client.writePump()
	go client.readPump()
}

// broadcastSession pushes the current state of room to its subscribers.
func (s *Server) broadcastSession(room string) {
	if s.ws == nil {
		return
	}
	session, ok := s.store.GetSession(room)
	if !ok {
		return
	}
	s.ws.Broadcast(session.ID, func(client *wsClient) any {
		return s.snapshotForClient(session, client)
	})
}
