package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"slackr-server/middleware"
	"slackr-server/models"
	"slackr-server/store"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the HTTP middleware
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

type Client struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	userID     int
	channels   map[int]bool
	channelsMu sync.RWMutex
	log        zerolog.Logger
}

// Hub fans server events out to connected websocket clients. Clients use
// reaction_update events as their cue to re-fetch a channel's messages.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	store      *store.Store
	mu         sync.RWMutex
	log        zerolog.Logger
}

func NewHub(s *store.Store) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		store:      s,
		log:        log.With().Str("component", "ws_hub").Logger(),
	}
}

func (h *Hub) Run() {
	h.log.Info().Msg("hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			isFirstConnection := true
			for c := range h.clients {
				if c.userID == client.userID {
					isFirstConnection = false
					break
				}
			}
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			client.log.Info().Int("clients", clientCount).Bool("first", isFirstConnection).Msg("client registered")

			if isFirstConnection {
				h.store.UpdateUserStatus(client.userID, "online")
				go h.BroadcastAll(models.WSMessage{
					Type:    models.WSTypeUserOnline,
					Payload: map[string]int{"u_id": client.userID},
				})
			}

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// remove drops client and, on the user's last connection, marks them
// offline. Removing a client twice is a no-op.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	hasOtherConnections := false
	for c := range h.clients {
		if c.userID == client.userID {
			hasOtherConnections = true
			break
		}
	}
	clientCount := len(h.clients)
	h.mu.Unlock()

	client.log.Info().Int("clients", clientCount).Bool("other_connections", hasOtherConnections).Msg("client unregistered")

	if !hasOtherConnections {
		h.store.UpdateUserStatus(client.userID, "offline")
		go h.BroadcastAll(models.WSMessage{
			Type:    models.WSTypeUserOffline,
			Payload: map[string]int{"u_id": client.userID},
		})
	}
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToChannel sends msg to every client subscribed to channelID.
func (h *Hub) BroadcastToChannel(channelID int, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("type", msg.Type).Msg("marshal broadcast")
		return
	}

	h.deliver(data, func(c *Client) bool { return c.isSubscribed(channelID) })
	h.log.Debug().Int("channel_id", channelID).Str("type", msg.Type).Msg("broadcast to channel")
}

func (h *Hub) BroadcastAll(msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("type", msg.Type).Msg("marshal broadcast")
		return
	}

	h.deliver(data, func(*Client) bool { return true })
}

// deliver queues data for every matching client. Clients whose buffer is
// full are unregistered.
func (h *Hub) deliver(data []byte, match func(*Client) bool) {
	var staleClients []*Client
	h.mu.RLock()
	for client := range h.clients {
		if !match(client) {
			continue
		}
		select {
		case client.send <- data:
		default:
			staleClients = append(staleClients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range staleClients {
		client.log.Warn().Msg("buffer full, dropping client")
		h.unregister <- client
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := resolveToken(h.store, middleware.RequestToken(r, ""))
	if errors.Is(err, errInvalidToken) {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("connection rejected")
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("check token")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	channelIDs, err := h.store.GetChannelIDsForUser(claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Int("u_id", claims.UserID).Msg("load channels")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Int("u_id", claims.UserID).Msg("upgrade failed")
		return
	}

	channelMap := make(map[int]bool, len(channelIDs))
	for _, id := range channelIDs {
		channelMap[id] = true
	}

	clientID := uuid.New().String()
	client := &Client{
		id:       clientID,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   claims.UserID,
		channels: channelMap,
		log:      h.log.With().Str("client_id", clientID).Int("u_id", claims.UserID).Logger(),
	}

	welcome, _ := json.Marshal(models.WSMessage{
		Type:    models.WSTypeWelcome,
		Payload: map[string]interface{}{"client_id": clientID, "channels": channelIDs},
	})
	if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
		client.log.Warn().Err(err).Msg("send welcome")
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.register <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("unexpected close")
			}
			break
		}

		var wsMsg models.WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			c.log.Debug().Err(err).Msg("bad client message")
			continue
		}

		switch wsMsg.Type {
		case "subscribe":
			// Join the live feed of a channel the user is a member of
			payload, ok := wsMsg.Payload.(map[string]interface{})
			if !ok {
				continue
			}
			raw, ok := payload["channel_id"].(float64)
			if !ok {
				continue
			}
			channelID := int(raw)
			member, err := c.hub.store.IsMember(channelID, c.userID)
			if err != nil || !member {
				c.log.Debug().Int("channel_id", channelID).Msg("subscribe refused")
				continue
			}
			c.channelsMu.Lock()
			c.channels[channelID] = true
			c.channelsMu.Unlock()
		case "unsubscribe":
			if payload, ok := wsMsg.Payload.(map[string]interface{}); ok {
				if raw, ok := payload["channel_id"].(float64); ok {
					c.channelsMu.Lock()
					delete(c.channels, int(raw))
					c.channelsMu.Unlock()
				}
			}
		default:
			c.log.Debug().Str("type", wsMsg.Type).Msg("unknown message type")
		}
	}
}

func (c *Client) isSubscribed(channelID int) bool {
	c.channelsMu.RLock()
	defer c.channelsMu.RUnlock()
	return c.channels[channelID]
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
