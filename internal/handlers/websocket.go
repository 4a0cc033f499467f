package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dice-arena-backend/internal/turn"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub    *WebSocketHub
	logger zerolog.Logger
}

// WebSocketHub tracks connected players and their match subscriptions.
// All map access happens on the run goroutine.
type WebSocketHub struct {
	clients     map[*Client]bool
	matches     map[string]map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	broadcast   chan *Message
	logger      zerolog.Logger
}

type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	matches  map[string]bool
}

type subscription struct {
	client  *Client
	matchID string
}

type Message struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"player_id,omitempty"`
	MatchID  string      `json:"match_id,omitempty"`
	Data     interface{} `json:"data"`
}

func NewWebSocketHandler(logger zerolog.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:     make(map[*Client]bool),
		matches:     make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		broadcast:   make(chan *Message, 100),
		logger:      logger.With().Str("component", "ws").Logger(),
	}

	go hub.run()

	return &WebSocketHandler{
		hub:    hub,
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := c.GetString("player_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		PlayerID: playerID,
		Conn:     conn,
		matches:  make(map[string]bool),
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error().Err(err).Str("player", playerID).Msg("WebSocket error")
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	case "SUBSCRIBE_MATCH":
		if matchID, ok := msg.Data.(string); ok {
			h.hub.subscribe <- subscription{client: client, matchID: matchID}
		}
	case "UNSUBSCRIBE_MATCH":
		if matchID, ok := msg.Data.(string); ok {
			h.hub.unsubscribe <- subscription{client: client, matchID: matchID}
		}
	}
}

func (h *WebSocketHandler) sendPong(client *Client) {
	msg := Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	}

	client.Conn.WriteJSON(msg)
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client] = true
			hub.logger.Debug().Str("player", client.PlayerID).Msg("client registered")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client]; ok {
				for matchID := range client.matches {
					delete(hub.matches[matchID], client)
					if len(hub.matches[matchID]) == 0 {
						delete(hub.matches, matchID)
					}
				}
				delete(hub.clients, client)
				hub.logger.Debug().Str("player", client.PlayerID).Msg("client unregistered")
			}

		case sub := <-hub.subscribe:
			if hub.matches[sub.matchID] == nil {
				hub.matches[sub.matchID] = make(map[*Client]bool)
			}
			hub.matches[sub.matchID][sub.client] = true
			sub.client.matches[sub.matchID] = true

		case sub := <-hub.unsubscribe:
			delete(hub.matches[sub.matchID], sub.client)
			delete(sub.client.matches, sub.matchID)

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.MatchID != "" {
		for client := range hub.matches[message.MatchID] {
			client.Conn.WriteJSON(message)
		}
		return
	}
	for client := range hub.clients {
		client.Conn.WriteJSON(message)
	}
}

func (h *WebSocketHandler) BroadcastTurnEvents(matchID, playerID string, events []turn.Event) {
	msg := &Message{
		Type:     "TURN_EVENTS",
		MatchID:  matchID,
		PlayerID: playerID,
		Data: gin.H{
			"match_id":  matchID,
			"player_id": playerID,
			"events":    events,
			"timestamp": time.Now().Unix(),
		},
	}

	h.hub.broadcast <- msg
}

func (h *WebSocketHandler) BroadcastRoundComplete(matchID string, round int) {
	msg := &Message{
		Type:    "ROUND_COMPLETE",
		MatchID: matchID,
		Data: gin.H{
			"match_id":  matchID,
			"round":     round,
			"timestamp": time.Now().Unix(),
		},
	}

	h.hub.broadcast <- msg
}

func (h *WebSocketHandler) BroadcastMatchFinished(matchID, winnerID string) {
	msg := &Message{
		Type:    "MATCH_FINISHED",
		MatchID: matchID,
		Data: gin.H{
			"match_id":  matchID,
			"winner_id": winnerID,
			"timestamp": time.Now().Unix(),
		},
	}

	h.hub.broadcast <- msg
}
