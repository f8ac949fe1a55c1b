package ws

import (
	"encoding/json"
	"sync"

	"anamneseai/internal/logger"
)

// MessageType defines the type of WebSocket message.
type MessageType string

// Outbound message types.
const (
	MsgBotMessages     MessageType = "bot_messages"
	MsgSessionComplete MessageType = "session_complete"
	MsgError           MessageType = "error"
)

// Inbound message types.
const (
	MsgUserMessage MessageType = "user_message"
)

// Message is the WebSocket envelope format.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections per session: at most one patient
// connection plus any number of clinician observers.
type Hub struct {
	conns map[string]map[*Connection]bool // sessionID -> connections

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents one WebSocket client attached to a session.
type Connection struct {
	SessionID string
	// Observer connections (clinicians) receive events but never send turns.
	Observer bool
	Send     chan []byte
}

// BroadcastMessage is a message to fan out to a session's connections. Close
// disconnects the session instead of delivering a payload; routing closes
// through the same channel keeps them ordered after pending broadcasts.
type BroadcastMessage struct {
	SessionID string
	Message   *Message
	Close     bool
}

// NewHub creates the WebSocket hub and starts its event loop.
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.SessionID] == nil {
				h.conns[conn.SessionID] = make(map[*Connection]bool)
			}
			h.conns[conn.SessionID][conn] = true
			h.mu.Unlock()
			logger.L().Infof("ws: client connected to session %s (observer=%v)", conn.SessionID, conn.Observer)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.conns[conn.SessionID]; ok {
				if conns[conn] {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.conns, conn.SessionID)
					}
				}
			}
			h.mu.Unlock()
			logger.L().Infof("ws: client disconnected from session %s", conn.SessionID)

		case msg := <-h.broadcast:
			if msg.Close {
				h.mu.Lock()
				for conn := range h.conns[msg.SessionID] {
					close(conn.Send)
				}
				delete(h.conns, msg.SessionID)
				h.mu.Unlock()
				logger.L().Infof("ws: session %s disconnected", msg.SessionID)
				continue
			}

			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)
			for conn := range h.conns[msg.SessionID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToSession sends a message to every connection of a session
// (implements service.Broadcaster).
func (h *Hub) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.L().Errorf("ws: failed to marshal %s payload: %v", msgType, err)
		return
	}
	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// DisconnectSession closes every connection of a session (implements
// service.Broadcaster). Queued behind pending broadcasts so clients still
// receive the final messages before the close.
func (h *Hub) DisconnectSession(sessionID string) {
	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		Close:     true,
	}
}
