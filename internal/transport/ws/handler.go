package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"anamneseai/internal/logger"
	"anamneseai/internal/model"
	"anamneseai/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Patient answers are free text; allow a generous frame.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler handles WebSocket connections.
type Handler struct {
	hub          *Hub
	authSvc      *service.AuthService
	interviewSvc *service.InterviewService
}

func NewHandler(hub *Hub, authSvc *service.AuthService, interviewSvc *service.InterviewService) *Handler {
	return &Handler{
		hub:          hub,
		authSvc:      authSvc,
		interviewSvc: interviewSvc,
	}
}

// SessionWS handles GET /v1/ws/sessions/{sessionId}. Patients connect with
// their session token and may send answers over the socket; clinicians
// connect with their staff token and observe.
func (h *Handler) SessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	observer := false
	if claims, err := h.authSvc.ValidatePatientToken(token); err == nil {
		if claims.SessionID != sessionID {
			http.Error(w, "token not valid for this session", http.StatusForbidden)
			return
		}
	} else if _, err := h.authSvc.ValidateClinicianToken(token); err == nil {
		observer = true
	} else {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if !h.interviewSvc.SessionExists(r.Context(), sessionID) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Errorf("ws: upgrade error: %v", err)
		return
	}

	conn := &Connection{
		SessionID: sessionID,
		Observer:  observer,
		Send:      make(chan []byte, 256),
	}

	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// readPump consumes inbound frames. Patient connections may submit answers;
// the resulting bot messages come back through the hub broadcast.
func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L().Warnf("ws: read error: %v", err)
			}
			break
		}
		if conn.Observer {
			continue
		}
		h.handleInbound(conn, data)
	}
}

func (h *Handler) handleInbound(conn *Connection, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(conn, "invalid message format")
		return
	}

	switch msg.Type {
	case MsgUserMessage:
		var req model.MessageRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			h.sendError(conn, "invalid message payload")
			return
		}
		// Responses are broadcast to the session by the service.
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if _, err := h.interviewSvc.HandleMessage(ctx, conn.SessionID, req.Text); err != nil {
			h.sendError(conn, err.Error())
		}
	default:
		h.sendError(conn, "unknown message type")
	}
}

func (h *Handler) sendError(conn *Connection, message string) {
	payload, _ := json.Marshal(map[string]string{"message": message})
	data, _ := json.Marshal(&Message{Type: MsgError, Payload: payload})
	select {
	case conn.Send <- data:
	default:
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
