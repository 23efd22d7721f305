// Package ws is the realtime transport: one WebSocket connection carries
// one voice session. The hub also implements domain.Notifier, routing
// orchestrator notifications back to the owning connection.
package ws

import (
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tkc-cmd/rxvoice/internal/app/orchestrator"
	"github.com/tkc-cmd/rxvoice/internal/domain"
	"github.com/tkc-cmd/rxvoice/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the voice client is served from anywhere during development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client wraps one connection. gorilla allows a single concurrent writer,
// so every write goes through the mutex.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) send(frame outboundFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteJSON(frame)
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.Close()
}

// Hub tracks which connection owns which session.
type Hub struct {
	mu      sync.RWMutex
	clients map[domain.SessionID]*client

	orch *orchestrator.Orchestrator
}

func NewHub() *Hub {
	return &Hub{clients: make(map[domain.SessionID]*client)}
}

// Bind attaches the orchestrator after construction; the hub is created
// first because the orchestrator needs it as its notifier.
func (h *Hub) Bind(o *orchestrator.Orchestrator) {
	h.orch = o
}

func (h *Hub) register(id domain.SessionID, c *client) {
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(id domain.SessionID) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

func (h *Hub) client(id domain.SessionID) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

// ServeHTTP upgrades the connection and runs its read loop until the
// client disconnects or sends a stop frame.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.Logger().Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	var sessionID domain.SessionID

	defer func() {
		if sessionID != "" {
			_ = h.orch.OnSessionEnd(sessionID, "connection closed")
			h.unregister(sessionID)
		}
		c.close()
	}()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.Logger().Warn("websocket read failed", "error", err)
			}
			return
		}

		switch frame.Type {
		case inStart:
			if sessionID != "" {
				c.send(outboundFrame{Type: outError, Message: "session already started"})
				continue
			}
			// register before starting so the disclaimer reaches the client
			id := domain.SessionID(frame.SessionID)
			if id == "" {
				id = domain.SessionID(uuid.NewString())
			}
			h.register(id, c)
			if _, err := h.orch.OnSessionStart(r.Context(), id); err != nil {
				h.unregister(id)
				c.send(outboundFrame{Type: outError, Message: err.Error()})
				continue
			}
			sessionID = id

		case inAudio:
			if sessionID == "" {
				c.send(outboundFrame{Type: outError, Message: "no session"})
				continue
			}
			chunk, err := base64.StdEncoding.DecodeString(frame.Data)
			if err != nil {
				c.send(outboundFrame{Type: outError, Message: "invalid audio encoding"})
				continue
			}
			if err := h.orch.OnAudioChunk(sessionID, chunk); err != nil {
				c.send(outboundFrame{Type: outError, Message: err.Error()})
			}

		case inUtteranceEnd:
			if sessionID == "" {
				continue
			}
			if err := h.orch.OnEndOfUtterance(sessionID); err != nil {
				c.send(outboundFrame{Type: outError, Message: err.Error()})
			}

		case inText:
			if sessionID == "" {
				c.send(outboundFrame{Type: outError, Message: "no session"})
				continue
			}
			if err := h.orch.OnTextInput(sessionID, frame.Text); err != nil {
				c.send(outboundFrame{Type: outError, Message: err.Error()})
			}

		case inInterrupt:
			if sessionID == "" {
				continue
			}
			_ = h.orch.OnInterrupt(sessionID)

		case inStop:
			if sessionID != "" {
				_ = h.orch.OnSessionEnd(sessionID, "client stop")
				h.unregister(sessionID)
				sessionID = ""
			}
			return

		default:
			c.send(outboundFrame{Type: outError, Message: "unknown frame type: " + frame.Type})
		}
	}
}

// ─────────────────────────────────────────
// domain.Notifier
// ─────────────────────────────────────────

func (h *Hub) NotifySessionStarted(id domain.SessionID) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outSessionStarted, SessionID: string(id)})
	}
}

func (h *Hub) NotifySessionEnded(id domain.SessionID, reason string) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outSessionEnded, SessionID: string(id), Reason: reason})
	}
}

func (h *Hub) NotifyRecording(id domain.SessionID, recording bool) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outRecording, Active: &recording})
	}
}

func (h *Hub) NotifySpeaking(id domain.SessionID, speaking bool) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outSpeaking, Active: &speaking})
	}
}

func (h *Hub) NotifyTranscript(id domain.SessionID, turn domain.ConversationTurn) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outTranscript, Role: string(turn.Role), Text: turn.Text})
	}
}

func (h *Hub) NotifyAudio(id domain.SessionID, audio []byte) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outAudio, Data: base64.StdEncoding.EncodeToString(audio)})
	}
}

func (h *Hub) NotifyProcessing(id domain.SessionID, active bool) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outProcessing, Active: &active})
	}
}

func (h *Hub) NotifyInterrupted(id domain.SessionID) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outInterrupted})
	}
}

func (h *Hub) NotifyError(id domain.SessionID, message string) {
	if c := h.client(id); c != nil {
		c.send(outboundFrame{Type: outError, Message: message})
	}
}

var _ domain.Notifier = (*Hub)(nil)
