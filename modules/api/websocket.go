package api

import (
	"encoding/json"
	"sync"
	"time"

	domain "github.com/example/feria-collab/domain/documento"
	"github.com/example/feria-collab/modules/auth"
	"github.com/example/feria-collab/modules/presence"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Client-to-server message types.
const (
	msgJoinDocument    = "join-document"
	msgLeaveDocument   = "leave-document"
	msgContentChange   = "content-change"
	msgCursorPosition  = "cursor-position"
	msgSelectionChange = "selection-change"
)

// Rate limiting for content-change frames.
const (
	changesPerSecond = 20
	burstSize        = 40
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20 // 1 MiB, content frames carry full documents
)

// wsMessage is the envelope for every client-to-server frame.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinDocumentPayload struct {
	DocumentType string `json:"documentType"`
	DocumentID   string `json:"documentId"`
}

type contentChangePayload struct {
	Content string `json:"content"`
}

type cursorPositionPayload struct {
	Position json.RawMessage `json:"position"`
}

type selectionChangePayload struct {
	Selection json.RawMessage `json:"selection"`
}

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// handleWebSocket serves one authenticated realtime connection. The upgrade
// middleware has already validated the token and stored the claims.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	claims, ok := c.Locals(UserContextKey).(*auth.JWTClaims)
	if !ok {
		_ = c.Close()
		return
	}

	client := presence.NewClient(uuid.New().String(), claims.Identity())
	m.hub.Register(client)

	writerDone := make(chan struct{})
	go m.writePump(c, client, writerDone)

	defer func() {
		// Unregister performs the implicit leave and closes the send queue,
		// which in turn stops the writer.
		m.hub.Unregister(client.ID)
		<-writerDone
		_ = c.Close()
		m.wsLogger.Info("WebSocket disconnected", "connectionID", client.ID, "userID", claims.UserID)
	}()

	m.wsLogger.Info("WebSocket connected", "connectionID", client.ID, "userID", claims.UserID)

	m.hub.SendToConnection(client.ID, presence.Event{
		Type: "connected",
		Payload: map[string]string{
			"connectionId": client.ID,
			"userId":       claims.UserID,
		},
	})

	limiter := newRateLimiter(burstSize, changesPerSecond)

	c.SetReadLimit(maxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.wsLogger.Error("WebSocket error", "connectionID", client.ID, "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			m.sendError(client.ID, "Invalid message format")
			continue
		}

		m.handleClientMessage(client, limiter, msg)
	}
}

// handleClientMessage dispatches one inbound frame.
func (m *APIModule) handleClientMessage(client *presence.Client, limiter *rateLimiter, msg wsMessage) {
	switch msg.Type {
	case msgJoinDocument:
		var req joinDocumentPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			m.sendError(client.ID, "Invalid join-document payload")
			return
		}
		if !domain.TipoValido(req.DocumentType) || req.DocumentID == "" {
			m.sendError(client.ID, "documentType and documentId are required")
			return
		}
		m.hub.JoinDocument(client.ID, req.DocumentType, req.DocumentID)

	case msgLeaveDocument:
		var req joinDocumentPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			m.sendError(client.ID, "Invalid leave-document payload")
			return
		}
		if !domain.TipoValido(req.DocumentType) || req.DocumentID == "" {
			m.sendError(client.ID, "documentType and documentId are required")
			return
		}
		m.hub.LeaveDocument(client.ID, req.DocumentType, req.DocumentID)

	case msgContentChange:
		if !limiter.allow() {
			m.sendError(client.ID, "Rate limit exceeded, please slow down")
			return
		}
		var req contentChangePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			m.sendError(client.ID, "Invalid content-change payload")
			return
		}
		m.hub.BroadcastContentChange(client.ID, req.Content)

	case msgCursorPosition:
		var req cursorPositionPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil || len(req.Position) == 0 {
			m.sendError(client.ID, "Invalid cursor-position payload")
			return
		}
		m.hub.BroadcastCursorPosition(client.ID, req.Position)

	case msgSelectionChange:
		var req selectionChangePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil || len(req.Selection) == 0 {
			m.sendError(client.ID, "Invalid selection-change payload")
			return
		}
		m.hub.BroadcastSelectionChange(client.ID, req.Selection)

	default:
		m.sendError(client.ID, "Unknown message type: "+msg.Type)
	}
}

// writePump drains the client's outbound queue onto the socket and keeps the
// connection alive with periodic pings. It exits when the hub closes the
// queue or a write fails.
func (m *APIModule) writePump(c *websocket.Conn, client *presence.Client, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case data, ok := <-client.Send():
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError queues an error frame for a single connection.
func (m *APIModule) sendError(connID, message string) {
	m.hub.SendToConnection(connID, presence.Event{
		Type:    "error",
		Payload: map[string]string{"message": message},
	})
}
