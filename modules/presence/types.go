package presence

import (
	"encoding/json"

	"github.com/example/feria-collab/domain/usuario"
)

// Server-to-client event types.
const (
	EventActiveUsers     = "active-users"
	EventContentUpdate   = "content-update"
	EventCursorUpdate    = "cursor-update"
	EventSelectionUpdate = "selection-update"
	EventContentSaved    = "content-saved"
)

// Event is the envelope for every frame pushed to a client.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ActiveUser is the per-connection presence record shown to room peers.
// Uniqueness is per connection id: a user with two tabs appears twice.
type ActiveUser struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Nombre       string `json:"nombre"`
	Apellido     string `json:"apellido"`
	Iniciales    string `json:"iniciales"`
	Avatar       string `json:"avatar,omitempty"`
	ConnectionID string `json:"connectionId"`
}

// ContentUpdatePayload carries a live (non-persisted) content change.
type ContentUpdatePayload struct {
	Content   string `json:"content"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	Timestamp string `json:"timestamp"`
}

// CursorUpdatePayload carries an ephemeral cursor position.
type CursorUpdatePayload struct {
	UserID        string          `json:"userId"`
	UserEmail     string          `json:"userEmail"`
	UserIniciales string          `json:"userIniciales"`
	Position      json.RawMessage `json:"position"`
}

// SelectionUpdatePayload carries an ephemeral text selection.
type SelectionUpdatePayload struct {
	UserID        string          `json:"userId"`
	UserEmail     string          `json:"userEmail"`
	UserIniciales string          `json:"userIniciales"`
	Selection     json.RawMessage `json:"selection"`
}

// Client represents one live WebSocket connection admitted by the
// authenticator. Room state is owned exclusively by the hub loop.
type Client struct {
	ID       string
	Identity usuario.Identity

	send chan []byte

	// Mutated only by the hub loop.
	room         string
	documentID   string
	documentType string
}

// NewClient creates a client for an authenticated connection.
func NewClient(id string, identity usuario.Identity) *Client {
	return &Client{
		ID:       id,
		Identity: identity,
		send:     make(chan []byte, sendBufferSize),
	}
}

// Send returns the channel the writer pump drains. It is closed by the hub
// when the connection is unregistered.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// record builds the presence record for this connection.
func (c *Client) record() ActiveUser {
	return ActiveUser{
		UserID:       c.Identity.UserID,
		Email:        c.Identity.Email,
		Nombre:       c.Identity.Nombre,
		Apellido:     c.Identity.Apellido,
		Iniciales:    c.Identity.Iniciales,
		Avatar:       c.Identity.Avatar,
		ConnectionID: c.ID,
	}
}
