package presence

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	domain "github.com/example/feria-collab/domain/documento"
)

const (
	// sendBufferSize is the per-connection outbound queue. A slow client that
	// falls this far behind gets frames dropped rather than stalling the hub.
	sendBufferSize = 256
	// commandBufferSize bounds the pending command queue. A full queue applies
	// backpressure to the connection's reader instead of dropping commands.
	commandBufferSize = 256
)

// Hub owns room membership and broadcast fan-out. Every command — membership
// changes and realtime events alike — goes through a single queue drained by
// the Run loop, so commands from one connection are processed in the order
// they were sent and a broadcast always reflects the member set immediately
// after the operation that triggered it.
type Hub struct {
	clients map[string]*Client            // connID -> client
	rooms   map[string]map[string]*Client // roomKey -> connID -> client

	commands chan command
	done     chan struct{}
	mu       sync.RWMutex
}

type commandKind int

const (
	cmdRegister commandKind = iota
	cmdUnregister
	cmdJoin
	cmdLeave
	cmdEvent
)

// command is one unit of hub work. A single queue for all kinds keeps a
// connection's content-change ahead of its subsequent join, so live typing
// can never land in a room the sender moved to afterwards.
type command struct {
	kind         commandKind
	client       *Client       // cmdRegister
	ack          chan struct{} // closed once the command has been handled
	connID       string        // cmdUnregister, cmdJoin, cmdLeave
	documentType string
	documentID   string
	event        roomEvent // cmdEvent
}

// roomEvent is a broadcast request. When room is empty it resolves to the
// sender's current room at processing time.
type roomEvent struct {
	room    string
	sender  string // connection excluded from delivery; "" delivers to all
	event   string
	payload any
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		commands: make(chan command, commandBufferSize),
		done:     make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[presence] Hub shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case cmd := <-h.commands:
			switch cmd.kind {
			case cmdRegister:
				h.handleRegister(cmd.client)
			case cmdUnregister:
				h.handleUnregister(cmd.connID)
			case cmdJoin:
				h.handleJoin(cmd)
			case cmdLeave:
				h.handleLeave(cmd)
			case cmdEvent:
				h.handleEvent(cmd.event)
			}
			if cmd.ack != nil {
				close(cmd.ack)
			}
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register admits an authenticated connection and returns once the hub knows
// it, so the caller can immediately address the connection. The connection
// starts outside any room.
func (h *Hub) Register(client *Client) {
	ack := make(chan struct{})
	h.submit(command{kind: cmdRegister, client: client, ack: ack})
	select {
	case <-ack:
	case <-h.done:
	}
}

// Unregister removes a connection, performing the implicit leave of its
// current room. Safe to call for an already-removed connection.
func (h *Hub) Unregister(connID string) {
	h.submit(command{kind: cmdUnregister, connID: connID})
}

// JoinDocument moves a connection into the room for the given document,
// leaving its previous room first.
func (h *Hub) JoinDocument(connID, documentType, documentID string) {
	h.submit(command{kind: cmdJoin, connID: connID, documentType: documentType, documentID: documentID})
}

// LeaveDocument removes a connection from the named document's room.
func (h *Hub) LeaveDocument(connID, documentType, documentID string) {
	h.submit(command{kind: cmdLeave, connID: connID, documentType: documentType, documentID: documentID})
}

// BroadcastContentChange fans a live content change out to every other member
// of the sender's room. Nothing is persisted here.
func (h *Hub) BroadcastContentChange(connID, content string) {
	h.submit(command{kind: cmdEvent, event: roomEvent{sender: connID, event: EventContentUpdate, payload: content}})
}

// BroadcastCursorPosition fans a cursor position out to every other member of
// the sender's room.
func (h *Hub) BroadcastCursorPosition(connID string, position json.RawMessage) {
	h.submit(command{kind: cmdEvent, event: roomEvent{sender: connID, event: EventCursorUpdate, payload: position}})
}

// BroadcastSelectionChange fans a selection out to every other member of the
// sender's room.
func (h *Hub) BroadcastSelectionChange(connID string, selection json.RawMessage) {
	h.submit(command{kind: cmdEvent, event: roomEvent{sender: connID, event: EventSelectionUpdate, payload: selection}})
}

// NotifyContentSaved tells every member of a document's room that a durable
// save completed.
func (h *Hub) NotifyContentSaved(documentType, documentID string, ts time.Time, savedBy string) {
	idField := "documentId"
	if documentType == domain.TipoRevision {
		idField = "revisionId"
	}
	payload := map[string]any{
		idField:     documentID,
		"timestamp": ts,
		"savedBy":   savedBy,
	}
	h.submit(command{kind: cmdEvent, event: roomEvent{
		room:    domain.RoomKey(documentType, documentID),
		event:   EventContentSaved,
		payload: payload,
	}})
}

// SendToConnection queues an event for a single connection, dropping it when
// the connection is gone or its queue is full.
func (h *Hub) SendToConnection(connID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[presence] Failed to marshal %s event: %v", event.Type, err)
		return
	}

	select {
	case client.send <- data:
	default:
		log.Printf("[presence] Send queue full for %s, dropping %s", connID, event.Type)
	}
}

// GetActiveUsers returns the presence records for a document's room. An
// unknown room yields an empty list, never an error.
func (h *Hub) GetActiveUsers(documentType, documentID string) []ActiveUser {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[domain.RoomKey(documentType, documentID)]
	users := make([]ActiveUser, 0, len(members))
	for _, client := range members {
		users = append(users, client.record())
	}
	return users
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// submit hands a command to the loop. Blocks when the queue is full so the
// caller's ordering is preserved; returns without queueing once the hub has
// stopped.
func (h *Hub) submit(cmd command) {
	select {
	case h.commands <- cmd:
	case <-h.done:
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	log.Printf("[presence] Connection %s registered (user %s, total %d)",
		client.ID, client.Identity.UserID, len(h.clients))
}

func (h *Hub) handleUnregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		// Cleanup already ran for this connection.
		return
	}

	if client.room != "" {
		h.removeFromRoomLocked(client, client.room)
	}
	delete(h.clients, connID)
	close(client.send)
	log.Printf("[presence] Connection %s unregistered (total %d)", connID, len(h.clients))
}

func (h *Hub) handleJoin(change command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[change.connID]
	if !ok {
		return
	}

	newRoom := domain.RoomKey(change.documentType, change.documentID)

	if client.room != "" && client.room != newRoom {
		h.removeFromRoomLocked(client, client.room)
	}

	members := h.rooms[newRoom]
	if members == nil {
		members = make(map[string]*Client)
		h.rooms[newRoom] = members
	}
	members[client.ID] = client
	client.room = newRoom
	client.documentType = change.documentType
	client.documentID = change.documentID

	h.broadcastActiveUsersLocked(newRoom)
	log.Printf("[presence] Connection %s joined %s (%d present)", client.ID, newRoom, len(members))
}

func (h *Hub) handleLeave(change command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[change.connID]
	if !ok {
		return
	}

	room := domain.RoomKey(change.documentType, change.documentID)
	h.removeFromRoomLocked(client, room)

	if client.room == room {
		client.room = ""
		client.documentType = ""
		client.documentID = ""
	}
}

// removeFromRoomLocked removes the connection from a room by its connection
// id, broadcasts the updated list to the remaining members and deletes the
// room entry when it became empty.
func (h *Hub) removeFromRoomLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, in := members[client.ID]; !in {
		return
	}

	delete(members, client.ID)
	if len(members) == 0 {
		delete(h.rooms, room)
		log.Printf("[presence] Room %s is empty, removed", room)
		return
	}
	h.broadcastActiveUsersLocked(room)
}

func (h *Hub) handleEvent(ev roomEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := ev.room
	var sender *Client
	if ev.sender != "" {
		sender = h.clients[ev.sender]
	}
	if room == "" {
		// Resolve to the sender's current room. The single command queue
		// guarantees the sender has not yet processed any later join, so
		// this is the room the event was sent from.
		if sender == nil || sender.room == "" {
			return
		}
		room = sender.room
	}

	payload := ev.payload
	switch ev.event {
	case EventContentUpdate:
		content, _ := payload.(string)
		payload = ContentUpdatePayload{
			Content:   content,
			UserID:    sender.Identity.UserID,
			UserEmail: sender.Identity.Email,
			Timestamp: time.Now().Format(time.RFC3339),
		}
	case EventCursorUpdate:
		position, _ := payload.(json.RawMessage)
		payload = CursorUpdatePayload{
			UserID:        sender.Identity.UserID,
			UserEmail:     sender.Identity.Email,
			UserIniciales: sender.Identity.Iniciales,
			Position:      position,
		}
	case EventSelectionUpdate:
		selection, _ := payload.(json.RawMessage)
		payload = SelectionUpdatePayload{
			UserID:        sender.Identity.UserID,
			UserEmail:     sender.Identity.Email,
			UserIniciales: sender.Identity.Iniciales,
			Selection:     selection,
		}
	}

	h.sendToRoomLocked(room, ev.sender, Event{Type: ev.event, Payload: payload})
}

// broadcastActiveUsersLocked sends the room's full presence list to every
// member, including the connection that triggered the change.
func (h *Hub) broadcastActiveUsersLocked(room string) {
	members := h.rooms[room]
	users := make([]ActiveUser, 0, len(members))
	for _, client := range members {
		users = append(users, client.record())
	}
	h.sendToRoomLocked(room, "", Event{Type: EventActiveUsers, Payload: users})
}

// sendToRoomLocked marshals the event once and queues it for every member of
// the room except excludeConn.
func (h *Hub) sendToRoomLocked(room, excludeConn string, event Event) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[presence] Failed to marshal %s event: %v", event.Type, err)
		return
	}

	for connID, client := range members {
		if connID == excludeConn {
			continue
		}
		select {
		case client.send <- data:
		default:
			log.Printf("[presence] Send queue full for %s, dropping %s", connID, event.Type)
		}
	}
}

// closeAllClients closes all connected client queues on shutdown.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
}
