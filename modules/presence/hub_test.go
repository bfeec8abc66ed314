package presence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	domain "github.com/example/feria-collab/domain/documento"
	"github.com/example/feria-collab/domain/usuario"
)

const recvTimeout = 2 * time.Second

// startHub runs a hub for the duration of the test.
func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})
	return hub
}

func identity(userID, email, iniciales string) usuario.Identity {
	return usuario.Identity{
		UserID:    userID,
		Email:     email,
		Nombre:    "Test",
		Apellido:  "User",
		Iniciales: iniciales,
	}
}

// wireEvent mirrors the frame layout clients receive.
type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// recvEvent reads the next frame from a client's outbound queue.
func recvEvent(t *testing.T, c *Client) wireEvent {
	t.Helper()

	select {
	case data, ok := <-c.Send():
		if !ok {
			t.Fatal("send channel closed unexpectedly")
		}
		var ev wireEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		return ev
	case <-time.After(recvTimeout):
		t.Fatal("timed out waiting for event")
		return wireEvent{}
	}
}

// recvActiveUsers reads the next frame and requires it to be an active-users
// list, returning the decoded records.
func recvActiveUsers(t *testing.T, c *Client) []ActiveUser {
	t.Helper()

	ev := recvEvent(t, c)
	if ev.Type != EventActiveUsers {
		t.Fatalf("expected %s event, got %s", EventActiveUsers, ev.Type)
	}
	var users []ActiveUser
	if err := json.Unmarshal(ev.Payload, &users); err != nil {
		t.Fatalf("failed to unmarshal active users: %v", err)
	}
	return users
}

// assertNoEvent requires the client's queue to be empty.
func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case data := <-c.Send():
		t.Fatalf("expected no event, got %s", data)
	default:
	}
}

func TestHub_JoinBroadcastsActiveUsers(t *testing.T) {
	hub := startHub(t)

	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	c2 := NewClient("conn-2", identity("user-2", "luis@feria.edu", "LM"))
	hub.Register(c1)
	hub.Register(c2)

	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-1")
	users := recvActiveUsers(t, c1)
	if len(users) != 1 {
		t.Fatalf("expected 1 active user, got %d", len(users))
	}

	hub.JoinDocument("conn-2", domain.TipoProyecto, "doc-1")

	// Both members receive the updated list, including the joiner.
	for _, c := range []*Client{c1, c2} {
		users := recvActiveUsers(t, c)
		if len(users) != 2 {
			t.Fatalf("expected 2 active users, got %d", len(users))
		}
	}

	got := hub.GetActiveUsers(domain.TipoProyecto, "doc-1")
	if len(got) != 2 {
		t.Errorf("GetActiveUsers() returned %d records, want 2", len(got))
	}
}

func TestHub_SameUserTwoConnections(t *testing.T) {
	hub := startHub(t)

	// Same user in two tabs: one presence record per connection.
	id := identity("user-1", "ana@feria.edu", "AG")
	c1 := NewClient("conn-1", id)
	c2 := NewClient("conn-2", id)
	hub.Register(c1)
	hub.Register(c2)

	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-1")
	recvActiveUsers(t, c1)
	hub.JoinDocument("conn-2", domain.TipoProyecto, "doc-1")
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c2)

	if got := hub.GetActiveUsers(domain.TipoProyecto, "doc-1"); len(got) != 2 {
		t.Fatalf("expected 2 records for the same user, got %d", len(got))
	}

	// Closing one tab must not remove the other.
	hub.Unregister("conn-1")
	users := recvActiveUsers(t, c2)
	if len(users) != 1 {
		t.Fatalf("expected 1 remaining record, got %d", len(users))
	}
	if users[0].ConnectionID != "conn-2" {
		t.Errorf("expected remaining connection conn-2, got %s", users[0].ConnectionID)
	}
}

func TestHub_ContentChangeExcludesSender(t *testing.T) {
	hub := startHub(t)

	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	c2 := NewClient("conn-2", identity("user-2", "luis@feria.edu", "LM"))
	c3 := NewClient("conn-3", identity("user-3", "sofia@feria.edu", "SR"))
	for _, c := range []*Client{c1, c2, c3} {
		hub.Register(c)
		hub.JoinDocument(c.ID, domain.TipoProyecto, "doc-1")
	}

	// Drain the membership broadcasts.
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c2)
	recvActiveUsers(t, c2)
	recvActiveUsers(t, c3)

	hub.BroadcastContentChange("conn-1", "<p>hola</p>")

	for _, c := range []*Client{c2, c3} {
		ev := recvEvent(t, c)
		if ev.Type != EventContentUpdate {
			t.Fatalf("expected %s, got %s", EventContentUpdate, ev.Type)
		}
		var payload ContentUpdatePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("failed to unmarshal payload: %v", err)
		}
		if payload.Content != "<p>hola</p>" {
			t.Errorf("expected content %q, got %q", "<p>hola</p>", payload.Content)
		}
		if payload.UserID != "user-1" {
			t.Errorf("expected sender user-1, got %s", payload.UserID)
		}
		if payload.UserEmail != "ana@feria.edu" {
			t.Errorf("expected sender email ana@feria.edu, got %s", payload.UserEmail)
		}
	}

	// The receivers got the frame, so the fan-out has completed. The sender
	// must not have received its own change.
	assertNoEvent(t, c1)
}

func TestHub_ContentStaysInRoomItWasSentFrom(t *testing.T) {
	hub := startHub(t)

	// c1 and c2 share room doc-A; c3 sits alone in doc-B.
	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	c2 := NewClient("conn-2", identity("user-2", "luis@feria.edu", "LM"))
	c3 := NewClient("conn-3", identity("user-3", "sofia@feria.edu", "SR"))
	for _, c := range []*Client{c1, c2, c3} {
		hub.Register(c)
	}
	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-A")
	hub.JoinDocument("conn-2", domain.TipoProyecto, "doc-A")
	hub.JoinDocument("conn-3", domain.TipoProyecto, "doc-B")
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c2)
	recvActiveUsers(t, c3)

	// Pile commands up so the loop is still draining when the room switch
	// arrives. The switch must not overtake the earlier typing events.
	const queued = 50
	for i := 0; i < queued; i++ {
		hub.BroadcastCursorPosition("conn-1", json.RawMessage(`{"line":1,"column":1}`))
	}
	hub.BroadcastContentChange("conn-1", "<p>solo para doc-A</p>")
	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-B")

	// c2 sees every queued event, then the content, then c1 leaving.
	for i := 0; i < queued; i++ {
		if ev := recvEvent(t, c2); ev.Type != EventCursorUpdate {
			t.Fatalf("event %d: expected %s, got %s", i, EventCursorUpdate, ev.Type)
		}
	}
	ev := recvEvent(t, c2)
	if ev.Type != EventContentUpdate {
		t.Fatalf("expected %s in the old room, got %s", EventContentUpdate, ev.Type)
	}
	var payload ContentUpdatePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.Content != "<p>solo para doc-A</p>" {
		t.Errorf("expected content %q, got %q", "<p>solo para doc-A</p>", payload.Content)
	}
	if users := recvActiveUsers(t, c2); len(users) != 1 {
		t.Fatalf("expected 1 user left in doc-A, got %d", len(users))
	}

	// c3's first frame must be the membership update for c1's arrival. The
	// typing from doc-A never reaches doc-B.
	if users := recvActiveUsers(t, c3); len(users) != 2 {
		t.Fatalf("expected 2 users in doc-B after the switch, got %d", len(users))
	}
	assertNoEvent(t, c3)
}

func TestHub_CursorPositionExcludesSender(t *testing.T) {
	hub := startHub(t)

	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	c2 := NewClient("conn-2", identity("user-2", "luis@feria.edu", "LM"))
	hub.Register(c1)
	hub.Register(c2)
	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-1")
	hub.JoinDocument("conn-2", domain.TipoProyecto, "doc-1")
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c2)

	hub.BroadcastCursorPosition("conn-1", json.RawMessage(`{"line":3,"column":14}`))

	ev := recvEvent(t, c2)
	if ev.Type != EventCursorUpdate {
		t.Fatalf("expected %s, got %s", EventCursorUpdate, ev.Type)
	}
	var payload CursorUpdatePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.UserIniciales != "AG" {
		t.Errorf("expected iniciales AG, got %s", payload.UserIniciales)
	}
	if string(payload.Position) != `{"line":3,"column":14}` {
		t.Errorf("unexpected position: %s", payload.Position)
	}

	assertNoEvent(t, c1)
}

func TestHub_EmptyRoomRemoved(t *testing.T) {
	hub := startHub(t)

	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	hub.Register(c1)
	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-1")
	recvActiveUsers(t, c1)

	if hub.RoomCount() != 1 {
		t.Fatalf("expected 1 room, got %d", hub.RoomCount())
	}

	hub.LeaveDocument("conn-1", domain.TipoProyecto, "doc-1")

	// The connection stays registered and can join again. The loop processes
	// the leave before this join, so the broadcast below confirms both.
	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-2")
	users := recvActiveUsers(t, c1)
	if len(users) != 1 {
		t.Errorf("expected 1 active user after rejoin, got %d", len(users))
	}

	if hub.RoomCount() != 1 {
		t.Errorf("expected only the new room to remain, got %d rooms", hub.RoomCount())
	}
	if got := hub.GetActiveUsers(domain.TipoProyecto, "doc-1"); len(got) != 0 {
		t.Errorf("expected no active users in the left room, got %d", len(got))
	}
}

func TestHub_JoinSwitchesRooms(t *testing.T) {
	hub := startHub(t)

	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	c2 := NewClient("conn-2", identity("user-2", "luis@feria.edu", "LM"))
	hub.Register(c1)
	hub.Register(c2)
	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-1")
	hub.JoinDocument("conn-2", domain.TipoProyecto, "doc-1")
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c2)

	// Joining another document implicitly leaves the first room.
	hub.JoinDocument("conn-1", domain.TipoRevision, "rev-9")

	users := recvActiveUsers(t, c2)
	if len(users) != 1 {
		t.Fatalf("expected 1 user left in old room, got %d", len(users))
	}
	if users[0].ConnectionID != "conn-2" {
		t.Errorf("expected conn-2 to remain, got %s", users[0].ConnectionID)
	}

	users = recvActiveUsers(t, c1)
	if len(users) != 1 || users[0].ConnectionID != "conn-1" {
		t.Fatalf("expected conn-1 alone in new room, got %+v", users)
	}

	if got := hub.GetActiveUsers(domain.TipoRevision, "rev-9"); len(got) != 1 {
		t.Errorf("expected 1 user in new room, got %d", len(got))
	}
}

func TestHub_UnregisterClosesSendAndIsIdempotent(t *testing.T) {
	hub := startHub(t)

	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	hub.Register(c1)
	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-1")
	recvActiveUsers(t, c1)

	hub.Unregister("conn-1")
	hub.Unregister("conn-1") // duplicate cleanup must be a no-op

	select {
	case _, ok := <-c1.Send():
		if ok {
			t.Error("expected closed send channel, got frame")
		}
	case <-time.After(recvTimeout):
		t.Error("timed out waiting for send channel close")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.RoomCount() != 0 {
		t.Errorf("expected 0 rooms, got %d", hub.RoomCount())
	}
}

func TestHub_NotifyContentSaved(t *testing.T) {
	hub := startHub(t)

	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	c2 := NewClient("conn-2", identity("user-2", "luis@feria.edu", "LM"))
	hub.Register(c1)
	hub.Register(c2)
	hub.JoinDocument("conn-1", domain.TipoProyecto, "doc-1")
	hub.JoinDocument("conn-2", domain.TipoRevision, "rev-9")
	recvActiveUsers(t, c1)
	recvActiveUsers(t, c2)

	ts := time.Now()
	hub.NotifyContentSaved(domain.TipoProyecto, "doc-1", ts, "user-2")

	ev := recvEvent(t, c1)
	if ev.Type != EventContentSaved {
		t.Fatalf("expected %s, got %s", EventContentSaved, ev.Type)
	}
	var payload map[string]any
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload["documentId"] != "doc-1" {
		t.Errorf("expected documentId doc-1, got %v", payload["documentId"])
	}
	if payload["savedBy"] != "user-2" {
		t.Errorf("expected savedBy user-2, got %v", payload["savedBy"])
	}

	// Revision saves use the revisionId key and go to the revision room only.
	hub.NotifyContentSaved(domain.TipoRevision, "rev-9", ts, "user-1")

	ev = recvEvent(t, c2)
	if ev.Type != EventContentSaved {
		t.Fatalf("expected %s, got %s", EventContentSaved, ev.Type)
	}
	payload = map[string]any{}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload["revisionId"] != "rev-9" {
		t.Errorf("expected revisionId rev-9, got %v", payload["revisionId"])
	}
	if _, ok := payload["documentId"]; ok {
		t.Error("revision save should not carry documentId")
	}

	assertNoEvent(t, c1)
}

func TestHub_GetActiveUsersUnknownRoom(t *testing.T) {
	hub := startHub(t)

	users := hub.GetActiveUsers(domain.TipoProyecto, "nope")
	if users == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(users) != 0 {
		t.Errorf("expected 0 users, got %d", len(users))
	}
}

func TestHub_SendToConnection(t *testing.T) {
	hub := startHub(t)

	c1 := NewClient("conn-1", identity("user-1", "ana@feria.edu", "AG"))
	hub.Register(c1)

	hub.SendToConnection("conn-1", Event{
		Type:    "error",
		Payload: map[string]string{"message": "Invalid message format"},
	})

	ev := recvEvent(t, c1)
	if ev.Type != "error" {
		t.Fatalf("expected error event, got %s", ev.Type)
	}

	// Unknown connections are ignored.
	hub.SendToConnection("conn-unknown", Event{Type: "error"})
}
