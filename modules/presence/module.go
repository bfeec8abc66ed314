package presence

import (
	"context"
	"fmt"
	"log"

	"github.com/example/feria-collab/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module owns the hub lifecycle and bridges durable-save events into room
// broadcasts.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new presence module.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presence"
}

// Start launches the hub loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[presence] Module started - hub running")
	return nil
}

// Stop shuts down the hub.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[presence] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"active_rooms":      m.hub.RoomCount(),
		},
	}
}

// RegisterEventConsumers subscribes the hub to durable-save notifications.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ContentSavedV1, m.handleContentSaved, m,
	); err != nil {
		return fmt.Errorf("failed to register ContentSaved consumer: %w", err)
	}

	log.Println("[presence] Registered event consumers: ContentSaved")
	return nil
}

// handleContentSaved rebroadcasts a durable save to the document's room.
func (m *Module) handleContentSaved(_ context.Context, event events.ContentSavedEvent, _ *mono.Msg) error {
	m.hub.NotifyContentSaved(event.DocumentType, event.DocumentID, event.Timestamp, event.SavedBy)
	return nil
}

// Hub returns the hub for the API module to use.
func (m *Module) Hub() *Hub {
	return m.hub
}
