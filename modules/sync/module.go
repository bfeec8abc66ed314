package sync

import (
	"context"
	"errors"
	"log"

	"github.com/example/feria-collab/events"
	"github.com/example/feria-collab/modules/cache"
	"github.com/example/feria-collab/modules/documentos"
	"github.com/go-monolith/mono"
)

// Module wires the content sync service into the application. Saves go
// through the documentos repositories and completed saves are announced on
// the event bus for the presence hub to rebroadcast.
type Module struct {
	docs     *documentos.Module
	cacheMod *cache.Module
	service  *Service
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new sync module.
func NewModule(docs *documentos.Module, cacheMod *cache.Module) *Module {
	return &Module{
		docs:     docs,
		cacheMod: cacheMod,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "sync"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ContentSavedV1.ToBase(),
	}
}

// Start builds the sync service.
func (m *Module) Start(_ context.Context) error {
	if m.docs == nil {
		return errors.New("documentos module dependency not set")
	}
	if m.eventBus == nil {
		return errors.New("event bus not set")
	}

	var contentCache *cache.Cache
	if m.cacheMod != nil {
		contentCache = m.cacheMod.Cache()
	}

	m.service = NewService(
		m.docs.Proyectos(),
		m.docs.Revisiones(),
		contentCache,
		func(event events.ContentSavedEvent) error {
			return events.ContentSavedV1.Publish(m.eventBus, event, nil)
		},
	)

	log.Println("[sync] Module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[sync] Module stopped")
	return nil
}

// Service returns the content sync service.
func (m *Module) Service() *Service {
	return m.service
}
