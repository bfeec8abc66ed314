package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domain "github.com/example/feria-collab/domain/documento"
	"github.com/example/feria-collab/events"
	"github.com/example/feria-collab/modules/cache"
	"github.com/example/feria-collab/modules/documentos"
)

var (
	// ErrContenidoRequired is returned when a save carries empty content.
	ErrContenidoRequired = errors.New("contenido is required")
	// ErrNoAutorizado is returned when the user is not a member of the
	// owning project.
	ErrNoAutorizado = errors.New("usuario is not a member of the project")
	// ErrTipoInvalido is returned for an unknown document type.
	ErrTipoInvalido = errors.New("unknown document type")
)

// Publisher delivers a durable-save notification to the realtime layer.
type Publisher func(events.ContentSavedEvent) error

// SaveResult is what a successful save reports back to the HTTP caller.
type SaveResult struct {
	DocumentType         string    `json:"documentType"`
	DocumentID           string    `json:"documentId"`
	ContenidoActualizado time.Time `json:"contenidoActualizado"`
}

// ContentResult is the persisted content plus its file metadata.
type ContentResult struct {
	DocumentType         string           `json:"documentType"`
	DocumentID           string           `json:"documentId"`
	Contenido            string           `json:"contenido"`
	ContenidoActualizado time.Time        `json:"contenidoActualizado"`
	Archivos             []domain.Archivo `json:"archivos"`
}

// Service bridges the HTTP save path to the durable store and the realtime
// hub. Authorization and persistence run here, in the request goroutine,
// never inside the hub loop.
type Service struct {
	proyectos  *documentos.ProyectoRepository
	revisiones *documentos.RevisionRepository
	cache      *cache.Cache // nil when caching is disabled
	publish    Publisher
}

// NewService creates a new sync Service.
func NewService(
	proyectos *documentos.ProyectoRepository,
	revisiones *documentos.RevisionRepository,
	contentCache *cache.Cache,
	publish Publisher,
) *Service {
	return &Service{
		proyectos:  proyectos,
		revisiones: revisiones,
		cache:      contentCache,
		publish:    publish,
	}
}

// SaveContent validates, authorizes and persists new content for a document,
// then notifies the document's room that a durable save completed. On any
// failure before persistence nothing is stored and nothing is broadcast.
func (s *Service) SaveContent(ctx context.Context, documentType, documentID, contenido, userID string) (*SaveResult, error) {
	if !domain.TipoValido(documentType) {
		return nil, ErrTipoInvalido
	}
	if contenido == "" {
		return nil, ErrContenidoRequired
	}

	if _, err := s.authorize(documentType, documentID, userID); err != nil {
		return nil, err
	}

	ts := time.Now()
	switch documentType {
	case domain.TipoProyecto:
		if err := s.proyectos.SaveContenido(documentID, contenido, ts); err != nil {
			return nil, fmt.Errorf("failed to save proyecto content: %w", err)
		}
	case domain.TipoRevision:
		if err := s.revisiones.SaveContenido(documentID, contenido, ts); err != nil {
			return nil, fmt.Errorf("failed to save revision content: %w", err)
		}
	}

	s.invalidate(ctx, documentType, documentID)

	if err := s.publish(events.ContentSavedEvent{
		DocumentType: documentType,
		DocumentID:   documentID,
		Timestamp:    ts,
		SavedBy:      userID,
	}); err != nil {
		// The save is durable; a lost notification only delays peers until
		// their next poll.
		log.Printf("[sync] Failed to publish ContentSaved for %s:%s: %v", documentType, documentID, err)
	}

	return &SaveResult{
		DocumentType:         documentType,
		DocumentID:           documentID,
		ContenidoActualizado: ts,
	}, nil
}

// GetContent authorizes the caller and returns the persisted content plus
// file metadata. Read-only; no broadcast.
func (s *Service) GetContent(ctx context.Context, documentType, documentID, userID string) (*ContentResult, error) {
	if !domain.TipoValido(documentType) {
		return nil, ErrTipoInvalido
	}

	proyectoID, err := s.authorize(documentType, documentID, userID)
	if err != nil {
		return nil, err
	}

	cacheKey := domain.RoomKey(documentType, documentID)
	if s.cache != nil {
		var cached ContentResult
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("[sync] Cache read failed for %s: %v", cacheKey, err)
		} else if hit {
			return &cached, nil
		}
	}

	result := &ContentResult{
		DocumentType: documentType,
		DocumentID:   documentID,
	}

	switch documentType {
	case domain.TipoProyecto:
		p, err := s.proyectos.FindByID(documentID)
		if err != nil {
			return nil, err
		}
		result.Contenido = p.Contenido
		result.ContenidoActualizado = p.ContenidoActualizado
	case domain.TipoRevision:
		rev, err := s.revisiones.FindByID(documentID)
		if err != nil {
			return nil, err
		}
		result.Contenido = rev.Contenido
		result.ContenidoActualizado = rev.ContenidoActualizado
	}

	archivos, err := s.proyectos.FindArchivos(proyectoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load archivos: %w", err)
	}
	result.Archivos = archivos

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result); err != nil {
			log.Printf("[sync] Cache write failed for %s: %v", cacheKey, err)
		}
	}

	return result, nil
}

// authorize checks that the user has edit rights on the document and returns
// the owning project id. Rights on a revision resolve through its parent
// project's membership.
func (s *Service) authorize(documentType, documentID, userID string) (string, error) {
	var proyectoID string

	switch documentType {
	case domain.TipoProyecto:
		if _, err := s.proyectos.FindByID(documentID); err != nil {
			return "", err
		}
		proyectoID = documentID
	case domain.TipoRevision:
		rev, err := s.revisiones.FindByID(documentID)
		if err != nil {
			return "", err
		}
		proyectoID = rev.ProyectoID
	default:
		return "", ErrTipoInvalido
	}

	esMiembro, err := s.proyectos.IsMiembro(proyectoID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to check membership: %w", err)
	}
	if !esMiembro {
		return "", ErrNoAutorizado
	}

	return proyectoID, nil
}

// invalidate drops the cached content for a document after a save. A read
// that was already in flight during the save can repopulate the key with the
// pre-save row, so staleness is bounded by the cache TTL, not zero.
func (s *Service) invalidate(ctx context.Context, documentType, documentID string) {
	if s.cache == nil {
		return
	}
	cacheKey := domain.RoomKey(documentType, documentID)
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		log.Printf("[sync] Cache invalidation failed for %s: %v", cacheKey, err)
	}
}
