package api

import (
	"time"

	domain "github.com/example/feria-collab/domain/documento"
	"github.com/example/feria-collab/modules/presence"
)

// LoginRequest is the API request to authenticate a user.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the API request to refresh a token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is the API response carrying a token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// GuardarRequest is the API request to save document content.
type GuardarRequest struct {
	Contenido string `json:"contenido"`
}

// GuardarResponse confirms a durable save.
type GuardarResponse struct {
	DocumentType         string    `json:"documentType"`
	DocumentID           string    `json:"documentId"`
	ContenidoActualizado time.Time `json:"contenidoActualizado"`
}

// ContenidoResponse is the persisted content plus its file metadata.
type ContenidoResponse struct {
	DocumentType         string            `json:"documentType"`
	DocumentID           string            `json:"documentId"`
	Contenido            string            `json:"contenido"`
	ContenidoActualizado time.Time         `json:"contenidoActualizado"`
	Archivos             []ArchivoResponse `json:"archivos"`
}

// ArchivoResponse is file metadata attached to a project.
type ArchivoResponse struct {
	ID       string `json:"id"`
	Nombre   string `json:"nombre"`
	URL      string `json:"url"`
	Tamano   int64  `json:"tamano"`
	MimeType string `json:"mimeType"`
}

// ActiveUsersResponse lists the connections present in a document room.
type ActiveUsersResponse struct {
	DocumentType string                `json:"documentType"`
	DocumentID   string                `json:"documentId"`
	Users        []presence.ActiveUser `json:"users"`
	Total        int                   `json:"total"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

func archivosResponse(archivos []domain.Archivo) []ArchivoResponse {
	out := make([]ArchivoResponse, 0, len(archivos))
	for _, a := range archivos {
		out = append(out, ArchivoResponse{
			ID:       a.ID,
			Nombre:   a.Nombre,
			URL:      a.URL,
			Tamano:   a.Tamano,
			MimeType: a.MimeType,
		})
	}
	return out
}
