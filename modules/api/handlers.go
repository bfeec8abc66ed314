package api

import (
	"errors"
	"log"

	domain "github.com/example/feria-collab/domain/documento"
	"github.com/example/feria-collab/modules/auth"
	"github.com/example/feria-collab/modules/documentos"
	"github.com/example/feria-collab/modules/sync"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint. The token is validated during the upgrade request
	// so unauthenticated connections are rejected before the protocol switch.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		claims, err := m.authModule.JWT().ValidateAccessToken(handshakeToken(c))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// REST API v1
	api := m.app.Group("/api/v1")

	// Authentication
	api.Post("/auth/login", m.login)
	api.Post("/auth/refresh", m.refresh)

	// Protected routes
	protected := api.Group("", AuthMiddleware(m.authModule.JWT()))
	protected.Post("/proyectos/:id/guardar", m.guardarProyecto)
	protected.Get("/proyectos/:id/contenido", m.getProyectoContenido)
	protected.Post("/revisiones/:id/guardar", m.guardarRevision)
	protected.Get("/revisiones/:id/contenido", m.getRevisionContenido)
	protected.Get("/activos/:documentType/:documentId", m.getActiveUsers)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
			"active_rooms":      m.hub.RoomCount(),
		},
	})
}

// login handles POST /api/v1/auth/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	pair, err := m.authModule.Service().Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid email or password",
			})
		}
		log.Printf("[api] Login failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}

	return c.JSON(tokenResponse(pair))
}

// refresh handles POST /api/v1/auth/refresh.
func (m *APIModule) refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Refresh token is required",
		})
	}

	pair, err := m.authModule.Service().RefreshTokens(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.JSON(tokenResponse(pair))
}

// guardarProyecto handles POST /api/v1/proyectos/:id/guardar.
func (m *APIModule) guardarProyecto(c *fiber.Ctx) error {
	return m.guardarContenido(c, domain.TipoProyecto)
}

// guardarRevision handles POST /api/v1/revisiones/:id/guardar.
func (m *APIModule) guardarRevision(c *fiber.Ctx) error {
	return m.guardarContenido(c, domain.TipoRevision)
}

func (m *APIModule) guardarContenido(c *fiber.Ctx, documentType string) error {
	claims, ok := c.Locals(UserContextKey).(*auth.JWTClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "User not authenticated",
		})
	}

	var req GuardarRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	result, err := m.syncService().SaveContent(
		c.UserContext(), documentType, c.Params("id"), req.Contenido, claims.UserID,
	)
	if err != nil {
		return m.handleSyncError(c, err)
	}

	return c.JSON(GuardarResponse{
		DocumentType:         result.DocumentType,
		DocumentID:           result.DocumentID,
		ContenidoActualizado: result.ContenidoActualizado,
	})
}

// getProyectoContenido handles GET /api/v1/proyectos/:id/contenido.
func (m *APIModule) getProyectoContenido(c *fiber.Ctx) error {
	return m.getContenido(c, domain.TipoProyecto)
}

// getRevisionContenido handles GET /api/v1/revisiones/:id/contenido.
func (m *APIModule) getRevisionContenido(c *fiber.Ctx) error {
	return m.getContenido(c, domain.TipoRevision)
}

func (m *APIModule) getContenido(c *fiber.Ctx, documentType string) error {
	claims, ok := c.Locals(UserContextKey).(*auth.JWTClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "User not authenticated",
		})
	}

	result, err := m.syncService().GetContent(
		c.UserContext(), documentType, c.Params("id"), claims.UserID,
	)
	if err != nil {
		return m.handleSyncError(c, err)
	}

	return c.JSON(ContenidoResponse{
		DocumentType:         result.DocumentType,
		DocumentID:           result.DocumentID,
		Contenido:            result.Contenido,
		ContenidoActualizado: result.ContenidoActualizado,
		Archivos:             archivosResponse(result.Archivos),
	})
}

// getActiveUsers handles GET /api/v1/activos/:documentType/:documentId.
func (m *APIModule) getActiveUsers(c *fiber.Ctx) error {
	documentType := c.Params("documentType")
	documentID := c.Params("documentId")

	if !domain.TipoValido(documentType) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Unknown document type: " + documentType,
		})
	}

	users := m.hub.GetActiveUsers(documentType, documentID)
	return c.JSON(ActiveUsersResponse{
		DocumentType: documentType,
		DocumentID:   documentID,
		Users:        users,
		Total:        len(users),
	})
}

// handleSyncError maps content sync errors to HTTP responses.
func (m *APIModule) handleSyncError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, sync.ErrContenidoRequired):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Contenido is required",
		})
	case errors.Is(err, sync.ErrTipoInvalido):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Unknown document type",
		})
	case errors.Is(err, sync.ErrNoAutorizado):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "You are not a member of this project",
		})
	case errors.Is(err, documentos.ErrProyectoNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Proyecto not found",
		})
	case errors.Is(err, documentos.ErrRevisionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Revision not found",
		})
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

func tokenResponse(pair *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    pair.TokenType,
	}
}
