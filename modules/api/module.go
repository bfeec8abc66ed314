package api

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/example/feria-collab/modules/auth"
	"github.com/example/feria-collab/modules/presence"
	"github.com/example/feria-collab/modules/sync"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app        *fiber.App
	authModule *auth.Module
	syncModule *sync.Module
	hub        *presence.Hub
	port       string
	wsLogger   *slog.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(authModule *auth.Module, syncModule *sync.Module, presenceModule *presence.Module) *APIModule {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	m := &APIModule{
		authModule: authModule,
		syncModule: syncModule,
		port:       port,
		wsLogger:   slog.Default(),
	}
	if presenceModule != nil {
		m.hub = presenceModule.Hub()
	}
	return m
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authModule == nil {
		return fmt.Errorf("auth module dependency not set")
	}
	if m.syncModule == nil {
		return fmt.Errorf("sync module dependency not set")
	}
	if m.hub == nil {
		return fmt.Errorf("presence hub dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	// Add recovery middleware
	m.app.Use(recover.New())

	// CORS configuration (editor clients run on a different origin)
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Add logging middleware
	m.app.Use(loggerMiddleware())

	// Setup routes
	m.setupRoutes()

	// Start server in goroutine
	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on :%s", m.port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":              m.port,
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// syncService returns the content sync service.
func (m *APIModule) syncService() *sync.Service {
	return m.syncModule.Service()
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		log.Printf("[api] %s %s %d", c.Method(), c.Path(), c.Response().StatusCode())
		return err
	}
}
