package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/feria-collab/modules/api"
	"github.com/example/feria-collab/modules/auth"
	"github.com/example/feria-collab/modules/cache"
	"github.com/example/feria-collab/modules/documentos"
	"github.com/example/feria-collab/modules/presence"
	"github.com/example/feria-collab/modules/sync"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Feria Collab - Realtime Document Collaboration ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	documentosModule := documentos.NewModule()
	cacheModule := cache.NewModule()
	authModule := auth.NewModule(documentosModule)
	presenceModule := presence.NewModule()
	syncModule := sync.NewModule(documentosModule, cacheModule)
	apiModule := api.NewModule(authModule, syncModule, presenceModule)

	// Register modules with the framework.
	// Order: storage first, then services, then the driving adapter
	// - documentos: GORM/SQLite persistence for proyectos and revisiones
	// - cache: optional Redis read cache for document content
	// - auth: JWT token issuing and validation
	// - presence: room membership hub + ContentSaved event consumer
	// - sync: content save/load service + ContentSaved event emitter
	// - api: Fiber HTTP/WebSocket server
	app.Register(documentosModule)
	app.Register(cacheModule)
	app.Register(authModule)
	app.Register(presenceModule)
	app.Register(syncModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Event-Driven Collaboration:")
	log.Println("  - ContentSaved events -> presence module -> document rooms")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                                    - Health check")
	log.Println("  POST   /api/v1/auth/login                         - Obtain token pair")
	log.Println("  POST   /api/v1/auth/refresh                       - Refresh tokens")
	log.Println("  POST   /api/v1/proyectos/:id/guardar              - Save project content")
	log.Println("  GET    /api/v1/proyectos/:id/contenido            - Load project content")
	log.Println("  POST   /api/v1/revisiones/:id/guardar             - Save revision content")
	log.Println("  GET    /api/v1/revisiones/:id/contenido           - Load revision content")
	log.Println("  GET    /api/v1/activos/:documentType/:documentId  - Active users in a room")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws?token=<access-token>):", port)
	log.Println("  Message types: join-document, leave-document, content-change,")
	log.Println("                 cursor-position, selection-change")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
