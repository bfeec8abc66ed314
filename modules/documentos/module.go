package documentos

import (
	"context"
	"fmt"
	"log"
	"os"

	docdomain "github.com/example/feria-collab/domain/documento"
	userdomain "github.com/example/feria-collab/domain/usuario"
	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Module owns the relational store for proyectos, revisiones, usuarios and
// archivos. Other modules reach it through the repository accessors.
type Module struct {
	db         *gorm.DB
	dbPath     string
	proyectos  *ProyectoRepository
	revisiones *RevisionRepository
	usuarios   *UsuarioRepository
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new documentos module.
func NewModule() *Module {
	dbPath := os.Getenv("FERIA_DB_PATH")
	if dbPath == "" {
		dbPath = "feria.db"
	}
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "documentos"
}

// Start opens the database and migrates the schema.
func (m *Module) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(
		&userdomain.Usuario{},
		&docdomain.Proyecto{},
		&docdomain.Revision{},
		&docdomain.Miembro{},
		&docdomain.Archivo{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.proyectos = NewProyectoRepository(db)
	m.revisiones = NewRevisionRepository(db)
	m.usuarios = NewUsuarioRepository(db)

	log.Printf("[documentos] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[documentos] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// Proyectos returns the project repository.
func (m *Module) Proyectos() *ProyectoRepository {
	return m.proyectos
}

// Revisiones returns the revision repository.
func (m *Module) Revisiones() *RevisionRepository {
	return m.revisiones
}

// Usuarios returns the user repository.
func (m *Module) Usuarios() *UsuarioRepository {
	return m.usuarios
}

// DB returns the underlying GORM handle.
func (m *Module) DB() *gorm.DB {
	return m.db
}
