package auth

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/example/feria-collab/modules/documentos"
	"github.com/go-monolith/mono"
)

// Module provides the connection authenticator: JWT issuing and validation.
type Module struct {
	docs    *documentos.Module
	jwt     *JWTManager
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new auth module backed by the documentos user store.
func NewModule(docs *documentos.Module) *Module {
	return &Module{
		docs: docs,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Start wires the JWT manager and login service.
func (m *Module) Start(_ context.Context) error {
	if m.docs == nil {
		return fmt.Errorf("documentos module dependency not set")
	}

	m.jwt = NewJWTManager(loadJWTConfig())
	m.service = NewService(m.docs.Usuarios(), NewPasswordHasher(loadHashCost()), m.jwt)

	log.Println("[auth] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// JWT returns the JWT manager for handshake validation.
func (m *Module) JWT() *JWTManager {
	return m.jwt
}

// Service returns the login service.
func (m *Module) Service() *Service {
	return m.service
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.SecretKey = secret
	}

	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	return config
}
