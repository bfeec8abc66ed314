package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/feria-collab/domain/usuario"
	"github.com/example/feria-collab/modules/documentos"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Service handles authentication business logic.
type Service struct {
	usuarios *documentos.UsuarioRepository
	hasher   *PasswordHasher
	jwt      *JWTManager
}

// NewService creates a new auth Service.
func NewService(usuarios *documentos.UsuarioRepository, hasher *PasswordHasher, jwt *JWTManager) *Service {
	return &Service{
		usuarios: usuarios,
		hasher:   hasher,
		jwt:      jwt,
	}
}

// Login authenticates a user and returns tokens.
func (s *Service) Login(_ context.Context, email, password string) (*TokenPair, error) {
	user, err := s.usuarios.FindByEmail(email)
	if err != nil {
		if errors.Is(err, documentos.ErrUsuarioNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(identityOf(user))
}

// RefreshTokens generates new access and refresh tokens.
func (s *Service) RefreshTokens(_ context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	// Re-read the user so renamed accounts get fresh display fields.
	user, err := s.usuarios.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, documentos.ErrUsuarioNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateTokenPair(identityOf(user))
}

// generateTokenPair generates both access and refresh tokens.
func (s *Service) generateTokenPair(id usuario.Identity) (*TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

func identityOf(u *usuario.Usuario) usuario.Identity {
	return usuario.Identity{
		UserID:    u.ID,
		Email:     u.Email,
		Nombre:    u.Nombre,
		Apellido:  u.Apellido,
		Iniciales: u.Iniciales,
		Avatar:    u.Avatar,
	}
}
