package api

import (
	"strings"

	"github.com/example/feria-collab/modules/auth"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store the JWT claims in the Fiber
	// context once the request is authenticated.
	UserContextKey = "user"
)

// AuthMiddleware creates a middleware that validates JWT access tokens on
// the Authorization header.
func AuthMiddleware(jwt *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: err.Error(),
			})
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization header is required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format. Use: Bearer <token>")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Token is required")
	}
	return token, nil
}

// handshakeToken extracts the token presented on a WebSocket upgrade. The
// browser WebSocket API cannot set headers, so the query string is checked
// first, with the Authorization header as a fallback for non-browser clients.
func handshakeToken(c *fiber.Ctx) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	if token, err := bearerToken(c); err == nil {
		return token
	}
	return ""
}
