// Package middleware provides the fiber middleware shared by every route: identity,
// request context, logging and tracing.
package middleware

import (
	"strings"

	"pulse/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// UserID returns the viewer identity stored by the auth middleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
	})
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// subject verifies tokenString and returns its "sub" claim. Tokens are issued elsewhere;
// only verification happens here.
func subject(tokenString string) (string, string) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "Invalid or expired token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "Invalid token claims"
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", "Invalid token structure - missing subject"
	}
	return sub, ""
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return unauthorized(c, "Authorization header required")
	}
	token, ok := bearerToken(c)
	if !ok {
		return unauthorized(c, "Invalid authorization header format")
	}

	sub, problem := subject(token)
	if problem != "" {
		return unauthorized(c, problem)
	}

	c.Locals("userID", sub)
	return c.Next()
}

// WebSocketAuthRequired validates the token from the "token" query parameter, falling
// back to the Authorization header. Browsers cannot set headers on websocket upgrades.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		if c.Get("Authorization") == "" {
			return unauthorized(c, "Token required")
		}
		var ok bool
		if token, ok = bearerToken(c); !ok {
			return unauthorized(c, "Invalid authorization header format")
		}
	}

	sub, problem := subject(token)
	if problem != "" {
		return unauthorized(c, problem)
	}

	c.Locals("userID", sub)
	return c.Next()
}
