package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulse/internal/config"
	"pulse/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func generateToken(t *testing.T, sub string, exp time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": time.Now().Add(exp).Unix()}
	if sub != "" {
		claims["sub"] = sub
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": UserID(c)})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID string
	}{
		{
			name:           "Happy Path",
			authHeader:     "Bearer " + generateToken(t, "5b0a9a53-0d55-4bd4-9a55-2b0f3c2c8f11", time.Hour),
			expectedStatus: http.StatusOK,
			expectedUserID: "5b0a9a53-0d55-4bd4-9a55-2b0f3c2c8f11",
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Format",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Token",
			authHeader:     "Bearer malformed.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + generateToken(t, "u1", -time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing Subject",
			authHeader:     "Bearer " + generateToken(t, "", time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedUserID, body["userID"])
			}
		})
	}
}

func TestAuthRequired_WrongSigningKey(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})
	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).
		SignedString([]byte("another-secret-another-secret-another"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})
	app.Get("/ws", WebSocketAuthRequired, func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+generateToken(t, "u1", time.Hour), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+generateToken(t, "u2", time.Hour))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestContextMiddleware_CorrelationID(t *testing.T) {
	app := fiber.New()
	app.Use(ContextMiddleware(), StructuredLogger(), TracingMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(observability.ExtractCorrelationID(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}
