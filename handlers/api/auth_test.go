package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"unimail/config"
	"unimail/utils"
)

func newAuthApp(t *testing.T, password string) (*fiber.App, *AuthHandler) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.PasswordHash = string(hash)
	cfg.Auth.TokenTTL = 3600

	auth := NewAuthHandler(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var appErr *utils.AppError
			if errors.As(err, &appErr) {
				code = appErr.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	app.Post("/api/login", auth.HandleLogin)
	protected := app.Group("/api", auth.Middleware())
	protected.Post("/revoke", auth.HandleRevoke)
	protected.Post("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})

	return app, auth
}

func doRequest(t *testing.T, app *fiber.App, path, token string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	return resp, decoded
}

func login(t *testing.T, app *fiber.App, password string) string {
	t.Helper()

	resp, body := doRequest(t, app, "/api/login", "", fiber.Map{"password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, ok := body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func TestLoginIssuesUsableToken(t *testing.T) {
	app, _ := newAuthApp(t, "hunter2")

	token := login(t, app, "hunter2")

	resp, body := doRequest(t, app, "/api/ping", token, fiber.Map{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	app, _ := newAuthApp(t, "hunter2")

	resp, body := doRequest(t, app, "/api/login", "", fiber.Map{"password": "letmein"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestLoginRejectedWhenNoPasswordConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	auth := NewAuthHandler(cfg)

	app := fiber.New()
	app.Post("/api/login", func(c *fiber.Ctx) error {
		if err := auth.HandleLogin(c); err != nil {
			var appErr *utils.AppError
			require.True(t, errors.As(err, &appErr))
			return c.Status(appErr.Code).JSON(fiber.Map{"success": false})
		}
		return nil
	})

	resp, _ := doRequest(t, app, "/api/login", "", fiber.Map{"password": "anything"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	app, _ := newAuthApp(t, "hunter2")

	resp, body := doRequest(t, app, "/api/ping", "", fiber.Map{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	app, _ := newAuthApp(t, "hunter2")

	resp, _ := doRequest(t, app, "/api/ping", "not-a-jwt", fiber.Map{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsForeignSignature(t *testing.T) {
	app, _ := newAuthApp(t, "hunter2")

	claims := jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	resp, _ := doRequest(t, app, "/api/ping", foreign, fiber.Map{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	app, _ := newAuthApp(t, "hunter2")

	claims := jwt.MapClaims{
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	resp, _ := doRequest(t, app, "/api/ping", expired, fiber.Map{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRevokedTokenIsRejected(t *testing.T) {
	app, auth := newAuthApp(t, "hunter2")

	token := login(t, app, "hunter2")

	resp, _ := doRequest(t, app, "/api/revoke", token, fiber.Map{"token": token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.True(t, auth.isRevoked(token))

	resp, body := doRequest(t, app, "/api/ping", token, fiber.Map{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body["error"], "revoked")
}

func TestRevokeRequiresToken(t *testing.T) {
	app, _ := newAuthApp(t, "hunter2")

	token := login(t, app, "hunter2")

	resp, _ := doRequest(t, app, "/api/revoke", token, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
