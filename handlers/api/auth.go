package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"unimail/config"
	"unimail/utils"
)

// AuthHandler issues and validates the proxy's bearer tokens. Revoked
// tokens are tracked in process memory; the set is pure session state
// and needs no teardown within a process lifetime.
type AuthHandler struct {
	config *config.Config

	mu      sync.Mutex
	revoked map[string]time.Time // token -> expiry, pruned lazily
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		config:  cfg,
		revoked: make(map[string]time.Time),
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// HandleLogin verifies the API password against its bcrypt hash and
// issues a signed token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	if h.config.Auth.PasswordHash == "" {
		return utils.UnauthorizedError("proxy authentication is not configured", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.config.Auth.PasswordHash), []byte(req.Password)); err != nil {
		return utils.UnauthorizedError("invalid credentials", nil)
	}

	ttl := time.Duration(h.config.Auth.TokenTTL) * time.Second
	claims := jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.config.Auth.JWTSecret))
	if err != nil {
		return utils.InternalServerError("failed to create token", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
	})
}

// HandleRevoke invalidates one previously issued token.
func (h *AuthHandler) HandleRevoke(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return utils.BadRequestError("token is required", err)
	}

	h.Revoke(req.Token)

	return c.JSON(fiber.Map{"success": true})
}

// Revoke marks a token invalid until it would have expired anyway.
func (h *AuthHandler) Revoke(token string) {
	expiry := time.Now().Add(time.Duration(h.config.Auth.TokenTTL) * time.Second)
	if claims := h.parseClaims(token); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiry = exp.Time
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.prune()
	h.revoked[token] = expiry
}

func (h *AuthHandler) isRevoked(token string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prune()
	_, ok := h.revoked[token]
	return ok
}

// prune drops revocation records for tokens already past expiry.
// Callers hold h.mu.
func (h *AuthHandler) prune() {
	now := time.Now()
	for token, expiry := range h.revoked {
		if now.After(expiry) {
			delete(h.revoked, token)
		}
	}
}

func (h *AuthHandler) parseClaims(token string) jwt.MapClaims {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.config.Auth.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}
	claims, _ := parsed.Claims.(jwt.MapClaims)
	return claims
}

// Middleware rejects requests without a valid, unrevoked bearer token.
func (h *AuthHandler) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return utils.UnauthorizedError("missing bearer token", nil)
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if h.parseClaims(token) == nil {
			return utils.UnauthorizedError("invalid or expired token", nil)
		}
		if h.isRevoked(token) {
			return utils.UnauthorizedError("token has been revoked", nil)
		}

		return c.Next()
	}
}
