package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsguardian/backend/internal/config"
	"github.com/opsguardian/backend/pkg/apperrors"
)

const subjectKey = "auth_subject"

// AuthMiddleware validates agent bearer tokens. When no agent key hash is
// configured the middleware passes everything through, so local development
// works without credentials.
type AuthMiddleware struct {
	tokens  *TokenManager
	enabled bool
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, cfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, enabled: cfg.Enabled()}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if !m.enabled {
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if claims.Subject != SubjectAgent {
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(subjectKey, claims.Subject)
	return c.Next()
}

// SubjectFromContext retrieves the authenticated subject.
func SubjectFromContext(c *fiber.Ctx) (string, bool) {
	subject, ok := c.Locals(subjectKey).(string)
	return subject, ok
}

// VerifyAgentKey compares the presented pre-shared key against its bcrypt hash.
func VerifyAgentKey(hash, presented string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented))
}

// HashAgentKey hashes a pre-shared key for storage in configuration.
func HashAgentKey(key string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
