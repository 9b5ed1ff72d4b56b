package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsguardian/backend/internal/api/dto"
	"github.com/opsguardian/backend/internal/auth"
	"github.com/opsguardian/backend/internal/config"
	"github.com/opsguardian/backend/pkg/apperrors"
)

// AuthHandler exchanges the agent's pre-shared key for a bearer token.
type AuthHandler struct {
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *auth.TokenManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{tokens: tokens, cfg: cfg}
}

// AgentToken POST /auth/agent/token.
func (h *AuthHandler) AgentToken(c *fiber.Ctx) error {
	if !h.cfg.Enabled() {
		return apperrors.NewUnauthorized("agent authentication not configured")
	}
	var req dto.AgentTokenRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return apperrors.NewInvalidPayload("key required", nil)
	}
	if err := auth.VerifyAgentKey(h.cfg.AgentKeyHash, req.Key); err != nil {
		return apperrors.NewUnauthorized("invalid agent key")
	}
	token, expiresAt, err := h.tokens.GenerateToken()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.AgentTokenResponse{Token: token, ExpiresAt: expiresAt}})
}
