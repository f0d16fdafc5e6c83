package handlers

import (
	"github.com/gofiber/fiber/v2"

	"catalog/internal/domain"
	appError "catalog/internal/shared/error"
)

type AuthHandler struct {
	authorizer *domain.Authorizer
}

func NewAuthHandler(authorizer *domain.Authorizer) *AuthHandler {
	return &AuthHandler{authorizer: authorizer}
}

// Authorize serves POST /authorize for gateways that delegate token checks.
// The body is an AuthorizerRequest; the response is the policy decision.
func (h *AuthHandler) Authorize(c *fiber.Ctx) error {
	var req domain.AuthorizerRequest
	if err := c.BodyParser(&req); err != nil {
		return appError.ErrUnauthorized
	}

	decision, err := h.authorizer.Authorize(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(decision)
}
