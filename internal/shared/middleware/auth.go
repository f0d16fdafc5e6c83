package middleware

import (
	"github.com/gofiber/fiber/v2"

	"catalog/internal/domain"
	appError "catalog/internal/shared/error"
)

// Authorize guards a route with the request authorizer. The Authorization
// header is the token and "<METHOD> <path>" is the resource.
func Authorize(authorizer *domain.Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := authorizer.Authorize(c.UserContext(), domain.AuthorizerRequest{
			Type:               domain.TokenRequestType,
			AuthorizationToken: c.Get(fiber.HeaderAuthorization),
			MethodArn:          c.Method() + " " + c.Path(),
		})
		if err != nil {
			return err
		}
		if decision.Effect() != domain.EffectAllow {
			return appError.ErrForbidden
		}
		c.Locals(principalLocal, decision.PrincipalID)
		return c.Next()
	}
}
