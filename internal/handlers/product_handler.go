package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"catalog/internal/domain"
	appError "catalog/internal/shared/error"
	logger "catalog/internal/shared/log"
)

type ProductHandler struct {
	service *domain.ProductService
}

func NewProductHandler(service *domain.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// ListProducts serves GET /products.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// GetProduct serves GET /products/:id.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// CreateProduct serves POST /products. Validation failures list every
// violated rule; storage failures are reported without internal detail.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	ctx := c.UserContext()

	body := c.Body()
	if len(body) == 0 {
		return appError.ErrMissingBody
	}

	candidate, err := domain.CandidateFromJSON(body)
	if err != nil {
		logger.Warnf(ctx, "Rejected product body: %v", err)
		return appError.ErrInvalidRequestBody
	}

	product, err := h.service.CreateFromCandidate(ctx, candidate)
	if err != nil {
		var customErr *appError.CustomError
		if errors.As(err, &customErr) {
			return customErr
		}
		return appError.ErrPersistence.WithCause(err)
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}
