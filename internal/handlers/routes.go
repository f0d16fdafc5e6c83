package handlers

import (
	"github.com/gofiber/fiber/v2"

	"catalog/internal/config/di"
	"catalog/internal/shared/middleware"
)

// RegisterRoutes wires all HTTP routes to their handlers.
func RegisterRoutes(app *fiber.App, container *di.Container) {
	products := NewProductHandler(container.ProductService)
	app.Get("/products", products.ListProducts)
	app.Get("/products/:id", products.GetProduct)
	app.Post("/products", products.CreateProduct)

	imports := NewImportHandler(container.ImportService)
	app.Get("/import", middleware.Authorize(container.Authorizer), imports.IssueUploadURL)
	app.Post("/events/object-created", imports.ObjectCreated)

	auth := NewAuthHandler(container.Authorizer)
	app.Post("/authorize", auth.Authorize)
}
