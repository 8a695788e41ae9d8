package http

import (
	"github.com/gofiber/fiber/v2"

	appfx "github.com/facturegen/facturx/internal/application/facturx"
)

// RouterDeps dépendances pour le routeur.
type RouterDeps struct {
	GenerateUC *appfx.GenerateUseCase
	AppName    string
	Version    string
}

// Router enregistre les routes de l'API.
func Router(app *fiber.App, deps RouterDeps) {
	// Sonde de vivacité (publique)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"app":     deps.AppName,
			"version": deps.Version,
		})
	})

	api := app.Group("/api")

	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.GenerateUC)
	invoices.Post("/", invoiceHandler.Generate)
	invoices.Post("/validate", invoiceHandler.Validate)
	invoices.Post("/extract", invoiceHandler.ExtractXML)
}
