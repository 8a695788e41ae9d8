package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/facturegen/facturx/internal/application/dto"
	appfx "github.com/facturegen/facturx/internal/application/facturx"
	"github.com/facturegen/facturx/internal/domain"
)

// InvoiceHandler gère les requêtes HTTP de génération Factur-X.
type InvoiceHandler struct {
	uc *appfx.GenerateUseCase
}

// NewInvoiceHandler construit le handler.
func NewInvoiceHandler(uc *appfx.GenerateUseCase) *InvoiceHandler {
	return &InvoiceHandler{uc: uc}
}

// Generate valide le formulaire puis génère le PDF Factur-X complet.
// POST /api/invoices
//
// Réponses :
//   - 200 application/pdf          le document assemblé ;
//   - 400 ValidationResponse      si le formulaire contient des erreurs ;
//   - 422 ErrorResponse           si une date est mal formée (ErrFormat) ;
//   - 500 ErrorResponse           si l'assemblage du conteneur échoue.
func (h *InvoiceHandler) Generate(c *fiber.Ctx) error {
	var in dto.GenerateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps de requête illisible"})
	}

	inv, convErrs := in.ToEntity()
	fieldErrs := append(convErrs, h.uc.Validate(inv)...)
	if len(fieldErrs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationResponse{Valid: false, Errors: fieldErrs})
	}

	artifact, err := h.uc.Generate(c.Context(), inv)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		case errors.Is(err, domain.ErrFormat):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "FORMAT", Message: err.Error()})
		case errors.Is(err, domain.ErrLoad):
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "ASSETS", Message: "actifs de rendu indisponibles"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+artifact.Filename+`"`)
	return c.Send(artifact.PDF)
}

// Validate contrôle le formulaire sans générer de document.
// POST /api/invoices/validate
func (h *InvoiceHandler) Validate(c *fiber.Ctx) error {
	var in dto.GenerateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps de requête illisible"})
	}

	inv, convErrs := in.ToEntity()
	fieldErrs := append(convErrs, h.uc.Validate(inv)...)
	if fieldErrs == nil {
		fieldErrs = []domain.FieldError{}
	}
	return c.JSON(dto.ValidationResponse{Valid: len(fieldErrs) == 0, Errors: fieldErrs})
}

// ExtractXML relit le XML CII embarqué dans un PDF Factur-X soumis en corps
// de requête brut.
// POST /api/invoices/extract
func (h *InvoiceHandler) ExtractXML(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "PDF attendu en corps de requête"})
	}
	content, err := h.uc.ExtractXML(body)
	if err != nil {
		if errors.Is(err, domain.ErrContainer) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CONTAINER", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	c.Set(fiber.HeaderContentType, "text/xml; charset=utf-8")
	return c.Send(content)
}
