// Package dto définit les structures de transport JSON de l'API et leur
// conversion vers les entités du domaine.
package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/internal/domain/entity"
)

// GenerateInvoiceRequest body pour POST /api/invoices.
// Les montants acceptent indifféremment un nombre JSON ou une chaîne
// ("19.99" évite les surprises du flottant côté client).
type GenerateInvoiceRequest struct {
	InvoiceNumber string `json:"invoice_number"`
	IssueDate     string `json:"issue_date"` // AAAA-MM-JJ
	TypeCode      int    `json:"type_code,omitempty"`
	CurrencyCode  string `json:"currency_code,omitempty"`

	DueDate                string `json:"due_date,omitempty"`
	PaymentTerms           string `json:"payment_terms,omitempty"`
	BuyerReference         string `json:"buyer_reference,omitempty"`
	PurchaseOrderReference string `json:"purchase_order_reference,omitempty"`

	RecipientName        string `json:"recipient_name"`
	RecipientSIRET       string `json:"recipient_siret"`
	RecipientVATNumber   string `json:"recipient_vat_number,omitempty"`
	RecipientAddress     string `json:"recipient_address,omitempty"`
	RecipientCountryCode string `json:"recipient_country_code,omitempty"`

	Lines []InvoiceLineRequest `json:"lines"`
}

// InvoiceLineRequest ligne de facture dans la requête.
type InvoiceLineRequest struct {
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPriceHT  decimal.Decimal `json:"unit_price_ht"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	Discount     decimal.Decimal `json:"discount,omitempty"`
	DiscountType string          `json:"discount_type,omitempty"` // percent | amount
}

// ToEntity convertit la requête en entité du domaine, en posant les valeurs
// par défaut du transport (facture 380, devise EUR, pays FR). Le type de
// document et le type de remise sont contrôlés ici car leur forme conditionne
// la construction même de l'entité ; tout le reste relève de Validate().
func (r *GenerateInvoiceRequest) ToEntity() (*entity.Invoice, []domain.FieldError) {
	var errs []domain.FieldError

	typeCode := entity.TypeInvoice
	if r.TypeCode != 0 {
		tc, ok := entity.TypeCodeFromInt(r.TypeCode)
		if !ok {
			errs = append(errs, domain.NewFieldError("type_code",
				"type de document invalide. Valeurs acceptées: 380 (Facture), 381 (Avoir), 384 (Rectificative), 389 (Acompte)"))
		} else {
			typeCode = tc
		}
	}

	currency := r.CurrencyCode
	if currency == "" {
		currency = "EUR"
	}
	country := r.RecipientCountryCode
	if country == "" {
		country = "FR"
	}

	lines := make([]entity.Line, 0, len(r.Lines))
	for i, l := range r.Lines {
		kind := entity.DiscountType("")
		if l.DiscountType != "" {
			k, ok := entity.DiscountTypeFromString(l.DiscountType)
			if !ok {
				errs = append(errs, domain.NewFieldError(
					fieldAt(i, "discount_type"),
					"type de remise inconnu (percent ou amount)"))
			} else {
				kind = k
			}
		} else if l.Discount.IsPositive() {
			// Remise sans type explicite : pourcentage, comme le formulaire web.
			kind = entity.DiscountPercent
		}
		lines = append(lines, entity.Line{
			Description:   l.Description,
			Quantity:      l.Quantity,
			UnitPriceHT:   l.UnitPriceHT,
			VATRate:       l.VATRate,
			DiscountValue: l.Discount,
			DiscountKind:  kind,
		})
	}

	inv := &entity.Invoice{
		InvoiceNumber:          r.InvoiceNumber,
		IssueDate:              r.IssueDate,
		TypeCode:               typeCode,
		CurrencyCode:           currency,
		DueDate:                r.DueDate,
		PaymentTerms:           r.PaymentTerms,
		BuyerReference:         r.BuyerReference,
		PurchaseOrderReference: r.PurchaseOrderReference,
		RecipientName:          r.RecipientName,
		RecipientSIRET:         r.RecipientSIRET,
		RecipientVATNumber:     r.RecipientVATNumber,
		RecipientAddress:       r.RecipientAddress,
		RecipientCountryCode:   country,
		Lines:                  lines,
	}
	return inv, errs
}

// ValidationResponse réponse de POST /api/invoices/validate.
type ValidationResponse struct {
	Valid  bool                `json:"valid"`
	Errors []domain.FieldError `json:"errors"`
}

func fieldAt(index int, field string) string {
	return fmt.Sprintf("lines[%d][%s]", index, field)
}
