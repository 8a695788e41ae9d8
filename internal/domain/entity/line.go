package entity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/facturegen/facturx/internal/domain"
)

// Line représente une ligne facturable.
// Les champs calculés (DiscountTotal, TotalHT, TotalVAT, TotalTTC) sont nil
// tant que le calculateur de taxes n'a pas été exécuté.
type Line struct {
	Description   string
	Quantity      decimal.Decimal
	UnitPriceHT   decimal.Decimal
	VATRate       decimal.Decimal // Taux de TVA en pourcentage (0 à 100)
	DiscountValue decimal.Decimal // Valeur de remise, interprétée selon DiscountKind
	DiscountKind  DiscountType    // Vide = pas de remise

	// Champs calculés par internal/domain/tax, absents avant calcul.
	DiscountTotal *decimal.Decimal
	TotalHT       *decimal.Decimal
	TotalVAT      *decimal.Decimal
	TotalTTC      *decimal.Decimal
}

// IsValid applique l'invariant métier Factur-X : une ligne n'est incluse
// dans les totaux et dans les deux rendus (XML et PDF) que si sa description
// est non vide, sa quantité et son prix unitaire strictement positifs et son
// taux de TVA non négatif. Les deux chemins de rendu utilisent ce même
// prédicat pour ne jamais diverger sur les lignes retenues.
func (l *Line) IsValid() bool {
	return trimNonEmpty(l.Description) &&
		l.Quantity.IsPositive() &&
		l.UnitPriceHT.IsPositive() &&
		!l.VATRate.IsNegative()
}

// Validate retourne les erreurs détaillées de la ligne, préfixées par son
// index (lines[i][champ]) pour que le formulaire web puisse cibler le champ.
func (l *Line) Validate(index int) []domain.FieldError {
	var errs []domain.FieldError
	add := func(field, msg string) {
		errs = append(errs, domain.NewFieldError(
			fmt.Sprintf("lines[%d][%s]", index, field), msg))
	}

	if !trimNonEmpty(l.Description) {
		add("description", "la description est obligatoire")
	}
	if !l.Quantity.IsPositive() {
		add("quantity", "la quantité doit être supérieure à 0")
	}
	if !l.UnitPriceHT.IsPositive() {
		add("unit_price_ht", "le prix unitaire HT doit être supérieur à 0")
	}
	if l.VATRate.IsNegative() {
		add("vat_rate", "le taux de TVA ne peut pas être négatif")
	}
	if l.VATRate.GreaterThan(decimal.NewFromInt(100)) {
		add("vat_rate", "le taux de TVA ne peut pas dépasser 100%")
	}
	if l.DiscountValue.IsNegative() {
		add("discount", "la remise ne peut pas être négative")
	}
	if l.DiscountKind != "" {
		if _, ok := DiscountTypeFromString(string(l.DiscountKind)); !ok {
			add("discount_type", "type de remise inconnu (percent ou amount)")
		}
	}
	return errs
}

// DiscountTotalValue retourne la remise calculée, zéro si absente.
func (l *Line) DiscountTotalValue() decimal.Decimal {
	if l.DiscountTotal == nil {
		return decimal.Zero
	}
	return *l.DiscountTotal
}

// TotalHTValue retourne le total HT calculé, zéro si absent.
func (l *Line) TotalHTValue() decimal.Decimal {
	if l.TotalHT == nil {
		return decimal.Zero
	}
	return *l.TotalHT
}

// TotalVATValue retourne la TVA calculée, zéro si absente.
func (l *Line) TotalVATValue() decimal.Decimal {
	if l.TotalVAT == nil {
		return decimal.Zero
	}
	return *l.TotalVAT
}

// TotalTTCValue retourne le total TTC calculé, zéro si absent.
func (l *Line) TotalTTCValue() decimal.Decimal {
	if l.TotalTTC == nil {
		return decimal.Zero
	}
	return *l.TotalTTC
}
