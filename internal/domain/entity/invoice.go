package entity

import (
	"strings"
	"time"

	"github.com/facturegen/facturx/internal/domain"
)

// Invoice est le formulaire de facture à générer.
// Construit par la couche d'entrée (HTTP ou CLI) à partir de données déjà
// désérialisées, muté une seule fois par le calculateur de taxes (totaux
// posés en place), puis consommé par les deux générateurs et abandonné.
// Aucune persistance à ce niveau.
type Invoice struct {
	InvoiceNumber string          // BT-1 : numéro de facture
	IssueDate     string          // BT-2 : date d'émission, AAAA-MM-JJ
	TypeCode      InvoiceTypeCode // BT-3 : type de document (380, 381, 384, 389)
	CurrencyCode  string          // BT-5 : devise ISO 4217

	DueDate                string // BT-9 : date d'échéance, AAAA-MM-JJ (optionnelle)
	PaymentTerms           string // BT-20 : conditions de paiement (optionnelles)
	BuyerReference         string // BT-10 : référence acheteur (optionnelle)
	PurchaseOrderReference string // BT-13 : référence du bon de commande (optionnelle)

	RecipientName        string // BT-44 : nom du destinataire
	RecipientSIRET       string // BT-47 : SIRET du destinataire
	RecipientVATNumber   string // BT-48 : TVA intracommunautaire (optionnelle)
	RecipientAddress     string // BT-50 : adresse du destinataire
	RecipientCountryCode string // BT-55 : code pays ISO 3166-1 alpha-2

	Lines []Line
}

// Validate contrôle l'intégralité du formulaire et retourne toutes les
// erreurs de champ trouvées (collecte exhaustive, jamais fail-fast).
// Décision produit : les lignes invalides sont signalées ici plutôt que
// silencieusement écartées, afin qu'une facture soumise ne produise jamais
// un document avec moins de lignes que saisies sans que l'appelant le sache.
func (inv *Invoice) Validate() []domain.FieldError {
	var errs []domain.FieldError
	add := func(field, msg string) {
		errs = append(errs, domain.NewFieldError(field, msg))
	}

	if !trimNonEmpty(inv.InvoiceNumber) {
		add("invoice_number", "le numéro de facture est obligatoire (BT-1)")
	}

	if !trimNonEmpty(inv.IssueDate) {
		add("issue_date", "la date d'émission est obligatoire (BT-2)")
	} else if !IsValidDate(inv.IssueDate) {
		add("issue_date", "format de date invalide (attendu: AAAA-MM-JJ)")
	}

	if _, ok := TypeCodeFromInt(inv.TypeCode.Code()); !ok {
		add("type_code", "type de document invalide. Valeurs acceptées: 380 (Facture), 381 (Avoir), 384 (Rectificative), 389 (Acompte)")
	}

	if !trimNonEmpty(inv.CurrencyCode) {
		add("currency_code", "le code devise est obligatoire (BT-5)")
	} else if !IsValidCurrencyCode(inv.CurrencyCode) {
		add("currency_code", "code devise invalide (format ISO 4217, ex: EUR)")
	}

	if trimNonEmpty(inv.DueDate) && !IsValidDate(inv.DueDate) {
		add("due_date", "format de date d'échéance invalide (attendu: AAAA-MM-JJ)")
	}

	if !trimNonEmpty(inv.RecipientName) {
		add("recipient_name", "le nom du destinataire est obligatoire (BT-44)")
	}

	if !trimNonEmpty(inv.RecipientSIRET) {
		add("recipient_siret", "le SIRET du destinataire est obligatoire")
	} else if !IsValidSIRET(inv.RecipientSIRET) {
		add("recipient_siret", "le SIRET doit contenir 14 chiffres")
	}

	if !trimNonEmpty(inv.RecipientCountryCode) {
		add("recipient_country_code", "le code pays du destinataire est obligatoire (BT-55)")
	} else if !IsValidCountryCode(inv.RecipientCountryCode) {
		add("recipient_country_code", "code pays invalide (format ISO 3166-1 alpha-2, ex: FR)")
	}

	if trimNonEmpty(inv.RecipientVATNumber) && !IsValidVATNumber(inv.RecipientVATNumber) {
		add("recipient_vat_number", "format de numéro TVA invalide (ex: FR12345678901)")
	}

	if len(inv.Lines) == 0 {
		add("lines", "la facture doit contenir au moins une ligne")
	} else {
		for i := range inv.Lines {
			errs = append(errs, inv.Lines[i].Validate(i)...)
		}
	}

	return errs
}

// ValidLines retourne les lignes satisfaisant l'invariant IsValid, dans
// l'ordre de saisie. Seules ces lignes alimentent les totaux et les rendus.
func (inv *Invoice) ValidLines() []*Line {
	out := make([]*Line, 0, len(inv.Lines))
	for i := range inv.Lines {
		if inv.Lines[i].IsValid() {
			out = append(out, &inv.Lines[i])
		}
	}
	return out
}

// IsValidSIRET vérifie qu'un SIRET contient exactement 14 chiffres
// (séparateurs tolérés et ignorés).
func IsValidSIRET(siret string) bool {
	return len(onlyDigits(siret)) == 14
}

// IsValidDate vérifie le format calendaire AAAA-MM-JJ.
func IsValidDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// IsValidCurrencyCode vérifie un code devise ISO 4217 (3 lettres majuscules).
func IsValidCurrencyCode(code string) bool {
	code = strings.TrimSpace(code)
	return len(code) == 3 && allUpperASCII(code)
}

// IsValidCountryCode vérifie un code pays ISO 3166-1 alpha-2.
func IsValidCountryCode(code string) bool {
	code = strings.TrimSpace(code)
	return len(code) == 2 && allUpperASCII(code)
}

// IsValidVATNumber vérifie la forme d'un numéro de TVA intracommunautaire :
// 2 lettres de code pays puis 2 à 13 caractères alphanumériques.
func IsValidVATNumber(vat string) bool {
	cleaned := make([]rune, 0, len(vat))
	for _, r := range vat {
		if r == ' ' || r == '.' || r == '-' {
			continue
		}
		cleaned = append(cleaned, r)
	}
	if len(cleaned) < 4 || len(cleaned) > 15 {
		return false
	}
	if !allUpperASCII(string(cleaned[:2])) {
		return false
	}
	for _, r := range cleaned[2:] {
		if !isAlphaNum(r) {
			return false
		}
	}
	return true
}

func trimNonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

func onlyDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func allUpperASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func isAlphaNum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}
