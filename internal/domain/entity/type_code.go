package entity

// InvoiceTypeCode est le type de document Factur-X (codes UNTDID 1001).
// Énumération fermée : tout code hors liste est rejeté à la validation,
// jamais remplacé silencieusement par une valeur par défaut.
type InvoiceTypeCode int

const (
	TypeInvoice           InvoiceTypeCode = 380 // Facture commerciale
	TypeCreditNote        InvoiceTypeCode = 381 // Avoir
	TypeCorrectedInvoice  InvoiceTypeCode = 384 // Facture rectificative
	TypePrepaymentInvoice InvoiceTypeCode = 389 // Facture d'acompte
)

// TypeCodeFromInt convertit un code numérique en InvoiceTypeCode.
// Retourne false si le code n'appartient pas à l'énumération.
func TypeCodeFromInt(code int) (InvoiceTypeCode, bool) {
	switch InvoiceTypeCode(code) {
	case TypeInvoice, TypeCreditNote, TypeCorrectedInvoice, TypePrepaymentInvoice:
		return InvoiceTypeCode(code), true
	}
	return 0, false
}

// Code retourne la valeur numérique UNTDID 1001 (ex: 380).
func (c InvoiceTypeCode) Code() int { return int(c) }

// Label retourne le libellé du type de document pour l'affichage.
func (c InvoiceTypeCode) Label() string {
	switch c {
	case TypeCreditNote:
		return "Avoir"
	case TypeCorrectedInvoice:
		return "Facture rectificative"
	case TypePrepaymentInvoice:
		return "Facture d'acompte"
	default:
		return "Facture"
	}
}

// Title retourne le titre en capitales dessiné en tête du PDF.
func (c InvoiceTypeCode) Title() string {
	switch c {
	case TypeCreditNote:
		return "AVOIR"
	case TypeCorrectedInvoice:
		return "FACTURE RECTIFICATIVE"
	case TypePrepaymentInvoice:
		return "FACTURE D'ACOMPTE"
	default:
		return "FACTURE"
	}
}

// DiscountType précise comment interpréter la valeur de remise d'une ligne.
type DiscountType string

const (
	// DiscountPercent : remise en pourcentage du montant brut de la ligne.
	DiscountPercent DiscountType = "percent"
	// DiscountAmount : remise en montant absolu, soustrait tel quel.
	DiscountAmount DiscountType = "amount"
)

// DiscountTypeFromString convertit la représentation texte d'un type de
// remise. Retourne false pour toute valeur inconnue.
func DiscountTypeFromString(s string) (DiscountType, bool) {
	switch DiscountType(s) {
	case DiscountPercent, DiscountAmount:
		return DiscountType(s), true
	}
	return "", false
}
