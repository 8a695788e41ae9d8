// Package cii construit le document XML Cross Industry Invoice (UN/CEFACT)
// embarqué dans le PDF Factur-X, profil MINIMUM.
package cii

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/internal/domain/entity"
	"github.com/facturegen/facturx/internal/domain/tax"
	"github.com/facturegen/facturx/pkg/facturx"
)

// Namespaces officiels CII D16B (UN/CEFACT).
const (
	NsRsm = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	NsRam = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	NsUdt = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"
	NsQdt = "urn:un:unece:uncefact:data:standard:QualifiedDataType:100"
)

// dateFormat102 : qualificateur CII pour une date calendaire AAAAMMJJ.
const dateFormat102 = "102"

// Builder construit le XML CII d'une facture. Sans état entre appels.
type Builder struct {
	profile facturx.Profile
}

// NewBuilder crée le builder pour le profil MINIMUM.
func NewBuilder() *Builder {
	return &Builder{profile: facturx.ProfileMinimum}
}

// Build génère le document rsm:CrossIndustryInvoice.
// Le contenu métier est supposé déjà validé (entity.Invoice.Validate) ; seul
// le format des dates est revérifié ici car il conditionne la bonne forme du
// document. L'échappement XML de tout texte libre est assuré par
// l'encodeur encoding/xml lui-même.
func (b *Builder) Build(inv *entity.Invoice, emitter *entity.Emitter, totals tax.Totals) ([]byte, error) {
	if inv == nil || emitter == nil {
		return nil, fmt.Errorf("cii: facture ou émetteur manquant")
	}

	issueDate, err := FormatDateCII(inv.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("cii: date d'émission: %w", err)
	}
	dueDate := ""
	if strings.TrimSpace(inv.DueDate) != "" {
		dueDate, err = FormatDateCII(inv.DueDate)
		if err != nil {
			return nil, fmt.Errorf("cii: date d'échéance: %w", err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	// Racine avec les quatre namespaces déclarés en préfixes littéraux :
	// l'encodeur Go réécrit sinon chaque xmlns en attribut par élément.
	root := xml.StartElement{
		Name: xml.Name{Local: "rsm:CrossIndustryInvoice"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:rsm"}, Value: NsRsm},
			{Name: xml.Name{Local: "xmlns:ram"}, Value: NsRam},
			{Name: xml.Name{Local: "xmlns:udt"}, Value: NsUdt},
			{Name: xml.Name{Local: "xmlns:qdt"}, Value: NsQdt},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	// ---- rsm:ExchangedDocumentContext : guideline du profil
	open(enc, "rsm:ExchangedDocumentContext")
	open(enc, "ram:GuidelineSpecifiedDocumentContextParameter")
	writeText(enc, "ram:ID", b.profile.URN())
	closeEl(enc, "ram:GuidelineSpecifiedDocumentContextParameter")
	closeEl(enc, "rsm:ExchangedDocumentContext")

	// ---- rsm:ExchangedDocument : identité du document
	open(enc, "rsm:ExchangedDocument")
	writeText(enc, "ram:ID", inv.InvoiceNumber)
	writeText(enc, "ram:TypeCode", strconv.Itoa(inv.TypeCode.Code()))
	open(enc, "ram:IssueDateTime")
	writeDateTimeString(enc, issueDate)
	closeEl(enc, "ram:IssueDateTime")
	closeEl(enc, "rsm:ExchangedDocument")

	// ---- rsm:SupplyChainTradeTransaction
	open(enc, "rsm:SupplyChainTradeTransaction")

	open(enc, "ram:ApplicableHeaderTradeAgreement")
	if strings.TrimSpace(inv.BuyerReference) != "" {
		writeText(enc, "ram:BuyerReference", inv.BuyerReference)
	}
	b.writeSellerParty(enc, emitter)
	b.writeBuyerParty(enc, inv)
	if strings.TrimSpace(inv.PurchaseOrderReference) != "" {
		open(enc, "ram:BuyerOrderReferencedDocument")
		writeText(enc, "ram:IssuerAssignedID", inv.PurchaseOrderReference)
		closeEl(enc, "ram:BuyerOrderReferencedDocument")
	}
	closeEl(enc, "ram:ApplicableHeaderTradeAgreement")

	// Bloc livraison requis par le schéma, vide au profil MINIMUM.
	open(enc, "ram:ApplicableHeaderTradeDelivery")
	closeEl(enc, "ram:ApplicableHeaderTradeDelivery")

	open(enc, "ram:ApplicableHeaderTradeSettlement")
	writeText(enc, "ram:InvoiceCurrencyCode", inv.CurrencyCode)
	if dueDate != "" {
		open(enc, "ram:SpecifiedTradePaymentTerms")
		open(enc, "ram:DueDateDateTime")
		writeDateTimeString(enc, dueDate)
		closeEl(enc, "ram:DueDateDateTime")
		closeEl(enc, "ram:SpecifiedTradePaymentTerms")
	}
	b.writeTradeTaxes(enc, inv)
	b.writeMonetarySummation(enc, inv.CurrencyCode, totals)
	closeEl(enc, "ram:ApplicableHeaderTradeSettlement")

	closeEl(enc, "rsm:SupplyChainTradeTransaction")

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeSellerParty écrit ram:SellerTradeParty : identifiant SIREN si
// renseigné, nom, SIRET (schéma 0002), adresse postale FR, TVA
// intracommunautaire si renseignée.
func (b *Builder) writeSellerParty(enc *xml.Encoder, emitter *entity.Emitter) {
	open(enc, "ram:SellerTradeParty")
	if strings.TrimSpace(emitter.SIREN) != "" {
		writeText(enc, "ram:ID", emitter.SIREN)
	}
	writeText(enc, "ram:Name", emitter.Name)
	open(enc, "ram:SpecifiedLegalOrganization")
	writeTextAttr(enc, "ram:ID", emitter.SIRET, "schemeID", facturx.SchemeSIRET)
	closeEl(enc, "ram:SpecifiedLegalOrganization")
	open(enc, "ram:PostalTradeAddress")
	writeText(enc, "ram:LineOne", emitter.Address)
	writeText(enc, "ram:CountryID", "FR")
	closeEl(enc, "ram:PostalTradeAddress")
	if strings.TrimSpace(emitter.VATNumber) != "" {
		open(enc, "ram:SpecifiedTaxRegistration")
		writeTextAttr(enc, "ram:ID", emitter.VATNumber, "schemeID", facturx.SchemeVAT)
		closeEl(enc, "ram:SpecifiedTaxRegistration")
	}
	closeEl(enc, "ram:SellerTradeParty")
}

// writeBuyerParty écrit ram:BuyerTradeParty symétriquement au vendeur.
func (b *Builder) writeBuyerParty(enc *xml.Encoder, inv *entity.Invoice) {
	open(enc, "ram:BuyerTradeParty")
	writeText(enc, "ram:Name", inv.RecipientName)
	open(enc, "ram:SpecifiedLegalOrganization")
	writeTextAttr(enc, "ram:ID", inv.RecipientSIRET, "schemeID", facturx.SchemeSIRET)
	closeEl(enc, "ram:SpecifiedLegalOrganization")
	open(enc, "ram:PostalTradeAddress")
	writeText(enc, "ram:LineOne", inv.RecipientAddress)
	writeText(enc, "ram:CountryID", inv.RecipientCountryCode)
	closeEl(enc, "ram:PostalTradeAddress")
	if strings.TrimSpace(inv.RecipientVATNumber) != "" {
		open(enc, "ram:SpecifiedTaxRegistration")
		writeTextAttr(enc, "ram:ID", inv.RecipientVATNumber, "schemeID", facturx.SchemeVAT)
		closeEl(enc, "ram:SpecifiedTaxRegistration")
	}
	closeEl(enc, "ram:BuyerTradeParty")
}

// writeTradeTaxes écrit un ram:ApplicableTradeTax par taux de TVA distinct
// trouvé sur les lignes valides (même regroupement que le PDF).
func (b *Builder) writeTradeTaxes(enc *xml.Encoder, inv *entity.Invoice) {
	for _, g := range tax.Breakdown(inv) {
		open(enc, "ram:ApplicableTradeTax")
		writeText(enc, "ram:CalculatedAmount", tax.FormatAmount(g.Tax))
		writeText(enc, "ram:TypeCode", facturx.TaxTypeVAT)
		writeText(enc, "ram:BasisAmount", tax.FormatAmount(g.Basis))
		writeText(enc, "ram:CategoryCode", facturx.TaxCategoryStandard)
		writeText(enc, "ram:RateApplicablePercent", tax.FormatRate(g.Rate))
		closeEl(enc, "ram:ApplicableTradeTax")
	}
}

// writeMonetarySummation écrit le récapitulatif monétaire à partir du
// triplet de totaux partagé avec le rendu PDF.
func (b *Builder) writeMonetarySummation(enc *xml.Encoder, currency string, totals tax.Totals) {
	open(enc, "ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	writeText(enc, "ram:LineTotalAmount", tax.FormatAmount(totals.HT))
	writeText(enc, "ram:TaxBasisTotalAmount", tax.FormatAmount(totals.HT))
	writeTextAttr(enc, "ram:TaxTotalAmount", tax.FormatAmount(totals.VAT), "currencyID", currency)
	writeText(enc, "ram:GrandTotalAmount", tax.FormatAmount(totals.TTC))
	writeText(enc, "ram:DuePayableAmount", tax.FormatAmount(totals.TTC))
	closeEl(enc, "ram:SpecifiedTradeSettlementHeaderMonetarySummation")
}

// FormatDateCII convertit AAAA-MM-JJ en AAAAMMJJ (format 102 CII).
// Le contrôle est strict : 10 caractères, tirets en positions 5 et 8,
// chiffres partout ailleurs. Toute autre forme est une erreur de format.
func FormatDateCII(date string) (string, error) {
	if len(date) != 10 || date[4] != '-' || date[7] != '-' {
		return "", fmt.Errorf("%w: date %q (attendu AAAA-MM-JJ)", domain.ErrFormat, date)
	}
	out := make([]byte, 0, 8)
	for i := 0; i < len(date); i++ {
		if i == 4 || i == 7 {
			continue
		}
		if date[i] < '0' || date[i] > '9' {
			return "", fmt.Errorf("%w: date %q (attendu AAAA-MM-JJ)", domain.ErrFormat, date)
		}
		out = append(out, date[i])
	}
	return string(out), nil
}

func open(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func closeEl(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeText(enc *xml.Encoder, local, value string) {
	open(enc, local)
	_ = enc.EncodeToken(xml.CharData(value))
	closeEl(enc, local)
}

func writeTextAttr(enc *xml.Encoder, local, value, attrLocal, attrValue string) {
	_ = enc.EncodeToken(xml.StartElement{
		Name: xml.Name{Local: local},
		Attr: []xml.Attr{{Name: xml.Name{Local: attrLocal}, Value: attrValue}},
	})
	_ = enc.EncodeToken(xml.CharData(value))
	closeEl(enc, local)
}

// writeDateTimeString écrit udt:DateTimeString avec le qualificateur 102.
func writeDateTimeString(enc *xml.Encoder, yyyymmdd string) {
	writeTextAttr(enc, "udt:DateTimeString", yyyymmdd, "format", dateFormat102)
}
