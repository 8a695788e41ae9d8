package cii_test

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/internal/domain/entity"
	"github.com/facturegen/facturx/internal/domain/tax"
	"github.com/facturegen/facturx/internal/infrastructure/cii"
)

func buildTestEmitter() *entity.Emitter {
	return &entity.Emitter{
		SIREN:     "123456789",
		SIRET:     "12345678900012",
		Name:      "Ma Société SAS",
		Address:   "1 rue de la Paix, 75001 Paris",
		VATNumber: "FR12345678901",
	}
}

func buildTestInvoice() *entity.Invoice {
	return &entity.Invoice{
		InvoiceNumber:        "FA-2024-001",
		IssueDate:            "2024-01-15",
		TypeCode:             entity.TypeInvoice,
		CurrencyCode:         "EUR",
		RecipientName:        "Client SARL",
		RecipientSIRET:       "98765432109876",
		RecipientAddress:     "2 avenue du Client, 69000 Lyon",
		RecipientCountryCode: "FR",
		Lines: []entity.Line{
			{
				Description: "Prestation de conseil",
				Quantity:    decimal.NewFromInt(2),
				UnitPriceHT: decimal.NewFromInt(500),
				VATRate:     decimal.NewFromInt(20),
			},
			{
				Description: "Développement",
				Quantity:    decimal.NewFromInt(1),
				UnitPriceHT: decimal.NewFromInt(1000),
				VATRate:     decimal.NewFromInt(20),
			},
		},
	}
}

// buildAndParse génère le XML et le recharge avec etree pour les assertions
// structurelles.
func buildAndParse(t *testing.T, inv *entity.Invoice) *etree.Document {
	t.Helper()
	totals := tax.ComputeInvoiceTotals(inv)
	out, err := cii.NewBuilder().Build(inv, buildTestEmitter(), totals)
	require.NoError(t, err, "la génération du XML ne doit pas échouer")

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out),
		"le XML généré doit être bien formé")
	return doc
}

func textOf(t *testing.T, doc *etree.Document, path string) string {
	t.Helper()
	el := doc.FindElement(path)
	require.NotNil(t, el, "élément attendu introuvable: %s", path)
	return el.Text()
}

// ── Structure du document ─────────────────────────────────────────────────────

func TestBuild_RacineEtNamespaces(t *testing.T) {
	doc := buildAndParse(t, buildTestInvoice())

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "CrossIndustryInvoice", root.Tag)
	assert.Equal(t, "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100",
		root.SelectAttrValue("xmlns:rsm", ""))
	assert.Equal(t, "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100",
		root.SelectAttrValue("xmlns:ram", ""))
}

func TestBuild_GuidelineProfilMinimum(t *testing.T) {
	doc := buildAndParse(t, buildTestInvoice())
	assert.Equal(t, "urn:factur-x.eu:1p0:minimum",
		textOf(t, doc, "//rsm:ExchangedDocumentContext/ram:GuidelineSpecifiedDocumentContextParameter/ram:ID"))
}

func TestBuild_IdentiteDuDocument(t *testing.T) {
	doc := buildAndParse(t, buildTestInvoice())

	assert.Equal(t, "FA-2024-001", textOf(t, doc, "//rsm:ExchangedDocument/ram:ID"))
	assert.Equal(t, "380", textOf(t, doc, "//rsm:ExchangedDocument/ram:TypeCode"))

	dateEl := doc.FindElement("//rsm:ExchangedDocument/ram:IssueDateTime/udt:DateTimeString")
	require.NotNil(t, dateEl)
	assert.Equal(t, "20240115", dateEl.Text(),
		"la date 2024-01-15 doit être émise au format 102 AAAAMMJJ")
	assert.Equal(t, "102", dateEl.SelectAttrValue("format", ""))
}

// ── Parties ───────────────────────────────────────────────────────────────────

func TestBuild_VendeurAvecSchemas(t *testing.T) {
	doc := buildAndParse(t, buildTestInvoice())

	seller := doc.FindElement("//ram:SellerTradeParty")
	require.NotNil(t, seller)
	assert.Equal(t, "Ma Société SAS", seller.FindElement("ram:Name").Text())

	siret := seller.FindElement("ram:SpecifiedLegalOrganization/ram:ID")
	require.NotNil(t, siret)
	assert.Equal(t, "12345678900012", siret.Text())
	assert.Equal(t, "0002", siret.SelectAttrValue("schemeID", ""),
		"le SIRET doit porter le schéma ISO 6523 0002")

	vat := seller.FindElement("ram:SpecifiedTaxRegistration/ram:ID")
	require.NotNil(t, vat)
	assert.Equal(t, "FR12345678901", vat.Text())
	assert.Equal(t, "VA", vat.SelectAttrValue("schemeID", ""))
}

// Le SIREN de l'émetteur, quand il est configuré, est émis comme
// identifiant de partie du vendeur, en plus du SIRET (schéma 0002).
func TestBuild_VendeurAvecSIREN(t *testing.T) {
	doc := buildAndParse(t, buildTestInvoice())

	seller := doc.FindElement("//ram:SellerTradeParty")
	require.NotNil(t, seller)
	id := seller.FindElement("ram:ID")
	require.NotNil(t, id, "le SIREN configuré doit apparaître en ram:ID du vendeur")
	assert.Equal(t, "123456789", id.Text())
}

func TestBuild_VendeurSansSIREN_PasDeRamID(t *testing.T) {
	inv := buildTestInvoice()
	emitter := buildTestEmitter()
	emitter.SIREN = ""
	totals := tax.ComputeInvoiceTotals(inv)

	out, err := cii.NewBuilder().Build(inv, emitter, totals)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	seller := doc.FindElement("//ram:SellerTradeParty")
	require.NotNil(t, seller)
	assert.Nil(t, seller.FindElement("ram:ID"),
		"sans SIREN configuré, aucun ram:ID de partie ne doit être émis")
}

func TestBuild_AcheteurSansTVA_PasDeTaxRegistration(t *testing.T) {
	inv := buildTestInvoice()
	inv.RecipientVATNumber = ""
	doc := buildAndParse(t, inv)

	buyer := doc.FindElement("//ram:BuyerTradeParty")
	require.NotNil(t, buyer)
	assert.Nil(t, buyer.FindElement("ram:SpecifiedTaxRegistration"),
		"sans numéro de TVA, le bloc SpecifiedTaxRegistration doit être absent")
}

// ── Blocs optionnels ──────────────────────────────────────────────────────────

func TestBuild_BlocsOptionnelsAbsents(t *testing.T) {
	doc := buildAndParse(t, buildTestInvoice())

	assert.Nil(t, doc.FindElement("//ram:BuyerReference"))
	assert.Nil(t, doc.FindElement("//ram:BuyerOrderReferencedDocument"))
	assert.Nil(t, doc.FindElement("//ram:SpecifiedTradePaymentTerms"))
}

func TestBuild_BlocsOptionnelsPresents(t *testing.T) {
	inv := buildTestInvoice()
	inv.BuyerReference = "SERVICE-ACHATS"
	inv.PurchaseOrderReference = "PO-2024-042"
	inv.DueDate = "2024-02-15"
	doc := buildAndParse(t, inv)

	assert.Equal(t, "SERVICE-ACHATS", textOf(t, doc, "//ram:BuyerReference"))
	assert.Equal(t, "PO-2024-042",
		textOf(t, doc, "//ram:BuyerOrderReferencedDocument/ram:IssuerAssignedID"))
	assert.Equal(t, "20240215",
		textOf(t, doc, "//ram:SpecifiedTradePaymentTerms/ram:DueDateDateTime/udt:DateTimeString"))
}

// ── TVA et totaux ─────────────────────────────────────────────────────────────

func TestBuild_UnSeulBlocTVAParTaux(t *testing.T) {
	doc := buildAndParse(t, buildTestInvoice())

	taxes := doc.FindElements("//ram:ApplicableTradeTax")
	require.Len(t, taxes, 1,
		"deux lignes au même taux doivent produire un seul bloc ApplicableTradeTax")
	assert.Equal(t, "400.00", taxes[0].FindElement("ram:CalculatedAmount").Text())
	assert.Equal(t, "VAT", taxes[0].FindElement("ram:TypeCode").Text())
	assert.Equal(t, "2000.00", taxes[0].FindElement("ram:BasisAmount").Text())
	assert.Equal(t, "S", taxes[0].FindElement("ram:CategoryCode").Text())
	assert.Equal(t, "20.00", taxes[0].FindElement("ram:RateApplicablePercent").Text())
}

func TestBuild_RecapitulatifMonetaire(t *testing.T) {
	doc := buildAndParse(t, buildTestInvoice())

	sum := doc.FindElement("//ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	require.NotNil(t, sum)
	assert.Equal(t, "2000.00", sum.FindElement("ram:LineTotalAmount").Text())
	assert.Equal(t, "2000.00", sum.FindElement("ram:TaxBasisTotalAmount").Text())

	taxTotal := sum.FindElement("ram:TaxTotalAmount")
	require.NotNil(t, taxTotal)
	assert.Equal(t, "400.00", taxTotal.Text())
	assert.Equal(t, "EUR", taxTotal.SelectAttrValue("currencyID", ""))

	assert.Equal(t, "2400.00", sum.FindElement("ram:GrandTotalAmount").Text())
	assert.Equal(t, "2400.00", sum.FindElement("ram:DuePayableAmount").Text())
}

// ── Échappement ───────────────────────────────────────────────────────────────

func TestBuild_EchappementDuTexteLibre(t *testing.T) {
	inv := buildTestInvoice()
	inv.RecipientName = "A & B <C>"
	totals := tax.ComputeInvoiceTotals(inv)

	out, err := cii.NewBuilder().Build(inv, buildTestEmitter(), totals)
	require.NoError(t, err)

	assert.Contains(t, string(out), "A &amp; B &lt;C&gt;",
		"les caractères spéciaux XML doivent être échappés dans la sortie brute")

	// Et la relecture doit restituer le texte original.
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	assert.Equal(t, "A & B <C>", textOf(t, doc, "//ram:BuyerTradeParty/ram:Name"))
}

// ── Idempotence ───────────────────────────────────────────────────────────────

func TestBuild_SortieIdentiqueAEntreesIdentiques(t *testing.T) {
	inv1 := buildTestInvoice()
	inv2 := buildTestInvoice()
	t1 := tax.ComputeInvoiceTotals(inv1)
	t2 := tax.ComputeInvoiceTotals(inv2)

	out1, err1 := cii.NewBuilder().Build(inv1, buildTestEmitter(), t1)
	out2, err2 := cii.NewBuilder().Build(inv2, buildTestEmitter(), t2)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, out1, out2, "deux générations du même formulaire doivent être octet pour octet identiques")
}

// ── Format de date ────────────────────────────────────────────────────────────

func TestFormatDateCII(t *testing.T) {
	out, err := cii.FormatDateCII("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "20240115", out)

	for _, bad := range []string{"15/01/2024", "2024-1-15", "20240115", "2024-01-XX", ""} {
		_, err := cii.FormatDateCII(bad)
		require.Error(t, err, "la date %q doit être refusée", bad)
		assert.ErrorIs(t, err, domain.ErrFormat)
	}
}
