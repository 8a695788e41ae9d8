package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/internal/domain/entity"
)

func buildValidInvoice() *entity.Invoice {
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
				Description: "Prestation",
				Quantity:    decimal.NewFromInt(1),
				UnitPriceHT: decimal.NewFromInt(100),
				VATRate:     decimal.NewFromInt(20),
			},
		},
	}
}

func fieldsOf(errs []domain.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

// ── Validation du formulaire ──────────────────────────────────────────────────

func TestValidate_FactureComplete_SansErreur(t *testing.T) {
	inv := buildValidInvoice()
	assert.Empty(t, inv.Validate(), "une facture complète ne doit produire aucune erreur")
}

// Toutes les erreurs sont collectées en une passe, jamais fail-fast.
func TestValidate_CollecteExhaustive(t *testing.T) {
	inv := &entity.Invoice{}
	errs := inv.Validate()

	fields := fieldsOf(errs)
	assert.Contains(t, fields, "invoice_number")
	assert.Contains(t, fields, "issue_date")
	assert.Contains(t, fields, "currency_code")
	assert.Contains(t, fields, "recipient_name")
	assert.Contains(t, fields, "recipient_siret")
	assert.Contains(t, fields, "recipient_country_code")
	assert.Contains(t, fields, "lines")
	assert.GreaterOrEqual(t, len(errs), 7,
		"un formulaire vide doit remonter toutes ses erreurs d'un coup")
}

func TestValidate_DateInvalide(t *testing.T) {
	inv := buildValidInvoice()
	inv.IssueDate = "15/01/2024"
	assert.Contains(t, fieldsOf(inv.Validate()), "issue_date",
		"une date hors AAAA-MM-JJ doit être signalée")

	inv = buildValidInvoice()
	inv.IssueDate = "2024-02-30"
	assert.Contains(t, fieldsOf(inv.Validate()), "issue_date",
		"une date calendaire impossible doit être signalée")
}

func TestValidate_DateEcheanceOptionnelle(t *testing.T) {
	inv := buildValidInvoice()
	inv.DueDate = ""
	assert.Empty(t, inv.Validate(), "la date d'échéance est optionnelle")

	inv.DueDate = "2024-13-01"
	assert.Contains(t, fieldsOf(inv.Validate()), "due_date",
		"une date d'échéance renseignée doit être valide")
}

func TestValidate_LignesInvalidesSignalees(t *testing.T) {
	inv := buildValidInvoice()
	inv.Lines = append(inv.Lines, entity.Line{
		Description: "",
		Quantity:    decimal.Zero,
		UnitPriceHT: decimal.NewFromInt(-5),
		VATRate:     decimal.NewFromInt(-1),
	})

	fields := fieldsOf(inv.Validate())
	assert.Contains(t, fields, "lines[1][description]")
	assert.Contains(t, fields, "lines[1][quantity]")
	assert.Contains(t, fields, "lines[1][unit_price_ht]")
	assert.Contains(t, fields, "lines[1][vat_rate]")
}

func TestValidate_TauxTVASuperieurA100(t *testing.T) {
	inv := buildValidInvoice()
	inv.Lines[0].VATRate = decimal.NewFromInt(120)
	assert.Contains(t, fieldsOf(inv.Validate()), "lines[0][vat_rate]")
}

// ── ValidLines ────────────────────────────────────────────────────────────────

func TestValidLines_FiltreEtConserveLOrdre(t *testing.T) {
	inv := buildValidInvoice()
	inv.Lines = []entity.Line{
		{Description: "A", Quantity: decimal.NewFromInt(1), UnitPriceHT: decimal.NewFromInt(10), VATRate: decimal.NewFromInt(20)},
		{Description: "", Quantity: decimal.NewFromInt(1), UnitPriceHT: decimal.NewFromInt(10), VATRate: decimal.NewFromInt(20)},
		{Description: "C", Quantity: decimal.NewFromInt(1), UnitPriceHT: decimal.NewFromInt(10), VATRate: decimal.NewFromInt(20)},
	}

	valid := inv.ValidLines()
	require.Len(t, valid, 2)
	assert.Equal(t, "A", valid[0].Description)
	assert.Equal(t, "C", valid[1].Description)
}

// ── Validateurs de champ ──────────────────────────────────────────────────────

func TestIsValidSIRET(t *testing.T) {
	assert.True(t, entity.IsValidSIRET("12345678901234"))
	assert.True(t, entity.IsValidSIRET("123 456 789 01234"), "les séparateurs sont tolérés")
	assert.False(t, entity.IsValidSIRET("123456789"), "un SIREN (9 chiffres) n'est pas un SIRET")
	assert.False(t, entity.IsValidSIRET(""))
	assert.False(t, entity.IsValidSIRET("1234567890123X"))
}

func TestIsValidDate(t *testing.T) {
	assert.True(t, entity.IsValidDate("2024-01-15"))
	assert.True(t, entity.IsValidDate("2024-02-29"), "2024 est bissextile")
	assert.False(t, entity.IsValidDate("2023-02-29"), "2023 n'est pas bissextile")
	assert.False(t, entity.IsValidDate("15/01/2024"))
	assert.False(t, entity.IsValidDate("20240115"))
}

func TestIsValidCurrencyCode(t *testing.T) {
	assert.True(t, entity.IsValidCurrencyCode("EUR"))
	assert.True(t, entity.IsValidCurrencyCode("USD"))
	assert.False(t, entity.IsValidCurrencyCode("eur"), "minuscules refusées")
	assert.False(t, entity.IsValidCurrencyCode("EURO"))
	assert.False(t, entity.IsValidCurrencyCode(""))
}

func TestIsValidCountryCode(t *testing.T) {
	assert.True(t, entity.IsValidCountryCode("FR"))
	assert.True(t, entity.IsValidCountryCode("DE"))
	assert.False(t, entity.IsValidCountryCode("fr"))
	assert.False(t, entity.IsValidCountryCode("FRA"))
}

func TestIsValidVATNumber(t *testing.T) {
	assert.True(t, entity.IsValidVATNumber("FR12345678901"))
	assert.True(t, entity.IsValidVATNumber("FR 12 345 678 901"), "les espaces sont tolérés")
	assert.True(t, entity.IsValidVATNumber("DE123456789"))
	assert.False(t, entity.IsValidVATNumber("12345678901"), "le préfixe pays est obligatoire")
	assert.False(t, entity.IsValidVATNumber("F1"))
	assert.False(t, entity.IsValidVATNumber(""))
}

// ── Types de document ─────────────────────────────────────────────────────────

func TestTypeCodeFromInt_EnumFerme(t *testing.T) {
	for _, code := range []int{380, 381, 384, 389} {
		tc, ok := entity.TypeCodeFromInt(code)
		require.True(t, ok, "le code %d doit être accepté", code)
		assert.Equal(t, code, tc.Code())
	}
	_, ok := entity.TypeCodeFromInt(385)
	assert.False(t, ok, "un code UNTDID hors de l'énumération doit être refusé")
}

func TestTypeCode_Titres(t *testing.T) {
	assert.Equal(t, "FACTURE", entity.TypeInvoice.Title())
	assert.Equal(t, "AVOIR", entity.TypeCreditNote.Title())
	assert.Equal(t, "FACTURE RECTIFICATIVE", entity.TypeCorrectedInvoice.Title())
	assert.Equal(t, "FACTURE D'ACOMPTE", entity.TypePrepaymentInvoice.Title())
}

func TestDiscountTypeFromString(t *testing.T) {
	dt, ok := entity.DiscountTypeFromString("percent")
	require.True(t, ok)
	assert.Equal(t, entity.DiscountPercent, dt)

	dt, ok = entity.DiscountTypeFromString("amount")
	require.True(t, ok)
	assert.Equal(t, entity.DiscountAmount, dt)

	_, ok = entity.DiscountTypeFromString("rebate")
	assert.False(t, ok)
}
