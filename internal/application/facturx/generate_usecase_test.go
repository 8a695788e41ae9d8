package facturx_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfx "github.com/facturegen/facturx/internal/application/facturx"
	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/internal/domain/entity"
	"github.com/facturegen/facturx/internal/domain/tax"
	"github.com/facturegen/facturx/pkg/logger"
)

var testNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// ──────────────────────────────────────────────────────────────────────────────
// Doublures des ports d'infrastructure : elles enregistrent les appels pour
// vérifier l'orchestration sans toucher maroto ni pdfcpu.
// ──────────────────────────────────────────────────────────────────────────────

type stubBuilder struct {
	totals tax.Totals
}

func (s *stubBuilder) Build(inv *entity.Invoice, _ *entity.Emitter, totals tax.Totals) ([]byte, error) {
	s.totals = totals
	return []byte("<xml>" + inv.InvoiceNumber + "</xml>"), nil
}

type stubRenderer struct{}

func (s *stubRenderer) Render(_ context.Context, inv *entity.Invoice, _ *entity.Emitter, _ tax.Totals) ([]byte, error) {
	return []byte("%PDF " + inv.InvoiceNumber), nil
}

type stubProcessor struct {
	embeddedXML []byte
	embeddedAt  time.Time
	xmpPacket   string
}

func (s *stubProcessor) EmbedXML(pdf, xmlContent []byte, now time.Time) ([]byte, error) {
	s.embeddedXML = xmlContent
	s.embeddedAt = now
	return append(pdf, " +xml"...), nil
}

func (s *stubProcessor) InjectXMP(pdf []byte, packet string) ([]byte, error) {
	s.xmpPacket = packet
	return append(pdf, " +xmp"...), nil
}

func (s *stubProcessor) ExtractXML(_ []byte, _ string) ([]byte, error) {
	return s.embeddedXML, nil
}

func buildUseCase() (*appfx.GenerateUseCase, *stubBuilder, *stubProcessor) {
	builder := &stubBuilder{}
	processor := &stubProcessor{}
	emitter := &entity.Emitter{
		SIRET:   "12345678900012",
		Name:    "Ma Société SAS",
		Address: "1 rue de la Paix, 75001 Paris",
	}
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	uc := appfx.NewGenerateUseCase(
		emitter, builder, &stubRenderer{}, processor,
		func() time.Time { return testNow }, log,
	)
	return uc, builder, processor
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

// ── Chemin nominal ────────────────────────────────────────────────────────────

func TestGenerate_AssembleLesTroisEtapes(t *testing.T) {
	uc, builder, processor := buildUseCase()

	artifact, err := uc.Generate(context.Background(), buildTestInvoice())
	require.NoError(t, err)

	// Le PDF final porte la trace des deux post-traitements, dans l'ordre.
	assert.Equal(t, "%PDF FA-2024-001 +xml +xmp", string(artifact.PDF),
		"le conteneur doit être assemblé dans l'ordre XML puis XMP")
	assert.Equal(t, "<xml>FA-2024-001</xml>", string(artifact.XML))
	assert.Equal(t, "facture_FA-2024-001.pdf", artifact.Filename)

	// Le XML embarqué est celui du builder, pas une copie divergente.
	assert.Equal(t, artifact.XML, processor.embeddedXML)

	// Les totaux transmis au builder sont ceux du calculateur partagé.
	assert.Equal(t, "2000.00", tax.FormatAmount(builder.totals.HT))
	assert.Equal(t, "400.00", tax.FormatAmount(builder.totals.VAT))
	assert.Equal(t, "2400.00", tax.FormatAmount(builder.totals.TTC))
}

func TestGenerate_HorlogeInjecteePartout(t *testing.T) {
	uc, _, processor := buildUseCase()

	_, err := uc.Generate(context.Background(), buildTestInvoice())
	require.NoError(t, err)

	assert.Equal(t, testNow, processor.embeddedAt,
		"le ModDate du fichier embarqué doit venir de l'horloge injectée")
	assert.Contains(t, processor.xmpPacket, "2024-01-15T10:30:00+00:00",
		"les horodatages XMP doivent venir de la même horloge")
}

func TestGenerate_PaquetXMPPorteLesMetadonneesFacture(t *testing.T) {
	uc, _, processor := buildUseCase()

	_, err := uc.Generate(context.Background(), buildTestInvoice())
	require.NoError(t, err)

	assert.Contains(t, processor.xmpPacket, "Facture FA-2024-001",
		"le titre XMP doit reprendre le type et le numéro du document")
	assert.Contains(t, processor.xmpPacket, "Ma Société SAS",
		"l'auteur XMP doit être la raison sociale de l'émetteur")
	assert.Contains(t, processor.xmpPacket, "<fx:ConformanceLevel>MINIMUM</fx:ConformanceLevel>")
}

// Deux générations à horloge fixée produisent des artefacts identiques.
func TestGenerate_IdempotentAHorlogeFixee(t *testing.T) {
	uc1, _, _ := buildUseCase()
	uc2, _, _ := buildUseCase()

	a1, err1 := uc1.Generate(context.Background(), buildTestInvoice())
	a2, err2 := uc2.Generate(context.Background(), buildTestInvoice())
	require.NoError(t, err1)
	require.NoError(t, err2)

	assert.Equal(t, a1.PDF, a2.PDF)
	assert.Equal(t, a1.XML, a2.XML)
	assert.Equal(t, a1.Filename, a2.Filename)
}

// ── Rejet à la validation ─────────────────────────────────────────────────────

func TestGenerate_FormulaireInvalide_ErrValidation(t *testing.T) {
	uc, _, processor := buildUseCase()
	inv := buildTestInvoice()
	inv.RecipientSIRET = "123" // trop court

	_, err := uc.Generate(context.Background(), inv)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Nil(t, processor.embeddedXML,
		"aucun artefact ne doit être produit pour un formulaire invalide")
}

func TestValidate_RetourneToutesLesErreurs(t *testing.T) {
	uc, _, _ := buildUseCase()
	inv := buildTestInvoice()
	inv.InvoiceNumber = ""
	inv.IssueDate = "pas-une-date"

	errs := uc.Validate(inv)
	assert.GreaterOrEqual(t, len(errs), 2,
		"Validate doit collecter toutes les erreurs de champ")
}

// ── Nom de fichier ────────────────────────────────────────────────────────────

func TestFilename_CaracteresHostilesRemplaces(t *testing.T) {
	assert.Equal(t, "facture_FA-2024-001.pdf", appfx.Filename("FA-2024-001"))
	assert.Equal(t, "facture_FA_2024_001.pdf", appfx.Filename("FA/2024:001"))
	assert.Equal(t, "facture_FA_01.pdf", appfx.Filename("FA 01"))
}
