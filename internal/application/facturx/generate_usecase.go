// Package facturx orchestre la génération d'une facture Factur-X : validation
// du formulaire, calcul des montants, production des deux artefacts (XML CII
// et PDF) puis assemblage du conteneur PDF/A-3 final.
package facturx

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/internal/domain/entity"
	"github.com/facturegen/facturx/internal/domain/tax"
	"github.com/facturegen/facturx/internal/infrastructure/xmp"
	"github.com/facturegen/facturx/pkg/facturx"
	"github.com/facturegen/facturx/pkg/logger"
)

// Artifact est le résultat d'une génération : le PDF Factur-X assemblé, le
// XML CII qu'il embarque et le nom de fichier suggéré au téléchargement.
type Artifact struct {
	PDF      []byte
	XML      []byte
	Filename string
}

// GenerateUseCase pilote la génération de bout en bout. L'émetteur est fixé
// à la construction (il vient de la configuration, pas de la requête).
type GenerateUseCase struct {
	emitter   *entity.Emitter
	builder   XMLBuilder
	renderer  PDFRenderer
	processor ContainerProcessor
	clock     Clock
	log       *logger.Logger
}

// NewGenerateUseCase construit le cas d'usage en injectant toutes ses
// dépendances.
func NewGenerateUseCase(
	emitter *entity.Emitter,
	builder XMLBuilder,
	renderer PDFRenderer,
	processor ContainerProcessor,
	clock Clock,
	log *logger.Logger,
) *GenerateUseCase {
	return &GenerateUseCase{
		emitter:   emitter,
		builder:   builder,
		renderer:  renderer,
		processor: processor,
		clock:     clock,
		log:       log,
	}
}

// Validate contrôle le formulaire sans rien générer. Retourne la liste
// complète des erreurs de champ, vide si la facture est générable.
func (uc *GenerateUseCase) Validate(inv *entity.Invoice) []domain.FieldError {
	return inv.Validate()
}

// Generate produit le PDF Factur-X complet d'une facture.
//
// Retourne :
//   - (artifact, nil)           si tout se passe bien ;
//   - domain.ErrValidation      si le formulaire est invalide (l'appelant
//     qui veut le détail par champ passe d'abord par Validate) ;
//   - domain.ErrFormat          si une date ne respecte pas AAAA-MM-JJ ;
//   - domain.ErrContainer       si l'assemblage PDF/A-3 échoue.
func (uc *GenerateUseCase) Generate(ctx context.Context, inv *entity.Invoice) (*Artifact, error) {
	genID := uuid.NewString()
	log := uc.log.With().Str("generation_id", genID).
		Str("invoice_number", inv.InvoiceNumber).Logger()

	// ── 1. Valider le formulaire ──────────────────────────────────────────────
	if errs := inv.Validate(); len(errs) > 0 {
		log.Warn().Int("field_errors", len(errs)).Msg("facture rejetée à la validation")
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, joinFieldErrors(errs))
	}

	// ── 2. Calculer les montants (source unique pour XML et PDF) ──────────────
	totals := tax.ComputeInvoiceTotals(inv)

	// ── 3. Générer le XML CII ─────────────────────────────────────────────────
	xmlContent, err := uc.builder.Build(inv, uc.emitter, totals)
	if err != nil {
		return nil, fmt.Errorf("generate: XML CII: %w", err)
	}

	// ── 4. Rendre le PDF de base ──────────────────────────────────────────────
	basePDF, err := uc.renderer.Render(ctx, inv, uc.emitter, totals)
	if err != nil {
		return nil, fmt.Errorf("generate: rendu PDF: %w", err)
	}

	// ── 5. Attacher le XML au conteneur (convention PDF/A-3) ──────────────────
	now := uc.clock()
	withXML, err := uc.processor.EmbedXML(basePDF, xmlContent, now)
	if err != nil {
		return nil, fmt.Errorf("generate: embarquement XML: %w", err)
	}

	// ── 6. Injecter le paquet XMP Factur-X ────────────────────────────────────
	meta := xmp.DefaultMetadata()
	meta.Title = inv.TypeCode.Label() + " " + inv.InvoiceNumber
	meta.Author = uc.emitter.Name
	packet, err := xmp.Generate(meta, now)
	if err != nil {
		return nil, fmt.Errorf("generate: métadonnées XMP: %w", err)
	}
	finalPDF, err := uc.processor.InjectXMP(withXML, packet)
	if err != nil {
		return nil, fmt.Errorf("generate: injection XMP: %w", err)
	}

	log.Info().
		Int("pdf_bytes", len(finalPDF)).
		Int("xml_bytes", len(xmlContent)).
		Str("total_ttc", tax.FormatAmount(totals.TTC)).
		Msg("facture Factur-X générée")

	return &Artifact{
		PDF:      finalPDF,
		XML:      xmlContent,
		Filename: Filename(inv.InvoiceNumber),
	}, nil
}

// ExtractXML relit le XML CII embarqué dans un PDF Factur-X existant.
func (uc *GenerateUseCase) ExtractXML(pdf []byte) ([]byte, error) {
	content, err := uc.processor.ExtractXML(pdf, facturx.XMLFilename)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return content, nil
}

// Filename construit le nom de fichier de téléchargement à partir du numéro
// de facture, en remplaçant les caractères hostiles aux systèmes de fichiers.
func Filename(invoiceNumber string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, invoiceNumber)
	return "facture_" + safe + ".pdf"
}

func joinFieldErrors(errs []domain.FieldError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}
