// Package pdf implémente le rendu de la représentation visuelle de la
// facture Factur-X (page A4, profil MINIMUM).
//
// Mise en page :
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                     LOGO (centré, optionnel)                │
//	│  ÉMETTEUR : Raison sociale / Adresse / SIRET / TVA          │
//	│                        FACTURE                              │
//	│  N° FA-2024-001                        Date: 15/01/2024     │
//	│  CLIENT : Nom / Adresse / SIRET / TVA / Pays                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLE : Description | Qté | PU HT | TVA | Total HT         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Récapitulatif TVA par taux                                 │
//	│  TOTAUX : Total HT / Total TVA / TOTAL TTC                  │
//	│  Conditions de paiement + pied de page Factur-X             │
//	└─────────────────────────────────────────────────────────────┘
//
// Les polices (Liberation Sans regular + bold) sont embarquées dans le
// document depuis leurs octets : PDF/A-3 interdit toute dépendance externe.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"

	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/internal/domain/entity"
	"github.com/facturegen/facturx/internal/domain/tax"
	"github.com/facturegen/facturx/internal/infrastructure/container"
)

// fontFamily est le nom sous lequel Liberation Sans est enregistrée.
const fontFamily = "liberation"

// Troncature des descriptions dans la table (37 caractères + ellipse
// au-delà de 40) et dans les sous-lignes de remise.
const (
	descMaxLen      = 40
	descTruncLen    = 37
	descShortMaxLen = 25
	descShortTrunc  = 22
)

// ── Palette ───────────────────────────────────────────────────────────────────

var (
	colorInk    = &props.Color{Red: 20, Green: 20, Blue: 20}
	colorGray   = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAccent = &props.Color{Red: 0, Green: 51, Blue: 102}
)

// ── Actifs ────────────────────────────────────────────────────────────────────

// Assets regroupe les octets des actifs nécessaires au rendu : polices
// obligatoires, logo optionnel. Lus en amont par pkg/assets avec des
// handles refermés aussitôt.
type Assets struct {
	FontRegular []byte
	FontBold    []byte
	Logo        []byte // nil = pas de logo
}

// ── Renderer ──────────────────────────────────────────────────────────────────

// Renderer produit le PDF de base de la facture. Sans état mutable entre
// appels : un même Renderer sert tous les appels concurrents.
type Renderer struct {
	assets    Assets
	processor *container.Processor
}

// NewRenderer construit le moteur de rendu.
func NewRenderer(assets Assets, processor *container.Processor) *Renderer {
	return &Renderer{assets: assets, processor: processor}
}

// Render dessine la facture et retourne le PDF de base, flux Metadata
// déjà déclaré dans le catalogue (contrat du post-processeur).
// Les lignes invalides sont ignorées par le même prédicat que le XML :
// les deux artefacts montrent exactement les mêmes lignes.
// Décision assumée pour les factures longues : maroto pagine
// automatiquement, les lignes excédentaires coulent sur les pages
// suivantes au lieu de déborder sous la marge basse.
func (r *Renderer) Render(_ context.Context, inv *entity.Invoice, emitter *entity.Emitter, totals tax.Totals) ([]byte, error) {
	if len(r.assets.FontRegular) == 0 || len(r.assets.FontBold) == 0 {
		return nil, fmt.Errorf("%w: polices regular et bold requises pour l'embarquement PDF/A-3", domain.ErrLoad)
	}

	customFonts, err := repository.New().
		AddUTF8FontFromBytes(fontFamily, fontstyle.Normal, r.assets.FontRegular).
		AddUTF8FontFromBytes(fontFamily, fontstyle.Bold, r.assets.FontBold).
		Load()
	if err != nil {
		return nil, fmt.Errorf("%w: chargement des polices: %v", domain.ErrLoad, err)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(20).WithRightMargin(20).
		WithTopMargin(20).WithBottomMargin(15).
		WithCustomFonts(customFonts).
		WithDefaultFont(&props.Font{Family: fontFamily, Size: 10}).
		WithTitle(inv.TypeCode.Label()+" "+inv.InvoiceNumber, true).
		WithAuthor(emitter.Name, true).
		Build()

	m := maroto.New(cfg)

	if len(r.assets.Logo) > 0 {
		m.AddRows(logoRow(r.assets.Logo))
	}
	m.AddRows(emitterRows(emitter)...)
	m.AddRows(titleRows(inv)...)
	m.AddRows(recipientRows(inv)...)

	m.AddRows(tableHeaderRow())
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.5}))
	for _, rw := range tableLineRows(inv) {
		m.AddRows(rw)
	}
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.5}))

	m.AddRows(vatBreakdownRows(inv)...)
	m.AddRows(totalsRows(inv.CurrencyCode, totals)...)

	if strings.TrimSpace(inv.PaymentTerms) != "" {
		m.AddRows(row.New(6).Add(col.New(12).Add(
			text.New("Conditions: "+inv.PaymentTerms, props.Text{
				Size: 8, Color: colorGray, Top: 1,
			}),
		)))
	}
	if strings.TrimSpace(emitter.BIC) != "" {
		m.AddRows(row.New(5).Add(col.New(12).Add(
			text.New("Règlement par virement - BIC: "+emitter.BIC, props.Text{
				Size: 8, Color: colorGray, Top: 1,
			}),
		)))
	}

	m.AddRows(row.New(8).Add(col.New(12).Add(
		text.New("Facture conforme Factur-X - XML embarqué", props.Text{
			Size: 8, Color: colorGray, Top: 3,
		}),
	)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: générer document: %w", err)
	}

	// Le PDF de base doit déjà déclarer un flux Metadata avant que le
	// post-processeur n'y injecte le paquet XMP définitif.
	baseline, err := r.processor.PrepareMetadata(doc.GetBytes())
	if err != nil {
		return nil, fmt.Errorf("pdf: préparer le flux Metadata: %w", err)
	}
	return baseline, nil
}

// ── Sections ──────────────────────────────────────────────────────────────────

// logoRow : logo centré à hauteur fixe, proportions conservées.
func logoRow(logo []byte) core.Row {
	return row.New(22).Add(
		col.New(12).Add(image.NewFromBytes(logo, sniffImageExt(logo), props.Rect{
			Center:  true,
			Percent: 90,
		})),
	)
}

// emitterRows : bloc émetteur (raison sociale en gras, adresse, SIRET,
// TVA si renseignée).
func emitterRows(emitter *entity.Emitter) []core.Row {
	rows := []core.Row{
		row.New(9).Add(col.New(12).Add(
			text.New(emitter.Name, props.Text{
				Style: fontstyle.Bold, Size: 16, Color: colorInk, Top: 1,
			}),
		)),
		row.New(6).Add(col.New(12).Add(
			text.New(emitter.Address, props.Text{Size: 10, Color: colorInk}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New(EmitterLegalIDs(emitter), props.Text{Size: 8, Color: colorGray}),
		)),
	}
	if strings.TrimSpace(emitter.VATNumber) != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("TVA: "+emitter.VATNumber, props.Text{Size: 8, Color: colorGray}),
		)))
	}
	return rows
}

// titleRows : titre du type de document centré, puis numéro (gauche) et
// dates (droite). La date est affichée JJ/MM/AAAA, distinct du AAAAMMJJ
// émis dans le XML.
func titleRows(inv *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(14).Add(col.New(12).Add(
			text.New(inv.TypeCode.Title(), props.Text{
				Style: fontstyle.Bold, Size: 16, Align: align.Center,
				Color: colorAccent, Top: 4,
			}),
		)),
		row.New(6).Add(
			col.New(6).Add(text.New("N° "+inv.InvoiceNumber, props.Text{
				Style: fontstyle.Bold, Size: 11,
			})),
			col.New(6).Add(text.New("Date: "+FormatDateDisplay(inv.IssueDate), props.Text{
				Size: 10, Align: align.Right,
			})),
		),
	}
	if strings.TrimSpace(inv.DueDate) != "" {
		rows = append(rows, row.New(5).Add(
			col.New(6),
			col.New(6).Add(text.New("Échéance: "+FormatDateDisplay(inv.DueDate), props.Text{
				Size: 10, Align: align.Right,
			})),
		))
	}
	return rows
}

// recipientRows : bloc client.
func recipientRows(inv *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(9).Add(col.New(12).Add(
			text.New("CLIENT", props.Text{
				Style: fontstyle.Bold, Size: 11, Color: colorAccent, Top: 3,
			}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New(inv.RecipientName, props.Text{Size: 10}),
		)),
	}
	if strings.TrimSpace(inv.RecipientAddress) != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(inv.RecipientAddress, props.Text{Size: 10}),
		)))
	}
	rows = append(rows, row.New(4).Add(col.New(12).Add(
		text.New("SIRET: "+inv.RecipientSIRET, props.Text{Size: 8, Color: colorGray}),
	)))
	if strings.TrimSpace(inv.RecipientVATNumber) != "" {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New("N° TVA: "+inv.RecipientVATNumber, props.Text{Size: 8, Color: colorGray}),
		)))
	}
	rows = append(rows, row.New(6).Add(col.New(12).Add(
		text.New("Pays: "+inv.RecipientCountryCode, props.Text{Size: 8, Color: colorGray}),
	)))
	return rows
}

// tableHeaderRow : les cinq colonnes fixes de la table des lignes.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 3,
		}))
	}
	return row.New(9).Add(
		h("Description", 5, align.Left),
		h("Qté", 1, align.Right),
		h("PU HT", 2, align.Right),
		h("TVA", 1, align.Right),
		h("Total HT", 3, align.Right),
	)
}

// tableLineRows : une ligne par ligne valide, plus une sous-ligne en
// retrait lorsque la remise calculée est strictement positive.
func tableLineRows(inv *entity.Invoice) []core.Row {
	var rows []core.Row
	for _, l := range inv.ValidLines() {
		rows = append(rows, row.New(6).Add(
			col.New(5).Add(text.New(truncate(l.Description, descMaxLen, descTruncLen), props.Text{
				Size: 8, Align: align.Left, Top: 1,
			})),
			col.New(1).Add(text.New(l.Quantity.StringFixed(2), props.Text{
				Size: 8, Align: align.Right, Top: 1,
			})),
			col.New(2).Add(text.New(tax.FormatAmount(l.UnitPriceHT), props.Text{
				Size: 8, Align: align.Right, Top: 1,
			})),
			col.New(1).Add(text.New(l.VATRate.StringFixed(1)+"%", props.Text{
				Size: 8, Align: align.Right, Top: 1,
			})),
			col.New(3).Add(text.New(tax.FormatAmount(l.TotalHTValue()), props.Text{
				Size: 8, Align: align.Right, Top: 1,
			})),
		))

		if l.DiscountTotalValue().IsPositive() {
			rows = append(rows, row.New(5).Add(col.New(12).Add(
				text.New(fmt.Sprintf("    - Remise sur %s: -%s %s",
					truncate(l.Description, descShortMaxLen, descShortTrunc),
					tax.FormatAmount(l.DiscountTotalValue()),
					inv.CurrencyCode,
				), props.Text{Size: 8, Color: colorGray, Top: 1}),
			)))
		}
	}
	return rows
}

// vatBreakdownRows : récapitulatif de TVA par taux, même regroupement et
// mêmes montants que les blocs ApplicableTradeTax du XML.
func vatBreakdownRows(inv *entity.Invoice) []core.Row {
	groups := tax.Breakdown(inv)
	if len(groups) == 0 {
		return nil
	}
	rows := []core.Row{
		row.New(7).Add(col.New(12).Add(
			text.New("Récapitulatif TVA", props.Text{
				Style: fontstyle.Bold, Size: 8, Top: 2,
			}),
		)),
	}
	for _, g := range groups {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(fmt.Sprintf("TVA %s%% : Base %s %s - TVA %s %s",
				g.Rate.StringFixed(1),
				tax.FormatAmount(g.Basis), inv.CurrencyCode,
				tax.FormatAmount(g.Tax), inv.CurrencyCode,
			), props.Text{Size: 8, Left: 4, Top: 1}),
		)))
	}
	return rows
}

// totalsRows : bloc des totaux aligné à droite, TTC mis en valeur.
func totalsRows(currency string, totals tax.Totals) []core.Row {
	value := func(label, amount string) core.Row {
		return row.New(6).Add(
			col.New(6),
			col.New(3).Add(text.New(label, props.Text{
				Size: 10, Align: align.Right, Right: 2, Top: 1,
			})),
			col.New(3).Add(text.New(amount+" "+currency, props.Text{
				Size: 10, Align: align.Right, Top: 1,
			})),
		)
	}
	grand := row.New(8).Add(
		col.New(6),
		col.New(3).Add(text.New("Total TTC:", props.Text{
			Style: fontstyle.Bold, Size: 12, Align: align.Right,
			Color: colorAccent, Right: 2, Top: 1,
		})),
		col.New(3).Add(text.New(tax.FormatAmount(totals.TTC)+" "+currency, props.Text{
			Style: fontstyle.Bold, Size: 12, Align: align.Right,
			Color: colorAccent, Top: 1,
		})),
	)
	return []core.Row{
		value("Total HT:", tax.FormatAmount(totals.HT)),
		value("Total TVA:", tax.FormatAmount(totals.VAT)),
		grand,
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// EmitterLegalIDs compose la ligne d'identifiants légaux du bloc émetteur :
// SIREN puis SIRET quand les deux sont renseignés, SIRET seul sinon.
func EmitterLegalIDs(emitter *entity.Emitter) string {
	if strings.TrimSpace(emitter.SIREN) != "" {
		return "SIREN: " + emitter.SIREN + " - SIRET: " + emitter.SIRET
	}
	return "SIRET: " + emitter.SIRET
}

// FormatDateDisplay convertit AAAA-MM-JJ en JJ/MM/AAAA pour l'affichage.
// Toute autre forme est retournée telle quelle (la validation amont a déjà
// rejeté les dates invalides).
func FormatDateDisplay(date string) string {
	if len(date) == 10 && date[4] == '-' && date[7] == '-' {
		return date[8:] + "/" + date[5:7] + "/" + date[:4]
	}
	return date
}

// truncate coupe s à truncLen caractères suivis d'une ellipse si s dépasse
// maxLen (en runes, pour ne pas couper un caractère accentué).
func truncate(s string, maxLen, truncLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:truncLen]) + "..."
}

// sniffImageExt déduit le format du logo de ses premiers octets.
func sniffImageExt(b []byte) extension.Type {
	if bytes.HasPrefix(b, []byte("\x89PNG")) {
		return extension.Png
	}
	return extension.Jpg
}
