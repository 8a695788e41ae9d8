package facturx

import (
	"context"
	"time"

	"github.com/facturegen/facturx/internal/domain/entity"
	"github.com/facturegen/facturx/internal/domain/tax"
)

// XMLBuilder produit le document CII de la facture.
type XMLBuilder interface {
	Build(inv *entity.Invoice, emitter *entity.Emitter, totals tax.Totals) ([]byte, error)
}

// PDFRenderer produit la représentation visuelle de la facture.
// Le PDF retourné doit déjà déclarer un flux Metadata dans son catalogue.
type PDFRenderer interface {
	Render(ctx context.Context, inv *entity.Invoice, emitter *entity.Emitter, totals tax.Totals) ([]byte, error)
}

// ContainerProcessor assemble le conteneur PDF/A-3 final.
type ContainerProcessor interface {
	EmbedXML(pdf, xmlContent []byte, now time.Time) ([]byte, error)
	InjectXMP(pdf []byte, xmpPacket string) ([]byte, error)
	ExtractXML(pdf []byte, name string) ([]byte, error)
}

// Clock fournit l'instant courant. Injectée pour que deux générations à
// horloge fixée produisent des artefacts octet pour octet identiques.
type Clock func() time.Time
