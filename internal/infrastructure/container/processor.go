// Package container post-traite le conteneur PDF : il attache le XML CII
// en fichier associé selon la convention PDF/A-3 et remplace le flux de
// métadonnées XMP du catalogue. Tout passe par pdfcpu au niveau de la table
// de références croisées, si bien que chaque sauvegarde reconstruit une
// structure d'objets valide ou échoue explicitement.
package container

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/pkg/facturx"
)

// placeholderXMP est le paquet minimal posé par PrepareMetadata ; il est
// intégralement remplacé par InjectXMP avant livraison de l'artefact.
const placeholderXMP = `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
  <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"/>
</x:xmpmeta>
<?xpacket end="w"?>`

// Processor encapsule la configuration pdfcpu. Sans état entre appels,
// partageable entre goroutines.
type Processor struct {
	conf *model.Configuration
}

// NewProcessor construit le post-processeur avec la configuration pdfcpu
// par défaut (validation relâchée à la lecture).
func NewProcessor() *Processor {
	return &Processor{conf: model.NewDefaultConfiguration()}
}

// EmbedXML attache le XML de facture au PDF selon la convention
// « Associated Files » de PDF/A-3 :
//
//  1. flux EmbeddedFile portant les octets bruts du XML (type MIME text/xml) ;
//  2. dictionnaire Filespec nommé facturx.XMLFilename, relation "Data" ;
//  3. entrée dans l'arbre de noms Names/EmbeddedFiles (lecteurs PDF génériques) ;
//  4. référence dans le tableau AF du catalogue — c'est ce marqueur que les
//     validateurs PDF/A-3 et les lecteurs Factur-X consultent ; sans lui le
//     PDF contient le XML mais n'est pas reconnu comme Factur-X.
//
// `now` alimente le ModDate du fichier embarqué ; l'injecter permet une
// sortie reproductible à horloge fixée.
func (p *Processor) EmbedXML(pdf, xmlContent []byte, now time.Time) ([]byte, error) {
	ctx, err := p.read(pdf)
	if err != nil {
		return nil, err
	}
	xt := ctx.XRefTable

	// 1. Flux du fichier embarqué.
	sd, err := xt.NewStreamDictForBuf(xmlContent)
	if err != nil {
		return nil, fmt.Errorf("%w: flux EmbeddedFile: %v", domain.ErrContainer, err)
	}
	sd.InsertName("Type", "EmbeddedFile")
	sd.Insert("Subtype", types.Name(facturx.XMLMimeType))
	sd.Insert("Params", types.Dict(map[string]types.Object{
		"Size":    types.Integer(len(xmlContent)),
		"ModDate": types.StringLiteral(types.DateString(now)),
	}))
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("%w: encodage du flux XML: %v", domain.ErrContainer, err)
	}
	efRef, err := xt.IndRefForNewObject(*sd)
	if err != nil {
		return nil, fmt.Errorf("%w: objet EmbeddedFile: %v", domain.ErrContainer, err)
	}

	// 2. Filespec avec relation explicite "Data".
	fs := types.Dict(map[string]types.Object{
		"Type":           types.Name("Filespec"),
		"F":              types.StringLiteral(facturx.XMLFilename),
		"UF":             types.StringLiteral(facturx.XMLFilename),
		"Desc":           types.StringLiteral("Factur-X invoice (CII XML)"),
		"AFRelationship": types.Name("Data"),
		"EF": types.Dict(map[string]types.Object{
			"F":  *efRef,
			"UF": *efRef,
		}),
	})
	fsRef, err := xt.IndRefForNewObject(fs)
	if err != nil {
		return nil, fmt.Errorf("%w: objet Filespec: %v", domain.ErrContainer, err)
	}

	rootDict, err := xt.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: catalogue introuvable: %v", domain.ErrContainer, err)
	}

	// 3. Arbre de noms Names/EmbeddedFiles. Une feuille déjà présente est
	// fusionnée, jamais écrasée : les fichiers embarqués préexistants du
	// PDF de base restent accessibles.
	pair := types.Array{types.StringLiteral(facturx.XMLFilename), *fsRef}
	if obj, found := rootDict.Find("Names"); found {
		namesDict, err := xt.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: dictionnaire Names: %v", domain.ErrContainer, err)
		}
		if efObj, found := namesDict.Find("EmbeddedFiles"); found {
			efDict, err := xt.DereferenceDict(efObj)
			if err != nil {
				return nil, fmt.Errorf("%w: arbre EmbeddedFiles: %v", domain.ErrContainer, err)
			}
			if pairsObj, found := efDict.Find("Names"); found {
				pairs, err := xt.DereferenceArray(pairsObj)
				if err != nil {
					return nil, fmt.Errorf("%w: feuille EmbeddedFiles: %v", domain.ErrContainer, err)
				}
				efDict["Names"] = append(pairs, pair...)
			} else {
				efDict["Names"] = pair
			}
		} else {
			namesDict["EmbeddedFiles"] = types.Dict(map[string]types.Object{"Names": pair})
		}
	} else {
		rootDict["Names"] = types.Dict(map[string]types.Object{
			"EmbeddedFiles": types.Dict(map[string]types.Object{"Names": pair}),
		})
	}

	// 4. Tableau AF du catalogue.
	if obj, found := rootDict.Find("AF"); found {
		arr, err := xt.DereferenceArray(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: tableau AF: %v", domain.ErrContainer, err)
		}
		rootDict["AF"] = append(arr, *fsRef)
	} else {
		rootDict["AF"] = types.Array{*fsRef}
	}

	return p.write(ctx)
}

// InjectXMP remplace le contenu du flux Metadata du catalogue par le paquet
// XMP fourni, en conservant l'identité de l'objet : aucune autre référence
// croisée n'a besoin d'être mise à jour. Échoue si le PDF de base ne déclare
// pas déjà de flux Metadata (voir PrepareMetadata).
func (p *Processor) InjectXMP(pdf []byte, xmpPacket string) ([]byte, error) {
	ctx, err := p.read(pdf)
	if err != nil {
		return nil, err
	}
	xt := ctx.XRefTable

	rootDict, err := xt.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: catalogue introuvable: %v", domain.ErrContainer, err)
	}
	ir := rootDict.IndirectRefEntry("Metadata")
	if ir == nil {
		return nil, fmt.Errorf("%w: le catalogue ne déclare pas de flux Metadata", domain.ErrContainer)
	}
	entry, ok := xt.FindTableEntryForIndRef(ir)
	if !ok {
		return nil, fmt.Errorf("%w: objet Metadata %d introuvable dans la table xref",
			domain.ErrContainer, ir.ObjectNumber)
	}
	entry.Object = xmpStreamDict([]byte(xmpPacket))

	return p.write(ctx)
}

// PrepareMetadata garantit que le catalogue déclare un flux Metadata, en
// posant un paquet XMP vide si besoin. Appelé par le moteur de rendu pour
// que le PDF de base respecte toujours le contrat d'InjectXMP.
func (p *Processor) PrepareMetadata(pdf []byte) ([]byte, error) {
	ctx, err := p.read(pdf)
	if err != nil {
		return nil, err
	}
	xt := ctx.XRefTable

	rootDict, err := xt.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: catalogue introuvable: %v", domain.ErrContainer, err)
	}
	if rootDict.IndirectRefEntry("Metadata") != nil {
		return pdf, nil
	}
	ir, err := xt.IndRefForNewObject(xmpStreamDict([]byte(placeholderXMP)))
	if err != nil {
		return nil, fmt.Errorf("%w: objet Metadata: %v", domain.ErrContainer, err)
	}
	rootDict["Metadata"] = *ir

	return p.write(ctx)
}

// ExtractXML extrait, octet pour octet, le fichier embarqué nommé `name`
// depuis l'arbre Names/EmbeddedFiles. Utilisé par l'API de relecture et par
// les tests d'aller-retour XML.
func (p *Processor) ExtractXML(pdf []byte, name string) ([]byte, error) {
	ctx, err := p.read(pdf)
	if err != nil {
		return nil, err
	}
	xt := ctx.XRefTable

	rootDict, err := xt.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: catalogue introuvable: %v", domain.ErrContainer, err)
	}
	obj, found := rootDict.Find("Names")
	if !found {
		return nil, fmt.Errorf("%w: pas d'arbre de noms dans le catalogue", domain.ErrContainer)
	}
	namesDict, err := xt.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: dictionnaire Names: %v", domain.ErrContainer, err)
	}
	obj, found = namesDict.Find("EmbeddedFiles")
	if !found {
		return nil, fmt.Errorf("%w: pas d'entrée EmbeddedFiles", domain.ErrContainer)
	}
	efTree, err := xt.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: arbre EmbeddedFiles: %v", domain.ErrContainer, err)
	}
	obj, found = efTree.Find("Names")
	if !found {
		return nil, fmt.Errorf("%w: feuille Names absente de l'arbre EmbeddedFiles", domain.ErrContainer)
	}
	pairs, err := xt.DereferenceArray(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: feuille EmbeddedFiles: %v", domain.ErrContainer, err)
	}

	for i := 0; i+1 < len(pairs); i += 2 {
		sl, ok := pairs[i].(types.StringLiteral)
		if !ok || sl.Value() != name {
			continue
		}
		fsDict, err := xt.DereferenceDict(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: Filespec de %s: %v", domain.ErrContainer, name, err)
		}
		efObj, found := fsDict.Find("EF")
		if !found {
			return nil, fmt.Errorf("%w: Filespec de %s sans dictionnaire EF", domain.ErrContainer, name)
		}
		efDict, err := xt.DereferenceDict(efObj)
		if err != nil {
			return nil, fmt.Errorf("%w: dictionnaire EF de %s: %v", domain.ErrContainer, name, err)
		}
		fObj, found := efDict.Find("F")
		if !found {
			return nil, fmt.Errorf("%w: flux embarqué de %s absent", domain.ErrContainer, name)
		}
		sd, _, err := xt.DereferenceStreamDict(fObj)
		if err != nil || sd == nil {
			return nil, fmt.Errorf("%w: flux embarqué de %s: %v", domain.ErrContainer, name, err)
		}
		if err := sd.Decode(); err != nil {
			return nil, fmt.Errorf("%w: décodage du flux de %s: %v", domain.ErrContainer, name, err)
		}
		return sd.Content, nil
	}
	return nil, fmt.Errorf("%w: fichier embarqué %s introuvable", domain.ErrContainer, name)
}

// Validate vérifie la validité structurelle du PDF assemblé et remonte
// l'erreur du validateur telle quelle pour diagnostic.
func (p *Processor) Validate(pdf []byte) error {
	ctx, err := p.read(pdf)
	if err != nil {
		return err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func (p *Processor) read(pdf []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(pdf), p.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: lecture du PDF: %v", domain.ErrContainer, err)
	}
	return ctx, nil
}

func (p *Processor) write(ctx *model.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("%w: sauvegarde du PDF: %v", domain.ErrContainer, err)
	}
	return buf.Bytes(), nil
}

// xmpStreamDict construit le flux Metadata. PDF/A impose un flux XMP non
// filtré : Raw et Content portent les mêmes octets, sans pipeline.
func xmpStreamDict(xmp []byte) types.StreamDict {
	length := int64(len(xmp))
	return types.StreamDict{
		Dict: types.Dict(map[string]types.Object{
			"Type":    types.Name("Metadata"),
			"Subtype": types.Name("XML"),
			"Length":  types.Integer(len(xmp)),
		}),
		Content:      xmp,
		Raw:          xmp,
		StreamLength: &length,
	}
}
