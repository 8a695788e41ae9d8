// Package xmp génère le paquet de métadonnées XMP affirmant la conformité
// PDF/A-3 et portant le schéma d'extension Factur-X.
//
// Un validateur PDF/A-3 exige que le bloc de déclaration du schéma
// d'extension et le bloc de valeurs fx: soient présents et cohérents entre
// eux (mêmes noms de propriétés) ; les deux sont émis ensemble ici.
package xmp

import (
	"fmt"
	"strings"
	"time"

	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/pkg/facturx"
)

// Metadata porte les informations nécessaires au paquet XMP.
// Construit à chaque génération, validé avant usage, jamais conservé.
type Metadata struct {
	Title       string          // Titre du document (ex: "Facture FA-2024-001")
	Author      string          // Créateur (raison sociale de l'émetteur)
	Subject     string          // Sujet du document
	Profile     facturx.Profile // Profil Factur-X affirmé
	XMLFilename string          // Nom du fichier XML embarqué
	Version     string          // Version du standard Factur-X
}

// DefaultMetadata retourne des métadonnées pré-remplies avec les valeurs
// canoniques Factur-X ; titre et auteur restent à poser par l'appelant.
func DefaultMetadata() Metadata {
	return Metadata{
		Subject:     "Facture électronique Factur-X",
		Profile:     facturx.ProfileMinimum,
		XMLFilename: facturx.XMLFilename,
		Version:     facturx.Version,
	}
}

// ValidationResult est le bilan complet d'une validation de métadonnées.
// Les erreurs sont collectées en totalité avant retour ; les avertissements
// n'empêchent pas la génération.
type ValidationResult struct {
	IsValid  bool
	Errors   []domain.FieldError
	Warnings []string
}

// Validate contrôle les métadonnées requises pour la conformité PDF/A-3 et
// Factur-X. Toutes les règles sont indépendantes et toutes évaluées.
func Validate(m Metadata) ValidationResult {
	var errs []domain.FieldError
	var warns []string

	if m.Title == "" {
		errs = append(errs, domain.NewFieldError("title",
			"le titre du document est requis pour PDF/A-3"))
	}
	if m.Author == "" {
		errs = append(errs, domain.NewFieldError("author",
			"l'auteur du document est requis pour PDF/A-3"))
	}
	if m.XMLFilename == "" {
		errs = append(errs, domain.NewFieldError("xml_filename",
			"le nom du fichier XML embarqué est requis"))
	} else if !strings.HasSuffix(m.XMLFilename, ".xml") {
		errs = append(errs, domain.NewFieldError("xml_filename",
			"le fichier XML doit avoir l'extension .xml"))
	}
	if m.XMLFilename != "" && m.XMLFilename != facturx.XMLFilename {
		warns = append(warns, fmt.Sprintf(
			"le nom de fichier XML %q n'est pas le nom standard %q",
			m.XMLFilename, facturx.XMLFilename))
	}
	if m.Version == "" {
		errs = append(errs, domain.NewFieldError("facturx_version",
			"la version Factur-X est requise"))
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// Generate émet le paquet XMP complet. Les métadonnées sont revalidées :
// un résultat invalide retourne une erreur récapitulant tous les champs en
// défaut. L'instant `now` est injecté par l'appelant pour que deux
// générations à horloge fixée soient octet pour octet identiques.
func Generate(m Metadata, now time.Time) (string, error) {
	v := Validate(m)
	if !v.IsValid {
		msgs := make([]string, 0, len(v.Errors))
		for _, e := range v.Errors {
			msgs = append(msgs, e.Error())
		}
		return "", fmt.Errorf("%w: métadonnées XMP: %s",
			domain.ErrValidation, strings.Join(msgs, "; "))
	}

	// Les trois horodatages XMP portent le même instant, en UTC avec le
	// décalage explicite +00:00 attendu par les validateurs.
	timestamp := now.UTC().Format("2006-01-02T15:04:05") + "+00:00"

	return fmt.Sprintf(packetTemplate,
		escapeXML(m.Title),
		escapeXML(m.Author),
		escapeXML(m.Subject),
		timestamp, timestamp, timestamp,
		escapeXML(m.XMLFilename),
		facturx.DocumentType,
		escapeXML(m.Version),
		m.Profile.Name(),
	), nil
}

// escapeXML échappe les cinq caractères spéciaux XML du texte libre.
func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// packetTemplate est le paquet XMP complet : Dublin Core, XMP basic,
// producteur PDF, identification PDF/A-3 niveau B, déclaration du schéma
// d'extension Factur-X (fx) et bloc de valeurs fx correspondant.
const packetTemplate = `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
  <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">

    <rdf:Description rdf:about=""
        xmlns:dc="http://purl.org/dc/elements/1.1/">
      <dc:format>application/pdf</dc:format>
      <dc:title>
        <rdf:Alt>
          <rdf:li xml:lang="x-default">%s</rdf:li>
        </rdf:Alt>
      </dc:title>
      <dc:creator>
        <rdf:Seq>
          <rdf:li>%s</rdf:li>
        </rdf:Seq>
      </dc:creator>
      <dc:description>
        <rdf:Alt>
          <rdf:li xml:lang="x-default">%s</rdf:li>
        </rdf:Alt>
      </dc:description>
    </rdf:Description>

    <rdf:Description rdf:about=""
        xmlns:xmp="http://ns.adobe.com/xap/1.0/">
      <xmp:CreatorTool>facturegen</xmp:CreatorTool>
      <xmp:CreateDate>%s</xmp:CreateDate>
      <xmp:ModifyDate>%s</xmp:ModifyDate>
      <xmp:MetadataDate>%s</xmp:MetadataDate>
    </rdf:Description>

    <rdf:Description rdf:about=""
        xmlns:pdf="http://ns.adobe.com/pdf/1.3/">
      <pdf:Producer>facturegen (maroto + pdfcpu)</pdf:Producer>
    </rdf:Description>

    <rdf:Description rdf:about=""
        xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/">
      <pdfaid:part>3</pdfaid:part>
      <pdfaid:conformance>B</pdfaid:conformance>
    </rdf:Description>

    <rdf:Description rdf:about=""
        xmlns:pdfaExtension="http://www.aiim.org/pdfa/ns/extension/"
        xmlns:pdfaSchema="http://www.aiim.org/pdfa/ns/schema#"
        xmlns:pdfaProperty="http://www.aiim.org/pdfa/ns/property#">
      <pdfaExtension:schemas>
        <rdf:Bag>
          <rdf:li rdf:parseType="Resource">
            <pdfaSchema:schema>Factur-X PDFA Extension Schema</pdfaSchema:schema>
            <pdfaSchema:namespaceURI>urn:factur-x:pdfa:CrossIndustryDocument:invoice:1p0#</pdfaSchema:namespaceURI>
            <pdfaSchema:prefix>fx</pdfaSchema:prefix>
            <pdfaSchema:property>
              <rdf:Seq>
                <rdf:li rdf:parseType="Resource">
                  <pdfaProperty:name>DocumentFileName</pdfaProperty:name>
                  <pdfaProperty:valueType>Text</pdfaProperty:valueType>
                  <pdfaProperty:category>external</pdfaProperty:category>
                  <pdfaProperty:description>Name of the embedded XML invoice file</pdfaProperty:description>
                </rdf:li>
                <rdf:li rdf:parseType="Resource">
                  <pdfaProperty:name>DocumentType</pdfaProperty:name>
                  <pdfaProperty:valueType>Text</pdfaProperty:valueType>
                  <pdfaProperty:category>external</pdfaProperty:category>
                  <pdfaProperty:description>INVOICE</pdfaProperty:description>
                </rdf:li>
                <rdf:li rdf:parseType="Resource">
                  <pdfaProperty:name>Version</pdfaProperty:name>
                  <pdfaProperty:valueType>Text</pdfaProperty:valueType>
                  <pdfaProperty:category>external</pdfaProperty:category>
                  <pdfaProperty:description>Version of the Factur-X standard</pdfaProperty:description>
                </rdf:li>
                <rdf:li rdf:parseType="Resource">
                  <pdfaProperty:name>ConformanceLevel</pdfaProperty:name>
                  <pdfaProperty:valueType>Text</pdfaProperty:valueType>
                  <pdfaProperty:category>external</pdfaProperty:category>
                  <pdfaProperty:description>Conformance level of the Factur-X invoice</pdfaProperty:description>
                </rdf:li>
              </rdf:Seq>
            </pdfaSchema:property>
          </rdf:li>
        </rdf:Bag>
      </pdfaExtension:schemas>
    </rdf:Description>

    <rdf:Description rdf:about=""
        xmlns:fx="urn:factur-x:pdfa:CrossIndustryDocument:invoice:1p0#">
      <fx:DocumentFileName>%s</fx:DocumentFileName>
      <fx:DocumentType>%s</fx:DocumentType>
      <fx:Version>%s</fx:Version>
      <fx:ConformanceLevel>%s</fx:ConformanceLevel>
    </rdf:Description>

  </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`
