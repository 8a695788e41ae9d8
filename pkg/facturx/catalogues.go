// Package facturx contient les catalogues et constantes du standard
// Factur-X (hybride franco-allemand PDF/A-3 + CII UN/CEFACT).
package facturx

// Version du standard Factur-X implémentée.
const Version = "1.0"

// XMLFilename est le nom canonique du fichier XML embarqué dans le PDF.
// Les lecteurs Factur-X cherchent ce nom exact dans le tableau AF du
// catalogue ; tout autre nom déclenche un avertissement à la validation XMP.
const XMLFilename = "factur-x.xml"

// XMLMimeType est le type MIME déclaré pour le fichier embarqué.
const XMLMimeType = "text/xml"

// DocumentType est la valeur fixe de fx:DocumentType dans le paquet XMP.
const DocumentType = "INVOICE"

// Profile est le profil de conformité Factur-X.
type Profile int

const (
	ProfileMinimum Profile = iota
	ProfileBasicWL
	ProfileBasic
	ProfileEN16931
	ProfileExtended
)

// URN retourne l'identifiant de guideline du profil, placé dans
// ram:GuidelineSpecifiedDocumentContextParameter du XML CII.
func (p Profile) URN() string {
	switch p {
	case ProfileBasicWL:
		return "urn:factur-x.eu:1p0:basicwl"
	case ProfileBasic:
		return "urn:factur-x.eu:1p0:basic"
	case ProfileEN16931:
		return "urn:factur-x.eu:1p0:en16931"
	case ProfileExtended:
		return "urn:factur-x.eu:1p0:extended"
	default:
		return "urn:factur-x.eu:1p0:minimum"
	}
}

// Name retourne le nom du profil tel qu'attendu dans fx:ConformanceLevel.
func (p Profile) Name() string {
	switch p {
	case ProfileBasicWL:
		return "BASIC WL"
	case ProfileBasic:
		return "BASIC"
	case ProfileEN16931:
		return "EN 16931"
	case ProfileExtended:
		return "EXTENDED"
	default:
		return "MINIMUM"
	}
}

// Schémas d'identification CII utilisés par les parties.
const (
	// SchemeSIRET : identification légale française (ISO/IEC 6523 0002).
	SchemeSIRET = "0002"
	// SchemeVAT : immatriculation TVA (ram:SpecifiedTaxRegistration).
	SchemeVAT = "VA"
)

// Codes de TVA CII pour le profil MINIMUM (catégorie standard uniquement).
const (
	TaxTypeVAT          = "VAT"
	TaxCategoryStandard = "S"
)
