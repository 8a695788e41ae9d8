package entity

// Emitter représente l'identité de l'émetteur des factures.
// Chargé une seule fois au démarrage (pkg/config) puis partagé en lecture
// seule entre tous les appels de génération : aucun champ n'est muté après
// le chargement, le partage concurrent est donc sûr sans verrou.
type Emitter struct {
	SIREN     string // Numéro SIREN (9 chiffres, optionnel)
	SIRET     string // SIRET de l'établissement (14 chiffres, obligatoire)
	Name      string // Raison sociale affichée sur la facture
	Address   string // Adresse postale sur une ligne
	BIC       string // BIC bancaire (optionnel)
	VATNumber string // Numéro de TVA intracommunautaire (optionnel)
}
