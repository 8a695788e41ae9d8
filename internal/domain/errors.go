package domain

import "errors"

// Erreurs de domaine (sans dépendances externes).
//
// Taxonomie :
//   - ErrFormat    : chaîne mal formée (date, devise, pays, TVA, SIRET)
//   - ErrValidation: champ requis manquant ou document structurellement rejeté
//   - ErrLoad      : actif (police, logo) illisible
//   - ErrContainer : échec de parsing/sauvegarde du conteneur PDF
var (
	ErrFormat       = errors.New("format de champ invalide")
	ErrValidation   = errors.New("validation échouée")
	ErrLoad         = errors.New("actif illisible")
	ErrContainer    = errors.New("conteneur PDF invalide")
	ErrNotFound     = errors.New("ressource introuvable")
	ErrInvalidInput = errors.New("entrée invalide")
)

// FieldError signale une erreur de validation sur un champ précis.
// Les erreurs de champ sont collectées exhaustivement (jamais fail-fast)
// pour que l'appelant puisse corriger tout le formulaire en une passe.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewFieldError construit une erreur de champ.
func NewFieldError(field, message string) FieldError {
	return FieldError{Field: field, Message: message}
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}
