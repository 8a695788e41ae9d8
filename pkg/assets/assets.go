// Package assets charge les actifs de rendu (polices, logo) depuis le
// répertoire configuré. Les chemins sont bornés au répertoire racine :
// un nom de fichier contenant une traversée est rejeté.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/facturegen/facturx/internal/domain"
)

// Loader lit les actifs sous un répertoire racine.
type Loader struct {
	dir string
}

// NewLoader crée le chargeur pour le répertoire donné.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load retourne les octets de l'actif nommé. Les erreurs d'E/S sont
// enveloppées dans domain.ErrLoad.
func (l *Loader) Load(name string) ([]byte, error) {
	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: lecture de %s: %v", domain.ErrLoad, name, err)
	}
	return b, nil
}

// LoadOptional retourne les octets de l'actif, ou nil sans erreur si le nom
// est vide ou si le fichier n'existe pas (logo facultatif).
func (l *Loader) LoadOptional(name string) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: lecture de %s: %v", domain.ErrLoad, name, err)
	}
	return b, nil
}

// resolve vérifie que le nom reste sous le répertoire racine.
func (l *Loader) resolve(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: nom d'actif hors du répertoire racine: %s", domain.ErrLoad, name)
	}
	return filepath.Join(l.dir, cleaned), nil
}
