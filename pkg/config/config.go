package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/facturegen/facturx/internal/domain"
)

// Config regroupe la configuration de l'application (lecture via Viper
// depuis l'environnement et optionnellement un fichier).
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Emitter EmitterConfig
	Assets  AssetsConfig
}

// AppConfig configuration générale de l'application.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string // trace, debug, info, warn, error
}

// HTTPConfig configuration du serveur HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr retourne l'adresse d'écoute (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EmitterConfig identité de l'émetteur des factures. Fixée par déploiement :
// un service facturegen émet toujours pour la même entreprise.
type EmitterConfig struct {
	SIREN     string // 9 chiffres
	SIRET     string // 14 chiffres (SIREN + NIC)
	Name      string // Raison sociale
	Address   string // Adresse postale sur une ligne
	BIC       string // Optionnel
	VATNumber string // TVA intracommunautaire, optionnelle
}

// Validate contrôle que l'identité émetteur est exploitable. Appelé une
// seule fois au démarrage : une identité invalide empêche le boot plutôt
// que de produire des factures non conformes.
func (c EmitterConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: EMITTER_NAME est obligatoire", domain.ErrValidation)
	}
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("%w: EMITTER_ADDRESS est obligatoire", domain.ErrValidation)
	}
	if len(onlyDigits(c.SIRET)) != 14 {
		return fmt.Errorf("%w: EMITTER_SIRET doit contenir 14 chiffres", domain.ErrValidation)
	}
	if c.SIREN != "" && len(onlyDigits(c.SIREN)) != 9 {
		return fmt.Errorf("%w: EMITTER_SIREN doit contenir 9 chiffres", domain.ErrValidation)
	}
	return nil
}

// AssetsConfig emplacements des actifs de rendu.
type AssetsConfig struct {
	Dir         string // Répertoire racine des actifs
	FontRegular string // Nom de fichier de la police régulière
	FontBold    string // Nom de fichier de la police grasse
	Logo        string // Nom de fichier du logo, vide = pas de logo
}

// Load lit la configuration depuis les variables d'environnement (et
// optionnellement depuis un fichier). Les env vars ont priorité. Noms
// attendus : APP_ENV, HTTP_PORT, EMITTER_SIRET, ASSETS_DIR, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Optionnel : fichier de configuration (.env ou config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // erreur ignorée si absent

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // erreur ignorée si absent

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "facturegen"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Emitter: EmitterConfig{
			SIREN:     getString(v, "EMITTER_SIREN", ""),
			SIRET:     getString(v, "EMITTER_SIRET", ""),
			Name:      getString(v, "EMITTER_NAME", ""),
			Address:   getString(v, "EMITTER_ADDRESS", ""),
			BIC:       getString(v, "EMITTER_BIC", ""),
			VATNumber: getString(v, "EMITTER_VAT_NUMBER", ""),
		},
		Assets: AssetsConfig{
			Dir:         getString(v, "ASSETS_DIR", "./assets"),
			FontRegular: getString(v, "ASSETS_FONT_REGULAR", "LiberationSans-Regular.ttf"),
			FontBold:    getString(v, "ASSETS_FONT_BOLD", "LiberationSans-Bold.ttf"),
			Logo:        getString(v, "ASSETS_LOGO", ""),
		},
	}

	return cfg, nil
}

func onlyDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			// Une valeur illisible retombe sur le défaut plutôt que de
			// devenir silencieusement 0 (port arbitraire à l'écoute).
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
