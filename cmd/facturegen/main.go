// Commande facturegen : génération et relecture de factures Factur-X en
// une passe, sans serveur. Le formulaire de facture est lu en JSON, avec le
// même schéma que l'API HTTP.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/facturegen/facturx/internal/application/dto"
	appfx "github.com/facturegen/facturx/internal/application/facturx"
	"github.com/facturegen/facturx/internal/domain"
	"github.com/facturegen/facturx/internal/domain/entity"
	"github.com/facturegen/facturx/internal/infrastructure/cii"
	"github.com/facturegen/facturx/internal/infrastructure/container"
	infrapdf "github.com/facturegen/facturx/internal/infrastructure/pdf"
	"github.com/facturegen/facturx/pkg/assets"
	"github.com/facturegen/facturx/pkg/config"
	"github.com/facturegen/facturx/pkg/facturx"
	"github.com/facturegen/facturx/pkg/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "facturegen",
		Short:         "Génère des factures électroniques Factur-X (PDF/A-3 + XML CII)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(generateCmd(), validateCmd(), extractCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erreur:", err)
		os.Exit(1)
	}
}

// generateCmd produit le PDF Factur-X (et optionnellement le XML seul) à
// partir d'un formulaire JSON.
func generateCmd() *cobra.Command {
	var output string
	var xmlOutput string

	cmd := &cobra.Command{
		Use:   "generate <facture.json>",
		Short: "Génère le PDF Factur-X d'un formulaire de facture JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := buildUseCase()
			if err != nil {
				return err
			}
			inv, err := readInvoice(args[0])
			if err != nil {
				return err
			}

			artifact, err := uc.Generate(cmd.Context(), inv)
			if err != nil {
				return err
			}

			if output == "" {
				output = artifact.Filename
			}
			if err := os.WriteFile(output, artifact.PDF, 0o644); err != nil {
				return fmt.Errorf("écrire %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PDF écrit:", output)

			if xmlOutput != "" {
				if err := os.WriteFile(xmlOutput, artifact.XML, 0o644); err != nil {
					return fmt.Errorf("écrire %s: %w", xmlOutput, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "XML écrit:", xmlOutput)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "chemin du PDF de sortie (défaut: facture_<numéro>.pdf)")
	cmd.Flags().StringVar(&xmlOutput, "xml", "", "écrit aussi le XML CII seul à ce chemin")
	return cmd
}

// validateCmd contrôle un formulaire sans rien générer. Code de sortie 1 si
// le formulaire contient des erreurs.
func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <facture.json>",
		Short: "Valide un formulaire de facture et liste les erreurs de champ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := readInvoice(args[0])
			if err != nil {
				return err
			}
			errs := inv.Validate()
			if len(errs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "facture valide")
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", e.Field, e.Message)
			}
			return fmt.Errorf("%w: %d erreur(s) de champ", domain.ErrValidation, len(errs))
		},
	}
}

// extractCmd relit le XML CII embarqué dans un PDF Factur-X existant.
func extractCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <facture.pdf>",
		Short: "Extrait le XML CII embarqué d'un PDF Factur-X",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdf, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("lire %s: %w", args[0], err)
			}
			content, err := container.NewProcessor().ExtractXML(pdf, facturx.XMLFilename)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(content)
				return err
			}
			if err := os.WriteFile(output, content, 0o644); err != nil {
				return fmt.Errorf("écrire %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "XML écrit:", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "chemin du XML extrait (défaut: stdout)")
	return cmd
}

// buildUseCase assemble le cas d'usage de génération avec la même
// configuration que le serveur (env vars / fichier .env).
func buildUseCase() (*appfx.GenerateUseCase, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("charger la configuration: %w", err)
	}
	if err := cfg.Emitter.Validate(); err != nil {
		return nil, err
	}
	emitter := &entity.Emitter{
		SIREN:     cfg.Emitter.SIREN,
		SIRET:     cfg.Emitter.SIRET,
		Name:      cfg.Emitter.Name,
		Address:   cfg.Emitter.Address,
		BIC:       cfg.Emitter.BIC,
		VATNumber: cfg.Emitter.VATNumber,
	}

	loader := assets.NewLoader(cfg.Assets.Dir)
	fontRegular, err := loader.Load(cfg.Assets.FontRegular)
	if err != nil {
		return nil, err
	}
	fontBold, err := loader.Load(cfg.Assets.FontBold)
	if err != nil {
		return nil, err
	}
	logo, err := loader.LoadOptional(cfg.Assets.Logo)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "warn"})
	processor := container.NewProcessor()
	renderer := infrapdf.NewRenderer(infrapdf.Assets{
		FontRegular: fontRegular,
		FontBold:    fontBold,
		Logo:        logo,
	}, processor)

	return appfx.NewGenerateUseCase(
		emitter, cii.NewBuilder(), renderer, processor, time.Now, log,
	), nil
}

// readInvoice lit et convertit un formulaire JSON. Les erreurs de champ de
// la conversion sont remontées tout de suite ; la validation complète a lieu
// dans le cas d'usage.
func readInvoice(path string) (*entity.Invoice, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lire %s: %w", path, err)
	}
	var req dto.GenerateInvoiceRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("%w: JSON invalide: %v", domain.ErrFormat, err)
	}
	inv, fieldErrs := req.ToEntity()
	if len(fieldErrs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, fieldErrs[0].Error())
	}
	return inv, nil
}
