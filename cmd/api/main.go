package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appfx "github.com/facturegen/facturx/internal/application/facturx"
	"github.com/facturegen/facturx/internal/domain/entity"
	"github.com/facturegen/facturx/internal/infrastructure/cii"
	"github.com/facturegen/facturx/internal/infrastructure/container"
	infrapdf "github.com/facturegen/facturx/internal/infrastructure/pdf"
	httpRouter "github.com/facturegen/facturx/internal/interfaces/http"
	"github.com/facturegen/facturx/pkg/assets"
	"github.com/facturegen/facturx/pkg/config"
	"github.com/facturegen/facturx/pkg/logger"
)

// version de l'application (injectable au build via -ldflags).
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("charger la configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("version", version).
		Msg("démarrage de l'application")

	if err := cfg.Emitter.Validate(); err != nil {
		log.Fatal().Err(err).Msg("identité émetteur invalide")
	}
	emitter := &entity.Emitter{
		SIREN:     cfg.Emitter.SIREN,
		SIRET:     cfg.Emitter.SIRET,
		Name:      cfg.Emitter.Name,
		Address:   cfg.Emitter.Address,
		BIC:       cfg.Emitter.BIC,
		VATNumber: cfg.Emitter.VATNumber,
	}

	// Actifs de rendu : polices obligatoires, logo facultatif.
	loader := assets.NewLoader(cfg.Assets.Dir)
	fontRegular, err := loader.Load(cfg.Assets.FontRegular)
	if err != nil {
		log.Fatal().Err(err).Msg("police régulière introuvable")
	}
	fontBold, err := loader.Load(cfg.Assets.FontBold)
	if err != nil {
		log.Fatal().Err(err).Msg("police grasse introuvable")
	}
	logo, err := loader.LoadOptional(cfg.Assets.Logo)
	if err != nil {
		log.Fatal().Err(err).Msg("logo illisible")
	}

	processor := container.NewProcessor()
	renderer := infrapdf.NewRenderer(infrapdf.Assets{
		FontRegular: fontRegular,
		FontBold:    fontBold,
		Logo:        logo,
	}, processor)
	generateUC := appfx.NewGenerateUseCase(
		emitter, cii.NewBuilder(), renderer, processor, time.Now, log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    32 * 1024 * 1024, // PDF soumis à /extract
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		GenerateUC: generateUC,
		AppName:    cfg.App.Name,
		Version:    version,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("serveur HTTP terminé")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("signal d'arrêt reçu, fermeture du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("arrêt du serveur")
	}

	log.Info().Msg("application arrêtée")
}
