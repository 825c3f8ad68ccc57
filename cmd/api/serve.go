package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	_ "github.com/jhoicas/facturacion-sri/docs"
	httpRouter "github.com/jhoicas/facturacion-sri/internal/interfaces/http"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var useMemory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Inicia la API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(useMemory)
		},
	}
	cmd.Flags().BoolVar(&useMemory, "memory", false, "usar almacén en memoria en lugar de PostgreSQL")
	return cmd
}

func serve(useMemory bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET es obligatorio")
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sri_mode", cfg.SRI.Mode).
		Str("sri_environment", cfg.SRI.Environment).
		Bool("memory", useMemory).
		Msg("iniciando aplicación")

	ctx := context.Background()
	deps, cleanup, err := wire(ctx, cfg, log, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * time.Duration(cfg.SRI.TimeoutSeconds*2+10),
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación SRI API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
	return nil
}
