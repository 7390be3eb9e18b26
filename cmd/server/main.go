package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/listenline/ListenLineBack/internal/config"
	"github.com/listenline/ListenLineBack/internal/database"
	"github.com/listenline/ListenLineBack/internal/jobs"
	"github.com/listenline/ListenLineBack/internal/repository"
	"github.com/listenline/ListenLineBack/internal/routes"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.AppEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if cfg.DBUrl == "" {
		log.Fatal().Msg("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.CloseDB()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.AppEnv == "production",
	})

	app.Use(cors.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	routes.RegisterRoutes(app, cfg, database.DB)

	reconcile := jobs.NewReconcileJob(
		repository.NewCallRepository(database.DB),
		repository.NewSessionRepository(database.DB),
		cfg.ReconcileInterval,
		cfg.StaleCallAfter,
	)
	reconcile.Start()
	defer reconcile.Stop()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info().Msg("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
