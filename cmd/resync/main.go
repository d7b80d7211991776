package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"recipebox/internal/billing"
	"recipebox/internal/config"
	"recipebox/internal/logger"
	"recipebox/internal/pubsub"
	"recipebox/internal/repository"
	"recipebox/internal/resync"
	"recipebox/internal/stripeclient"

	"github.com/joho/godotenv"
)

func main() {
	once := flag.Bool("once", false, "Run a single re-sync pass and exit")
	flag.Parse()

	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}
	if !cfg.StripeEnabled() {
		logger.Fatal().Msg("STRIPE_SECRET_KEY is required for the re-sync worker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repository.OpenPool(ctx, cfg.DBConnectionString, cfg.Environment)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer pool.Close()
	logger.Info().Msg("Database connection established")

	notifier, closeNotifier, err := pubsub.NewNotifierFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
	}
	defer closeNotifier()

	profileRepo := repository.NewProfileRepo(pool)
	stripeClient := stripeclient.New(cfg.StripeSecretKey)
	reconciler := billing.NewReconciler(profileRepo, stripeClient, logger)
	syncer := resync.NewSyncer(profileRepo, stripeClient, reconciler, notifier, cfg.ResyncBatchSize, logger)

	if *once {
		if _, err := syncer.RunOnce(ctx); err != nil {
			logger.Fatal().Msgf("Re-sync pass failed: %v", err)
		}
		return
	}

	if err := resync.Run(ctx, logger, syncer, cfg.ResyncSchedule); err != nil {
		logger.Fatal().Msgf("Re-sync worker failed: %v", err)
	}
	logger.Info().Msg("Re-sync worker stopped gracefully")
}
