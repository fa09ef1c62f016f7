package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vapestore/internal/advisor"
	"vapestore/internal/catalog"
	"vapestore/internal/config"
	"vapestore/internal/database"
	"vapestore/internal/events"
	"vapestore/internal/handler"
	"vapestore/internal/imagestore"
	"vapestore/internal/migrate"
	"vapestore/internal/payment"
	"vapestore/internal/repository"
	"vapestore/internal/router"
	"vapestore/internal/service"
	"vapestore/internal/session"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting vapestore API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := migrate.Apply(ctx, pool); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info().Msg("database schema is up to date")
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	// S3 backs both the seed catalog and product images when enabled
	var (
		s3Client *s3.Client
		images   imagestore.Store
	)
	if cfg.S3.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to load AWS config, S3 disabled")
		} else {
			s3Client = s3.NewFromConfig(awsCfg)
			images = imagestore.NewS3Store(s3Client, imagestore.Config{
				Bucket:        cfg.S3.Bucket,
				Region:        cfg.S3.Region,
				PublicBaseURL: cfg.S3.PublicBaseURL,
			}, logger)
		}
	} else {
		logger.Info().Msg("using local file system for catalog files (S3 disabled)")
	}

	// Initialize event publisher
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing order events to Kafka")
	} else {
		publisher = events.NewLogPublisher(logger)
	}
	defer publisher.Close()

	// Initialize services
	productService := service.NewProductService(productRepo, images, logger)
	orderService := service.NewOrderService(orderRepo, publisher, logger)
	gateway := payment.NewClient(payment.Config{
		AccessToken: cfg.Payment.AccessToken,
		BaseURL:     cfg.Payment.BaseURL,
		Timeout:     cfg.Payment.Timeout,
	}, logger)
	checkoutService := service.NewCheckoutService(orderRepo, gateway, publisher, service.CheckoutConfig{
		PublicURL:           cfg.Server.PublicURL,
		Currency:            cfg.Payment.Currency,
		StatementDescriptor: cfg.Payment.StatementDescriptor,
		WebhookSecret:       cfg.Payment.WebhookSecret,
	}, logger)

	if cfg.Seed.OnStart {
		if err := seedCatalog(ctx, cfg, s3Client, productService, logger); err != nil {
			return err
		}
	}

	// The advisor handler answers 503 when no model is configured.
	var productAdvisor handler.Advisor
	if cfg.Advisor.Enabled() {
		model := advisor.NewClient(advisor.ClientConfig{
			APIKey:  cfg.Advisor.APIKey,
			Model:   cfg.Advisor.Model,
			BaseURL: cfg.Advisor.BaseURL,
			Timeout: cfg.Advisor.Timeout,
		}, logger)
		productAdvisor = advisor.New(model, cfg.Advisor.HandoffNumber, logger)
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, advisor disabled")
	}

	// Sessions and the live order feed
	sessions := session.NewMemoryStore(cfg.Session.TTL, logger)
	defer sessions.Close()

	listener := repository.NewChangeListener(pool, logger)
	feed := service.NewOrderFeed(listener, orderRepo, logger)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		defer listener.Close()
		feed.Run(ctx)
	}()

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Product:  handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(productService, logger),
		Session:  handler.NewSessionHandler(orderService, feed, logger),
		Order:    handler.NewOrderHandler(orderService, feed, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, logger),
		Advisor:  handler.NewAdvisorHandler(productAdvisor, productService, logger),
		Health:   handler.NewHealthHandler(pool, logger),
	}

	// Initialize router
	mux := router.New(handlers, router.Config{
		APIKey:         cfg.Auth.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookie:   cfg.Session.CookieSecure,
	}, sessions, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Open event streams end with the application context.
		cancel()

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		<-feedDone
		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// seedCatalog loads the seed files, from S3 first when enabled, and writes
// them unless the catalog was seeded before.
func seedCatalog(ctx context.Context, cfg *config.Config, s3Client *s3.Client, products service.ProductService, logger zerolog.Logger) error {
	loader := catalog.NewFileLoader(logger)
	if s3Client != nil {
		loader = catalog.NewFallbackLoader(
			catalog.NewS3Loader(s3Client, cfg.S3.Bucket, logger),
			loader,
			cfg.S3.Prefix,
			logger,
		)
	}

	seed, err := catalog.LoadAll(ctx, loader, cfg.Seed.Files, logger)
	if err != nil {
		return fmt.Errorf("failed to load seed catalog: %w", err)
	}

	seeded, err := products.SeedIfEmpty(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	if seeded {
		logger.Info().Int("products", len(seed)).Msg("catalog seeded")
	} else {
		logger.Info().Msg("catalog already seeded")
	}
	return nil
}
