package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamecontent-server/internal/ai"
	"gamecontent-server/internal/config"
	ws "gamecontent-server/internal/delivery/websocket"
	"gamecontent-server/internal/handler"
	"gamecontent-server/internal/messaging"
	"gamecontent-server/internal/models"
	"gamecontent-server/internal/prompts"
	"gamecontent-server/internal/repository"
	"gamecontent-server/internal/service"
	"gamecontent-server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run migrations and exit: up or down")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	cfg.LogSummary(log)

	// --- Migrations ---
	migrator := repository.NewMigrator(cfg.GetDSN(), log)
	switch *migrateCmd {
	case "":
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
		return
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal("Failed to roll back migrations", zap.Error(err))
		}
		return
	default:
		log.Fatal("Unknown -migrate value", zap.String("value", *migrateCmd))
	}

	// --- External Connections ---
	pgPool, err := setupPostgres(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("Connected to PostgreSQL")

	if err := migrator.Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	var contentRepo repository.ContentRepository = repository.NewPgContentRepository(pgPool, log)
	if cfg.RedisAddr != "" {
		redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err := repository.NewRedisClient(redisCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		redisCancel()
		if err != nil {
			log.Warn("Redis is unavailable, content cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			contentRepo = repository.NewCachedContentRepository(contentRepo, redisClient, cfg.CacheTTL, log)
			log.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	var events messaging.EventPublisher = messaging.NopPublisher{}
	var mqConn *amqp.Connection
	if cfg.RabbitMQURL != "" {
		mqConn, err = messaging.Connect(cfg.RabbitMQURL, 10, 3*time.Second, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()
		publisher, err := messaging.NewRabbitMQPublisher(mqConn, cfg.ContentExchange, log)
		if err != nil {
			log.Fatal("Failed to create content event publisher", zap.Error(err))
		}
		defer publisher.Close()
		events = publisher
		log.Info("Connected to RabbitMQ", zap.String("exchange", cfg.ContentExchange))
	}

	// --- Generation clients ---
	outputMode, err := models.ParseOutputMode(cfg.OutputMode)
	if err != nil {
		log.Fatal("Invalid GENERATION_OUTPUT_MODE", zap.Error(err))
	}
	catalog, err := prompts.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		log.Fatal("Failed to load prompt catalog", zap.Error(err))
	}
	engine := prompts.NewEngine(outputMode)

	textClient, err := ai.NewTextGenerator(ai.TextConfig{
		Provider:     cfg.AIClientType,
		BaseURL:      cfg.AIBaseURL,
		APIKey:       cfg.AIAPIKey,
		Model:        cfg.AIModel,
		Timeout:      cfg.AITimeout,
		Temperature:  cfg.AITemperature,
		MaxTokens:    cfg.AIMaxTokens,
		TopP:         cfg.AITopP,
		SystemPrompt: engine.SystemPrompt(),
		JSONMode:     outputMode == models.OutputModeStructured,
	}, log)
	if err != nil {
		log.Fatal("Failed to create text generation client", zap.Error(err))
	}
	imageClient := ai.NewImageGenerator(ai.ImageConfig{
		BaseURL:             cfg.ImageBaseURL,
		APIKey:              cfg.ImageAPIKey,
		DefaultModel:        cfg.ImageDefaultModel,
		Timeout:             cfg.ImageTimeout,
		ImageToImageTimeout: cfg.ImageToImageTimeout,
		MaxDimension:        cfg.ImageMaxDimension,
	}, catalog, ai.NewRandomSeedSource(), log)

	// --- Services ---
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	hub := ws.NewHub(cfg.CORSAllowedOrigins, log)
	go hub.Run(hubCtx)

	contentService := service.NewContentService(textClient, imageClient, engine, catalog, contentRepo, events, log)
	batchService := service.NewBatchService(contentService, catalog, service.BatchLimits{
		MaxCount:          cfg.BatchMaxCount,
		WorldMaxTotal:     cfg.WorldMaxTotal,
		VariationMaxCount: cfg.VariationMaxCount,
		ImageMaxCount:     cfg.ImageBatchMaxCount,
	}, log, service.WithProgressReporter(hub))

	contentHandler := handler.NewContentHandler(contentService, batchService, hub.ServeWS, log)
	router := handler.NewRouter(handler.RouterConfig{
		BasePath:       cfg.BasePath,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Debug:          !cfg.IsProduction(),
		EnableMetrics:  true,
	}, contentHandler, log)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort), zap.String("basePath", cfg.BasePath))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	hubCancel()
	// батч может идти минуты, даём ему время завершиться
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}

// setupPostgres создает пул соединений с повторными попытками.
func setupPostgres(cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	const (
		maxRetries = 30
		retryDelay = 3 * time.Second
	)
	log.Info("Attempting to connect to PostgreSQL",
		zap.String("dsn", cfg.MaskedDSN()),
		zap.Int("max_retries", maxRetries),
		zap.Duration("retry_delay", retryDelay),
	)

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		if err == nil {
			err = pool.Ping(connectCtx)
			if err != nil {
				pool.Close()
			}
		}
		connectCancel()

		if err == nil {
			return pool, nil
		}
		lastErr = fmt.Errorf("unable to connect to postgres (attempt %d/%d): %w", attempt, maxRetries, err)
		log.Warn("Postgres connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, lastErr
}
