package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/handlers"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slogger := utils.ToSlogLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := newRepository(cfg, slogger)
	if err != nil {
		logger.LogError(err, "Failed to initialize storage")
		os.Exit(1)
	}

	quizCache := newCache(ctx, cfg, slogger)

	gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, slogger)
	if err != nil {
		logger.LogError(err, "Failed to initialize generative text service")
		os.Exit(1)
	}
	defer func() {
		if err := gemini.Close(); err != nil {
			logger.LogError(err, "Failed to close Gemini client")
		}
	}()

	eventPublisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.LogError(err, "Failed to create event publisher, falling back to mock publisher")
		eventPublisher = events.NewMockEventPublisher(slogger)
	}
	defer func() {
		if err := eventPublisher.Close(); err != nil {
			logger.LogError(err, "Failed to close event publisher")
		}
	}()

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		LLM:       gemini,
		Cache:     quizCache,
		Publisher: eventPublisher,
		Validator: validator.New(),
		Logger:    slogger,
		Options: services.Options{
			MaxQuestionsPerQuiz:   cfg.Quiz.MaxQuestionsPerQuiz,
			EvaluationConcurrency: cfg.Quiz.EvaluationConcurrency,
			QuizCacheTTL:          cfg.QuizCacheTTL,
		},
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(utils.ContextLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))

	identity := handlers.NewIdentityResolver(cfg.Casdoor)
	if !cfg.Casdoor.Enabled() {
		logger.Warn("CASDOOR_ENDPOINT is not set, trusting the X-User-ID header")
	}
	handlers.NewHandlerManager(serviceManager, identity, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting quiz service", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError(err, "HTTP server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down quiz service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError(err, "Graceful shutdown failed")
	}
}

func newLogger(cfg *config.Config) utils.Logger {
	if cfg.IsProduction() {
		return utils.NewDefaultLogger()
	}
	return utils.NewDevelopmentLogger()
}

func newRepository(cfg *config.Config, logger *slog.Logger) (repositories.Repository, error) {
	if cfg.StorageDriver == "memory" {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewRepository(), nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := pkg.Migrate(db); err != nil {
		return nil, err
	}
	return postgres.NewRepository(db), nil
}

// newCache falls back to a no-op cache when Redis is not configured or unreachable
func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) cache.CacheService {
	if cfg.RedisURL == "" {
		return cache.NewNoopCache()
	}

	client, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, quiz caching disabled", "error", err)
		return cache.NewNoopCache()
	}
	return cache.NewRedisCache(client, logger)
}
