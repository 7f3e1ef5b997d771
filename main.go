package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/migrations"
	"github.com/ekaya-inc/ekaya-canvas/pkg/audit"
	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
	"github.com/ekaya-inc/ekaya-canvas/pkg/cache"
	"github.com/ekaya-inc/ekaya-canvas/pkg/config"
	"github.com/ekaya-inc/ekaya-canvas/pkg/database"
	"github.com/ekaya-inc/ekaya-canvas/pkg/handlers"
	"github.com/ekaya-inc/ekaya-canvas/pkg/imagegen"
	"github.com/ekaya-inc/ekaya-canvas/pkg/llm"
	"github.com/ekaya-inc/ekaya-canvas/pkg/metrics"
	"github.com/ekaya-inc/ekaya-canvas/pkg/middleware"
	"github.com/ekaya-inc/ekaya-canvas/pkg/repositories"
	"github.com/ekaya-inc/ekaya-canvas/pkg/services"
	"github.com/ekaya-inc/ekaya-canvas/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

func main() {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.String("redis", cfg.Redis.Host),
		zap.String("image_provider", cfg.ImageGen.Provider),
		zap.String("llm_provider", cfg.LLM.Provider))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
		ConnectTimeout: time.Minute,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := migrate(cfg.Database.ConnectionString(), logger); err != nil {
		return err
	}

	readiness := map[string]handlers.ReadinessCheck{"database": db.Ping}

	// Redis is optional; without it explore pages are always read from Postgres.
	var exploreCache cache.ExploreCache = cache.NopExploreCache{}
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		exploreCache = cache.NewRedisExploreCache(redisClient, cfg.Redis.ExploreCacheTTL, logger)
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Info("Redis not configured; explore cache disabled")
	}

	assetStore, err := storage.NewS3Store(ctx, &cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create asset store: %w", err)
	}

	provider, err := imagegen.NewProvider(&cfg.ImageGen, &http.Client{}, logger)
	if err != nil {
		return fmt.Errorf("create image provider: %w", err)
	}
	generator := imagegen.NewService(provider, assetStore, logger)

	// Expansion is optional; without it smart expansion uses the raw prompt.
	var expander services.PromptExpansionService
	if expansionClient, err := llm.NewExpansionClient(&cfg.LLM, logger); err != nil {
		logger.Warn("Prompt expansion disabled", zap.Error(err))
	} else {
		expander = services.NewPromptExpansionService(expansionClient, cfg.LLM.ExpansionTimeout, logger)
	}

	visionClient, err := llm.NewVisionClient(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("create vision client: %w", err)
	}

	jwksClient, err := auth.NewJWKSClient(ctx, &auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		return fmt.Errorf("create JWKS client: %w", err)
	}
	defer jwksClient.Close()

	var sessions *auth.SessionStore
	if cfg.Auth.SessionSecret != "" {
		sessions = auth.NewSessionStore(cfg.Auth.SessionSecret, cfg.Auth.SessionCookieName,
			auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain))
	} else {
		logger.Warn("SESSION_SECRET not set; only bearer tokens are accepted")
	}

	m := metrics.New()
	auditor := audit.NewSecurityAuditor(logger)

	contextRepo := repositories.NewContextRepository(db)
	imageRepo := repositories.NewImageRepository(db)
	userService := services.NewUserService(repositories.NewUserRepository(db), logger)

	a := &app{
		contextService:    services.NewContextService(contextRepo, logger),
		extractionService: services.NewContextExtractionService(visionClient, cfg.LLM.ExtractionTimeout, m, logger),
		generationService: services.NewGenerationService(contextRepo, imageRepo, expander, generator, exploreCache, m,
			services.GenerationConfig{StorageFolder: cfg.Storage.Folder, Timeout: cfg.ImageGen.Timeout}, logger),
		imageService:    services.NewImageService(imageRepo, assetStore, exploreCache, logger),
		authMiddleware:  auth.NewMiddleware(auth.NewAuthService(sessions, jwksClient, logger), userService, logger),
		rateLimiter:     middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, auditor, m, logger),
		auditor:         auditor,
		metrics:         m,
		readinessChecks: readiness,
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           newRouter(cfg, a, logger),
		ReadHeaderTimeout: 10 * time.Second,
		// Generation can legitimately take as long as the provider timeout.
		WriteTimeout:      cfg.ImageGen.Timeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-canvas",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func migrate(connStr string, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, migrations.FS, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
