// Package main provides the entry point for the authentication server
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/plmforge/auth-core/internal/api"
	"github.com/plmforge/auth-core/internal/audit"
	"github.com/plmforge/auth-core/internal/auth"
	"github.com/plmforge/auth-core/internal/config"
	"github.com/plmforge/auth-core/internal/db"
	"github.com/plmforge/auth-core/internal/metrics"
	"github.com/plmforge/auth-core/internal/ratelimit"
	"github.com/plmforge/auth-core/internal/user"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		logLevel    = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
		logFormat   = flag.String("log-format", "", "Log format override (json, console)")
		runMigrate  = flag.Bool("migrate", true, "Run database migrations on startup")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("auth-server %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	logger, err := initLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting authentication server",
		zap.String("version", Version),
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("admin_addr", cfg.Server.AdminAddr),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Credential store: postgres when a DSN is configured, in-memory
	// otherwise (development and smoke testing).
	var store user.Store
	var sqlDB *sql.DB
	if cfg.DB.DSN != "" {
		sqlDB, err = user.Open(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer sqlDB.Close()

		if *runMigrate {
			runner, err := db.NewMigrationRunner(sqlDB)
			if err != nil {
				logger.Fatal("Failed to create migration runner", zap.Error(err))
			}
			if err := runner.Up(); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}

		store = user.NewPostgresStore(sqlDB)
	} else {
		logger.Warn("No database configured, using in-memory credential store")
		store = user.NewMemoryStore()
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BCryptCost)

	if err := seedBootstrapAdmin(ctx, store, hasher, logger); err != nil {
		logger.Fatal("Failed to seed bootstrap admin", zap.Error(err))
	}

	tokens, err := auth.NewTokenProvider(&auth.TokenConfig{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Lifetime: cfg.TokenLifetime(),
	})
	if err != nil {
		logger.Fatal("Failed to create token provider", zap.Error(err))
	}

	// Login rate limiter: redis when configured, otherwise disabled.
	var limiter ratelimit.Limiter = ratelimit.NoopLimiter{}
	if cfg.Redis.Addr != "" && cfg.Auth.LoginRateLimit > 0 {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rlCfg := ratelimit.DefaultConfig()
		rlCfg.Rate = cfg.Auth.LoginRateLimit
		rlCfg.Burst = cfg.Auth.LoginRateBurst
		limiter = ratelimit.NewRedisLimiter(client, rlCfg)
		defer limiter.Close()
	}

	// Audit trail: rotating JSON-lines file when enabled.
	var writer audit.Writer = audit.NoopWriter{}
	if cfg.Audit.Enabled {
		writer, err = audit.NewFileWriter(
			cfg.Audit.File,
			cfg.Audit.MaxSizeMB,
			cfg.Audit.MaxAgeDays,
			cfg.Audit.MaxBackups,
		)
		if err != nil {
			logger.Fatal("Failed to create audit writer", zap.Error(err))
		}
	}
	trail := audit.NewTrail(writer, logger)
	defer trail.Close()

	m := metrics.New("auth")

	loginSvc, err := auth.NewLoginService(auth.LoginServiceConfig{
		Store:   store,
		Hasher:  hasher,
		Tokens:  tokens,
		Limiter: limiter,
		Trail:   trail,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create login service", zap.Error(err))
	}

	gate := auth.NewGate(tokens, cfg.PublicPaths, m, logger)
	handler := api.NewAuthHandler(loginSvc, tokens, logger)

	apiSrv, err := api.New(api.Config{
		ListenAddr:   cfg.Server.ListenAddr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, handler, gate, logger)
	if err != nil {
		logger.Fatal("Failed to create API server", zap.Error(err))
	}

	adminSrv := api.NewAdminServer(cfg.Server.AdminAddr, m, sqlDB, logger)

	// Hot reload of the public path allow-list.
	if *configPath != "" {
		watcher, err := config.NewFileWatcher(*configPath, cfg, logger)
		if err != nil {
			logger.Warn("Failed to create config watcher", zap.Error(err))
		} else if err := watcher.Watch(ctx); err != nil {
			logger.Warn("Failed to start config watcher", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	errChan := make(chan error, 2)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		errChan <- apiSrv.Start()
	}()
	go func() {
		errChan <- adminSrv.Start()
	}()

	select {
	case err := <-errChan:
		if err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// Drain: stop reporting ready, give load balancers a moment.
		adminSrv.SetReady(false)
		time.Sleep(2 * time.Second)

		apiSrv.Shutdown(shutdownCtx)
		adminSrv.Shutdown(shutdownCtx)
	}

	logger.Info("Server stopped successfully")
}

// seedBootstrapAdmin provisions an initial ADMIN account when
// BOOTSTRAP_ADMIN_PASSWORD is set and the username is free. Without it a
// fresh deployment has no credentials to log in with.
func seedBootstrapAdmin(ctx context.Context, store user.Store, hasher *auth.PasswordHasher, logger *zap.Logger) error {
	password := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if password == "" {
		return nil
	}

	username := os.Getenv("BOOTSTRAP_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	err = store.Create(ctx, &user.Principal{
		Username:     username,
		Email:        username + "@localhost",
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		Active:       true,
	})
	if err == user.ErrAlreadyExists {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Seeded bootstrap admin account", zap.String("username", username))
	return nil
}

// initLogger initializes the zap logger
func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}
