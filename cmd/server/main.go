package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"moneynest/internal/auth"
	"moneynest/internal/config"
	"moneynest/internal/database"
	"moneynest/internal/handlers"
	"moneynest/internal/repository"
	"moneynest/internal/security"
	"moneynest/internal/service"
	"moneynest/internal/stats"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if len(cfg.GeneratedSecrets) > 0 {
		logger.Warn("secrets not configured, using random keys; sessions and tokens will not survive a restart",
			zap.Strings("secrets", cfg.GeneratedSecrets))
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("migrations completed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	limitRepo := repository.NewSpendingLimitRepository(db)

	statsCache, err := stats.NewCache(cfg.StatsCacheTTL)
	if err != nil {
		logger.Fatal("failed to create stats cache", zap.Error(err))
	}
	defer statsCache.Close()

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize email service", zap.Error(err))
	}

	joinLimiter := security.NewRateLimiter(cfg.JoinRateBurst, cfg.JoinRateInterval)
	authLimiter := security.NewRateLimiter(cfg.AuthRateBurst, cfg.AuthRateInterval)
	go joinLimiter.RunCleanup(ctx, 10*time.Minute)
	go authLimiter.RunCleanup(ctx, 10*time.Minute)

	// Initialize services
	tokens := security.NewTokenIssuer(cfg.TokenSecret, cfg.TokenDuration)
	guard := service.NewGuard(familyRepo)
	authService := service.NewAuthService(userRepo, tokens, emailService, logger, cfg.SessionDuration)
	familyService := service.NewFamilyService(db, familyRepo, invitationRepo, userRepo, guard, emailService, joinLimiter, statsCache, logger)
	ledgerService := service.NewLedgerService(db, categoryRepo, transactionRepo, guard, statsCache, logger, cfg.UploadMaxSize)
	limitService := service.NewLimitService(limitRepo, categoryRepo, transactionRepo, familyRepo, guard)

	var googleProvider *handlers.OAuthProvider
	if cfg.GoogleEnabled() {
		googleProvider = &handlers.OAuthProvider{
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: handlers.GoogleUserInfoURL,
		}
		logger.Info("google sign-in enabled")
	}

	// Initialize handlers
	cookies := security.NewSessionCookies(cfg.SessionKey, cfg.SessionDuration)
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	resolver := auth.NewResolver(
		auth.NewSessionStrategy(cookies, authService),
		auth.NewBearerStrategy(authService),
	)

	router := handlers.NewRouter(handlers.Handlers{
		Middleware:     handlers.NewMiddleware(resolver, csrf, authLimiter, logger),
		Auth:           handlers.NewAuthHandler(authService, familyService, cookies, csrf, googleProvider, cfg.OAuthRedirectBaseURL, cfg.AppBaseURL, logger),
		Families:       handlers.NewFamilyHandler(familyService, logger),
		PersonalLedger: handlers.NewPersonalLedgerHandler(ledgerService, cfg.UploadMaxSize, logger),
		FamilyLedger:   handlers.NewFamilyLedgerHandler(ledgerService, cfg.UploadMaxSize, logger),
		Limits:         handlers.NewLimitHandler(limitService, logger),
		DB:             db,
		Logger:         logger,
		TrustProxy:     cfg.TrustProxy,
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(ctx, authService, logger)

	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, logger *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := authService.CleanupExpiredSessions(ctx)
			if err != nil {
				logger.Error("failed to clean up expired sessions", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("expired sessions removed", zap.Int64("count", removed))
			}
		}
	}
}
