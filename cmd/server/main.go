package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"agriregistration/config"
	authadapter "agriregistration/internal/adapters/auth"
	emailadapter "agriregistration/internal/adapters/email"
	"agriregistration/internal/cache"
	httpdelivery "agriregistration/internal/delivery/http"
	"agriregistration/internal/delivery/http/controllers"
	"agriregistration/internal/delivery/http/middleware"
	"agriregistration/internal/repository/postgres"
	"agriregistration/internal/services"
)

const bcryptCost = 12

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := config.NewLogger()

	if err := postgres.Migrate(cfg.DBUrl); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("database open failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("database unreachable", "err", err)
		os.Exit(1)
	}

	mailer, err := emailadapter.NewMailer(emailadapter.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: emailadapter.SESConfig{
			Region:          cfg.Email.SESRegion,
			AccessKeyID:     cfg.Email.SESAccessKeyID,
			SecretAccessKey: cfg.Email.SESSecretAccessKey,
		},
	})
	if err != nil {
		logger.Error("mailer setup failed", "err", err)
		os.Exit(1)
	}

	registrationRepo := postgres.NewRegistrationRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	store := cache.New()
	tokens := authadapter.NewJWTTokens(cfg.JWTSecret)
	hasher := authadapter.NewBcryptHasher(bcryptCost)

	emailService := services.NewEmailService(mailer, emailadapter.NewTemplateRenderer())
	registrationService := services.NewRegistrationService(registrationRepo, analyticsRepo, store, emailService, logger)
	analyticsService := services.NewAnalyticsService(analyticsRepo, store)
	exportService := services.NewExportService(registrationRepo)
	authService := services.NewAuthService(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.AdminPasswordSalt, hasher, tokens)

	registrationController := controllers.NewRegistrationController(logger, registrationService, analyticsService, cfg.Debug)
	adminController := controllers.NewAdminController(logger, registrationService, analyticsService, exportService, cfg.Debug)
	authController := controllers.NewAuthController(logger, authService)

	mux := httpdelivery.NewRouter(registrationController, adminController, authController, tokens, logger)
	handler := middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
