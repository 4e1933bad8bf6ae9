package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"agriregistration/internal/delivery/http/controllers"
	"agriregistration/internal/delivery/http/middleware"
	"agriregistration/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	registrationController *controllers.RegistrationController,
	adminController *controllers.AdminController,
	authController *controllers.AuthController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Public
	mux.HandleFunc("POST /v1/register", registrationController.Register)
	mux.HandleFunc("GET /v1/analytics", registrationController.GetAnalytics)
	mux.HandleFunc("GET /health", registrationController.Health)

	// Auth
	mux.HandleFunc("POST /v1/admin/login", authController.Login)

	// Admin dashboard
	mux.HandleFunc("GET /v1/admin/registrations", auth(adminController.List))
	mux.HandleFunc("GET /v1/admin/registrations/export", auth(adminController.Export))
	mux.HandleFunc("GET /v1/admin/registrations/recent-count", auth(adminController.RecentCount))
	mux.HandleFunc("GET /v1/admin/registrations/{id}", auth(adminController.Show))
	mux.HandleFunc("PATCH /v1/admin/registrations/{id}/verified", auth(adminController.MarkVerified))
	mux.HandleFunc("PATCH /v1/admin/registrations/{id}/contacted", auth(adminController.MarkContacted))
	mux.HandleFunc("POST /v1/admin/registrations/bulk-verified", auth(adminController.BulkMarkVerified))
	mux.HandleFunc("POST /v1/admin/registrations/bulk-contacted", auth(adminController.BulkMarkContacted))
	mux.HandleFunc("GET /v1/admin/schools", auth(adminController.Schools))
	mux.HandleFunc("GET /v1/admin/stats", auth(adminController.Stats))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
