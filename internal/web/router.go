package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/lojf/garage/internal/auth"
	"github.com/lojf/garage/internal/handlers"
	"github.com/lojf/garage/internal/metrics"
	"github.com/lojf/garage/internal/queries"
)

// Deps are the long-lived collaborators the routes close over.
type Deps struct {
	DB         *gorm.DB
	Auth       *auth.Service
	Queries    *queries.Client
	PublicURL  string
	SignInRate int // per client per minute
}

func Router(d Deps) http.Handler {
	metrics.Register()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(handlers.Notices)
	r.Use(handlers.Recover)

	// Public
	r.Get("/healthz", handlers.Health(d.DB))
	r.Handle("/metrics", promhttp.Handler())

	// --- Auth ---
	signInLimit := handlers.NewRateLimiter(d.SignInRate)
	resetLimit := handlers.NewRateLimiter(d.SignInRate)
	r.Route("/auth", func(ar chi.Router) {
		ar.With(signInLimit.Middleware).Post("/signin", handlers.SignIn(d.Auth))
		ar.Post("/signout", handlers.SignOut(d.Auth))
		ar.Post("/refresh", handlers.Refresh(d.Auth))
		ar.With(resetLimit.Middleware).Post("/forgot-password", handlers.ForgotPassword(d.Auth))
		ar.Post("/reset-password", handlers.ResetPassword(d.Auth))

		ar.Group(func(ag chi.Router) {
			ag.Use(handlers.RequireSession(d.Auth))
			ag.Get("/session", handlers.SessionInfo)
			ag.Post("/password", handlers.UpdatePassword(d.Auth))
		})
	})

	// --- Signed-in API ---
	r.Route("/api", func(api chi.Router) {
		api.Use(handlers.RequireSession(d.Auth))

		api.Get("/dashboard", handlers.Dashboard(d.Queries))

		// Reports
		api.Get("/reports", handlers.ListReports(d.Queries))
		api.Post("/reports", handlers.CreateReport(d.Queries))
		api.Get("/reports/metrics", handlers.ReportMetrics(d.Queries))
		api.Get("/reports/export.csv", handlers.ReportsCSV(d.Queries))
		api.Get("/reports/export.xlsx", handlers.ReportsXLSX(d.Queries))
		api.Put("/reports/{id}", handlers.UpdateReport(d.Queries))
		api.Delete("/reports/{id}", handlers.DeleteReport(d.Queries))

		// Locations
		api.Get("/locations", handlers.ListLocations(d.Queries))
		api.Post("/locations", handlers.CreateLocation(d.Queries))
		api.Get("/locations/active", handlers.ActiveLocations(d.Queries))
		api.Get("/locations/search", handlers.SearchLocations(d.Queries))
		api.Get("/locations/{id}", handlers.GetLocation(d.Queries))
		api.Put("/locations/{id}", handlers.UpdateLocation(d.Queries))
		api.Delete("/locations/{id}", handlers.DeleteLocation(d.Queries))
		api.Get("/locations/{id}/usage", handlers.LocationUsage(d.Queries))
		api.Get("/locations/{id}/qr.png", handlers.LocationQR(d.Queries, d.PublicURL))

		// Settings
		api.Get("/settings/locations", handlers.SettingsLocations(d.Queries))
	})

	return r
}
