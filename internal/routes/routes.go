package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/studentdesk/complaints/internal/app"
	"github.com/studentdesk/complaints/internal/handler"
	"github.com/studentdesk/complaints/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	session := handler.NewSessionHandler(app.TokenService)
	profile := handler.NewProfileHandler(app.IdentityService)
	complaint := handler.NewComplaintHandler(app.ComplaintService, app.HistoryService)
	attachment := handler.NewAttachmentHandler(app.AttachmentService)
	admin := handler.NewAdminHandler(app.ComplaintService)

	uploadLimiter := middleware.NewRateLimiter(app.Cfg.UploadRateLimit, app.Cfg.UploadRateWindow)

	r := chi.NewRouter()

	// Global middleware - executed in order (top to bottom)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	if len(app.Cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   app.Cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Location", "X-CSRF-Token"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.Authenticate(app.TokenService)) // Must run before logging so user_id is known
	r.Use(middleware.RequestLogging)
	r.Use(middleware.CSRFProtection(app.Cfg.SecureCookies()))

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	r.Get("/healthz", health.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		// Browser sessions: exchange a provider token for the auth cookie
		r.Post("/session", session.Create)
		r.Delete("/session", session.Delete)

		// ========================================================================
		// PROTECTED ROUTES
		// ========================================================================

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			// Profile
			r.Get("/me", profile.Me)
			r.Patch("/me", profile.UpdateMe)

			// Complaints (students)
			r.Post("/complaints", complaint.Create)
			r.Get("/complaints", complaint.ListMine)
			r.Get("/complaints/{id}", complaint.Get)
			r.Get("/complaints/{id}/history", complaint.History)

			// Attachments
			r.With(middleware.RateLimit(uploadLimiter)).Post("/attachments", attachment.Upload)
			r.Get("/attachments/{id}", attachment.Download)
			r.Get("/attachments/{id}/url", attachment.URL)

			// Admin
			r.Route("/admin", func(r chi.Router) {
				r.Get("/complaints", admin.ListComplaints)
				r.Patch("/complaints/{id}/status", admin.UpdateStatus)
				r.Get("/stats", admin.Stats)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})

	return r
}
