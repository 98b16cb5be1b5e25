package http

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"eventsphere/internal/delivery/http/controllers"
	"eventsphere/internal/delivery/http/middleware"
	"eventsphere/internal/domain"
	"eventsphere/internal/metrics"
)

// RouterDeps holds everything the router wires together.
type RouterDeps struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	AllowedOrigins []string

	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Notifications *controllers.NotificationController
	Attendance    *controllers.AttendanceController
	Certificates  *controllers.CertificateController
	Health        *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes and the middleware chain.
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(d.Verifier, d.Logger)
	optional := middleware.OptionalAuth(d.Verifier, d.Logger)
	managers := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireRole(domain.RoleOrganizer, domain.RoleAdmin)(next))
	}
	admins := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireRole(domain.RoleAdmin)(next))
	}

	// Events
	mux.HandleFunc("POST /events", managers(d.Events.CreateEvent))
	mux.HandleFunc("GET /events", optional(d.Events.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", d.Events.GetEvent)
	mux.HandleFunc("GET /events/{eventID}/seats", d.Registrations.AvailableSeats)
	mux.HandleFunc("GET /events/{eventID}/calendar", d.Events.Calendar)
	mux.HandleFunc("GET /events/{eventID}/metrics", managers(d.Events.Metrics))
	mux.HandleFunc("PATCH /events/{eventID}", managers(d.Events.UpdateEvent))
	mux.HandleFunc("PATCH /events/{eventID}/review", admins(d.Events.ReviewEvent))
	mux.HandleFunc("PATCH /events/{eventID}/status", managers(d.Events.UpdateEventStatus))
	mux.HandleFunc("DELETE /events/{eventID}", managers(d.Events.DeleteEvent))

	// Registrations
	mux.HandleFunc("POST /registrations", auth(d.Registrations.Register))
	mux.HandleFunc("GET /registrations/me", auth(d.Registrations.ListMine))
	mux.HandleFunc("GET /events/{eventID}/registrations", managers(d.Registrations.ListForEvent))
	mux.HandleFunc("PATCH /registrations/{id}/approve", managers(d.Registrations.Approve))
	mux.HandleFunc("PATCH /registrations/{id}/reject", managers(d.Registrations.Reject))
	mux.HandleFunc("POST /registrations/{id}/cancel", auth(d.Registrations.Cancel))
	mux.HandleFunc("GET /registrations/{id}/ticket", auth(d.Registrations.DownloadTicket))

	// Notifications
	mux.HandleFunc("GET /notifications", auth(d.Notifications.List))
	mux.HandleFunc("GET /notifications/stats", auth(d.Notifications.Stats))
	mux.HandleFunc("GET /notifications/unread-count", auth(d.Notifications.UnreadCount))
	mux.HandleFunc("GET /notifications/{id}", auth(d.Notifications.Get))
	mux.HandleFunc("PATCH /notifications/read-all", auth(d.Notifications.MarkAllRead))
	mux.HandleFunc("PATCH /notifications/{id}/read", auth(d.Notifications.MarkRead))
	mux.HandleFunc("DELETE /notifications/read-all", auth(d.Notifications.DeleteRead))
	mux.HandleFunc("DELETE /notifications/{id}", auth(d.Notifications.Delete))
	mux.HandleFunc("POST /notifications/test", auth(d.Notifications.SendTest))
	mux.HandleFunc("POST /notifications/bulk", admins(d.Notifications.SendBulk))

	// Attendance and certificates
	mux.HandleFunc("POST /attendance", managers(d.Attendance.Mark))
	mux.HandleFunc("GET /attendance/event/{eventID}", managers(d.Attendance.ListForEvent))
	mux.HandleFunc("POST /certificates/request", auth(d.Certificates.Request))
	mux.HandleFunc("POST /certificates", managers(d.Certificates.Issue))
	mux.HandleFunc("GET /certificates/me", auth(d.Certificates.ListMine))
	mux.HandleFunc("GET /certificates/attended-events", auth(d.Certificates.AttendedEvents))

	// Operations
	mux.HandleFunc("GET /health", d.Health.Health)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = mux
	handler = middleware.CORS(d.AllowedOrigins, handler)
	handler = chimw.Recoverer(handler)
	handler = middleware.LoggingMiddleware(d.Logger, handler)
	handler = chimw.RealIP(handler)
	handler = chimw.RequestID(handler)
	return handler
}
