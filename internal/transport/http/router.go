package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/garyaschafer/PathRegister/internal/clock"
)

// RouterConfig collects everything the HTTP surface depends on.
type RouterConfig struct {
	Events        EventLister
	Registrar     Registrar
	Tickets       TicketGate
	Reconciler    Reconciler
	Admin         AdminService
	WebhookSecret string
	AdminToken    string
	CORSOrigins   []string
	Clock         clock.Clock
	Logger        *log.Logger
}

// NewRouter wires the public and admin surfaces onto one chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return RequestLogger(next, cfg.Logger)
	})

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", HandleListEvents(cfg.Events))
		r.Get("/events/{id}", HandleGetEvent(cfg.Events))
		r.Post("/events/{id}/register", HandleRegister(cfg.Registrar))

		r.Get("/tickets/{code}", HandleVerifyTicket(cfg.Tickets))
		r.Post("/tickets/{code}/checkin", HandleCheckIn(cfg.Tickets))

		r.Post("/payments/webhook", HandleWebhook(cfg.Reconciler, cfg.WebhookSecret, cfg.Clock))
		r.Post("/registrations/{id}/complete", HandleCompleteRegistration(cfg.Reconciler))

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(cfg.AdminToken))
			r.Get("/events", HandleAdminListEvents(cfg.Admin))
			r.Post("/events", HandleAdminCreateEvent(cfg.Admin))
			r.Get("/events/{id}", HandleAdminGetEvent(cfg.Admin))
			r.Put("/events/{id}", HandleAdminUpdateEvent(cfg.Admin))
			r.Delete("/events/{id}", HandleAdminDeleteEvent(cfg.Admin))
			r.Post("/events/{id}/publish", HandleAdminPublishEvent(cfg.Admin))
			r.Post("/events/{id}/copy", HandleAdminCopyEvent(cfg.Admin))
			r.Get("/events/{id}/registrations", HandleAdminListRegistrations(cfg.Admin))
			r.Post("/registrations/{id}/cancel", HandleAdminCancelRegistration(cfg.Admin))
			r.Get("/stats", HandleAdminStats(cfg.Admin))
		})
	})

	return CORS(cfg.CORSOrigins, r)
}
