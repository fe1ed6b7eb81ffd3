package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carewell/hospital-booking/internal/metrics"
)

type RouterConfig struct {
	Service BookingService
	Flows   FlowStore
	Metrics *metrics.BookingMetrics
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-ID", "X-User-Role", "X-User-ID", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Slot search
	r.Get("/slots/available", availableSlotsHandler(cfg.Service, cfg.Metrics))
	r.Get("/doctors/{doctorID}/slots", doctorSlotsHandler(cfg.Service, cfg.Metrics))
	r.Post("/admin/slots/generate", generateSlotsHandler(cfg.Service))

	// Payment-first handshake, stateless form
	r.Post("/payments/appointment", createPaymentHandler(cfg.Service, cfg.Metrics))
	r.Post("/payments/{paymentID}/confirm", confirmPaymentHandler(cfg.Service, cfg.Metrics))

	// Session-scoped booking flow
	r.Route("/booking", func(r chi.Router) {
		r.Post("/select", selectSlotHandler(cfg.Service, cfg.Flows))
		r.Put("/payment-method", choosePaymentMethodHandler(cfg.Flows))
		r.Post("/pay", flowPaymentHandler(cfg.Service, cfg.Flows, cfg.Metrics))
		r.Post("/confirm", flowConfirmHandler(cfg.Service, cfg.Flows, cfg.Metrics))
		r.Get("/flow", flowStateHandler(cfg.Flows))
		r.Get("/success", flowSuccessHandler(cfg.Flows))
	})

	// Appointments
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Put("/appointments/{id}/reschedule", rescheduleHandler(cfg.Service, cfg.Metrics))
	r.Put("/appointments/{id}/cancel", cancelHandler(cfg.Service, cfg.Metrics))
	r.Put("/appointments/{id}/complete", completeHandler(cfg.Service))
	r.Get("/patients/{patientID}/appointments", listPatientAppointmentsHandler(cfg.Service))

	return r
}
