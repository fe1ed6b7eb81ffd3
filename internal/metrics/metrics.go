package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking handshake.
type BookingMetrics struct {
	paymentsCreated   *prometheus.CounterVec
	paymentsConfirmed *prometheus.CounterVec
	paymentsExpired   prometheus.Counter
	slotSearchLatency *prometheus.HistogramVec
	reschedules       *prometheus.CounterVec
	cancellations     prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		paymentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "payments_created_total",
			Help:      "Handshake step 1 outcomes",
		}, []string{"status", "method"}),
		paymentsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "payments_confirmed_total",
			Help:      "Handshake step 2 outcomes",
		}, []string{"status"}),
		paymentsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "payments_expired_total",
			Help:      "Pending payments failed by the expiry worker",
		}),
		slotSearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "slot_search_seconds",
			Help:      "Latency of slot availability queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		reschedules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "reschedules_total",
			Help:      "Reschedule attempts by outcome",
		}, []string{"status"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Appointments cancelled",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.paymentsCreated,
		m.paymentsConfirmed,
		m.paymentsExpired,
		m.slotSearchLatency,
		m.reschedules,
		m.cancellations,
	)
	return m
}

func (m *BookingMetrics) ObservePaymentCreated(status, method string) {
	if m == nil {
		return
	}
	m.paymentsCreated.WithLabelValues(status, method).Inc()
}

func (m *BookingMetrics) ObservePaymentConfirmed(status string) {
	if m == nil {
		return
	}
	m.paymentsConfirmed.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObservePaymentExpired() {
	if m == nil {
		return
	}
	m.paymentsExpired.Inc()
}

func (m *BookingMetrics) ObserveSlotSearch(scope string, seconds float64) {
	if m == nil {
		return
	}
	m.slotSearchLatency.WithLabelValues(scope).Observe(seconds)
}

func (m *BookingMetrics) ObserveReschedule(status string) {
	if m == nil {
		return
	}
	m.reschedules.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}
