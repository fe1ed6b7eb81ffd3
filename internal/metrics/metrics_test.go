package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObservePaymentCreated("ok", "UPI")
	m.ObservePaymentConfirmed("ok")
	m.ObservePaymentExpired()
	m.ObserveSlotSearch("specialization", 0.05)
	m.ObserveReschedule("ok")
	m.ObserveCancellation()
}

func TestBookingMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObservePaymentCreated("error", "CARD")
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObservePaymentCreated("ok", "UPI")
	m.ObservePaymentConfirmed("ok")
	m.ObservePaymentExpired()
	m.ObserveSlotSearch("doctor", 0.1)
	m.ObserveReschedule("error")
	m.ObserveCancellation()
}
