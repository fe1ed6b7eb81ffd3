package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carewell/hospital-booking/internal/metrics"
)

// createPaymentHandler is handshake step 1 as a stateless endpoint: the
// client supplies the full draft and receives an opaque payment id with
// status PENDING. No appointment exists after this call.
func createPaymentHandler(svc BookingService, m *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		draft, err := req.draft()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "appointmentDate must be YYYY-MM-DD")
			return
		}

		payment, err := svc.CreatePaymentWithAppointment(r.Context(), draft, req.details())
		if err != nil {
			m.ObservePaymentCreated("error", req.Method)
			handleServiceError(w, err)
			return
		}
		m.ObservePaymentCreated("ok", req.Method)

		writeJSON(w, http.StatusCreated, paymentResponseFrom(payment))
	}
}

// confirmPaymentHandler is handshake step 2: on success the payment is
// SUCCESS and the appointment it funded exists, linked, in one response.
func confirmPaymentHandler(svc BookingService, m *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paymentID := chi.URLParam(r, "paymentID")
		if paymentID == "" {
			writeError(w, http.StatusBadRequest, "invalid_payment_id", "payment id is required")
			return
		}

		appt, payment, err := svc.ConfirmPayment(r.Context(), paymentID)
		if err != nil {
			m.ObservePaymentConfirmed("error")
			handleServiceError(w, err)
			return
		}
		m.ObservePaymentConfirmed("ok")

		writeJSON(w, http.StatusOK, ConfirmPaymentResponse{
			Appointment: appointmentResponseFrom(appt),
			Payment:     paymentResponseFrom(payment),
		})
	}
}
