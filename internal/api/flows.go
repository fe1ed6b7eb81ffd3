package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/carewell/hospital-booking/internal/booking"
	"github.com/carewell/hospital-booking/internal/metrics"
	"github.com/carewell/hospital-booking/internal/session"
)

// FlowStore persists per-session booking flow state between requests.
type FlowStore interface {
	SaveFlow(ctx context.Context, sessionID string, f *booking.Flow) error
	LoadFlow(ctx context.Context, sessionID string) (*booking.Flow, error)
	ClearFlow(ctx context.Context, sessionID string) error
	SavePaymentMethod(ctx context.Context, sessionID string, m booking.PaymentMethod) error
	SaveSuccess(ctx context.Context, sessionID string, rec *booking.SuccessRecord) error
	LoadSuccess(ctx context.Context, sessionID string) (*booking.SuccessRecord, error)
}

func sessionID(r *http.Request) string {
	return r.Header.Get("X-Session-ID")
}

// selectSlotHandler starts a booking flow: it re-runs the slot search for
// the requested specialization and date, resolves the slot and its doctor as
// an atomic pair from the grouped results, and stores a DRAFTING flow.
func selectSlotHandler(svc BookingService, store FlowStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(r)
		if sid == "" {
			writeError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header is required")
			return
		}

		var req SelectSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		date, _ := time.Parse(time.DateOnly, req.Date)

		slots, err := svc.AvailableSlotsBySpecialization(r.Context(), req.SpecializationID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		groups := booking.GroupSlotsByDoctor(slots)
		sel, err := booking.SelectSlot(groups, req.SlotID)
		if err != nil {
			writeError(w, http.StatusConflict, "slot_not_in_results", "selected slot is not in the current results")
			return
		}

		flow := booking.NewFlow(sel, req.PatientID, booking.AppointmentType(req.AppointmentType), req.Symptoms, req.Notes)
		if err := store.SaveFlow(r.Context(), sid, flow); err != nil {
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, flow)
	}
}

func choosePaymentMethodHandler(store FlowStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(r)
		flow, ok := loadFlow(w, r, store, sid)
		if !ok {
			return
		}

		var req PaymentMethodRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		if err := flow.ChoosePaymentMethod(booking.PaymentMethod(req.Method)); err != nil {
			writeError(w, http.StatusConflict, "invalid_flow_state", err.Error())
			return
		}
		if err := store.SavePaymentMethod(r.Context(), sid, flow.Method); err != nil {
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}
		if err := store.SaveFlow(r.Context(), sid, flow); err != nil {
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, flow)
	}
}

// flowPaymentHandler runs handshake step 1 against the session's draft. The
// draft survives a failure so the patient does not re-enter the form.
func flowPaymentHandler(svc BookingService, store FlowStore, m *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(r)
		flow, ok := loadFlow(w, r, store, sid)
		if !ok {
			return
		}
		if flow.Method == "" {
			writeError(w, http.StatusConflict, "no_payment_method", "choose a payment method first")
			return
		}

		var req FlowPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		details := booking.PaymentDetails{
			Method:         flow.Method,
			UPIID:          req.UPIID,
			CardholderName: req.CardholderName,
			CardNumber:     req.CardNumber,
			ExpiryDate:     req.ExpiryDate,
			CVV:            req.CVV,
			BillingAddress: req.BillingAddress,
			MobileNumber:   req.MobileNumber,
		}

		payment, err := svc.CreatePaymentWithAppointment(r.Context(), flow.Draft, details)
		if err != nil {
			m.ObservePaymentCreated("error", string(flow.Method))
			// Keep the flow in DRAFTING: create-stage failures are safe to
			// retry with the same draft.
			handleServiceError(w, err)
			return
		}
		m.ObservePaymentCreated("ok", string(flow.Method))

		if err := flow.PaymentCreated(payment.PaymentID); err != nil {
			writeError(w, http.StatusConflict, "invalid_flow_state", err.Error())
			return
		}
		if err := store.SaveFlow(r.Context(), sid, flow); err != nil {
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, paymentResponseFrom(payment))
	}
}

// flowConfirmHandler runs handshake step 2. The flow transition is the
// ordering guard: confirmation is unreachable unless step 1 recorded a
// payment id in this session.
func flowConfirmHandler(svc BookingService, store FlowStore, m *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(r)
		flow, ok := loadFlow(w, r, store, sid)
		if !ok {
			return
		}

		if err := flow.BeginConfirm(); err != nil {
			writeError(w, http.StatusConflict, "invalid_flow_state", err.Error())
			return
		}
		if err := store.SaveFlow(r.Context(), sid, flow); err != nil {
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}

		appt, payment, err := svc.ConfirmPayment(r.Context(), flow.PaymentID)
		if err != nil {
			m.ObservePaymentConfirmed("error")
			// A confirm-stage failure may leave the payment stuck pending;
			// the flow is terminal and flagged non-retryable.
			_ = flow.Fail("confirm")
			_ = store.SaveFlow(r.Context(), sid, flow)
			handleServiceError(w, err)
			return
		}
		m.ObservePaymentConfirmed("ok")

		if err := flow.Booked(); err != nil {
			writeError(w, http.StatusConflict, "invalid_flow_state", err.Error())
			return
		}

		rec := &booking.SuccessRecord{
			Appointment: appt,
			Payment:     payment,
			Draft:       flow.Draft,
			BookedAt:    time.Now(),
		}
		if err := store.SaveSuccess(r.Context(), sid, rec); err != nil {
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}
		if err := store.ClearFlow(r.Context(), sid); err != nil {
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, ConfirmPaymentResponse{
			Appointment: appointmentResponseFrom(appt),
			Payment:     paymentResponseFrom(payment),
		})
	}
}

func flowStateHandler(store FlowStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, ok := loadFlow(w, r, store, sessionID(r))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, flow)
	}
}

func flowSuccessHandler(store FlowStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(r)
		if sid == "" {
			writeError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header is required")
			return
		}
		rec, err := store.LoadSuccess(r.Context(), sid)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				writeError(w, http.StatusNotFound, "no_success_record", "no completed booking for this session")
				return
			}
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func loadFlow(w http.ResponseWriter, r *http.Request, store FlowStore, sid string) (*booking.Flow, bool) {
	if sid == "" {
		writeError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header is required")
		return nil, false
	}
	flow, err := store.LoadFlow(r.Context(), sid)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no_booking_flow", "no booking in progress for this session")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "session_error", err.Error())
		return nil, false
	}
	return flow, true
}
