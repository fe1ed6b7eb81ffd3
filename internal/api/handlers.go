package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carewell/hospital-booking/internal/booking"
	"github.com/carewell/hospital-booking/internal/metrics"
	redisclient "github.com/carewell/hospital-booking/internal/redis"
)

// BookingService is the service surface the handlers depend on.
type BookingService interface {
	AvailableSlotsBySpecialization(ctx context.Context, specializationID int64, date time.Time) ([]booking.AvailableSlot, error)
	AvailableSlotsByDoctor(ctx context.Context, doctorID int64, date time.Time) ([]booking.AvailableSlot, error)
	CreatePaymentWithAppointment(ctx context.Context, draft booking.Draft, details booking.PaymentDetails) (*booking.Payment, error)
	ConfirmPayment(ctx context.Context, paymentID string) (*booking.Appointment, *booking.Payment, error)
	Reschedule(ctx context.Context, appointmentID int64, newDate time.Time, newStart, newEnd booking.TimeOfDay) (*booking.Appointment, error)
	Cancel(ctx context.Context, appointmentID int64, reason string, actor booking.CancelActor) (*booking.Appointment, error)
	Complete(ctx context.Context, appointmentID int64) (*booking.Appointment, error)
	GetAppointmentDetail(ctx context.Context, id int64) (*booking.AppointmentDetail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID int64, f booking.AppointmentFilter) ([]booking.AppointmentDetail, error)
	GenerateSlots(ctx context.Context, doctorID int64, startDate, endDate time.Time) ([]booking.Slot, error)
}

func availableSlotsHandler(svc BookingService, m *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specializationID, err := strconv.ParseInt(r.URL.Query().Get("specializationId"), 10, 64)
		if err != nil || specializationID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_specialization_id", "specializationId must be a positive integer")
			return
		}
		date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		start := time.Now()
		slots, err := svc.AvailableSlotsBySpecialization(r.Context(), specializationID, date)
		m.ObserveSlotSearch("specialization", time.Since(start).Seconds())
		if err != nil {
			handleServiceError(w, err)
			return
		}

		groups := booking.GroupSlotsByDoctor(slots)
		page := queryInt(r, "page", 1)
		size := queryInt(r, "size", booking.DefaultGroupPageSize)
		writeJSON(w, http.StatusOK, booking.PageGroups(groups, page, size))
	}
}

func doctorSlotsHandler(svc BookingService, m *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := strconv.ParseInt(chi.URLParam(r, "doctorID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be an integer")
			return
		}
		date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		start := time.Now()
		slots, err := svc.AvailableSlotsByDoctor(r.Context(), doctorID, date)
		m.ObserveSlotSearch("doctor", time.Since(start).Seconds())
		if err != nil {
			handleServiceError(w, err)
			return
		}

		groups := booking.GroupSlotsByDoctor(slots)
		writeJSON(w, http.StatusOK, booking.PageGroups(groups, 1, booking.DefaultGroupPageSize))
	}
}

func rescheduleHandler(svc BookingService, m *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		date, _ := time.Parse(time.DateOnly, req.Date)

		appt, err := svc.Reschedule(r.Context(), id, date, req.Time.toDomain(), req.EndTime.toDomain())
		if err != nil {
			m.ObserveReschedule("error")
			handleServiceError(w, err)
			return
		}
		m.ObserveReschedule("ok")

		writeJSON(w, http.StatusOK, appointmentResponseFrom(appt))
	}
}

func cancelHandler(svc BookingService, m *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor", err.Error())
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "cancellation reason is required")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, req.Reason, actor)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		m.ObserveCancellation()

		writeJSON(w, http.StatusOK, appointmentResponseFrom(appt))
	}
}

func completeHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		appt, err := svc.Complete(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponseFrom(appt))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		detail, err := svc.GetAppointmentDetail(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, detail)
	}
}

func listPatientAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := strconv.ParseInt(chi.URLParam(r, "patientID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient id must be an integer")
			return
		}

		f := booking.AppointmentFilter{
			Limit:  queryInt(r, "size", 20),
			Offset: (queryInt(r, "page", 1) - 1) * queryInt(r, "size", 20),
		}
		switch r.URL.Query().Get("type") {
		case "upcoming":
			f.Upcoming = true
		case "past":
			f.Past = true
		}
		if s := r.URL.Query().Get("status"); s != "" {
			status := booking.AppointmentStatus(s)
			f.Status = &status
		}

		appts, err := svc.ListAppointmentsByPatient(r.Context(), patientID, f)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appts)
	}
}

func generateSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor", err.Error())
			return
		}
		if !actor.Role.CanManageSlots() {
			writeError(w, http.StatusForbidden, "forbidden", "role may not manage slots")
			return
		}

		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		start, _ := time.Parse(time.DateOnly, req.StartDate)
		end, _ := time.Parse(time.DateOnly, req.EndDate)

		slots, err := svc.GenerateSlots(r.Context(), req.DoctorID, start, end)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"generated": len(slots), "slots": slots})
	}
}

// actorFromRequest resolves the acting principal from the auth headers set by
// the gateway.
func actorFromRequest(r *http.Request) (booking.CancelActor, error) {
	role, err := booking.ParseRole(r.Header.Get("X-User-Role"))
	if err != nil {
		return booking.CancelActor{}, err
	}
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		return booking.CancelActor{}, errors.New("X-User-ID must be an integer")
	}
	return booking.CancelActor{Role: role, ID: id}, nil
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "payment_not_found", err.Error())
	case errors.Is(err, booking.ErrDateInPast):
		writeError(w, http.StatusBadRequest, "date_in_past", err.Error())
	case errors.Is(err, booking.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())
	case errors.Is(err, booking.ErrEmptyCancelReason):
		writeError(w, http.StatusBadRequest, "empty_cancel_reason", err.Error())
	case errors.Is(err, booking.ErrSlotNotAvailable):
		writeError(w, http.StatusConflict, "slot_not_available", err.Error())
	case errors.Is(err, booking.ErrSlotDoctorMismatch):
		writeError(w, http.StatusConflict, "slot_doctor_mismatch", err.Error())
	case errors.Is(err, booking.ErrPaymentAlreadyPending):
		writeError(w, http.StatusConflict, "payment_already_pending", err.Error())
	case errors.Is(err, booking.ErrPaymentNotPending):
		writeError(w, http.StatusConflict, "payment_not_pending", err.Error())
	case errors.Is(err, booking.ErrAppointmentExists):
		writeError(w, http.StatusConflict, "appointment_exists", err.Error())
	case errors.Is(err, booking.ErrNotReschedulable):
		writeError(w, http.StatusConflict, "not_reschedulable", err.Error())
	case errors.Is(err, booking.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "already_cancelled", err.Error())
	case errors.Is(err, booking.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "already_completed", err.Error())
	case errors.Is(err, booking.ErrAppointmentInFuture):
		writeError(w, http.StatusConflict, "appointment_in_future", err.Error())
	case errors.Is(err, booking.ErrNoMatchingSlot):
		writeError(w, http.StatusConflict, "no_matching_slot", err.Error())
	case errors.Is(err, booking.ErrDoctorTimeConflict):
		writeError(w, http.StatusConflict, "doctor_time_conflict", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
