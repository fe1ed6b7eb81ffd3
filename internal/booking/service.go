package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carewell/hospital-booking/internal/config"
	redisclient "github.com/carewell/hospital-booking/internal/redis"
)

const (
	EventPaymentCreated         = "PAYMENT_CREATED"
	EventPaymentConfirmed       = "PAYMENT_CONFIRMED"
	EventPaymentExpired         = "PAYMENT_EXPIRED"
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
)

var (
	ErrDateInPast            = errors.New("date cannot be in the past")
	ErrSlotNotAvailable      = errors.New("selected slot is no longer available")
	ErrSlotBeingBooked       = errors.New("slot is currently being booked, please retry")
	ErrSlotDoctorMismatch    = errors.New("slot does not belong to the selected doctor")
	ErrPaymentAlreadyPending = errors.New("a pending payment already exists for this slot")
	ErrPaymentNotPending     = errors.New("payment is not in a confirmable state")
	ErrAppointmentExists     = errors.New("appointment already created for this payment")
	ErrNotReschedulable      = errors.New("appointment can no longer be rescheduled")
	ErrAlreadyCancelled      = errors.New("appointment is already cancelled")
	ErrAlreadyCompleted      = errors.New("appointment is already completed")
	ErrEmptyCancelReason     = errors.New("cancellation reason must not be empty")
	ErrAppointmentInFuture   = errors.New("cannot complete an appointment scheduled in the future")
	ErrNoMatchingSlot        = errors.New("no available slot found for the selected time")
	ErrDoctorTimeConflict    = errors.New("doctor is not available at the selected time")
	ErrInvalidTimeRange      = errors.New("start time must be before end time")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
}

// AvailableSlotsBySpecialization returns AVAILABLE slots for any doctor of
// the specialization on the given date. Searching today trims slots whose
// start time has already passed.
func (s *Service) AvailableSlotsBySpecialization(ctx context.Context, specializationID int64, date time.Time) ([]AvailableSlot, error) {
	notBefore, err := s.slotCutoff(date)
	if err != nil {
		return nil, err
	}
	slots, err := s.repo.FindAvailableSlots(ctx, specializationID, 0, date, notBefore)
	if err != nil {
		return nil, fmt.Errorf("find slots by specialization: %w", err)
	}
	return slots, nil
}

// AvailableSlotsByDoctor is the doctor-scoped slot query used by reschedule.
func (s *Service) AvailableSlotsByDoctor(ctx context.Context, doctorID int64, date time.Time) ([]AvailableSlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	notBefore, err := s.slotCutoff(date)
	if err != nil {
		return nil, err
	}
	slots, err := s.repo.FindAvailableSlots(ctx, 0, doctorID, date, notBefore)
	if err != nil {
		return nil, fmt.Errorf("find slots by doctor: %w", err)
	}
	return slots, nil
}

func (s *Service) slotCutoff(date time.Time) (TimeOfDay, error) {
	now := s.now()
	today := dateOnly(now)
	d := dateOnly(date)

	if d.Before(today) {
		return TimeOfDay{}, ErrDateInPast
	}
	if d.Equal(today) {
		return TimeOfDayFrom(now), nil
	}
	return TimeOfDay{}, nil
}

// CreatePaymentWithAppointment is step 1 of the handshake. It persists a
// PENDING payment carrying a full copy of the draft and creates no
// appointment. The returned payment id is the capability for step 2.
func (s *Service) CreatePaymentWithAppointment(ctx context.Context, draft Draft, details PaymentDetails) (*Payment, error) {
	if _, err := s.repo.GetPatientByID(ctx, draft.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, draft.DoctorID); err != nil {
		return nil, err
	}

	slot, err := s.repo.GetSlotByID(ctx, draft.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != draft.DoctorID {
		return nil, ErrSlotDoctorMismatch
	}
	if slot.Status != SlotAvailable {
		return nil, ErrSlotNotAvailable
	}

	// One outstanding payment per draft: a second create for the same slot
	// and patient is rejected until the first reaches a terminal state.
	open, err := s.repo.FindOpenPaymentForSlot(ctx, draft.SlotID, draft.PatientID)
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		return nil, fmt.Errorf("check open payment: %w", err)
	}
	if open != nil {
		return nil, ErrPaymentAlreadyPending
	}

	now := s.now()
	p := &Payment{
		PaymentID:     uuid.NewString(),
		PatientID:     draft.PatientID,
		Amount:        draft.ConsultationFee,
		Method:        details.Method,
		Status:        PaymentPending,
		TransactionID: fmt.Sprintf("TXN%d", now.UnixMilli()),
		Details:       details,
		Draft:         draft,
		PaymentDate:   now,
		CreatedAt:     now,
	}

	created, err := s.repo.CreatePendingPayment(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create pending payment: %w", err)
	}

	s.logEvent(ctx, nil, &created.PaymentID, EventPaymentCreated, map[string]any{
		"slot_id":    draft.SlotID,
		"patient_id": draft.PatientID,
		"amount":     created.Amount,
		"method":     created.Method,
	})

	return created, nil
}

// ConfirmPayment is step 2 of the handshake. Under the per-slot lock it
// atomically marks the payment SUCCESS, creates the SCHEDULED appointment
// from the payment's draft copy, books the slot and links the two. Either
// both records exist afterwards or neither change applied.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID string) (*Appointment, *Payment, error) {
	payment, err := s.repo.GetPaymentByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}

	if payment.AppointmentID != nil {
		return nil, nil, ErrAppointmentExists
	}
	if payment.Status != PaymentPending {
		return nil, nil, ErrPaymentNotPending
	}

	var (
		appt      *Appointment
		confirmed *Payment
	)

	err = s.locker.WithSlotLock(ctx, payment.Draft.SlotID, func(lockCtx context.Context) error {
		slot, err := s.repo.GetSlotByID(lockCtx, payment.Draft.SlotID)
		if err != nil {
			return err
		}
		if slot.Status != SlotAvailable {
			return ErrSlotNotAvailable
		}

		appt, confirmed, err = s.repo.ConfirmPaymentAndCreateAppointment(lockCtx, paymentID)
		if err != nil {
			return fmt.Errorf("confirm payment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, nil, ErrSlotBeingBooked
		}
		return nil, nil, err
	}

	s.logEvent(ctx, &appt.ID, &confirmed.PaymentID, EventPaymentConfirmed, map[string]any{
		"transaction_id": confirmed.TransactionID,
	})
	s.logEvent(ctx, &appt.ID, nil, EventAppointmentBooked, map[string]any{
		"slot_id":   payment.Draft.SlotID,
		"doctor_id": appt.DoctorID,
	})

	return appt, confirmed, nil
}

// Reschedule moves an appointment to a new slot of the same doctor. The old
// slot is released and the new one booked in the same transaction; on any
// failure the appointment is untouched.
func (s *Service) Reschedule(ctx context.Context, appointmentID int64, newDate time.Time, newStart, newEnd TimeOfDay) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Reschedulable() {
		return nil, ErrNotReschedulable
	}
	if dateOnly(newDate).Before(dateOnly(s.now())) {
		return nil, ErrDateInPast
	}
	if !newStart.Valid() || !newEnd.Valid() || !newStart.Before(newEnd) {
		return nil, ErrInvalidTimeRange
	}

	candidates, err := s.repo.FindAvailableSlots(ctx, 0, appt.DoctorID, newDate, TimeOfDay{})
	if err != nil {
		return nil, fmt.Errorf("find slots for reschedule: %w", err)
	}

	var target *Slot
	for i := range candidates {
		slot := candidates[i].Slot
		if slot.Start.Equal(newStart) && slot.End.Equal(newEnd) {
			target = &slot
			break
		}
	}
	if target == nil {
		return nil, ErrNoMatchingSlot
	}

	conflicts, err := s.repo.FindConflictingAppointments(ctx, appt.DoctorID, newDate, newStart)
	if err != nil {
		return nil, fmt.Errorf("check conflicts: %w", err)
	}
	for _, c := range conflicts {
		if c.ID != appt.ID {
			return nil, ErrDoctorTimeConflict
		}
	}

	var updated *Appointment
	err = s.locker.WithSlotLock(ctx, target.ID, func(lockCtx context.Context) error {
		updated, err = s.repo.RescheduleAppointment(lockCtx, appt.ID, target.ID, newDate, newStart, newEnd)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logEvent(ctx, &updated.ID, nil, EventAppointmentRescheduled, map[string]any{
		"new_date":  dateOnly(newDate).Format(time.DateOnly),
		"new_start": newStart.String(),
		"new_end":   newEnd.String(),
	})

	return updated, nil
}

// Cancel transitions SCHEDULED -> CANCELLED with the reason, actor and
// timestamp recorded. The appointment survives as a row; only its status
// changes, and its slot is released for rebooking.
func (s *Service) Cancel(ctx context.Context, appointmentID int64, reason string, actor CancelActor) (*Appointment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrEmptyCancelReason
	}
	if !actor.Role.CanCancelAppointment() {
		return nil, fmt.Errorf("role %s cannot cancel appointments", actor.Role)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	switch appt.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusCompleted:
		return nil, ErrAlreadyCompleted
	case StatusScheduled:
	}

	updated, err := s.repo.CancelAppointment(ctx, appt.ID, strings.TrimSpace(reason), actor, s.now())
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, &updated.ID, nil, EventAppointmentCancelled, map[string]any{
		"reason":   reason,
		"by_role":  actor.Role.String(),
		"by_id":    actor.ID,
	})

	return updated, nil
}

// Complete marks a past appointment COMPLETED.
func (s *Service) Complete(ctx context.Context, appointmentID int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	switch appt.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusCompleted:
		return nil, ErrAlreadyCompleted
	case StatusScheduled:
	}

	if appt.Start.On(appt.Date).After(s.now()) {
		return nil, ErrAppointmentInFuture
	}

	updated, err := s.repo.CompleteAppointment(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, &updated.ID, nil, EventAppointmentCompleted, map[string]any{})

	return updated, nil
}

// ExpireStalePayments fails PENDING payments older than the configured TTL.
// Run periodically by the expiry worker; this is the reconciliation for
// confirm-stage failures that left a payment pending with no appointment.
func (s *Service) ExpireStalePayments(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.PaymentTTL)

	stale, err := s.repo.FindStalePendingPayments(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale pending payments: %w", err)
	}

	expired := 0
	for _, p := range stale {
		if _, err := s.repo.UpdatePaymentStatus(ctx, p.PaymentID, PaymentPending, PaymentFailed); err != nil {
			if errors.Is(err, ErrPaymentNotFound) {
				continue
			}
			log.Printf("failed to expire payment %s: %v", p.PaymentID, err)
			continue
		}
		expired++
		s.logEvent(ctx, nil, &p.PaymentID, EventPaymentExpired, map[string]any{
			"reason":  "worker",
			"created": p.CreatedAt,
		})
	}

	return expired, nil
}

// GetAppointmentDetail retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointmentDetail(ctx context.Context, id int64) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListAppointmentsByPatient lists a patient's appointments, optionally split
// into upcoming or past relative to now.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID int64, f AppointmentFilter) ([]AppointmentDetail, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Now.IsZero() {
		f.Now = s.now()
	}

	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID *int64, paymentID *string, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		PaymentID:     paymentID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s: %v", eventType, err)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
