package booking

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id int64) (*Patient, error)
	GetDoctorByID(ctx context.Context, id int64) (*Doctor, error)

	GetSlotByID(ctx context.Context, id int64) (*Slot, error)
	// FindAvailableSlots returns AVAILABLE slots for the date, doctor-joined,
	// scoped by specialization or doctor (zero means unscoped). notBefore
	// trims same-day slots whose start already passed; zero disables the trim.
	FindAvailableSlots(ctx context.Context, specializationID, doctorID int64, date time.Time, notBefore TimeOfDay) ([]AvailableSlot, error)
	UpdateSlotStatus(ctx context.Context, id int64, from, to SlotStatus) (*Slot, error)
	SlotExists(ctx context.Context, doctorID int64, date time.Time, start TimeOfDay, status SlotStatus) (bool, error)
	InsertSlots(ctx context.Context, slots []Slot) ([]Slot, error)
	FindActiveTemplates(ctx context.Context, doctorID int64) ([]SlotTemplate, error)

	CreatePendingPayment(ctx context.Context, p *Payment) (*Payment, error)
	GetPaymentByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	FindOpenPaymentForSlot(ctx context.Context, slotID, patientID int64) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, from, to PaymentStatus) (*Payment, error)
	// ConfirmPaymentAndCreateAppointment runs step 2 atomically: payment ->
	// SUCCESS, appointment inserted from the payment's draft, slot -> BOOKED,
	// payment linked. Everything or nothing.
	ConfirmPaymentAndCreateAppointment(ctx context.Context, paymentID string) (*Appointment, *Payment, error)
	FindStalePendingPayments(ctx context.Context, olderThan time.Time) ([]Payment, error)

	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id int64) (*AppointmentDetail, error)
	FindConflictingAppointments(ctx context.Context, doctorID int64, date time.Time, start TimeOfDay) ([]Appointment, error)
	RescheduleAppointment(ctx context.Context, id int64, newSlotID int64, date time.Time, start, end TimeOfDay) (*Appointment, error)
	CancelAppointment(ctx context.Context, id int64, reason string, actor CancelActor, at time.Time) (*Appointment, error)
	CompleteAppointment(ctx context.Context, id int64) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID int64, f AppointmentFilter) ([]AppointmentDetail, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// AppointmentFilter narrows patient appointment listings.
type AppointmentFilter struct {
	Status *AppointmentStatus
	// Upcoming/Past split relative to Now; both false means no time filter.
	Upcoming bool
	Past     bool
	Now      time.Time
	Limit    int
	Offset   int
}
