package booking

import "time"

type SlotStatus string

const (
	SlotAvailable   SlotStatus = "AVAILABLE"
	SlotBooked      SlotStatus = "BOOKED"
	SlotUnavailable SlotStatus = "UNAVAILABLE"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// Reschedulable reports whether an appointment in this status may still be
// moved to a new slot. Completed and cancelled appointments are frozen.
func (s AppointmentStatus) Reschedulable() bool {
	return s == StatusScheduled
}

type AppointmentType string

const (
	TypeConsultation AppointmentType = "CONSULTATION"
	TypeFollowUp     AppointmentType = "FOLLOW_UP"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	MethodCard       PaymentMethod = "CARD"
	MethodCash       PaymentMethod = "CASH"
	MethodUPI        PaymentMethod = "UPI"
	MethodNetbanking PaymentMethod = "NETBANKING"
)

type Patient struct {
	ID        int64
	FirstName string
	LastName  string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID               int64  `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	SpecializationID int64  `json:"specializationId"`
	Specialization   string `json:"specialization"`
	ConsultationFee  int64  `json:"consultationFee"`
}

// Slot is a bookable doctor time window for a single date. Slots are produced
// by template expansion and are read-only to the booking flow except for the
// status field.
type Slot struct {
	ID       int64     `json:"slotId"`
	DoctorID int64     `json:"doctorId"`
	Date     time.Time `json:"date"`
	Start    TimeOfDay `json:"startTime"`
	End      TimeOfDay `json:"endTime"`
	Status   SlotStatus `json:"status"`
}

// AvailableSlot is the wire shape of a slot search hit: the slot plus its
// owning doctor, so a client can resolve the pair atomically.
type AvailableSlot struct {
	Slot   Slot   `json:"slot"`
	Doctor Doctor `json:"doctor"`
}

// DoctorGroup is a doctor together with that doctor's slots for the queried
// date. Groups are derived per search and are the unit of pagination.
type DoctorGroup struct {
	Doctor Doctor `json:"doctor"`
	Slots  []Slot `json:"slots"`
}

// Draft is the transient booking request a patient assembles before paying.
// It holds everything needed to create the appointment once payment confirms.
type Draft struct {
	PatientID       int64           `json:"patientId"`
	DoctorID        int64           `json:"doctorId"`
	SlotID          int64           `json:"slotId"`
	Date            time.Time       `json:"appointmentDate"`
	Start           TimeOfDay       `json:"appointmentTime"`
	End             TimeOfDay       `json:"endTime"`
	Type            AppointmentType `json:"appointmentType"`
	ConsultationFee int64           `json:"consultationFee"`
	Symptoms        string          `json:"symptoms"`
	Notes           string          `json:"notes"`
}

// PaymentDetails carries the method-specific fields collected by the payment
// form. Only the fields matching the method are expected to be set.
type PaymentDetails struct {
	Method         PaymentMethod `json:"method"`
	UPIID          string        `json:"upiId,omitempty"`
	CardholderName string        `json:"cardholderName,omitempty"`
	CardNumber     string        `json:"cardNumber,omitempty"`
	ExpiryDate     string        `json:"expiryDate,omitempty"`
	CVV            string        `json:"cvv,omitempty"`
	BillingAddress string        `json:"billingAddress,omitempty"`
	MobileNumber   string        `json:"mobileNumber,omitempty"`
}

// Payment is created in step 1 of the handshake with a full copy of the
// draft, and linked to the appointment it funded in step 2. AppointmentID
// stays nil until confirmation succeeds.
type Payment struct {
	ID            int64
	PaymentID     string // opaque identifier handed to clients
	PatientID     int64
	AppointmentID *int64
	Amount        int64
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	Details       PaymentDetails
	Draft         Draft
	PaymentDate   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CancelActor records who cancelled an appointment.
type CancelActor struct {
	Role Role  `json:"role"`
	ID   int64 `json:"id"`
}

type Appointment struct {
	ID                 int64
	PatientID          int64
	DoctorID           int64
	SlotID             *int64
	Date               time.Time
	Start              TimeOfDay
	End                TimeOfDay
	Status             AppointmentStatus
	Type               AppointmentType
	ConsultationFee    int64
	Symptoms           string
	Notes              string
	CancellationReason *string
	CancelledAt        *time.Time
	CancelledBy        *CancelActor
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AppointmentDetail is an appointment hydrated with its patient and doctor.
type AppointmentDetail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}

// SlotTemplate is a doctor's recurring weekly availability window, expanded
// into concrete slots by the generator.
type SlotTemplate struct {
	ID              int64
	DoctorID        int64
	DayOfWeek       time.Weekday
	Start           TimeOfDay
	End             TimeOfDay
	DurationMinutes int
	Active          bool
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *int64
	PaymentID     *string
	Payload       []byte
	CreatedAt     time.Time
}
