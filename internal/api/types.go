package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/carewell/hospital-booking/internal/booking"
)

var validate = validator.New()

// TimePayload is the decomposed wall-clock time used on the wire for
// appointment and reschedule payloads.
type TimePayload struct {
	Hour   int `json:"hour" validate:"min=0,max=23"`
	Minute int `json:"minute" validate:"min=0,max=59"`
	Second int `json:"second" validate:"min=0,max=59"`
	Nano   int `json:"nano" validate:"min=0"`
}

func (t TimePayload) toDomain() booking.TimeOfDay {
	return booking.TimeOfDay{Hour: t.Hour, Minute: t.Minute, Second: t.Second, Nano: t.Nano}
}

func timePayloadFrom(t booking.TimeOfDay) TimePayload {
	return TimePayload{Hour: t.Hour, Minute: t.Minute, Second: t.Second, Nano: t.Nano}
}

// CreatePaymentRequest is handshake step 1: the draft plus method-specific
// payment fields. No appointment is created by this request.
type CreatePaymentRequest struct {
	PatientID       int64       `json:"patientId" validate:"required,gt=0"`
	DoctorID        int64       `json:"doctorId" validate:"required,gt=0"`
	SlotID          int64       `json:"slotId" validate:"required,gt=0"`
	AppointmentDate string      `json:"appointmentDate" validate:"required,datetime=2006-01-02"`
	AppointmentTime TimePayload `json:"appointmentTime"`
	EndTime         TimePayload `json:"endTime"`
	AppointmentType string      `json:"appointmentType" validate:"required,oneof=CONSULTATION FOLLOW_UP"`
	Amount          int64       `json:"amount" validate:"required,gt=0"`
	Symptoms        string      `json:"symptoms"`
	Notes           string      `json:"notes"`

	Method         string `json:"method" validate:"required,oneof=CARD CASH UPI NETBANKING"`
	UPIID          string `json:"upiId" validate:"required_if=Method UPI"`
	CardholderName string `json:"cardholderName" validate:"required_if=Method CARD"`
	CardNumber     string `json:"cardNumber" validate:"required_if=Method CARD"`
	ExpiryDate     string `json:"expiryDate" validate:"required_if=Method CARD"`
	CVV            string `json:"cvv" validate:"required_if=Method CARD"`
	BillingAddress string `json:"billingAddress"`
	MobileNumber   string `json:"mobileNumber"`
}

func (r CreatePaymentRequest) draft() (booking.Draft, error) {
	date, err := time.Parse(time.DateOnly, r.AppointmentDate)
	if err != nil {
		return booking.Draft{}, err
	}
	return booking.Draft{
		PatientID:       r.PatientID,
		DoctorID:        r.DoctorID,
		SlotID:          r.SlotID,
		Date:            date,
		Start:           r.AppointmentTime.toDomain(),
		End:             r.EndTime.toDomain(),
		Type:            booking.AppointmentType(r.AppointmentType),
		ConsultationFee: r.Amount,
		Symptoms:        r.Symptoms,
		Notes:           r.Notes,
	}, nil
}

func (r CreatePaymentRequest) details() booking.PaymentDetails {
	return booking.PaymentDetails{
		Method:         booking.PaymentMethod(r.Method),
		UPIID:          r.UPIID,
		CardholderName: r.CardholderName,
		CardNumber:     r.CardNumber,
		ExpiryDate:     r.ExpiryDate,
		CVV:            r.CVV,
		BillingAddress: r.BillingAddress,
		MobileNumber:   r.MobileNumber,
	}
}

type PaymentResponse struct {
	PaymentID     string `json:"paymentId"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	AppointmentID *int64 `json:"appointmentId,omitempty"`
}

func paymentResponseFrom(p *booking.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:     p.PaymentID,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		AppointmentID: p.AppointmentID,
	}
}

type AppointmentResponse struct {
	ID                 int64       `json:"id"`
	PatientID          int64       `json:"patientId"`
	DoctorID           int64       `json:"doctorId"`
	SlotID             *int64      `json:"slotId,omitempty"`
	Date               string      `json:"appointmentDate"`
	StartTime          TimePayload `json:"appointmentTime"`
	EndTime            TimePayload `json:"endTime"`
	Status             string      `json:"status"`
	Type               string      `json:"appointmentType"`
	ConsultationFee    int64       `json:"consultationFee"`
	Symptoms           string      `json:"symptoms,omitempty"`
	Notes              string      `json:"notes,omitempty"`
	CancellationReason *string     `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time  `json:"cancelledAt,omitempty"`
	CancelledByRole    string      `json:"cancelledByRole,omitempty"`
}

func appointmentResponseFrom(a *booking.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		DoctorID:           a.DoctorID,
		SlotID:             a.SlotID,
		Date:               a.Date.Format(time.DateOnly),
		StartTime:          timePayloadFrom(a.Start),
		EndTime:            timePayloadFrom(a.End),
		Status:             string(a.Status),
		Type:               string(a.Type),
		ConsultationFee:    a.ConsultationFee,
		Symptoms:           a.Symptoms,
		Notes:              a.Notes,
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
	}
	if a.CancelledBy != nil {
		resp.CancelledByRole = a.CancelledBy.Role.String()
	}
	return resp
}

type ConfirmPaymentResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Payment     PaymentResponse     `json:"payment"`
}

// RescheduleRequest carries the new date plus decomposed start/end times, the
// shape the receiving contract requires.
type RescheduleRequest struct {
	Date    string      `json:"date" validate:"required,datetime=2006-01-02"`
	Time    TimePayload `json:"time"`
	EndTime TimePayload `json:"endTime"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type SelectSlotRequest struct {
	PatientID        int64  `json:"patientId" validate:"required,gt=0"`
	SpecializationID int64  `json:"specializationId" validate:"required,gt=0"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	SlotID           int64  `json:"slotId" validate:"required,gt=0"`
	AppointmentType  string `json:"appointmentType" validate:"required,oneof=CONSULTATION FOLLOW_UP"`
	Symptoms         string `json:"symptoms"`
	Notes            string `json:"notes"`
}

type PaymentMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=CARD CASH UPI NETBANKING"`
}

// FlowPaymentRequest is the method-specific remainder of the payment form;
// the draft itself comes from the session.
type FlowPaymentRequest struct {
	UPIID          string `json:"upiId"`
	CardholderName string `json:"cardholderName"`
	CardNumber     string `json:"cardNumber"`
	ExpiryDate     string `json:"expiryDate"`
	CVV            string `json:"cvv"`
	BillingAddress string `json:"billingAddress"`
	MobileNumber   string `json:"mobileNumber"`
}

type GenerateSlotsRequest struct {
	DoctorID  int64  `json:"doctorId" validate:"required,gt=0"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
