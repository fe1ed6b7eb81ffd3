package booking

import (
	"errors"
	"fmt"
	"time"
)

// FlowState is the client-observable state of the payment-first booking
// handshake.
type FlowState string

const (
	FlowDrafting       FlowState = "DRAFTING"
	FlowPendingPayment FlowState = "PENDING_PAYMENT"
	FlowConfirming     FlowState = "CONFIRMING"
	FlowBooked         FlowState = "BOOKED"
	FlowFailed         FlowState = "FAILED"
)

var (
	ErrFlowTransition = errors.New("invalid booking flow transition")
	// ErrFlowNoPayment guards the ordering invariant: confirmation is only
	// reachable once payment creation has returned an id.
	ErrFlowNoPayment = errors.New("no payment created for this booking flow")
)

// Flow is the single owned structure holding a booking handshake in flight.
// All state changes go through the transition methods below; the draft is
// preserved across failures so the patient never re-enters form data.
type Flow struct {
	State     FlowState     `json:"state"`
	Draft     Draft         `json:"draft"`
	Selection *Selection    `json:"selection,omitempty"`
	Method    PaymentMethod `json:"method,omitempty"`
	PaymentID string        `json:"paymentId,omitempty"`
	// FailedStage records which handshake step failed: "create" is safe to
	// retry from scratch, "confirm" may have left a pending payment behind.
	FailedStage string    `json:"failedStage,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewFlow starts a handshake from a selected slot. Slot and doctor arrive as
// an already-resolved pair; the draft is filled from them plus the form data.
func NewFlow(sel Selection, patientID int64, apptType AppointmentType, symptoms, notes string) *Flow {
	return &Flow{
		State:     FlowDrafting,
		Selection: &sel,
		Draft: Draft{
			PatientID:       patientID,
			DoctorID:        sel.Doctor.ID,
			SlotID:          sel.Slot.ID,
			Date:            sel.Slot.Date,
			Start:           sel.Slot.Start,
			End:             sel.Slot.End,
			Type:            apptType,
			ConsultationFee: sel.Doctor.ConsultationFee,
			Symptoms:        symptoms,
			Notes:           notes,
		},
		UpdatedAt: time.Now(),
	}
}

func (f *Flow) ChoosePaymentMethod(m PaymentMethod) error {
	if f.State != FlowDrafting {
		return fmt.Errorf("%w: choose method in state %s", ErrFlowTransition, f.State)
	}
	f.Method = m
	f.touch()
	return nil
}

// PaymentCreated moves DRAFTING -> PENDING_PAYMENT once step 1 returned a
// payment id. A second create while a payment is already outstanding is a
// transition error, not a new payment.
func (f *Flow) PaymentCreated(paymentID string) error {
	if f.State != FlowDrafting {
		return fmt.Errorf("%w: payment created in state %s", ErrFlowTransition, f.State)
	}
	if paymentID == "" {
		return ErrFlowNoPayment
	}
	f.State = FlowPendingPayment
	f.PaymentID = paymentID
	f.touch()
	return nil
}

// BeginConfirm moves PENDING_PAYMENT -> CONFIRMING. It is the only path to
// confirmation, so confirm can never run before create has recorded an id.
func (f *Flow) BeginConfirm() error {
	if f.State != FlowPendingPayment {
		return fmt.Errorf("%w: confirm in state %s", ErrFlowTransition, f.State)
	}
	if f.PaymentID == "" {
		return ErrFlowNoPayment
	}
	f.State = FlowConfirming
	f.touch()
	return nil
}

func (f *Flow) Booked() error {
	if f.State != FlowConfirming {
		return fmt.Errorf("%w: booked in state %s", ErrFlowTransition, f.State)
	}
	f.State = FlowBooked
	f.touch()
	return nil
}

// Fail marks the handshake failed at the given stage. Terminal states stay
// terminal.
func (f *Flow) Fail(stage string) error {
	switch f.State {
	case FlowBooked, FlowFailed:
		return fmt.Errorf("%w: fail in state %s", ErrFlowTransition, f.State)
	case FlowDrafting, FlowPendingPayment, FlowConfirming:
		f.State = FlowFailed
		f.FailedStage = stage
		f.touch()
		return nil
	}
	return fmt.Errorf("%w: fail in state %s", ErrFlowTransition, f.State)
}

// Retryable reports whether the failed flow can be resubmitted as-is. A
// confirm-stage failure may have left a payment pending server-side, so it
// needs support intervention rather than a blind retry.
func (f *Flow) Retryable() bool {
	return f.State == FlowFailed && f.FailedStage != "confirm"
}

func (f *Flow) touch() {
	f.UpdatedAt = time.Now()
}

// SuccessRecord is what the success page renders: the created appointment,
// the confirmed payment and the draft the patient submitted.
type SuccessRecord struct {
	Appointment *Appointment `json:"appointment"`
	Payment     *Payment     `json:"payment"`
	Draft       Draft        `json:"draft"`
	BookedAt    time.Time    `json:"bookedAt"`
}
