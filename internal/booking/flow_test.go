package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlow() *Flow {
	sel := Selection{
		Slot: Slot{
			ID:       55,
			DoctorID: 7,
			Start:    NewTimeOfDay(10, 0),
			End:      NewTimeOfDay(10, 30),
			Status:   SlotAvailable,
		},
		Doctor: Doctor{ID: 7, ConsultationFee: 500},
	}
	return NewFlow(sel, 42, TypeConsultation, "fever", "")
}

func TestNewFlowFillsDraftFromSelection(t *testing.T) {
	f := newTestFlow()

	assert.Equal(t, FlowDrafting, f.State)
	assert.Equal(t, int64(42), f.Draft.PatientID)
	assert.Equal(t, int64(7), f.Draft.DoctorID)
	assert.Equal(t, int64(55), f.Draft.SlotID)
	assert.Equal(t, int64(500), f.Draft.ConsultationFee)
	assert.Equal(t, "fever", f.Draft.Symptoms)
}

func TestFlowHappyPath(t *testing.T) {
	f := newTestFlow()

	require.NoError(t, f.ChoosePaymentMethod(MethodUPI))
	require.NoError(t, f.PaymentCreated("pay-123"))
	assert.Equal(t, FlowPendingPayment, f.State)

	require.NoError(t, f.BeginConfirm())
	assert.Equal(t, FlowConfirming, f.State)

	require.NoError(t, f.Booked())
	assert.Equal(t, FlowBooked, f.State)
}

func TestFlowConfirmRequiresPayment(t *testing.T) {
	// Confirmation must be unreachable before step 1 has recorded a payment
	// id, whatever order the calls arrive in.
	f := newTestFlow()
	assert.ErrorIs(t, f.BeginConfirm(), ErrFlowTransition)

	require.NoError(t, f.ChoosePaymentMethod(MethodCard))
	assert.ErrorIs(t, f.BeginConfirm(), ErrFlowTransition)

	assert.ErrorIs(t, f.PaymentCreated(""), ErrFlowNoPayment)
	assert.Equal(t, FlowDrafting, f.State)
}

func TestFlowDoublePaymentCreateRejected(t *testing.T) {
	f := newTestFlow()
	require.NoError(t, f.PaymentCreated("pay-1"))

	err := f.PaymentCreated("pay-2")
	assert.ErrorIs(t, err, ErrFlowTransition)
	assert.Equal(t, "pay-1", f.PaymentID)
}

func TestFlowFailStages(t *testing.T) {
	f := newTestFlow()
	require.NoError(t, f.Fail("create"))
	assert.Equal(t, FlowFailed, f.State)
	assert.True(t, f.Retryable())

	f = newTestFlow()
	require.NoError(t, f.PaymentCreated("pay-1"))
	require.NoError(t, f.BeginConfirm())
	require.NoError(t, f.Fail("confirm"))
	assert.False(t, f.Retryable(), "confirm failures may have left a pending payment")

	// Terminal states stay terminal
	assert.ErrorIs(t, f.Fail("create"), ErrFlowTransition)

	f = newTestFlow()
	require.NoError(t, f.PaymentCreated("pay-1"))
	require.NoError(t, f.BeginConfirm())
	require.NoError(t, f.Booked())
	assert.ErrorIs(t, f.Fail("confirm"), ErrFlowTransition)
	assert.False(t, f.Retryable())
}

func TestFlowDraftSurvivesFailure(t *testing.T) {
	f := newTestFlow()
	draft := f.Draft

	require.NoError(t, f.ChoosePaymentMethod(MethodUPI))
	require.NoError(t, f.Fail("create"))

	assert.Equal(t, draft, f.Draft, "draft must survive a failed handshake")
}
