package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carewell/hospital-booking/internal/booking"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, time.Hour)
}

func sampleFlow() *booking.Flow {
	sel := booking.Selection{
		Slot: booking.Slot{
			ID:       55,
			DoctorID: 7,
			Date:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			Start:    booking.NewTimeOfDay(10, 0),
			End:      booking.NewTimeOfDay(10, 30),
			Status:   booking.SlotAvailable,
		},
		Doctor: booking.Doctor{ID: 7, FirstName: "Asha", LastName: "Menon", ConsultationFee: 500},
	}
	return booking.NewFlow(sel, 42, booking.TypeConsultation, "persistent cough", "prefers morning")
}

func TestFlowRoundTripIsLossless(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	flow := sampleFlow()
	require.NoError(t, store.SaveFlow(ctx, "sess-1", flow))

	loaded, err := store.LoadFlow(ctx, "sess-1")
	require.NoError(t, err)

	require.Equal(t, flow.State, loaded.State)
	require.Equal(t, flow.Draft, loaded.Draft)
	require.Equal(t, flow.Selection.Slot.ID, loaded.Selection.Slot.ID)
	require.Equal(t, flow.Selection.Doctor, loaded.Selection.Doctor)
}

func TestLoadFlow_MissingSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadFlow(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFlow(ctx, "a", sampleFlow()))

	_, err := store.LoadFlow(ctx, "b")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClearFlowRemovesDraft(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFlow(ctx, "sess-1", sampleFlow()))
	require.NoError(t, store.ClearFlow(ctx, "sess-1"))

	_, err := store.LoadFlow(ctx, "sess-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentMethodRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePaymentMethod(ctx, "sess-1", booking.MethodUPI))

	m, err := store.LoadPaymentMethod(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, booking.MethodUPI, m)
}

func TestSuccessRecordRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	flow := sampleFlow()
	apptID := int64(901)
	rec := &booking.SuccessRecord{
		Appointment: &booking.Appointment{ID: apptID, PatientID: 42, DoctorID: 7, Status: booking.StatusScheduled},
		Payment:     &booking.Payment{PaymentID: "PAY123", AppointmentID: &apptID, Status: booking.PaymentSuccess},
		Draft:       flow.Draft,
		BookedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.SaveSuccess(ctx, "sess-1", rec))

	loaded, err := store.LoadSuccess(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "PAY123", loaded.Payment.PaymentID)
	require.Equal(t, rec.Draft.Symptoms, loaded.Draft.Symptoms)
	require.Equal(t, apptID, *loaded.Payment.AppointmentID)
}
