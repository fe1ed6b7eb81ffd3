package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewell/hospital-booking/internal/booking"
)

const testSession = "sess-1"

func flowHeaders() map[string]string {
	return map[string]string{"X-Session-ID": testSession}
}

func selectBody() map[string]any {
	return map[string]any{
		"patientId":        42,
		"specializationId": 3,
		"date":             "2025-06-10",
		"slotId":           55,
		"appointmentType":  "CONSULTATION",
		"symptoms":         "recurring rash",
	}
}

func TestSelectSlotStartsDraftingFlow(t *testing.T) {
	svc := &stubService{
		availableBySpec: func(context.Context, int64, time.Time) ([]booking.AvailableSlot, error) {
			return testSlots(), nil
		},
	}
	flows := newMemFlowStore()
	srv := newTestServer(svc, flows)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/booking/select", selectBody(), flowHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var flow booking.Flow
	require.NoError(t, json.Unmarshal(body, &flow))
	assert.Equal(t, booking.FlowDrafting, flow.State)
	assert.Equal(t, int64(55), flow.Draft.SlotID)
	assert.Equal(t, int64(7), flow.Draft.DoctorID, "doctor must be resolved through the slot")
	assert.Equal(t, int64(500), flow.Draft.ConsultationFee)

	require.Contains(t, flows.flows, testSession)
}

func TestSelectSlotNotInResults(t *testing.T) {
	svc := &stubService{
		availableBySpec: func(context.Context, int64, time.Time) ([]booking.AvailableSlot, error) {
			return testSlots(), nil
		},
	}
	srv := newTestServer(svc, newMemFlowStore())
	defer srv.Close()

	body := selectBody()
	body["slotId"] = 999
	resp, respBody := doJSON(t, http.MethodPost, srv.URL+"/booking/select", body, flowHeaders())

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(respBody), "slot_not_in_results")
}

func TestFlowRequiresSession(t *testing.T) {
	srv := newTestServer(&stubService{}, newMemFlowStore())
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/booking/select", selectBody(), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "missing_session")

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/booking/flow", nil, flowHeaders())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "no_booking_flow")
}

func TestFlowPaymentRequiresMethod(t *testing.T) {
	svc := &stubService{
		availableBySpec: func(context.Context, int64, time.Time) ([]booking.AvailableSlot, error) {
			return testSlots(), nil
		},
	}
	srv := newTestServer(svc, newMemFlowStore())
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/booking/select", selectBody(), flowHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/booking/pay", map[string]string{"upiId": "asha@upi"}, flowHeaders())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "no_payment_method")
}

func TestFlowConfirmBeforePaymentRejected(t *testing.T) {
	// The ordering invariant: /booking/confirm before /booking/pay must fail
	// because the flow has no payment id yet.
	svc := &stubService{
		availableBySpec: func(context.Context, int64, time.Time) ([]booking.AvailableSlot, error) {
			return testSlots(), nil
		},
		confirmPayment: func(context.Context, string) (*booking.Appointment, *booking.Payment, error) {
			t.Fatal("confirm must not reach the service without a payment id")
			return nil, nil, nil
		},
	}
	srv := newTestServer(svc, newMemFlowStore())
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/booking/select", selectBody(), flowHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/booking/confirm", nil, flowHeaders())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "invalid_flow_state")
}

func TestFlowFullHandshake(t *testing.T) {
	svc := &stubService{
		availableBySpec: func(context.Context, int64, time.Time) ([]booking.AvailableSlot, error) {
			return testSlots(), nil
		},
		createPayment: func(_ context.Context, d booking.Draft, det booking.PaymentDetails) (*booking.Payment, error) {
			assert.Equal(t, int64(55), d.SlotID)
			assert.Equal(t, booking.MethodUPI, det.Method)
			return testPayment(), nil
		},
		confirmPayment: func(_ context.Context, paymentID string) (*booking.Appointment, *booking.Payment, error) {
			assert.Equal(t, "PAY123", paymentID)
			p := testPayment()
			p.Status = booking.PaymentSuccess
			apptID := int64(101)
			p.AppointmentID = &apptID
			return testAppointment(), p, nil
		},
	}
	flows := newMemFlowStore()
	srv := newTestServer(svc, flows)
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/booking/select", selectBody(), flowHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/booking/payment-method", map[string]string{"method": "UPI"}, flowHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/booking/pay", map[string]string{"upiId": "asha@upi"}, flowHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var pr PaymentResponse
	require.NoError(t, json.Unmarshal(body, &pr))
	assert.Equal(t, "PAY123", pr.PaymentID)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/booking/confirm", nil, flowHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cr ConfirmPaymentResponse
	require.NoError(t, json.Unmarshal(body, &cr))
	assert.Equal(t, int64(101), cr.Appointment.ID)

	// Flow is cleared, success record survives for the success page
	assert.NotContains(t, flows.flows, testSession)
	require.Contains(t, flows.success, testSession)
	assert.Equal(t, "recurring rash", flows.success[testSession].Draft.Symptoms)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/booking/success", nil, flowHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec booking.SuccessRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	require.NotNil(t, rec.Appointment)
	assert.Equal(t, int64(101), rec.Appointment.ID)
}

func TestFlowCreateFailureKeepsDraft(t *testing.T) {
	svc := &stubService{
		availableBySpec: func(context.Context, int64, time.Time) ([]booking.AvailableSlot, error) {
			return testSlots(), nil
		},
		createPayment: func(context.Context, booking.Draft, booking.PaymentDetails) (*booking.Payment, error) {
			return nil, booking.ErrSlotNotAvailable
		},
	}
	flows := newMemFlowStore()
	srv := newTestServer(svc, flows)
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/booking/select", selectBody(), flowHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/booking/payment-method", map[string]string{"method": "CASH"}, flowHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/booking/pay", map[string]string{}, flowHeaders())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The flow stays in DRAFTING with the form data intact
	flow := flows.flows[testSession]
	require.NotNil(t, flow)
	assert.Equal(t, booking.FlowDrafting, flow.State)
	assert.Equal(t, "recurring rash", flow.Draft.Symptoms)
}

func TestFlowConfirmFailureNotRetryable(t *testing.T) {
	svc := &stubService{
		availableBySpec: func(context.Context, int64, time.Time) ([]booking.AvailableSlot, error) {
			return testSlots(), nil
		},
		createPayment: func(context.Context, booking.Draft, booking.PaymentDetails) (*booking.Payment, error) {
			return testPayment(), nil
		},
		confirmPayment: func(context.Context, string) (*booking.Appointment, *booking.Payment, error) {
			return nil, nil, booking.ErrSlotNotAvailable
		},
	}
	flows := newMemFlowStore()
	srv := newTestServer(svc, flows)
	defer srv.Close()

	doJSON(t, http.MethodPost, srv.URL+"/booking/select", selectBody(), flowHeaders())
	doJSON(t, http.MethodPut, srv.URL+"/booking/payment-method", map[string]string{"method": "CASH"}, flowHeaders())
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/booking/pay", map[string]string{}, flowHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/booking/confirm", nil, flowHeaders())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	flow := flows.flows[testSession]
	require.NotNil(t, flow)
	assert.Equal(t, booking.FlowFailed, flow.State)
	assert.Equal(t, "confirm", flow.FailedStage)
	assert.False(t, flow.Retryable())
}
