// Package session persists the booking flow state that lives between the
// slot-selection, payment and success stages of the patient UI. The three
// keys (pendingAppointment, selectedPaymentMethod, paymentSuccess) are the
// wire format between those stages and must round-trip losslessly.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carewell/hospital-booking/internal/booking"
)

const (
	keyPendingAppointment = "pendingAppointment"
	keyPaymentMethod      = "selectedPaymentMethod"
	keyPaymentSuccess     = "paymentSuccess"
)

var ErrNotFound = errors.New("session value not found")

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sessionID, name string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, name)
}

func (s *Store) setJSON(ctx context.Context, sessionID, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", name, err)
	}
	if err := s.client.Set(ctx, s.key(sessionID, name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", name, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, sessionID, name string, v any) error {
	data, err := s.client.Get(ctx, s.key(sessionID, name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("load session %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode session %s: %w", name, err)
	}
	return nil
}

// SaveFlow stores the in-flight booking handshake under pendingAppointment.
func (s *Store) SaveFlow(ctx context.Context, sessionID string, f *booking.Flow) error {
	return s.setJSON(ctx, sessionID, keyPendingAppointment, f)
}

func (s *Store) LoadFlow(ctx context.Context, sessionID string) (*booking.Flow, error) {
	var f booking.Flow
	if err := s.getJSON(ctx, sessionID, keyPendingAppointment, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ClearFlow removes the draft once the handshake reached a terminal success
// or was abandoned.
func (s *Store) ClearFlow(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID, keyPendingAppointment)).Err()
}

func (s *Store) SavePaymentMethod(ctx context.Context, sessionID string, m booking.PaymentMethod) error {
	return s.setJSON(ctx, sessionID, keyPaymentMethod, m)
}

func (s *Store) LoadPaymentMethod(ctx context.Context, sessionID string) (booking.PaymentMethod, error) {
	var m booking.PaymentMethod
	if err := s.getJSON(ctx, sessionID, keyPaymentMethod, &m); err != nil {
		return "", err
	}
	return m, nil
}

func (s *Store) SaveSuccess(ctx context.Context, sessionID string, rec *booking.SuccessRecord) error {
	return s.setJSON(ctx, sessionID, keyPaymentSuccess, rec)
}

func (s *Store) LoadSuccess(ctx context.Context, sessionID string) (*booking.SuccessRecord, error) {
	var rec booking.SuccessRecord
	if err := s.getJSON(ctx, sessionID, keyPaymentSuccess, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
