package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewell/hospital-booking/internal/config"
)

func newGeneratorService(t *testing.T) (*Service, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	repo.doctors[7] = &Doctor{ID: 7, SpecializationID: 3, ConsultationFee: 500}
	svc := NewService(repo, &stubLocker{}, config.Config{})
	return svc, repo
}

func TestGenerateSlotsCutsWindowByDuration(t *testing.T) {
	svc, repo := newGeneratorService(t)
	repo.templates = []SlotTemplate{{
		ID: 1, DoctorID: 7, DayOfWeek: time.Tuesday,
		Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0),
		DurationMinutes: 30, Active: true,
	}}

	// 2025-06-10 is a Tuesday
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	created, err := svc.GenerateSlots(context.Background(), 7, day, day)
	require.NoError(t, err)

	require.Len(t, created, 2)
	assert.Equal(t, NewTimeOfDay(9, 0), created[0].Start)
	assert.Equal(t, NewTimeOfDay(9, 30), created[0].End)
	assert.Equal(t, NewTimeOfDay(9, 30), created[1].Start)
	// The last slot ends exactly at the window end
	assert.Equal(t, NewTimeOfDay(10, 0), created[1].End)
	for _, s := range created {
		assert.Equal(t, SlotAvailable, s.Status)
		assert.Equal(t, int64(7), s.DoctorID)
	}
}

func TestGenerateSlotsDropsPartialTrailingSlot(t *testing.T) {
	svc, repo := newGeneratorService(t)
	repo.templates = []SlotTemplate{{
		ID: 1, DoctorID: 7, DayOfWeek: time.Tuesday,
		Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(9, 50),
		DurationMinutes: 30, Active: true,
	}}

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	created, err := svc.GenerateSlots(context.Background(), 7, day, day)
	require.NoError(t, err)

	// 9:30-10:00 would overrun the 9:50 window end
	require.Len(t, created, 1)
	assert.Equal(t, NewTimeOfDay(9, 0), created[0].Start)
}

func TestGenerateSlotsSkipsExistingAndOffDays(t *testing.T) {
	svc, repo := newGeneratorService(t)
	repo.templates = []SlotTemplate{{
		ID: 1, DoctorID: 7, DayOfWeek: time.Tuesday,
		Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0),
		DurationMinutes: 30, Active: true,
	}}

	tuesday := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo.slots[1] = &Slot{
		ID: 1, DoctorID: 7, Date: tuesday,
		Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(9, 30), Status: SlotAvailable,
	}

	// Monday through Wednesday: only Tuesday matches the template, and its
	// 9:00 slot already exists.
	monday := tuesday.AddDate(0, 0, -1)
	wednesday := tuesday.AddDate(0, 0, 1)
	created, err := svc.GenerateSlots(context.Background(), 7, monday, wednesday)
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, NewTimeOfDay(9, 30), created[0].Start)
	assert.True(t, dateOnly(created[0].Date).Equal(tuesday))
}

func TestGenerateSlotsValidation(t *testing.T) {
	svc, repo := newGeneratorService(t)
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.GenerateSlots(context.Background(), 999, day, day)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = svc.GenerateSlots(context.Background(), 7, day, day.AddDate(0, 0, -1))
	assert.Error(t, err)

	// No active templates means nothing to generate
	repo.templates = []SlotTemplate{{
		ID: 1, DoctorID: 7, DayOfWeek: time.Tuesday,
		Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0),
		DurationMinutes: 30, Active: false,
	}}
	created, err := svc.GenerateSlots(context.Background(), 7, day, day)
	require.NoError(t, err)
	assert.Empty(t, created)
}
