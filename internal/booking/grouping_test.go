package booking

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var groupingDate = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func availableSlot(slotID, doctorID int64, hour, minute int) AvailableSlot {
	return AvailableSlot{
		Slot: Slot{
			ID:       slotID,
			DoctorID: doctorID,
			Date:     groupingDate,
			Start:    NewTimeOfDay(hour, minute),
			End:      NewTimeOfDay(hour, minute).AddMinutes(30),
			Status:   SlotAvailable,
		},
		Doctor: Doctor{
			ID:               doctorID,
			FirstName:        fmt.Sprintf("Doc%d", doctorID),
			LastName:         "Test",
			SpecializationID: 3,
			Specialization:   "Dermatology",
			ConsultationFee:  500,
		},
	}
}

func TestGroupSlotsByDoctor(t *testing.T) {
	// Doctor 7 appears twice interleaved with doctor 9; slots must fold into
	// two groups keyed by doctor, in first-seen order.
	slots := []AvailableSlot{
		availableSlot(55, 7, 10, 0),
		availableSlot(60, 9, 10, 0),
		availableSlot(56, 7, 10, 30),
	}

	groups := GroupSlotsByDoctor(slots)
	require.Len(t, groups, 2)

	assert.Equal(t, int64(7), groups[0].Doctor.ID)
	require.Len(t, groups[0].Slots, 2)
	assert.Equal(t, int64(55), groups[0].Slots[0].ID)
	assert.Equal(t, int64(56), groups[0].Slots[1].ID)

	assert.Equal(t, int64(9), groups[1].Doctor.ID)
	require.Len(t, groups[1].Slots, 1)
	assert.Equal(t, int64(60), groups[1].Slots[0].ID)
}

func TestGroupSlotsByDoctorPreservesEverySlot(t *testing.T) {
	var slots []AvailableSlot
	for i := 0; i < 40; i++ {
		slots = append(slots, availableSlot(int64(100+i), int64(1+i%7), 9+i%8, 0))
	}

	groups := GroupSlotsByDoctor(slots)

	total := 0
	seen := make(map[int64]bool)
	for _, g := range groups {
		for _, s := range g.Slots {
			assert.Equal(t, g.Doctor.ID, s.DoctorID)
			assert.False(t, seen[s.ID], "slot %d appears twice", s.ID)
			seen[s.ID] = true
			total++
		}
	}
	assert.Equal(t, len(slots), total)
}

func TestGroupSlotsByDoctorEmpty(t *testing.T) {
	groups := GroupSlotsByDoctor(nil)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestPageGroups(t *testing.T) {
	var groups []DoctorGroup
	for i := int64(1); i <= 14; i++ {
		groups = append(groups, DoctorGroup{Doctor: Doctor{ID: i}})
	}

	page := PageGroups(groups, 1, DefaultGroupPageSize)
	assert.Len(t, page.Groups, 6)
	assert.Equal(t, int64(1), page.Groups[0].Doctor.ID)
	assert.Equal(t, 14, page.TotalGroups)
	assert.Equal(t, 3, page.TotalPages)

	page = PageGroups(groups, 3, DefaultGroupPageSize)
	assert.Len(t, page.Groups, 2)
	assert.Equal(t, int64(13), page.Groups[0].Doctor.ID)

	// Out of range: empty window, totals intact
	page = PageGroups(groups, 9, DefaultGroupPageSize)
	assert.Empty(t, page.Groups)
	assert.Equal(t, 14, page.TotalGroups)
	assert.Equal(t, 3, page.TotalPages)

	// Zero page and page size fall back to defaults
	page = PageGroups(groups, 0, 0)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultGroupPageSize, page.PageSize)
}

func TestSelectSlotResolvesDoctorThroughSlot(t *testing.T) {
	groups := GroupSlotsByDoctor([]AvailableSlot{
		availableSlot(55, 7, 10, 0),
		availableSlot(56, 7, 10, 30),
		availableSlot(60, 9, 10, 0),
	})

	sel, err := SelectSlot(groups, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), sel.Slot.ID)
	assert.Equal(t, int64(9), sel.Doctor.ID)

	// Selecting again yields the same pair
	again, err := SelectSlot(groups, 60)
	require.NoError(t, err)
	assert.Equal(t, sel, again)
}

func TestSelectSlotNotInResults(t *testing.T) {
	groups := GroupSlotsByDoctor([]AvailableSlot{availableSlot(55, 7, 10, 0)})

	_, err := SelectSlot(groups, 999)
	assert.ErrorIs(t, err, ErrSlotNotInResults)
}
