package booking

import (
	"context"
	"fmt"
	"time"
)

// GenerateSlots expands a doctor's active weekly templates into concrete
// AVAILABLE slots between startDate and endDate inclusive. Dates whose
// templates would duplicate an existing available slot are skipped, so the
// generator is safe to rerun over an already-populated range.
func (s *Service) GenerateSlots(ctx context.Context, doctorID int64, startDate, endDate time.Time) ([]Slot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	if dateOnly(endDate).Before(dateOnly(startDate)) {
		return nil, fmt.Errorf("end date %s before start date %s",
			endDate.Format(time.DateOnly), startDate.Format(time.DateOnly))
	}

	templates, err := s.repo.FindActiveTemplates(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load slot templates: %w", err)
	}
	if len(templates) == 0 {
		return nil, nil
	}

	var pending []Slot
	for day := dateOnly(startDate); !day.After(dateOnly(endDate)); day = day.AddDate(0, 0, 1) {
		for _, tpl := range templates {
			if tpl.DayOfWeek != day.Weekday() {
				continue
			}
			slots, err := s.expandTemplate(ctx, tpl, day)
			if err != nil {
				return nil, err
			}
			pending = append(pending, slots...)
		}
	}

	if len(pending) == 0 {
		return nil, nil
	}

	created, err := s.repo.InsertSlots(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("insert generated slots: %w", err)
	}
	return created, nil
}

// expandTemplate cuts one template window into duration-sized slots. A slot
// is emitted only while it fits entirely inside the window; the last slot may
// end exactly at the window's end.
func (s *Service) expandTemplate(ctx context.Context, tpl SlotTemplate, day time.Time) ([]Slot, error) {
	if tpl.DurationMinutes <= 0 {
		return nil, fmt.Errorf("template %d has non-positive duration", tpl.ID)
	}

	var out []Slot
	for cur := tpl.Start; ; cur = cur.AddMinutes(tpl.DurationMinutes) {
		end := cur.AddMinutes(tpl.DurationMinutes)
		if end.After(tpl.End) || end.Before(cur) {
			break
		}

		exists, err := s.repo.SlotExists(ctx, tpl.DoctorID, day, cur, SlotAvailable)
		if err != nil {
			return nil, fmt.Errorf("check existing slot: %w", err)
		}
		if !exists {
			out = append(out, Slot{
				DoctorID: tpl.DoctorID,
				Date:     day,
				Start:    cur,
				End:      end,
				Status:   SlotAvailable,
			})
		}

		if end.Equal(tpl.End) {
			break
		}
	}

	return out, nil
}
