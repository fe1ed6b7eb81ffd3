package booking

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date. Reschedule and slot payloads
// carry start/end times in this decomposed form rather than as strings.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
	Nano   int `json:"nano"`
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Nano:   t.Nanosecond(),
	}
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 &&
		t.Minute >= 0 && t.Minute < 60 &&
		t.Second >= 0 && t.Second < 60 &&
		t.Nano >= 0 && t.Nano < int(time.Second)
}

// Compare returns -1, 0 or 1 ordering t against other.
func (t TimeOfDay) Compare(other TimeOfDay) int {
	a := t.nanosSinceMidnight()
	b := other.nanosSinceMidnight()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t TimeOfDay) Before(other TimeOfDay) bool { return t.Compare(other) < 0 }
func (t TimeOfDay) After(other TimeOfDay) bool  { return t.Compare(other) > 0 }
func (t TimeOfDay) Equal(other TimeOfDay) bool  { return t.Compare(other) == 0 }

func (t TimeOfDay) AddMinutes(m int) TimeOfDay {
	total := t.Hour*60 + t.Minute + m
	return TimeOfDay{
		Hour:   (total / 60) % 24,
		Minute: total % 60,
		Second: t.Second,
		Nano:   t.Nano,
	}
}

// On anchors the time of day to a calendar date in the date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour, t.Minute, t.Second, t.Nano, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) nanosSinceMidnight() int64 {
	return (int64(t.Hour)*3600+int64(t.Minute)*60+int64(t.Second))*int64(time.Second) + int64(t.Nano)
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS, the formats Postgres returns
// for time columns.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	n, err := fmt.Sscanf(s, "%d:%d:%d", &t.Hour, &t.Minute, &t.Second)
	if err != nil && n < 2 {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}
