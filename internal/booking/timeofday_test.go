package booking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOfDayJSONShape(t *testing.T) {
	data, err := json.Marshal(NewTimeOfDay(10, 30))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hour":10,"minute":30,"second":0,"nano":0}`, string(data))

	var parsed TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`{"hour":14,"minute":15,"second":30,"nano":500}`), &parsed))
	assert.Equal(t, TimeOfDay{Hour: 14, Minute: 15, Second: 30, Nano: 500}, parsed)
}

func TestTimeOfDayOrdering(t *testing.T) {
	a := NewTimeOfDay(9, 0)
	b := NewTimeOfDay(9, 30)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.Equal(NewTimeOfDay(9, 0)))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, 1, b.Compare(a))
}

func TestTimeOfDayAddMinutes(t *testing.T) {
	assert.Equal(t, NewTimeOfDay(10, 0), NewTimeOfDay(9, 30).AddMinutes(30))
	assert.Equal(t, NewTimeOfDay(13, 0), NewTimeOfDay(12, 45).AddMinutes(15))
	// Midnight wrap
	assert.Equal(t, NewTimeOfDay(0, 15), NewTimeOfDay(23, 45).AddMinutes(30))
}

func TestTimeOfDayOn(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	got := NewTimeOfDay(10, 30).On(date)
	assert.Equal(t, time.Date(2025, 6, 10, 10, 30, 0, 0, time.UTC), got)
}

func TestTimeOfDayValid(t *testing.T) {
	assert.True(t, NewTimeOfDay(0, 0).Valid())
	assert.True(t, NewTimeOfDay(23, 59).Valid())
	assert.False(t, TimeOfDay{Hour: 24}.Valid())
	assert.False(t, TimeOfDay{Minute: 60}.Valid())
	assert.False(t, TimeOfDay{Hour: -1}.Valid())
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30:00")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(9, 30), got)

	got, err = ParseTimeOfDay("14:15")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(14, 15), got)

	_, err = ParseTimeOfDay("25:00:00")
	assert.Error(t, err)
}
