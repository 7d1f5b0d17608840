package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourhub/pkg/model"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func availabilityFixture(policy model.AvailabilityPolicy) *model.Attraction {
	return &model.Attraction{
		ID:           primitive.NewObjectID(),
		Status:       model.AttractionStatusActive,
		Availability: policy,
	}
}

func TestBuildAvailability_Deterministic(t *testing.T) {
	a := availabilityFixture(model.AvailabilityPolicy{
		Type:            model.AvailabilityDaily,
		CapacityPerSlot: 12,
		TimeSlots:       []string{"09:00", "14:00"},
	})

	first := buildAvailability(a, monday.AddDate(0, 0, 1), 7, monday)
	second := buildAvailability(a, monday.AddDate(0, 0, 1), 7, monday)
	assert.Equal(t, first, second)

	require.Len(t, first.Days, 7)
	assert.Equal(t, "2026-03-03", first.From)
	assert.Equal(t, "2026-03-09", first.To)
	for _, day := range first.Days {
		require.Len(t, day.Slots, 2)
		for _, slot := range day.Slots {
			assert.Equal(t, 12, slot.Capacity)
			assert.GreaterOrEqual(t, slot.Remaining, 0)
			assert.LessOrEqual(t, slot.Remaining, 12)
			assert.Equal(t, slot.Remaining > 0, slot.Available)
		}
	}
}

func TestBuildAvailability_DaysOfWeek(t *testing.T) {
	a := availabilityFixture(model.AvailabilityPolicy{
		Type:       model.AvailabilityWeekly,
		DaysOfWeek: []int{int(time.Saturday), int(time.Sunday)},
	})

	out := buildAvailability(a, monday, 7, monday)
	for _, day := range out.Days {
		if day.Weekday == "Saturday" || day.Weekday == "Sunday" {
			continue
		}
		assert.False(t, day.Available, day.Date)
		for _, slot := range day.Slots {
			assert.Zero(t, slot.Remaining, day.Date)
		}
	}
}

func TestBuildAvailability_PastAndAdvanceWindow(t *testing.T) {
	a := availabilityFixture(model.AvailabilityPolicy{AdvanceBookingDays: 3})

	out := buildAvailability(a, monday.AddDate(0, 0, -2), 10, monday)
	require.Len(t, out.Days, 10)

	// Days before today and beyond today+3 are closed.
	for i, day := range out.Days {
		if i < 2 || i > 5 {
			assert.False(t, day.Available, day.Date)
			assert.Zero(t, day.Slots[0].Remaining, day.Date)
		}
	}
}

func TestBuildAvailability_Cutoff(t *testing.T) {
	a := availabilityFixture(model.AvailabilityPolicy{
		CutoffHours: 3,
		TimeSlots:   []string{"09:00", "18:00"},
	})

	// At 08:00 with a 3h cutoff the 09:00 slot is closed and 18:00 is not.
	out := buildAvailability(a, monday, 1, monday)
	day := out.Days[0]
	assert.False(t, day.Slots[0].Available)
	assert.Zero(t, day.Slots[0].Remaining)
	assert.Equal(t, remainingSeats(a.ID.Hex(), "2026-03-02", "18:00", defaultSlotCapacity), day.Slots[1].Remaining)
}

func TestBuildAvailability_OnRequest(t *testing.T) {
	a := availabilityFixture(model.AvailabilityPolicy{Type: model.AvailabilityOnRequest})

	out := buildAvailability(a, monday, 3, monday)
	assert.True(t, out.OnRequest)
	for _, day := range out.Days {
		assert.True(t, day.Available)
		assert.Empty(t, day.Slots)
	}
}
