package service

import (
	"hash/fnv"
	"time"

	"tourhub/pkg/model"
)

const (
	DefaultAvailabilityDays = 14
	MaxAvailabilityDays     = 62

	defaultSlotCapacity = 20
	dateLayout          = "2006-01-02"
)

type Slot struct {
	Time      string `json:"time,omitempty"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
	Available bool   `json:"available"`
}

type DayAvailability struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	Available bool   `json:"available"`
	Slots     []Slot `json:"slots"`
}

type Availability struct {
	AttractionID string                 `json:"attractionId"`
	Type         model.AvailabilityType `json:"type"`
	OnRequest    bool                   `json:"onRequest"`
	From         string                 `json:"from"`
	To           string                 `json:"to"`
	Days         []DayAvailability      `json:"days"`
}

// buildAvailability produces a calendar of remaining capacity. There is no
// inventory store, so remaining seats are derived from a hash of the
// attraction, date and slot: the same request always yields the same
// numbers.
func buildAvailability(a *model.Attraction, from time.Time, days int, now time.Time) *Availability {
	policy := a.Availability
	if policy.Type == "" {
		policy.Type = model.AvailabilityDaily
	}
	capacity := policy.CapacityPerSlot
	if capacity <= 0 {
		capacity = defaultSlotCapacity
	}

	from = truncateDay(from)
	today := truncateDay(now)
	earliest := now.Add(time.Duration(policy.CutoffHours) * time.Hour)
	var latest time.Time
	if policy.AdvanceBookingDays > 0 {
		latest = today.AddDate(0, 0, policy.AdvanceBookingDays)
	}

	slots := policy.TimeSlots
	if len(slots) == 0 {
		slots = []string{""}
	}

	out := &Availability{
		AttractionID: a.ID.Hex(),
		Type:         policy.Type,
		OnRequest:    policy.Type == model.AvailabilityOnRequest,
		From:         from.Format(dateLayout),
		To:           from.AddDate(0, 0, days-1).Format(dateLayout),
		Days:         make([]DayAvailability, 0, days),
	}

	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i)
		day := DayAvailability{
			Date:    date.Format(dateLayout),
			Weekday: date.Weekday().String(),
			Slots:   []Slot{},
		}

		open := !date.Before(today) &&
			(latest.IsZero() || !date.After(latest)) &&
			opensOn(policy, date.Weekday())

		if open && out.OnRequest {
			day.Available = !date.Add(24 * time.Hour).Before(earliest)
			out.Days = append(out.Days, day)
			continue
		}

		for _, slotTime := range slots {
			slot := Slot{Time: slotTime, Capacity: capacity}
			if open && !slotStart(date, slotTime).Before(earliest) {
				slot.Remaining = remainingSeats(a.ID.Hex(), day.Date, slotTime, capacity)
				slot.Available = slot.Remaining > 0
			}
			if slot.Available {
				day.Available = true
			}
			day.Slots = append(day.Slots, slot)
		}
		out.Days = append(out.Days, day)
	}
	return out
}

// opensOn applies the weekday list. An empty list means every day.
func opensOn(policy model.AvailabilityPolicy, weekday time.Weekday) bool {
	if len(policy.DaysOfWeek) == 0 {
		return true
	}
	for _, d := range policy.DaysOfWeek {
		if time.Weekday(d) == weekday {
			return true
		}
	}
	return false
}

func slotStart(date time.Time, slot string) time.Time {
	if slot == "" {
		// All-day slots close at the end of the day.
		return date.Add(24*time.Hour - time.Minute)
	}
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return date
	}
	return date.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func remainingSeats(attractionID, date, slot string, capacity int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(attractionID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(date))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(slot))

	return int(h.Sum64() % uint64(capacity+1))
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
