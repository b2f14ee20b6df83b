package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/jinzhu/now"
)

const DateLayout = "2006-01-02"

// TimeSlots are the service times a booking can be made for.
var TimeSlots = []string{"17:00", "18:00", "19:30", "21:00"}

func IsValidSlot(label string) bool {
	for _, s := range TimeSlots {
		if s == label {
			return true
		}
	}
	return false
}

// SlotStart resolves a (date, slot) pair to the wall-clock start in loc.
func SlotStart(date, slot string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", date)
	}
	if !IsValidSlot(slot) {
		return time.Time{}, fmt.Errorf("invalid time slot %q", slot)
	}
	start, err := now.ParseInLocation(loc, date+" "+slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %s %s: %w", date, slot, err)
	}
	return start, nil
}

// Today is the calendar day of t in t's location.
func Today(t time.Time) string {
	return now.With(t).BeginningOfDay().Format(DateLayout)
}

// Upcoming keeps the bookings whose slot has not started at t, earliest
// first. Bookings with an unreadable slot are dropped.
func Upcoming(bookings []Booking, t time.Time, loc *time.Location) []Booking {
	type dated struct {
		b     Booking
		start time.Time
	}
	kept := make([]dated, 0, len(bookings))
	for _, b := range bookings {
		start, err := SlotStart(b.Date, b.Time, loc)
		if err != nil || start.Before(t) {
			continue
		}
		kept = append(kept, dated{b: b, start: start})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].start.Before(kept[j].start) })

	out := make([]Booking, 0, len(kept))
	for _, d := range kept {
		out = append(out, d.b)
	}
	return out
}
