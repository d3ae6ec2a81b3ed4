package interview

import (
	"strings"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

// DefaultCapacity is used for slots added without an explicit capacity.
const DefaultCapacity = 20

// Slot is a bookable interview time. Booked never exceeds Capacity.
type Slot struct {
	ID       string `json:"id" yaml:"id"`
	Date     string `json:"date" yaml:"date"`
	Time     string `json:"time" yaml:"time"`
	Capacity int    `json:"capacity" yaml:"capacity"`
	Booked   int    `json:"booked" yaml:"booked"`
}

// Label is the human readable appointment stored on the applicant.
func (s Slot) Label() string {
	return s.Date + " - " + s.Time
}

func (s Slot) Remaining() int {
	return max(s.Capacity-s.Booked, 0)
}

func (s Slot) IsFull() bool {
	return s.Booked >= s.Capacity
}

func (s *Slot) Validate() error {
	s.Date = strings.TrimSpace(s.Date)
	s.Time = strings.TrimSpace(s.Time)
	if s.Date == "" || s.Time == "" {
		return dErrors.New(dErrors.CodeValidation, "slot date and time are required")
	}
	if s.Capacity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "slot capacity must be positive")
	}
	if s.Booked < 0 || s.Booked > s.Capacity {
		return dErrors.New(dErrors.CodeValidation, "slot bookings must be between 0 and capacity")
	}
	return nil
}

// SlotView is a slot as offered to applicants.
type SlotView struct {
	Slot
	Label     string `json:"label"`
	Remaining int    `json:"remaining"`
	Full      bool   `json:"full"`
}

// Day groups the slots sharing a date label.
type Day struct {
	Date  string     `json:"date"`
	Slots []SlotView `json:"slots"`
}

// GroupByDate groups slots by date in order of first appearance.
func GroupByDate(slots []Slot) []Day {
	days := []Day{}
	index := make(map[string]int)
	for _, s := range slots {
		i, ok := index[s.Date]
		if !ok {
			i = len(days)
			index[s.Date] = i
			days = append(days, Day{Date: s.Date})
		}
		days[i].Slots = append(days[i].Slots, SlotView{
			Slot:      s,
			Label:     s.Label(),
			Remaining: s.Remaining(),
			Full:      s.IsFull(),
		})
	}
	return days
}

// SeedSlots is the calendar used until an admin replaces it.
func SeedSlots() []Slot {
	return []Slot{
		{ID: "1", Date: "Monday, June 12", Time: "09:00 AM", Capacity: 20, Booked: 5},
		{ID: "2", Date: "Monday, June 12", Time: "11:00 AM", Capacity: 20, Booked: 12},
		{ID: "3", Date: "Tuesday, June 13", Time: "09:00 AM", Capacity: 20, Booked: 2},
	}
}
