package interview

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

// Calendar is the YAML layout of a slot import file:
//
//	slots:
//	  - date: "Monday, June 12"
//	    time: "09:00 AM"
//	    capacity: 20
type Calendar struct {
	Slots []Slot `yaml:"slots"`
}

// DecodeCalendar reads a YAML slot calendar. Missing capacities default to
// DefaultCapacity.
func DecodeCalendar(r io.Reader) ([]Slot, error) {
	var cal Calendar
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cal); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("invalid slot calendar: %v", err))
	}
	if len(cal.Slots) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "slot calendar is empty")
	}
	for i := range cal.Slots {
		if cal.Slots[i].Capacity == 0 {
			cal.Slots[i].Capacity = DefaultCapacity
		}
	}
	return cal.Slots, nil
}
