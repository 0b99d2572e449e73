package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/carebook/pkg/types"
)

var (
	ErrIncomplete     = errors.New("service, date and time are required")
	ErrInvalidService = errors.New("invalid service")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidSlot    = errors.New("time is not one of the offered slots")
)

// Form is the booking form as entered: a service id, a YYYY-MM-DD date and
// a time slot from TimeSlots
type Form struct {
	Service  string
	Date     string
	TimeSlot string
}

// Complete reports whether all three fields are filled in
func (f Form) Complete() bool {
	return strings.TrimSpace(f.Service) != "" &&
		strings.TrimSpace(f.Date) != "" &&
		strings.TrimSpace(f.TimeSlot) != ""
}

// BuildRequest converts a form to the appointment creation payload.
// Service "3", date "2025-06-01" and time "10:00" give
// {service: 3, date: "2025-06-01", time_slot: "10:00:00"}.
func BuildRequest(f Form) (*types.NewAppointment, error) {
	if !f.Complete() {
		return nil, ErrIncomplete
	}

	service, err := strconv.ParseInt(strings.TrimSpace(f.Service), 10, 64)
	if err != nil || service <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidService, f.Service)
	}

	date, err := time.Parse(time.DateOnly, strings.TrimSpace(f.Date))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, f.Date)
	}

	slot, ok := normalizeSlot(f.TimeSlot)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, f.TimeSlot)
	}

	return &types.NewAppointment{
		Service:  service,
		Date:     date.Format(time.DateOnly),
		TimeSlot: slot + ":00",
	}, nil
}
