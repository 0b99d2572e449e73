package appointments

import (
	"slices"

	"github.com/cuemby/carebook/pkg/types"
)

// transitions is the legal status graph. Statuses without an entry are terminal.
var transitions = map[types.AppointmentStatus][]types.AppointmentStatus{
	types.StatusPending:   {types.StatusConfirmed, types.StatusRejected},
	types.StatusConfirmed: {types.StatusCompleted, types.StatusCancelled},
}

// Transitions returns the statuses reachable from from
func Transitions(from types.AppointmentStatus) []types.AppointmentStatus {
	return slices.Clone(transitions[from])
}

// CanTransition reports whether from may move to to
func CanTransition(from, to types.AppointmentStatus) bool {
	return slices.Contains(transitions[from], to)
}

// IsTerminal reports whether no transition leaves s
func IsTerminal(s types.AppointmentStatus) bool {
	return len(transitions[s]) == 0
}

// Action is a status change offered to a provider
type Action struct {
	Label  string
	Target types.AppointmentStatus
}

// ProviderActions returns the buttons a provider sees for an appointment in
// status s. Cancelling is not among them; see CanCancel.
func ProviderActions(s types.AppointmentStatus) []Action {
	switch s {
	case types.StatusPending:
		return []Action{
			{Label: "Confirm", Target: types.StatusConfirmed},
			{Label: "Reject", Target: types.StatusRejected},
		}
	case types.StatusConfirmed:
		return []Action{
			{Label: "Mark Done", Target: types.StatusCompleted},
		}
	}
	return nil
}

// IsProviderAction reports whether target is offered to a provider from s
func IsProviderAction(s, target types.AppointmentStatus) bool {
	for _, a := range ProviderActions(s) {
		if a.Target == target {
			return true
		}
	}
	return false
}

// CanCancel reports whether an appointment in status s may be cancelled
func CanCancel(s types.AppointmentStatus) bool {
	return s == types.StatusConfirmed
}
