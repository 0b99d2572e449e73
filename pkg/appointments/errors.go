package appointments

import "errors"

var (
	ErrProviderOnly       = errors.New("only providers can change appointment status")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrUnknownAppointment = errors.New("appointment not found")
	ErrCannotCancel       = errors.New("only confirmed appointments can be cancelled")
	ErrNotParticipant     = errors.New("only the client or provider can cancel an appointment")

	// ErrReloadFailed means the status change was saved but the list is stale
	ErrReloadFailed = errors.New("appointment updated but the list could not be reloaded")
)
