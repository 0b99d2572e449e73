/*
Package appointments holds the appointment lifecycle rules and the dashboard
view model built on them.

# Lifecycle

	PENDING ──▶ CONFIRMED ──▶ COMPLETED
	   │            │
	   ▼            ▼
	REJECTED    CANCELLED

COMPLETED, REJECTED and CANCELLED are terminal. A provider is offered
Confirm and Reject on a pending appointment and Mark Done on a confirmed
one. Cancelling is a separate operation open to either participant and only
from CONFIRMED.

The backend is the authority on who may change what; these rules decide
which changes the client offers and sends.

# Board

A Board holds the signed-in user's appointments as last returned by
GET /appointments/. Visible applies the active Filter, Counts feeds the
filter bar. Transition and Cancel send a PATCH, then fetch the list again
rather than editing it in place. Outcomes are reported through a
notify.Notifier ("Appointment confirmed", "Failed to update status").
*/
package appointments
