/*
Package events provides an in-memory event broker for carebook.

State changes in the core (a login, a forced logout, a booked or confirmed
appointment) are published as events. Side effects such as navigation and
user-facing messages subscribe to the broker instead of being triggered from
inside the state-changing code, which keeps the core testable on its own.

# Architecture

	┌──────────────┐  Publish   ┌──────────────┐  broadcast  ┌──────────────┐
	│ auth.Context │───────────▶│              │────────────▶│  nav.Router  │
	│ booking.Flow │            │    Broker    │             └──────────────┘
	│ appointments │            │  (buffer 100)│────────────▶ other
	│ catalog      │            └──────────────┘             subscribers
	└──────────────┘                                         (buffer 50 each)

Publish is non-blocking for the caller as long as the broker buffer has room.
A subscriber whose buffer is full misses the event rather than stalling the
others.

# Event Types

Session:
  - session.authenticated: profile fetched after login, carries the landing route
  - session.anonymous: startup found no usable session
  - session.logged_out: explicit logout, carries route /login
  - session.expired: refresh failed and the session was cleared, carries /login

Accounts and booking:
  - account.registered: registration succeeded, carries /login
  - booking.login_required: anonymous user tried to book, carries /login
  - appointment.booked, appointment.updated, service.changed

Navigation targets travel in Metadata["route"]; Event.Route reads them.

# Lifecycle

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Stop delivers every event that was already published, then closes all
subscriber channels, so a subscriber ranging over its channel finishes
cleanly. The CLI relies on this to perform the final navigation of a command
before exiting.
*/
package events
