// Package notify delivers short, transient messages to the user, such as
// "Appointment confirmed" or "Failed to update status". They report the
// outcome of an action and are never the only record of an error: the
// action still returns it.
package notify
