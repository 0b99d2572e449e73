// Package booking implements the client's appointment booking dialog.
//
// A Flow is opened for one provider, loads that provider's active services,
// collects a service, a date and one of the fixed TimeSlots, and submits
// POST /appointments/. Only a signed-in client may book: an anonymous user
// is sent to /login and a provider or admin is refused, in both cases
// without any request reaching the backend.
//
// TimeSlots is a static list of candidate start times. It is not
// availability; the backend decides whether a booking is accepted.
package booking
