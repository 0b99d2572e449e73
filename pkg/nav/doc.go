// Package nav defines carebook's routes and the navigation effect layer.
//
// Routes are grouped into scopes by path prefix: /dashboard/client for
// clients, /dashboard/provider for providers, /admin for administrators.
// LandingRoute maps a role to where it lands after login.
//
// Code that changes state never navigates directly. It publishes an event
// carrying Metadata["route"], and a Router subscribed to the broker performs
// the navigation through a Navigator. The CLI's Navigator prints a hint for
// the next command; tests use History.
package nav
