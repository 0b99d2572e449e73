// Package auth holds the identity of the current user.
//
// A Context starts out resolving. Init checks the stored session and settles
// into authenticated (profile fetched) or anonymous (no tokens, or the
// backend rejected them). Login, Logout and Expire move between the two
// settled states; every move is computed by a pure reducer and then
// published on the events broker. The Context never navigates. Login
// publishes the role's landing route and logout or expiry publishes
// /login; a nav.Router turns those into navigation.
//
// Guard is the route guard as a pure function of a Snapshot, so views and
// tests can ask "what should happen at this route" without a running
// context.
package auth
