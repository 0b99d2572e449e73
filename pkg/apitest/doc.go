// Package apitest runs an in-process fake of the booking backend for tests.
//
// The fake serves the same routes, status codes and error bodies as the
// production API, issues real HS256 JWT access and refresh tokens, and scopes
// appointment lists by role. Tests seed it with AddUser, AddService and
// AddAppointment, then inspect traffic with Calls and LastBody:
//
//	api := apitest.New(t)
//	patient := api.AddUser(types.User{Email: "p@example.com", Role: types.RoleClient}, "secret1")
//	tokens := api.IssueTokens(patient.ID)
//
// Routes are named without the /api prefix, e.g. "POST /appointments/" or
// "PATCH /appointments/{id}/".
package apitest
