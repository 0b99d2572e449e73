/*
Package gateway is the single path by which carebook talks to the booking
backend.

Every request goes through Gateway.Do, which reads the current access token
from the session store, attaches it as a bearer credential and sends the
request. Callers never handle tokens themselves.

# Refresh Contract

	          ┌──────────────┐
	request ─▶│ send(access) │── 2xx ──────────────▶ response
	          └──────┬───────┘── other error ──────▶ *APIError
	                 │ 401 (first attempt)
	                 ▼
	       refresh token stored? ── no ────────────▶ original 401
	                 │ yes
	                 ▼
	     ┌─────────────────────────┐
	     │ POST /auth/refresh/     │  one flight shared by
	     │ {refresh}               │  every concurrent caller
	     └──────┬─────────┬────────┘
	            │ ok      │ failed
	            ▼         ▼
	   SetAccess(new)   Clear(), hooks ─────▶ ErrSessionExpired
	            │                               wrapping original 401
	            ▼
	   send(new access) ── any result ──────▶ returned as is

A replayed request is never refreshed again, so a second 401 surfaces as a
plain *APIError. A refresh that fails for any reason (refused, malformed,
unreachable) ends the session: both tokens are removed and the hooks
registered with OnSessionExpired run once. The gateway itself never decides
where the user goes next; the auth context subscribes to that hook.

Concurrent 401s collapse into a single refresh via golang.org/x/sync
singleflight. The refresh runs detached from any one caller's context, so a
caller that gives up does not abort the refresh others are waiting on.

# Errors

	resp, err := gw.Do(ctx, &gateway.Request{Method: "GET", Path: "/appointments/"})
	switch {
	case errors.Is(err, gateway.ErrSessionExpired):
		// signed out, go to login
	case gateway.IsUnauthorized(err):
		// 401 that could not be refreshed
	case err != nil:
		fmt.Println("Booking failed:", gateway.Detail(err))
	}

Detail extracts the backend's "detail" message, or the first field error of
a validation response, falling back to "Unknown error".

# Instrumentation

Each exchange gets an X-Request-ID header, a client span from the global
OpenTelemetry tracer with the propagator's headers injected, a debug log
line, and request count and latency metrics. Tokens are never logged.
WithRateLimit paces requests with golang.org/x/time/rate.
*/
package gateway
