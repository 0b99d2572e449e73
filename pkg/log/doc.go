/*
Package log provides structured logging for carebook using zerolog.

The package keeps a single global zerolog.Logger that every other package
derives component loggers from. It discards output until Init is called, so
library users that never configure logging see nothing, and the CLI decides
the level and format from its configuration.

# Configuration

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
		Output:     os.Stderr,
	})

Console output is the default and is meant for humans at a terminal. JSON
output is one object per line, suitable for piping into a log collector.
Logs go to stderr by default because stdout carries command output.

# Component Loggers

	gwLog := log.WithComponent("gateway")
	gwLog.Debug().
		Str("method", "GET").
		Str("path", "/appointments/").
		Int("status", 200).
		Msg("api request")

Context helpers add the identifiers most log lines are keyed on:

  - WithComponent: component name (gateway, auth, booking, ...)
  - WithUserID: id of the signed-in account
  - WithAppointmentID: appointment being transitioned
  - WithRequestID: X-Request-ID attached to an outbound API call

# What Is Never Logged

Bearer tokens, refresh tokens and passwords are never written to logs.
Request logging records method, path, status and duration only.
*/
package log
