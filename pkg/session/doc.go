/*
Package session persists the bearer token pair of the signed-in user.

A session is two opaque strings: a short-lived access token sent on every
API request, and a longer-lived refresh token used to obtain a new access
token when the backend answers 401. Absence of both means logged out.

# Storage

BoltStore keeps the tokens in a bbolt database at <data-dir>/carebook.db,
bucket "session", under the fixed keys "access_token" and "refresh_token".
The session therefore survives process restarts, the same way a browser
keeps local storage across page reloads:

	store, err := session.NewBoltStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(tokens.Access, tokens.Refresh); err != nil {
		return err
	}

The file is created 0600 in a 0700 directory. Opening it while another
carebook process holds it fails after one second instead of blocking.

MemoryStore is the in-process equivalent used by tests and ephemeral runs.

# Writers

Only three flows write the store: login saves both tokens, a successful
refresh replaces the access token with SetAccess, and logout or a failed
refresh calls Clear. Everything else reads.

# Inspecting Tokens

Inspect decodes a JWT payload without verifying its signature so the CLI
can show who a token belongs to and when it expires. It is never used to
decide whether a request may be sent.
*/
package session
