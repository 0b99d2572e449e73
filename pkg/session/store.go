package session

import "time"

const (
	// AccessTokenKey and RefreshTokenKey are the fixed keys the tokens are persisted under
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Store defines the interface for session token storage.
// There is at most one session per store. An empty token is treated as absent.
type Store interface {
	// Save stores both tokens, overwriting any previous session
	Save(access, refresh string) error

	// Access returns the stored access token
	Access() (string, bool)

	// Refresh returns the stored refresh token
	Refresh() (string, bool)

	// SetAccess replaces only the access token; used after a refresh
	SetAccess(access string) error

	// Clear removes both tokens
	Clear() error

	// SavedAt reports when the session was last written
	SavedAt() (time.Time, bool)

	// Close releases the underlying storage
	Close() error
}
