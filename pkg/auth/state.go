package auth

import (
	"github.com/cuemby/carebook/pkg/nav"
	"github.com/cuemby/carebook/pkg/types"
)

// State is where the auth context is in its lifecycle
type State int

const (
	// StateResolving means the stored session has not been checked yet
	StateResolving State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "resolving"
	}
}

// Snapshot is an immutable view of the auth context.
// User is non-nil exactly when State is StateAuthenticated.
type Snapshot struct {
	State State
	User  *types.User
}

// Role returns the signed-in user's role, or "" when not authenticated
func (s Snapshot) Role() types.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

type transitionKind int

const (
	profileLoaded transitionKind = iota
	noSession
	profileFailed
	loggedOut
	sessionExpired
)

type transition struct {
	kind transitionKind
	user *types.User
}

// reduce applies t to s. It has no side effects.
func reduce(s Snapshot, t transition) Snapshot {
	switch t.kind {
	case profileLoaded:
		if t.user == nil {
			return Snapshot{State: StateAnonymous}
		}
		return Snapshot{State: StateAuthenticated, User: t.user}
	case noSession, profileFailed, loggedOut, sessionExpired:
		return Snapshot{State: StateAnonymous}
	}
	return s
}

// Guard decides what a view at route should do for snapshot s.
// Public routes always render. Protected routes wait while the session is
// resolving, send anonymous users to login, and send a signed-in user who is
// outside the route's audience to their own dashboard.
func Guard(s Snapshot, route nav.Route) nav.Decision {
	scope := route.Scope()
	if scope == nav.ScopePublic {
		return nav.Decision{Kind: nav.Allow}
	}

	switch s.State {
	case StateResolving:
		return nav.Decision{Kind: nav.Wait}
	case StateAnonymous:
		return nav.Decision{Kind: nav.Redirect, To: nav.RouteLogin}
	}

	role := s.Role()
	switch {
	case scope == nav.ScopeProvider && role == types.RoleClient:
		return nav.Decision{Kind: nav.Redirect, To: nav.RouteClientDashboard}
	case scope == nav.ScopeClient && role == types.RoleProvider:
		return nav.Decision{Kind: nav.Redirect, To: nav.RouteProviderDashboard}
	case scope == nav.ScopeAdmin && role != types.RoleAdmin:
		return nav.Decision{Kind: nav.Redirect, To: nav.LandingRoute(role)}
	}
	return nav.Decision{Kind: nav.Allow}
}
