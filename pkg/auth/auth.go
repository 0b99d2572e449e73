package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cuemby/carebook/pkg/events"
	"github.com/cuemby/carebook/pkg/gateway"
	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/nav"
	"github.com/cuemby/carebook/pkg/session"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/rs/zerolog"
)

// API is the part of the backend client the auth context needs
type API interface {
	Login(ctx context.Context, email, password string) (*types.Tokens, error)
	Register(ctx context.Context, reg *types.Registration) (*types.User, error)
	Me(ctx context.Context) (*types.User, error)
}

// Context owns the identity of the current user. It starts resolving,
// settles into authenticated or anonymous, and publishes every change to the
// broker; it never navigates itself.
type Context struct {
	api    API
	store  session.Store
	broker *events.Broker
	logger zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewContext creates a context in the resolving state. broker may be nil.
func NewContext(api API, store session.Store, broker *events.Broker) *Context {
	return &Context{
		api:    api,
		store:  store,
		broker: broker,
		logger: log.WithComponent("auth"),
		snap:   Snapshot{State: StateResolving},
	}
}

// Snapshot returns the current state and user
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// State returns the current lifecycle state
func (c *Context) State() State {
	return c.Snapshot().State
}

// User returns the signed-in user, or nil
func (c *Context) User() *types.User {
	return c.Snapshot().User
}

// Guard evaluates route against the current snapshot
func (c *Context) Guard(route nav.Route) nav.Decision {
	return Guard(c.Snapshot(), route)
}

// Init resolves the stored session. With an access token it fetches the
// profile; if that fails the stored tokens are discarded. It never navigates.
func (c *Context) Init(ctx context.Context) error {
	if _, ok := c.store.Access(); !ok {
		c.apply(transition{kind: noSession})
		c.publish(events.EventSessionAnonymous, "no stored session", nil)
		return nil
	}

	user, err := c.api.Me(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Msg("stored session rejected")
		if cerr := c.store.Clear(); cerr != nil {
			return fmt.Errorf("failed to clear session: %w", cerr)
		}
		c.apply(transition{kind: profileFailed})
		c.publish(events.EventSessionAnonymous, "stored session rejected", nil)
		return nil
	}

	c.apply(transition{kind: profileLoaded, user: user})
	c.publish(events.EventSessionAuthenticated, "session restored", userMeta(user))
	return nil
}

// Login stores tokens, fetches the profile and lands the user on their role's
// dashboard. If the profile cannot be fetched the context logs out, unless
// the gateway already expired the session.
func (c *Context) Login(ctx context.Context, tokens *types.Tokens) error {
	if err := c.store.Save(tokens.Access, tokens.Refresh); err != nil {
		return err
	}

	user, err := c.api.Me(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrSessionExpired) {
			// The gateway already cleared the store and ran Expire
			c.apply(transition{kind: sessionExpired})
			return fmt.Errorf("login: %w", err)
		}
		if lerr := c.Logout(); lerr != nil {
			c.logger.Error().Err(lerr).Msg("failed to clear session after login failure")
		}
		return fmt.Errorf("login: %w", err)
	}

	c.apply(transition{kind: profileLoaded, user: user})

	meta := userMeta(user)
	meta[events.MetaRoute] = string(nav.LandingRoute(user.Role))
	c.publish(events.EventSessionAuthenticated, "signed in", meta)

	logger := log.WithUserID(user.ID)
	logger.Info().Str("role", string(user.Role)).Msg("signed in")
	return nil
}

// SignIn exchanges credentials for tokens and logs in with them
func (c *Context) SignIn(ctx context.Context, email, password string) error {
	tokens, err := c.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return c.Login(ctx, tokens)
}

// Logout clears the session and sends the user to login. It is valid in any state.
func (c *Context) Logout() error {
	err := c.store.Clear()
	c.apply(transition{kind: loggedOut})
	c.publish(events.EventSessionLoggedOut, "signed out", map[string]string{
		events.MetaRoute: string(nav.RouteLogin),
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Expire records that the gateway cleared the session after a failed
// refresh. Register it with gateway.OnSessionExpired.
func (c *Context) Expire() {
	c.apply(transition{kind: sessionExpired})
	c.publish(events.EventSessionExpired, "session expired", map[string]string{
		events.MetaRoute: string(nav.RouteLogin),
	})
	c.logger.Info().Msg("session expired, signed out")
}

func (c *Context) apply(t transition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = reduce(c.snap, t)
}

func (c *Context) publish(typ events.EventType, message string, meta map[string]string) {
	if c.broker == nil {
		return
	}
	c.broker.Publish(events.New(typ, message, meta))
}

func userMeta(u *types.User) map[string]string {
	return map[string]string{
		events.MetaUserID: strconv.FormatInt(u.ID, 10),
		events.MetaRole:   string(u.Role),
	}
}
