package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/cuemby/carebook/pkg/apitest"
	"github.com/cuemby/carebook/pkg/client"
	"github.com/cuemby/carebook/pkg/events"
	"github.com/cuemby/carebook/pkg/gateway"
	"github.com/cuemby/carebook/pkg/nav"
	"github.com/cuemby/carebook/pkg/session"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI returns a fixed profile and counts calls
type fakeAPI struct {
	user     *types.User
	meErr    error
	tokens   *types.Tokens
	loginErr error
	meCalls  atomic.Int32
	lastReg  *types.Registration
}

func (f *fakeAPI) Me(ctx context.Context) (*types.User, error) {
	f.meCalls.Add(1)
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.user, nil
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*types.Tokens, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.tokens, nil
}

func (f *fakeAPI) Register(ctx context.Context, reg *types.Registration) (*types.User, error) {
	f.lastReg = reg
	return &types.User{ID: 99, Email: reg.Email, Role: reg.Role}, nil
}

type harness struct {
	ctx     *Context
	store   *session.MemoryStore
	broker  *events.Broker
	router  *nav.Router
	history *nav.History
}

func newHarness(t *testing.T, api API) *harness {
	t.Helper()
	h := &harness{
		store:   session.NewMemoryStore(),
		broker:  events.NewBroker(),
		history: &nav.History{},
	}
	h.router = nav.NewRouter(h.broker, h.history)
	h.broker.Start()
	h.router.Start()
	h.ctx = NewContext(api, h.store, h.broker)
	t.Cleanup(h.broker.Stop)
	return h
}

// routes stops event delivery and returns every navigation performed
func (h *harness) routes() []nav.Route {
	h.broker.Stop()
	h.router.Wait()
	return h.history.Routes()
}

func TestInitialStateIsResolving(t *testing.T) {
	h := newHarness(t, &fakeAPI{})
	assert.Equal(t, StateResolving, h.ctx.State())
	assert.Nil(t, h.ctx.User())
}

func TestInitWithoutSession(t *testing.T) {
	api := &fakeAPI{}
	h := newHarness(t, api)

	require.NoError(t, h.ctx.Init(context.Background()))
	assert.Equal(t, StateAnonymous, h.ctx.State())
	assert.Zero(t, api.meCalls.Load())
	assert.Empty(t, h.routes())
}

func TestInitRestoresSession(t *testing.T) {
	api := &fakeAPI{user: &types.User{ID: 1, Role: types.RoleProvider}}
	h := newHarness(t, api)
	require.NoError(t, h.store.Save("A", "B"))

	require.NoError(t, h.ctx.Init(context.Background()))
	assert.Equal(t, StateAuthenticated, h.ctx.State())
	assert.Equal(t, int64(1), h.ctx.User().ID)
	// Restoring a session does not move the user
	assert.Empty(t, h.routes())
}

func TestInitWithRejectedSessionClearsTokens(t *testing.T) {
	api := &fakeAPI{meErr: errors.New("401")}
	h := newHarness(t, api)
	require.NoError(t, h.store.Save("A", "B"))

	require.NoError(t, h.ctx.Init(context.Background()))
	assert.Equal(t, StateAnonymous, h.ctx.State())
	_, ok := h.store.Access()
	assert.False(t, ok)
	_, ok = h.store.Refresh()
	assert.False(t, ok)
}

// TestLoginLandsOnRoleRoute tests login persistence, state and landing navigation per role
func TestLoginLandsOnRoleRoute(t *testing.T) {
	tests := []struct {
		role types.Role
		want nav.Route
	}{
		{types.RoleAdmin, nav.RouteAdmin},
		{types.RoleProvider, nav.RouteProviderDashboard},
		{types.RoleClient, nav.RouteClientDashboard},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			api := &fakeAPI{user: &types.User{ID: 5, Role: tt.role}}
			h := newHarness(t, api)

			require.NoError(t, h.ctx.Login(context.Background(), &types.Tokens{Access: "A", Refresh: "B"}))

			snap := h.ctx.Snapshot()
			assert.Equal(t, StateAuthenticated, snap.State)
			assert.Equal(t, tt.role, snap.Role())

			access, _ := h.store.Access()
			refresh, _ := h.store.Refresh()
			assert.Equal(t, "A", access)
			assert.Equal(t, "B", refresh)

			assert.Equal(t, []nav.Route{tt.want}, h.routes())
		})
	}
}

func TestLoginWithFailedProfileLogsOut(t *testing.T) {
	api := &fakeAPI{meErr: errors.New("boom")}
	h := newHarness(t, api)

	err := h.ctx.Login(context.Background(), &types.Tokens{Access: "A", Refresh: "B"})
	require.Error(t, err)
	assert.Equal(t, StateAnonymous, h.ctx.State())

	_, ok := h.store.Access()
	assert.False(t, ok)
	assert.Equal(t, []nav.Route{nav.RouteLogin}, h.routes())
}

// TestLogoutFromAnyState tests that logout always clears tokens and ends anonymous
func TestLogoutFromAnyState(t *testing.T) {
	setups := map[string]func(h *harness){
		"resolving": func(h *harness) {},
		"anonymous": func(h *harness) {
			require.NoError(t, h.ctx.Init(context.Background()))
		},
		"authenticated": func(h *harness) {
			require.NoError(t, h.ctx.Login(context.Background(), &types.Tokens{Access: "A", Refresh: "B"}))
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, &fakeAPI{user: &types.User{ID: 1, Role: types.RoleClient}})
			setup(h)
			require.NoError(t, h.store.Save("A", "B"))

			require.NoError(t, h.ctx.Logout())

			assert.Equal(t, StateAnonymous, h.ctx.State())
			assert.Nil(t, h.ctx.User())
			_, ok := h.store.Access()
			assert.False(t, ok)
			_, ok = h.store.Refresh()
			assert.False(t, ok)

			last := h.routes()
			require.NotEmpty(t, last)
			assert.Equal(t, nav.RouteLogin, last[len(last)-1])
		})
	}
}

func TestSignIn(t *testing.T) {
	api := &fakeAPI{
		user:   &types.User{ID: 3, Role: types.RoleClient},
		tokens: &types.Tokens{Access: "A", Refresh: "B"},
	}
	h := newHarness(t, api)

	require.NoError(t, h.ctx.SignIn(context.Background(), "jane@example.com", "secret1"))
	assert.Equal(t, StateAuthenticated, h.ctx.State())

	api.loginErr = errors.New("bad credentials")
	h2 := newHarness(t, api)
	assert.Error(t, h2.ctx.SignIn(context.Background(), "jane@example.com", "nope"))
	assert.Equal(t, StateResolving, h2.ctx.State())
}

// TestGatewayExpiryMovesContextToAnonymous tests the forced logout wiring end to end
func TestGatewayExpiryMovesContextToAnonymous(t *testing.T) {
	api := apitest.New(t)
	u := api.AddUser(types.User{Email: "doc@example.com", Role: types.RoleProvider}, "secret1")

	store := session.NewMemoryStore()
	gw, err := gateway.New(api.URL(), store)
	require.NoError(t, err)
	c := client.NewClient(gw)

	broker := events.NewBroker()
	history := &nav.History{}
	router := nav.NewRouter(broker, history)
	broker.Start()
	router.Start()

	authCtx := NewContext(c, store, broker)
	gw.OnSessionExpired(authCtx.Expire)

	require.NoError(t, authCtx.SignIn(context.Background(), "doc@example.com", "secret1"))
	require.Equal(t, StateAuthenticated, authCtx.State())

	// Access token expires and the refresh token is refused
	tokens := api.IssueTokens(u.ID)
	require.NoError(t, store.Save(api.ExpiredAccess(u.ID), tokens.Refresh))
	api.FailRefresh(true)

	_, err = c.Appointments(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrSessionExpired)
	assert.Equal(t, StateAnonymous, authCtx.State())

	broker.Stop()
	router.Wait()
	assert.Equal(t, []nav.Route{nav.RouteProviderDashboard, nav.RouteLogin}, history.Routes())
}

// TestLoginWithExpiredSessionNavigatesOnce tests that a login whose profile
// fetch ends in a forced logout sends the user to login a single time
func TestLoginWithExpiredSessionNavigatesOnce(t *testing.T) {
	api := apitest.New(t)
	u := api.AddUser(types.User{Email: "pat@example.com", Role: types.RoleClient}, "secret1")

	store := session.NewMemoryStore()
	gw, err := gateway.New(api.URL(), store)
	require.NoError(t, err)
	c := client.NewClient(gw)

	broker := events.NewBroker()
	history := &nav.History{}
	router := nav.NewRouter(broker, history)
	broker.Start()
	router.Start()

	authCtx := NewContext(c, store, broker)
	gw.OnSessionExpired(authCtx.Expire)

	api.FailRefresh(true)
	tokens := api.IssueTokens(u.ID)
	err = authCtx.Login(context.Background(), &types.Tokens{Access: api.ExpiredAccess(u.ID), Refresh: tokens.Refresh})
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrSessionExpired)
	assert.Equal(t, StateAnonymous, authCtx.State())

	_, ok := store.Refresh()
	assert.False(t, ok)

	broker.Stop()
	router.Wait()
	assert.Equal(t, []nav.Route{nav.RouteLogin}, history.Routes())
}
