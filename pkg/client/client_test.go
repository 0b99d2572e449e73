package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/cuemby/carebook/pkg/apitest"
	"github.com/cuemby/carebook/pkg/gateway"
	"github.com/cuemby/carebook/pkg/session"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, api *apitest.Server) (*Client, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	gw, err := gateway.New(api.URL(), store)
	require.NoError(t, err)
	return NewClient(gw), store
}

func TestLogin(t *testing.T) {
	api := apitest.New(t)
	api.AddUser(types.User{Email: "jane@example.com", Role: types.RoleClient}, "secret1")
	c, store := newClient(t, api)

	tokens, err := c.Login(context.Background(), "jane@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Access)
	assert.NotEmpty(t, tokens.Refresh)

	// Login only returns tokens, storing them is the caller's decision
	_, ok := store.Access()
	assert.False(t, ok)

	_, err = c.Login(context.Background(), "jane@example.com", "nope")
	require.Error(t, err)
	assert.Equal(t, apitest.DetailBadCredentials, gateway.Detail(err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	api := apitest.New(t)
	c, _ := newClient(t, api)

	reg := &types.Registration{
		Email: "new@example.com", Password: "secret1", Role: types.RoleProvider,
		FirstName: "Ann", LastName: "Lee",
	}
	user, err := c.Register(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, types.RoleProvider, user.Role)
	assert.NotZero(t, user.ID)

	_, err = c.Register(context.Background(), reg)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, gateway.StatusCode(err))
	assert.Equal(t, "email: user with this email already exists.", gateway.Detail(err))
}

func TestMeRequiresSession(t *testing.T) {
	api := apitest.New(t)
	u := api.AddUser(types.User{Email: "jane@example.com", Role: types.RoleClient, FirstName: "Jane"}, "x")
	c, store := newClient(t, api)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, gateway.IsUnauthorized(err))

	tokens := api.IssueTokens(u.ID)
	require.NoError(t, store.Save(tokens.Access, tokens.Refresh))

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)
	assert.Equal(t, "Jane", me.FirstName)
}

// TestExpiredSessionIsRefreshedTransparently tests the client sees no 401 when the refresh works
func TestExpiredSessionIsRefreshedTransparently(t *testing.T) {
	api := apitest.New(t)
	u := api.AddUser(types.User{Email: "jane@example.com", Role: types.RoleClient}, "x")
	c, store := newClient(t, api)

	tokens := api.IssueTokens(u.ID)
	require.NoError(t, store.Save(api.ExpiredAccess(u.ID), tokens.Refresh))

	list, err := c.Appointments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1, api.Calls("POST /auth/refresh/"))
	assert.Equal(t, 2, api.Calls("GET /appointments/"))
}

func TestExpiredSessionWithFailedRefresh(t *testing.T) {
	api := apitest.New(t)
	u := api.AddUser(types.User{Email: "jane@example.com", Role: types.RoleClient}, "x")
	api.FailRefresh(true)
	c, store := newClient(t, api)

	tokens := api.IssueTokens(u.ID)
	require.NoError(t, store.Save(api.ExpiredAccess(u.ID), tokens.Refresh))

	_, err := c.Appointments(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrSessionExpired))

	_, ok := store.Refresh()
	assert.False(t, ok)
}

func TestServicesCRUD(t *testing.T) {
	api := apitest.New(t)
	doc := api.AddUser(types.User{Email: "doc@example.com", Role: types.RoleProvider}, "x")
	other := api.AddUser(types.User{Email: "other@example.com", Role: types.RoleProvider}, "x")
	api.AddService(types.Service{Provider: other.ID, Name: "Other", Duration: 15, IsActive: true})

	c, store := newClient(t, api)
	tokens := api.IssueTokens(doc.ID)
	require.NoError(t, store.Save(tokens.Access, tokens.Refresh))
	ctx := context.Background()

	created, err := c.CreateService(ctx, &types.ServiceInput{
		Name: "Consultation", Duration: 30, Price: decimal.RequireFromString("49.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, created.Provider)
	assert.True(t, created.IsActive)
	assert.True(t, decimal.RequireFromString("49.99").Equal(created.Price))

	mine, err := c.Services(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Consultation", mine[0].Name)
	assert.Equal(t, "provider="+jsonNumber(doc.ID), api.LastQuery("GET /services/"))

	all, err := c.Services(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inactive := false
	updated, err := c.UpdateService(ctx, created.ID, &types.ServicePatch{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	var patch map[string]interface{}
	require.NoError(t, json.Unmarshal(api.LastBody("PATCH /services/{id}/"), &patch))
	assert.Equal(t, map[string]interface{}{"is_active": false}, patch)

	require.NoError(t, c.DeleteService(ctx, created.ID))
	_, found := api.Service(created.ID)
	assert.False(t, found)
}

func TestCreateServiceForbiddenForClients(t *testing.T) {
	api := apitest.New(t)
	patient := api.AddUser(types.User{Email: "p@example.com", Role: types.RoleClient}, "x")
	c, store := newClient(t, api)
	tokens := api.IssueTokens(patient.ID)
	require.NoError(t, store.Save(tokens.Access, tokens.Refresh))

	_, err := c.CreateService(context.Background(), &types.ServiceInput{Name: "x", Duration: 10})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, gateway.StatusCode(err))
}

func TestAppointmentsCreateAndUpdate(t *testing.T) {
	api := apitest.New(t)
	doc := api.AddUser(types.User{Email: "doc@example.com", Role: types.RoleProvider, LastName: "House"}, "x")
	patient := api.AddUser(types.User{Email: "p@example.com", Role: types.RoleClient}, "x")
	svc := api.AddService(types.Service{Provider: doc.ID, Name: "Checkup", Duration: 30, IsActive: true})
	ctx := context.Background()

	pc, pstore := newClient(t, api)
	ptokens := api.IssueTokens(patient.ID)
	require.NoError(t, pstore.Save(ptokens.Access, ptokens.Refresh))

	appt, err := pc.CreateAppointment(ctx, &types.NewAppointment{Service: svc.ID, Date: "2025-06-01", TimeSlot: "10:00:00"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, appt.Status)
	assert.Equal(t, doc.ID, appt.Provider)
	assert.Equal(t, patient.ID, appt.Client)
	require.NotNil(t, appt.ServiceDetails)
	assert.Equal(t, "Checkup", appt.ServiceDetails.Name)

	dc, dstore := newClient(t, api)
	dtokens := api.IssueTokens(doc.ID)
	require.NoError(t, dstore.Save(dtokens.Access, dtokens.Refresh))

	updated, err := dc.UpdateAppointmentStatus(ctx, appt.ID, types.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, updated.Status)
	assert.JSONEq(t, `{"status":"CONFIRMED"}`, string(api.LastBody("PATCH /appointments/{id}/")))

	list, err := dc.Appointments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, types.StatusConfirmed, list[0].Status)
}

func TestChat(t *testing.T) {
	api := apitest.New(t)
	api.AddUser(types.User{
		Email: "doc@example.com", Role: types.RoleProvider, LastName: "Heart",
		ProviderProfile: &types.ProviderProfile{Specialization: "Cardiology"},
	}, "x")
	c, _ := newClient(t, api)

	reply, err := c.Chat(context.Background(), "I need a cardiologist")
	require.NoError(t, err)
	require.Len(t, reply.Doctors, 1)
	assert.Equal(t, "Dr. Heart", reply.Doctors[0].Name)
	assert.Contains(t, reply.Message, "Cardiology")
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
