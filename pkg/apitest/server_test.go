package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cuemby/carebook/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestLoginAndMe(t *testing.T) {
	api := New(t)
	api.AddUser(types.User{Email: "jane@example.com", Role: types.RoleClient}, "secret1")

	resp, body := do(t, http.MethodPost, api.URL()+"/auth/login/", "", map[string]string{
		"email": "jane@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, DetailBadCredentials, body["detail"])

	resp, body = do(t, http.MethodPost, api.URL()+"/auth/login/", "", map[string]string{
		"email": "jane@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access := body["access"].(string)

	resp, body = do(t, http.MethodGet, api.URL()+"/auth/me/", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jane@example.com", body["email"])
	assert.Equal(t, 2, api.Calls("POST /auth/login/"))
}

func TestExpiredAccessIsRejected(t *testing.T) {
	api := New(t)
	u := api.AddUser(types.User{Email: "jane@example.com", Role: types.RoleClient}, "x")

	resp, body := do(t, http.MethodGet, api.URL()+"/auth/me/", api.ExpiredAccess(u.ID), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, DetailTokenInvalid, body["detail"])

	// A refresh token is not an access token
	tokens := api.IssueTokens(u.ID)
	resp, _ = do(t, http.MethodGet, api.URL()+"/auth/me/", tokens.Refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAppointmentsScopedByRole(t *testing.T) {
	api := New(t)
	doc := api.AddUser(types.User{Email: "doc@example.com", Role: types.RoleProvider}, "x")
	other := api.AddUser(types.User{Email: "other@example.com", Role: types.RoleProvider}, "x")
	patient := api.AddUser(types.User{Email: "p@example.com", Role: types.RoleClient}, "x")

	svc := api.AddService(types.Service{Provider: doc.ID, Name: "Checkup", Duration: 30, IsActive: true})
	api.AddAppointment(types.Appointment{Client: patient.ID, Service: svc.ID, Date: "2025-06-01", TimeSlot: "10:00:00"})

	count := func(userID int64) int {
		req, _ := http.NewRequest(http.MethodGet, api.URL()+"/appointments/", nil)
		req.Header.Set("Authorization", "Bearer "+api.IssueTokens(userID).Access)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var list []types.Appointment
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		return len(list)
	}

	assert.Equal(t, 1, count(doc.ID))
	assert.Equal(t, 0, count(other.ID))
	assert.Equal(t, 1, count(patient.ID))
}

func TestFailNextAppliesOnce(t *testing.T) {
	api := New(t)
	api.FailNext("GET /services/", http.StatusServiceUnavailable, "maintenance")

	resp, body := do(t, http.MethodGet, api.URL()+"/services/", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "maintenance", body["detail"])

	resp, _ = do(t, http.MethodGet, api.URL()+"/services/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
