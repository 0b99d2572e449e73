package main

import (
	"bytes"
	"sync"
	"testing"

	"github.com/cuemby/carebook/pkg/apitest"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by both the command and the navigation goroutine
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// execute runs the root command against api, keeping the session in dataDir
func execute(t *testing.T, api *apitest.Server, dataDir string, args ...string) (string, error) {
	t.Helper()
	out := &lockedBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(append([]string{
		"--api-url", api.URL(),
		"--data-dir", dataDir,
		"--config", "",
		"--log-level", "error",
	}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPatientBooksAppointment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	api := apitest.New(t)
	doc := api.AddUser(types.User{Email: "doc@example.com", FirstName: "Amy", LastName: "Chen", Role: types.RoleProvider}, "secret1")
	api.AddUser(types.User{Email: "pat@example.com", FirstName: "Pat", LastName: "Lee", Role: types.RoleClient}, "secret1")
	svc := api.AddService(types.Service{Provider: doc.ID, Name: "Checkup", Duration: 30, Price: decimal.RequireFromString("50"), IsActive: true})
	dir := t.TempDir()

	out, err := execute(t, api, dir, "login", "--email", "pat@example.com", "--password", "secret1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Signed in as pat@example.com (Patient)")
	assert.Contains(t, out, "→ next: carebook providers")

	out, err = execute(t, api, dir, "whoami")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Pat Lee")

	out, err = execute(t, api, dir, "book",
		"--provider", itoa(doc.ID), "--service", itoa(svc.ID), "--date", "2099-06-01", "--time", "10:00")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Appointment booked successfully!")
	assert.Equal(t, 1, api.AppointmentCount())

	out, err = execute(t, api, dir, "appointments", "list", "--status", "pending")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Checkup")
	assert.Contains(t, out, "2099-06-01")

	out, err = execute(t, api, dir, "logout")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Signed out")

	_, err = execute(t, api, dir, "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestProviderConfirmsAppointment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	api := apitest.New(t)
	doc := api.AddUser(types.User{Email: "doc@example.com", Role: types.RoleProvider}, "secret1")
	pat := api.AddUser(types.User{Email: "pat@example.com", Role: types.RoleClient}, "secret1")
	svc := api.AddService(types.Service{Provider: doc.ID, Name: "Checkup", Duration: 30, IsActive: true})
	appt := api.AddAppointment(types.Appointment{Client: pat.ID, Service: svc.ID, Date: "2099-01-01", TimeSlot: "09:00:00"})
	dir := t.TempDir()

	_, err := execute(t, api, dir, "login", "--email", "doc@example.com", "--password", "secret1")
	require.NoError(t, err)

	out, err := execute(t, api, dir, "appointments", "confirm", itoa(appt.ID))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Appointment confirmed")

	stored, _ := api.Appointment(appt.ID)
	assert.Equal(t, types.StatusConfirmed, stored.Status)

	// Providers cannot book
	_, err = execute(t, api, dir, "book", "--provider", itoa(doc.ID), "--service", itoa(svc.ID), "--date", "2099-01-02", "--time", "09:00")
	assert.Error(t, err)
	assert.Equal(t, 1, api.AppointmentCount())
}

func TestSlots(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"slots"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 13, bytes.Count(out.Bytes(), []byte("\n")))
}
