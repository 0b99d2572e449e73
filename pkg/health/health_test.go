package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/carebook/pkg/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendCheckerAgainstFakeBackend(t *testing.T) {
	api := apitest.New(t)

	checker, err := NewBackendChecker(api.URL() + "/")
	require.NoError(t, err)
	assert.Equal(t, api.URL()+DefaultProbePath, checker.URL)

	result := checker.Check(context.Background())
	assert.True(t, result.Healthy, result.Message)
	assert.Equal(t, 1, api.Calls("GET /services/"))
}

func TestNewBackendCheckerRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "://nope"} {
		_, err := NewBackendChecker(raw)
		assert.Error(t, err, raw)
	}
}

func TestBackendAddress(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://localhost:8000/api", "localhost:8000"},
		{"https://book.example.com/api", "book.example.com:443"},
		{"http://book.example.com/api", "book.example.com:80"},
		{"http://[::1]:9000/api", "[::1]:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := BackendAddress(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := BackendAddress("/api")
	assert.Error(t, err)
}

func TestTCPChecker(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	addr, err := BackendAddress(srv.URL)
	require.NoError(t, err)

	checker := NewTCPChecker(addr)
	assert.Equal(t, CheckTypeTCP, checker.Type())
	assert.True(t, checker.Check(context.Background()).Healthy)

	// A listener that is closed refuses connections
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closed := ln.Addr().String()
	require.NoError(t, ln.Close())

	result := NewTCPChecker(closed).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "connection failed")
}

func TestStatusUpdate(t *testing.T) {
	cfg := Config{Retries: 2}
	s := NewStatus()
	require.True(t, s.Healthy)

	s.Update(Result{Healthy: false}, cfg)
	assert.True(t, s.Healthy, "one failure is tolerated")
	assert.Equal(t, 1, s.ConsecutiveFailures)

	s.Update(Result{Healthy: false}, cfg)
	assert.False(t, s.Healthy)

	s.Update(Result{Healthy: true}, cfg)
	assert.True(t, s.Healthy)
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.Equal(t, 1, s.ConsecutiveSuccesses)
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr, err := BackendAddress(srv.URL)
	require.NoError(t, err)

	results := Run(context.Background(), NewTCPChecker(addr), NewHTTPChecker(srv.URL))
	require.Len(t, results, 2)
	assert.True(t, results[0].Healthy)
	assert.True(t, results[1].Healthy)
}

func TestWatch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := Config{Interval: 10 * time.Millisecond, Timeout: time.Second, Retries: 2}
	var seen []bool
	Watch(ctx, NewHTTPChecker(srv.URL), cfg, func(r Result, s *Status) {
		seen = append(seen, s.Healthy)
		if len(seen) == 3 {
			cancel()
		}
	})

	assert.Equal(t, []bool{true, true, false}, seen)
}
