package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/metrics"
	"github.com/cuemby/carebook/pkg/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// RefreshPath is the token refresh endpoint, relative to the base URL
	RefreshPath = "/auth/refresh/"

	// RequestIDHeader carries a per-request id for correlating client and server logs
	RequestIDHeader = "X-Request-ID"

	maxBodySize = 10 << 20
	tracerName  = "carebook/gateway"
	refreshKey  = "refresh"
)

// Request is a backend call relative to the gateway base URL
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{} // JSON-encoded when non-nil
}

// Response is a 2xx backend reply
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into out. An empty body decodes to nothing.
func (r *Response) Decode(out interface{}) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Option configures a Gateway
type Option func(*Gateway)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.http = c
	}
}

// WithTimeout bounds every request; zero keeps the transport default
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRateLimit paces outgoing requests; rps of zero disables pacing
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(g *Gateway) {
		g.userAgent = ua
	}
}

// Gateway sends authenticated requests to the backend. It attaches the
// stored access token, refreshes it once on 401 and replays the request,
// and clears the session when the refresh itself fails.
type Gateway struct {
	base      string
	store     session.Store
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	userAgent string
	tracer    trace.Tracer
	logger    zerolog.Logger

	flight singleflight.Group

	mu    sync.RWMutex
	hooks []func()
}

// New creates a gateway for the API rooted at baseURL (e.g. http://localhost:8000/api)
func New(baseURL string, store session.Store, opts ...Option) (*Gateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	g := &Gateway{
		base:      strings.TrimRight(baseURL, "/"),
		store:     store,
		http:      http.DefaultClient,
		userAgent: "carebook",
		tracer:    otel.Tracer(tracerName),
		logger:    log.WithComponent("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.timeout > 0 {
		c := *g.http
		c.Timeout = g.timeout
		g.http = &c
	}
	return g, nil
}

// BaseURL returns the API root the gateway was created with
func (g *Gateway) BaseURL() string {
	return g.base
}

// Store returns the session store the gateway reads tokens from
func (g *Gateway) Store() session.Store {
	return g.store
}

// OnSessionExpired registers fn to run after a failed refresh has cleared
// the session. Hooks run once per failed refresh, on the refreshing goroutine.
func (g *Gateway) OnSessionExpired(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = append(g.hooks, fn)
}

// Do sends req with the stored access token.
//
// A 401 on the first attempt triggers one refresh shared by all concurrent
// callers, then a single replay with the new token whose result is returned
// as is. Without a stored refresh token the original 401 is returned and the
// session is left alone. When the refresh fails the session is cleared, the
// expiry hooks fire and the original 401 is returned wrapped in
// ErrSessionExpired.
func (g *Gateway) Do(ctx context.Context, req *Request) (*Response, error) {
	token, _ := g.store.Access()

	resp, err := g.send(ctx, req, token)
	if err == nil || !IsUnauthorized(err) {
		return resp, err
	}

	fresh, rerr := g.refresh(ctx, token)
	switch {
	case rerr == nil:
	case errors.Is(rerr, errNoRefreshToken):
		return nil, err
	case errors.Is(rerr, ErrSessionExpired):
		return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
	default:
		return nil, rerr
	}

	g.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Msg("replaying request with refreshed token")

	return g.send(ctx, req, fresh)
}

// JSON sends a request with body and decodes the reply into out; either may be nil
func (g *Gateway) JSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := g.Do(ctx, &Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// refresh returns a usable access token after a 401 seen with stale.
// Concurrent callers share one refresh request.
func (g *Gateway) refresh(ctx context.Context, stale string) (string, error) {
	// Someone else already refreshed since our request went out
	if current, ok := g.store.Access(); ok && current != stale {
		return current, nil
	}

	// The refresh outlives any single caller: others may be waiting on it
	flightCtx := context.WithoutCancel(ctx)
	ch := g.flight.DoChan(refreshKey, func() (interface{}, error) {
		if current, ok := g.store.Access(); ok && current != stale {
			return current, nil
		}
		return g.doRefresh(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type refreshReply struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (g *Gateway) doRefresh(ctx context.Context) (string, error) {
	refreshToken, ok := g.store.Refresh()
	if !ok {
		return "", errNoRefreshToken
	}

	resp, err := g.send(ctx, &Request{
		Method: http.MethodPost,
		Path:   RefreshPath,
		Body:   map[string]string{"refresh": refreshToken},
	}, "")

	var reply refreshReply
	if err == nil {
		err = resp.Decode(&reply)
	}
	if err == nil && reply.Access == "" {
		err = fmt.Errorf("refresh response has no access token")
	}
	if err == nil {
		if reply.Refresh != "" && reply.Refresh != refreshToken {
			err = g.store.Save(reply.Access, reply.Refresh)
		} else {
			err = g.store.SetAccess(reply.Access)
		}
	}

	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		g.expire(err)
		return "", ErrSessionExpired
	}

	metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	g.logger.Debug().Msg("access token refreshed")
	return reply.Access, nil
}

// expire clears the session and runs the expiry hooks
func (g *Gateway) expire(cause error) {
	g.logger.Warn().Err(cause).Msg("token refresh failed, clearing session")

	if err := g.store.Clear(); err != nil {
		g.logger.Error().Err(err).Msg("failed to clear session")
	}
	metrics.ForcedLogoutsTotal.Inc()

	g.mu.RLock()
	hooks := make([]func(), len(g.hooks))
	copy(hooks, g.hooks)
	g.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

// send performs one HTTP exchange. token may be empty for an unauthenticated call.
func (g *Gateway) send(ctx context.Context, req *Request, token string) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	target := g.base + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	ctx, span := g.tracer.Start(ctx, req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.Bool("carebook.authenticated", token != ""),
		),
	)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.New().String()
	httpReq.Header.Set(RequestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	timer := metrics.NewTimer()
	httpResp, err := g.http.Do(httpReq)
	timer.ObserveDurationVec(metrics.APIRequestDuration, req.Method)

	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(req.Method, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		g.logger.Debug().
			Err(err).
			Str("request_id", requestID).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("api request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	metrics.APIRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(httpResp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))

	g.logger.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Dur("duration", timer.Duration()).
		Msg("api request")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(httpResp.StatusCode))
		return nil, &APIError{
			Method: req.Method,
			Path:   req.Path,
			Status: httpResp.StatusCode,
			Body:   data,
			Detail: parseDetail(data),
		}
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   data,
	}, nil
}
