package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cuemby/carebook/pkg/gateway"
	"github.com/cuemby/carebook/pkg/types"
)

// Client wraps the gateway with one typed method per backend endpoint
type Client struct {
	gw *gateway.Gateway
}

// NewClient creates a client that sends every request through gw
func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Gateway returns the underlying gateway
func (c *Client) Gateway() *gateway.Gateway {
	return c.gw
}

// Auth operations

// Login exchanges credentials for a token pair. It does not store them.
func (c *Client) Login(ctx context.Context, email, password string) (*types.Tokens, error) {
	var tokens types.Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.gw.JSON(ctx, http.MethodPost, "/auth/login/", body, &tokens); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		return nil, fmt.Errorf("login: response is missing tokens")
	}
	return &tokens, nil
}

// Register creates a new account
func (c *Client) Register(ctx context.Context, reg *types.Registration) (*types.User, error) {
	var user types.User
	if err := c.gw.JSON(ctx, http.MethodPost, "/auth/register/", reg, &user); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &user, nil
}

// Me fetches the profile of the user the access token belongs to
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.gw.JSON(ctx, http.MethodGet, "/auth/me/", nil, &user); err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return &user, nil
}

// Providers lists provider accounts with their profiles
func (c *Client) Providers(ctx context.Context) ([]*types.User, error) {
	var users []*types.User
	if err := c.gw.JSON(ctx, http.MethodGet, "/auth/providers/", nil, &users); err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return users, nil
}

// Service operations

// Services lists services, restricted to one provider when providerID is non-zero
func (c *Client) Services(ctx context.Context, providerID int64) ([]*types.Service, error) {
	req := &gateway.Request{Method: http.MethodGet, Path: "/services/"}
	if providerID != 0 {
		req.Query = url.Values{"provider": {strconv.FormatInt(providerID, 10)}}
	}

	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	var services []*types.Service
	if err := resp.Decode(&services); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

func (c *Client) CreateService(ctx context.Context, in *types.ServiceInput) (*types.Service, error) {
	var service types.Service
	if err := c.gw.JSON(ctx, http.MethodPost, "/services/", in, &service); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return &service, nil
}

func (c *Client) UpdateService(ctx context.Context, id int64, patch *types.ServicePatch) (*types.Service, error) {
	var service types.Service
	if err := c.gw.JSON(ctx, http.MethodPatch, servicePath(id), patch, &service); err != nil {
		return nil, fmt.Errorf("update service %d: %w", id, err)
	}
	return &service, nil
}

func (c *Client) DeleteService(ctx context.Context, id int64) error {
	if err := c.gw.JSON(ctx, http.MethodDelete, servicePath(id), nil, nil); err != nil {
		return fmt.Errorf("delete service %d: %w", id, err)
	}
	return nil
}

// Appointment operations

// Appointments lists the appointments visible to the caller. The backend
// scopes the list: providers see bookings for them, everyone else their own.
func (c *Client) Appointments(ctx context.Context) ([]*types.Appointment, error) {
	var appointments []*types.Appointment
	if err := c.gw.JSON(ctx, http.MethodGet, "/appointments/", nil, &appointments); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

func (c *Client) CreateAppointment(ctx context.Context, in *types.NewAppointment) (*types.Appointment, error) {
	var appointment types.Appointment
	if err := c.gw.JSON(ctx, http.MethodPost, "/appointments/", in, &appointment); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &appointment, nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int64, status types.AppointmentStatus) (*types.Appointment, error) {
	var appointment types.Appointment
	body := &types.StatusUpdate{Status: status}
	if err := c.gw.JSON(ctx, http.MethodPatch, appointmentPath(id), body, &appointment); err != nil {
		return nil, fmt.Errorf("update appointment %d: %w", id, err)
	}
	return &appointment, nil
}

// Assistant operations

func (c *Client) Chat(ctx context.Context, message string) (*types.ChatReply, error) {
	var reply types.ChatReply
	body := map[string]string{"message": message}
	if err := c.gw.JSON(ctx, http.MethodPost, "/chatbot/chat/", body, &reply); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return &reply, nil
}

func servicePath(id int64) string {
	return "/services/" + strconv.FormatInt(id, 10) + "/"
}

func appointmentPath(id int64) string {
	return "/appointments/" + strconv.FormatInt(id, 10) + "/"
}
