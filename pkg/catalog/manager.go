package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cuemby/carebook/pkg/events"
	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/metrics"
	"github.com/cuemby/carebook/pkg/notify"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/cuemby/carebook/pkg/validate"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrProviderOnly   = errors.New("only providers can manage services")
	ErrUnknownService = errors.New("service not found")
)

// Operations recorded in metrics and events
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpEnable  = "enable"
	OpDisable = "disable"
	OpDelete  = "delete"
)

// ServiceAPI is the part of the backend client a Manager needs
type ServiceAPI interface {
	Services(ctx context.Context, providerID int64) ([]*types.Service, error)
	CreateService(ctx context.Context, in *types.ServiceInput) (*types.Service, error)
	UpdateService(ctx context.Context, id int64, patch *types.ServicePatch) (*types.Service, error)
	DeleteService(ctx context.Context, id int64) error
}

// ServiceForm is the new-service form
type ServiceForm struct {
	Name        string          `json:"name" yaml:"name" validate:"required,max=255"`
	Description string          `json:"description" yaml:"description"`
	Duration    int             `json:"duration" yaml:"duration" validate:"gt=0"`
	Price       decimal.Decimal `json:"price" yaml:"price" validate:"gte=0"`
}

// Validate checks the form as it will be sent; it returns nil or validate.Errors
func (f *ServiceForm) Validate() error {
	trimmed := f.trimmed()
	return validate.Struct(&trimmed)
}

// Input converts the form to the creation payload
func (f *ServiceForm) Input() *types.ServiceInput {
	trimmed := f.trimmed()
	return &types.ServiceInput{
		Name:        trimmed.Name,
		Description: trimmed.Description,
		Duration:    trimmed.Duration,
		Price:       trimmed.Price,
	}
}

func (f *ServiceForm) trimmed() ServiceForm {
	out := *f
	out.Name = strings.TrimSpace(out.Name)
	out.Description = strings.TrimSpace(out.Description)
	return out
}

// Manager is a provider's own service list
type Manager struct {
	api      ServiceAPI
	viewer   *types.User
	notifier notify.Notifier
	broker   *events.Broker
	logger   zerolog.Logger

	mu       sync.RWMutex
	services []*types.Service
}

// NewManager creates a manager for viewer. notifier and broker may be nil.
func NewManager(api ServiceAPI, viewer *types.User, notifier notify.Notifier, broker *events.Broker) *Manager {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Manager{
		api:      api,
		viewer:   viewer,
		notifier: notifier,
		broker:   broker,
		logger:   log.WithComponent("catalog"),
	}
}

// Load fetches the viewer's services
func (m *Manager) Load(ctx context.Context) error {
	if err := m.guard(); err != nil {
		return err
	}

	all, err := m.api.Services(ctx, m.viewer.ID)
	if err != nil {
		return err
	}

	own := make([]*types.Service, 0, len(all))
	for _, s := range all {
		if s.Provider == m.viewer.ID {
			own = append(own, s)
		}
	}

	m.mu.Lock()
	m.services = own
	m.mu.Unlock()
	return nil
}

// List returns the loaded services
func (m *Manager) List() []*types.Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.services
}

// Find returns the loaded service with id
func (m *Manager) Find(id int64) (*types.Service, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.services {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// FindByName returns the loaded service named name, ignoring case
func (m *Manager) FindByName(name string) (*types.Service, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.services {
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return s, true
		}
	}
	return nil, false
}

// Create validates form and creates a service
func (m *Manager) Create(ctx context.Context, form *ServiceForm) (*types.Service, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		metrics.ServiceChangesTotal.WithLabelValues(OpCreate, metrics.ResultInvalid).Inc()
		return nil, err
	}

	svc, err := m.api.CreateService(ctx, form.Input())
	if err != nil {
		m.failed(OpCreate, "Failed to create service", err)
		return nil, err
	}

	m.succeeded(OpCreate, svc.ID, "Service created")
	return svc, m.reload(ctx)
}

// Apply creates the service described by form, or updates the viewer's
// service with the same name. It reports whether a service was created.
func (m *Manager) Apply(ctx context.Context, form *ServiceForm) (bool, error) {
	if err := m.guard(); err != nil {
		return false, err
	}
	if err := form.Validate(); err != nil {
		return false, err
	}

	existing, ok := m.FindByName(form.Name)
	if !ok {
		_, err := m.Create(ctx, form)
		return err == nil, err
	}

	in := form.Input()
	patch := &types.ServicePatch{
		Description: &in.Description,
		Duration:    &in.Duration,
		Price:       &in.Price,
	}
	if _, err := m.api.UpdateService(ctx, existing.ID, patch); err != nil {
		m.failed(OpUpdate, "Failed to update service", err)
		return false, err
	}

	m.succeeded(OpUpdate, existing.ID, "Service updated")
	return false, m.reload(ctx)
}

// SetActive enables or disables a service for booking
func (m *Manager) SetActive(ctx context.Context, id int64, active bool) error {
	if err := m.guard(); err != nil {
		return err
	}
	if _, ok := m.Find(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownService, id)
	}

	op, done := OpDisable, "Service disabled"
	if active {
		op, done = OpEnable, "Service enabled"
	}

	if _, err := m.api.UpdateService(ctx, id, &types.ServicePatch{IsActive: &active}); err != nil {
		m.failed(op, "Failed to update service", err)
		return err
	}

	m.succeeded(op, id, done)
	return m.reload(ctx)
}

// Delete removes a service
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := m.guard(); err != nil {
		return err
	}
	if _, ok := m.Find(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownService, id)
	}

	if err := m.api.DeleteService(ctx, id); err != nil {
		m.failed(OpDelete, "Failed to delete service", err)
		return err
	}

	m.succeeded(OpDelete, id, "Service deleted")
	return m.reload(ctx)
}

func (m *Manager) guard() error {
	if m.viewer == nil || m.viewer.Role != types.RoleProvider {
		return ErrProviderOnly
	}
	return nil
}

func (m *Manager) reload(ctx context.Context) error {
	if err := m.Load(ctx); err != nil {
		return fmt.Errorf("failed to reload services: %w", err)
	}
	return nil
}

func (m *Manager) failed(op, message string, err error) {
	metrics.ServiceChangesTotal.WithLabelValues(op, metrics.ResultFailure).Inc()
	notify.Error(m.notifier, "%s", message)
	m.logger.Warn().Err(err).Str("operation", op).Msg("service change failed")
}

func (m *Manager) succeeded(op string, id int64, message string) {
	metrics.ServiceChangesTotal.WithLabelValues(op, metrics.ResultSuccess).Inc()
	notify.Success(m.notifier, "%s", message)
	m.logger.Info().Str("operation", op).Int64("service_id", id).Msg("service changed")

	if m.broker != nil {
		m.broker.Publish(events.New(events.EventServiceChanged, message, map[string]string{
			events.MetaServiceID: strconv.FormatInt(id, 10),
			events.MetaOperation: op,
		}))
	}
}
