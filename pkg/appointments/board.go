package appointments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cuemby/carebook/pkg/events"
	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/metrics"
	"github.com/cuemby/carebook/pkg/notify"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/rs/zerolog"
)

// UpdateFailedMessage is shown when the backend refused a status change
const UpdateFailedMessage = "Failed to update status"

// ReloadFailedMessage is shown when a saved change could not be followed by a reload
const ReloadFailedMessage = "Failed to refresh appointments"

// API is the part of the backend client a Board needs
type API interface {
	Appointments(ctx context.Context) ([]*types.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status types.AppointmentStatus) (*types.Appointment, error)
}

// Board is the appointment dashboard of one signed-in user. The list is
// whatever the backend last returned; a status change is never applied
// locally, the whole list is fetched again instead.
type Board struct {
	api      API
	viewer   *types.User
	notifier notify.Notifier
	broker   *events.Broker
	logger   zerolog.Logger

	mu     sync.RWMutex
	list   []*types.Appointment
	filter Filter
	loaded bool
}

// NewBoard creates a board for viewer. notifier and broker may be nil.
func NewBoard(api API, viewer *types.User, notifier notify.Notifier, broker *events.Broker) *Board {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Board{
		api:      api,
		viewer:   viewer,
		notifier: notifier,
		broker:   broker,
		logger:   log.WithComponent("appointments"),
		filter:   FilterAll,
	}
}

// Load fetches the viewer's appointments, replacing the current list
func (b *Board) Load(ctx context.Context) error {
	list, err := b.api.Appointments(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.list = list
	b.loaded = true
	b.mu.Unlock()

	b.logger.Debug().Int("count", len(list)).Msg("appointments loaded")
	return nil
}

// Loaded reports whether Load has succeeded at least once
func (b *Board) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// SetFilter changes the active filter tag
func (b *Board) SetFilter(f Filter) {
	if f == "" {
		f = FilterAll
	}
	b.mu.Lock()
	b.filter = f
	b.mu.Unlock()
}

// Filter returns the active filter tag
func (b *Board) Filter() Filter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

// All returns every loaded appointment
func (b *Board) All() []*types.Appointment {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.list
}

// Visible returns the loaded appointments under the active filter
func (b *Board) Visible() []*types.Appointment {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return FilterBy(b.list, b.filter)
}

// Counts returns the filter bar counts for the loaded list
func (b *Board) Counts() map[Filter]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Counts(b.list)
}

// Find returns the loaded appointment with id
func (b *Board) Find(id int64) (*types.Appointment, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.list {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Transition moves appointment id to target on behalf of its provider.
// target must be one of ProviderActions for the appointment's last known
// status. On success the list is reloaded.
func (b *Board) Transition(ctx context.Context, id int64, target types.AppointmentStatus) error {
	if b.viewer == nil || b.viewer.Role != types.RoleProvider {
		return ErrProviderOnly
	}

	appt, ok := b.Find(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAppointment, id)
	}
	if !IsProviderAction(appt.Status, target) {
		metrics.AppointmentTransitionsTotal.WithLabelValues(string(target), metrics.ResultInvalid).Inc()
		return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, appt.Status, target)
	}

	return b.update(ctx, appt, target)
}

// Cancel cancels a confirmed appointment. Either participant may cancel.
func (b *Board) Cancel(ctx context.Context, id int64) error {
	appt, ok := b.Find(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAppointment, id)
	}
	if b.viewer == nil || (appt.Client != b.viewer.ID && appt.Provider != b.viewer.ID) {
		return ErrNotParticipant
	}
	if !CanCancel(appt.Status) {
		metrics.AppointmentTransitionsTotal.WithLabelValues(string(types.StatusCancelled), metrics.ResultInvalid).Inc()
		return fmt.Errorf("%w: appointment %d is %s", ErrCannotCancel, id, appt.Status)
	}

	return b.update(ctx, appt, types.StatusCancelled)
}

func (b *Board) update(ctx context.Context, appt *types.Appointment, target types.AppointmentStatus) error {
	logger := log.WithAppointmentID(appt.ID)

	if _, err := b.api.UpdateAppointmentStatus(ctx, appt.ID, target); err != nil {
		metrics.AppointmentTransitionsTotal.WithLabelValues(string(target), metrics.ResultFailure).Inc()
		notify.Error(b.notifier, UpdateFailedMessage)
		logger.Warn().Err(err).Str("target", string(target)).Msg("status update failed")
		return fmt.Errorf("failed to update appointment %d: %w", appt.ID, err)
	}

	metrics.AppointmentTransitionsTotal.WithLabelValues(string(target), metrics.ResultSuccess).Inc()
	notify.Success(b.notifier, "Appointment %s", strings.ToLower(string(target)))
	logger.Info().Str("from", string(appt.Status)).Str("to", string(target)).Msg("appointment status changed")

	if b.broker != nil {
		b.broker.Publish(events.New(events.EventAppointmentUpdated, "appointment "+strings.ToLower(string(target)), map[string]string{
			events.MetaAppointmentID: strconv.FormatInt(appt.ID, 10),
			events.MetaStatus:        string(target),
		}))
	}

	if err := b.Load(ctx); err != nil {
		notify.Error(b.notifier, ReloadFailedMessage)
		logger.Warn().Err(err).Msg("reload after status change failed")
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}
