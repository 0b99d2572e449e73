package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/carebook/pkg/events"
	"github.com/cuemby/carebook/pkg/gateway"
	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/metrics"
	"github.com/cuemby/carebook/pkg/nav"
	"github.com/cuemby/carebook/pkg/notify"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/rs/zerolog"
)

// Messages shown to the user
const (
	MsgLoginRequired   = "Please login to book an appointment"
	MsgClientsOnly     = "Only patients can book appointments. Sign in with a patient account to continue."
	MsgIncomplete      = "Please select a service, date, and time"
	MsgPastDate        = "Please select a date from today onwards"
	MsgUnknownService  = "Please select one of this provider's services"
	MsgBooked          = "Appointment booked successfully!"
	bookingFailedLabel = "Booking failed: "
)

var (
	ErrLoginRequired = errors.New("login required to book")
	ErrClientsOnly   = errors.New("only clients can book appointments")
	ErrNotOpen       = errors.New("booking flow is not open")
	ErrPastDate      = errors.New("date is in the past")
	ErrNotOffered    = errors.New("service is not offered by this provider")
)

// API is the part of the backend client the booking flow needs
type API interface {
	Services(ctx context.Context, providerID int64) ([]*types.Service, error)
	CreateAppointment(ctx context.Context, in *types.NewAppointment) (*types.Appointment, error)
}

// Identity reports who is signed in; *auth.Context satisfies it
type Identity interface {
	User() *types.User
}

// Option configures a Flow
type Option func(*Flow)

// WithClock replaces time.Now for the past-date check
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.now = now
	}
}

// Flow is the booking dialog for one provider at a time. Open loads the
// provider's active services; the form is filled with the Select methods and
// sent with Submit.
type Flow struct {
	api      API
	identity Identity
	notifier notify.Notifier
	broker   *events.Broker
	now      func() time.Time
	logger   zerolog.Logger

	mu       sync.Mutex
	open     bool
	provider int64
	services []*types.Service
	form     Form
}

// NewFlow creates a closed booking flow. notifier and broker may be nil.
func NewFlow(api API, identity Identity, notifier notify.Notifier, broker *events.Broker, opts ...Option) *Flow {
	if notifier == nil {
		notifier = notify.Discard
	}
	f := &Flow{
		api:      api,
		identity: identity,
		notifier: notifier,
		broker:   broker,
		now:      time.Now,
		logger:   log.WithComponent("booking"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open starts booking with providerID. Anonymous users are sent to login and
// non-clients are refused; neither issues a request.
func (f *Flow) Open(ctx context.Context, providerID int64) error {
	if err := f.guard(); err != nil {
		return err
	}

	all, err := f.api.Services(ctx, providerID)
	if err != nil {
		notify.Error(f.notifier, "Failed to load services: %s", gateway.Detail(err))
		return err
	}

	// The backend may return every provider's services
	offered := make([]*types.Service, 0, len(all))
	for _, s := range all {
		if s.Provider == providerID && s.IsActive {
			offered = append(offered, s)
		}
	}

	f.mu.Lock()
	f.open = true
	f.provider = providerID
	f.services = offered
	f.form = Form{}
	f.mu.Unlock()

	f.logger.Debug().Int64("provider_id", providerID).Int("services", len(offered)).Msg("booking opened")
	return nil
}

// IsOpen reports whether the flow is between Open and Close
func (f *Flow) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Provider returns the provider being booked
func (f *Flow) Provider() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.provider
}

// Services returns the provider's bookable services
func (f *Flow) Services() []*types.Service {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.services
}

// TimeSlots returns the candidate start times
func (f *Flow) TimeSlots() []string {
	return TimeSlots
}

// SelectService sets the service field, as the id the service picker emits
func (f *Flow) SelectService(id string) {
	f.mu.Lock()
	f.form.Service = id
	f.mu.Unlock()
}

// SelectDate sets the date field (YYYY-MM-DD)
func (f *Flow) SelectDate(date string) {
	f.mu.Lock()
	f.form.Date = date
	f.mu.Unlock()
}

// SelectTime sets the time slot field
func (f *Flow) SelectTime(slot string) {
	f.mu.Lock()
	f.form.TimeSlot = slot
	f.mu.Unlock()
}

// Form returns the current form contents
func (f *Flow) Form() Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Close dismisses the flow and clears the form
func (f *Flow) Close() {
	f.mu.Lock()
	f.open = false
	f.form = Form{}
	f.mu.Unlock()
}

// Submit validates the form and creates the appointment. On success the
// flow closes and the form is cleared; on failure the form is kept so the
// user can retry.
func (f *Flow) Submit(ctx context.Context) (*types.Appointment, error) {
	if err := f.guard(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	open, form, services := f.open, f.form, f.services
	f.mu.Unlock()
	if !open {
		return nil, ErrNotOpen
	}

	req, err := BuildRequest(form)
	if err != nil {
		metrics.BookingsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		if errors.Is(err, ErrIncomplete) {
			notify.Error(f.notifier, MsgIncomplete)
		} else {
			notify.Error(f.notifier, "%s", err.Error())
		}
		return nil, err
	}

	if req.Date < f.now().Format(time.DateOnly) {
		metrics.BookingsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		notify.Error(f.notifier, MsgPastDate)
		return nil, fmt.Errorf("%w: %s", ErrPastDate, req.Date)
	}

	if !offers(services, req.Service) {
		metrics.BookingsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		notify.Error(f.notifier, MsgUnknownService)
		return nil, fmt.Errorf("%w: %d", ErrNotOffered, req.Service)
	}

	appt, err := f.api.CreateAppointment(ctx, req)
	if err != nil {
		metrics.BookingsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		notify.Error(f.notifier, "%s", bookingFailedLabel+gateway.Detail(err))
		f.logger.Warn().Err(err).Int64("service_id", req.Service).Msg("booking failed")
		return nil, err
	}

	metrics.BookingsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	notify.Success(f.notifier, MsgBooked)
	logger := log.WithAppointmentID(appt.ID)
	logger.Info().
		Int64("service_id", req.Service).
		Str("date", req.Date).
		Str("time_slot", req.TimeSlot).
		Msg("appointment booked")

	if f.broker != nil {
		f.broker.Publish(events.New(events.EventAppointmentBooked, "appointment booked", map[string]string{
			events.MetaAppointmentID: strconv.FormatInt(appt.ID, 10),
			events.MetaServiceID:     strconv.FormatInt(req.Service, 10),
			events.MetaStatus:        string(appt.Status),
		}))
	}

	f.Close()
	return appt, nil
}

func (f *Flow) guard() error {
	user := f.identity.User()
	if user == nil {
		notify.Error(f.notifier, MsgLoginRequired)
		if f.broker != nil {
			f.broker.Publish(events.New(events.EventLoginRequired, MsgLoginRequired, map[string]string{
				events.MetaRoute: string(nav.RouteLogin),
			}))
		}
		return ErrLoginRequired
	}
	if user.Role != types.RoleClient {
		notify.Error(f.notifier, MsgClientsOnly)
		return ErrClientsOnly
	}
	return nil
}

func offers(services []*types.Service, id int64) bool {
	for _, s := range services {
		if s.ID == id {
			return true
		}
	}
	return false
}
