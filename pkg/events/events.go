package events

import (
	"sync"
	"time"

	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/metrics"
	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventSessionAuthenticated EventType = "session.authenticated"
	EventSessionAnonymous     EventType = "session.anonymous"
	EventSessionLoggedOut     EventType = "session.logged_out"
	EventSessionExpired       EventType = "session.expired"
	EventAccountRegistered    EventType = "account.registered"
	EventLoginRequired        EventType = "booking.login_required"
	EventAppointmentBooked    EventType = "appointment.booked"
	EventAppointmentUpdated   EventType = "appointment.updated"
	EventServiceChanged       EventType = "service.changed"
)

// Metadata keys
const (
	MetaRoute         = "route"
	MetaRole          = "role"
	MetaUserID        = "user_id"
	MetaAppointmentID = "appointment_id"
	MetaServiceID     = "service_id"
	MetaStatus        = "status"
	MetaOperation     = "operation"
)

// Event represents something that happened in the client
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// New creates an event with a fresh id
func New(typ EventType, message string, metadata map[string]string) *Event {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now(),
		Message:   message,
		Metadata:  metadata,
	}
}

// Route returns the navigation target carried by the event, if any
func (e *Event) Route() (string, bool) {
	r, ok := e.Metadata[MetaRoute]
	return r, ok && r != ""
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	doneCh      chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
	started     bool
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	b.startOnce.Do(func() {
		b.mu.Lock()
		b.started = true
		b.mu.Unlock()
		go b.run()
	})
}

// Stop delivers events already published, closes every subscriber channel
// and returns once distribution has ended
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})

	b.mu.RLock()
	started := b.started
	b.mu.RUnlock()

	if started {
		<-b.doneCh
	}
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.subscribers[sub] {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers. Events published after
// Stop are dropped.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-b.stopCh:
		return
	default:
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	defer close(b.doneCh)

	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			b.drain()
			return
		}
	}
}

// drain broadcasts whatever is still queued, then closes subscribers
func (b *Broker) drain() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		default:
			b.mu.Lock()
			for sub := range b.subscribers {
				delete(b.subscribers, sub)
				close(sub)
			}
			b.mu.Unlock()
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			metrics.EventsDroppedTotal.WithLabelValues(string(event.Type)).Inc()
			logger := log.WithComponent("events")
			logger.Warn().
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Str("route", event.Metadata[MetaRoute]).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
