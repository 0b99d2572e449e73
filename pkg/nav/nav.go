package nav

import (
	"strings"
	"sync"

	"github.com/cuemby/carebook/pkg/events"
	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/types"
)

// Route is an application location
type Route string

const (
	RouteHome                 Route = "/"
	RouteLogin                Route = "/login"
	RouteRegister             Route = "/register"
	RouteBrowse               Route = "/browse"
	RouteAdmin                Route = "/admin"
	RouteClientDashboard      Route = "/dashboard/client"
	RouteClientAppointments   Route = "/dashboard/client/appointments"
	RouteProviderDashboard    Route = "/dashboard/provider"
	RouteProviderAppointments Route = "/dashboard/provider/appointments"
	RouteProviderServices     Route = "/dashboard/provider/services"
)

// Scope is the audience a route is meant for
type Scope int

const (
	ScopePublic Scope = iota
	ScopeAuthenticated
	ScopeClient
	ScopeProvider
	ScopeAdmin
)

func (s Scope) String() string {
	switch s {
	case ScopeAuthenticated:
		return "authenticated"
	case ScopeClient:
		return "client"
	case ScopeProvider:
		return "provider"
	case ScopeAdmin:
		return "admin"
	default:
		return "public"
	}
}

// Scope classifies r by path prefix
func (r Route) Scope() Scope {
	switch {
	case under(r, RouteProviderDashboard):
		return ScopeProvider
	case under(r, RouteClientDashboard):
		return ScopeClient
	case under(r, RouteAdmin):
		return ScopeAdmin
	case under(r, "/dashboard"):
		return ScopeAuthenticated
	default:
		return ScopePublic
	}
}

func under(r, prefix Route) bool {
	return r == prefix || strings.HasPrefix(string(r), string(prefix)+"/")
}

// LandingRoute returns where a user of role lands after login
func LandingRoute(role types.Role) Route {
	switch role {
	case types.RoleAdmin:
		return RouteAdmin
	case types.RoleProvider:
		return RouteProviderDashboard
	default:
		return RouteClientDashboard
	}
}

// DecisionKind is the outcome of a route guard
type DecisionKind int

const (
	Allow DecisionKind = iota
	Wait
	Redirect
)

// Decision tells a view whether to render, show a loading state, or go elsewhere
type Decision struct {
	Kind DecisionKind
	To   Route
}

func (d Decision) String() string {
	switch d.Kind {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect " + string(d.To)
	default:
		return "allow"
	}
}

// Navigator performs navigation
type Navigator interface {
	Navigate(to Route)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(to Route)

func (f NavigatorFunc) Navigate(to Route) {
	f(to)
}

// History records navigations
type History struct {
	mu     sync.Mutex
	routes []Route
}

func (h *History) Navigate(to Route) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, to)
}

// Routes returns every navigation so far, oldest first
func (h *History) Routes() []Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Route, len(h.routes))
	copy(out, h.routes)
	return out
}

// Last returns the most recent navigation
func (h *History) Last() (Route, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.routes) == 0 {
		return "", false
	}
	return h.routes[len(h.routes)-1], true
}

// Router is the navigation effect layer. It turns events that carry a route
// into calls on a Navigator.
type Router struct {
	broker *events.Broker
	nav    Navigator
	sub    events.Subscriber
	done   chan struct{}
	once   sync.Once
}

// NewRouter subscribes to broker right away so no event published after this
// call is missed, even before Start
func NewRouter(broker *events.Broker, nav Navigator) *Router {
	return &Router{
		broker: broker,
		nav:    nav,
		sub:    broker.Subscribe(),
		done:   make(chan struct{}),
	}
}

// Start processes events until the broker stops
func (r *Router) Start() {
	r.once.Do(func() {
		go r.run()
	})
}

// Wait blocks until the router has handled every delivered event. It
// returns after the broker is stopped.
func (r *Router) Wait() {
	<-r.done
}

func (r *Router) run() {
	defer close(r.done)
	logger := log.WithComponent("nav")

	for event := range r.sub {
		to, ok := event.Route()
		if !ok {
			continue
		}
		logger.Debug().
			Str("event", string(event.Type)).
			Str("route", to).
			Msg("navigating")
		r.nav.Navigate(Route(to))
	}
}
