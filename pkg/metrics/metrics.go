package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Namespace prefixes every carebook metric
const Namespace = "carebook"

var (
	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebook_api_requests_total",
			Help: "Total number of backend API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carebook_api_request_duration_seconds",
			Help:    "Backend API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Session metrics
	TokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebook_token_refreshes_total",
			Help: "Total number of access token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	ForcedLogoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "carebook_forced_logouts_total",
			Help: "Total number of sessions cleared because a refresh failed",
		},
	)

	// Appointment metrics
	AppointmentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebook_appointment_transitions_total",
			Help: "Total number of appointment status changes by target status and result",
		},
		[]string{"status", "result"},
	)

	BookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebook_bookings_total",
			Help: "Total number of booking submissions by result",
		},
		[]string{"result"},
	)

	// Catalog metrics
	ServiceChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebook_service_changes_total",
			Help: "Total number of provider service changes by operation and result",
		},
		[]string{"operation", "result"},
	)

	AssistantMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebook_assistant_messages_total",
			Help: "Total number of assistant chat messages by result",
		},
		[]string{"result"},
	)

	// Event metrics
	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebook_events_dropped_total",
			Help: "Total number of events not delivered because a subscriber was full",
		},
		[]string{"type"},
	)
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultInvalid = "invalid"
)

func init() {
	// Register all metrics
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(TokenRefreshesTotal)
	prometheus.MustRegister(ForcedLogoutsTotal)
	prometheus.MustRegister(AppointmentTransitionsTotal)
	prometheus.MustRegister(BookingsTotal)
	prometheus.MustRegister(ServiceChangesTotal)
	prometheus.MustRegister(AssistantMessagesTotal)
	prometheus.MustRegister(EventsDroppedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Dump writes every carebook metric in the Prometheus text format
func Dump(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), Namespace+"_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
