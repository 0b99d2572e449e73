/*
Package metrics provides Prometheus metrics for the carebook client.

Every metric is a package-level variable registered with the default
registry in init, so any package can record without wiring:

	metrics.BookingsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	timer := metrics.NewTimer()
	resp, err := httpClient.Do(req)
	timer.ObserveDurationVec(metrics.APIRequestDuration, req.Method)

# Metric Catalog

API:
  - carebook_api_requests_total{method,status}: every backend response,
    status "error" when no response arrived
  - carebook_api_request_duration_seconds{method}: request latency

Session:
  - carebook_token_refreshes_total{outcome}: refresh attempts, success or failure
  - carebook_forced_logouts_total: sessions cleared after a failed refresh

Domain:
  - carebook_appointment_transitions_total{status,result}
  - carebook_bookings_total{result}: success, failure or invalid (rejected locally)
  - carebook_service_changes_total{operation,result}
  - carebook_assistant_messages_total{result}

# Exposition

Handler serves the registry over HTTP for a scraper. The CLI is short-lived,
so it instead offers --metrics, which calls Dump after the command finishes
and prints only the carebook_* families in the text format.
*/
package metrics
