package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrSessionExpired wraps the original 401 when the refresh failed and the session was cleared
	ErrSessionExpired = errors.New("session expired")

	// errNoRefreshToken means a 401 arrived with nothing to refresh with
	errNoRefreshToken = errors.New("no refresh token stored")
)

// UnknownErrorDetail is shown when the backend gave no usable detail
const UnknownErrorDetail = "Unknown error"

// APIError is a non-2xx response from the backend
type APIError struct {
	Method string
	Path   string
	Status int
	Body   []byte
	Detail string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsUnauthorized reports whether the backend rejected the credentials
func (e *APIError) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// IsUnauthorized reports whether err carries a 401 from the backend
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Detail returns the backend's human-readable message for err, or
// UnknownErrorDetail when there is none (including transport failures).
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return UnknownErrorDetail
}

// parseDetail extracts a message from an error body. The backend sends
// {"detail": "..."} for most failures and {"field": ["msg", ...]} for
// serializer validation errors.
func parseDetail(body []byte) string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}

	if raw, ok := doc["detail"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}

	if msg := firstMessage(doc["non_field_errors"]); msg != "" {
		return msg
	}

	fields := make([]string, 0, len(doc))
	for k := range doc {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if msg := firstMessage(doc[field]); msg != "" {
			return field + ": " + msg
		}
	}
	return ""
}

func firstMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return strings.TrimSpace(list[0])
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	return ""
}
