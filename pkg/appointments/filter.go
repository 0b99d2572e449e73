package appointments

import (
	"fmt"
	"strings"

	"github.com/cuemby/carebook/pkg/types"
)

// Filter is a status tag on the dashboard filter bar
type Filter string

// FilterAll matches every appointment
const FilterAll Filter = "ALL"

// Filters lists the filter bar tags in display order
var Filters = []Filter{
	FilterAll,
	Filter(types.StatusPending),
	Filter(types.StatusConfirmed),
	Filter(types.StatusCompleted),
	Filter(types.StatusCancelled),
	Filter(types.StatusRejected),
}

// ParseFilter accepts ALL or a status name, in any case. Empty means ALL.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if !types.AppointmentStatus(s).Valid() {
		return "", fmt.Errorf("unknown status filter %q", s)
	}
	return Filter(s), nil
}

// Label returns the text shown on the filter bar
func (f Filter) Label() string {
	if f == FilterAll {
		return "All"
	}
	return types.AppointmentStatus(f).Label()
}

// Match reports whether a passes the filter
func (f Filter) Match(a *types.Appointment) bool {
	return f == FilterAll || f == "" || Filter(a.Status) == f
}

// FilterBy returns the appointments matching f in their original order.
// FilterAll returns list itself.
func FilterBy(list []*types.Appointment, f Filter) []*types.Appointment {
	if f == FilterAll || f == "" {
		return list
	}
	out := make([]*types.Appointment, 0, len(list))
	for _, a := range list {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// Counts returns the number of appointments under each tag in Filters
func Counts(list []*types.Appointment) map[Filter]int {
	counts := make(map[Filter]int, len(Filters))
	for _, f := range Filters {
		counts[f] = 0
	}
	counts[FilterAll] = len(list)
	for _, a := range list {
		if _, ok := counts[Filter(a.Status)]; ok {
			counts[Filter(a.Status)]++
		}
	}
	return counts
}
