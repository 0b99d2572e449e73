package appointments

import (
	"testing"

	"github.com/cuemby/carebook/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixed() []*types.Appointment {
	return []*types.Appointment{
		{ID: 1, Status: types.StatusPending},
		{ID: 2, Status: types.StatusConfirmed},
		{ID: 3, Status: types.StatusCancelled},
		{ID: 4, Status: types.StatusConfirmed},
		{ID: 5, Status: types.StatusCompleted},
		{ID: 6, Status: types.StatusConfirmed},
		{ID: 7, Status: types.StatusRejected},
	}
}

func ids(list []*types.Appointment) []int64 {
	out := make([]int64, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestFilterByKeepsOrder(t *testing.T) {
	list := mixed()

	tests := []struct {
		filter Filter
		want   []int64
	}{
		{FilterAll, []int64{1, 2, 3, 4, 5, 6, 7}},
		{Filter(types.StatusConfirmed), []int64{2, 4, 6}},
		{Filter(types.StatusPending), []int64{1}},
		{Filter(types.StatusCancelled), []int64{3}},
		{Filter(types.StatusRejected), []int64{7}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterBy(list, tt.filter)))
		})
	}
}

func TestFilterByEmptyList(t *testing.T) {
	assert.Empty(t, FilterBy(nil, Filter(types.StatusPending)))
	assert.Empty(t, FilterBy(nil, FilterAll))
}

func TestCounts(t *testing.T) {
	counts := Counts(mixed())

	assert.Equal(t, 7, counts[FilterAll])
	assert.Equal(t, 1, counts[Filter(types.StatusPending)])
	assert.Equal(t, 3, counts[Filter(types.StatusConfirmed)])
	assert.Equal(t, 1, counts[Filter(types.StatusCompleted)])
	assert.Equal(t, 1, counts[Filter(types.StatusCancelled)])
	assert.Equal(t, 1, counts[Filter(types.StatusRejected)])
	assert.Len(t, counts, len(Filters))
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"confirmed", Filter(types.StatusConfirmed), false},
		{" PENDING ", Filter(types.StatusPending), false},
		{"booked", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterLabel(t *testing.T) {
	assert.Equal(t, "All", FilterAll.Label())
	assert.Equal(t, "Confirmed", Filter(types.StatusConfirmed).Label())
}
