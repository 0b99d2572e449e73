package booking

import (
	"slices"
	"strings"
)

// TimeSlots are the start times offered for every provider on every day.
// They are a fixed list; nothing here knows a provider's real calendar.
var TimeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00",
}

// normalizeSlot turns "10:00" or "10:00:00" into "10:00" and reports whether
// it is one of TimeSlots
func normalizeSlot(slot string) (string, bool) {
	slot = strings.TrimSpace(slot)
	if len(slot) == len("15:04:05") && strings.HasSuffix(slot, ":00") {
		slot = slot[:len("15:04")]
	}
	return slot, slices.Contains(TimeSlots, slot)
}
