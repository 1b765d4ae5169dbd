// Package interval implements the time-window algebra used to find a meeting
// slot common to every party: pairwise and folded intersection, earliest-fit
// selection, the default business-hours template and busy-time subtraction.
// All functions are pure and perform no I/O.
package interval

import (
	"sort"
	"time"
)

const (
	businessHoursStart = 9
	businessHoursEnd   = 18
)

// Window is a half-open [Start, End) time interval.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the window carries no interval at all.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Intersect returns every non-empty pairwise overlap between windows of a and
// windows of b, sorted by start time. Windows with end <= start are never
// emitted.
func Intersect(a, b []Window) []Window {
	var result []Window

	for _, wa := range a {
		for _, wb := range b {
			start := wa.Start
			if wb.Start.After(start) {
				start = wb.Start
			}
			end := wa.End
			if wb.End.Before(end) {
				end = wb.End
			}
			if start.Before(end) {
				result = append(result, Window{Start: start, End: end})
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result
}

// IntersectAll left-folds Intersect over the given sets. It stops as soon as
// an intermediate result is empty: once any two parties share no time, no
// further party can restore an overlap.
func IntersectAll(sets ...[]Window) []Window {
	if len(sets) == 0 {
		return nil
	}

	overlap := sets[0]
	for _, set := range sets[1:] {
		overlap = Intersect(overlap, set)
		if len(overlap) == 0 {
			return nil
		}
	}
	return overlap
}

// FitDuration scans windows in start order and returns the first one at least
// d long, clipped to exactly [start, start+d]. Earliest wins; a later or
// larger window is never preferred.
func FitDuration(windows []Window, d time.Duration) (Window, bool) {
	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	for _, w := range sorted {
		if w.Duration() >= d {
			return Window{Start: w.Start, End: w.Start.Add(d)}, true
		}
	}
	return Window{}, false
}

// DefaultFreeSlots emits one 09:00-18:00 local window for every weekday in
// [rangeStart, rangeEnd]; weekends emit nothing. Used when the organizer has
// no calendar connected and is treated as fully free during business hours.
func DefaultFreeSlots(rangeStart, rangeEnd time.Time) []Window {
	var slots []Window

	day := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, rangeStart.Location())
	for !day.After(rangeEnd) {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			slots = append(slots, Window{
				Start: time.Date(day.Year(), day.Month(), day.Day(), businessHoursStart, 0, 0, 0, day.Location()),
				End:   time.Date(day.Year(), day.Month(), day.Day(), businessHoursEnd, 0, 0, 0, day.Location()),
			})
		}
		day = day.AddDate(0, 0, 1)
	}

	return slots
}

// SubtractBusy removes the busy periods from each free window, emitting the
// remaining gaps in chronological order. Zero-length and inverted gaps are
// dropped.
func SubtractBusy(free, busy []Window) []Window {
	if len(busy) == 0 {
		return free
	}

	var result []Window
	for _, day := range free {
		// Busy periods clipped to this window, in start order.
		var overlapping []Window
		for _, b := range busy {
			start := b.Start
			if day.Start.After(start) {
				start = day.Start
			}
			end := b.End
			if day.End.Before(end) {
				end = day.End
			}
			if start.Before(end) {
				overlapping = append(overlapping, Window{Start: start, End: end})
			}
		}

		if len(overlapping) == 0 {
			result = append(result, day)
			continue
		}

		sort.Slice(overlapping, func(i, j int) bool {
			return overlapping[i].Start.Before(overlapping[j].Start)
		})

		cursor := day.Start
		for _, b := range overlapping {
			if cursor.Before(b.Start) {
				result = append(result, Window{Start: cursor, End: b.Start})
			}
			if b.End.After(cursor) {
				cursor = b.End
			}
		}
		if cursor.Before(day.End) {
			result = append(result, Window{Start: cursor, End: day.End})
		}
	}

	return result
}
