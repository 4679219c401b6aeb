package schedule

import (
	"fmt"

	"tram-simulator/internal/timeutil"
)

// InconsistentScheduleError reports a trip that is active at a minute for
// which no consecutive StopTime pair brackets the query. It signals a
// data-quality defect in the upstream provider (non-contiguous or
// decreasing departure times) and is surfaced rather than masked.
type InconsistentScheduleError struct {
	TripID string
	Minute timeutil.Minutes
}

func (e *InconsistentScheduleError) Error() string {
	return fmt.Sprintf("trip %s: active at minute %d but no stop-time pair brackets it", e.TripID, int(e.Minute))
}

// IsActiveAt reports whether minute m falls within the trip's span,
// inclusive on both ends: a trip is active at its exact departure and its
// exact arrival instant. Trips with fewer than two StopTimes are never
// active.
func (t *Trip) IsActiveAt(m timeutil.Minutes) bool {
	if len(t.StopTimes) < 2 {
		return false
	}
	return t.StartMinute() <= m && m <= t.EndMinute()
}

// CurrentSegment returns the pair of consecutive StopTimes bounding minute
// m: the first pair (a, b) in sequence order with a.Departure <= m <=
// b.Departure. It returns (nil, nil, nil) when the trip is not active at m
// or has fewer than two StopTimes. If the trip is active but no pair
// brackets m, the loader's contiguity guarantee was violated and an
// *InconsistentScheduleError is returned.
func (t *Trip) CurrentSegment(m timeutil.Minutes) (*StopTime, *StopTime, error) {
	if !t.IsActiveAt(m) {
		return nil, nil, nil
	}
	for i := 0; i+1 < len(t.StopTimes); i++ {
		a := &t.StopTimes[i]
		b := &t.StopTimes[i+1]
		if a.Departure <= m && m <= b.Departure {
			return a, b, nil
		}
	}
	return nil, nil, &InconsistentScheduleError{TripID: t.ID, Minute: m}
}
