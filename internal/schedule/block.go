package schedule

import (
	"tram-simulator/internal/geo"
	"tram-simulator/internal/timeutil"
)

// Status is the operational state of a block at one simulated minute. It
// is a pure function of time, recomputed on every query; no state machine
// instance is kept between queries.
type Status int

const (
	// InDepot means the minute lies outside the block's duty span.
	InDepot Status = iota
	// AtTerminus means the block is inside its duty span but between two
	// trips, waiting at an end-of-line stop.
	AtTerminus
	// InTransit means one of the block's trips is active.
	InTransit
)

func (s Status) String() string {
	switch s {
	case InTransit:
		return "IN_TRANSIT"
	case AtTerminus:
		return "AT_TERMINUS"
	default:
		return "IN_DEPOT"
	}
}

// ActiveTrip returns the first trip in stored order active at minute m,
// or nil. Trips of one block are assumed disjoint; if upstream data
// violates that, the first match wins, deterministically.
func (b *TramBlock) ActiveTrip(m timeutil.Minutes) *Trip {
	for _, t := range b.Trips {
		if t.IsActiveAt(m) {
			return t
		}
	}
	return nil
}

// StatusAt resolves the block's state at minute m.
func (b *TramBlock) StatusAt(m timeutil.Minutes) Status {
	if b.ActiveTrip(m) != nil {
		return InTransit
	}
	if len(b.Trips) == 0 {
		return InDepot
	}
	first := b.Trips[0]
	last := b.Trips[len(b.Trips)-1]
	if first.StartMinute() <= m && m <= last.EndMinute() {
		return AtTerminus
	}
	return InDepot
}

// PositionAt resolves the block's coordinates at minute m. The boolean is
// false when the block has no position (in depot, or at terminus before
// any trip has completed). An *InconsistentScheduleError propagates from
// segment resolution; it is local to this block and must not abort
// evaluation of others.
func (b *TramBlock) PositionAt(m timeutil.Minutes) (geo.Point, bool, error) {
	switch b.StatusAt(m) {
	case InTransit:
		trip := b.ActiveTrip(m)
		a, z, err := trip.CurrentSegment(m)
		if err != nil {
			return geo.Point{}, false, err
		}
		if a == nil {
			return geo.Point{}, false, nil
		}
		return geo.Interpolate(a.Point(), z.Point(), a.Departure, z.Departure, m), true, nil
	case AtTerminus:
		if st := b.lastCompletedStop(m); st != nil {
			return st.Point(), true, nil
		}
		return geo.Point{}, false, nil
	default:
		return geo.Point{}, false, nil
	}
}

// lastCompletedStop returns the final StopTime of the most recently
// completed trip: the trip with the greatest EndMinute() <= m, found by
// scanning every trip rather than taking the first qualifying one.
func (b *TramBlock) lastCompletedStop(m timeutil.Minutes) *StopTime {
	var best *Trip
	for _, t := range b.Trips {
		if len(t.StopTimes) == 0 || t.EndMinute() > m {
			continue
		}
		if best == nil || t.EndMinute() > best.EndMinute() {
			best = t
		}
	}
	if best == nil {
		return nil
	}
	return &best.StopTimes[len(best.StopTimes)-1]
}
