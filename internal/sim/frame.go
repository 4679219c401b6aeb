// Package sim drives the simulated service day: it advances a simulated
// clock across the configured window and, each tick, resolves status and
// position for every block in the schedule store. Resolution itself is
// pure; this package only sequences it and feeds the renderer.
package sim

import (
	"errors"
	"time"

	"tram-simulator/internal/geo"
	"tram-simulator/internal/publisher"
	"tram-simulator/internal/schedule"
	"tram-simulator/internal/timeutil"
)

// BuildFrame resolves one block at one simulated minute into a renderer
// frame. An *schedule.InconsistentScheduleError is returned as-is so the
// caller can count it; it concerns this block only.
func BuildFrame(b *schedule.TramBlock, m timeutil.Minutes) (publisher.FrameMessage, error) {
	frame := publisher.FrameMessage{
		BlockID:   b.ID,
		LineID:    b.LineID,
		ServiceID: b.ServiceID,
		Status:    b.StatusAt(m).String(),
		SimMinute: int(m),
		Clock:     m.Clock(),
		Timestamp: time.Now(),
	}
	pos, ok, err := b.PositionAt(m)
	if err != nil {
		return frame, err
	}
	if ok {
		frame.Position = &pos
	}
	if trip := b.ActiveTrip(m); trip != nil {
		if a, z, err := trip.CurrentSegment(m); err == nil && a != nil && a.Point() != z.Point() {
			bearing := geo.Bearing(a.Point(), z.Point())
			frame.Bearing = &bearing
		}
	}
	return frame, nil
}

// IsScheduleError reports whether err is a data-quality defect local to
// one block rather than a failure of the tick.
func IsScheduleError(err error) bool {
	var ise *schedule.InconsistentScheduleError
	return errors.As(err, &ise)
}
