package sim

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	mmetrics "tram-simulator/internal/metrics"
	"tram-simulator/internal/publisher"
	"tram-simulator/internal/schedule"
	"tram-simulator/internal/timeutil"
)

// FramePublisher is the renderer-facing sink for computed frames.
type FramePublisher interface {
	PublishFrame(msg publisher.FrameMessage) error
}

type Manager struct {
	network        *schedule.Network
	pub            FramePublisher
	tickInterval   time.Duration
	minutesPerTick int
	start, end     timeutil.Minutes
	maxVehicles    int
	metrics        *mmetrics.Collector
}

func NewManager(network *schedule.Network, pub FramePublisher, tickInterval time.Duration, minutesPerTick int, start, end timeutil.Minutes, maxVehicles int, metrics *mmetrics.Collector) *Manager {
	return &Manager{
		network:        network,
		pub:            pub,
		tickInterval:   tickInterval,
		minutesPerTick: minutesPerTick,
		start:          start,
		end:            end,
		maxVehicles:    maxVehicles,
		metrics:        metrics,
	}
}

// Run walks the simulated window one tick at a time, publishing the frames
// of each simulated minute, and returns when the window is exhausted or
// the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	if m.metrics != nil {
		m.metrics.BlocksLoaded.Set(float64(len(m.network.Blocks)))
		m.metrics.LinesLoaded.Set(float64(len(m.network.Lines)))
	}
	log.Info().
		Str("from", m.start.Clock()).
		Str("to", m.end.Clock()).
		Int("blocks", len(m.network.Blocks)).
		Msg("starting simulation")

	tick := time.NewTicker(m.tickInterval)
	defer tick.Stop()

	minute := m.start
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			start := time.Now()
			m.step(minute)
			if m.metrics != nil {
				m.metrics.TickDuration.Observe(time.Since(start).Seconds())
			}
			minute += timeutil.Minutes(m.minutesPerTick)
			if minute > m.end {
				log.Info().Msg("simulated window exhausted")
				return nil
			}
		}
	}
}

// step evaluates every block at one simulated minute and publishes up to
// maxVehicles frames that carry a position. A schedule error in one block
// is counted and logged, never aborting the tick for the others.
func (m *Manager) step(minute timeutil.Minutes) {
	counts := map[schedule.Status]int{}
	visible := 0
	for _, b := range m.network.Blocks {
		status := b.StatusAt(minute)
		counts[status]++
		if status == schedule.InDepot {
			continue
		}
		frame, err := BuildFrame(b, minute)
		if err != nil {
			if m.metrics != nil && IsScheduleError(err) {
				m.metrics.ScheduleErrors.Inc()
			}
			log.Warn().Err(err).Str("block", b.ID).Msg("frame resolution failed")
			continue
		}
		if frame.Position != nil {
			if visible >= m.maxVehicles {
				continue
			}
			visible++
		}
		if err := m.pub.PublishFrame(frame); err != nil {
			log.Warn().Err(err).Str("block", b.ID).Msg("publish error")
		}
	}
	if m.metrics != nil {
		m.metrics.SimMinute.Set(float64(minute))
		for _, s := range []schedule.Status{schedule.InTransit, schedule.AtTerminus, schedule.InDepot} {
			m.metrics.BlockStatus.WithLabelValues(statusLabel(s)).Set(float64(counts[s]))
		}
	}
}

func statusLabel(s schedule.Status) string {
	switch s {
	case schedule.InTransit:
		return "in_transit"
	case schedule.AtTerminus:
		return "at_terminus"
	default:
		return "in_depot"
	}
}

// PrecomputeFrames computes every non-depot frame for each minute of
// [from, to] ahead of rendering. Resolution is referentially transparent,
// so minutes are fanned out across worker goroutines without locking the
// store. Index 0 of the result corresponds to minute from.
func PrecomputeFrames(network *schedule.Network, from, to timeutil.Minutes) [][]publisher.FrameMessage {
	if to < from {
		return nil
	}
	n := int(to-from) + 1
	frames := make([][]publisher.FrameMessage, n)

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				minute := from + timeutil.Minutes(i)
				var out []publisher.FrameMessage
				for _, b := range network.Blocks {
					if b.StatusAt(minute) == schedule.InDepot {
						continue
					}
					frame, err := BuildFrame(b, minute)
					if err != nil {
						log.Warn().Err(err).Str("block", b.ID).Msg("frame resolution failed")
						continue
					}
					out = append(out, frame)
				}
				frames[i] = out
			}
		}()
	}
	for i := 0; i < n; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
	return frames
}
