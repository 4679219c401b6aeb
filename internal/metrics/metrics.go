package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	BlocksLoaded prometheus.Gauge
	LinesLoaded  prometheus.Gauge

	BlockStatus *prometheus.GaugeVec // status label: in_transit|at_terminus|in_depot
	SimMinute   prometheus.Gauge

	FramesPublished  prometheus.Counter
	FramePublishErrs prometheus.Counter
	ScheduleErrors   prometheus.Counter
	NATSConnected    prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	WindowStart  prometheus.Gauge // simulated minutes
	WindowEnd    prometheus.Gauge
	TickInterval prometheus.Gauge // seconds
	MaxVehicles  prometheus.Gauge
}

func NewCollector(windowStart, windowEnd int, tickInterval time.Duration, maxVehicles int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		BlocksLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_blocks_loaded",
			Help: "Number of tram blocks in the schedule store.",
		}),
		LinesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_lines_loaded",
			Help: "Number of tram lines in the schedule store.",
		}),
		BlockStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "simulator_blocks_by_status",
			Help: "Blocks per operational status at the current simulated minute.",
		}, []string{"status"}),
		SimMinute: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_sim_minute",
			Help: "Current simulated minute since midnight of the service day.",
		}),
		FramesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_frames_published_total",
			Help: "Total status frames published.",
		}),
		FramePublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_frame_publish_errors_total",
			Help: "Total frame publish errors.",
		}),
		ScheduleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_schedule_errors_total",
			Help: "Total inconsistent-schedule errors surfaced during resolution.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_tick_duration_seconds",
			Help:    "Duration of per-minute frame computations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_publish_duration_seconds",
			Help:    "Duration to marshal and publish a frame.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		WindowStart: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_window_start_minute",
			Help: "Simulated window start, minutes since midnight.",
		}),
		WindowEnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_window_end_minute",
			Help: "Simulated window end, minutes since midnight.",
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_tick_interval_seconds",
			Help: "Real-time tick interval in seconds.",
		}),
		MaxVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_max_vehicles",
			Help: "Cap on concurrently rendered vehicles.",
		}),
	}

	reg.MustRegister(
		c.BlocksLoaded, c.LinesLoaded,
		c.BlockStatus, c.SimMinute,
		c.FramesPublished, c.FramePublishErrs, c.ScheduleErrors, c.NATSConnected,
		c.TickDuration, c.PublishDuration,
		c.WindowStart, c.WindowEnd, c.TickInterval, c.MaxVehicles,
	)

	c.WindowStart.Set(float64(windowStart))
	c.WindowEnd.Set(float64(windowEnd))
	c.TickInterval.Set(tickInterval.Seconds())
	c.MaxVehicles.Set(float64(maxVehicles))

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
