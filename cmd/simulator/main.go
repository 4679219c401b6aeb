package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tram-simulator/internal/config"
	"tram-simulator/internal/db"
	"tram-simulator/internal/metrics"
	"tram-simulator/internal/provider"
	"tram-simulator/internal/publisher"
	"tram-simulator/internal/schedule"
	"tram-simulator/internal/sim"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	if !cfg.LogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	if cfg.LogDebug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	network, err := loadNetwork(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("schedule load error")
	}
	minLat, maxLat, minLon, maxLon := schedule.BoundingBox(network.Lines)
	log.Info().
		Floats64("lat", []float64{minLat, maxLat}).
		Floats64("lon", []float64{minLon, maxLon}).
		Msg("network bounding box")

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(int(cfg.SimStart), int(cfg.SimEnd), cfg.TickInterval, cfg.MaxVehicles)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
	if err != nil {
		log.Fatal().Err(err).Msg("nats error")
	}
	defer pub.Close()

	mgr := sim.NewManager(network, pub, cfg.TickInterval, cfg.MinutesPerTick, cfg.SimStart, cfg.SimEnd, cfg.MaxVehicles, mcol)
	if err := mgr.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("simulation error")
	}

	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	log.Info().Msg("shutdown complete")
}

// loadNetwork picks the provider: a data directory of JSON/GeoJSON dumps
// when DATA_DIR is set, otherwise the GTFS Postgres database.
func loadNetwork(ctx context.Context, cfg *config.Config) (*schedule.Network, error) {
	var p provider.Provider
	if cfg.DataDir != "" {
		p = provider.NewFileProvider(cfg.DataDir)
	} else {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			return nil, err
		}
		p = db.NewGTFSProvider(sqlDB)
	}
	return p.Load(ctx)
}

// wrapPublisherMetrics adapts the Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) FramePublishedInc()             { p.c.FramesPublished.Inc() }
func (p *pubMetrics) FramePublishErrInc()            { p.c.FramePublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
