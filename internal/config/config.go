package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tram-simulator/internal/timeutil"
)

type Config struct {
	DataDir     string // filesystem provider root; takes precedence over Postgres
	DatabaseURL string

	SimStart       timeutil.Minutes
	SimEnd         timeutil.Minutes
	TickInterval   time.Duration
	MinutesPerTick int
	MaxVehicles    int

	NATSURL         string
	LogNATSSubjects bool
	MetricsAddr     string

	LogJSON  bool
	LogDebug bool
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.DataDir = os.Getenv("DATA_DIR")

	// Database DSN: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" && os.Getenv("PGDATABASE") != "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	}
	cfg.DatabaseURL = dsn
	if cfg.DataDir == "" && cfg.DatabaseURL == "" {
		return nil, errors.New("either DATA_DIR or DATABASE_URL/PGDATABASE must be set")
	}

	// Simulated window, parsed with the same rules as schedule times
	var err error
	cfg.SimStart, err = parseWindow("SIM_START", "03:00:00")
	if err != nil {
		return nil, err
	}
	cfg.SimEnd, err = parseWindow("SIM_END", "24:00:00")
	if err != nil {
		return nil, err
	}
	if cfg.SimEnd < cfg.SimStart {
		return nil, fmt.Errorf("SIM_END %s precedes SIM_START %s", cfg.SimEnd.Clock(), cfg.SimStart.Clock())
	}

	// Tick interval
	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TICK_INTERVAL_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TickInterval = time.Second
	}

	// Simulated minutes advanced per tick
	if v := os.Getenv("MINUTES_PER_TICK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MINUTES_PER_TICK: %q", v)
		}
		cfg.MinutesPerTick = n
	} else {
		cfg.MinutesPerTick = 1
	}

	// Cap on concurrently rendered vehicles
	if v := os.Getenv("MAX_VEHICLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_VEHICLES: %q", v)
		}
		cfg.MaxVehicles = n
	} else {
		cfg.MaxVehicles = 15
	}

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.LogNATSSubjects = boolEnv("LOG_NATS_SUBJECTS")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.LogJSON = strings.EqualFold(os.Getenv("LOG_FORMAT"), "json")
	cfg.LogDebug = boolEnv("LOG_DEBUG")

	return cfg, nil
}

func parseWindow(key, def string) (timeutil.Minutes, error) {
	v := getenvDefault(key, def)
	m, err := timeutil.ParseTime(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return m, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func boolEnv(k string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
