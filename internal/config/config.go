package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/traffic-hazard-watch/internal/domain"
	"github.com/sethvargo/go-envconfig"
)

// MinPollInterval is the floor on the poll interval, enforced to avoid
// hammering the rate-limited upstream.
const MinPollInterval = time.Minute

// knownCategories are the feed paths the live hazards API exposes.
var knownCategories = map[string]struct{}{
	"incident":   {},
	"roadwork":   {},
	"fire":       {},
	"flood":      {},
	"majorevent": {},
	"alpine":     {},
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedAPIKey       string        `env:"FEED_API_KEY"`
	FeedBaseURL      string        `env:"FEED_BASE_URL, default=https://api.transport.nsw.gov.au/v1/live/hazards"`
	FeedCategories   []string      `env:"FEED_CATEGORIES, default=incident,roadwork,fire,flood"`
	FeedTimeout      time.Duration `env:"FEED_TIMEOUT, default=20s"`
	FeedRequestDelay time.Duration `env:"FEED_REQUEST_DELAY, default=500ms"`

	HomeLatitude  float64 `env:"HOME_LATITUDE"`
	HomeLongitude float64 `env:"HOME_LONGITUDE"`
	HomeRadiusKm  float64 `env:"HOME_RADIUS_KM, default=10"`

	// TrackedPoints are fixed extra zones as name:lat:lon triples. Moving
	// points come from a live PointSource instead.
	TrackedPoints   []string `env:"TRACKED_POINTS"`
	TrackedRadiusKm float64  `env:"TRACKED_RADIUS_KM, default=5"`

	PollInterval time.Duration `env:"POLL_INTERVAL, default=5m"`

	HTTPAddr        string        `env:"HTTP_ADDR, default=:8080"`
	LogLevel        string        `env:"LOG_LEVEL, default=info"`
	LogFormat       string        `env:"LOG_FORMAT, default=json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	KafkaEnabled bool     `env:"KAFKA_ENABLED, default=false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS, default=localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_TOPIC, default=hazard-transitions"`
}

// Load reads configuration from environment variables, applying defaults
// where unset and validating the result. The poll interval is clamped to
// MinPollInterval rather than rejected.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}

	if cfg.FeedAPIKey == "" {
		return nil, fmt.Errorf("FEED_API_KEY is required")
	}
	for _, c := range cfg.FeedCategories {
		if _, ok := knownCategories[c]; !ok {
			return nil, fmt.Errorf("unknown hazard category %q in FEED_CATEGORIES", c)
		}
	}
	if cfg.HomeRadiusKm > 0 && cfg.HomeLatitude == 0 && cfg.HomeLongitude == 0 {
		return nil, fmt.Errorf("HOME_LATITUDE and HOME_LONGITUDE are required when HOME_RADIUS_KM > 0")
	}
	if cfg.PollInterval < MinPollInterval {
		cfg.PollInterval = MinPollInterval
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return &cfg, nil
}

// ReferencePoints builds the proximity zones for a pass: the home point
// first (the filter relies on this ordering), then the configured tracked
// points in declaration order.
func (c *Config) ReferencePoints() ([]domain.ReferencePoint, error) {
	var points []domain.ReferencePoint
	if c.HomeRadiusKm > 0 {
		points = append(points, domain.ReferencePoint{
			Name:     "home",
			Lat:      c.HomeLatitude,
			Lon:      c.HomeLongitude,
			RadiusKm: c.HomeRadiusKm,
		})
	}
	for _, spec := range c.TrackedPoints {
		p, err := parseTrackedPoint(spec, c.TrackedRadiusKm)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// parseTrackedPoint parses a name:lat:lon triple.
func parseTrackedPoint(spec string, radiusKm float64) (domain.ReferencePoint, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return domain.ReferencePoint{}, fmt.Errorf("tracked point %q: want name:lat:lon", spec)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return domain.ReferencePoint{}, fmt.Errorf("tracked point %q: bad latitude: %w", spec, err)
	}
	lon, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return domain.ReferencePoint{}, fmt.Errorf("tracked point %q: bad longitude: %w", spec, err)
	}
	return domain.ReferencePoint{
		Name:     parts[0],
		Lat:      lat,
		Lon:      lon,
		RadiusKm: radiusKm,
	}, nil
}
