package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Signal processing.
	FilterLowHz   float64
	FilterHighHz  float64
	FilterOrder   int
	TaperFraction float64
	DetrendMethod string
	DetrendOrder  int
	MinSamples    int
	IntensityRule string

	// CalibrationFile is a YAML table of station responses. Empty means raw
	// count records cannot be calibrated.
	CalibrationFile string

	// Batch processing.
	Concurrency    int
	GroupWindow    time.Duration
	AlignTolerance time.Duration

	// Watch mode.
	InputDir     string
	OutputDir    string
	PollInterval time.Duration
	WriteSeries  bool

	// Kafka result publishing.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaResultTopic string

	// Result store.
	StorageDriver string
	StorageDSN    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DetrendMethod:   sharedcfg.EnvOrDefault("DETREND_METHOD", string(domain.DetrendLinear)),
		IntensityRule:   sharedcfg.EnvOrDefault("INTENSITY_RULE", string(domain.RuleMax)),
		CalibrationFile: os.Getenv("CALIBRATION_FILE"),

		InputDir:  os.Getenv("INPUT_DIR"),
		OutputDir: sharedcfg.EnvOrDefault("OUTPUT_DIR", "./out"),

		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaResultTopic: sharedcfg.EnvOrDefault("KAFKA_RESULT_TOPIC", "seismic-intensity-results"),

		StorageDriver: os.Getenv("STORAGE_DRIVER"),
		StorageDSN:    os.Getenv("STORAGE_DSN"),
	}

	defaults := domain.DefaultPreprocessConfig()
	parsers := []error{
		parseFloat("FILTER_LOW_HZ", defaults.LowHz, &cfg.FilterLowHz),
		parseFloat("FILTER_HIGH_HZ", defaults.HighHz, &cfg.FilterHighHz),
		parseInt("FILTER_ORDER", defaults.Order, &cfg.FilterOrder),
		parseFloat("TAPER_FRACTION", defaults.TaperFraction, &cfg.TaperFraction),
		parseInt("DETREND_ORDER", defaults.Detrend.Order, &cfg.DetrendOrder),
		parseInt("MIN_SAMPLES", domain.DefaultMinSamples, &cfg.MinSamples),
		parseInt("CONCURRENCY", runtime.NumCPU(), &cfg.Concurrency),
		parseDuration("GROUP_WINDOW", domain.DefaultGroupWindow, &cfg.GroupWindow),
		parseDuration("ALIGN_TOLERANCE", 10*time.Millisecond, &cfg.AlignTolerance),
		parseDuration("POLL_INTERVAL", 5*time.Second, &cfg.PollInterval),
		parseBool("WRITE_SERIES", false, &cfg.WriteSeries),
		parseBool("KAFKA_ENABLED", false, &cfg.KafkaEnabled),
	}
	if err := errors.Join(parsers...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. It is called by Load and again by
// the CLI after flags override individual fields.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid CONCURRENCY: %d must be at least 1", c.Concurrency)
	}
	if err := c.Extract().Validate(); err != nil {
		return fmt.Errorf("invalid MIN_SAMPLES or DETREND_METHOD: %w", err)
	}
	if err := c.Preprocess().Validate(); err != nil {
		return fmt.Errorf("invalid filter settings: %w", err)
	}
	if err := c.Intensity().Validate(); err != nil {
		return fmt.Errorf("invalid INTENSITY_RULE: %w", err)
	}
	if c.GroupWindow <= 0 {
		return errors.New("invalid GROUP_WINDOW: must be a positive duration")
	}
	if c.AlignTolerance < 0 {
		return errors.New("invalid ALIGN_TOLERANCE: must not be negative")
	}
	if c.PollInterval <= 0 {
		return errors.New("invalid POLL_INTERVAL: must be a positive duration")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaResultTopic == "" {
			return errors.New("KAFKA_RESULT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	switch c.StorageDriver {
	case "":
	case StorageSQLite, StoragePostgres:
		if c.StorageDSN == "" {
			return fmt.Errorf("STORAGE_DSN is required for STORAGE_DRIVER=%s", c.StorageDriver)
		}
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q: want sqlite or postgres", c.StorageDriver)
	}
	return nil
}

// Preprocess returns the preprocessing settings.
func (c *Config) Preprocess() domain.PreprocessConfig {
	return domain.PreprocessConfig{
		LowHz:  c.FilterLowHz,
		HighHz: c.FilterHighHz,
		Order:  c.FilterOrder,
		Detrend: domain.Detrend{
			Method: domain.DetrendMethod(c.DetrendMethod),
			Order:  c.DetrendOrder,
		},
		TaperFraction: c.TaperFraction,
	}
}

// Extract returns the ground-motion extraction settings. The velocity
// baseline uses the same method as the acceleration baseline.
func (c *Config) Extract() domain.ExtractConfig {
	return domain.ExtractConfig{
		MinSamples: c.MinSamples,
		VelocityDetrend: domain.Detrend{
			Method: domain.DetrendMethod(c.DetrendMethod),
			Order:  c.DetrendOrder,
		},
	}
}

// Intensity returns the intensity relations with the configured rule.
func (c *Config) Intensity() domain.IntensityConfig {
	ic := domain.DefaultIntensityConfig()
	ic.Rule = domain.Rule(c.IntensityRule)
	return ic
}

func parseFloat(key string, fallback float64, dst *float64) error {
	*dst = fallback
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a number", key, s)
	}
	*dst = v
	return nil
}

func parseInt(key string, fallback int, dst *int) error {
	*dst = fallback
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not an integer", key, s)
	}
	*dst = v
	return nil
}

func parseDuration(key string, fallback time.Duration, dst *time.Duration) error {
	*dst = fallback
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a duration", key, s)
	}
	*dst = d
	return nil
}

func parseBool(key string, fallback bool, dst *bool) error {
	*dst = fallback
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a boolean", key, s)
	}
	*dst = v
	return nil
}
