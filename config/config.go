// Package config loads dga-topology settings from defaults, a YAML file and
// DGATOPO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dga-topology/analytics"
	"dga-topology/models"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidPort     = errors.New("invalid server port")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidEngine   = errors.New("invalid engine settings")
)

const (
	defaultPort      = 8080
	defaultHost      = "0.0.0.0"
	defaultRedisAddr = "localhost:6379"
	maxPort          = 65535
)

// Config holds all configuration.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// AnalysisConfig mirrors analytics.Options.
type AnalysisConfig struct {
	WindowSize     int     `mapstructure:"window_size"`
	Step           int     `mapstructure:"step"`
	MaxDim         int     `mapstructure:"maxdim"`
	ReferenceStart int     `mapstructure:"reference_start"`
	ReferenceEnd   int     `mapstructure:"reference_end"`
	Difference     bool    `mapstructure:"difference"`
	Alignment      string  `mapstructure:"alignment"`
	EmptyPolicy    string  `mapstructure:"empty_policy"`
	GroundMetric   string  `mapstructure:"ground_metric"`
	Order          float64 `mapstructure:"order"`
	Threshold      float64 `mapstructure:"threshold"`
	Workers        int     `mapstructure:"workers"`
	MaxSimplices   int     `mapstructure:"max_simplices"`
}

// EngineConfig sizes the service worker pool and the change-point flagger.
type EngineConfig struct {
	Workers       int     `mapstructure:"workers"`
	QueueSize     int     `mapstructure:"queue_size"`
	FlagDim       int     `mapstructure:"flag_dim"`
	FlagWindow    int     `mapstructure:"flag_window"`
	FlagThreshold float64 `mapstructure:"flag_threshold"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RedisConfig holds the result store settings. With Enabled false results
// are kept in memory.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IngestConfig describes the CSV export layout.
type IngestConfig struct {
	Delimiter       string `mapstructure:"delimiter"`
	TimestampColumn string `mapstructure:"timestamp_column"`
	TimestampFormat string `mapstructure:"timestamp_format"`
	Year            int    `mapstructure:"year"`
}

// Options converts the analysis section to analytics options.
func (a AnalysisConfig) Options() analytics.Options {
	return analytics.Options{
		WindowSize:     a.WindowSize,
		Step:           a.Step,
		MaxDim:         a.MaxDim,
		ReferenceStart: a.ReferenceStart,
		ReferenceEnd:   a.ReferenceEnd,
		Difference:     a.Difference,
		Alignment:      models.Alignment(a.Alignment),
		EmptyPolicy:    analytics.EmptyPolicy(a.EmptyPolicy),
		GroundMetric:   analytics.GroundMetric(a.GroundMetric),
		Order:          a.Order,
		Threshold:      a.Threshold,
		Workers:        a.Workers,
		MaxSimplices:   a.MaxSimplices,
	}
}

// Engine converts the engine section to analytics engine settings.
func (e EngineConfig) Engine() analytics.EngineConfig {
	return analytics.EngineConfig{
		Workers:       e.Workers,
		QueueSize:     e.QueueSize,
		FlagDim:       e.FlagDim,
		FlagWindow:    e.FlagWindow,
		FlagThreshold: e.FlagThreshold,
	}
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("dgatopo")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/dgatopo")
	}

	viperCfg.SetEnvPrefix("DGATOPO")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := Validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	// Analysis defaults. Differencing matches how the monitoring exports
	// are analyzed: gas levels accumulate, so steps are compared on deltas.
	viperCfg.SetDefault("analysis.window_size", analytics.DefaultWindowSize)
	viperCfg.SetDefault("analysis.step", analytics.DefaultStep)
	viperCfg.SetDefault("analysis.maxdim", analytics.DefaultMaxDim)
	viperCfg.SetDefault("analysis.reference_start", 0)
	viperCfg.SetDefault("analysis.reference_end", 0)
	viperCfg.SetDefault("analysis.difference", true)
	viperCfg.SetDefault("analysis.alignment", string(models.AlignEnd))
	viperCfg.SetDefault("analysis.empty_policy", string(analytics.EmptyZero))
	viperCfg.SetDefault("analysis.ground_metric", string(analytics.Chebyshev))
	viperCfg.SetDefault("analysis.order", analytics.DefaultOrder)
	viperCfg.SetDefault("analysis.threshold", 0.0)
	viperCfg.SetDefault("analysis.workers", 0)
	viperCfg.SetDefault("analysis.max_simplices", analytics.DefaultMaxSimplices)

	// Engine defaults.
	viperCfg.SetDefault("engine.workers", 0)
	viperCfg.SetDefault("engine.queue_size", 64)
	viperCfg.SetDefault("engine.flag_dim", 0)
	viperCfg.SetDefault("engine.flag_window", analytics.DefaultFlagWindow)
	viperCfg.SetDefault("engine.flag_threshold", analytics.DefaultFlagThreshold)

	// Server defaults.
	viperCfg.SetDefault("server.host", defaultHost)
	viperCfg.SetDefault("server.port", defaultPort)
	viperCfg.SetDefault("server.read_timeout", "30s")
	viperCfg.SetDefault("server.write_timeout", "30s")
	viperCfg.SetDefault("server.idle_timeout", "120s")

	// Redis defaults.
	viperCfg.SetDefault("redis.enabled", false)
	viperCfg.SetDefault("redis.addr", defaultRedisAddr)
	viperCfg.SetDefault("redis.password", "")
	viperCfg.SetDefault("redis.db", 0)
	viperCfg.SetDefault("redis.ttl", "24h")

	// Logging defaults.
	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")

	// Ingest defaults follow the monitoring system's CSV export.
	viperCfg.SetDefault("ingest.delimiter", ";")
	viperCfg.SetDefault("ingest.timestamp_column", "Timestamp")
	viperCfg.SetDefault("ingest.timestamp_format", "02/01/2006 15:04:05")
	viperCfg.SetDefault("ingest.year", 0)
}

// Validate checks every section.
func Validate(config *Config) error {
	if err := config.Analysis.Options().Validate(); err != nil {
		return err
	}

	if config.Server.Port <= 0 || config.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	if config.Engine.Workers < 0 || config.Engine.QueueSize < 0 {
		return fmt.Errorf("%w: workers and queue_size must be non-negative", ErrInvalidEngine)
	}
	if config.Engine.FlagDim < 0 || config.Engine.FlagDim > config.Analysis.MaxDim {
		return fmt.Errorf("%w: flag_dim %d outside 0..%d", ErrInvalidEngine, config.Engine.FlagDim, config.Analysis.MaxDim)
	}

	if len([]rune(config.Ingest.Delimiter)) != 1 {
		return fmt.Errorf("%w: ingest delimiter must be one character", models.ErrInvalidConfig)
	}

	return nil
}
