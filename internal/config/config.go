package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/hazard-cli/internal/partition"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	DataDir string        `yaml:"data_dir" mapstructure:"data_dir"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Hazard  HazardConfig  `yaml:"hazard" mapstructure:"hazard"`
}

// StoreConfig configures the run store. For sqlite DatabaseURL is a file
// path; for postgres it is a connection string.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// MetricsConfig configures metric export. An empty Textfile disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// HazardConfig tunes the pipeline.
type HazardConfig struct {
	ClipDensifyKm     float64          `yaml:"clip_densify_km" mapstructure:"clip_densify_km"`
	LandMarginKm      float64          `yaml:"land_margin_km" mapstructure:"land_margin_km"`
	AOIPadKm          float64          `yaml:"aoi_pad_km" mapstructure:"aoi_pad_km"`
	FootprintPhase    float64          `yaml:"footprint_phase" mapstructure:"footprint_phase"`
	FootprintBufferKm float64          `yaml:"footprint_buffer_km" mapstructure:"footprint_buffer_km"`
	Defaults          DefaultsConfig   `yaml:"defaults" mapstructure:"defaults"`
	Partition         partition.Policy `yaml:"partition" mapstructure:"partition"`
}

// DefaultsConfig supplies values for scenarios that leave them unset.
type DefaultsConfig struct {
	DensityPerKm2 float64 `yaml:"density_per_km2" mapstructure:"density_per_km2"`
	CutoffMin     int     `yaml:"cutoff_min" mapstructure:"cutoff_min"`
	TargetKm2     float64 `yaml:"target_km2" mapstructure:"target_km2"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. A .env file in the
// working directory, when present, seeds the environment first; variables
// already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("no .env file loaded", zap.Error(err))
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HAZARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "hazard.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("data_dir", "")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("hazard.clip_densify_km", 0.05)
	v.SetDefault("hazard.land_margin_km", 0.08)
	v.SetDefault("hazard.aoi_pad_km", 2.0)
	v.SetDefault("hazard.footprint_phase", 0.7)
	v.SetDefault("hazard.footprint_buffer_km", 0.0)
	v.SetDefault("hazard.defaults.density_per_km2", 4000.0)
	v.SetDefault("hazard.defaults.cutoff_min", 60)
	v.SetDefault("hazard.defaults.target_km2", 0.6)

	p := partition.DefaultPolicy()
	v.SetDefault("hazard.partition.discard_fraction", p.DiscardFraction)
	v.SetDefault("hazard.partition.edge_weight", p.EdgeWeight)
	v.SetDefault("hazard.partition.density_weight", p.DensityWeight)
	v.SetDefault("hazard.partition.edge_distance_km", p.EdgeDistanceKm)
	v.SetDefault("hazard.partition.density_norm_per_km2", p.DensityNormPerKm2)
	v.SetDefault("hazard.partition.red_threshold", p.RedThreshold)
	v.SetDefault("hazard.partition.orange_threshold", p.OrangeThreshold)
	v.SetDefault("hazard.partition.lloyd_iterations", p.LloydIterations)
	v.SetDefault("hazard.partition.seed_densify_km", p.SeedDensifyKm)
	v.SetDefault("hazard.partition.interior_retries", p.InteriorRetries)
	v.SetDefault("hazard.partition.max_cells", p.MaxCells)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks value ranges. All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		errs = append(errs, "batch.concurrency must be between 1 and 64")
	}

	h := c.Hazard
	if h.ClipDensifyKm <= 0 {
		errs = append(errs, "hazard.clip_densify_km must be > 0")
	}
	if h.LandMarginKm < 0 || h.AOIPadKm < 0 || h.FootprintBufferKm < 0 {
		errs = append(errs, "hazard distances must be >= 0")
	}
	if h.Defaults.DensityPerKm2 < 0 || h.Defaults.CutoffMin < 0 || h.Defaults.TargetKm2 < 0 {
		errs = append(errs, "hazard.defaults values must be >= 0")
	}

	p := h.Partition
	if p.DiscardFraction < 0 || p.DiscardFraction >= 1 {
		errs = append(errs, "hazard.partition.discard_fraction must be in [0, 1)")
	}
	if p.EdgeWeight < 0 || p.DensityWeight < 0 {
		errs = append(errs, "hazard.partition weights must be >= 0")
	}
	if p.EdgeDistanceKm <= 0 || p.DensityNormPerKm2 <= 0 || p.SeedDensifyKm <= 0 {
		errs = append(errs, "hazard.partition edge_distance_km, density_norm_per_km2 and seed_densify_km must be > 0")
	}
	if p.OrangeThreshold < 0 || p.OrangeThreshold > p.RedThreshold || p.RedThreshold > 1 {
		errs = append(errs, "hazard.partition thresholds must satisfy 0 <= orange <= red <= 1")
	}
	if p.LloydIterations < 0 || p.InteriorRetries < 0 || p.MaxCells < 0 {
		errs = append(errs, "hazard.partition counts must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
