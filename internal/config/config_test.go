package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/partition"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "hazard.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Empty(t, cfg.DataDir)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.InDelta(t, 0.05, cfg.Hazard.ClipDensifyKm, 1e-9)
	assert.InDelta(t, 0.08, cfg.Hazard.LandMarginKm, 1e-9)
	assert.InDelta(t, 0.7, cfg.Hazard.FootprintPhase, 1e-9)
	assert.Zero(t, cfg.Hazard.FootprintBufferKm)
	assert.Equal(t, 60, cfg.Hazard.Defaults.CutoffMin)
	assert.InDelta(t, 4000, cfg.Hazard.Defaults.DensityPerKm2, 1e-9)
	assert.Equal(t, partition.DefaultPolicy(), cfg.Hazard.Partition)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/hazard
log:
  level: debug
  format: console
data_dir: /var/lib/hazard
batch:
  concurrency: 8
hazard:
  partition:
    lloyd_iterations: 5
    red_threshold: 0.7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/hazard", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/var/lib/hazard", cfg.DataDir)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, 5, cfg.Hazard.Partition.LloydIterations)
	assert.InDelta(t, 0.7, cfg.Hazard.Partition.RedThreshold, 1e-9)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.33, cfg.Hazard.Partition.OrangeThreshold, 1e-9)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HAZARD_STORE_DRIVER", "postgres")
	t.Setenv("HAZARD_LOG_LEVEL", "warn")
	t.Setenv("HAZARD_HAZARD_PARTITION_MAX_CELLS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Hazard.Partition.MaxCells)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HAZARD_DATA_DIR=/from/dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("HAZARD_DATA_DIR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.DataDir)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "hazard.db"
	cfg.Batch.Concurrency = 4
	cfg.Hazard.ClipDensifyKm = 0.05
	cfg.Hazard.Partition = partition.DefaultPolicy()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.Concurrency = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.concurrency must be between 1 and 64")

	cfg.Batch.Concurrency = 65
	assert.Error(t, cfg.Validate())

	cfg.Batch.Concurrency = 64
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Partition(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *partition.Policy)
		want   string
	}{
		{"discard fraction", func(p *partition.Policy) { p.DiscardFraction = 1 }, "discard_fraction"},
		{"negative weight", func(p *partition.Policy) { p.EdgeWeight = -0.1 }, "weights"},
		{"zero edge distance", func(p *partition.Policy) { p.EdgeDistanceKm = 0 }, "edge_distance_km"},
		{"inverted thresholds", func(p *partition.Policy) { p.OrangeThreshold = 0.9 }, "thresholds"},
		{"negative iterations", func(p *partition.Policy) { p.LloydIterations = -1 }, "counts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(&cfg.Hazard.Partition)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ClipDensify(t *testing.T) {
	cfg := validDefaults()
	cfg.Hazard.ClipDensifyKm = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clip_densify_km")
}
