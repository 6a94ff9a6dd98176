package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLandMask_FromScenario(t *testing.T) {
	fc, err := resolveLandMask(testConfig(t), filepath.Join(scenarioDir, "ocean.yaml"))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	props := fc.Features[0].Properties
	assert.Equal(t, "scenario", props["source"])
	assert.Equal(t, 1, props["polygons"])
	assert.Greater(t, props["area_km2"].(float64), 10000.0)
}

func TestResolveLandMask_NoSource(t *testing.T) {
	fc, err := resolveLandMask(testConfig(t), filepath.Join(scenarioDir, "sf.json"))
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
}

func TestResolveLandMask_LoadError(t *testing.T) {
	_, err := resolveLandMask(testConfig(t), filepath.Join(scenarioDir, "broken.json"))
	assert.Error(t, err)
}
