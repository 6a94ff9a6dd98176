package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sfJSON = `{
  "location": {"name": "San Francisco", "center": [-122.45, 37.77]},
  "event": {"type": "tsunami", "eta_min": 45},
  "zones": [
    {"id": "z1", "name": "Marina", "population": 12000, "baseline_risk": 0.7, "cutoff_min": 30,
     "polygon": [[-122.45, 37.80], [-122.43, 37.80], [-122.43, 37.81], [-122.45, 37.81], [-122.45, 37.80]]}
  ],
  "shelters": [{"id": "s1", "capacity": 500}],
  "impact_seed": {"coastline_anchor": [-122.45, 37.77], "radius_km": 5, "lobes": 5, "jitter": 0.3},
  "auto_subzones": {"target_km2": 0.6},
  "defaults": {"density_per_km2": 4000, "cutoff_min": 60},
  "land_mask": {"type": "FeatureCollection", "features": []}
}`

const sfYAML = `
location:
  name: San Francisco
  center: [-122.45, 37.77]
zones:
  - id: z1
    name: Marina
    population: 12000
    baseline_risk: 0.7
    polygon:
      - [-122.45, 37.80]
      - [-122.43, 37.80]
      - [-122.43, 37.81]
      - [-122.45, 37.81]
impact_seed:
  coastline_anchor: [-122.45, 37.77]
  radius_km: 5
land_mask:
  type: FeatureCollection
  features:
    - type: Feature
      properties: {}
      geometry:
        type: Polygon
        coordinates: [[[-123, 37], [-122, 37], [-122, 38], [-123, 38], [-123, 37]]]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	s, err := Load(writeFile(t, "sf.json", sfJSON))
	require.NoError(t, err)

	assert.Equal(t, "San Francisco", s.Location.Name)
	assert.Equal(t, 45, s.Event.EtaMin)
	require.Len(t, s.Zones, 1)
	assert.Equal(t, "z1", s.Zones[0].ID)
	assert.InDelta(t, 0.7, s.Zones[0].Baseline(), 1e-12)
	assert.Len(t, s.Zones[0].Polygon, 5)
	assert.Len(t, s.Shelters, 1)
	assert.Equal(t, 5.0, s.ImpactSeed.Radius())
	assert.NotEmpty(t, s.LandMask)

	lon, lat, ok := s.AnchorPoint()
	require.True(t, ok)
	assert.Equal(t, -122.45, lon)
	assert.Equal(t, 37.77, lat)
}

func TestLoad_YAML(t *testing.T) {
	s, err := Load(writeFile(t, "sf.yaml", sfYAML))
	require.NoError(t, err)

	require.Len(t, s.Zones, 1)
	assert.Equal(t, 12000, s.Zones[0].Population)
	assert.Len(t, s.Zones[0].Polygon, 4)
	assert.Contains(t, string(s.LandMask), `"FeatureCollection"`)
	assert.Contains(t, string(s.LandMask), `"Polygon"`)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario: read")

	_, err = Load(writeFile(t, "bad.json", `{"zones": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario: parse json")

	_, err = Load(writeFile(t, "bad.yml", "zones: [\n  - id: a\n   bad"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario: parse yaml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "ok", doc: `{"zones":[{"id":"a"},{"id":"b"}]}`},
		{name: "missing id", doc: `{"zones":[{"name":"x"}]}`, wantErr: "zones[0] has no id"},
		{name: "duplicate id", doc: `{"zones":[{"id":"a"},{"id":"a"}]}`, wantErr: `repeats id "a"`},
		{name: "negative population", doc: `{"zones":[{"id":"a","population":-1}]}`, wantErr: "negative population"},
		{name: "baseline out of range", doc: `{"zones":[{"id":"a","baseline_risk":1.5}]}`, wantErr: "outside [0,1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.doc))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestName(t *testing.T) {
	s, err := ParseJSON([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "coastal", Name(s, "/tmp/coastal.json"))

	s.Location.Name = "Oakland"
	assert.Equal(t, "Oakland", Name(s, "/tmp/coastal.json"))
}
