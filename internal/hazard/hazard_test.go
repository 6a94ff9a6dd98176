package hazard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sells-group/hazard-cli/internal/geo"
	"github.com/sells-group/hazard-cli/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr[T any](v T) *T { return &v }

// sfScenario has an anchor, no mask and no zones, so the footprint is used
// unclipped.
func sfScenario() *model.Scenario {
	return &model.Scenario{
		Location: model.Location{Name: "San Francisco"},
		ImpactSeed: model.ImpactSeed{
			Anchor:   []float64{-122.45, 37.77},
			RadiusKm: ptr(5.0),
			Lobes:    ptr(5),
			Jitter:   ptr(0.3),
		},
	}
}

func squareRing(x, y, size float64) [][]float64 {
	return [][]float64{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}
}

func affectedSum(res *model.HazardResult) int {
	sum := 0
	for _, zi := range res.ImpactByZone {
		sum += zi.AffectedEst
	}
	return sum
}

func TestRun_SanFrancisco(t *testing.T) {
	p := New(DefaultOptions(), nil)
	res, err := p.Run(context.Background(), sfScenario(), nil, NewRNG(42))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Version)
	assert.Equal(t, "none", res.LandMaskSource)
	require.NotNil(t, res.Impact)
	require.Len(t, res.Impact.Features, 1)
	assert.Equal(t, "impact", res.Impact.Features[0].Properties["type"])
	require.True(t, res.HasImpact())

	require.NotEmpty(t, res.GeneratedZones)
	for _, z := range res.GeneratedZones {
		assert.Contains(t, []model.RiskBand{model.RiskBandRed, model.RiskBandOrange, model.RiskBandGreen}, z.RiskBand)
		assert.Equal(t, model.DefaultCutoffMin, res.Cutoffs[z.ID])
		assert.InDelta(t, 1.0, res.ImpactByZone[z.ID].ImpactFraction, 0)
	}
	assert.Len(t, res.GeoJSON.Features, len(res.GeneratedZones))
	assert.Equal(t, affectedSum(res), res.ImpactPopulationTotal)
}

func TestRun_VersionFollowsPrevious(t *testing.T) {
	p := New(DefaultOptions(), nil)
	prev := model.NewHazardResult()
	prev.Version = 4

	res, err := p.Run(context.Background(), sfScenario(), prev, NewRNG(1))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Version)
}

func TestRun_Deterministic(t *testing.T) {
	p := New(DefaultOptions(), nil)
	a, err := p.Run(context.Background(), sfScenario(), nil, NewRNG(9))
	require.NoError(t, err)
	b, err := p.Run(context.Background(), sfScenario(), nil, NewRNG(9))
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
}

func TestRun_MaskMissesFootprint(t *testing.T) {
	s := sfScenario()
	s.LandMask = json.RawMessage(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
		"geometry":{"type":"Polygon","coordinates":[[[10,10],[11,10],[11,11],[10,11],[10,10]]]}}]}`)
	s.Zones = []model.PlanningZone{{ID: "z1", Population: 500, Polygon: squareRing(-122.46, 37.76, 0.01)}}

	res, err := New(DefaultOptions(), nil).Run(context.Background(), s, nil, NewRNG(3))
	require.NoError(t, err)

	assert.Nil(t, res.Impact)
	assert.False(t, res.HasImpact())
	assert.Zero(t, res.ImpactPopulationTotal)
	assert.Empty(t, res.GeneratedZones)
	assert.Empty(t, res.ImpactByZone)
	assert.Equal(t, "scenario", res.LandMaskSource)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"impact":null`)
	assert.Contains(t, string(out), `"generated_zones":[]`)
}

func TestRun_MissingAnchor(t *testing.T) {
	s := &model.Scenario{Zones: []model.PlanningZone{{ID: "z1", Population: 10}}}

	res, err := New(DefaultOptions(), nil).Run(context.Background(), s, nil, NewRNG(1))
	require.NoError(t, err)
	assert.Nil(t, res.Impact)
	assert.Zero(t, res.ImpactPopulationTotal)
	assert.Empty(t, res.Cutoffs)
}

func TestRun_ZonesAndSubzones(t *testing.T) {
	s := sfScenario()
	s.Zones = []model.PlanningZone{
		{ID: "core", Name: "Core", Population: 1000, BaselineRisk: ptr(0.8), CutoffMin: 30,
			Polygon: squareRing(-122.455, 37.765, 0.01)},
		{ID: "nopoly", Population: 200},
		{ID: "broken", Population: 300, Polygon: [][]float64{{-122.45, 37.77}, {-122.44, 37.77}}},
	}

	res, err := New(DefaultOptions(), nil).Run(context.Background(), s, nil, NewRNG(5))
	require.NoError(t, err)
	require.NotNil(t, res.Impact)
	assert.Equal(t, "zone_union", res.LandMaskSource)

	assert.Equal(t, 30, res.Cutoffs["core"])
	assert.Equal(t, model.DefaultCutoffMin, res.Cutoffs["nopoly"])
	assert.Equal(t, model.DefaultCutoffMin, res.Cutoffs["broken"])

	core, ok := res.ImpactByZone["core"]
	require.True(t, ok)
	assert.InDelta(t, 1.0, core.ImpactFraction, 1e-6)
	assert.Equal(t, 1000, core.AffectedEst)
	assert.NotContains(t, res.ImpactByZone, "nopoly")
	assert.NotContains(t, res.ImpactByZone, "broken")

	assert.Equal(t, affectedSum(res), res.ImpactPopulationTotal)
	assert.Greater(t, res.ImpactPopulationTotal, 1000)

	first := res.GeoJSON.Features[0]
	assert.Equal(t, "core", first.Properties["zone"])
	assert.Equal(t, 0.8, first.Properties["severity"])
	assert.Equal(t, "red", first.Properties["risk_band"])
}

func TestRun_SelfIntersectingZoneOnMeridian(t *testing.T) {
	s := &model.Scenario{
		Location: model.Location{Name: "Greenwich"},
		ImpactSeed: model.ImpactSeed{
			Anchor:   []float64{-0.005, 51.48},
			RadiusKm: ptr(5.0),
			Jitter:   ptr(0.2),
		},
		Zones: []model.PlanningZone{{ID: "tie", Population: 400, Polygon: [][]float64{
			{-0.01, 51.475}, {0, 51.485}, {0, 51.475}, {-0.01, 51.485}, {-0.01, 51.475},
		}}},
	}

	res, err := New(DefaultOptions(), nil).Run(context.Background(), s, nil, NewRNG(11))
	require.NoError(t, err)
	require.NotNil(t, res.Impact)
	assert.Equal(t, "zone_union", res.LandMaskSource)

	tie, ok := res.ImpactByZone["tie"]
	require.True(t, ok)
	assert.InDelta(t, 1.0, tie.ImpactFraction, 1e-6)
	assert.Equal(t, 400, tie.AffectedEst)
}

func TestRun_MalformedMask(t *testing.T) {
	s := sfScenario()
	s.LandMask = json.RawMessage(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
		"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,1]]]}}]}`)

	_, err := New(DefaultOptions(), nil).Run(context.Background(), s, nil, NewRNG(1))
	var gerr *geo.GeometryError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "land_mask.features[0]", gerr.Entity)
}

func TestRun_InvalidSeed(t *testing.T) {
	s := sfScenario()
	s.ImpactSeed.RadiusKm = ptr(-1.0)

	_, err := New(DefaultOptions(), nil).Run(context.Background(), s, nil, NewRNG(1))
	var gerr *geo.GeometryError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "impact_seed", gerr.Entity)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultOptions(), nil).Run(ctx, sfScenario(), nil, NewRNG(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_OptionFallbacks(t *testing.T) {
	opts := DefaultOptions()
	opts.CutoffMin = 45
	opts.DensityPerKm2 = 100
	p := New(opts, nil)

	s := sfScenario()
	res, err := p.Run(context.Background(), s, nil, NewRNG(2))
	require.NoError(t, err)
	require.NotEmpty(t, res.GeneratedZones)
	for _, z := range res.GeneratedZones {
		assert.Equal(t, 45, z.CutoffMin)
		assert.InDelta(t, z.AreaKm2*100, float64(z.Population), 1)
	}

	s.Defaults.CutoffMin = 20
	res, err = p.Run(context.Background(), s, nil, NewRNG(2))
	require.NoError(t, err)
	for _, z := range res.GeneratedZones {
		assert.Equal(t, 20, z.CutoffMin)
	}
}
