package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/hazard-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testFootprint() *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{-122.46, 37.76}, {-122.44, 37.76}, {-122.44, 37.78}, {-122.46, 37.78}, {-122.46, 37.76}}},
		{{{-122.40, 37.70}, {-122.39, 37.70}, {-122.39, 37.71}, {-122.40, 37.70}}},
	})
}

func testResult(version int) *model.HazardResult {
	res := model.NewHazardResult()
	res.Version = version
	res.Footprint = testFootprint()
	res.Impact = &geojson.FeatureCollection{Features: []*geojson.Feature{{
		Geometry:   res.Footprint,
		Properties: map[string]interface{}{"type": "impact"},
	}}}
	res.Cutoffs["z1"] = 60
	res.Cutoffs["auto-1"] = 60
	res.ImpactByZone["z1"] = model.ZoneImpact{Population: 1000, AffectedEst: 500, ImpactFraction: 0.5}
	res.ImpactByZone["auto-1"] = model.ZoneImpact{Population: 120, AffectedEst: 120, ImpactFraction: 1}
	res.ImpactPopulationTotal = 620
	res.GeneratedZones = append(res.GeneratedZones, model.GeneratedSubzone{
		ID: "auto-1", Name: "Impact Subzone 1", Label: 1, Population: 120, Risk: 0.7,
		RiskBand: model.RiskBandRed, CutoffMin: 60, Generated: true,
		Polygon:  [][]float64{{-122.46, 37.76}, {-122.45, 37.76}, {-122.45, 37.77}, {-122.46, 37.76}},
		Centroid: []float64{-122.455, 37.765},
	})
	res.LandMaskSource = "scenario"
	return res
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := &model.Run{ScenarioName: "sf", Seed: 1 << 63, Status: model.RunStatusComplete, Result: testResult(3)}
	require.NoError(t, st.SaveRun(ctx, run))
	require.NotEmpty(t, run.ID)
	require.False(t, run.CreatedAt.IsZero())

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "sf", got.ScenarioName)
	assert.Equal(t, uint64(1<<63), got.Seed)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Empty(t, got.Error)

	require.NotNil(t, got.Result)
	assert.Equal(t, 3, got.Result.Version)
	assert.Equal(t, 620, got.Result.ImpactPopulationTotal)
	assert.Equal(t, run.Result.ImpactByZone, got.Result.ImpactByZone)
	assert.Equal(t, run.Result.GeneratedZones, got.Result.GeneratedZones)
	assert.Equal(t, "scenario", got.Result.LandMaskSource)
	require.NotNil(t, got.Result.Impact)
	assert.Len(t, got.Result.Impact.Features, 1)

	require.NotNil(t, got.Result.Footprint)
	assert.Equal(t, testFootprint().FlatCoords(), got.Result.Footprint.FlatCoords())
	assert.Equal(t, testFootprint().Endss(), got.Result.Footprint.Endss())
	assert.Equal(t, 4326, got.Result.Footprint.SRID())
}

func TestSQLite_SaveFailedRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := &model.Run{ScenarioName: "bad", Status: model.RunStatusFailed, Error: "geo: impact_seed: radius must be positive"}
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Result)
	assert.Equal(t, run.Error, got.Error)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SaveRun_DuplicateID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := &model.Run{ID: "fixed", ScenarioName: "sf", Status: model.RunStatusNoImpact}
	require.NoError(t, st.SaveRun(ctx, run))
	err := st.SaveRun(ctx, &model.Run{ID: "fixed", ScenarioName: "sf", Status: model.RunStatusNoImpact})
	assert.Error(t, err)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, r := range []model.Run{
		{ScenarioName: "sf", Status: model.RunStatusComplete},
		{ScenarioName: "sf", Status: model.RunStatusFailed, Error: "boom"},
		{ScenarioName: "la", Status: model.RunStatusNoImpact},
		{ScenarioName: "sf", Status: model.RunStatusComplete},
	} {
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.SaveRun(ctx, &r))
	}

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].CreatedAt.After(all[3].CreatedAt), "newest first")

	sf, err := st.ListRuns(ctx, RunFilter{ScenarioName: "sf"})
	require.NoError(t, err)
	assert.Len(t, sf, 3)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "la", page[0].ScenarioName)

	recent, err := st.ListRuns(ctx, RunFilter{CreatedAfter: base.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestSQLite_LatestRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	none, err := st.LatestRun(ctx, "sf")
	require.NoError(t, err)
	assert.Nil(t, none)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveRun(ctx, &model.Run{ScenarioName: "sf", Status: model.RunStatusComplete,
		Result: testResult(1), CreatedAt: base}))
	require.NoError(t, st.SaveRun(ctx, &model.Run{ScenarioName: "sf", Status: model.RunStatusComplete,
		Result: testResult(2), CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, st.SaveRun(ctx, &model.Run{ScenarioName: "sf", Status: model.RunStatusFailed,
		Error: "boom", CreatedAt: base.Add(2 * time.Minute)}))

	latest, err := st.LatestRun(ctx, "sf")
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.NotNil(t, latest.Result)
	assert.Equal(t, 2, latest.Result.Version)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	st, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, st)
	require.NoError(t, st.Close())

	_, err = Open(context.Background(), "mysql", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
