package landmask

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/geo"
)

// fromCache loads the coastline cache from dataDir. The GeoJSON file is
// preferred over the shapefile. Missing or unreadable files count as absent.
func (r *Resolver) fromCache(dataDir string, aoi *geom.Bounds) *geom.MultiPolygon {
	loaders := []struct {
		name string
		load func(string, *geom.Bounds) ([]*geom.MultiPolygon, error)
	}{
		{CoastlineGeoJSON, readGeoJSON},
		{CoastlineShapefile, readShapefile},
	}
	for _, l := range loaders {
		path := filepath.Join(dataDir, l.name)
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.log.Warn("coastline cache not accessible", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		parts, err := l.load(path, aoi)
		if err != nil {
			r.log.Warn("coastline cache unreadable", zap.String("path", path), zap.Error(err))
			continue
		}
		mask, err := clipToArea(parts, aoi)
		if err != nil {
			r.log.Warn("coastline cache geometry rejected", zap.String("path", path), zap.Error(err))
			continue
		}
		if mask != nil {
			return mask
		}
	}
	return nil
}

// readGeoJSON returns the polygonal features of a GeoJSON feature collection
// that touch aoi. Features that fail to decode or validate are skipped.
func readGeoJSON(path string, aoi *geom.Bounds) ([]*geom.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "landmask: read %s", path)
	}
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "landmask: parse %s", path)
	}

	var parts []*geom.MultiPolygon
	skipped := 0
	for _, raw := range fc.Features {
		var f geojson.Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			skipped++
			continue
		}
		mp, ok := polygonal(f.Geometry)
		if !ok {
			continue
		}
		if aoi != nil && !mp.Bounds().Overlaps(geom.XY, aoi) {
			continue
		}
		if geo.Validate("coastline", mp) != nil {
			skipped++
			continue
		}
		parts = append(parts, mp)
	}
	if skipped > 0 {
		zap.L().Debug("landmask: skipped coastline features", zap.String("path", path), zap.Int("skipped", skipped))
	}
	return parts, nil
}

// clipToArea unions parts and, when aoi is set, keeps only the land inside it.
func clipToArea(parts []*geom.MultiPolygon, aoi *geom.Bounds) (*geom.MultiPolygon, error) {
	u, err := unionNonEmpty(parts)
	if err != nil || u == nil {
		return nil, err
	}
	if aoi == nil {
		return u, nil
	}
	box := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{aoi.Min(0), aoi.Min(1)}, {aoi.Max(0), aoi.Min(1)},
		{aoi.Max(0), aoi.Max(1)}, {aoi.Min(0), aoi.Max(1)},
		{aoi.Min(0), aoi.Min(1)},
	}})
	clipped, err := geo.Intersect(u, geo.FromPolygons(box))
	if err != nil {
		return nil, err
	}
	if geo.IsEmpty(clipped) {
		return nil, nil
	}
	return clipped, nil
}
