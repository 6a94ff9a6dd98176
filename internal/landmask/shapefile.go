package landmask

import (
	"math"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/geo"
)

// readShapefile returns the polygon records of a Natural Earth style land
// shapefile that touch aoi. Each record's parts are reassembled into shells and
// holes by nesting.
func readShapefile(path string, aoi *geom.Bounds) ([]*geom.MultiPolygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "landmask: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var parts []*geom.MultiPolygon
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			continue
		}
		if aoi != nil && !boxOverlaps(poly.BBox(), aoi) {
			continue
		}
		mp := shapeToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		parts = append(parts, mp)
	}

	if skipped > 0 {
		zap.L().Debug("landmask: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return parts, nil
}

// shapeToMultiPolygon converts a shapefile polygon record. Parts with too few
// points or non-finite coordinates are dropped; nil means nothing usable remained.
func shapeToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	rings := make([][]geom.Coord, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 4 {
			continue
		}

		coords := make([]geom.Coord, 0, end-start)
		usable := true
		for j := start; j < end; j++ {
			x, y := p.Points[j].X, p.Points[j].Y
			if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
				usable = false
				break
			}
			coords = append(coords, geom.Coord{x, y})
		}
		if usable {
			rings = append(rings, coords)
		}
	}

	mp := geo.Assemble(rings)
	if geo.IsEmpty(mp) {
		return nil
	}
	return mp
}

func boxOverlaps(b shp.Box, aoi *geom.Bounds) bool {
	return b.MinX <= aoi.Max(0) && b.MaxX >= aoi.Min(0) &&
		b.MinY <= aoi.Max(1) && b.MaxY >= aoi.Min(1)
}
