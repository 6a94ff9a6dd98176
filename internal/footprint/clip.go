package footprint

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/hazard-cli/internal/geo"
)

// ErrDegenerateIntersection is returned by Clip when the footprint does not
// touch land. Callers treat it as "no land impact".
var ErrDegenerateIntersection = eris.New("footprint: no overlap with land mask")

// Clip intersects footprint with landMask. A nil or empty mask leaves the
// footprint unchanged (open-ocean event).
func Clip(footprint, landMask *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	if geo.IsEmpty(landMask) {
		return footprint, nil
	}
	if geo.IsEmpty(footprint) {
		return nil, ErrDegenerateIntersection
	}
	inter, err := geo.Intersect(footprint, landMask)
	if err != nil {
		return nil, err
	}
	if geo.IsEmpty(inter) {
		return nil, ErrDegenerateIntersection
	}
	out, err := geo.Repair(inter)
	if err != nil {
		return nil, err
	}
	if geo.IsEmpty(out) {
		return nil, ErrDegenerateIntersection
	}
	return out, nil
}
