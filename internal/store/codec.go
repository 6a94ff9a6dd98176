package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/hazard-cli/internal/model"
)

const srid = 4326

// prepare fills the generated fields of a run about to be inserted.
func prepare(run *model.Run) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
}

// encodeResult returns the result JSON and footprint EWKB of run. Both are nil
// when the run has no result; the footprint is nil when there was no impact.
func encodeResult(run *model.Run) (result, footprint []byte, version int, err error) {
	if run.Result == nil {
		return nil, nil, 0, nil
	}
	result, err = json.Marshal(run.Result)
	if err != nil {
		return nil, nil, 0, eris.Wrap(err, "store: marshal result")
	}
	footprint, err = EncodeFootprint(run.Result.Footprint)
	if err != nil {
		return nil, nil, 0, err
	}
	return result, footprint, run.Result.Version, nil
}

// decodeResult rebuilds a HazardResult from its stored columns.
func decodeResult(result, footprint []byte) (*model.HazardResult, error) {
	if len(result) == 0 {
		return nil, nil
	}
	var r model.HazardResult
	if err := json.Unmarshal(result, &r); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal result")
	}
	fp, err := DecodeFootprint(footprint)
	if err != nil {
		return nil, err
	}
	r.Footprint = fp
	return &r, nil
}

// EncodeFootprint marshals mp as little-endian EWKB with SRID 4326. An empty
// footprint encodes to nil.
func EncodeFootprint(mp *geom.MultiPolygon) ([]byte, error) {
	if mp == nil || mp.NumPolygons() == 0 {
		return nil, nil
	}
	g := geom.NewMultiPolygonFlat(mp.Layout(), mp.FlatCoords(), mp.Endss()).SetSRID(srid)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode footprint")
	}
	return data, nil
}

// DecodeFootprint parses EWKB written by EncodeFootprint. Nil input decodes to
// a nil footprint.
func DecodeFootprint(data []byte) (*geom.MultiPolygon, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode footprint")
	}
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t, nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(t.Layout()).SetSRID(t.SRID())
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrap(err, "store: decode footprint")
		}
		return mp, nil
	default:
		return nil, eris.Errorf("store: footprint has unexpected type %T", g)
	}
}
