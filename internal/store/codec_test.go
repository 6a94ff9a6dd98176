package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/hazard-cli/internal/model"
)

func TestFootprintRoundTrip(t *testing.T) {
	fp := testFootprint()
	data, err := EncodeFootprint(fp)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := DecodeFootprint(data)
	require.NoError(t, err)
	assert.Equal(t, fp.FlatCoords(), got.FlatCoords())
	assert.Equal(t, fp.Endss(), got.Endss())
	assert.Equal(t, 4326, got.SRID())
	assert.Zero(t, fp.SRID(), "input is not mutated")
}

func TestEncodeFootprint_Empty(t *testing.T) {
	data, err := EncodeFootprint(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = EncodeFootprint(geom.NewMultiPolygon(geom.XY))
	require.NoError(t, err)
	assert.Nil(t, data)

	fp, err := DecodeFootprint(nil)
	require.NoError(t, err)
	assert.Nil(t, fp)
}

func TestDecodeFootprint_Polygon(t *testing.T) {
	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}).SetSRID(4326)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	require.NoError(t, err)

	mp, err := DecodeFootprint(data)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestDecodeFootprint_Errors(t *testing.T) {
	_, err := DecodeFootprint([]byte{0x01, 0x02})
	assert.Error(t, err)

	pt, err := ewkb.Marshal(geom.NewPointFlat(geom.XY, []float64{1, 2}), ewkb.NDR)
	require.NoError(t, err)
	_, err = DecodeFootprint(pt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected type")
}

func TestDecodeResult_Empty(t *testing.T) {
	res, err := decodeResult(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = decodeResult([]byte("{not json"), nil)
	assert.Error(t, err)
}

func TestPrepare_KeepsExplicitFields(t *testing.T) {
	run := &model.Run{ID: "given"}
	prepare(run)
	assert.Equal(t, "given", run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	other := &model.Run{}
	prepare(other)
	assert.Len(t, other.ID, 36)
}
