package geom_test

import (
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"github.com/dosco/sqlgeo/core/internal/geom"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gg "github.com/twpayne/go-geom"
)

func square() *gg.Polygon {
	return gg.NewPolygonFlat(gg.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10})
}

func TestIs3D(t *testing.T) {
	nan := math.NaN()
	gc := gg.NewGeometryCollection()
	require.NoError(t, gc.Push(gg.NewPointFlat(gg.XY, []float64{1, 2})))
	require.NoError(t, gc.Push(gg.NewPointFlat(gg.XYZ, []float64{1, 2, 3})))

	tests := []struct {
		name string
		g    gg.T
		want bool
	}{
		{"xy point", gg.NewPointFlat(gg.XY, []float64{1, 2}), false},
		{"xyz point", gg.NewPointFlat(gg.XYZ, []float64{1, 2, 3}), true},
		{"xyz all nan", gg.NewLineStringFlat(gg.XYZ, []float64{0, 0, nan, 1, 1, nan}), false},
		{"xyz one real z", gg.NewLineStringFlat(gg.XYZ, []float64{0, 0, nan, 1, 1, 7}), true},
		{"xym", gg.NewPointFlat(gg.XYM, []float64{1, 2, 3}), false},
		{"collection", gc, true},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geom.Is3D(tt.g))
		})
	}
}

func TestWKT(t *testing.T) {
	tests := []struct {
		name string
		g    gg.T
		want string
	}{
		{"polygon", square(), "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))"},
		{"point z", gg.NewPointFlat(gg.XYZ, []float64{1, 2, 3}), "POINT (1 2 3)"},
		{"point nan z", gg.NewPointFlat(gg.XYZ, []float64{1, 2, math.NaN()}), "POINT (1 2)"},
		{"linear ring", gg.NewLinearRingFlat(gg.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}), "LINESTRING (0 0, 1 0, 1 1, 0 0)"},
		{"mixed z", gg.NewLineStringFlat(gg.XYZ, []float64{0, 0, 1, 1, 1, math.NaN()}), "LINESTRING (0 0 1, 1 1 NULL)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := geom.WKT(tt.g)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestLiteral(t *testing.T) {
	s, err := geom.Literal(gg.NewPointFlat(gg.XY, []float64{1.5, -2}), 4326)
	require.NoError(t, err)
	assert.Equal(t, "geometry::STGeomFromText('POINT (1.5 -2)', 4326)", s)

	s, err = geom.Literal(geom.BoundPolygon(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}, 0), 4326)
	require.NoError(t, err)
	assert.Equal(t, "geometry::STGeomFromText('POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))', 4326)", s)
}

func roundTripCases(t *testing.T) map[string]gg.T {
	gc := gg.NewGeometryCollection()
	require.NoError(t, gc.Push(
		gg.NewPointFlat(gg.XY, []float64{1, 2}),
		gg.NewLineStringFlat(gg.XY, []float64{0, 0, 1, 1, 2, 0}),
	))

	return map[string]gg.T{
		"point":       gg.NewPointFlat(gg.XY, []float64{1, 2}).SetSRID(4326),
		"point z":     gg.NewPointFlat(gg.XYZ, []float64{1, 2, 3}).SetSRID(4326),
		"point nan z": gg.NewPointFlat(gg.XYZ, []float64{1, 2, math.NaN()}).SetSRID(4326),
		"segment":     gg.NewLineStringFlat(gg.XY, []float64{0, 0, 5, 5}).SetSRID(4326),
		"linestring":  gg.NewLineStringFlat(gg.XYZ, []float64{0, 0, 1, 1, 1, 2, 2, 0, 3}).SetSRID(4326),
		"polygon hole": gg.NewPolygonFlat(gg.XY,
			[]float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0, 2, 2, 4, 2, 4, 4, 2, 2},
			[]int{10, 18}).SetSRID(4326),
		"multipoint": gg.NewMultiPointFlat(gg.XY, []float64{1, 1, 2, 2, 3, 3}).SetSRID(4326),
		"multilinestring": gg.NewMultiLineStringFlat(gg.XY,
			[]float64{0, 0, 1, 1, 5, 5, 6, 6, 7, 5},
			[]int{4, 10}).SetSRID(4326),
		"multipolygon": gg.NewMultiPolygonFlat(gg.XY,
			[]float64{0, 0, 1, 0, 1, 1, 0, 0, 5, 5, 6, 5, 6, 6, 5, 5},
			[][]int{{8}, {16}}).SetSRID(4326),
		"collection": gc.SetSRID(4326),
	}
}

func TestRoundTrip(t *testing.T) {
	for _, native := range []bool{false, true} {
		codec := geom.Codec{Native: native}

		for name, g := range roundTripCases(t) {
			t.Run(name, func(t *testing.T) {
				b, err := codec.Encode(g)
				require.NoError(t, err)

				got, err := codec.Decode("geom", b, 4326)
				require.NoError(t, err)

				want, err := geom.Normalize(g)
				require.NoError(t, err)

				assert.Equal(t, want.Layout(), got.Layout())
				assert.Equal(t, geom.Is3D(g), geom.Is3D(got))
				assert.Equal(t, 4326, got.SRID())

				ws, err := geom.WKT(want)
				require.NoError(t, err)
				gs, err := geom.WKT(got)
				require.NoError(t, err)
				assert.Equal(t, ws, gs)
			})
		}
	}
}

func TestNativeSinglePoint(t *testing.T) {
	b, err := geom.Codec{Native: true}.Encode(gg.NewPointFlat(gg.XY, []float64{1, 2}).SetSRID(4326))
	require.NoError(t, err)

	// srid 4326, version 1, valid + single point, x=1, y=2
	assert.Equal(t, "e6100000010c"+"000000000000f03f"+"0000000000000040", hex.EncodeToString(b))
}

func TestNativeEmptyPoint(t *testing.T) {
	codec := geom.Codec{Native: true}

	b, err := codec.Encode(gg.NewPointEmpty(gg.XY).SetSRID(0))
	require.NoError(t, err)

	got, err := codec.Decode("geom", b, 0)
	require.NoError(t, err)

	p, ok := got.(*gg.Point)
	require.True(t, ok)
	assert.True(t, p.Empty())
}

func TestDecodeNull(t *testing.T) {
	for _, native := range []bool{false, true} {
		g, err := geom.Codec{Native: native}.Decode("geom", nil, 4326)
		assert.NoError(t, err)
		assert.Nil(t, g)
	}
}

func TestDecodeErrorNamesColumn(t *testing.T) {
	tests := []struct {
		name   string
		native bool
		b      []byte
	}{
		{"wkb garbage", false, []byte{0x01, 0x02}},
		{"native truncated header", true, []byte{0xe6, 0x10}},
		{"native bad version", true, []byte{0xe6, 0x10, 0, 0, 9, 0x04}},
		{"native huge count", true, []byte{0xe6, 0x10, 0, 0, 1, 0x04, 0xff, 0xff, 0xff, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geom.Codec{Native: tt.native}.Decode("the_geom", tt.b, 0)
			require.Error(t, err)

			var de *geom.DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "the_geom", de.Column)
			assert.Contains(t, err.Error(), `"the_geom"`)
		})
	}
}

func TestFromOrb(t *testing.T) {
	g, err := geom.FromOrb(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, 4326)
	require.NoError(t, err)
	assert.Equal(t, 4326, g.SRID())

	s, err := geom.WKT(g)
	require.NoError(t, err)
	assert.Equal(t, "POLYGON ((0 0, 1 0, 1 1, 0 0))", s)

	g, err = geom.FromOrb(orb.MultiPolygon{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}},
	}, 0)
	require.NoError(t, err)

	s, err = geom.WKT(g)
	require.NoError(t, err)
	assert.Equal(t, "MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)), ((5 5, 6 5, 6 6, 5 5)))", s)
}
