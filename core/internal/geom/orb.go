package geom

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
)

// BoundPolygon returns the closed five point polygon covering b.
func BoundPolygon(b orb.Bound, srid int) *geom.Polygon {
	flat := []float64{
		b.Min[0], b.Min[1],
		b.Max[0], b.Min[1],
		b.Max[0], b.Max[1],
		b.Min[0], b.Max[1],
		b.Min[0], b.Min[1],
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(srid)
}

// FromOrb converts an orb geometry, usually decoded from GeoJSON, into a
// go-geom value tagged with srid.
func FromOrb(g orb.Geometry, srid int) (geom.T, error) {
	switch v := g.(type) {
	case orb.Point:
		return geom.NewPointFlat(geom.XY, []float64{v[0], v[1]}).SetSRID(srid), nil

	case orb.MultiPoint:
		return geom.NewMultiPointFlat(geom.XY, flatPoints(v)).SetSRID(srid), nil

	case orb.LineString:
		return geom.NewLineStringFlat(geom.XY, flatPoints(v)).SetSRID(srid), nil

	case orb.Ring:
		return geom.NewLineStringFlat(geom.XY, flatPoints(v)).SetSRID(srid), nil

	case orb.MultiLineString:
		var flat []float64
		var ends []int
		for _, ls := range v {
			flat = append(flat, flatPoints(ls)...)
			ends = append(ends, len(flat))
		}
		return geom.NewMultiLineStringFlat(geom.XY, flat, ends).SetSRID(srid), nil

	case orb.Polygon:
		flat, ends := flatPolygon(v)
		return geom.NewPolygonFlat(geom.XY, flat, ends).SetSRID(srid), nil

	case orb.MultiPolygon:
		var flat []float64
		endss := make([][]int, 0, len(v))
		for _, p := range v {
			pf, pe := flatPolygon(p)
			for i := range pe {
				pe[i] += len(flat)
			}
			flat = append(flat, pf...)
			endss = append(endss, pe)
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss).SetSRID(srid), nil

	case orb.Collection:
		gc := geom.NewGeometryCollection()
		for _, c := range v {
			cg, err := FromOrb(c, srid)
			if err != nil {
				return nil, err
			}
			if err := gc.Push(cg); err != nil {
				return nil, err
			}
		}
		return gc.SetSRID(srid), nil

	case orb.Bound:
		return BoundPolygon(v, srid), nil
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
}

func flatPoints[T ~[]orb.Point](pts T) []float64 {
	flat := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		flat = append(flat, p[0], p[1])
	}
	return flat
}

func flatPolygon(p orb.Polygon) ([]float64, []int) {
	var flat []float64
	ends := make([]int, 0, len(p))
	for _, r := range p {
		flat = append(flat, flatPoints(r)...)
		ends = append(ends, len(flat))
	}
	return flat, ends
}
