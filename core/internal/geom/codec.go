// Package geom converts geometry values to and from the text and binary forms
// SQL Server understands.
package geom

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
)

var (
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrMalformed           = errors.New("malformed geometry")
)

// T is a geometry value.
type T = geom.T

// DecodeError reports a geometry column whose value could not be decoded.
type DecodeError struct {
	Column string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding geometry column %q: %s", e.Column, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Codec encodes and decodes geometry column values. The zero value uses WKB.
type Codec struct {
	// Native selects the SQL Server CLR serialization instead of WKB
	Native bool
}

// Encode returns the binary form of g. The geometry is first normalized
// to XY or XYZ based on the data it carries.
func (c Codec) Encode(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	g, err := Normalize(g)
	if err != nil {
		return nil, err
	}
	if c.Native {
		return marshalNative(g)
	}
	return wkb.Marshal(g, wkb.NDR)
}

// Decode parses a column value. A nil value is an absent geometry and
// decodes to nil without error. srid is applied to WKB values which do
// not carry one.
func (c Codec) Decode(column string, b []byte, srid int) (geom.T, error) {
	if b == nil {
		return nil, nil
	}

	var g geom.T
	var err error

	if c.Native {
		g, err = unmarshalNative(b)
	} else {
		g, err = wkb.Unmarshal(b)
		if err == nil {
			g, err = SetSRID(g, srid)
		}
	}

	if err != nil {
		return nil, &DecodeError{Column: column, Err: err}
	}
	return g, nil
}

// Is3D reports whether any coordinate reachable from g has a real Z value.
func Is3D(g geom.T) bool {
	if g == nil {
		return false
	}
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for _, c := range gc.Geoms() {
			if Is3D(c) {
				return true
			}
		}
		return false
	}

	zi := g.Layout().ZIndex()
	if zi == -1 {
		return false
	}

	stride := g.Stride()
	flat := g.FlatCoords()
	for i := zi; i < len(flat); i += stride {
		if !math.IsNaN(flat[i]) {
			return true
		}
	}
	return false
}

// Normalize returns g laid out as XYZ when it carries Z data and XY
// otherwise. Measures are dropped. LinearRings become LineStrings.
func Normalize(g geom.T) (geom.T, error) {
	l := geom.XY
	if Is3D(g) {
		l = geom.XYZ
	}
	return relayout(g, l)
}

func relayout(g geom.T, l geom.Layout) (geom.T, error) {
	switch g := g.(type) {
	case *geom.Point:
		if g.Empty() {
			return geom.NewPointEmpty(l).SetSRID(g.SRID()), nil
		}
		return geom.NewPointFlat(l, restride(g, l)).SetSRID(g.SRID()), nil

	case *geom.LineString:
		return geom.NewLineStringFlat(l, restride(g, l)).SetSRID(g.SRID()), nil

	case *geom.LinearRing:
		return geom.NewLineStringFlat(l, restride(g, l)).SetSRID(g.SRID()), nil

	case *geom.Polygon:
		return geom.NewPolygonFlat(l, restride(g, l), rescale(g.Ends(), g.Stride(), l.Stride())).SetSRID(g.SRID()), nil

	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(l, restride(g, l)).SetSRID(g.SRID()), nil

	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(l, restride(g, l), rescale(g.Ends(), g.Stride(), l.Stride())).SetSRID(g.SRID()), nil

	case *geom.MultiPolygon:
		endss := make([][]int, len(g.Endss()))
		for i, ends := range g.Endss() {
			endss[i] = rescale(ends, g.Stride(), l.Stride())
		}
		return geom.NewMultiPolygonFlat(l, restride(g, l), endss).SetSRID(g.SRID()), nil

	case *geom.GeometryCollection:
		gc := geom.NewGeometryCollection()
		for _, c := range g.Geoms() {
			nc, err := relayout(c, l)
			if err != nil {
				return nil, err
			}
			if err := gc.Push(nc); err != nil {
				return nil, err
			}
		}
		return gc.SetSRID(g.SRID()), nil
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
}

// restride copies the flat coordinates of g into layout l. Missing
// Z ordinates are filled with NaN.
func restride(g geom.T, l geom.Layout) []float64 {
	src := g.FlatCoords()
	from := g.Stride()
	to := l.Stride()
	zi := g.Layout().ZIndex()

	if from == to && g.Layout() == l {
		return append([]float64(nil), src...)
	}

	n := len(src) / from
	out := make([]float64, 0, n*to)
	for i := 0; i < n; i++ {
		c := src[i*from : (i+1)*from]
		out = append(out, c[0], c[1])
		if to == 3 {
			if zi == -1 {
				out = append(out, math.NaN())
			} else {
				out = append(out, c[zi])
			}
		}
	}
	return out
}

func rescale(ends []int, from, to int) []int {
	out := make([]int, len(ends))
	for i, e := range ends {
		out[i] = e / from * to
	}
	return out
}

// SetSRID returns g tagged with srid.
func SetSRID(g geom.T, srid int) (geom.T, error) {
	switch g := g.(type) {
	case *geom.Point:
		return g.SetSRID(srid), nil
	case *geom.LineString:
		return g.SetSRID(srid), nil
	case *geom.LinearRing:
		return g.SetSRID(srid), nil
	case *geom.Polygon:
		return g.SetSRID(srid), nil
	case *geom.MultiPoint:
		return g.SetSRID(srid), nil
	case *geom.MultiLineString:
		return g.SetSRID(srid), nil
	case *geom.MultiPolygon:
		return g.SetSRID(srid), nil
	case *geom.GeometryCollection:
		return g.SetSRID(srid), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
}

// SQL Server rejects the Z/M dimension tags in well-known text, the
// ordinate count alone decides the dimension.
var dimTag = regexp.MustCompile(`([A-Z]) (?:ZM|Z|M) `)

// WKT renders g as well-known text in the dimension its data carries.
func WKT(g geom.T) (string, error) {
	g, err := Normalize(g)
	if err != nil {
		return "", err
	}
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", err
	}
	s = dimTag.ReplaceAllString(s, "$1 ")

	// mixed 3D data, a missing Z is written as NULL
	return strings.ReplaceAll(s, "NaN", "NULL"), nil
}

// Literal renders g as a SQL Server geometry constructor.
func Literal(g geom.T, srid int) (string, error) {
	s, err := WKT(g)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(`geometry::STGeomFromText('`)
	sb.WriteString(s)
	sb.WriteString(`', `)
	sb.WriteString(strconv.Itoa(srid))
	sb.WriteString(`)`)
	return sb.String(), nil
}
