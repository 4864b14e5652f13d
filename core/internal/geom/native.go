package geom

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// SQL Server CLR geometry serialization.
// Layout: srid(int32) version(byte) flags(byte) then either a short form
// (single point / single segment) or the full points, figures and shapes
// arrays. All values are little endian.

const (
	flagHasZ          = 0x01
	flagHasM          = 0x02
	flagIsValid       = 0x04
	flagSinglePoint   = 0x08
	flagSingleSegment = 0x10
)

const (
	figInteriorRing = 0
	figStroke       = 1
	figExteriorRing = 2
)

const (
	shapePoint              = 1
	shapeLineString         = 2
	shapePolygon            = 3
	shapeMultiPoint         = 4
	shapeMultiLineString    = 5
	shapeMultiPolygon       = 6
	shapeGeometryCollection = 7
)

type figure struct {
	attr   byte
	offset int32
}

type shape struct {
	parent int32
	figure int32
	kind   byte
}

type nativeWriter struct {
	hasZ    bool
	xy      []float64
	z       []float64
	figures []figure
	shapes  []shape
}

// marshalNative expects g to be normalized to XY or XYZ.
func marshalNative(g geom.T) ([]byte, error) {
	w := &nativeWriter{hasZ: g.Layout() == geom.XYZ}

	flags := byte(flagIsValid)
	if w.hasZ {
		flags |= flagHasZ
	}

	switch v := g.(type) {
	case *geom.Point:
		if !v.Empty() {
			flags |= flagSinglePoint
			w.addPoints(v.FlatCoords(), v.Stride())
			return w.short(g.SRID(), flags), nil
		}
	case *geom.LineString:
		if v.NumCoords() == 2 {
			flags |= flagSingleSegment
			w.addPoints(v.FlatCoords(), v.Stride())
			return w.short(g.SRID(), flags), nil
		}
	}

	if err := w.addShape(g, -1); err != nil {
		return nil, err
	}
	return w.full(g.SRID(), flags), nil
}

func (w *nativeWriter) addPoints(flat []float64, stride int) {
	for i := 0; i+stride <= len(flat); i += stride {
		w.xy = append(w.xy, flat[i], flat[i+1])
		if w.hasZ {
			w.z = append(w.z, flat[i+2])
		}
	}
}

func (w *nativeWriter) addFigure(attr byte, flat []float64, stride int) {
	w.figures = append(w.figures, figure{attr: attr, offset: int32(len(w.xy) / 2)})
	w.addPoints(flat, stride)
}

func (w *nativeWriter) addShape(g geom.T, parent int32) error {
	idx := int32(len(w.shapes))
	start := int32(len(w.figures))

	switch v := g.(type) {
	case *geom.Point:
		w.shapes = append(w.shapes, shape{parent: parent, figure: -1, kind: shapePoint})
		if !v.Empty() {
			w.addFigure(figStroke, v.FlatCoords(), v.Stride())
		}

	case *geom.LineString:
		w.shapes = append(w.shapes, shape{parent: parent, figure: -1, kind: shapeLineString})
		if v.NumCoords() != 0 {
			w.addFigure(figStroke, v.FlatCoords(), v.Stride())
		}

	case *geom.Polygon:
		w.shapes = append(w.shapes, shape{parent: parent, figure: -1, kind: shapePolygon})
		for i := 0; i < v.NumLinearRings(); i++ {
			r := v.LinearRing(i)
			attr := byte(figInteriorRing)
			if i == 0 {
				attr = figExteriorRing
			}
			w.addFigure(attr, r.FlatCoords(), r.Stride())
		}

	case *geom.MultiPoint:
		w.shapes = append(w.shapes, shape{parent: parent, figure: -1, kind: shapeMultiPoint})
		for i := 0; i < v.NumPoints(); i++ {
			if err := w.addShape(v.Point(i), idx); err != nil {
				return err
			}
		}

	case *geom.MultiLineString:
		w.shapes = append(w.shapes, shape{parent: parent, figure: -1, kind: shapeMultiLineString})
		for i := 0; i < v.NumLineStrings(); i++ {
			if err := w.addShape(v.LineString(i), idx); err != nil {
				return err
			}
		}

	case *geom.MultiPolygon:
		w.shapes = append(w.shapes, shape{parent: parent, figure: -1, kind: shapeMultiPolygon})
		for i := 0; i < v.NumPolygons(); i++ {
			if err := w.addShape(v.Polygon(i), idx); err != nil {
				return err
			}
		}

	case *geom.GeometryCollection:
		w.shapes = append(w.shapes, shape{parent: parent, figure: -1, kind: shapeGeometryCollection})
		for _, c := range v.Geoms() {
			if err := w.addShape(c, idx); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}

	if int32(len(w.figures)) > start {
		w.shapes[idx].figure = start
	}
	return nil
}

func (w *nativeWriter) header(b []byte, srid int, flags byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(int32(srid)))
	return append(b, 1, flags)
}

func (w *nativeWriter) coords(b []byte) []byte {
	for _, f := range w.xy {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(f))
	}
	for _, f := range w.z {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(f))
	}
	return b
}

func (w *nativeWriter) short(srid int, flags byte) []byte {
	b := make([]byte, 0, 6+8*(len(w.xy)+len(w.z)))
	b = w.header(b, srid, flags)
	return w.coords(b)
}

func (w *nativeWriter) full(srid int, flags byte) []byte {
	b := make([]byte, 0, 18+8*(len(w.xy)+len(w.z))+5*len(w.figures)+9*len(w.shapes))
	b = w.header(b, srid, flags)

	b = binary.LittleEndian.AppendUint32(b, uint32(len(w.xy)/2))
	b = w.coords(b)

	b = binary.LittleEndian.AppendUint32(b, uint32(len(w.figures)))
	for _, f := range w.figures {
		b = append(b, f.attr)
		b = binary.LittleEndian.AppendUint32(b, uint32(f.offset))
	}

	b = binary.LittleEndian.AppendUint32(b, uint32(len(w.shapes)))
	for _, s := range w.shapes {
		b = binary.LittleEndian.AppendUint32(b, uint32(s.parent))
		b = binary.LittleEndian.AppendUint32(b, uint32(s.figure))
		b = append(b, s.kind)
	}
	return b
}

type nativeReader struct {
	b   []byte
	pos int
	err error
}

func (r *nativeReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || len(r.b)-r.pos < n {
		r.err = fmt.Errorf("%w: unexpected end of data at byte %d", ErrMalformed, r.pos)
		return false
	}
	return true
}

func (r *nativeReader) readByte() byte {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *nativeReader) readUint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v
}

func (r *nativeReader) readFloat64() float64 {
	if !r.need(8) {
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.b[r.pos:]))
	r.pos += 8
	return v
}

// count reads an array length and checks there is room for n items of
// size bytes each.
func (r *nativeReader) count(size int) int {
	n := int(r.readUint32())
	if r.err == nil && n > (len(r.b)-r.pos)/size {
		r.err = fmt.Errorf("%w: count %d exceeds data length", ErrMalformed, n)
	}
	return n
}

type nativeGeom struct {
	layout  geom.Layout
	srid    int
	coords  []float64
	figures []figure
	shapes  []shape
}

func unmarshalNative(b []byte) (geom.T, error) {
	r := &nativeReader{b: b}

	srid := int(int32(r.readUint32()))
	version := r.readByte()
	flags := r.readByte()
	if r.err != nil {
		return nil, r.err
	}
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("%w: unknown serialization version %d", ErrMalformed, version)
	}

	ng := &nativeGeom{layout: geom.XY, srid: srid}
	if flags&flagHasZ != 0 {
		ng.layout = geom.XYZ
	}
	hasM := flags&flagHasM != 0

	var np int
	switch {
	case flags&flagSinglePoint != 0:
		np = 1
	case flags&flagSingleSegment != 0:
		np = 2
	default:
		np = r.count(16)
	}
	if r.err != nil {
		return nil, r.err
	}

	ng.coords = readCoords(r, np, ng.layout, hasM)

	switch {
	case flags&flagSinglePoint != 0:
		if r.err != nil {
			return nil, r.err
		}
		return geom.NewPointFlat(ng.layout, ng.coords).SetSRID(srid), nil

	case flags&flagSingleSegment != 0:
		if r.err != nil {
			return nil, r.err
		}
		return geom.NewLineStringFlat(ng.layout, ng.coords).SetSRID(srid), nil
	}

	nf := r.count(5)
	for i := 0; i < nf && r.err == nil; i++ {
		f := figure{attr: r.readByte(), offset: int32(r.readUint32())}
		if f.offset < 0 || int(f.offset) > np {
			r.err = fmt.Errorf("%w: figure %d point offset %d out of range", ErrMalformed, i, f.offset)
		}
		ng.figures = append(ng.figures, f)
	}

	ns := r.count(9)
	for i := 0; i < ns && r.err == nil; i++ {
		s := shape{parent: int32(r.readUint32()), figure: int32(r.readUint32()), kind: r.readByte()}
		if s.figure < -1 || int(s.figure) >= nf {
			r.err = fmt.Errorf("%w: shape %d figure offset %d out of range", ErrMalformed, i, s.figure)
		}
		ng.shapes = append(ng.shapes, s)
	}

	if r.err != nil {
		return nil, r.err
	}
	if len(ng.shapes) == 0 {
		return nil, fmt.Errorf("%w: no shapes", ErrMalformed)
	}

	return ng.build(0)
}

// readCoords reads np XY pairs followed by the optional Z and M arrays and
// returns them interleaved in layout l. M values are skipped.
func readCoords(r *nativeReader, np int, l geom.Layout, hasM bool) []float64 {
	stride := l.Stride()
	out := make([]float64, np*stride)
	for i := 0; i < np; i++ {
		out[i*stride] = r.readFloat64()
		out[i*stride+1] = r.readFloat64()
	}
	if l == geom.XYZ {
		for i := 0; i < np; i++ {
			out[i*stride+2] = r.readFloat64()
		}
	}
	if hasM {
		r.need(8 * np)
		if r.err == nil {
			r.pos += 8 * np
		}
	}
	return out
}

// pointRange returns the flat coordinate span of figure f.
func (ng *nativeGeom) pointRange(f int) []float64 {
	stride := ng.layout.Stride()
	start := int(ng.figures[f].offset)
	end := len(ng.coords) / stride
	if f+1 < len(ng.figures) {
		end = int(ng.figures[f+1].offset)
	}
	if end < start {
		end = start
	}
	return ng.coords[start*stride : end*stride]
}

// figureEnd returns the figure index one past the last figure of the
// leaf shape s. Shapes are stored in pre-order so this is the first
// figure owned by any later shape.
func (ng *nativeGeom) figureEnd(s int) int {
	for i := s + 1; i < len(ng.shapes); i++ {
		if ng.shapes[i].figure != -1 {
			return int(ng.shapes[i].figure)
		}
	}
	return len(ng.figures)
}

func (ng *nativeGeom) children(s int) []int {
	var c []int
	for i := s + 1; i < len(ng.shapes); i++ {
		if int(ng.shapes[i].parent) == s {
			c = append(c, i)
		}
	}
	return c
}

func (ng *nativeGeom) build(s int) (geom.T, error) {
	sh := ng.shapes[s]
	empty := sh.figure == -1

	switch sh.kind {
	case shapePoint:
		if empty {
			return geom.NewPointEmpty(ng.layout).SetSRID(ng.srid), nil
		}
		c := ng.pointRange(int(sh.figure))
		if len(c) != ng.layout.Stride() {
			return nil, fmt.Errorf("%w: point figure has %d ordinates", ErrMalformed, len(c))
		}
		return geom.NewPointFlat(ng.layout, c).SetSRID(ng.srid), nil

	case shapeLineString:
		if empty {
			return geom.NewLineString(ng.layout).SetSRID(ng.srid), nil
		}
		return geom.NewLineStringFlat(ng.layout, ng.pointRange(int(sh.figure))).SetSRID(ng.srid), nil

	case shapePolygon:
		if empty {
			return geom.NewPolygon(ng.layout).SetSRID(ng.srid), nil
		}
		var flat []float64
		var ends []int
		for f := int(sh.figure); f < ng.figureEnd(s); f++ {
			flat = append(flat, ng.pointRange(f)...)
			ends = append(ends, len(flat))
		}
		return geom.NewPolygonFlat(ng.layout, flat, ends).SetSRID(ng.srid), nil

	case shapeMultiPoint:
		mp := geom.NewMultiPoint(ng.layout)
		for _, c := range ng.children(s) {
			g, err := ng.build(c)
			if err != nil {
				return nil, err
			}
			p, ok := g.(*geom.Point)
			if !ok {
				return nil, fmt.Errorf("%w: multipoint member is %T", ErrMalformed, g)
			}
			if err := mp.Push(p); err != nil {
				return nil, err
			}
		}
		return mp.SetSRID(ng.srid), nil

	case shapeMultiLineString:
		mls := geom.NewMultiLineString(ng.layout)
		for _, c := range ng.children(s) {
			g, err := ng.build(c)
			if err != nil {
				return nil, err
			}
			ls, ok := g.(*geom.LineString)
			if !ok {
				return nil, fmt.Errorf("%w: multilinestring member is %T", ErrMalformed, g)
			}
			if err := mls.Push(ls); err != nil {
				return nil, err
			}
		}
		return mls.SetSRID(ng.srid), nil

	case shapeMultiPolygon:
		mp := geom.NewMultiPolygon(ng.layout)
		for _, c := range ng.children(s) {
			g, err := ng.build(c)
			if err != nil {
				return nil, err
			}
			p, ok := g.(*geom.Polygon)
			if !ok {
				return nil, fmt.Errorf("%w: multipolygon member is %T", ErrMalformed, g)
			}
			if err := mp.Push(p); err != nil {
				return nil, err
			}
		}
		return mp.SetSRID(ng.srid), nil

	case shapeGeometryCollection:
		gc := geom.NewGeometryCollection()
		for _, c := range ng.children(s) {
			g, err := ng.build(c)
			if err != nil {
				return nil, err
			}
			if err := gc.Push(g); err != nil {
				return nil, err
			}
		}
		return gc.SetSRID(ng.srid), nil
	}

	return nil, fmt.Errorf("%w: shape type %d", ErrUnsupportedGeometry, sh.kind)
}
