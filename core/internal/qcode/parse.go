package qcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dosco/sqlgeo/core/internal/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
	"gopkg.in/yaml.v3"
)

// ParseQuery reads a query document.
//
//	table: dbo.roads
//	columns: [id, name, geom]
//	where:
//	  geom: { st_intersects: { wkt: "POLYGON((0 0, 1 0, 1 1, 0 0))", srid: 4326 } }
//	  name: { like: "Main%" }
//	order_by:
//	  - name: desc
//	limit: 10
//	offset: 20
func ParseQuery(data []byte) (*Query, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("empty query document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: query document must be a mapping", root.Line)
	}

	q := &Query{}

	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]

		var err error
		switch k.Value {
		case "table":
			q.Table = ParseTable(v.Value)
		case "columns":
			err = v.Decode(&q.Columns)
		case "where":
			q.Filter, err = ParseFilter(v)
		case "order_by":
			q.OrderBy, err = parseOrderBy(v)
		case "limit":
			err = v.Decode(&q.Paging.Limit)
			q.Paging.Limited = true
		case "offset":
			err = v.Decode(&q.Paging.Offset)
		default:
			err = fmt.Errorf("line %d: unknown key '%s'", k.Line, k.Value)
		}
		if err != nil {
			return nil, err
		}
	}

	if q.Table.Name == "" {
		return nil, errors.New("query document has no table")
	}
	if q.Paging.Limit < 0 || q.Paging.Offset < 0 {
		return nil, errors.New("limit and offset must not be negative")
	}
	return q, nil
}

func parseOrderBy(node *yaml.Node) ([]OrderBy, error) {
	var items []*yaml.Node
	switch node.Kind {
	case yaml.SequenceNode:
		items = node.Content
	case yaml.MappingNode:
		items = []*yaml.Node{node}
	default:
		return nil, fmt.Errorf("line %d: order_by must be a list or mapping", node.Line)
	}

	var ob []OrderBy
	for _, it := range items {
		for i := 0; i+1 < len(it.Content); i += 2 {
			o := OrderBy{Col: it.Content[i].Value}
			switch strings.ToLower(it.Content[i+1].Value) {
			case "asc":
				o.Order = OrderAsc
			case "desc":
				o.Order = OrderDesc
			default:
				return nil, fmt.Errorf("line %d: invalid order '%s'", it.Content[i+1].Line, it.Content[i+1].Value)
			}
			ob = append(ob, o)
		}
	}
	return ob, nil
}

// ParseFilter compiles a where mapping into an expression tree. Sibling
// conditions are joined with AND.
func ParseFilter(node *yaml.Node) (*Exp, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: filter must be a mapping", node.Line)
	}

	var exps []*Exp

	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]

		switch k.Value {
		case "and", "or":
			if v.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("line %d: '%s' expects a list", k.Line, k.Value)
			}
			var children []*Exp
			for _, c := range v.Content {
				ex, err := ParseFilter(c)
				if err != nil {
					return nil, err
				}
				children = append(children, ex)
			}
			if k.Value == "and" {
				exps = append(exps, And(children...))
			} else {
				exps = append(exps, Or(children...))
			}

		case "not":
			ex, err := ParseFilter(v)
			if err != nil {
				return nil, err
			}
			exps = append(exps, Not(ex))

		default:
			ex, err := parseColumn(k.Value, v)
			if err != nil {
				return nil, err
			}
			exps = append(exps, ex)
		}
	}

	if ex := And(exps...); ex != nil {
		return ex, nil
	}
	return nil, fmt.Errorf("line %d: empty filter", node.Line)
}

func parseColumn(col string, node *yaml.Node) (*Exp, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: condition on '%s' must be a mapping", node.Line, col)
	}

	var exps []*Exp

	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]

		op, ok := LookupOp(k.Value)
		if !ok || op <= OpNot {
			return nil, fmt.Errorf("line %d: unknown operator '%s'", k.Line, k.Value)
		}

		var ex *Exp
		var err error

		switch {
		case op.IsSpatial():
			ex, err = parseSpatial(op, col, v)
		case op == OpIsNull:
			var b bool
			if err = v.Decode(&b); err == nil {
				if b {
					ex = NewCompare(OpIsNull, col, nil)
				} else {
					ex = NewCompare(OpIsNotNull, col, nil)
				}
			}
		default:
			var val interface{}
			if val, err = scalarValue(v); err == nil {
				ex = NewCompare(op, col, val)
			}
		}
		if err != nil {
			return nil, err
		}
		exps = append(exps, ex)
	}

	if ex := And(exps...); ex != nil {
		return ex, nil
	}
	return nil, fmt.Errorf("line %d: no conditions on '%s'", node.Line, col)
}

func scalarValue(node *yaml.Node) (interface{}, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: expected a scalar value", node.Line)
	}

	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := node.Decode(&b)
		return b, err
	case "!!int":
		var n int64
		err := node.Decode(&n)
		return n, err
	case "!!float":
		var f float64
		err := node.Decode(&f)
		return f, err
	case "!!timestamp":
		var t time.Time
		err := node.Decode(&t)
		return t, err
	}
	return node.Value, nil
}

// parseSpatial reads the operand of a spatial operator.
//
//	wkt: POINT(1 2)            geometry as well-known text
//	geojson: {type: Point, ..} geometry as GeoJSON
//	point: [x, y]
//	polygon: [[x, y], ...]     a single exterior ring
//	bbox: [minx, miny, maxx, maxy]
//	property: other_geom       compare against another column
//	srid: 4326                 defaults to the column's SRID
//	distance: 100              st_dwithin and st_beyond only
//	swapped: true              the literal is the first operand
func parseSpatial(op ExpOp, col string, node *yaml.Node) (*Exp, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %s requires a mapping", node.Line, op)
	}

	var (
		other    Expression
		srid     int
		distance float64
		swapped  bool
		hasDist  bool
		geo      interface{}
	)

	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]

		var err error
		switch k.Value {
		case "wkt":
			geo, err = wkt.Unmarshal(v.Value)
		case "geojson":
			geo, err = parseGeoJSON(v)
		case "point":
			var p orb.Point
			if err = v.Decode(&p); err == nil {
				geo = p
			}
		case "polygon":
			var r orb.Ring
			if err = v.Decode(&r); err == nil {
				geo = orb.Polygon{r}
			}
		case "bbox":
			var b [4]float64
			if err = v.Decode(&b); err == nil {
				geo = orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
			}
		case "property":
			other = Property(v.Value)
		case "srid":
			err = v.Decode(&srid)
		case "distance":
			err = v.Decode(&distance)
			hasDist = true
		case "swapped":
			err = v.Decode(&swapped)
		default:
			err = fmt.Errorf("line %d: unknown %s parameter '%s'", k.Line, op, k.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", k.Line, op, err)
		}
	}

	if geo != nil {
		val, err := literalGeometry(geo, srid)
		if err != nil {
			return nil, err
		}
		other = Literal(val)
	} else if !other.IsProperty() {
		return nil, fmt.Errorf("line %d: %s requires a geometry or property", node.Line, op)
	}

	if op.IsDistance() && !hasDist {
		return nil, fmt.Errorf("line %d: %s requires a distance", node.Line, op)
	}

	a, b := Property(col), other
	if swapped {
		a, b = b, a
	}
	if op.IsDistance() {
		return NewDistance(op, a, b, distance), nil
	}
	return NewSpatial(op, a, b), nil
}

// literalGeometry tags geo with srid. Bounds are kept as orb.Bound so the
// translator can tell an envelope from a polygon.
func literalGeometry(geo interface{}, srid int) (interface{}, error) {
	switch v := geo.(type) {
	case orb.Bound:
		if srid != 0 {
			return geom.BoundPolygon(v, srid), nil
		}
		return v, nil
	case orb.Geometry:
		return geom.FromOrb(v, srid)
	}

	if srid == 0 {
		return geo, nil
	}
	if g, ok := geo.(interface{ SRID() int }); ok && g.SRID() != 0 {
		return geo, nil
	}
	return geom.SetSRID(geo.(geom.T), srid)
}

func parseGeoJSON(node *yaml.Node) (orb.Geometry, error) {
	var data []byte

	if node.Kind == yaml.ScalarNode {
		data = []byte(node.Value)
	} else {
		var v interface{}
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = b
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	return g.Geometry(), nil
}
