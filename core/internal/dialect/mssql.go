package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dosco/sqlgeo/core/internal/geom"
	"github.com/dosco/sqlgeo/core/internal/qcode"
	"github.com/dosco/sqlgeo/core/internal/sdata"
	"github.com/paulmach/orb"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MSSQLDialect renders filters, geometry values and hints for SQL Server.
//
// # SQL Server Spatial Notes
//
//   - Spatial predicates are CLR methods on the geometry type, the property
//     is always the receiver: "geom".STIntersects(<other>) = 1
//   - Filter() is the index backed bounding box test, it is used as a
//     prefilter for every predicate except STDisjoint and the distance ones
//   - Identifiers are "double quoted", parameters are @p1, @p2, ...
//   - Boolean values render as 1/0 (BIT type)
//   - There is no OFFSET without ORDER BY, see Paginate
type MSSQLDialect struct {
	// NativeSerialization reads and writes geometry columns in the
	// SQL Server binary format instead of WKB
	NativeSerialization bool
}

const timestampLayout = "2006-01-02 15:04:05.000"

// method names of the spatial predicates, st_contains is STContains
var stMethods = func() map[qcode.ExpOp]string {
	c := cases.Title(language.Und)
	m := make(map[qcode.ExpOp]string)

	for op := qcode.OpBBox; op <= qcode.OpBeyond; op++ {
		n := strings.TrimPrefix(op.String(), "st_")
		m[op] = "ST" + c.String(n)
	}
	return m
}()

func (d *MSSQLDialect) Name() string {
	return "mssql"
}

func (d *MSSQLDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// BindVar returns the parameter placeholder for MSSQL.
// go-mssqldb uses @p1, @p2, etc. for positional parameters.
func (d *MSSQLDialect) BindVar(i int) string {
	return "@p" + strconv.Itoa(i)
}

func (d *MSSQLDialect) RenderOp(op qcode.ExpOp) (string, error) {
	switch op {
	case qcode.OpEquals:
		return "=", nil
	case qcode.OpNotEquals:
		return "!=", nil
	case qcode.OpGreaterThan:
		return ">", nil
	case qcode.OpGreaterOrEquals:
		return ">=", nil
	case qcode.OpLesserThan:
		return "<", nil
	case qcode.OpLesserOrEquals:
		return "<=", nil
	case qcode.OpLike:
		return "LIKE", nil
	case qcode.OpIsNull:
		return "IS NULL", nil
	case qcode.OpIsNotNull:
		return "IS NOT NULL", nil
	default:
		return "", fmt.Errorf("%w: %v", ErrUnsupportedOperator, op)
	}
}

// RenderSpatialOp renders a spatial predicate with the property as the
// method receiver.
func (d *MSSQLDialect) RenderSpatialOp(ctx Context, ft *sdata.FeatureType, ex *qcode.Exp) error {
	prop, other := ex.Property(), ex.Other()

	switch ex.Op {
	case qcode.OpDWithin, qcode.OpBeyond:
		cmp := `<`
		if ex.Op == qcode.OpBeyond {
			cmp = `>`
		}
		if err := d.renderMethod(ctx, ft, "STDistance", prop, other); err != nil {
			return err
		}
		ctx.WriteString(cmp)
		ctx.WriteString(strconv.FormatFloat(ex.Distance, 'f', -1, 64))
		return nil

	case qcode.OpBBox:
		return d.renderPrefilter(ctx, ft, prop, other)

	case qcode.OpDisjoint:
		return d.renderPredicate(ctx, ft, ex.Op, prop, other)

	case qcode.OpContains, qcode.OpCrosses, qcode.OpSpatialEquals,
		qcode.OpIntersects, qcode.OpOverlaps, qcode.OpTouches, qcode.OpWithin:
		if err := d.renderPrefilter(ctx, ft, prop, other); err != nil {
			return err
		}
		ctx.WriteString(` AND `)
		return d.renderPredicate(ctx, ft, ex.Op, prop, other)

	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedOperator, ex.Op)
	}
}

func (d *MSSQLDialect) renderPrefilter(ctx Context, ft *sdata.FeatureType, a, b qcode.Expression) error {
	if err := d.renderMethod(ctx, ft, "Filter", a, b); err != nil {
		return err
	}
	ctx.WriteString(` = 1`)
	return nil
}

func (d *MSSQLDialect) renderPredicate(ctx Context, ft *sdata.FeatureType, op qcode.ExpOp, a, b qcode.Expression) error {
	if err := d.renderMethod(ctx, ft, stMethods[op], a, b); err != nil {
		return err
	}
	ctx.WriteString(` = 1`)
	return nil
}

// renderMethod renders a.method(b)
func (d *MSSQLDialect) renderMethod(ctx Context, ft *sdata.FeatureType, method string, a, b qcode.Expression) error {
	col := propertyName(a, b)

	if err := d.renderOperand(ctx, ft, col, a); err != nil {
		return err
	}
	ctx.WriteString(`.`)
	ctx.WriteString(method)
	ctx.WriteString(`(`)
	if err := d.renderOperand(ctx, ft, col, b); err != nil {
		return err
	}
	ctx.WriteString(`)`)
	return nil
}

func propertyName(a, b qcode.Expression) string {
	if a.IsProperty() {
		return a.Name
	}
	return b.Name
}

func (d *MSSQLDialect) renderOperand(ctx Context, ft *sdata.FeatureType, col string, e qcode.Expression) error {
	if e.IsProperty() {
		ctx.Quote(e.Name)
		return nil
	}
	return d.RenderLiteral(ctx, ft, col, e.Val)
}

// RenderLiteral renders val compared against col. Geometry literals
// without an SRID take the SRID declared for col.
func (d *MSSQLDialect) RenderLiteral(ctx Context, ft *sdata.FeatureType, col string, val interface{}) error {
	switch v := val.(type) {
	case nil:
		ctx.WriteString(`NULL`)

	case geom.T:
		return d.renderGeometry(ctx, v, columnSRID(ft, col))

	case orb.Bound:
		return d.renderGeometry(ctx, geom.BoundPolygon(v, 0), columnSRID(ft, col))

	case orb.Geometry:
		g, err := geom.FromOrb(v, 0)
		if err != nil {
			return err
		}
		return d.renderGeometry(ctx, g, columnSRID(ft, col))

	case bool:
		if v {
			ctx.WriteString(`1`)
		} else {
			ctx.WriteString(`0`)
		}

	case time.Time:
		ctx.WriteString(`'`)
		ctx.WriteString(v.Format(timestampLayout))
		ctx.WriteString(`'`)

	case string:
		ctx.WriteString(`N'`)
		ctx.WriteString(strings.ReplaceAll(v, `'`, `''`))
		ctx.WriteString(`'`)

	case int:
		ctx.WriteString(strconv.Itoa(v))
	case int32:
		ctx.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		ctx.WriteString(strconv.FormatInt(v, 10))
	case float32:
		ctx.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case float64:
		ctx.WriteString(strconv.FormatFloat(v, 'f', -1, 64))

	default:
		return fmt.Errorf("unsupported literal type %T", val)
	}
	return nil
}

func (d *MSSQLDialect) renderGeometry(ctx Context, g geom.T, srid int) error {
	if s := g.SRID(); s != 0 {
		srid = s
	}
	lit, err := geom.Literal(g, srid)
	if err != nil {
		return err
	}
	ctx.WriteString(lit)
	return nil
}

func columnSRID(ft *sdata.FeatureType, col string) int {
	if ft == nil {
		return 0
	}
	return ft.SRID(col)
}

// RenderGeometryColumn renders a geometry column in the select list in
// the form the codec decodes.
func (d *MSSQLDialect) RenderGeometryColumn(ctx Context, col string, dim int) {
	ctx.Quote(col)
	if d.NativeSerialization {
		return
	}
	if dim == 3 {
		ctx.WriteString(`.AsBinaryZM()`)
	} else {
		ctx.WriteString(`.STAsBinary()`)
	}
}

// RenderGeometryParam renders a bind parameter holding an encoded geometry.
func (d *MSSQLDialect) RenderGeometryParam(ctx Context, p Param, srid int) {
	if d.NativeSerialization {
		ctx.WriteString(`CAST(`)
		ctx.WriteString(ctx.AddParam(p))
		ctx.WriteString(` AS geometry)`)
		return
	}
	ctx.WriteString(`geometry::STGeomFromWKB(`)
	ctx.WriteString(ctx.AddParam(p))
	ctx.WriteString(`, `)
	ctx.WriteString(strconv.Itoa(srid))
	ctx.WriteString(`)`)
}

func (d *MSSQLDialect) RenderTableHints(ctx Context, indexes []string, hints string) {
	ctx.WriteString(TableHintClause(indexes, hints))
}
