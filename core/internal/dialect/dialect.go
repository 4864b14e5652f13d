package dialect

import (
	"errors"

	"github.com/dosco/sqlgeo/core/internal/qcode"
	"github.com/dosco/sqlgeo/core/internal/sdata"
)

var (
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrMalformedStatement  = errors.New("malformed statement")
)

type Param struct {
	Name string
	Type string
}

type Context interface {
	Write(s string) (int, error)
	WriteString(s string) (int, error) // io.StringWriter

	// AddParam registers a bind parameter and returns its placeholder
	AddParam(p Param) string

	Quote(s string)
}

type Dialect interface {
	Name() string

	// Identifier quoting and parameter placeholders
	QuoteIdentifier(s string) string
	BindVar(i int) string

	RenderOp(op qcode.ExpOp) (string, error)
	RenderSpatialOp(ctx Context, ft *sdata.FeatureType, ex *qcode.Exp) error
	RenderLiteral(ctx Context, ft *sdata.FeatureType, col string, val interface{}) error

	// Geometry columns on the read path and parameters on the write path
	RenderGeometryColumn(ctx Context, col string, dim int)
	RenderGeometryParam(ctx Context, p Param, srid int)

	RenderTableHints(ctx Context, indexes []string, hints string)
}
