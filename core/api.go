// Package core adapts a spatial feature data-access layer to SQL Server.
// It compiles filters into WHERE clauses, adds spatial index hints,
// rewrites statements for paging and converts geometry column values.
//
// A SpatialDialect is created once and shared, all its methods are safe
// for concurrent use.
//
//	d, err := core.New(core.DefaultConfig(), core.OptionSetLogger(log))
//	if err != nil {
//		return err
//	}
//
//	ft, err := d.Describe(ctx, db, "dbo", "roads")
//	if err != nil {
//		return err
//	}
//
//	q, err := core.ParseQuery([]byte(`
//	table: dbo.roads
//	where:
//	  geom: { st_intersects: { bbox: [0, 0, 10, 10] } }
//	limit: 10`))
//	if err != nil {
//		return err
//	}
//
//	features, err := d.Query(ctx, db, q, ft)
package core

import (
	"github.com/dosco/sqlgeo/core/internal/dialect"
	"github.com/dosco/sqlgeo/core/internal/geom"
	"github.com/dosco/sqlgeo/core/internal/psql"
	"github.com/dosco/sqlgeo/core/internal/qcode"
	"github.com/dosco/sqlgeo/core/internal/sdata"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	FeatureType  = sdata.FeatureType
	Attribute    = sdata.Attribute
	SpatialIndex = sdata.SpatialIndex
	Catalog      = sdata.Catalog
	GeometryMeta = sdata.GeometryMeta
	Querier      = sdata.Querier

	Query      = qcode.Query
	Exp        = qcode.Exp
	ExpOp      = qcode.ExpOp
	Expression = qcode.Expression
	Paging     = qcode.Paging
	Table      = qcode.Table

	Geometry    = geom.T
	DecodeError = geom.DecodeError
)

var (
	ErrUnsupportedOperator = dialect.ErrUnsupportedOperator
	ErrMalformedStatement  = dialect.ErrMalformedStatement
)

const (
	OpEquals          = qcode.OpEquals
	OpNotEquals       = qcode.OpNotEquals
	OpGreaterOrEquals = qcode.OpGreaterOrEquals
	OpLesserOrEquals  = qcode.OpLesserOrEquals
	OpGreaterThan     = qcode.OpGreaterThan
	OpLesserThan      = qcode.OpLesserThan
	OpLike            = qcode.OpLike
	OpIsNull          = qcode.OpIsNull
	OpIsNotNull       = qcode.OpIsNotNull
	OpBBox            = qcode.OpBBox
	OpContains        = qcode.OpContains
	OpCrosses         = qcode.OpCrosses
	OpDisjoint        = qcode.OpDisjoint
	OpSpatialEquals   = qcode.OpSpatialEquals
	OpIntersects      = qcode.OpIntersects
	OpOverlaps        = qcode.OpOverlaps
	OpTouches         = qcode.OpTouches
	OpWithin          = qcode.OpWithin
	OpDWithin         = qcode.OpDWithin
	OpBeyond          = qcode.OpBeyond
)

// filter builders
var (
	Property    = qcode.Property
	Literal     = qcode.Literal
	NewSpatial  = qcode.NewSpatial
	NewDistance = qcode.NewDistance
	NewCompare  = qcode.NewCompare
	And         = qcode.And
	Or          = qcode.Or
	Not         = qcode.Not
)

var (
	ReadCatalog   = sdata.ReadCatalog
	DescribeTable = sdata.DescribeTable
	ParseQuery    = qcode.ParseQuery
	ParseFilter   = qcode.ParseFilter
	ParseTable    = qcode.ParseTable

	// WKT renders a geometry as well-known text in the dimension its
	// data carries
	WKT = geom.WKT
)

// SpatialDialect is the single adaptation surface the data-access layer
// talks to.
type SpatialDialect struct {
	conf     Config
	log      *zap.Logger
	tracer   trace.Tracer
	compiler *psql.Compiler
	codec    geom.Codec
	resolver *sdata.Resolver
	stmts    stmtCache
}

type Option func(*SpatialDialect) error

// New creates the dialect. conf is copied, later changes to it have no
// effect.
func New(conf Config, options ...Option) (d *SpatialDialect, err error) {
	if err = conf.Validate(); err != nil {
		return
	}

	d = &SpatialDialect{
		conf:   conf,
		log:    zap.NewNop(),
		tracer: otel.Tracer("github.com/dosco/sqlgeo/core"),
		codec:  geom.Codec{Native: conf.NativeSerialization},
	}

	for _, op := range options {
		if err = op(d); err != nil {
			return nil, err
		}
	}

	d.compiler = psql.NewCompiler(psql.Config{
		NativeSerialization: conf.NativeSerialization,
		ForceSpatialIndex:   conf.ForceSpatialIndex,
		TableHints:          conf.TableHints,
	})

	if d.resolver, err = sdata.NewResolver(conf.MetadataTable, conf.MetadataCacheSize, conf.MetadataCacheTTL, d.log); err != nil {
		return nil, err
	}
	if d.stmts, err = newStmtCache(); err != nil {
		return nil, err
	}
	return d, nil
}

// OptionSetLogger sets the logger, by default nothing is logged
func OptionSetLogger(log *zap.Logger) Option {
	return func(d *SpatialDialect) error {
		if log != nil {
			d.log = log
		}
		return nil
	}
}

// OptionSetTracer sets the OpenTelemetry tracer used for query spans
func OptionSetTracer(tracer trace.Tracer) Option {
	return func(d *SpatialDialect) error {
		if tracer != nil {
			d.tracer = tracer
		}
		return nil
	}
}

// Config returns a copy of the configuration
func (d *SpatialDialect) Config() Config {
	return d.conf
}
