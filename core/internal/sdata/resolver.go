package sdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	cache "github.com/go-pkgz/expirable-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Querier is the part of *sql.DB, *sql.Conn and *sql.Tx used here.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Source int8

const (
	SourceDefault Source = iota
	SourceMetadata
	SourceProbe
)

func (s Source) String() string {
	switch s {
	case SourceMetadata:
		return "metadata"
	case SourceProbe:
		return "probe"
	}
	return "default"
}

// GeometryMeta is the SRID and coordinate dimension of a geometry column.
type GeometryMeta struct {
	SRID      int
	Dimension int
	Source    Source
}

var defaultMeta = GeometryMeta{SRID: 0, Dimension: 2, Source: SourceDefault}

// Resolver looks up the SRID and dimension of geometry columns. It reads
// the metadata table when one is configured and falls back to probing
// the column data.
type Resolver struct {
	metadataTable string
	cache         cache.Cache
	group         singleflight.Group
	log           *zap.Logger
	tracer        trace.Tracer
}

// NewResolver returns a resolver. A cacheSize of zero disables caching,
// a ttl of zero keeps entries until they are evicted or purged.
func NewResolver(metadataTable string, cacheSize int, ttl time.Duration, log *zap.Logger) (*Resolver, error) {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Resolver{
		metadataTable: metadataTable,
		log:           log,
		tracer:        otel.Tracer("github.com/dosco/sqlgeo/core/internal/sdata"),
	}

	if cacheSize > 0 {
		if ttl <= 0 {
			ttl = neverExpire
		}
		c, err := cache.NewCache(cache.MaxKeys(cacheSize), cache.LRU(), cache.TTL(ttl))
		if err != nil {
			return nil, err
		}
		r.cache = c
	}
	return r, nil
}

const neverExpire = 100 * 365 * 24 * time.Hour

func cacheKey(schema, table, column string) string {
	return strings.ToLower(schema + "\x00" + table + "\x00" + column)
}

// Resolve returns the SRID and dimension of column. Tables without any
// non-null value resolve to SRID 0 and dimension 2. Only database
// failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, q Querier, schema, table, column string) (GeometryMeta, error) {
	key := cacheKey(schema, table, column)

	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v.(GeometryMeta), nil
		}
	}

	// shared by every caller waiting on key, it outlives the first one
	lctx := context.WithoutCancel(ctx)

	ch := r.group.DoChan(key, func() (interface{}, error) {
		m, err := r.resolve(lctx, q, schema, table, column)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			r.cache.Set(key, m, 0)
		}
		return m, nil
	})

	select {
	case <-ctx.Done():
		return GeometryMeta{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return GeometryMeta{}, res.Err
		}
		return res.Val.(GeometryMeta), nil
	}
}

// Purge drops all cached lookups.
func (r *Resolver) Purge() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

func (r *Resolver) resolve(ctx context.Context, q Querier, schema, table, column string) (GeometryMeta, error) {
	ctx, span := r.tracer.Start(ctx, "sqlgeo.resolve_geometry", trace.WithAttributes(
		attribute.String("db.sql.table", table),
		attribute.String("sqlgeo.column", column),
	))
	defer span.End()

	log := r.log.With(zap.String("table", table), zap.String("column", column))

	if r.metadataTable != "" {
		m, found, err := r.fromMetadata(ctx, q, schema, table, column)
		if err != nil {
			return fail(span, err)
		}
		if found {
			log.Debug("geometry metadata from table", zap.Int("srid", m.SRID), zap.Int("dimension", m.Dimension))
			span.SetAttributes(attribute.String("sqlgeo.source", m.Source.String()))
			return m, nil
		}
		log.Debug("no metadata row, probing column")
	}

	m, found, err := r.probe(ctx, q, schema, table, column)
	if err != nil {
		return fail(span, err)
	}
	if !found {
		log.Debug("no geometry values, using defaults")
		m = defaultMeta
	}

	span.SetAttributes(attribute.String("sqlgeo.source", m.Source.String()))
	return m, nil
}

func fail(span trace.Span, err error) (GeometryMeta, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return GeometryMeta{}, err
}

// MetadataStmt renders the metadata table lookup and its arguments.
func MetadataStmt(metadataTable, schema, table, column string) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString(`SELECT srid, coord_dimension FROM `)
	sb.WriteString(quoteIdent(metadataTable))
	sb.WriteString(` WHERE `)

	if schema != "" {
		args = append(args, schema)
		fmt.Fprintf(&sb, `f_table_schema = @p%d AND `, len(args))
	}
	args = append(args, table)
	fmt.Fprintf(&sb, `f_table_name = @p%d AND `, len(args))
	args = append(args, column)
	fmt.Fprintf(&sb, `f_geometry_column = @p%d`, len(args))

	return sb.String(), args
}

func (r *Resolver) fromMetadata(ctx context.Context, q Querier, schema, table, column string) (GeometryMeta, bool, error) {
	stmt, args := MetadataStmt(r.metadataTable, schema, table, column)

	var srid, dim sql.NullInt64

	err := q.QueryRowContext(ctx, stmt, args...).Scan(&srid, &dim)
	if errors.Is(err, sql.ErrNoRows) {
		return GeometryMeta{}, false, nil
	}
	if err != nil {
		return GeometryMeta{}, false, fmt.Errorf("reading geometry metadata for %s.%s: %w", table, column, err)
	}

	m := GeometryMeta{SRID: int(srid.Int64), Dimension: 2, Source: SourceMetadata}
	if dim.Valid && dim.Int64 == 3 {
		m.Dimension = 3
	}
	return m, true, nil
}

// ProbeStmt renders the query reading SRID and Z presence from one
// non-null value of column.
func ProbeStmt(schema, table, column string) string {
	col := quoteIdent(column)

	var sb strings.Builder
	sb.WriteString(`SELECT TOP 1 `)
	sb.WriteString(col)
	sb.WriteString(`.STSrid, `)
	sb.WriteString(col)
	sb.WriteString(`.HasZ FROM `)
	sb.WriteString(quoteTable(schema, table))
	sb.WriteString(` WHERE `)
	sb.WriteString(col)
	sb.WriteString(` IS NOT NULL`)
	return sb.String()
}

func (r *Resolver) probe(ctx context.Context, q Querier, schema, table, column string) (GeometryMeta, bool, error) {
	var srid sql.NullInt64
	var hasZ sql.NullBool

	err := q.QueryRowContext(ctx, ProbeStmt(schema, table, column)).Scan(&srid, &hasZ)
	if errors.Is(err, sql.ErrNoRows) {
		return GeometryMeta{}, false, nil
	}
	if err != nil {
		return GeometryMeta{}, false, fmt.Errorf("probing geometry column %s.%s: %w", table, column, err)
	}

	m := GeometryMeta{SRID: int(srid.Int64), Dimension: 2, Source: SourceProbe}
	if hasZ.Valid && hasZ.Bool {
		m.Dimension = 3
	}
	return m, true, nil
}
