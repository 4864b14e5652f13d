package core

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dosco/sqlgeo/core/internal/dialect"
	"github.com/dosco/sqlgeo/core/internal/geom"
	"go.uber.org/zap"
)

// WhereClause renders filter as a SQL boolean expression. Literal
// geometries without an SRID take the SRID declared on ft.
func (d *SpatialDialect) WhereClause(ft *FeatureType, filter *Exp) (string, error) {
	if filter == nil {
		return "", nil
	}

	var w bytes.Buffer
	if err := d.compiler.CompileWhere(&w, ft, filter); err != nil {
		return "", err
	}
	return w.String(), nil
}

// IndexHints returns the spatial index names to hint for filter. It is
// empty unless ForceSpatialIndex is set.
func (d *SpatialDialect) IndexHints(ft *FeatureType, filter *Exp) []string {
	return d.compiler.IndexHints(ft, filter)
}

// TableHints returns the WITH clause to put after the table name, or an
// empty string.
func (d *SpatialDialect) TableHints(ft *FeatureType, filter *Exp) string {
	return dialect.TableHintClause(d.IndexHints(ft, filter), d.conf.TableHints)
}

// Paginate applies p to a complete select statement. The statement is
// returned unchanged when native paging is off.
func (d *SpatialDialect) Paginate(sql string, p Paging) (string, error) {
	if !d.conf.NativePaging || p.IsZero() {
		return sql, nil
	}
	return dialect.Paginate(sql, p)
}

// CompileQuery builds the full select statement for q.
func (d *SpatialDialect) CompileQuery(q *Query, ft *FeatureType) (string, error) {
	_, b, err := d.compiler.CompileEx(q, ft)
	if err != nil {
		return "", err
	}

	sql, err := d.Paginate(string(b), q.Paging)
	if err != nil {
		return "", err
	}

	d.log.Debug("compiled query",
		zap.String("table", q.Table.String()),
		zap.String("sql", sql))

	return sql, nil
}

// CompileDocument parses a query document and compiles it. Results are
// cached by document and feature type.
func (d *SpatialDialect) CompileDocument(doc []byte, ft *FeatureType) (string, error) {
	key := stmtKey(doc, ft)

	if sql, ok := d.stmts.Get(key); ok {
		return sql, nil
	}

	q, err := ParseQuery(doc)
	if err != nil {
		return "", err
	}
	sql, err := d.CompileQuery(q, ft)
	if err != nil {
		return "", err
	}

	d.stmts.Set(key, sql)
	return sql, nil
}

// CompileInsert builds a single row insert. Parameters follow the order
// of columns, or of the feature type attributes when columns is empty.
// Geometry parameters take the output of EncodeGeometry.
func (d *SpatialDialect) CompileInsert(ft *FeatureType, columns []string) (string, error) {
	var w bytes.Buffer

	if _, err := d.compiler.CompileInsert(&w, ft, columns); err != nil {
		return "", err
	}
	return w.String(), nil
}

// EncodeGeometry returns the binary column value of g.
func (d *SpatialDialect) EncodeGeometry(g Geometry) ([]byte, error) {
	return d.codec.Encode(g)
}

// DecodeGeometry parses a geometry column value. A nil value decodes to a
// nil geometry. srid tags WKB values which carry none.
func (d *SpatialDialect) DecodeGeometry(column string, b []byte, srid int) (Geometry, error) {
	return d.codec.Decode(column, b, srid)
}

// GeometryLiteral renders g as a geometry constructor for SQL text.
func (d *SpatialDialect) GeometryLiteral(g Geometry, srid int) (string, error) {
	return geom.Literal(g, srid)
}

// ResolveGeometry returns the SRID and dimension of a geometry column.
func (d *SpatialDialect) ResolveGeometry(ctx context.Context, q Querier, ft *FeatureType, column string) (GeometryMeta, error) {
	return d.resolver.Resolve(ctx, q, ft.Schema, ft.Name, column)
}

// Describe introspects schema.table and resolves the SRID and dimension
// of each geometry column. Resolved values replace declared ones.
func (d *SpatialDialect) Describe(ctx context.Context, q Querier, schema, table string) (*FeatureType, error) {
	ft, err := DescribeTable(ctx, q, schema, table)
	if err != nil {
		return nil, err
	}

	for _, a := range ft.GeometryAttributes() {
		m, err := d.ResolveGeometry(ctx, q, ft, a.Name)
		if err != nil {
			return nil, err
		}
		ft.SetGeometry(a.Name, m.SRID, m.Dimension)

		d.log.Debug("geometry column",
			zap.String("table", ft.Table()),
			zap.String("column", a.Name),
			zap.Int("srid", m.SRID),
			zap.Int("dimension", m.Dimension),
			zap.Stringer("source", m.Source))
	}
	return ft, nil
}

// Refresh resolves the geometry columns of ft again, bypassing the
// cache. Use it after the metadata table or the column data changed.
func (d *SpatialDialect) Refresh(ctx context.Context, q Querier, ft *FeatureType) error {
	d.resolver.Purge()
	d.stmts.Purge()

	for _, a := range ft.GeometryAttributes() {
		m, err := d.ResolveGeometry(ctx, q, ft, a.Name)
		if err != nil {
			return fmt.Errorf("refreshing %s: %w", ft.Table(), err)
		}
		ft.SetGeometry(a.Name, m.SRID, m.Dimension)
	}
	return nil
}
