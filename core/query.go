package core

import (
	"context"
	"fmt"

	"github.com/dosco/sqlgeo/core/internal/dialect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Feature is a result row keyed by column name. Geometry columns hold a
// Geometry or nil.
type Feature map[string]interface{}

// Query compiles and runs q. Geometry columns are decoded with the SRID
// of ft. On a decode error the features read so far are returned with
// the error. Rows are always closed before returning.
func (d *SpatialDialect) Query(ctx context.Context, db Querier, q *Query, ft *FeatureType) (features []Feature, err error) {
	if q == nil {
		return nil, fmt.Errorf("query is nil")
	}

	ctx, span := d.tracer.Start(ctx, "sqlgeo.query", trace.WithAttributes(
		attribute.String("db.sql.table", q.Table.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	sql, err := d.CompileQuery(q, ft)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	// -1 is a plain column, -2 the row number added by paging
	geoms := make([]int, len(cols))
	for i, c := range cols {
		geoms[i] = -1
		if c == dialect.RowNumberAlias {
			geoms[i] = -2
			continue
		}
		if ft == nil {
			continue
		}
		if a, ok := ft.Attribute(c); ok && a.Geometry {
			geoms[i] = a.SRID
		}
	}

	// without native paging the window is applied here
	skip, limit := int64(0), int64(-1)
	if !d.conf.NativePaging {
		skip = int64(q.Paging.Offset)
		if q.Paging.Limited {
			limit = int64(q.Paging.Limit)
		}
	}

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for limit != 0 && rows.Next() {
		if skip > 0 {
			skip--
			continue
		}
		if err = rows.Scan(ptrs...); err != nil {
			return features, err
		}

		f := make(Feature, len(cols))
		for i, c := range cols {
			switch geoms[i] {
			case -2:
				continue
			case -1:
				f[c] = vals[i]
				continue
			}
			b, _ := vals[i].([]byte)
			if f[c], err = d.codec.Decode(c, b, geoms[i]); err != nil {
				return features, err
			}
		}
		features = append(features, f)

		if limit > 0 {
			limit--
		}
	}

	if err = rows.Err(); err != nil {
		return features, err
	}

	d.log.Debug("query done",
		zap.String("table", q.Table.String()),
		zap.Int("features", len(features)))

	return features, nil
}
