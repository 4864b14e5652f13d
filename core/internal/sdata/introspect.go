package sdata

import (
	"context"
	"fmt"
	"strings"
)

// DescribeTable reads the columns and single column spatial indexes of
// schema.table. Geometry columns are returned without SRID or dimension,
// those come from the Resolver.
func DescribeTable(ctx context.Context, q Querier, schema, table string) (*FeatureType, error) {
	if schema == "" {
		schema = "dbo"
	}
	ft := &FeatureType{Schema: schema, Name: table}

	if err := readColumns(ctx, q, ft); err != nil {
		return nil, err
	}
	if len(ft.Attributes) == 0 {
		return nil, fmt.Errorf("table not found: %s", ft.Table())
	}
	if err := readSpatialIndexes(ctx, q, ft); err != nil {
		return nil, err
	}
	return ft, nil
}

func readColumns(ctx context.Context, q Querier, ft *FeatureType) error {
	rows, err := q.QueryContext(ctx, mssqlColumnsStmt, ft.Schema, ft.Name)
	if err != nil {
		return fmt.Errorf("reading columns of %s: %w", ft.Table(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Attribute
		var pk bool

		if err := rows.Scan(&a.Name, &a.Type, &a.NotNull, &pk); err != nil {
			return fmt.Errorf("reading columns of %s: %w", ft.Table(), err)
		}
		if strings.EqualFold(a.Type, "geometry") {
			a.Geometry = true
			a.GeometryType = "Geometry"
		}
		if pk && ft.PrimaryKey == "" {
			ft.PrimaryKey = a.Name
		}
		ft.Attributes = append(ft.Attributes, a)
	}
	return rows.Err()
}

func readSpatialIndexes(ctx context.Context, q Querier, ft *FeatureType) error {
	rows, err := q.QueryContext(ctx, mssqlSpatialIndexesStmt, ft.Table())
	if err != nil {
		return fmt.Errorf("reading spatial indexes of %s: %w", ft.Table(), err)
	}
	defer rows.Close()

	var all []SpatialIndex

	for rows.Next() {
		var name, col string
		if err := rows.Scan(&name, &col); err != nil {
			return fmt.Errorf("reading spatial indexes of %s: %w", ft.Table(), err)
		}
		if n := len(all); n != 0 && all[n-1].Name == name {
			all[n-1].Columns = append(all[n-1].Columns, col)
			continue
		}
		all = append(all, SpatialIndex{Name: name, Columns: []string{col}})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, idx := range all {
		if len(idx.Columns) == 1 {
			ft.Indexes = append(ft.Indexes, idx)
		}
	}
	return nil
}
