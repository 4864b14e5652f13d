package sdata

import (
	_ "embed"
	"strings"
)

//go:embed sql/mssql_columns.sql
var mssqlColumnsStmt string

//go:embed sql/mssql_spatial_indexes.sql
var mssqlSpatialIndexesStmt string

// quoteIdent quotes each dot separated part of an identifier.
func quoteIdent(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func quoteTable(schema, table string) string {
	if schema == "" {
		return quoteIdent(table)
	}
	return quoteIdent(schema) + "." + quoteIdent(table)
}
