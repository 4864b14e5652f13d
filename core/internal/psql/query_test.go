package psql_test

import (
	"bytes"
	"testing"

	"github.com/dosco/sqlgeo/core/internal/dialect"
	"github.com/dosco/sqlgeo/core/internal/psql"
	"github.com/dosco/sqlgeo/core/internal/qcode"
	"github.com/dosco/sqlgeo/core/internal/sdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roads() *sdata.FeatureType {
	return &sdata.FeatureType{
		Schema:     "dbo",
		Name:       "roads",
		PrimaryKey: "id",
		Attributes: []sdata.Attribute{
			{Name: "id", Type: "int", NotNull: true},
			{Name: "name", Type: "nvarchar"},
			{Name: "geom", Type: "geometry", Geometry: true, SRID: 4326, Dimension: 2},
		},
		Indexes: []sdata.SpatialIndex{{Name: "roads_geom_sidx", Columns: []string{"geom"}}},
	}
}

const squareLit = `geometry::STGeomFromText('POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))', 4326)`

func compileQuery(t *testing.T, conf psql.Config, ft *sdata.FeatureType, doc string) string {
	t.Helper()

	q, err := qcode.ParseQuery([]byte(doc))
	require.NoError(t, err)

	_, sql, err := psql.NewCompiler(conf).CompileEx(q, ft)
	require.NoError(t, err)

	return string(sql)
}

func TestCompileSpatialQuery(t *testing.T) {
	doc := `
table: dbo.roads
columns: [id, name, geom]
where:
  geom: { st_contains: { wkt: "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))" } }
order_by:
  - name: desc
`
	sql := compileQuery(t, psql.Config{ForceSpatialIndex: true}, roads(), doc)

	assert.Equal(t, `SELECT "id", "name", "geom".STAsBinary() AS "geom" FROM "dbo"."roads" WITH(INDEX("roads_geom_sidx")) WHERE "geom".Filter(`+squareLit+`) = 1 AND "geom".STContains(`+squareLit+`) = 1 ORDER BY "name" DESC`, sql)
}

func TestCompileLogicalFilter(t *testing.T) {
	doc := `
table: dbo.roads
columns: [id]
where:
  or:
    - name: { eq: "Main St" }
    - not:
        geom: { st_disjoint: { point: [1, 2] } }
`
	sql := compileQuery(t, psql.Config{ForceSpatialIndex: true}, roads(), doc)

	assert.Equal(t, `SELECT "id" FROM "dbo"."roads" WHERE ("name" = N'Main St' OR NOT ("geom".STDisjoint(geometry::STGeomFromText('POINT (1 2)', 4326)) = 1))`, sql)
}

func TestCompileComparisons(t *testing.T) {
	doc := `
table: roads
columns: [id]
where:
  name: { gte: a, lt: b }
  id: { is_null: false }
`
	sql := compileQuery(t, psql.Config{}, roads(), doc)

	assert.Equal(t, `SELECT "id" FROM "roads" WHERE (("name" >= N'a' AND "name" < N'b') AND "id" IS NOT NULL)`, sql)
}

func TestCompileDefaults(t *testing.T) {
	sql := compileQuery(t, psql.Config{TableHints: "NOLOCK"}, roads(), `table: dbo.roads`)
	assert.Equal(t, `SELECT "id", "name", "geom".STAsBinary() AS "geom" FROM "dbo"."roads" WITH(NOLOCK)`, sql)

	sql = compileQuery(t, psql.Config{}, nil, `table: t`)
	assert.Equal(t, `SELECT * FROM "t"`, sql)

	sql = compileQuery(t, psql.Config{}, nil, "table: t\ncolumns: [a, b]")
	assert.Equal(t, `SELECT "a", "b" FROM "t"`, sql)
}

func TestCompileGeometryColumns(t *testing.T) {
	ft := roads()
	ft.SetGeometry("geom", 4326, 3)

	sql := compileQuery(t, psql.Config{}, ft, "table: dbo.roads\ncolumns: [geom]")
	assert.Equal(t, `SELECT "geom".AsBinaryZM() AS "geom" FROM "dbo"."roads"`, sql)

	sql = compileQuery(t, psql.Config{NativeSerialization: true}, ft, "table: dbo.roads\ncolumns: [geom]")
	assert.Equal(t, `SELECT "geom" FROM "dbo"."roads"`, sql)
}

func TestCompileErrors(t *testing.T) {
	co := psql.NewCompiler(psql.Config{})

	_, _, err := co.CompileEx(nil, nil)
	assert.Error(t, err)

	q := &qcode.Query{Table: qcode.Table{Name: "roads"}, Columns: []string{"missing"}}
	_, _, err = co.CompileEx(q, roads())
	assert.EqualError(t, err, "column not found: dbo.roads.missing")

	var w bytes.Buffer
	err = co.CompileWhere(&w, roads(), qcode.And(
		qcode.NewCompare(qcode.OpEquals, "id", int64(1)),
		&qcode.Exp{Op: qcode.ExpOp(99)},
	))
	assert.ErrorIs(t, err, dialect.ErrUnsupportedOperator)
}

func TestCompileMalformedFilter(t *testing.T) {
	co := psql.NewCompiler(psql.Config{})
	id := qcode.NewCompare(qcode.OpEquals, "id", int64(1))

	withNil := qcode.And(id, id)
	withNil.Children = []*qcode.Exp{id, nil, id}

	tests := []struct {
		name   string
		filter *qcode.Exp
	}{
		{name: "nil child", filter: withNil},
		{name: "nil inside not", filter: qcode.Not(nil)},
		{name: "not without operand", filter: &qcode.Exp{Op: qcode.OpNot}},
		{name: "not with two operands", filter: &qcode.Exp{Op: qcode.OpNot, Children: []*qcode.Exp{id, id}}},
		{name: "empty or", filter: &qcode.Exp{Op: qcode.OpOr}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w bytes.Buffer
			err := co.CompileWhere(&w, roads(), tt.filter)
			assert.ErrorIs(t, err, dialect.ErrUnsupportedOperator)
		})
	}
}

func TestCompileWhere(t *testing.T) {
	co := psql.NewCompiler(psql.Config{})

	var w bytes.Buffer
	ex := qcode.NewDistance(qcode.OpBeyond, qcode.Property("geom"), qcode.Property("other"), 25)

	require.NoError(t, co.CompileWhere(&w, roads(), ex))
	assert.Equal(t, `"geom".STDistance("other")>25`, w.String())
}

func TestCompileInsert(t *testing.T) {
	var w bytes.Buffer

	md, err := psql.NewCompiler(psql.Config{}).CompileInsert(&w, roads(), []string{"id", "geom"})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "dbo"."roads" ("id", "geom") VALUES (@p1, geometry::STGeomFromWKB(@p2, 4326))`, w.String())
	assert.Equal(t, []psql.Param{{Name: "id", Type: "int"}, {Name: "geom", Type: "geometry"}}, md.Params())

	w.Reset()
	_, err = psql.NewCompiler(psql.Config{NativeSerialization: true}).CompileInsert(&w, roads(), nil)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "dbo"."roads" ("id", "name", "geom") VALUES (@p1, @p2, CAST(@p3 AS geometry))`, w.String())

	_, err = psql.NewCompiler(psql.Config{}).CompileInsert(&w, roads(), []string{"nope"})
	assert.Error(t, err)
}
