package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dosco/sqlgeo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gg "github.com/twpayne/go-geom"
)

const squareLit = `geometry::STGeomFromText('POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))', 4326)`

const roadsQuery = `
table: dbo.roads
columns: [id, geom]
where:
  geom: { st_intersects: { bbox: [0, 0, 10, 10] } }
limit: 5
`

func configDir(t *testing.T) string {
	t.Helper()
	t.Setenv("GO_ENV", "")

	dir := t.TempDir()
	files := map[string]string{
		"dev.yml": "force_spatial_index: true\nlog_level: error\n",
		"catalog.yaml": `
feature_types:
  - schema: dbo
    name: roads
    attributes:
      - { name: id, type: int }
      - { name: geom, type: geometry, geometry: true, srid: 4326 }
    indexes:
      - { name: roads_geom_sidx, columns: [geom] }
`,
		"query.yaml": roadsQuery,
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600))
	}
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	c := newRootCmd(&out, &errOut)
	c.SetIn(strings.NewReader(stdin))
	c.SetArgs(args)

	err := c.Execute()
	return out.String(), err
}

func TestCompile(t *testing.T) {
	dir := configDir(t)
	want := `SELECT top 5 "id", "geom".STAsBinary() AS "geom" FROM "dbo"."roads" WITH(INDEX("roads_geom_sidx")) ` +
		`WHERE "geom".Filter(` + squareLit + `) = 1 AND "geom".STIntersects(` + squareLit + `) = 1` + "\n"

	out, err := run(t, "", "--path", dir, "compile", "--file", filepath.Join(dir, "query.yaml"))
	require.NoError(t, err)
	assert.Equal(t, want, out)

	out, err = run(t, roadsQuery, "--path", dir, "compile")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	out, err = run(t, roadsQuery, "--path", dir, "compile", "--pretty")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "SELECT top 5 \"id\""))
	assert.Contains(t, out, "\nFROM \"dbo\".\"roads\"")
	assert.Contains(t, out, "\nAND \"geom\".STIntersects(")
}

func TestCompileErrors(t *testing.T) {
	dir := configDir(t)

	_, err := run(t, "", "--path", dir, "compile", "--file", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = run(t, "table: dbo.roads\nwhere: { geom: { st_near: [1, 2] } }\n", "--path", dir, "compile")
	assert.Error(t, err)
}

func TestInsert(t *testing.T) {
	dir := configDir(t)

	out, err := run(t, "", "--path", dir, "insert", "dbo.roads")
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "dbo"."roads" ("id", "geom") VALUES (@p1, geometry::STGeomFromWKB(@p2, 4326))`+"\n", out)

	out, err = run(t, "", "--path", dir, "insert", "roads", "geom")
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "dbo"."roads" ("geom") VALUES (geometry::STGeomFromWKB(@p1, 4326))`+"\n", out)
}

func TestDecode(t *testing.T) {
	const point = "0101000000000000000000F03F0000000000000040"

	out, err := run(t, "", "decode", point)
	require.NoError(t, err)
	assert.Equal(t, "POINT (1 2)\n", out)

	out, err = run(t, "", "decode", "--srid", "4326", "0x"+point)
	require.NoError(t, err)
	assert.Equal(t, "SRID=4326;POINT (1 2)\n", out)

	d, err := core.New(core.Config{NativeSerialization: true})
	require.NoError(t, err)
	b, err := d.EncodeGeometry(gg.NewPointFlat(gg.XY, []float64{1, 2}).SetSRID(4326))
	require.NoError(t, err)

	out, err = run(t, "", "decode", "--native", hex.EncodeToString(b))
	require.NoError(t, err)
	assert.Equal(t, "SRID=4326;POINT (1 2)\n", out)

	_, err = run(t, "", "decode", "zz")
	assert.Error(t, err)

	_, err = run(t, "", "decode", "0102")
	assert.Error(t, err)
}

func TestConfigSchema(t *testing.T) {
	out, err := run(t, "", "config-schema")
	require.NoError(t, err)

	var s map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "sqlgeo configuration", s["title"])
	assert.Contains(t, s["properties"], "force_spatial_index")

	_, err = run(t, "", "config-schema", "extra")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, BuildDetails()+"\n", out)
}
