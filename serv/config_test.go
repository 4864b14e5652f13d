package serv

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, name, data string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(data), 0o644))
}

func TestReadInConfigFS(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/conf/dev.yml", `
force_spatial_index: true
table_hints: NOLOCK
database:
  host: db.local
  dbname: gis
`)

	c, err := ReadInConfigFS("/conf/dev.yml", fs)
	require.NoError(t, err)

	assert.Equal(t, "/conf", c.ConfigPath)
	assert.True(t, c.ForceSpatialIndex)
	assert.Equal(t, "NOLOCK", c.TableHints)
	assert.True(t, c.NativePaging)
	assert.False(t, c.NativeSerialization)
	assert.Equal(t, 512, c.MetadataCacheSize)

	assert.Equal(t, "db.local", c.DB.Host)
	assert.Equal(t, "gis", c.DB.DBName)
	assert.Equal(t, uint16(1433), c.DB.Port)
	assert.Equal(t, "dbo", c.DB.Schema)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "catalog.yaml", c.Catalog)
}

func TestReadInConfigInherits(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/conf/base.yml", `
metadata_table: dbo.geometry_columns
native_paging: false
database:
  host: base.local
`)
	writeFile(t, fs, "/conf/prod.yml", `
inherits: base
production: true
database:
  host: prod.local
`)

	c, err := ReadInConfigFS("/conf/prod.yml", fs)
	require.NoError(t, err)

	assert.Equal(t, "dbo.geometry_columns", c.MetadataTable)
	assert.False(t, c.NativePaging)
	assert.Equal(t, "prod.local", c.DB.Host)
	assert.True(t, c.ShouldUseJSONLogs())

	writeFile(t, fs, "/conf/base.yml", "inherits: other\n")
	_, err = ReadInConfigFS("/conf/prod.yml", fs)
	assert.Error(t, err)
}

func TestReadInConfigErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := ReadInConfigFS("/conf/missing.yml", fs)
	assert.Error(t, err)

	writeFile(t, fs, "/conf/bad.yml", "metadata_table: \"geometry_columns; DROP TABLE x\"\n")
	_, err = ReadInConfigFS("/conf/bad.yml", fs)
	assert.Error(t, err)
}

func TestNewConfig(t *testing.T) {
	c, err := NewConfig("native_serialization: true\nlog_format: json\n", "")
	require.NoError(t, err)

	assert.True(t, c.NativeSerialization)
	assert.True(t, c.NativePaging)
	assert.True(t, c.ShouldUseJSONLogs())

	c, err = NewConfig(`{"metadata_cache_size": 0}`, "json")
	require.NoError(t, err)
	assert.Equal(t, 0, c.MetadataCacheSize)
	assert.False(t, c.ShouldUseJSONLogs())

	_, err = NewConfig("metadata_cache_size: -1\n", "yaml")
	assert.Error(t, err)

	c, err = NewConfig("metadata_cache_ttl: 10m\n", "yaml")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, c.MetadataCacheTTL)
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("SQLGEO_TABLE_HINTS", "NOLOCK")
	t.Setenv("SQLGEO_DATABASE_HOST", "env.local")

	c, err := NewConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, "NOLOCK", c.TableHints)
	assert.Equal(t, "env.local", c.DB.Host)
}

func TestLoadCatalog(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/conf/dev.yml", "catalog: features.yaml\n")

	c, err := ReadInConfigFS("/conf/dev.yml", fs)
	require.NoError(t, err)

	cat, err := c.LoadCatalog()
	require.NoError(t, err)
	assert.Empty(t, cat.FeatureTypes)

	writeFile(t, fs, "/conf/features.yaml", `
feature_types:
  - schema: dbo
    name: roads
    attributes:
      - { name: id, type: int }
      - { name: geom, type: geometry, geometry: true, srid: 4326 }
`)

	cat, err = c.LoadCatalog()
	require.NoError(t, err)

	ft, ok := cat.Find("dbo", "roads")
	require.True(t, ok)
	assert.Equal(t, 4326, ft.SRID("geom"))

	writeFile(t, fs, "/conf/features.yaml", "feature_types: [{ schema: dbo }]\n")
	_, err = c.LoadCatalog()
	assert.Error(t, err)
}

func TestGetConfigName(t *testing.T) {
	tests := map[string]string{
		"":           "dev",
		"production": "prod",
		"Stage":      "stage",
		"test":       "test",
		"qa":         "qa",
	}

	for env, want := range tests {
		t.Setenv("GO_ENV", env)
		assert.Equal(t, want, GetConfigName(), env)
	}
}
