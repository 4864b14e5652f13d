package sdata_test

import (
	"strings"
	"testing"

	"github.com/dosco/sqlgeo/core/internal/sdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
feature_types:
  - schema: dbo
    name: roads
    primary_key: id
    attributes:
      - { name: id, type: int, not_null: true }
      - { name: name, type: nvarchar }
      - { name: geom, type: geometry, geometry: true, geometry_type: LineString, srid: 4326 }
    indexes:
      - { name: roads_geom_sidx, columns: [geom] }
  - name: parcels
    attributes:
      - { name: shape, type: geometry, geometry: true }
`

func TestReadCatalog(t *testing.T) {
	c, err := sdata.ReadCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	require.Len(t, c.FeatureTypes, 2)

	ft, ok := c.Find("dbo", "ROADS")
	require.True(t, ok)
	assert.Equal(t, "dbo.roads", ft.Table())
	assert.Equal(t, 4326, ft.SRID("geom"))
	assert.Equal(t, 0, ft.SRID("missing"))

	a, ok := ft.Attribute("Geom")
	require.True(t, ok)
	assert.Equal(t, "LineString", a.GeometryType)

	ft.SetGeometry("geom", 3857, 3)
	a, _ = ft.Attribute("geom")
	assert.Equal(t, 3857, a.SRID)
	assert.Equal(t, 3, a.Dimension)

	ft, ok = c.Find("", "parcels")
	require.True(t, ok)
	assert.Equal(t, "parcels", ft.Table())

	_, ok = c.Find("other", "roads")
	assert.False(t, ok)
}

func TestReadCatalogErrors(t *testing.T) {
	_, err := sdata.ReadCatalog(strings.NewReader("feature_types:\n  - schema: dbo\n"))
	assert.Error(t, err)

	_, err = sdata.ReadCatalog(strings.NewReader("feature_types:\n  - name: t\n    colour: red\n"))
	assert.Error(t, err)

	c, err := sdata.ReadCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, c.FeatureTypes)
}
