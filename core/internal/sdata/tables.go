package sdata

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// FeatureType describes a feature table as the data-access framework
// sees it.
type FeatureType struct {
	Schema     string         `yaml:"schema,omitempty"`
	Name       string         `yaml:"name"`
	PrimaryKey string         `yaml:"primary_key,omitempty"`
	Attributes []Attribute    `yaml:"attributes"`
	Indexes    []SpatialIndex `yaml:"indexes,omitempty"`
}

type Attribute struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	NotNull bool   `yaml:"not_null,omitempty"`

	Geometry     bool   `yaml:"geometry,omitempty"`
	GeometryType string `yaml:"geometry_type,omitempty"`
	SRID         int    `yaml:"srid,omitempty"`
	Dimension    int    `yaml:"dimension,omitempty"`
}

// SpatialIndex is a spatial index and the columns it covers.
type SpatialIndex struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

func (ft *FeatureType) Table() string {
	if ft.Schema == "" {
		return ft.Name
	}
	return ft.Schema + "." + ft.Name
}

func (ft *FeatureType) Attribute(name string) (Attribute, bool) {
	for _, a := range ft.Attributes {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Attribute{}, false
}

func (ft *FeatureType) GeometryAttributes() []Attribute {
	var attrs []Attribute
	for _, a := range ft.Attributes {
		if a.Geometry {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// SRID returns the declared SRID of a geometry column or zero.
func (ft *FeatureType) SRID(col string) int {
	if a, ok := ft.Attribute(col); ok {
		return a.SRID
	}
	return 0
}

// IndexFor returns the single column spatial index on col. Indexes
// spanning more than one column are never returned.
func (ft *FeatureType) IndexFor(col string) (SpatialIndex, bool) {
	for _, idx := range ft.Indexes {
		if len(idx.Columns) == 1 && strings.EqualFold(idx.Columns[0], col) {
			return idx, true
		}
	}
	return SpatialIndex{}, false
}

// SetGeometry records a resolved SRID and dimension on col.
func (ft *FeatureType) SetGeometry(col string, srid, dim int) {
	for i := range ft.Attributes {
		if strings.EqualFold(ft.Attributes[i].Name, col) {
			ft.Attributes[i].SRID = srid
			ft.Attributes[i].Dimension = dim
			return
		}
	}
}

// Catalog is a list of feature types, usually loaded from catalog.yaml.
type Catalog struct {
	FeatureTypes []FeatureType `yaml:"feature_types"`
}

func ReadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	for i, ft := range c.FeatureTypes {
		if ft.Name == "" {
			return nil, fmt.Errorf("catalog: feature type %d has no name", i)
		}
	}
	return &c, nil
}

// Find looks up a feature type, an empty schema matches any schema.
func (c *Catalog) Find(schema, name string) (*FeatureType, bool) {
	for i := range c.FeatureTypes {
		ft := &c.FeatureTypes[i]
		if !strings.EqualFold(ft.Name, name) {
			continue
		}
		if schema == "" || strings.EqualFold(ft.Schema, schema) {
			return ft, true
		}
	}
	return nil, false
}
