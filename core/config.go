package core

import (
	"fmt"
	"regexp"
	"time"
)

// Configuration for the SQL Server spatial dialect. The values are
// copied by New and never change afterwards.
type Config struct {
	// Table holding the SRID and dimension of geometry columns, usually
	// dbo.geometry_columns. When empty geometry columns are probed
	MetadataTable string `mapstructure:"metadata_table" json:"metadata_table" yaml:"metadata_table" jsonschema:"title=Geometry Metadata Table"`

	// Apply limit and offset by rewriting the SQL statement. When false
	// rows are skipped and counted while reading the result
	NativePaging bool `mapstructure:"native_paging" json:"native_paging" yaml:"native_paging" jsonschema:"title=Native Paging,default=true"`

	// Read and write geometry columns in the SQL Server serialization
	// format instead of WKB
	NativeSerialization bool `mapstructure:"native_serialization" json:"native_serialization" yaml:"native_serialization" jsonschema:"title=Native Geometry Serialization,default=false"`

	// Add an index hint when a filter uses a single spatially indexed column
	ForceSpatialIndex bool `mapstructure:"force_spatial_index" json:"force_spatial_index" yaml:"force_spatial_index" jsonschema:"title=Force Spatial Index,default=false"`

	// Free text table hints added to the WITH clause, eg. NOLOCK
	TableHints string `mapstructure:"table_hints" json:"table_hints" yaml:"table_hints" jsonschema:"title=Table Hints"`

	// Number of resolved geometry columns to keep, zero disables the cache
	MetadataCacheSize int `mapstructure:"metadata_cache_size" json:"metadata_cache_size" yaml:"metadata_cache_size" jsonschema:"title=Metadata Cache Size,default=512"`

	// How long a resolved geometry column is kept, zero keeps it until
	// evicted or refreshed
	MetadataCacheTTL time.Duration `mapstructure:"metadata_cache_ttl" json:"metadata_cache_ttl" yaml:"metadata_cache_ttl" jsonschema:"title=Metadata Cache TTL"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		NativePaging:      true,
		MetadataCacheSize: 512,
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#@]*(\.[A-Za-z_][A-Za-z0-9_$#@]*){0,2}$`)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.MetadataTable != "" && !identRe.MatchString(c.MetadataTable) {
		return fmt.Errorf("invalid metadata table name: %q", c.MetadataTable)
	}
	if c.MetadataCacheSize < 0 {
		return fmt.Errorf("metadata cache size must not be negative: %d", c.MetadataCacheSize)
	}
	if c.MetadataCacheTTL < 0 {
		return fmt.Errorf("metadata cache ttl must not be negative: %s", c.MetadataCacheTTL)
	}
	return nil
}
