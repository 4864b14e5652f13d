package serv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSchema(t *testing.T) {
	b, err := ConfigSchema()
	require.NoError(t, err)

	var s struct {
		Title      string                            `json:"title"`
		Properties map[string]map[string]interface{} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(b, &s))

	assert.Equal(t, "sqlgeo configuration", s.Title)

	for _, k := range []string{"metadata_table", "native_paging", "table_hints", "app_name", "log_level", "catalog", "database"} {
		assert.Contains(t, s.Properties, k)
	}
	assert.NotContains(t, s.Properties, "Core")
	assert.NotContains(t, s.Properties, "fs")

	assert.Equal(t, "Native Paging", s.Properties["native_paging"]["title"])
	assert.Equal(t, true, s.Properties["native_paging"]["default"])
	assert.Equal(t, []interface{}{"debug", "error", "warn", "info"}, s.Properties["log_level"]["enum"])
}
