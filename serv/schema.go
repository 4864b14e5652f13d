package serv

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ConfigSchema returns the JSON schema of the configuration file. Keys
// are the ones read by viper.
func ConfigSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag:   "mapstructure",
		ExpandedStruct: true,
		DoNotReference: true,
	}

	s := r.Reflect(&Config{})
	s.Title = "sqlgeo configuration"

	return json.MarshalIndent(s, "", "  ")
}
