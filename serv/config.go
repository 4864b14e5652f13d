package serv

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dosco/sqlgeo/core"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

type Core = core.Config

// Configuration for the sqlgeo tools
type Config struct {
	// Configuration for the spatial dialect
	Core `mapstructure:",squash" jsonschema:"title=Dialect Configuration"`

	// Configuration for the runtime
	Serv `mapstructure:",squash" jsonschema:"title=Runtime Configuration"`

	fs    afero.Fs
	viper *viper.Viper
}

// Configuration for the runtime
type Serv struct {
	// Application name is used in log messages
	AppName string `mapstructure:"app_name" jsonschema:"title=Application Name"`

	// When enabled logs default to JSON
	Production bool `jsonschema:"title=Production Mode,default=false"`

	// The default path to find all configuration files
	ConfigPath string `mapstructure:"config_path" jsonschema:"title=Config Path"`

	// Logging level must be one of debug, error, warn, info
	LogLevel string `mapstructure:"log_level" jsonschema:"title=Log Level,enum=debug,enum=error,enum=warn,enum=info"`

	// Logging Format: "auto" (console in dev, JSON in production),
	// "json" or "simple"
	LogFormat string `mapstructure:"log_format" jsonschema:"title=Logging Format,enum=auto,enum=json,enum=simple"`

	// Feature type catalog, relative to the config path
	Catalog string `mapstructure:"catalog" jsonschema:"title=Feature Type Catalog,default=catalog.yaml"`

	// Database configuration
	DB Database `mapstructure:"database" jsonschema:"title=Database"`
}

// Database configuration
type Database struct {
	ConnString string `mapstructure:"connection_string" jsonschema:"title=Connection String"`
	Host       string `jsonschema:"title=Host"`
	Port       uint16 `jsonschema:"title=Port,default=1433"`
	DBName     string `jsonschema:"title=Database Name"`
	User       string `jsonschema:"title=User"`
	Password   string `jsonschema:"title=Password"`
	Schema     string `jsonschema:"title=Default Schema,default=dbo"`

	// Encrypt the connection, nil leaves the driver default
	Encrypt *bool `mapstructure:"encrypt" jsonschema:"title=Encrypt"`

	// Skip verification of the server certificate
	TrustServerCertificate *bool `mapstructure:"trust_server_certificate" jsonschema:"title=Trust Server Certificate"`

	// Number of connection attempts before giving up
	ConnectRetries int `mapstructure:"connect_retries" jsonschema:"title=Connect Retries,default=10"`
}

// ReadInConfig reads in the config file for the environment specified in the GO_ENV
// environment variable. This is the best way to create a new config.
func ReadInConfig(configFile string) (*Config, error) {
	return readInConfig(configFile, afero.NewOsFs())
}

// ReadInConfigFS is the same as ReadInConfig but it also takes a filesytem as an argument
func ReadInConfigFS(configFile string, fs afero.Fs) (*Config, error) {
	return readInConfig(configFile, fs)
}

func readInConfig(configFile string, fs afero.Fs) (*Config, error) {
	cp := filepath.Dir(configFile)
	vi := newViper(cp, filepath.Base(configFile))
	vi.SetFs(fs)

	if err := vi.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", configFile)
	}

	if pcf := vi.GetString("inherits"); pcf != "" {
		cf := vi.ConfigFileUsed()
		vi = newViper(cp, pcf)
		vi.SetFs(fs)

		if err := vi.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading inherited config %s", pcf)
		}

		if value := vi.GetString("inherits"); value != "" {
			return nil, errors.Errorf("inherited config '%s' cannot itself inherit '%s'", pcf, value)
		}

		vi.SetConfigFile(cf)

		if err := vi.MergeInConfig(); err != nil {
			return nil, err
		}
	}

	c := &Config{fs: fs, viper: vi}

	if err := vi.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	c.ConfigPath = cp

	if err := c.Core.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewConfig function creates a new config from a string, format is yaml
// when empty.
func NewConfig(config, format string) (*Config, error) {
	if format == "" {
		format = "yaml"
	}

	vi := newViperWithDefaults()
	vi.SetConfigType(format)

	if err := vi.ReadConfig(strings.NewReader(config)); err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	c := &Config{fs: afero.NewOsFs(), viper: vi}

	if err := vi.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if err := c.Core.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func newViperWithDefaults() *viper.Viper {
	vi := viper.New()

	def := core.DefaultConfig()

	vi.SetDefault("metadata_table", def.MetadataTable)
	vi.SetDefault("native_paging", def.NativePaging)
	vi.SetDefault("native_serialization", def.NativeSerialization)
	vi.SetDefault("force_spatial_index", def.ForceSpatialIndex)
	vi.SetDefault("table_hints", def.TableHints)
	vi.SetDefault("metadata_cache_size", def.MetadataCacheSize)
	vi.SetDefault("metadata_cache_ttl", def.MetadataCacheTTL)

	vi.SetDefault("app_name", "sqlgeo")
	vi.SetDefault("log_level", "info")
	vi.SetDefault("log_format", "auto")
	vi.SetDefault("catalog", "catalog.yaml")

	vi.SetDefault("database.host", "localhost")
	vi.SetDefault("database.port", 1433)
	vi.SetDefault("database.user", "sa")
	vi.SetDefault("database.password", "")
	vi.SetDefault("database.dbname", "")
	vi.SetDefault("database.schema", "dbo")
	vi.SetDefault("database.connect_retries", 10)

	vi.SetDefault("env", "development")
	vi.BindEnv("env", "GO_ENV") //nolint:errcheck

	// SQLGEO_DATABASE_HOST overrides database.host
	vi.SetEnvPrefix("SQLGEO")
	vi.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vi.AutomaticEnv()

	return vi
}

func newViper(configPath, configFile string) *viper.Viper {
	vi := newViperWithDefaults()
	vi.SetConfigName(strings.TrimSuffix(configFile, filepath.Ext(configFile)))

	if configPath == "" {
		vi.AddConfigPath("./config")
	} else {
		vi.AddConfigPath(configPath)
	}

	return vi
}

// AbsolutePath returns p relative to the config path
func (c *Config) AbsolutePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ConfigPath, p)
}

// SetFS sets the file system the catalog is read from
func (c *Config) SetFS(fs afero.Fs) {
	c.fs = fs
}

func (c *Config) filesystem() afero.Fs {
	if c.fs == nil {
		return afero.NewOsFs()
	}
	return c.fs
}

// ShouldUseJSONLogs returns true if the logs should be in JSON format
func (c *Config) ShouldUseJSONLogs() bool {
	if c.LogFormat == "json" {
		return true
	}
	return c.LogFormat == "auto" && c.Production
}

// LoadCatalog reads the feature type catalog. A missing catalog file
// is an empty catalog.
func (c *Config) LoadCatalog() (*core.Catalog, error) {
	if c.Catalog == "" {
		return &core.Catalog{}, nil
	}

	fs := c.filesystem()
	p := c.AbsolutePath(c.Catalog)

	f, err := fs.Open(p)
	if os.IsNotExist(err) {
		return &core.Catalog{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening catalog %s", p)
	}
	defer f.Close() //nolint:errcheck

	return core.ReadCatalog(f)
}

// GetConfigName returns the name of the config file for the current
// environment
func GetConfigName() string {
	goEnv := strings.TrimSpace(strings.ToLower(os.Getenv("GO_ENV")))

	switch goEnv {
	case "production", "prod":
		return "prod"

	case "staging", "stage":
		return "stage"

	case "testing", "test":
		return "test"

	case "development", "dev", "":
		return "dev"

	default:
		return goEnv
	}
}
