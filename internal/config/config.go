// Package config loads the crudgen settings from crudgen.yaml, CRUDGEN_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/syssam/crudgen/compiler/gen"
	"github.com/syssam/crudgen/internal/logx"
)

// FileName is the configuration file looked up in the working directory
// when none is given explicitly.
const FileName = "crudgen.yaml"

// EnvPrefix prefixes the environment variables overriding configuration
// keys, e.g. CRUDGEN_STORE_DRIVER.
const EnvPrefix = "CRUDGEN"

// Config holds the settings of a crudgen run.
type Config struct {
	// SchemasDir holds the *.schema.json files.
	SchemasDir string `mapstructure:"schemas_dir"`
	// Target is the root directory of the generated code.
	Target string `mapstructure:"target"`
	// Package is the import path of Target.
	Package string `mapstructure:"package"`
	// TemplatesDir holds the custom endpoint templates.
	TemplatesDir string `mapstructure:"templates_dir"`
	RoutePrefix  string `mapstructure:"route_prefix"`
	Header       string `mapstructure:"header"`
	Workers      int    `mapstructure:"workers"`

	Store StoreConfig `mapstructure:"store"`
	Log   logx.Config `mapstructure:"log"`
}

// StoreConfig selects the document store used by the db commands.
type StoreConfig struct {
	// Driver is one of memory, sqlite, mongo.
	Driver string `mapstructure:"driver"`
	// DSN is the SQLite data source or the MongoDB URI.
	DSN string `mapstructure:"dsn"`
	// Database is the MongoDB database name.
	Database string `mapstructure:"database"`
	// Keys selects the document key generator: ulid or uuid.
	Keys string `mapstructure:"keys"`
}

// Drivers lists the supported store drivers.
var Drivers = []string{"memory", "sqlite", "mongo"}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("schemas_dir", "schemas")
	v.SetDefault("target", ".")
	v.SetDefault("package", "")
	v.SetDefault("templates_dir", "templates")
	v.SetDefault("route_prefix", "")
	v.SetDefault("header", gen.DefaultHeader)
	v.SetDefault("workers", 0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "crudgen.db")
	v.SetDefault("store.database", "crudgen")
	v.SetDefault("store.keys", "ulid")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.compress", false)
	v.SetDefault("log.dev", false)
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds command-line flags to their keys. Flag names use dashes
// where keys use underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if strings.HasPrefix(key, "store_") {
			key = "store." + strings.TrimPrefix(key, "store_")
		}
		if strings.HasPrefix(key, "log_") {
			key = "log." + strings.TrimPrefix(key, "log_")
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Read reads the configuration file. An explicit file must exist; the
// default crudgen.yaml is optional.
func Read(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && (file != "" || !errors.As(err, &notFound)) {
		return fmt.Errorf("config: read %s: %w", configName(file), err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Watch calls fn with the reloaded settings whenever the configuration file
// changes. Invalid reloads are reported through onErr and otherwise ignored.
func Watch(v *viper.Viper, fn func(*Config), onErr func(error)) {
	v.OnConfigChange(func(fsnotify.Event) {
		c, err := Load(v)
		if err != nil {
			onErr(err)
			return
		}
		fn(c)
	})
	v.WatchConfig()
}

// Validate checks the store settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "mongo":
	default:
		return fmt.Errorf("config: unknown store driver %q (want one of %s)", c.Store.Driver, strings.Join(Drivers, ", "))
	}
	if c.Store.Driver == "mongo" && c.Store.Database == "" {
		return errors.New("config: store.database is required for mongo")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// GenOptions returns the generator options of c.
func (c *Config) GenOptions() []gen.Option {
	opts := []gen.Option{
		gen.WithPackage(c.Package),
		gen.WithTarget(c.Target),
		gen.WithTemplates(c.TemplatesDir),
		gen.WithHeader(c.Header),
		gen.WithRoutePrefix(c.RoutePrefix),
	}
	if c.Workers > 0 {
		opts = append(opts, gen.WithWorkers(c.Workers))
	}
	return opts
}

func configName(file string) string {
	if file == "" {
		return FileName
	}
	return file
}
