package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/crudgen/compiler/gen"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	v := New()
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "schemas", c.SchemasDir)
	assert.Equal(t, ".", c.Target)
	assert.Equal(t, "templates", c.TemplatesDir)
	assert.Equal(t, gen.DefaultHeader, c.Header)
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Equal(t, "crudgen.db", c.Store.DSN)
	assert.Equal(t, "ulid", c.Store.Keys)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 10, c.Log.MaxSize)
}

func TestRead(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := writeConfig(t, `
schemas_dir: api/schemas
target: api
package: example.com/shop/api
route_prefix: /v1
store:
  driver: mongo
  dsn: mongodb://localhost:27017
  database: shop
log:
  level: debug
  file: logs/crudgen.log
`)
		v := New()
		require.NoError(t, Read(v, path))
		c, err := Load(v)
		require.NoError(t, err)

		assert.Equal(t, "api/schemas", c.SchemasDir)
		assert.Equal(t, "example.com/shop/api", c.Package)
		assert.Equal(t, "/v1", c.RoutePrefix)
		assert.Equal(t, "mongo", c.Store.Driver)
		assert.Equal(t, "shop", c.Store.Database)
		assert.Equal(t, "debug", c.Log.Level)
		assert.Equal(t, "logs/crudgen.log", c.Log.File)
		assert.Equal(t, "templates", c.TemplatesDir)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		err := Read(New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("missing default file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		assert.NoError(t, Read(New(), ""))
	})

	t.Run("malformed file", func(t *testing.T) {
		path := writeConfig(t, "target: [\n")
		assert.Error(t, Read(New(), path))
	})
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CRUDGEN_STORE_DRIVER", "memory")
	t.Setenv("CRUDGEN_PACKAGE", "example.com/env")

	c, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Store.Driver)
	assert.Equal(t, "example.com/env", c.Package)
}

func TestBindFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("schemas-dir", "", "")
	flags.String("store-driver", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--schemas-dir=defs", "--store-driver=memory", "--log-level=error"}))

	v := New()
	require.NoError(t, BindFlags(v, flags))
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "defs", c.SchemasDir)
	assert.Equal(t, "memory", c.Store.Driver)
	assert.Equal(t, "error", c.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		workers int
		wantErr string
	}{
		{"sqlite", StoreConfig{Driver: "sqlite"}, 0, ""},
		{"memory", StoreConfig{Driver: "memory"}, 2, ""},
		{"unknown driver", StoreConfig{Driver: "arangodb"}, 0, "unknown store driver"},
		{"mongo without database", StoreConfig{Driver: "mongo"}, 0, "store.database"},
		{"negative workers", StoreConfig{Driver: "memory"}, -1, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{Store: tt.store, Workers: tt.workers}).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGenOptions(t *testing.T) {
	c := &Config{
		Target:       t.TempDir(),
		Package:      "example.com/shop/api",
		TemplatesDir: "tmpl",
		RoutePrefix:  "/v1",
		Header:       "custom",
		Workers:      2,
	}
	cfg, err := gen.NewConfig(c.GenOptions()...)
	require.NoError(t, err)
	assert.Equal(t, "tmpl", cfg.Templates)
	assert.Equal(t, "/v1", cfg.RoutePrefix)
	assert.Equal(t, "custom", cfg.Header)
	assert.Equal(t, 2, cfg.Workers)

	c.Package = ""
	_, err = gen.NewConfig(c.GenOptions()...)
	assert.ErrorIs(t, err, gen.ErrMissingConfig)
}
