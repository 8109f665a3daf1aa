package gen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithHeader(t *testing.T) {
	t.Run("sets header", func(t *testing.T) {
		c := &Config{}
		err := WithHeader("Custom header")(c)

		require.NoError(t, err)
		assert.Equal(t, "Custom header", c.Header)
	})

	t.Run("empty header is allowed", func(t *testing.T) {
		c := &Config{Header: "existing"}
		err := WithHeader("")(c)

		require.NoError(t, err)
		assert.Equal(t, "", c.Header)
	})
}

func TestWithPackage(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithPackage("example.com/app/api/")(c))
	assert.Equal(t, "example.com/app/api", c.Package)

	err := WithPackage("")(c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestWithTargetAndTemplates(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithTarget("./api")(c))
	require.NoError(t, WithTemplates("./tmpl")(c))
	assert.Equal(t, "./api", c.Target)
	assert.Equal(t, "./tmpl", c.Templates)

	assert.True(t, IsConfigError(WithTarget("")(c)))
	assert.True(t, IsConfigError(WithTemplates("")(c)))
}

func TestWithRoutePrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"/v1", "/v1", false},
		{"/v1/", "/v1", false},
		{"v1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			c := &Config{}
			err := WithRoutePrefix(tt.prefix)(c)
			if tt.wantErr {
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.RoutePrefix)
		})
	}
}

func TestWithDirs(t *testing.T) {
	c, err := NewConfig(WithPackage("example.com/app"), WithTarget("out"), WithDirs(Dirs{Models: "schemas"}))
	require.NoError(t, err)
	assert.Equal(t, Dirs{Models: "schemas", Services: "services", Routes: "routes", Config: "config"}, c.Dirs)

	err = WithDirs(Dirs{Routes: "my-routes"})(c)
	assert.True(t, IsConfigError(err))
}

func TestWithWorkers(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithWorkers(2)(c))
	assert.Equal(t, 2, c.Workers)
	assert.True(t, IsConfigError(WithWorkers(0)(c)))
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := NewConfig(WithPackage("example.com/app/api"), WithTarget("out"))
		require.NoError(t, err)
		assert.Equal(t, DefaultHeader, c.Header)
		assert.Equal(t, "templates", c.Templates)
		assert.Positive(t, c.Workers)
		assert.Equal(t, "example.com/app/api/models", c.ImportPath(c.Dirs.Models))
		assert.Equal(t, filepath.Join("out", "routes", "x.go"), c.Path(c.Dirs.Routes, "x.go"))
	})

	t.Run("missing package", func(t *testing.T) {
		_, err := NewConfig(WithTarget("out"))
		assert.ErrorIs(t, err, ErrMissingConfig)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := NewConfig(WithPackage("example.com/app"))
		assert.ErrorIs(t, err, ErrMissingConfig)
	})

	t.Run("first option error wins", func(t *testing.T) {
		_, err := NewConfig(WithWorkers(-1), WithPackage(""))
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "Workers", cerr.Option)
	})

	t.Run("MustNewConfig panics", func(t *testing.T) {
		assert.Panics(t, func() { MustNewConfig() })
	})
}

func TestApplyAll(t *testing.T) {
	c := &Config{}
	err := c.ApplyAll(WithWorkers(0), WithPackage(""), WithTarget("out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Workers")
	assert.Contains(t, err.Error(), "Package")
	assert.Equal(t, "out", c.Target)
}
