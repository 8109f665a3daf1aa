package gen

import (
	"errors"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultHeader is the comment placed at the top of every generated file.
const DefaultHeader = "Code generated by crudgen. DO NOT EDIT."

// Dirs names the sub-directories of the target that receive each artifact.
// Each directory is also the Go package name of its artifact.
type Dirs struct {
	Models   string
	Services string
	Routes   string
	Config   string
}

// Config holds the global codegen configuration shared by all entities.
type Config struct {
	// Package is the import path of the target directory, for example
	// "example.com/app/api". Artifact packages are imported relative to it.
	Package string
	// Target is the output directory.
	Target string
	// Templates is the directory holding custom endpoint templates.
	Templates string
	// Header is the comment placed at the top of each generated file.
	Header string
	// RoutePrefix is prepended to the path of every entity route group.
	RoutePrefix string
	// Dirs names the artifact sub-directories.
	Dirs Dirs
	// Workers bounds the number of artifacts rendered concurrently.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// WithPackage sets the import path of the target directory.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = strings.TrimSuffix(pkg, "/")
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithTemplates sets the directory holding custom endpoint templates.
func WithTemplates(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Templates", nil, "templates directory cannot be empty")
		}
		c.Templates = dir
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithRoutePrefix sets the prefix of every entity route group.
// For example: "/v1".
func WithRoutePrefix(prefix string) Option {
	return func(c *Config) error {
		if prefix != "" && !strings.HasPrefix(prefix, "/") {
			return NewConfigError("RoutePrefix", prefix, "route prefix must start with /")
		}
		c.RoutePrefix = strings.TrimSuffix(prefix, "/")
		return nil
	}
}

// WithDirs overrides the artifact sub-directories. Empty entries keep their
// default.
func WithDirs(d Dirs) Option {
	return func(c *Config) error {
		for _, dir := range []string{d.Models, d.Services, d.Routes, d.Config} {
			if dir != "" && !isIdent(dir) {
				return NewConfigError("Dirs", dir, "directory must be a valid package name")
			}
		}
		if d.Models != "" {
			c.Dirs.Models = d.Models
		}
		if d.Services != "" {
			c.Dirs.Services = d.Services
		}
		if d.Routes != "" {
			c.Dirs.Routes = d.Routes
		}
		if d.Config != "" {
			c.Dirs.Config = d.Config
		}
		return nil
	}
}

// WithWorkers sets the number of artifacts rendered concurrently.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate reports the first missing mandatory setting.
func (c *Config) Validate() error {
	switch {
	case c.Package == "":
		return NewConfigError("Package", nil, "package is required")
	case c.Target == "":
		return NewConfigError("Target", nil, "target directory is required")
	}
	return nil
}

// ImportPath returns the import path of an artifact directory.
func (c *Config) ImportPath(dir string) string {
	return path.Join(c.Package, dir)
}

// Path returns the on-disk path of a file inside an artifact directory.
func (c *Config) Path(dir, name string) string {
	return filepath.Join(c.Target, dir, name)
}

// NewConfig creates a new Config with defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Templates: "templates",
		Header:    DefaultHeader,
		Dirs: Dirs{
			Models:   "models",
			Services: "services",
			Routes:   "routes",
			Config:   "config",
		},
		Workers: runtime.GOMAXPROCS(0),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
