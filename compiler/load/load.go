// Package load reads entity schemas from JSON Schema documents and validates
// their structure before code generation.
package load

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Extension is the file suffix of schema documents.
const Extension = ".schema.json"

// ErrInvalidSchema is the sentinel matched by every InvalidSchemaError.
var ErrInvalidSchema = errors.New("load: invalid schema")

// InvalidSchemaError reports a schema document that cannot be used.
type InvalidSchemaError struct {
	Name   string
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *InvalidSchemaError) Error() string {
	where := e.Name
	if e.Path != "" {
		where = e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("load: invalid schema %s: %s: %v", where, e.Reason, e.Err)
	}
	return fmt.Sprintf("load: invalid schema %s: %s", where, e.Reason)
}

// Unwrap returns the underlying error.
func (e *InvalidSchemaError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidSchema.
func (e *InvalidSchemaError) Is(target error) bool { return target == ErrInvalidSchema }

// IsInvalidSchema returns true if the error is an InvalidSchemaError.
func IsInvalidSchema(err error) bool {
	return err != nil && errors.Is(err, ErrInvalidSchema)
}

// Load reads and validates the schema document at path. The entity name is
// the file name without its ".schema.json" (or ".json") suffix.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: read schema: %w", err)
	}
	s, err := Parse(EntityName(path), data)
	if err != nil {
		var ie *InvalidSchemaError
		if errors.As(err, &ie) {
			ie.Path = path
		}
		return nil, err
	}
	s.Path = path
	return s, nil
}

// EntityName derives the entity name from a schema file path.
func EntityName(path string) string {
	base := filepath.Base(path)
	if name, ok := strings.CutSuffix(base, Extension); ok {
		return name
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Glob returns the schema documents of dir in lexical order.
func Glob(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("load: schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("load: schema directory: %s is not a directory", dir)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*"+Extension))
	if err != nil {
		return nil, fmt.Errorf("load: glob schemas: %w", err)
	}
	slices.Sort(paths)
	return paths, nil
}
