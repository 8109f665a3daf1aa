package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrInvalidSchema indicates a schema definition error.
	ErrInvalidSchema = errors.New("crudgen: invalid schema")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("crudgen: missing configuration")
	// ErrMissingTemplate indicates that a custom endpoint has no template.
	ErrMissingTemplate = errors.New("crudgen: missing template")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("crudgen: code generation failed")
)

// SchemaError represents an entity schema that cannot be turned into a
// descriptor.
type SchemaError struct {
	Type    string // Entity name
	Field   string // Field name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("crudgen: schema error")
	if e.Type != "" {
		b.WriteString(" on entity ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(typeName, fieldName, message string, cause error) *SchemaError {
	return &SchemaError{
		Type:    typeName,
		Field:   fieldName,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("crudgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("crudgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// TemplateError represents a custom endpoint template that is missing or
// fails to render.
type TemplateError struct {
	Type     string // Entity name
	Endpoint string // Custom endpoint name
	Path     string // Template file
	Missing  bool
	Cause    error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	var b strings.Builder
	b.WriteString("crudgen: template error")
	if e.Type != "" {
		b.WriteString(" on entity ")
		b.WriteString(e.Type)
	}
	if e.Endpoint != "" {
		b.WriteString(" endpoint ")
		b.WriteString(e.Endpoint)
	}
	if e.Missing {
		fmt.Fprintf(&b, ": template %s not found", e.Path)
	} else if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrMissingTemplate for a missing
// template, or ErrGenerationFailed otherwise.
func (e *TemplateError) Is(target error) bool {
	if e.Missing {
		return target == ErrMissingTemplate
	}
	return target == ErrGenerationFailed
}

// NewTemplateError creates a TemplateError for a template that failed to
// parse or execute.
func NewTemplateError(typeName, endpoint, path string, cause error) *TemplateError {
	return &TemplateError{
		Type:     typeName,
		Endpoint: endpoint,
		Path:     path,
		Cause:    cause,
	}
}

// NewMissingTemplateError creates a TemplateError for a template file that
// does not exist.
func NewMissingTemplateError(typeName, endpoint, path string) *TemplateError {
	return &TemplateError{
		Type:     typeName,
		Endpoint: endpoint,
		Path:     path,
		Missing:  true,
	}
}

// GenerationError represents a failure while rendering or writing an
// artifact.
type GenerationError struct {
	Type     string // Entity name
	Artifact string // Artifact being produced
	Cause    error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("crudgen: generation failed")
	if e.Type != "" {
		b.WriteString(" for entity ")
		b.WriteString(e.Type)
	}
	if e.Artifact != "" {
		b.WriteString(" (")
		b.WriteString(e.Artifact)
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(typeName, artifact string, cause error) *GenerationError {
	return &GenerationError{
		Type:     typeName,
		Artifact: artifact,
		Cause:    cause,
	}
}

// IsSchemaError reports whether err is or wraps a SchemaError.
func IsSchemaError(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// IsTemplateError reports whether err is or wraps a TemplateError.
func IsTemplateError(err error) bool {
	var e *TemplateError
	return errors.As(err, &e)
}

// IsGenerationError reports whether err is or wraps a GenerationError.
func IsGenerationError(err error) bool {
	var e *GenerationError
	return errors.As(err, &e)
}
