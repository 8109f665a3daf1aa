// Package ginx adapts the crud runtime to gin handlers: request binding that
// keeps explicit nulls, query parsing, pagination and error responses.
package ginx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/syssam/crudgen/crud"
	"github.com/syssam/crudgen/docstore"
)

// label is used for errors raised while decoding requests.
const label = "request"

// WriteError aborts the request with the status and detail of err.
func WriteError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(crud.StatusCode(err), gin.H{"detail": crud.Detail(err)})
}

// Pagination parses the skip and limit query parameters. Limit defaults to
// crud.DefaultLimit and is capped at crud.MaxLimit.
func Pagination(c *gin.Context) (skip, limit int, err error) {
	if skip, err = intQuery(c, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = intQuery(c, "limit", crud.DefaultLimit); err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		return 0, 0, crud.NewValidationError(label, "skip", "must not be negative")
	}
	if limit < 1 {
		return 0, 0, crud.NewValidationError(label, "limit", "must be positive")
	}
	return skip, crud.ClampLimit(limit), nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, crud.NewValidationError(label, name, "must be an integer")
	}
	return n, nil
}

// QueryFilters collects the search fields present in the query string,
// converted to the kind of each field. Absent or empty parameters are
// skipped.
func QueryFilters(c *gin.Context, fields map[string]crud.Kind) (map[string]any, error) {
	filters := make(map[string]any)
	for name, kind := range fields {
		raw, ok := c.GetQuery(name)
		if !ok || raw == "" {
			continue
		}
		v, err := ParseValue(kind, raw)
		if err != nil {
			return nil, crud.NewValidationError(label, name, err.Error())
		}
		filters[name] = v
	}
	return filters, nil
}

// ParseValue converts a query string value to the Go value of kind.
func ParseValue(kind crud.Kind, raw string) (any, error) {
	switch kind {
	case crud.KindInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.New("must be an integer")
		}
		return n, nil
	case crud.KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New("must be a number")
		}
		return f, nil
	case crud.KindBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.New("must be a boolean")
		}
		return b, nil
	default:
		return raw, nil
	}
}

// BindDocument decodes the JSON body into model, validates it with gin's
// validator and returns the raw document restricted to the fields model
// declares. Explicit nulls are preserved in the returned document. Keys of
// aliases are renamed to their target field before decoding.
func BindDocument(c *gin.Context, model any, aliases map[string]string) (docstore.Document, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, crud.NewValidationError(label, "", "unreadable body")
	}
	var doc docstore.Document
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return nil, crud.NewValidationError(label, "", "body must be a JSON object")
	}
	for alias, field := range aliases {
		if v, ok := doc[alias]; ok {
			if _, set := doc[field]; !set {
				doc[field] = v
			}
			delete(doc, alias)
		}
	}
	known := jsonFields(reflect.TypeOf(model))
	for k := range doc {
		if _, ok := known[k]; !ok {
			delete(doc, k)
		}
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, crud.NewValidationError(label, "", err.Error())
	}
	if err := json.Unmarshal(buf, model); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, crud.NewValidationError(label, typeErr.Field, fmt.Sprintf("must be of type %s", typeErr.Type))
		}
		return nil, crud.NewValidationError(label, "", err.Error())
	}
	if err := binding.Validator.ValidateStruct(model); err != nil {
		return nil, crud.NewValidationError(label, "", err.Error())
	}
	return doc, nil
}

// jsonFields returns the JSON names of the exported fields of a struct type.
func jsonFields(t reflect.Type) map[string]struct{} {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	fields := make(map[string]struct{})
	if t == nil || t.Kind() != reflect.Struct {
		return fields
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		fields[name] = struct{}{}
	}
	return fields
}
