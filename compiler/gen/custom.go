package gen

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// CustomData is the value custom endpoint templates execute against.
type CustomData struct {
	// Entity is the descriptor of the entity owning the endpoint.
	Entity *Type
	// Endpoint is the endpoint being rendered.
	Endpoint *Endpoint
	// Method is the lower-case HTTP method and Path the route path.
	Method string
	Path   string
}

// CustomFuncs is the function map available to custom endpoint templates.
var CustomFuncs = template.FuncMap{
	"pascal": Pascal,
	"camel":  Camel,
	"plural": plural,
	"title":  title,
	"lower":  strings.ToLower,
	"upper":  strings.ToUpper,
}

// ServiceTemplate returns the path of the service template of ep.
func ServiceTemplate(dir string, ep *Endpoint) string {
	return filepath.Join(dir, "custom", ep.Name+".service.tmpl")
}

// RouteTemplate returns the path of the route template of ep.
func RouteTemplate(dir string, ep *Endpoint) string {
	return filepath.Join(dir, "custom", ep.Name+".route.tmpl")
}

// customSource holds the rendered custom code of an entity per artifact.
type customSource map[Artifact][]byte

// renderCustom renders the custom endpoint templates of t. Every template
// is located before any is executed, so a missing one fails the entity as a
// whole.
func renderCustom(t *Type, dir string) (customSource, error) {
	type job struct {
		ep       *Endpoint
		artifact Artifact
		path     string
		text     []byte
	}
	var jobs []*job
	for _, ep := range t.CustomEndpoints {
		jobs = append(jobs, &job{ep: ep, artifact: ArtifactService, path: ServiceTemplate(dir, ep)})
		if ep.ExposeRoute {
			jobs = append(jobs, &job{ep: ep, artifact: ArtifactRoutes, path: RouteTemplate(dir, ep)})
		}
	}
	for _, j := range jobs {
		text, err := os.ReadFile(j.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, NewMissingTemplateError(t.Name, j.ep.Name, j.path)
		case err != nil:
			return nil, NewTemplateError(t.Name, j.ep.Name, j.path, err)
		}
		j.text = text
	}
	out := make(customSource)
	for _, j := range jobs {
		tmpl, err := template.New(filepath.Base(j.path)).
			Funcs(CustomFuncs).
			Option("missingkey=error").
			Parse(string(j.text))
		if err != nil {
			return nil, NewTemplateError(t.Name, j.ep.Name, j.path, err)
		}
		var buf bytes.Buffer
		data := &CustomData{
			Entity:   t,
			Endpoint: j.ep,
			Method:   strings.ToLower(j.ep.Method),
			Path:     j.ep.Path,
		}
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, NewTemplateError(t.Name, j.ep.Name, j.path, err)
		}
		out[j.artifact] = append(out[j.artifact], '\n')
		out[j.artifact] = append(out[j.artifact], bytes.TrimSpace(buf.Bytes())...)
		out[j.artifact] = append(out[j.artifact], '\n')
	}
	return out, nil
}
