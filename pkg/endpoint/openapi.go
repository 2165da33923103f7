package endpoint

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// LoadOpenAPISet builds a target set from an OpenAPI 3 document. Each
// operation becomes one spec named after its operationId.
func LoadOpenAPISet(path string) (*Set, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	return SetFromOpenAPI(doc)
}

// LoadOpenAPISetFromData is LoadOpenAPISet for an in-memory document.
func LoadOpenAPISetFromData(data []byte) (*Set, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	return SetFromOpenAPI(doc)
}

// SetFromOpenAPI converts a parsed document into a Set.
func SetFromOpenAPI(doc *openapi3.T) (*Set, error) {
	if doc == nil || doc.Paths == nil {
		return nil, fmt.Errorf("openapi document has no paths")
	}

	var specs []Spec
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for p := range paths {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	for _, p := range keys {
		item := paths[p]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, method := range methods {
			specs = append(specs, specFromOperation(method, p, ops[method]))
		}
	}

	var service, baseURL string
	if doc.Info != nil {
		service = doc.Info.Title
	}
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		baseURL = doc.Servers[0].URL
	}
	return NewSet(service, baseURL, specs)
}

func specFromOperation(method, path string, op *openapi3.Operation) Spec {
	spec := Spec{
		Name:   operationName(method, path, op),
		Method: strings.ToUpper(method),
		Path:   path,
	}
	if op == nil {
		return spec
	}
	spec.Description = op.Summary

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		content := op.RequestBody.Value.Content
		switch {
		case content.Get(contentTypeJSON) != nil:
			spec.Encoding = EncodingJSON.String()
		case content.Get(contentTypeForm) != nil:
			spec.Encoding = EncodingForm.String()
		}
	}

	if op.Responses != nil {
		if resp := op.Responses.Status(http.StatusOK); resp != nil && resp.Value != nil {
			if mt := resp.Value.Content.Get(contentTypeJSON); mt != nil && mt.Schema != nil && mt.Schema.Value != nil {
				if t := mt.Schema.Value.Type; t != nil && t.Is(openapi3.TypeArray) {
					spec.Many = true
				}
			}
		}
	}
	return spec
}

func operationName(method, path string, op *openapi3.Operation) string {
	if op != nil && strings.TrimSpace(op.OperationID) != "" {
		return strings.TrimSpace(op.OperationID)
	}
	// GET /users/{id} -> get_users_id
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.Split(path, "/") {
		part = strings.Trim(part, "{}")
		if part == "" {
			continue
		}
		b.WriteByte('_')
		b.WriteString(part)
	}
	return b.String()
}
