package endpoint

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

// Encoding selects how Descriptor.Body is written to the request.
type Encoding int

const (
	// EncodingNone sends no body; Body is ignored.
	EncodingNone Encoding = iota
	// EncodingJSON marshals Body as a JSON document.
	EncodingJSON
	// EncodingForm sends Body as application/x-www-form-urlencoded.
	// Body must be url.Values or map[string]string.
	EncodingForm
)

// String returns the encoding name used in target-set files.
func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingForm:
		return "form"
	default:
		return "none"
	}
}

// ParseEncoding maps a target-set file value to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return EncodingNone, nil
	case "json":
		return EncodingJSON, nil
	case "form", "urlencoded":
		return EncodingForm, nil
	default:
		return EncodingNone, fmt.Errorf("unknown encoding %q", s)
	}
}

// Descriptor identifies one remote API operation.
//
// Descriptors are values: the With* helpers return modified copies and
// never touch the receiver's maps.
type Descriptor struct {
	// Name is an optional label used in logs and metrics.
	Name string

	// Method is the HTTP method. Mandatory.
	Method string

	// Path is the URL path, optionally containing {name} placeholders
	// resolved from PathParams. Mandatory.
	Path string

	PathParams map[string]string
	Query      url.Values
	Headers    map[string]string

	Body     any
	Encoding Encoding
}

// Target is implemented by every member of a target set.
type Target interface {
	Descriptor() Descriptor
}

var (
	ErrMissingMethod = errors.New("descriptor method is empty")
	ErrMissingPath   = errors.New("descriptor path is empty")
)

// Validate checks the mandatory fields.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Method) == "" {
		return ErrMissingMethod
	}
	if strings.TrimSpace(d.Path) == "" {
		return ErrMissingPath
	}
	return nil
}

// HTTPMethod returns the upper-cased method, defaulting to GET.
func (d Descriptor) HTTPMethod() string {
	m := strings.ToUpper(strings.TrimSpace(d.Method))
	if m == "" {
		return http.MethodGet
	}
	return m
}

// Label returns Name, or "METHOD path" when no name is set.
func (d Descriptor) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.HTTPMethod() + " " + d.Path
}

// ResolvedPath substitutes {name} placeholders in Path with escaped
// values from PathParams.
func (d Descriptor) ResolvedPath() (string, error) {
	return expandPath(d.Path, d.PathParams)
}

// WithQuery returns a copy of d with key set to value in the query.
func (d Descriptor) WithQuery(key, value string) Descriptor {
	q := make(url.Values, len(d.Query)+1)
	for k, v := range d.Query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(key, value)
	d.Query = q
	return d
}

// WithHeader returns a copy of d with the header set.
func (d Descriptor) WithHeader(key, value string) Descriptor {
	h := make(map[string]string, len(d.Headers)+1)
	maps.Copy(h, d.Headers)
	h[key] = value
	d.Headers = h
	return d
}

// WithPathParam returns a copy of d with the placeholder value set.
func (d Descriptor) WithPathParam(key, value string) Descriptor {
	p := make(map[string]string, len(d.PathParams)+1)
	maps.Copy(p, d.PathParams)
	p[key] = value
	d.PathParams = p
	return d
}

// Placeholders lists the {name} placeholders in a path template in order
// of appearance.
func Placeholders(template string) []string {
	var out []string
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return out
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return out
		}
		if name := strings.TrimSpace(rest[open+1 : open+end]); name != "" {
			out = append(out, name)
		}
		rest = rest[open+end+1:]
	}
}

func expandPath(template string, params map[string]string) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("path %q has an unterminated placeholder", template)
		}
		name := strings.TrimSpace(rest[open+1 : open+end])
		value, ok := params[name]
		if name == "" || !ok {
			return "", fmt.Errorf("path %q: no value for placeholder %q", template, name)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}
}
