package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Spec is one declared operation of a target set file.
type Spec struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Method      string            `json:"method" yaml:"method"`
	Path        string            `json:"path" yaml:"path"`
	Query       map[string]string `json:"query" yaml:"query"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
	Encoding    string            `json:"encoding" yaml:"encoding"`

	// FieldPath and Many are decoding hints for generic callers such as
	// the CLI; typed clients pass their own.
	FieldPath string `json:"field_path" yaml:"field_path"`
	Many      bool   `json:"many" yaml:"many"`
}

type setFile struct {
	Service string `json:"service" yaml:"service"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	Targets []Spec `json:"targets" yaml:"targets"`
}

// Set is a named, closed collection of target specs for one service.
type Set struct {
	mu      sync.RWMutex
	service string
	baseURL string
	specs   []Spec
	idx     map[string]Spec
}

// NewSet builds a Set from specs after sanitizing and validating them.
func NewSet(service, baseURL string, specs []Spec) (*Set, error) {
	if len(specs) == 0 {
		return nil, errors.New("target set contains no targets")
	}
	s := &Set{
		service: strings.TrimSpace(service),
		baseURL: strings.TrimSpace(baseURL),
		specs:   make([]Spec, 0, len(specs)),
		idx:     make(map[string]Spec, len(specs)),
	}
	for i := range specs {
		spec := sanitizeSpec(specs[i])
		if err := validateSpec(spec); err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		key := strings.ToLower(spec.Name)
		if _, exists := s.idx[key]; exists {
			return nil, fmt.Errorf("duplicate target name %q", spec.Name)
		}
		s.specs = append(s.specs, spec)
		s.idx[key] = spec
	}
	return s, nil
}

// LoadSet loads a target set from a YAML or JSON file.
func LoadSet(path string) (*Set, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("targets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	sf, err := parseSetFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewSet(sf.Service, sf.BaseURL, sf.Targets)
}

func parseSetFile(data []byte, ext string) (setFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var sf setFile
		if err := d.fn(data, &sf); err == nil {
			return sf, nil
		}
	}
	return setFile{}, errors.New("targets file format not recognized (expected YAML or JSON)")
}

func sanitizeSpec(s Spec) Spec {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	s.Method = strings.ToUpper(strings.TrimSpace(s.Method))
	if s.Method == "" {
		s.Method = http.MethodGet
	}
	s.Path = strings.TrimSpace(s.Path)
	s.Encoding = strings.ToLower(strings.TrimSpace(s.Encoding))
	s.FieldPath = strings.TrimSpace(s.FieldPath)
	return s
}

func validateSpec(s Spec) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Path == "" {
		return fmt.Errorf("path is required for target %q", s.Name)
	}
	if _, err := ParseEncoding(s.Encoding); err != nil {
		return fmt.Errorf("target %q: %w", s.Name, err)
	}
	return nil
}

// Service returns the service name declared by the set.
func (s *Set) Service() string {
	if s == nil {
		return ""
	}
	return s.service
}

// BaseURL returns the base URL declared by the set, if any.
func (s *Set) BaseURL() string {
	if s == nil {
		return ""
	}
	return s.baseURL
}

// ByName looks a spec up case-insensitively.
func (s *Set) ByName(name string) (Spec, bool) {
	if s == nil {
		return Spec{}, false
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Spec{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.idx[key]
	return spec, ok
}

// All returns the specs sorted by name.
func (s *Set) All() []Spec {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	out := make([]Spec, len(s.specs))
	copy(out, s.specs)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Bound is a Spec with concrete parameter values. It implements Target.
type Bound struct {
	desc Descriptor
}

// Descriptor implements Target.
func (b Bound) Descriptor() Descriptor { return b.desc }

// Bind turns the spec into a Target. Params matching a path placeholder
// fill it; the rest go to the query string, or to the body when the spec
// declares a body encoding.
func (s Spec) Bind(params map[string]string) (Bound, error) {
	enc, err := ParseEncoding(s.Encoding)
	if err != nil {
		return Bound{}, err
	}

	desc := Descriptor{
		Name:       s.Name,
		Method:     s.Method,
		Path:       s.Path,
		PathParams: map[string]string{},
		Query:      url.Values{},
		Headers:    map[string]string{},
		Encoding:   enc,
	}
	for k, v := range s.Query {
		desc.Query.Set(k, v)
	}
	for k, v := range s.Headers {
		desc.Headers[k] = v
	}

	placeholders := map[string]struct{}{}
	for _, name := range Placeholders(s.Path) {
		placeholders[name] = struct{}{}
		if _, ok := params[name]; !ok {
			return Bound{}, fmt.Errorf("target %q requires parameter %q", s.Name, name)
		}
	}

	rest := map[string]string{}
	for k, v := range params {
		if _, ok := placeholders[k]; ok {
			desc.PathParams[k] = v
			continue
		}
		rest[k] = v
	}

	switch enc {
	case EncodingNone:
		for k, v := range rest {
			desc.Query.Set(k, v)
		}
	default:
		if len(rest) > 0 {
			desc.Body = rest
		}
	}
	return Bound{desc: desc}, nil
}
