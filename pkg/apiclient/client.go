// Package apiclient executes endpoint descriptors over a pluggable transport
// and decodes JSON responses, optionally below a field path, into typed models.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/samvad-hq/endpointkit/pkg/endpoint"
	"github.com/samvad-hq/endpointkit/pkg/httpclient"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Client executes targets of one family T. It is safe for concurrent use.
type Client[T endpoint.Target] struct {
	cfg settings

	once      sync.Once
	transport httpclient.Transport
}

// New creates a client. The transport is built lazily on first use.
func New[T endpoint.Target](opts ...Option) *Client[T] {
	cfg := defaultSettings()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Client[T]{cfg: cfg}
}

// Transport returns the client's transport, constructing it exactly once.
func (c *Client[T]) Transport() httpclient.Transport {
	c.once.Do(func() {
		if c.cfg.factory != nil {
			t := c.cfg.factory()
			if !c.cfg.bare {
				t = httpclient.Wrap(t, c.plugins()...)
			}
			c.transport = t
			return
		}
		c.transport = httpclient.NewRestyTransport(c.cfg.http, c.plugins()...)
	})
	return c.transport
}

// plugins is the request logging plugin followed by the configured ones.
func (c *Client[T]) plugins() []httpclient.Plugin {
	out := make([]httpclient.Plugin, 0, len(c.cfg.plugins)+1)
	out = append(out, httpclient.NewLoggingPlugin(c.cfg.log, c.cfg.http.VerboseLogging))
	return append(out, c.cfg.plugins...)
}

// exchange performs target and returns the body of a 2xx response.
func (c *Client[T]) exchange(ctx context.Context, target T) ([]byte, error) {
	if any(target) == nil {
		return nil, errors.New("apiclient: nil target")
	}
	req, err := buildRequest(target.Descriptor())
	if err != nil {
		return nil, err
	}

	transport := c.Transport()
	if transport == nil {
		return nil, errors.New("apiclient: no transport configured")
	}
	resp, err := transport.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &HTTPStatusError{
			Method:     req.Method,
			URL:        c.resolveURL(req),
			StatusCode: code,
			Body:       resp.Body(),
		}
	}
	return resp.Body(), nil
}

func (c *Client[T]) resolveURL(req *httpclient.Request) string {
	target := req.Path
	if u, err := url.Parse(target); err != nil || !u.IsAbs() {
		if base := strings.TrimSpace(c.cfg.http.BaseURL); base != "" {
			target = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/")
		}
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	return target
}

// buildRequest turns a descriptor into a transport request.
func buildRequest(desc endpoint.Descriptor) (*httpclient.Request, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target %s: %w", desc.Label(), err)
	}
	path, err := desc.ResolvedPath()
	if err != nil {
		return nil, fmt.Errorf("resolve path for %s: %w", desc.Label(), err)
	}

	req := &httpclient.Request{
		Target:  desc.Label(),
		Method:  desc.HTTPMethod(),
		Path:    path,
		Query:   desc.Query,
		Headers: desc.Headers,
	}

	if desc.Body == nil {
		return req, nil
	}
	switch desc.Encoding {
	case endpoint.EncodingJSON:
		body, err := encodeJSON(desc.Body)
		if err != nil {
			return nil, fmt.Errorf("encode json body for %s: %w", desc.Label(), err)
		}
		req.Body, req.ContentType = body, contentTypeJSON
	case endpoint.EncodingForm:
		values, err := formValues(desc.Body)
		if err != nil {
			return nil, fmt.Errorf("encode form body for %s: %w", desc.Label(), err)
		}
		req.Body, req.ContentType = []byte(values.Encode()), contentTypeForm
	}
	return req, nil
}

func encodeJSON(body any) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		if !json.Valid(b) {
			return nil, errors.New("raw body is not valid json")
		}
		return b, nil
	case json.RawMessage:
		if !json.Valid(b) {
			return nil, errors.New("raw body is not valid json")
		}
		return b, nil
	default:
		return json.Marshal(body)
	}
}

func formValues(body any) (url.Values, error) {
	switch b := body.(type) {
	case url.Values:
		return b, nil
	case map[string]string:
		out := make(url.Values, len(b))
		for k, v := range b {
			out.Set(k, v)
		}
		return out, nil
	case map[string][]string:
		return url.Values(b), nil
	default:
		return nil, fmt.Errorf("unsupported form body type %T", body)
	}
}

// decodeInto decodes exactly one JSON value from raw into v.
func decodeInto(raw []byte, v any, strict bool) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty document")
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after json value")
	}
	return nil
}
