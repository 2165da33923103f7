package httpclient

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic request key
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// Request is a fully resolved outbound exchange.
type Request struct {
	// Target labels the request in logs, metrics and events.
	Target string

	Method string
	// Path is resolved against the transport base URL unless absolute.
	Path        string
	Query       url.Values
	Headers     map[string]string
	Body        []byte
	ContentType string
}

// Key identifies the request for journaling: method, path, sorted query
// and a digest of the body.
func (r *Request) Key() string {
	key := r.Method + " " + r.Path
	if len(r.Query) > 0 {
		key += "?" + r.Query.Encode()
	}
	if len(r.Body) > 0 {
		sum := sha1.Sum(r.Body)
		key += "#" + hex.EncodeToString(sum[:])
	}
	return key
}

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
	Duration() time.Duration
}

// Transport turns a Request into a completed exchange. Failures to complete
// the exchange are reported as *TransportError; any status code is a
// successful exchange at this layer.
type Transport interface {
	Dispatch(ctx context.Context, req *Request) (Response, error)
}

// Plugin observes every exchange a transport performs. Plugins are fixed
// when the transport is built and cannot fail a request.
type Plugin interface {
	WillSend(ctx context.Context, req *Request)
	// DidReceive is called once per exchange. resp is nil when err is set.
	DidReceive(ctx context.Context, req *Request, resp Response, err error)
}

type chain []Plugin

func newChain(plugins []Plugin) chain {
	out := make(chain, 0, len(plugins))
	for _, p := range plugins {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (c chain) willSend(ctx context.Context, req *Request) {
	for _, p := range c {
		p.WillSend(ctx, req)
	}
}

func (c chain) didReceive(ctx context.Context, req *Request, resp Response, err error) {
	for _, p := range c {
		p.DidReceive(ctx, req, resp, err)
	}
}

// Wrap runs plugins around an arbitrary Transport. It returns t unchanged
// when there are no plugins.
func Wrap(t Transport, plugins ...Plugin) Transport {
	if t == nil {
		return nil
	}
	c := newChain(plugins)
	if len(c) == 0 {
		return t
	}
	return &wrappedTransport{next: t, plugins: c}
}

type wrappedTransport struct {
	next    Transport
	plugins chain
}

// Dispatch implements Transport.
func (w *wrappedTransport) Dispatch(ctx context.Context, req *Request) (Response, error) {
	if req == nil {
		return nil, errors.New("httpclient: nil request")
	}
	w.plugins.willSend(ctx, req)
	resp, err := w.next.Dispatch(ctx, req)
	if err == nil && resp == nil {
		err = &TransportError{Method: req.Method, URL: req.Path, Err: errors.New("transport returned no response")}
	}
	if err != nil {
		resp = nil
	}
	w.plugins.didReceive(ctx, req, resp, err)
	return resp, err
}
