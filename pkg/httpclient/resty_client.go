package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "endpointkit/1"
)

// Options configures a RestyTransport.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Headers are sent with every request; request headers win.
	Headers map[string]string
	// VerboseLogging makes the default logging plugin dump headers and
	// pretty-printed bodies.
	VerboseLogging bool
}

// RestyTransport adapts resty.Client to the Transport interface.
type RestyTransport struct {
	client  *resty.Client
	baseURL string
	plugins chain
}

// NewRestyTransport creates a transport. plugins run in order around every
// dispatch for the lifetime of the transport.
func NewRestyTransport(opts Options, plugins ...Plugin) *RestyTransport {
	return &RestyTransport{
		client:  newRestyBaseClient(opts),
		baseURL: strings.TrimSpace(opts.BaseURL),
		plugins: newChain(plugins),
	}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(Options{Timeout: timeout})
}

// newRestyBaseClient creates a new resty.Client from opts.
func newRestyBaseClient(opts Options) *resty.Client {
	c := resty.New()
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.SetTimeout(timeout)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		c.SetBaseURL(base)
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	c.SetHeader("User-Agent", ua)
	c.SetHeader("Accept", "application/json")
	if len(opts.Headers) > 0 {
		c.SetHeaders(opts.Headers)
	}
	return c
}

// Dispatch performs the exchange described by req.
func (r *RestyTransport) Dispatch(ctx context.Context, req *Request) (Response, error) {
	if req == nil {
		return nil, errors.New("httpclient: nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r.plugins.willSend(ctx, req)

	rr := r.client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		rr.SetHeaders(req.Headers)
	}
	if len(req.Query) > 0 {
		rr.SetQueryParamsFromValues(req.Query)
	}
	if len(req.Body) > 0 {
		rr.SetBody(req.Body)
		if req.ContentType != "" {
			rr.SetHeader("Content-Type", req.ContentType)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	resp, err := rr.Execute(method, req.Path)
	if err != nil {
		terr := &TransportError{Method: method, URL: r.resolve(req), Err: err}
		r.plugins.didReceive(ctx, req, nil, terr)
		return nil, terr
	}

	out := &restyResponseAdapter{resp: resp, elapsed: time.Since(start)}
	r.plugins.didReceive(ctx, req, out, nil)
	return out, nil
}

// resolve reproduces the URL resty targets, for error reporting.
func (r *RestyTransport) resolve(req *Request) string {
	target := req.Path
	if u, err := url.Parse(target); err != nil || !u.IsAbs() {
		if r.baseURL != "" {
			target = strings.TrimRight(r.baseURL, "/") + "/" + strings.TrimLeft(target, "/")
		}
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	return target
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp    *resty.Response
	elapsed time.Duration
}

func (r *restyResponseAdapter) Body() []byte            { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int         { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header     { return r.resp.Header() }
func (r *restyResponseAdapter) Duration() time.Duration { return r.elapsed }
