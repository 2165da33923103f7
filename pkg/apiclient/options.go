package apiclient

import (
	"time"

	"github.com/samvad-hq/endpointkit/pkg/httpclient"
)

// Option configures a Client at construction.
type Option func(*settings)

type settings struct {
	http    httpclient.Options
	log     httpclient.Logger
	plugins []httpclient.Plugin
	factory func() httpclient.Transport
	bare    bool
	strict  bool
}

func defaultSettings() settings {
	return settings{
		http: httpclient.Options{
			Timeout:        httpclient.DefaultTimeout,
			UserAgent:      httpclient.DefaultUserAgent,
			VerboseLogging: true,
		},
	}
}

// WithBaseURL sets the URL relative descriptor paths resolve against.
func WithBaseURL(base string) Option {
	return func(s *settings) { s.http.BaseURL = base }
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.http.Timeout = d
		}
	}
}

// WithVerboseLogging toggles header and body dumps in the request log.
// Verbose logging is on by default.
func WithVerboseLogging(on bool) Option {
	return func(s *settings) { s.http.VerboseLogging = on }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		if ua != "" {
			s.http.UserAgent = ua
		}
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(h map[string]string) Option {
	return func(s *settings) {
		if len(h) == 0 {
			return
		}
		if s.http.Headers == nil {
			s.http.Headers = make(map[string]string, len(h))
		}
		for k, v := range h {
			s.http.Headers[k] = v
		}
	}
}

// WithLogger sets the logger used by the request logging plugin.
func WithLogger(log httpclient.Logger) Option {
	return func(s *settings) { s.log = log }
}

// WithPlugins appends plugins after the logging plugin. The chain is fixed
// once the transport is built.
func WithPlugins(plugins ...httpclient.Plugin) Option {
	return func(s *settings) { s.plugins = append(s.plugins, plugins...) }
}

// WithTransport replaces the default resty transport. The logging plugin
// and any WithPlugins plugins still run around it; HTTP options such as
// timeout and base URL are the transport's own business.
func WithTransport(t httpclient.Transport) Option {
	return func(s *settings) {
		if t == nil {
			s.factory = nil
			return
		}
		s.factory = func() httpclient.Transport { return t }
	}
}

// WithTransportFactory defers transport construction to fn, called on first
// use. The result is wrapped like WithTransport.
func WithTransportFactory(fn func() httpclient.Transport) Option {
	return func(s *settings) { s.factory = fn }
}

// WithBareTransport uses an injected transport as is, without the logging
// plugin or WithPlugins plugins. It has no effect on the default transport.
func WithBareTransport() Option {
	return func(s *settings) { s.bare = true }
}

// WithStrictDecoding rejects response objects carrying fields the model
// does not declare.
func WithStrictDecoding(on bool) Option {
	return func(s *settings) { s.strict = on }
}
