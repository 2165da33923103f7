package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
)

// Logger defines the logging surface the transport relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// LoggingPlugin logs every exchange. In verbose mode it also dumps
// headers and bodies, pretty-printing JSON.
type LoggingPlugin struct {
	log     Logger
	verbose bool
}

// NewLoggingPlugin returns the request/response logging middleware.
func NewLoggingPlugin(log Logger, verbose bool) *LoggingPlugin {
	return &LoggingPlugin{log: ensureLogger(log), verbose: verbose}
}

// WillSend implements Plugin.
func (p *LoggingPlugin) WillSend(_ context.Context, req *Request) {
	fields := map[string]any{
		"target": req.Target,
		"method": req.Method,
		"path":   req.Path,
	}
	if p.verbose {
		if len(req.Query) > 0 {
			fields["query"] = req.Query.Encode()
		}
		if len(req.Headers) > 0 {
			fields["headers"] = req.Headers
		}
		if len(req.Body) > 0 {
			fields["body"] = FormatJSON(req.Body)
		}
	}
	p.log.DebugObj("http request", "http_request", fields)
}

// DidReceive implements Plugin.
func (p *LoggingPlugin) DidReceive(_ context.Context, req *Request, resp Response, err error) {
	if err != nil {
		p.log.WarnObj("http request failed", "http_error", map[string]any{
			"target": req.Target,
			"method": req.Method,
			"path":   req.Path,
			"error":  err.Error(),
		})
		return
	}

	body := resp.Body()
	fields := map[string]any{
		"target":      req.Target,
		"method":      req.Method,
		"path":        req.Path,
		"status":      resp.StatusCode(),
		"duration_ms": resp.Duration().Milliseconds(),
		"body_bytes":  len(body),
	}
	if p.verbose {
		fields["headers"] = resp.Header()
		fields["body"] = FormatJSON(body)
	}
	p.log.InfoObj("http response", "http_response", fields)
}

// FormatJSON pretty-prints body when it is valid JSON and returns it
// unchanged otherwise.
func FormatJSON(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
