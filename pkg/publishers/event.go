package publishers

import (
	"time"

	"github.com/samvad-hq/endpointkit/pkg/httpclient"
)

// Event describes one completed (or failed) HTTP exchange.
type Event struct {
	Target     string    `json:"target"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds the event for req and its outcome.
func NewEvent(req *httpclient.Request, resp httpclient.Response, err error) Event {
	evt := Event{OccurredAt: time.Now().UTC()}
	if req != nil {
		evt.Target = req.Target
		evt.Method = req.Method
		evt.URL = req.Path
		if len(req.Query) > 0 {
			evt.URL += "?" + req.Query.Encode()
		}
	}
	if resp != nil {
		evt.StatusCode = resp.StatusCode()
		evt.DurationMs = resp.Duration().Milliseconds()
	}
	if err != nil {
		evt.Error = err.Error()
	}
	return evt
}

// Failed reports whether the exchange did not produce a response.
func (e Event) Failed() bool { return e.Error != "" }
