package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samvad-hq/endpointkit/pkg/journal"
)

// ReplayTransport serves exchanges previously captured by RecordPlugin.
type ReplayTransport struct {
	store   journal.Journal
	plugins chain
}

// NewReplayTransport returns a transport that never touches the network.
func NewReplayTransport(j journal.Journal, plugins ...Plugin) *ReplayTransport {
	return &ReplayTransport{store: j, plugins: newChain(plugins)}
}

// Dispatch implements Transport.
func (r *ReplayTransport) Dispatch(ctx context.Context, req *Request) (Response, error) {
	if req == nil {
		return nil, errors.New("httpclient: nil request")
	}
	r.plugins.willSend(ctx, req)

	key := req.Key()
	fail := func(err error) (Response, error) {
		terr := &TransportError{Method: req.Method, URL: key, Err: err}
		r.plugins.didReceive(ctx, req, nil, terr)
		return nil, terr
	}

	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
	}
	if r.store == nil {
		return fail(ErrNotRecorded)
	}
	ex, found, err := r.store.Get(key)
	if err != nil {
		return fail(err)
	}
	if !found {
		return fail(ErrNotRecorded)
	}

	out := &recordedResponse{ex: ex}
	r.plugins.didReceive(ctx, req, out, nil)
	return out, nil
}

type recordedResponse struct {
	ex journal.Exchange
}

func (r *recordedResponse) Body() []byte            { return r.ex.Body }
func (r *recordedResponse) StatusCode() int         { return r.ex.StatusCode }
func (r *recordedResponse) Header() http.Header     { return r.ex.Header }
func (r *recordedResponse) Duration() time.Duration { return 0 }

// RecordPlugin stores every completed exchange in a journal.
type RecordPlugin struct {
	store journal.Journal
	log   Logger
}

// NewRecordPlugin returns a plugin writing to j.
func NewRecordPlugin(j journal.Journal, log Logger) *RecordPlugin {
	return &RecordPlugin{store: j, log: ensureLogger(log)}
}

// WillSend implements Plugin.
func (p *RecordPlugin) WillSend(context.Context, *Request) {}

// DidReceive implements Plugin.
func (p *RecordPlugin) DidReceive(_ context.Context, req *Request, resp Response, err error) {
	if err != nil || resp == nil || p.store == nil {
		return
	}
	ex := journal.Exchange{
		Target:     req.Target,
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
	if perr := p.store.Put(req.Key(), ex); perr != nil {
		p.log.WarnObj("journal write failed", "journal_error", map[string]any{
			"target": req.Target,
			"key":    req.Key(),
			"error":  perr.Error(),
		})
	}
}
