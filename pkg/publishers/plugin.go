package publishers

import (
	"context"
	"sync"
	"time"

	"github.com/samvad-hq/endpointkit/pkg/httpclient"
)

const (
	defaultPublishTimeout = 10 * time.Second
	defaultQueueSize      = 256
)

// ExchangePlugin publishes an Event for every exchange the transport
// completes. Events are queued and handed to the sinks by a background
// worker, so a slow sink never holds up a request. Sink failures and
// events dropped on a full queue are logged and never reach the caller.
type ExchangePlugin struct {
	fanout  *Fanout
	log     Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
	once   sync.Once
}

// NewExchangePlugin returns a transport plugin that feeds fanout and
// starts its delivery worker. Close drains the worker.
func NewExchangePlugin(fanout *Fanout, log Logger) *ExchangePlugin {
	return newExchangePlugin(fanout, log, defaultQueueSize)
}

func newExchangePlugin(fanout *Fanout, log Logger, queueSize int) *ExchangePlugin {
	p := &ExchangePlugin{
		fanout:  fanout,
		log:     ensureLogger(log),
		timeout: defaultPublishTimeout,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// WillSend implements httpclient.Plugin.
func (p *ExchangePlugin) WillSend(context.Context, *httpclient.Request) {}

// DidReceive implements httpclient.Plugin. It only enqueues.
func (p *ExchangePlugin) DidReceive(_ context.Context, req *httpclient.Request, resp httpclient.Response, err error) {
	if p.fanout.Size() == 0 {
		return
	}
	evt := NewEvent(req, resp, err)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- evt:
	default:
		p.log.WarnObj("exchange event dropped", "exchange_publish_error", map[string]any{
			"target": evt.Target,
			"error":  "event queue full",
		})
	}
}

// Close stops accepting events and waits until the queued ones have been
// handed to the sinks. It does not close the fanout.
func (p *ExchangePlugin) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	<-p.done
	return nil
}

func (p *ExchangePlugin) run() {
	defer close(p.done)
	for evt := range p.queue {
		p.publish(evt)
	}
}

func (p *ExchangePlugin) publish(evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	delivered, err := p.fanout.Publish(ctx, evt)
	if err != nil {
		p.log.WarnObj("exchange event publish failed", "exchange_publish_error", map[string]any{
			"target":    evt.Target,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}
