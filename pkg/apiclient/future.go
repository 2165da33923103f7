package apiclient

import (
	"context"
	"sync"
)

type futureState int

const (
	statePending futureState = iota
	stateResolved
	stateCanceled
)

// Future is the single-value result of an asynchronous request. It
// completes exactly once, with a value or an error, unless canceled first.
type Future[M any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu    sync.Mutex
	state futureState
	val   M
	err   error
	subs  []func(M, error)
}

func startFuture[M any](ctx context.Context, work func(context.Context) (M, error)) *Future[M] {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[M]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer cancel()
		v, err := work(ctx)
		f.resolve(v, err)
	}()
	return f
}

func (f *Future[M]) resolve(v M, err error) {
	f.mu.Lock()
	if f.state != statePending {
		f.mu.Unlock()
		return
	}
	f.state, f.val, f.err = stateResolved, v, err
	subs := f.subs
	f.subs = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range subs {
		fn(v, err)
	}
}

// Done is closed once the future has resolved or been canceled.
func (f *Future[M]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future completes or ctx ends. After Cancel it
// returns ErrCanceled.
func (f *Future[M]) Wait(ctx context.Context) (M, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
	case <-ctx.Done():
		var zero M
		return zero, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateCanceled {
		var zero M
		return zero, ErrCanceled
	}
	return f.val, f.err
}

// OnComplete registers fn to receive the outcome. fn runs on the request
// goroutine, or immediately when the future has already resolved. It never
// runs for a canceled future.
func (f *Future[M]) OnComplete(fn func(M, error)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	switch f.state {
	case statePending:
		f.subs = append(f.subs, fn)
		f.mu.Unlock()
	case stateResolved:
		v, err := f.val, f.err
		f.mu.Unlock()
		fn(v, err)
	default:
		f.mu.Unlock()
	}
}

// Cancel aborts the in-flight exchange and drops its outcome. It has no
// effect once the future has resolved.
func (f *Future[M]) Cancel() {
	f.mu.Lock()
	if f.state != statePending {
		f.mu.Unlock()
		return
	}
	f.state = stateCanceled
	f.subs = nil
	close(f.done)
	f.mu.Unlock()
	f.cancel()
}
