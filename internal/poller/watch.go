package poller

import (
	"context"
	"errors"
	"sync"

	"alcyxob/coaching-app/internal/domain"
)

// Observer receives the outcome of a watched job. Exactly one method is
// called per watch, unless the watch is cancelled first, in which case none
// is.
type Observer interface {
	JobCompleted(ctx context.Context, view domain.JobStatusView)
	// JobFailed gets the worker's error in view.Error, unchanged.
	JobFailed(ctx context.Context, view domain.JobStatusView)
	JobTimedOut(ctx context.Context, err *TimeoutError)
	// WatchFailed covers unknown jobs and other non-retryable errors.
	WatchFailed(ctx context.Context, jobID string, err error)
}

// ObserverFuncs implements Observer with optional callbacks.
type ObserverFuncs struct {
	OnCompleted func(ctx context.Context, view domain.JobStatusView)
	OnFailed    func(ctx context.Context, view domain.JobStatusView)
	OnTimedOut  func(ctx context.Context, err *TimeoutError)
	OnError     func(ctx context.Context, jobID string, err error)
}

func (o ObserverFuncs) JobCompleted(ctx context.Context, view domain.JobStatusView) {
	if o.OnCompleted != nil {
		o.OnCompleted(ctx, view)
	}
}

func (o ObserverFuncs) JobFailed(ctx context.Context, view domain.JobStatusView) {
	if o.OnFailed != nil {
		o.OnFailed(ctx, view)
	}
}

func (o ObserverFuncs) JobTimedOut(ctx context.Context, err *TimeoutError) {
	if o.OnTimedOut != nil {
		o.OnTimedOut(ctx, err)
	}
}

func (o ObserverFuncs) WatchFailed(ctx context.Context, jobID string, err error) {
	if o.OnError != nil {
		o.OnError(ctx, jobID, err)
	}
}

// Watch is a background Wait bound to its own cancellable context.
type Watch struct {
	JobID string

	cancel context.CancelFunc
	done   chan struct{}
	view   *domain.JobStatusView
	err    error
}

// Watch starts polling jobID in the background and reports to obs.
func (p *Poller) Watch(ctx context.Context, jobID string, obs Observer) *Watch {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{JobID: jobID, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		defer cancel()
		w.view, w.err = p.Wait(ctx, jobID)
		if ctx.Err() != nil {
			return
		}
		notify(ctx, obs, jobID, w.view, w.err)
	}()
	return w
}

func notify(ctx context.Context, obs Observer, jobID string, view *domain.JobStatusView, err error) {
	var timeout *TimeoutError
	switch {
	case err == nil && view.Status == domain.JobCompleted:
		obs.JobCompleted(ctx, *view)
	case err == nil:
		obs.JobFailed(ctx, *view)
	case errors.As(err, &timeout):
		obs.JobTimedOut(ctx, timeout)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		obs.WatchFailed(ctx, jobID, err)
	}
}

// Cancel stops polling. It does not wait for the goroutine to exit.
func (w *Watch) Cancel() { w.cancel() }

func (w *Watch) Done() <-chan struct{} { return w.done }

// Result returns what Wait returned. Only valid after Done is closed.
func (w *Watch) Result() (*domain.JobStatusView, error) {
	<-w.done
	return w.view, w.err
}

// Group ties watches to one consumer, such as a client detail view. Close
// stops every watch the group started.
type Group struct {
	p      *Poller
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	watches map[string]*Watch
	closed  bool
}

func (p *Poller) NewGroup(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{p: p, ctx: ctx, cancel: cancel, watches: make(map[string]*Watch)}
}

// Watch starts watching jobID unless the group already watches it, in
// which case the running watch is returned. It returns nil after Close.
func (g *Group) Watch(jobID string, obs Observer) *Watch {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	if w, ok := g.watches[jobID]; ok {
		select {
		case <-w.Done():
		default:
			return w
		}
	}
	w := g.p.Watch(g.ctx, jobID, obs)
	g.watches[jobID] = w
	return w
}

// Active returns the number of watches still polling.
func (g *Group) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, w := range g.watches {
		select {
		case <-w.Done():
		default:
			n++
		}
	}
	return n
}

// Close cancels all watches and waits for their goroutines to exit.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	watches := make([]*Watch, 0, len(g.watches))
	for _, w := range g.watches {
		watches = append(watches, w)
	}
	g.mu.Unlock()

	g.cancel()
	for _, w := range watches {
		<-w.Done()
	}
}
