package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
)

// scriptedSource returns the scripted responses in order, repeating the
// last one. It tracks how many polls were in flight at once.
type scriptedSource struct {
	mu       sync.Mutex
	script   []response
	calls    int
	delay    time.Duration
	inFlight int32
	maxSeen  int32
}

type response struct {
	status domain.JobStatus
	errMsg string
	err    error
}

func (s *scriptedSource) JobStatus(ctx context.Context, jobID string) (*domain.JobStatusView, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++
	r := s.script[i]
	s.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	return &domain.JobStatusView{JobID: jobID, Status: r.status, Error: r.errMsg}, nil
}

func (s *scriptedSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastPoller(src StatusSource, maxWait time.Duration) *Poller {
	return New(src, Config{Interval: 5 * time.Millisecond, MaxWait: maxWait}, logger.Nop())
}

func TestWaitReturnsCompletedJob(t *testing.T) {
	src := &scriptedSource{script: []response{
		{status: domain.JobQueued},
		{status: domain.JobRunning},
		{status: domain.JobCompleted},
	}}
	view, err := fastPoller(src, time.Second).Wait(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, view.Status)
	assert.Equal(t, 3, src.count())
}

func TestWaitReturnsFailedJobVerbatim(t *testing.T) {
	src := &scriptedSource{script: []response{
		{status: domain.JobRunning},
		{status: domain.JobFailed, errMsg: "upstream model refused"},
	}}
	view, err := fastPoller(src, time.Second).Wait(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, view.Status)
	assert.Equal(t, "upstream model refused", view.Error)
}

func TestWaitTimesOutWithoutTouchingTheJob(t *testing.T) {
	src := &scriptedSource{script: []response{{status: domain.JobRunning}}}
	_, err := fastPoller(src, 40*time.Millisecond).Wait(context.Background(), "job-1")

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "job-1", timeout.JobID)
	assert.Equal(t, domain.JobRunning, timeout.LastStatus)
	assert.GreaterOrEqual(t, timeout.Waited, 40*time.Millisecond)
	assert.Contains(t, err.Error(), "may still complete")
}

func TestWaitStopsOnCancel(t *testing.T) {
	src := &scriptedSource{script: []response{{status: domain.JobRunning}}}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := fastPoller(src, time.Minute).Wait(ctx, "job-1")
	require.ErrorIs(t, err, context.Canceled)
	var timeout *TimeoutError
	assert.False(t, errors.As(err, &timeout))
}

func TestWaitUnknownJob(t *testing.T) {
	src := &scriptedSource{script: []response{{err: ErrJobNotFound}}}
	_, err := fastPoller(src, time.Second).Wait(context.Background(), "nope")
	require.ErrorIs(t, err, ErrJobNotFound)
	assert.Equal(t, 1, src.count())
}

func TestWaitRetriesTransientErrors(t *testing.T) {
	src := &scriptedSource{script: []response{
		{err: errors.New("connection reset")},
		{err: errors.New("502 bad gateway")},
		{status: domain.JobCompleted},
	}}
	view, err := fastPoller(src, time.Second).Wait(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, view.Status)
}

func TestWaitNeverOverlapsPolls(t *testing.T) {
	// each poll outlasts the interval
	src := &scriptedSource{delay: 15 * time.Millisecond, script: []response{
		{status: domain.JobRunning},
		{status: domain.JobRunning},
		{status: domain.JobRunning},
		{status: domain.JobCompleted},
	}}
	_, err := fastPoller(src, time.Second).Wait(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.maxSeen))
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) add(e string) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

func (o *recordingObserver) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

func (o *recordingObserver) observer() ObserverFuncs {
	return ObserverFuncs{
		OnCompleted: func(_ context.Context, v domain.JobStatusView) { o.add("completed:" + v.JobID) },
		OnFailed:    func(_ context.Context, v domain.JobStatusView) { o.add("failed:" + v.Error) },
		OnTimedOut:  func(_ context.Context, err *TimeoutError) { o.add("timeout:" + err.JobID) },
		OnError:     func(_ context.Context, jobID string, err error) { o.add("error:" + jobID) },
	}
}

func TestWatchNotifiesObserver(t *testing.T) {
	cases := []struct {
		name    string
		script  []response
		maxWait time.Duration
		want    string
	}{
		{"completed", []response{{status: domain.JobRunning}, {status: domain.JobCompleted}}, time.Second, "completed:job-1"},
		{"failed", []response{{status: domain.JobFailed, errMsg: "bad input"}}, time.Second, "failed:bad input"},
		{"timed out", []response{{status: domain.JobRunning}}, 30 * time.Millisecond, "timeout:job-1"},
		{"unknown", []response{{err: ErrJobNotFound}}, time.Second, "error:job-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := &recordingObserver{}
			w := fastPoller(&scriptedSource{script: tc.script}, tc.maxWait).
				Watch(context.Background(), "job-1", obs.observer())
			<-w.Done()
			assert.Equal(t, []string{tc.want}, obs.list())
		})
	}
}

func TestWatchCancelSkipsObserver(t *testing.T) {
	obs := &recordingObserver{}
	w := fastPoller(&scriptedSource{script: []response{{status: domain.JobRunning}}}, time.Minute).
		Watch(context.Background(), "job-1", obs.observer())
	w.Cancel()
	<-w.Done()

	_, err := w.Result()
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, obs.list())
}

func TestWatchCancelledDuringLastPollSkipsObserver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := StatusSourceFunc(func(context.Context, string) (*domain.JobStatusView, error) {
		cancel()
		return &domain.JobStatusView{JobID: "job-1", Status: domain.JobCompleted}, nil
	})
	obs := &recordingObserver{}
	w := fastPoller(src, time.Minute).Watch(ctx, "job-1", obs.observer())
	<-w.Done()

	view, err := w.Result()
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, view.Status)
	assert.Empty(t, obs.list())
}

func TestGroupCloseStopsAllWatches(t *testing.T) {
	src := &scriptedSource{script: []response{{status: domain.JobRunning}}}
	g := fastPoller(src, time.Minute).NewGroup(context.Background())

	a := g.Watch("job-a", ObserverFuncs{})
	b := g.Watch("job-b", ObserverFuncs{})
	require.Same(t, a, g.Watch("job-a", ObserverFuncs{}), "one watch per job")
	assert.Equal(t, 2, g.Active())

	g.Close()
	assert.Equal(t, 0, g.Active())
	for _, w := range []*Watch{a, b} {
		select {
		case <-w.Done():
		default:
			t.Fatalf("watch %s still running after Close", w.JobID)
		}
	}
	assert.Nil(t, g.Watch("job-c", ObserverFuncs{}))

	polls := src.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, polls, src.count(), "no polling after Close")
}

type fakeLoader struct {
	mu    sync.Mutex
	loads int
	err   error
}

func (l *fakeLoader) LoadClientSession(_ context.Context, clientID string) (*domain.ClientSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.loads++
	return &domain.ClientSession{ClientID: clientID, Jobs: make([]domain.GenerationJob, l.loads)}, nil
}

func TestSessionCacheRefreshesOnOutcome(t *testing.T) {
	loader := &fakeLoader{}
	cache := NewSessionCache(loader, "client-1", logger.Nop())
	require.NoError(t, cache.Refresh(context.Background()))
	require.Len(t, cache.Session().Jobs, 1)

	src := &scriptedSource{script: []response{{status: domain.JobRunning}, {status: domain.JobFailed, errMsg: "quota exceeded"}}}
	w := fastPoller(src, time.Second).Watch(context.Background(), "job-1", cache)
	<-w.Done()

	assert.Equal(t, "quota exceeded", cache.Notice())
	assert.Len(t, cache.Session().Jobs, 2, "reloaded from the loader")

	src = &scriptedSource{script: []response{{status: domain.JobCompleted}}}
	w = fastPoller(src, time.Second).Watch(context.Background(), "job-2", cache)
	<-w.Done()
	assert.Empty(t, cache.Notice())
	assert.Len(t, cache.Session().Jobs, 3)
}

func TestSessionCacheKeepsSnapshotOnError(t *testing.T) {
	loader := &fakeLoader{}
	cache := NewSessionCache(loader, "client-1", logger.Nop())
	require.NoError(t, cache.Refresh(context.Background()))
	before := cache.Session()

	loader.mu.Lock()
	loader.err = errors.New("store down")
	loader.mu.Unlock()
	require.Error(t, cache.Refresh(context.Background()))
	assert.Same(t, before, cache.Session())
}
