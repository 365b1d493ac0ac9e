package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/repository/memory"
	"alcyxob/coaching-app/internal/worker"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeDispatcher records requests. When gate is set, Dispatch blocks until
// it is closed.
type fakeDispatcher struct {
	mu   sync.Mutex
	reqs []worker.Request
	err  error
	gate chan struct{}
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, req worker.Request) error {
	d.mu.Lock()
	d.reqs = append(d.reqs, req)
	gate, err := d.gate, d.err
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (d *fakeDispatcher) requests() []worker.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]worker.Request(nil), d.reqs...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(kind string, job *domain.GenerationJob) {
	n.mu.Lock()
	n.events = append(n.events, kind+":"+job.ID)
	n.mu.Unlock()
}

func (n *recordingNotifier) JobCreated(_ context.Context, job *domain.GenerationJob) {
	n.add("created", job)
}
func (n *recordingNotifier) JobCompleted(_ context.Context, job *domain.GenerationJob) {
	n.add("completed", job)
}
func (n *recordingNotifier) JobFailed(_ context.Context, job *domain.GenerationJob) {
	n.add("failed", job)
}

func (n *recordingNotifier) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type harness struct {
	t          *testing.T
	ctx        context.Context
	store      *memory.Store
	clock      *fakeClock
	dispatcher *fakeDispatcher
	notifier   *recordingNotifier
	tracker    JobTracker
	plans      PlanService
	lineage    LineageResolver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	h := &harness{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		clock:      newFakeClock(),
		dispatcher: &fakeDispatcher{},
		notifier:   &recordingNotifier{},
	}
	h.tracker = NewJobTracker(JobTrackerDeps{
		Jobs:           store.Jobs(),
		Plans:          store.Plans(),
		Questionnaires: store.Questionnaires(),
		Tx:             store,
		Dispatcher:     h.dispatcher,
		Notifier:       h.notifier,
		Log:            logger.Nop(),
		Now:            h.clock.Now,
	}, JobTrackerConfig{
		JobTimeout:      10 * time.Minute,
		DispatchTimeout: time.Second,
		CallbackBaseURL: "http://api.test/api/v1/",
	})
	h.lineage = NewLineageResolver(store.Plans(), store.Questionnaires())
	h.plans = NewPlanService(store.Plans(), h.lineage, nil, logger.Nop())
	return h
}

func (h *harness) questionnaire(id, clientID string, kind domain.QuestionnaireKind) *domain.QuestionnaireSubmission {
	h.t.Helper()
	h.clock.Advance(time.Minute)
	q := &domain.QuestionnaireSubmission{ID: id, ClientID: clientID, Kind: kind, SubmittedAt: h.clock.Now()}
	require.NoError(h.t, h.store.Questionnaires().Create(h.ctx, q))
	return q
}

func (h *harness) seedPlan(id, clientID string, kind domain.PlanKind, mutate func(p *domain.Plan)) domain.Plan {
	h.t.Helper()
	h.clock.Advance(time.Minute)
	p := domain.Plan{ID: id, ClientID: clientID, Kind: kind, GeneratedAt: h.clock.Now(), Content: domain.PlanContent{"seed": id}, SourceSubmissionID: "seed"}
	if mutate != nil {
		mutate(&p)
	}
	require.NoError(h.t, h.store.Plans().CreateMany(h.ctx, []domain.Plan{p}))
	return p
}

// submitDispatched submits and waits until the dispatch goroutine is done.
func (h *harness) submitDispatched(clientID string, mode domain.JobMode, in domain.GenerationInputs) *domain.GenerationJob {
	h.t.Helper()
	job, err := h.tracker.Submit(h.ctx, clientID, mode, in)
	require.NoError(h.t, err)
	h.tracker.Wait()
	return job
}

func (h *harness) status(jobID string) *domain.JobStatusView {
	h.t.Helper()
	v, err := h.tracker.GetStatus(h.ctx, jobID)
	require.NoError(h.t, err)
	return v
}

func (h *harness) planIDs(clientID string, kind domain.PlanKind) []string {
	h.t.Helper()
	list, err := h.plans.List(h.ctx, clientID, kind)
	require.NoError(h.t, err)
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}

func success(kinds ...domain.PlanKind) domain.GenerationOutcome {
	o := domain.GenerationOutcome{Success: true}
	for _, k := range kinds {
		gp := &domain.GeneratedPlan{Content: domain.PlanContent{"kind": string(k)}}
		if k == domain.PlanKindTraining {
			o.Training = gp
		} else {
			o.Nutrition = gp
		}
	}
	return o
}

func strp(s string) *string { return &s }

var errBoom = errors.New("boom")
