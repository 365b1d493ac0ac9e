package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/notify"
	"alcyxob/coaching-app/internal/repository"
	"alcyxob/coaching-app/internal/worker"
)

// Error strings recorded on failed jobs.
const (
	ErrMsgTimeBudget    = "generation exceeded time budget"
	ErrMsgStoreFailed   = "failed to store generated plans"
	ErrMsgWorkerFailure = "generation worker reported failure"
)

// JobTracker owns the lifecycle of generation jobs.
type JobTracker interface {
	// Submit validates inputs, records a queued job and hands it to the
	// worker in the background. Errors are *ValidationError or *ConflictError
	// when the request is rejected; no job exists in that case.
	Submit(ctx context.Context, clientID string, mode domain.JobMode, inputs domain.GenerationInputs) (*domain.GenerationJob, error)
	GetStatus(ctx context.Context, jobID string) (*domain.JobStatusView, error)
	GetJob(ctx context.Context, jobID string) (*domain.GenerationJob, error)
	ListJobs(ctx context.Context, clientID string, limit int) ([]domain.GenerationJob, error)
	// OnWorkerResult applies a worker outcome. It returns ErrJobTerminal if
	// the job already completed or failed.
	OnWorkerResult(ctx context.Context, jobID string, outcome domain.GenerationOutcome) error
	// ExpireOverdue fails every non-terminal job older than the job timeout.
	ExpireOverdue(ctx context.Context) (int, error)
	// RunSweeper calls ExpireOverdue every interval until ctx is done.
	RunSweeper(ctx context.Context, interval time.Duration)
	// Wait blocks until background dispatches have finished.
	Wait()
}

type JobTrackerConfig struct {
	JobTimeout      time.Duration
	DispatchTimeout time.Duration
	// CallbackBaseURL is the API root the worker reports results to.
	CallbackBaseURL string
}

// JobTrackerDeps groups the collaborators of the tracker.
type JobTrackerDeps struct {
	Jobs           repository.JobRepository
	Plans          repository.PlanRepository
	Questionnaires repository.QuestionnaireRepository
	Tx             repository.Transactor
	Dispatcher     worker.Dispatcher
	Notifier       notify.JobNotifier
	Log            *logger.Logger
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

type jobTracker struct {
	jobs           repository.JobRepository
	plans          repository.PlanRepository
	questionnaires repository.QuestionnaireRepository
	tx             repository.Transactor
	dispatcher     worker.Dispatcher
	notifier       notify.JobNotifier
	log            *logger.Logger
	now            func() time.Time
	cfg            JobTrackerConfig

	locks *clientLocks
	wg    sync.WaitGroup
}

func NewJobTracker(deps JobTrackerDeps, cfg JobTrackerConfig) JobTracker {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 30 * time.Second
	}
	t := &jobTracker{
		jobs:           deps.Jobs,
		plans:          deps.Plans,
		questionnaires: deps.Questionnaires,
		tx:             deps.Tx,
		dispatcher:     deps.Dispatcher,
		notifier:       deps.Notifier,
		log:            deps.Log,
		now:            deps.Now,
		cfg:            cfg,
		locks:          newClientLocks(),
	}
	if t.dispatcher == nil {
		t.dispatcher = worker.Unconfigured{}
	}
	if t.notifier == nil {
		t.notifier = notify.Noop{}
	}
	if t.log == nil {
		t.log = logger.Nop()
	}
	t.log = t.log.With("service", "JobTracker")
	if t.now == nil {
		t.now = func() time.Time { return time.Now().UTC() }
	}
	return t
}

// references holds the records a job's inputs point at, loaded during
// validation and forwarded to the worker.
type references struct {
	questionnaire *domain.QuestionnaireSubmission
	prevTraining  *domain.Plan
	prevNutrition *domain.Plan
	sync          *domain.Plan
}

func (t *jobTracker) Submit(ctx context.Context, clientID string, mode domain.JobMode, raw domain.GenerationInputs) (*domain.GenerationJob, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, invalid("clientId", "is required")
	}
	inputs, err := domain.ParseInputs(mode, raw)
	if err != nil {
		var fe *domain.FieldError
		if errors.As(err, &fe) {
			return nil, invalid(fe.Field, fe.Reason)
		}
		return nil, err
	}

	unlock := t.locks.Lock(clientID)
	job, refs, err := t.createLocked(ctx, clientID, inputs)
	unlock()
	if err != nil {
		return nil, err
	}

	t.log.Info("generation job queued", "job_id", job.ID, "client_id", clientID, "mode", mode)
	t.notifier.JobCreated(ctx, job)

	t.wg.Add(1)
	go t.dispatch(context.WithoutCancel(ctx), *job, refs)

	return job, nil
}

// createLocked must run while the client's lock is held.
func (t *jobTracker) createLocked(ctx context.Context, clientID string, inputs domain.JobInputs) (*domain.GenerationJob, references, error) {
	if active, err := t.jobs.GetActiveByClient(ctx, clientID); err == nil {
		return nil, references{}, &ConflictError{ClientID: clientID, ActiveJobID: active.ID}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, references{}, fmt.Errorf("look up active job: %w", err)
	}

	refs, err := t.resolveReferences(ctx, clientID, inputs)
	if err != nil {
		return nil, references{}, err
	}

	now := t.now()
	job := &domain.GenerationJob{
		ID:        domain.NewID(),
		ClientID:  clientID,
		Mode:      inputs.Mode(),
		Inputs:    inputs.Flatten(),
		Status:    domain.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.jobs.Create(ctx, job); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// another instance won the race past the in-process lock
			activeID := ""
			if active, lookupErr := t.jobs.GetActiveByClient(ctx, clientID); lookupErr == nil {
				activeID = active.ID
			}
			return nil, references{}, &ConflictError{ClientID: clientID, ActiveJobID: activeID}
		}
		return nil, references{}, fmt.Errorf("create job: %w", err)
	}
	return job, refs, nil
}

func (t *jobTracker) resolveReferences(ctx context.Context, clientID string, inputs domain.JobInputs) (references, error) {
	var refs references

	q, err := t.questionnaires.GetByID(ctx, inputs.SubmissionID())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return refs, invalid("questionnaireSubmissionId", "does not reference an existing questionnaire")
	case err != nil:
		return refs, fmt.Errorf("load questionnaire: %w", err)
	case q.ClientID != clientID:
		return refs, invalid("questionnaireSubmissionId", "belongs to a different client")
	}
	refs.questionnaire = q

	if refs.prevTraining, err = t.resolvePlan(ctx, clientID, inputs.PreviousPlan(domain.PlanKindTraining), domain.PlanKindTraining, "previousTrainingPlanId"); err != nil {
		return refs, err
	}
	if refs.prevNutrition, err = t.resolvePlan(ctx, clientID, inputs.PreviousPlan(domain.PlanKindNutrition), domain.PlanKindNutrition, "previousNutritionPlanId"); err != nil {
		return refs, err
	}
	if refs.sync, err = t.resolvePlan(ctx, clientID, inputs.SyncPlan(), domain.PlanKindTraining, "trainingPlanIdForSync"); err != nil {
		return refs, err
	}
	return refs, nil
}

func (t *jobTracker) resolvePlan(ctx context.Context, clientID string, id *string, kind domain.PlanKind, field string) (*domain.Plan, error) {
	if id == nil {
		return nil, nil
	}
	plan, err := t.plans.GetByID(ctx, *id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, invalid(field, "does not reference an existing plan")
	case err != nil:
		return nil, fmt.Errorf("load plan %s: %w", *id, err)
	case plan.ClientID != clientID:
		return nil, invalid(field, "belongs to a different client")
	case plan.Kind != kind:
		return nil, invalid(field, fmt.Sprintf("must reference a %s plan", kind))
	}
	return plan, nil
}

func (t *jobTracker) dispatch(ctx context.Context, job domain.GenerationJob, refs references) {
	defer t.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, t.cfg.DispatchTimeout)
	defer cancel()

	req := worker.Request{
		RequestID:             uuid.NewString(),
		JobID:                 job.ID,
		ClientID:              job.ClientID,
		Mode:                  job.Mode,
		Inputs:                job.Inputs,
		Questionnaire:         refs.questionnaire,
		PreviousTrainingPlan:  refs.prevTraining,
		PreviousNutritionPlan: refs.prevNutrition,
		SyncPlan:              refs.sync,
		CallbackURL:           t.callbackURL(job.ID),
	}
	log := t.log.With("job_id", job.ID, "request_id", req.RequestID)

	if err := t.dispatcher.Dispatch(ctx, req); err != nil {
		log.Warn("dispatch failed", "error", err)
		if failErr := t.fail(ctx, job.ID, "dispatch failed: "+err.Error()); failErr != nil && !errors.Is(failErr, ErrJobTerminal) {
			log.Error("could not record dispatch failure", "error", failErr)
		}
		return
	}

	// The worker may already have reported, leaving the job terminal.
	if err := t.jobs.MarkRunning(ctx, job.ID, t.now()); err != nil && !errors.Is(err, repository.ErrStaleState) {
		log.Error("mark running failed", "error", err)
		return
	}
	log.Debug("job dispatched")
}

func (t *jobTracker) callbackURL(jobID string) string {
	base := strings.TrimRight(t.cfg.CallbackBaseURL, "/")
	return fmt.Sprintf("%s/worker/generations/%s/result", base, jobID)
}

func (t *jobTracker) GetJob(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	job, err := t.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (t *jobTracker) GetStatus(ctx context.Context, jobID string) (*domain.JobStatusView, error) {
	job, err := t.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	view := job.StatusView()
	return &view, nil
}

func (t *jobTracker) ListJobs(ctx context.Context, clientID string, limit int) ([]domain.GenerationJob, error) {
	return t.jobs.ListByClient(ctx, clientID, limit)
}

func (t *jobTracker) OnWorkerResult(ctx context.Context, jobID string, outcome domain.GenerationOutcome) error {
	job, err := t.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	log := t.log.With("job_id", jobID, "client_id", job.ClientID)

	if !outcome.Success {
		reason := strings.TrimSpace(outcome.Error)
		if reason == "" {
			reason = ErrMsgWorkerFailure
		}
		log.Info("worker reported failure", "error", reason)
		return t.fail(ctx, jobID, reason)
	}

	for _, kind := range job.Mode.Kinds() {
		if outcome.Artifact(kind) == nil {
			reason := fmt.Sprintf("worker returned no %s plan", kind)
			if job.Mode == domain.ModeFull {
				reason = fmt.Sprintf("worker returned partial result: missing %s plan", kind)
			}
			log.Warn("incomplete worker result", "error", reason)
			return t.fail(ctx, jobID, reason)
		}
	}

	plans, result := t.buildPlans(job, outcome)
	qID := job.Inputs.QuestionnaireSubmissionID
	wasGenerated := false
	if q, err := t.questionnaires.GetByID(ctx, qID); err == nil {
		wasGenerated = q.PlanGenerated
	}

	// Complete is the last write so the job never points at plans that
	// were not stored. Without a real transaction the earlier writes are
	// undone by discardPlans.
	err = t.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := t.plans.CreateMany(ctx, plans); err != nil {
			return err
		}
		if err := t.questionnaires.MarkPlanGenerated(ctx, qID); err != nil {
			return err
		}
		return t.jobs.Complete(ctx, jobID, result, t.now())
	})
	if err != nil {
		t.discardPlans(context.WithoutCancel(ctx), log, plans, qID, wasGenerated)
		if errors.Is(err, repository.ErrStaleState) {
			return ErrJobTerminal
		}
		log.Error("storing generated plans failed", "error", err)
		if failErr := t.fail(ctx, jobID, ErrMsgStoreFailed); failErr != nil && !errors.Is(failErr, ErrJobTerminal) {
			log.Error("could not record store failure", "error", failErr)
		}
		return fmt.Errorf("store generated plans: %w", err)
	}

	completed, err := t.jobs.GetByID(ctx, jobID)
	if err != nil {
		log.Warn("reload completed job failed", "error", err)
		return nil
	}
	log.Info("generation job completed", "plans", len(plans))
	t.notifier.JobCompleted(ctx, completed)
	return nil
}

// discardPlans removes whatever part of a failed completion reached the
// store. Plans that were never written are skipped.
func (t *jobTracker) discardPlans(ctx context.Context, log *logger.Logger, plans []domain.Plan, qID string, wasGenerated bool) {
	for _, p := range plans {
		if err := t.plans.Delete(ctx, p.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Error("could not discard generated plan", "plan_id", p.ID, "error", err)
		}
	}
	if wasGenerated {
		return
	}
	if err := t.questionnaires.ClearPlanGenerated(ctx, qID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error("could not clear questionnaire flag", "questionnaire_id", qID, "error", err)
	}
}

// buildPlans turns the outcome into plan records with ids assigned up front,
// training first.
func (t *jobTracker) buildPlans(job *domain.GenerationJob, outcome domain.GenerationOutcome) ([]domain.Plan, domain.JobResult) {
	now := t.now()
	var (
		plans  []domain.Plan
		result domain.JobResult
	)
	for _, kind := range job.Mode.Kinds() {
		art := outcome.Artifact(kind)
		month, year := art.Month, art.Year
		if month < 1 || month > 12 {
			month = int(now.Month())
		}
		if year <= 0 {
			year = now.Year()
		}
		plan := domain.Plan{
			ID:                 domain.NewID(),
			ClientID:           job.ClientID,
			Kind:               kind,
			Month:              month,
			Year:               year,
			GeneratedAt:        now,
			Content:            art.Content,
			SourceSubmissionID: job.Inputs.QuestionnaireSubmissionID,
			JobID:              job.ID,
			UpdatedAt:          now,
		}
		id := plan.ID
		switch kind {
		case domain.PlanKindTraining:
			plan.PreviousPlanID = job.Inputs.PreviousTrainingPlanID
			result.TrainingPlanID = &id
		case domain.PlanKindNutrition:
			plan.PreviousPlanID = job.Inputs.PreviousNutritionPlanID
			plan.SyncPlanID = job.Inputs.TrainingPlanIDForSync
			if job.Mode == domain.ModeFull {
				plan.SyncPlanID = result.TrainingPlanID
			}
			result.NutritionPlanID = &id
		}
		plans = append(plans, plan)
	}
	return plans, result
}

// fail records reason on a non-terminal job and notifies. ErrJobTerminal is
// returned if the job had already finished.
func (t *jobTracker) fail(ctx context.Context, jobID, reason string) error {
	if err := t.jobs.Fail(ctx, jobID, reason, t.now()); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleState):
			return ErrJobTerminal
		case errors.Is(err, repository.ErrNotFound):
			return ErrJobNotFound
		}
		return err
	}
	if failed, err := t.jobs.GetByID(ctx, jobID); err == nil {
		t.notifier.JobFailed(ctx, failed)
	}
	return nil
}

func (t *jobTracker) ExpireOverdue(ctx context.Context) (int, error) {
	cutoff := t.now().Add(-t.cfg.JobTimeout)
	overdue, err := t.jobs.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, job := range overdue {
		err := t.fail(ctx, job.ID, ErrMsgTimeBudget)
		switch {
		case err == nil:
			expired++
			t.log.Warn("generation job timed out", "job_id", job.ID, "client_id", job.ClientID, "created_at", job.CreatedAt)
		case errors.Is(err, ErrJobTerminal):
		default:
			return expired, err
		}
	}
	return expired, nil
}

func (t *jobTracker) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("timeout sweeper stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.log.Error("timeout sweeper panic", "panic", r)
					}
				}()
				if _, err := t.ExpireOverdue(ctx); err != nil && ctx.Err() == nil {
					t.log.Warn("expire overdue jobs failed", "error", err)
				}
			}()
		}
	}
}

func (t *jobTracker) Wait() {
	t.wg.Wait()
}
