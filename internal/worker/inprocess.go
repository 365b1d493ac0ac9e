package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
)

// GenerateFunc produces an outcome for a request.
type GenerateFunc func(ctx context.Context, req Request) domain.GenerationOutcome

// InProcess runs a GenerateFunc on its own goroutine and reports the outcome
// straight to the bound ResultSink. Used for local runs and tests.
type InProcess struct {
	generate GenerateFunc
	delay    time.Duration
	log      *logger.Logger

	mu   sync.Mutex
	sink ResultSink
	wg   sync.WaitGroup
}

func NewInProcess(generate GenerateFunc, delay time.Duration, log *logger.Logger) *InProcess {
	return &InProcess{generate: generate, delay: delay, log: log.With("component", "worker_inprocess")}
}

// Bind sets the sink outcomes are delivered to. It must be called before
// the first dispatch.
func (w *InProcess) Bind(sink ResultSink) {
	w.mu.Lock()
	w.sink = sink
	w.mu.Unlock()
}

func (w *InProcess) Dispatch(ctx context.Context, req Request) error {
	w.mu.Lock()
	sink := w.sink
	w.mu.Unlock()
	if sink == nil {
		return errors.New("in-process worker has no result sink")
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if w.delay > 0 {
			time.Sleep(w.delay)
		}
		runCtx := context.Background()
		outcome := w.generate(runCtx, req)
		if err := sink.OnWorkerResult(runCtx, req.JobID, outcome); err != nil {
			w.log.Warn("result rejected", "job_id", req.JobID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched job has reported.
func (w *InProcess) Wait() {
	w.wg.Wait()
}

// Echo is a GenerateFunc that succeeds with placeholder content derived from
// the request, one artifact per kind the mode needs.
func Echo(_ context.Context, req Request) domain.GenerationOutcome {
	out := domain.GenerationOutcome{Success: true}
	for _, kind := range req.Mode.Kinds() {
		content := domain.PlanContent{
			"kind":                    string(kind),
			"questionnaireSubmission": req.Inputs.QuestionnaireSubmissionID,
		}
		if prev := req.Inputs.PreviousTrainingPlanID; kind == domain.PlanKindTraining && prev != nil {
			content["progressesFrom"] = *prev
		}
		if prev := req.Inputs.PreviousNutritionPlanID; kind == domain.PlanKindNutrition && prev != nil {
			content["progressesFrom"] = *prev
		}
		plan := &domain.GeneratedPlan{Content: content}
		if kind == domain.PlanKindTraining {
			out.Training = plan
		} else {
			out.Nutrition = plan
		}
	}
	return out
}
