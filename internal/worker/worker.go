// Package worker connects the job tracker to the external generation worker.
package worker

import (
	"context"
	"errors"

	"alcyxob/coaching-app/internal/domain"
)

// ErrNotConfigured is returned when no worker endpoint is configured.
var ErrNotConfigured = errors.New("generation worker not configured")

// Request is the payload handed to the generation worker. The worker reports
// back by POSTing a domain.GenerationOutcome to CallbackURL.
type Request struct {
	RequestID             string                          `json:"requestId"`
	JobID                 string                          `json:"jobId"`
	ClientID              string                          `json:"clientId"`
	Mode                  domain.JobMode                  `json:"mode"`
	Inputs                domain.GenerationInputs         `json:"inputs"`
	Questionnaire         *domain.QuestionnaireSubmission `json:"questionnaire"`
	PreviousTrainingPlan  *domain.Plan                    `json:"previousTrainingPlan,omitempty"`
	PreviousNutritionPlan *domain.Plan                    `json:"previousNutritionPlan,omitempty"`
	SyncPlan              *domain.Plan                    `json:"syncPlan,omitempty"`
	CallbackURL           string                          `json:"callbackUrl"`
}

// Dispatcher hands a request to the worker. A nil error only means the
// worker accepted the job; the outcome arrives later through a ResultSink.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// ResultSink receives worker outcomes.
type ResultSink interface {
	OnWorkerResult(ctx context.Context, jobID string, outcome domain.GenerationOutcome) error
}

// Unconfigured rejects every dispatch with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Dispatch(context.Context, Request) error {
	return ErrNotConfigured
}
