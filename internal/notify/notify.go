// Package notify publishes generation job lifecycle events for UI push.
package notify

import (
	"context"
	"time"

	"alcyxob/coaching-app/internal/domain"
)

type EventType string

const (
	EventJobCreated   EventType = "job_created"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
)

// Event is the JSON message published for every job transition.
type Event struct {
	Type     EventType         `json:"type"`
	JobID    string            `json:"jobId"`
	ClientID string            `json:"clientId"`
	Mode     domain.JobMode    `json:"mode"`
	Status   domain.JobStatus  `json:"status"`
	Result   *domain.JobResult `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
	At       time.Time         `json:"at"`
}

func NewEvent(t EventType, job *domain.GenerationJob, at time.Time) Event {
	v := job.StatusView()
	return Event{
		Type:     t,
		JobID:    job.ID,
		ClientID: job.ClientID,
		Mode:     job.Mode,
		Status:   v.Status,
		Result:   v.Result,
		Error:    v.Error,
		At:       at,
	}
}

// JobNotifier is told about job transitions. Implementations must not block
// for long and must not fail the caller; delivery is best effort.
type JobNotifier interface {
	JobCreated(ctx context.Context, job *domain.GenerationJob)
	JobCompleted(ctx context.Context, job *domain.GenerationJob)
	JobFailed(ctx context.Context, job *domain.GenerationJob)
}

// Noop drops every event.
type Noop struct{}

func (Noop) JobCreated(context.Context, *domain.GenerationJob)   {}
func (Noop) JobCompleted(context.Context, *domain.GenerationJob) {}
func (Noop) JobFailed(context.Context, *domain.GenerationJob)    {}
