// Package poller follows a generation job from the caller's side until it
// reaches a terminal state or the caller's wait budget runs out.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
)

const (
	DefaultInterval = 3 * time.Second
	DefaultMaxWait  = 5 * time.Minute
)

// ErrJobNotFound is returned by a StatusSource for an unknown job id.
var ErrJobNotFound = errors.New("generation job not found")

// StatusSource reads the pollable projection of a job.
type StatusSource interface {
	JobStatus(ctx context.Context, jobID string) (*domain.JobStatusView, error)
}

// StatusSourceFunc adapts a function to StatusSource.
type StatusSourceFunc func(ctx context.Context, jobID string) (*domain.JobStatusView, error)

func (f StatusSourceFunc) JobStatus(ctx context.Context, jobID string) (*domain.JobStatusView, error) {
	return f(ctx, jobID)
}

// TimeoutError means the caller stopped waiting. The job itself is not
// affected and may still complete.
type TimeoutError struct {
	JobID  string
	Waited time.Duration
	// LastStatus is the last status observed, empty if no poll succeeded.
	LastStatus domain.JobStatus
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stopped waiting for job %s after %s; it may still complete", e.JobID, e.Waited.Round(time.Second))
}

type Config struct {
	Interval time.Duration
	MaxWait  time.Duration
}

type Poller struct {
	src StatusSource
	cfg Config
	log *logger.Logger
}

func New(src StatusSource, cfg Config, log *logger.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{src: src, cfg: cfg, log: log.With("component", "poller")}
}

// Wait polls jobID until it completes or fails. Polls run one at a time:
// the next one starts only after the previous returned and the interval
// elapsed. It returns *TimeoutError when MaxWait passes, ctx.Err() when ctx
// is cancelled and ErrJobNotFound if the job does not exist. Other source
// errors are treated as transient.
func (p *Poller) Wait(ctx context.Context, jobID string) (*domain.JobStatusView, error) {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.MaxWait)
	defer cancel()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var last domain.JobStatus
	for {
		view, err := p.src.JobStatus(waitCtx, jobID)
		switch {
		case err == nil:
			last = view.Status
			if view.Status.IsTerminal() {
				return view, nil
			}
		case errors.Is(err, ErrJobNotFound):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case waitCtx.Err() != nil:
			// the poll itself ran into the budget; reported below
		default:
			p.log.Warn("status poll failed", "job_id", jobID, "error", err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &TimeoutError{JobID: jobID, Waited: time.Since(start), LastStatus: last}
		case <-ticker.C:
		}
	}
}
