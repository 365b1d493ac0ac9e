package memory

import (
	"context"
	"sort"
	"time"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

type jobRepo struct{ s *Store }

func (r *jobRepo) Create(ctx context.Context, job *domain.GenerationJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, j := range r.s.jobs {
		if j.ActiveClientID != nil && *j.ActiveClientID == job.ClientID {
			return repository.ErrConflict
		}
	}
	if job.ID == "" {
		job.ID = domain.NewID()
	}
	if !job.Status.IsTerminal() {
		clientID := job.ClientID
		job.ActiveClientID = &clientID
	}
	r.s.jobs[job.ID] = *job
	r.s.stamp(job.ID)
	id := job.ID
	recordUndo(ctx, func() { delete(r.s.jobs, id) })
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &j, nil
}

func (r *jobRepo) GetActiveByClient(ctx context.Context, clientID string) (*domain.GenerationJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, j := range r.s.jobs {
		if j.ActiveClientID != nil && *j.ActiveClientID == clientID {
			return &j, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *jobRepo) ListByClient(ctx context.Context, clientID string, limit int) ([]domain.GenerationJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.GenerationJob{}
	for _, j := range r.s.jobs {
		if j.ClientID == clientID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.s.seq[out[i].ID] > r.s.seq[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// transition applies mutate if the job's status is one of from.
func (r *jobRepo) transition(ctx context.Context, id string, from []domain.JobStatus, mutate func(j *domain.GenerationJob)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	allowed := false
	for _, st := range from {
		if j.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return repository.ErrStaleState
	}
	prev := j
	mutate(&j)
	r.s.jobs[id] = j
	recordUndo(ctx, func() { r.s.jobs[id] = prev })
	return nil
}

func (r *jobRepo) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, []domain.JobStatus{domain.JobQueued}, func(j *domain.GenerationJob) {
		j.Status = domain.JobRunning
		j.DispatchedAt = &at
		j.UpdatedAt = at
	})
}

func (r *jobRepo) Complete(ctx context.Context, id string, result domain.JobResult, at time.Time) error {
	return r.transition(ctx, id, []domain.JobStatus{domain.JobQueued, domain.JobRunning}, func(j *domain.GenerationJob) {
		j.Status = domain.JobCompleted
		j.Result = &result
		j.Error = ""
		j.CompletedAt = &at
		j.UpdatedAt = at
		j.ActiveClientID = nil
	})
}

func (r *jobRepo) Fail(ctx context.Context, id string, reason string, at time.Time) error {
	return r.transition(ctx, id, []domain.JobStatus{domain.JobQueued, domain.JobRunning}, func(j *domain.GenerationJob) {
		j.Status = domain.JobFailed
		j.Result = nil
		j.Error = reason
		j.CompletedAt = &at
		j.UpdatedAt = at
		j.ActiveClientID = nil
	})
}

func (r *jobRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]domain.GenerationJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.GenerationJob{}
	for _, j := range r.s.jobs {
		if !j.Status.IsTerminal() && j.CreatedAt.Before(cutoff) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
