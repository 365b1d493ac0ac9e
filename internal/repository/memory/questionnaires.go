package memory

import (
	"context"
	"sort"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

type questionnaireRepo struct{ s *Store }

func (r *questionnaireRepo) Create(ctx context.Context, q *domain.QuestionnaireSubmission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if q.ID == "" {
		q.ID = domain.NewID()
	}
	if _, exists := r.s.questionnaires[q.ID]; exists {
		return repository.ErrConflict
	}
	r.s.questionnaires[q.ID] = *q
	r.s.stamp(q.ID)
	id := q.ID
	recordUndo(ctx, func() { delete(r.s.questionnaires, id) })
	return nil
}

func (r *questionnaireRepo) GetByID(ctx context.Context, id string) (*domain.QuestionnaireSubmission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.questionnaires[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r *questionnaireRepo) ListByClient(ctx context.Context, clientID string) ([]domain.QuestionnaireSubmission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.QuestionnaireSubmission{}
	for _, q := range r.s.questionnaires {
		if q.ClientID == clientID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return r.s.seq[out[i].ID] < r.s.seq[out[j].ID]
	})
	return out, nil
}

func (r *questionnaireRepo) MarkPlanGenerated(ctx context.Context, id string) error {
	return r.setPlanGenerated(ctx, id, true)
}

func (r *questionnaireRepo) ClearPlanGenerated(ctx context.Context, id string) error {
	return r.setPlanGenerated(ctx, id, false)
}

func (r *questionnaireRepo) setPlanGenerated(ctx context.Context, id string, generated bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.questionnaires[id]
	if !ok {
		return repository.ErrNotFound
	}
	prev := q
	q.PlanGenerated = generated
	r.s.questionnaires[id] = q
	recordUndo(ctx, func() { r.s.questionnaires[id] = prev })
	return nil
}
