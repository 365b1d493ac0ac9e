package memory

import (
	"context"
	"sort"
	"time"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

type planRepo struct{ s *Store }

func (r *planRepo) CreateMany(ctx context.Context, plans []domain.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range plans {
		if p.ID == "" {
			return repository.RepositoryError("plan id is required")
		}
		if _, exists := r.s.plans[p.ID]; exists {
			return repository.ErrConflict
		}
	}
	for _, p := range plans {
		p.Content = p.Content.Clone()
		r.s.plans[p.ID] = p
		r.s.stamp(p.ID)
		id := p.ID
		recordUndo(ctx, func() {
			delete(r.s.plans, id)
			delete(r.s.seq, id)
		})
	}
	return nil
}

func (r *planRepo) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Content = p.Content.Clone()
	return &p, nil
}

func (r *planRepo) ListByClientAndKind(ctx context.Context, clientID string, kind domain.PlanKind) ([]domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.listLocked(clientID, kind), nil
}

func (r *planRepo) listLocked(clientID string, kind domain.PlanKind) []domain.Plan {
	out := []domain.Plan{}
	for _, p := range r.s.plans {
		if p.ClientID == clientID && p.Kind == kind {
			p.Content = p.Content.Clone()
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return r.s.seq[out[i].ID] > r.s.seq[out[j].ID]
	})
	return out
}

func (r *planRepo) GetLatest(ctx context.Context, clientID string, kind domain.PlanKind) (*domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	plans := r.listLocked(clientID, kind)
	if len(plans) == 0 {
		return nil, repository.ErrNotFound
	}
	return &plans[0], nil
}

func (r *planRepo) update(ctx context.Context, id string, mutate func(p *domain.Plan)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	prev := p
	mutate(&p)
	r.s.plans[id] = p
	recordUndo(ctx, func() { r.s.plans[id] = prev })
	return nil
}

func (r *planRepo) UpdateContent(ctx context.Context, id string, content domain.PlanContent, at time.Time) error {
	return r.update(ctx, id, func(p *domain.Plan) {
		p.Content = content.Clone()
		p.Edited = true
		p.UpdatedAt = at
	})
}

func (r *planRepo) SetPDF(ctx context.Context, id, pdfID string, at time.Time) error {
	return r.update(ctx, id, func(p *domain.Plan) {
		p.PDFID = &pdfID
		p.UpdatedAt = at
	})
}

func (r *planRepo) SetDelivered(ctx context.Context, id string, channel domain.DeliveryChannel, at time.Time) error {
	return r.update(ctx, id, func(p *domain.Plan) {
		switch channel {
		case domain.DeliveryEmail:
			p.SentEmail = true
		case domain.DeliveryWhatsApp:
			p.SentWhatsApp = true
		}
		p.UpdatedAt = at
	})
}

func (r *planRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	seq := r.s.seq[id]
	delete(r.s.plans, id)
	delete(r.s.seq, id)
	recordUndo(ctx, func() {
		r.s.plans[id] = p
		r.s.seq[id] = seq
	})
	return nil
}
