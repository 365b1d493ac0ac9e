package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range r.s.users {
		if u.Email == email {
			return "", repository.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = domain.NewID()
	}
	now := time.Now().UTC()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	r.s.stamp(user.ID)
	return user.ID, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) ListClientsByCoach(ctx context.Context, coachID string) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.User{}
	for _, u := range r.s.users {
		if u.Role == domain.RoleClient && u.CoachID != nil && *u.CoachID == coachID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *userRepo) SetCoach(ctx context.Context, clientID, coachID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	u.CoachID = &coachID
	u.UpdatedAt = time.Now().UTC()
	r.s.users[clientID] = u
	return nil
}
