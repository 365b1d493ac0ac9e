package service

import (
	"context"
	"errors"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

var (
	ErrClientNotRole         = errors.New("user found but is not a client")
	ErrClientAlreadyAssigned = errors.New("client is already assigned to a coach")
	ErrClientNotManaged      = errors.New("client is not managed by this coach")
)

// CoachService manages the coach to client relationship that scopes every
// coach-side generation and plan operation.
type CoachService interface {
	AddClientByEmail(ctx context.Context, coachID, clientEmail string) (*domain.User, error)
	GetManagedClients(ctx context.Context, coachID string) ([]domain.User, error)
	// EnsureManaged returns ErrClientNotFound or ErrClientNotManaged unless
	// clientID is a client of coachID.
	EnsureManaged(ctx context.Context, coachID, clientID string) error
}

type coachService struct {
	userRepo repository.UserRepository
}

func NewCoachService(userRepo repository.UserRepository) CoachService {
	return &coachService{userRepo: userRepo}
}

// AddClientByEmail finds a client by email and assigns them to the coach.
func (s *coachService) AddClientByEmail(ctx context.Context, coachID, clientEmail string) (*domain.User, error) {
	if coachID == "" || clientEmail == "" {
		return nil, invalid("email", "is required")
	}

	client, err := s.userRepo.GetByEmail(ctx, clientEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if client.Role != domain.RoleClient {
		return nil, ErrClientNotRole
	}

	if client.CoachID != nil {
		if *client.CoachID == coachID {
			client.PasswordHash = ""
			return client, nil
		}
		return nil, ErrClientAlreadyAssigned
	}

	if err := s.userRepo.SetCoach(ctx, client.ID, coachID); err != nil {
		return nil, err
	}
	client.CoachID = &coachID
	client.PasswordHash = ""
	return client, nil
}

// GetManagedClients retrieves the list of clients managed by the coach.
func (s *coachService) GetManagedClients(ctx context.Context, coachID string) ([]domain.User, error) {
	clients, err := s.userRepo.ListClientsByCoach(ctx, coachID)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		clients[i].PasswordHash = ""
	}
	return clients, nil
}

func (s *coachService) EnsureManaged(ctx context.Context, coachID, clientID string) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	if client.Role != domain.RoleClient {
		return ErrClientNotFound
	}
	if client.CoachID == nil || *client.CoachID != coachID {
		return ErrClientNotManaged
	}
	return nil
}
