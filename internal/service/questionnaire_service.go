package service

import (
	"context"
	"strings"
	"time"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

// QuestionnaireService fronts the questionnaire ledger. Submissions are
// recorded once and never edited; only the job tracker flips planGenerated.
type QuestionnaireService interface {
	Record(ctx context.Context, clientID string, kind domain.QuestionnaireKind, submittedAt *time.Time, responses map[string]interface{}) (*domain.QuestionnaireSubmission, error)
	List(ctx context.Context, clientID string) ([]domain.QuestionnaireSubmission, error)
}

type questionnaireService struct {
	questionnaires repository.QuestionnaireRepository
	now            func() time.Time
}

func NewQuestionnaireService(questionnaires repository.QuestionnaireRepository) QuestionnaireService {
	return &questionnaireService{
		questionnaires: questionnaires,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *questionnaireService) Record(ctx context.Context, clientID string, kind domain.QuestionnaireKind, submittedAt *time.Time, responses map[string]interface{}) (*domain.QuestionnaireSubmission, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, invalid("clientId", "is required")
	}
	if !kind.Valid() {
		return nil, invalid("kind", "must be initial or followup")
	}
	at := s.now()
	if submittedAt != nil && !submittedAt.IsZero() {
		at = submittedAt.UTC()
	}
	q := &domain.QuestionnaireSubmission{
		ID:          domain.NewID(),
		ClientID:    clientID,
		Kind:        kind,
		SubmittedAt: at,
		Responses:   responses,
	}
	if err := s.questionnaires.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns the client's submissions oldest first.
func (s *questionnaireService) List(ctx context.Context, clientID string) ([]domain.QuestionnaireSubmission, error) {
	return s.questionnaires.ListByClient(ctx, clientID)
}
