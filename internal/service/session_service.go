package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

// RecentJobsLimit caps the job history carried in a client session.
const RecentJobsLimit = 20

// SessionService assembles the per-client aggregate the back office loads
// when a client is selected.
type SessionService interface {
	LoadClientSession(ctx context.Context, clientID string) (*domain.ClientSession, error)
}

type sessionService struct {
	questionnaires repository.QuestionnaireRepository
	plans          repository.PlanRepository
	jobs           repository.JobRepository
	now            func() time.Time
}

func NewSessionService(questionnaires repository.QuestionnaireRepository, plans repository.PlanRepository, jobs repository.JobRepository) SessionService {
	return &sessionService{
		questionnaires: questionnaires,
		plans:          plans,
		jobs:           jobs,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// LoadClientSession reads every collection concurrently and derives the
// lineage defaults from the loaded lists, so the snapshot is self-consistent.
func (s *sessionService) LoadClientSession(ctx context.Context, clientID string) (*domain.ClientSession, error) {
	sess := &domain.ClientSession{ClientID: clientID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.questionnaires.ListByClient(gctx, clientID)
		sess.Questionnaires = list
		return err
	})
	g.Go(func() error {
		list, err := s.plans.ListByClientAndKind(gctx, clientID, domain.PlanKindTraining)
		sess.TrainingPlans = summaries(list)
		return err
	})
	g.Go(func() error {
		list, err := s.plans.ListByClientAndKind(gctx, clientID, domain.PlanKindNutrition)
		sess.NutritionPlans = summaries(list)
		return err
	})
	g.Go(func() error {
		list, err := s.jobs.ListByClient(gctx, clientID, RecentJobsLimit)
		sess.Jobs = list
		return err
	})
	g.Go(func() error {
		active, err := s.jobs.GetActiveByClient(gctx, clientID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		sess.ActiveJob = active
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sess.Defaults.Questionnaire = pickDefaultQuestionnaire(sess.Questionnaires)
	if len(sess.TrainingPlans) > 0 {
		latest := sess.TrainingPlans[0]
		sess.Defaults.PreviousTrainingPlan = &latest
		sess.Defaults.SyncPlan = &latest
	}
	if len(sess.NutritionPlans) > 0 {
		latest := sess.NutritionPlans[0]
		sess.Defaults.PreviousNutritionPlan = &latest
	}
	sess.LoadedAt = s.now()
	return sess, nil
}

func summaries(plans []domain.Plan) []domain.Plan {
	out := make([]domain.Plan, len(plans))
	for i := range plans {
		out[i] = plans[i].Summary()
	}
	return out
}
