package service

import (
	"context"
	"errors"
	"fmt"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

// LineageResolver computes advisory defaults for a generation request and
// dereferences plan lineage pointers. It never writes.
type LineageResolver interface {
	DefaultQuestionnaire(ctx context.Context, clientID string) (*domain.QuestionnaireSubmission, error)
	DefaultPreviousPlan(ctx context.Context, clientID string, kind domain.PlanKind) (*domain.Plan, error)
	DefaultSyncPlan(ctx context.Context, clientID string) (*domain.Plan, error)
	Defaults(ctx context.Context, clientID string) (*domain.LineageDefaults, error)
	// Resolve dereferences the lineage pointers of plan. Dangling pointers
	// resolve to the unavailable sentinel instead of an error.
	Resolve(ctx context.Context, plan *domain.Plan) (domain.PlanLineage, error)
}

type lineageResolver struct {
	plans          repository.PlanRepository
	questionnaires repository.QuestionnaireRepository
}

func NewLineageResolver(plans repository.PlanRepository, questionnaires repository.QuestionnaireRepository) LineageResolver {
	return &lineageResolver{plans: plans, questionnaires: questionnaires}
}

// pickDefaultQuestionnaire expects list oldest first. Until some submission
// has fed a generation it offers the earliest initial one; after that the
// most recent submission overall.
func pickDefaultQuestionnaire(list []domain.QuestionnaireSubmission) *domain.QuestionnaireSubmission {
	if len(list) == 0 {
		return nil
	}
	for _, q := range list {
		if q.PlanGenerated {
			latest := list[len(list)-1]
			return &latest
		}
	}
	for _, q := range list {
		if q.Kind == domain.QuestionnaireInitial {
			q := q
			return &q
		}
	}
	return nil
}

func (r *lineageResolver) DefaultQuestionnaire(ctx context.Context, clientID string) (*domain.QuestionnaireSubmission, error) {
	list, err := r.questionnaires.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return pickDefaultQuestionnaire(list), nil
}

func (r *lineageResolver) DefaultPreviousPlan(ctx context.Context, clientID string, kind domain.PlanKind) (*domain.Plan, error) {
	if !kind.Valid() {
		return nil, invalid("kind", "must be training or nutrition")
	}
	plan, err := r.plans.GetLatest(ctx, clientID, kind)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *lineageResolver) DefaultSyncPlan(ctx context.Context, clientID string) (*domain.Plan, error) {
	return r.DefaultPreviousPlan(ctx, clientID, domain.PlanKindTraining)
}

func (r *lineageResolver) Defaults(ctx context.Context, clientID string) (*domain.LineageDefaults, error) {
	q, err := r.DefaultQuestionnaire(ctx, clientID)
	if err != nil {
		return nil, err
	}
	training, err := r.DefaultPreviousPlan(ctx, clientID, domain.PlanKindTraining)
	if err != nil {
		return nil, err
	}
	nutrition, err := r.DefaultPreviousPlan(ctx, clientID, domain.PlanKindNutrition)
	if err != nil {
		return nil, err
	}
	return &domain.LineageDefaults{
		Questionnaire:         q,
		PreviousTrainingPlan:  training,
		PreviousNutritionPlan: nutrition,
		SyncPlan:              training,
	}, nil
}

func (r *lineageResolver) Resolve(ctx context.Context, plan *domain.Plan) (domain.PlanLineage, error) {
	var (
		lin domain.PlanLineage
		err error
	)
	if plan.SourceSubmissionID != "" {
		if lin.Source, err = r.questionnaireRef(ctx, plan.SourceSubmissionID); err != nil {
			return lin, err
		}
	}
	if lin.Previous, err = r.planRef(ctx, plan.PreviousPlanID); err != nil {
		return lin, err
	}
	if lin.Sync, err = r.planRef(ctx, plan.SyncPlanID); err != nil {
		return lin, err
	}
	return lin, nil
}

func (r *lineageResolver) questionnaireRef(ctx context.Context, id string) (*domain.LineageRef, error) {
	q, err := r.questionnaires.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.UnavailableRef(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve questionnaire %s: %w", id, err)
	}
	at := q.SubmittedAt
	return &domain.LineageRef{ID: q.ID, Available: true, Kind: string(q.Kind), Timestamp: &at}, nil
}

func (r *lineageResolver) planRef(ctx context.Context, id *string) (*domain.LineageRef, error) {
	if id == nil {
		return nil, nil
	}
	p, err := r.plans.GetByID(ctx, *id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.UnavailableRef(*id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve plan %s: %w", *id, err)
	}
	at := p.GeneratedAt
	return &domain.LineageRef{ID: p.ID, Available: true, Kind: string(p.Kind), Timestamp: &at}, nil
}
