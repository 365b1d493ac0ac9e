package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"alcyxob/coaching-app/internal/domain"
)

func TestDefaultQuestionnaire(t *testing.T) {
	h := newHarness(t)

	q, err := h.lineage.DefaultQuestionnaire(h.ctx, "c1")
	require.NoError(t, err)
	require.Nil(t, q)

	// only a followup and nothing generated yet: no initial to offer
	h.questionnaire("f0", "c1", domain.QuestionnaireFollowup)
	q, err = h.lineage.DefaultQuestionnaire(h.ctx, "c1")
	require.NoError(t, err)
	require.Nil(t, q)

	h.questionnaire("i1", "c1", domain.QuestionnaireInitial)
	h.questionnaire("i2", "c1", domain.QuestionnaireInitial)
	h.questionnaire("f1", "c1", domain.QuestionnaireFollowup)
	q, err = h.lineage.DefaultQuestionnaire(h.ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "i1", q.ID)

	require.NoError(t, h.store.Questionnaires().MarkPlanGenerated(h.ctx, "i1"))
	q, err = h.lineage.DefaultQuestionnaire(h.ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "f1", q.ID)
}

func TestDefaultPlans(t *testing.T) {
	h := newHarness(t)

	p, err := h.lineage.DefaultPreviousPlan(h.ctx, "c1", domain.PlanKindTraining)
	require.NoError(t, err)
	require.Nil(t, p)

	h.seedPlan("tp1", "c1", domain.PlanKindTraining, nil)
	h.seedPlan("tp2", "c1", domain.PlanKindTraining, nil)
	h.seedPlan("np1", "c1", domain.PlanKindNutrition, nil)

	p, err = h.lineage.DefaultPreviousPlan(h.ctx, "c1", domain.PlanKindTraining)
	require.NoError(t, err)
	require.Equal(t, "tp2", p.ID)

	p, err = h.lineage.DefaultSyncPlan(h.ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "tp2", p.ID)

	d, err := h.lineage.Defaults(h.ctx, "c1")
	require.NoError(t, err)
	require.Nil(t, d.Questionnaire)
	require.Equal(t, "tp2", d.PreviousTrainingPlan.ID)
	require.Equal(t, "np1", d.PreviousNutritionPlan.ID)
	require.Equal(t, "tp2", d.SyncPlan.ID)

	_, err = h.lineage.DefaultPreviousPlan(h.ctx, "c1", "cardio")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDefaultsAreNotAppliedImplicitly(t *testing.T) {
	h := newHarness(t)
	h.questionnaire("q1", "c1", domain.QuestionnaireInitial)
	h.seedPlan("tp1", "c1", domain.PlanKindTraining, nil)

	job := h.submitDispatched("c1", domain.ModeTraining, domain.GenerationInputs{QuestionnaireSubmissionID: "q1"})
	require.Nil(t, job.Inputs.PreviousTrainingPlanID)
	require.Nil(t, h.dispatcher.requests()[0].PreviousTrainingPlan)
}
