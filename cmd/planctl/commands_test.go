package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/poller"
)

func suggested() *domain.LineageDefaults {
	return &domain.LineageDefaults{
		Questionnaire:         &domain.QuestionnaireSubmission{ID: "q1"},
		PreviousTrainingPlan:  &domain.Plan{ID: "tp1"},
		PreviousNutritionPlan: &domain.Plan{ID: "np1"},
		SyncPlan:              &domain.Plan{ID: "tp1"},
	}
}

func TestApplyDefaultsQuestionnaireOnly(t *testing.T) {
	in := domain.GenerationInputs{}
	applyDefaults(domain.ModeFull, &in, suggested(), false)
	assert.Equal(t, "q1", in.QuestionnaireSubmissionID)
	assert.Nil(t, in.PreviousTrainingPlanID)
	assert.Nil(t, in.PreviousNutritionPlanID)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	in := domain.GenerationInputs{QuestionnaireSubmissionID: "q9", PreviousNutritionPlanID: optional("np9")}
	applyDefaults(domain.ModeNutrition, &in, suggested(), true)
	assert.Equal(t, "q9", in.QuestionnaireSubmissionID)
	assert.Equal(t, "np9", *in.PreviousNutritionPlanID)
	require.NotNil(t, in.TrainingPlanIDForSync)
	assert.Equal(t, "tp1", *in.TrainingPlanIDForSync)
	assert.Nil(t, in.PreviousTrainingPlanID, "not a nutrition-mode field")
}

func TestApplyDefaultsTrainingMode(t *testing.T) {
	in := domain.GenerationInputs{}
	applyDefaults(domain.ModeTraining, &in, suggested(), true)
	require.NotNil(t, in.PreviousTrainingPlanID)
	assert.Equal(t, "tp1", *in.PreviousTrainingPlanID)
	assert.Nil(t, in.PreviousNutritionPlanID)
	assert.Nil(t, in.TrainingPlanIDForSync)
}

func TestOptional(t *testing.T) {
	assert.Nil(t, optional("  "))
	assert.Equal(t, "x", *optional(" x "))
}

func TestWaitErrorHintsAtStatus(t *testing.T) {
	err := waitError("job-1", &poller.TimeoutError{JobID: "job-1", Waited: time.Minute})
	var timeout *poller.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Contains(t, err.Error(), "planctl status job-1")

	other := errors.New("boom")
	assert.Same(t, other, waitError("job-1", other))
}
