package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParseInputsRequiresQuestionnaire(t *testing.T) {
	for _, mode := range []JobMode{ModeTraining, ModeNutrition, ModeFull} {
		_, err := ParseInputs(mode, GenerationInputs{QuestionnaireSubmissionID: "  "})
		var fe *FieldError
		require.ErrorAs(t, err, &fe, mode)
		require.Equal(t, "questionnaireSubmissionId", fe.Field)
	}
}

func TestParseInputsRejectsUnknownMode(t *testing.T) {
	_, err := ParseInputs("weekly", GenerationInputs{QuestionnaireSubmissionID: "q1"})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "mode", fe.Field)
}

func TestParseInputsVariants(t *testing.T) {
	in, err := ParseInputs(ModeTraining, GenerationInputs{QuestionnaireSubmissionID: "q1", PreviousTrainingPlanID: strp("tp0")})
	require.NoError(t, err)
	require.IsType(t, TrainingInputs{}, in)
	require.Equal(t, "tp0", *in.PreviousPlan(PlanKindTraining))
	require.Nil(t, in.PreviousPlan(PlanKindNutrition))
	require.Nil(t, in.SyncPlan())

	in, err = ParseInputs(ModeNutrition, GenerationInputs{QuestionnaireSubmissionID: "q1", TrainingPlanIDForSync: strp("tp1"), PreviousNutritionPlanID: strp("")})
	require.NoError(t, err)
	require.IsType(t, NutritionInputs{}, in)
	require.Equal(t, "tp1", *in.SyncPlan())
	require.Nil(t, in.PreviousPlan(PlanKindNutrition))

	in, err = ParseInputs(ModeFull, GenerationInputs{QuestionnaireSubmissionID: "q9", PreviousTrainingPlanID: strp("tp-old"), PreviousNutritionPlanID: strp("np-old")})
	require.NoError(t, err)
	require.Equal(t, ModeFull, in.Mode())
	require.Equal(t, "np-old", *in.PreviousPlan(PlanKindNutrition))
	require.Equal(t, GenerationInputs{QuestionnaireSubmissionID: "q9", PreviousTrainingPlanID: strp("tp-old"), PreviousNutritionPlanID: strp("np-old")}, in.Flatten())
}

func TestParseInputsRejectsForeignFields(t *testing.T) {
	_, err := ParseInputs(ModeTraining, GenerationInputs{QuestionnaireSubmissionID: "q1", TrainingPlanIDForSync: strp("tp1")})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "trainingPlanIdForSync", fe.Field)

	_, err = ParseInputs(ModeNutrition, GenerationInputs{QuestionnaireSubmissionID: "q1", PreviousTrainingPlanID: strp("tp1")})
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "previousTrainingPlanId", fe.Field)
}

func TestStatusViewHidesNonTerminalFields(t *testing.T) {
	id := "tp1"
	job := GenerationJob{ID: "j1", Status: JobRunning, Result: &JobResult{TrainingPlanID: &id}, Error: "x"}
	v := job.StatusView()
	require.Nil(t, v.Result)
	require.Empty(t, v.Error)

	job.Status = JobCompleted
	require.Equal(t, &id, job.StatusView().Result.TrainingPlanID)
	require.True(t, JobFailed.IsTerminal())
	require.False(t, JobQueued.IsTerminal())
}

func TestOutcomeArtifactRequiresContent(t *testing.T) {
	o := GenerationOutcome{Success: true, Training: &GeneratedPlan{}, Nutrition: &GeneratedPlan{Content: PlanContent{"meals": 3}}}
	require.Nil(t, o.Artifact(PlanKindTraining))
	require.NotNil(t, o.Artifact(PlanKindNutrition))
}
