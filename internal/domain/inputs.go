package domain

import (
	"fmt"
	"strings"
)

// GenerationInputs is the flat wire and storage form of a job's inputs.
// ParseInputs turns it into the mode-specific JobInputs.
type GenerationInputs struct {
	QuestionnaireSubmissionID string  `bson:"questionnaireSubmissionId" json:"questionnaireSubmissionId"`
	PreviousTrainingPlanID    *string `bson:"previousTrainingPlanId,omitempty" json:"previousTrainingPlanId,omitempty"`
	PreviousNutritionPlanID   *string `bson:"previousNutritionPlanId,omitempty" json:"previousNutritionPlanId,omitempty"`
	TrainingPlanIDForSync     *string `bson:"trainingPlanIdForSync,omitempty" json:"trainingPlanIdForSync,omitempty"`
}

// FieldError reports a single invalid input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// JobInputs is implemented by TrainingInputs, NutritionInputs and FullInputs.
type JobInputs interface {
	Mode() JobMode
	SubmissionID() string
	// PreviousPlan returns the progression reference for kind, if any.
	PreviousPlan(kind PlanKind) *string
	// SyncPlan returns the caller supplied training plan for nutrition alignment.
	SyncPlan() *string
	Flatten() GenerationInputs
}

type TrainingInputs struct {
	QuestionnaireSubmissionID string
	PreviousTrainingPlanID    *string
}

func (TrainingInputs) Mode() JobMode           { return ModeTraining }
func (in TrainingInputs) SubmissionID() string { return in.QuestionnaireSubmissionID }
func (in TrainingInputs) SyncPlan() *string    { return nil }
func (in TrainingInputs) PreviousPlan(kind PlanKind) *string {
	if kind == PlanKindTraining {
		return in.PreviousTrainingPlanID
	}
	return nil
}
func (in TrainingInputs) Flatten() GenerationInputs {
	return GenerationInputs{
		QuestionnaireSubmissionID: in.QuestionnaireSubmissionID,
		PreviousTrainingPlanID:    in.PreviousTrainingPlanID,
	}
}

type NutritionInputs struct {
	QuestionnaireSubmissionID string
	PreviousNutritionPlanID   *string
	TrainingPlanIDForSync     *string
}

func (NutritionInputs) Mode() JobMode           { return ModeNutrition }
func (in NutritionInputs) SubmissionID() string { return in.QuestionnaireSubmissionID }
func (in NutritionInputs) SyncPlan() *string    { return in.TrainingPlanIDForSync }
func (in NutritionInputs) PreviousPlan(kind PlanKind) *string {
	if kind == PlanKindNutrition {
		return in.PreviousNutritionPlanID
	}
	return nil
}
func (in NutritionInputs) Flatten() GenerationInputs {
	return GenerationInputs{
		QuestionnaireSubmissionID: in.QuestionnaireSubmissionID,
		PreviousNutritionPlanID:   in.PreviousNutritionPlanID,
		TrainingPlanIDForSync:     in.TrainingPlanIDForSync,
	}
}

type FullInputs struct {
	QuestionnaireSubmissionID string
	PreviousTrainingPlanID    *string
	PreviousNutritionPlanID   *string
	TrainingPlanIDForSync     *string
}

func (FullInputs) Mode() JobMode           { return ModeFull }
func (in FullInputs) SubmissionID() string { return in.QuestionnaireSubmissionID }
func (in FullInputs) SyncPlan() *string    { return in.TrainingPlanIDForSync }
func (in FullInputs) PreviousPlan(kind PlanKind) *string {
	if kind == PlanKindTraining {
		return in.PreviousTrainingPlanID
	}
	return in.PreviousNutritionPlanID
}
func (in FullInputs) Flatten() GenerationInputs {
	return GenerationInputs{
		QuestionnaireSubmissionID: in.QuestionnaireSubmissionID,
		PreviousTrainingPlanID:    in.PreviousTrainingPlanID,
		PreviousNutritionPlanID:   in.PreviousNutritionPlanID,
		TrainingPlanIDForSync:     in.TrainingPlanIDForSync,
	}
}

// ParseInputs checks the flat inputs against mode and returns the matching
// variant. Blank optional ids are treated as absent. Errors are *FieldError.
func ParseInputs(mode JobMode, in GenerationInputs) (JobInputs, error) {
	if !mode.Valid() {
		return nil, &FieldError{Field: "mode", Reason: "must be one of training, nutrition, full"}
	}
	qid := strings.TrimSpace(in.QuestionnaireSubmissionID)
	if qid == "" {
		return nil, &FieldError{Field: "questionnaireSubmissionId", Reason: "is required"}
	}
	prevTraining := normalizeID(in.PreviousTrainingPlanID)
	prevNutrition := normalizeID(in.PreviousNutritionPlanID)
	sync := normalizeID(in.TrainingPlanIDForSync)

	switch mode {
	case ModeTraining:
		if prevNutrition != nil {
			return nil, notAllowed("previousNutritionPlanId", mode)
		}
		if sync != nil {
			return nil, notAllowed("trainingPlanIdForSync", mode)
		}
		return TrainingInputs{QuestionnaireSubmissionID: qid, PreviousTrainingPlanID: prevTraining}, nil
	case ModeNutrition:
		if prevTraining != nil {
			return nil, notAllowed("previousTrainingPlanId", mode)
		}
		return NutritionInputs{QuestionnaireSubmissionID: qid, PreviousNutritionPlanID: prevNutrition, TrainingPlanIDForSync: sync}, nil
	default:
		return FullInputs{
			QuestionnaireSubmissionID: qid,
			PreviousTrainingPlanID:    prevTraining,
			PreviousNutritionPlanID:   prevNutrition,
			TrainingPlanIDForSync:     sync,
		}, nil
	}
}

func notAllowed(field string, mode JobMode) *FieldError {
	return &FieldError{Field: field, Reason: fmt.Sprintf("is not allowed in %s mode", mode)}
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}
