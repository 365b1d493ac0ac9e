package domain

import "time"

// LineageDefaults are the advisory selections offered to a caller building a
// generation request. Any field may be nil.
type LineageDefaults struct {
	Questionnaire         *QuestionnaireSubmission `json:"questionnaire"`
	PreviousTrainingPlan  *Plan                    `json:"previousTrainingPlan"`
	PreviousNutritionPlan *Plan                    `json:"previousNutritionPlan"`
	SyncPlan              *Plan                    `json:"syncPlan"`
}

// ClientSession is one consistent snapshot of everything the back office
// shows for a selected client.
type ClientSession struct {
	ClientID       string                    `json:"clientId"`
	Questionnaires []QuestionnaireSubmission `json:"questionnaires"`
	TrainingPlans  []Plan                    `json:"trainingPlans"`
	NutritionPlans []Plan                    `json:"nutritionPlans"`
	Jobs           []GenerationJob           `json:"jobs"`
	ActiveJob      *GenerationJob            `json:"activeJob"`
	Defaults       LineageDefaults           `json:"defaults"`
	LoadedAt       time.Time                 `json:"loadedAt"`
}
