package domain

import (
	"time"
)

type QuestionnaireKind string

const (
	QuestionnaireInitial  QuestionnaireKind = "initial"
	QuestionnaireFollowup QuestionnaireKind = "followup"
)

func (k QuestionnaireKind) Valid() bool {
	return k == QuestionnaireInitial || k == QuestionnaireFollowup
}

// QuestionnaireSubmission is an append-only ledger record of a client's
// questionnaire. PlanGenerated is the only field that changes after insert.
type QuestionnaireSubmission struct {
	ID            string                 `bson:"_id" json:"id"`
	ClientID      string                 `bson:"clientId" json:"clientId"`
	Kind          QuestionnaireKind      `bson:"kind" json:"kind"`
	SubmittedAt   time.Time              `bson:"submittedAt" json:"submittedAt"`
	Responses     map[string]interface{} `bson:"responses,omitempty" json:"responses,omitempty"`
	PlanGenerated bool                   `bson:"planGenerated" json:"planGenerated"`
}
