package domain

import (
	"time"
)

// JobMode selects which artifacts a generation job produces.
type JobMode string

const (
	ModeTraining  JobMode = "training"
	ModeNutrition JobMode = "nutrition"
	ModeFull      JobMode = "full"
)

func (m JobMode) Valid() bool {
	switch m {
	case ModeTraining, ModeNutrition, ModeFull:
		return true
	}
	return false
}

// Kinds lists the plan kinds a job of this mode must produce, training first.
func (m JobMode) Kinds() []PlanKind {
	switch m {
	case ModeTraining:
		return []PlanKind{PlanKindTraining}
	case ModeNutrition:
		return []PlanKind{PlanKindNutrition}
	case ModeFull:
		return []PlanKind{PlanKindTraining, PlanKindNutrition}
	}
	return nil
}

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobResult points at the plans a completed job created.
type JobResult struct {
	TrainingPlanID  *string `bson:"trainingPlanId,omitempty" json:"trainingPlanId,omitempty"`
	NutritionPlanID *string `bson:"nutritionPlanId,omitempty" json:"nutritionPlanId,omitempty"`
}

// PlanID returns the result pointer for kind.
func (r *JobResult) PlanID(kind PlanKind) *string {
	if r == nil {
		return nil
	}
	if kind == PlanKindTraining {
		return r.TrainingPlanID
	}
	return r.NutritionPlanID
}

// GenerationJob tracks one request to the generation worker.
//
// Result is set only when Status is completed and Error only when it is
// failed. ActiveClientID mirrors ClientID while the job is queued or running
// and is cleared on any terminal transition; storage keeps it unique.
type GenerationJob struct {
	ID           string           `bson:"_id" json:"id"`
	ClientID     string           `bson:"clientId" json:"clientId"`
	Mode         JobMode          `bson:"mode" json:"mode"`
	Inputs       GenerationInputs `bson:"inputs" json:"inputs"`
	Status       JobStatus        `bson:"status" json:"status"`
	Result       *JobResult       `bson:"result,omitempty" json:"result,omitempty"`
	Error        string           `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt    time.Time        `bson:"createdAt" json:"createdAt"`
	DispatchedAt *time.Time       `bson:"dispatchedAt,omitempty" json:"dispatchedAt,omitempty"`
	CompletedAt  *time.Time       `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	UpdatedAt    time.Time        `bson:"updatedAt" json:"updatedAt"`

	ActiveClientID *string `bson:"activeClientId,omitempty" json:"-"`
}

// JobStatusView is the pollable projection of a job.
type JobStatusView struct {
	JobID  string     `json:"jobId"`
	Status JobStatus  `json:"status"`
	Result *JobResult `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

func (j *GenerationJob) StatusView() JobStatusView {
	v := JobStatusView{JobID: j.ID, Status: j.Status}
	switch j.Status {
	case JobCompleted:
		v.Result = j.Result
	case JobFailed:
		v.Error = j.Error
	}
	return v
}

// GeneratedPlan is one artifact returned by the worker. Month and Year are
// optional; zero values mean the month the job completed in.
type GeneratedPlan struct {
	Content PlanContent `json:"content"`
	Month   int         `json:"month,omitempty"`
	Year    int         `json:"year,omitempty"`
}

// GenerationOutcome is what the worker reports for a job.
type GenerationOutcome struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Training  *GeneratedPlan `json:"training,omitempty"`
	Nutrition *GeneratedPlan `json:"nutrition,omitempty"`
}

// Artifact returns the generated plan for kind, or nil when missing.
func (o GenerationOutcome) Artifact(kind PlanKind) *GeneratedPlan {
	var p *GeneratedPlan
	if kind == PlanKindTraining {
		p = o.Training
	} else {
		p = o.Nutrition
	}
	if p == nil || p.Content == nil {
		return nil
	}
	return p
}
