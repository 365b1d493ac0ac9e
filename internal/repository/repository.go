package repository

import (
	"context"
	"time"

	"alcyxob/coaching-app/internal/domain"
)

// Error constants for the repository layer.
var (
	ErrNotFound = RepositoryError("not found")
	// ErrConflict is returned when a write would break a uniqueness rule,
	// such as a second active generation job for the same client.
	ErrConflict = RepositoryError("conflict")
	// ErrStaleState is returned by conditional job transitions when the job
	// exists but is no longer in a state the transition applies to.
	ErrStaleState = RepositoryError("stale state")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn so that every repository write made with the ctx it
// receives commits or rolls back together.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListClientsByCoach(ctx context.Context, coachID string) ([]domain.User, error)
	SetCoach(ctx context.Context, clientID, coachID string) error
}

// QuestionnaireRepository is the append-only questionnaire ledger.
type QuestionnaireRepository interface {
	Create(ctx context.Context, q *domain.QuestionnaireSubmission) error
	GetByID(ctx context.Context, id string) (*domain.QuestionnaireSubmission, error)
	// ListByClient returns submissions oldest first.
	ListByClient(ctx context.Context, clientID string) ([]domain.QuestionnaireSubmission, error)
	MarkPlanGenerated(ctx context.Context, id string) error
	// ClearPlanGenerated undoes MarkPlanGenerated when the plans it
	// reflected could not be kept.
	ClearPlanGenerated(ctx context.Context, id string) error
}

// PlanRepository is the per-client, per-kind plan history.
type PlanRepository interface {
	CreateMany(ctx context.Context, plans []domain.Plan) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	// ListByClientAndKind returns plans newest first. Plans with the same
	// generatedAt are ordered by insertion, later first.
	ListByClientAndKind(ctx context.Context, clientID string, kind domain.PlanKind) ([]domain.Plan, error)
	// GetLatest returns ErrNotFound when the client has no plan of kind.
	GetLatest(ctx context.Context, clientID string, kind domain.PlanKind) (*domain.Plan, error)
	UpdateContent(ctx context.Context, id string, content domain.PlanContent, at time.Time) error
	SetPDF(ctx context.Context, id, pdfID string, at time.Time) error
	SetDelivered(ctx context.Context, id string, channel domain.DeliveryChannel, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// JobRepository stores generation jobs. Transitions are conditional on the
// current status and return ErrStaleState when the job has moved on.
type JobRepository interface {
	// Create returns ErrConflict if the client already has a queued or
	// running job.
	Create(ctx context.Context, job *domain.GenerationJob) error
	GetByID(ctx context.Context, id string) (*domain.GenerationJob, error)
	GetActiveByClient(ctx context.Context, clientID string) (*domain.GenerationJob, error)
	// ListByClient returns jobs newest first; limit <= 0 means all.
	ListByClient(ctx context.Context, clientID string, limit int) ([]domain.GenerationJob, error)
	// MarkRunning moves queued to running.
	MarkRunning(ctx context.Context, id string, at time.Time) error
	// Complete moves queued or running to completed.
	Complete(ctx context.Context, id string, result domain.JobResult, at time.Time) error
	// Fail moves queued or running to failed.
	Fail(ctx context.Context, id string, reason string, at time.Time) error
	// ListExpired returns non-terminal jobs created before cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]domain.GenerationJob, error)
}
