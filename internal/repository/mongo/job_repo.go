package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

const jobCollectionName = "generation_jobs"

type mongoJobRepository struct {
	collection *mongo.Collection
}

func NewMongoJobRepository(db *mongo.Database) repository.JobRepository {
	return &mongoJobRepository{
		collection: db.Collection(jobCollectionName),
	}
}

var nonTerminal = bson.A{domain.JobQueued, domain.JobRunning}

// Create inserts a job. The unique partial index on activeClientId rejects
// a second queued or running job for the same client.
func (r *mongoJobRepository) Create(ctx context.Context, job *domain.GenerationJob) error {
	if job.ID == "" {
		job.ID = domain.NewID()
	}
	if !job.Status.IsTerminal() {
		clientID := job.ClientID
		job.ActiveClientID = &clientID
	}
	if _, err := r.collection.InsertOne(ctx, job); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *mongoJobRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	if err := r.collection.FindOne(ctx, filter, opts...).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *mongoJobRepository) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoJobRepository) GetActiveByClient(ctx context.Context, clientID string) (*domain.GenerationJob, error) {
	return r.findOne(ctx, bson.M{"activeClientId": clientID})
}

func (r *mongoJobRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]domain.GenerationJob, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"clientId": clientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	jobs := []domain.GenerationJob{}
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// transition applies update only when the job's status is in from. A miss
// is told apart as ErrNotFound or ErrStaleState with a second lookup.
func (r *mongoJobRepository) transition(ctx context.Context, id string, from bson.A, update bson.M) error {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrStaleState
}

func (r *mongoJobRepository) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, bson.A{domain.JobQueued}, bson.M{
		"$set": bson.M{"status": domain.JobRunning, "dispatchedAt": at, "updatedAt": at},
	})
}

func (r *mongoJobRepository) Complete(ctx context.Context, id string, result domain.JobResult, at time.Time) error {
	return r.transition(ctx, id, nonTerminal, bson.M{
		"$set":   bson.M{"status": domain.JobCompleted, "result": result, "completedAt": at, "updatedAt": at},
		"$unset": bson.M{"activeClientId": "", "error": ""},
	})
}

func (r *mongoJobRepository) Fail(ctx context.Context, id string, reason string, at time.Time) error {
	return r.transition(ctx, id, nonTerminal, bson.M{
		"$set":   bson.M{"status": domain.JobFailed, "error": reason, "completedAt": at, "updatedAt": at},
		"$unset": bson.M{"activeClientId": "", "result": ""},
	})
}

func (r *mongoJobRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]domain.GenerationJob, error) {
	filter := bson.M{"status": bson.M{"$in": nonTerminal}, "createdAt": bson.M{"$lt": cutoff}}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	jobs := []domain.GenerationJob{}
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// EnsureJobIndexes creates the job indexes, including the partial unique
// index that allows at most one active job per client.
func EnsureJobIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "activeClientId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_active_job_per_client").
				SetPartialFilterExpression(bson.M{"activeClientId": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
