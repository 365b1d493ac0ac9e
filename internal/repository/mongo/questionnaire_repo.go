package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

const questionnaireCollectionName = "questionnaire_submissions"

type mongoQuestionnaireRepository struct {
	collection *mongo.Collection
}

func NewMongoQuestionnaireRepository(db *mongo.Database) repository.QuestionnaireRepository {
	return &mongoQuestionnaireRepository{
		collection: db.Collection(questionnaireCollectionName),
	}
}

func (r *mongoQuestionnaireRepository) Create(ctx context.Context, q *domain.QuestionnaireSubmission) error {
	if q.ID == "" {
		q.ID = domain.NewID()
	}
	if _, err := r.collection.InsertOne(ctx, q); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *mongoQuestionnaireRepository) GetByID(ctx context.Context, id string) (*domain.QuestionnaireSubmission, error) {
	var q domain.QuestionnaireSubmission
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&q); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// ListByClient returns the ledger in submission order, oldest first.
func (r *mongoQuestionnaireRepository) ListByClient(ctx context.Context, clientID string) ([]domain.QuestionnaireSubmission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"clientId": clientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []domain.QuestionnaireSubmission{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoQuestionnaireRepository) MarkPlanGenerated(ctx context.Context, id string) error {
	return r.setPlanGenerated(ctx, id, true)
}

func (r *mongoQuestionnaireRepository) ClearPlanGenerated(ctx context.Context, id string) error {
	return r.setPlanGenerated(ctx, id, false)
}

func (r *mongoQuestionnaireRepository) setPlanGenerated(ctx context.Context, id string, generated bool) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"planGenerated": generated}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func EnsureQuestionnaireIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "submittedAt", Value: 1}},
	})
	return err
}
