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

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// newest first; _id is a time-ordered object id hex so it breaks ties by
// insertion.
var planSort = bson.D{{Key: "generatedAt", Value: -1}, {Key: "_id", Value: -1}}

// CreateMany inserts plans in order. Callers wanting all-or-nothing run it
// inside a transaction.
func (r *mongoPlanRepository) CreateMany(ctx context.Context, plans []domain.Plan) error {
	if len(plans) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(plans))
	for i := range plans {
		if plans[i].ID == "" || plans[i].ClientID == "" || !plans[i].Kind.Valid() {
			return errors.New("plan requires id, clientId and a valid kind")
		}
		docs = append(docs, plans[i])
	}
	if _, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID retrieves a single plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByClientAndKind returns one kind of a client's plan history, newest first.
func (r *mongoPlanRepository) ListByClientAndKind(ctx context.Context, clientID string, kind domain.PlanKind) ([]domain.Plan, error) {
	filter := bson.M{"clientId": clientID, "kind": kind}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(planSort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.Plan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *mongoPlanRepository) GetLatest(ctx context.Context, clientID string, kind domain.PlanKind) (*domain.Plan, error) {
	var plan domain.Plan
	filter := bson.M{"clientId": clientID, "kind": kind}
	err := r.collection.FindOne(ctx, filter, options.FindOne().SetSort(planSort)).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *mongoPlanRepository) set(ctx context.Context, id string, fields bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateContent replaces the content only. Lineage fields and generatedAt
// are never part of the update document.
func (r *mongoPlanRepository) UpdateContent(ctx context.Context, id string, content domain.PlanContent, at time.Time) error {
	return r.set(ctx, id, bson.M{
		"content":   content,
		"edited":    true,
		"updatedAt": at,
	})
}

func (r *mongoPlanRepository) SetPDF(ctx context.Context, id, pdfID string, at time.Time) error {
	return r.set(ctx, id, bson.M{"pdfId": pdfID, "updatedAt": at})
}

func (r *mongoPlanRepository) SetDelivered(ctx context.Context, id string, channel domain.DeliveryChannel, at time.Time) error {
	field := "sentEmail"
	if channel == domain.DeliveryWhatsApp {
		field = "sentWhatsapp"
	}
	return r.set(ctx, id, bson.M{field: true, "updatedAt": at})
}

// Delete removes only the plan itself. Plans pointing at it keep their
// pointers.
func (r *mongoPlanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: one kind of a client's history, newest first.
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "kind", Value: 1}, {Key: "generatedAt", Value: -1}, {Key: "_id", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "jobId", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
