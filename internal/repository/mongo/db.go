package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"alcyxob/coaching-app/internal/repository"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The initial connect can succeed against an unresponsive server, so
	// verify with a ping against the primary.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection this package owns.
// Call once during startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := EnsureUserIndexes(ctx, db.Collection(userCollectionName)); err != nil {
		return err
	}
	if err := EnsureQuestionnaireIndexes(ctx, db.Collection(questionnaireCollectionName)); err != nil {
		return err
	}
	if err := EnsurePlanIndexes(ctx, db.Collection(planCollectionName)); err != nil {
		return err
	}
	return EnsureJobIndexes(ctx, db.Collection(jobCollectionName))
}

// transactor runs callbacks inside a multi-document transaction. Repository
// calls made with the session context join it.
type transactor struct {
	client  *mongo.Client
	enabled bool
}

// NewTransactor returns a repository.Transactor. Transactions need a replica
// set; with enabled=false fn runs directly against the database.
func NewTransactor(client *mongo.Client, enabled bool) repository.Transactor {
	return &transactor{client: client, enabled: enabled}
}

func (t *transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
