package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a new hex object id. Ids minted this way sort by creation
// time, which the stores use to break generated_at ties.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
