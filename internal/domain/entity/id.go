package entity

import "go.mongodb.org/mongo-driver/bson/primitive"

// ValidID reports whether id has the store's native identifier shape:
// a 24 character hexadecimal ObjectID.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// NewID generates a fresh identifier for backends that do not assign one.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
