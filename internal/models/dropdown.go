package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// DropdownValue is one entry of a form taxonomy (units, locations, sites,
// vaccine brands, drug names). One collection per taxonomy.
type DropdownValue struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Value string             `bson:"value" json:"value"`
}
