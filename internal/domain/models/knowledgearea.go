package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// KnowledgeArea is a catalog taxonomy entry.
type KnowledgeArea struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"`
}
