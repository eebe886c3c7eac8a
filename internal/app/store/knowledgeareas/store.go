package knowledgeareastore

import (
	"context"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("knowledge_areas")}
}

func (s *Store) Create(ctx context.Context, name string) (models.KnowledgeArea, error) {
	ka := models.KnowledgeArea{ID: primitive.NewObjectID(), Name: name, NameCI: text.Fold(name)}
	if _, err := s.c.InsertOne(ctx, ka); err != nil {
		return models.KnowledgeArea{}, err
	}
	return ka, nil
}

// ExistingIDs returns the subset of ids that exist.
func (s *Store) ExistingIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	out := make(map[primitive.ObjectID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	areas, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, a := range areas {
		out[a.ID] = true
	}
	return out, nil
}

// IDsByNames resolves names case-insensitively. The result is keyed by the
// folded name; names with no match are absent.
func (s *Store) IDsByNames(ctx context.Context, names []string) (map[string]primitive.ObjectID, error) {
	out := make(map[string]primitive.ObjectID, len(names))
	if len(names) == 0 {
		return out, nil
	}
	folded := make([]string, 0, len(names))
	for _, n := range names {
		folded = append(folded, text.Fold(n))
	}
	areas, err := s.find(ctx, bson.M{"name_ci": bson.M{"$in": folded}})
	if err != nil {
		return nil, err
	}
	for _, a := range areas {
		if _, seen := out[a.NameCI]; !seen {
			out[a.NameCI] = a.ID
		}
	}
	return out, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.KnowledgeArea, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.KnowledgeArea
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
