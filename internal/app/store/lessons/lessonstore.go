// internal/app/store/lessons/lessonstore.go
package lessonstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicate means a catalog lesson with the same _id or academicLessonId
// already exists.
var ErrDuplicate = errors.New("catalog lesson already exists")

var errMissingID = errors.New("catalog lesson id is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("lessons")}
}

// Insert stores a catalog lesson with its caller-assigned _id.
func (s *Store) Insert(ctx context.Context, l models.Lesson) (models.Lesson, error) {
	if l.ID.IsZero() {
		return models.Lesson{}, errMissingID
	}
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Lesson{}, ErrDuplicate
		}
		return models.Lesson{}, err
	}
	return l, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Lesson, error) {
	var l models.Lesson
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return models.Lesson{}, err
	}
	return l, nil
}

// GetByAcademicLessonID returns the catalog entry exported from the given
// academic lesson.
func (s *Store) GetByAcademicLessonID(ctx context.Context, academicID primitive.ObjectID) (models.Lesson, error) {
	var l models.Lesson
	if err := s.c.FindOne(ctx, bson.M{"academicLessonId": academicID}).Decode(&l); err != nil {
		return models.Lesson{}, err
	}
	return l, nil
}

// CountByAcademicLessonID is used to check the one-entry-per-export rule.
func (s *Store) CountByAcademicLessonID(ctx context.Context, academicID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"academicLessonId": academicID})
}
