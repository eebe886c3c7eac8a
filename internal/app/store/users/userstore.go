package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when creating a user whose email is taken.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New("unknown role")
)

var knownRoles = map[string]bool{
	models.RoleAdmin: true, models.RoleDelegatedAdmin: true, models.RoleLessonManager: true,
	models.RoleTeacher: true, models.RoleStudent: true, models.RoleGuest: true,
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user. Used by seeding and tests; accounts are normally
// created by the platform's registration flow.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if !knownRoles[u.Role] {
		return models.User{}, errBadRole
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.FullName = strings.TrimSpace(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalizeEmail(u.Email)
	if u.Status == "" {
		u.Status = "active"
	}
	u.IsStudent = u.IsStudent || u.Role == models.RoleStudent
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// IDsByRoles returns the ids of active users holding any of roles.
func (s *Store) IDsByRoles(ctx context.Context, roles []string) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"role": bson.M{"$in": roles}, "status": bson.M{"$ne": "disabled"}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// AddAcademicGroup records that the user joined groupID as a student.
func (s *Store) AddAcademicGroup(ctx context.Context, userID, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, userID, bson.M{
		"$addToSet": bson.M{"academicGroups": groupID},
		"$set":      bson.M{"isStudent": true, "updated_at": time.Now().UTC()},
	})
	return err
}

func (s *Store) RemoveAcademicGroup(ctx context.Context, userID, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, userID, bson.M{
		"$pull": bson.M{"academicGroups": groupID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// AddTeachingGroup records that the user owns groupID.
func (s *Store) AddTeachingGroup(ctx context.Context, userID, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, userID, bson.M{
		"$addToSet": bson.M{"teachingGroups": groupID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// PullGroupEverywhere removes groupID from every user's group lists.
// Used when a group is deleted.
func (s *Store) PullGroupEverywhere(ctx context.Context, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{"academicGroups": groupID},
			bson.M{"teachingGroups": groupID},
		}},
		bson.M{"$pull": bson.M{"academicGroups": groupID, "teachingGroups": groupID}})
	return err
}

// IncLessonsCreated adjusts the user's created-lessons counter.
func (s *Store) IncLessonsCreated(ctx context.Context, userID primitive.ObjectID, delta int) error {
	_, err := s.c.UpdateByID(ctx, userID, bson.M{
		"$inc": bson.M{"academicStatistics.totalLessonsCreated": delta},
	})
	return err
}
