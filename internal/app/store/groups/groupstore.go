// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

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

var (
	ErrAlreadyMember = errors.New("el estudiante ya pertenece al grupo")
	ErrGroupFull     = errors.New("el grupo alcanzó su capacidad máxima")
	ErrNotMember     = errors.New("el estudiante no pertenece al grupo")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("academic_groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.AcademicGroup, error) {
	var g models.AcademicGroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.AcademicGroup{}, err
	}
	return g, nil
}

// Create inserts a new group. Grade/level validity is the caller's check;
// Create fills ids, timestamps, defaults and derived fields.
func (s *Store) Create(ctx context.Context, g models.AcademicGroup) (models.AcademicGroup, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	if g.MaxStudents <= 0 {
		g.MaxStudents = models.DefaultMaxStudents
	}
	if g.Students == nil {
		g.Students = []primitive.ObjectID{}
	}
	if g.Lessons == nil {
		g.Lessons = []primitive.ObjectID{}
	}
	if g.Subjects == nil {
		g.Subjects = []string{}
	}
	g.Statistics = models.GroupStatistics{TotalStudents: len(g.Students)}
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.AcademicGroup{}, err
	}
	return g, nil
}

// InfoUpdate carries editable group fields. Nil fields are left unchanged.
type InfoUpdate struct {
	Name          *string
	Description   *string
	AcademicLevel *string
	Grade         *string
	MaxStudents   *int
	Subjects      []string
}

func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, upd InfoUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		set["name"] = strings.TrimSpace(*upd.Name)
		set["name_ci"] = text.Fold(*upd.Name)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.AcademicLevel != nil {
		set["academicLevel"] = *upd.AcademicLevel
	}
	if upd.Grade != nil {
		set["grade"] = *upd.Grade
	}
	if upd.MaxStudents != nil {
		set["maxStudents"] = *upd.MaxStudents
	}
	if upd.Subjects != nil {
		set["subjects"] = upd.Subjects
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) UpdatePermissions(ctx context.Context, id primitive.ObjectID, p models.GroupPermissions) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"permissions": p,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// syncTotalStudents sets statistics.totalStudents from the students array.
// It runs as the last stage of every roster pipeline update.
var syncTotalStudents = bson.D{{Key: "$set", Value: bson.M{
	"statistics.totalStudents": bson.M{"$size": bson.M{"$ifNull": bson.A{"$students", bson.A{}}}},
}}}

// AddStudent appends studentID if it is not already a member and the group
// has room. statistics.totalStudents is recomputed in the same atomic update
// so it always equals len(students).
func (s *Store) AddStudent(ctx context.Context, groupID, studentID primitive.ObjectID) error {
	filter := bson.M{
		"_id":      groupID,
		"students": bson.M{"$ne": studentID},
		"$expr":    bson.M{"$lt": bson.A{bson.M{"$size": bson.M{"$ifNull": bson.A{"$students", bson.A{}}}}, "$maxStudents"}},
	}
	pipe := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"students":   bson.M{"$concatArrays": bson.A{bson.M{"$ifNull": bson.A{"$students", bson.A{}}}, bson.A{studentID}}},
			"updated_at": time.Now().UTC(),
		}}},
		syncTotalStudents,
	}
	res, err := s.c.UpdateOne(ctx, filter, pipe)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g.HasStudent(studentID) {
		return ErrAlreadyMember
	}
	return ErrGroupFull
}

// RemoveStudent is the inverse of AddStudent.
func (s *Store) RemoveStudent(ctx context.Context, groupID, studentID primitive.ObjectID) error {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"students": bson.M{"$filter": bson.M{
				"input": "$students",
				"cond":  bson.M{"$ne": bson.A{"$$this", studentID}},
			}},
			"updated_at": time.Now().UTC(),
		}}},
		syncTotalStudents,
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": groupID, "students": studentID}, pipe)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return err
	}
	return ErrNotMember
}

func (s *Store) AddLesson(ctx context.Context, groupID, lessonID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, groupID, bson.M{
		"$addToSet": bson.M{"lessons": lessonID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

func (s *Store) RemoveLesson(ctx context.Context, groupID, lessonID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, groupID, bson.M{
		"$pull": bson.M{"lessons": lessonID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// SetStatistics overwrites the derived statistics block.
func (s *Store) SetStatistics(ctx context.Context, groupID primitive.ObjectID, st models.GroupStatistics) error {
	_, err := s.c.UpdateByID(ctx, groupID, bson.M{"$set": bson.M{"statistics": st}})
	return err
}

// ListForUser returns groups the user teaches or studies in, by name.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.AcademicGroup, error) {
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"teacher": userID},
		bson.M{"students": userID},
	}})
}

// ListAll returns every group, by name. Admin listing only.
func (s *Store) ListAll(ctx context.Context) ([]models.AcademicGroup, error) {
	return s.find(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.AcademicGroup, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.AcademicGroup{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IDs returns the id of every group, for reconciliation.
func (s *Store) IDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
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

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
