// Package groupstats recomputes the derived statistics block of an
// academic group from the lessons that reference it.
package groupstats

import (
	"context"
	"math"

	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LessonSummary is the slice of a lesson the aggregate needs.
type LessonSummary struct {
	Status string   `bson:"status"`
	Grade  *float64 `bson:"grade"`
}

// Compute derives group statistics. activeLessons counts lessons whose
// display status is in_development; averageGrade is the mean of the lessons
// that carry a grade, rounded to two decimals, or 0 when none do.
func Compute(totalStudents int, lessons []LessonSummary) models.GroupStatistics {
	st := models.GroupStatistics{
		TotalStudents: totalStudents,
		TotalLessons:  len(lessons),
	}
	var sum float64
	var graded int
	for _, l := range lessons {
		if l.Status == string(lifecycle.InDevelopment) {
			st.ActiveLessons++
		}
		if l.Grade != nil {
			sum += *l.Grade
			graded++
		}
	}
	if graded > 0 {
		st.AverageGrade = round2(sum / float64(graded))
	}
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Recompute reloads the group's lessons and rewrites its statistics.
// totalStudents is taken from the students array inside the same update,
// so a concurrent membership change cannot leave it out of sync.
func Recompute(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) (models.GroupStatistics, error) {
	lessons, err := summaries(ctx, db, groupID)
	if err != nil {
		return models.GroupStatistics{}, err
	}
	st := Compute(0, lessons)

	pipe := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"statistics.totalStudents": bson.M{"$size": bson.M{"$ifNull": bson.A{"$students", bson.A{}}}},
			"statistics.totalLessons":  st.TotalLessons,
			"statistics.activeLessons": st.ActiveLessons,
			"statistics.averageGrade":  st.AverageGrade,
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"statistics": 1})
	var out struct {
		Statistics models.GroupStatistics `bson:"statistics"`
	}
	if err := db.Collection("academic_groups").FindOneAndUpdate(ctx, bson.M{"_id": groupID}, pipe, opts).Decode(&out); err != nil {
		return models.GroupStatistics{}, err
	}
	return out.Statistics, nil
}

func summaries(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) ([]LessonSummary, error) {
	cur, err := db.Collection("academic_lessons").Find(ctx,
		bson.M{"academicGroup": groupID},
		options.Find().SetProjection(bson.M{"status": 1, "grade": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []LessonSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
