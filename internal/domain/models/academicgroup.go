package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultMaxStudents is used when a group is created without a capacity.
const DefaultMaxStudents = 40

// AcademicGroup is a teacher-owned cohort of students sharing an academic
// level and grade.
//
// NOTE:
//   - Statistics is derived data; it is rewritten by the group statistics
//     aggregator and must not be edited by handlers directly.
//   - Lessons mirrors the academic_lessons documents that reference this
//     group and is kept for cheap membership checks.
type AcademicGroup struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Name          string               `bson:"name" json:"name"`
	NameCI        string               `bson:"name_ci" json:"-"`
	Description   string               `bson:"description" json:"description"`
	Teacher       primitive.ObjectID   `bson:"teacher" json:"teacher"`
	Students      []primitive.ObjectID `bson:"students" json:"students"`
	AcademicLevel string               `bson:"academicLevel" json:"academicLevel"`
	Grade         string               `bson:"grade" json:"grade"`
	MaxStudents   int                  `bson:"maxStudents" json:"maxStudents"`
	Subjects      []string             `bson:"subjects" json:"subjects"`
	Lessons       []primitive.ObjectID `bson:"lessons" json:"lessons"`

	Statistics  GroupStatistics  `bson:"statistics" json:"statistics"`
	Permissions GroupPermissions `bson:"permissions" json:"permissions"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// GroupStatistics is recomputed from the group's lessons.
type GroupStatistics struct {
	TotalStudents int     `bson:"totalStudents" json:"totalStudents"`
	TotalLessons  int     `bson:"totalLessons" json:"totalLessons"`
	AverageGrade  float64 `bson:"averageGrade" json:"averageGrade"`
	ActiveLessons int     `bson:"activeLessons" json:"activeLessons"`
}

// GroupPermissions controls what students may do with lessons in the group.
type GroupPermissions struct {
	StudentsCanCreateLessons  bool `bson:"studentsCanCreateLessons" json:"studentsCanCreateLessons"`
	StudentsCanEditLessons    bool `bson:"studentsCanEditLessons" json:"studentsCanEditLessons"`
	StudentsCanDeleteLessons  bool `bson:"studentsCanDeleteLessons" json:"studentsCanDeleteLessons"`
	StudentsCanViewAllLessons bool `bson:"studentsCanViewAllLessons" json:"studentsCanViewAllLessons"`
}

// DefaultGroupPermissions are applied to newly created groups.
func DefaultGroupPermissions() GroupPermissions {
	return GroupPermissions{
		StudentsCanCreateLessons:  true,
		StudentsCanEditLessons:    true,
		StudentsCanDeleteLessons:  false,
		StudentsCanViewAllLessons: true,
	}
}

// HasStudent reports whether userID is a student member of the group.
func (g AcademicGroup) HasStudent(userID primitive.ObjectID) bool {
	for _, s := range g.Students {
		if s == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the group reached its student capacity.
func (g AcademicGroup) IsFull() bool {
	return g.MaxStudents > 0 && len(g.Students) >= g.MaxStudents
}
