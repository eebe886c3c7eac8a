package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles recognised by the platform.
const (
	RoleAdmin          = "admin"
	RoleDelegatedAdmin = "delegated_admin"
	RoleLessonManager  = "lesson_manager"
	RoleTeacher        = "teacher"
	RoleStudent        = "student"
	RoleGuest          = "guest"
)

// Roles lists every role in privilege order.
var Roles = []string{RoleAdmin, RoleDelegatedAdmin, RoleLessonManager, RoleTeacher, RoleStudent, RoleGuest}

// User status values. An empty status is treated as active.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// StaffRoles receive platform-wide lifecycle notifications (completion,
// export requests).
var StaffRoles = []string{RoleAdmin, RoleDelegatedAdmin, RoleLessonManager}

// User is the subset of the platform user record the academic core reads
// and maintains.
//
// NOTE:
//   - AcademicGroups lists groups the user belongs to as a student.
//   - TeachingGroups lists groups the user owns as a teacher.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Email      string             `bson:"email" json:"email"`
	Role       string             `bson:"role" json:"role"`
	Status     string             `bson:"status,omitempty" json:"status,omitempty"` // active | disabled

	AcademicGroups []primitive.ObjectID `bson:"academicGroups,omitempty" json:"academicGroups,omitempty"`
	TeachingGroups []primitive.ObjectID `bson:"teachingGroups,omitempty" json:"teachingGroups,omitempty"`

	IsStudent    bool `bson:"isStudent" json:"isStudent"`
	StudentBadge bool `bson:"studentBadge" json:"studentBadge"`

	AcademicStatistics UserAcademicStatistics `bson:"academicStatistics" json:"academicStatistics"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserAcademicStatistics holds per-user counters updated by the academic core.
type UserAcademicStatistics struct {
	TotalLessonsCreated int `bson:"totalLessonsCreated" json:"totalLessonsCreated"`
}

// IsStaffRole reports whether role is one of the platform staff roles.
func IsStaffRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}
