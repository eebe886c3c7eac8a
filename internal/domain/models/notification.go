package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types written by the dispatcher.
const (
	NotifyLessonCreated      = "academic_lesson_created"
	NotifyLessonProposed     = "academic_lesson_proposed"
	NotifyLessonApproved     = "academic_lesson_approved"
	NotifyLessonRejected     = "academic_lesson_rejected"
	NotifyLessonStateChanged = "academic_lesson_state_changed"
	NotifyLessonCompleted    = "academic_lesson_completed"
	NotifyLessonGraded       = "academic_lesson_graded"
	NotifyExportRequested    = "academic_lesson_export_requested"
	NotifyLessonExported     = "academic_lesson_exported"
	NotifyLessonDeleted      = "academic_lesson_deleted"
	NotifyMemberInvited      = "academic_lesson_invitation"
	NotifyGroupJoined        = "academic_group_joined"
	NotifyGroupLeft          = "academic_group_removed"
)

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	User    primitive.ObjectID `bson:"user" json:"user"`
	Type    string             `bson:"type" json:"type"`
	Title   string             `bson:"title" json:"title"`
	Message string             `bson:"message" json:"message"`
	Link    string             `bson:"link" json:"link"`
	Read    bool               `bson:"read" json:"read"`
	Data    map[string]string  `bson:"data,omitempty" json:"data,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
