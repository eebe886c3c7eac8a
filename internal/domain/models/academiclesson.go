// internal/domain/models/academiclesson.go
package models

import (
	"time"

	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Development-group roles and membership states.
const (
	MemberRoleLeader       = "leader"
	MemberRoleCollaborator = "collaborator"

	MemberStatusInvited  = "invited"
	MemberStatusAccepted = "accepted"
	MemberStatusRejected = "rejected"
)

// Comment types.
const (
	CommentTypeGeneral  = "general"
	CommentTypeFeedback = "feedback"
	CommentTypeSystem   = "system"
)

// Export claim states.
const (
	ExportPending   = "pending"
	ExportCommitted = "committed"
)

// AcademicLesson is a piece of educational content authored inside an
// academic group and driven through the lesson lifecycle.
//
// NOTE:
//   - State is the single source of truth for the lifecycle. Status is the
//     display projection written alongside it on every state change and
//     must never be set on its own.
//   - KnowledgeAreas holds either KnowledgeArea ids (hex) or free-text names;
//     names are resolved only when the lesson is exported.
//   - IsExported is monotonic. Export tracks the in-flight claim that ties
//     the source lesson to its catalog entry.
type AcademicLesson struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Title         string             `bson:"title" json:"title"`
	TitleCI       string             `bson:"title_ci" json:"-"`
	Resume        string             `bson:"resume" json:"resume"`
	AcademicGroup primitive.ObjectID `bson:"academicGroup" json:"academicGroup"`
	Author        primitive.ObjectID `bson:"author" json:"author"`
	Teacher       primitive.ObjectID `bson:"teacher" json:"teacher"`
	Leader        primitive.ObjectID `bson:"leader" json:"leader"`

	Justification  Justification `bson:"justification" json:"justification"`
	References     string        `bson:"references" json:"references"`
	Tags           []string      `bson:"tags" json:"tags"`
	KnowledgeAreas []string      `bson:"knowledge_areas" json:"knowledge_areas"`
	Level          []string      `bson:"level" json:"level"`

	State  lifecycle.State `bson:"state" json:"state"`
	Status string          `bson:"status" json:"status"`

	DevelopmentGroup []DevelopmentMember `bson:"development_group" json:"development_group"`
	Files            []LessonFile        `bson:"files" json:"files"`
	Messages         []ChatMessage       `bson:"messages" json:"messages"`
	Conversations    []Conversation      `bson:"conversations" json:"conversations"`
	Comments         []LessonComment     `bson:"comments" json:"comments"`

	Grade    *float64 `bson:"grade,omitempty" json:"grade,omitempty"`
	Feedback string   `bson:"feedback,omitempty" json:"feedback,omitempty"`

	IsExported     bool                `bson:"isExported" json:"isExported"`
	ExportedLesson *primitive.ObjectID `bson:"exportedLesson,omitempty" json:"exportedLesson,omitempty"`
	Export         *ExportClaim        `bson:"export,omitempty" json:"export,omitempty"`

	ApprovedAt *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedAt *time.Time `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	GradedAt   *time.Time `bson:"gradedAt,omitempty" json:"gradedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type Justification struct {
	Methodology string `bson:"methodology" json:"methodology"`
	Objectives  string `bson:"objectives" json:"objectives"`
}

// DevelopmentMember is one entry of a lesson's team.
type DevelopmentMember struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	Role     string             `bson:"role" json:"role"`
	Status   string             `bson:"status" json:"status"`
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}

type LessonFile struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	Path         string             `bson:"path" json:"path"`
	Size         int64              `bson:"size" json:"size"`
	MimeType     string             `bson:"mimeType" json:"mimeType"`
	UploadedBy   primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// ChatMessage is used both for the flat lesson chat and inside conversations.
type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Content   string             `bson:"content" json:"content"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Edited    bool               `bson:"edited" json:"edited"`
	EditedAt  *time.Time         `bson:"editedAt,omitempty" json:"editedAt,omitempty"`
}

// Conversation is a named sub-thread with its own participants.
type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id" json:"id"`
	Name         string               `bson:"name" json:"name"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	Messages     []ChatMessage        `bson:"messages" json:"messages"`
	CreatedBy    primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
}

type LessonComment struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Content       string             `bson:"content" json:"content"`
	Author        primitive.ObjectID `bson:"author" json:"author"`
	Type          string             `bson:"type" json:"type"`
	IsFromTeacher bool               `bson:"isFromTeacher" json:"isFromTeacher"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
	Edited        bool               `bson:"edited" json:"edited"`
	EditedAt      *time.Time         `bson:"editedAt,omitempty" json:"editedAt,omitempty"`
}

// ExportClaim records an export in progress. LessonID is allocated when the
// claim is taken so that a retried export reuses it.
type ExportClaim struct {
	Status      string             `bson:"status" json:"status"`
	LessonID    primitive.ObjectID `bson:"lessonId" json:"lessonId"`
	StartedAt   time.Time          `bson:"startedAt" json:"startedAt"`
	CommittedAt *time.Time         `bson:"committedAt,omitempty" json:"committedAt,omitempty"`
}

// Participants returns author, leader, teacher and every development-group
// member without duplicates, in that order.
func (l AcademicLesson) Participants() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var out []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if id.IsZero() || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	add(l.Author)
	add(l.Leader)
	add(l.Teacher)
	for _, m := range l.DevelopmentGroup {
		add(m.User)
	}
	return out
}

// Member returns the development-group entry for userID.
func (l AcademicLesson) Member(userID primitive.ObjectID) (DevelopmentMember, bool) {
	for _, m := range l.DevelopmentGroup {
		if m.User == userID {
			return m, true
		}
	}
	return DevelopmentMember{}, false
}

// IsActiveMember reports whether userID has an accepted seat on the team.
func (l AcademicLesson) IsActiveMember(userID primitive.ObjectID) bool {
	m, ok := l.Member(userID)
	return ok && m.Status == MemberStatusAccepted
}

// FindConversation returns the conversation with the given id.
func (l AcademicLesson) FindConversation(id primitive.ObjectID) (Conversation, bool) {
	for _, c := range l.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return Conversation{}, false
}

// FindMessage looks up a message in the flat chat.
func (l AcademicLesson) FindMessage(id primitive.ObjectID) (ChatMessage, bool) {
	return findMessage(l.Messages, id)
}

func (c Conversation) FindMessage(id primitive.ObjectID) (ChatMessage, bool) {
	return findMessage(c.Messages, id)
}

func (c Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

func (l AcademicLesson) FindComment(id primitive.ObjectID) (LessonComment, bool) {
	for _, c := range l.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return LessonComment{}, false
}

func findMessage(msgs []ChatMessage, id primitive.ObjectID) (ChatMessage, bool) {
	for _, m := range msgs {
		if m.ID == id {
			return m, true
		}
	}
	return ChatMessage{}, false
}
