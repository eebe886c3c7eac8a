// Package events carries domain events from the lesson lifecycle to the
// subscribers that react to them (notifications, metrics).
//
// Publishers emit an event only after the triggering write committed.
// Delivery is at most once: a failing handler is logged and never reported
// back to the publisher.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Type names an event.
type Type string

const (
	LessonCreated       Type = "lesson.created"
	LessonStateChanged  Type = "lesson.state_changed"
	LessonExported      Type = "lesson.exported"
	LessonMemberInvited Type = "lesson.member_invited"
	LessonDeleted       Type = "lesson.deleted"
	GroupStudentAdded   Type = "group.student_added"
	GroupStudentRemoved Type = "group.student_removed"
)

// AllTypes lists every event type, for subscribers that want them all.
var AllTypes = []Type{
	LessonCreated,
	LessonStateChanged,
	LessonExported,
	LessonMemberInvited,
	LessonDeleted,
	GroupStudentAdded,
	GroupStudentRemoved,
}

// Event is a single domain event. Which optional fields are set depends on
// Type.
type Event struct {
	ID         string
	Type       Type
	OccurredAt time.Time
	Actor      primitive.ObjectID

	// Lesson is the lesson as it stood right after the change. For
	// LessonDeleted it is the last known copy.
	Lesson *models.AcademicLesson

	GroupID   primitive.ObjectID
	GroupName string

	From     lifecycle.State
	To       lifecycle.State
	Feedback string

	CatalogID primitive.ObjectID

	// Subject is the user the event is about: the invitee, or the student
	// added to or removed from a group.
	Subject primitive.ObjectID
}

func newEvent(t Type, actor primitive.ObjectID) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
	}
}

func NewLessonCreated(l models.AcademicLesson, actor primitive.ObjectID) Event {
	e := newEvent(LessonCreated, actor)
	e.Lesson = &l
	e.GroupID = l.AcademicGroup
	e.To = l.State
	return e
}

func NewLessonStateChanged(l models.AcademicLesson, from, to lifecycle.State, actor primitive.ObjectID, feedback string) Event {
	e := newEvent(LessonStateChanged, actor)
	e.Lesson = &l
	e.GroupID = l.AcademicGroup
	e.From = from
	e.To = to
	e.Feedback = feedback
	return e
}

func NewLessonExported(l models.AcademicLesson, catalogID primitive.ObjectID, actor primitive.ObjectID) Event {
	e := newEvent(LessonExported, actor)
	e.Lesson = &l
	e.GroupID = l.AcademicGroup
	e.CatalogID = catalogID
	return e
}

func NewMemberInvited(l models.AcademicLesson, invitee, actor primitive.ObjectID) Event {
	e := newEvent(LessonMemberInvited, actor)
	e.Lesson = &l
	e.GroupID = l.AcademicGroup
	e.Subject = invitee
	return e
}

func NewLessonDeleted(l models.AcademicLesson, actor primitive.ObjectID) Event {
	e := newEvent(LessonDeleted, actor)
	e.Lesson = &l
	e.GroupID = l.AcademicGroup
	return e
}

func NewStudentAdded(g models.AcademicGroup, student, actor primitive.ObjectID) Event {
	e := newEvent(GroupStudentAdded, actor)
	e.GroupID = g.ID
	e.GroupName = g.Name
	e.Subject = student
	return e
}

func NewStudentRemoved(g models.AcademicGroup, student, actor primitive.ObjectID) Event {
	e := newEvent(GroupStudentRemoved, actor)
	e.GroupID = g.ID
	e.GroupName = g.Name
	e.Subject = student
	return e
}

// LessonID returns the lesson the event refers to, if any.
func (e Event) LessonID() primitive.ObjectID {
	if e.Lesson == nil {
		return primitive.NilObjectID
	}
	return e.Lesson.ID
}
