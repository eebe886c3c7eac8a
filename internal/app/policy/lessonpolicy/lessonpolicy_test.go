package lessonpolicy_test

import (
	"strings"
	"testing"
	"time"

	"github.com/reddinamica/reddinamica/internal/app/policy/lessonpolicy"
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cast struct {
	admin, manager, teacher, author, leader, member, student, outsider authz.Actor
	group                                                              models.AcademicGroup
	lesson                                                             models.AcademicLesson
}

func newCast() cast {
	c := cast{
		admin:    authz.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin},
		manager:  authz.Actor{ID: primitive.NewObjectID(), Role: models.RoleLessonManager},
		teacher:  authz.Actor{ID: primitive.NewObjectID(), Role: models.RoleTeacher},
		author:   authz.Actor{ID: primitive.NewObjectID(), Role: models.RoleStudent},
		leader:   authz.Actor{ID: primitive.NewObjectID(), Role: models.RoleStudent},
		member:   authz.Actor{ID: primitive.NewObjectID(), Role: models.RoleStudent},
		student:  authz.Actor{ID: primitive.NewObjectID(), Role: models.RoleStudent},
		outsider: authz.Actor{ID: primitive.NewObjectID(), Role: models.RoleStudent},
	}
	c.group = models.AcademicGroup{
		ID:          primitive.NewObjectID(),
		Teacher:     c.teacher.ID,
		Students:    []primitive.ObjectID{c.author.ID, c.leader.ID, c.member.ID, c.student.ID},
		Permissions: models.DefaultGroupPermissions(),
	}
	c.lesson = models.AcademicLesson{
		ID:            primitive.NewObjectID(),
		AcademicGroup: c.group.ID,
		Author:        c.author.ID,
		Teacher:       c.teacher.ID,
		Leader:        c.leader.ID,
		State:         lifecycle.Draft,
		DevelopmentGroup: []models.DevelopmentMember{
			{User: c.leader.ID, Role: models.MemberRoleLeader, Status: models.MemberStatusAccepted},
			{User: c.member.ID, Role: models.MemberRoleCollaborator, Status: models.MemberStatusAccepted},
		},
	}
	return c
}

func TestCanCreate(t *testing.T) {
	c := newCast()
	closed := c.group
	closed.Permissions.StudentsCanCreateLessons = false

	tests := []struct {
		name    string
		actor   authz.Actor
		group   models.AcademicGroup
		allowed bool
		reason  string
	}{
		{"admin", c.admin, closed, true, ""},
		{"group teacher", c.teacher, closed, true, ""},
		{"student when open", c.student, c.group, true, ""},
		{"student when closed", c.student, closed, false, "Contacta al docente"},
		{"outsider", c.outsider, c.group, false, "No perteneces"},
		{"lesson manager outside group", c.manager, c.group, false, "No perteneces"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := lessonpolicy.CanCreate(tt.actor, tt.group)
			if d.Allowed != tt.allowed {
				t.Fatalf("Allowed = %v, want %v (reason %q)", d.Allowed, tt.allowed, d.Reason)
			}
			if tt.reason != "" && !strings.Contains(d.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestRoleScopedOperations(t *testing.T) {
	c := newCast()

	tests := []struct {
		name  string
		check func(authz.Actor) lessonpolicy.Decision
		allow []authz.Actor
		deny  []authz.Actor
	}{
		{
			name:  "review",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanReview(a, c.lesson, c.group) },
			allow: []authz.Actor{c.admin, c.teacher},
			deny:  []authz.Actor{c.manager, c.author, c.leader, c.member, c.outsider},
		},
		{
			name:  "update state",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanUpdateState(a, c.lesson) },
			allow: []authz.Actor{c.admin, c.leader},
			deny:  []authz.Actor{c.teacher, c.author, c.member, c.manager},
		},
		{
			name:  "propose",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanPropose(a, c.lesson) },
			allow: []authz.Actor{c.admin, c.leader},
			deny:  []authz.Actor{c.teacher, c.author, c.member},
		},
		{
			name:  "edit content",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanEditContent(a, c.lesson, c.group) },
			allow: []authz.Actor{c.admin, c.leader},
			deny:  []authz.Actor{c.teacher, c.author, c.member, c.outsider},
		},
		{
			name:  "manage members",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanManageMembers(a, c.lesson) },
			allow: []authz.Actor{c.admin, c.leader},
			deny:  []authz.Actor{c.teacher, c.author, c.member},
		},
		{
			name:  "transfer leadership",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanTransferLeadership(a, c.lesson, c.group) },
			allow: []authz.Actor{c.admin, c.leader, c.teacher},
			deny:  []authz.Actor{c.author, c.member, c.manager},
		},
		{
			name:  "manage files",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanManageFiles(a, c.lesson) },
			allow: []authz.Actor{c.admin, c.leader},
			deny:  []authz.Actor{c.teacher, c.member},
		},
		{
			name:  "participate",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanParticipate(a, c.lesson, c.group) },
			allow: []authz.Actor{c.admin, c.teacher, c.author, c.leader, c.member, c.student},
			deny:  []authz.Actor{c.outsider, c.manager},
		},
		{
			name:  "export",
			check: func(a authz.Actor) lessonpolicy.Decision { return lessonpolicy.CanExport(a) },
			allow: []authz.Actor{c.admin, c.manager, {Role: models.RoleDelegatedAdmin}},
			deny:  []authz.Actor{c.teacher, c.leader},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range tt.allow {
				if d := tt.check(a); !d.Allowed {
					t.Errorf("%s should be allowed, got %q", a.Role, d.Reason)
				}
			}
			for _, a := range tt.deny {
				if d := tt.check(a); d.Allowed || d.Reason == "" {
					t.Errorf("%s (%v) should be denied with a reason", a.Role, a.ID.Hex())
				}
			}
		})
	}
}

func TestCanEditContent_StudentEditsDisabled(t *testing.T) {
	c := newCast()
	c.group.Permissions.StudentsCanEditLessons = false

	if d := lessonpolicy.CanEditContent(c.leader, c.lesson, c.group); d.Allowed {
		t.Error("student leader must be blocked when students cannot edit")
	}
	teacherLed := c.lesson
	teacherLed.Leader = c.teacher.ID
	if d := lessonpolicy.CanEditContent(c.teacher, teacherLed, c.group); !d.Allowed {
		t.Errorf("teacher leader should edit regardless, got %q", d.Reason)
	}

	exported := c.lesson
	exported.IsExported = true
	if d := lessonpolicy.CanEditContent(c.admin, exported, c.group); d.Allowed {
		t.Error("exported lessons are read-only")
	}
}

func TestCanView(t *testing.T) {
	c := newCast()
	if d := lessonpolicy.CanView(c.student, c.lesson, c.group); !d.Allowed {
		t.Errorf("group student with view-all should see the lesson: %q", d.Reason)
	}
	c.group.Permissions.StudentsCanViewAllLessons = false
	if d := lessonpolicy.CanView(c.student, c.lesson, c.group); d.Allowed {
		t.Error("group student without view-all must not see other lessons")
	}
	if d := lessonpolicy.CanView(c.member, c.lesson, c.group); !d.Allowed {
		t.Error("team member always sees the lesson")
	}
	if d := lessonpolicy.CanView(c.manager, c.lesson, c.group); !d.Allowed {
		t.Error("lesson managers see every lesson")
	}
}

// The delete rule is asymmetric between author and teacher; these cases
// pin the observed behavior.
func TestCanDelete(t *testing.T) {
	c := newCast()
	teacherAuthored := c.lesson
	teacherAuthored.Author = c.teacher.ID

	tests := []struct {
		name    string
		actor   authz.Actor
		lesson  models.AcademicLesson
		state   lifecycle.State
		allowed bool
	}{
		{"admin draft", c.admin, c.lesson, lifecycle.Draft, true},
		{"admin graded", c.admin, c.lesson, lifecycle.Graded, true},
		{"author draft", c.author, c.lesson, lifecycle.Draft, true},
		{"author proposed", c.author, c.lesson, lifecycle.Proposed, false},
		{"teacher draft", c.teacher, c.lesson, lifecycle.Draft, false},
		{"teacher proposed", c.teacher, c.lesson, lifecycle.Proposed, true},
		{"teacher-author draft", c.teacher, teacherAuthored, lifecycle.Draft, true},
		{"teacher-author completed", c.teacher, teacherAuthored, lifecycle.Completed, true},
		{"leader draft", c.leader, c.lesson, lifecycle.Draft, false},
		{"outsider", c.outsider, c.lesson, lifecycle.InDevelopment, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.lesson
			l.State = tt.state
			if d := lessonpolicy.CanDelete(tt.actor, l, c.group); d.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v (reason %q)", d.Allowed, tt.allowed, d.Reason)
			}
		})
	}
}

func TestCanModifyOwnEntry(t *testing.T) {
	c := newCast()
	now := time.Now()

	tests := []struct {
		name    string
		actor   authz.Actor
		age     time.Duration
		allowed bool
	}{
		{"author at 29 minutes", c.author, 29 * time.Minute, true},
		{"author at 31 minutes", c.author, 31 * time.Minute, false},
		{"author just now", c.author, 0, true},
		{"non-author at 1 minute", c.member, time.Minute, false},
		{"admin non-author", c.admin, time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := lessonpolicy.CanModifyOwnEntry(tt.actor, c.author.ID, now.Add(-tt.age), now, lessonpolicy.DefaultEditWindow)
			if d.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v (reason %q)", d.Allowed, tt.allowed, d.Reason)
			}
		})
	}
}
