// Package grouppolicy provides authorization policies for academic groups.
//
// Authorization rules:
//   - Admins (admin, delegated_admin) can view and manage every group
//   - Teachers can create groups and manage the groups they own
//   - Students can view the groups they belong to
//   - Lesson managers can view every group but not manage it
package grouppolicy

import (
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/domain/models"
)

// Decision is the outcome of a policy check. Reason is user-facing and
// only set when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// CanCreateGroup reports whether the actor can create academic groups.
func CanCreateGroup(a authz.Actor) Decision {
	if a.IsAdmin() || a.Role == models.RoleTeacher {
		return Allow()
	}
	return Deny("Solo los docentes pueden crear grupos académicos")
}

// CanManageGroup covers editing group info and permissions, membership
// changes, statistics recompute and deletion.
func CanManageGroup(a authz.Actor, g models.AcademicGroup) Decision {
	if a.IsAdmin() {
		return Allow()
	}
	if !a.ID.IsZero() && g.Teacher == a.ID {
		return Allow()
	}
	return Deny("Solo el docente del grupo puede realizar esta acción")
}

// CanViewGroup reports whether the actor can see the group and its lesson
// list.
func CanViewGroup(a authz.Actor, g models.AcademicGroup) Decision {
	if a.IsStaff() {
		return Allow()
	}
	if a.ID.IsZero() {
		return Deny("No tienes acceso a este grupo académico")
	}
	if g.Teacher == a.ID || g.HasStudent(a.ID) {
		return Allow()
	}
	return Deny("No tienes acceso a este grupo académico")
}

// CanSeeAllLessons reports whether the actor sees every lesson of the group
// rather than only the ones they take part in.
func CanSeeAllLessons(a authz.Actor, g models.AcademicGroup) bool {
	if a.IsStaff() || g.Teacher == a.ID {
		return true
	}
	return g.Permissions.StudentsCanViewAllLessons
}
