// Package lessonpolicy decides who may do what with an academic lesson.
//
// Every predicate is pure: it looks only at the actor, the lesson and its
// group, and returns a Decision. Callers load the documents and perform the
// mutation.
//
// Rules, in priority order:
//   - admin and delegated_admin are allowed for management operations
//   - the group teacher approves, rejects, grades and requests export
//   - the lesson leader edits content, manages the team and files, and
//     drives the generic state update
//   - the author may delete while the lesson is a draft; the group teacher
//     may delete only once it left draft (see CanDelete)
//   - group students create lessons when the group permits it, and any
//     participant may chat and comment
//   - everything else is denied
package lessonpolicy

import (
	"time"

	"github.com/reddinamica/reddinamica/internal/app/policy/grouppolicy"
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Decision = grouppolicy.Decision

var (
	allow = grouppolicy.Allow
	deny  = grouppolicy.Deny
)

// DefaultEditWindow bounds how long an author may edit or delete their own
// chat message or comment.
const DefaultEditWindow = 30 * time.Minute

const (
	reasonTeacherOnly   = "Solo el docente del grupo puede realizar esta acción"
	reasonLeaderOnly    = "Solo el líder de la lección puede realizar esta acción"
	reasonNoAccess      = "No tienes acceso a esta lección"
	reasonNotInGroup    = "No perteneces a este grupo académico"
	reasonCreateBlocked = "Los estudiantes no pueden crear lecciones en este grupo. Contacta al docente para habilitar esta opción."
	reasonEditBlocked   = "Los estudiantes no pueden editar lecciones en este grupo. Contacta al docente."
	reasonExported      = "La lección ya fue exportada y no puede modificarse"
	reasonStaffOnly     = "Solo administradores y gestores de lecciones pueden exportar lecciones"
	reasonNotAuthor     = "Solo el autor puede modificar este contenido"
	reasonWindowExpired = "El tiempo para editar o eliminar este contenido expiró"
)

func isTeacher(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) bool {
	if a.ID.IsZero() {
		return false
	}
	return g.Teacher == a.ID || l.Teacher == a.ID
}

func isLeader(a authz.Actor, l models.AcademicLesson) bool {
	return !a.ID.IsZero() && l.Leader == a.ID
}

func isParticipant(a authz.Actor, l models.AcademicLesson) bool {
	if a.ID.IsZero() {
		return false
	}
	if l.Author == a.ID || l.Leader == a.ID {
		return true
	}
	m, ok := l.Member(a.ID)
	return ok && m.Status != models.MemberStatusRejected
}

// CanCreate reports whether the actor may create a lesson in g.
func CanCreate(a authz.Actor, g models.AcademicGroup) Decision {
	if a.IsAdmin() {
		return allow()
	}
	if !a.ID.IsZero() && g.Teacher == a.ID {
		return allow()
	}
	if !g.HasStudent(a.ID) {
		return deny(reasonNotInGroup)
	}
	if !g.Permissions.StudentsCanCreateLessons {
		return deny(reasonCreateBlocked)
	}
	return allow()
}

// CanView reports whether the actor may read the lesson.
func CanView(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) Decision {
	if a.IsStaff() || isTeacher(a, l, g) || isParticipant(a, l) {
		return allow()
	}
	if g.HasStudent(a.ID) && g.Permissions.StudentsCanViewAllLessons {
		return allow()
	}
	return deny(reasonNoAccess)
}

// CanEditContent covers title, resume, justification, references, tags
// and knowledge areas.
func CanEditContent(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) Decision {
	if l.IsExported {
		return deny(reasonExported)
	}
	if a.IsAdmin() {
		return allow()
	}
	if !isLeader(a, l) {
		return deny(reasonLeaderOnly)
	}
	if a.Role == models.RoleStudent && !g.Permissions.StudentsCanEditLessons {
		return deny(reasonEditBlocked)
	}
	return allow()
}

// CanManageMembers covers inviting and removing collaborators.
func CanManageMembers(a authz.Actor, l models.AcademicLesson) Decision {
	if a.IsAdmin() || isLeader(a, l) {
		return allow()
	}
	return deny(reasonLeaderOnly)
}

// CanTransferLeadership reports whether the actor may hand the leader seat
// to another member.
func CanTransferLeadership(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) Decision {
	if a.IsAdmin() || isLeader(a, l) || isTeacher(a, l, g) {
		return allow()
	}
	return deny(reasonLeaderOnly)
}

// CanManageFiles covers file uploads and deletes.
func CanManageFiles(a authz.Actor, l models.AcademicLesson) Decision {
	if l.IsExported {
		return deny(reasonExported)
	}
	if a.IsAdmin() || isLeader(a, l) {
		return allow()
	}
	return deny(reasonLeaderOnly)
}

// CanParticipate covers the lesson chat, conversations and comments: group
// students, the teacher, the author and team members may take part.
func CanParticipate(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) Decision {
	if a.IsAdmin() || isTeacher(a, l, g) || isParticipant(a, l) || g.HasStudent(a.ID) {
		return allow()
	}
	return deny(reasonNoAccess)
}

// CanUpdateState gates the generic state update.
func CanUpdateState(a authz.Actor, l models.AcademicLesson) Decision {
	if a.IsAdmin() || isLeader(a, l) {
		return allow()
	}
	return deny("Solo el líder o un administrador puede cambiar el estado de la lección")
}

// CanPropose gates draft → proposed.
func CanPropose(a authz.Actor, l models.AcademicLesson) Decision {
	if a.IsAdmin() || isLeader(a, l) {
		return allow()
	}
	return deny(reasonLeaderOnly)
}

// CanReview gates the teacher-scoped operations: approve, reject, grade and
// request export.
func CanReview(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) Decision {
	if a.IsAdmin() || isTeacher(a, l, g) {
		return allow()
	}
	return deny(reasonTeacherOnly)
}

// CanExport gates the export to the public catalog.
func CanExport(a authz.Actor) Decision {
	if a.IsStaff() {
		return allow()
	}
	return deny(reasonStaffOnly)
}

// CanDelete applies the delete rule:
//   - admins may always delete
//   - an actor who is both author and group teacher may delete
//   - an author who is not the teacher may delete only a draft
//   - a teacher who is not the author may delete only a lesson that left
//     draft
//
// Exported lessons are rejected by the caller before this check.
func CanDelete(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) Decision {
	if a.IsAdmin() {
		return allow()
	}
	author := !a.ID.IsZero() && l.Author == a.ID
	teacher := isTeacher(a, l, g)
	switch {
	case author && teacher:
		return allow()
	case author:
		if l.State == lifecycle.Draft {
			return allow()
		}
		return deny("Solo puedes eliminar la lección mientras está en borrador")
	case teacher:
		if l.State != lifecycle.Draft {
			return allow()
		}
		return deny("El docente no puede eliminar una lección en borrador")
	}
	return deny("No tienes permiso para eliminar esta lección")
}

// CanModifyOwnEntry gates editing or deleting a chat message, conversation
// message or comment: only its author, and only within window of its
// timestamp.
func CanModifyOwnEntry(a authz.Actor, author primitive.ObjectID, created, now time.Time, window time.Duration) Decision {
	if a.ID.IsZero() || author != a.ID {
		return deny(reasonNotAuthor)
	}
	if window <= 0 {
		window = DefaultEditWindow
	}
	if now.Sub(created) >= window {
		return deny(reasonWindowExpired)
	}
	return allow()
}
