package academicgroups

import (
	"context"
	"errors"
	"net/http"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/grouppolicy"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	userstore "github.com/reddinamica/reddinamica/internal/app/store/users"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleAddStudent adds an existing user to the group.
func (h *Handler) HandleAddStudent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	if d := grouppolicy.CanManageGroup(a, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	studentID, ok := objectIDParam(w, r, "studentId", "estudiante")
	if !ok {
		return
	}

	users := userstore.New(h.DB)
	if _, err := users.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apierr.NotFound(w, "Estudiante no encontrado")
			return
		}
		h.ErrLog.ServerError(w, r, "Error al obtener el estudiante", err)
		return
	}
	if studentID == g.Teacher {
		apierr.BadRequest(w, "El docente no puede ser estudiante de su propio grupo")
		return
	}

	store := groupstore.New(h.DB)
	switch err := store.AddStudent(ctx, g.ID, studentID); {
	case errors.Is(err, groupstore.ErrAlreadyMember), errors.Is(err, groupstore.ErrGroupFull):
		apierr.BadRequest(w, err.Error())
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "Grupo académico no encontrado")
		return
	case err != nil:
		h.ErrLog.ServerError(w, r, "Error al agregar el estudiante", err)
		return
	}
	if err := users.AddAcademicGroup(ctx, studentID, g.ID); err != nil {
		h.Log.Warn("student group link failed",
			zap.String("group_id", g.ID.Hex()),
			zap.String("student_id", studentID.Hex()),
			zap.Error(err))
	}

	h.Audit.GroupMembership(ctx, r, true, a.ID, g.ID, studentID)
	h.publish(ctx, events.NewStudentAdded(g, studentID, a.ID))

	updated, err := store.GetByID(ctx, g.ID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener el grupo académico", err)
		return
	}
	apierr.Success(w, http.StatusOK, "Estudiante agregado al grupo", updated)
}

func (h *Handler) HandleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	if d := grouppolicy.CanManageGroup(a, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	studentID, ok := objectIDParam(w, r, "studentId", "estudiante")
	if !ok {
		return
	}

	store := groupstore.New(h.DB)
	switch err := store.RemoveStudent(ctx, g.ID, studentID); {
	case errors.Is(err, groupstore.ErrNotMember):
		apierr.BadRequest(w, err.Error())
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "Grupo académico no encontrado")
		return
	case err != nil:
		h.ErrLog.ServerError(w, r, "Error al retirar el estudiante", err)
		return
	}
	if err := userstore.New(h.DB).RemoveAcademicGroup(ctx, studentID, g.ID); err != nil {
		h.Log.Warn("student group unlink failed",
			zap.String("group_id", g.ID.Hex()),
			zap.String("student_id", studentID.Hex()),
			zap.Error(err))
	}

	h.Audit.GroupMembership(ctx, r, false, a.ID, g.ID, studentID)
	h.publish(ctx, events.NewStudentRemoved(g, studentID, a.ID))

	updated, err := store.GetByID(ctx, g.ID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener el grupo académico", err)
		return
	}
	apierr.Success(w, http.StatusOK, "Estudiante retirado del grupo", updated)
}
