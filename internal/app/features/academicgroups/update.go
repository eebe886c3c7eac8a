package academicgroups

import (
	"context"
	"net/http"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/grouppolicy"
	"github.com/reddinamica/reddinamica/internal/app/store/audit"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	"github.com/reddinamica/reddinamica/internal/app/system/formutil"
	"github.com/reddinamica/reddinamica/internal/app/system/limits"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.uber.org/zap"
)

// HandleUpdate edits group info. The grade is re-validated against the
// resulting academic level, so changing only one of the two is checked too.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req updateGroupRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
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

	level, grade := g.AcademicLevel, g.Grade
	if req.AcademicLevel != nil {
		level = *req.AcademicLevel
	}
	if req.Grade != nil {
		v := trimmed(*req.Grade)
		req.Grade = &v
		grade = v
	}
	if !models.IsValidGrade(level, grade) {
		apierr.BadRequest(w, invalidGradeMessage(level))
		return
	}
	if req.MaxStudents != nil && *req.MaxStudents < len(g.Students) {
		apierr.BadRequest(w, "La capacidad no puede ser menor que el número actual de estudiantes")
		return
	}
	if req.Description != nil {
		v := trimmed(*req.Description)
		req.Description = &v
	}

	store := groupstore.New(h.DB)
	err := store.UpdateInfo(ctx, g.ID, groupstore.InfoUpdate{
		Name:          req.Name,
		Description:   req.Description,
		AcademicLevel: req.AcademicLevel,
		Grade:         req.Grade,
		MaxStudents:   req.MaxStudents,
		Subjects:      cleanSubjects(req.Subjects),
	})
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al actualizar el grupo académico", err)
		return
	}
	updated, err := store.GetByID(ctx, g.ID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener el grupo académico", err)
		return
	}

	h.Audit.GroupEvent(ctx, r, audit.EventGroupUpdated, a.ID, g.ID, nil)
	apierr.Success(w, http.StatusOK, "Grupo académico actualizado", updated)
}

func (h *Handler) HandleUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req permissionsRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	if d := grouppolicy.CanManageGroup(a, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	perms := req.apply(g.Permissions)
	if err := groupstore.New(h.DB).UpdatePermissions(ctx, g.ID, perms); err != nil {
		h.ErrLog.ServerError(w, r, "Error al actualizar los permisos del grupo", err)
		return
	}

	h.Audit.GroupEvent(ctx, r, audit.EventGroupPermissions, a.ID, g.ID, nil)
	h.Log.Info("academic group permissions updated",
		zap.String("group_id", g.ID.Hex()),
		zap.Bool("students_can_create", perms.StudentsCanCreateLessons),
		zap.Bool("students_can_edit", perms.StudentsCanEditLessons))

	apierr.Success(w, http.StatusOK, "Permisos actualizados", perms)
}
