package academicgroups

import (
	"context"
	"net/http"
	"strings"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/grouppolicy"
	"github.com/reddinamica/reddinamica/internal/app/store/audit"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	userstore "github.com/reddinamica/reddinamica/internal/app/store/users"
	"github.com/reddinamica/reddinamica/internal/app/system/formutil"
	"github.com/reddinamica/reddinamica/internal/app/system/limits"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.uber.org/zap"
)

func trimmed(s string) string { return strings.TrimSpace(s) }

// HandleCreate creates a group owned by the caller.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if d := grouppolicy.CanCreateGroup(a); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	var req createGroupRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return
	}
	req.Grade = trimmed(req.Grade)
	if !models.IsValidGrade(req.AcademicLevel, req.Grade) {
		apierr.BadRequest(w, invalidGradeMessage(req.AcademicLevel))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := groupstore.New(h.DB).Create(ctx, models.AcademicGroup{
		Name:          trimmed(req.Name),
		Description:   trimmed(req.Description),
		Teacher:       a.ID,
		AcademicLevel: req.AcademicLevel,
		Grade:         req.Grade,
		MaxStudents:   req.MaxStudents,
		Subjects:      cleanSubjects(req.Subjects),
		Permissions:   models.DefaultGroupPermissions(),
	})
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al crear el grupo académico", err)
		return
	}
	if err := userstore.New(h.DB).AddTeachingGroup(ctx, a.ID, g.ID); err != nil {
		h.Log.Warn("teaching group link failed", zap.String("group_id", g.ID.Hex()), zap.Error(err))
	}

	h.Audit.GroupEvent(ctx, r, audit.EventGroupCreated, a.ID, g.ID, map[string]string{"name": g.Name})
	h.Log.Info("academic group created",
		zap.String("group_id", g.ID.Hex()),
		zap.String("teacher_id", a.ID.Hex()))

	apierr.Success(w, http.StatusCreated, "Grupo académico creado", g)
}
