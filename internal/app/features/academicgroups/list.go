package academicgroups

import (
	"context"
	"net/http"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/grouppolicy"
	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/models"
)

// HandleList returns the groups the caller teaches or studies in. Staff
// see every group.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := groupstore.New(h.DB)
	var (
		groups []models.AcademicGroup
		err    error
	)
	if a.IsStaff() {
		groups, err = store.ListAll(ctx)
	} else {
		groups, err = store.ListForUser(ctx, a.ID)
	}
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al listar los grupos académicos", err)
		return
	}
	apierr.OK(w, groups)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	if d := grouppolicy.CanViewGroup(a, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	apierr.OK(w, g)
}

// HandleListLessons lists the group's lessons. Students of a group that
// hides lessons only see the ones they take part in.
func (h *Handler) HandleListLessons(w http.ResponseWriter, r *http.Request) {
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
	if d := grouppolicy.CanViewGroup(a, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	store := academiclessonstore.New(h.DB)
	var (
		lessons []models.AcademicLesson
		err     error
	)
	if grouppolicy.CanSeeAllLessons(a, g) {
		lessons, err = store.ListByGroup(ctx, g.ID)
	} else {
		lessons, err = store.ListByGroupForUser(ctx, g.ID, a.ID)
	}
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al listar las lecciones del grupo", err)
		return
	}
	apierr.OK(w, lessons)
}
