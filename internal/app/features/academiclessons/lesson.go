package academiclessons

import (
	"context"
	"errors"
	"net/http"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/lessonpolicy"
	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/formutil"
	"github.com/reddinamica/reddinamica/internal/app/system/htmlsanitize"
	"github.com/reddinamica/reddinamica/internal/app/system/limits"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, g, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if d := lessonpolicy.CanView(a, l, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	apierr.OK(w, l)
}

// HandleUpdate edits lesson content. Only fields present in the body change.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, g, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if d := lessonpolicy.CanEditContent(a, l, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	var req updateLessonRequest
	if err := formutil.Decode(w, r, &req, limits.MaxLessonContentBody); err != nil {
		apierr.Invalid(w, err)
		return
	}
	tags, err := formutil.SplitTags(req.Tags)
	if err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}

	upd := academiclessonstore.ContentUpdate{
		Tags:           tags,
		KnowledgeAreas: cleanList(req.KnowledgeAreas),
	}
	if req.Title != nil {
		t := htmlsanitize.PlainText(*req.Title)
		upd.Title = &t
	}
	if req.Resume != nil {
		s := htmlsanitize.Sanitize(*req.Resume)
		upd.Resume = &s
	}
	if req.References != nil {
		s := htmlsanitize.Sanitize(*req.References)
		upd.References = &s
	}
	if req.Justification != nil {
		upd.Justification = &models.Justification{
			Methodology: htmlsanitize.Sanitize(req.Justification.Methodology),
			Objectives:  htmlsanitize.Sanitize(req.Justification.Objectives),
		}
	}

	store := academiclessonstore.New(h.DB)
	if err := store.UpdateContent(ctx, l.ID, upd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apierr.NotFound(w, "Lección académica no encontrada")
			return
		}
		h.ErrLog.ServerError(w, r, "Error al actualizar la lección académica", err, zap.String("lesson_id", l.ID.Hex()))
		return
	}
	updated, err := store.GetByID(ctx, l.ID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener la lección académica", err)
		return
	}
	apierr.Success(w, http.StatusOK, "Lección académica actualizada", updated)
}

// HandleDelete removes a lesson that has not been exported, unlinks it from
// its group and refreshes the group statistics.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, g, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if l.IsExported {
		apierr.BadRequest(w, "La lección ya fue exportada y no puede eliminarse")
		return
	}
	if d := lessonpolicy.CanDelete(a, l, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	n, err := academiclessonstore.New(h.DB).Delete(ctx, l.ID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al eliminar la lección académica", err, zap.String("lesson_id", l.ID.Hex()))
		return
	}
	if n == 0 {
		apierr.NotFound(w, "Lección académica no encontrada")
		return
	}
	if err := groupstore.New(h.DB).RemoveLesson(ctx, l.AcademicGroup, l.ID); err != nil {
		h.Log.Warn("group lesson unlink failed",
			zap.String("group_id", l.AcademicGroup.Hex()),
			zap.String("lesson_id", l.ID.Hex()),
			zap.Error(err))
	}
	h.refreshStatistics(ctx, l.AcademicGroup)

	h.Audit.LessonDeleted(ctx, r, a.ID, l.ID, l.AcademicGroup, l.Title)
	h.publish(ctx, events.NewLessonDeleted(l, a.ID))
	h.Log.Info("academic lesson deleted",
		zap.String("lesson_id", l.ID.Hex()),
		zap.String("actor_id", a.ID.Hex()))

	apierr.Success(w, http.StatusOK, "Lección académica eliminada", nil)
}
