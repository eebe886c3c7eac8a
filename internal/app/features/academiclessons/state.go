package academiclessons

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/lessonpolicy"
	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/formutil"
	"github.com/reddinamica/reddinamica/internal/app/system/htmlsanitize"
	"github.com/reddinamica/reddinamica/internal/app/system/inputval"
	"github.com/reddinamica/reddinamica/internal/app/system/limits"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleUpdateState is the generic state update driven by the leader.
//
// The target is validated before any permission check so that an unknown
// state is always a 400. Asking for the current state only records the
// optional message as a system comment.
func (h *Handler) HandleUpdateState(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req stateRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return
	}
	target, ok := lifecycle.ParseTarget(req.State)
	if !ok {
		apierr.BadRequest(w, "Estado inválido")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, g, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if d := lessonpolicy.CanUpdateState(a, l); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	comment := h.systemComment(a, l, g, req.Message)
	store := academiclessonstore.New(h.DB)

	if target == l.State {
		if comment != nil {
			updated, err := store.AppendComment(ctx, l.ID, *comment)
			if err != nil {
				h.ErrLog.ServerError(w, r, "Error al registrar el comentario", err, zap.String("lesson_id", l.ID.Hex()))
				return
			}
			l = updated
		}
		apierr.Success(w, http.StatusOK, "Estado sin cambios", stateOf(l))
		return
	}

	if err := lifecycle.Check(l.State, target, lifecycle.OpUpdate); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}

	now := time.Now().UTC()
	extra := bson.M{}
	switch target {
	case lifecycle.Approved:
		extra["approvedAt"] = now
	case lifecycle.Rejected:
		extra["rejectedAt"] = now
	}

	updated, ok := h.transition(ctx, w, r, l, target, extra, comment)
	if !ok {
		return
	}
	h.afterTransition(ctx, r, a, lifecycle.OpUpdate, l, updated, strings.TrimSpace(req.Message))
	apierr.Success(w, http.StatusOK, "Estado actualizado", stateOf(updated))
}

// scopedOp describes one of the single-edge operations. prepare decodes
// and validates the body and returns what the transition writes besides
// the state.
type scopedOp struct {
	op      lifecycle.Op
	guard   func(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) lessonpolicy.Decision
	prepare func(r *http.Request, w http.ResponseWriter, a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) (change, bool)
	message string
}

type change struct {
	extra    bson.M
	comment  *models.LessonComment
	feedback string
}

func noBody(*http.Request, http.ResponseWriter, authz.Actor, models.AcademicLesson, models.AcademicGroup) (change, bool) {
	return change{}, true
}

func (h *Handler) runScoped(w http.ResponseWriter, r *http.Request, s scopedOp) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	target, ok := lifecycle.TargetFor(s.op)
	if !ok {
		h.ErrLog.ServerError(w, r, "Operación sin destino", errors.New("no target for "+string(s.op)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, g, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if d := s.guard(a, l, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	if err := lifecycle.Check(l.State, target, s.op); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	c, ok := s.prepare(r, w, a, l, g)
	if !ok {
		return
	}

	updated, ok := h.transition(ctx, w, r, l, target, c.extra, c.comment)
	if !ok {
		return
	}
	h.afterTransition(ctx, r, a, s.op, l, updated, c.feedback)
	apierr.Success(w, http.StatusOK, s.message, updated)
}

func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	h.runScoped(w, r, scopedOp{
		op: lifecycle.OpPropose,
		guard: func(a authz.Actor, l models.AcademicLesson, _ models.AcademicGroup) lessonpolicy.Decision {
			return lessonpolicy.CanPropose(a, l)
		},
		prepare: noBody,
		message: "Lección propuesta al docente",
	})
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.runScoped(w, r, scopedOp{
		op:    lifecycle.OpApprove,
		guard: lessonpolicy.CanReview,
		prepare: func(r *http.Request, w http.ResponseWriter, a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) (change, bool) {
			var req feedbackRequest
			if !decodeOptional(w, r, &req) {
				return change{}, false
			}
			fb, ok := feedbackText(w, req.Feedback)
			if !ok {
				return change{}, false
			}
			c := change{extra: bson.M{"approvedAt": time.Now().UTC()}, feedback: fb}
			if fb != "" {
				c.extra["feedback"] = fb
				c.comment = feedbackComment(a, l, g, fb)
			}
			return c, true
		},
		message: "Propuesta aprobada",
	})
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.runScoped(w, r, scopedOp{
		op:    lifecycle.OpReject,
		guard: lessonpolicy.CanReview,
		prepare: func(r *http.Request, w http.ResponseWriter, a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) (change, bool) {
			var req rejectRequest
			if !decodeOptional(w, r, &req) {
				return change{}, false
			}
			reason := req.Reason
			if strings.TrimSpace(reason) == "" {
				reason = req.Feedback
			}
			fb, ok := feedbackText(w, reason)
			if !ok {
				return change{}, false
			}
			c := change{extra: bson.M{"rejectedAt": time.Now().UTC()}, feedback: fb}
			if fb != "" {
				c.extra["feedback"] = fb
				c.comment = feedbackComment(a, l, g, fb)
			}
			return c, true
		},
		message: "Propuesta rechazada",
	})
}

func (h *Handler) HandleGrade(w http.ResponseWriter, r *http.Request) {
	h.runScoped(w, r, scopedOp{
		op:    lifecycle.OpGrade,
		guard: lessonpolicy.CanReview,
		prepare: func(r *http.Request, w http.ResponseWriter, a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) (change, bool) {
			var req gradeRequest
			if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
				apierr.Invalid(w, err)
				return change{}, false
			}
			fb, ok := feedbackText(w, req.Feedback)
			if !ok {
				return change{}, false
			}
			c := change{
				extra: bson.M{
					"grade":    *req.Grade,
					"gradedAt": time.Now().UTC(),
				},
				feedback: fb,
			}
			if fb != "" {
				c.extra["feedback"] = fb
				c.comment = feedbackComment(a, l, g, fb)
			}
			return c, true
		},
		message: "Lección calificada",
	})
}

func (h *Handler) HandleRequestExport(w http.ResponseWriter, r *http.Request) {
	h.runScoped(w, r, scopedOp{
		op:    lifecycle.OpRequestExport,
		guard: lessonpolicy.CanReview,
		prepare: func(_ *http.Request, w http.ResponseWriter, _ authz.Actor, l models.AcademicLesson, _ models.AcademicGroup) (change, bool) {
			if l.IsExported {
				apierr.BadRequest(w, "La lección ya fue exportada")
				return change{}, false
			}
			return change{}, true
		},
		message: "Lección marcada como lista para migración",
	})
}

// transition performs the conditional write and maps its failures.
func (h *Handler) transition(ctx context.Context, w http.ResponseWriter, r *http.Request, l models.AcademicLesson, to lifecycle.State, extra bson.M, comment *models.LessonComment) (models.AcademicLesson, bool) {
	updated, err := academiclessonstore.New(h.DB).Transition(ctx, l.ID, l.State, to, extra, comment)
	switch {
	case errors.Is(err, academiclessonstore.ErrStateChanged):
		apierr.BadRequest(w, err.Error())
		return models.AcademicLesson{}, false
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "Lección académica no encontrada")
		return models.AcademicLesson{}, false
	case err != nil:
		h.ErrLog.ServerError(w, r, "Error al cambiar el estado de la lección", err,
			zap.String("lesson_id", l.ID.Hex()),
			zap.String("to", string(to)))
		return models.AcademicLesson{}, false
	}
	return updated, true
}

// afterTransition runs the side effects of a committed transition. None of
// them can fail the request.
func (h *Handler) afterTransition(ctx context.Context, r *http.Request, a authz.Actor, op lifecycle.Op, before, after models.AcademicLesson, feedback string) {
	from, to := before.State, after.State

	h.Metrics.Transition(string(op), string(from), string(to))
	h.Audit.LessonTransition(ctx, r, a.ID, after.ID, string(op), string(from), string(to))
	h.Log.Info("lesson state changed",
		zap.String("lesson_id", after.ID.Hex()),
		zap.String("op", string(op)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", a.ID.Hex()))

	if op == lifecycle.OpGrade || lifecycle.DisplayStatus(from) != lifecycle.DisplayStatus(to) {
		h.refreshStatistics(ctx, after.AcademicGroup)
	}
	h.publish(ctx, events.NewLessonStateChanged(after, from, to, a.ID, feedback))
}

func stateOf(l models.AcademicLesson) stateResponse {
	comments := l.Comments
	if comments == nil {
		comments = []models.LessonComment{}
	}
	return stateResponse{State: l.State, Status: l.Status, Comments: comments}
}

// decodeOptional decodes a body that may be absent.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := formutil.DecodeJSON(w, r, dst, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return false
	}
	if err := inputval.Struct(dst); err != nil {
		apierr.Invalid(w, err)
		return false
	}
	return true
}

func feedbackText(w http.ResponseWriter, raw string) (string, bool) {
	fb := htmlsanitize.PlainText(raw)
	if len(fb) > limits.MaxFeedbackLen {
		apierr.BadRequest(w, "La retroalimentación es demasiado larga")
		return "", false
	}
	return fb, true
}

func feedbackComment(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup, content string) *models.LessonComment {
	return &models.LessonComment{
		ID:            primitive.NewObjectID(),
		Content:       content,
		Author:        a.ID,
		Type:          models.CommentTypeFeedback,
		IsFromTeacher: isGroupTeacher(a, l, g),
		Timestamp:     time.Now().UTC(),
	}
}

func (h *Handler) systemComment(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup, message string) *models.LessonComment {
	msg := htmlsanitize.PlainText(message)
	if msg == "" {
		return nil
	}
	return &models.LessonComment{
		ID:            primitive.NewObjectID(),
		Content:       msg,
		Author:        a.ID,
		Type:          models.CommentTypeSystem,
		IsFromTeacher: isGroupTeacher(a, l, g),
		Timestamp:     time.Now().UTC(),
	}
}
