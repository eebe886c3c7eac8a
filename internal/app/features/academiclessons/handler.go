// internal/app/features/academiclessons/handler.go
package academiclessons

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/lessonpolicy"
	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	"github.com/reddinamica/reddinamica/internal/app/store/queries/groupstats"
	"github.com/reddinamica/reddinamica/internal/app/system/auditlog"
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/metrics"
	"github.com/reddinamica/reddinamica/internal/app/system/ratelimit"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the dependency container for the academic lessons feature.
//
// Bus, Audit, Metrics and Posting may be nil; the corresponding side
// effect is then skipped.
type Handler struct {
	DB      *mongo.Database
	Bus     events.Publisher
	Audit   *auditlog.Logger
	Metrics *metrics.Recorder
	Posting *ratelimit.Limiter
	ErrLog  *apierr.ErrorLogger
	Log     *zap.Logger

	// EditWindow bounds how long authors may edit or delete their chat
	// messages and comments.
	EditWindow time.Duration
}

func NewHandler(db *mongo.Database, bus events.Publisher, audit *auditlog.Logger, m *metrics.Recorder, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Bus:        bus,
		Audit:      audit,
		Metrics:    m,
		ErrLog:     errLog,
		Log:        logger,
		EditWindow: lessonpolicy.DefaultEditWindow,
	}
}

func actor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	a, ok := authz.CurrentActor(r)
	if !ok {
		apierr.Unauthorized(w)
	}
	return a, ok
}

func objectIDParam(w http.ResponseWriter, r *http.Request, name, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		apierr.BadRequest(w, "Identificador de "+what+" inválido")
		return primitive.NilObjectID, false
	}
	return id, true
}

// loadLesson loads the lesson named by the {id} param and its group. It
// writes the error response itself and returns ok=false on failure.
func (h *Handler) loadLesson(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.AcademicLesson, models.AcademicGroup, bool) {
	id, ok := objectIDParam(w, r, "id", "lección")
	if !ok {
		return models.AcademicLesson{}, models.AcademicGroup{}, false
	}
	l, err := academiclessonstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "Lección académica no encontrada")
		return models.AcademicLesson{}, models.AcademicGroup{}, false
	}
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener la lección académica", err, zap.String("lesson_id", id.Hex()))
		return models.AcademicLesson{}, models.AcademicGroup{}, false
	}

	g, err := groupstore.New(h.DB).GetByID(ctx, l.AcademicGroup)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		// Orphaned lesson: evaluate policies against the denormalized
		// teacher.
		h.Log.Warn("lesson references a missing group",
			zap.String("lesson_id", l.ID.Hex()),
			zap.String("group_id", l.AcademicGroup.Hex()))
		g = models.AcademicGroup{ID: l.AcademicGroup, Teacher: l.Teacher}
	case err != nil:
		h.ErrLog.ServerError(w, r, "Error al obtener el grupo académico", err, zap.String("lesson_id", l.ID.Hex()))
		return models.AcademicLesson{}, models.AcademicGroup{}, false
	}
	return l, g, true
}

func (h *Handler) publish(ctx context.Context, e events.Event) {
	if h.Bus == nil {
		return
	}
	if err := h.Bus.Publish(ctx, e); err != nil {
		h.Log.Warn("event publish failed",
			zap.String("event_type", string(e.Type)),
			zap.String("lesson_id", e.LessonID().Hex()),
			zap.Error(err))
	}
}

// refreshStatistics recomputes the group's statistics after a committed
// lesson write. A failure leaves them stale until the reconciliation task
// runs; the request still succeeds.
func (h *Handler) refreshStatistics(ctx context.Context, groupID primitive.ObjectID) {
	if _, err := groupstats.Recompute(ctx, h.DB, groupID); err != nil {
		h.Log.Warn("group statistics recompute failed",
			zap.String("group_id", groupID.Hex()),
			zap.Error(err))
	}
}

func isGroupTeacher(a authz.Actor, l models.AcademicLesson, g models.AcademicGroup) bool {
	return !a.ID.IsZero() && (g.Teacher == a.ID || l.Teacher == a.ID)
}

func userKey(r *http.Request) string {
	if a, ok := authz.CurrentActor(r); ok {
		return a.ID.Hex()
	}
	return ""
}
