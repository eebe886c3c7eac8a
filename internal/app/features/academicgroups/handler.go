// internal/app/features/academicgroups/handler.go
package academicgroups

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	"github.com/reddinamica/reddinamica/internal/app/system/auditlog"
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the dependency container for the academic groups feature.
type Handler struct {
	DB     *mongo.Database
	Bus    events.Publisher
	Audit  *auditlog.Logger
	ErrLog *apierr.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs a groups Handler. bus and audit may be nil.
func NewHandler(db *mongo.Database, bus events.Publisher, audit *auditlog.Logger, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Bus:    bus,
		Audit:  audit,
		ErrLog: errLog,
		Log:    logger,
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

// loadGroup writes the error response itself and returns ok=false when the
// group can not be loaded.
func (h *Handler) loadGroup(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.AcademicGroup, bool) {
	id, ok := objectIDParam(w, r, "groupId", "grupo")
	if !ok {
		return models.AcademicGroup{}, false
	}
	g, err := groupstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "Grupo académico no encontrado")
		return models.AcademicGroup{}, false
	}
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener el grupo académico", err, zap.String("group_id", id.Hex()))
		return models.AcademicGroup{}, false
	}
	return g, true
}

// publish hands e to the bus. Delivery problems never fail the request.
func (h *Handler) publish(ctx context.Context, e events.Event) {
	if h.Bus == nil {
		return
	}
	if err := h.Bus.Publish(ctx, e); err != nil {
		h.Log.Warn("event publish failed", zap.String("event_type", string(e.Type)), zap.Error(err))
	}
}
