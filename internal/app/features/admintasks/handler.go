// internal/app/features/admintasks/handler.go
package admintasks

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/lessonpolicy"
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/app/system/catalogexport"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Exporter promotes an academic lesson into the public catalog.
type Exporter interface {
	Export(ctx context.Context, lessonID, actor primitive.ObjectID) (catalogexport.Result, error)
}

type Handler struct {
	Exporter Exporter
	ErrLog   *apierr.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(x Exporter, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Exporter: x, ErrLog: errLog, Log: logger}
}

// HandleExport moves a lesson that is ready for migration into the
// catalog and answers with the catalog entry.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	a, ok := authz.CurrentActor(r)
	if !ok {
		apierr.Unauthorized(w)
		return
	}
	if d := lessonpolicy.CanExport(a); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.BadRequest(w, "Identificador de lección inválido")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Exporter.Export(ctx, id, a.ID)
	switch {
	case errors.Is(err, catalogexport.ErrAlreadyExported), errors.Is(err, catalogexport.ErrNotReady):
		apierr.BadRequest(w, err.Error())
		return
	case errors.Is(err, catalogexport.ErrConflict):
		apierr.Conflict(w, err.Error())
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "Lección académica no encontrada")
		return
	case err != nil:
		h.ErrLog.ServerError(w, r, "Error al exportar la lección", err, zap.String("lesson_id", id.Hex()))
		return
	}

	msg := "Lección exportada a RedDinámica"
	if res.Resumed {
		msg = "Exportación pendiente completada"
	}
	apierr.Success(w, http.StatusCreated, msg, res.Lesson)
}
