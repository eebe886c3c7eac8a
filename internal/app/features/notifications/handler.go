// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	notificationstore "github.com/reddinamica/reddinamica/internal/app/store/notifications"
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB     *mongo.Database
	ErrLog *apierr.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, ErrLog: errLog, Log: logger}
}

type listResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

// HandleList returns the caller's most recent notifications, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	a, ok := authz.CurrentActor(r)
	if !ok {
		apierr.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	store := notificationstore.New(h.DB)
	ns, err := store.ListForUser(ctx, a.ID, notificationstore.DefaultListLimit)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener las notificaciones", err)
		return
	}
	unread, err := store.CountUnread(ctx, a.ID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al contar las notificaciones", err)
		return
	}
	if ns == nil {
		ns = []models.Notification{}
	}
	apierr.OK(w, listResponse{Notifications: ns, Unread: unread})
}

// HandleMarkRead flags one of the caller's notifications as read. Another
// user's notification is reported as missing.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	a, ok := authz.CurrentActor(r)
	if !ok {
		apierr.Unauthorized(w)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.BadRequest(w, "Identificador de notificación inválido")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = notificationstore.New(h.DB).MarkRead(ctx, id, a.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "Notificación no encontrada")
		return
	}
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al marcar la notificación", err)
		return
	}
	apierr.Success(w, http.StatusOK, "Notificación leída", nil)
}
