package academiclessons

import (
	"context"
	"errors"
	"net/http"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/lessonpolicy"
	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	userstore "github.com/reddinamica/reddinamica/internal/app/store/users"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/formutil"
	"github.com/reddinamica/reddinamica/internal/app/system/inputval"
	"github.com/reddinamica/reddinamica/internal/app/system/limits"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleInvite invites a group member to the development team by email.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
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
	if d := lessonpolicy.CanManageMembers(a, l); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	var req inviteRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return
	}
	if !inputval.IsValidEmail(req.Email) {
		apierr.BadRequest(w, "Correo electrónico inválido")
		return
	}

	invitee, err := userstore.New(h.DB).GetByEmail(ctx, req.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "No existe un usuario con ese correo")
		return
	}
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al buscar el usuario", err)
		return
	}
	if !g.HasStudent(invitee.ID) {
		apierr.BadRequest(w, "El usuario no pertenece al grupo académico")
		return
	}

	store := academiclessonstore.New(h.DB)
	err = store.AddMember(ctx, l.ID, models.DevelopmentMember{
		User:   invitee.ID,
		Role:   models.MemberRoleCollaborator,
		Status: models.MemberStatusInvited,
	})
	switch {
	case errors.Is(err, academiclessonstore.ErrAlreadyMember):
		apierr.BadRequest(w, err.Error())
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "Lección académica no encontrada")
		return
	case err != nil:
		h.ErrLog.ServerError(w, r, "Error al invitar al usuario", err, zap.String("lesson_id", l.ID.Hex()))
		return
	}

	h.publish(ctx, events.NewMemberInvited(l, invitee.ID, a.ID))
	h.respondLesson(ctx, w, r, l.ID, http.StatusCreated, "Invitación enviada")
}

// HandleRespond lets an invited user accept or decline.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req respondRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	m, member := l.Member(a.ID)
	if !member || m.Status != models.MemberStatusInvited {
		apierr.BadRequest(w, "No tienes una invitación pendiente para esta lección")
		return
	}

	status, msg := models.MemberStatusRejected, "Invitación rechazada"
	if *req.Accept {
		status, msg = models.MemberStatusAccepted, "Invitación aceptada"
	}
	if err := academiclessonstore.New(h.DB).SetMemberStatus(ctx, l.ID, a.ID, status); err != nil {
		h.memberError(w, r, err)
		return
	}
	h.respondLesson(ctx, w, r, l.ID, http.StatusOK, msg)
}

// HandleRemoveMember removes a collaborator. The leader seat cannot be
// removed.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if d := lessonpolicy.CanManageMembers(a, l); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	userID, ok := objectIDParam(w, r, "userId", "usuario")
	if !ok {
		return
	}
	if userID == l.Leader {
		apierr.BadRequest(w, "No se puede retirar al líder de la lección")
		return
	}

	if err := academiclessonstore.New(h.DB).RemoveMember(ctx, l.ID, userID); err != nil {
		h.memberError(w, r, err)
		return
	}
	h.respondLesson(ctx, w, r, l.ID, http.StatusOK, "Miembro retirado del equipo")
}

// HandleLeave removes the caller from the team.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if l.Leader == a.ID {
		apierr.BadRequest(w, "El líder no puede abandonar la lección; transfiere el liderazgo primero")
		return
	}

	if err := academiclessonstore.New(h.DB).RemoveMember(ctx, l.ID, a.ID); err != nil {
		h.memberError(w, r, err)
		return
	}
	apierr.Success(w, http.StatusOK, "Abandonaste el equipo de la lección", nil)
}

// HandleTransferLeader hands the leader seat to an accepted member.
func (h *Handler) HandleTransferLeader(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req transferLeaderRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return
	}
	to, _ := primitive.ObjectIDFromHex(req.UserID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, g, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if d := lessonpolicy.CanTransferLeadership(a, l, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	if to == l.Leader {
		apierr.BadRequest(w, "El usuario ya es el líder de la lección")
		return
	}

	switch err := academiclessonstore.New(h.DB).TransferLeader(ctx, l.ID, l.Leader, to); {
	case errors.Is(err, academiclessonstore.ErrNotMember):
		apierr.BadRequest(w, "El nuevo líder debe ser un miembro aceptado del equipo")
		return
	case err != nil:
		h.memberError(w, r, err)
		return
	}

	h.Audit.LeaderTransferred(ctx, r, a.ID, l.ID, l.Leader, to)
	h.Log.Info("lesson leadership transferred",
		zap.String("lesson_id", l.ID.Hex()),
		zap.String("from", l.Leader.Hex()),
		zap.String("to", to.Hex()))
	h.respondLesson(ctx, w, r, l.ID, http.StatusOK, "Liderazgo transferido")
}

// HandleDeleteFile removes a file's metadata from the lesson.
func (h *Handler) HandleDeleteFile(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return
	}
	if d := lessonpolicy.CanManageFiles(a, l); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}
	fileID, ok := objectIDParam(w, r, "fileId", "archivo")
	if !ok {
		return
	}

	err := academiclessonstore.New(h.DB).RemoveFile(ctx, l.ID, fileID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "Archivo no encontrado")
		return
	}
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al eliminar el archivo", err, zap.String("lesson_id", l.ID.Hex()))
		return
	}
	h.respondLesson(ctx, w, r, l.ID, http.StatusOK, "Archivo eliminado")
}

func (h *Handler) memberError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, academiclessonstore.ErrNotMember),
		errors.Is(err, academiclessonstore.ErrStateChanged):
		apierr.BadRequest(w, err.Error())
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "Lección académica no encontrada")
	default:
		h.ErrLog.ServerError(w, r, "Error al actualizar el equipo de la lección", err)
	}
}

// respondLesson re-reads the lesson and writes it.
func (h *Handler) respondLesson(ctx context.Context, w http.ResponseWriter, r *http.Request, id primitive.ObjectID, status int, msg string) {
	l, err := academiclessonstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener la lección académica", err)
		return
	}
	apierr.Success(w, status, msg, l)
}
