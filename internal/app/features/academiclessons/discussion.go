package academiclessons

import (
	"context"
	"errors"
	"net/http"
	"time"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/lessonpolicy"
	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	"github.com/reddinamica/reddinamica/internal/app/system/authz"
	"github.com/reddinamica/reddinamica/internal/app/system/formutil"
	"github.com/reddinamica/reddinamica/internal/app/system/htmlsanitize"
	"github.com/reddinamica/reddinamica/internal/app/system/limits"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// participant loads the lesson and checks that the actor may take part in
// its discussion.
func (h *Handler) participant(ctx context.Context, w http.ResponseWriter, r *http.Request, a authz.Actor) (models.AcademicLesson, models.AcademicGroup, bool) {
	l, g, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return l, g, false
	}
	if d := lessonpolicy.CanParticipate(a, l, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return l, g, false
	}
	return l, g, true
}

// ownEntry applies the author and edit window rule.
func (h *Handler) ownEntry(w http.ResponseWriter, a authz.Actor, author primitive.ObjectID, created time.Time) bool {
	if d := lessonpolicy.CanModifyOwnEntry(a, author, created, time.Now().UTC(), h.EditWindow); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return false
	}
	return true
}

// readContent decodes {content} and returns it as plain text.
func readContent(w http.ResponseWriter, r *http.Request, max int) (string, bool) {
	var req contentRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return "", false
	}
	return checkContent(w, req.Content, max)
}

func checkContent(w http.ResponseWriter, raw string, max int) (string, bool) {
	content := htmlsanitize.PlainText(raw)
	if content == "" {
		apierr.BadRequest(w, "El contenido no puede estar vacío")
		return "", false
	}
	if len(content) > max {
		apierr.BadRequest(w, "El contenido es demasiado largo")
		return "", false
	}
	return content, true
}

func (h *Handler) entryError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, notFound)
		return
	}
	h.ErrLog.ServerError(w, r, "Error al actualizar la lección académica", err)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Lesson chat                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleListChat(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, _, ok := h.participant(ctx, w, r, a)
	if !ok {
		return
	}
	msgs := l.Messages
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	apierr.OK(w, msgs)
}

func (h *Handler) HandlePostChat(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, ok := h.participant(ctx, w, r, a)
	if !ok {
		return
	}
	content, ok := readContent(w, r, limits.MaxChatMessageLen)
	if !ok {
		return
	}

	m := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		Content:   content,
		Author:    a.ID,
		Timestamp: time.Now().UTC(),
	}
	if err := academiclessonstore.New(h.DB).AppendMessage(ctx, l.ID, m); err != nil {
		h.entryError(w, r, err, "Lección académica no encontrada")
		return
	}
	apierr.Success(w, http.StatusCreated, "Mensaje enviado", m)
}

func (h *Handler) HandleEditChat(w http.ResponseWriter, r *http.Request) {
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
	msgID, ok := objectIDParam(w, r, "messageId", "mensaje")
	if !ok {
		return
	}
	m, found := l.FindMessage(msgID)
	if !found {
		apierr.NotFound(w, "Mensaje no encontrado")
		return
	}
	if !h.ownEntry(w, a, m.Author, m.Timestamp) {
		return
	}
	content, ok := readContent(w, r, limits.MaxChatMessageLen)
	if !ok {
		return
	}

	if err := academiclessonstore.New(h.DB).EditMessage(ctx, l.ID, msgID, content); err != nil {
		h.entryError(w, r, err, "Mensaje no encontrado")
		return
	}
	now := time.Now().UTC()
	m.Content, m.Edited, m.EditedAt = content, true, &now
	apierr.Success(w, http.StatusOK, "Mensaje editado", m)
}

func (h *Handler) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
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
	msgID, ok := objectIDParam(w, r, "messageId", "mensaje")
	if !ok {
		return
	}
	m, found := l.FindMessage(msgID)
	if !found {
		apierr.NotFound(w, "Mensaje no encontrado")
		return
	}
	if !h.ownEntry(w, a, m.Author, m.Timestamp) {
		return
	}

	if err := academiclessonstore.New(h.DB).DeleteMessage(ctx, l.ID, msgID); err != nil {
		h.entryError(w, r, err, "Mensaje no encontrado")
		return
	}
	apierr.Success(w, http.StatusOK, "Mensaje eliminado", nil)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Conversations                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleListConversations returns the conversations the caller takes part
// in. Admins and the group teacher see all of them.
func (h *Handler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, g, ok := h.participant(ctx, w, r, a)
	if !ok {
		return
	}
	seeAll := a.IsAdmin() || isGroupTeacher(a, l, g)
	out := make([]models.Conversation, 0, len(l.Conversations))
	for _, c := range l.Conversations {
		if seeAll || c.HasParticipant(a.ID) {
			out = append(out, c)
		}
	}
	apierr.OK(w, out)
}

// HandleCreateConversation opens a named thread. The creator is always a
// participant; every other participant must be able to take part in the
// lesson.
func (h *Handler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, g, ok := h.participant(ctx, w, r, a)
	if !ok {
		return
	}

	var req conversationRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return
	}

	participants := []primitive.ObjectID{a.ID}
	seen := map[primitive.ObjectID]bool{a.ID: true}
	for _, hex := range req.Participants {
		id, _ := primitive.ObjectIDFromHex(hex)
		if seen[id] {
			continue
		}
		seen[id] = true
		if !lessonpolicy.CanParticipate(authz.Actor{ID: id}, l, g).Allowed {
			apierr.BadRequest(w, "Todos los participantes deben pertenecer a la lección o a su grupo")
			return
		}
		participants = append(participants, id)
	}

	c := models.Conversation{
		ID:           primitive.NewObjectID(),
		Name:         htmlsanitize.PlainText(req.Name),
		Participants: participants,
		Messages:     []models.ChatMessage{},
		CreatedBy:    a.ID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := academiclessonstore.New(h.DB).AddConversation(ctx, l.ID, c); err != nil {
		h.entryError(w, r, err, "Lección académica no encontrada")
		return
	}
	apierr.Success(w, http.StatusCreated, "Conversación creada", c)
}

// conversation loads the lesson and the conversation named by the
// {conversationId} param.
func (h *Handler) conversation(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.AcademicLesson, models.AcademicGroup, models.Conversation, bool) {
	l, g, ok := h.loadLesson(ctx, w, r)
	if !ok {
		return l, g, models.Conversation{}, false
	}
	convID, ok := objectIDParam(w, r, "conversationId", "conversación")
	if !ok {
		return l, g, models.Conversation{}, false
	}
	c, found := l.FindConversation(convID)
	if !found {
		apierr.NotFound(w, "Conversación no encontrada")
		return l, g, models.Conversation{}, false
	}
	return l, g, c, true
}

func (h *Handler) HandlePostConversationMessage(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, c, ok := h.conversation(ctx, w, r)
	if !ok {
		return
	}
	if !c.HasParticipant(a.ID) && !a.IsAdmin() {
		apierr.Forbidden(w, "No participas en esta conversación")
		return
	}
	content, ok := readContent(w, r, limits.MaxChatMessageLen)
	if !ok {
		return
	}

	m := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		Content:   content,
		Author:    a.ID,
		Timestamp: time.Now().UTC(),
	}
	if err := academiclessonstore.New(h.DB).AppendConversationMessage(ctx, l.ID, c.ID, m); err != nil {
		h.entryError(w, r, err, "Conversación no encontrada")
		return
	}
	apierr.Success(w, http.StatusCreated, "Mensaje enviado", m)
}

func (h *Handler) HandleEditConversationMessage(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, c, ok := h.conversation(ctx, w, r)
	if !ok {
		return
	}
	msgID, ok := objectIDParam(w, r, "messageId", "mensaje")
	if !ok {
		return
	}
	m, found := c.FindMessage(msgID)
	if !found {
		apierr.NotFound(w, "Mensaje no encontrado")
		return
	}
	if !h.ownEntry(w, a, m.Author, m.Timestamp) {
		return
	}
	content, ok := readContent(w, r, limits.MaxChatMessageLen)
	if !ok {
		return
	}

	if err := academiclessonstore.New(h.DB).EditConversationMessage(ctx, l.ID, c.ID, msgID, content); err != nil {
		h.entryError(w, r, err, "Mensaje no encontrado")
		return
	}
	now := time.Now().UTC()
	m.Content, m.Edited, m.EditedAt = content, true, &now
	apierr.Success(w, http.StatusOK, "Mensaje editado", m)
}

func (h *Handler) HandleDeleteConversationMessage(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, c, ok := h.conversation(ctx, w, r)
	if !ok {
		return
	}
	msgID, ok := objectIDParam(w, r, "messageId", "mensaje")
	if !ok {
		return
	}
	m, found := c.FindMessage(msgID)
	if !found {
		apierr.NotFound(w, "Mensaje no encontrado")
		return
	}
	if !h.ownEntry(w, a, m.Author, m.Timestamp) {
		return
	}

	if err := academiclessonstore.New(h.DB).DeleteConversationMessage(ctx, l.ID, c.ID, msgID); err != nil {
		h.entryError(w, r, err, "Mensaje no encontrado")
		return
	}
	apierr.Success(w, http.StatusOK, "Mensaje eliminado", nil)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Comments                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// HandlePostComment adds a comment. Only the group teacher (or an admin)
// may post a feedback comment; everyone else posts general comments.
func (h *Handler) HandlePostComment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, g, ok := h.participant(ctx, w, r, a)
	if !ok {
		return
	}

	var req commentRequest
	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
		apierr.Invalid(w, err)
		return
	}
	content, ok := checkContent(w, req.Content, limits.MaxCommentLen)
	if !ok {
		return
	}

	teacher := isGroupTeacher(a, l, g)
	kind := models.CommentTypeGeneral
	if req.Type == models.CommentTypeFeedback && (teacher || a.IsAdmin()) {
		kind = models.CommentTypeFeedback
	}
	c := models.LessonComment{
		ID:            primitive.NewObjectID(),
		Content:       content,
		Author:        a.ID,
		Type:          kind,
		IsFromTeacher: teacher,
		Timestamp:     time.Now().UTC(),
	}
	if _, err := academiclessonstore.New(h.DB).AppendComment(ctx, l.ID, c); err != nil {
		h.entryError(w, r, err, "Lección académica no encontrada")
		return
	}
	apierr.Success(w, http.StatusCreated, "Comentario agregado", c)
}

func (h *Handler) HandleEditComment(w http.ResponseWriter, r *http.Request) {
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
	commentID, ok := objectIDParam(w, r, "commentId", "comentario")
	if !ok {
		return
	}
	c, found := l.FindComment(commentID)
	if !found {
		apierr.NotFound(w, "Comentario no encontrado")
		return
	}
	if !h.ownEntry(w, a, c.Author, c.Timestamp) {
		return
	}
	content, ok := readContent(w, r, limits.MaxCommentLen)
	if !ok {
		return
	}

	if err := academiclessonstore.New(h.DB).EditComment(ctx, l.ID, commentID, content); err != nil {
		h.entryError(w, r, err, "Comentario no encontrado")
		return
	}
	now := time.Now().UTC()
	c.Content, c.Edited, c.EditedAt = content, true, &now
	apierr.Success(w, http.StatusOK, "Comentario editado", c)
}

func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
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
	commentID, ok := objectIDParam(w, r, "commentId", "comentario")
	if !ok {
		return
	}
	c, found := l.FindComment(commentID)
	if !found {
		apierr.NotFound(w, "Comentario no encontrado")
		return
	}
	if !h.ownEntry(w, a, c.Author, c.Timestamp) {
		return
	}

	if err := academiclessonstore.New(h.DB).DeleteComment(ctx, l.ID, commentID); err != nil {
		h.entryError(w, r, err, "Comentario no encontrado")
		return
	}
	h.Log.Debug("lesson comment deleted",
		zap.String("lesson_id", l.ID.Hex()),
		zap.String("comment_id", commentID.Hex()))
	apierr.Success(w, http.StatusOK, "Comentario eliminado", nil)
}
