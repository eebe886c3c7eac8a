package academiclessons

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/lessonpolicy"
	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	userstore "github.com/reddinamica/reddinamica/internal/app/store/users"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/formutil"
	"github.com/reddinamica/reddinamica/internal/app/system/htmlsanitize"
	"github.com/reddinamica/reddinamica/internal/app/system/limits"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleCreate creates a draft lesson in a group. The caller becomes author
// and leader; the group's teacher and level are copied onto the lesson.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req createLessonRequest
	if err := formutil.Decode(w, r, &req, limits.MaxLessonContentBody); err != nil {
		apierr.Invalid(w, err)
		return
	}
	tags, err := formutil.SplitTags(req.Tags)
	if err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	groupID, _ := primitive.ObjectIDFromHex(req.AcademicGroup)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	groups := groupstore.New(h.DB)
	g, err := groups.GetByID(ctx, groupID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "Grupo académico no encontrado")
		return
	}
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al obtener el grupo académico", err)
		return
	}
	if d := lessonpolicy.CanCreate(a, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	l, err := academiclessonstore.New(h.DB).Create(ctx, models.AcademicLesson{
		Title:         htmlsanitize.PlainText(req.Title),
		Resume:        htmlsanitize.Sanitize(req.Resume),
		AcademicGroup: g.ID,
		Author:        a.ID,
		Teacher:       g.Teacher,
		Justification: models.Justification{
			Methodology: htmlsanitize.Sanitize(req.Justification.Methodology),
			Objectives:  htmlsanitize.Sanitize(req.Justification.Objectives),
		},
		References:     htmlsanitize.Sanitize(req.References),
		Tags:           tags,
		KnowledgeAreas: cleanList(req.KnowledgeAreas),
		Level:          []string{g.AcademicLevel},
	})
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al crear la lección académica", err)
		return
	}

	if err := groups.AddLesson(ctx, g.ID, l.ID); err != nil {
		h.Log.Warn("group lesson link failed",
			zap.String("group_id", g.ID.Hex()),
			zap.String("lesson_id", l.ID.Hex()),
			zap.Error(err))
	}
	if err := userstore.New(h.DB).IncLessonsCreated(ctx, a.ID, 1); err != nil {
		h.Log.Warn("lessons created counter failed", zap.String("user_id", a.ID.Hex()), zap.Error(err))
	}
	h.refreshStatistics(ctx, g.ID)

	h.Audit.LessonCreated(ctx, r, a.ID, l.ID, g.ID)
	h.publish(ctx, events.NewLessonCreated(l, a.ID))
	h.Log.Info("academic lesson created",
		zap.String("lesson_id", l.ID.Hex()),
		zap.String("group_id", g.ID.Hex()),
		zap.String("author_id", a.ID.Hex()))

	apierr.Success(w, http.StatusCreated, "Lección académica creada", l)
}

// cleanList trims entries and drops blanks and duplicates. nil stays nil.
func cleanList(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
