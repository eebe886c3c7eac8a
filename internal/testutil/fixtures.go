package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that call handler methods directly.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures creates test data directly in the test database.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, fullName, email, role, "active")
}

// CreateDisabledUser inserts a user with status "disabled".
func (f *Fixtures) CreateDisabledUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, fullName, email, role, "disabled")
}

func (f *Fixtures) insertUser(ctx context.Context, fullName, email, role, status string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Role:       role,
		Status:     status,
		IsStudent:  role == models.RoleStudent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// GroupOption customizes a fixture group before insert.
type GroupOption func(*models.AcademicGroup)

func WithStudents(ids ...primitive.ObjectID) GroupOption {
	return func(g *models.AcademicGroup) { g.Students = append(g.Students, ids...) }
}

func WithPermissions(p models.GroupPermissions) GroupOption {
	return func(g *models.AcademicGroup) { g.Permissions = p }
}

func WithMaxStudents(n int) GroupOption {
	return func(g *models.AcademicGroup) { g.MaxStudents = n }
}

// CreateGroup inserts a Colegio/9° group owned by teacherID with default
// permissions.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, teacherID primitive.ObjectID, opts ...GroupOption) models.AcademicGroup {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.AcademicGroup{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		Teacher:       teacherID,
		Students:      []primitive.ObjectID{},
		AcademicLevel: models.LevelSchool,
		Grade:         "9°",
		MaxStudents:   models.DefaultMaxStudents,
		Subjects:      []string{},
		Lessons:       []primitive.ObjectID{},
		Permissions:   models.DefaultGroupPermissions(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, o := range opts {
		o(&g)
	}
	g.Statistics.TotalStudents = len(g.Students)

	if _, err := f.db.Collection("academic_groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// LessonOption customizes a fixture lesson before insert.
type LessonOption func(*models.AcademicLesson)

func WithState(s lifecycle.State) LessonOption {
	return func(l *models.AcademicLesson) {
		l.State = s
		l.Status = lifecycle.DisplayStatus(s)
	}
}

func WithGrade(g float64) LessonOption {
	return func(l *models.AcademicLesson) { l.Grade = &g }
}

func WithLeader(id primitive.ObjectID) LessonOption {
	return func(l *models.AcademicLesson) {
		l.Leader = id
		l.DevelopmentGroup = append(l.DevelopmentGroup, models.DevelopmentMember{
			User: id, Role: models.MemberRoleLeader, Status: models.MemberStatusAccepted, JoinedAt: time.Now().UTC(),
		})
	}
}

func WithCollaborator(id primitive.ObjectID) LessonOption {
	return func(l *models.AcademicLesson) {
		l.DevelopmentGroup = append(l.DevelopmentGroup, models.DevelopmentMember{
			User: id, Role: models.MemberRoleCollaborator, Status: models.MemberStatusAccepted, JoinedAt: time.Now().UTC(),
		})
	}
}

func WithLessonMutator(fn func(*models.AcademicLesson)) LessonOption {
	return fn
}

// CreateLesson inserts a draft lesson in group authored (and led) by
// authorID, and links it from the group.
func (f *Fixtures) CreateLesson(ctx context.Context, title string, group models.AcademicGroup, authorID primitive.ObjectID, opts ...LessonOption) models.AcademicLesson {
	f.t.Helper()

	now := time.Now().UTC()
	l := models.AcademicLesson{
		ID:             primitive.NewObjectID(),
		Title:          title,
		TitleCI:        text.Fold(title),
		Resume:         "Resumen de prueba",
		AcademicGroup:  group.ID,
		Author:         authorID,
		Teacher:        group.Teacher,
		Leader:         authorID,
		Justification:  models.Justification{Methodology: "Aprendizaje basado en proyectos", Objectives: "Comprender el tema"},
		Tags:           []string{},
		KnowledgeAreas: []string{},
		Level:          []string{group.AcademicLevel},
		State:          lifecycle.Draft,
		Status:         lifecycle.DisplayStatus(lifecycle.Draft),
		DevelopmentGroup: []models.DevelopmentMember{{
			User: authorID, Role: models.MemberRoleLeader, Status: models.MemberStatusAccepted, JoinedAt: now,
		}},
		Files:         []models.LessonFile{},
		Messages:      []models.ChatMessage{},
		Conversations: []models.Conversation{},
		Comments:      []models.LessonComment{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, o := range opts {
		o(&l)
	}

	if _, err := f.db.Collection("academic_lessons").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test lesson: %v", err)
	}
	if _, err := f.db.Collection("academic_groups").UpdateByID(ctx, group.ID,
		map[string]any{"$addToSet": map[string]any{"lessons": l.ID}}); err != nil {
		f.t.Fatalf("failed to link test lesson to group: %v", err)
	}
	return l
}

// CreateKnowledgeArea inserts a catalog knowledge area.
func (f *Fixtures) CreateKnowledgeArea(ctx context.Context, name string) models.KnowledgeArea {
	f.t.Helper()

	ka := models.KnowledgeArea{ID: primitive.NewObjectID(), Name: name, NameCI: text.Fold(name)}
	if _, err := f.db.Collection("knowledge_areas").InsertOne(ctx, ka); err != nil {
		f.t.Fatalf("failed to create knowledge area: %v", err)
	}
	return ka
}
