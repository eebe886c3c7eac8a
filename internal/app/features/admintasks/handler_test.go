package admintasks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reddinamica/reddinamica/internal/app/features/admintasks"
	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/system/auth"
	"github.com/reddinamica/reddinamica/internal/app/system/catalogexport"
	"github.com/reddinamica/reddinamica/internal/app/system/indexes"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestExport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	logger := zap.NewNop()
	h := admintasks.NewHandler(catalogexport.New(db, nil, nil, nil, logger), apierr.NewErrorLogger(logger), logger)
	router := admintasks.Routes(h, auth.RequireSignedIn)
	fixtures := testutil.NewFixtures(t, db)

	manager := fixtures.CreateUser(ctx, "Gestor", "gestor@rd.co", models.RoleLessonManager)
	delegated := fixtures.CreateUser(ctx, "Delegado", "delegado@rd.co", models.RoleDelegatedAdmin)
	teacher := fixtures.CreateUser(ctx, "Docente", "docente@rd.co", models.RoleTeacher)
	student := fixtures.CreateUser(ctx, "Ana", "ana@rd.co", models.RoleStudent)
	group := fixtures.CreateGroup(ctx, "Noveno", teacher.ID, testutil.WithStudents(student.ID))

	ready := fixtures.CreateLesson(ctx, "Lista", group, student.ID, testutil.WithState(lifecycle.ReadyForMigration), testutil.WithGrade(4.5))
	graded := fixtures.CreateLesson(ctx, "Calificada", group, student.ID, testutil.WithState(lifecycle.Graded), testutil.WithGrade(4))

	post := func(id string, as models.User) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, http.MethodPost, "/lecciones/"+id+"/mover-a-reddinamica", nil, as))
		return rec
	}

	tests := []struct {
		name string
		id   string
		as   models.User
		want int
	}{
		{"teacher is not staff", ready.ID.Hex(), teacher, http.StatusForbidden},
		{"student", ready.ID.Hex(), student, http.StatusForbidden},
		{"not ready", graded.ID.Hex(), manager, http.StatusBadRequest},
		{"missing lesson", primitive.NewObjectID().Hex(), manager, http.StatusNotFound},
		{"malformed id", "xyz", manager, http.StatusBadRequest},
		{"lesson manager exports", ready.ID.Hex(), manager, http.StatusCreated},
		{"second export", ready.ID.Hex(), delegated, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(tt.id, tt.as)
			testutil.AssertStatus(t, rec, tt.want)
			if tt.want != http.StatusCreated {
				return
			}
			var c models.Lesson
			testutil.DecodeEnvelope(t, rec, &c)
			if c.AcademicLessonID != ready.ID || c.Expert != teacher.ID || c.Title != "Lista" {
				t.Errorf("catalog lesson: %+v", c)
			}
		})
	}
}

type stubExporter struct {
	err error
}

func (s stubExporter) Export(context.Context, primitive.ObjectID, primitive.ObjectID) (catalogexport.Result, error) {
	return catalogexport.Result{}, s.err
}

func TestExport_ConflictAndFailure(t *testing.T) {
	admin := models.User{ID: primitive.NewObjectID(), FullName: "Admin", Email: "admin@rd.co", Role: models.RoleAdmin}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"claim conflict", catalogexport.ErrConflict, http.StatusConflict},
		{"store failure", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zap.NewNop()
			h := admintasks.NewHandler(stubExporter{err: tt.err}, apierr.NewErrorLogger(logger), logger)
			rec := httptest.NewRecorder()
			req := testutil.NewAuthenticatedRequest(t, http.MethodPost, "/lecciones/"+primitive.NewObjectID().Hex()+"/mover-a-reddinamica", nil, admin)
			admintasks.Routes(h, auth.RequireSignedIn).ServeHTTP(rec, req)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
}
