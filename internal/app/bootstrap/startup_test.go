package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reddinamica/reddinamica/internal/app/system/auth"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const testSecret = "bootstrap-test-secret-0123456789abcdef"

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "reddinamica_test",
		JWTSecret:          testSecret,
		JWTIssuer:          "reddinamica",
		DirectoryCacheTTL:  time.Minute,
		NotifyWorkers:      2,
		EditWindow:         30 * time.Minute,
		PostsPerWindow:     30,
		PostWindow:         time.Minute,
		ReconcileSchedule:  "@every 15m",
		ExportPendingGrace: 5 * time.Minute,
		AuditLogAcademic:   "all",
		AuditLogAdmin:      "all",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid dev config", env: "dev"},
		{name: "valid prod config", env: "prod"},
		{name: "bad mongo uri", env: "dev", mutate: func(c *AppConfig) { c.MongoURI = "postgres://x" }, wantErr: "MongoDB URI"},
		{name: "empty database", env: "dev", mutate: func(c *AppConfig) { c.MongoDatabase = " " }, wantErr: "mongo_database"},
		{name: "empty secret", env: "dev", mutate: func(c *AppConfig) { c.JWTSecret = "" }, wantErr: "jwt_secret"},
		{name: "dev default secret in prod", env: "prod", mutate: func(c *AppConfig) { c.JWTSecret = devJWTSecret }, wantErr: "development default"},
		{name: "short secret in prod", env: "prod", mutate: func(c *AppConfig) { c.JWTSecret = "short" }, wantErr: "at least"},
		{name: "short secret in dev", env: "dev", mutate: func(c *AppConfig) { c.JWTSecret = "short" }},
		{name: "bad cron spec", env: "dev", mutate: func(c *AppConfig) { c.ReconcileSchedule = "every now and then" }, wantErr: "reconcile_schedule"},
		{name: "scheduler disabled", env: "dev", mutate: func(c *AppConfig) { c.ReconcileSchedule = "" }},
		{name: "zero edit window", env: "dev", mutate: func(c *AppConfig) { c.EditWindow = 0 }, wantErr: "edit_window"},
		{name: "zero posting limit", env: "dev", mutate: func(c *AppConfig) { c.PostsPerWindow = 0 }, wantErr: "posts_per_window"},
		{name: "unknown audit mode", env: "dev", mutate: func(c *AppConfig) { c.AuditLogAdmin = "sometimes" }, wantErr: "audit_log_admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

// testServer wires the services against a test database and returns the
// root handler.
func testServer(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	cfg := validAppConfig()
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	svc, err := newServices(cfg, deps, prometheus.NewRegistry(), testLogger())
	if err != nil {
		t.Fatalf("newServices: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Bus.Close()
		svc.Posting.Stop()
	})
	deps.Services = svc

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	return h, testutil.NewFixtures(t, db)
}

func bearer(t *testing.T, u models.User) string {
	t.Helper()
	now := time.Now()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: u.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "reddinamica",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + tok
}

func TestBuildHandler_RequiresServices(t *testing.T) {
	if _, err := BuildHandler(&config.CoreConfig{}, validAppConfig(), DBDeps{}, testLogger()); err == nil {
		t.Fatal("expected an error without services")
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	h, fixtures := testServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateUser(ctx, "Docente", "docente@rd.co", models.RoleTeacher)
	disabled := fixtures.CreateDisabledUser(ctx, "Inactivo", "inactivo@rd.co", models.RoleTeacher)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", "", http.StatusOK},
		{"groups need a token", http.MethodGet, "/academic-groups", "", http.StatusUnauthorized},
		{"lessons need a token", http.MethodPost, "/academic-lessons", "", http.StatusUnauthorized},
		{"notifications need a token", http.MethodGet, "/notifications", "", http.StatusUnauthorized},
		{"export needs a token", http.MethodPost, "/admin/tasks/lecciones/abc/mover-a-reddinamica", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/academic-groups", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"disabled user", http.MethodGet, "/academic-groups", bearer(t, disabled), http.StatusUnauthorized},
		{"signed in teacher lists groups", http.MethodGet, "/academic-groups", bearer(t, teacher), http.StatusOK},
		{"signed in teacher lists notifications", http.MethodGet, "/notifications", bearer(t, teacher), http.StatusOK},
		{"teacher may not export", http.MethodPost, "/admin/tasks/lecciones/" + teacher.ID.Hex() + "/mover-a-reddinamica", bearer(t, teacher), http.StatusForbidden},
		{"unknown route", http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
}

func TestBuildHandler_LessonCreateNotifiesTeacherAsync(t *testing.T) {
	h, fixtures := testServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateUser(ctx, "Docente", "docente@rd.co", models.RoleTeacher)
	ana := fixtures.CreateUser(ctx, "Ana", "ana@rd.co", models.RoleStudent)
	group := fixtures.CreateGroup(ctx, "Noveno A", teacher.ID, testutil.WithStudents(ana.ID))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/academic-lessons", map[string]any{
		"title":         "Fotosíntesis",
		"academicGroup": group.ID.Hex(),
	})
	req.Header.Set("Authorization", bearer(t, ana))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	testutil.AssertStatus(t, rec, http.StatusCreated)

	// The dispatcher runs on the async bus; poll for its write.
	coll := fixtures.DB().Collection("notifications")
	deadline := time.Now().Add(3 * time.Second)
	for {
		n, err := coll.CountDocuments(ctx, bson.M{"user": teacher.ID})
		if err != nil {
			t.Fatalf("count notifications: %v", err)
		}
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("teacher notifications: got %d, want 1", n)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if n, _ := coll.CountDocuments(ctx, bson.M{"user": ana.ID}); n != 0 {
		t.Errorf("the author should not be notified of their own lesson, got %d", n)
	}
}
