package notifications_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/features/notifications"
	notificationstore "github.com/reddinamica/reddinamica/internal/app/store/notifications"
	"github.com/reddinamica/reddinamica/internal/app/system/auth"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listData struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

func TestNotifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := zap.NewNop()
	router := notifications.Routes(notifications.NewHandler(db, apierr.NewErrorLogger(logger), logger), auth.RequireSignedIn)
	fixtures := testutil.NewFixtures(t, db)
	ana := fixtures.CreateUser(ctx, "Ana", "ana@rd.co", models.RoleStudent)
	luis := fixtures.CreateUser(ctx, "Luis", "luis@rd.co", models.RoleStudent)

	base := time.Now().UTC().Add(-time.Hour)
	var batch []models.Notification
	for i := 0; i < 55; i++ {
		batch = append(batch, models.Notification{
			User:      ana.ID,
			Type:      models.NotifyLessonStateChanged,
			Title:     fmt.Sprintf("Aviso %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	batch = append(batch, models.Notification{User: luis.ID, Type: models.NotifyGroupJoined, Title: "Grupo"})
	if err := notificationstore.New(db).InsertMany(ctx, batch); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	do := func(method, target string, as models.User) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, method, target, nil, as))
		return rec
	}

	rec := do(http.MethodGet, "/", ana)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var got listData
	testutil.DecodeEnvelope(t, rec, &got)
	if len(got.Notifications) != 50 {
		t.Fatalf("notifications: got %d, want 50", len(got.Notifications))
	}
	if got.Notifications[0].Title != "Aviso 54" {
		t.Errorf("newest first: got %q", got.Notifications[0].Title)
	}
	if got.Unread != 55 {
		t.Errorf("unread: got %d, want 55", got.Unread)
	}

	target := "/" + got.Notifications[0].ID.Hex() + "/read"
	tests := []struct {
		name   string
		target string
		as     models.User
		want   int
	}{
		{"someone else's", target, luis, http.StatusNotFound},
		{"missing", "/" + primitive.NewObjectID().Hex() + "/read", ana, http.StatusNotFound},
		{"malformed", "/nope/read", ana, http.StatusBadRequest},
		{"own", target, ana, http.StatusOK},
		{"already read", target, ana, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertStatus(t, do(http.MethodPost, tt.target, tt.as), tt.want)
		})
	}

	rec = do(http.MethodGet, "/", ana)
	testutil.DecodeEnvelope(t, rec, &got)
	if got.Unread != 54 || !got.Notifications[0].Read {
		t.Errorf("after mark read: unread=%d first.read=%v", got.Unread, got.Notifications[0].Read)
	}

	rec = do(http.MethodGet, "/", luis)
	var other listData
	testutil.DecodeEnvelope(t, rec, &other)
	if len(other.Notifications) != 1 {
		t.Errorf("luis notifications: got %d, want 1", len(other.Notifications))
	}
}
