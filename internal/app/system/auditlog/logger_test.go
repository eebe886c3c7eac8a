package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/reddinamica/reddinamica/internal/app/store/audit"
	"github.com/reddinamica/reddinamica/internal/app/system/auditlog"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("POST", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LessonTransition(ctx, req, primitive.NewObjectID(), primitive.NewObjectID(), "approve", "proposed", "in_development")
	logger.LessonExported(ctx, req, nil, primitive.NewObjectID(), primitive.NewObjectID())
}

func TestLogger_LogOnly_DoesNotTouchStore(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	// nil store: "log" must never reach it
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Academic: "log", Admin: "off"})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	lessonID := primitive.NewObjectID()
	logger.LessonTransition(ctx, nil, primitive.NewObjectID(), lessonID, "grade", "completed", "graded")
	logger.LessonExported(ctx, nil, nil, lessonID, primitive.NewObjectID())

	if logs.Len() != 1 {
		t.Fatalf("expected 1 zap entry (admin is off), got %d", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["detail_to"] != "graded" {
		t.Errorf("detail_to = %v", fields["detail_to"])
	}
	if fields["resource_id"] != lessonID.Hex() {
		t.Errorf("resource_id = %v", fields["resource_id"])
	}
}

func TestLogger_DB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Academic: "db", Admin: "off"})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	actor := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/academic-groups", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.9")

	logger.GroupMembership(ctx, req, true, actor, groupID, primitive.NewObjectID())
	logger.StatisticsRecomputed(ctx, req, actor, groupID) // admin: off

	events, err := store.Query(ctx, audit.QueryFilter{ResourceID: &groupID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(events))
	}
	if events[0].EventType != audit.EventStudentAddedToGroup {
		t.Errorf("event type = %q", events[0].EventType)
	}
	if events[0].IP != "10.0.0.9" {
		t.Errorf("ip = %q", events[0].IP)
	}
}
