package notificationstore_test

import (
	"errors"
	"testing"
	"time"

	notificationstore "github.com/reddinamica/reddinamica/internal/app/store/notifications"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_InsertListMarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	err := store.InsertMany(ctx, []models.Notification{
		{User: alice, Type: models.NotifyLessonProposed, Title: "uno", CreatedAt: base},
		{User: alice, Type: models.NotifyLessonApproved, Title: "dos", CreatedAt: base.Add(time.Minute)},
		{User: bob, Type: models.NotifyLessonApproved, Title: "tres"},
	})
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	list, err := store.ListForUser(ctx, alice, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 2 || list[0].Title != "dos" || list[1].Title != "uno" {
		t.Fatalf("alice notifications newest first: got %+v", list)
	}

	if err := store.MarkRead(ctx, list[0].ID, bob); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("marking someone else's notification: got %v, want ErrNoDocuments", err)
	}
	if err := store.MarkRead(ctx, list[0].ID, alice); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, err := store.CountUnread(ctx, alice)
	if err != nil || unread != 1 {
		t.Errorf("CountUnread: got %d err=%v, want 1", unread, err)
	}

	limited, _ := store.ListForUser(ctx, alice, 1)
	if len(limited) != 1 {
		t.Errorf("limit 1: got %d", len(limited))
	}
}

func TestStore_InsertMany_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.InsertMany(ctx, nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}
