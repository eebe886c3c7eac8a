package indexes_test

import (
	"testing"

	"github.com/reddinamica/reddinamica/internal/app/system/indexes"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes on %s: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := map[string]bool{}
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if n, ok := idx["name"].(string); ok {
			names[n] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	want := map[string][]string{
		"academic_lessons": {"idx_academic_lessons_group_state", "idx_academic_lessons_team_user"},
		"lessons":          {"uniq_lessons_academic_lesson"},
		"notifications":    {"idx_notifications_user_created"},
	}
	for coll, names := range want {
		got := indexNames(t, db, coll)
		for _, n := range names {
			if !got[n] {
				t.Errorf("%s: missing index %q (have %v)", coll, n, got)
			}
		}
	}
}

func TestEnsureAll_CatalogBackReferenceIsUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	src := primitive.NewObjectID()
	coll := db.Collection("lessons")
	if _, err := coll.InsertOne(ctx, bson.M{"_id": primitive.NewObjectID(), "academicLessonId": src}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := coll.InsertOne(ctx, bson.M{"_id": primitive.NewObjectID(), "academicLessonId": src})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}

	// Catalog lessons that did not come from an export have no back-reference.
	for i := 0; i < 2; i++ {
		if _, err := coll.InsertOne(ctx, bson.M{"_id": primitive.NewObjectID(), "title": "manual"}); err != nil {
			t.Fatalf("insert without back-reference: %v", err)
		}
	}
}
