package knowledgeareastore_test

import (
	"testing"

	"github.com/dalemusser/waffle/pantry/text"
	knowledgeareastore "github.com/reddinamica/reddinamica/internal/app/store/knowledgeareas"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Resolve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := knowledgeareastore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	math, err := store.Create(ctx, "Matemáticas")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	bio, _ := store.Create(ctx, "Biología")

	byName, err := store.IDsByNames(ctx, []string{"MATEMÁTICAS", "Química"})
	if err != nil {
		t.Fatalf("IDsByNames: %v", err)
	}
	if byName[text.Fold("Matemáticas")] != math.ID {
		t.Errorf("case-insensitive lookup failed: %v", byName)
	}
	if len(byName) != 1 {
		t.Errorf("unknown names must be absent: %v", byName)
	}

	exists, err := store.ExistingIDs(ctx, []primitive.ObjectID{bio.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if len(exists) != 1 || !exists[bio.ID] {
		t.Errorf("ExistingIDs: got %v", exists)
	}
}
