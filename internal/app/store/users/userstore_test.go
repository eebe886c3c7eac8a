package userstore_test

import (
	"testing"

	userstore "github.com/reddinamica/reddinamica/internal/app/store/users"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName: "  Marta Ruiz ",
		Email:    "Marta@Example.com",
		Role:     models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.FullName != "Marta Ruiz" || created.FullNameCI == "" {
		t.Errorf("name not normalized: %q / %q", created.FullName, created.FullNameCI)
	}
	if !created.IsStudent {
		t.Error("students should carry isStudent")
	}

	got, err := store.GetByEmail(ctx, " marta@EXAMPLE.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail returned %v, want %v", got.ID, created.ID)
	}
}

func TestStore_Create_RejectsUnknownRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{FullName: "X", Email: "x@x.co", Role: "superhero"}); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestStore_IDsByRoles_SkipsDisabled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "Admin", "admin@rd.co", models.RoleAdmin)
	manager := fx.CreateUser(ctx, "Manager", "manager@rd.co", models.RoleLessonManager)
	fx.CreateUser(ctx, "Teacher", "teacher@rd.co", models.RoleTeacher)
	fx.CreateDisabledUser(ctx, "Old Admin", "old@rd.co", models.RoleAdmin)

	ids, err := store.IDsByRoles(ctx, models.StaffRoles)
	if err != nil {
		t.Fatalf("IDsByRoles failed: %v", err)
	}
	got := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		got[id] = true
	}
	if len(got) != 2 || !got[admin.ID] || !got[manager.ID] {
		t.Errorf("unexpected staff ids %v", ids)
	}
}

func TestStore_GroupListsAndCounter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	student := fx.CreateUser(ctx, "Student", "s@rd.co", models.RoleStudent)
	teacher := fx.CreateUser(ctx, "Teacher", "t@rd.co", models.RoleTeacher)
	groupID := primitive.NewObjectID()

	if err := store.AddAcademicGroup(ctx, student.ID, groupID); err != nil {
		t.Fatalf("AddAcademicGroup: %v", err)
	}
	if err := store.AddAcademicGroup(ctx, student.ID, groupID); err != nil {
		t.Fatalf("AddAcademicGroup twice: %v", err)
	}
	if err := store.AddTeachingGroup(ctx, teacher.ID, groupID); err != nil {
		t.Fatalf("AddTeachingGroup: %v", err)
	}
	if err := store.IncLessonsCreated(ctx, student.ID, 1); err != nil {
		t.Fatalf("IncLessonsCreated: %v", err)
	}

	s, _ := store.GetByID(ctx, student.ID)
	if len(s.AcademicGroups) != 1 {
		t.Errorf("academicGroups = %v, want one entry", s.AcademicGroups)
	}
	if s.AcademicStatistics.TotalLessonsCreated != 1 {
		t.Errorf("totalLessonsCreated = %d", s.AcademicStatistics.TotalLessonsCreated)
	}

	if err := store.PullGroupEverywhere(ctx, groupID); err != nil {
		t.Fatalf("PullGroupEverywhere: %v", err)
	}
	s, _ = store.GetByID(ctx, student.ID)
	tch, _ := store.GetByID(ctx, teacher.ID)
	if len(s.AcademicGroups) != 0 || len(tch.TeachingGroups) != 0 {
		t.Errorf("group not pulled: student=%v teacher=%v", s.AcademicGroups, tch.TeachingGroups)
	}
}

func TestFetcher(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	f := userstore.NewFetcher(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	active := fx.CreateUser(ctx, "Active", "a@rd.co", models.RoleTeacher)
	disabled := fx.CreateDisabledUser(ctx, "Gone", "g@rd.co", models.RoleTeacher)

	u := f.FetchUser(ctx, active.ID.Hex())
	if u == nil || u.Role != models.RoleTeacher || u.Name != "Active" {
		t.Fatalf("unexpected user %+v", u)
	}
	if f.FetchUser(ctx, disabled.ID.Hex()) != nil {
		t.Error("disabled user must not authenticate")
	}
	if f.FetchUser(ctx, "not-an-id") != nil {
		t.Error("malformed id must return nil")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("missing user must return nil")
	}
}
