package catalogexport

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMapLevels(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"school expands", []string{"Colegio"}, []string{"Secundaria", "Bachillerato"}},
		{"university", []string{"Universidad"}, []string{"Universitario"}},
		{"passthrough", []string{"Técnico"}, []string{"Técnico"}},
		{"dedup keeps order", []string{"Bachillerato", "Colegio", "Universidad", "Colegio"}, []string{"Bachillerato", "Secundaria", "Universitario"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapLevels(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MapLevels(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFlattenJustification(t *testing.T) {
	tests := []struct {
		in   models.Justification
		want string
	}{
		{models.Justification{Methodology: "Proyectos", Objectives: "Comprender fracciones"}, "Metodología: Proyectos\n\nObjetivos: Comprender fracciones"},
		{models.Justification{Objectives: " Leer "}, "Objetivos: Leer"},
		{models.Justification{}, ""},
	}
	for _, tt := range tests {
		if got := FlattenJustification(tt.in); got != tt.want {
			t.Errorf("FlattenJustification(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapFiles(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	uploader := primitive.NewObjectID()
	got := MapFiles([]models.LessonFile{{
		ID: primitive.NewObjectID(), Name: "guia-123.pdf", OriginalName: "guia.pdf",
		Path: "uploads/guia-123.pdf", Size: 2048, MimeType: "application/pdf", UploadedBy: uploader,
	}}, now)

	want := []models.CatalogFile{{
		FileName: "guia-123.pdf", OriginalName: "guia.pdf", FilePath: "uploads/guia-123.pdf",
		Size: 2048, MimeType: "application/pdf", UploadedBy: uploader, CreatedAt: now,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MapFiles = %+v, want %+v", got, want)
	}
}

type fakeAreas struct {
	ids   map[primitive.ObjectID]bool
	names map[string]primitive.ObjectID
}

func (f fakeAreas) ExistingIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	out := make(map[primitive.ObjectID]bool)
	for _, id := range ids {
		if f.ids[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f fakeAreas) IDsByNames(_ context.Context, names []string) (map[string]primitive.ObjectID, error) {
	out := make(map[string]primitive.ObjectID)
	for _, n := range names {
		if id, ok := f.names[text.Fold(n)]; ok {
			out[text.Fold(n)] = id
		}
	}
	return out, nil
}

func TestResolveKnowledgeAreas(t *testing.T) {
	math := primitive.NewObjectID()
	science := primitive.NewObjectID()
	ghost := primitive.NewObjectID()
	r := fakeAreas{
		ids:   map[primitive.ObjectID]bool{math: true, science: true},
		names: map[string]primitive.ObjectID{text.Fold("Ciencias"): science},
	}

	got, err := ResolveKnowledgeAreas(context.Background(), r,
		[]string{math.Hex(), "CIENCIAS", "Astrología", ghost.Hex(), " ", science.Hex()})
	if err != nil {
		t.Fatalf("ResolveKnowledgeAreas: %v", err)
	}
	want := []primitive.ObjectID{math, science}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildCatalogLesson(t *testing.T) {
	now := time.Now().UTC()
	l := models.AcademicLesson{
		ID:      primitive.NewObjectID(),
		Title:   "Fracciones",
		Author:  primitive.NewObjectID(),
		Leader:  primitive.NewObjectID(),
		Teacher: primitive.NewObjectID(),
		Level:   []string{models.LevelSchool},
	}
	catalogID := primitive.NewObjectID()

	c := BuildCatalogLesson(l, catalogID, nil, now)
	if c.ID != catalogID || c.AcademicLessonID != l.ID {
		t.Errorf("ids: got %v / %v", c.ID, c.AcademicLessonID)
	}
	if c.Expert != l.Teacher || c.Author != l.Author || c.Leader != l.Leader {
		t.Error("roles were not remapped")
	}
	if c.State != "completed" || c.Type != models.LessonTypeAcademic || !c.Visible || !c.Accepted || c.Version != 1 {
		t.Errorf("catalog flags: %+v", c)
	}
	if !reflect.DeepEqual(c.Level, []string{"Secundaria", "Bachillerato"}) {
		t.Errorf("level: got %v", c.Level)
	}
	if c.Tags == nil || c.KnowledgeArea == nil || c.Files == nil {
		t.Error("lists should be empty, not nil")
	}
}
