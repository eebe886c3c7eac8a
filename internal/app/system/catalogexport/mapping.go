package catalogexport

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Catalog level labels.
const (
	CatalogSecondary  = "Secundaria"
	CatalogHighSchool = "Bachillerato"
	CatalogUniversity = "Universitario"
)

var levelMap = map[string][]string{
	models.LevelSchool:     {CatalogSecondary, CatalogHighSchool},
	models.LevelUniversity: {CatalogUniversity},
}

// MapLevels translates academic levels into catalog levels. Unknown labels
// pass through; the result has no duplicates and keeps first-seen order.
func MapLevels(levels []string) []string {
	out := make([]string, 0, len(levels)*2)
	seen := make(map[string]bool)
	for _, lv := range levels {
		mapped, ok := levelMap[lv]
		if !ok {
			mapped = []string{lv}
		}
		for _, m := range mapped {
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// MapFiles converts lesson files to the catalog file shape, stamping
// created_at with now.
func MapFiles(files []models.LessonFile, now time.Time) []models.CatalogFile {
	out := make([]models.CatalogFile, 0, len(files))
	for _, f := range files {
		out = append(out, models.CatalogFile{
			FileName:     f.Name,
			OriginalName: f.OriginalName,
			FilePath:     f.Path,
			Size:         f.Size,
			MimeType:     f.MimeType,
			UploadedBy:   f.UploadedBy,
			CreatedAt:    now,
		})
	}
	return out
}

// FlattenJustification joins methodology and objectives into one text
// block. Empty parts are omitted.
func FlattenJustification(j models.Justification) string {
	var parts []string
	if s := strings.TrimSpace(j.Methodology); s != "" {
		parts = append(parts, "Metodología: "+s)
	}
	if s := strings.TrimSpace(j.Objectives); s != "" {
		parts = append(parts, "Objetivos: "+s)
	}
	return strings.Join(parts, "\n\n")
}

// AreaResolver looks knowledge areas up by id and by name.
type AreaResolver interface {
	ExistingIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	IDsByNames(ctx context.Context, names []string) (map[string]primitive.ObjectID, error)
}

// ResolveKnowledgeAreas turns a mix of hex ids and names into area ids.
// Ids that exist are kept, names are matched case-insensitively, and
// anything unresolved is dropped. Order follows the input without
// duplicates.
func ResolveKnowledgeAreas(ctx context.Context, r AreaResolver, entries []string) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	var names []string
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if id, err := primitive.ObjectIDFromHex(e); err == nil {
			ids = append(ids, id)
		} else {
			names = append(names, e)
		}
	}

	existing, err := r.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byName, err := r.IDsByNames(ctx, names)
	if err != nil {
		return nil, err
	}

	out := make([]primitive.ObjectID, 0, len(entries))
	seen := make(map[primitive.ObjectID]bool)
	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if id, err := primitive.ObjectIDFromHex(e); err == nil {
			if existing[id] {
				add(id)
			}
			continue
		}
		// A 24-char hex name that is not a real area is never looked up by name.
		if id, ok := byName[text.Fold(e)]; ok {
			add(id)
		}
	}
	return out, nil
}

// BuildCatalogLesson maps an academic lesson onto its catalog entry. The
// group teacher becomes the catalog expert.
func BuildCatalogLesson(l models.AcademicLesson, catalogID primitive.ObjectID, areas []primitive.ObjectID, now time.Time) models.Lesson {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	if areas == nil {
		areas = []primitive.ObjectID{}
	}
	return models.Lesson{
		ID:               catalogID,
		Title:            l.Title,
		Resume:           l.Resume,
		References:       l.References,
		Justification:    FlattenJustification(l.Justification),
		Level:            MapLevels(l.Level),
		State:            "completed",
		Type:             models.LessonTypeAcademic,
		Author:           l.Author,
		Leader:           l.Leader,
		Expert:           l.Teacher,
		KnowledgeArea:    areas,
		Tags:             tags,
		Files:            MapFiles(l.Files, now),
		AcademicLessonID: l.ID,
		Visible:          true,
		Accepted:         true,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
