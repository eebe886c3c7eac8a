package academicgroups

import "github.com/reddinamica/reddinamica/internal/domain/models"

type createGroupRequest struct {
	Name          string   `json:"name" validate:"required,notblank,max=120"`
	Description   string   `json:"description" validate:"max=2000"`
	AcademicLevel string   `json:"academicLevel" validate:"required,oneof=Colegio Universidad"`
	Grade         string   `json:"grade" validate:"required"`
	MaxStudents   int      `json:"maxStudents" validate:"omitempty,min=1,max=500"`
	Subjects      []string `json:"subjects"`
}

type updateGroupRequest struct {
	Name          *string  `json:"name" validate:"omitempty,notblank,max=120"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	AcademicLevel *string  `json:"academicLevel" validate:"omitempty,oneof=Colegio Universidad"`
	Grade         *string  `json:"grade"`
	MaxStudents   *int     `json:"maxStudents" validate:"omitempty,min=1,max=500"`
	Subjects      []string `json:"subjects"`
}

type permissionsRequest struct {
	StudentsCanCreateLessons  *bool `json:"studentsCanCreateLessons"`
	StudentsCanEditLessons    *bool `json:"studentsCanEditLessons"`
	StudentsCanDeleteLessons  *bool `json:"studentsCanDeleteLessons"`
	StudentsCanViewAllLessons *bool `json:"studentsCanViewAllLessons"`
}

// apply overlays the set flags on p.
func (req permissionsRequest) apply(p models.GroupPermissions) models.GroupPermissions {
	if req.StudentsCanCreateLessons != nil {
		p.StudentsCanCreateLessons = *req.StudentsCanCreateLessons
	}
	if req.StudentsCanEditLessons != nil {
		p.StudentsCanEditLessons = *req.StudentsCanEditLessons
	}
	if req.StudentsCanDeleteLessons != nil {
		p.StudentsCanDeleteLessons = *req.StudentsCanDeleteLessons
	}
	if req.StudentsCanViewAllLessons != nil {
		p.StudentsCanViewAllLessons = *req.StudentsCanViewAllLessons
	}
	return p
}

func invalidGradeMessage(level string) string {
	return "El grado no es válido para el nivel académico " + level
}

func cleanSubjects(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = trimmed(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
