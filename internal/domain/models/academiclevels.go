package models

// Academic levels a group can be created for.
const (
	LevelSchool     = "Colegio"
	LevelUniversity = "Universidad"
)

var validGrades = map[string][]string{
	LevelSchool:     {"6°", "7°", "8°", "9°", "10°", "11°"},
	LevelUniversity: {
		"Semestre 1", "Semestre 2", "Semestre 3", "Semestre 4", "Semestre 5",
		"Semestre 6", "Semestre 7", "Semestre 8", "Semestre 9", "Semestre 10",
	},
}

// AcademicLevels returns the supported academic levels in display order.
func AcademicLevels() []string {
	return []string{LevelSchool, LevelUniversity}
}

// ValidGrades returns the grades accepted for the given academic level.
// Unknown levels return nil.
func ValidGrades(level string) []string {
	g := validGrades[level]
	if g == nil {
		return nil
	}
	out := make([]string, len(g))
	copy(out, g)
	return out
}

// IsValidGrade reports whether grade belongs to the valid set for level.
func IsValidGrade(level, grade string) bool {
	for _, g := range validGrades[level] {
		if g == grade {
			return true
		}
	}
	return false
}
