package timetable

import (
	"sort"
	"strings"
)

// CatalogRow is one subject-teacher-credit row supplied by the catalog collaborator.
type CatalogRow struct {
	SubjectID      string `json:"subjectId"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Credits        int    `json:"credits"`
	PeriodsPerWeek int    `json:"periodsPerWeek"`
	TeacherID      string `json:"teacherId"`
	TeacherName    string `json:"teacherName"`
}

// SubjectRequirement is the weekly demand of one subject bound to its teacher.
// Remaining counts down as the grid places periods; Surplus counts placements
// made after the demand was already met.
type SubjectRequirement struct {
	SubjectID      string
	Code           string
	Name           string
	Credits        int
	PeriodsPerWeek int
	Remaining      int
	Surplus        int
	TeacherID      string
	TeacherName    string
	DailyCap       int
}

// Placed returns how many periods of this subject currently sit on the grid.
func (r *SubjectRequirement) Placed() int {
	return r.PeriodsPerWeek - r.Remaining + r.Surplus
}

// BuildRequirements converts catalog rows into fresh requirements, one per subject.
// The result is sorted by subject id so downstream ordering never depends on map iteration.
func BuildRequirements(rows []CatalogRow, days int, limits ConstraintLimits) ([]SubjectRequirement, error) {
	if len(rows) == 0 {
		return nil, inputError("catalog", "no subject rows supplied")
	}
	seen := make(map[string]struct{}, len(rows))
	reqs := make([]SubjectRequirement, 0, len(rows))
	for i, row := range rows {
		subjectID := strings.TrimSpace(row.SubjectID)
		teacherID := strings.TrimSpace(row.TeacherID)
		if subjectID == "" {
			return nil, inputError("catalog", "row %d has no subject id", i)
		}
		if teacherID == "" {
			return nil, inputError("catalog", "subject %s has no teacher", subjectID)
		}
		if row.PeriodsPerWeek < 1 {
			return nil, inputError("catalog", "subject %s periodsPerWeek must be > 0", subjectID)
		}
		if row.Credits < 0 {
			return nil, inputError("catalog", "subject %s credits must be >= 0", subjectID)
		}
		if _, dup := seen[subjectID]; dup {
			return nil, inputError("catalog", "subject %s listed twice", subjectID)
		}
		seen[subjectID] = struct{}{}

		code := row.Code
		if code == "" {
			code = subjectID
		}
		name := row.Name
		if name == "" {
			name = code
		}
		reqs = append(reqs, SubjectRequirement{
			SubjectID:      subjectID,
			Code:           code,
			Name:           name,
			Credits:        row.Credits,
			PeriodsPerWeek: row.PeriodsPerWeek,
			Remaining:      row.PeriodsPerWeek,
			TeacherID:      teacherID,
			TeacherName:    row.TeacherName,
			DailyCap:       SubjectDailyCap(row.Credits, row.PeriodsPerWeek, days, limits),
		})
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].SubjectID < reqs[j].SubjectID })
	return reqs, nil
}

func totalDemand(reqs []*SubjectRequirement) int {
	total := 0
	for _, req := range reqs {
		total += req.PeriodsPerWeek
	}
	return total
}
