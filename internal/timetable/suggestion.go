package timetable

import (
	"time"
)

// SuggestionVersion tags the result layout.
const SuggestionVersion = "v1"

const (
	freeSubjectCode  = "-"
	freeSubjectName  = "Free Period"
	breakSubjectName = "Break"
)

// SuggestionCell is one rendered period of a day.
type SuggestionCell struct {
	PeriodNumber int    `json:"periodNumber"`
	SubjectCode  string `json:"subjectCode"`
	SubjectName  string `json:"subjectName"`
	TeacherName  string `json:"teacherName,omitempty"`
	SubjectID    string `json:"subjectId,omitempty"`
	TeacherID    string `json:"teacherId,omitempty"`
	IsBreak      bool   `json:"isBreak"`
}

// Free reports whether no subject occupies the cell.
func (c SuggestionCell) Free() bool {
	return c.SubjectID == ""
}

// SuggestionDay is the ordered set of cells for one weekday.
type SuggestionDay struct {
	Day     Day              `json:"day"`
	DayName string           `json:"dayName"`
	Cells   []SuggestionCell `json:"cells"`
}

// SubjectSummary reports demand coverage per subject.
type SubjectSummary struct {
	SubjectID      string `json:"subjectId"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	TeacherID      string `json:"teacherId"`
	TeacherName    string `json:"teacherName"`
	PeriodsPerWeek int    `json:"periodsPerWeek"`
	Placed         int    `json:"placed"`
	Remaining      int    `json:"remaining"`
}

// SuggestionSlot is a flattened cell, convenient for persistence.
type SuggestionSlot struct {
	Day Day `json:"day"`
	SuggestionCell
}

// SuggestionResult is the immutable outcome of one solve.
type SuggestionResult struct {
	Version             string           `json:"version"`
	ClassID             string           `json:"classId"`
	Strategy            Strategy         `json:"strategy"`
	GeneratedAt         time.Time        `json:"generatedAt"`
	Days                []SuggestionDay  `json:"days"`
	OptimizationScore   float64          `json:"optimizationScore"`
	ConflictsResolved   int              `json:"conflictsResolved"`
	UnmetSubjectPeriods int              `json:"unmetSubjectPeriods"`
	FilledPeriods       int              `json:"filledPeriods"`
	FreePeriods         int              `json:"freePeriods"`
	Subjects            []SubjectSummary `json:"subjects"`
	Violations          []Violation      `json:"violations"`
	Metrics             QualityMetrics   `json:"metrics"`
}

// HasHardViolations reports whether the result breaks any hard or severe rule.
func (r *SuggestionResult) HasHardViolations() bool {
	for _, v := range r.Violations {
		if v.Severity != SeverityAdvisory {
			return true
		}
	}
	return false
}

// CountViolations returns how many violations of the given kind were reported.
func (r *SuggestionResult) CountViolations(kind string) int {
	count := 0
	for _, v := range r.Violations {
		if v.Kind == kind {
			count++
		}
	}
	return count
}

// Slots flattens every non-break cell, day-major.
func (r *SuggestionResult) Slots() []SuggestionSlot {
	var out []SuggestionSlot
	for _, day := range r.Days {
		for _, cell := range day.Cells {
			if cell.IsBreak {
				continue
			}
			out = append(out, SuggestionSlot{Day: day.Day, SuggestionCell: cell})
		}
	}
	return out
}

// Assemble renders a solved grid into a SuggestionResult.
func Assemble(classID string, strategy Strategy, g *Grid, report Report, generatedAt time.Time) *SuggestionResult {
	result := &SuggestionResult{
		Version:             SuggestionVersion,
		ClassID:             classID,
		Strategy:            strategy,
		GeneratedAt:         generatedAt.UTC(),
		OptimizationScore:   report.Score,
		UnmetSubjectPeriods: report.Metrics.Unmet,
		FilledPeriods:       report.Metrics.Filled,
		FreePeriods:         report.Metrics.Assignable - report.Metrics.Filled,
		Violations:          append([]Violation{}, report.Violations...),
		Metrics:             report.Metrics,
	}
	if result.FreePeriods < 0 {
		result.FreePeriods = 0
	}

	names := make(map[string]*SubjectRequirement, len(g.reqs))
	for _, req := range g.reqs {
		names[req.SubjectID] = req
	}

	for _, day := range g.days {
		row := SuggestionDay{Day: day, DayName: day.String(), Cells: make([]SuggestionCell, 0, len(g.periods))}
		for _, period := range g.periods {
			cell := SuggestionCell{PeriodNumber: period.Number, SubjectCode: freeSubjectCode, SubjectName: freeSubjectName}
			if period.IsBreak {
				cell.SubjectName = breakSubjectName
				cell.IsBreak = true
			} else if placement, ok := g.At(day, period.Number); ok {
				req := names[placement.SubjectID]
				cell.SubjectID = req.SubjectID
				cell.SubjectCode = req.Code
				cell.SubjectName = req.Name
				cell.TeacherID = req.TeacherID
				cell.TeacherName = req.TeacherName
			}
			row.Cells = append(row.Cells, cell)
		}
		result.Days = append(result.Days, row)
	}

	placed := make(map[string]int)
	for _, cell := range g.Placements() {
		placed[cell.SubjectID]++
	}
	for _, req := range g.reqs {
		remaining := req.PeriodsPerWeek - placed[req.SubjectID]
		if remaining < 0 {
			remaining = 0
		}
		result.Subjects = append(result.Subjects, SubjectSummary{
			SubjectID:      req.SubjectID,
			Code:           req.Code,
			Name:           req.Name,
			TeacherID:      req.TeacherID,
			TeacherName:    req.TeacherName,
			PeriodsPerWeek: req.PeriodsPerWeek,
			Placed:         placed[req.SubjectID],
			Remaining:      remaining,
		})
	}

	result.ConflictsResolved = conflictsAvoided(g)
	return result
}

// conflictsAvoided counts bookings of this grid's teachers that fall inside the grid's
// assignable slots and were left untouched by the result.
func conflictsAvoided(g *Grid) int {
	teachers := make(map[string]struct{}, len(g.reqs))
	for _, req := range g.reqs {
		teachers[req.TeacherID] = struct{}{}
	}
	count := 0
	for _, entry := range g.busy.Entries() {
		if _, ok := teachers[entry.TeacherID]; !ok {
			continue
		}
		if _, ok := g.dayIndex[entry.Day]; !ok {
			continue
		}
		if !g.known[entry.Period] || g.breaks[entry.Period] {
			continue
		}
		if placement, ok := g.At(entry.Day, entry.Period); ok && placement.TeacherID == entry.TeacherID {
			continue
		}
		count++
	}
	return count
}
