package timetable

import (
	"fmt"
	"math"
	"sort"
)

// Severity grades a violation.
type Severity string

const (
	SeveritySevere   Severity = "severe"
	SeverityHard     Severity = "hard"
	SeverityAdvisory Severity = "advisory"
)

// Violation kinds reported by Validate.
const (
	ViolationBusyConflict       = "busy_conflict"
	ViolationConsecutiveOverrun = "consecutive_overrun"
	ViolationDailyLoadOverrun   = "daily_load_overrun"
	ViolationSubjectDailyCap    = "subject_daily_cap"
	ViolationBreakPlacement     = "break_placement"
)

// Score weights. Components sum to 100 before penalties.
const (
	weightUtilization  = 50.0
	weightEvenness     = 20.0
	weightFairness     = 10.0
	weightSatisfaction = 20.0

	penaltySevere   = 25.0
	penaltyHard     = 10.0
	penaltyAdvisory = 1.0
)

// Violation is a non-fatal constraint breach found in a completed grid.
type Violation struct {
	Kind      string   `json:"kind"`
	Severity  Severity `json:"severity"`
	Day       Day      `json:"day"`
	Period    int      `json:"period"`
	TeacherID string   `json:"teacherId,omitempty"`
	SubjectID string   `json:"subjectId,omitempty"`
	Message   string   `json:"message"`
}

// QualityMetrics breaks the score down into its components.
type QualityMetrics struct {
	Filled       int     `json:"filled"`
	Assignable   int     `json:"assignable"`
	Demand       int     `json:"demand"`
	Unmet        int     `json:"unmet"`
	Surplus      int     `json:"surplus"`
	Utilization  float64 `json:"utilization"`
	Evenness     float64 `json:"evenness"`
	Fairness     float64 `json:"fairness"`
	Satisfaction float64 `json:"satisfaction"`
	Penalty      float64 `json:"penalty"`
}

// Report is the outcome of validating a grid.
type Report struct {
	Score      float64        `json:"score"`
	Violations []Violation    `json:"violations"`
	Metrics    QualityMetrics `json:"metrics"`
}

// HardCount returns the number of severe and hard violations.
func (r Report) HardCount() int {
	count := 0
	for _, v := range r.Violations {
		if v.Severity != SeverityAdvisory {
			count++
		}
	}
	return count
}

// Valid reports whether no severe or hard violation was found.
func (r Report) Valid() bool {
	return r.HardCount() == 0
}

// CountByKind tallies violations per kind.
func (r Report) CountByKind() map[string]int {
	out := make(map[string]int)
	for _, v := range r.Violations {
		out[v.Kind]++
	}
	return out
}

// Validate re-checks a grid from its cell contents alone, independent of the solver
// and of the grid's incremental counters, and scores it. The score is the same
// number used as genetic fitness and as the acceptance gate.
func Validate(g *Grid) Report {
	cells := g.Placements()
	limits := g.limits
	var violations []Violation

	teacherDays := make(map[teacherDay][]int)
	subjectDays := make(map[subjectDay]int)
	placed := make(map[string]int)
	perDay := make(map[Day]int)

	for _, cell := range cells {
		idx := g.reqIndex[cell.SubjectID]
		req := g.reqs[idx]
		if g.breaks[cell.Period] {
			violations = append(violations, Violation{
				Kind: ViolationBreakPlacement, Severity: SeveritySevere,
				Day: cell.Day, Period: cell.Period, TeacherID: cell.TeacherID, SubjectID: cell.SubjectID,
				Message: fmt.Sprintf("%s placed in break period %d on %s", req.Code, cell.Period, cell.Day),
			})
		}
		if g.busy.Contains(cell.TeacherID, cell.Day, cell.Period) {
			violations = append(violations, Violation{
				Kind: ViolationBusyConflict, Severity: SeverityHard,
				Day: cell.Day, Period: cell.Period, TeacherID: cell.TeacherID, SubjectID: cell.SubjectID,
				Message: fmt.Sprintf("teacher %s already booked on %s period %d", cell.TeacherID, cell.Day, cell.Period),
			})
		}
		td := teacherDay{teacher: cell.TeacherID, day: cell.Day}
		teacherDays[td] = append(teacherDays[td], cell.Period)
		subjectDays[subjectDay{subject: idx, day: cell.Day}]++
		placed[cell.SubjectID]++
		perDay[cell.Day]++
	}

	tds := make([]teacherDay, 0, len(teacherDays))
	for td := range teacherDays {
		tds = append(tds, td)
	}
	sort.Slice(tds, func(i, j int) bool {
		if tds[i].teacher != tds[j].teacher {
			return tds[i].teacher < tds[j].teacher
		}
		return tds[i].day < tds[j].day
	})

	underCap := 0
	for _, td := range tds {
		periods := teacherDays[td]
		sort.Ints(periods)
		if len(periods) > limits.MaxDailyLoad {
			violations = append(violations, Violation{
				Kind: ViolationDailyLoadOverrun, Severity: SeverityHard,
				Day: td.day, Period: periods[len(periods)-1], TeacherID: td.teacher,
				Message: fmt.Sprintf("teacher %s teaches %d periods on %s (max %d)", td.teacher, len(periods), td.day, limits.MaxDailyLoad),
			})
		}
		longest := 0
		for _, run := range contiguousRuns(periods) {
			if run.length > longest {
				longest = run.length
			}
			if run.length > limits.MaxConsecutive {
				violations = append(violations, Violation{
					Kind: ViolationConsecutiveOverrun, Severity: SeverityHard,
					Day: td.day, Period: run.start, TeacherID: td.teacher,
					Message: fmt.Sprintf("teacher %s runs %d consecutive periods from %d on %s (max %d)", td.teacher, run.length, run.start, td.day, limits.MaxConsecutive),
				})
			}
		}
		if longest < limits.MaxConsecutive || (limits.MaxConsecutive == 1 && longest <= 1) {
			underCap++
		}
	}

	for _, day := range g.days {
		for idx, req := range g.reqs {
			count := subjectDays[subjectDay{subject: idx, day: day}]
			if count > req.DailyCap {
				violations = append(violations, Violation{
					Kind: ViolationSubjectDailyCap, Severity: SeverityAdvisory,
					Day: day, SubjectID: req.SubjectID, TeacherID: req.TeacherID,
					Message: fmt.Sprintf("%s appears %d times on %s (cap %d)", req.Code, count, day, req.DailyCap),
				})
			}
		}
	}

	metrics := QualityMetrics{
		Filled:     len(cells),
		Assignable: len(g.days) * len(g.assignable),
	}
	for _, req := range g.reqs {
		metrics.Demand += req.PeriodsPerWeek
		got := placed[req.SubjectID]
		if got < req.PeriodsPerWeek {
			metrics.Unmet += req.PeriodsPerWeek - got
		} else {
			metrics.Surplus += got - req.PeriodsPerWeek
		}
	}

	target := metrics.Assignable
	if metrics.Demand < target {
		target = metrics.Demand
	}
	if target > 0 {
		metrics.Utilization = math.Min(1, float64(metrics.Filled)/float64(target))
	}
	metrics.Evenness = evenness(g.days, perDay)
	if len(tds) > 0 {
		metrics.Fairness = float64(underCap) / float64(len(tds))
	}
	if metrics.Demand > 0 {
		metrics.Satisfaction = 1 - float64(metrics.Unmet)/float64(metrics.Demand)
	}

	for _, v := range violations {
		switch v.Severity {
		case SeveritySevere:
			metrics.Penalty += penaltySevere
		case SeverityHard:
			metrics.Penalty += penaltyHard
		default:
			metrics.Penalty += penaltyAdvisory
		}
	}

	base := weightUtilization*metrics.Utilization +
		weightEvenness*metrics.Evenness +
		weightFairness*metrics.Fairness +
		weightSatisfaction*metrics.Satisfaction
	score := math.Max(0, math.Min(100, base-metrics.Penalty))

	if violations == nil {
		violations = []Violation{}
	}
	return Report{
		Score:      math.Round(score*100) / 100,
		Violations: violations,
		Metrics:    metrics,
	}
}

type periodRun struct {
	start  int
	length int
}

// contiguousRuns splits sorted period numbers into runs of consecutive numbers.
func contiguousRuns(sorted []int) []periodRun {
	var runs []periodRun
	for i, p := range sorted {
		if i > 0 && p == sorted[i-1]+1 {
			runs[len(runs)-1].length++
			continue
		}
		runs = append(runs, periodRun{start: p, length: 1})
	}
	return runs
}

func evenness(days []Day, perDay map[Day]int) float64 {
	if len(days) == 0 {
		return 0
	}
	total := 0
	for _, day := range days {
		total += perDay[day]
	}
	if total == 0 {
		return 0
	}
	mean := float64(total) / float64(len(days))
	var variance float64
	for _, day := range days {
		diff := float64(perDay[day]) - mean
		variance += diff * diff
	}
	variance /= float64(len(days))
	return math.Max(0, 1-math.Sqrt(variance)/mean)
}
