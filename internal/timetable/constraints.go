package timetable

// ConstraintKind separates rules that must hold from rules that only guide ordering.
type ConstraintKind string

const (
	ConstraintHard ConstraintKind = "hard"
	ConstraintSoft ConstraintKind = "soft"
)

// Constraint names, shared with violation kinds where a rule has a validator counterpart.
const (
	RuleTeacherConflict  = "teacher_conflict"
	RuleMaxConsecutive   = "max_consecutive"
	RuleMaxDailyLoad     = "max_daily_load"
	RuleBreakExclusion   = "break_exclusion"
	RuleSubjectDailyCap  = "subject_daily_cap"
	RuleSubjectAdjacency = "subject_adjacency"
)

// Constraint is a named rule evaluated for a prospective placement.
type Constraint interface {
	Name() string
	Kind() ConstraintKind
	// Allows reports whether placing req at (day, period) keeps the rule satisfied.
	Allows(g *Grid, day Day, period int, req *SubjectRequirement) bool
}

type ruleFunc struct {
	name  string
	kind  ConstraintKind
	check func(g *Grid, day Day, period int, req *SubjectRequirement) bool
}

func (r ruleFunc) Name() string         { return r.name }
func (r ruleFunc) Kind() ConstraintKind { return r.kind }
func (r ruleFunc) Allows(g *Grid, day Day, period int, req *SubjectRequirement) bool {
	return r.check(g, day, period, req)
}

// TeacherConflictRule rejects slots the teacher holds elsewhere, here or in the BusySet.
var TeacherConflictRule Constraint = ruleFunc{
	name: RuleTeacherConflict,
	kind: ConstraintHard,
	check: func(g *Grid, day Day, period int, req *SubjectRequirement) bool {
		if g.busy.Contains(req.TeacherID, day, period) {
			return false
		}
		_, taken := g.teacherSlots[teacherDay{teacher: req.TeacherID, day: day}][period]
		return !taken
	},
}

// MaxConsecutiveRule caps contiguous same-teacher runs.
var MaxConsecutiveRule Constraint = ruleFunc{
	name: RuleMaxConsecutive,
	kind: ConstraintHard,
	check: func(g *Grid, day Day, period int, req *SubjectRequirement) bool {
		return g.runWith(teacherDay{teacher: req.TeacherID, day: day}, period) <= g.limits.MaxConsecutive
	},
}

// MaxDailyLoadRule caps periods per teacher per day.
var MaxDailyLoadRule Constraint = ruleFunc{
	name: RuleMaxDailyLoad,
	kind: ConstraintHard,
	check: func(g *Grid, day Day, period int, req *SubjectRequirement) bool {
		return g.TeacherLoad(req.TeacherID, day)+1 <= g.limits.MaxDailyLoad
	},
}

// BreakExclusionRule keeps break periods empty.
var BreakExclusionRule Constraint = ruleFunc{
	name: RuleBreakExclusion,
	kind: ConstraintHard,
	check: func(g *Grid, day Day, period int, req *SubjectRequirement) bool {
		return !g.breaks[period]
	},
}

// SubjectDailyCapRule keeps a subject within its derived per-day cap.
var SubjectDailyCapRule Constraint = ruleFunc{
	name: RuleSubjectDailyCap,
	kind: ConstraintSoft,
	check: func(g *Grid, day Day, period int, req *SubjectRequirement) bool {
		return g.SubjectCountOn(day, req.SubjectID) < req.DailyCap
	},
}

// SubjectAdjacencyRule prefers not to repeat a subject back to back.
var SubjectAdjacencyRule Constraint = ruleFunc{
	name: RuleSubjectAdjacency,
	kind: ConstraintSoft,
	check: func(g *Grid, day Day, period int, req *SubjectRequirement) bool {
		return !g.adjacentSameSubject(day, period, req)
	},
}

// hardRules is evaluated by Grid.CanPlace, cheapest first.
var hardRules = []Constraint{
	BreakExclusionRule,
	TeacherConflictRule,
	MaxDailyLoadRule,
	MaxConsecutiveRule,
}

// DefaultConstraints is the full rule set, hard rules first.
func DefaultConstraints() []Constraint {
	return []Constraint{
		BreakExclusionRule,
		TeacherConflictRule,
		MaxDailyLoadRule,
		MaxConsecutiveRule,
		SubjectDailyCapRule,
		SubjectAdjacencyRule,
	}
}

// HardViolations lists the hard rules a prospective placement would break.
func HardViolations(g *Grid, day Day, period int, req *SubjectRequirement) []string {
	var broken []string
	for _, rule := range DefaultConstraints() {
		if rule.Kind() != ConstraintHard {
			continue
		}
		if !rule.Allows(g, day, period, req) {
			broken = append(broken, rule.Name())
		}
	}
	return broken
}

// underCap reports whether one more period of req on day stays within cap+slack.
func (g *Grid) underCap(day Day, req *SubjectRequirement, slack int) bool {
	return g.SubjectCountOn(day, req.SubjectID) < req.DailyCap+slack
}

func (g *Grid) adjacentSameSubject(day Day, period int, req *SubjectRequirement) bool {
	idx, ok := g.reqIndex[req.SubjectID]
	if !ok {
		return false
	}
	if prev, ok := g.subjectAt(day, period-1); ok && prev == idx {
		return true
	}
	if next, ok := g.subjectAt(day, period+1); ok && next == idx {
		return true
	}
	return false
}
