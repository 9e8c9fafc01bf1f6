package timetable

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultBacktrackingTimeout bounds a backtracking solve when no timeout is given.
const DefaultBacktrackingTimeout = 5 * time.Second

// BacktrackingSolver searches for an assignment that meets every demand unit
// without breaking a hard constraint or the subject daily cap. It either fills
// the grid completely or leaves it empty and reports NoSolutionError.
type BacktrackingSolver struct {
	Timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewBacktrackingSolver builds a backtracking solver.
func NewBacktrackingSolver(timeout time.Duration, logger *zap.Logger) *BacktrackingSolver {
	if timeout <= 0 {
		timeout = DefaultBacktrackingTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktrackingSolver{Timeout: timeout, logger: logger, now: time.Now}
}

// Strategy implements Solver.
func (s *BacktrackingSolver) Strategy() Strategy { return StrategyBacktracking }

type demandUnit struct {
	req *SubjectRequirement
	// follows is true when the previous unit belongs to the same requirement.
	follows bool
}

type backtrackSearch struct {
	grid     *Grid
	units    []demandUnit
	slots    []Slot
	order    map[Slot]int
	chosen   []Slot
	deadline time.Time
	now      func() time.Time
	explored int
	abort    NoSolutionReason
}

// Solve fills g or returns NoSolutionError. The grid must be empty on entry.
func (s *BacktrackingSolver) Solve(ctx context.Context, g *Grid) error {
	reqs := g.Requirements()
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].PeriodsPerWeek != reqs[j].PeriodsPerWeek {
			return reqs[i].PeriodsPerWeek > reqs[j].PeriodsPerWeek
		}
		return reqs[i].SubjectID < reqs[j].SubjectID
	})

	var units []demandUnit
	for _, req := range reqs {
		for k := 0; k < req.Remaining; k++ {
			units = append(units, demandUnit{req: req, follows: k > 0})
		}
	}

	search := &backtrackSearch{
		grid:     g,
		units:    units,
		slots:    g.AssignableSlots(),
		deadline: s.now().Add(s.Timeout),
		now:      s.now,
	}
	search.order = make(map[Slot]int, len(search.slots))
	for i, slot := range search.slots {
		search.order[slot] = i
	}

	if reason := precheck(g, units); reason != "" {
		s.logger.Debug("backtracking precheck failed", zap.String("reason", reason))
		return &NoSolutionError{Strategy: StrategyBacktracking, Reason: NoSolutionExhausted}
	}

	ok, err := search.solve(ctx, 0)
	if err != nil {
		return err
	}
	if !ok {
		reason := search.abort
		if reason == "" {
			reason = NoSolutionExhausted
		}
		s.logger.Debug("backtracking gave up",
			zap.String("reason", string(reason)),
			zap.Int("explored", search.explored),
			zap.Int("units", len(units)),
		)
		return &NoSolutionError{Strategy: StrategyBacktracking, Reason: reason, Explored: search.explored}
	}
	s.logger.Debug("backtracking solved", zap.Int("explored", search.explored), zap.Int("units", len(units)))
	return nil
}

// precheck rejects instances that cannot be satisfied regardless of ordering.
func precheck(g *Grid, units []demandUnit) string {
	if len(units) > len(g.days)*len(g.assignable) {
		return "demand exceeds assignable slots"
	}
	perTeacher := make(map[string]int)
	for _, unit := range units {
		perTeacher[unit.req.TeacherID]++
	}
	daily := g.limits.MaxDailyLoad
	if len(g.assignable) < daily {
		daily = len(g.assignable)
	}
	for teacher, demand := range perTeacher {
		capacity := 0
		for _, day := range g.days {
			free := 0
			for _, period := range g.assignable {
				if !g.busy.Contains(teacher, day, period) {
					free++
				}
			}
			if free > daily {
				free = daily
			}
			capacity += free
		}
		if demand > capacity {
			return "teacher " + teacher + " over-subscribed"
		}
	}
	return ""
}

func (b *backtrackSearch) solve(ctx context.Context, i int) (bool, error) {
	if i == len(b.units) {
		return true, nil
	}
	b.explored++
	if err := ctx.Err(); err != nil {
		b.abort = NoSolutionCanceled
		return false, nil
	}
	if b.now().After(b.deadline) {
		b.abort = NoSolutionDeadline
		return false, nil
	}

	unit := b.units[i]
	after := -1
	if unit.follows && len(b.chosen) > 0 {
		after = b.order[b.chosen[len(b.chosen)-1]]
	}

	for _, slot := range b.candidates(unit.req, after) {
		if err := b.grid.Place(slot.Day, slot.Period, unit.req); err != nil {
			return false, err
		}
		b.chosen = append(b.chosen, slot)

		ok, err := b.solve(ctx, i+1)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		b.chosen = b.chosen[:len(b.chosen)-1]
		if err := b.grid.Unplace(slot.Day, slot.Period); err != nil {
			return false, err
		}
		if b.abort != "" {
			return false, nil
		}
	}
	return false, nil
}

// overCapPenalty outweighs every other ordering term of a single slot.
const overCapPenalty = 1000

// candidates lists feasible slots strictly after position `after`, best first.
func (b *backtrackSearch) candidates(req *SubjectRequirement, after int) []Slot {
	type scored struct {
		slot    Slot
		penalty int
		pos     int
	}
	g := b.grid
	var list []scored
	for pos := after + 1; pos < len(b.slots); pos++ {
		slot := b.slots[pos]
		if !g.CanPlace(slot.Day, slot.Period, req) {
			continue
		}
		list = append(list, scored{slot: slot, penalty: slotPenalty(g, slot, req), pos: pos})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].penalty != list[j].penalty {
			return list[i].penalty < list[j].penalty
		}
		return list[i].pos < list[j].pos
	})
	out := make([]Slot, len(list))
	for i, item := range list {
		out[i] = item.slot
	}
	return out
}

// slotPenalty ranks a feasible slot: same-subject neighbours and crowded days cost,
// days the subject has not touched yet are rewarded. The daily subject cap is advisory,
// so slots past it stay candidates but sort after every slot within it.
func slotPenalty(g *Grid, slot Slot, req *SubjectRequirement) int {
	penalty := g.DayFilled(slot.Day)
	if !g.underCap(slot.Day, req, 0) {
		penalty += overCapPenalty
	}
	if g.adjacentSameSubject(slot.Day, slot.Period, req) {
		penalty += 10
	}
	count := g.SubjectCountOn(slot.Day, req.SubjectID)
	penalty += 4 * count
	if count == 0 {
		penalty -= 3
	}
	return penalty
}
