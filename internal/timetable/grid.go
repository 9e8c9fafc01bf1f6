package timetable

import (
	"sort"
)

// Slot addresses one cell of the weekly grid.
type Slot struct {
	Day    Day
	Period int
}

// Placement is the content of an occupied cell.
type Placement struct {
	SubjectID string
	TeacherID string
}

// PlacedCell pairs a slot with its placement.
type PlacedCell struct {
	Slot
	Placement
}

type teacherDay struct {
	teacher string
	day     Day
}

type subjectDay struct {
	subject int
	day     Day
}

// Grid is the mutable day × period matrix for one class-section.
//
// The grid is the only owner of placement state: requirement counters, teacher
// load, occupancy and last-period bookkeeping change exclusively through Place and
// Unplace, so no caller can desynchronise them from the cells. A Grid is not safe
// for concurrent use; independent grids are.
type Grid struct {
	days       []Day
	dayIndex   map[Day]int
	periods    []Period
	known      map[int]bool
	breaks     map[int]bool
	assignable []int

	reqs     []*SubjectRequirement
	reqIndex map[string]int
	busy     *BusySet
	limits   ConstraintLimits

	cells        map[Slot]int
	teacherSlots map[teacherDay]map[int]struct{}
	teacherLoad  map[teacherDay]int
	teacherLast  map[teacherDay]int
	subjectDaily map[subjectDay]int
	dayFilled    map[Day]int
}

// NewGrid builds an empty grid. The requirements are copied; the grid owns the copies.
func NewGrid(days []Day, periods []Period, reqs []SubjectRequirement, busy *BusySet, limits ConstraintLimits) (*Grid, error) {
	normDays, err := normalizeDays(days)
	if err != nil {
		return nil, err
	}
	normPeriods, err := normalizePeriods(periods)
	if err != nil {
		return nil, err
	}
	if err := limits.validate(); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, inputError("requirements", "no subject requirements")
	}
	if busy == nil {
		busy = NewBusySet(nil)
	}

	g := &Grid{
		days:     normDays,
		dayIndex: make(map[Day]int, len(normDays)),
		periods:  normPeriods,
		known:    make(map[int]bool, len(normPeriods)),
		breaks:   make(map[int]bool),
		reqs:     make([]*SubjectRequirement, 0, len(reqs)),
		reqIndex: make(map[string]int, len(reqs)),
		busy:     busy,
		limits:   limits,
	}
	for i, day := range normDays {
		g.dayIndex[day] = i
	}
	for _, p := range normPeriods {
		g.known[p.Number] = true
		if p.IsBreak {
			g.breaks[p.Number] = true
			continue
		}
		g.assignable = append(g.assignable, p.Number)
	}
	for i := range reqs {
		req := reqs[i]
		if _, dup := g.reqIndex[req.SubjectID]; dup {
			return nil, inputError("requirements", "subject %s listed twice", req.SubjectID)
		}
		req.Remaining = req.PeriodsPerWeek
		req.Surplus = 0
		if req.DailyCap < 1 {
			req.DailyCap = SubjectDailyCap(req.Credits, req.PeriodsPerWeek, len(normDays), limits)
		}
		g.reqIndex[req.SubjectID] = len(g.reqs)
		g.reqs = append(g.reqs, &req)
	}
	g.resetState()
	return g, nil
}

func (g *Grid) resetState() {
	g.cells = make(map[Slot]int)
	g.teacherSlots = make(map[teacherDay]map[int]struct{})
	g.teacherLoad = make(map[teacherDay]int)
	g.teacherLast = make(map[teacherDay]int)
	g.subjectDaily = make(map[subjectDay]int)
	g.dayFilled = make(map[Day]int)
	for _, req := range g.reqs {
		req.Remaining = req.PeriodsPerWeek
		req.Surplus = 0
	}
}

// Blank returns a grid with the same calendar, requirements and constraints but no placements.
func (g *Grid) Blank() *Grid {
	clone := &Grid{
		days:       g.days,
		dayIndex:   g.dayIndex,
		periods:    g.periods,
		known:      g.known,
		breaks:     g.breaks,
		assignable: g.assignable,
		reqIndex:   g.reqIndex,
		busy:       g.busy,
		limits:     g.limits,
		reqs:       make([]*SubjectRequirement, len(g.reqs)),
	}
	for i, req := range g.reqs {
		copied := *req
		clone.reqs[i] = &copied
	}
	clone.resetState()
	return clone
}

// Clone deep-copies the grid including its placements.
func (g *Grid) Clone() *Grid {
	clone := g.Blank()
	for _, cell := range g.Placements() {
		clone.assign(cell.Slot, g.reqIndex[cell.SubjectID])
	}
	return clone
}

// adopt replaces the placements of g with those of src. Both grids must share a calendar.
func (g *Grid) adopt(src *Grid) {
	g.resetState()
	for _, cell := range src.Placements() {
		g.assign(cell.Slot, g.reqIndex[cell.SubjectID])
	}
}

// CanPlace reports whether req may occupy (day, period) without breaking a hard constraint.
func (g *Grid) CanPlace(day Day, period int, req *SubjectRequirement) bool {
	idx, ok := g.ownIndex(req)
	if !ok {
		return false
	}
	if _, ok := g.dayIndex[day]; !ok {
		return false
	}
	if !g.known[period] {
		return false
	}
	if _, occupied := g.cells[Slot{Day: day, Period: period}]; occupied {
		return false
	}
	for _, rule := range hardRules {
		if !rule.Allows(g, day, period, g.reqs[idx]) {
			return false
		}
	}
	return true
}

// Place records req at (day, period). It fails with InvalidStateError when CanPlace is false.
func (g *Grid) Place(day Day, period int, req *SubjectRequirement) error {
	if !g.CanPlace(day, period, req) {
		return &InvalidStateError{Op: "place", Day: day, Period: period, Reason: "slot rejected by hard constraints"}
	}
	idx, _ := g.ownIndex(req)
	g.assign(Slot{Day: day, Period: period}, idx)
	return nil
}

// Unplace removes the placement at (day, period), restoring every counter Place touched.
func (g *Grid) Unplace(day Day, period int) error {
	slot := Slot{Day: day, Period: period}
	idx, ok := g.cells[slot]
	if !ok {
		return &InvalidStateError{Op: "unplace", Day: day, Period: period, Reason: "cell is empty"}
	}
	req := g.reqs[idx]
	td := teacherDay{teacher: req.TeacherID, day: day}
	sd := subjectDay{subject: idx, day: day}
	if g.teacherLoad[td] < 1 || g.subjectDaily[sd] < 1 || g.dayFilled[day] < 1 {
		return &InvalidStateError{Op: "unplace", Day: day, Period: period, Reason: "load counter would go negative"}
	}
	switch {
	case req.Surplus > 0:
		req.Surplus--
	case req.Remaining < req.PeriodsPerWeek:
		req.Remaining++
	default:
		return &InvalidStateError{Op: "unplace", Day: day, Period: period, Reason: "remaining would exceed weekly demand"}
	}

	delete(g.cells, slot)
	delete(g.teacherSlots[td], period)
	g.teacherLoad[td]--
	if g.teacherLoad[td] == 0 {
		delete(g.teacherLoad, td)
		delete(g.teacherSlots, td)
		delete(g.teacherLast, td)
	} else if g.teacherLast[td] == period {
		last := 0
		for p := range g.teacherSlots[td] {
			if p > last {
				last = p
			}
		}
		g.teacherLast[td] = last
	}
	g.subjectDaily[sd]--
	if g.subjectDaily[sd] == 0 {
		delete(g.subjectDaily, sd)
	}
	g.dayFilled[day]--
	if g.dayFilled[day] == 0 {
		delete(g.dayFilled, day)
	}
	return nil
}

// assign writes a placement without consulting constraints. Crossover relies on it.
func (g *Grid) assign(slot Slot, idx int) {
	req := g.reqs[idx]
	g.cells[slot] = idx
	if req.Remaining > 0 {
		req.Remaining--
	} else {
		req.Surplus++
	}
	td := teacherDay{teacher: req.TeacherID, day: slot.Day}
	if g.teacherSlots[td] == nil {
		g.teacherSlots[td] = make(map[int]struct{})
	}
	g.teacherSlots[td][slot.Period] = struct{}{}
	g.teacherLoad[td]++
	if slot.Period > g.teacherLast[td] {
		g.teacherLast[td] = slot.Period
	}
	g.subjectDaily[subjectDay{subject: idx, day: slot.Day}]++
	g.dayFilled[slot.Day]++
}

// runWith is the length of the same-teacher contiguous run that would contain period.
func (g *Grid) runWith(td teacherDay, period int) int {
	held := g.teacherSlots[td]
	run := 1
	for p := period - 1; p >= 1; p-- {
		if _, ok := held[p]; !ok {
			break
		}
		run++
	}
	for p := period + 1; ; p++ {
		if _, ok := held[p]; !ok {
			break
		}
		run++
	}
	return run
}

func (g *Grid) ownIndex(req *SubjectRequirement) (int, bool) {
	if req == nil {
		return 0, false
	}
	idx, ok := g.reqIndex[req.SubjectID]
	if !ok || g.reqs[idx] != req {
		return 0, false
	}
	return idx, true
}

// At returns the placement at (day, period), if any.
func (g *Grid) At(day Day, period int) (Placement, bool) {
	idx, ok := g.cells[Slot{Day: day, Period: period}]
	if !ok {
		return Placement{}, false
	}
	req := g.reqs[idx]
	return Placement{SubjectID: req.SubjectID, TeacherID: req.TeacherID}, true
}

// Days returns the grid's day set in order.
func (g *Grid) Days() []Day {
	out := make([]Day, len(g.days))
	copy(out, g.days)
	return out
}

// Periods returns every period including breaks, ordered by number.
func (g *Grid) Periods() []Period {
	out := make([]Period, len(g.periods))
	copy(out, g.periods)
	return out
}

// AssignablePeriods returns the non-break period numbers in order.
func (g *Grid) AssignablePeriods() []int {
	out := make([]int, len(g.assignable))
	copy(out, g.assignable)
	return out
}

// AssignableSlots enumerates every non-break cell, day-major.
func (g *Grid) AssignableSlots() []Slot {
	out := make([]Slot, 0, len(g.days)*len(g.assignable))
	for _, day := range g.days {
		for _, period := range g.assignable {
			out = append(out, Slot{Day: day, Period: period})
		}
	}
	return out
}

// IsBreak reports whether the period is a break.
func (g *Grid) IsBreak(period int) bool {
	return g.breaks[period]
}

// Requirements exposes the grid-owned requirements. Callers must treat them as read-only.
func (g *Grid) Requirements() []*SubjectRequirement {
	out := make([]*SubjectRequirement, len(g.reqs))
	copy(out, g.reqs)
	return out
}

// Requirement looks up a grid-owned requirement by subject id.
func (g *Grid) Requirement(subjectID string) *SubjectRequirement {
	idx, ok := g.reqIndex[subjectID]
	if !ok {
		return nil
	}
	return g.reqs[idx]
}

// Busy returns the BusySet snapshot the grid checks against.
func (g *Grid) Busy() *BusySet {
	return g.busy
}

// Limits returns the grid's constraint limits.
func (g *Grid) Limits() ConstraintLimits {
	return g.limits
}

// FilledCount returns the number of occupied cells.
func (g *Grid) FilledCount() int {
	return len(g.cells)
}

// DayFilled returns the number of occupied cells on day.
func (g *Grid) DayFilled(day Day) int {
	return g.dayFilled[day]
}

// TeacherLoad returns the periods the teacher holds on day in this grid.
func (g *Grid) TeacherLoad(teacherID string, day Day) int {
	return g.teacherLoad[teacherDay{teacher: teacherID, day: day}]
}

// TeacherLastPeriod returns the latest period the teacher holds on day, 0 when none.
func (g *Grid) TeacherLastPeriod(teacherID string, day Day) int {
	return g.teacherLast[teacherDay{teacher: teacherID, day: day}]
}

// ConsecutiveRunAt returns the contiguous same-teacher run through (day, period),
// or 0 when the teacher does not hold that period.
func (g *Grid) ConsecutiveRunAt(teacherID string, day Day, period int) int {
	td := teacherDay{teacher: teacherID, day: day}
	if _, ok := g.teacherSlots[td][period]; !ok {
		return 0
	}
	return g.runWith(td, period)
}

// SubjectCountOn returns how many periods of the subject sit on day.
func (g *Grid) SubjectCountOn(day Day, subjectID string) int {
	idx, ok := g.reqIndex[subjectID]
	if !ok {
		return 0
	}
	return g.subjectDaily[subjectDay{subject: idx, day: day}]
}

// Placements lists occupied cells ordered by day then period.
func (g *Grid) Placements() []PlacedCell {
	out := make([]PlacedCell, 0, len(g.cells))
	for slot, idx := range g.cells {
		req := g.reqs[idx]
		out = append(out, PlacedCell{Slot: slot, Placement: Placement{SubjectID: req.SubjectID, TeacherID: req.TeacherID}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Period < out[j].Period
	})
	return out
}

// Score returns the validator score of the current grid.
func (g *Grid) Score() float64 {
	return Validate(g).Score
}

// previousPeriod returns the period immediately before period in the day, if any.
func (g *Grid) previousPeriod(period int) (Period, bool) {
	pos := sort.Search(len(g.periods), func(i int) bool { return g.periods[i].Number >= period })
	if pos == 0 || pos > len(g.periods) {
		return Period{}, false
	}
	return g.periods[pos-1], true
}

func (g *Grid) subjectAt(day Day, period int) (int, bool) {
	idx, ok := g.cells[Slot{Day: day, Period: period}]
	return idx, ok
}
