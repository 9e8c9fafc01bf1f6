package timetable

import (
	"sort"
	"strings"
)

// Day is an ISO weekday index, Monday = 1 through Sunday = 7.
type Day int

const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays is the default Monday–Friday day set.
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayNames = map[Day]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

// Valid reports whether the day lies within Monday..Sunday.
func (d Day) Valid() bool {
	return d >= Monday && d <= Sunday
}

// String returns the upper-case day name used across schedule tables.
func (d Day) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseDay maps a day name (any case) to its index; zero when unknown.
func ParseDay(name string) Day {
	name = strings.ToUpper(strings.TrimSpace(name))
	for day, candidate := range dayNames {
		if candidate == name {
			return day
		}
	}
	return 0
}

// Period is a numbered teaching slot of the day. Break periods are never assignable.
type Period struct {
	Number  int
	IsBreak bool
}

// BusyEntry is one externally committed teacher booking.
type BusyEntry struct {
	TeacherID string
	Day       Day
	Period    int
}

type busyKey struct {
	teacher string
	day     Day
	period  int
}

// BusySet is a read-only snapshot of teacher bookings committed elsewhere.
// It is never mutated after construction and may be shared between concurrent solves.
type BusySet struct {
	entries map[busyKey]struct{}
	byTeach map[string]int
}

// NewBusySet snapshots the given bookings. Duplicates collapse.
func NewBusySet(entries []BusyEntry) *BusySet {
	set := &BusySet{
		entries: make(map[busyKey]struct{}, len(entries)),
		byTeach: make(map[string]int),
	}
	for _, entry := range entries {
		if entry.TeacherID == "" || !entry.Day.Valid() || entry.Period < 1 {
			continue
		}
		key := busyKey{teacher: entry.TeacherID, day: entry.Day, period: entry.Period}
		if _, dup := set.entries[key]; dup {
			continue
		}
		set.entries[key] = struct{}{}
		set.byTeach[entry.TeacherID]++
	}
	return set
}

// Contains reports whether the teacher is already booked at (day, period).
func (b *BusySet) Contains(teacherID string, day Day, period int) bool {
	if b == nil {
		return false
	}
	_, ok := b.entries[busyKey{teacher: teacherID, day: day, period: period}]
	return ok
}

// Len returns the number of distinct bookings.
func (b *BusySet) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// HasTeacher reports whether any booking exists for the teacher.
func (b *BusySet) HasTeacher(teacherID string) bool {
	if b == nil {
		return false
	}
	return b.byTeach[teacherID] > 0
}

// Entries returns the bookings in a stable order.
func (b *BusySet) Entries() []BusyEntry {
	if b == nil {
		return nil
	}
	out := make([]BusyEntry, 0, len(b.entries))
	for key := range b.entries {
		out = append(out, BusyEntry{TeacherID: key.teacher, Day: key.day, Period: key.period})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeacherID != out[j].TeacherID {
			return out[i].TeacherID < out[j].TeacherID
		}
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Period < out[j].Period
	})
	return out
}

func normalizeDays(days []Day) ([]Day, error) {
	if len(days) == 0 {
		return nil, inputError("days", "at least one day is required")
	}
	seen := make(map[Day]struct{}, len(days))
	out := make([]Day, 0, len(days))
	for _, day := range days {
		if !day.Valid() {
			return nil, inputError("days", "day %d outside 1-7", int(day))
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func normalizePeriods(periods []Period) ([]Period, error) {
	if len(periods) == 0 {
		return nil, inputError("periods", "at least one period is required")
	}
	seen := make(map[int]struct{}, len(periods))
	out := make([]Period, 0, len(periods))
	assignable := 0
	for _, p := range periods {
		if p.Number < 1 {
			return nil, inputError("periods", "period number %d must be >= 1", p.Number)
		}
		if _, dup := seen[p.Number]; dup {
			return nil, inputError("periods", "period %d declared twice", p.Number)
		}
		seen[p.Number] = struct{}{}
		if !p.IsBreak {
			assignable++
		}
		out = append(out, p)
	}
	if assignable == 0 {
		return nil, inputError("periods", "every period is a break")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
