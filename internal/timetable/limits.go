package timetable

const (
	DefaultMaxConsecutive  = 2
	DefaultMaxDailyLoad    = 6
	DefaultMaxSubjectDaily = 3
)

// ConstraintLimits bounds teacher and subject load per day.
type ConstraintLimits struct {
	MaxConsecutive  int `json:"maxConsecutive" mapstructure:"max_consecutive"`
	MaxDailyLoad    int `json:"maxDailyLoad" mapstructure:"max_daily_load"`
	MaxSubjectDaily int `json:"maxSubjectDaily" mapstructure:"max_subject_daily"`
}

// DefaultLimits returns the stock limits.
func DefaultLimits() ConstraintLimits {
	return ConstraintLimits{
		MaxConsecutive:  DefaultMaxConsecutive,
		MaxDailyLoad:    DefaultMaxDailyLoad,
		MaxSubjectDaily: DefaultMaxSubjectDaily,
	}
}

// WithDefaults fills zero fields from DefaultLimits.
func (l ConstraintLimits) WithDefaults() ConstraintLimits {
	def := DefaultLimits()
	if l.MaxConsecutive == 0 {
		l.MaxConsecutive = def.MaxConsecutive
	}
	if l.MaxDailyLoad == 0 {
		l.MaxDailyLoad = def.MaxDailyLoad
	}
	if l.MaxSubjectDaily == 0 {
		l.MaxSubjectDaily = def.MaxSubjectDaily
	}
	return l
}

// Merge overlays the non-zero fields of override.
func (l ConstraintLimits) Merge(override *ConstraintLimits) ConstraintLimits {
	if override == nil {
		return l
	}
	if override.MaxConsecutive != 0 {
		l.MaxConsecutive = override.MaxConsecutive
	}
	if override.MaxDailyLoad != 0 {
		l.MaxDailyLoad = override.MaxDailyLoad
	}
	if override.MaxSubjectDaily != 0 {
		l.MaxSubjectDaily = override.MaxSubjectDaily
	}
	return l
}

func (l ConstraintLimits) validate() error {
	if l.MaxConsecutive < 1 {
		return inputError("limits.maxConsecutive", "must be >= 1, got %d", l.MaxConsecutive)
	}
	if l.MaxDailyLoad < 1 {
		return inputError("limits.maxDailyLoad", "must be >= 1, got %d", l.MaxDailyLoad)
	}
	if l.MaxSubjectDaily < 1 {
		return inputError("limits.maxSubjectDaily", "must be >= 1, got %d", l.MaxSubjectDaily)
	}
	return nil
}

// SubjectDailyCap derives how many periods of one subject a single day should carry.
// Credits drive the cap (bounded by MaxSubjectDaily) but it never drops below the
// spread needed to fit the weekly demand into the available days.
func SubjectDailyCap(credits, periodsPerWeek, days int, limits ConstraintLimits) int {
	capacity := credits
	if capacity > limits.MaxSubjectDaily {
		capacity = limits.MaxSubjectDaily
	}
	if days > 0 {
		spread := (periodsPerWeek + days - 1) / days
		if spread > capacity {
			capacity = spread
		}
	}
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}
