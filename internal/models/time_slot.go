package models

// TimeSlot is a numbered period of the school day configured for a term.
type TimeSlot struct {
	ID           string `db:"id" json:"id"`
	TermID       string `db:"term_id" json:"term_id"`
	PeriodNumber int    `db:"period_number" json:"period_number"`
	StartTime    string `db:"start_time" json:"start_time"`
	EndTime      string `db:"end_time" json:"end_time"`
	IsBreak      bool   `db:"is_break" json:"is_break"`
}
