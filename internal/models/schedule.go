package models

import "time"

// Schedule is a committed daily booking of a teacher for a class in a term.
type Schedule struct {
	ID                 string    `db:"id" json:"id"`
	TermID             string    `db:"term_id" json:"term_id"`
	ClassID            string    `db:"class_id" json:"class_id"`
	SubjectID          string    `db:"subject_id" json:"subject_id"`
	TeacherID          string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek          int       `db:"day_of_week" json:"day_of_week"`
	Period             int       `db:"period" json:"period"`
	Room               *string   `db:"room" json:"room,omitempty"`
	SemesterScheduleID *string   `db:"semester_schedule_id" json:"semester_schedule_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherBooking is the minimal projection of a schedule used to block teacher slots.
type TeacherBooking struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	ClassID   string `db:"class_id" json:"class_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	Period    int    `db:"period" json:"period"`
}

// ScheduleConflict describes an existing schedule that collides with a new one.
type ScheduleConflict struct {
	ScheduleID string `db:"id" json:"schedule_id"`
	ClassID    string `db:"class_id" json:"class_id"`
	SubjectID  string `db:"subject_id" json:"subject_id"`
	TeacherID  string `db:"teacher_id" json:"teacher_id"`
	DayOfWeek  int    `db:"day_of_week" json:"day_of_week"`
	Period     int    `db:"period" json:"period"`
	Dimension  string `db:"dimension" json:"dimension"`
}

// ScheduleConflictError is returned when committing slots would double book a class or teacher.
type ScheduleConflictError struct {
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
