package models

// ClassSubjectLoad is the weekly demand of one subject in a class for a term,
// joined with the subject catalog and the assigned teacher.
type ClassSubjectLoad struct {
	ClassID        string  `db:"class_id" json:"class_id"`
	SubjectID      string  `db:"subject_id" json:"subject_id"`
	SubjectCode    string  `db:"subject_code" json:"subject_code"`
	SubjectName    string  `db:"subject_name" json:"subject_name"`
	Credits        int     `db:"credits" json:"credits"`
	PeriodsPerWeek int     `db:"periods_per_week" json:"periods_per_week"`
	TeacherID      *string `db:"teacher_id" json:"teacher_id,omitempty"`
	TeacherName    *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// Assigned reports whether a teacher is bound to the load.
func (l ClassSubjectLoad) Assigned() bool {
	return l.TeacherID != nil && *l.TeacherID != ""
}
