package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// BookingFilter narrows the committed teacher bookings loaded for a solve.
type BookingFilter struct {
	TermID          string
	TeacherIDs      []string
	ExcludeClassIDs []string
}

// ScheduleRepository provides persistence for committed daily schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListBookings returns the teacher bookings of a term, optionally restricted to some
// teachers and ignoring the given classes.
func (r *ScheduleRepository) ListBookings(ctx context.Context, filter BookingFilter) ([]models.TeacherBooking, error) {
	if filter.TermID == "" {
		return nil, fmt.Errorf("term_id is required")
	}
	conditions := []string{"term_id = ?"}
	args := []interface{}{filter.TermID}
	if len(filter.TeacherIDs) > 0 {
		conditions = append(conditions, "teacher_id IN (?)")
		args = append(args, filter.TeacherIDs)
	}
	if len(filter.ExcludeClassIDs) > 0 {
		conditions = append(conditions, "class_id NOT IN (?)")
		args = append(args, filter.ExcludeClassIDs)
	}

	query := "SELECT teacher_id, class_id, day_of_week, period FROM schedules WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY teacher_id ASC, day_of_week ASC, period ASC"
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("expand booking query: %w", err)
	}

	var bookings []models.TeacherBooking
	if err := r.db.SelectContext(ctx, &bookings, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return nil, fmt.Errorf("list teacher bookings: %w", err)
	}
	return bookings, nil
}

// FindConflicts returns schedules that already hold the class or the teacher at a day/period.
func (r *ScheduleRepository) FindConflicts(ctx context.Context, exec sqlx.ExtContext, termID, classID, teacherID string, day, period int) ([]models.ScheduleConflict, error) {
	const query = `SELECT id, class_id, subject_id, teacher_id, day_of_week, period,
CASE WHEN class_id = $2 THEN 'CLASS' ELSE 'TEACHER' END AS dimension
FROM schedules WHERE term_id = $1 AND day_of_week = $4 AND period = $5 AND (class_id = $2 OR teacher_id = $3)`
	var conflicts []models.ScheduleConflict
	if err := sqlx.SelectContext(ctx, r.exec(exec), &conflicts, query, termID, classID, teacherID, day, period); err != nil {
		return nil, fmt.Errorf("find schedule conflicts: %w", err)
	}
	return conflicts, nil
}

// DeleteByClassTerm removes the committed schedules of a class in a term.
func (r *ScheduleRepository) DeleteByClassTerm(ctx context.Context, exec sqlx.ExtContext, termID, classID string) (int64, error) {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM schedules WHERE term_id = $1 AND class_id = $2`, termID, classID)
	if err != nil {
		return 0, fmt.Errorf("delete class schedules: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("class schedules rows affected: %w", err)
	}
	return affected, nil
}

// BulkCreateWithTx inserts schedules using an existing transaction.
func (r *ScheduleRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	const query = `INSERT INTO schedules (id, term_id, class_id, subject_id, teacher_id, day_of_week, period, room, semester_schedule_id, created_at, updated_at)
VALUES (:id, :term_id, :class_id, :subject_id, :teacher_id, :day_of_week, :period, :room, :semester_schedule_id, :created_at, :updated_at)`
	for i := range schedules {
		payload := &schedules[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, tx, query, payload); err != nil {
			return fmt.Errorf("bulk insert schedule: %w", err)
		}
	}
	return nil
}
