package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SemesterScheduleSlotRepository manages the placements of semester schedules.
type SemesterScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewSemesterScheduleSlotRepository builds repository.
func NewSemesterScheduleSlotRepository(db *sqlx.DB) *SemesterScheduleSlotRepository {
	return &SemesterScheduleSlotRepository{db: db}
}

func (r *SemesterScheduleSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

type slotCell struct {
	day    int
	period int
}

// ReplaceForSchedule swaps every slot of a schedule for the given placements. A cell may
// appear only once.
func (r *SemesterScheduleSlotRepository) ReplaceForSchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, slots []models.SemesterScheduleSlot) error {
	if scheduleID == "" {
		return fmt.Errorf("semester_schedule_id is required")
	}
	seen := make(map[slotCell]struct{}, len(slots))
	for _, slot := range slots {
		cell := slotCell{day: slot.DayOfWeek, period: slot.Period}
		if _, dup := seen[cell]; dup {
			return fmt.Errorf("duplicate slot at day %d period %d", slot.DayOfWeek, slot.Period)
		}
		seen[cell] = struct{}{}
	}

	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM semester_schedule_slots WHERE semester_schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("clear semester schedule slots: %w", err)
	}

	const query = `
INSERT INTO semester_schedule_slots (id, semester_schedule_id, day_of_week, period, subject_id, teacher_id, room, created_at)
VALUES (:id, :semester_schedule_id, :day_of_week, :period, :subject_id, :teacher_id, :room, :created_at)`
	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		slot.SemesterScheduleID = scheduleID
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert semester schedule slot: %w", err)
		}
	}
	return nil
}

// ListBySchedule returns slots ordered by day and period.
func (r *SemesterScheduleSlotRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	const query = `SELECT id, semester_schedule_id, day_of_week, period, subject_id, teacher_id, room, created_at
FROM semester_schedule_slots WHERE semester_schedule_id = $1 ORDER BY day_of_week ASC, period ASC`
	var slots []models.SemesterScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list semester schedule slots: %w", err)
	}
	return slots, nil
}
