package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimeSlotRepository reads the period layout configured for a term.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs the repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListByTerm returns the periods of a term ordered by period number.
func (r *TimeSlotRepository) ListByTerm(ctx context.Context, termID string) ([]models.TimeSlot, error) {
	const query = `SELECT id, term_id, period_number, start_time, end_time, is_break
FROM time_slots WHERE term_id = $1 ORDER BY period_number ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, termID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}
