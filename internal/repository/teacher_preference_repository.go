package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TeacherPreferenceRepository reads teacher availability preferences.
type TeacherPreferenceRepository struct {
	db *sqlx.DB
}

// NewTeacherPreferenceRepository constructs the repository.
func NewTeacherPreferenceRepository(db *sqlx.DB) *TeacherPreferenceRepository {
	return &TeacherPreferenceRepository{db: db}
}

// ListByTeachers returns the stored preferences of the given teachers. Teachers without a
// row are simply absent from the result.
func (r *TeacherPreferenceRepository) ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherPreference, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, teacher_id, max_load_per_day, max_load_per_week, unavailable, created_at, updated_at
FROM teacher_preferences WHERE teacher_id IN (?) ORDER BY teacher_id ASC`, teacherIDs)
	if err != nil {
		return nil, fmt.Errorf("expand teacher preference query: %w", err)
	}
	var prefs []models.TeacherPreference
	if err := r.db.SelectContext(ctx, &prefs, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return nil, fmt.Errorf("list teacher preferences: %w", err)
	}
	return prefs, nil
}
