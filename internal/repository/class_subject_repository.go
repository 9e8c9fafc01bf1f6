package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ClassSubjectRepository reads the weekly subject loads assigned to classes.
type ClassSubjectRepository struct {
	db *sqlx.DB
}

// NewClassSubjectRepository creates a new repository.
func NewClassSubjectRepository(db *sqlx.DB) *ClassSubjectRepository {
	return &ClassSubjectRepository{db: db}
}

// ListLoads returns the subject loads of a class for a term, joined with subject and teacher names.
func (r *ClassSubjectRepository) ListLoads(ctx context.Context, classID, termID string) ([]models.ClassSubjectLoad, error) {
	const query = `
SELECT cs.class_id, cs.subject_id, s.code AS subject_code, s.name AS subject_name,
       s.credits, cs.periods_per_week, cs.teacher_id, u.full_name AS teacher_name
FROM class_subjects cs
JOIN subjects s ON s.id = cs.subject_id
LEFT JOIN users u ON u.id = cs.teacher_id
WHERE cs.class_id = $1 AND cs.term_id = $2
ORDER BY s.code ASC`
	var loads []models.ClassSubjectLoad
	if err := r.db.SelectContext(ctx, &loads, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list class subject loads: %w", err)
	}
	return loads, nil
}

// ListClassIDsByTerm returns every class that carries at least one subject load in the term.
func (r *ClassSubjectRepository) ListClassIDsByTerm(ctx context.Context, termID string) ([]string, error) {
	const query = `SELECT DISTINCT class_id FROM class_subjects WHERE term_id = $1 ORDER BY class_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, termID); err != nil {
		return nil, fmt.Errorf("list classes by term: %w", err)
	}
	return ids, nil
}
