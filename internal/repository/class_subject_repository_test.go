package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassSubjectRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassSubjectRepositoryListLoads(t *testing.T) {
	db, mock, cleanup := newClassSubjectRepoMock(t)
	defer cleanup()
	repo := NewClassSubjectRepository(db)

	rows := sqlmock.NewRows([]string{"class_id", "subject_id", "subject_code", "subject_name", "credits", "periods_per_week", "teacher_id", "teacher_name"}).
		AddRow("class-1", "sub-1", "MTK", "Matematika", 4, 5, "teacher-1", "Bu Sari").
		AddRow("class-1", "sub-2", "SEJ", "Sejarah", 2, 2, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_subjects cs")).
		WithArgs("class-1", "term-1").
		WillReturnRows(rows)

	loads, err := repo.ListLoads(context.Background(), "class-1", "term-1")
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, "MTK", loads[0].SubjectCode)
	assert.Equal(t, 5, loads[0].PeriodsPerWeek)
	assert.True(t, loads[0].Assigned())
	assert.Equal(t, "Bu Sari", *loads[0].TeacherName)
	assert.False(t, loads[1].Assigned())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassSubjectRepositoryListLoadsError(t *testing.T) {
	db, mock, cleanup := newClassSubjectRepoMock(t)
	defer cleanup()
	repo := NewClassSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_subjects cs")).
		WithArgs("class-1", "term-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListLoads(context.Background(), "class-1", "term-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list class subject loads")
}

func TestClassSubjectRepositoryListClassIDsByTerm(t *testing.T) {
	db, mock, cleanup := newClassSubjectRepoMock(t)
	defer cleanup()
	repo := NewClassSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT class_id FROM class_subjects WHERE term_id = $1 ORDER BY class_id ASC")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}).AddRow("class-1").AddRow("class-2"))

	ids, err := repo.ListClassIDsByTerm(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"class-1", "class-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
