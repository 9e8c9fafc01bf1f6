package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTeacherPrefMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTeacherPreferenceRepositoryListByTeachers(t *testing.T) {
	db, mock, cleanup := newTeacherPrefMock(t)
	defer cleanup()
	repo := NewTeacherPreferenceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "max_load_per_day", "max_load_per_week", "unavailable", "created_at", "updated_at"}).
		AddRow("pref-1", "teacher-1", 6, 30, `[{"day_of_week":"MONDAY","periods":"1-2"}]`, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_preferences WHERE teacher_id IN ($1, $2) ORDER BY teacher_id ASC")).
		WithArgs("teacher-1", "teacher-2").
		WillReturnRows(rows)

	prefs, err := repo.ListByTeachers(context.Background(), []string{"teacher-1", "teacher-2"})
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "pref-1", prefs[0].ID)
	assert.JSONEq(t, `[{"day_of_week":"MONDAY","periods":"1-2"}]`, prefs[0].Unavailable.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherPreferenceRepositoryListByTeachersEmpty(t *testing.T) {
	db, mock, cleanup := newTeacherPrefMock(t)
	defer cleanup()

	prefs, err := NewTeacherPreferenceRepository(db).ListByTeachers(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, prefs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
