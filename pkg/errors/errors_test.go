package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", Clone(ErrNoSolution, "backtracking exhausted"))

	appErr := FromError(wrapped)
	assert.Equal(t, "NO_SOLUTION_FOUND", appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, "backtracking exhausted", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "days must not be empty")
	assert.Equal(t, "days must not be empty", clone.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "failed to load catalog")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load catalog: db down", err.Error())
}

func TestWithDetailsKeepsCause(t *testing.T) {
	cause := errors.New("teacher t1 booked")
	err := Wrap(cause, ErrConflict.Code, ErrConflict.Status, "timetable conflicts with committed schedules").
		WithDetails([]string{"mon-1"})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"mon-1"}, err.Details)
	assert.Nil(t, ErrConflict.Details)
}
