package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrors(t *testing.T) {
	fields := FieldErrors{}
	assert.True(t, fields.Empty())
	assert.NoError(t, fields.Err())

	fields.Add("title", "too long")
	fields.Add("description", "required")
	fields.Add("title", "contains markup")

	assert.Equal(t, []string{"description", "title"}, fields.Names())
	assert.Equal(t, []string{"too long", "contains markup"}, fields["title"])

	err := fields.Err()
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
	assert.Equal(t, fields, domainErr.Fields)
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	notFound := ToDomainError(fmt.Errorf("lookup: %w", pgx.ErrNoRows))
	assert.Equal(t, "NOT_FOUND", notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	cause := errors.New("connection reset")
	internal := ToDomainError(cause)
	assert.Equal(t, "INTERNAL_ERROR", internal.Code)
	assert.ErrorIs(t, internal, cause)
	assert.Equal(t, "internal server error: connection reset", internal.Error())

	conflict := NewConflict("already exists", nil)
	assert.Same(t, conflict, ToDomainError(fmt.Errorf("wrapped: %w", conflict)))
}

func TestForbiddenHidesReason(t *testing.T) {
	err := NewForbidden()
	assert.True(t, HasCode(err, "FORBIDDEN"))
	assert.Equal(t, "access denied", err.Error())
	assert.False(t, HasCode(errors.New("FORBIDDEN"), "FORBIDDEN"))
}

func TestConstructorsStatus(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"NOT_FOUND":      {NewNotFound("report", nil), http.StatusNotFound},
		"UNAUTHORIZED":   {NewUnauthorized("login"), http.StatusUnauthorized},
		"CONFLICT":       {NewConflict("dup", nil), http.StatusConflict},
		"RATE_LIMITED":   {NewRateLimited(), http.StatusTooManyRequests},
		"INTERNAL_ERROR": {NewInternalError(nil), http.StatusInternalServerError},
	}
	for code, tc := range cases {
		t.Run(code, func(t *testing.T) {
			domainErr := ToDomainError(tc.err)
			assert.Equal(t, code, domainErr.Code)
			assert.Equal(t, tc.status, domainErr.HTTPStatus)
		})
	}
}
