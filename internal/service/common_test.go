package service

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

func TestNotFoundOrMapsMissingAndMalformedIDs(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{name: "no rows", err: pgx.ErrNoRows, code: "NOT_FOUND"},
		{name: "wrapped no rows", err: fmt.Errorf("get report: %w", pgx.ErrNoRows), code: "NOT_FOUND"},
		{name: "malformed uuid", err: &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}, code: "NOT_FOUND"},
		{name: "other postgres error", err: &pgconn.PgError{Code: "42P01"}, code: "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := notFoundOr(tc.err, "report", map[string]any{"report_id": "abc"})
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tc.code), "expected %s, got %v", tc.code, err)
		})
	}
}

func TestValidID(t *testing.T) {
	assert.NoError(t, validID("3f1c2b9e-6a7d-4e8f-9a0b-1c2d3e4f5a6b"))
	assert.Error(t, validID("abc"))
	assert.Error(t, validID(""))
}

func TestValidEmail(t *testing.T) {
	for _, ok := range []string{"witness@example.org", "first.last+tag@mail.example.com"} {
		assert.True(t, validEmail(ok), ok)
	}
	for _, bad := range []string{"", "not-an-email", "Name <witness@example.org>", "witness@", "@example.org"} {
		assert.False(t, validEmail(bad), bad)
	}
}
