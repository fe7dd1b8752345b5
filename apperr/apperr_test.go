package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("Content not found"), http.StatusNotFound},
		{"conflict", Conflict("Item is already on the cart"), http.StatusConflict},
		{"unauthorized", New(ErrUnauthorized, "Unauthorized"), http.StatusUnauthorized},
		{"forbidden", New(ErrForbidden, "Unauthorized"), http.StatusForbidden},
		{"invalid", New(ErrInvalid, "invalid id"), http.StatusBadRequest},
		{"internal", Internal(errors.New("connection refused")), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("add: %w", Conflict("x")), http.StatusConflict},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Status(tc.err))
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("pq: relation \"games\" does not exist")
	err := Internal(cause)

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Internal server error", Message(err))
	assert.Contains(t, err.Error(), "relation")
}

func TestMessageOfForeignError(t *testing.T) {
	assert.Equal(t, "Internal server error", Message(errors.New("boom")))
}
