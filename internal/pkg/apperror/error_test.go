package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad quantity"), http.StatusBadRequest},
		{NotFound("order %d not found", 7), http.StatusNotFound},
		{Forbidden("not your order"), http.StatusForbidden},
		{InvalidState("cannot cancel"), http.StatusBadRequest},
		{SignatureInvalid("signature mismatch"), http.StatusBadRequest},
		{Upstream(errors.New("dial tcp"), "razorpay unavailable"), http.StatusBadGateway},
		{Unauthorized("token expired"), http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestWrappedKindSurvives(t *testing.T) {
	err := fmt.Errorf("failed to load order: %w", NotFound("order not found"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "order not found", PublicMessage(err))
}

func TestPublicMessageHidesInternals(t *testing.T) {
	err := Upstream(errors.New("password authentication failed for user"), "database unavailable")
	assert.NotContains(t, PublicMessage(err), "password")
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("secret detail")))
}
