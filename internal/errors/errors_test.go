package appErrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
)

func TestHTTPStatus(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{appErrors.NewValidation("action", "required"), http.StatusBadRequest},
		{appErrors.ErrNoPendingCalls, http.StatusBadRequest},
		{&appErrors.TransitionError{From: "completed", Action: "start"}, http.StatusBadRequest},
		{fmt.Errorf("load: %w", appErrors.NewCampaignNotFound(id)), http.StatusNotFound},
		{&appErrors.ConflictError{Msg: "busy"}, http.StatusConflict},
		{appErrors.NewPersistence("update campaign", errors.New("conn reset")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, appErrors.HTTPStatus(tc.err), "%v", tc.err)
	}
}

func TestPlacementErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := &appErrors.PlacementError{PhoneNumber: "+254700000001", Msg: cause.Error(), Transport: true, Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transport error")
	assert.Contains(t, err.Error(), "+254700000001")
}
