package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	sentinel := New(CodeConflict, "pet already has an active applicant")
	wrapped := fmt.Errorf("submit: %w", Wrap(CodeConflict, "other message", errors.New("cas failed")))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, New(CodeDuplicatePending, "x")))
}

func TestCodeOf_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "internal error", MessageOf(errors.New("boom")))
	assert.Equal(t, CodeBlocked, CodeOf(New(CodeBlocked, "room is blocked")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:                 http.StatusBadRequest,
		CodeConflict:                   http.StatusConflict,
		CodeDuplicatePending:           http.StatusConflict,
		CodeNotFoundOrAlreadyProcessed: http.StatusNotFound,
		CodeTransactionFailed:          http.StatusServiceUnavailable,
		CodeForbidden:                  http.StatusForbidden,
		CodeApplicationActive:          http.StatusConflict,
		CodeNotCurrentOwner:            http.StatusConflict,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(code, "x")), string(code))
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}
