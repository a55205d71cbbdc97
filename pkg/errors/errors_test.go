package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrConflict, "phone already registered")
	assert.True(t, stdErrors.Is(err, ErrConflict))
	assert.False(t, stdErrors.Is(err, ErrNotFound))
	assert.Equal(t, "phone already registered", err.Message)
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestWithDetailsKeepsOriginalUntouched(t *testing.T) {
	err := WithDetails(ErrGatewayUnavailable, map[string]string{"message": "upstream"})
	assert.NotNil(t, err.Details)
	assert.Nil(t, ErrGatewayUnavailable.Details)
}
