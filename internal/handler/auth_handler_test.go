package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bips-college-api/internal/models"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
)

type authServiceMock struct{}

func (authServiceMock) IssueToken(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	if req.Password != "secret" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	}
	return &models.TokenResponse{AccessToken: "jwt", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func TestAuthHandlerToken(t *testing.T) {
	handler := NewAuthHandler(authServiceMock{})

	c, w := newTestContext(http.MethodPost, "/auth/token", []byte(`{"username":"admin","password":"secret"}`))
	handler.Token(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"jwt"`)

	c, w = newTestContext(http.MethodPost, "/auth/token", []byte(`{"username":"admin","password":"wrong"}`))
	handler.Token(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodPost, "/auth/token", []byte(`[]`))
	handler.Token(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
