package signedurl

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("inv-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "inv-1", subject)
	assert.True(t, expiresAt.Equal(parsedExpiry))
}

func TestSignerRejectsTampering(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Generate("inv-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forged, _, err := NewSigner("secret", time.Hour).Generate("inv-2")
	require.NoError(t, err)
	parts[0] = strings.Split(forged, ".")[0]

	_, _, err = signer.Parse(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = NewSigner("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = signer.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignerExpiry(t *testing.T) {
	signer := NewSigner("secret", time.Minute)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("inv-1")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, _, err = signer.Parse(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSignerRequiresSecretAndSubject(t *testing.T) {
	_, _, err := NewSigner("", time.Hour).Generate("inv-1")
	assert.Error(t, err)
	_, _, err = NewSigner("secret", time.Hour).Generate("")
	assert.Error(t, err)
}
