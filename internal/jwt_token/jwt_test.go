package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
)

func newService(ttl time.Duration) *JWTService {
	return NewJWTService("test-signing-key", "test-issuer", ttl)
}

func Test_IssueSessionToken(t *testing.T) {
	svc := newService(time.Hour)
	session := domain.NewSessionID()

	token, expiresAt, err := svc.IssueSessionToken(session)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	got, err := svc.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := newService(time.Hour).ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	svc := newService(-time.Hour)
	token, _, err := svc.IssueSessionToken(domain.NewSessionID())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, "session has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	token, _, err := newService(time.Hour).IssueSessionToken(domain.NewSessionID())
	require.NoError(t, err)

	_, err = NewJWTService("other-key", "test-issuer", time.Hour).ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = NewJWTService("test-signing-key", "other-issuer", time.Hour).ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{SessionID: domain.NewSessionID().String()})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService(time.Hour).ValidateToken(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
