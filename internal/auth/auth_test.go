package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)

	token, err := iss.Issue(7, "alice")
	require.NoError(t, err)

	claims, err := iss.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
}

func TestIssuer_RejectsForeignSecret(t *testing.T) {
	token, err := NewIssuer("one", time.Hour).Issue(7, "alice")
	require.NoError(t, err)

	_, err = NewIssuer("two", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	iss := NewIssuer("secret", time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := iss.Issue(7, "alice")
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Minute).Validate(token)
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
}

func TestIssuer_RejectsGarbageAndNoneAlg(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)

	_, err := iss.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrAuthenticationFailure)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Validate(unsigned)
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
}

func TestPasswords_Bcrypt(t *testing.T) {
	p := NewPasswords(PasswordBcrypt)
	p.cost = bcrypt.MinCost

	hashed, err := p.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hashed)

	assert.NoError(t, p.Verify(hashed, "hunter2"))
	assert.ErrorIs(t, p.Verify(hashed, "hunter3"), ErrAuthenticationFailure)
}

func TestPasswords_Plain(t *testing.T) {
	p := NewPasswords(PasswordPlain)

	stored, err := p.Hash("hunter2")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", stored)

	assert.NoError(t, p.Verify(stored, "hunter2"))
	assert.ErrorIs(t, p.Verify(stored, "hunter"), ErrAuthenticationFailure)
}

func TestParsePasswordMode(t *testing.T) {
	m, err := ParsePasswordMode("BCRYPT")
	require.NoError(t, err)
	assert.Equal(t, PasswordBcrypt, m)

	_, err = ParsePasswordMode("md5")
	assert.Error(t, err)
}
