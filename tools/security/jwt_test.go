package security

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("jwt-test-secret"))

	token, jti, exp, err := Generate(opts, 42, []string{"chat"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(opts.TTL), exp, 5*time.Second)

	claims, err := Verify(opts, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, jti, claims.TokenID)
	assert.Equal(t, []string{"chat"}, claims.Scopes)
	assert.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
}

func TestGenerateUniqueTokenIDs(t *testing.T) {
	opts := DefaultOptions([]byte("jwt-test-secret"))
	_, jti1, _, err := Generate(opts, 1, nil)
	require.NoError(t, err)
	_, jti2, _, err := Generate(opts, 1, nil)
	require.NoError(t, err)
	assert.NotEqual(t, jti1, jti2)
}

func TestVerifyExpiredToken(t *testing.T) {
	opts := DefaultOptions([]byte("jwt-test-secret"))
	claims := jwtlib.MapClaims{
		"sub": "7",
		"jti": "expired-jti",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(opts.Secret)
	require.NoError(t, err)

	_, err = Verify(opts, token)
	assert.Error(t, err)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, _, err := Generate(DefaultOptions([]byte("right")), 7, nil)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("wrong")), token)
	assert.Error(t, err)
}

func TestVerifyRejectsUnsignedAlg(t *testing.T) {
	opts := DefaultOptions([]byte("jwt-test-secret"))
	raw := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{
		"sub": "7",
		"jti": "x",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = Verify(opts, token)
	assert.Error(t, err)
}

func TestVerifyRequiresSubAndJti(t *testing.T) {
	opts := DefaultOptions([]byte("jwt-test-secret"))
	exp := time.Now().Add(time.Hour).Unix()

	cases := map[string]jwtlib.MapClaims{
		"missing sub":    {"jti": "x", "exp": exp},
		"missing jti":    {"sub": "7", "exp": exp},
		"non-numeric id": {"sub": "alice", "jti": "x", "exp": exp},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(opts.Secret)
			require.NoError(t, err)
			_, err = Verify(opts, token)
			assert.Error(t, err)
		})
	}
}
