package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fastParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashKeyRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashKey("s3cret", fastParams)
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=1024,t=1,p=1$")

	assert.NoError(t, VerifyKey(hash, "s3cret"))
	assert.ErrorIs(t, VerifyKey(hash, "wrong"), ErrInvalidCredentials)
}

func TestVerifyKeyAcceptsBcrypt(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, VerifyKey(string(hash), "s3cret"))
	assert.ErrorIs(t, VerifyKey(string(hash), "nope"), ErrInvalidCredentials)
}

func TestVerifyKeyRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, VerifyKey("plain", "x"), ErrInvalidKeyHash)
	assert.ErrorIs(t, VerifyKey("$argon2id$v=19$broken", "x"), ErrInvalidKeyHash)
	assert.ErrorIs(t, VerifyKey("$argon2id$v=1$m=1,t=1,p=1$c2FsdA$aGFzaA", "x"), ErrIncompatibleKeyVersion)
}

func TestKeyVerifier(t *testing.T) {
	t.Parallel()

	hash, err := HashKey("abc", fastParams)
	require.NoError(t, err)
	verifier := NewKeyVerifier([]APIKey{
		{ID: "ops", Hash: hash, Permissions: []Permission{PermMeetingsRead}},
	})

	identity, err := verifier.Verify("ops.abc")
	require.NoError(t, err)
	assert.Equal(t, "apikey:ops", identity.Subject)
	assert.True(t, identity.Has(PermMeetingsRead))
	assert.False(t, identity.IsAdmin())

	for _, presented := range []string{"ops", "ops.", "other.abc", "ops.abd"} {
		_, err := verifier.Verify(presented)
		assert.ErrorIs(t, err, ErrInvalidCredentials, presented)
	}
}

func TestTokenVerifier(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	verifier := NewTokenVerifier("signing-key", "scheduler", clock)

	token, err := verifier.Issue("alice", []Permission{PermMeetingsWrite, PermCalendarAdmin}, time.Hour)
	require.NoError(t, err)

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Subject)
	assert.True(t, identity.Has(PermMeetingsWrite))
	assert.True(t, identity.IsAdmin())

	t.Run("expired", func(t *testing.T) {
		later := NewTokenVerifier("signing-key", "scheduler", func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenVerifier("signing-key", "someone-else", clock)
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenVerifier("another-key", "scheduler", clock)
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = verifier.Verify(unsigned)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
