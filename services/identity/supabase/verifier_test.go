package supabase

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/identity"
)

const userID = "8d0f2d5e-5b3a-4c55-9d43-2b8f3f0f6a11"

func TestVerify(t *testing.T) {
	conf := core.NewTestConfig()
	secret := conf.Identity.JWTSecret
	ctx := context.Background()
	sess := identity.Session{UserID: userID, Email: "Asha@Example.com", Metadata: map[string]interface{}{"full_name": "Asha Rao"}}

	mustIssue := func(secret string, sess identity.Session, ttl time.Duration, issuer ...string) string {
		tok, err := IssueToken(secret, sess, ttl, issuer...)
		require.NoError(t, err)
		return tok
	}

	t.Run("valid", func(t *testing.T) {
		got, err := NewVerifier(conf).Verify(ctx, mustIssue(secret, sess, time.Hour))
		require.NoError(t, err)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, "asha@example.com", got.Email)
		assert.Equal(t, "Asha Rao", got.DisplayName())
	})

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", mustIssue("other-secret", sess, time.Hour)},
		{"expired", mustIssue(secret, sess, -time.Hour)},
		{"alg none", none},
		{"no expiry", noExp},
		{"subject not a uuid", mustIssue(secret, identity.Session{UserID: "42"}, time.Hour)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVerifier(conf).Verify(ctx, tc.token)
			assert.Equal(t, identity.ErrNoSession, errors.Cause(err))
		})
	}

	t.Run("issuer", func(t *testing.T) {
		c := *conf
		c.Identity.Issuer = "https://project.supabase.co/auth/v1"
		v := NewVerifier(&c)

		_, err := v.Verify(ctx, mustIssue(secret, sess, time.Hour, "https://elsewhere.example"))
		assert.Equal(t, identity.ErrNoSession, errors.Cause(err))

		_, err = v.Verify(ctx, mustIssue(secret, sess, time.Hour, c.Identity.Issuer))
		assert.NoError(t, err)
	})

	t.Run("not configured", func(t *testing.T) {
		c := *conf
		c.Identity.JWTSecret = ""
		_, err := NewVerifier(&c).Verify(ctx, mustIssue(secret, sess, time.Hour))
		assert.Equal(t, identity.ErrNoSession, err)
	})
}
